package dialogue

import (
	"errors"
	"fmt"
)

var (
	ErrSubSceneNotFound = errors.New("sub-scene not found")
	ErrNoQAPairs        = errors.New("sub-scene has no QA pairs")
)

// IndexError reports a QA index outside the sub-scene's pairs.
type IndexError struct {
	Index int
	Len   int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("qa index %d out of range [0, %d)", e.Index, e.Len)
}
