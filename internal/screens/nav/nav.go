// Package nav carries the messages that move a learner between the
// practice, dialogue and review screens. The app turns them into router
// transitions, so the screens never import one another.
package nav

import (
	"github.com/yuxiji/scenetalk/internal/learning"
	"github.com/yuxiji/scenetalk/internal/progress"
)

// StartPracticeMsg opens practice for a sub-scene. QAIDs restricts it to
// those pairs; From skips questions already answered.
type StartPracticeMsg struct {
	SubSceneID string
	QAIDs      []string
	From       int
}

// StartDialogueMsg opens the dialogue. Resume continues a saved run.
type StartDialogueMsg struct {
	SubSceneID string
	Resume     *progress.SubSceneProgress
}

// ShowReviewMsg opens the review of a finished run.
type ShowReviewMsg struct {
	SubSceneID string
	Outcome    learning.Outcome
}
