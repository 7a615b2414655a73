package learning

import (
	"github.com/yuxiji/scenetalk/internal/audio"
	"github.com/yuxiji/scenetalk/internal/progress"
	"github.com/yuxiji/scenetalk/internal/store"
)

var (
	_ Catalog        = (*store.SceneRepo)(nil)
	_ TurnRecorder   = (*store.EventLog)(nil)
	_ progress.Store = (*store.ProgressRepo)(nil)
	_ AudioFiller    = (*audio.Resolver)(nil)
)
