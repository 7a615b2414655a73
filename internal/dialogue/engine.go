// Package dialogue drives a scripted role-play forward one QA pair at a
// time. The engine holds no state between calls; callers pass back the
// index and history they were given.
package dialogue

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/yuxiji/scenetalk/internal/judge"
	"github.com/yuxiji/scenetalk/internal/logging"
	"github.com/yuxiji/scenetalk/internal/scene"
)

// Fixed lines the engine speaks.
const (
	TryAgainMessage = "Hmm, that doesn't quite fit. Try again, what would you say here?"
	CompleteMessage = "Great job! You've completed this scene."
	NudgeMessage    = "Take your time, what would you say here?"
)

// DefaultHistoryWindow is how many recent turns the judge sees.
const DefaultHistoryWindow = 5

// DefaultMaxAttempts is how many failed attempts exhaust a pair.
const DefaultMaxAttempts = 3

// Verdicter judges one learner reply.
type Verdicter interface {
	Judge(ctx context.Context, c judge.Context, utterance string) judge.Outcome
}

// Config tunes the engine.
type Config struct {
	HistoryWindow int `koanf:"history_window" validate:"gte=0"`
	MaxAttempts   int `koanf:"max_attempts" validate:"gte=0"`
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return Config{HistoryWindow: DefaultHistoryWindow, MaxAttempts: DefaultMaxAttempts}
}

// Turn is the engine's answer to one learner reply.
type Turn struct {
	Pass        bool   `json:"pass"`
	NextQAIndex int    `json:"nextQaIndex"`
	AIMessage   string `json:"aiMessage,omitempty"`
	IsComplete  bool   `json:"isComplete"`
	Hint        string `json:"hint,omitempty"`
	Reason      string `json:"reason,omitempty"`

	// QAID is the pair the reply was judged against.
	QAID    string `json:"qaId"`
	Skipped bool   `json:"skipped,omitempty"`
}

// Engine advances dialogues.
type Engine struct {
	source  scene.Source
	verdict Verdicter
	cfg     Config
	log     logrus.FieldLogger
}

// NewEngine creates an engine. A nil logger discards output.
func NewEngine(source scene.Source, v Verdicter, cfg Config, log logrus.FieldLogger) *Engine {
	log = logging.OrDiscard(log)
	return &Engine{source: source, verdict: v, cfg: cfg, log: log}
}

// load fetches the sub-scene and its pairs and checks index against them.
func (e *Engine) load(ctx context.Context, subSceneID string, index int) (*scene.SubScene, []scene.QAPair, error) {
	sub, err := e.source.SubScene(ctx, subSceneID)
	if err != nil {
		return nil, nil, fmt.Errorf("load sub-scene: %w", err)
	}
	if sub == nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrSubSceneNotFound, subSceneID)
	}
	pairs, err := e.source.QAPairs(ctx, subSceneID)
	if err != nil {
		return nil, nil, fmt.Errorf("load qa pairs: %w", err)
	}
	if len(pairs) == 0 {
		return nil, nil, fmt.Errorf("%w: %s", ErrNoQAPairs, subSceneID)
	}
	if index < 0 || index >= len(pairs) {
		return nil, nil, &IndexError{Index: index, Len: len(pairs)}
	}
	return sub, pairs, nil
}

// Advance judges userMessage against the pair at currentIndex. A pass moves
// to the next pair; anything else, including an unusable judgment, stays
// put and asks the learner to try again.
func (e *Engine) Advance(ctx context.Context, subSceneID, userMessage string, currentIndex int, history []judge.Line) (Turn, error) {
	sub, pairs, err := e.load(ctx, subSceneID, currentIndex)
	if err != nil {
		return Turn{}, err
	}
	current := pairs[currentIndex]

	window := e.cfg.HistoryWindow
	if window <= 0 {
		window = DefaultHistoryWindow
	}
	if len(history) > window {
		history = history[len(history)-window:]
	}

	outcome := e.verdict.Judge(ctx, judge.Context{
		SubSceneID:   sub.ID,
		SubSceneName: sub.Name,
		History:      history,
		Pair:         current,
	}, userMessage)

	var verdict judge.ParsedVerdict
	switch o := outcome.(type) {
	case *judge.ParsedVerdict:
		verdict = *o
	case *judge.ParseFailure:
		e.log.WithFields(logrus.Fields{
			"sub_scene_id": subSceneID,
			"qa_id":        current.ID,
			"raw":          o.Raw,
		}).WithError(o.Err).Warn("no usable verdict, not advancing")
	}

	if !verdict.Pass {
		return Turn{
			NextQAIndex: currentIndex,
			AIMessage:   TryAgainMessage,
			Hint:        verdict.Hint,
			Reason:      verdict.Reason,
			QAID:        current.ID,
		}, nil
	}

	turn := next(pairs, currentIndex)
	turn.Pass = true
	return turn, nil
}

// Skip moves past the pair at currentIndex without judging it.
func (e *Engine) Skip(ctx context.Context, subSceneID string, currentIndex int) (Turn, error) {
	_, pairs, err := e.load(ctx, subSceneID, currentIndex)
	if err != nil {
		return Turn{}, err
	}
	turn := next(pairs, currentIndex)
	turn.Skipped = true
	return turn, nil
}

// next builds the turn that leaves pairs[i] behind.
func next(pairs []scene.QAPair, i int) Turn {
	t := Turn{NextQAIndex: i + 1, QAID: pairs[i].ID}
	if t.NextQAIndex >= len(pairs) {
		t.IsComplete = true
		t.AIMessage = CompleteMessage
	} else {
		t.AIMessage = pairs[t.NextQAIndex].SpeakerText
	}
	return t
}

// Opening returns the first line of the sub-scene.
func (e *Engine) Opening(ctx context.Context, subSceneID string) (string, error) {
	_, pairs, err := e.load(ctx, subSceneID, 0)
	if err != nil {
		return "", err
	}
	return pairs[0].SpeakerText, nil
}
