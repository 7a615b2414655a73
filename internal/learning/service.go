// Package learning composes practice synthesis, dialogue progression,
// scoring, review and progress persistence into the operations the HTTP
// API and the terminal UI call.
package learning

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yuxiji/scenetalk/internal/dialogue"
	"github.com/yuxiji/scenetalk/internal/judge"
	"github.com/yuxiji/scenetalk/internal/logging"
	"github.com/yuxiji/scenetalk/internal/practice"
	"github.com/yuxiji/scenetalk/internal/progress"
	"github.com/yuxiji/scenetalk/internal/review"
	"github.com/yuxiji/scenetalk/internal/scene"
	"github.com/yuxiji/scenetalk/internal/scoring"
	"github.com/yuxiji/scenetalk/internal/store"
)

// Catalog is the content the service reads.
type Catalog interface {
	scene.Source
	SubScenes(ctx context.Context, sceneID string) ([]scene.SubScene, error)
}

// TurnRecorder persists dialogue turns.
type TurnRecorder interface {
	AppendTurn(ctx context.Context, d store.TurnEventData) error
}

// AudioFiller resolves playable URLs on QA pairs in place.
type AudioFiller interface {
	Fill(ctx context.Context, pairs []scene.QAPair)
}

// Deps wires a Service. Catalog, Progress, Verdicter and Critic are
// required; the rest are optional.
type Deps struct {
	Catalog   Catalog
	Progress  progress.Store
	Verdicter dialogue.Verdicter
	Critic    review.Critic
	Turns     TurnRecorder
	Audio     AudioFiller

	Dialogue          dialogue.Config
	ReviewConcurrency int

	// NewRand seeds practice synthesis. Defaults to a time-seeded source.
	NewRand func() practice.Rand
	Log     logrus.FieldLogger
}

// Service is safe for concurrent use when its dependencies are.
type Service struct {
	catalog  Catalog
	progress progress.Store
	turns    TurnRecorder
	audio    AudioFiller
	engine   *dialogue.Engine
	reviews  *review.Generator
	cfg      dialogue.Config
	newRand  func() practice.Rand
	log      logrus.FieldLogger
}

// New builds a Service from d.
func New(d Deps) *Service {
	log := logging.OrDiscard(d.Log)
	newRand := d.NewRand
	if newRand == nil {
		newRand = func() practice.Rand {
			return practice.NewRand(uint64(time.Now().UnixNano()) ^ rand.Uint64())
		}
	}
	return &Service{
		catalog:  d.Catalog,
		progress: d.Progress,
		turns:    d.Turns,
		audio:    d.Audio,
		engine:   dialogue.NewEngine(d.Catalog, d.Verdicter, d.Dialogue, log),
		reviews:  review.NewGenerator(d.Catalog, d.Critic, d.ReviewConcurrency, log),
		cfg:      d.Dialogue,
		newRand:  newRand,
		log:      log,
	}
}

// Detail is a sub-scene with its ordered QA pairs.
type Detail struct {
	scene.SubScene
	QAPairs []scene.QAPair `json:"qaPairs"`
}

// SubScenes lists sub-scenes, optionally restricted to one scene.
func (s *Service) SubScenes(ctx context.Context, sceneID string) ([]scene.SubScene, error) {
	subs, err := s.catalog.SubScenes(ctx, sceneID)
	if err != nil {
		return nil, fmt.Errorf("list sub-scenes: %w", err)
	}
	if subs == nil {
		subs = []scene.SubScene{}
	}
	return subs, nil
}

// SubScene returns one sub-scene with its pairs and resolved audio.
func (s *Service) SubScene(ctx context.Context, id string) (*Detail, error) {
	sub, pairs, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Detail{SubScene: *sub, QAPairs: pairs}, nil
}

func (s *Service) load(ctx context.Context, id string) (*scene.SubScene, []scene.QAPair, error) {
	sub, err := s.catalog.SubScene(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("load sub-scene: %w", err)
	}
	if sub == nil {
		return nil, nil, fmt.Errorf("%w: %s", dialogue.ErrSubSceneNotFound, id)
	}
	pairs, err := s.catalog.QAPairs(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("load qa pairs: %w", err)
	}
	if pairs == nil {
		pairs = []scene.QAPair{}
	}
	if s.audio != nil {
		s.audio.Fill(ctx, pairs)
	}
	return sub, pairs, nil
}

// Practice builds the practice set for a sub-scene. A non-empty qaIDs
// restricts it to those pairs.
func (s *Service) Practice(ctx context.Context, subSceneID string, qaIDs []string) ([]practice.Question, error) {
	_, pairs, err := s.load(ctx, subSceneID)
	if err != nil {
		return nil, err
	}
	var qs []practice.Question
	if len(qaIDs) > 0 {
		qs = practice.GenerateFor(pairs, qaIDs, s.newRand())
	} else {
		qs = practice.Generate(pairs, s.newRand())
	}
	if qs == nil {
		qs = []practice.Question{}
	}
	return qs, nil
}

// RetryPractice builds practice for the failed pairs of a finished run.
func (s *Service) RetryPractice(ctx context.Context, subSceneID string, results []scoring.Result) ([]practice.Question, error) {
	failed := scoring.FailedIDs(results)
	if len(failed) == 0 {
		return []practice.Question{}, nil
	}
	return s.Practice(ctx, subSceneID, failed)
}

// Opening returns the first speaker line of the dialogue.
func (s *Service) Opening(ctx context.Context, subSceneID string) (string, error) {
	return s.engine.Opening(ctx, subSceneID)
}

// AdvanceRequest is one learner reply.
type AdvanceRequest struct {
	SubSceneID     string
	UserMessage    string
	CurrentQAIndex int
	History        []judge.Line

	// RunID and Attempt tag the recorded turn. Turns without a RunID are
	// not recorded.
	RunID   string
	Attempt int
}

// Advance judges one reply and moves the dialogue on when it passes.
func (s *Service) Advance(ctx context.Context, req AdvanceRequest) (dialogue.Turn, error) {
	turn, err := s.engine.Advance(ctx, req.SubSceneID, req.UserMessage, req.CurrentQAIndex, req.History)
	if err != nil {
		return dialogue.Turn{}, err
	}
	s.record(ctx, req.RunID, req.SubSceneID, req.CurrentQAIndex, req.Attempt, req.UserMessage, turn)
	return turn, nil
}

// Skip gives up on the pair at currentIndex.
func (s *Service) Skip(ctx context.Context, subSceneID, runID string, currentIndex int) (dialogue.Turn, error) {
	turn, err := s.engine.Skip(ctx, subSceneID, currentIndex)
	if err != nil {
		return dialogue.Turn{}, err
	}
	s.record(ctx, runID, subSceneID, currentIndex, 0, "", turn)
	return turn, nil
}

func (s *Service) record(ctx context.Context, runID, subSceneID string, index, attempt int, msg string, t dialogue.Turn) {
	if runID == "" || s.turns == nil {
		return
	}
	err := s.turns.AppendTurn(ctx, store.TurnEventData{
		RunID:       runID,
		SubSceneID:  subSceneID,
		QAID:        t.QAID,
		QAIndex:     index,
		Attempt:     attempt,
		Passed:      t.Pass,
		Skipped:     t.Skipped,
		UserMessage: msg,
		Reason:      t.Reason,
		Hint:        t.Hint,
	})
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"sub_scene_id": subSceneID,
			"qa_id":        t.QAID,
			"run_id":       runID,
		}).WithError(err).Warn("record dialogue turn")
	}
}

// Report is the scored outcome of a dialogue run.
type Report struct {
	Score       int            `json:"score"`
	Branch      scoring.Branch `json:"branch"`
	FailedQAIDs []string       `json:"failedQaIds"`
}

// Score rates results against the sub-scene's must-speak pairs.
func (s *Service) Score(ctx context.Context, subSceneID string, results []scoring.Result) (Report, error) {
	_, pairs, err := s.load(ctx, subSceneID)
	if err != nil {
		return Report{}, err
	}
	return report(results, scene.MustSpeakCount(pairs)), nil
}

func report(results []scoring.Result, mustSpeak int) Report {
	score := scoring.FluencyScore(results, mustSpeak)
	failed := scoring.FailedIDs(results)
	if failed == nil {
		failed = []string{}
	}
	return Report{Score: score, Branch: scoring.ReviewBranch(score), FailedQAIDs: failed}
}

// Review critiques the not-passed turns. It never fails.
func (s *Service) Review(ctx context.Context, subSceneID string, history []review.Entry) []review.Highlight {
	return s.reviews.Highlights(ctx, subSceneID, history)
}

// Speaking compares a spoken reply with its target text.
func (s *Service) Speaking(userText, targetText string) practice.SpeakingResult {
	return practice.SpeakingMatch(userText, targetText)
}

// LoadProgress returns the saved snapshot of a sub-scene, or nil.
func (s *Service) LoadProgress(ctx context.Context, subSceneID string) (*progress.SubSceneProgress, error) {
	return progress.LoadSnapshot(ctx, s.progress, subSceneID, s.log)
}

// SaveProgress stores a snapshot, replacing any previous one.
func (s *Service) SaveProgress(ctx context.Context, p progress.SubSceneProgress) error {
	return progress.SaveSnapshot(ctx, s.progress, p)
}

// SaveRawProgress stores a client-supplied snapshot, keeping fields the
// engine does not model. data must be a JSON object for subSceneID.
func (s *Service) SaveRawProgress(ctx context.Context, subSceneID string, data json.RawMessage) error {
	stamped, err := progress.StampRaw(subSceneID, data, time.Now())
	if err != nil {
		return err
	}
	if err := s.progress.Save(ctx, subSceneID, stamped); err != nil {
		return fmt.Errorf("save progress: %w", err)
	}
	return nil
}

// LoadRawProgress returns the stored snapshot as saved, or nil.
func (s *Service) LoadRawProgress(ctx context.Context, subSceneID string) (json.RawMessage, error) {
	data, err := s.progress.Load(ctx, subSceneID)
	if err != nil {
		return nil, fmt.Errorf("load progress: %w", err)
	}
	return data, nil
}

// ResetProgress deletes the snapshot of a sub-scene.
func (s *Service) ResetProgress(ctx context.Context, subSceneID string) error {
	return progress.Reset(ctx, s.progress, subSceneID)
}
