package learning

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/yuxiji/scenetalk/internal/dialogue"
	"github.com/yuxiji/scenetalk/internal/judge"
	"github.com/yuxiji/scenetalk/internal/progress"
	"github.com/yuxiji/scenetalk/internal/review"
	"github.com/yuxiji/scenetalk/internal/scene"
	"github.com/yuxiji/scenetalk/internal/scoring"
)

// Run is one learner's pass through a sub-scene dialogue. It holds the
// state the engine leaves to its caller. Not safe for concurrent use.
type Run struct {
	svc *Service

	ID       string
	SubScene scene.SubScene
	Pairs    []scene.QAPair

	index   int
	history []judge.Line
	tracker *dialogue.Tracker
	done    bool
}

// StartRun begins a fresh dialogue run with the opening line in history.
func (s *Service) StartRun(ctx context.Context, subSceneID string) (*Run, error) {
	sub, pairs, err := s.load(ctx, subSceneID)
	if err != nil {
		return nil, err
	}
	if len(pairs) == 0 {
		return nil, fmt.Errorf("%w: %s", dialogue.ErrNoQAPairs, subSceneID)
	}
	r := &Run{
		svc:      s,
		ID:       uuid.NewString(),
		SubScene: *sub,
		Pairs:    pairs,
		tracker:  dialogue.NewTracker(pairs, s.cfg.MaxAttempts),
	}
	r.history = append(r.history, judge.Line{Role: judge.RoleAI, Text: pairs[0].SpeakerText})
	return r, nil
}

// ResumeRun rebuilds a run from a dialogue-stage snapshot.
func (s *Service) ResumeRun(ctx context.Context, p *progress.SubSceneProgress) (*Run, error) {
	r, err := s.StartRun(ctx, p.SubSceneID)
	if err != nil {
		return nil, err
	}
	if p.RunID != "" {
		r.ID = p.RunID
	}
	if p.CurrentQAIndex < 0 || p.CurrentQAIndex > len(r.Pairs) {
		return nil, &dialogue.IndexError{Index: p.CurrentQAIndex, Len: len(r.Pairs)}
	}
	r.index = p.CurrentQAIndex
	r.done = r.index >= len(r.Pairs)
	if len(p.ConversationHistory) > 0 {
		r.history = append([]judge.Line(nil), p.ConversationHistory...)
	}
	r.tracker.Restore(p.Results, p.Pairs)
	return r, nil
}

// Index is the position of the pair awaiting a reply.
func (r *Run) Index() int { return r.index }

// Done reports whether every pair has been passed or skipped.
func (r *Run) Done() bool { return r.done }

// Current returns the pair awaiting a reply. ok is false once the run is done.
func (r *Run) Current() (p scene.QAPair, ok bool) {
	if r.done {
		return scene.QAPair{}, false
	}
	return r.Pairs[r.index], true
}

// History returns the conversation so far.
func (r *Run) History() []judge.Line { return r.history }

// Attempts returns how many replies were judged on qaID.
func (r *Run) Attempts(qaID string) int { return r.tracker.Attempts(qaID) }

// Say submits a learner reply. When the reply fails and the pair has run
// out of attempts, the pair is skipped and the returned turn is the skip,
// carrying the failed verdict's reason and hint.
func (r *Run) Say(ctx context.Context, msg string) (dialogue.Turn, error) {
	cur, ok := r.Current()
	if !ok {
		return dialogue.Turn{}, fmt.Errorf("run %s is complete", r.ID)
	}
	turn, err := r.svc.Advance(ctx, AdvanceRequest{
		SubSceneID:     r.SubScene.ID,
		UserMessage:    msg,
		CurrentQAIndex: r.index,
		History:        r.history,
		RunID:          r.ID,
		Attempt:        r.tracker.Failures(cur.ID) + 1,
	})
	if err != nil {
		return dialogue.Turn{}, err
	}
	r.history = append(r.history, judge.Line{Role: judge.RoleUser, Text: msg})
	r.tracker.Said(cur.ID, msg)
	r.tracker.Record(turn)

	if !turn.Pass && r.tracker.Exhausted(cur.ID) {
		skip, err := r.svc.Skip(ctx, r.SubScene.ID, r.ID, r.index)
		if err != nil {
			return dialogue.Turn{}, err
		}
		skip.Reason, skip.Hint = turn.Reason, turn.Hint
		turn = skip
		r.tracker.Record(turn)
	}
	r.apply(turn)
	return turn, nil
}

// Skip gives up on the current pair.
func (r *Run) Skip(ctx context.Context) (dialogue.Turn, error) {
	if r.done {
		return dialogue.Turn{}, fmt.Errorf("run %s is complete", r.ID)
	}
	turn, err := r.svc.Skip(ctx, r.SubScene.ID, r.ID, r.index)
	if err != nil {
		return dialogue.Turn{}, err
	}
	r.tracker.Record(turn)
	r.apply(turn)
	return turn, nil
}

// Nudge marks the current pair as hinted and returns the nudge line.
func (r *Run) Nudge() string {
	if cur, ok := r.Current(); ok {
		r.tracker.MarkHinted(cur.ID)
	}
	return dialogue.NudgeMessage
}

func (r *Run) apply(t dialogue.Turn) {
	if t.AIMessage != "" {
		r.history = append(r.history, judge.Line{Role: judge.RoleAI, Text: t.AIMessage})
	}
	r.index = t.NextQAIndex
	r.done = t.IsComplete
}

// Outcome is the end of a run: its results, score and review highlights.
type Outcome struct {
	Results    []scoring.Result
	Report     Report
	Highlights []review.Highlight
}

// Finish closes the run. Unanswered must-speak pairs count as failed.
// Review covers one entry per must-speak pair, carrying its last reply.
func (r *Run) Finish(ctx context.Context) Outcome {
	results := r.tracker.Finalize()
	entries := make([]review.Entry, 0, len(results))
	for _, res := range results {
		entries = append(entries, review.Entry{
			QAID:     res.QAID,
			UserText: r.tracker.LastUtterance(res.QAID),
			Passed:   res.Status.Passed(),
		})
	}
	return Outcome{
		Results:    results,
		Report:     report(results, scene.MustSpeakCount(r.Pairs)),
		Highlights: r.svc.Review(ctx, r.SubScene.ID, entries),
	}
}

// Snapshot captures the run for persistence.
func (r *Run) Snapshot(stage progress.Stage) progress.SubSceneProgress {
	return progress.SubSceneProgress{
		SubSceneID:          r.SubScene.ID,
		Stage:               stage,
		CurrentQAIndex:      r.index,
		ConversationHistory: r.history,
		Results:             r.tracker.Results(),
		Pairs:               r.tracker.States(),
		RunID:               r.ID,
	}
}
