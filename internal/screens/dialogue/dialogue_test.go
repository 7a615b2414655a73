package dialogue

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"

	dlg "github.com/yuxiji/scenetalk/internal/dialogue"
	"github.com/yuxiji/scenetalk/internal/judge"
	"github.com/yuxiji/scenetalk/internal/learning"
	"github.com/yuxiji/scenetalk/internal/llm"
	"github.com/yuxiji/scenetalk/internal/practice"
	"github.com/yuxiji/scenetalk/internal/progress"
	"github.com/yuxiji/scenetalk/internal/scene"
	"github.com/yuxiji/scenetalk/internal/scoring"
	"github.com/yuxiji/scenetalk/internal/screens/nav"
)

type catalog struct {
	pairs []scene.QAPair
}

func (c *catalog) SubScene(_ context.Context, id string) (*scene.SubScene, error) {
	return &scene.SubScene{ID: id, Name: "Ordering coffee"}, nil
}

func (c *catalog) QAPairs(_ context.Context, _ string) ([]scene.QAPair, error) {
	return append([]scene.QAPair(nil), c.pairs...), nil
}

func (c *catalog) SubScenes(_ context.Context, _ string) ([]scene.SubScene, error) {
	return nil, nil
}

// polite passes any reply containing "please".
func polite() *llm.MockProvider {
	return llm.NewMockFunc(func(req llm.Request) llm.MockResponse {
		if req.Schema != nil && req.Schema.Name == judge.CritiqueSchema.Name {
			return llm.JSON(`{"issue":"Too short.","betterExpression":"A latte, please."}`)
		}
		msg := req.Messages[len(req.Messages)-1].Content
		_, reply, _ := strings.Cut(msg, "Learner's reply: ")
		if strings.Contains(reply, "please") {
			return llm.JSON(`{"pass":true,"reason":"ok"}`)
		}
		return llm.JSON(`{"pass":false,"reason":"Be polite.","hint":"Add please."}`)
	})
}

func newService() *learning.Service {
	cat := &catalog{pairs: []scene.QAPair{
		{ID: "qa1", Order: 1, QAType: scene.QATypeMustSpeak, SpeakerText: "What can I get for you?",
			Responses: []scene.QAResponse{{Text: "A latte, please.", TextCn: "请给我一杯拿铁。"}}},
		{ID: "qa2", Order: 2, QAType: scene.QATypeNarration, SpeakerText: "The barista starts the machine."},
		{ID: "qa3", Order: 3, QAType: scene.QATypeMustSpeak, SpeakerText: "For here or to go?",
			Responses: []scene.QAResponse{{Text: "To go, please."}}},
	}}
	j := judge.New(polite(), judge.DefaultConfig())
	return learning.New(learning.Deps{
		Catalog:   cat,
		Progress:  progress.NewMemoryStore(),
		Verdicter: j,
		Critic:    j,
		Dialogue:  dlg.DefaultConfig(),
		NewRand:   func() practice.Rand { return practice.NewRand(1) },
	})
}

func started(t *testing.T, svc *learning.Service) *DialogueScreen {
	t.Helper()
	s := New(svc, "cafe-order", nil)
	run, err := svc.StartRun(context.Background(), "cafe-order")
	if err != nil {
		t.Fatalf("start run: %v", err)
	}
	s.Update(runMsg{run: run})
	return s
}

// drain runs cmd and any batched commands, returning every message.
func drain(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, drain(c)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

// step feeds msg to the screen, then feeds back any turn result and
// returns every message produced along the way.
func step(s *DialogueScreen, msg tea.Msg) []tea.Msg {
	_, cmd := s.Update(msg)
	msgs := drain(cmd)
	for _, m := range msgs {
		if _, ok := m.(turnMsg); ok {
			_, next := s.Update(m)
			msgs = append(msgs, drain(next)...)
		}
	}
	return msgs
}

func enter() tea.Msg { return tea.KeyPressMsg{Code: tea.KeyEnter} }

func say(s *DialogueScreen, text string) []tea.Msg {
	s.input.Model.SetValue(text)
	return step(s, enter())
}

func TestDialogue_StartShowsOpeningLine(t *testing.T) {
	svc := newService()
	s := started(t, svc)

	if s.busy {
		t.Fatal("expected screen to accept input")
	}
	if len(s.lines) != 1 || s.lines[0].Text != "What can I get for you?" {
		t.Fatalf("unexpected opening lines %+v", s.lines)
	}
	if !strings.Contains(s.View(80, 30), "What can I get for you?") {
		t.Fatal("expected opening line in view")
	}
}

func TestDialogue_FailedReplyShowsReason(t *testing.T) {
	svc := newService()
	s := started(t, svc)

	say(s, "latte")
	if s.run.Index() != 0 {
		t.Fatalf("expected to stay on the first pair, got %d", s.run.Index())
	}
	if s.reason != "Be polite." || s.hint != "Add please." {
		t.Fatalf("unexpected feedback reason=%q hint=%q", s.reason, s.hint)
	}
	if s.busy {
		t.Fatal("expected input to be unlocked")
	}
}

func TestDialogue_EmptyReplyIgnored(t *testing.T) {
	svc := newService()
	s := started(t, svc)
	if _, cmd := s.Update(enter()); cmd != nil {
		t.Fatal("empty reply must not be sent")
	}
}

func TestDialogue_FullRunEndsInReview(t *testing.T) {
	svc := newService()
	s := started(t, svc)

	say(s, "A latte, please")
	if s.run.Index() != 1 || !s.narration() {
		t.Fatalf("expected narration pair, got index %d", s.run.Index())
	}

	// Enter continues past narration.
	step(s, enter())
	if s.run.Index() != 2 {
		t.Fatalf("expected third pair, got %d", s.run.Index())
	}

	msgs := say(s, "To go, please")
	if !s.run.Done() {
		t.Fatal("expected run to be done")
	}

	var finished *finishedMsg
	for _, m := range msgs {
		if f, ok := m.(finishedMsg); ok {
			finished = &f
		}
	}
	if finished == nil {
		t.Fatal("expected the run to finish")
	}

	_, cmd := s.Update(*finished)
	review, ok := cmd().(nav.ShowReviewMsg)
	if !ok {
		t.Fatal("expected ShowReviewMsg")
	}
	if review.Outcome.Report.Score != 100 || review.Outcome.Report.Branch != scoring.BranchReplay {
		t.Fatalf("unexpected report %+v", review.Outcome.Report)
	}

	snap, err := svc.LoadProgress(context.Background(), "cafe-order")
	if err != nil || snap == nil {
		t.Fatalf("expected saved progress, got %v %v", snap, err)
	}
	if snap.Stage != progress.StageDialogue {
		t.Fatalf("expected dialogue stage, got %q", snap.Stage)
	}
}

func TestDialogue_SkipMarksFailed(t *testing.T) {
	svc := newService()
	s := started(t, svc)

	step(s, tea.KeyPressMsg{Code: 's', Mod: tea.ModCtrl})
	if s.run.Index() != 1 {
		t.Fatalf("expected skip to advance, got %d", s.run.Index())
	}
	if s.notice == "" {
		t.Fatal("expected a notice after skipping")
	}
}

func TestDialogue_TabShowsHint(t *testing.T) {
	svc := newService()
	s := started(t, svc)

	s.Update(tea.KeyPressMsg{Code: tea.KeyTab})
	if s.hint != "请给我一杯拿铁。" {
		t.Fatalf("expected translated hint, got %q", s.hint)
	}
	if s.notice != dlg.NudgeMessage {
		t.Fatalf("expected nudge message, got %q", s.notice)
	}
}

func TestDialogue_IdleNudge(t *testing.T) {
	svc := newService()
	s := started(t, svc)

	now := time.Now()
	s.lastSeen = now
	s.now = func() time.Time { return now.Add(IdleAfter - time.Second) }
	s.Update(tickMsg(now))
	if s.nudged {
		t.Fatal("nudged too early")
	}

	s.now = func() time.Time { return now.Add(IdleAfter) }
	s.Update(tickMsg(now))
	if !s.nudged || s.notice != dlg.NudgeMessage {
		t.Fatal("expected idle nudge")
	}
}

type failingSaver struct{ *learning.Service }

func (failingSaver) SaveProgress(context.Context, progress.SubSceneProgress) error {
	return errors.New("disk full")
}

func TestDialogue_SaveErrorShown(t *testing.T) {
	svc := newService()
	s := New(failingSaver{svc}, "cafe-order", nil)
	run, err := svc.StartRun(context.Background(), "cafe-order")
	if err != nil {
		t.Fatalf("start run: %v", err)
	}

	var saved *savedMsg
	for _, m := range step(s, runMsg{run: run}) {
		if sm, ok := m.(savedMsg); ok {
			saved = &sm
		}
	}
	if saved == nil || saved.err == nil {
		t.Fatalf("expected a failed save, got %+v", saved)
	}
	s.Update(*saved)
	if !strings.Contains(s.notice, "disk full") {
		t.Fatalf("expected save error in notice, got %q", s.notice)
	}
}
