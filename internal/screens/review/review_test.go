package review

import (
	"context"
	"strings"
	"testing"

	tea "charm.land/bubbletea/v2"

	"github.com/yuxiji/scenetalk/internal/learning"
	"github.com/yuxiji/scenetalk/internal/progress"
	corereview "github.com/yuxiji/scenetalk/internal/review"
	"github.com/yuxiji/scenetalk/internal/router"
	"github.com/yuxiji/scenetalk/internal/scoring"
	"github.com/yuxiji/scenetalk/internal/screens/nav"
)

type fakeSaver struct {
	saved []progress.SubSceneProgress
}

func (f *fakeSaver) SaveProgress(_ context.Context, p progress.SubSceneProgress) error {
	f.saved = append(f.saved, p)
	return nil
}

func retryOutcome() learning.Outcome {
	return learning.Outcome{
		Results: []scoring.Result{
			{QAID: "qa1", Status: scoring.StatusFluent},
			{QAID: "qa3", Status: scoring.StatusFailed},
		},
		Report: learning.Report{Score: 50, Branch: scoring.BranchRetry, FailedQAIDs: []string{"qa3"}},
		Highlights: []corereview.Highlight{
			{QAID: "qa3", UserText: "I want go", Issue: "Missing 'to'.", BetterExpression: "I want to go."},
		},
	}
}

func TestReview_InitSavesReviewStage(t *testing.T) {
	saver := &fakeSaver{}
	s := New(saver, "cafe-order", retryOutcome())
	s.Update(s.Init()())

	if len(saver.saved) != 1 {
		t.Fatalf("expected 1 save, got %d", len(saver.saved))
	}
	got := saver.saved[0]
	if got.Stage != progress.StageReview {
		t.Fatalf("expected review stage, got %q", got.Stage)
	}
	if got.FluencyScore == nil || *got.FluencyScore != 50 {
		t.Fatalf("expected score 50, got %v", got.FluencyScore)
	}
	if len(got.FailedQAIDs) != 1 || got.FailedQAIDs[0] != "qa3" {
		t.Fatalf("unexpected failed ids %v", got.FailedQAIDs)
	}
}

func TestReview_RetryFailedLines(t *testing.T) {
	s := New(&fakeSaver{}, "cafe-order", retryOutcome())
	_, cmd := s.Update(tea.KeyPressMsg{Code: 'r', Text: "r"})
	if cmd == nil {
		t.Fatal("expected a command")
	}
	msg, ok := cmd().(nav.StartPracticeMsg)
	if !ok {
		t.Fatal("expected StartPracticeMsg")
	}
	if len(msg.QAIDs) != 1 || msg.QAIDs[0] != "qa3" {
		t.Fatalf("expected failed qa ids, got %v", msg.QAIDs)
	}
}

func TestReview_EnterFinishes(t *testing.T) {
	saver := &fakeSaver{}
	s := New(saver, "cafe-order", retryOutcome())
	_, cmd := s.Update(tea.KeyPressMsg{Code: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("expected a command")
	}

	if _, ok := cmd().(router.PopToRootMsg); !ok {
		t.Fatal("expected PopToRootMsg")
	}
	if len(saver.saved) != 1 || saver.saved[0].Stage != progress.StageDone {
		t.Fatalf("expected done stage to be saved, got %+v", saver.saved)
	}
}

func TestReview_View(t *testing.T) {
	s := New(&fakeSaver{}, "cafe-order", retryOutcome())
	view := s.View(80, 30)
	for _, want := range []string{"Fluency 50", "qa3", "I want to go.", "Missing 'to'."} {
		if !strings.Contains(view, want) {
			t.Errorf("expected view to contain %q", want)
		}
	}
}
