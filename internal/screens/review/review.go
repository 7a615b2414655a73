// Package review shows the fluency score of a finished run, its feedback
// highlights and where to go next.
package review

import (
	"context"
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"

	"github.com/yuxiji/scenetalk/internal/learning"
	"github.com/yuxiji/scenetalk/internal/progress"
	"github.com/yuxiji/scenetalk/internal/router"
	"github.com/yuxiji/scenetalk/internal/scoring"
	"github.com/yuxiji/scenetalk/internal/screen"
	"github.com/yuxiji/scenetalk/internal/screens/nav"
	"github.com/yuxiji/scenetalk/internal/ui/components"
	"github.com/yuxiji/scenetalk/internal/ui/layout"
	"github.com/yuxiji/scenetalk/internal/ui/theme"
)

// Saver persists the review outcome.
type Saver interface {
	SaveProgress(ctx context.Context, p progress.SubSceneProgress) error
}

var _ Saver = (*learning.Service)(nil)

type savedMsg struct{ err error }

// ReviewScreen ends a run.
type ReviewScreen struct {
	saver      Saver
	subSceneID string
	out        learning.Outcome
	errMsg     string
}

var _ screen.Screen = (*ReviewScreen)(nil)
var _ screen.KeyHintProvider = (*ReviewScreen)(nil)

func New(saver Saver, subSceneID string, out learning.Outcome) *ReviewScreen {
	return &ReviewScreen{saver: saver, subSceneID: subSceneID, out: out}
}

func (s *ReviewScreen) Init() tea.Cmd {
	return s.save(progress.StageReview)
}

func (s *ReviewScreen) Title() string { return "Review" }

func (s *ReviewScreen) KeyHints() []layout.KeyHint {
	if s.out.Report.Branch == scoring.BranchRetry {
		return []layout.KeyHint{
			{Key: "R", Description: "Practice failed lines"},
			{Key: "Enter", Description: "Back to scenes"},
		}
	}
	return []layout.KeyHint{
		{Key: "Enter", Description: "Back to scenes"},
		{Key: "R", Description: "Practice again"},
	}
}

func (s *ReviewScreen) save(stage progress.Stage) tea.Cmd {
	score := s.out.Report.Score
	p := progress.SubSceneProgress{
		SubSceneID:   s.subSceneID,
		Stage:        stage,
		Results:      s.out.Results,
		FluencyScore: &score,
		FailedQAIDs:  s.out.Report.FailedQAIDs,
	}
	return func() tea.Msg {
		return savedMsg{err: s.saver.SaveProgress(context.Background(), p)}
	}
}

func (s *ReviewScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case savedMsg:
		if msg.err != nil {
			s.errMsg = "Could not save progress: " + msg.err.Error()
		}
		return s, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "r", "R":
			id, failed := s.subSceneID, s.out.Report.FailedQAIDs
			return s, func() tea.Msg { return nav.StartPracticeMsg{SubSceneID: id, QAIDs: failed} }
		case "enter":
			save := s.save(progress.StageDone)
			return s, func() tea.Msg {
				save()
				return router.PopToRootMsg{}
			}
		}
	}
	return s, nil
}

func (s *ReviewScreen) View(width, height int) string {
	rep := s.out.Report
	var b strings.Builder

	b.WriteString(theme.Title.Width(width).Render(fmt.Sprintf("Fluency %d", rep.Score)))
	b.WriteString("\n\n")
	bar := components.NewProgressBar("", float64(rep.Score)/100, true, min(width-4, 50)).
		WithMark(float64(scoring.PassScore) / 100)
	b.WriteString("  " + bar.View() + "\n\n")

	if rep.Branch == scoring.BranchReplay {
		b.WriteString("  " + theme.Correct.Render("Well done! You can move on or play the scene again.") + "\n\n")
	} else {
		b.WriteString("  " + theme.Incorrect.Render("Let's work on the lines that tripped you up. Press R to practice them.") + "\n\n")
	}

	for _, r := range s.out.Results {
		b.WriteString("  " + statusMark(r.Status) + " " + theme.Body.Render(r.QAID) + "\n")
	}

	if len(s.out.Highlights) > 0 {
		b.WriteString("\n  " + theme.Selected.Render("Feedback") + "\n")
		for _, h := range s.out.Highlights {
			b.WriteString("\n  " + theme.SpeakerLearner.Render("You said: ") + theme.Body.Render(h.UserText) + "\n")
			b.WriteString("  " + theme.Hint.Render(h.Issue) + "\n")
			b.WriteString("  " + theme.Correct.Render("Try: ") + theme.Body.Render(h.BetterExpression) + "\n")
		}
	}

	if s.errMsg != "" {
		b.WriteString("\n  " + theme.Incorrect.Render(s.errMsg) + "\n")
	}
	return b.String()
}

func statusMark(st scoring.Status) string {
	switch st {
	case scoring.StatusFluent:
		return theme.Correct.Render("✓ fluent  ")
	case scoring.StatusPrompted:
		return theme.Hint.Render("~ prompted")
	default:
		return theme.Incorrect.Render("✗ failed  ")
	}
}
