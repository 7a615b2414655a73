// Package practice walks the learner through the choice, fill-blank and
// speaking questions of a sub-scene before the dialogue.
package practice

import (
	"context"
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/yuxiji/scenetalk/internal/learning"
	pq "github.com/yuxiji/scenetalk/internal/practice"
	"github.com/yuxiji/scenetalk/internal/progress"
	"github.com/yuxiji/scenetalk/internal/screen"
	"github.com/yuxiji/scenetalk/internal/screens/nav"
	"github.com/yuxiji/scenetalk/internal/ui/components"
	"github.com/yuxiji/scenetalk/internal/ui/layout"
	"github.com/yuxiji/scenetalk/internal/ui/theme"
)

// Service is what the practice screen calls.
type Service interface {
	Practice(ctx context.Context, subSceneID string, qaIDs []string) ([]pq.Question, error)
	Speaking(userText, targetText string) pq.SpeakingResult
	SaveProgress(ctx context.Context, p progress.SubSceneProgress) error
}

var _ Service = (*learning.Service)(nil)

type questionsMsg struct {
	questions []pq.Question
	err       error
}

type savedMsg struct{ err error }

// PracticeScreen runs one practice set.
type PracticeScreen struct {
	svc        Service
	subSceneID string
	qaIDs      []string

	questions []pq.Question
	index     int
	correct   int

	choice components.MultiChoice
	input  components.TextInput

	feedback   string
	feedbackOK bool
	showing    bool

	loaded bool
	errMsg string
}

var _ screen.Screen = (*PracticeScreen)(nil)
var _ screen.KeyHintProvider = (*PracticeScreen)(nil)

// New creates a practice screen. qaIDs restricts practice to those pairs;
// from skips the first questions.
func New(svc Service, subSceneID string, qaIDs []string, from int) *PracticeScreen {
	return &PracticeScreen{
		svc:        svc,
		subSceneID: subSceneID,
		qaIDs:      qaIDs,
		index:      from,
	}
}

func (s *PracticeScreen) Init() tea.Cmd {
	return func() tea.Msg {
		qs, err := s.svc.Practice(context.Background(), s.subSceneID, s.qaIDs)
		return questionsMsg{questions: qs, err: err}
	}
}

func (s *PracticeScreen) Title() string {
	if len(s.qaIDs) > 0 {
		return "Targeted practice"
	}
	return "Practice"
}

func (s *PracticeScreen) KeyHints() []layout.KeyHint {
	if s.showing {
		return []layout.KeyHint{{Key: "any key", Description: "Continue"}}
	}
	if q := s.current(); q != nil && q.Kind() == pq.KindChoice {
		return []layout.KeyHint{
			{Key: "↑↓/1-4", Description: "Choose"},
			{Key: "Enter", Description: "Submit"},
			{Key: "Tab", Description: "Skip to dialogue"},
			{Key: "Esc", Description: "Back"},
		}
	}
	return []layout.KeyHint{
		{Key: "Enter", Description: "Submit"},
		{Key: "Tab", Description: "Skip to dialogue"},
		{Key: "Esc", Description: "Back"},
	}
}

func (s *PracticeScreen) current() pq.Question {
	if s.index < 0 || s.index >= len(s.questions) {
		return nil
	}
	return s.questions[s.index]
}

func (s *PracticeScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case questionsMsg:
		s.loaded = true
		if msg.err != nil {
			s.errMsg = msg.err.Error()
			return s, nil
		}
		s.questions = msg.questions
		if s.index >= len(s.questions) {
			s.index = 0
		}
		if len(s.questions) == 0 {
			return s, s.finish()
		}
		return s, s.setup()

	case savedMsg:
		// A failed save only loses resume position.
		return s, nil

	case tea.KeyMsg:
		return s.handleKey(msg)
	}

	if q := s.current(); q != nil && q.Kind() != pq.KindChoice && !s.showing {
		var cmd tea.Cmd
		s.input, cmd = s.input.Update(msg)
		return s, cmd
	}
	return s, nil
}

func (s *PracticeScreen) setup() tea.Cmd {
	q := s.current()
	if q == nil {
		return nil
	}
	switch q := q.(type) {
	case *pq.ChoiceQuestion:
		opts := make([]string, len(q.Options))
		correct := 0
		for i, o := range q.Options {
			opts[i] = o.Text
			if o.IsCorrect {
				correct = i
			}
		}
		s.choice = components.NewMultiChoice("", opts, correct)
		return nil
	case *pq.FillBlankQuestion:
		s.input = components.NewTextInput(fmt.Sprintf("%d word(s), separated by spaces", len(q.Blanks)), 80)
	default:
		s.input = components.NewTextInput("Type what you would say...", 200)
	}
	return s.input.Init()
}

func (s *PracticeScreen) handleKey(msg tea.KeyMsg) (screen.Screen, tea.Cmd) {
	if s.errMsg != "" || !s.loaded {
		return s, nil
	}
	if s.showing {
		s.showing = false
		s.feedback = ""
		s.index++
		if s.index >= len(s.questions) {
			return s, s.finish()
		}
		return s, tea.Batch(s.setup(), s.save())
	}
	if msg.String() == "tab" {
		return s, s.finish()
	}

	switch q := s.current().(type) {
	case *pq.ChoiceQuestion:
		var cmd tea.Cmd
		s.choice, cmd = s.choice.Update(msg)
		if s.choice.Submitted {
			ok := s.choice.IsCorrect()
			s.show(ok, "Answer: "+q.Correct().Text)
		}
		return s, cmd

	case *pq.FillBlankQuestion:
		if msg.String() != "enter" {
			break
		}
		marks, err := pq.CheckFillBlank(q, strings.Fields(s.input.Value()))
		if err != nil {
			s.feedback, s.feedbackOK = fmt.Sprintf("Fill in all %d blank(s).", len(q.Blanks)), false
			return s, nil
		}
		ok := true
		for _, m := range marks {
			ok = ok && m
		}
		answers := make([]string, len(q.Blanks))
		for i, b := range q.Blanks {
			answers[i] = b.Answer
		}
		s.input.Submit(ok)
		s.show(ok, pq.Fill(q.Template, answers))
		return s, nil

	case *pq.SpeakingQuestion:
		if msg.String() != "enter" {
			break
		}
		if strings.TrimSpace(s.input.Value()) == "" {
			return s, nil
		}
		res := s.svc.Speaking(s.input.Value(), q.Expected)
		s.input.Submit(res.Passed)
		s.show(res.Passed, fmt.Sprintf("Match %d%%. Model answer: %s", res.Score, q.Expected))
		return s, nil
	}

	var cmd tea.Cmd
	s.input, cmd = s.input.Update(msg)
	return s, cmd
}

func (s *PracticeScreen) show(ok bool, detail string) {
	if ok {
		s.correct++
		s.feedback = "Correct! " + detail
	} else {
		s.feedback = "Not quite. " + detail
	}
	s.feedbackOK = ok
	s.showing = true
}

func (s *PracticeScreen) save() tea.Cmd {
	p := progress.SubSceneProgress{
		SubSceneID:    s.subSceneID,
		Stage:         progress.StagePractice,
		PracticeIndex: s.index,
	}
	return func() tea.Msg {
		return savedMsg{err: s.svc.SaveProgress(context.Background(), p)}
	}
}

func (s *PracticeScreen) finish() tea.Cmd {
	id := s.subSceneID
	return func() tea.Msg { return nav.StartDialogueMsg{SubSceneID: id} }
}

func (s *PracticeScreen) View(width, height int) string {
	if s.errMsg != "" {
		return lipgloss.NewStyle().Foreground(theme.Error).Render("  " + s.errMsg + "\n\n  Press Esc to go back.")
	}
	q := s.current()
	if !s.loaded || q == nil {
		return theme.Hint.Render("  Preparing practice...")
	}

	var b strings.Builder
	bar := components.NewProgressBar(
		fmt.Sprintf("Question %d/%d", s.index+1, len(s.questions)),
		float64(s.index)/float64(len(s.questions)), false, min(width-4, 60))
	b.WriteString("  " + bar.View() + "\n\n")

	switch q := q.(type) {
	case *pq.ChoiceQuestion:
		b.WriteString(heading("Listen and choose the best reply"))
		b.WriteString(prompt(q.SpeakerText, q.SpeakerTextCn))
		if q.AudioURL != "" {
			b.WriteString(theme.Hint.Render("  ♪ "+q.AudioURL) + "\n")
		}
		b.WriteString("\n" + s.choice.View())
	case *pq.FillBlankQuestion:
		b.WriteString(heading("Fill in the blanks"))
		b.WriteString(prompt(q.SpeakerText, q.SpeakerTextCn))
		b.WriteString("\n  " + theme.Body.Render(q.Template) + "\n\n")
		b.WriteString("  " + s.input.View() + "\n")
	case *pq.SpeakingQuestion:
		b.WriteString(heading("Say your reply"))
		b.WriteString(prompt(q.SpeakerText, q.SpeakerTextCn))
		b.WriteString("\n  " + s.input.View() + "\n")
	}

	if s.feedback != "" && (s.showing || !s.feedbackOK) {
		style := theme.Incorrect
		if s.feedbackOK {
			style = theme.Correct
		}
		b.WriteString("\n  " + style.Render(s.feedback) + "\n")
	}
	return b.String()
}

func heading(s string) string {
	return "  " + theme.Selected.Render(s) + "\n\n"
}

func prompt(text, cn string) string {
	out := "  " + theme.SpeakerAI.Render("AI: ") + theme.Body.Render(text) + "\n"
	if cn != "" {
		out += "      " + theme.Translation.Render(cn) + "\n"
	}
	return out
}
