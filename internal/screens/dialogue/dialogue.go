// Package dialogue is the chat screen where the learner plays their part
// of a sub-scene and the judge decides when to move on.
package dialogue

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	dlg "github.com/yuxiji/scenetalk/internal/dialogue"
	"github.com/yuxiji/scenetalk/internal/judge"
	"github.com/yuxiji/scenetalk/internal/learning"
	"github.com/yuxiji/scenetalk/internal/progress"
	"github.com/yuxiji/scenetalk/internal/screen"
	"github.com/yuxiji/scenetalk/internal/screens/nav"
	"github.com/yuxiji/scenetalk/internal/ui/components"
	"github.com/yuxiji/scenetalk/internal/ui/layout"
	"github.com/yuxiji/scenetalk/internal/ui/theme"
)

// IdleAfter is how long the learner may stay silent before being nudged.
const IdleAfter = 30 * time.Second

// Service is what the dialogue screen calls.
type Service interface {
	StartRun(ctx context.Context, subSceneID string) (*learning.Run, error)
	ResumeRun(ctx context.Context, p *progress.SubSceneProgress) (*learning.Run, error)
	SaveProgress(ctx context.Context, p progress.SubSceneProgress) error
}

var _ Service = (*learning.Service)(nil)

type runMsg struct {
	run *learning.Run
	err error
}

type turnMsg struct {
	turn dlg.Turn
	err  error
}

type finishedMsg struct {
	outcome learning.Outcome
}

type savedMsg struct{ err error }

type tickMsg time.Time

// DialogueScreen drives one run.
type DialogueScreen struct {
	svc        Service
	subSceneID string
	resume     *progress.SubSceneProgress

	run   *learning.Run
	lines []judge.Line
	input components.TextInput

	busy     bool
	hint     string
	reason   string
	notice   string
	lastSeen time.Time
	nudged   bool
	errMsg   string
	now      func() time.Time
}

var _ screen.Screen = (*DialogueScreen)(nil)
var _ screen.KeyHintProvider = (*DialogueScreen)(nil)
var _ screen.StatusProvider = (*DialogueScreen)(nil)

// New creates a dialogue screen. A non-nil resume continues that run.
func New(svc Service, subSceneID string, resume *progress.SubSceneProgress) *DialogueScreen {
	return &DialogueScreen{
		svc:        svc,
		subSceneID: subSceneID,
		resume:     resume,
		input:      components.NewTextInput("Your reply...", 200),
		busy:       true,
		now:        time.Now,
	}
}

func (s *DialogueScreen) Init() tea.Cmd {
	start := func() tea.Msg {
		ctx := context.Background()
		if s.resume != nil {
			run, err := s.svc.ResumeRun(ctx, s.resume)
			return runMsg{run: run, err: err}
		}
		run, err := s.svc.StartRun(ctx, s.subSceneID)
		return runMsg{run: run, err: err}
	}
	return tea.Batch(start, s.input.Init(), tick())
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (s *DialogueScreen) Title() string { return "Dialogue" }

// Status shows the sub-scene and how far the run has got.
func (s *DialogueScreen) Status() string {
	if s.run == nil {
		return ""
	}
	return fmt.Sprintf("%s  %d/%d", s.run.SubScene.Name, min(s.run.Index()+1, len(s.run.Pairs)), len(s.run.Pairs))
}

func (s *DialogueScreen) KeyHints() []layout.KeyHint {
	if s.busy {
		return []layout.KeyHint{{Key: "Ctrl+C", Description: "Quit"}}
	}
	if s.narration() {
		return []layout.KeyHint{
			{Key: "Enter", Description: "Continue"},
			{Key: "Esc", Description: "Leave"},
		}
	}
	return []layout.KeyHint{
		{Key: "Enter", Description: "Send"},
		{Key: "Tab", Description: "Hint"},
		{Key: "Ctrl+S", Description: "Skip"},
		{Key: "Esc", Description: "Leave"},
	}
}

func (s *DialogueScreen) narration() bool {
	if s.run == nil {
		return false
	}
	cur, ok := s.run.Current()
	return ok && !cur.MustSpeak()
}

func (s *DialogueScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case runMsg:
		if msg.err != nil {
			s.errMsg = msg.err.Error()
			return s, nil
		}
		s.run = msg.run
		s.busy = false
		s.sync()
		if s.run.Done() {
			return s, s.finish()
		}
		return s, s.save()

	case turnMsg:
		s.busy = false
		if msg.err != nil {
			s.notice = msg.err.Error()
			return s, nil
		}
		s.sync()
		s.hint, s.reason, s.notice = msg.turn.Hint, msg.turn.Reason, ""
		if msg.turn.Skipped && !msg.turn.IsComplete {
			s.notice = "Moving on to the next line."
		}
		if s.run.Done() {
			return s, tea.Batch(s.save(), s.finish())
		}
		return s, s.save()

	case finishedMsg:
		id := s.subSceneID
		out := msg.outcome
		return s, func() tea.Msg { return nav.ShowReviewMsg{SubSceneID: id, Outcome: out} }

	case savedMsg:
		if msg.err != nil {
			s.notice = "Could not save progress: " + msg.err.Error()
		}
		return s, nil

	case tickMsg:
		if !s.busy && s.run != nil && !s.run.Done() && !s.nudged && !s.narration() &&
			s.now().Sub(s.lastSeen) >= IdleAfter {
			s.nudge()
		}
		return s, tick()

	case tea.KeyMsg:
		return s.handleKey(msg)
	}

	if !s.busy {
		var cmd tea.Cmd
		s.input, cmd = s.input.Update(msg)
		return s, cmd
	}
	return s, nil
}

// sync copies the run's history for rendering and resets per-pair state.
func (s *DialogueScreen) sync() {
	h := s.run.History()
	s.lines = append(s.lines[:0], h...)
	s.lastSeen = s.now()
	s.nudged = false
}

func (s *DialogueScreen) handleKey(msg tea.KeyMsg) (screen.Screen, tea.Cmd) {
	if s.errMsg != "" || s.busy || s.run == nil {
		return s, nil
	}
	s.lastSeen = s.now()

	switch msg.String() {
	case "enter":
		if s.narration() {
			return s, s.skip()
		}
		text := strings.TrimSpace(s.input.Value())
		if text == "" {
			return s, nil
		}
		s.input.Reset()
		s.lines = append(s.lines, judge.Line{Role: judge.RoleUser, Text: text})
		s.busy = true
		run := s.run
		return s, func() tea.Msg {
			turn, err := run.Say(context.Background(), text)
			return turnMsg{turn: turn, err: err}
		}
	case "tab":
		s.nudge()
		return s, nil
	case "ctrl+s":
		return s, s.skip()
	}

	var cmd tea.Cmd
	s.input, cmd = s.input.Update(msg)
	return s, cmd
}

// nudge marks the pair hinted and shows the reference translation.
func (s *DialogueScreen) nudge() {
	s.notice = s.run.Nudge()
	s.nudged = true
	if cur, ok := s.run.Current(); ok && len(cur.Responses) > 0 && s.hint == "" {
		s.hint = cur.Responses[0].TextCn
	}
}

func (s *DialogueScreen) skip() tea.Cmd {
	s.busy = true
	run := s.run
	return func() tea.Msg {
		turn, err := run.Skip(context.Background())
		return turnMsg{turn: turn, err: err}
	}
}

func (s *DialogueScreen) save() tea.Cmd {
	snap := s.run.Snapshot(progress.StageDialogue)
	snap.ConversationHistory = append([]judge.Line(nil), snap.ConversationHistory...)
	return func() tea.Msg {
		return savedMsg{err: s.svc.SaveProgress(context.Background(), snap)}
	}
}

func (s *DialogueScreen) finish() tea.Cmd {
	s.busy = true
	s.notice = "Scene complete. Preparing your review..."
	run := s.run
	return func() tea.Msg {
		return finishedMsg{outcome: run.Finish(context.Background())}
	}
}

func (s *DialogueScreen) View(width, height int) string {
	if s.errMsg != "" {
		return lipgloss.NewStyle().Foreground(theme.Error).Render("  " + s.errMsg + "\n\n  Press Esc to go back.")
	}
	if s.run == nil {
		return theme.Hint.Render("  Starting the scene...")
	}

	footer := s.footer()
	room := height - lipgloss.Height(footer) - 2
	if layout.IsCompactHeight(height) {
		room--
	}
	chat := renderLines(s.lines, width-4)
	if n := len(chat); room > 0 && n > room {
		chat = chat[n-room:]
	}
	return "\n" + strings.Join(chat, "\n") + "\n" + footer
}

func (s *DialogueScreen) footer() string {
	var b strings.Builder
	b.WriteString("\n")
	if s.reason != "" {
		b.WriteString("  " + theme.Incorrect.Render(s.reason) + "\n")
	}
	if s.hint != "" {
		b.WriteString("  " + theme.Hint.Render("Hint: "+s.hint) + "\n")
	}
	if s.notice != "" {
		b.WriteString("  " + theme.Hint.Render(s.notice) + "\n")
	}
	switch {
	case s.busy:
		b.WriteString("  " + theme.Hint.Render("..."))
	case s.narration():
		b.WriteString("  " + theme.Hint.Render("Press Enter to continue"))
	default:
		b.WriteString("  " + s.input.View())
	}
	return b.String()
}

func renderLines(lines []judge.Line, width int) []string {
	wrap := lipgloss.NewStyle().Width(max(width-10, 20))
	var out []string
	for _, l := range lines {
		who := theme.SpeakerAI.Render("  AI      ")
		if l.Role == judge.RoleUser {
			who = theme.SpeakerLearner.Render("  You     ")
		}
		text := wrap.Render(l.Text)
		for i, part := range strings.Split(text, "\n") {
			if i == 0 {
				out = append(out, who+part)
			} else {
				out = append(out, "          "+part)
			}
		}
	}
	return out
}
