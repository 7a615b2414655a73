// Package app wires the learning screens into a Bubble Tea program.
package app

import (
	"fmt"
	"os"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/sirupsen/logrus"

	"github.com/yuxiji/scenetalk/internal/learning"
	"github.com/yuxiji/scenetalk/internal/router"
	"github.com/yuxiji/scenetalk/internal/screen"
	"github.com/yuxiji/scenetalk/internal/screens/dialogue"
	"github.com/yuxiji/scenetalk/internal/screens/nav"
	"github.com/yuxiji/scenetalk/internal/screens/picker"
	"github.com/yuxiji/scenetalk/internal/screens/practice"
	"github.com/yuxiji/scenetalk/internal/screens/review"
	"github.com/yuxiji/scenetalk/internal/ui/layout"
)

// Options configures the TUI.
type Options struct {
	Service *learning.Service
	// SubSceneID starts practice for that sub-scene straight away.
	SubSceneID string
	Log        *logrus.Logger
}

// Services is everything the screens need from the learning layer.
type Services interface {
	picker.Catalog
	practice.Service
	dialogue.Service
	review.Saver
}

var _ Services = (*learning.Service)(nil)

// AppModel is the root Bubble Tea model.
type AppModel struct {
	svc    Services
	router *router.Router
	start  string
	log    *logrus.Logger
	width  int
	height int
}

// newAppModel creates a new AppModel with the sub-scene picker as root.
func newAppModel(svc Services, start string, log *logrus.Logger) AppModel {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return AppModel{
		svc:    svc,
		router: router.New(picker.New(svc)),
		start:  start,
		log:    log,
	}
}

func (m AppModel) Init() tea.Cmd {
	cmds := []tea.Cmd{m.router.Active().Init()}
	if m.start != "" {
		id := m.start
		cmds = append(cmds, func() tea.Msg { return nav.StartPracticeMsg{SubSceneID: id} })
	}
	return tea.Batch(cmds...)
}

// open shows s above the picker, replacing whatever flow screen is there.
func (m AppModel) open(s screen.Screen) tea.Cmd {
	if m.router.Depth() > 1 {
		return m.router.Update(router.ReplaceScreenMsg{Screen: s})
	}
	return m.router.Update(router.PushScreenMsg{Screen: s})
}

func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "esc":
			if m.router.Depth() > 1 {
				return m, func() tea.Msg { return router.PopToRootMsg{} }
			}
			return m, nil
		}

	case nav.StartPracticeMsg:
		m.log.WithFields(logrus.Fields{"sub_scene_id": msg.SubSceneID, "qa_ids": msg.QAIDs}).Debug("open practice")
		return m, m.open(practice.New(m.svc, msg.SubSceneID, msg.QAIDs, msg.From))

	case nav.StartDialogueMsg:
		m.log.WithFields(logrus.Fields{"sub_scene_id": msg.SubSceneID, "resume": msg.Resume != nil}).Debug("open dialogue")
		return m, m.open(dialogue.New(m.svc, msg.SubSceneID, msg.Resume))

	case nav.ShowReviewMsg:
		m.log.WithFields(logrus.Fields{
			"sub_scene_id": msg.SubSceneID,
			"score":        msg.Outcome.Report.Score,
			"branch":       msg.Outcome.Report.Branch,
		}).Info("run finished")
		return m, m.open(review.New(m.svc, msg.SubSceneID, msg.Outcome))
	}

	cmd := m.router.Update(msg)
	return m, cmd
}

func (m AppModel) View() tea.View {
	v := tea.NewView("")
	v.AltScreen = true

	if m.width == 0 || m.height == 0 {
		return v
	}

	if layout.IsTooSmall(m.width, m.height) {
		v.SetContent(layout.RenderMinSizeMessage(m.width, m.height))
		return v
	}

	active := m.router.Active()
	title := ""
	if active != nil {
		title = active.Title()
	}

	status := ""
	if sp, ok := active.(screen.StatusProvider); ok {
		status = sp.Status()
	}
	header := layout.RenderHeader(title, status, m.width)

	var footerHints []layout.KeyHint
	if p, ok := active.(screen.KeyHintProvider); ok {
		footerHints = p.KeyHints()
	}
	if m.router.Depth() > 1 {
		footerHints = append(footerHints, layout.KeyHint{Key: "Esc", Description: "Scenes"})
	}
	footerHints = append(footerHints, layout.KeyHint{Key: "Ctrl+C", Description: "Quit"})

	footer := layout.RenderFooter(footerHints, m.width)

	headerHeight := lipgloss.Height(header)
	footerHeight := lipgloss.Height(footer)
	contentHeight := m.height - headerHeight - footerHeight
	if contentHeight < 0 {
		contentHeight = 0
	}

	content := m.router.View(m.width, contentHeight)
	frame := layout.RenderFrame(header, content, footer, m.width, m.height)

	v.SetContent(frame)
	return v
}

// Run starts the Bubble Tea program.
func Run(opts Options) error {
	p := tea.NewProgram(newAppModel(opts.Service, opts.SubSceneID, opts.Log))
	_, err := p.Run()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error running program:", err)
		return err
	}
	return nil
}
