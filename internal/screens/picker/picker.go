// Package picker lists sub-scenes and starts or resumes one.
package picker

import (
	"context"
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/yuxiji/scenetalk/internal/learning"
	"github.com/yuxiji/scenetalk/internal/progress"
	"github.com/yuxiji/scenetalk/internal/scene"
	"github.com/yuxiji/scenetalk/internal/screen"
	"github.com/yuxiji/scenetalk/internal/screens/nav"
	"github.com/yuxiji/scenetalk/internal/ui/components"
	"github.com/yuxiji/scenetalk/internal/ui/layout"
	"github.com/yuxiji/scenetalk/internal/ui/theme"
)

// Catalog is what the picker reads.
type Catalog interface {
	SubScenes(ctx context.Context, sceneID string) ([]scene.SubScene, error)
	LoadProgress(ctx context.Context, subSceneID string) (*progress.SubSceneProgress, error)
}

var _ Catalog = (*learning.Service)(nil)

type loadedMsg struct {
	subs  []scene.SubScene
	saved map[string]*progress.SubSceneProgress
	err   error
}

// PickerScreen is the root screen.
type PickerScreen struct {
	catalog Catalog
	subs    []scene.SubScene
	saved   map[string]*progress.SubSceneProgress
	menu    components.Menu
	loaded  bool
	errMsg  string
}

var _ screen.Screen = (*PickerScreen)(nil)
var _ screen.KeyHintProvider = (*PickerScreen)(nil)
var _ screen.Refresher = (*PickerScreen)(nil)

func New(catalog Catalog) *PickerScreen {
	return &PickerScreen{catalog: catalog}
}

func (p *PickerScreen) Init() tea.Cmd { return p.load() }

// Refresh reloads saved progress when the learner comes back.
func (p *PickerScreen) Refresh() tea.Cmd { return p.load() }

func (p *PickerScreen) Title() string { return "Scenes" }

func (p *PickerScreen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "↑↓", Description: "Navigate"},
		{Key: "Enter", Description: "Start / resume"},
		{Key: "Ctrl+C", Description: "Quit"},
	}
}

func (p *PickerScreen) load() tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		subs, err := p.catalog.SubScenes(ctx, "")
		if err != nil {
			return loadedMsg{err: err}
		}
		saved := make(map[string]*progress.SubSceneProgress, len(subs))
		for _, s := range subs {
			snap, err := p.catalog.LoadProgress(ctx, s.ID)
			if err != nil {
				return loadedMsg{err: err}
			}
			if snap != nil {
				saved[s.ID] = snap
			}
		}
		return loadedMsg{subs: subs, saved: saved}
	}
}

func (p *PickerScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case loadedMsg:
		p.loaded = true
		if msg.err != nil {
			p.errMsg = msg.err.Error()
			return p, nil
		}
		p.errMsg = ""
		p.subs, p.saved = msg.subs, msg.saved
		selected := p.menu.Selected
		p.menu = components.NewMenu(p.items())
		if selected < len(p.menu.Items) {
			p.menu.Selected = selected
		}
		return p, nil
	}

	var cmd tea.Cmd
	p.menu, cmd = p.menu.Update(msg)
	return p, cmd
}

func (p *PickerScreen) items() []components.MenuItem {
	items := make([]components.MenuItem, 0, len(p.subs))
	for _, s := range p.subs {
		label := s.Name
		if s.NameCn != "" {
			label += "  " + s.NameCn
		}
		items = append(items, components.MenuItem{
			Label:  label,
			Detail: status(p.saved[s.ID]),
			Action: start(s.ID, p.saved[s.ID]),
		})
	}
	return items
}

// start resumes a saved dialogue or practice, otherwise begins practice.
func start(id string, snap *progress.SubSceneProgress) func() tea.Cmd {
	return func() tea.Cmd {
		return func() tea.Msg {
			if snap != nil {
				switch snap.Stage {
				case progress.StageDialogue:
					return nav.StartDialogueMsg{SubSceneID: id, Resume: snap}
				case progress.StagePractice:
					return nav.StartPracticeMsg{SubSceneID: id, From: snap.PracticeIndex}
				}
			}
			return nav.StartPracticeMsg{SubSceneID: id}
		}
	}
}

func status(snap *progress.SubSceneProgress) string {
	if snap == nil {
		return ""
	}
	switch snap.Stage {
	case progress.StagePractice:
		return fmt.Sprintf("practice, question %d", snap.PracticeIndex+1)
	case progress.StageDialogue:
		return fmt.Sprintf("dialogue, turn %d", snap.CurrentQAIndex+1)
	case progress.StageReview, progress.StageDone:
		if snap.FluencyScore != nil {
			return fmt.Sprintf("fluency %d", *snap.FluencyScore)
		}
		return "done"
	}
	return ""
}

func (p *PickerScreen) View(width, height int) string {
	var b strings.Builder
	b.WriteString(theme.Title.Width(width).Render("Pick a scene to practice"))
	b.WriteString("\n\n")

	switch {
	case p.errMsg != "":
		b.WriteString(lipgloss.NewStyle().Foreground(theme.Error).Render("  " + p.errMsg))
	case !p.loaded:
		b.WriteString(theme.Hint.Render("  Loading..."))
	case len(p.subs) == 0:
		b.WriteString(theme.Hint.Render("  No scenes yet. Load some with: scenetalk import <file.yaml>"))
	default:
		b.WriteString(p.menu.View())
	}
	return b.String()
}
