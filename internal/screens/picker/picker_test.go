package picker

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "charm.land/bubbletea/v2"

	"github.com/yuxiji/scenetalk/internal/progress"
	"github.com/yuxiji/scenetalk/internal/scene"
	"github.com/yuxiji/scenetalk/internal/screens/nav"
)

type fakeCatalog struct {
	subs  []scene.SubScene
	saved map[string]*progress.SubSceneProgress
	err   error
	loads int
}

func (f *fakeCatalog) SubScenes(_ context.Context, _ string) ([]scene.SubScene, error) {
	f.loads++
	return f.subs, f.err
}

func (f *fakeCatalog) LoadProgress(_ context.Context, id string) (*progress.SubSceneProgress, error) {
	return f.saved[id], nil
}

func newCatalog() *fakeCatalog {
	score := 85
	return &fakeCatalog{
		subs: []scene.SubScene{
			{ID: "cafe-order", Name: "Ordering", NameCn: "点单", Order: 1},
			{ID: "cafe-chat", Name: "Small talk", Order: 2},
			{ID: "cafe-pay", Name: "Paying", Order: 3},
		},
		saved: map[string]*progress.SubSceneProgress{
			"cafe-chat": {SubSceneID: "cafe-chat", Stage: progress.StageDialogue, CurrentQAIndex: 2},
			"cafe-pay":  {SubSceneID: "cafe-pay", Stage: progress.StageDone, FluencyScore: &score},
		},
	}
}

func load(t *testing.T, cat Catalog) *PickerScreen {
	t.Helper()
	p := New(cat)
	p.Update(p.Init()())
	return p
}

func enter(p *PickerScreen) tea.Msg {
	_, cmd := p.Update(tea.KeyPressMsg{Code: tea.KeyEnter})
	if cmd == nil {
		return nil
	}
	return cmd()
}

func down(p *PickerScreen) {
	p.Update(tea.KeyPressMsg{Code: tea.KeyDown})
}

func TestPicker_ListsSubScenesWithStatus(t *testing.T) {
	p := load(t, newCatalog())

	if len(p.menu.Items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(p.menu.Items))
	}
	if p.menu.Items[0].Label != "Ordering  点单" {
		t.Fatalf("unexpected label %q", p.menu.Items[0].Label)
	}
	if p.menu.Items[1].Detail != "dialogue, turn 3" {
		t.Fatalf("unexpected detail %q", p.menu.Items[1].Detail)
	}
	if p.menu.Items[2].Detail != "fluency 85" {
		t.Fatalf("unexpected detail %q", p.menu.Items[2].Detail)
	}
}

func TestPicker_StartFreshPractice(t *testing.T) {
	p := load(t, newCatalog())
	msg, ok := enter(p).(nav.StartPracticeMsg)
	if !ok {
		t.Fatal("expected StartPracticeMsg")
	}
	if msg.SubSceneID != "cafe-order" || msg.From != 0 || msg.QAIDs != nil {
		t.Fatalf("unexpected message %+v", msg)
	}
}

func TestPicker_ResumesDialogue(t *testing.T) {
	p := load(t, newCatalog())
	down(p)
	msg, ok := enter(p).(nav.StartDialogueMsg)
	if !ok {
		t.Fatal("expected StartDialogueMsg")
	}
	if msg.Resume == nil || msg.Resume.CurrentQAIndex != 2 {
		t.Fatalf("expected resume snapshot, got %+v", msg.Resume)
	}
}

func TestPicker_ResumesPractice(t *testing.T) {
	cat := newCatalog()
	cat.saved["cafe-order"] = &progress.SubSceneProgress{SubSceneID: "cafe-order", Stage: progress.StagePractice, PracticeIndex: 4}
	p := load(t, cat)
	msg, ok := enter(p).(nav.StartPracticeMsg)
	if !ok {
		t.Fatal("expected StartPracticeMsg")
	}
	if msg.From != 4 {
		t.Fatalf("expected From 4, got %d", msg.From)
	}
}

func TestPicker_FinishedSubSceneStartsOver(t *testing.T) {
	p := load(t, newCatalog())
	down(p)
	down(p)
	msg, ok := enter(p).(nav.StartPracticeMsg)
	if !ok {
		t.Fatal("expected StartPracticeMsg")
	}
	if msg.SubSceneID != "cafe-pay" || msg.From != 0 {
		t.Fatalf("unexpected message %+v", msg)
	}
}

func TestPicker_RefreshKeepsSelection(t *testing.T) {
	cat := newCatalog()
	p := load(t, cat)
	down(p)
	p.Update(p.Refresh()())
	if cat.loads != 2 {
		t.Fatalf("expected 2 loads, got %d", cat.loads)
	}
	if p.menu.Selected != 1 {
		t.Fatalf("expected selection to survive refresh, got %d", p.menu.Selected)
	}
}

func TestPicker_EmptyAndError(t *testing.T) {
	p := load(t, &fakeCatalog{})
	if !strings.Contains(p.View(80, 20), "scenetalk import") {
		t.Fatal("expected import hint for an empty catalog")
	}

	p = load(t, &fakeCatalog{err: errors.New("db locked")})
	if !strings.Contains(p.View(80, 20), "db locked") {
		t.Fatal("expected error to be shown")
	}
}
