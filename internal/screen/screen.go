// Package screen defines what the router stacks.
package screen

import (
	tea "charm.land/bubbletea/v2"

	"github.com/yuxiji/scenetalk/internal/ui/layout"
)

// Screen is one page of the terminal UI. View renders only the body; the
// app draws the header and footer around it.
type Screen interface {
	Init() tea.Cmd
	Update(msg tea.Msg) (Screen, tea.Cmd)
	View(width, height int) string
	Title() string
}

// KeyHintProvider screens put their own bindings in the footer.
type KeyHintProvider interface {
	KeyHints() []layout.KeyHint
}

// StatusProvider screens fill the right side of the header.
type StatusProvider interface {
	Status() string
}

// Refresher is implemented by screens that reload when they become the
// top of the stack again.
type Refresher interface {
	Refresh() tea.Cmd
}
