// Package theme holds the terminal palette and shared styles.
package theme

import (
	"charm.land/lipgloss/v2"
)

var (
	Primary   = lipgloss.Color("#38BDF8") // sky
	Secondary = lipgloss.Color("#A78BFA") // lavender
	Accent    = lipgloss.Color("#FBBF24") // amber
	Success   = lipgloss.Color("#4ADE80")
	Error     = lipgloss.Color("#FB7185")
	Text      = lipgloss.Color("#F1F5F9")
	TextDim   = lipgloss.Color("#8B95A7")
	BgCard    = lipgloss.Color("#1C2333")
	Border    = lipgloss.Color("#2F3A4F")
)

var (
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(Primary).
		Align(lipgloss.Center)

	Body = lipgloss.NewStyle().Foreground(Text)

	Hint = lipgloss.NewStyle().
		Foreground(TextDim).
		Italic(true)

	Selected = lipgloss.NewStyle().
			Foreground(Primary).
			Bold(true)

	Correct   = lipgloss.NewStyle().Foreground(Success).Bold(true)
	Incorrect = lipgloss.NewStyle().Foreground(Error).Bold(true)
)

// Chat transcript.
var (
	SpeakerAI      = lipgloss.NewStyle().Foreground(Secondary).Bold(true)
	SpeakerLearner = lipgloss.NewStyle().Foreground(Accent).Bold(true)
	Translation    = lipgloss.NewStyle().Foreground(TextDim)
)

// Bars.
var (
	ProgressFilled = lipgloss.NewStyle().Background(Secondary).Foreground(Text)
	ProgressPassed = lipgloss.NewStyle().Background(Success).Foreground(BgCard)
	ProgressEmpty  = lipgloss.NewStyle().Background(Border).Foreground(TextDim)
)
