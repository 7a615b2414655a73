package components

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/yuxiji/scenetalk/internal/ui/theme"
)

// ProgressBar is a horizontal bar. Percent is in [0, 1]. When Mark is set
// (0 < Mark < 1) a tick is drawn at that fraction and the fill turns green
// once it is reached.
type ProgressBar struct {
	Label       string
	Percent     float64
	Mark        float64
	ShowPercent bool
	Width       int
}

func NewProgressBar(label string, percent float64, showPercent bool, width int) ProgressBar {
	return ProgressBar{
		Label:       label,
		Percent:     clamp01(percent),
		ShowPercent: showPercent,
		Width:       width,
	}
}

// WithMark returns a copy of the bar with a threshold tick at mark.
func (p ProgressBar) WithMark(mark float64) ProgressBar {
	p.Mark = clamp01(mark)
	return p
}

func (p ProgressBar) View() string {
	var b strings.Builder
	if p.Label != "" {
		b.WriteString(theme.Body.Render(p.Label) + "  ")
	}

	used := lipgloss.Width(b.String())
	if p.ShowPercent {
		used += 6
	}
	width := max(p.Width-used, 4)

	filled := int(float64(width) * p.Percent)
	tick := -1
	if p.Mark > 0 && p.Mark < 1 {
		tick = int(float64(width) * p.Mark)
	}

	fill := theme.ProgressFilled
	if tick >= 0 && p.Percent >= p.Mark {
		fill = theme.ProgressPassed
	}
	for i := 0; i < width; i++ {
		cell := " "
		if i == tick {
			cell = "│"
		}
		if i < filled {
			b.WriteString(fill.Render(cell))
		} else {
			b.WriteString(theme.ProgressEmpty.Render(cell))
		}
	}

	if p.ShowPercent {
		b.WriteString(theme.Translation.Render(fmt.Sprintf("  %d%%", int(p.Percent*100+0.5))))
	}
	return b.String()
}

func clamp01(f float64) float64 {
	return min(max(f, 0), 1)
}
