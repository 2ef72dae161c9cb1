package components

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/profsim/profsim/internal/ui/theme"
)

// ProgressBar displays a loading stage: a message above a horizontal bar,
// with an optional step caption and percentage.
type ProgressBar struct {
	Message string
	Caption string
	Percent int // 0..100
	Failed  bool
	Width   int
}

// View renders the progress bar.
func (p ProgressBar) View() string {
	var b strings.Builder

	if p.Message != "" {
		fg := theme.Text
		if p.Failed {
			fg = theme.Error
		}
		b.WriteString(lipgloss.NewStyle().Foreground(fg).Bold(true).Render(p.Message))
		b.WriteString("\n")
	}

	percentLabel := fmt.Sprintf("  %3d%%", clampPercent(p.Percent))
	barWidth := p.Width - lipgloss.Width(percentLabel)
	if barWidth < 4 {
		barWidth = 4
	}

	filled := barWidth * clampPercent(p.Percent) / 100
	fill := theme.ProgressFilled
	if p.Failed {
		fill = theme.ProgressFailed
		filled = barWidth
	}

	b.WriteString(fill.Render(strings.Repeat(" ", filled)))
	b.WriteString(theme.ProgressEmpty.Render(strings.Repeat(" ", barWidth-filled)))
	b.WriteString(lipgloss.NewStyle().Foreground(theme.TextDim).Render(percentLabel))

	if p.Caption != "" {
		b.WriteString("\n")
		b.WriteString(theme.Hint.Render(p.Caption))
	}
	return b.String()
}

func clampPercent(p int) int {
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	}
	return p
}
