package layout

import (
	"fmt"
	"image/color"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/profsim/profsim/internal/ui/theme"
)

// Smallest terminal the shell renders into. A task with its answer box and
// the stage bar needs roughly this much room.
const (
	MinWidth  = 80
	MinHeight = 24

	// CompactHeightThreshold is the height below which screens drop rules
	// and spacing lines.
	CompactHeightThreshold = 30
)

// KeyHint is one "key description" pair in the footer.
type KeyHint struct {
	Key         string
	Description string
}

func IsCompactHeight(height int) bool { return height < CompactHeightThreshold }

func IsTooSmall(width, height int) bool {
	return width < MinWidth || height < MinHeight
}

// RenderMinSizeMessage fills the terminal with a resize request.
func RenderMinSizeMessage(width, height int) string {
	lines := []string{
		lipgloss.NewStyle().Foreground(theme.Accent).Bold(true).Render("Window too small for ProfSim"),
		"",
		fmt.Sprintf("Needs %d×%d, have %d×%d.", MinWidth, MinHeight, width, height),
	}
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center,
		lipgloss.NewStyle().Foreground(theme.Text).Align(lipgloss.Center).Render(strings.Join(lines, "\n")))
}

// bar is the boxed style shared by header and footer.
func bar(width int) lipgloss.Style {
	return lipgloss.NewStyle().
		Width(width).
		Padding(0, 1).
		Background(theme.BgCard).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(theme.Border)
}

// RenderHeader draws the brand on the left, title in the middle and status
// (sign-in state or the task countdown) on the right.
func RenderHeader(title, status string, width int) string {
	brand := lipgloss.NewStyle().Foreground(theme.Primary).Bold(true).Render("ProfSim")
	right := lipgloss.NewStyle().Foreground(theme.Accent).Render(status)

	inner := max(width-4, 0)
	side := max(lipgloss.Width(brand), lipgloss.Width(right))
	middle := max(inner-2*side, 0)

	row := lipgloss.JoinHorizontal(lipgloss.Top,
		lipgloss.PlaceHorizontal(side, lipgloss.Left, brand),
		lipgloss.PlaceHorizontal(middle, lipgloss.Center,
			lipgloss.NewStyle().Foreground(theme.Text).Render(title)),
		lipgloss.PlaceHorizontal(side, lipgloss.Right, right),
	)
	return bar(width).Render(row)
}

// RenderFooter lays the hints out on one line separated by dots.
func RenderFooter(hints []KeyHint, width int) string {
	key := lipgloss.NewStyle().Foreground(theme.Text).Bold(true)
	desc := lipgloss.NewStyle().Foreground(theme.TextDim)
	sep := desc.Render("  ·  ")

	var b strings.Builder
	for i, h := range hints {
		if i > 0 {
			b.WriteString(sep)
		}
		b.WriteString(key.Render(h.Key))
		b.WriteByte(' ')
		b.WriteString(desc.Render(h.Description))
	}
	return bar(width).Render(b.String())
}

// RenderFrame stacks header, body and footer, giving the body whatever
// height is left.
func RenderFrame(header, content, footer string, width, height int) string {
	rest := max(height-lipgloss.Height(header)-lipgloss.Height(footer), 0)
	body := lipgloss.NewStyle().Width(width).Height(rest).Render(content)
	return lipgloss.JoinVertical(lipgloss.Left, header, body, footer)
}

// Rule is a dim horizontal separator.
func Rule(width int) string {
	return lipgloss.NewStyle().Foreground(theme.Border).Render(strings.Repeat("─", max(width, 0)))
}

// Centered renders text in fg, centered across width.
func Centered(width int, fg color.Color, text string) string {
	return lipgloss.NewStyle().Width(width).Align(lipgloss.Center).Foreground(fg).Render(text)
}
