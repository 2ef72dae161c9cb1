package dashboard

import (
	"context"
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/profsim/profsim/internal/api"
	"github.com/profsim/profsim/internal/progress"
	"github.com/profsim/profsim/internal/router"
	"github.com/profsim/profsim/internal/screen"
	"github.com/profsim/profsim/internal/ui/components"
	"github.com/profsim/profsim/internal/ui/layout"
	"github.com/profsim/profsim/internal/ui/theme"
)

// Source lists professions and the user's attempts.
type Source interface {
	Professions(ctx context.Context) ([]api.Profession, error)
	UserProgress(ctx context.Context) ([]api.ProgressAttempt, error)
}

// Opener builds the screen for one profession.
type Opener func(api.Profession) screen.Screen

type loadedMsg struct {
	entries []progress.Entry
	err     error
}

// DashboardScreen lists every profession with its status and the action
// it offers.
type DashboardScreen struct {
	src          Source
	openTask     Opener
	openAttempts Opener

	entries []progress.Entry
	menu    components.Menu
	loaded  bool
	errMsg  string
}

var _ screen.Screen = (*DashboardScreen)(nil)
var _ screen.KeyHintProvider = (*DashboardScreen)(nil)
var _ screen.Resumer = (*DashboardScreen)(nil)

// New creates a DashboardScreen. openTask runs a profession's current
// attempt; openAttempts shows its attempts and reports.
func New(src Source, openTask, openAttempts Opener) *DashboardScreen {
	return &DashboardScreen{
		src:          src,
		openTask:     openTask,
		openAttempts: openAttempts,
	}
}

func (d *DashboardScreen) Init() tea.Cmd {
	return d.load()
}

// Resume reloads progress when returning from a profession.
func (d *DashboardScreen) Resume() tea.Cmd {
	return d.load()
}

func (d *DashboardScreen) Title() string {
	return "Professions"
}

func (d *DashboardScreen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "↑↓", Description: "Navigate"},
		{Key: "Enter", Description: "Open"},
		{Key: "A", Description: "Attempts"},
		{Key: "R", Description: "Refresh"},
		{Key: "Ctrl+C", Description: "Quit"},
	}
}

func (d *DashboardScreen) load() tea.Cmd {
	src := d.src
	return func() tea.Msg {
		ctx := context.Background()

		professions, err := src.Professions(ctx)
		if err != nil {
			return loadedMsg{err: err}
		}
		attempts, err := src.UserProgress(ctx)
		if err != nil {
			return loadedMsg{err: err}
		}
		return loadedMsg{entries: progress.Summary(professions, attempts)}
	}
}

func (d *DashboardScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case loadedMsg:
		d.loaded = true
		if msg.err != nil {
			d.errMsg = msg.err.Error()
			return d, nil
		}
		d.errMsg = ""
		d.entries = msg.entries
		d.menu.SetItems(d.items())
		return d, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "r", "R":
			return d, d.load()
		case "a", "A":
			if e, ok := d.selected(); ok {
				return d, push(d.openAttempts(e.Profession))
			}
			return d, nil
		}
	}

	var cmd tea.Cmd
	d.menu, cmd = d.menu.Update(msg)
	return d, cmd
}

func (d *DashboardScreen) selected() (progress.Entry, bool) {
	if d.menu.Selected < 0 || d.menu.Selected >= len(d.entries) {
		return progress.Entry{}, false
	}
	return d.entries[d.menu.Selected], true
}

func (d *DashboardScreen) items() []components.MenuItem {
	items := make([]components.MenuItem, 0, len(d.entries))
	for _, e := range d.entries {
		p := e.Profession
		open := d.openTask
		if e.Action == progress.ActionViewReport {
			open = d.openAttempts
		}
		items = append(items, components.MenuItem{
			Label:  p.Name,
			Detail: detail(e),
			Action: func() tea.Cmd { return push(open(p)) },
		})
	}
	return items
}

func detail(e progress.Entry) string {
	parts := []string{progress.StatusText(e.Status)}
	if label := e.AttemptLabel(); label != "" {
		parts = append(parts, "attempt "+label)
	}
	parts = append(parts, e.Action.String())
	return strings.Join(parts, " · ")
}

func push(s screen.Screen) tea.Cmd {
	return func() tea.Msg { return router.PushScreenMsg{Screen: s} }
}

func (d *DashboardScreen) View(width, height int) string {
	if d.errMsg != "" {
		return "\n\n" +
			layout.Centered(width, theme.Error, "Error: "+d.errMsg) + "\n\n" +
			layout.Centered(width, theme.TextDim, "Press R to retry.")
	}
	if !d.loaded {
		return "\n\n" + layout.Centered(width, theme.TextDim, "Loading professions...")
	}
	if len(d.entries) == 0 {
		return "\n\n" + layout.Centered(width, theme.TextDim, "No professions are available yet.")
	}

	labelWidth := 0
	for _, e := range d.entries {
		labelWidth = max(labelWidth, lipgloss.Width(e.Profession.Name))
	}

	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(d.menu.View(labelWidth))

	if e, ok := d.selected(); ok && !layout.IsCompactHeight(height+6) {
		b.WriteString("\n")
		b.WriteString("  " + layout.Rule(width-4))
		b.WriteString("\n")
		b.WriteString(renderProfession(e.Profession, width-4))
	}
	return b.String()
}

func renderProfession(p api.Profession, width int) string {
	var b strings.Builder
	b.WriteString(theme.Title.Render("  " + p.Name))
	if tags := p.Tags(); len(tags) > 0 {
		b.WriteString(lipgloss.NewStyle().Foreground(theme.TextDim).Render("  " + strings.Join(tags, ", ")))
	}
	b.WriteString("\n")
	if p.Description != "" {
		desc := lipgloss.NewStyle().Width(max(width, 10)).Foreground(theme.Text).Render(p.Description)
		for _, line := range strings.Split(desc, "\n") {
			b.WriteString("  " + line + "\n")
		}
	}
	if p.Price > 0 {
		b.WriteString(lipgloss.NewStyle().Foreground(theme.TextDim).Render(fmt.Sprintf("  Price: %.2f", p.Price)))
		b.WriteString("\n")
	}
	return b.String()
}
