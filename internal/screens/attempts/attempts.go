package attempts

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/profsim/profsim/internal/api"
	"github.com/profsim/profsim/internal/progress"
	"github.com/profsim/profsim/internal/router"
	"github.com/profsim/profsim/internal/screen"
	"github.com/profsim/profsim/internal/ui/layout"
	"github.com/profsim/profsim/internal/ui/theme"
)

type historyLoadedMsg struct {
	err error
}

type attemptLoadedMsg struct {
	n       int
	attempt *api.ProgressAttempt
	err     error
}

type restartedMsg struct {
	err error
}

// AttemptsScreen lists the attempts of one profession and shows the final
// report of the selected one. A new attempt can be started from here.
type AttemptsScreen struct {
	profession api.Profession
	tracker    *progress.Tracker
	openTask   func(api.Profession) screen.Screen

	history  api.AttemptHistory
	fetched  map[int]api.ProgressAttempt
	selected int
	loaded   bool
	loading  bool
	errMsg   string
	notice   string
	confirm  bool
	scroll   int
}

var _ screen.Screen = (*AttemptsScreen)(nil)
var _ screen.KeyHintProvider = (*AttemptsScreen)(nil)

// New creates an AttemptsScreen. openTask is used to continue an open
// attempt or to enter a freshly restarted one.
func New(backend progress.Backend, profession api.Profession, openTask func(api.Profession) screen.Screen) *AttemptsScreen {
	return &AttemptsScreen{
		profession: profession,
		tracker:    progress.NewTracker(backend, profession.ID),
		openTask:   openTask,
		fetched:    make(map[int]api.ProgressAttempt),
	}
}

func (s *AttemptsScreen) Init() tea.Cmd {
	return s.refresh()
}

func (s *AttemptsScreen) Title() string {
	return s.profession.Name + " · Attempts"
}

func (s *AttemptsScreen) KeyHints() []layout.KeyHint {
	if s.confirm {
		return []layout.KeyHint{
			{Key: "Y", Description: "Start new attempt"},
			{Key: "N", Description: "Cancel"},
		}
	}
	hints := []layout.KeyHint{
		{Key: "←→", Description: "Attempt"},
		{Key: "↑↓", Description: "Scroll"},
		{Key: "L", Description: "Latest"},
	}
	if a, ok := s.current(); ok && a.Status != api.StatusCompleted {
		hints = append(hints, layout.KeyHint{Key: "Enter", Description: "Continue"})
	}
	if progress.CanRestart(s.history) {
		hints = append(hints, layout.KeyHint{Key: "N", Description: "New attempt"})
	}
	return append(hints, layout.KeyHint{Key: "Esc", Description: "Back"})
}

func (s *AttemptsScreen) refresh() tea.Cmd {
	tracker := s.tracker
	return func() tea.Msg {
		return historyLoadedMsg{err: tracker.Refresh(context.Background())}
	}
}

func (s *AttemptsScreen) view(n int) tea.Cmd {
	tracker := s.tracker
	s.loading = true
	return func() tea.Msg {
		a, err := tracker.ViewAttempt(context.Background(), n)
		return attemptLoadedMsg{n: n, attempt: a, err: err}
	}
}

func (s *AttemptsScreen) restart() tea.Cmd {
	tracker := s.tracker
	return func() tea.Msg {
		_, err := tracker.Restart(context.Background())
		return restartedMsg{err: err}
	}
}

// current returns the selected attempt, preferring its fetched copy.
func (s *AttemptsScreen) current() (api.ProgressAttempt, bool) {
	if s.selected < 0 || s.selected >= len(s.history.Attempts) {
		return api.ProgressAttempt{}, false
	}
	a := s.history.Attempts[s.selected]
	if v, ok := s.fetched[a.AttemptNumber]; ok {
		return v, true
	}
	return a, true
}

func (s *AttemptsScreen) selectedNumber() int {
	if s.selected < 0 || s.selected >= len(s.history.Attempts) {
		return 0
	}
	return s.history.Attempts[s.selected].AttemptNumber
}

// choose selects attempt i and fetches it unless a copy is already held.
func (s *AttemptsScreen) choose(i int) tea.Cmd {
	s.selected = i
	s.scroll = 0
	n := s.history.Attempts[i].AttemptNumber
	if _, ok := s.fetched[n]; ok {
		s.loading = false
		return nil
	}
	return s.view(n)
}

// latest drops back from a past attempt to the newest one.
func (s *AttemptsScreen) latest() tea.Cmd {
	s.tracker.ReturnToLatest()
	if len(s.history.Attempts) == 0 {
		return nil
	}
	return s.choose(len(s.history.Attempts) - 1)
}

func (s *AttemptsScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case historyLoadedMsg:
		s.loaded = true
		if msg.err != nil {
			s.errMsg = msg.err.Error()
			return s, nil
		}
		s.history = s.tracker.History()
		clear(s.fetched)
		if len(s.history.Attempts) == 0 {
			return s, nil
		}
		active, _ := progress.ActiveAttempt(s.history.Attempts)
		return s, s.choose(s.indexOf(active.AttemptNumber))

	case attemptLoadedMsg:
		if msg.n != s.selectedNumber() {
			return s, nil
		}
		s.loading = false
		if msg.err != nil {
			s.notice = msg.err.Error()
			return s, nil
		}
		s.fetched[msg.n] = *msg.attempt
		return s, nil

	case restartedMsg:
		if msg.err != nil {
			s.notice = restartNotice(msg.err)
			return s, nil
		}
		if s.openTask != nil {
			next := s.openTask(s.profession)
			return s, func() tea.Msg { return router.ReplaceScreenMsg{Screen: next} }
		}
		return s, s.refresh()

	case tea.KeyMsg:
		return s.handleKey(msg)
	}
	return s, nil
}

func (s *AttemptsScreen) handleKey(msg tea.KeyMsg) (screen.Screen, tea.Cmd) {
	key := msg.String()

	if s.confirm {
		s.confirm = false
		if key == "y" || key == "Y" {
			return s, s.restart()
		}
		return s, nil
	}

	switch key {
	case "left", "h":
		if s.selected > 0 {
			return s, s.choose(s.selected - 1)
		}
	case "right", "l":
		if s.selected < len(s.history.Attempts)-1 {
			return s, s.choose(s.selected + 1)
		}
	case "L", "end":
		return s, s.latest()
	case "up", "k":
		if s.scroll > 0 {
			s.scroll--
		}
	case "down", "j":
		s.scroll++
	case "enter":
		if a, ok := s.current(); ok && a.Status != api.StatusCompleted && s.openTask != nil {
			next := s.openTask(s.profession)
			return s, func() tea.Msg { return router.ReplaceScreenMsg{Screen: next} }
		}
	case "n", "N":
		s.notice = ""
		if !progress.CanRestart(s.history) {
			s.notice = restartNotice(progress.ErrAttemptLimit)
			return s, nil
		}
		if latest, ok := s.history.Latest(); ok && latest.Status != api.StatusCompleted {
			s.notice = restartNotice(progress.ErrNotCompleted)
			return s, nil
		}
		s.confirm = true
	}
	return s, nil
}

func restartNotice(err error) string {
	switch {
	case errors.Is(err, progress.ErrAttemptLimit):
		return fmt.Sprintf("All %d attempts have been used.", progress.MaxAttempts)
	case errors.Is(err, progress.ErrNotCompleted):
		return "Finish the current attempt before starting a new one."
	}
	return err.Error()
}

func (s *AttemptsScreen) indexOf(n int) int {
	for i, a := range s.history.Attempts {
		if a.AttemptNumber == n {
			return i
		}
	}
	return 0
}

func (s *AttemptsScreen) View(width, height int) string {
	if s.errMsg != "" {
		return "\n\n" + layout.Centered(width, theme.Error, "Error: "+s.errMsg)
	}
	if !s.loaded {
		return "\n\n" + layout.Centered(width, theme.TextDim, "Loading attempts...")
	}
	if len(s.history.Attempts) == 0 {
		return "\n\n" + layout.Centered(width, theme.TextDim, "No attempts yet. Start the simulation from the dashboard.")
	}

	var b strings.Builder
	b.WriteString(s.renderTabs())
	b.WriteString("\n")
	b.WriteString("  " + layout.Rule(width-4))
	b.WriteString("\n")

	used := 2
	if s.notice != "" {
		b.WriteString(lipgloss.NewStyle().Foreground(theme.Accent).Render("  " + s.notice))
		b.WriteString("\n")
		used++
	}
	if s.confirm {
		b.WriteString(lipgloss.NewStyle().Foreground(theme.Text).Bold(true).Render(
			fmt.Sprintf("  Start attempt %d of %d? [Y/N]", s.history.TotalAttempts+1, progress.MaxAttempts)))
		b.WriteString("\n")
		used++
	}

	a, _ := s.current()
	b.WriteString(s.renderAttempt(a, width-4, height-used))
	return b.String()
}

func (s *AttemptsScreen) renderTabs() string {
	var tabs []string
	for i, a := range s.history.Attempts {
		label := fmt.Sprintf(" %d of %d · %s ", a.AttemptNumber, progress.MaxAttempts, progress.StatusText(a.Status))
		style := lipgloss.NewStyle().Foreground(theme.StatusColor(string(a.Status)))
		if i == s.selected {
			style = style.Bold(true).Reverse(true)
		}
		tabs = append(tabs, style.Render(label))
	}
	return "  " + strings.Join(tabs, " ")
}

func (s *AttemptsScreen) renderAttempt(a api.ProgressAttempt, width, height int) string {
	var b strings.Builder
	dim := lipgloss.NewStyle().Foreground(theme.TextDim)

	if a.StartedAt != nil {
		b.WriteString(dim.Render("  Started " + a.StartedAt.Format("Jan 02, 2006 15:04")))
		if a.CompletedAt != nil {
			b.WriteString(dim.Render(" · completed " + a.CompletedAt.Format("Jan 02, 2006 15:04")))
		}
		b.WriteString("\n")
		height--
	}

	switch {
	case s.loading:
		b.WriteString(dim.Render("  Loading report..."))
	case a.Status != api.StatusCompleted:
		b.WriteString(dim.Render(fmt.Sprintf("  In progress, at task %d. Press Enter to continue.", a.CurrentTaskOrder)))
	case a.FinalReport == "":
		b.WriteString(dim.Render("  The report for this attempt is not available."))
	default:
		lines := strings.Split(lipgloss.NewStyle().Width(max(width, 10)).Render(a.FinalReport), "\n")
		visible := max(height-1, 1)
		s.scroll = min(s.scroll, max(len(lines)-visible, 0))
		end := min(s.scroll+visible, len(lines))
		for _, l := range lines[s.scroll:end] {
			b.WriteString("  " + l + "\n")
		}
	}
	return b.String()
}
