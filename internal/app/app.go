package app

import (
	"context"
	"errors"
	"fmt"
	"os"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"go.uber.org/zap"

	"github.com/profsim/profsim/internal/api"
	"github.com/profsim/profsim/internal/progress"
	"github.com/profsim/profsim/internal/router"
	"github.com/profsim/profsim/internal/screen"
	"github.com/profsim/profsim/internal/screens/attempts"
	"github.com/profsim/profsim/internal/screens/dashboard"
	"github.com/profsim/profsim/internal/screens/task"
	"github.com/profsim/profsim/internal/session"
	"github.com/profsim/profsim/internal/ui/layout"
)

// Backend is everything the interactive screens need from the server.
type Backend interface {
	dashboard.Source
	progress.Backend
	session.Backend
}

// ErrSessionExpired is returned by Run when the server rejected the
// credential while the program was running.
var ErrSessionExpired = errors.New("session expired")

// SessionExpiredMsg ends the program after the credential was rejected.
type SessionExpiredMsg struct{}

// Invalidator notifies listeners when the credential is rejected.
// *auth.Session implements it.
type Invalidator interface {
	OnInvalidate(fn func())
}

// Options holds the dependencies of the interactive program.
type Options struct {
	Backend  Backend
	Mode     session.Mode
	Recorder session.Recorder
	Logger   *zap.Logger

	// Auth, when set, ends the program once the server answers 401.
	Auth Invalidator

	// Profession, when set, skips the dashboard and opens its task screen
	// on top of it.
	Profession *api.Profession
}

// AppModel is the root Bubble Tea model.
type AppModel struct {
	router  *router.Router
	init    tea.Cmd
	width   int
	height  int
	expired bool
}

// newAppModel creates a new AppModel with the dashboard as the root screen.
func newAppModel(opts Options) AppModel {
	var openTask, openAttempts dashboard.Opener

	openAttempts = func(p api.Profession) screen.Screen {
		return attempts.New(opts.Backend, p, openTask)
	}
	openTask = func(p api.Profession) screen.Screen {
		return task.New(task.Config{
			Backend:    opts.Backend,
			Profession: p,
			Mode:       opts.Mode,
			Recorder:   opts.Recorder,
			Logger:     opts.Logger,
			OpenReport: openAttempts,
		})
	}

	root := dashboard.New(opts.Backend, openTask, openAttempts)
	m := AppModel{router: router.New(root)}
	if opts.Profession != nil {
		// The dashboard loads when the task screen is popped.
		m.init = m.router.Push(openTask(*opts.Profession))
	} else {
		m.init = root.Init()
	}
	return m
}

func (m AppModel) Init() tea.Cmd {
	return m.init
}

func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case SessionExpiredMsg:
		m.expired = true
		m.router.Close()
		return m, tea.Quit

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.router.Close()
			return m, tea.Quit
		case "esc":
			if m.router.Depth() > 1 {
				return m, func() tea.Msg { return router.PopScreenMsg{} }
			}
			return m, nil
		}
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
	title, status := "", ""
	if active != nil {
		title = active.Title()
		if sp, ok := active.(screen.StatusProvider); ok {
			status = sp.Status()
		}
	}

	header := layout.RenderHeader(title, status, m.width)
	footer := layout.RenderFooter(m.footerHints(active), m.width)

	contentHeight := max(m.height-lipgloss.Height(header)-lipgloss.Height(footer), 0)
	content := m.router.View(m.width, contentHeight)

	v.SetContent(layout.RenderFrame(header, content, footer, m.width, m.height))
	return v
}

func (m AppModel) footerHints(active screen.Screen) []layout.KeyHint {
	if p, ok := active.(screen.KeyHintProvider); ok {
		return p.KeyHints()
	}
	if m.router.Depth() > 1 {
		return []layout.KeyHint{
			{Key: "Esc", Description: "Back"},
			{Key: "Ctrl+C", Description: "Quit"},
		}
	}
	return []layout.KeyHint{
		{Key: "↑↓", Description: "Navigate"},
		{Key: "Enter", Description: "Select"},
		{Key: "Ctrl+C", Description: "Quit"},
	}
}

// Run starts the Bubble Tea program and blocks until it exits or ctx is
// cancelled. It returns ErrSessionExpired when the program ended because the
// credential was rejected.
func Run(ctx context.Context, opts Options) error {
	return runProgram(ctx, opts)
}

func runProgram(ctx context.Context, opts Options, extra ...tea.ProgramOption) error {
	m := newAppModel(opts)
	defer m.router.Close()

	p := tea.NewProgram(m, append([]tea.ProgramOption{tea.WithContext(ctx)}, extra...)...)
	if opts.Auth != nil {
		opts.Auth.OnInvalidate(func() { p.Send(SessionExpiredMsg{}) })
	}

	final, err := p.Run()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error running program:", err)
		return err
	}
	if fm, ok := final.(AppModel); ok && fm.expired {
		return ErrSessionExpired
	}
	return nil
}
