// Package screen declares what the router needs from a screen, plus the
// optional hooks the app shell looks for.
package screen

import (
	tea "charm.land/bubbletea/v2"

	"github.com/profsim/profsim/internal/ui/layout"
)

// Screen is one page of the app. View renders the body only; the shell draws
// header and footer around it.
type Screen interface {
	Init() tea.Cmd
	Update(msg tea.Msg) (Screen, tea.Cmd)
	View(width, height int) string
	Title() string
}

// KeyHintProvider replaces the default footer hints.
type KeyHintProvider interface {
	KeyHints() []layout.KeyHint
}

// StatusProvider supplies the right side of the header, such as the task
// countdown.
type StatusProvider interface {
	Status() string
}

// Closer is implemented by screens that own background work. The router
// calls Close when the screen leaves the stack.
type Closer interface {
	Close()
}

// Resumer is implemented by screens that reload when the screen above them
// is popped.
type Resumer interface {
	Resume() tea.Cmd
}
