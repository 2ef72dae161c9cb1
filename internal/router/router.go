// Package router keeps the stack of screens the app shell renders. Screens
// navigate by returning the messages below as commands.
package router

import (
	tea "charm.land/bubbletea/v2"

	"github.com/profsim/profsim/internal/screen"
)

type (
	// PushScreenMsg opens Screen on top of the current one.
	PushScreenMsg struct{ Screen screen.Screen }

	// PopScreenMsg goes back one screen.
	PopScreenMsg struct{}

	// ReplaceScreenMsg swaps the current screen for Screen. Used when moving
	// between a task and the attempts view so esc still returns to the
	// dashboard.
	ReplaceScreenMsg struct{ Screen screen.Screen }
)

// Router is a screen stack. The bottom screen is never popped.
type Router struct {
	stack []screen.Screen
}

func New(root screen.Screen) *Router {
	return &Router{stack: []screen.Screen{root}}
}

func (r *Router) Depth() int { return len(r.stack) }

// Active is the screen on top, or nil for an empty router.
func (r *Router) Active() screen.Screen {
	if n := len(r.stack); n > 0 {
		return r.stack[n-1]
	}
	return nil
}

// Push opens s and returns its Init command.
func (r *Router) Push(s screen.Screen) tea.Cmd {
	r.stack = append(r.stack, s)
	return s.Init()
}

// Pop closes the top screen and resumes the one beneath it.
func (r *Router) Pop() tea.Cmd {
	if len(r.stack) < 2 {
		return nil
	}
	release(r.Active())
	r.stack = r.stack[:len(r.stack)-1]

	if s, ok := r.Active().(screen.Resumer); ok {
		return s.Resume()
	}
	return nil
}

// Replace closes the top screen and opens s in its place.
func (r *Router) Replace(s screen.Screen) tea.Cmd {
	top := r.Active()
	if top == nil {
		return r.Push(s)
	}
	release(top)
	r.stack[len(r.stack)-1] = s
	return s.Init()
}

// Close releases every screen, top first. Called once on shutdown.
func (r *Router) Close() {
	for i := len(r.stack) - 1; i >= 0; i-- {
		release(r.stack[i])
	}
}

// Update applies navigation messages and hands everything else to the
// active screen.
func (r *Router) Update(msg tea.Msg) tea.Cmd {
	switch m := msg.(type) {
	case PushScreenMsg:
		return r.Push(m.Screen)
	case PopScreenMsg:
		return r.Pop()
	case ReplaceScreenMsg:
		return r.Replace(m.Screen)
	}

	top := r.Active()
	if top == nil {
		return nil
	}
	next, cmd := top.Update(msg)
	r.stack[len(r.stack)-1] = next
	return cmd
}

func (r *Router) View(width, height int) string {
	if top := r.Active(); top != nil {
		return top.View(width, height)
	}
	return ""
}

func release(s screen.Screen) {
	if c, ok := s.(screen.Closer); ok {
		c.Close()
	}
}
