package task

import (
	"context"

	tea "charm.land/bubbletea/v2"

	"github.com/profsim/profsim/internal/session"
)

// stateMsg carries a session snapshot published while a run is in flight.
type stateMsg struct {
	gen   int
	state session.State
}

// tickMsg carries the countdown's remaining seconds.
type tickMsg struct {
	remaining int
}

// generatedMsg is sent when a generation run returns.
type generatedMsg struct {
	gen  int
	task *session.Task
	err  error
}

// submittedMsg is sent when a submission run returns.
type submittedMsg struct {
	gen     int
	outcome *session.Outcome
	err     error
}

// waitForEvent delivers the next message published by a background run or
// the countdown. It returns nil once ctx is done.
func waitForEvent(ctx context.Context, events <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-events:
			return msg
		case <-ctx.Done():
			return nil
		}
	}
}
