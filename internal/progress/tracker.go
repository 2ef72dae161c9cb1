package progress

import (
	"context"
	"fmt"
	"sync"

	"github.com/profsim/profsim/internal/api"
)

// Backend is the part of the API the tracker uses. *api.Client satisfies it.
type Backend interface {
	ProgressHistory(ctx context.Context, professionID int) (*api.AttemptHistory, error)
	Attempt(ctx context.Context, professionID, n int) (*api.ProgressAttempt, error)
	RestartProfession(ctx context.Context, professionID int) (*api.ProgressAttempt, error)
}

// Tracker follows the attempts of one profession. It keeps a "viewing"
// pointer so a past attempt's report can be shown without losing the latest.
type Tracker struct {
	backend      Backend
	professionID int

	mu      sync.Mutex
	history api.AttemptHistory
	loaded  bool
	viewing *api.ProgressAttempt
}

// NewTracker creates a Tracker for professionID.
func NewTracker(backend Backend, professionID int) *Tracker {
	return &Tracker{backend: backend, professionID: professionID}
}

// Refresh reloads the attempt history.
func (t *Tracker) Refresh(ctx context.Context) error {
	h, err := t.backend.ProgressHistory(ctx, t.professionID)
	if err != nil {
		return fmt.Errorf("refresh history: %w", err)
	}
	t.mu.Lock()
	t.history = *h
	t.loaded = true
	t.mu.Unlock()
	return nil
}

// History returns the last loaded history.
func (t *Tracker) History() api.AttemptHistory {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.history
}

// Latest returns the highest-numbered attempt.
func (t *Tracker) Latest() (api.ProgressAttempt, bool) {
	return t.History().Latest()
}

// ViewAttempt fetches attempt n with its final report and points the viewer
// at it.
func (t *Tracker) ViewAttempt(ctx context.Context, n int) (*api.ProgressAttempt, error) {
	a, err := t.backend.Attempt(ctx, t.professionID, n)
	if err != nil {
		return nil, fmt.Errorf("view attempt %d: %w", n, err)
	}
	t.mu.Lock()
	t.viewing = a
	t.mu.Unlock()
	return a, nil
}

// Viewing returns the attempt being viewed, if it is not the latest view.
func (t *Tracker) Viewing() (api.ProgressAttempt, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.viewing == nil {
		return api.ProgressAttempt{}, false
	}
	return *t.viewing, true
}

// ReturnToLatest clears the viewing pointer.
func (t *Tracker) ReturnToLatest() {
	t.mu.Lock()
	t.viewing = nil
	t.mu.Unlock()
}

// Restart starts a new attempt. It is refused without a backend call when the
// attempt limit is reached (ErrAttemptLimit) or the latest attempt is still
// open (ErrNotCompleted).
func (t *Tracker) Restart(ctx context.Context) (*api.ProgressAttempt, error) {
	t.mu.Lock()
	loaded := t.loaded
	t.mu.Unlock()
	if !loaded {
		if err := t.Refresh(ctx); err != nil {
			return nil, err
		}
	}

	h := t.History()
	if !CanRestart(h) {
		return nil, ErrAttemptLimit
	}
	if latest, ok := h.Latest(); !ok || latest.Status != api.StatusCompleted {
		return nil, ErrNotCompleted
	}

	a, err := t.backend.RestartProfession(ctx, t.professionID)
	if err != nil {
		return nil, fmt.Errorf("restart: %w", err)
	}

	t.ReturnToLatest()
	if err := t.Refresh(ctx); err != nil {
		return a, err
	}
	return a, nil
}
