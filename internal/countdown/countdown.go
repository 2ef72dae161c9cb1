// Package countdown implements the per-task remaining-time clock.
package countdown

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// DefaultInterval is the tick period of a Timer.
const DefaultInterval = time.Second

// Timer counts a task's remaining seconds down to zero. At most one countdown
// is live per Timer: Arm replaces the running one. The zero value is not
// usable; construct with New.
type Timer struct {
	interval time.Duration
	onTick   func(remaining int)

	mu        sync.Mutex
	remaining int
	gen       uint64
	cancel    context.CancelFunc
	done      chan struct{}
}

// Option configures a Timer.
type Option func(*Timer)

// WithInterval overrides the tick period. Tests use it to run fast.
func WithInterval(d time.Duration) Option {
	return func(t *Timer) {
		if d > 0 {
			t.interval = d
		}
	}
}

// WithOnTick registers a callback invoked with the new remaining value after
// every tick. It runs on the timer goroutine and must not call Arm or Stop.
func WithOnTick(fn func(remaining int)) Option {
	return func(t *Timer) { t.onTick = fn }
}

// New creates an idle Timer.
func New(opts ...Option) *Timer {
	t := &Timer{interval: DefaultInterval}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Arm starts counting down from minutes*60 seconds, cancelling any countdown
// already running. A non-positive limit leaves the timer stopped at zero.
// The countdown also ends when ctx is cancelled.
func (t *Timer) Arm(ctx context.Context, minutes int) {
	t.Stop()

	seconds := minutes * 60
	if seconds < 0 {
		seconds = 0
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.remaining = seconds
	if seconds == 0 {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	t.cancel = cancel
	t.done = done
	go t.run(runCtx, t.gen, done)
}

// Stop cancels the running countdown. Once Stop returns no further tick
// callback fires. The remaining value is kept.
func (t *Timer) Stop() {
	t.mu.Lock()
	t.gen++
	cancel, done := t.cancel, t.done
	t.cancel, t.done = nil, nil
	t.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// Remaining returns the seconds left on the current countdown.
func (t *Timer) Remaining() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.remaining
}

// Running reports whether a countdown is in progress.
func (t *Timer) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cancel != nil && t.remaining > 0
}

func (t *Timer) run(ctx context.Context, gen uint64, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		t.mu.Lock()
		if t.gen != gen {
			t.mu.Unlock()
			return
		}
		if t.remaining > 0 {
			t.remaining--
		}
		remaining := t.remaining
		t.mu.Unlock()

		if t.onTick != nil {
			t.onTick(remaining)
		}
		if remaining == 0 {
			return
		}
	}
}

// Format renders seconds as m:ss.
func Format(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}
