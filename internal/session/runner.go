package session

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/profsim/profsim/internal/store"
	"github.com/profsim/profsim/internal/stream"
)

// runner holds what Generation and Submission share: single-use guard,
// published state, terminal bookkeeping and the session log.
type runner struct {
	id      string
	purpose string
	opts    Options
	log     *zap.Logger

	mu    sync.Mutex
	state State
	used  bool

	// Touched only on the Run goroutine.
	terminal     stream.Kind
	protocolErr  *ProtocolError
	stats        stream.Stats
	startedAt    time.Time
	professionID int
	taskID       int
}

func newRunner(purpose string, initial Stage, opts Options) runner {
	id := uuid.NewString()
	return runner{
		id:      id,
		purpose: purpose,
		opts:    opts,
		log:     opts.logger().With(zap.String("session", id), zap.String("purpose", purpose)),
		state:   State{SessionID: id, Stage: initial},
	}
}

// begin marks the session used and publishes the initial state.
func (r *runner) begin() error {
	r.mu.Lock()
	if r.used {
		r.mu.Unlock()
		return ErrSessionUsed
	}
	r.used = true
	r.mu.Unlock()

	r.startedAt = time.Now()
	r.update(func(*State) {})
	return nil
}

// update applies fn to the state and publishes a snapshot.
func (r *runner) update(fn func(*State)) {
	r.mu.Lock()
	fn(&r.state)
	snap := r.state
	snap.Task = r.state.Task.clone()
	r.mu.Unlock()

	if r.opts.OnChange != nil {
		r.opts.OnChange(snap)
	}
}

func (r *runner) snapshot() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	snap := r.state
	snap.Task = r.state.Task.clone()
	return snap
}

// done reports whether a terminal event was already handled. Events after
// the first terminal are dropped.
func (r *runner) done() bool {
	return r.terminal != ""
}

// terminate records the first terminal event and moves to its stage.
func (r *runner) terminate(kind stream.Kind, fn func(*State)) {
	r.terminal = kind
	r.update(func(s *State) {
		fn(s)
		if kind == stream.KindError {
			s.Stage = StageFailed
		} else {
			s.Stage = StageReady
		}
	})
}

// onError is the shared error-event handler.
func (r *runner) onError(e stream.ErrorPayload) {
	if r.done() {
		return
	}
	r.protocolErr = &ProtocolError{Message: e.Message}
	r.log.Warn("stream error event", zap.String("message", e.Message))
	r.terminate(stream.KindError, func(*State) {})
}

// consume runs the body through h until the stream ends.
func (r *runner) consume(ctx context.Context, body io.ReadCloser, h stream.Handlers) error {
	defer body.Close()
	stats, err := stream.Run(ctx, body, h, r.log)
	r.stats = stats
	if err != nil {
		return &TransportError{Err: err}
	}
	return nil
}

// replay feeds synthesized events through h, as plain mode does.
func (r *runner) replay(h stream.Handlers, events ...stream.Event) {
	for _, ev := range events {
		r.stats.Frames++
		if r.stats.Events == nil {
			r.stats.Events = make(map[stream.Kind]int)
		}
		r.stats.Events[ev.Kind]++
		h.Dispatch(ev)
	}
}

// result converts the session's outcome into the error returned by Run.
func (r *runner) result(transportErr error) error {
	if r.protocolErr != nil {
		return r.protocolErr
	}
	// A terminal event settles the session even if the connection
	// failed afterwards.
	if r.done() {
		return nil
	}
	if transportErr != nil {
		return transportErr
	}
	return &TransportError{Err: ErrStreamIncomplete}
}

// fail publishes the failed stage for errors that happen outside the stream.
func (r *runner) fail() {
	r.update(func(s *State) { s.Stage = StageFailed })
}

// record appends the session summary to the log. Failures are logged and
// never affect the session result.
func (r *runner) record(ctx context.Context, runErr error) {
	latency := time.Since(r.startedAt)
	r.log.Info("session finished",
		zap.String("mode", string(r.opts.mode())),
		zap.String("terminal", string(r.terminal)),
		zap.Int("frames", r.stats.Frames),
		zap.Int("decode_errors", r.stats.DecodeErrors),
		zap.Duration("latency", latency),
		zap.Error(runErr),
	)

	if r.opts.Recorder == nil {
		return
	}
	data := store.StreamSessionData{
		SessionID:    r.id,
		Purpose:      r.purpose,
		Mode:         string(r.opts.mode()),
		ProfessionID: r.professionID,
		TaskID:       r.taskID,
		Frames:       r.stats.Frames,
		DecodeErrors: r.stats.DecodeErrors,
		TerminalKind: string(r.terminal),
		LatencyMs:    latency.Milliseconds(),
		Success:      runErr == nil,
	}
	if runErr != nil {
		data.ErrorMessage = runErr.Error()
	}

	// The session context may already be cancelled; the record still goes in.
	recCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := r.opts.Recorder.AppendStreamSession(recCtx, data); err != nil {
		r.log.Warn("failed to record stream session", zap.Error(err))
	}
}

// armCountdown starts the task clock when one is configured.
func (r *runner) armCountdown(ctx context.Context, minutes int) {
	if r.opts.Countdown != nil {
		r.opts.Countdown.Arm(ctx, minutes)
	}
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
