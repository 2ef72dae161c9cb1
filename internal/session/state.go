package session

import (
	"context"
	"io"

	"go.uber.org/zap"

	"github.com/profsim/profsim/internal/api"
	"github.com/profsim/profsim/internal/store"
)

// DefaultTimeLimitMinutes is the server's task time limit when a stream
// never announced one.
const DefaultTimeLimitMinutes = 15

// Mode selects how a session talks to the server.
type Mode string

const (
	ModeStream Mode = store.ModeStream
	ModePlain  Mode = store.ModePlain
)

// Task is one generated task. Question grows while the task streams in.
type Task struct {
	ID               int
	Order            int
	Type             string
	TimeLimitMinutes int
	Question         string
}

// State is a snapshot of a running session.
type State struct {
	SessionID string
	Stage     Stage

	// Task is the task being generated, or the next task during a submission.
	Task *Task

	// Report is the final report assembled so far.
	Report string

	// GeneratingReport is set once the server announced the final report.
	GeneratingReport bool
}

// Streamer opens the server's event streams.
type Streamer interface {
	StreamCurrentTask(ctx context.Context, professionID int) (io.ReadCloser, error)
	StreamSubmitAnswer(ctx context.Context, taskID int, answer string) (io.ReadCloser, error)
}

// PlainSource answers the same requests with one JSON document.
type PlainSource interface {
	CurrentTask(ctx context.Context, professionID int) (*api.Task, error)
	SubmitAnswer(ctx context.Context, taskID int, answer string) (*api.SubmitResult, error)
}

// Backend is everything a session needs from the server. *api.Client
// satisfies it.
type Backend interface {
	Streamer
	PlainSource
}

// Countdown is armed with a task's time limit when the task becomes known.
type Countdown interface {
	Arm(ctx context.Context, minutes int)
}

// Recorder persists a summary of each finished session.
type Recorder interface {
	AppendStreamSession(ctx context.Context, data store.StreamSessionData) error
}

// Options configures a session. Every field is optional.
type Options struct {
	Mode Mode

	// Countdown is armed with the context passed to Run, so it stops when
	// that context is cancelled.
	Countdown Countdown
	Recorder  Recorder
	Logger    *zap.Logger

	// OnChange receives a snapshot after every state change, on the
	// goroutine calling Run.
	OnChange func(State)
}

func (o Options) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

func (o Options) mode() Mode {
	if o.Mode == "" {
		return ModeStream
	}
	return o.Mode
}

func (t *Task) clone() *Task {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
