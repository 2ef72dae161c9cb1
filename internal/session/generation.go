package session

import (
	"context"
	"errors"
	"strings"

	"github.com/profsim/profsim/internal/api"
	"github.com/profsim/profsim/internal/store"
	"github.com/profsim/profsim/internal/stream"
)

// Generation fetches the current task of a profession and assembles its
// question as it streams in. A Generation is single-use.
type Generation struct {
	runner
	backend      Backend
	professionID int

	metadataSeen bool
	text         strings.Builder
}

// NewGeneration creates a session for the current task of professionID.
func NewGeneration(backend Backend, professionID int, opts Options) *Generation {
	g := &Generation{
		runner:       newRunner(store.PurposeTaskGen, StageConnecting, opts),
		backend:      backend,
		professionID: professionID,
	}
	g.runner.professionID = professionID
	return g
}

// ID returns the session's unique id.
func (g *Generation) ID() string { return g.id }

// State returns a snapshot of the session.
func (g *Generation) State() State { return g.snapshot() }

// Run opens the stream (or plain request) and blocks until the task is
// complete. It returns ErrNoTask when the server has nothing to serve,
// *ProtocolError for an error event and *TransportError for connection
// failures.
func (g *Generation) Run(ctx context.Context) (*Task, error) {
	if err := g.begin(); err != nil {
		return nil, err
	}

	h := g.handlers(ctx)
	var err error
	if g.opts.mode() == ModePlain {
		err = g.runPlain(ctx, h)
	} else {
		err = g.runStream(ctx, h)
	}

	err = g.result(err)
	if err != nil && !g.done() && !isContextErr(err) {
		g.fail()
	}
	g.record(ctx, err)
	if err != nil {
		return nil, err
	}
	return g.snapshot().Task, nil
}

func (g *Generation) runStream(ctx context.Context, h stream.Handlers) error {
	body, err := g.backend.StreamCurrentTask(ctx, g.professionID)
	if err != nil {
		return openError(err)
	}
	return g.consume(ctx, body, h)
}

func (g *Generation) runPlain(ctx context.Context, h stream.Handlers) error {
	t, err := g.backend.CurrentTask(ctx, g.professionID)
	if err != nil {
		return openError(err)
	}
	g.replay(h,
		stream.Event{Kind: stream.KindMetadata, Metadata: &stream.Metadata{
			ID:               t.ID,
			Order:            t.Order,
			TaskType:         t.Type,
			TimeLimitMinutes: t.TimeLimitMinutes,
		}},
		stream.Event{Kind: stream.KindDone, Done: &stream.Done{FullText: t.Question, TaskID: t.ID}},
	)
	return nil
}

func openError(err error) error {
	if errors.Is(err, api.ErrNotFound) {
		return ErrNoTask
	}
	return &TransportError{Err: err}
}

func (g *Generation) handlers(ctx context.Context) stream.Handlers {
	return stream.Handlers{
		OnMetadata: func(m stream.Metadata) {
			if g.done() {
				return
			}
			g.metadataSeen = true
			g.taskID = m.ID
			g.update(func(s *State) {
				s.Task = &Task{
					ID:               m.ID,
					Order:            m.Order,
					Type:             m.TaskType,
					TimeLimitMinutes: m.TimeLimitMinutes,
				}
				s.Stage = StageGenerating
			})
			g.armCountdown(ctx, m.TimeLimitMinutes)
			g.update(func(s *State) { s.Stage = StageFinalizing })
		},
		OnToken: func(tok string) {
			if g.done() {
				return
			}
			g.text.WriteString(tok)
			text := g.text.String()
			g.update(func(s *State) {
				if s.Task == nil {
					s.Task = &Task{}
				}
				s.Task.Question = text
				if s.Stage == StageConnecting {
					s.Stage = StageGenerating
				}
			})
		},
		OnDone: func(d stream.Done) {
			if g.done() {
				return
			}
			if g.taskID == 0 {
				g.taskID = d.TaskID
			}
			g.terminate(stream.KindDone, func(s *State) {
				if s.Task == nil {
					s.Task = &Task{}
				}
				s.Task.Question = d.FullText
				if s.Task.ID == 0 {
					s.Task.ID = d.TaskID
				}
				if !g.metadataSeen {
					s.Task.TimeLimitMinutes = DefaultTimeLimitMinutes
				}
			})
			if !g.metadataSeen {
				g.armCountdown(ctx, DefaultTimeLimitMinutes)
			}
		},
		OnError: g.onError,
	}
}
