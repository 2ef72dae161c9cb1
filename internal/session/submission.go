package session

import (
	"context"
	"strings"

	"github.com/profsim/profsim/internal/store"
	"github.com/profsim/profsim/internal/stream"
)

// OutcomeKind tells which way a submission ended.
type OutcomeKind int

const (
	OutcomeNextTask  OutcomeKind = iota // The next task was generated
	OutcomeCompleted                    // The simulation finished with a final report
	OutcomeRecorded                     // The answer was stored; re-fetch current state
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeNextTask:
		return "next-task"
	case OutcomeCompleted:
		return "completed"
	case OutcomeRecorded:
		return "recorded"
	}
	return "unknown"
}

// Outcome is the result of a submission.
type Outcome struct {
	Kind    OutcomeKind
	Task    *Task  // OutcomeNextTask
	Report  string // OutcomeCompleted
	Message string // OutcomeRecorded
}

// Submission submits one answer and assembles either the next task or the
// final report. A Submission is single-use.
type Submission struct {
	runner
	backend Backend
	answer  string

	metadataSeen bool
	question     strings.Builder
	report       strings.Builder
	outcome      Outcome
}

// NewSubmission creates a session submitting answer for taskID.
// professionID is only used for the session log.
func NewSubmission(backend Backend, professionID, taskID int, answer string, opts Options) *Submission {
	sub := &Submission{
		runner:  newRunner(store.PurposeSubmit, StageSubmitting, opts),
		backend: backend,
		answer:  answer,
	}
	sub.runner.professionID = professionID
	sub.runner.taskID = taskID
	return sub
}

// ID returns the session's unique id.
func (sub *Submission) ID() string { return sub.id }

// State returns a snapshot of the session.
func (sub *Submission) State() State { return sub.snapshot() }

// Run submits the answer and blocks until a terminal event. A blank answer
// is refused with ErrEmptyAnswer before any request. Failures are never
// retried.
func (sub *Submission) Run(ctx context.Context) (*Outcome, error) {
	if strings.TrimSpace(sub.answer) == "" {
		return nil, ErrEmptyAnswer
	}
	if err := sub.begin(); err != nil {
		return nil, err
	}

	h := sub.handlers(ctx)
	var err error
	if sub.opts.mode() == ModePlain {
		err = sub.runPlain(ctx, h)
	} else {
		err = sub.runStream(ctx, h)
	}

	err = sub.result(err)
	if err != nil && !sub.done() && !isContextErr(err) {
		sub.fail()
	}
	sub.record(ctx, err)
	if err != nil {
		return nil, err
	}
	out := sub.outcome
	return &out, nil
}

func (sub *Submission) runStream(ctx context.Context, h stream.Handlers) error {
	body, err := sub.backend.StreamSubmitAnswer(ctx, sub.taskID, sub.answer)
	if err != nil {
		return &TransportError{Err: err}
	}
	sub.update(func(s *State) { s.Stage = StageAnalyzing })
	return sub.consume(ctx, body, h)
}

func (sub *Submission) runPlain(ctx context.Context, h stream.Handlers) error {
	res, err := sub.backend.SubmitAnswer(ctx, sub.taskID, sub.answer)
	if err != nil {
		return &TransportError{Err: err}
	}
	sub.update(func(s *State) { s.Stage = StageAnalyzing })

	completed := res.Completed
	switch {
	case completed:
		sub.replay(h,
			stream.Event{Kind: stream.KindMetadata, Metadata: &stream.Metadata{Completed: &completed, GeneratingReport: true}},
			stream.Event{Kind: stream.KindCompleted, Completed: &stream.Completed{FinalReport: res.FinalReport}},
		)
	case res.NextTask != nil:
		t := res.NextTask
		sub.replay(h,
			stream.Event{Kind: stream.KindMetadata, Metadata: &stream.Metadata{
				ID:               t.ID,
				Order:            t.Order,
				TaskType:         t.Type,
				TimeLimitMinutes: t.TimeLimitMinutes,
				Completed:        &completed,
			}},
			stream.Event{Kind: stream.KindDone, Done: &stream.Done{FullText: t.Question, TaskID: t.ID, Completed: &completed}},
		)
	default:
		sub.replay(h,
			stream.Event{Kind: stream.KindDone, Done: &stream.Done{Message: res.Message, Completed: &completed}},
		)
	}
	return nil
}

func (sub *Submission) handlers(ctx context.Context) stream.Handlers {
	return stream.Handlers{
		OnMetadata: func(m stream.Metadata) {
			if sub.done() {
				return
			}
			if m.Completed != nil && *m.Completed {
				// A final report is coming; the stage stays at analyzing.
				sub.update(func(s *State) { s.GeneratingReport = true })
				return
			}
			sub.metadataSeen = true
			sub.update(func(s *State) {
				s.Task = &Task{
					ID:               m.ID,
					Order:            m.Order,
					Type:             m.TaskType,
					TimeLimitMinutes: m.TimeLimitMinutes,
				}
				s.Stage = StageProcessing
			})
			sub.armCountdown(ctx, m.TimeLimitMinutes)
		},
		OnToken: func(tok string) {
			if sub.done() {
				return
			}
			sub.question.WriteString(tok)
			text := sub.question.String()
			sub.update(func(s *State) {
				if s.Task == nil {
					s.Task = &Task{}
				}
				s.Task.Question = text
				s.Stage = StageProcessing
			})
		},
		OnReportToken: func(tok string) {
			if sub.done() {
				return
			}
			sub.report.WriteString(tok)
			report := sub.report.String()
			sub.update(func(s *State) {
				s.Report = report
				s.GeneratingReport = true
			})
		},
		OnCompleted: func(c stream.Completed) {
			if sub.done() {
				return
			}
			sub.outcome = Outcome{Kind: OutcomeCompleted, Report: c.FinalReport}
			sub.terminate(stream.KindCompleted, func(s *State) {
				s.Report = c.FinalReport
				s.GeneratingReport = true
			})
		},
		OnDone: func(d stream.Done) {
			if sub.done() {
				return
			}
			if d.FullText == "" && d.TaskID == 0 {
				sub.outcome = Outcome{Kind: OutcomeRecorded, Message: d.Message}
				sub.terminate(stream.KindDone, func(*State) {})
				return
			}

			sub.terminate(stream.KindDone, func(s *State) {
				if s.Task == nil {
					s.Task = &Task{}
				}
				s.Task.Question = d.FullText
				if s.Task.ID == 0 {
					s.Task.ID = d.TaskID
				}
				if !sub.metadataSeen {
					s.Task.TimeLimitMinutes = DefaultTimeLimitMinutes
				}
			})
			if !sub.metadataSeen {
				sub.armCountdown(ctx, DefaultTimeLimitMinutes)
			}
			sub.outcome = Outcome{Kind: OutcomeNextTask, Task: sub.snapshot().Task}
		},
		OnError: sub.onError,
	}
}
