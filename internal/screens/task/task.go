package task

import (
	"context"
	"errors"

	"charm.land/bubbles/v2/spinner"
	tea "charm.land/bubbletea/v2"
	"go.uber.org/zap"

	"github.com/profsim/profsim/internal/api"
	"github.com/profsim/profsim/internal/countdown"
	"github.com/profsim/profsim/internal/router"
	"github.com/profsim/profsim/internal/screen"
	"github.com/profsim/profsim/internal/session"
	"github.com/profsim/profsim/internal/ui/components"
	"github.com/profsim/profsim/internal/ui/layout"
)

type phase int

const (
	phaseGenerating phase = iota
	phaseAnswering
	phaseSubmitting
	phaseRecorded
	phaseCompleted
	phaseNoTask
	phaseFailed
)

// Config wires a TaskScreen to the server.
type Config struct {
	Backend    session.Backend
	Profession api.Profession
	Mode       session.Mode
	Recorder   session.Recorder
	Logger     *zap.Logger

	// OpenReport builds the screen shown after the final report arrives.
	OpenReport func(api.Profession) screen.Screen

	// TickInterval overrides the countdown's one-second tick in tests.
	TickInterval countdown.Option
}

// TaskScreen runs one attempt's tasks: it streams the current task in,
// takes an answer and streams the verdict back.
type TaskScreen struct {
	cfg Config
	log *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	events chan tea.Msg
	timer  *countdown.Timer

	// gen identifies the current run; messages from older runs are dropped.
	gen   int
	phase phase
	state session.State

	task      *session.Task
	remaining int
	input     components.TextInput
	spinner   spinner.Model

	report  string
	message string
	err     error
	scroll  int
}

var _ screen.Screen = (*TaskScreen)(nil)
var _ screen.KeyHintProvider = (*TaskScreen)(nil)
var _ screen.StatusProvider = (*TaskScreen)(nil)
var _ screen.Closer = (*TaskScreen)(nil)

// New creates a TaskScreen. Background work stops when the screen is closed.
func New(cfg Config) *TaskScreen {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	s := &TaskScreen{
		cfg:     cfg,
		log:     log.With(zap.Int("profession_id", cfg.Profession.ID)),
		ctx:     ctx,
		cancel:  cancel,
		events:  make(chan tea.Msg, 64),
		spinner: sp,
		input:   components.NewTextInput("Type your answer...", 0),
	}

	opts := []countdown.Option{countdown.WithOnTick(func(remaining int) {
		s.send(tickMsg{remaining: remaining})
	})}
	if cfg.TickInterval != nil {
		opts = append(opts, cfg.TickInterval)
	}
	s.timer = countdown.New(opts...)
	return s
}

func (s *TaskScreen) Init() tea.Cmd {
	return tea.Batch(
		s.spinner.Tick,
		waitForEvent(s.ctx, s.events),
		s.generate(),
	)
}

func (s *TaskScreen) Title() string {
	return s.cfg.Profession.Name
}

// Status shows the countdown while a task is open.
func (s *TaskScreen) Status() string {
	if s.task == nil || (s.phase != phaseAnswering && s.phase != phaseSubmitting) {
		return ""
	}
	if s.remaining <= 0 && !s.timer.Running() {
		return "Time is up"
	}
	return "Time left " + countdown.Format(s.remaining)
}

// Close cancels any run in flight and stops the countdown.
func (s *TaskScreen) Close() {
	s.cancel()
	s.timer.Stop()
}

func (s *TaskScreen) KeyHints() []layout.KeyHint {
	switch s.phase {
	case phaseAnswering:
		return []layout.KeyHint{
			{Key: "Enter", Description: "Submit"},
			{Key: "Esc", Description: "Leave"},
		}
	case phaseRecorded:
		return []layout.KeyHint{
			{Key: "Enter", Description: "Next task"},
			{Key: "Esc", Description: "Leave"},
		}
	case phaseCompleted:
		return []layout.KeyHint{
			{Key: "↑↓", Description: "Scroll"},
			{Key: "Enter", Description: "Attempts"},
			{Key: "Esc", Description: "Leave"},
		}
	case phaseFailed, phaseNoTask:
		return []layout.KeyHint{
			{Key: "R", Description: "Retry"},
			{Key: "Esc", Description: "Leave"},
		}
	}
	return []layout.KeyHint{
		{Key: "Esc", Description: "Cancel"},
	}
}

func (s *TaskScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case stateMsg:
		if msg.gen == s.gen {
			s.state = msg.state
		}
		return s, waitForEvent(s.ctx, s.events)

	case tickMsg:
		s.remaining = msg.remaining
		return s, waitForEvent(s.ctx, s.events)

	case generatedMsg:
		return s.handleGenerated(msg)

	case submittedMsg:
		return s.handleSubmitted(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		s.spinner, cmd = s.spinner.Update(msg)
		return s, cmd

	case tea.KeyMsg:
		return s.handleKey(msg)
	}

	if s.phase == phaseAnswering {
		var cmd tea.Cmd
		s.input, cmd = s.input.Update(msg)
		return s, cmd
	}
	return s, nil
}

// send publishes msg to the screen unless the screen was closed.
func (s *TaskScreen) send(msg tea.Msg) {
	select {
	case s.events <- msg:
	case <-s.ctx.Done():
	}
}

func (s *TaskScreen) options(gen int) session.Options {
	return session.Options{
		Mode:      s.cfg.Mode,
		Countdown: s.timer,
		Recorder:  s.cfg.Recorder,
		Logger:    s.log,
		OnChange: func(st session.State) {
			s.send(stateMsg{gen: gen, state: st})
		},
	}
}

// generate fetches the current task of the attempt.
func (s *TaskScreen) generate() tea.Cmd {
	s.gen++
	gen := s.gen
	s.phase = phaseGenerating
	s.state = session.State{Stage: session.StageConnecting}
	s.task = nil
	s.err = nil
	s.message = ""

	g := session.NewGeneration(s.cfg.Backend, s.cfg.Profession.ID, s.options(gen))
	ctx := s.ctx
	return func() tea.Msg {
		task, err := g.Run(ctx)
		return generatedMsg{gen: gen, task: task, err: err}
	}
}

// submit sends the typed answer for the open task.
func (s *TaskScreen) submit() tea.Cmd {
	s.gen++
	gen := s.gen
	s.phase = phaseSubmitting
	s.state = session.State{Stage: session.StageSubmitting}
	s.err = nil
	s.input.SetDisabled(true)

	sub := session.NewSubmission(s.cfg.Backend, s.cfg.Profession.ID, s.task.ID, s.input.Value(), s.options(gen))
	ctx := s.ctx
	return func() tea.Msg {
		out, err := sub.Run(ctx)
		return submittedMsg{gen: gen, outcome: out, err: err}
	}
}

func (s *TaskScreen) handleGenerated(msg generatedMsg) (screen.Screen, tea.Cmd) {
	if msg.gen != s.gen {
		return s, nil
	}
	if msg.err != nil {
		if errors.Is(msg.err, session.ErrNoTask) {
			s.phase = phaseNoTask
			return s, nil
		}
		s.phase = phaseFailed
		s.err = msg.err
		return s, nil
	}
	return s, s.openTask(msg.task)
}

func (s *TaskScreen) handleSubmitted(msg submittedMsg) (screen.Screen, tea.Cmd) {
	if msg.gen != s.gen {
		return s, nil
	}
	if msg.err != nil {
		// The answer stays editable so it can be sent again.
		s.phase = phaseAnswering
		s.err = msg.err
		s.input.SetDisabled(false)
		return s, nil
	}

	switch msg.outcome.Kind {
	case session.OutcomeNextTask:
		s.message = "Answer accepted."
		return s, s.openTask(msg.outcome.Task)
	case session.OutcomeCompleted:
		s.phase = phaseCompleted
		s.report = msg.outcome.Report
		s.scroll = 0
		return s, s.stopTimer()
	default:
		s.phase = phaseRecorded
		s.message = msg.outcome.Message
		if s.message == "" {
			s.message = "Answer recorded."
		}
		return s, s.stopTimer()
	}
}

func (s *TaskScreen) openTask(t *session.Task) tea.Cmd {
	s.phase = phaseAnswering
	s.task = t
	s.remaining = s.timer.Remaining()
	s.input = components.NewTextInput("Type your answer...", 0)
	return s.input.Init()
}

// stopTimer stops the countdown off the update loop, since Stop waits for
// the tick goroutine and that goroutine may be sending to the screen.
func (s *TaskScreen) stopTimer() tea.Cmd {
	timer := s.timer
	return func() tea.Msg {
		timer.Stop()
		return nil
	}
}

func (s *TaskScreen) handleKey(msg tea.KeyMsg) (screen.Screen, tea.Cmd) {
	key := msg.String()

	switch s.phase {
	case phaseAnswering:
		if key == "enter" {
			if s.input.Blank() {
				s.err = session.ErrEmptyAnswer
				return s, nil
			}
			return s, s.submit()
		}
		var cmd tea.Cmd
		s.input, cmd = s.input.Update(msg)
		return s, cmd

	case phaseRecorded:
		if key == "enter" {
			return s, s.generate()
		}

	case phaseFailed, phaseNoTask:
		if key == "r" || key == "R" {
			return s, s.generate()
		}

	case phaseCompleted:
		switch key {
		case "up", "k":
			if s.scroll > 0 {
				s.scroll--
			}
		case "down", "j":
			s.scroll++
		case "enter":
			if s.cfg.OpenReport != nil {
				next := s.cfg.OpenReport(s.cfg.Profession)
				return s, func() tea.Msg { return router.ReplaceScreenMsg{Screen: next} }
			}
			return s, func() tea.Msg { return router.PopScreenMsg{} }
		}
	}
	return s, nil
}
