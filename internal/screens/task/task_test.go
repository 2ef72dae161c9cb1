package task

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/profsim/profsim/internal/api"
	"github.com/profsim/profsim/internal/countdown"
	"github.com/profsim/profsim/internal/router"
	"github.com/profsim/profsim/internal/screen"
	"github.com/profsim/profsim/internal/session"
)

type fakeBackend struct {
	stream    string
	streamErr error

	streamCalls int
	gotAnswer   string
}

func (f *fakeBackend) open() (io.ReadCloser, error) {
	f.streamCalls++
	if f.streamErr != nil {
		return nil, f.streamErr
	}
	return io.NopCloser(strings.NewReader(f.stream)), nil
}

func (f *fakeBackend) StreamCurrentTask(context.Context, int) (io.ReadCloser, error) {
	return f.open()
}

func (f *fakeBackend) StreamSubmitAnswer(_ context.Context, _ int, answer string) (io.ReadCloser, error) {
	f.gotAnswer = answer
	return f.open()
}

func (f *fakeBackend) CurrentTask(context.Context, int) (*api.Task, error) {
	return nil, errors.New("plain mode not used")
}

func (f *fakeBackend) SubmitAnswer(context.Context, int, string) (*api.SubmitResult, error) {
	return nil, errors.New("plain mode not used")
}

func frames(payloads ...string) string {
	var b strings.Builder
	for _, p := range payloads {
		b.WriteString("data: " + p + "\n\n")
	}
	return b.String()
}

var firstTask = frames(
	`{"kind":"metadata","id":11,"order":1,"task_type":"analysis","time_limit_minutes":5}`,
	`{"kind":"token","token":"A"}`,
	`{"kind":"token","token":"B"}`,
	`{"kind":"token","token":"C"}`,
	`{"kind":"done","full_text":"ABC","task_id":11}`,
)

func keyPress(r rune) tea.KeyPressMsg {
	return tea.KeyPressMsg{Code: r, Text: string(r)}
}

func specialKey(code rune) tea.KeyPressMsg {
	return tea.KeyPressMsg{Code: code}
}

func newTestScreen(t *testing.T, fb *fakeBackend, openReport func(api.Profession) screen.Screen) *TaskScreen {
	t.Helper()
	s := New(Config{
		Backend:      fb,
		Profession:   api.Profession{ID: 1, Name: "Analyst"},
		OpenReport:   openReport,
		TickInterval: countdown.WithInterval(time.Hour),
	})
	t.Cleanup(s.Close)
	return s
}

// run executes cmd and feeds its message back into the screen.
func run(t *testing.T, s *TaskScreen, cmd tea.Cmd) {
	t.Helper()
	require.NotNil(t, cmd)
	_, _ = s.Update(cmd())
}

func startTask(t *testing.T, s *TaskScreen) {
	t.Helper()
	run(t, s, s.generate())
	require.Equal(t, phaseAnswering, s.phase)
}

func TestTaskScreen_GenerateShowsTaskAndCountdown(t *testing.T) {
	fb := &fakeBackend{stream: firstTask}
	s := newTestScreen(t, fb, nil)

	startTask(t, s)

	require.NotNil(t, s.task)
	assert.Equal(t, 11, s.task.ID)
	assert.Equal(t, "ABC", s.task.Question)
	assert.Equal(t, 300, s.remaining)
	assert.Equal(t, "Time left 5:00", s.Status())
	assert.Equal(t, "Analyst", s.Title())

	view := s.View(100, 30)
	assert.Contains(t, view, "ABC")
	assert.Contains(t, view, "Task 1")
	assert.Contains(t, view, "5:00")
}

func TestTaskScreen_SubmitOpensNextTask(t *testing.T) {
	fb := &fakeBackend{stream: firstTask}
	s := newTestScreen(t, fb, nil)
	startTask(t, s)

	fb.stream = frames(
		`{"kind":"metadata","id":12,"order":2,"task_type":"case","time_limit_minutes":10,"completed":false}`,
		`{"kind":"token","token":"Next"}`,
		`{"kind":"done","full_text":"Next question","task_id":12}`,
	)
	s.input.Model.SetValue("my answer")

	_, cmd := s.Update(specialKey(tea.KeyEnter))
	assert.Equal(t, phaseSubmitting, s.phase)
	assert.True(t, s.input.Disabled())

	run(t, s, cmd)

	assert.Equal(t, "my answer", fb.gotAnswer)
	assert.Equal(t, phaseAnswering, s.phase)
	require.NotNil(t, s.task)
	assert.Equal(t, 12, s.task.ID)
	assert.Equal(t, "Next question", s.task.Question)
	assert.Equal(t, "Answer accepted.", s.message)
	assert.Equal(t, 600, s.remaining)
	assert.Empty(t, s.input.Value(), "the next task starts with an empty answer")
}

func TestTaskScreen_FinalReport(t *testing.T) {
	fb := &fakeBackend{stream: firstTask}
	opened := false
	s := newTestScreen(t, fb, func(api.Profession) screen.Screen {
		opened = true
		return nil
	})
	startTask(t, s)

	fb.stream = frames(
		`{"kind":"metadata","completed":true,"generating_report":true}`,
		`{"kind":"report_token","token":"FULL "}`,
		`{"kind":"report_token","token":"REPORT"}`,
		`{"kind":"completed","final_report":"FULL REPORT"}`,
	)
	s.input.Model.SetValue("last answer")
	_, cmd := s.Update(specialKey(tea.KeyEnter))
	run(t, s, cmd)

	assert.Equal(t, phaseCompleted, s.phase)
	assert.Equal(t, "FULL REPORT", s.report)
	assert.Empty(t, s.Status())
	assert.Contains(t, s.View(100, 30), "FULL REPORT")

	_, cmd = s.Update(specialKey(tea.KeyEnter))
	require.NotNil(t, cmd)
	_, ok := cmd().(router.ReplaceScreenMsg)
	assert.True(t, ok)
	assert.True(t, opened)
}

func TestTaskScreen_RecordedAnswerLoadsNextTask(t *testing.T) {
	fb := &fakeBackend{stream: firstTask}
	s := newTestScreen(t, fb, nil)
	startTask(t, s)

	fb.stream = frames(`{"kind":"done","message":"Answer saved"}`)
	s.input.Model.SetValue("answer")
	_, cmd := s.Update(specialKey(tea.KeyEnter))
	run(t, s, cmd)

	assert.Equal(t, phaseRecorded, s.phase)
	assert.Equal(t, "Answer saved", s.message)

	fb.stream = firstTask
	_, cmd = s.Update(specialKey(tea.KeyEnter))
	assert.Equal(t, phaseGenerating, s.phase)
	run(t, s, cmd)
	assert.Equal(t, phaseAnswering, s.phase)
}

func TestTaskScreen_BlankAnswerNotSubmitted(t *testing.T) {
	fb := &fakeBackend{stream: firstTask}
	s := newTestScreen(t, fb, nil)
	startTask(t, s)
	calls := fb.streamCalls

	s.input.Model.SetValue("   ")
	_, cmd := s.Update(specialKey(tea.KeyEnter))

	assert.Nil(t, cmd)
	assert.ErrorIs(t, s.err, session.ErrEmptyAnswer)
	assert.Equal(t, phaseAnswering, s.phase)
	assert.Equal(t, calls, fb.streamCalls)
}

func TestTaskScreen_SubmitFailureKeepsAnswer(t *testing.T) {
	fb := &fakeBackend{stream: firstTask}
	s := newTestScreen(t, fb, nil)
	startTask(t, s)

	fb.streamErr = errors.New("connection refused")
	s.input.Model.SetValue("keep me")
	_, cmd := s.Update(specialKey(tea.KeyEnter))
	run(t, s, cmd)

	assert.Equal(t, phaseAnswering, s.phase)
	assert.Error(t, s.err)
	assert.False(t, s.input.Disabled())
	assert.Equal(t, "keep me", s.input.Value())
}

func TestTaskScreen_NoTaskThenRetry(t *testing.T) {
	fb := &fakeBackend{streamErr: &api.StatusError{Method: "GET", Path: "/x", Code: 404, Detail: "No more tasks"}}
	s := newTestScreen(t, fb, nil)

	run(t, s, s.generate())
	assert.Equal(t, phaseNoTask, s.phase)
	assert.Contains(t, s.View(100, 30), "no more tasks")

	fb.streamErr = nil
	fb.stream = firstTask
	_, cmd := s.Update(keyPress('r'))
	run(t, s, cmd)
	assert.Equal(t, phaseAnswering, s.phase)
}

func TestTaskScreen_FailureShowsError(t *testing.T) {
	fb := &fakeBackend{stream: frames(`{"kind":"error","message":"generator crashed"}`)}
	s := newTestScreen(t, fb, nil)

	run(t, s, s.generate())

	assert.Equal(t, phaseFailed, s.phase)
	assert.Error(t, s.err)
	assert.Contains(t, s.View(100, 30), "Press R")
}

func TestTaskScreen_StaleMessagesIgnored(t *testing.T) {
	fb := &fakeBackend{stream: firstTask}
	s := newTestScreen(t, fb, nil)
	startTask(t, s)

	_, _ = s.Update(generatedMsg{gen: 0, err: errors.New("late failure")})
	assert.Equal(t, phaseAnswering, s.phase)
	assert.NoError(t, s.err)

	before := s.state
	_, cmd := s.Update(stateMsg{gen: 0, state: session.State{Stage: session.StageFailed}})
	assert.Equal(t, before, s.state)
	assert.NotNil(t, cmd, "the event pump keeps running")
}

func TestTaskScreen_TickUpdatesStatus(t *testing.T) {
	fb := &fakeBackend{stream: firstTask}
	s := newTestScreen(t, fb, nil)
	startTask(t, s)

	_, _ = s.Update(tickMsg{remaining: 59})
	assert.Equal(t, "Time left 0:59", s.Status())
}

func TestTaskScreen_CloseStopsEventPump(t *testing.T) {
	fb := &fakeBackend{stream: firstTask}
	s := newTestScreen(t, fb, nil)

	s.Close()
	assert.Nil(t, waitForEvent(s.ctx, s.events)())
}

func TestTaskScreen_KeyHints(t *testing.T) {
	fb := &fakeBackend{stream: firstTask}
	s := newTestScreen(t, fb, nil)
	startTask(t, s)

	hints := s.KeyHints()
	require.NotEmpty(t, hints)
	assert.Equal(t, "Submit", hints[0].Description)
}
