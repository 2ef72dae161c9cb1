package attempts

import (
	"context"
	"testing"

	tea "charm.land/bubbletea/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/profsim/profsim/internal/api"
	"github.com/profsim/profsim/internal/router"
	"github.com/profsim/profsim/internal/screen"
)

type fakeBackend struct {
	history  api.AttemptHistory
	details  map[int]api.ProgressAttempt
	restarts int
}

func (f *fakeBackend) ProgressHistory(context.Context, int) (*api.AttemptHistory, error) {
	h := f.history
	return &h, nil
}

func (f *fakeBackend) Attempt(_ context.Context, _ int, n int) (*api.ProgressAttempt, error) {
	if d, ok := f.details[n]; ok {
		return &d, nil
	}
	a, ok := f.history.Attempt(n)
	if !ok {
		return nil, api.ErrNotFound
	}
	return &a, nil
}

func (f *fakeBackend) RestartProfession(_ context.Context, professionID int) (*api.ProgressAttempt, error) {
	f.restarts++
	a := api.ProgressAttempt{ProfessionID: professionID, AttemptNumber: f.history.TotalAttempts + 1, Status: api.StatusInProgress}
	f.history.Attempts = append(f.history.Attempts, a)
	f.history.TotalAttempts++
	return &a, nil
}

type stubScreen struct{}

func (s *stubScreen) Init() tea.Cmd                           { return nil }
func (s *stubScreen) Update(tea.Msg) (screen.Screen, tea.Cmd) { return s, nil }
func (s *stubScreen) View(int, int) string                    { return "" }
func (s *stubScreen) Title() string                           { return "" }

func completed(n int, report string) api.ProgressAttempt {
	return api.ProgressAttempt{ProfessionID: 1, AttemptNumber: n, Status: api.StatusCompleted, FinalReport: report}
}

func history(attempts ...api.ProgressAttempt) api.AttemptHistory {
	return api.AttemptHistory{ProfessionID: 1, TotalAttempts: len(attempts), Attempts: attempts}
}

func key(r rune) tea.KeyPressMsg {
	return tea.KeyPressMsg{Code: r, Text: string(r)}
}

// drive feeds cmd's message back into the screen until no command is left.
func drive(s *AttemptsScreen, cmd tea.Cmd) tea.Msg {
	var last tea.Msg
	for cmd != nil {
		last = cmd()
		_, cmd = s.Update(last)
	}
	return last
}

func loaded(t *testing.T, fb *fakeBackend) *AttemptsScreen {
	t.Helper()
	s := New(fb, api.Profession{ID: 1, Name: "Analyst"}, func(api.Profession) screen.Screen { return &stubScreen{} })
	drive(s, s.Init())
	require.True(t, s.loaded)
	return s
}

func TestAttempts_ShowsLatestReport(t *testing.T) {
	fb := &fakeBackend{history: history(completed(1, "first report"), completed(2, "second report"))}
	s := loaded(t, fb)

	assert.Equal(t, 1, s.selected)
	view := s.View(100, 30)
	assert.Contains(t, view, "second report")
	assert.Contains(t, view, "2 of 3")
}

func TestAttempts_SwitchAttempt(t *testing.T) {
	fb := &fakeBackend{history: history(completed(1, "first report"), completed(2, "second report"))}
	s := loaded(t, fb)

	_, cmd := s.Update(tea.KeyPressMsg{Code: tea.KeyLeft})
	drive(s, cmd)

	assert.Equal(t, 0, s.selected)
	assert.Contains(t, s.View(100, 30), "first report")
}

func TestAttempts_RestartAtLimitRefused(t *testing.T) {
	fb := &fakeBackend{history: history(completed(1, "a"), completed(2, "b"), completed(3, "c"))}
	s := loaded(t, fb)

	_, cmd := s.Update(key('n'))
	assert.Nil(t, cmd)
	assert.False(t, s.confirm)
	assert.Contains(t, s.notice, "All 3 attempts")
	assert.Equal(t, 0, fb.restarts)
}

func TestAttempts_RestartWhileOpenRefused(t *testing.T) {
	open := api.ProgressAttempt{ProfessionID: 1, AttemptNumber: 2, Status: api.StatusInProgress, CurrentTaskOrder: 3}
	fb := &fakeBackend{history: history(completed(1, "a"), open)}
	s := loaded(t, fb)

	_, _ = s.Update(key('n'))
	assert.Contains(t, s.notice, "Finish the current attempt")
	assert.Contains(t, s.View(100, 30), "at task 3")
	assert.Equal(t, 0, fb.restarts)
}

func TestAttempts_RestartConfirmed(t *testing.T) {
	fb := &fakeBackend{history: history(completed(1, "a"))}
	s := loaded(t, fb)

	_, cmd := s.Update(key('n'))
	assert.Nil(t, cmd)
	require.True(t, s.confirm)
	assert.Contains(t, s.View(100, 30), "Start attempt 2 of 3?")

	_, cmd = s.Update(key('y'))
	require.NotNil(t, cmd)
	_, cmd = s.Update(cmd())
	require.NotNil(t, cmd)

	_, ok := cmd().(router.ReplaceScreenMsg)
	assert.True(t, ok)
	assert.Equal(t, 1, fb.restarts)
}

func TestAttempts_RestartDeclined(t *testing.T) {
	fb := &fakeBackend{history: history(completed(1, "a"))}
	s := loaded(t, fb)

	_, _ = s.Update(key('n'))
	_, cmd := s.Update(key('x'))
	assert.Nil(t, cmd)
	assert.False(t, s.confirm)
	assert.Equal(t, 0, fb.restarts)
}

func TestAttempts_ContinueOpenAttempt(t *testing.T) {
	open := api.ProgressAttempt{ProfessionID: 1, AttemptNumber: 1, Status: api.StatusInProgress}
	fb := &fakeBackend{history: history(open)}
	s := loaded(t, fb)

	_, cmd := s.Update(tea.KeyPressMsg{Code: tea.KeyEnter})
	require.NotNil(t, cmd)
	_, ok := cmd().(router.ReplaceScreenMsg)
	assert.True(t, ok)
}

func TestAttempts_Empty(t *testing.T) {
	s := loaded(t, &fakeBackend{})
	assert.Contains(t, s.View(100, 30), "No attempts yet")
}

func TestAttempts_ShowsFetchedReportMissingFromHistory(t *testing.T) {
	summary := api.ProgressAttempt{ProfessionID: 1, AttemptNumber: 1, Status: api.StatusCompleted}
	fb := &fakeBackend{
		history: history(summary),
		details: map[int]api.ProgressAttempt{
			1: {ProfessionID: 1, Status: api.StatusCompleted, FinalReport: "THE REPORT"},
		},
	}
	s := loaded(t, fb)

	view := s.View(100, 30)
	assert.Contains(t, view, "THE REPORT")
	assert.NotContains(t, view, "not available")
}

func TestAttempts_StaleReplyDropped(t *testing.T) {
	fb := &fakeBackend{history: history(completed(1, "first report"), completed(2, "second report"), completed(3, "third report"))}
	s := loaded(t, fb)

	_, toSecond := s.Update(tea.KeyPressMsg{Code: tea.KeyLeft})
	require.NotNil(t, toSecond)
	_, toFirst := s.Update(tea.KeyPressMsg{Code: tea.KeyLeft})
	require.NotNil(t, toFirst)
	require.Equal(t, 0, s.selected)

	s.Update(toSecond())
	assert.True(t, s.loading)
	assert.Contains(t, s.View(100, 30), "Loading report")

	s.Update(toFirst())
	assert.False(t, s.loading)
	assert.Contains(t, s.View(100, 30), "first report")
}

func TestAttempts_ReturnToLatest(t *testing.T) {
	fb := &fakeBackend{history: history(completed(1, "first report"), completed(2, "second report"))}
	s := loaded(t, fb)

	_, cmd := s.Update(tea.KeyPressMsg{Code: tea.KeyLeft})
	drive(s, cmd)
	_, ok := s.tracker.Viewing()
	require.True(t, ok)

	_, cmd = s.Update(key('L'))
	assert.Nil(t, cmd)
	assert.Equal(t, 1, s.selected)
	_, ok = s.tracker.Viewing()
	assert.False(t, ok)
	assert.Contains(t, s.View(100, 30), "second report")
}
