package cmd

import (
	"bytes"
	"context"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/profsim/profsim/internal/session"
	"github.com/profsim/profsim/internal/store"
)

func TestParseID(t *testing.T) {
	id, err := parseID("task ID", "42")
	require.NoError(t, err)
	assert.Equal(t, 42, id)

	for _, bad := range []string{"", "x", "0", "-3"} {
		_, err := parseID("task ID", bad)
		assert.Error(t, err, bad)
	}
}

func TestStreamPrinter_WritesDeltas(t *testing.T) {
	var out, status bytes.Buffer
	p := newStreamPrinter(&out, &status)

	p.onChange(session.State{Stage: session.StageConnecting})
	p.onChange(session.State{Stage: session.StageGenerating, Task: &session.Task{ID: 11, Order: 1, Type: "analysis", TimeLimitMinutes: 5}})
	p.onChange(session.State{Stage: session.StageFinalizing, Task: &session.Task{ID: 11, Order: 1, Question: "A"}})
	p.onChange(session.State{Stage: session.StageFinalizing, Task: &session.Task{ID: 11, Order: 1, Question: "AB"}})
	p.onChange(session.State{Stage: session.StageReady, Task: &session.Task{ID: 11, Order: 1, Question: "ABC"}})
	p.finish()

	assert.Contains(t, out.String(), "Task 1 · analysis · 5 min (task ID 11)")
	assert.Contains(t, out.String(), "ABC\n")
	assert.NotContains(t, out.String(), "AAB")

	assert.Contains(t, status.String(), "Step 1 of 3")
	assert.Contains(t, status.String(), "Step 3 of 3")
	assert.NotContains(t, status.String(), "Ready")
}

func TestStreamPrinter_ReplacedTextPrintedWhole(t *testing.T) {
	var out bytes.Buffer
	p := newStreamPrinter(&out, &bytes.Buffer{})

	p.onChange(session.State{Stage: session.StageFinalizing, Task: &session.Task{ID: 1, Question: "draft"}})
	p.onChange(session.State{Stage: session.StageReady, Task: &session.Task{ID: 1, Question: "final text"}})

	assert.Contains(t, out.String(), "draft\nfinal text")
}

func TestStreamPrinter_Report(t *testing.T) {
	var out bytes.Buffer
	p := newStreamPrinter(&out, &bytes.Buffer{})

	p.onChange(session.State{Stage: session.StageAnalyzing, GeneratingReport: true})
	p.onChange(session.State{Stage: session.StageAnalyzing, Report: "FULL "})
	p.onChange(session.State{Stage: session.StageReady, Report: "FULL REPORT"})

	assert.Contains(t, out.String(), "Final report")
	assert.Contains(t, out.String(), "FULL REPORT")
}

func TestEventsCommands(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("XDG_DATA_HOME", dir)
	dbPath := filepath.Join(dir, "events.db")

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	repo := st.EventRepo()
	ctx := context.Background()
	require.NoError(t, repo.AppendStreamSession(ctx, store.StreamSessionData{
		SessionID: "s-1", Purpose: store.PurposeTaskGen, Mode: store.ModeStream,
		ProfessionID: 1, TaskID: 11, Frames: 5, TerminalKind: "done", LatencyMs: 120, Success: true,
	}))
	require.NoError(t, repo.AppendStreamSession(ctx, store.StreamSessionData{
		SessionID: "s-2", Purpose: store.PurposeSubmit, Mode: store.ModeStream,
		ProfessionID: 1, TaskID: 11, Frames: 2, DecodeErrors: 1, TerminalKind: "error",
		ErrorMessage: "server error: boom",
	}))
	require.NoError(t, st.Close())

	run := func(args ...string) string {
		t.Helper()
		var out bytes.Buffer
		rootCmd.SetOut(&out)
		rootCmd.SetErr(&out)
		rootCmd.SetArgs(append(args, "--db", dbPath))
		require.NoError(t, rootCmd.Execute())
		return out.String()
	}

	list := run("events", "list")
	assert.Contains(t, list, store.PurposeTaskGen)
	assert.Contains(t, list, store.PurposeSubmit)

	stats := run("events", "stats")
	assert.Contains(t, stats, "TOTAL")
	assert.Contains(t, stats, "Success rate: 50.0%")

	events, err := func() ([]store.StreamSessionRecord, error) {
		st, err := store.Open(dbPath)
		require.NoError(t, err)
		defer st.Close()
		return st.EventRepo().QueryStreamSessions(ctx, store.QueryOpts{Purpose: store.PurposeSubmit})
	}()
	require.NoError(t, err)
	require.Len(t, events, 1)

	view := run("events", "view", strconv.Itoa(events[0].ID))
	assert.Contains(t, view, "server error: boom")
	assert.Contains(t, view, "1 undecodable")
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "profsim")
}
