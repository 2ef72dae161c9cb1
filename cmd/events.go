package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/profsim/profsim/internal/store"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Inspect the local log of streaming sessions",
}

// openStore opens the local database without touching the network.
func openStore(cmd *cobra.Command) (*store.Store, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	dbPath, err := resolveDBPath(cmd, cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("resolve database path: %w", err)
	}
	s, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return s, nil
}

var eventsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent streaming sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		purpose, _ := cmd.Flags().GetString("purpose")

		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		events, err := s.EventRepo().QueryStreamSessions(commandContext(cmd), store.QueryOpts{
			Limit:   limit,
			Purpose: purpose,
		})
		if err != nil {
			return fmt.Errorf("query events: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(events) == 0 {
			fmt.Fprintln(out, "No streaming sessions recorded.")
			return nil
		}

		fmt.Fprintf(out, "%-5s  %-19s  %-9s  %-6s  %-10s  %-6s  %-4s  %-7s  %s\n",
			"ID", "Timestamp", "Purpose", "Mode", "Terminal", "Frames", "Bad", "Ms", "OK")
		fmt.Fprintln(out, strings.Repeat("─", 90))

		for _, e := range events {
			ok := "✓"
			if !e.Success {
				ok = "✗"
			}
			terminal := e.TerminalKind
			if terminal == "" {
				terminal = "-"
			}
			fmt.Fprintf(out, "%-5d  %-19s  %-9s  %-6s  %-10s  %-6d  %-4d  %-7d  %s\n",
				e.ID,
				e.Timestamp.Local().Format("2006-01-02 15:04:05"),
				e.Purpose,
				e.Mode,
				terminal,
				e.Frames,
				e.DecodeErrors,
				e.LatencyMs,
				ok,
			)
		}
		return nil
	},
}

var eventsViewCmd = &cobra.Command{
	Use:   "view <id>",
	Short: "View one streaming session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID("ID", args[0])
		if err != nil {
			return err
		}

		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		e, err := s.EventRepo().GetStreamSession(commandContext(cmd), id)
		if err != nil {
			return fmt.Errorf("get event: %w", err)
		}
		if e == nil {
			return fmt.Errorf("event %d not found", id)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "ID:          %d\n", e.ID)
		fmt.Fprintf(out, "Sequence:    %d\n", e.Sequence)
		fmt.Fprintf(out, "Time:        %s\n", e.Timestamp.Local().Format("2006-01-02 15:04:05"))
		fmt.Fprintf(out, "Session:     %s\n", e.SessionID)
		fmt.Fprintf(out, "Purpose:     %s\n", e.Purpose)
		fmt.Fprintf(out, "Mode:        %s\n", e.Mode)
		fmt.Fprintf(out, "Profession:  %d\n", e.ProfessionID)
		if e.TaskID != 0 {
			fmt.Fprintf(out, "Task:        %d\n", e.TaskID)
		}
		fmt.Fprintf(out, "Frames:      %d (%d undecodable)\n", e.Frames, e.DecodeErrors)
		fmt.Fprintf(out, "Terminal:    %s\n", e.TerminalKind)
		fmt.Fprintf(out, "Latency:     %dms\n", e.LatencyMs)
		fmt.Fprintf(out, "Success:     %v\n", e.Success)
		if e.ErrorMessage != "" {
			fmt.Fprintf(out, "Error:       %s\n", e.ErrorMessage)
		}
		return nil
	},
}

var eventsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregated streaming session statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		stats, err := s.EventRepo().UsageByPurpose(commandContext(cmd))
		if err != nil {
			return fmt.Errorf("query usage: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(stats) == 0 {
			fmt.Fprintln(out, "No streaming sessions recorded yet.")
			return nil
		}

		fmt.Fprintln(out, "Sessions by Purpose")
		fmt.Fprintln(out, strings.Repeat("─", 72))
		fmt.Fprintf(out, "%-12s  %8s  %9s  %10s  %10s  %8s\n",
			"Purpose", "Sessions", "Succeeded", "Frames", "Bad", "Avg Ms")
		fmt.Fprintln(out, strings.Repeat("─", 72))

		var total store.PurposeUsage
		for _, st := range stats {
			fmt.Fprintf(out, "%-12s  %8d  %9d  %10d  %10d  %8d\n",
				st.Purpose, st.Sessions, st.Succeeded, st.Frames, st.DecodeErrors, st.AvgLatencyMs)
			total.Sessions += st.Sessions
			total.Succeeded += st.Succeeded
			total.Frames += st.Frames
			total.DecodeErrors += st.DecodeErrors
		}

		fmt.Fprintln(out, strings.Repeat("─", 72))
		fmt.Fprintf(out, "%-12s  %8d  %9d  %10d  %10d\n",
			"TOTAL", total.Sessions, total.Succeeded, total.Frames, total.DecodeErrors)

		if total.Sessions > 0 {
			fmt.Fprintf(out, "\nSuccess rate: %.1f%%\n", 100*float64(total.Succeeded)/float64(total.Sessions))
		}
		return nil
	},
}

func init() {
	eventsListCmd.Flags().IntP("limit", "n", 20, "Number of events to show")
	eventsListCmd.Flags().StringP("purpose", "p", "", "Filter by purpose ("+store.PurposeTaskGen+" or "+store.PurposeSubmit+")")

	eventsCmd.AddCommand(eventsListCmd)
	eventsCmd.AddCommand(eventsViewCmd)
	eventsCmd.AddCommand(eventsStatsCmd)
}
