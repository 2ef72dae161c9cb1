package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/profsim/profsim/internal/api"
	"github.com/profsim/profsim/internal/progress"
)

const timeLayout = "2006-01-02 15:04"

var historyCmd = &cobra.Command{
	Use:   "history <profession-id>",
	Short: "List the attempts of a profession",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		professionID, err := professionArg(args)
		if err != nil {
			return err
		}

		e, err := setup(cmd)
		if err != nil {
			return err
		}
		defer e.Close()
		if err := e.requireLogin(); err != nil {
			return err
		}

		tracker := progress.NewTracker(e.client, professionID)
		if err := tracker.Refresh(commandContext(cmd)); err != nil {
			return fmt.Errorf("load history: %w", err)
		}
		h := tracker.History()

		out := cmd.OutOrStdout()
		if len(h.Attempts) == 0 {
			fmt.Fprintln(out, "No attempts yet.")
			return nil
		}

		fmt.Fprintf(out, "%-8s  %-12s  %-6s  %-16s  %-16s  %s\n",
			"Attempt", "Status", "Task", "Started", "Completed", "Report")
		fmt.Fprintln(out, strings.Repeat("─", 78))
		for _, a := range h.Attempts {
			report := "-"
			if a.FinalReport != "" {
				report = "yes"
			}
			fmt.Fprintf(out, "%-8s  %-12s  %-6d  %-16s  %-16s  %s\n",
				fmt.Sprintf("%d of %d", a.AttemptNumber, progress.MaxAttempts),
				progress.StatusText(a.Status),
				a.CurrentTaskOrder,
				formatTime(a.StartedAt),
				formatTime(a.CompletedAt),
				report,
			)
		}

		if progress.CanRestart(h) {
			fmt.Fprintf(out, "\n%d of %d attempts used.\n", h.TotalAttempts, progress.MaxAttempts)
		} else {
			fmt.Fprintf(out, "\nAll %d attempts used.\n", progress.MaxAttempts)
		}
		return nil
	},
}

func formatTime(t *api.Timestamp) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return t.Local().Format(timeLayout)
}
