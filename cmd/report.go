package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/profsim/profsim/internal/api"
	"github.com/profsim/profsim/internal/progress"
)

var reportCmd = &cobra.Command{
	Use:   "report <profession-id>",
	Short: "Print the final report of a profession",
	Long:  "Prints the latest final report, or the report of one attempt with --attempt.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		professionID, err := professionArg(args)
		if err != nil {
			return err
		}
		attempt, _ := cmd.Flags().GetInt("attempt")

		e, err := setup(cmd)
		if err != nil {
			return err
		}
		defer e.Close()
		if err := e.requireLogin(); err != nil {
			return err
		}

		ctx := commandContext(cmd)
		out := cmd.OutOrStdout()

		if attempt == 0 {
			r, err := e.client.FinalReport(ctx, professionID)
			if errors.Is(err, api.ErrNotFound) {
				fmt.Fprintln(out, "No final report yet. Finish an attempt first.")
				return nil
			}
			if err != nil {
				return fmt.Errorf("load report: %w", err)
			}
			if r.CompletedAt != nil {
				fmt.Fprintf(out, "Completed %s\n\n", formatTime(r.CompletedAt))
			}
			fmt.Fprintln(out, r.FinalReport)
			return nil
		}

		tracker := progress.NewTracker(e.client, professionID)
		a, err := tracker.ViewAttempt(ctx, attempt)
		if errors.Is(err, api.ErrNotFound) {
			return fmt.Errorf("attempt %d not found", attempt)
		}
		if err != nil {
			return fmt.Errorf("load attempt %d: %w", attempt, err)
		}

		fmt.Fprintf(out, "Attempt %d of %d · %s\n", a.AttemptNumber, progress.MaxAttempts, progress.StatusText(a.Status))
		if a.Status != api.StatusCompleted || a.FinalReport == "" {
			fmt.Fprintln(out, "\nThis attempt has no final report.")
			return nil
		}
		fmt.Fprintf(out, "Completed %s\n\n%s\n", formatTime(a.CompletedAt), a.FinalReport)
		return nil
	},
}

func init() {
	reportCmd.Flags().IntP("attempt", "n", 0, "Attempt number (default: latest report)")
}
