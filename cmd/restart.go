package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/profsim/profsim/internal/progress"
)

var restartCmd = &cobra.Command{
	Use:   "restart <profession-id>",
	Short: "Start a new attempt of a completed profession",
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
		a, err := tracker.Restart(commandContext(cmd))
		switch {
		case errors.Is(err, progress.ErrAttemptLimit):
			return fmt.Errorf("all %d attempts have been used", progress.MaxAttempts)
		case errors.Is(err, progress.ErrNotCompleted):
			return errors.New("finish the current attempt before starting a new one")
		case err != nil:
			return fmt.Errorf("restart: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Started attempt %d of %d.\n", a.AttemptNumber, progress.MaxAttempts)
		return nil
	},
}
