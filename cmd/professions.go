package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/profsim/profsim/internal/progress"
)

var professionsCmd = &cobra.Command{
	Use:   "professions",
	Short: "List professions with your progress",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		ctx := commandContext(cmd)
		professions, err := e.client.Professions(ctx)
		if err != nil {
			return fmt.Errorf("list professions: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(professions) == 0 {
			fmt.Fprintln(out, "No professions available.")
			return nil
		}

		// Progress needs a login; without one every profession shows as
		// not started.
		var entries []progress.Entry
		if e.auth.Authenticated() {
			attempts, err := e.client.UserProgress(ctx)
			if err != nil {
				return fmt.Errorf("load progress: %w", err)
			}
			entries = progress.Summary(professions, attempts)
		} else {
			entries = progress.Summary(professions, nil)
		}

		fmt.Fprintf(out, "%-4s  %-32s  %-20s  %-14s  %-8s  %s\n",
			"ID", "Profession", "Category", "Status", "Attempt", "Next")
		fmt.Fprintln(out, strings.Repeat("─", 96))
		for _, en := range entries {
			p := en.Profession
			fmt.Fprintf(out, "%-4d  %-32s  %-20s  %-14s  %-8s  %s\n",
				p.ID,
				truncate(p.Name, 32),
				truncate(strings.Join(p.Tags(), ", "), 20),
				progress.StatusText(en.Status),
				en.AttemptLabel(),
				en.Action,
			)
		}
		return nil
	},
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
