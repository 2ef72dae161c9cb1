package cmd

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/profsim/profsim/internal/app"
)

// runApp opens the store, builds dependencies, and launches the TUI. When
// professionID is set its task screen opens directly.
func runApp(cmd *cobra.Command, professionID *int) error {
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	if err := e.requireLogin(); err != nil {
		return err
	}

	ctx := commandContext(cmd)
	opts := app.Options{
		Backend:  e.client,
		Mode:     e.mode(),
		Recorder: e.store.EventRepo(),
		Logger:   e.log.Named("tui"),
		Auth:     e.auth,
	}
	if professionID != nil {
		p, err := e.client.Profession(ctx, *professionID)
		if err != nil {
			return fmt.Errorf("load profession %d: %w", *professionID, err)
		}
		opts.Profession = p
	}

	err = app.Run(ctx, opts)
	if errors.Is(err, app.ErrSessionExpired) {
		return fmt.Errorf("%w: run 'profsim login'", err)
	}
	return err
}

// parseID parses a positive numeric argument.
func parseID(what, arg string) (int, error) {
	id, err := strconv.Atoi(arg)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s %q", what, arg)
	}
	return id, nil
}

func professionArg(args []string) (int, error) {
	return parseID("profession ID", args[0])
}
