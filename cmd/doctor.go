package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/profsim/profsim/internal/api"
	"github.com/profsim/profsim/internal/config"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check configuration, server reachability and login state",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		ctx := commandContext(cmd)
		out := cmd.OutOrStdout()
		failed := false

		cfgPath, _ := cmd.Flags().GetString("config")
		if cfgPath == "" {
			cfgPath = config.DefaultPath() + " (if present)"
		}
		check(out, true, "config", cfgPath)
		check(out, true, "database", e.dbPath)
		check(out, true, "server", e.client.BaseURL()+" ("+e.cfg.API.Mode+" mode)")

		if h, err := e.client.Health(ctx); err != nil {
			failed = true
			check(out, false, "health", err.Error())
		} else {
			ok := h.Status == "healthy" || h.Status == "ok"
			failed = failed || !ok
			check(out, ok, "health", h.Status)
		}

		if info, err := e.client.ServerInfo(ctx); err != nil {
			failed = true
			check(out, false, "version", err.Error())
		} else if err := api.CheckCompatibility(info.Version); err != nil {
			failed = true
			check(out, false, "version", err.Error())
		} else {
			check(out, true, "version", info.Version)
		}

		if e.auth.Authenticated() {
			check(out, true, "login", "token from "+e.auth.Source())
		} else {
			check(out, false, "login", "not logged in")
		}

		if failed {
			return fmt.Errorf("some checks failed")
		}
		return nil
	},
}

func check(out io.Writer, ok bool, name, detail string) {
	mark := "✓"
	if !ok {
		mark = "✗"
	}
	fmt.Fprintf(out, "%s %-9s %s\n", mark, name, detail)
}
