package cmd

import (
	"github.com/spf13/cobra"

	"github.com/profsim/profsim/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "profsim",
	Short: "Terminal client for the profession simulator",
	Long: "profsim runs AI-graded profession simulations from the terminal: " +
		"tasks stream in live, answers are graded and a final report closes each attempt.",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runApp(cmd, nil)
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "Path to config file (default $XDG_CONFIG_HOME/profsim/config.yaml)")
	flags.String("db", "", "Path to SQLite database file (overrides PROFSIM_DB env var)")
	flags.String("api-url", "", "Backend base URL (overrides api.base_url)")
	flags.Bool("plain", false, "Request whole documents instead of event streams")

	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(professionsCmd)
	rootCmd.AddCommand(taskCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(restartCmd)
	rootCmd.AddCommand(eventsCmd)
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(versionCmd)
}

// resolveDBPath returns the database path using --db flag (highest priority),
// then the configured store path, then PROFSIM_DB or the default XDG path.
func resolveDBPath(cmd *cobra.Command, configured string) (string, error) {
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		return p, store.EnsureDir(p)
	}
	if configured != "" {
		return configured, store.EnsureDir(configured)
	}
	return store.DefaultDBPath()
}
