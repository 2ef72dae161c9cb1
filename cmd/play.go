package cmd

import (
	"github.com/spf13/cobra"
)

var playCmd = &cobra.Command{
	Use:   "play [profession-id]",
	Short: "Start the interactive simulator",
	Long: "Opens the professions dashboard. With a profession ID the current " +
		"task of that profession opens directly.",
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return runApp(cmd, nil)
		}
		id, err := professionArg(args)
		if err != nil {
			return err
		}
		return runApp(cmd, &id)
	},
}
