package cmd

import (
	"github.com/spf13/cobra"
)

var getCmd = &cobra.Command{
	Use:   "get <guideline-id>",
	Short: "Show one guideline",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		defer app.close()

		g, err := app.admin.Get(cmd.Context(), app.tenant(), args[0])
		if err != nil {
			return err
		}
		return printJSON(g)
	},
}

func init() {
	rootCmd.AddCommand(getCmd)
}
