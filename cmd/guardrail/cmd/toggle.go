package cmd

import (
	"github.com/spf13/cobra"
)

var toggleActor string

var toggleCmd = &cobra.Command{
	Use:   "toggle <guideline-id>",
	Short: "Flip a guideline's enabled flag",
	Long: `Flip a guideline's enabled flag. Disabled guidelines are skipped by
evaluation but keep their configuration and audit history.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		defer app.close()

		g, err := app.admin.Toggle(cmd.Context(), app.tenant(), args[0], toggleActor)
		if err != nil {
			return err
		}
		return printJSON(g)
	},
}

func init() {
	toggleCmd.Flags().StringVar(&toggleActor, "actor", "", "actor recorded in the audit trail")
	rootCmd.AddCommand(toggleCmd)
}
