package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var deleteActor string

var deleteCmd = &cobra.Command{
	Use:   "delete <guideline-id>",
	Short: "Delete a guideline",
	Long: `Delete a guideline. The deletion is recorded in the audit trail, and
the guideline's prior audit entries are retained.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		defer app.close()

		if err := app.admin.Delete(cmd.Context(), app.tenant(), args[0], deleteActor); err != nil {
			return err
		}
		fmt.Printf("deleted %s\n", args[0])
		return nil
	},
}

func init() {
	deleteCmd.Flags().StringVar(&deleteActor, "actor", "", "actor recorded in the audit trail")
	rootCmd.AddCommand(deleteCmd)
}
