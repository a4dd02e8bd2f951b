package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Guardrail-Labs/guardrail/internal/service"
)

var importActor string

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import guidelines from a file",
	Long: `Import guidelines from a YAML or JSON file (the format export writes).

Records are upserted by (name, category) within the tenant: new pairs
are created, existing ones are updated. Each record succeeds or fails
on its own; invalid records are reported with their index and the rest
of the batch still applies.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var records []service.ImportRecord
		if err := decodeFile(args[0], &records); err != nil {
			return err
		}

		app, err := newApp()
		if err != nil {
			return err
		}
		defer app.close()

		result, err := app.admin.Import(cmd.Context(), app.tenant(), records, importActor)
		if err != nil {
			return err
		}
		if err := printJSON(result); err != nil {
			return err
		}
		if result.Imported == 0 && len(result.Errors) > 0 {
			return fmt.Errorf("import failed: all %d records rejected", len(result.Errors))
		}
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importActor, "actor", "", "actor recorded in the audit trail")
	rootCmd.AddCommand(importCmd)
}
