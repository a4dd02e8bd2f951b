package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Guardrail-Labs/guardrail/internal/service"
)

var (
	createFile  string
	createActor string
)

var createCmd = &cobra.Command{
	Use:   "create -f <file>",
	Short: "Create a guideline from a file",
	Long: `Create a guideline from a YAML or JSON file.

The file holds a single guideline record:

  name: no-production-secrets
  category: custom
  priority: 100
  condition:
    domains: [backend]
  action:
    action_type: instruction
    instruction: Never read production secret stores.

New guidelines start at version 1 and enabled unless the record says
otherwise.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var rec service.ImportRecord
		if err := decodeFile(createFile, &rec); err != nil {
			return err
		}

		app, err := newApp()
		if err != nil {
			return err
		}
		defer app.close()

		g, err := app.admin.Create(cmd.Context(), service.CreateRequest{
			TenantID:    app.tenant(),
			Name:        rec.Name,
			Description: rec.Description,
			Category:    rec.Category,
			Priority:    rec.Priority,
			Enabled:     rec.Enabled,
			Condition:   rec.Condition,
			Action:      rec.Action,
			CreatedBy:   createActor,
		})
		if err != nil {
			return err
		}
		return printJSON(g)
	},
}

func init() {
	createCmd.Flags().StringVarP(&createFile, "file", "f", "", "guideline file (YAML or JSON)")
	createCmd.Flags().StringVar(&createActor, "actor", "", "actor recorded in the audit trail")
	_ = createCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(createCmd)
}
