package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Guardrail-Labs/guardrail/internal/domain/guideline"
	"github.com/Guardrail-Labs/guardrail/internal/service"
)

var (
	exportOutput   string
	exportCategory string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export guidelines to a file",
	Long: `Export the tenant's guidelines as an importable document, in the same
stable order as list. Without --output the document goes to stdout.

Examples:
  guardrail export
  guardrail export --category tdd_protocol -o tdd.yaml
  guardrail export -o backup.json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		defer app.close()

		items, err := app.admin.Export(cmd.Context(), app.tenant(), guideline.Category(exportCategory))
		if err != nil {
			return err
		}

		records := make([]service.ImportRecord, 0, len(items))
		for _, g := range items {
			enabled := g.Enabled
			records = append(records, service.ImportRecord{
				Name:        g.Name,
				Description: g.Description,
				Category:    g.Category,
				Priority:    g.Priority,
				Enabled:     &enabled,
				Condition:   g.Condition,
				Action:      g.Action,
			})
		}
		return encodeFile(exportOutput, records)
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file (.json for JSON, YAML otherwise; default stdout)")
	exportCmd.Flags().StringVar(&exportCategory, "category", "", "export only this category")
	rootCmd.AddCommand(exportCmd)
}
