package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Guardrail-Labs/guardrail/internal/domain/guideline"
)

var (
	listCategory string
	listEnabled  bool
	listDisabled bool
	listPage     int
	listPageSize int
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List guidelines for the tenant",
	Long: `List guidelines for the tenant, ordered by priority (highest first).

Examples:
  guardrail list
  guardrail list --category tdd_protocol
  guardrail list --enabled --page 2 --page-size 20`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		defer app.close()

		filter := guideline.ListFilter{Category: guideline.Category(listCategory)}
		if listEnabled {
			t := true
			filter.Enabled = &t
		}
		if listDisabled {
			f := false
			filter.Enabled = &f
		}

		items, total, err := app.admin.List(cmd.Context(), app.tenant(), filter, listPage, listPageSize)
		if err != nil {
			return err
		}
		return printJSON(map[string]any{
			"guidelines": items,
			"total":      total,
			"page":       listPage,
		})
	},
}

func init() {
	listCmd.Flags().StringVar(&listCategory, "category", "", "filter by category (cognitive_isolation, tdd_protocol, custom)")
	listCmd.Flags().BoolVar(&listEnabled, "enabled", false, "only enabled guidelines")
	listCmd.Flags().BoolVar(&listDisabled, "disabled", false, "only disabled guidelines")
	listCmd.Flags().IntVar(&listPage, "page", 1, "page number (1-based)")
	listCmd.Flags().IntVar(&listPageSize, "page-size", 0, "guidelines per page (default 50, max 500)")
	listCmd.MarkFlagsMutuallyExclusive("enabled", "disabled")
	rootCmd.AddCommand(listCmd)
}
