package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Guardrail-Labs/guardrail/internal/domain/guideline"
)

var evalContext guideline.TaskContext

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Produce the effective policy for a task context",
	Long: `Evaluate all enabled guidelines against a task context and print the
effective policy: the combined instruction, the tool allow/deny lists
(deny wins), and any human-in-the-loop gates.

All context fields are optional; an omitted field matches guidelines
regardless of what they require on it only when they leave it
unconstrained.

Examples:
  guardrail evaluate --agent backend --action write_code
  guardrail evaluate --domain payments --event pre_deploy`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		defer app.close()

		policy, err := app.eval.Evaluate(cmd.Context(), app.tenant(), evalContext)
		if err != nil {
			return err
		}
		return printJSON(policy)
	},
}

func init() {
	evaluateCmd.Flags().StringVar(&evalContext.Agent, "agent", "", "agent identity (e.g. backend, frontend)")
	evaluateCmd.Flags().StringVar(&evalContext.Domain, "domain", "", "work domain (e.g. payments)")
	evaluateCmd.Flags().StringVar(&evalContext.Action, "action", "", "action being performed (e.g. write_code)")
	evaluateCmd.Flags().StringVar(&evalContext.Path, "path", "", "file path in scope")
	evaluateCmd.Flags().StringVar(&evalContext.Event, "event", "", "lifecycle event (e.g. pre_commit)")
	evaluateCmd.Flags().StringVar(&evalContext.GateType, "gate-type", "", "gate type being approached")
	rootCmd.AddCommand(evaluateCmd)
}
