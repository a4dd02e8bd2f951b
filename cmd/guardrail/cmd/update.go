package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Guardrail-Labs/guardrail/internal/domain/guideline"
)

var (
	updateFile    string
	updateVersion int
	updateActor   string
)

var updateCmd = &cobra.Command{
	Use:   "update <guideline-id> -f <file> --version <n>",
	Short: "Patch a guideline (optimistic concurrency)",
	Long: `Patch a guideline from a YAML or JSON file. Only the fields present in
the file change; everything else is preserved. --version must carry the
version you read. A stale version fails with a conflict reporting the
current version: re-read and retry.

Example patch file:

  priority: 250
  action:
    action_type: hitl_gate
    gate_type: deploy_approval`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var patch guideline.Patch
		if err := decodeFile(updateFile, &patch); err != nil {
			return err
		}

		app, err := newApp()
		if err != nil {
			return err
		}
		defer app.close()

		g, err := app.admin.Update(cmd.Context(), app.tenant(), args[0], patch, updateVersion, updateActor)
		if err != nil {
			return err
		}
		return printJSON(g)
	},
}

func init() {
	updateCmd.Flags().StringVarP(&updateFile, "file", "f", "", "patch file (YAML or JSON; absent fields keep their values)")
	updateCmd.Flags().IntVar(&updateVersion, "version", 0, "version the patch was based on")
	updateCmd.Flags().StringVar(&updateActor, "actor", "", "actor recorded in the audit trail")
	_ = updateCmd.MarkFlagRequired("file")
	_ = updateCmd.MarkFlagRequired("version")
	rootCmd.AddCommand(updateCmd)
}
