// Package cmd provides the CLI commands for the guardrail engine.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Guardrail-Labs/guardrail/internal/config"
)

var (
	cfgFile    string
	tenantFlag string
)

var rootCmd = &cobra.Command{
	Use:   "guardrail",
	Short: "Guardrail - policy evaluation engine for autonomous delivery agents",
	Long: `Guardrail evaluates versioned guidelines against a task context and
produces a single effective policy: a combined instruction string, an
authoritative tool allow/deny list, and human-in-the-loop gate triggers.

Quick start:
  1. Create a config file: guardrail.yaml
  2. Import guidelines:    guardrail import guidelines.yaml
  3. Evaluate a context:   guardrail evaluate --agent backend

Configuration:
  Config is loaded from guardrail.yaml in the current directory,
  $HOME/.guardrail/, or /etc/guardrail/.

  Environment variables can override config values with the GUARDRAIL_ prefix.
  Example: GUARDRAIL_STORAGE_PATH=/var/lib/guardrail/guardrail.db

Commands:
  list        List guidelines for the tenant
  get         Show one guideline
  create      Create a guideline from a file
  update      Patch a guideline (optimistic concurrency)
  toggle      Flip a guideline's enabled flag
  delete      Delete a guideline (audit trail is retained)
  evaluate    Produce the effective policy for a task context
  audit       Query the audit trail
  export      Export guidelines to a file
  import      Import guidelines from a file (partial failures reported)
  version     Print version information`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./guardrail.yaml)")
	rootCmd.PersistentFlags().StringVar(&tenantFlag, "tenant", "", "tenant id (default: from config)")
}

func initConfig() {
	config.InitViper(cfgFile)
}
