package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Guardrail-Labs/guardrail/internal/domain/audit"
)

var (
	auditGuideline string
	auditEvent     string
	auditFrom      string
	auditTo        string
	auditLimit     int
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Query the audit trail",
	Long: `Query the tenant's audit trail, newest first.

Timestamps accept RFC 3339 (2026-08-01T00:00:00Z) or a plain date
(2026-08-01). Date ranges are capped at 90 days.

Examples:
  guardrail audit --limit 20
  guardrail audit --guideline 3f1a... --event guideline_updated
  guardrail audit --from 2026-08-01 --to 2026-08-28`,
	RunE: func(cmd *cobra.Command, args []string) error {
		filter := audit.Filter{
			GuidelineID: auditGuideline,
			EventType:   audit.EventType(auditEvent),
			Limit:       auditLimit,
		}

		var err error
		if filter.DateFrom, err = parseTimeFlag(auditFrom); err != nil {
			return fmt.Errorf("invalid --from: %w", err)
		}
		if filter.DateTo, err = parseTimeFlag(auditTo); err != nil {
			return fmt.Errorf("invalid --to: %w", err)
		}

		app, err := newApp()
		if err != nil {
			return err
		}
		defer app.close()

		entries, total, err := app.audit.Query(cmd.Context(), app.tenant(), filter)
		if err != nil {
			return err
		}
		return printJSON(map[string]any{
			"entries": entries,
			"total":   total,
		})
	},
}

// parseTimeFlag accepts RFC 3339 or a bare date. Empty means unset.
func parseTimeFlag(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("want RFC 3339 or YYYY-MM-DD, got %q", s)
	}
	return t, nil
}

func init() {
	auditCmd.Flags().StringVar(&auditGuideline, "guideline", "", "filter by guideline id")
	auditCmd.Flags().StringVar(&auditEvent, "event", "", "filter by event type (guideline_created, guideline_updated, guideline_deleted, guideline_toggled, evaluation)")
	auditCmd.Flags().StringVar(&auditFrom, "from", "", "earliest timestamp (inclusive)")
	auditCmd.Flags().StringVar(&auditTo, "to", "", "latest timestamp (inclusive)")
	auditCmd.Flags().IntVar(&auditLimit, "limit", 0, "max entries (default 100, max 1000)")
	rootCmd.AddCommand(auditCmd)
}
