package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/Guardrail-Labs/guardrail/internal/domain/audit"
	"github.com/Guardrail-Labs/guardrail/internal/domain/guideline"
)

// MaxAuditRangeDays bounds the date range of a single audit query.
const MaxAuditRangeDays = 90

// AuditService provides read access to the audit trail for admin queries.
// It never writes; mutation entries are paired with their store operations.
type AuditService struct {
	store  audit.Store
	logger *slog.Logger
}

// NewAuditService creates a new AuditService.
func NewAuditService(store audit.Store, logger *slog.Logger) *AuditService {
	return &AuditService{store: store, logger: logger}
}

// Query returns audit entries for the tenant matching the filter, newest
// first, plus the total match count. Rejects date ranges wider than
// MaxAuditRangeDays.
func (s *AuditService) Query(ctx context.Context, tenantID string, f audit.Filter) ([]audit.Entry, int, error) {
	if !f.DateFrom.IsZero() && !f.DateTo.IsZero() {
		if f.DateTo.Before(f.DateFrom) {
			return nil, 0, &guideline.ValidationError{Field: "date_to", Reason: "must not precede date_from"}
		}
		if f.DateTo.Sub(f.DateFrom) > MaxAuditRangeDays*24*time.Hour {
			return nil, 0, &guideline.ValidationError{Field: "date_to", Reason: "date range exceeds 90 days"}
		}
	}
	return s.store.Query(ctx, tenantID, f)
}
