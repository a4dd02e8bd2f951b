package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Guardrail-Labs/guardrail/internal/adapter/outbound/memory"
	"github.com/Guardrail-Labs/guardrail/internal/domain/audit"
	"github.com/Guardrail-Labs/guardrail/internal/domain/guideline"
)

func TestAuditServiceQuery(t *testing.T) {
	ctx := context.Background()
	store := memory.NewAuditStore()
	svc := NewAuditService(store, testLogger())

	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	for i, event := range []audit.EventType{
		audit.EventGuidelineCreated,
		audit.EventGuidelineUpdated,
		audit.EventEvaluation,
	} {
		err := store.Append(ctx, audit.Entry{
			ID:        string(event),
			TenantID:  "acme",
			EventType: event,
			Timestamp: base.Add(time.Duration(i) * time.Hour),
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	entries, total, err := svc.Query(ctx, "acme", audit.Filter{})
	if err != nil || total != 3 {
		t.Fatalf("query: err=%v total=%d", err, total)
	}
	if entries[0].EventType != audit.EventEvaluation {
		t.Errorf("newest first broken: %v", entries[0].EventType)
	}

	byEvent, total, err := svc.Query(ctx, "acme", audit.Filter{EventType: audit.EventGuidelineUpdated})
	if err != nil || total != 1 || byEvent[0].EventType != audit.EventGuidelineUpdated {
		t.Errorf("event filter: err=%v total=%d", err, total)
	}
}

func TestAuditServiceDateRangeValidation(t *testing.T) {
	ctx := context.Background()
	svc := NewAuditService(memory.NewAuditStore(), testLogger())
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		filter  audit.Filter
		wantErr bool
	}{
		{"open range", audit.Filter{}, false},
		{"from only", audit.Filter{DateFrom: base}, false},
		{"to only", audit.Filter{DateTo: base}, false},
		{"valid window", audit.Filter{DateFrom: base, DateTo: base.AddDate(0, 0, 30)}, false},
		{"exactly 90 days", audit.Filter{DateFrom: base, DateTo: base.Add(MaxAuditRangeDays * 24 * time.Hour)}, false},
		{"inverted", audit.Filter{DateFrom: base, DateTo: base.AddDate(0, 0, -1)}, true},
		{"too wide", audit.Filter{DateFrom: base, DateTo: base.AddDate(0, 0, 91)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := svc.Query(ctx, "acme", tt.filter)
			var ve *guideline.ValidationError
			if tt.wantErr && !errors.As(err, &ve) {
				t.Errorf("want ValidationError, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}
