// Package memory provides in-memory implementations of the outbound ports.
// Thread-safe for concurrent access. For development and testing.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/Guardrail-Labs/guardrail/internal/domain/audit"
)

// AuditStore implements audit.Store with an append-only in-memory slice.
type AuditStore struct {
	mu      sync.RWMutex
	entries []audit.Entry
}

// NewAuditStore creates an empty in-memory audit store.
func NewAuditStore() *AuditStore {
	return &AuditStore{}
}

// Append stores one entry.
func (s *AuditStore) Append(ctx context.Context, e audit.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, cloneEntry(e))
	return nil
}

// Query returns matching entries for the tenant, newest first, plus the
// total match count before the limit.
func (s *AuditStore) Query(ctx context.Context, tenantID string, f audit.Filter) ([]audit.Entry, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []audit.Entry
	for _, e := range s.entries {
		if e.TenantID != tenantID || !f.Matches(e) {
			continue
		}
		matched = append(matched, cloneEntry(e))
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Timestamp.After(matched[j].Timestamp)
	})

	total := len(matched)
	if limit := f.EffectiveLimit(); total > limit {
		matched = matched[:limit]
	}
	return matched, total, nil
}

// Len returns the number of stored entries across all tenants.
func (s *AuditStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func cloneEntry(e audit.Entry) audit.Entry {
	e.Context = cloneMap(e.Context)
	e.Changes = cloneMap(e.Changes)
	return e
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	dup := make(map[string]any, len(m))
	for k, v := range m {
		dup[k] = v
	}
	return dup
}

// Compile-time interface verification.
var _ audit.Store = (*AuditStore)(nil)
