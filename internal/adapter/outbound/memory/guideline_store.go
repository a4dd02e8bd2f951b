package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Guardrail-Labs/guardrail/internal/domain/audit"
	"github.com/Guardrail-Labs/guardrail/internal/domain/guideline"
)

// GuidelineStore implements guideline.Store with an in-memory map.
//
// Mutations append the paired audit entry before committing the map change,
// both under the same lock, so a failed audit write leaves the store
// untouched and concurrent mutations on the same id serialize.
type GuidelineStore struct {
	mu         sync.RWMutex
	guidelines map[string]*guideline.Guideline // id -> record
	audit      audit.Store
}

// NewGuidelineStore creates an in-memory guideline store that writes paired
// audit entries to the given sink.
func NewGuidelineStore(auditStore audit.Store) *GuidelineStore {
	return &GuidelineStore{
		guidelines: make(map[string]*guideline.Guideline),
		audit:      auditStore,
	}
}

// Create persists a new guideline together with its audit entry.
func (s *GuidelineStore) Create(ctx context.Context, g *guideline.Guideline, rec audit.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.audit.Append(ctx, rec); err != nil {
		return err
	}
	s.guidelines[g.ID] = g.Clone()
	return nil
}

// Get returns the guideline by id.
func (s *GuidelineStore) Get(ctx context.Context, tenantID, id string) (*guideline.Guideline, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, err := s.getLocked(tenantID, id)
	if err != nil {
		return nil, err
	}
	return g.Clone(), nil
}

// Update applies the patch under compare-and-swap on the version.
func (s *GuidelineStore) Update(ctx context.Context, tenantID, id string, expectedVersion int, patch guideline.Patch, rec audit.Entry) (*guideline.Guideline, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, err := s.getLocked(tenantID, id)
	if err != nil {
		return nil, err
	}
	if g.Version != expectedVersion {
		return nil, &guideline.VersionConflictError{ID: id, Expected: expectedVersion, Current: g.Version}
	}

	updated := g.Clone()
	patch.Apply(updated, time.Now().UTC())

	if err := s.audit.Append(ctx, rec); err != nil {
		return nil, err
	}
	s.guidelines[id] = updated
	return updated.Clone(), nil
}

// Toggle flips the enabled flag and bumps the version.
func (s *GuidelineStore) Toggle(ctx context.Context, tenantID, id string, rec audit.Entry) (*guideline.Guideline, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, err := s.getLocked(tenantID, id)
	if err != nil {
		return nil, err
	}

	updated := g.Clone()
	updated.ToggleEnabled(time.Now().UTC())

	rec.Changes = map[string]any{"enabled": updated.Enabled}
	if err := s.audit.Append(ctx, rec); err != nil {
		return nil, err
	}
	s.guidelines[id] = updated
	return updated.Clone(), nil
}

// Delete removes the record. The audit trail keeps referencing its id.
func (s *GuidelineStore) Delete(ctx context.Context, tenantID, id string, rec audit.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.getLocked(tenantID, id); err != nil {
		return err
	}
	if err := s.audit.Append(ctx, rec); err != nil {
		return err
	}
	delete(s.guidelines, id)
	return nil
}

// List returns one page in stable order plus the total count.
func (s *GuidelineStore) List(ctx context.Context, tenantID string, filter guideline.ListFilter, page, pageSize int) ([]guideline.Guideline, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []guideline.Guideline
	for _, g := range s.guidelines {
		if g.TenantID != tenantID {
			continue
		}
		if filter.Category != "" && g.Category != filter.Category {
			continue
		}
		if filter.Enabled != nil && g.Enabled != *filter.Enabled {
			continue
		}
		matched = append(matched, *g.Clone())
	}

	sortGuidelines(matched)

	total := len(matched)
	start, end := pageBounds(total, page, pageSize)
	return matched[start:end], total, nil
}

// FindByKey looks up the (tenant, name, category) import upsert key.
func (s *GuidelineStore) FindByKey(ctx context.Context, tenantID, name string, category guideline.Category) (*guideline.Guideline, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, g := range s.guidelines {
		if g.TenantID == tenantID && g.Name == name && g.Category == category {
			return g.Clone(), nil
		}
	}
	return nil, nil
}

// getLocked resolves id within the tenant. Caller holds at least the read lock.
func (s *GuidelineStore) getLocked(tenantID, id string) (*guideline.Guideline, error) {
	g, ok := s.guidelines[id]
	if !ok {
		return nil, &guideline.NotFoundError{ID: id}
	}
	if g.TenantID != tenantID {
		return nil, &guideline.TenantMismatchError{ID: id, TenantID: tenantID}
	}
	return g, nil
}

// sortGuidelines orders by priority descending, then created_at ascending,
// with id as the final tie-break for determinism.
func sortGuidelines(gs []guideline.Guideline) {
	sort.SliceStable(gs, func(i, j int) bool {
		if gs[i].Priority != gs[j].Priority {
			return gs[i].Priority > gs[j].Priority
		}
		if !gs[i].CreatedAt.Equal(gs[j].CreatedAt) {
			return gs[i].CreatedAt.Before(gs[j].CreatedAt)
		}
		return gs[i].ID < gs[j].ID
	})
}

// pageBounds converts a 1-based page and size to slice bounds.
func pageBounds(total, page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 1
	}
	start := (page - 1) * pageSize
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	return start, end
}

// Compile-time interface verification.
var _ guideline.Store = (*GuidelineStore)(nil)
