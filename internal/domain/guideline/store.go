package guideline

import (
	"context"

	"github.com/Guardrail-Labs/guardrail/internal/domain/audit"
)

// Store persists versioned guideline records, scoped by tenant.
// Interface owned by the domain per hexagonal architecture; adapters live
// under internal/adapter/outbound.
//
// Every mutation takes its paired audit entry and must commit both
// atomically: if the audit write fails, the mutation fails with it and the
// stored record is unchanged. Reads return deep copies.
type Store interface {
	// Create persists a new guideline together with its audit entry.
	Create(ctx context.Context, g *Guideline, rec audit.Entry) error

	// Get returns the guideline by id. Returns NotFoundError when absent and
	// TenantMismatchError when the record belongs to another tenant.
	Get(ctx context.Context, tenantID, id string) (*Guideline, error)

	// Update applies the patch if the stored version equals expectedVersion,
	// bumping the version by exactly one. On a stale version it returns
	// VersionConflictError carrying the current version and changes nothing.
	Update(ctx context.Context, tenantID, id string, expectedVersion int, patch Patch, rec audit.Entry) (*Guideline, error)

	// Toggle flips the enabled flag and bumps the version. The store fills
	// rec.Changes with the resulting enabled value before appending it.
	Toggle(ctx context.Context, tenantID, id string, rec audit.Entry) (*Guideline, error)

	// Delete removes the record. The audit trail referencing its id is
	// retained; audit entries are never rewritten or purged by deletion.
	Delete(ctx context.Context, tenantID, id string, rec audit.Entry) error

	// List returns one page in stable order (priority descending, then
	// created_at ascending) plus the total count before paging.
	List(ctx context.Context, tenantID string, filter ListFilter, page, pageSize int) ([]Guideline, int, error)

	// FindByKey looks up the import upsert key (tenant, name, category).
	// Returns nil, nil when no record matches.
	FindByKey(ctx context.Context, tenantID, name string, category Category) (*Guideline, error)
}
