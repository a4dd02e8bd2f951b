package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Guardrail-Labs/guardrail/internal/domain/audit"
	"github.com/Guardrail-Labs/guardrail/internal/domain/guideline"
)

// GuidelineStore implements guideline.Store on the shared database.
//
// Version monotonicity is enforced at the storage level: updates run
// `UPDATE ... WHERE id = ? AND version = ?` and treat zero affected rows as
// a conflict, so concurrent mutations on one id serialize without
// application-level locks.
type GuidelineStore struct {
	d *DB
}

// NewGuidelineStore creates the guideline adapter over an open database.
func NewGuidelineStore(d *DB) *GuidelineStore {
	return &GuidelineStore{d: d}
}

const guidelineColumns = `id, tenant_id, name, description, category, priority, enabled, condition_json, action_json, version, created_at, updated_at, created_by`

const insertGuidelineSQL = `
INSERT INTO guidelines (` + guidelineColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

// Create persists a new guideline and its audit entry in one transaction.
func (s *GuidelineStore) Create(ctx context.Context, g *guideline.Guideline, rec audit.Entry) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		conditionJSON, actionJSON, err := encodePayload(g)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, insertGuidelineSQL,
			g.ID, g.TenantID, g.Name, g.Description, string(g.Category),
			g.Priority, boolToInt(g.Enabled), conditionJSON, actionJSON,
			g.Version, encodeTime(g.CreatedAt), encodeTime(g.UpdatedAt), g.CreatedBy,
		)
		if err != nil {
			return fmt.Errorf("insert guideline: %w", err)
		}
		return insertEntry(ctx, tx, rec)
	})
}

// Get returns the guideline by id.
func (s *GuidelineStore) Get(ctx context.Context, tenantID, id string) (*guideline.Guideline, error) {
	return s.getBy(ctx, s.d.db, tenantID, id)
}

// Update applies the patch under compare-and-swap on the version.
func (s *GuidelineStore) Update(ctx context.Context, tenantID, id string, expectedVersion int, patch guideline.Patch, rec audit.Entry) (*guideline.Guideline, error) {
	var updated *guideline.Guideline
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		current, err := s.getBy(ctx, tx, tenantID, id)
		if err != nil {
			return err
		}
		if current.Version != expectedVersion {
			return &guideline.VersionConflictError{ID: id, Expected: expectedVersion, Current: current.Version}
		}

		next := current.Clone()
		patch.Apply(next, time.Now().UTC())
		if err := s.writeVersioned(ctx, tx, next, expectedVersion); err != nil {
			return err
		}
		if err := insertEntry(ctx, tx, rec); err != nil {
			return err
		}
		updated = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Toggle flips the enabled flag and bumps the version.
func (s *GuidelineStore) Toggle(ctx context.Context, tenantID, id string, rec audit.Entry) (*guideline.Guideline, error) {
	var updated *guideline.Guideline
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		current, err := s.getBy(ctx, tx, tenantID, id)
		if err != nil {
			return err
		}

		next := current.Clone()
		next.ToggleEnabled(time.Now().UTC())
		if err := s.writeVersioned(ctx, tx, next, current.Version); err != nil {
			return err
		}

		rec.Changes = map[string]any{"enabled": next.Enabled}
		if err := insertEntry(ctx, tx, rec); err != nil {
			return err
		}
		updated = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes the record, keeping its audit trail.
func (s *GuidelineStore) Delete(ctx context.Context, tenantID, id string, rec audit.Entry) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := s.getBy(ctx, tx, tenantID, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM guidelines WHERE id = ?", id); err != nil {
			return fmt.Errorf("delete guideline: %w", err)
		}
		return insertEntry(ctx, tx, rec)
	})
}

// List returns one page in stable order plus the total count.
func (s *GuidelineStore) List(ctx context.Context, tenantID string, filter guideline.ListFilter, page, pageSize int) ([]guideline.Guideline, int, error) {
	where := "WHERE tenant_id = ?"
	args := []any{tenantID}
	if filter.Category != "" {
		where += " AND category = ?"
		args = append(args, string(filter.Category))
	}
	if filter.Enabled != nil {
		where += " AND enabled = ?"
		args = append(args, boolToInt(*filter.Enabled))
	}

	var total int
	if err := s.d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM guidelines "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count guidelines: %w", err)
	}

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 1
	}
	querySQL := "SELECT " + guidelineColumns + " FROM guidelines " + where +
		" ORDER BY priority DESC, created_at ASC, id ASC LIMIT ? OFFSET ?"
	args = append(args, pageSize, (page-1)*pageSize)

	rows, err := s.d.db.QueryContext(ctx, querySQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query guidelines: %w", err)
	}
	defer rows.Close()

	var result []guideline.Guideline
	for rows.Next() {
		g, err := scanGuideline(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, *g)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate guidelines: %w", err)
	}
	return result, total, nil
}

// FindByKey looks up the (tenant, name, category) import upsert key.
func (s *GuidelineStore) FindByKey(ctx context.Context, tenantID, name string, category guideline.Category) (*guideline.Guideline, error) {
	row := s.d.db.QueryRowContext(ctx,
		"SELECT "+guidelineColumns+" FROM guidelines WHERE tenant_id = ? AND name = ? AND category = ? LIMIT 1",
		tenantID, name, string(category),
	)
	g, err := scanGuideline(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return g, nil
}

// querier abstracts *sql.DB and *sql.Tx for reads.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// getBy loads one record, distinguishing not-found from tenant mismatch.
func (s *GuidelineStore) getBy(ctx context.Context, q querier, tenantID, id string) (*guideline.Guideline, error) {
	row := q.QueryRowContext(ctx, "SELECT "+guidelineColumns+" FROM guidelines WHERE id = ?", id)
	g, err := scanGuideline(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &guideline.NotFoundError{ID: id}
	}
	if err != nil {
		return nil, err
	}
	if g.TenantID != tenantID {
		return nil, &guideline.TenantMismatchError{ID: id, TenantID: tenantID}
	}
	return g, nil
}

const updateGuidelineSQL = `
UPDATE guidelines
SET name = ?, description = ?, category = ?, priority = ?, enabled = ?,
    condition_json = ?, action_json = ?, version = ?, updated_at = ?
WHERE id = ? AND version = ?
`

// writeVersioned persists the already-bumped record, CAS-guarded on the
// prior version. Zero affected rows means a concurrent writer won.
func (s *GuidelineStore) writeVersioned(ctx context.Context, tx *sql.Tx, g *guideline.Guideline, priorVersion int) error {
	conditionJSON, actionJSON, err := encodePayload(g)
	if err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, updateGuidelineSQL,
		g.Name, g.Description, string(g.Category), g.Priority, boolToInt(g.Enabled),
		conditionJSON, actionJSON, g.Version, encodeTime(g.UpdatedAt),
		g.ID, priorVersion,
	)
	if err != nil {
		return fmt.Errorf("update guideline: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update guideline rows affected: %w", err)
	}
	if affected == 0 {
		return &guideline.VersionConflictError{ID: g.ID, Expected: priorVersion, Current: g.Version}
	}
	return nil
}

// inTx runs fn inside a transaction, rolling back on error.
func (s *GuidelineStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.d.logger.Warn("transaction rollback failed", "error", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanGuideline(row rowScanner) (*guideline.Guideline, error) {
	var (
		g                         guideline.Guideline
		category                  string
		enabled                   int
		conditionJSON, actionJSON string
		createdAt, updatedAt      string
	)
	err := row.Scan(&g.ID, &g.TenantID, &g.Name, &g.Description, &category,
		&g.Priority, &enabled, &conditionJSON, &actionJSON, &g.Version,
		&createdAt, &updatedAt, &g.CreatedBy)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan guideline: %w", err)
	}

	g.Category = guideline.Category(category)
	g.Enabled = enabled != 0
	if err := json.Unmarshal([]byte(conditionJSON), &g.Condition); err != nil {
		return nil, fmt.Errorf("decode guideline condition: %w", err)
	}
	if err := json.Unmarshal([]byte(actionJSON), &g.Action); err != nil {
		return nil, fmt.Errorf("decode guideline action: %w", err)
	}
	if g.CreatedAt, err = decodeTime(createdAt); err != nil {
		return nil, err
	}
	if g.UpdatedAt, err = decodeTime(updatedAt); err != nil {
		return nil, err
	}
	return &g, nil
}

func encodePayload(g *guideline.Guideline) (string, string, error) {
	conditionJSON, err := json.Marshal(g.Condition)
	if err != nil {
		return "", "", fmt.Errorf("encode guideline condition: %w", err)
	}
	actionJSON, err := json.Marshal(g.Action)
	if err != nil {
		return "", "", fmt.Errorf("encode guideline action: %w", err)
	}
	return string(conditionJSON), string(actionJSON), nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Compile-time interface verification.
var _ guideline.Store = (*GuidelineStore)(nil)
