package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/Guardrail-Labs/guardrail/internal/domain/audit"
)

// AuditStore implements audit.Store on the shared database.
type AuditStore struct {
	d *DB
}

// NewAuditStore creates the audit adapter over an open database.
func NewAuditStore(d *DB) *AuditStore {
	return &AuditStore{d: d}
}

// execer abstracts *sql.DB and *sql.Tx so guideline mutations can write
// their paired audit row inside their own transaction.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

const insertAuditSQL = `
INSERT INTO audit_log (id, tenant_id, event_type, guideline_id, timestamp, actor, decision, context_json, changes_json)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`

// insertEntry writes one audit row through the given executor.
func insertEntry(ctx context.Context, ex execer, e audit.Entry) error {
	contextJSON, err := encodeJSONMap(e.Context)
	if err != nil {
		return fmt.Errorf("encode audit context: %w", err)
	}
	changesJSON, err := encodeJSONMap(e.Changes)
	if err != nil {
		return fmt.Errorf("encode audit changes: %w", err)
	}
	_, err = ex.ExecContext(ctx, insertAuditSQL,
		e.ID, e.TenantID, string(e.EventType), e.GuidelineID,
		encodeTime(e.Timestamp), e.Actor, e.Decision, contextJSON, changesJSON,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// Append stores one entry.
func (s *AuditStore) Append(ctx context.Context, e audit.Entry) error {
	return insertEntry(ctx, s.d.db, e)
}

// Query returns matching entries for the tenant, newest first, plus the
// total match count before the limit.
func (s *AuditStore) Query(ctx context.Context, tenantID string, f audit.Filter) ([]audit.Entry, int, error) {
	where := "WHERE tenant_id = ?"
	args := []any{tenantID}
	if f.GuidelineID != "" {
		where += " AND guideline_id = ?"
		args = append(args, f.GuidelineID)
	}
	if f.EventType != "" {
		where += " AND event_type = ?"
		args = append(args, string(f.EventType))
	}
	if !f.DateFrom.IsZero() {
		where += " AND timestamp >= ?"
		args = append(args, encodeTime(f.DateFrom))
	}
	if !f.DateTo.IsZero() {
		where += " AND timestamp <= ?"
		args = append(args, encodeTime(f.DateTo))
	}

	var total int
	countSQL := "SELECT COUNT(*) FROM audit_log " + where
	if err := s.d.db.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count audit entries: %w", err)
	}

	querySQL := `SELECT id, tenant_id, event_type, guideline_id, timestamp, actor, decision, context_json, changes_json
FROM audit_log ` + where + " ORDER BY timestamp DESC, id ASC LIMIT ?"
	args = append(args, f.EffectiveLimit())

	rows, err := s.d.db.QueryContext(ctx, querySQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()

	var entries []audit.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, 0, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate audit entries: %w", err)
	}
	return entries, total, nil
}

func scanEntry(rows *sql.Rows) (audit.Entry, error) {
	var (
		e                        audit.Entry
		eventType, ts            string
		contextJSON, changesJSON sql.NullString
	)
	if err := rows.Scan(&e.ID, &e.TenantID, &eventType, &e.GuidelineID, &ts,
		&e.Actor, &e.Decision, &contextJSON, &changesJSON); err != nil {
		return audit.Entry{}, fmt.Errorf("scan audit entry: %w", err)
	}
	e.EventType = audit.EventType(eventType)

	parsed, err := decodeTime(ts)
	if err != nil {
		return audit.Entry{}, err
	}
	e.Timestamp = parsed

	if e.Context, err = decodeJSONMap(contextJSON); err != nil {
		return audit.Entry{}, fmt.Errorf("decode audit context: %w", err)
	}
	if e.Changes, err = decodeJSONMap(changesJSON); err != nil {
		return audit.Entry{}, fmt.Errorf("decode audit changes: %w", err)
	}
	return e, nil
}

func encodeJSONMap(m map[string]any) (any, error) {
	if m == nil {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func decodeJSONMap(s sql.NullString) (map[string]any, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(s.String), &m); err != nil {
		return nil, err
	}
	return m, nil
}

// Compile-time interface verification.
var _ audit.Store = (*AuditStore)(nil)
