package sqlite

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// schema contains the SQL statements creating the guardrail database schema.
// Condition, action, context, and changes are stored as JSON columns;
// timestamps are RFC3339Nano strings in UTC.
const schema = `
CREATE TABLE IF NOT EXISTS guidelines (
    id             TEXT PRIMARY KEY,
    tenant_id      TEXT NOT NULL,
    name           TEXT NOT NULL,
    description    TEXT NOT NULL DEFAULT '',
    category       TEXT NOT NULL,
    priority       INTEGER NOT NULL DEFAULT 0,
    enabled        INTEGER NOT NULL DEFAULT 1,
    condition_json TEXT NOT NULL,
    action_json    TEXT NOT NULL,
    version        INTEGER NOT NULL,
    created_at     TEXT NOT NULL,
    updated_at     TEXT NOT NULL,
    created_by     TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_guidelines_tenant
    ON guidelines(tenant_id);

CREATE INDEX IF NOT EXISTS idx_guidelines_tenant_key
    ON guidelines(tenant_id, name, category);

CREATE TABLE IF NOT EXISTS audit_log (
    id           TEXT PRIMARY KEY,
    tenant_id    TEXT NOT NULL,
    event_type   TEXT NOT NULL,
    guideline_id TEXT NOT NULL DEFAULT '',
    timestamp    TEXT NOT NULL,
    actor        TEXT NOT NULL DEFAULT '',
    decision     TEXT NOT NULL DEFAULT '',
    context_json TEXT,
    changes_json TEXT
);

CREATE INDEX IF NOT EXISTS idx_audit_tenant_ts
    ON audit_log(tenant_id, timestamp);

CREATE TABLE IF NOT EXISTS schema_version (
    version    INTEGER PRIMARY KEY,
    applied_at TEXT NOT NULL
);
`

// insertSchemaVersion records the schema version on first initialization.
const insertSchemaVersion = `
INSERT OR IGNORE INTO schema_version (version, applied_at)
VALUES (?, strftime('%Y-%m-%dT%H:%M:%fZ', 'now'));
`
