// Package audit contains domain types for the append-only audit trail.
package audit

import "time"

// EventType categorizes audit entries.
type EventType string

const (
	// EventGuidelineCreated records a successful create.
	EventGuidelineCreated EventType = "guideline_created"
	// EventGuidelineUpdated records a successful patch update.
	EventGuidelineUpdated EventType = "guideline_updated"
	// EventGuidelineDeleted records a delete. The entry outlives the record.
	EventGuidelineDeleted EventType = "guideline_deleted"
	// EventGuidelineToggled records an enabled-flag flip.
	EventGuidelineToggled EventType = "guideline_toggled"
	// EventEvaluation records a policy evaluation decision (optional,
	// enabled by configuration).
	EventEvaluation EventType = "evaluation"
)

// Entry is a single audit record. Entries are append-only: they are never
// rewritten and never purged by guideline deletion.
type Entry struct {
	// ID is the unique identifier of this entry.
	ID string `json:"id"`
	// TenantID scopes the entry; entries never cross tenants.
	TenantID string `json:"tenant_id"`
	// EventType categorizes the entry.
	EventType EventType `json:"event_type"`
	// GuidelineID references the affected guideline (empty for evaluations).
	GuidelineID string `json:"guideline_id,omitempty"`
	// Timestamp is when the event occurred (UTC).
	Timestamp time.Time `json:"timestamp"`
	// Actor identifies who triggered the mutation, when known.
	Actor string `json:"actor,omitempty"`
	// Decision summarizes an evaluation outcome (e.g. "matched=2").
	Decision string `json:"decision,omitempty"`
	// Context carries supplementary detail: the evaluated task context, or
	// the pre-mutation state on updates.
	Context map[string]any `json:"context,omitempty"`
	// Changes is the delta of modified fields (field name to new value).
	Changes map[string]any `json:"changes,omitempty"`
}

// Filter narrows audit queries. Zero values impose no constraint.
type Filter struct {
	// GuidelineID filters by affected guideline.
	GuidelineID string
	// EventType filters by entry category.
	EventType EventType
	// DateFrom is the inclusive lower bound on Timestamp.
	DateFrom time.Time
	// DateTo is the inclusive upper bound on Timestamp.
	DateTo time.Time
	// Limit caps the number of returned entries (default 100, max 1000).
	Limit int
}
