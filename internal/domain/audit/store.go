package audit

import "context"

// Query limits. Callers asking for more get the cap, not an error.
const (
	// DefaultQueryLimit is applied when Filter.Limit is zero or negative.
	DefaultQueryLimit = 100
	// MaxQueryLimit is the hard cap on entries per query.
	MaxQueryLimit = 1000
)

// Store persists audit entries. Append is synchronous: guideline mutations
// pair with their entry inside the store adapter's transaction, so Append is
// used directly only for standalone entries such as evaluation records.
type Store interface {
	// Append stores one entry. An error means the entry was not written.
	Append(ctx context.Context, e Entry) error

	// Query returns entries for the tenant matching the filter, newest
	// first, plus the total number of matches before the limit was applied.
	// Read-only; never blocks writers.
	Query(ctx context.Context, tenantID string, f Filter) ([]Entry, int, error)
}

// EffectiveLimit resolves the filter's limit against the defaults.
func (f Filter) EffectiveLimit() int {
	if f.Limit <= 0 {
		return DefaultQueryLimit
	}
	if f.Limit > MaxQueryLimit {
		return MaxQueryLimit
	}
	return f.Limit
}

// Matches reports whether the entry satisfies the filter.
func (f Filter) Matches(e Entry) bool {
	if f.GuidelineID != "" && e.GuidelineID != f.GuidelineID {
		return false
	}
	if f.EventType != "" && e.EventType != f.EventType {
		return false
	}
	if !f.DateFrom.IsZero() && e.Timestamp.Before(f.DateFrom) {
		return false
	}
	if !f.DateTo.IsZero() && e.Timestamp.After(f.DateTo) {
		return false
	}
	return true
}
