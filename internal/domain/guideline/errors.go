package guideline

import "fmt"

// ValidationError reports malformed input on create, update, or import.
type ValidationError struct {
	// Field is the offending field, empty when the problem spans fields.
	Field string
	// Reason is a human-readable explanation suitable for the caller.
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation failed: %s", e.Reason)
	}
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

// NotFoundError reports an unknown guideline id within the tenant.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("guideline %s not found", e.ID)
}

// VersionConflictError reports a stale expected version on update.
// Current carries the stored version so the caller can refetch and retry.
type VersionConflictError struct {
	ID       string
	Expected int
	Current  int
}

func (e *VersionConflictError) Error() string {
	return fmt.Sprintf("guideline %s version conflict: expected %d, current %d",
		e.ID, e.Expected, e.Current)
}

// TenantMismatchError reports an attempt to access a guideline belonging to
// another tenant. Cross-tenant access is an error, never a silent miss.
type TenantMismatchError struct {
	ID       string
	TenantID string
}

func (e *TenantMismatchError) Error() string {
	return fmt.Sprintf("guideline %s does not belong to tenant %s", e.ID, e.TenantID)
}
