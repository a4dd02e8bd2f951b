// Package service contains application services.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/Guardrail-Labs/guardrail/internal/domain/audit"
	"github.com/Guardrail-Labs/guardrail/internal/domain/guideline"
	"github.com/Guardrail-Labs/guardrail/internal/metrics"
)

// List paging bounds.
const (
	// DefaultPageSize is applied when the caller passes no page size.
	DefaultPageSize = 50
	// MaxPageSize is the hard cap on guidelines per page.
	MaxPageSize = 500
)

// CreateRequest carries the input for creating a guideline.
type CreateRequest struct {
	TenantID    string             `json:"tenant_id" validate:"required"`
	Name        string             `json:"name" validate:"required"`
	Description string             `json:"description"`
	Category    guideline.Category `json:"category" validate:"required"`
	Priority    int                `json:"priority" validate:"gte=0"`
	// Enabled defaults to true when nil.
	Enabled   *bool               `json:"enabled"`
	Condition guideline.Condition `json:"condition"`
	Action    guideline.Action    `json:"action"`
	CreatedBy string              `json:"created_by"`
}

// ImportRecord is one record of an import batch. The same structural rules
// as CreateRequest apply; Enabled is carried so exports round-trip.
type ImportRecord struct {
	Name        string              `json:"name" yaml:"name" validate:"required"`
	Description string              `json:"description" yaml:"description"`
	Category    guideline.Category  `json:"category" yaml:"category" validate:"required"`
	Priority    int                 `json:"priority" yaml:"priority" validate:"gte=0"`
	Enabled     *bool               `json:"enabled" yaml:"enabled"`
	Condition   guideline.Condition `json:"condition" yaml:"condition"`
	Action      guideline.Action    `json:"action" yaml:"action"`
}

// ImportError reports one failed import record.
type ImportError struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

// ImportResult summarizes a partial-failure import batch.
type ImportResult struct {
	Imported int           `json:"imported"`
	Errors   []ImportError `json:"errors"`
}

// AdminService provides tenant-scoped CRUD, toggle, import, and export over
// guidelines. Every mutation pairs with exactly one audit entry, committed
// atomically by the store adapter.
type AdminService struct {
	store    guideline.Store
	logger   *slog.Logger
	metrics  *metrics.Metrics
	validate *validator.Validate
}

// NewAdminService creates a new AdminService.
func NewAdminService(store guideline.Store, m *metrics.Metrics, logger *slog.Logger) *AdminService {
	return &AdminService{
		store:    store,
		logger:   logger,
		metrics:  m,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Create validates the request, assigns id and version 1, and persists the
// guideline together with its guideline_created audit entry.
func (s *AdminService) Create(ctx context.Context, req CreateRequest) (*guideline.Guideline, error) {
	if err := s.validateStruct(req); err != nil {
		return nil, err
	}
	if err := validateAction(req.Action); err != nil {
		return nil, err
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	now := time.Now().UTC()
	g := &guideline.Guideline{
		ID:          uuid.New().String(),
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		Priority:    req.Priority,
		Enabled:     enabled,
		Condition:   req.Condition,
		Action:      req.Action,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
		CreatedBy:   req.CreatedBy,
		TenantID:    req.TenantID,
	}

	rec := newEntry(req.TenantID, audit.EventGuidelineCreated, g.ID, req.CreatedBy)
	rec.Changes = map[string]any{
		"name":     g.Name,
		"category": string(g.Category),
		"priority": g.Priority,
	}
	if err := s.store.Create(ctx, g, rec); err != nil {
		return nil, fmt.Errorf("create guideline: %w", err)
	}

	s.metrics.MutationsTotal.WithLabelValues("create").Inc()
	s.logger.Info("guideline created",
		"tenant_id", g.TenantID,
		"guideline_id", g.ID,
		"name", g.Name,
		"category", g.Category,
	)
	return g, nil
}

// Get returns the guideline by id within the tenant.
func (s *AdminService) Get(ctx context.Context, tenantID, id string) (*guideline.Guideline, error) {
	return s.store.Get(ctx, tenantID, id)
}

// Update applies the patch if expectedVersion matches the stored version.
// A stale version surfaces VersionConflictError with the current version.
func (s *AdminService) Update(ctx context.Context, tenantID, id string, patch guideline.Patch, expectedVersion int, actor string) (*guideline.Guideline, error) {
	if patch.IsEmpty() {
		return nil, &guideline.ValidationError{Reason: "patch modifies no fields"}
	}
	if patch.Name != nil && *patch.Name == "" {
		return nil, &guideline.ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if patch.Category != nil && *patch.Category == "" {
		return nil, &guideline.ValidationError{Field: "category", Reason: "must not be empty"}
	}
	if patch.Action != nil {
		if err := validateAction(*patch.Action); err != nil {
			return nil, err
		}
	}

	rec := newEntry(tenantID, audit.EventGuidelineUpdated, id, actor)
	rec.Changes = patch.Changes()
	rec.Context = map[string]any{"previous_version": expectedVersion}

	updated, err := s.store.Update(ctx, tenantID, id, expectedVersion, patch, rec)
	if err != nil {
		return nil, err
	}

	s.metrics.MutationsTotal.WithLabelValues("update").Inc()
	s.logger.Info("guideline updated",
		"tenant_id", tenantID,
		"guideline_id", id,
		"version", updated.Version,
	)
	return updated, nil
}

// Toggle flips the enabled flag.
func (s *AdminService) Toggle(ctx context.Context, tenantID, id, actor string) (*guideline.Guideline, error) {
	rec := newEntry(tenantID, audit.EventGuidelineToggled, id, actor)
	updated, err := s.store.Toggle(ctx, tenantID, id, rec)
	if err != nil {
		return nil, err
	}

	s.metrics.MutationsTotal.WithLabelValues("toggle").Inc()
	s.logger.Info("guideline toggled",
		"tenant_id", tenantID,
		"guideline_id", id,
		"enabled", updated.Enabled,
	)
	return updated, nil
}

// Delete removes the guideline. Its audit trail is retained.
func (s *AdminService) Delete(ctx context.Context, tenantID, id, actor string) error {
	rec := newEntry(tenantID, audit.EventGuidelineDeleted, id, actor)
	if err := s.store.Delete(ctx, tenantID, id, rec); err != nil {
		return err
	}

	s.metrics.MutationsTotal.WithLabelValues("delete").Inc()
	s.logger.Info("guideline deleted", "tenant_id", tenantID, "guideline_id", id)
	return nil
}

// List returns one page of guidelines plus the total count. Page defaults
// to 1, page size to DefaultPageSize, capped at MaxPageSize.
func (s *AdminService) List(ctx context.Context, tenantID string, filter guideline.ListFilter, page, pageSize int) ([]guideline.Guideline, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return s.store.List(ctx, tenantID, filter, page, pageSize)
}

// Export returns all guidelines for the tenant, optionally filtered by
// category, in the stable list order. Records are full and unmasked.
func (s *AdminService) Export(ctx context.Context, tenantID string, category guideline.Category) ([]guideline.Guideline, error) {
	filter := guideline.ListFilter{Category: category}
	var result []guideline.Guideline
	for page := 1; ; page++ {
		batch, total, err := s.store.List(ctx, tenantID, filter, page, MaxPageSize)
		if err != nil {
			return nil, fmt.Errorf("export guidelines: %w", err)
		}
		result = append(result, batch...)
		if len(result) >= total || len(batch) == 0 {
			break
		}
	}
	return result, nil
}

// Import upserts each record independently, keyed by (tenant, name,
// category). Invalid records are collected as {index, reason} and do not
// abort the batch; a failure on one item neither rolls back earlier items
// nor blocks later ones.
func (s *AdminService) Import(ctx context.Context, tenantID string, records []ImportRecord, actor string) (ImportResult, error) {
	result := ImportResult{Errors: []ImportError{}}

	for i, rec := range records {
		if err := s.importOne(ctx, tenantID, rec, actor); err != nil {
			result.Errors = append(result.Errors, ImportError{Index: i, Reason: err.Error()})
			s.metrics.ImportRecordsTotal.WithLabelValues("failed").Inc()
			continue
		}
		result.Imported++
		s.metrics.ImportRecordsTotal.WithLabelValues("imported").Inc()
	}

	s.metrics.MutationsTotal.WithLabelValues("import").Inc()
	s.logger.Info("guideline import finished",
		"tenant_id", tenantID,
		"imported", result.Imported,
		"failed", len(result.Errors),
	)
	return result, nil
}

// importOne validates and upserts a single record.
func (s *AdminService) importOne(ctx context.Context, tenantID string, rec ImportRecord, actor string) error {
	if err := s.validateStruct(rec); err != nil {
		return err
	}
	if err := validateAction(rec.Action); err != nil {
		return err
	}

	existing, err := s.store.FindByKey(ctx, tenantID, rec.Name, rec.Category)
	if err != nil {
		return fmt.Errorf("lookup upsert key: %w", err)
	}

	if existing == nil {
		req := CreateRequest{
			TenantID:    tenantID,
			Name:        rec.Name,
			Description: rec.Description,
			Category:    rec.Category,
			Priority:    rec.Priority,
			Enabled:     rec.Enabled,
			Condition:   rec.Condition,
			Action:      rec.Action,
			CreatedBy:   actor,
		}
		_, err := s.Create(ctx, req)
		return err
	}

	patch := guideline.Patch{
		Description: &rec.Description,
		Priority:    &rec.Priority,
		Condition:   &rec.Condition,
		Action:      &rec.Action,
		Enabled:     rec.Enabled,
	}
	_, err = s.Update(ctx, tenantID, existing.ID, patch, existing.Version, actor)
	return err
}

// validateStruct maps validator errors onto the domain ValidationError.
func (s *AdminService) validateStruct(v any) error {
	err := s.validate.Struct(v)
	if err == nil {
		return nil
	}
	if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
		first := verrs[0]
		return &guideline.ValidationError{
			Field:  first.Field(),
			Reason: fmt.Sprintf("failed %q constraint", first.Tag()),
		}
	}
	return &guideline.ValidationError{Reason: err.Error()}
}

// validateAction checks the action payload is structurally valid for its type.
func validateAction(a guideline.Action) error {
	switch a.Type {
	case guideline.ActionInstruction:
		if a.Instruction == "" {
			return &guideline.ValidationError{Field: "action.instruction", Reason: "required for instruction actions"}
		}
	case guideline.ActionToolPermission:
		if len(a.ToolsAllowed) == 0 && len(a.ToolsDenied) == 0 {
			return &guideline.ValidationError{Field: "action", Reason: "tool_permission actions need tools_allowed or tools_denied"}
		}
	case guideline.ActionHITLGate:
		if a.GateType == "" {
			return &guideline.ValidationError{Field: "action.gate_type", Reason: "required for hitl_gate actions"}
		}
	case "":
		return &guideline.ValidationError{Field: "action.action_type", Reason: "required"}
	default:
		return &guideline.ValidationError{Field: "action.action_type", Reason: fmt.Sprintf("unknown action type %q", a.Type)}
	}
	return nil
}

// newEntry builds an audit entry stamped with a fresh id and UTC time.
func newEntry(tenantID string, eventType audit.EventType, guidelineID, actor string) audit.Entry {
	return audit.Entry{
		ID:          uuid.New().String(),
		TenantID:    tenantID,
		EventType:   eventType,
		GuidelineID: guidelineID,
		Timestamp:   time.Now().UTC(),
		Actor:       actor,
	}
}
