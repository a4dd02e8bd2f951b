package sqlite

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/Guardrail-Labs/guardrail/internal/domain/audit"
	"github.com/Guardrail-Labs/guardrail/internal/domain/guideline"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	d, err := Open(DefaultConfig(filepath.Join(t.TempDir(), "test.db")), logger)
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() {
		if err := d.Close(); err != nil {
			t.Errorf("close test database: %v", err)
		}
	})
	return d
}

func testGuideline(id, tenant string, priority int) *guideline.Guideline {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &guideline.Guideline{
		ID:        id,
		Name:      "g-" + id,
		Category:  guideline.CategoryCustom,
		Priority:  priority,
		Enabled:   true,
		Condition: guideline.Condition{Agents: []string{"backend"}},
		Action:    guideline.Action{Type: guideline.ActionInstruction, Instruction: "text"},
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
		TenantID:  tenant,
	}
}

func testEntry(tenant string, event audit.EventType, guidelineID string) audit.Entry {
	return audit.Entry{
		ID:          "audit-" + guidelineID + "-" + string(event),
		TenantID:    tenant,
		EventType:   event,
		GuidelineID: guidelineID,
		Timestamp:   time.Now().UTC(),
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	path := filepath.Join(t.TempDir(), "reopen.db")

	d, err := Open(DefaultConfig(path), logger)
	if err != nil {
		t.Fatal(err)
	}
	if err := d.Close(); err != nil {
		t.Fatal(err)
	}

	// Reopening an existing database must not fail on the schema DDL.
	d, err = Open(DefaultConfig(path), logger)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer d.Close()
}

func TestGuidelineRoundTrip(t *testing.T) {
	ctx := context.Background()
	d := openTestDB(t)
	store := NewGuidelineStore(d)

	g := testGuideline("g1", "acme", 10)
	g.Condition.Paths = []string{"src/billing"}
	g.Action = guideline.Action{
		Type:         guideline.ActionToolPermission,
		ToolsAllowed: []string{"git"},
		ToolsDenied:  []string{"rm -rf"},
	}
	if err := store.Create(ctx, g, testEntry("acme", audit.EventGuidelineCreated, "g1")); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	got, err := store.Get(ctx, "acme", "g1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Name != "g-g1" || got.Version != 1 || !got.Enabled {
		t.Errorf("scalar fields: %+v", got)
	}
	if len(got.Condition.Agents) != 1 || got.Condition.Agents[0] != "backend" ||
		len(got.Condition.Paths) != 1 || got.Condition.Paths[0] != "src/billing" {
		t.Errorf("condition round trip: %+v", got.Condition)
	}
	if got.Action.Type != guideline.ActionToolPermission ||
		len(got.Action.ToolsDenied) != 1 || got.Action.ToolsDenied[0] != "rm -rf" {
		t.Errorf("action round trip: %+v", got.Action)
	}
	if !got.CreatedAt.Equal(g.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, g.CreatedAt)
	}
}

func TestGuidelineGetErrors(t *testing.T) {
	ctx := context.Background()
	d := openTestDB(t)
	store := NewGuidelineStore(d)
	if err := store.Create(ctx, testGuideline("g1", "acme", 0), testEntry("acme", audit.EventGuidelineCreated, "g1")); err != nil {
		t.Fatal(err)
	}

	var nf *guideline.NotFoundError
	if _, err := store.Get(ctx, "acme", "missing"); !errors.As(err, &nf) {
		t.Errorf("want NotFoundError, got %v", err)
	}
	var tm *guideline.TenantMismatchError
	if _, err := store.Get(ctx, "other", "g1"); !errors.As(err, &tm) {
		t.Errorf("want TenantMismatchError, got %v", err)
	}
}

func TestGuidelineUpdateCAS(t *testing.T) {
	ctx := context.Background()
	d := openTestDB(t)
	store := NewGuidelineStore(d)
	if err := store.Create(ctx, testGuideline("g1", "acme", 10), testEntry("acme", audit.EventGuidelineCreated, "g1")); err != nil {
		t.Fatal(err)
	}

	name := "renamed"
	updated, err := store.Update(ctx, "acme", "g1", 1, guideline.Patch{Name: &name},
		testEntry("acme", audit.EventGuidelineUpdated, "g1"))
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.Version != 2 || updated.Name != "renamed" {
		t.Errorf("updated: %+v", updated)
	}

	// The stale version conflicts and nothing changes, including the
	// audit trail.
	_, preTotal, err := NewAuditStore(d).Query(ctx, "acme", audit.Filter{})
	if err != nil {
		t.Fatal(err)
	}
	stale := "stale"
	_, err = store.Update(ctx, "acme", "g1", 1, guideline.Patch{Name: &stale},
		testEntry("acme", audit.EventGuidelineUpdated, "g1"))
	var vc *guideline.VersionConflictError
	if !errors.As(err, &vc) {
		t.Fatalf("want VersionConflictError, got %v", err)
	}
	if vc.Current != 2 {
		t.Errorf("conflict Current = %d, want 2", vc.Current)
	}

	current, _ := store.Get(ctx, "acme", "g1")
	if current.Name != "renamed" || current.Version != 2 {
		t.Errorf("record changed after conflict: %+v", current)
	}
	_, postTotal, err := NewAuditStore(d).Query(ctx, "acme", audit.Filter{})
	if err != nil {
		t.Fatal(err)
	}
	if postTotal != preTotal {
		t.Errorf("audit entries grew on a failed update: %d -> %d", preTotal, postTotal)
	}
}

func TestGuidelineToggleWritesAudit(t *testing.T) {
	ctx := context.Background()
	d := openTestDB(t)
	store := NewGuidelineStore(d)
	auditStore := NewAuditStore(d)
	if err := store.Create(ctx, testGuideline("g1", "acme", 0), testEntry("acme", audit.EventGuidelineCreated, "g1")); err != nil {
		t.Fatal(err)
	}

	g, err := store.Toggle(ctx, "acme", "g1", testEntry("acme", audit.EventGuidelineToggled, "g1"))
	if err != nil {
		t.Fatalf("Toggle failed: %v", err)
	}
	if g.Enabled || g.Version != 2 {
		t.Errorf("after toggle: enabled=%v version=%d", g.Enabled, g.Version)
	}

	entries, _, err := auditStore.Query(ctx, "acme", audit.Filter{EventType: audit.EventGuidelineToggled})
	if err != nil || len(entries) != 1 {
		t.Fatalf("toggle audit: err=%v len=%d", err, len(entries))
	}
	if enabled, ok := entries[0].Changes["enabled"].(bool); !ok || enabled {
		t.Errorf("toggle audit changes = %v", entries[0].Changes)
	}
}

func TestGuidelineDeleteKeepsAudit(t *testing.T) {
	ctx := context.Background()
	d := openTestDB(t)
	store := NewGuidelineStore(d)
	auditStore := NewAuditStore(d)
	if err := store.Create(ctx, testGuideline("g1", "acme", 0), testEntry("acme", audit.EventGuidelineCreated, "g1")); err != nil {
		t.Fatal(err)
	}

	if err := store.Delete(ctx, "acme", "g1", testEntry("acme", audit.EventGuidelineDeleted, "g1")); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	var nf *guideline.NotFoundError
	if _, err := store.Get(ctx, "acme", "g1"); !errors.As(err, &nf) {
		t.Errorf("want NotFoundError after delete, got %v", err)
	}

	_, total, err := auditStore.Query(ctx, "acme", audit.Filter{GuidelineID: "g1"})
	if err != nil {
		t.Fatal(err)
	}
	if total != 2 {
		t.Errorf("audit total after delete = %d, want 2", total)
	}
}

func TestGuidelineListOrderFiltersPaging(t *testing.T) {
	ctx := context.Background()
	d := openTestDB(t)
	store := NewGuidelineStore(d)

	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	seed := []struct {
		id       string
		priority int
		category guideline.Category
		enabled  bool
	}{
		{"g0", 10, guideline.CategoryCustom, true},
		{"g1", 90, guideline.CategoryTDDProtocol, true},
		{"g2", 50, guideline.CategoryCustom, false},
		{"g3", 90, guideline.CategoryCustom, true},
	}
	for i, s := range seed {
		g := testGuideline(s.id, "acme", s.priority)
		g.Category = s.category
		g.Enabled = s.enabled
		g.CreatedAt = base.Add(time.Duration(i) * time.Second)
		g.UpdatedAt = g.CreatedAt
		if err := store.Create(ctx, g, testEntry("acme", audit.EventGuidelineCreated, s.id)); err != nil {
			t.Fatal(err)
		}
	}
	if err := store.Create(ctx, testGuideline("gx", "other", 999), testEntry("other", audit.EventGuidelineCreated, "gx")); err != nil {
		t.Fatal(err)
	}

	items, total, err := store.List(ctx, "acme", guideline.ListFilter{}, 1, 10)
	if err != nil {
		t.Fatal(err)
	}
	if total != 4 {
		t.Fatalf("total = %d, want 4", total)
	}
	wantOrder := []string{"g1", "g3", "g2", "g0"}
	for i, want := range wantOrder {
		if items[i].ID != want {
			t.Errorf("position %d = %s, want %s", i, items[i].ID, want)
		}
	}

	page2, total, err := store.List(ctx, "acme", guideline.ListFilter{}, 2, 3)
	if err != nil || total != 4 || len(page2) != 1 || page2[0].ID != "g0" {
		t.Errorf("page 2: err=%v total=%d items=%v", err, total, page2)
	}

	byCat, total, err := store.List(ctx, "acme", guideline.ListFilter{Category: guideline.CategoryTDDProtocol}, 1, 10)
	if err != nil || total != 1 || byCat[0].ID != "g1" {
		t.Errorf("category filter: err=%v total=%d", err, total)
	}

	disabled := false
	byEnabled, total, err := store.List(ctx, "acme", guideline.ListFilter{Enabled: &disabled}, 1, 10)
	if err != nil || total != 1 || byEnabled[0].ID != "g2" {
		t.Errorf("enabled filter: err=%v total=%d", err, total)
	}
}

func TestGuidelineFindByKey(t *testing.T) {
	ctx := context.Background()
	d := openTestDB(t)
	store := NewGuidelineStore(d)
	if err := store.Create(ctx, testGuideline("g1", "acme", 0), testEntry("acme", audit.EventGuidelineCreated, "g1")); err != nil {
		t.Fatal(err)
	}

	found, err := store.FindByKey(ctx, "acme", "g-g1", guideline.CategoryCustom)
	if err != nil || found == nil || found.ID != "g1" {
		t.Errorf("FindByKey hit: %v, %v", found, err)
	}
	missing, err := store.FindByKey(ctx, "acme", "g-g1", guideline.CategoryTDDProtocol)
	if err != nil || missing != nil {
		t.Errorf("FindByKey miss must be (nil, nil), got %v, %v", missing, err)
	}
}

func TestAuditQueryFiltersAndLimit(t *testing.T) {
	ctx := context.Background()
	d := openTestDB(t)
	store := NewAuditStore(d)

	base := time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC)
	seed := []audit.Entry{
		{ID: "e1", TenantID: "acme", EventType: audit.EventGuidelineCreated, GuidelineID: "g1", Timestamp: base,
			Changes: map[string]any{"priority": float64(10)}},
		{ID: "e2", TenantID: "acme", EventType: audit.EventGuidelineUpdated, GuidelineID: "g1", Timestamp: base.AddDate(0, 0, 2)},
		{ID: "e3", TenantID: "acme", EventType: audit.EventEvaluation, Timestamp: base.AddDate(0, 0, 4),
			Decision: "matched=2", Context: map[string]any{"agent": "backend"}},
		{ID: "e4", TenantID: "other", EventType: audit.EventGuidelineCreated, GuidelineID: "gx", Timestamp: base},
	}
	for _, e := range seed {
		if err := store.Append(ctx, e); err != nil {
			t.Fatal(err)
		}
	}

	all, total, err := store.Query(ctx, "acme", audit.Filter{})
	if err != nil {
		t.Fatal(err)
	}
	if total != 3 || len(all) != 3 {
		t.Fatalf("tenant query: total=%d len=%d, want 3", total, len(all))
	}
	if all[0].ID != "e3" || all[2].ID != "e1" {
		t.Errorf("order: %s .. %s, want newest first", all[0].ID, all[2].ID)
	}
	if all[0].Decision != "matched=2" || all[0].Context["agent"] != "backend" {
		t.Errorf("evaluation payload round trip: %+v", all[0])
	}
	if all[2].Changes["priority"] != float64(10) {
		t.Errorf("changes round trip: %v", all[2].Changes)
	}

	byGuideline, total, err := store.Query(ctx, "acme", audit.Filter{GuidelineID: "g1"})
	if err != nil || total != 2 || byGuideline[0].ID != "e2" {
		t.Errorf("guideline filter: err=%v total=%d", err, total)
	}

	window, total, err := store.Query(ctx, "acme", audit.Filter{
		DateFrom: base.AddDate(0, 0, 1),
		DateTo:   base.AddDate(0, 0, 3),
	})
	if err != nil || total != 1 || window[0].ID != "e2" {
		t.Errorf("date window: err=%v total=%d", err, total)
	}

	limited, total, err := store.Query(ctx, "acme", audit.Filter{Limit: 2})
	if err != nil || len(limited) != 2 || total != 3 {
		t.Errorf("limit: err=%v len=%d total=%d", err, len(limited), total)
	}
}
