package cmd

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Guardrail-Labs/guardrail/internal/domain/guideline"
	"github.com/Guardrail-Labs/guardrail/internal/service"
)

func TestDecodeFileYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "guideline.yaml")
	doc := `name: no-secrets
category: custom
priority: 100
condition:
  domains: [backend]
action:
  action_type: instruction
  instruction: Never read production secrets.
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	var rec service.ImportRecord
	if err := decodeFile(path, &rec); err != nil {
		t.Fatalf("decodeFile failed: %v", err)
	}
	if rec.Name != "no-secrets" || rec.Category != guideline.CategoryCustom || rec.Priority != 100 {
		t.Errorf("scalars: %+v", rec)
	}
	if len(rec.Condition.Domains) != 1 || rec.Condition.Domains[0] != "backend" {
		t.Errorf("condition: %+v", rec.Condition)
	}
	if rec.Action.Type != guideline.ActionInstruction {
		t.Errorf("action: %+v", rec.Action)
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	enabled := false
	records := []service.ImportRecord{{
		Name:     "rule",
		Category: guideline.CategoryTDDProtocol,
		Priority: 7,
		Enabled:  &enabled,
		Action:   guideline.Action{Type: guideline.ActionHITLGate, GateType: "deploy"},
	}}

	for _, ext := range []string{".yaml", ".json"} {
		path := filepath.Join(t.TempDir(), "out"+ext)
		if err := encodeFile(path, records); err != nil {
			t.Fatalf("encodeFile(%s): %v", ext, err)
		}

		var got []service.ImportRecord
		if err := decodeFile(path, &got); err != nil {
			t.Fatalf("decodeFile(%s): %v", ext, err)
		}
		if len(got) != 1 || got[0].Name != "rule" || got[0].Action.GateType != "deploy" {
			t.Errorf("%s round trip: %+v", ext, got)
		}
		if got[0].Enabled == nil || *got[0].Enabled {
			t.Errorf("%s round trip lost enabled=false", ext)
		}
	}
}

func TestParseTimeFlag(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Time
		wantErr bool
	}{
		{"", time.Time{}, false},
		{"2026-08-01", time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), false},
		{"2026-08-01T12:30:00Z", time.Date(2026, 8, 1, 12, 30, 0, 0, time.UTC), false},
		{"yesterday", time.Time{}, true},
	}
	for _, tt := range tests {
		got, err := parseTimeFlag(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("parseTimeFlag(%q): want error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseTimeFlag(%q): %v", tt.in, err)
			continue
		}
		if !got.Equal(tt.want) {
			t.Errorf("parseTimeFlag(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
