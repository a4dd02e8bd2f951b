package guideline

import (
	"reflect"
	"testing"
)

func TestMatchDisabledNeverMatches(t *testing.T) {
	g := Guideline{
		ID:        "g1",
		Name:      "disabled",
		Enabled:   false,
		Condition: Condition{Agents: []string{"backend"}},
	}

	contexts := []TaskContext{
		{},
		{Agent: "backend"},
		{Agent: "backend", Domain: "payments", Action: "write_code"},
	}
	for _, tc := range contexts {
		res := Match(g, tc)
		if res.Matches {
			t.Errorf("disabled guideline matched context %+v", tc)
		}
		if res.MatchScore != 0 {
			t.Errorf("disabled guideline got score %v, want 0", res.MatchScore)
		}
	}
}

func TestMatchUnconditionedMatchesEverything(t *testing.T) {
	g := Guideline{ID: "g1", Name: "always", Enabled: true}

	for _, tc := range []TaskContext{{}, {Agent: "backend"}, {Event: "pre_commit"}} {
		res := Match(g, tc)
		if !res.Matches {
			t.Errorf("unconditioned guideline did not match %+v", tc)
		}
		if res.MatchScore != 1.0 {
			t.Errorf("unconditioned score = %v, want 1.0", res.MatchScore)
		}
		if len(res.MatchedFields) != 0 {
			t.Errorf("unconditioned MatchedFields = %v, want empty", res.MatchedFields)
		}
	}
}

func TestMatchANDSemantics(t *testing.T) {
	tests := []struct {
		name        string
		condition   Condition
		ctx         TaskContext
		wantMatch   bool
		wantScore   float64
		wantMatched []string
	}{
		{
			name:        "single field hit",
			condition:   Condition{Agents: []string{"backend"}},
			ctx:         TaskContext{Agent: "backend"},
			wantMatch:   true,
			wantScore:   1.0,
			wantMatched: []string{"agents"},
		},
		{
			name:      "single field miss",
			condition: Condition{Agents: []string{"backend"}},
			ctx:       TaskContext{Agent: "frontend"},
			wantMatch: false,
		},
		{
			name:      "specified field absent from context",
			condition: Condition{Agents: []string{"backend"}},
			ctx:       TaskContext{Domain: "payments"},
			wantMatch: false,
		},
		{
			name: "all specified fields must hit",
			condition: Condition{
				Agents:  []string{"backend"},
				Domains: []string{"payments"},
			},
			ctx:       TaskContext{Agent: "backend", Domain: "inventory"},
			wantMatch: false,
		},
		{
			name: "two of two hit",
			condition: Condition{
				Agents: []string{"backend", "frontend"},
				Events: []string{"pre_commit", "pre_deploy"},
			},
			ctx:         TaskContext{Agent: "frontend", Event: "pre_deploy"},
			wantMatch:   true,
			wantScore:   1.0,
			wantMatched: []string{"agents", "events"},
		},
		{
			name:      "unspecified fields impose no constraint",
			condition: Condition{Paths: []string{"src/billing"}},
			ctx:       TaskContext{Agent: "anything", Path: "src/billing", GateType: "deploy"},
			wantMatch: true,
			wantScore: 1.0,
			wantMatched: []string{
				"paths",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := Guideline{ID: "g", Name: tt.name, Enabled: true, Condition: tt.condition}
			res := Match(g, tt.ctx)
			if res.Matches != tt.wantMatch {
				t.Fatalf("Matches = %v, want %v", res.Matches, tt.wantMatch)
			}
			if !tt.wantMatch {
				return
			}
			if res.MatchScore != tt.wantScore {
				t.Errorf("MatchScore = %v, want %v", res.MatchScore, tt.wantScore)
			}
			if !reflect.DeepEqual(res.MatchedFields, tt.wantMatched) {
				t.Errorf("MatchedFields = %v, want %v", res.MatchedFields, tt.wantMatched)
			}
		})
	}
}

func TestMatchedFieldsCanonicalOrder(t *testing.T) {
	g := Guideline{
		ID:      "g1",
		Enabled: true,
		Condition: Condition{
			GateTypes: []string{"deploy"},
			Agents:    []string{"backend"},
			Events:    []string{"pre_deploy"},
		},
	}
	ctx := TaskContext{Agent: "backend", Event: "pre_deploy", GateType: "deploy"}

	res := Match(g, ctx)
	if !res.Matches {
		t.Fatal("expected match")
	}
	want := []string{"agents", "events", "gate_types"}
	if !reflect.DeepEqual(res.MatchedFields, want) {
		t.Errorf("MatchedFields = %v, want canonical order %v", res.MatchedFields, want)
	}
}

func TestMatchCarriesIdentity(t *testing.T) {
	g := Guideline{ID: "id-7", Name: "named", Priority: 42, Enabled: true}
	res := Match(g, TaskContext{})
	if res.GuidelineID != "id-7" || res.GuidelineName != "named" || res.Priority != 42 {
		t.Errorf("identity not carried: %+v", res)
	}
}
