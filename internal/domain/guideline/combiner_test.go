package guideline

import (
	"math/rand"
	"reflect"
	"testing"
)

func evaluated(g Guideline, tc TaskContext) EvaluatedGuideline {
	return EvaluatedGuideline{Guideline: g, Result: Match(g, tc)}
}

func TestCombineEmpty(t *testing.T) {
	policy := Combine(nil)
	if policy.MatchedCount != 0 {
		t.Errorf("MatchedCount = %d, want 0", policy.MatchedCount)
	}
	if policy.CombinedInstruction != "" {
		t.Errorf("CombinedInstruction = %q, want empty", policy.CombinedInstruction)
	}
	// Slices are empty, never nil, so JSON renders [] not null.
	if policy.ToolsAllowed == nil || policy.ToolsDenied == nil || policy.HITLGates == nil {
		t.Error("policy slices must be non-nil")
	}
}

func TestCombinePriorityOrdering(t *testing.T) {
	// Scenario: instruction at priority 100 and a tool denial at priority 50
	// both match agent=backend.
	a := Guideline{
		ID:        "a",
		Name:      "isolate",
		Priority:  100,
		Enabled:   true,
		Condition: Condition{Agents: []string{"backend"}},
		Action:    Action{Type: ActionInstruction, Instruction: "Isolate context"},
	}
	b := Guideline{
		ID:        "b",
		Name:      "no-rm",
		Priority:  50,
		Enabled:   true,
		Condition: Condition{Agents: []string{"backend", "frontend"}},
		Action:    Action{Type: ActionToolPermission, ToolsDenied: []string{"rm -rf"}},
	}
	ctx := TaskContext{Agent: "backend"}

	policy := Combine([]EvaluatedGuideline{evaluated(b, ctx), evaluated(a, ctx)})

	if policy.MatchedCount != 2 {
		t.Fatalf("MatchedCount = %d, want 2", policy.MatchedCount)
	}
	if policy.CombinedInstruction != "Isolate context" {
		t.Errorf("CombinedInstruction = %q", policy.CombinedInstruction)
	}
	if !reflect.DeepEqual(policy.ToolsDenied, []string{"rm -rf"}) {
		t.Errorf("ToolsDenied = %v", policy.ToolsDenied)
	}
	if len(policy.ToolsAllowed) != 0 || len(policy.HITLGates) != 0 {
		t.Errorf("unexpected allow/gates: %v %v", policy.ToolsAllowed, policy.HITLGates)
	}
	if policy.Guidelines[0].GuidelineID != "a" || policy.Guidelines[1].GuidelineID != "b" {
		t.Errorf("higher priority must come first, got %s then %s",
			policy.Guidelines[0].GuidelineID, policy.Guidelines[1].GuidelineID)
	}
}

func TestCombineInstructionJoin(t *testing.T) {
	mk := func(id string, prio int, text string) EvaluatedGuideline {
		g := Guideline{
			ID:       id,
			Priority: prio,
			Enabled:  true,
			Action:   Action{Type: ActionInstruction, Instruction: text},
		}
		return evaluated(g, TaskContext{})
	}

	policy := Combine([]EvaluatedGuideline{
		mk("low", 10, "third"),
		mk("high", 90, "first"),
		mk("mid", 50, "second"),
	})
	want := "first\nsecond\nthird"
	if policy.CombinedInstruction != want {
		t.Errorf("CombinedInstruction = %q, want %q", policy.CombinedInstruction, want)
	}
}

func TestCombineDenyOverridesAllow(t *testing.T) {
	allow := Guideline{
		ID:       "allow",
		Priority: 100,
		Enabled:  true,
		Action:   Action{Type: ActionToolPermission, ToolsAllowed: []string{"git", "make", "rm"}},
	}
	deny := Guideline{
		ID:       "deny",
		Priority: 1,
		Enabled:  true,
		Action:   Action{Type: ActionToolPermission, ToolsDenied: []string{"rm"}},
	}

	policy := Combine([]EvaluatedGuideline{
		evaluated(allow, TaskContext{}),
		evaluated(deny, TaskContext{}),
	})

	if !reflect.DeepEqual(policy.ToolsAllowed, []string{"git", "make"}) {
		t.Errorf("ToolsAllowed = %v, want rm stripped", policy.ToolsAllowed)
	}
	if !reflect.DeepEqual(policy.ToolsDenied, []string{"rm"}) {
		t.Errorf("ToolsDenied = %v", policy.ToolsDenied)
	}
	for _, tool := range policy.ToolsAllowed {
		for _, denied := range policy.ToolsDenied {
			if tool == denied {
				t.Fatalf("tool %q both allowed and denied", tool)
			}
		}
	}
}

func TestCombineGatesFirstSeenDedup(t *testing.T) {
	mk := func(id string, prio int, gate string) EvaluatedGuideline {
		g := Guideline{
			ID:       id,
			Priority: prio,
			Enabled:  true,
			Action:   Action{Type: ActionHITLGate, GateType: gate},
		}
		return evaluated(g, TaskContext{})
	}

	policy := Combine([]EvaluatedGuideline{
		mk("a", 90, "deploy_approval"),
		mk("b", 50, "schema_change"),
		mk("c", 10, "deploy_approval"),
	})
	want := []string{"deploy_approval", "schema_change"}
	if !reflect.DeepEqual(policy.HITLGates, want) {
		t.Errorf("HITLGates = %v, want %v", policy.HITLGates, want)
	}
}

func TestCombineDeterministicUnderPermutation(t *testing.T) {
	input := []EvaluatedGuideline{
		evaluated(Guideline{ID: "a", Priority: 50, Enabled: true,
			Action: Action{Type: ActionInstruction, Instruction: "alpha"}}, TaskContext{}),
		evaluated(Guideline{ID: "b", Priority: 50, Enabled: true,
			Action: Action{Type: ActionInstruction, Instruction: "beta"}}, TaskContext{}),
		evaluated(Guideline{ID: "c", Priority: 90, Enabled: true,
			Action: Action{Type: ActionToolPermission, ToolsAllowed: []string{"git"}}}, TaskContext{}),
		evaluated(Guideline{ID: "d", Priority: 10, Enabled: true,
			Action: Action{Type: ActionHITLGate, GateType: "deploy"}}, TaskContext{}),
	}
	want := Combine(input)

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 25; i++ {
		shuffled := make([]EvaluatedGuideline, len(input))
		copy(shuffled, input)
		rng.Shuffle(len(shuffled), func(a, b int) {
			shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
		})
		got := Combine(shuffled)
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("permutation %d changed the policy:\ngot  %+v\nwant %+v", i, got, want)
		}
	}

	// Equal priority ties break on id ascending.
	if want.CombinedInstruction != "alpha\nbeta" {
		t.Errorf("tie-break by id failed: %q", want.CombinedInstruction)
	}
}

func TestCombineIgnoresNonMatches(t *testing.T) {
	miss := Guideline{
		ID:        "miss",
		Priority:  999,
		Enabled:   true,
		Condition: Condition{Agents: []string{"backend"}},
		Action:    Action{Type: ActionInstruction, Instruction: "never seen"},
	}
	hit := Guideline{
		ID:      "hit",
		Enabled: true,
		Action:  Action{Type: ActionInstruction, Instruction: "seen"},
	}
	ctx := TaskContext{Agent: "frontend"}

	policy := Combine([]EvaluatedGuideline{evaluated(miss, ctx), evaluated(hit, ctx)})
	if policy.MatchedCount != 1 {
		t.Fatalf("MatchedCount = %d, want 1", policy.MatchedCount)
	}
	if policy.CombinedInstruction != "seen" {
		t.Errorf("CombinedInstruction = %q", policy.CombinedInstruction)
	}
}
