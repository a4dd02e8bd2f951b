package guideline

// Canonical condition field names, in reporting order.
const (
	FieldAgents    = "agents"
	FieldDomains   = "domains"
	FieldActions   = "actions"
	FieldPaths     = "paths"
	FieldEvents    = "events"
	FieldGateTypes = "gate_types"
)

// fieldSpec pairs a condition set with the corresponding context scalar.
type fieldSpec struct {
	name  string
	set   []string
	value string
}

// conditionFields returns the condition/context pairs in canonical order
// (agents, domains, actions, paths, events, gate_types). Matching iterates
// this fixed list so MatchedFields is deterministic.
func conditionFields(c Condition, tc TaskContext) []fieldSpec {
	return []fieldSpec{
		{FieldAgents, c.Agents, tc.Agent},
		{FieldDomains, c.Domains, tc.Domain},
		{FieldActions, c.Actions, tc.Action},
		{FieldPaths, c.Paths, tc.Path},
		{FieldEvents, c.Events, tc.Event},
		{FieldGateTypes, c.GateTypes, tc.GateType},
	}
}

// Match evaluates one guideline against one task context.
//
// A disabled guideline never matches. A guideline with no specified
// condition fields is unconditioned and matches everything with score 1.0.
// Otherwise every specified field must contain the corresponding context
// value (AND semantics); a single miss, including an absent context field,
// means no match. MatchScore is the fraction of specified fields that
// overlapped.
func Match(g Guideline, tc TaskContext) MatchResult {
	res := MatchResult{
		GuidelineID:   g.ID,
		GuidelineName: g.Name,
		Priority:      g.Priority,
	}
	if !g.Enabled {
		return res
	}

	specified := 0
	var matched []string
	for _, f := range conditionFields(g.Condition, tc) {
		if len(f.set) == 0 {
			continue
		}
		specified++
		if f.value == "" || !containsString(f.set, f.value) {
			return res
		}
		matched = append(matched, f.name)
	}

	res.Matches = true
	if specified == 0 {
		res.MatchScore = 1.0
		return res
	}
	res.MatchedFields = matched
	res.MatchScore = float64(len(matched)) / float64(specified)
	return res
}

func containsString(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
