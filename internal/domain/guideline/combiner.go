package guideline

import (
	"sort"
	"strings"
)

// Combine merges match results into a single effective policy.
//
// Entries with Matches=false are ignored. Matches are ordered by priority
// descending with guideline id ascending as the tie-break, so the output is
// identical for any permutation of the input. Instruction text is joined by
// newline in that order, tool lists are unioned with deny overriding allow,
// and HITL gates keep first-seen order. Pure function: no I/O, no mutation
// of its input.
func Combine(evaluated []EvaluatedGuideline) EffectivePolicy {
	matched := make([]EvaluatedGuideline, 0, len(evaluated))
	for _, e := range evaluated {
		if e.Result.Matches {
			matched = append(matched, e)
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].Guideline.Priority != matched[j].Guideline.Priority {
			return matched[i].Guideline.Priority > matched[j].Guideline.Priority
		}
		return matched[i].Guideline.ID < matched[j].Guideline.ID
	})

	policy := EffectivePolicy{
		MatchedCount: len(matched),
		ToolsAllowed: []string{},
		ToolsDenied:  []string{},
		HITLGates:    []string{},
		Guidelines:   make([]MatchResult, 0, len(matched)),
	}

	var instructions []string
	seenAllowed := make(map[string]struct{})
	seenDenied := make(map[string]struct{})
	seenGates := make(map[string]struct{})

	for _, e := range matched {
		policy.Guidelines = append(policy.Guidelines, e.Result)

		action := e.Guideline.Action
		switch action.Type {
		case ActionInstruction:
			if action.Instruction != "" {
				instructions = append(instructions, action.Instruction)
			}
		case ActionToolPermission:
			for _, tool := range action.ToolsAllowed {
				if _, ok := seenAllowed[tool]; !ok {
					seenAllowed[tool] = struct{}{}
					policy.ToolsAllowed = append(policy.ToolsAllowed, tool)
				}
			}
		case ActionHITLGate:
			if action.GateType != "" {
				if _, ok := seenGates[action.GateType]; !ok {
					seenGates[action.GateType] = struct{}{}
					policy.HITLGates = append(policy.HITLGates, action.GateType)
				}
			}
		}

		// Denied tools accumulate from every match regardless of action type.
		for _, tool := range action.ToolsDenied {
			if _, ok := seenDenied[tool]; !ok {
				seenDenied[tool] = struct{}{}
				policy.ToolsDenied = append(policy.ToolsDenied, tool)
			}
		}
	}

	policy.CombinedInstruction = strings.Join(instructions, "\n")

	// Deny overrides allow: a denied tool never appears in the effective
	// allow list, whatever the priorities involved.
	if len(policy.ToolsDenied) > 0 && len(policy.ToolsAllowed) > 0 {
		allowed := policy.ToolsAllowed[:0]
		for _, tool := range policy.ToolsAllowed {
			if _, denied := seenDenied[tool]; !denied {
				allowed = append(allowed, tool)
			}
		}
		policy.ToolsAllowed = allowed
	}

	return policy
}
