// Package guideline contains domain types for guardrail guideline evaluation.
package guideline

import "time"

// Category tags a guideline with the protocol family it belongs to.
type Category string

// Well-known categories. The set is open: custom categories are allowed
// as long as they are non-empty.
const (
	// CategoryCognitiveIsolation groups guidelines that keep agent contexts separated.
	CategoryCognitiveIsolation Category = "cognitive_isolation"
	// CategoryTDDProtocol groups guidelines enforcing test-first workflows.
	CategoryTDDProtocol Category = "tdd_protocol"
	// CategoryCustom is the catch-all for operator-defined guidelines.
	CategoryCustom Category = "custom"
)

// ActionType identifies what a matching guideline contributes to the
// effective policy.
type ActionType string

const (
	// ActionInstruction contributes instruction text for the agent.
	ActionInstruction ActionType = "instruction"
	// ActionToolPermission contributes tool allow/deny lists.
	ActionToolPermission ActionType = "tool_permission"
	// ActionHITLGate contributes a human-in-the-loop gate trigger.
	ActionHITLGate ActionType = "hitl_gate"
)

// Condition is the set of optional context constraints a guideline requires
// to match. An empty field is a wildcard; a populated field constrains
// matching to contexts whose corresponding value is a member of the set.
// Modeled as a closed struct so matching stays an exhaustively testable
// function.
type Condition struct {
	Agents    []string `json:"agents,omitempty" yaml:"agents,omitempty"`
	Domains   []string `json:"domains,omitempty" yaml:"domains,omitempty"`
	Actions   []string `json:"actions,omitempty" yaml:"actions,omitempty"`
	Paths     []string `json:"paths,omitempty" yaml:"paths,omitempty"`
	Events    []string `json:"events,omitempty" yaml:"events,omitempty"`
	GateTypes []string `json:"gate_types,omitempty" yaml:"gate_types,omitempty"`
}

// IsEmpty reports whether no condition field is specified (unconditioned
// guideline, matches everything).
func (c Condition) IsEmpty() bool {
	return len(c.Agents) == 0 && len(c.Domains) == 0 && len(c.Actions) == 0 &&
		len(c.Paths) == 0 && len(c.Events) == 0 && len(c.GateTypes) == 0
}

// Action is the effect a matching guideline contributes. Payload fields are
// interpreted according to Type.
type Action struct {
	// Type selects which payload fields are meaningful.
	Type ActionType `json:"action_type" yaml:"action_type"`
	// Instruction is the text contributed when Type is ActionInstruction.
	Instruction string `json:"instruction,omitempty" yaml:"instruction,omitempty"`
	// ToolsAllowed lists tool identifiers permitted when Type is ActionToolPermission.
	ToolsAllowed []string `json:"tools_allowed,omitempty" yaml:"tools_allowed,omitempty"`
	// ToolsDenied lists tool identifiers blocked when Type is ActionToolPermission.
	ToolsDenied []string `json:"tools_denied,omitempty" yaml:"tools_denied,omitempty"`
	// GateType names the approval checkpoint when Type is ActionHITLGate.
	GateType string `json:"gate_type,omitempty" yaml:"gate_type,omitempty"`
}

// Guideline is a versioned rule with a condition and an action, scoped to a
// tenant. Version starts at 1 and increments by exactly one on every
// successful mutation.
type Guideline struct {
	ID          string    `json:"id" yaml:"id"`
	Name        string    `json:"name" yaml:"name"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	Category    Category  `json:"category" yaml:"category"`
	Priority    int       `json:"priority" yaml:"priority"`
	Enabled     bool      `json:"enabled" yaml:"enabled"`
	Condition   Condition `json:"condition" yaml:"condition"`
	Action      Action    `json:"action" yaml:"action"`
	Version     int       `json:"version" yaml:"version"`
	CreatedAt   time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" yaml:"updated_at"`
	CreatedBy   string    `json:"created_by,omitempty" yaml:"created_by,omitempty"`
	TenantID    string    `json:"tenant_id" yaml:"tenant_id"`
}

// Clone returns a deep copy so stored records cannot be mutated through
// returned pointers.
func (g *Guideline) Clone() *Guideline {
	dup := *g
	dup.Condition = Condition{
		Agents:    cloneStrings(g.Condition.Agents),
		Domains:   cloneStrings(g.Condition.Domains),
		Actions:   cloneStrings(g.Condition.Actions),
		Paths:     cloneStrings(g.Condition.Paths),
		Events:    cloneStrings(g.Condition.Events),
		GateTypes: cloneStrings(g.Condition.GateTypes),
	}
	dup.Action.ToolsAllowed = cloneStrings(g.Action.ToolsAllowed)
	dup.Action.ToolsDenied = cloneStrings(g.Action.ToolsDenied)
	return &dup
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s...)
}

// TaskContext is the runtime input to evaluation. Each field is optional;
// an empty string means the field is absent from the context.
type TaskContext struct {
	Agent    string `json:"agent,omitempty"`
	Domain   string `json:"domain,omitempty"`
	Action   string `json:"action,omitempty"`
	Path     string `json:"path,omitempty"`
	Event    string `json:"event,omitempty"`
	GateType string `json:"gate_type,omitempty"`
}

// MatchResult is the outcome of matching one guideline against one context.
type MatchResult struct {
	GuidelineID   string   `json:"guideline_id"`
	GuidelineName string   `json:"guideline_name"`
	Priority      int      `json:"priority"`
	Matches       bool     `json:"matches"`
	// MatchScore is the fraction of specified condition fields that
	// overlapped, in [0,1]. Ranking signal only; never correctness-affecting.
	MatchScore    float64  `json:"match_score"`
	MatchedFields []string `json:"matched_fields,omitempty"`
}

// EvaluatedGuideline pairs a guideline with its match result so the combiner
// can read the action payload of each match.
type EvaluatedGuideline struct {
	Guideline Guideline
	Result    MatchResult
}

// EffectivePolicy is the single merged result of all matching guidelines for
// one evaluation.
type EffectivePolicy struct {
	MatchedCount        int           `json:"matched_count"`
	CombinedInstruction string        `json:"combined_instruction"`
	ToolsAllowed        []string      `json:"tools_allowed"`
	ToolsDenied         []string      `json:"tools_denied"`
	HITLGates           []string      `json:"hitl_gates"`
	Guidelines          []MatchResult `json:"guidelines"`
}

// Patch describes a partial update. Nil fields are left untouched.
type Patch struct {
	Name        *string    `json:"name,omitempty"`
	Description *string    `json:"description,omitempty"`
	Category    *Category  `json:"category,omitempty"`
	Priority    *int       `json:"priority,omitempty"`
	Enabled     *bool      `json:"enabled,omitempty"`
	Condition   *Condition `json:"condition,omitempty"`
	Action      *Action    `json:"action,omitempty"`
}

// IsEmpty reports whether the patch modifies nothing.
func (p Patch) IsEmpty() bool {
	return p.Name == nil && p.Description == nil && p.Category == nil &&
		p.Priority == nil && p.Enabled == nil && p.Condition == nil && p.Action == nil
}

// Apply writes the patch onto g, bumps the version by exactly one, and
// stamps UpdatedAt. Callers are responsible for CAS on the prior version.
func (p Patch) Apply(g *Guideline, now time.Time) {
	if p.Name != nil {
		g.Name = *p.Name
	}
	if p.Description != nil {
		g.Description = *p.Description
	}
	if p.Category != nil {
		g.Category = *p.Category
	}
	if p.Priority != nil {
		g.Priority = *p.Priority
	}
	if p.Enabled != nil {
		g.Enabled = *p.Enabled
	}
	if p.Condition != nil {
		g.Condition = *p.Condition
	}
	if p.Action != nil {
		g.Action = *p.Action
	}
	g.Version++
	g.UpdatedAt = now
}

// Changes returns the field delta for audit records: field name to new value,
// only for fields present in the patch.
func (p Patch) Changes() map[string]any {
	changes := make(map[string]any)
	if p.Name != nil {
		changes["name"] = *p.Name
	}
	if p.Description != nil {
		changes["description"] = *p.Description
	}
	if p.Category != nil {
		changes["category"] = string(*p.Category)
	}
	if p.Priority != nil {
		changes["priority"] = *p.Priority
	}
	if p.Enabled != nil {
		changes["enabled"] = *p.Enabled
	}
	if p.Condition != nil {
		changes["condition"] = *p.Condition
	}
	if p.Action != nil {
		changes["action"] = *p.Action
	}
	return changes
}

// ToggleEnabled flips the enabled flag, bumps the version, and stamps
// UpdatedAt. Toggle does not change any other content.
func (g *Guideline) ToggleEnabled(now time.Time) {
	g.Enabled = !g.Enabled
	g.Version++
	g.UpdatedAt = now
}

// ListFilter narrows List results. Zero values impose no constraint.
type ListFilter struct {
	// Category filters to a single category when non-empty.
	Category Category
	// Enabled filters by the enabled flag when non-nil.
	Enabled *bool
}
