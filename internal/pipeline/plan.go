package pipeline

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/domjanbaric/agnetic-finance-workshop/internal/finance"
	"github.com/samber/lo"
)

// Plan is the planner's structured output: which symbols to review, at
// what scope, and what to focus the review on.
type Plan struct {
	Symbols []string `json:"symbols"`
	Scope   string   `json:"scope"`
	Focus   string   `json:"focus"`
}

// ParsePlan parses a planner reply as strict JSON. Anything that is not a
// single valid JSON object with known fields is rejected; the pipeline then
// re-prompts once rather than guessing at near-JSON output.
func ParsePlan(content string) (*Plan, error) {
	dec := json.NewDecoder(strings.NewReader(content))
	dec.DisallowUnknownFields()

	var plan Plan
	if err := dec.Decode(&plan); err != nil {
		return nil, fmt.Errorf("plan is not strict JSON: %w", err)
	}
	if dec.More() {
		return nil, fmt.Errorf("plan contains trailing content after the JSON object")
	}

	if len(plan.Symbols) == 0 {
		return nil, fmt.Errorf("plan names no symbols")
	}
	if lo.SomeBy(plan.Symbols, func(s string) bool { return strings.TrimSpace(s) == "" }) {
		return nil, fmt.Errorf("plan contains an empty symbol")
	}
	if plan.Scope != finance.ScopeLatest && plan.Scope != finance.ScopeAll {
		return nil, fmt.Errorf("plan scope %q is not %q or %q", plan.Scope, finance.ScopeLatest, finance.ScopeAll)
	}
	return &plan, nil
}
