// Package policy gates tool invocations through an OPA rego policy.
package policy

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/rego"
)

// Decision is the policy verdict for a tool invocation.
type Decision string

const (
	DecisionAllow Decision = "allow"
	DecisionBlock Decision = "block"
)

// Engine evaluates the tool policy.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine compiles the given rego policy content.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.workshop.tools.decision"),
		rego.Module("tool_policy.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query}, nil
}

// Input describes one tool invocation for the policy.
type Input struct {
	ToolName    string                 `json:"tool_name"`
	Participant string                 `json:"participant"`
	Args        map[string]interface{} `json:"args"`
}

// Evaluate returns the decision for the invocation. An unmatched policy
// defaults to allow; the shipped policies always define a default.
func (e *Engine) Evaluate(ctx context.Context, input Input) (Decision, error) {
	if input.Args == nil {
		input.Args = map[string]interface{}{}
	}
	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return "", fmt.Errorf("failed to evaluate policy: %w", err)
	}

	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return DecisionAllow, nil
	}

	if s, ok := results[0].Expressions[0].Value.(string); ok {
		switch Decision(s) {
		case DecisionAllow, DecisionBlock:
			return Decision(s), nil
		}
		return "", fmt.Errorf("policy returned unknown decision %q", s)
	}
	return "", fmt.Errorf("policy returned non-string decision")
}

// DefaultPolicy allows the read-only workshop tools and blocks anything
// that would move money or place orders.
const DefaultPolicy = `
package workshop.tools

default decision = "allow"

decision = "block" {
	input.tool_name == "trade.execute"
}

decision = "block" {
	startswith(input.tool_name, "payments.")
}
`
