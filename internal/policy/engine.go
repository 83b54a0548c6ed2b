package policy

import (
	"context"
	"fmt"
	"os"

	"github.com/open-policy-agent/opa/rego"

	"github.com/PabloGalante/hospital-erp-agent/internal/domain"
)

// Engine is the OPA dispatch policy engine.
type Engine struct {
	query rego.PreparedEvalQuery
}

var _ domain.DispatchPolicy = (*Engine)(nil)

// NewEngine prepares the given policy. The module must define
// data.dispatch_policy.decision as an object {allow, reason}.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.dispatch_policy.decision"),
		rego.Module("dispatch_policy.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query}, nil
}

// Load reads the policy at path, or uses DefaultPolicy when path is empty.
func Load(ctx context.Context, path string) (*Engine, error) {
	if path == "" {
		return NewEngine(ctx, DefaultPolicy)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading policy %s: %w", path, err)
	}
	return NewEngine(ctx, string(content))
}

// Authorize implements domain.DispatchPolicy.
func (e *Engine) Authorize(ctx context.Context, req domain.DispatchRequest) (domain.DispatchDecision, error) {
	if !req.Agent.Valid() {
		return domain.DispatchDecision{}, fmt.Errorf("unknown agent %q", req.Agent)
	}

	input := map[string]any{
		"tool_name": string(req.Tool),
		"agent":     string(req.Agent),
		"known":     req.Known,
		"query":     req.Query,
	}

	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return domain.DispatchDecision{}, fmt.Errorf("failed to evaluate policy: %w", err)
	}

	// no decision at all means the policy forgot its default
	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return domain.DispatchDecision{Allowed: false, Reason: "no decision"}, nil
	}

	obj, ok := results[0].Expressions[0].Value.(map[string]any)
	if !ok {
		return domain.DispatchDecision{}, fmt.Errorf("policy decision has unexpected type %T", results[0].Expressions[0].Value)
	}

	allowed, _ := obj["allow"].(bool)
	reason, _ := obj["reason"].(string)
	return domain.DispatchDecision{Allowed: allowed, Reason: reason}, nil
}

// DefaultPolicy lets every known specialist route through and denies the rest.
const DefaultPolicy = `
package dispatch_policy

import rego.v1

specialists := {"MEDICAL_RECORDS", "BILLING", "REGISTRATION", "APPOINTMENTS"}

default decision := {"allow": false, "reason": "unknown tool"}

decision := {"allow": true, "reason": "specialist route"} if {
	input.known
	specialists[input.agent]
}
`
