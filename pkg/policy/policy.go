// Package policy authorizes controller commands in-process with an
// embedded github.com/open-policy-agent/opa/rego evaluator, compiled
// once at startup against a small bundled Rego module so authorization
// never depends on an external OPA server being reachable.
package policy

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/open-policy-agent/opa/rego"

	"github.com/l3itisys/ATC-system/pkg/errs"
)

//go:embed command.rego
var commandPolicy string

// Input is the decision input handed to the rego module: one controller
// command against the target aircraft's current status.
type Input struct {
	Verb           string `json:"verb"`
	TargetStatus   string `json:"target_status"`
	OverrideActive bool   `json:"override_active"`
}

// Decision is the evaluated outcome.
type Decision struct {
	Allow bool     `json:"allow"`
	Deny  []string `json:"deny"`
}

// Engine evaluates command authorization with a prepared rego query,
// compiled once at construction so Authorize never recompiles the
// module on the hot path.
type Engine struct {
	query rego.PreparedEvalQuery
}

// New compiles the embedded command policy.
func New(ctx context.Context) (*Engine, error) {
	query, err := rego.New(
		rego.Query("data.atc.command.decision"),
		rego.Module("command.rego", commandPolicy),
	).PrepareForEval(ctx)
	if err != nil {
		return nil, errs.Fatalf("policy.New", "compile command policy: %v", err)
	}
	return &Engine{query: query}, nil
}

// Authorize evaluates in against the policy and returns a ValidationError
// naming the denial reasons if the command is not allowed.
func (e *Engine) Authorize(ctx context.Context, in Input) error {
	rs, err := e.query.Eval(ctx, rego.EvalInput(map[string]interface{}{
		"verb":            in.Verb,
		"target_status":   in.TargetStatus,
		"override_active": in.OverrideActive,
	}))
	if err != nil {
		return errs.Transientf("policy.Authorize", "evaluate: %v", err)
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return errs.Statef("policy.Authorize", "policy produced no result")
	}

	decision, ok := rs[0].Expressions[0].Value.(map[string]interface{})
	if !ok {
		return errs.Statef("policy.Authorize", "unexpected policy result shape")
	}

	allow, _ := decision["allow"].(bool)
	if allow {
		return nil
	}

	reasons := denyReasons(decision["deny"])
	if len(reasons) == 0 {
		reasons = []string{"denied by policy"}
	}
	return errs.Validationf("policy.Authorize", "command denied: %v", reasons)
}

func denyReasons(v interface{}) []string {
	list, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := item.(string); ok {
			out = append(out, s)
		} else {
			out = append(out, fmt.Sprint(item))
		}
	}
	return out
}
