package governance

import (
	"fmt"

	"github.com/mandubian/ccos-sub001/rtfs/eval"
	"github.com/mandubian/ccos-sub001/rtfs/parser"
	"github.com/mandubian/ccos-sub001/rtfs/value"
)

// DecisionEvent is the input to a rule condition: the capability being
// called, a redacted summary of its arguments, the runtime context it
// executes under, and any execution hints attached to the call (spec.md
// §4.6, "Call-level gate": "build a decision event").
type DecisionEvent struct {
	CapabilityID string
	ArgsSummary  value.Value // typically a Vector of argument Values
	Context      value.Value // a Map snapshot of the current runtime context
	ExecHints    value.Value // the call's metadata map, or Null
}

// toEnv binds event and context as RTFS Values so rule conditions can
// reference them by name, e.g. (= (:capability_id event) :ccos.io.read).
func (e DecisionEvent) toEnv() *eval.Env {
	env := eval.NewEnv()
	fields := value.NewMap(
		[2]value.Value{value.Keyword("capability_id"), value.String(e.CapabilityID)},
		[2]value.Value{value.Keyword("args_summary"), e.ArgsSummary},
		[2]value.Value{value.Keyword("exec_hints"), e.ExecHints},
	)
	env.Bind("event", value.MapValue(fields))
	env.Bind("context", e.Context)
	return env
}

// conditionNoopExecContext satisfies eval.ExecContext for condition
// evaluation, which must be pure: rule conditions never step, get, or set,
// so every method here is unreachable in a well-formed constitution and
// exists only to satisfy the interface.
type conditionNoopExecContext struct{}

func (conditionNoopExecContext) NotifyStepStarted(int, string, value.Value) error { return nil }
func (conditionNoopExecContext) NotifyStepCompleted(int, string, eval.Value) error { return nil }
func (conditionNoopExecContext) NotifyStepFailed(int, string, eval.ErrorKind, string) error {
	return nil
}
func (conditionNoopExecContext) Get(value.Value) (value.Value, bool) { return value.Value{}, false }
func (conditionNoopExecContext) Set(value.Value, value.Value)        {}
func (conditionNoopExecContext) PushParallelFrame() eval.ParallelFrame {
	return conditionNoopParallelFrame{}
}

type conditionNoopParallelFrame struct{}

func (conditionNoopParallelFrame) Get(value.Value) (value.Value, bool) { return value.Value{}, false }
func (conditionNoopParallelFrame) Set(value.Value, value.Value)        {}
func (conditionNoopParallelFrame) MergeInto(value.MergePolicy)         {}

// evaluateCondition parses and evaluates a rule's condition expression
// against event, returning whether it matched. A condition that attempts a
// capability call (StatusRequiresHost) is a malformed constitution: rule
// conditions must be pure (spec.md §4.6).
func evaluateCondition(condition string, event DecisionEvent) (bool, error) {
	expr, err := parser.Parse(condition)
	if err != nil {
		return false, fmt.Errorf("governance: parse rule condition %q: %w", condition, err)
	}
	ev := eval.New()
	out := ev.Evaluate(expr, event.toEnv(), conditionNoopExecContext{}, eval.NewResumption())
	switch out.Status {
	case eval.StatusComplete:
		return out.Value.Truthy(), nil
	case eval.StatusRequiresHost:
		return false, fmt.Errorf("governance: rule condition %q attempted a capability call; conditions must be pure", condition)
	default:
		return false, fmt.Errorf("governance: rule condition %q: %s", condition, out.Err.Error())
	}
}

// matchesScope reports whether capabilityID matches a rule's scope glob.
// Only a single trailing "*" wildcard is supported (e.g. "ccos.io.*"),
// matching the teacher's tag/tool allow-list glob style
// (features/policy/basic/engine.go) rather than a full glob library, since
// scope patterns are always simple namespace prefixes (spec.md §4.6).
func matchesScope(scope, capabilityID string) bool {
	if scope == "" || scope == "*" {
		return true
	}
	if n := len(scope); n > 0 && scope[n-1] == '*' {
		prefix := scope[:n-1]
		return len(capabilityID) >= len(prefix) && capabilityID[:len(prefix)] == prefix
	}
	return scope == capabilityID
}

// Evaluate runs every rule in scope order against event, applying
// deny-overrides-allow: the first matching Deny rule wins outright;
// otherwise the last matching Allow/Log/Ask rule (in rule order) determines
// the outcome. Rules are evaluated in the order the constitution lists
// them, which is the "scope order" referenced by spec.md §4.6.
func (c *Constitution) Evaluate(event DecisionEvent) (Decision, error) {
	if len(c.Rules) == 0 {
		return Decision{Action: ActionAllow}, nil
	}
	var best *Decision
	for _, r := range c.Rules {
		if !matchesScope(r.Scope, event.CapabilityID) {
			continue
		}
		matched, err := evaluateCondition(r.Condition, event)
		if err != nil {
			return Decision{}, err
		}
		if !matched {
			continue
		}
		d := Decision{RuleID: r.ID, Action: r.Action}
		if r.Action == ActionDeny {
			return d, nil
		}
		best = &d
	}
	if best != nil {
		return *best, nil
	}
	return Decision{Action: ActionDeny, RuleID: ""}, nil
}

// Decision is the verdict produced by evaluating a DecisionEvent against
// the constitution (spec.md §4.6, "GovernanceCheckpointDecision").
type Decision struct {
	RuleID string
	Action Action
}
