package governance

import (
	"fmt"

	"github.com/mandubian/ccos-sub001/plan"
	"github.com/mandubian/ccos-sub001/rtfs/value"
)

// HintLimits enforces upper bounds on execution hints regardless of what a
// plan requests (spec.md §4.6, "Hint limits"). Zero means "no limit" for
// that field.
type HintLimits struct {
	MaxRetries           int64
	MaxTimeoutMS         int64
	MaxTimeoutMultiplier float64
}

// Kernel is the Governance Kernel (C6): it holds the active constitution
// and enforces it at plan admission and at every capability call.
type Kernel struct {
	constitution *Constitution
	limits       HintLimits
	// requireHumanApproval governs what an ActionAsk decision does in Gate:
	// false auto-grants it (the constitution asked for a checkpoint, not an
	// unreachable operator), true denies it, since this Kernel has no
	// interactive approval channel to grant it over (spec.md §6,
	// "governance.require_human_approval").
	requireHumanApproval bool
}

// New constructs a Kernel bound to an already-loaded, verified constitution.
func New(c *Constitution, limits HintLimits) *Kernel {
	return &Kernel{constitution: c, limits: limits}
}

// SetRequireHumanApproval configures how Gate resolves an ActionAsk
// decision (spec.md §6, "governance.require_human_approval").
func (k *Kernel) SetRequireHumanApproval(require bool) {
	k.requireHumanApproval = require
}

// Constitution returns the kernel's active constitution.
func (k *Kernel) Constitution() *Constitution { return k.constitution }

// PolicyLoadedRecord is what the caller (the Host, on startup or reload)
// appends as a PolicyLoaded action (spec.md §4.6, "Config provenance").
type PolicyLoadedRecord struct {
	ConstitutionHash string
	Version          string
}

// Reload swaps in a newly loaded constitution and returns the record the
// caller should append to the Causal Chain.
func (k *Kernel) Reload(c *Constitution) PolicyLoadedRecord {
	k.constitution = c
	return PolicyLoadedRecord{ConstitutionHash: c.Hash, Version: c.Version}
}

// ValidatePlan performs plan-level validation (spec.md §4.6,
// "Plan-level validation"): the plan's declared capabilities must be a
// subset of both the runtime ACL and the constitution's allowed scopes, and
// any plan-scope rule (a rule whose Scope is "plan") must not deny it.
func (k *Kernel) ValidatePlan(p *plan.Plan, rc RuntimeContext) error {
	for _, cap := range p.DeclaredCapabilities {
		if !rc.AllowsCapability(cap) {
			return fmt.Errorf("governance: capability %q not in runtime ACL", cap)
		}
		if !k.constitutionAllows(cap) {
			return fmt.Errorf("governance: capability %q not permitted by constitution", cap)
		}
	}
	event := DecisionEvent{
		CapabilityID: "plan",
		ArgsSummary:  value.Vector(),
		Context:      rc.toValue(),
		ExecHints:    value.Null(),
	}
	decision, err := k.constitution.evaluatePlanScope(event)
	if err != nil {
		return err
	}
	if decision.Action == ActionDeny {
		return fmt.Errorf("governance: plan denied by rule %q", decision.RuleID)
	}
	return nil
}

// constitutionAllows reports whether capabilityID is free of any matching
// deny rule. A constitution with no rules at all is permissive by default,
// matching the teacher's AllowTags/AllowTools "empty means unrestricted"
// convention (features/policy/basic/engine.go); otherwise deny always
// overrides, as in Evaluate.
func (k *Kernel) constitutionAllows(capabilityID string) bool {
	if k.constitution == nil {
		return true
	}
	for _, r := range k.constitution.Rules {
		if r.Action == ActionDeny && matchesScope(r.Scope, capabilityID) {
			return false
		}
	}
	return true
}

// evaluatePlanScope evaluates only rules scoped to "plan" (the plan-level
// rule kind referenced by spec.md §4.6's "evaluate any plan-scope rules").
func (c *Constitution) evaluatePlanScope(event DecisionEvent) (Decision, error) {
	scoped := &Constitution{Version: c.Version}
	for _, r := range c.Rules {
		if r.Scope == "plan" {
			scoped.Rules = append(scoped.Rules, r)
		}
	}
	if len(scoped.Rules) == 0 {
		return Decision{Action: ActionAllow}, nil
	}
	return scoped.Evaluate(event)
}

// GateDecision is the outcome of a call-level gate check, along with the
// fields the caller appends as a GovernanceCheckpointDecision action
// (spec.md §4.6, "Call-level gate").
type GateDecision struct {
	Decision Decision
	Allowed  bool
	Reason   string
	// Asked is true when the matching rule's action was ActionAsk, so the
	// caller can record the GovernanceApprovalRequested/Granted/Denied
	// sequence distinct from an outright policy deny.
	Asked bool
}

// Gate runs the call-level gate for a single capability call: builds a
// decision event, evaluates applicable rules in scope order with
// deny-overrides-allow, and deducts quota on an allowed outcome (spec.md
// §4.6). rc is a pointer because quota deduction mutates the plan's
// remaining budget.
func (k *Kernel) Gate(capabilityID string, argsSummary value.Value, execHints value.Value, rc *RuntimeContext, cost int64) GateDecision {
	if !rc.AllowsCapability(capabilityID) {
		return GateDecision{Decision: Decision{Action: ActionDeny}, Allowed: false, Reason: "capability not in runtime ACL"}
	}

	event := DecisionEvent{
		CapabilityID: capabilityID,
		ArgsSummary:  argsSummary,
		Context:      rc.toValue(),
		ExecHints:    execHints,
	}
	decision, err := k.constitution.Evaluate(event)
	if err != nil {
		return GateDecision{Decision: Decision{Action: ActionDeny}, Allowed: false, Reason: err.Error()}
	}
	if decision.Action == ActionDeny {
		return GateDecision{Decision: decision, Allowed: false, Reason: fmt.Sprintf("denied by rule %q", decision.RuleID)}
	}
	if decision.Action == ActionAsk {
		if k.requireHumanApproval {
			return GateDecision{Decision: decision, Allowed: false, Reason: "requires human approval", Asked: true}
		}
		// No interactive approval channel configured: an ask auto-grants,
		// the same way a rule-less constitution defaults to permissive.
	}
	if !rc.Quota.Deduct(cost) {
		return GateDecision{Decision: decision, Allowed: false, Reason: "quota exceeded"}
	}
	return GateDecision{Decision: decision, Allowed: true, Asked: decision.Action == ActionAsk}
}

// ClampHints enforces HintLimits on a runtime.learning.* hint configuration
// map, returning a new map with any out-of-bound fields reduced to the
// kernel's ceiling (spec.md §4.6, "Hint limits: enforces upper bounds...
// regardless of caller requests").
func (k *Kernel) ClampHints(hintKey string, cfg *value.Map) *value.Map {
	if cfg == nil {
		return nil
	}
	switch hintKey {
	case "runtime.learning.retry":
		return k.clampIntField(cfg, "max_retries", k.limits.MaxRetries)
	case "runtime.learning.timeout":
		return k.clampIntField(cfg, "timeout_ms", k.limits.MaxTimeoutMS)
	default:
		return cfg
	}
}

func (k *Kernel) clampIntField(cfg *value.Map, key string, max int64) *value.Map {
	if max <= 0 {
		return cfg
	}
	v, ok := cfg.Get(value.Keyword(key))
	if !ok || v.Kind() != value.KindInt || v.Int() <= max {
		return cfg
	}
	return cfg.Assoc(value.Keyword(key), value.Int(max))
}
