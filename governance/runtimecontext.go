package governance

import "github.com/mandubian/ccos-sub001/rtfs/value"

// RuntimeContext is the governance-relevant state a running plan carries:
// which capabilities it may call, how much budget it has left, and what
// sandbox isolation new steps get by default (spec.md §4.4, "Runtime
// Context"). The Orchestrator owns the authoritative copy; Governance only
// reads and deducts from it.
type RuntimeContext struct {
	IntentID string
	ACL      []string // capability id globs this plan is permitted to call
	Quota    Quota
	Sandbox  map[string]string // default_isolation and related knobs
}

// AllowsCapability reports whether capabilityID matches any entry of the
// plan's ACL (spec.md §4.6, "Plan-level validation: capability allow-list
// subset check").
func (rc RuntimeContext) AllowsCapability(capabilityID string) bool {
	for _, scope := range rc.ACL {
		if matchesScope(scope, capabilityID) {
			return true
		}
	}
	return false
}

// toValue renders the context as an RTFS Map for use in rule conditions
// (the `context` binding in DecisionEvent.toEnv).
func (rc RuntimeContext) toValue() value.Value {
	remaining := rc.Quota.Remaining
	return value.MapValue(value.NewMap(
		[2]value.Value{value.Keyword("intent_id"), value.String(rc.IntentID)},
		[2]value.Value{value.Keyword("quota_remaining"), value.Int(remaining)},
	))
}

// Quota is a plan's remaining call budget (spec.md §4.6, "deduct quotas").
// Limit is informational; Remaining is what gets deducted and checked.
type Quota struct {
	Limit     int64
	Remaining int64
}

// Deduct subtracts cost from the quota. It reports false, leaving the
// quota unchanged, if cost exceeds what remains.
func (q *Quota) Deduct(cost int64) bool {
	if cost > q.Remaining {
		return false
	}
	q.Remaining -= cost
	return true
}
