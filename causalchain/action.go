// Package causalchain implements the append-only, hash-linked action tree
// (C7): every lifecycle and effect event in a plan's execution is recorded
// here, in a structure modeled on the teacher's transcript.Ledger (ordered,
// JSON-friendly, replay-safe) but keyed by parent hash rather than by
// message order, since verification here must walk edges rather than a flat
// sequence.
package causalchain

import "time"

// Type is the closed action-type taxonomy.
type Type string

const (
	TypePlanStarted   Type = "PlanStarted"
	TypePlanCompleted Type = "PlanCompleted"
	TypePlanAborted   Type = "PlanAborted"
	TypePlanPaused    Type = "PlanPaused"
	TypePlanResumed   Type = "PlanResumed"

	TypeStepStarted  Type = "PlanStepStarted"
	TypeStepComplete Type = "PlanStepCompleted"
	TypeStepFailed   Type = "PlanStepFailed"
	TypeStepRetrying Type = "PlanStepRetrying"

	TypeCapabilityCall   Type = "CapabilityCall"
	TypeCapabilityResult Type = "CapabilityResult"
	TypeInternalStep     Type = "InternalStep"
	TypeCheckpoint       Type = "Checkpoint"

	TypeGovernanceApprovalRequested  Type = "GovernanceApprovalRequested"
	TypeGovernanceApprovalGranted    Type = "GovernanceApprovalGranted"
	TypeGovernanceApprovalDenied     Type = "GovernanceApprovalDenied"
	TypeGovernanceCheckpointDecision Type = "GovernanceCheckpointDecision"
	TypeGovernanceCheckpointOutcome  Type = "GovernanceCheckpointOutcome"
	TypePolicyLoaded                 Type = "PolicyLoaded"

	TypeHintApplied     Type = "HintApplied"
	TypeRetryAttempted  Type = "RetryAttempted"
	TypeTimeoutTriggered Type = "TimeoutTriggered"
	TypeCircuitOpened   Type = "CircuitOpened"
	TypeCircuitHalfOpen Type = "CircuitHalfOpened"
	TypeCircuitClosed   Type = "CircuitClosed"
	TypeFallbackInvoked Type = "FallbackInvoked"
	TypeCacheHit        Type = "CacheHit"
	TypeCacheMiss       Type = "CacheMiss"
)

// Metadata carries the optional, well-known annotations an action may need
// (spec's Action.metadata column).
type Metadata struct {
	ConstitutionRuleID   string `json:"constitution_rule_id,omitempty"`
	AttestationID        string `json:"attestation_id,omitempty"`
	DelegationDecisionID string `json:"delegation_decision_id,omitempty"`
	CorrelationID        string `json:"correlation_id,omitempty"`
	ExecHints            any    `json:"exec_hints,omitempty"`
}

// Redacted is the tagged marker substituted for a redacted args/result
// payload, preserving a commitment (hash) of the original value so the
// chain's hash-linkage remains intact even though the plaintext is gone.
type Redacted struct {
	Commitment string `json:"commitment"`
}

// Action is one node of the causal chain (spec's "Action (Causal Chain
// node)" table).
type Action struct {
	ActionID       string    `json:"action_id"`
	ParentActionID string    `json:"parent_action_id,omitempty"`
	PlanID         string    `json:"plan_id"`
	IntentID       string    `json:"intent_id,omitempty"`
	Type           Type      `json:"type"`
	FunctionName   string    `json:"function_name,omitempty"`
	Args           any       `json:"args,omitempty"`
	Result         any       `json:"result,omitempty"`
	Success        bool      `json:"success"`
	ErrorKind      string    `json:"error_kind,omitempty"`
	ErrorMessage   string    `json:"error_message,omitempty"`
	Cost           float64   `json:"cost,omitempty"`
	DurationMS     int64     `json:"duration_ms,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
	Metadata       Metadata  `json:"metadata,omitempty"`

	// Hash is computed by Store.Append and is never set by the caller; it is
	// excluded from its own preimage (canonical(fields_without_hash)).
	Hash string `json:"hash"`
}

// withoutHash returns a copy of a with Hash cleared, used as the hashing
// preimage subject (spec: "H(canonical(fields_without_hash) ∥ parent_hash)").
func (a Action) withoutHash() Action {
	a.Hash = ""
	return a
}
