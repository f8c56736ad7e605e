package host

import (
	"context"

	"github.com/mandubian/ccos-sub001/capability"
	"github.com/mandubian/ccos-sub001/capability/middleware"
	"github.com/mandubian/ccos-sub001/causalchain"
	"github.com/mandubian/ccos-sub001/ccerrors"
	"github.com/mandubian/ccos-sub001/rtfs/eval"
	"github.com/mandubian/ccos-sub001/rtfs/value"
)

// ExecuteCapability implements the Host's execute_capability operation
// (spec.md §4.4): it enforces the four remaining invariants in order
// (capability must be registered and in the ACL; governance must approve;
// the middleware chain wraps the provider call; exactly one
// CapabilityCall/CapabilityResult pair is appended) and is what the
// Orchestrator calls upon a RequiresHost outcome.
func (h *RuntimeHost) ExecuteCapability(ctx context.Context, call eval.HostCall) (value.Value, error) {
	return h.executeCapability(ctx, call, h.handlers)
}

// DispatchCapability invokes capabilityID through the same governance-gate
// and registry-dispatch path as ExecuteCapability, minus the Fallback
// handler itself (so a fallback target's own failure cannot recurse into
// another fallback). It is the middleware.Fallback.Dispatch wired by
// ccos.DefaultHandlers; callers outside a Fallback hint should use
// ExecuteCapability instead.
func (h *RuntimeHost) DispatchCapability(ctx context.Context, capabilityID string, args []value.Value, metadata *value.Map) (value.Value, error) {
	return h.executeCapability(ctx, eval.HostCall{CapabilityID: capabilityID, Args: args, Metadata: metadata}, h.fallbackHandlers)
}

func (h *RuntimeHost) executeCapability(ctx context.Context, call eval.HostCall, handlers []middleware.Handler) (value.Value, error) {
	if !h.ctxBound() {
		return value.Value{}, errNoRuntimeContext
	}
	manifest, ok := h.registry.Lookup(call.CapabilityID)
	if !ok {
		return value.Value{}, ccerrors.Newf(eval.ErrUnknownCapability, "capability %q not registered", call.CapabilityID)
	}

	call.Metadata = h.withPendingHints(call.Metadata)
	argsSummary := value.Vector(call.Args...)
	execHints := value.Null()
	if call.Metadata != nil {
		execHints = value.MapValue(call.Metadata)
	}

	gate := h.kernel.Gate(call.CapabilityID, argsSummary, execHints, h.rc, capabilityCost(manifest))
	if _, err := h.appendRaw(causalchain.Action{
		Type:     causalchain.TypeGovernanceCheckpointDecision,
		Metadata: causalchain.Metadata{ConstitutionRuleID: gate.Decision.RuleID, CorrelationID: call.CorrelationID, ExecHints: map[string]any{"action": string(gate.Decision.Action), "allowed": gate.Allowed}},
	}); err != nil {
		return value.Value{}, err
	}
	if gate.Asked {
		if _, err := h.appendRaw(causalchain.Action{
			Type:         causalchain.TypeGovernanceApprovalRequested,
			FunctionName: call.CapabilityID,
			Metadata:     causalchain.Metadata{ConstitutionRuleID: gate.Decision.RuleID, CorrelationID: call.CorrelationID},
		}); err != nil {
			return value.Value{}, err
		}
	}
	// An approval round trip ends in Granted or Denied; a plain policy or
	// quota denial is also recorded as GovernanceApprovalDenied.
	if gate.Asked || !gate.Allowed {
		approvalType := causalchain.TypeGovernanceApprovalGranted
		if !gate.Allowed {
			approvalType = causalchain.TypeGovernanceApprovalDenied
		}
		if _, err := h.appendRaw(causalchain.Action{
			Type:         approvalType,
			FunctionName: call.CapabilityID,
			Success:      gate.Allowed,
			ErrorMessage: gate.Reason,
		}); err != nil {
			return value.Value{}, err
		}
	}
	if !gate.Allowed {
		return value.Value{}, ccerrors.New(denialKind(gate.Reason), gate.Reason)
	}

	callAction, err := h.appendRaw(causalchain.Action{
		Type:         causalchain.TypeCapabilityCall,
		FunctionName: call.CapabilityID,
		Args:         value.ToAny(value.Vector(call.Args...)),
		Success:      true,
		Metadata:     causalchain.Metadata{CorrelationID: call.CorrelationID, ConstitutionRuleID: gate.Decision.RuleID},
	})
	if err != nil {
		return value.Value{}, err
	}

	h.pushParent(callAction.ActionID)
	defer h.popParent()

	invoker := middleware.Chain(handlers, h.baseInvoker(manifest))
	result, callErr := invoker(middleware.WithObserver(ctx, h), call)

	resultAction := causalchain.Action{
		Type:         causalchain.TypeCapabilityResult,
		FunctionName: call.CapabilityID,
		Metadata:     causalchain.Metadata{CorrelationID: call.CorrelationID},
	}
	if callErr != nil {
		resultAction.Success = false
		resultAction.ErrorMessage = callErr.Error()
		if ce, ok := callErr.(*ccerrors.Error); ok {
			resultAction.ErrorKind = string(ce.Kind)
		} else {
			resultAction.ErrorKind = string(eval.ErrCapability)
		}
	} else {
		resultAction.Success = true
		resultAction.Result = value.ToAny(result)
	}
	if _, err := h.appendRaw(resultAction); err != nil {
		return value.Value{}, err
	}
	return result, callErr
}

// baseInvoker is the innermost Invoker: a direct registry dispatch with no
// middleware applied, the base that Chain wraps (spec.md §4.5, "dispatch is
// a lookup plus invocation").
func (h *RuntimeHost) baseInvoker(manifest capability.Manifest) middleware.Invoker {
	return func(ctx context.Context, call eval.HostCall) (value.Value, error) {
		return manifest.Execute(call.Args, call.Metadata)
	}
}

// withPendingHints merges any hint set via SetExecutionHint into the call's
// own metadata, then clears it (it applies to exactly the next call, per
// spec.md §4.4 "set_execution_hint: associates a hint with the next
// capability call").
func (h *RuntimeHost) withPendingHints(meta *value.Map) *value.Map {
	if h.pendingHints == nil {
		return meta
	}
	merged := meta
	h.pendingHints.Range(func(k, v value.Value) bool {
		if merged == nil {
			merged = value.NewMap()
		}
		merged = merged.Assoc(k, v)
		return true
	})
	h.pendingHints = nil
	return merged
}

// capabilityCost reads an optional "cost" limit off the manifest, defaulting
// to 1 (spec.md §4.6, "deduct quotas" — quota is denominated in whatever
// unit the constitution's quota.budget tracks; per-call cost defaults to a
// single unit when the manifest does not declare one).
func capabilityCost(m capability.Manifest) int64 {
	if m.Limits == nil {
		return 1
	}
	if c, ok := m.Limits["cost"]; ok {
		if cost, ok := c.(int64); ok {
			return cost
		}
		if cost, ok := c.(int); ok {
			return int64(cost)
		}
	}
	return 1
}

// denialKind maps a Gate rejection reason to the closed error taxonomy so
// callers (and tests) can distinguish "denied by policy" from "quota
// exceeded" via errors.Is against the matching eval.ErrorKind.
func denialKind(reason string) eval.ErrorKind {
	if reason == "quota exceeded" {
		return eval.ErrQuotaExceeded
	}
	return eval.ErrGovernanceDenied
}
