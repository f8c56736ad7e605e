// Package host implements the default Runtime Host (C4): the boundary
// between the pure RTFS evaluator and every effect it can request. It
// enforces, in order, the five invariants of spec.md §4.4: a Runtime
// Context must be bound before any effect; the capability id must be in
// the acl; governance must approve; the middleware chain wraps every
// provider invocation; and exactly one CapabilityCall/CapabilityResult
// action pair is appended per call.
package host

import (
	"time"

	"github.com/google/uuid"

	"github.com/mandubian/ccos-sub001/capability"
	"github.com/mandubian/ccos-sub001/capability/middleware"
	"github.com/mandubian/ccos-sub001/causalchain"
	"github.com/mandubian/ccos-sub001/ccerrors"
	"github.com/mandubian/ccos-sub001/governance"
	"github.com/mandubian/ccos-sub001/rtfs/eval"
	"github.com/mandubian/ccos-sub001/rtfs/value"
	"github.com/mandubian/ccos-sub001/telemetry"
)

// ChainAppender is the narrow slice of *causalchain.Store /
// *causalchain.FileStore the Host needs: both satisfy it unmodified.
type ChainAppender interface {
	Append(a causalchain.Action) (causalchain.Action, error)
}

// RuntimeHost is the default Host implementation (spec.md §4.4). It
// implements eval.ExecContext directly so the evaluator can drive it
// without any adapter (step-parallel branches get a separate parallelFrame
// from PushParallelFrame), and capability/middleware.Observer so
// that middleware-chain events (cache hits, retries, circuit trips...)
// become chain actions.
type RuntimeHost struct {
	registry *capability.Registry
	kernel   *governance.Kernel
	chain    ChainAppender
	tel      telemetry.Telemetry
	handlers []middleware.Handler
	// fallbackHandlers is handlers with any middleware.Fallback removed, so
	// a fallback dispatch (DispatchCapability) cannot itself trigger another
	// fallback and loop.
	fallbackHandlers []middleware.Handler

	planID    string
	intentIDs []string
	rc        *governance.RuntimeContext

	top          *frame
	parentStack  []string // current append parent, one per open step
	pendingHints *value.Map
	crossPlan    *value.Map

	// stepActionID and stepDone track, by step seq, the action id of an
	// already-appended PlanStepStarted and whether its PlanStepCompleted/
	// PlanStepFailed has already been appended. The Orchestrator re-enters
	// Evaluate from the top of the plan body on every host round trip
	// (spec.md §4.3, "Resumption... replaying every pure step"), so the same
	// seq arrives more than once; only the first occurrence may append to
	// the Causal Chain (eval.ExecContext's documented idempotency contract).
	stepActionID map[int]string
	stepDone     map[int]bool

	// clock, when set (e.g. by a test), overrides now(); nil means time.Now().
	clock func() time.Time
}

// New constructs a RuntimeHost. handlers is the capability middleware
// chain in any order (Chain sorts them); tel may be telemetry.NewNoop().
// Pass nil and call SetHandlers afterward when a handler (e.g.
// middleware.Fallback) needs to reference the constructed host itself.
func New(registry *capability.Registry, kernel *governance.Kernel, chain ChainAppender, handlers []middleware.Handler, tel telemetry.Telemetry) *RuntimeHost {
	h := &RuntimeHost{registry: registry, kernel: kernel, chain: chain, tel: tel}
	h.SetHandlers(handlers)
	return h
}

// SetHandlers installs the capability middleware chain, deriving the
// fallback-safe subset (every handler except middleware.Fallback) used by
// DispatchCapability. Safe to call once, after construction, so a
// middleware.Fallback handler's Dispatch field can close over the host it
// is itself a member of.
func (h *RuntimeHost) SetHandlers(handlers []middleware.Handler) {
	h.handlers = handlers
	fallback := make([]middleware.Handler, 0, len(handlers))
	for _, hd := range handlers {
		if _, ok := hd.(middleware.Fallback); ok {
			continue
		}
		fallback = append(fallback, hd)
	}
	h.fallbackHandlers = fallback
}

// SetExecutionContext binds subsequent actions to plan/intentIDs and
// appends the plan's root PlanStarted action (spec.md §4.4,
// "set_execution_context").
func (h *RuntimeHost) SetExecutionContext(planID string, intentIDs []string, rc governance.RuntimeContext) error {
	h.planID = planID
	h.intentIDs = intentIDs
	h.rc = &rc
	h.top = newFrame("inherit", nil)
	h.crossPlan = value.NewMap()
	h.stepActionID = make(map[int]string)
	h.stepDone = make(map[int]bool)

	root, err := h.appendRaw(causalchain.Action{
		ActionID: newID(),
		PlanID:   planID,
		IntentID: firstOr(intentIDs, ""),
		Type:     causalchain.TypePlanStarted,
	})
	if err != nil {
		return err
	}
	h.parentStack = []string{root.ActionID}
	return nil
}

// ClearExecutionContext unbinds the current plan/intent set (spec.md §4.4,
// "clear_execution_context").
func (h *RuntimeHost) ClearExecutionContext() {
	h.planID = ""
	h.intentIDs = nil
	h.rc = nil
	h.top = nil
	h.parentStack = nil
	h.crossPlan = nil
	h.stepActionID = nil
	h.stepDone = nil
}

// SetExecutionHint associates a hint with the next capability call (spec.md
// §4.4, "set_execution_hint"). It is consumed (and cleared) by the next
// ExecuteCapability.
func (h *RuntimeHost) SetExecutionHint(key string, v value.Value) {
	if h.pendingHints == nil {
		h.pendingHints = value.NewMap()
	}
	h.pendingHints = h.pendingHints.Assoc(value.Keyword(key), v)
}

// CrossPlanParams returns the cross-plan parameter map Get falls back to
// once every frame (and, for Inherit frames, every ancestor) has been
// exhausted (spec.md §3, "get... then to cross-plan parameters").
func (h *RuntimeHost) CrossPlanParams() *value.Map { return h.crossPlan }

// SetCrossPlanParams installs the cross-plan parameter map the Orchestrator
// merged for this run (spec.md §4.8, "cross-plan parameter merging").
func (h *RuntimeHost) SetCrossPlanParams(m *value.Map) { h.crossPlan = m }

// currentParent returns the action id new appends should attach to.
func (h *RuntimeHost) currentParent() string {
	if len(h.parentStack) == 0 {
		return ""
	}
	return h.parentStack[len(h.parentStack)-1]
}

func (h *RuntimeHost) pushParent(id string) { h.parentStack = append(h.parentStack, id) }

func (h *RuntimeHost) popParent() {
	if len(h.parentStack) == 0 {
		return
	}
	h.parentStack = h.parentStack[:len(h.parentStack)-1]
}

// appendRaw fills in the fields every action needs (id default, plan/intent
// binding, parent, timestamp) and appends to the chain.
func (h *RuntimeHost) appendRaw(a causalchain.Action) (causalchain.Action, error) {
	if a.ActionID == "" {
		a.ActionID = newID()
	}
	if a.PlanID == "" {
		a.PlanID = h.planID
	}
	if a.IntentID == "" {
		a.IntentID = firstOr(h.intentIDs, "")
	}
	if a.ParentActionID == "" {
		a.ParentActionID = h.currentParent()
	}
	a.Timestamp = h.now()
	return h.chain.Append(a)
}

// AppendPlanAction appends a plan-lifecycle action (PlanCompleted,
// PlanAborted, PlanPaused, PlanResumed, Checkpoint) the Orchestrator owns
// rather than the Host, reusing appendRaw so id/plan/intent/parent/
// timestamp bookkeeping stays in one place instead of being duplicated at
// every call site that needs to append under the current plan scope.
func (h *RuntimeHost) AppendPlanAction(a causalchain.Action) (causalchain.Action, error) {
	return h.appendRaw(a)
}

// RecordPolicyLoaded appends the PolicyLoaded action spec.md §4.6 requires
// on every constitution load or reload, independent of any bound plan
// (causalchain.Store.Append accepts an empty plan_id for this action type).
func (h *RuntimeHost) RecordPolicyLoaded(rec governance.PolicyLoadedRecord) error {
	_, err := h.appendRaw(causalchain.Action{
		Type:    causalchain.TypePolicyLoaded,
		Success: true,
		Metadata: causalchain.Metadata{
			ExecHints: map[string]any{"constitution_hash": rec.ConstitutionHash, "version": rec.Version},
		},
	})
	return err
}

// now is a seam so deterministic tests can override the clock; production
// wiring leaves it nil and falls back to time.Now().
func (h *RuntimeHost) now() time.Time {
	if h.clock != nil {
		return h.clock()
	}
	return time.Now().UTC()
}

func newID() string { return uuid.NewString() }

func firstOr(ss []string, def string) string {
	if len(ss) == 0 {
		return def
	}
	return ss[0]
}

// ctxBound reports whether a Runtime Context is bound, enforcing spec.md
// §4.4 invariant (a): "a Runtime Context must be bound before any effect."
func (h *RuntimeHost) ctxBound() bool { return h.rc != nil }

var errNoRuntimeContext = ccerrors.New(eval.ErrSecurityViolation, "no runtime context bound: set_execution_context was not called")
