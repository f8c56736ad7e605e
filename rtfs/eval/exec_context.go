package eval

import "github.com/mandubian/ccos-sub001/rtfs/value"

// ExecContext is the narrow slice of the Host interface (spec.md §4.4) the
// evaluator calls synchronously while evaluating `step`/`get`/`set!`. These
// operations never suspend evaluation — only `call` does (spec.md §5,
// "Suspension points") — because they do not invoke a governed capability;
// they just record lifecycle bookkeeping and touch the per-step scratchpad
// the Orchestrator owns.
//
// The evaluator depends only on this interface, not on any concrete host or
// orchestrator type, so rtfs/eval has no import-time dependency on the rest
// of the system (accept interfaces, return structs).
type ExecContext interface {
	// NotifyStepStarted appends a PlanStepStarted action and pushes a new
	// execution-context frame with the given isolation. seq is the
	// deterministic ordinal of this step instance in the evaluation trace;
	// implementations use it to recognize and skip a notification already
	// recorded by an earlier replay pass (spec.md §4.3, "Resumption...
	// idempotency on host calls... prevents duplicate effects" applies
	// equally to step lifecycle bookkeeping under replay).
	NotifyStepStarted(seq int, name string, isolation value.Value) error
	// NotifyStepCompleted appends PlanStepCompleted and pops the frame,
	// merging its writes into the parent.
	NotifyStepCompleted(seq int, name string, result Value) error
	// NotifyStepFailed appends PlanStepFailed and pops the frame.
	NotifyStepFailed(seq int, name string, kind ErrorKind, message string) error
	// Get reads key from the current frame, falling back to parent frames
	// per isolation and then to cross-plan parameters.
	Get(key Value) (Value, bool)
	// Set writes key in the current frame only.
	Set(key, v Value)
	// PushParallelFrame starts an isolated child frame for a step-parallel
	// branch and returns a handle used to pop/merge it later.
	PushParallelFrame() ParallelFrame
}

// ParallelFrame is an isolated child execution-context frame created for a
// single step-parallel branch (spec.md §4.3, "step-parallel").
type ParallelFrame interface {
	// Get/Set operate on this frame only (Sandboxed isolation: spec.md §3).
	Get(key Value) (Value, bool)
	Set(key, v Value)
	// MergeInto consolidates this frame into the parent per policy and
	// discards the frame.
	MergeInto(policy value.MergePolicy)
}
