package host

import (
	"github.com/mandubian/ccos-sub001/causalchain"
	"github.com/mandubian/ccos-sub001/rtfs/eval"
	"github.com/mandubian/ccos-sub001/rtfs/value"
)

// NotifyStepStarted implements eval.ExecContext: appends PlanStepStarted and
// pushes a new context frame (spec.md §4.4, "notify_step_started"). A seq
// already seen in an earlier replay pass of this same plan run reuses its
// recorded action id as the parent instead of appending again (spec.md
// §4.3, replay idempotency).
func (h *RuntimeHost) NotifyStepStarted(seq int, name string, isolation value.Value) error {
	if !h.ctxBound() {
		return errNoRuntimeContext
	}
	actionID, seen := h.stepActionID[seq]
	if !seen {
		a, err := h.appendRaw(causalchain.Action{
			Type:         causalchain.TypeStepStarted,
			FunctionName: name,
			Metadata:     causalchain.Metadata{ExecHints: map[string]any{"seq": seq, "isolation": isolation.String()}},
		})
		if err != nil {
			return err
		}
		actionID = a.ActionID
		h.stepActionID[seq] = actionID
	}
	h.top = newFrame(isolationString(isolation), h.top)
	h.pushParent(actionID)
	return nil
}

// NotifyStepCompleted implements eval.ExecContext: appends PlanStepCompleted
// (unless seq already completed on an earlier replay pass) and pops the
// frame, merging its writes into the parent with Overwrite (sequential
// steps are not branches, so later writes simply take effect for
// subsequent siblings, unlike a step-parallel branch's declared merge
// policy).
func (h *RuntimeHost) NotifyStepCompleted(seq int, name string, result eval.Value) error {
	if !h.ctxBound() {
		return errNoRuntimeContext
	}
	if !h.stepDone[seq] {
		if _, err := h.appendRaw(causalchain.Action{
			Type:         causalchain.TypeStepComplete,
			FunctionName: name,
			Result:       value.ToAny(result),
			Success:      true,
			Metadata:     causalchain.Metadata{ExecHints: map[string]any{"seq": seq}},
		}); err != nil {
			return err
		}
		h.stepDone[seq] = true
	}
	h.popFrame(value.MergeOverwrite)
	h.popParent()
	return nil
}

// NotifyStepFailed implements eval.ExecContext: appends PlanStepFailed
// (unless seq already recorded) and pops the frame, discarding its local
// writes (a failed step's scratchpad changes do not leak into the parent,
// spec.md §4.4 "notify_step_failed").
func (h *RuntimeHost) NotifyStepFailed(seq int, name string, kind eval.ErrorKind, message string) error {
	if !h.ctxBound() {
		return errNoRuntimeContext
	}
	if !h.stepDone[seq] {
		if _, err := h.appendRaw(causalchain.Action{
			Type:         causalchain.TypeStepFailed,
			FunctionName: name,
			Success:      false,
			ErrorKind:    string(kind),
			ErrorMessage: message,
			Metadata:     causalchain.Metadata{ExecHints: map[string]any{"seq": seq}},
		}); err != nil {
			return err
		}
		h.stepDone[seq] = true
	}
	h.popFrame(value.MergeKeepExisting) // keep-existing on a discarded frame: no writes survive
	h.popParent()
	return nil
}

func (h *RuntimeHost) popFrame(policy value.MergePolicy) {
	if h.top == nil {
		return
	}
	child := h.top
	h.top = child.parent
	if policy != value.MergeKeepExisting {
		child.mergeInto(h.top, policy)
	}
}

// Get implements eval.ExecContext: reads the current frame, climbing per
// isolation, then falling back to cross-plan parameters (spec.md §3,
// "get... falls back to parent frames per isolation, then to cross-plan
// parameters").
func (h *RuntimeHost) Get(key value.Value) (value.Value, bool) {
	if h.top != nil {
		if v, ok := h.top.get(key); ok {
			return v, true
		}
	}
	if h.crossPlan != nil {
		return h.crossPlan.Get(key)
	}
	return value.Value{}, false
}

// Set implements eval.ExecContext: writes key in the current frame only.
func (h *RuntimeHost) Set(key, v value.Value) {
	if h.top == nil {
		h.top = newFrame("inherit", nil)
	}
	h.top.set(key, v)
}

// PushParallelFrame implements eval.ExecContext for step-parallel branches:
// a Sandboxed child frame whose merge is deferred to MergeInto (spec.md
// §4.3, "step-parallel creates isolated children").
func (h *RuntimeHost) PushParallelFrame() eval.ParallelFrame {
	parent := h.top
	f := newFrame("sandboxed", parent)
	return parallelFrame{f: f, parent: parent}
}

func isolationString(v value.Value) string {
	if v.Kind() != value.KindKeyword && v.Kind() != value.KindString {
		return "inherit"
	}
	switch v.Str() {
	case "isolated", "sandboxed":
		return v.Str()
	default:
		return "inherit"
	}
}
