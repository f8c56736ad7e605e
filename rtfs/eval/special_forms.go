package eval

import (
	"github.com/mandubian/ccos-sub001/rtfs/value"
)

// evalStep implements spec.md §4.3 "step": notify started, evaluate the
// body eagerly (step is a built-in form, not a library function, precisely
// so lifecycle events are observable in order), then notify completed or
// failed.
func (ev *Evaluator) evalStep(e value.Step, env *Env, ctx ExecContext, c *cursor) Outcome {
	seq := c.nextStepSeq()
	if err := ctx.NotifyStepStarted(seq, e.Name, value.Keyword("inherit")); err != nil {
		return errOutcome(newErr(ErrInternal, e.Span(), "notify step started: %v", err))
	}
	out := ev.evalSeq(e.Body, env, ctx, c, value.Null())
	switch out.Status {
	case StatusComplete:
		if err := ctx.NotifyStepCompleted(seq, e.Name, out.Value); err != nil {
			return errOutcome(newErr(ErrInternal, e.Span(), "notify step completed: %v", err))
		}
		return out
	case StatusRequiresHost:
		return out
	case StatusError:
		if err := ctx.NotifyStepFailed(seq, e.Name, out.Err.Kind, out.Err.Message); err != nil {
			return errOutcome(newErr(ErrInternal, e.Span(), "notify step failed: %v", err))
		}
		return out
	default:
		return out
	}
}

func (ev *Evaluator) evalStepIf(e value.StepIf, env *Env, ctx ExecContext, c *cursor) Outcome {
	seq := c.nextStepSeq()
	if err := ctx.NotifyStepStarted(seq, e.Name, value.Keyword("inherit")); err != nil {
		return errOutcome(newErr(ErrInternal, e.Span(), "notify step started: %v", err))
	}
	test := ev.eval(e.Test, env, ctx, c)
	if test.Status != StatusComplete {
		return test
	}
	var body []value.Expr
	if test.Value.Truthy() {
		body = e.Then
	} else {
		body = e.Else
	}
	out := ev.evalSeq(body, env, ctx, c, value.Null())
	switch out.Status {
	case StatusComplete:
		if err := ctx.NotifyStepCompleted(seq, e.Name, out.Value); err != nil {
			return errOutcome(newErr(ErrInternal, e.Span(), "notify step completed: %v", err))
		}
	case StatusError:
		if err := ctx.NotifyStepFailed(seq, e.Name, out.Err.Kind, out.Err.Message); err != nil {
			return errOutcome(newErr(ErrInternal, e.Span(), "notify step failed: %v", err))
		}
	}
	return out
}

// evalStepLoop re-evaluates Cond before each iteration and runs Body while
// it is truthy, returning the last body value (Null if the loop never
// runs). Each iteration's calls are recorded in the same flat Resumption,
// so replay deterministically re-enters the same iteration.
func (ev *Evaluator) evalStepLoop(e value.StepLoop, env *Env, ctx ExecContext, c *cursor) Outcome {
	seq := c.nextStepSeq()
	if err := ctx.NotifyStepStarted(seq, e.Name, value.Keyword("inherit")); err != nil {
		return errOutcome(newErr(ErrInternal, e.Span(), "notify step started: %v", err))
	}
	last := value.Null()
	for {
		cond := ev.eval(e.Cond, env, ctx, c)
		if cond.Status != StatusComplete {
			return cond
		}
		if !cond.Value.Truthy() {
			break
		}
		out := ev.evalSeq(e.Body, env, ctx, c, value.Null())
		if out.Status != StatusComplete {
			if out.Status == StatusError {
				if err := ctx.NotifyStepFailed(seq, e.Name, out.Err.Kind, out.Err.Message); err != nil {
					return errOutcome(newErr(ErrInternal, e.Span(), "notify step failed: %v", err))
				}
			}
			return out
		}
		last = out.Value
	}
	if err := ctx.NotifyStepCompleted(seq, e.Name, last); err != nil {
		return errOutcome(newErr(ErrInternal, e.Span(), "notify step completed: %v", err))
	}
	return complete(last)
}

// evalStepParallel launches each branch as an isolated child context
// (spec.md §4.3, "step-parallel"). Branches are evaluated one after another
// in declared order; if a branch reaches an unresolved `call`, the whole
// step-parallel form surfaces that single HostCall (the first one
// encountered in declared branch order, spec.md §5 "deterministic...
// tie-break by append order"), since Outcome models exactly one pending
// call at a time. Once every branch completes, the frames are merged into
// the parent per the declared policy.
func (ev *Evaluator) evalStepParallel(e value.StepParallel, env *Env, ctx ExecContext, c *cursor) Outcome {
	type branchResult struct {
		out   Outcome
		frame ParallelFrame
	}
	results := make([]branchResult, 0, len(e.Branches))
	// Branches are evaluated in declared order rather than as truly
	// concurrent goroutines: every branch consumes from the same flat,
	// append-order Resumption and step-sequence counters, and a shared
	// mutable cursor is what lets replay stay deterministic (spec.md §5,
	// "deterministic result given the per-branch outputs... tie-break by
	// append order"). Real wall-clock parallelism is left to the host
	// dispatch layer, which may run the capability calls each branch
	// surfaces concurrently; isolation is still structural here via each
	// branch's own ParallelFrame.
	for _, branch := range e.Branches {
		frame := ctx.PushParallelFrame()
		childEnv := env.Child()
		out := ev.evalSeq(branch.Body, childEnv, frameContext{ExecContext: ctx, frame: frame}, c, value.Null())
		results = append(results, branchResult{out: out, frame: frame})
		if out.Status != StatusComplete {
			return out
		}
	}
	for _, r := range results {
		r.frame.MergeInto(e.Merge)
	}
	return complete(value.Null())
}

// frameContext adapts an isolated ParallelFrame's Get/Set onto the parent
// ExecContext for a single branch's evaluation.
type frameContext struct {
	ExecContext
	frame ParallelFrame
}

func (f frameContext) Get(key Value) (Value, bool) { return f.frame.Get(key) }
func (f frameContext) Set(key, v Value)             { f.frame.Set(key, v) }

func (ev *Evaluator) evalGet(e value.Get, env *Env, ctx ExecContext, c *cursor) Outcome {
	key := ev.eval(e.Key, env, ctx, c)
	if key.Status != StatusComplete {
		return key
	}
	v, ok := ctx.Get(key.Value)
	if !ok {
		return complete(value.Null())
	}
	return complete(v)
}

func (ev *Evaluator) evalSet(e value.SetBang, env *Env, ctx ExecContext, c *cursor) Outcome {
	key := ev.eval(e.Key, env, ctx, c)
	if key.Status != StatusComplete {
		return key
	}
	val := ev.eval(e.Value, env, ctx, c)
	if val.Status != StatusComplete {
		return val
	}
	ctx.Set(key.Value, val.Value)
	return complete(val.Value)
}
