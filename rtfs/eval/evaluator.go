package eval

import (
	"strconv"

	"github.com/mandubian/ccos-sub001/rtfs/value"
)

// Evaluator evaluates RTFS expressions against an Env and ExecContext,
// suspending at every `call` (spec.md §4.3). It carries no mutable state of
// its own between calls to Evaluate; all state that must survive a
// suspension lives in the Env (immutable, derivable) and the Resumption
// (an append-only replay log), so re-entering Evaluate after a host round
// trip is just another call with one more recorded result.
type Evaluator struct{}

// New constructs an Evaluator. It holds no configuration: special forms are
// the fixed closed set in spec.md §4.3 and are never extended at runtime
// (no language-macro system, per spec.md §1 Non-goals).
func New() *Evaluator { return &Evaluator{} }

// Evaluate evaluates expr in env, threading ctx for step/get/set! bookkeeping
// and resume for host-call replay. See the package doc and resumption.go
// for the suspend/resume model.
func (ev *Evaluator) Evaluate(expr value.Expr, env *Env, ctx ExecContext, resume *Resumption) Outcome {
	c := newCursor(resume)
	return ev.eval(expr, env, ctx, c)
}

func (ev *Evaluator) eval(expr value.Expr, env *Env, ctx ExecContext, c *cursor) Outcome {
	switch e := expr.(type) {
	case value.Literal:
		return complete(e.Value)

	case value.SymbolExpr:
		v, ok := env.Lookup(e.Name)
		if !ok {
			return errOutcome(newErr(ErrUnknownSymbol, e.Span(), "unbound symbol %q", e.Name))
		}
		return complete(v)

	case value.Do:
		return ev.evalSeq(e.Exprs, env, ctx, c, value.Null())

	case value.If:
		test := ev.eval(e.Test, env, ctx, c)
		if test.Status != StatusComplete {
			return test
		}
		if test.Value.Truthy() {
			return ev.eval(e.Then, env, ctx, c)
		}
		return ev.eval(e.Else, env, ctx, c)

	case value.Let:
		child := env.Child()
		for _, b := range e.Bindings {
			bound := ev.eval(b.Expr, child, ctx, c)
			if bound.Status != StatusComplete {
				return bound
			}
			child.Bind(b.Name, bound.Value)
		}
		return ev.evalSeq(e.Body, child, ctx, c, value.Null())

	case value.Fn:
		cl := &closure{params: e.Params, body: e.Body, env: env}
		return complete(env.closures.add(cl))

	case value.Application:
		return ev.evalApplication(e, env, ctx, c)

	case value.Call:
		return ev.evalCall(e, env, ctx, c)

	case value.Step:
		return ev.evalStep(e, env, ctx, c)

	case value.StepIf:
		return ev.evalStepIf(e, env, ctx, c)

	case value.StepLoop:
		return ev.evalStepLoop(e, env, ctx, c)

	case value.StepParallel:
		return ev.evalStepParallel(e, env, ctx, c)

	case value.Get:
		return ev.evalGet(e, env, ctx, c)

	case value.SetBang:
		return ev.evalSet(e, env, ctx, c)

	default:
		return errOutcome(newErr(ErrInternal, expr.Span(), "unknown expression node %T", expr))
	}
}

// evalSeq evaluates exprs left-to-right, returning the last value, or the
// suspension/error of whichever expression stops the sequence. empty is
// returned for a zero-length sequence (spec.md §8, "Empty do").
func (ev *Evaluator) evalSeq(exprs []value.Expr, env *Env, ctx ExecContext, c *cursor, empty value.Value) Outcome {
	if len(exprs) == 0 {
		return complete(empty)
	}
	var last Outcome
	for _, e := range exprs {
		last = ev.eval(e, env, ctx, c)
		if last.Status != StatusComplete {
			return last
		}
	}
	return last
}

// evalArgs evaluates a list of argument expressions in order, threading the
// cursor; if any suspends or errors, returns that outcome along with the
// values already evaluated (used to resume nested-call suspension cleanly).
func (ev *Evaluator) evalArgs(exprs []value.Expr, env *Env, ctx ExecContext, c *cursor) ([]value.Value, *Outcome) {
	out := make([]value.Value, 0, len(exprs))
	for _, e := range exprs {
		o := ev.eval(e, env, ctx, c)
		if o.Status != StatusComplete {
			return out, &o
		}
		out = append(out, o.Value)
	}
	return out, nil
}

func (ev *Evaluator) evalApplication(e value.Application, env *Env, ctx ExecContext, c *cursor) Outcome {
	head := ev.eval(e.Head, env, ctx, c)
	if head.Status != StatusComplete {
		return head
	}
	args, abort := ev.evalArgs(e.Args, env, ctx, c)
	if abort != nil {
		return *abort
	}
	cl, ok := env.closures.lookup(head.Value)
	if !ok {
		return errOutcome(newErr(ErrType, e.Span(), "application head is not a function"))
	}
	if len(args) != len(cl.params) {
		return errOutcome(newErr(ErrType, e.Span(), "function expects %d arguments, got %d", len(cl.params), len(args)))
	}
	callEnv := cl.env.Child()
	for i, p := range cl.params {
		callEnv.Bind(p, args[i])
	}
	return ev.evalSeq(cl.body, callEnv, ctx, c, value.Null())
}

// evalCall evaluates the capability keyword and argument expressions of a
// `call` form; once every sub-expression is a value, it consults the replay
// cursor: a recorded result is returned in place, and an unresolved call
// suspends the whole evaluation (spec.md §4.3, "call").
func (ev *Evaluator) evalCall(e value.Call, env *Env, ctx ExecContext, c *cursor) Outcome {
	capOut := ev.eval(e.Capability, env, ctx, c)
	if capOut.Status != StatusComplete {
		return capOut
	}
	if capOut.Value.Kind() != value.KindKeyword {
		return errOutcome(newErr(ErrType, e.Span(), "call capability must be a keyword"))
	}
	args, abort := ev.evalArgs(e.Args, env, ctx, c)
	if abort != nil {
		return *abort
	}

	meta := e.Meta()
	hints := extractHints(meta)

	res, ok := c.next()
	if !ok {
		call := HostCall{
			CapabilityID:  capOut.Value.Str(),
			Args:          args,
			Metadata:      hints,
			CorrelationID: correlationID(meta, c.pos),
		}
		return requiresHost(call, call.CorrelationID)
	}
	if res.err != nil {
		return errOutcome(res.err)
	}
	return complete(res.value)
}

// extractHints returns the metadata map unchanged if it carries only
// whitelisted runtime.learning.* keys (the parser already enforces this at
// parse time, per spec.md §4.2), or nil if there is no metadata.
func extractHints(meta *value.Map) *value.Map {
	return meta
}

// correlationID derives the call's idempotency key (spec.md §3,
// "HostCall"). A caller-supplied :correlation-id metadata entry takes
// precedence; otherwise the deterministic ordinal position of this call
// site in the evaluation trace is used, which is stable across replay
// because evaluation order is fixed and auditable (spec.md §1 Non-goals).
func correlationID(meta *value.Map, ordinal int) string {
	if meta != nil {
		if v, ok := meta.Get(value.Keyword("correlation-id")); ok && v.Kind() == value.KindString {
			return v.Str()
		}
	}
	return "ord:" + strconv.Itoa(ordinal)
}
