// Package orchestrator implements the Plan driver (C8): the state machine
// that alternates pure RTFS evaluation with host-mediated capability calls
// until a plan completes, fails, or pauses at a checkpoint (spec.md §4.8).
package orchestrator

import (
	"context"
	"errors"

	"github.com/mandubian/ccos-sub001/causalchain"
	"github.com/mandubian/ccos-sub001/ccerrors"
	"github.com/mandubian/ccos-sub001/governance"
	"github.com/mandubian/ccos-sub001/plan"
	"github.com/mandubian/ccos-sub001/rtfs/eval"
	"github.com/mandubian/ccos-sub001/rtfs/value"
	"github.com/mandubian/ccos-sub001/telemetry"
)

// Status is the plan's position in the state machine of spec.md §4.8
// ("Created -> Running -> {Paused, Failed, Done}", with Paused looping
// back through Running on resume).
type Status string

const (
	StatusCreated Status = "Created"
	StatusRunning Status = "Running"
	StatusPaused  Status = "Paused"
	StatusFailed  Status = "Failed"
	StatusDone    Status = "Done"
)

// Host is the narrow slice of *host.RuntimeHost the Orchestrator drives:
// the evaluator's ExecContext boundary plus the three operations that bind,
// unbind, and dispatch against a plan's execution (set_execution_context,
// clear_execution_context, execute_capability) and the cross-plan
// parameter map the Orchestrator itself owns the lifecycle of. Accepting
// this interface rather than *host.RuntimeHost keeps orchestrator free of
// an import-time dependency on host, mirroring how rtfs/eval depends only
// on eval.ExecContext.
type Host interface {
	eval.ExecContext
	SetExecutionContext(planID string, intentIDs []string, rc governance.RuntimeContext) error
	ClearExecutionContext()
	ExecuteCapability(ctx context.Context, call eval.HostCall) (value.Value, error)
	CrossPlanParams() *value.Map
	SetCrossPlanParams(m *value.Map)
	AppendPlanAction(a causalchain.Action) (causalchain.Action, error)
}

// Result is what Run returns once a plan reaches a terminal or paused
// state.
type Result struct {
	Status Status
	Value  value.Value
	Err    error
}

// Orchestrator drives one or more plans against a shared Host, Governance
// Kernel, and Evaluator (spec.md §5: "The Orchestrator may drive multiple
// plans concurrently" — concurrency safety for that is the caller's
// responsibility, same as the teacher's own Runtime accepting one
// workflow context per goroutine).
type Orchestrator struct {
	host      Host
	kernel    *governance.Kernel
	evaluator *eval.Evaluator
	tel       telemetry.Telemetry
}

// New constructs an Orchestrator.
func New(h Host, k *governance.Kernel, tel telemetry.Telemetry) *Orchestrator {
	return &Orchestrator{host: h, kernel: k, evaluator: eval.New(), tel: tel}
}

// Run drives p to completion (spec.md §4.8, "Algorithm"): binds the
// Runtime Context, alternates Evaluate with Host dispatch on every
// RequiresHost outcome, and appends the plan-level lifecycle action that
// corresponds to how evaluation ended. It validates the plan against the
// Governance Kernel first, returning a StatusFailed Result without ever
// binding an execution context if validation fails (spec.md §4.6,
// "Plan-level validation").
func (o *Orchestrator) Run(ctx context.Context, p *plan.Plan, rc governance.RuntimeContext) Result {
	if err := o.kernel.ValidatePlan(p, rc); err != nil {
		return Result{Status: StatusFailed, Err: err}
	}
	// Cross-plan parameters already on the host (exports RunGraph merged
	// from earlier intents) are kept across the rebinding below.
	crossPlan := o.host.CrossPlanParams()
	if err := o.host.SetExecutionContext(p.PlanID, p.IntentIDs, rc); err != nil {
		return Result{Status: StatusFailed, Err: err}
	}
	if crossPlan != nil {
		o.host.SetCrossPlanParams(crossPlan)
	}

	env := eval.NewEnv()
	resumption := eval.NewResumption()
	return o.drive(ctx, p, env, resumption)
}

// drive runs the suspend/resume loop of spec.md §4.8 step 4 until the
// evaluator reaches Complete or Error. Re-entering Evaluate from the top of
// the plan body on every host round trip relies on Resumption/ExecContext
// idempotency to avoid re-dispatching already-resolved calls or
// re-appending already-recorded step lifecycle actions.
func (o *Orchestrator) drive(ctx context.Context, p *plan.Plan, env *eval.Env, resumption *eval.Resumption) Result {
	for {
		outcome := o.evaluator.Evaluate(p.Body, env, o.host, resumption)
		switch outcome.Status {
		case eval.StatusComplete:
			o.appendLifecycle(causalchain.TypePlanCompleted, true, "", "")
			o.host.ClearExecutionContext()
			return Result{Status: StatusDone, Value: outcome.Value}

		case eval.StatusRequiresHost:
			result, err := o.host.ExecuteCapability(ctx, outcome.Call)
			if err != nil {
				resumption.Record(value.Value{}, asEvalError(err))
			} else {
				resumption.Record(result, nil)
			}
			continue

		case eval.StatusError:
			o.appendLifecycle(causalchain.TypePlanAborted, false, string(outcome.Err.Kind), outcome.Err.Message)
			o.host.ClearExecutionContext()
			return Result{Status: StatusFailed, Err: outcome.Err}

		default:
			o.host.ClearExecutionContext()
			return Result{Status: StatusFailed, Err: ccerrors.Newf(eval.ErrInternal, "orchestrator: unknown outcome status %d", outcome.Status)}
		}
	}
}

func (o *Orchestrator) appendLifecycle(t causalchain.Type, success bool, errKind, errMsg string) {
	if _, err := o.host.AppendPlanAction(causalchain.Action{
		Type:         t,
		Success:      success,
		ErrorKind:    errKind,
		ErrorMessage: errMsg,
	}); err != nil && o.tel.Logger != nil {
		o.tel.Logger.Error(context.Background(), "append plan lifecycle action failed", "type", t, "error", err)
	}
}

// asEvalError adapts any error from ExecuteCapability into the evaluator's
// own error type so Resumption records it the same way whether it came
// from a governance denial, a capability error, or anything else the Host
// can return.
func asEvalError(err error) *eval.EvalError {
	var ce *ccerrors.Error
	if errors.As(err, &ce) {
		return ce.ToEvalError()
	}
	return &eval.EvalError{Kind: eval.ErrCapability, Message: err.Error()}
}
