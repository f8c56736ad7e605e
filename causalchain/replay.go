package causalchain

import (
	"fmt"

	"github.com/mandubian/ccos-sub001/rtfs/eval"
	"github.com/mandubian/ccos-sub001/rtfs/value"
)

// Replay re-executes the pure prefix of a plan against its recorded
// CapabilityResult actions, returning the final Outcome (spec.md §4.7,
// "replay(action_id, env)"). actionID identifies any action belonging to
// the plan (typically the PlanStarted root); the chain's own parent
// pointers, not an external index, determine replay order.
func (s *Store) Replay(actionID string, body value.Expr, env *eval.Env) (eval.Outcome, error) {
	root, err := s.rootFor(actionID)
	if err != nil {
		return eval.Outcome{}, err
	}

	results, err := s.orderedResults(root)
	if err != nil {
		return eval.Outcome{}, err
	}
	resume := eval.RestoreFromValues(results)

	ev := eval.New()
	out := ev.Evaluate(body, env, noopExecContext{}, resume)
	return out, nil
}

// rootFor walks parent pointers up to the plan root.
func (s *Store) rootFor(actionID string) (Action, error) {
	a, err := s.Get(actionID)
	if err != nil {
		return Action{}, err
	}
	for a.ParentActionID != "" {
		parent, err := s.Get(a.ParentActionID)
		if err != nil {
			return Action{}, fmt.Errorf("causalchain: replay: missing parent %q: %w", a.ParentActionID, err)
		}
		a = parent
	}
	return a, nil
}

// orderedResults collects every successful CapabilityResult in the plan's
// subtree, in depth-first append order (each result is a child of its
// CapabilityCall), and decodes each Result back into a Value via
// value.FromAny. Failed results are skipped, so a replay of a plan that
// ended on a failed call stops at that call with a RequiresHost outcome.
func (s *Store) orderedResults(root Action) ([]value.Value, error) {
	var results []value.Value
	var walk func(id string) error
	walk = func(id string) error {
		children, err := s.Children(id)
		if err != nil {
			return err
		}
		for _, child := range children {
			if child.Type == TypeCapabilityResult {
				if child.Success {
					v, err := value.FromAny(child.Result)
					if err != nil {
						return fmt.Errorf("causalchain: replay: decode result %s: %w", child.ActionID, err)
					}
					results = append(results, v)
				}
			}
			if err := walk(child.ActionID); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(root.ActionID); err != nil {
		return nil, err
	}
	return results, nil
}

// noopExecContext satisfies eval.ExecContext for a pure replay: step
// lifecycle notifications are no-ops (the replay's purpose is to recompute
// the final value, not to re-append already-recorded actions), and
// get/set!/parallel frames operate on a throwaway scratchpad.
type noopExecContext struct{}

func (noopExecContext) NotifyStepStarted(int, string, value.Value) error   { return nil }
func (noopExecContext) NotifyStepCompleted(int, string, eval.Value) error  { return nil }
func (noopExecContext) NotifyStepFailed(int, string, eval.ErrorKind, string) error {
	return nil
}
func (noopExecContext) Get(value.Value) (value.Value, bool)   { return value.Value{}, false }
func (noopExecContext) Set(value.Value, value.Value)          {}
func (noopExecContext) PushParallelFrame() eval.ParallelFrame { return noopFrame{} }

type noopFrame struct{}

func (noopFrame) Get(value.Value) (value.Value, bool)   { return value.Value{}, false }
func (noopFrame) Set(value.Value, value.Value)          {}
func (noopFrame) MergeInto(value.MergePolicy)           {}
