package eval

// Resumption carries the results of host calls already dispatched for the
// current plan, keyed by the deterministic ordinal position of the `call`
// site in a top-to-bottom evaluation trace (spec.md §4.3, "Suspension and
// resumption"). Re-entering Evaluate with the same expression, environment,
// and Resumption deterministically replays every pure step and every
// already-resolved call, stopping only at the first call whose result is
// not yet known — this is what makes checkpoint/resume correct without any
// continuation-passing machinery in the evaluator itself.
type Resumption struct {
	results []hostResult
}

type hostResult struct {
	value Value
	err   *EvalError
}

// NewResumption builds an empty Resumption for a fresh plan run.
func NewResumption() *Resumption {
	return &Resumption{}
}

// Record appends the result of the call at the next ordinal position. The
// Orchestrator calls this after dispatching a HostCall surfaced by
// Evaluate, then re-invokes Evaluate from the top.
func (r *Resumption) Record(v Value, err *EvalError) {
	r.results = append(r.results, hostResult{value: v, err: err})
}

// Len reports how many host results have been recorded.
func (r *Resumption) Len() int { return len(r.results) }

// Snapshot returns a deep-enough copy suitable for checkpointing: the
// recorded results are themselves immutable Values, so a shallow copy of
// the slice is sufficient (spec.md §4.8, "Checkpoints").
func (r *Resumption) Snapshot() []Value {
	out := make([]Value, len(r.results))
	for i, res := range r.results {
		out[i] = res.value
	}
	return out
}

// RestoreFromValues rebuilds a Resumption from a checkpointed snapshot of
// successful call results (errors are not checkpointed: spec.md §4.8 only
// requires plan to resume past completed calls).
func RestoreFromValues(vs []Value) *Resumption {
	r := &Resumption{results: make([]hostResult, len(vs))}
	for i, v := range vs {
		r.results[i] = hostResult{value: v}
	}
	return r
}

// cursor walks a Resumption during one evaluation pass, handing out
// already-known results in order and reporting when the replay log is
// exhausted (meaning the next call must actually suspend).
type cursor struct {
	resume  *Resumption
	pos     int
	stepSeq int
}

func newCursor(r *Resumption) *cursor {
	if r == nil {
		r = NewResumption()
	}
	return &cursor{resume: r}
}

// next returns the recorded result for the next call site, if any, and
// advances the cursor.
func (c *cursor) next() (hostResult, bool) {
	if c.pos >= len(c.resume.results) {
		return hostResult{}, false
	}
	res := c.resume.results[c.pos]
	c.pos++
	return res, true
}

// nextStepSeq hands out the next deterministic step-instance ordinal.
func (c *cursor) nextStepSeq() int {
	seq := c.stepSeq
	c.stepSeq++
	return seq
}
