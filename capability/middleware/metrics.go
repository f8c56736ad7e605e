package middleware

import (
	"context"
	"time"

	"github.com/mandubian/ccos-sub001/rtfs/eval"
	"github.com/mandubian/ccos-sub001/rtfs/value"
	"github.com/mandubian/ccos-sub001/telemetry"
)

// Metrics is priority 1 (outermost): it always records call duration and
// count regardless of whether the caller attached a
// runtime.learning.metrics hint, since this is the chain's own
// observability rather than an opt-in behavior. The hint, when present,
// only controls whether a HintApplied chain action should also be
// emitted by the caller (ShouldEmit).
type Metrics struct {
	Metrics telemetry.Metrics
}

func (Metrics) Priority() int   { return 1 }
func (Metrics) HintKey() string { return "runtime.learning.metrics" }

// ShouldEmit reports whether the metrics hint requests a HintApplied
// action in the causal chain for this call (default: false, since every
// call already gets CapabilityCall/CapabilityResult actions).
func (Metrics) ShouldEmit(call eval.HostCall) bool {
	v, ok := hint(call, "runtime.learning.metrics")
	if !ok || v.Kind() != value.KindMap {
		return false
	}
	emit, ok := mapField(v.Map(), "emit")
	return ok && emit.Truthy()
}

func (m Metrics) Wrap(next Invoker) Invoker {
	return func(ctx context.Context, call eval.HostCall) (value.Value, error) {
		start := time.Now()
		result, err := next(ctx, call)
		if m.Metrics != nil {
			tags := map[string]string{"capability": call.CapabilityID}
			m.Metrics.IncrCounter(ctx, "ccos.capability.calls", tags)
			m.Metrics.RecordDuration(ctx, "ccos.capability.duration_ms", float64(time.Since(start).Milliseconds()), tags)
			if err != nil {
				m.Metrics.IncrCounter(ctx, "ccos.capability.errors", tags)
			}
		}
		return result, err
	}
}
