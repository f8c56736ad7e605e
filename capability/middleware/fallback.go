package middleware

import (
	"context"

	"github.com/mandubian/ccos-sub001/rtfs/eval"
	"github.com/mandubian/ccos-sub001/rtfs/value"
)

// FallbackDispatch invokes a capability by id through the same path as the
// original call (host execute_capability minus the Fallback handler, to
// avoid infinite fallback chains). Supplied by the Host when wiring the
// chain.
type FallbackDispatch func(ctx context.Context, capabilityID string, args []value.Value, metadata *value.Map) (value.Value, error)

// Fallback is priority 30 (innermost, closest to the base invoker): on
// failure, it dispatches an alternative capability named by the
// runtime.learning.fallback hint's "capability" field through Dispatch
// (so the fallback call still runs through governance and the registry,
// just addressed by a different capability id).
type Fallback struct {
	Dispatch FallbackDispatch
}

func (Fallback) Priority() int   { return 30 }
func (Fallback) HintKey() string { return "runtime.learning.fallback" }

func (f Fallback) Wrap(next Invoker) Invoker {
	return func(ctx context.Context, call eval.HostCall) (value.Value, error) {
		result, err := next(ctx, call)
		if err == nil {
			return result, nil
		}
		cfgV, ok := hint(call, "runtime.learning.fallback")
		if !ok || cfgV.Kind() != value.KindMap || f.Dispatch == nil {
			return result, err
		}
		fallbackCap := stringField(cfgV.Map(), "capability", "")
		if fallbackCap == "" {
			return result, err
		}
		observerFrom(ctx).OnFallbackInvoked(call, fallbackCap)
		return f.Dispatch(ctx, fallbackCap, call.Args, call.Metadata)
	}
}
