package middleware

import (
	"context"
	"time"

	"github.com/mandubian/ccos-sub001/ccerrors"
	"github.com/mandubian/ccos-sub001/rtfs/eval"
	"github.com/mandubian/ccos-sub001/rtfs/value"
)

// Timeout is priority 20: enforces an absolute per-call budget from the
// runtime.learning.timeout hint ({timeout_ms}). The in-flight attempt is
// cancelled via ctx (effort-based: the capability provider must itself
// respect cancellation, spec.md §5 "Cancellation and timeouts").
type Timeout struct{}

func (Timeout) Priority() int   { return 20 }
func (Timeout) HintKey() string { return "runtime.learning.timeout" }

func (Timeout) Wrap(next Invoker) Invoker {
	return func(ctx context.Context, call eval.HostCall) (value.Value, error) {
		cfgV, ok := hint(call, "runtime.learning.timeout")
		if !ok || cfgV.Kind() != value.KindMap {
			return next(ctx, call)
		}
		cfg := cfgV.Map()
		timeoutMS := intField(cfg, "timeout_ms", 0)
		if timeoutMS <= 0 {
			return next(ctx, call)
		}

		cctx, cancel := context.WithTimeout(ctx, time.Duration(timeoutMS)*time.Millisecond)
		defer cancel()

		type res struct {
			v   value.Value
			err error
		}
		done := make(chan res, 1)
		go func() {
			v, err := next(cctx, call)
			done <- res{v, err}
		}()

		select {
		case r := <-done:
			return r.v, r.err
		case <-cctx.Done():
			observerFrom(ctx).OnTimeoutTriggered(call)
			return value.Value{}, ccerrors.Newf(eval.ErrTimeout, "capability call timed out: %s", call.CapabilityID)
		}
	}
}
