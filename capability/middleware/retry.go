package middleware

import (
	"context"
	"math"
	"time"

	"github.com/mandubian/ccos-sub001/rtfs/eval"
	"github.com/mandubian/ccos-sub001/rtfs/value"
)

// Retry is priority 10: exponential backoff driven by the
// runtime.learning.retry hint ({max_retries, initial_delay_ms,
// multiplier}), grounded on the teacher's runtime/a2a/retry.Do but
// simplified to the handler's fixed config (no jitter), since backoff
// schedules must be recorded in action metadata for replay (spec.md §4.5).
type Retry struct{}

func (Retry) Priority() int   { return 10 }
func (Retry) HintKey() string { return "runtime.learning.retry" }

func (Retry) Wrap(next Invoker) Invoker {
	return func(ctx context.Context, call eval.HostCall) (value.Value, error) {
		cfgV, ok := hint(call, "runtime.learning.retry")
		if !ok || cfgV.Kind() != value.KindMap {
			return next(ctx, call)
		}
		cfg := cfgV.Map()
		maxRetries := int(intField(cfg, "max_retries", 0))
		initialDelay := time.Duration(intField(cfg, "initial_delay_ms", 100)) * time.Millisecond
		multiplier := floatField(cfg, "multiplier", 2.0)

		var lastErr error
		var result value.Value
		for attempt := 0; attempt <= maxRetries; attempt++ {
			result, lastErr = next(ctx, call)
			if lastErr == nil {
				return result, nil
			}
			if attempt == maxRetries {
				break
			}
			delay := backoffDelay(initialDelay, multiplier, attempt)
			observerFrom(ctx).OnRetryAttempted(call, attempt+1, delay)
			select {
			case <-ctx.Done():
				return value.Value{}, ctx.Err()
			case <-time.After(delay):
			}
		}
		return result, lastErr
	}
}

func backoffDelay(initial time.Duration, multiplier float64, attempt int) time.Duration {
	return time.Duration(float64(initial) * math.Pow(multiplier, float64(attempt)))
}
