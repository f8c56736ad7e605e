package middleware

import (
	"context"
	"sync"

	"golang.org/x/time/rate"

	"github.com/mandubian/ccos-sub001/rtfs/eval"
	"github.com/mandubian/ccos-sub001/rtfs/value"
)

// RateLimit is priority 5: a token bucket per capability id, sized from
// the runtime.learning.rate-limit hint ({rate_per_sec, burst}). Grounded
// on the teacher's own golang.org/x/time/rate usage in
// features/model/middleware.AdaptiveRateLimiter, simplified to a fixed
// per-call budget rather than an adaptive one since exec hints (not
// provider backoff signals) are this handler's only input.
type RateLimit struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewRateLimit constructs an empty RateLimit handler.
func NewRateLimit() *RateLimit {
	return &RateLimit{limiters: make(map[string]*rate.Limiter)}
}

func (*RateLimit) Priority() int   { return 5 }
func (*RateLimit) HintKey() string { return "runtime.learning.rate-limit" }

func (r *RateLimit) Wrap(next Invoker) Invoker {
	return func(ctx context.Context, call eval.HostCall) (value.Value, error) {
		cfgV, ok := hint(call, "runtime.learning.rate-limit")
		if !ok || cfgV.Kind() != value.KindMap {
			return next(ctx, call)
		}
		cfg := cfgV.Map()
		ratePerSec := floatField(cfg, "rate_per_sec", 10)
		burst := int(intField(cfg, "burst", int64(ratePerSec)))

		lim := r.limiterFor(call.CapabilityID, ratePerSec, burst)
		if err := lim.Wait(ctx); err != nil {
			return value.Value{}, err
		}
		return next(ctx, call)
	}
}

func (r *RateLimit) limiterFor(id string, ratePerSec float64, burst int) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()
	lim, ok := r.limiters[id]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(ratePerSec), burst)
		r.limiters[id] = lim
	}
	return lim
}
