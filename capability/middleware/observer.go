package middleware

import (
	"context"
	"time"

	"github.com/mandubian/ccos-sub001/rtfs/eval"
)

// Observer receives notable middleware events so the Host can translate
// them into Causal Chain actions (CacheHit, CacheMiss, CircuitOpened,
// RetryAttempted, TimeoutTriggered, FallbackInvoked, HintApplied — spec.md
// §4.7 taxonomy). Handlers never append to the chain directly; they only
// call the Observer found in ctx, keeping this package free of any
// dependency on causalchain.
type Observer interface {
	OnHintApplied(hintKey string, call eval.HostCall)
	OnCacheHit(call eval.HostCall)
	OnCacheMiss(call eval.HostCall)
	OnCircuitOpened(call eval.HostCall)
	OnCircuitHalfOpened(call eval.HostCall)
	OnCircuitClosed(call eval.HostCall)
	OnRetryAttempted(call eval.HostCall, attempt int, delay time.Duration)
	OnTimeoutTriggered(call eval.HostCall)
	OnFallbackInvoked(call eval.HostCall, fallbackCapability string)
}

type observerKey struct{}

// WithObserver binds an Observer to ctx for the duration of one capability
// call's middleware chain.
func WithObserver(ctx context.Context, o Observer) context.Context {
	return context.WithValue(ctx, observerKey{}, o)
}

// observerFrom returns the bound Observer, or a noopObserver if none was
// set (tests may run handlers without a Host present).
func observerFrom(ctx context.Context) Observer {
	if o, ok := ctx.Value(observerKey{}).(Observer); ok && o != nil {
		return o
	}
	return noopObserver{}
}

type noopObserver struct{}

func (noopObserver) OnHintApplied(string, eval.HostCall)                 {}
func (noopObserver) OnCacheHit(eval.HostCall)                            {}
func (noopObserver) OnCacheMiss(eval.HostCall)                           {}
func (noopObserver) OnCircuitOpened(eval.HostCall)                       {}
func (noopObserver) OnCircuitHalfOpened(eval.HostCall)                  {}
func (noopObserver) OnCircuitClosed(eval.HostCall)                      {}
func (noopObserver) OnRetryAttempted(eval.HostCall, int, time.Duration) {}
func (noopObserver) OnTimeoutTriggered(eval.HostCall)                   {}
func (noopObserver) OnFallbackInvoked(eval.HostCall, string)            {}
