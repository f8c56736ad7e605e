package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mandubian/ccos-sub001/rtfs/eval"
	"github.com/mandubian/ccos-sub001/rtfs/value"
)

type circuitState int

const (
	circuitClosed circuitState = iota
	circuitOpen
	circuitHalfOpen
)

type circuitRecord struct {
	state       circuitState
	failures    int
	openedAt    time.Time
	cooldown    time.Duration
}

// CircuitBreaker is priority 3: tracks failures per capability id, opening
// after failure_threshold consecutive failures for cooldown_ms, then
// allowing one trial call in the half-open state.
type CircuitBreaker struct {
	mu       sync.Mutex
	circuits map[string]*circuitRecord
}

// NewCircuitBreaker constructs an empty CircuitBreaker.
func NewCircuitBreaker() *CircuitBreaker {
	return &CircuitBreaker{circuits: make(map[string]*circuitRecord)}
}

func (*CircuitBreaker) Priority() int   { return 3 }
func (*CircuitBreaker) HintKey() string { return "runtime.learning.circuit-breaker" }

func (cb *CircuitBreaker) Wrap(next Invoker) Invoker {
	return func(ctx context.Context, call eval.HostCall) (value.Value, error) {
		cfgV, ok := hint(call, "runtime.learning.circuit-breaker")
		if !ok || cfgV.Kind() != value.KindMap {
			return next(ctx, call)
		}
		cfg := cfgV.Map()
		threshold := int(intField(cfg, "failure_threshold", 5))
		cooldown := time.Duration(intField(cfg, "cooldown_ms", 30000)) * time.Millisecond

		rec := cb.recordFor(call.CapabilityID, cooldown)

		cb.mu.Lock()
		switch rec.state {
		case circuitOpen:
			if time.Since(rec.openedAt) >= rec.cooldown {
				rec.state = circuitHalfOpen
				cb.mu.Unlock()
				observerFrom(ctx).OnCircuitHalfOpened(call)
			} else {
				cb.mu.Unlock()
				return value.Value{}, fmt.Errorf("circuit open for %s", call.CapabilityID)
			}
		default:
			cb.mu.Unlock()
		}

		result, err := next(ctx, call)

		cb.mu.Lock()
		defer cb.mu.Unlock()
		if err != nil {
			rec.failures++
			if rec.state == circuitHalfOpen || rec.failures >= threshold {
				rec.state = circuitOpen
				rec.openedAt = time.Now()
				observerFrom(ctx).OnCircuitOpened(call)
			}
			return result, err
		}
		if rec.state != circuitClosed {
			observerFrom(ctx).OnCircuitClosed(call)
		}
		rec.state = circuitClosed
		rec.failures = 0
		return result, nil
	}
}

func (cb *CircuitBreaker) recordFor(id string, cooldown time.Duration) *circuitRecord {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	rec, ok := cb.circuits[id]
	if !ok {
		rec = &circuitRecord{cooldown: cooldown}
		cb.circuits[id] = rec
	}
	rec.cooldown = cooldown
	return rec
}
