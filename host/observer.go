package host

import (
	"context"
	"time"

	"github.com/mandubian/ccos-sub001/causalchain"
	"github.com/mandubian/ccos-sub001/rtfs/eval"
)

// RuntimeHost implements capability/middleware.Observer: every handler
// event becomes a Causal Chain action, keeping the middleware package free
// of any direct causalchain dependency (spec.md §4.5's hint-handler
// taxonomy: HintApplied, CacheHit/Miss, CircuitOpened/HalfOpened/Closed,
// RetryAttempted, TimeoutTriggered, FallbackInvoked).

func (h *RuntimeHost) OnHintApplied(hintKey string, call eval.HostCall) {
	h.appendObserverAction(causalchain.TypeHintApplied, call, &causalchain.Metadata{
		CorrelationID: call.CorrelationID,
		ExecHints:     map[string]any{"hint_key": hintKey},
	})
}

func (h *RuntimeHost) OnCacheHit(call eval.HostCall) {
	h.appendObserverAction(causalchain.TypeCacheHit, call, nil)
}

func (h *RuntimeHost) OnCacheMiss(call eval.HostCall) {
	h.appendObserverAction(causalchain.TypeCacheMiss, call, nil)
}

func (h *RuntimeHost) OnCircuitOpened(call eval.HostCall) {
	h.appendObserverAction(causalchain.TypeCircuitOpened, call, nil)
}

func (h *RuntimeHost) OnCircuitHalfOpened(call eval.HostCall) {
	h.appendObserverAction(causalchain.TypeCircuitHalfOpen, call, nil)
}

func (h *RuntimeHost) OnCircuitClosed(call eval.HostCall) {
	h.appendObserverAction(causalchain.TypeCircuitClosed, call, nil)
}

func (h *RuntimeHost) OnRetryAttempted(call eval.HostCall, attempt int, delay time.Duration) {
	h.appendObserverAction(causalchain.TypeRetryAttempted, call, &causalchain.Metadata{
		CorrelationID: call.CorrelationID,
		ExecHints:     map[string]any{"attempt": attempt, "delay_ms": delay.Milliseconds()},
	})
}

func (h *RuntimeHost) OnTimeoutTriggered(call eval.HostCall) {
	h.appendObserverAction(causalchain.TypeTimeoutTriggered, call, nil)
}

func (h *RuntimeHost) OnFallbackInvoked(call eval.HostCall, fallbackCapability string) {
	h.appendObserverAction(causalchain.TypeFallbackInvoked, call, &causalchain.Metadata{
		CorrelationID: call.CorrelationID,
		ExecHints:     map[string]any{"fallback_capability": fallbackCapability},
	})
}

func (h *RuntimeHost) appendObserverAction(t causalchain.Type, call eval.HostCall, meta *causalchain.Metadata) {
	if meta == nil {
		meta = &causalchain.Metadata{CorrelationID: call.CorrelationID}
	}
	// Observer callbacks fire from inside the middleware chain, itself
	// invoked while the CapabilityCall action is the current parent, so
	// these land as its children: exactly the provenance link spec.md §8
	// wants for "a governance decision... same-parent or provenance link."
	if _, err := h.appendRaw(causalchain.Action{
		Type:         t,
		FunctionName: call.CapabilityID,
		Success:      true,
		Metadata:     *meta,
	}); err != nil && h.tel.Logger != nil {
		h.tel.Logger.Error(context.Background(), "append observer action failed", "type", t, "error", err)
	}
}
