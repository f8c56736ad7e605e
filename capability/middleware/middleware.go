// Package middleware implements the priority-ordered hint-handler chain
// that wraps every capability call (spec.md §4.5, "Hint Handler chain"):
// Metrics(1) -> Cache(2) -> CircuitBreaker(3) -> RateLimit(5) ->
// Retry(10) -> Timeout(20) -> Fallback(30), lower priority running
// outermost. Each handler reads its own execution hint (a keyword under
// runtime.learning.*) from the call's metadata map to configure itself
// per call; a handler with no matching hint is a pass-through.
package middleware

import (
	"context"

	"github.com/mandubian/ccos-sub001/rtfs/eval"
	"github.com/mandubian/ccos-sub001/rtfs/value"
)

// Invoker runs a capability call and returns its result or a structured
// error. The base Invoker (innermost) is the registry's own
// Manifest.Execute; every Handler wraps it with one more layer.
type Invoker func(ctx context.Context, call eval.HostCall) (value.Value, error)

// Handler is one link in the hint-handler chain.
type Handler interface {
	// Priority orders handlers; lower values run outermost (spec.md §4.5
	// table: Metrics=1 ... Fallback=30).
	Priority() int
	// HintKey is the runtime.learning.* metadata key this handler reacts
	// to, e.g. "runtime.learning.retry".
	HintKey() string
	// Wrap returns an Invoker that applies this handler's behavior around
	// next.
	Wrap(next Invoker) Invoker
}

// Chain composes handlers by Priority ascending (lowest number outermost)
// and returns a single Invoker wrapping base. Every handler whose hint key
// is present in a call's metadata triggers a HintApplied notification to
// the bound Observer before that handler's own Wrap runs.
func Chain(handlers []Handler, base Invoker) Invoker {
	sorted := sortedByPriorityDesc(handlers)
	out := base
	for _, h := range sorted {
		out = withHintApplied(h, out)
	}
	return out
}

func withHintApplied(h Handler, wrapped Invoker) Invoker {
	inner := h.Wrap(wrapped)
	key := h.HintKey()
	return func(ctx context.Context, call eval.HostCall) (value.Value, error) {
		if _, ok := hint(call, key); ok {
			observerFrom(ctx).OnHintApplied(key, call)
		}
		return inner(ctx, call)
	}
}

// sortedByPriorityDesc returns handlers ordered from highest priority
// number to lowest, so that wrapping them in that order around base
// leaves the lowest-priority handler as the outermost wrapper.
func sortedByPriorityDesc(handlers []Handler) []Handler {
	out := make([]Handler, len(handlers))
	copy(out, handlers)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1].Priority() < out[j].Priority(); j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}

// hint returns the Value bound to the given keyword key in call.Metadata,
// if present.
func hint(call eval.HostCall, key string) (value.Value, bool) {
	if call.Metadata == nil {
		return value.Value{}, false
	}
	return call.Metadata.Get(value.Keyword(key))
}

// mapField reads a named field out of a hint's configuration map.
func mapField(cfg *value.Map, key string) (value.Value, bool) {
	if cfg == nil {
		return value.Value{}, false
	}
	return cfg.Get(value.Keyword(key))
}

func intField(cfg *value.Map, key string, def int64) int64 {
	v, ok := mapField(cfg, key)
	if !ok || v.Kind() != value.KindInt {
		return def
	}
	return v.Int()
}

func floatField(cfg *value.Map, key string, def float64) float64 {
	v, ok := mapField(cfg, key)
	if !ok {
		return def
	}
	switch v.Kind() {
	case value.KindFloat:
		return v.Float()
	case value.KindInt:
		return float64(v.Int())
	default:
		return def
	}
}

func stringField(cfg *value.Map, key, def string) string {
	v, ok := mapField(cfg, key)
	if !ok || (v.Kind() != value.KindString && v.Kind() != value.KindKeyword) {
		return def
	}
	return v.Str()
}
