// Package telemetry defines the Logger/Metrics/Tracer seam used throughout
// the module, mirroring the teacher's runtime/agent/telemetry package: a
// small set of interfaces so call sites never depend on a concrete backend,
// with a no-op implementation for tests and an OpenTelemetry-backed
// implementation for production (otel.go).
package telemetry

import "context"

// Logger emits structured, leveled log lines.
type Logger interface {
	Debug(ctx context.Context, msg string, keyvals ...any)
	Info(ctx context.Context, msg string, keyvals ...any)
	Warn(ctx context.Context, msg string, keyvals ...any)
	Error(ctx context.Context, msg string, keyvals ...any)
}

// Metrics records counters and durations for governed operations
// (capability calls, middleware decisions, governance checks).
type Metrics interface {
	IncrCounter(ctx context.Context, name string, tags map[string]string)
	RecordDuration(ctx context.Context, name string, ms float64, tags map[string]string)
}

// Tracer starts spans around capability dispatch and plan execution.
type Tracer interface {
	StartSpan(ctx context.Context, name string) (context.Context, Span)
}

// Span is the minimal span handle the rest of the module needs.
type Span interface {
	SetAttribute(key string, value any)
	RecordError(err error)
	End()
}

// Telemetry bundles the three seams for convenient dependency injection.
type Telemetry struct {
	Logger  Logger
	Metrics Metrics
	Tracer  Tracer
}
