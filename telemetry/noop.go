package telemetry

import "context"

// NewNoop returns a Telemetry whose three seams discard everything. Used in
// tests and in any entry point that has not wired a backend.
func NewNoop() Telemetry {
	return Telemetry{Logger: noopLogger{}, Metrics: noopMetrics{}, Tracer: noopTracer{}}
}

type noopLogger struct{}

func (noopLogger) Debug(context.Context, string, ...any) {}
func (noopLogger) Info(context.Context, string, ...any)  {}
func (noopLogger) Warn(context.Context, string, ...any)  {}
func (noopLogger) Error(context.Context, string, ...any) {}

type noopMetrics struct{}

func (noopMetrics) IncrCounter(context.Context, string, map[string]string)          {}
func (noopMetrics) RecordDuration(context.Context, string, float64, map[string]string) {}

type noopTracer struct{}

func (noopTracer) StartSpan(ctx context.Context, _ string) (context.Context, Span) {
	return ctx, noopSpan{}
}

type noopSpan struct{}

func (noopSpan) SetAttribute(string, any) {}
func (noopSpan) RecordError(error)        {}
func (noopSpan) End()                     {}
