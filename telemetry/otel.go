package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// ZapLogger wraps a *zap.Logger (the structured logger the rest of the pack
// uses directly, e.g. cmd/nerd/main.go) for runtime logging.
type ZapLogger struct {
	l *zap.Logger
}

// NewZapLogger wraps an existing *zap.Logger. Pass zap.NewProduction() or
// zap.NewDevelopment() depending on the deployment.
func NewZapLogger(l *zap.Logger) Logger {
	return ZapLogger{l: l}
}

func (z ZapLogger) Debug(_ context.Context, msg string, keyvals ...any) {
	z.l.Sugar().Debugw(msg, keyvals...)
}

func (z ZapLogger) Info(_ context.Context, msg string, keyvals ...any) {
	z.l.Sugar().Infow(msg, keyvals...)
}

func (z ZapLogger) Warn(_ context.Context, msg string, keyvals ...any) {
	z.l.Sugar().Warnw(msg, keyvals...)
}

func (z ZapLogger) Error(_ context.Context, msg string, keyvals ...any) {
	z.l.Sugar().Errorw(msg, keyvals...)
}

// OtelMetrics wraps an OTel Meter for counters and duration histograms.
type OtelMetrics struct {
	meter metric.Meter
}

// NewOtelMetrics constructs a Metrics recorder against the global
// MeterProvider. Configure the provider (via otel/sdk/metric) before use.
func NewOtelMetrics() Metrics {
	return OtelMetrics{meter: otel.Meter("github.com/mandubian/ccos-sub001")}
}

func (m OtelMetrics) IncrCounter(ctx context.Context, name string, tags map[string]string) {
	counter, err := m.meter.Float64Counter(name)
	if err != nil {
		return
	}
	counter.Add(ctx, 1, metric.WithAttributes(tagsToAttrs(tags)...))
}

func (m OtelMetrics) RecordDuration(ctx context.Context, name string, ms float64, tags map[string]string) {
	hist, err := m.meter.Float64Histogram(name)
	if err != nil {
		return
	}
	hist.Record(ctx, ms, metric.WithAttributes(tagsToAttrs(tags)...))
}

// OtelTracer wraps an OTel Tracer.
type OtelTracer struct {
	tracer trace.Tracer
}

// NewOtelTracer constructs a Tracer against the global TracerProvider.
func NewOtelTracer() Tracer {
	return OtelTracer{tracer: otel.Tracer("github.com/mandubian/ccos-sub001")}
}

func (t OtelTracer) StartSpan(ctx context.Context, name string) (context.Context, Span) {
	newCtx, span := t.tracer.Start(ctx, name)
	return newCtx, otelSpan{span: span}
}

type otelSpan struct {
	span trace.Span
}

func (s otelSpan) SetAttribute(key string, value any) {
	s.span.SetAttributes(attrFor(key, value))
}

func (s otelSpan) RecordError(err error) {
	s.span.RecordError(err)
}

func (s otelSpan) End() { s.span.End() }

func tagsToAttrs(tags map[string]string) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, len(tags))
	for k, v := range tags {
		attrs = append(attrs, attribute.String(k, v))
	}
	return attrs
}

func attrFor(key string, value any) attribute.KeyValue {
	switch v := value.(type) {
	case string:
		return attribute.String(key, v)
	case int:
		return attribute.Int(key, v)
	case int64:
		return attribute.Int64(key, v)
	case float64:
		return attribute.Float64(key, v)
	case bool:
		return attribute.Bool(key, v)
	case time.Duration:
		return attribute.String(key, v.String())
	default:
		return attribute.String(key, "")
	}
}
