package tracing

// OpenTelemetry-backed Tracer implementing the same Tracer/Span interface
// as the lightweight in-process tracer, so deployments can opt into real
// trace export without the rest of the codebase depending on the OTEL
// SDK directly. Mirrors the metrics package's otel_provider.go, which
// offers the same kind of OTEL alternative for Provider.

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// OTelTracerOptions configures NewOTelTracer.
type OTelTracerOptions struct {
	ServiceName string
}

// NewOTelTracer returns a Tracer backed by an OTEL TracerProvider,
// registered as the process-wide global via otel.SetTracerProvider so
// the returned spans carry real OTEL trace/span IDs exportable through
// whatever SpanProcessor/exporter the deployment attaches to tp.
func NewOTelTracer(tp *oteltrace.TracerProvider, opts OTelTracerOptions) Tracer {
	name := opts.ServiceName
	if name == "" {
		name = "openracing"
	}
	otel.SetTracerProvider(tp)
	return &otelTracer{tracer: tp.Tracer(name)}
}

type otelTracer struct {
	tracer trace.Tracer
}

func (t *otelTracer) StartSpan(ctx context.Context, name string) (context.Context, Span) {
	ctx, span := t.tracer.Start(ctx, name)
	return ctx, &otelSpan{span: span}
}

func (t *otelTracer) Noop() bool { return false }

type otelSpan struct {
	span  trace.Span
	mu    sync.Mutex
	ended bool
}

func (s *otelSpan) End() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return
	}
	s.ended = true
	s.span.End()
}

func (s *otelSpan) SetAttribute(key string, value any) {
	switch v := value.(type) {
	case string:
		s.span.SetAttributes(attribute.String(key, v))
	case bool:
		s.span.SetAttributes(attribute.Bool(key, v))
	case int:
		s.span.SetAttributes(attribute.Int(key, v))
	case int64:
		s.span.SetAttributes(attribute.Int64(key, v))
	case float64:
		s.span.SetAttributes(attribute.Float64(key, v))
	default:
		s.span.SetAttributes(attribute.String(key, fmt.Sprint(v)))
	}
}

func (s *otelSpan) Context() SpanContext {
	sc := s.span.SpanContext()
	return SpanContext{
		TraceID: sc.TraceID().String(),
		SpanID:  sc.SpanID().String(),
	}
}

func (s *otelSpan) IsEnded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ended
}
