// Package telemetry provides the OpenTelemetry and no-op implementations of ports.Telemetry.
package telemetry

import (
	"context"
	"io"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.trai.ch/knit/internal/core/domain"
	"go.trai.ch/knit/internal/core/ports"
)

// OTelTelemetry records every vertex as an OpenTelemetry span.
type OTelTelemetry struct {
	tracer trace.Tracer
}

// NewOTelTelemetry creates a new OTelTelemetry with the given instrumentation name.
// Spans go to the global tracer provider.
func NewOTelTelemetry(name string) *OTelTelemetry {
	return &OTelTelemetry{
		tracer: otel.Tracer(name),
	}
}

// Record starts a span named after the vertex.
func (t *OTelTelemetry) Record(
	ctx context.Context,
	name string,
	opts ...ports.VertexOption,
) (context.Context, ports.Vertex) {
	cfg := ports.ApplyVertexOptions(opts...)

	var attrs []attribute.KeyValue
	if cfg.Group != "" {
		attrs = append(attrs, attribute.String("knit.group", cfg.Group))
	}
	if cfg.Internal {
		attrs = append(attrs, attribute.Bool("knit.internal", true))
	}

	ctx, span := t.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
	v := &OTelVertex{span: span}
	return ports.ContextWithVertex(ctx, v), v
}

// Close does nothing; the tracer provider is owned by the caller.
func (t *OTelTelemetry) Close() error {
	return nil
}

// OTelVertex is a ports.Vertex backed by a span.
type OTelVertex struct {
	span trace.Span
}

// Stdout returns a writer that adds a log event per write.
func (v *OTelVertex) Stdout() io.Writer {
	return spanWriter{span: v.span, stream: "stdout"}
}

// Stderr returns a writer that adds a log event per write.
func (v *OTelVertex) Stderr() io.Writer {
	return spanWriter{span: v.span, stream: "stderr"}
}

// Log adds a log event carrying the level and the message.
func (v *OTelVertex) Log(level domain.LogLevel, msg string) {
	v.span.AddEvent("log", trace.WithAttributes(
		attribute.String("level", level.String()),
		attribute.String("message", msg),
	))
}

// Complete ends the span, recording err if set.
func (v *OTelVertex) Complete(err error) {
	if err != nil {
		v.span.RecordError(err)
		v.span.SetStatus(codes.Error, err.Error())
	} else {
		v.span.SetStatus(codes.Ok, "")
	}
	v.span.End()
}

// Cached ends the span and marks it as a cache hit.
func (v *OTelVertex) Cached() {
	v.span.SetAttributes(attribute.Bool("knit.cached", true))
	v.span.End()
}

type spanWriter struct {
	span   trace.Span
	stream string
}

func (w spanWriter) Write(p []byte) (n int, err error) {
	w.span.AddEvent("log", trace.WithAttributes(
		attribute.String("stream", w.stream),
		attribute.String("message", string(p)),
	))
	return len(p), nil
}
