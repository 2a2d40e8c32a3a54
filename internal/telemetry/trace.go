package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const resolveTracer = "recordsapi/services/iam"

// StartResolveSpan opens the span covering one security-context resolution.
// Variant and tenant are attached later, once they are known.
func StartResolveSpan(ctx context.Context, method, uri string) (context.Context, trace.Span) {
	return otel.Tracer(resolveTracer).Start(ctx, "iam.Resolve",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("http.target", uri),
		),
	)
}

// RecordError marks span failed with err; nil is ignored.
func RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// AddEvent adds a named event to span.
func AddEvent(span trace.Span, name string, attrs ...attribute.KeyValue) {
	span.AddEvent(name, trace.WithAttributes(attrs...))
}
