package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Outcome labels recorded for a resolution.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// ResolutionMetrics holds metric instruments for security-context resolution.
// Initialize once at server startup and share across requests.
type ResolutionMetrics struct {
	ResolutionCounter  metric.Int64Counter     // Total resolutions by variant and outcome
	ResolutionDuration metric.Float64Histogram // Resolution latency
}

// NewResolutionMetrics creates the resolution instruments on the global meter provider.
func NewResolutionMetrics() (*ResolutionMetrics, error) {
	meter := otel.Meter("recordsapi/secctx")

	counter, err := meter.Int64Counter(
		"secctx.resolution.count",
		metric.WithDescription("Total number of security context resolutions"),
		metric.WithUnit("{resolution}"),
	)
	if err != nil {
		return nil, err
	}

	// Buckets: 1ms .. 1s; the slow tail is the tenant store
	duration, err := meter.Float64Histogram(
		"secctx.resolution.duration",
		metric.WithDescription("Security context resolution duration"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000),
	)
	if err != nil {
		return nil, err
	}

	return &ResolutionMetrics{
		ResolutionCounter:  counter,
		ResolutionDuration: duration,
	}, nil
}

// RecordResolution records one resolution. variant may be empty when the
// request failed before classification. A nil receiver is a no-op.
func (m *ResolutionMetrics) RecordResolution(ctx context.Context, variant, outcome, errorKind string, durationMs float64) {
	if m == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String(AttrVariant, variant),
		attribute.String(AttrOutcome, outcome),
	}
	if errorKind != "" {
		attrs = append(attrs, attribute.String(AttrErrorKind, errorKind))
	}
	opt := metric.WithAttributes(attrs...)

	m.ResolutionCounter.Add(ctx, 1, opt)
	m.ResolutionDuration.Record(ctx, durationMs, opt)
}

// Common attribute keys for resolution telemetry
const (
	AttrVariant   = "secctx.variant"
	AttrOutcome   = "secctx.outcome"
	AttrErrorKind = "secctx.error_kind"
	AttrTenant    = "secctx.tenant"
	AttrClientID  = "secctx.client_id"
	AttrPartial   = "secctx.partial"
)
