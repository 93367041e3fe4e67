// Package observe provides application-wide observability primitives for
// Cueline: OpenTelemetry metrics, distributed tracing, structured logging,
// and HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all Cueline metrics.
const meterName = "github.com/cueline/cueline"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use; the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms ---

	// TrackerUpdateDuration tracks how long a single transcript update takes
	// to run through tokenization, jump detection, and progress matching.
	TrackerUpdateDuration metric.Float64Histogram

	// STTDuration tracks speech-to-text round-trip latency (audio chunk sent
	// to snapshot received).
	STTDuration metric.Float64Histogram

	// --- Counters ---

	// TranscriptUpdates counts transcript snapshots processed. Use with attribute:
	//   attribute.String("session_id", ...)
	TranscriptUpdates metric.Int64Counter

	// LineJumps counts detected line jumps. Use with attributes:
	//   attribute.String("session_id", ...), attribute.String("source", "detector"|"manual")
	LineJumps metric.Int64Counter

	// ProgressAdvances counts transcript updates that moved the reading
	// position forward within the current line.
	ProgressAdvances metric.Int64Counter

	// --- Error counters ---

	// ProviderErrors counts STT provider errors. Use with attribute:
	//   attribute.String("provider", ...)
	ProviderErrors metric.Int64Counter

	// --- Gauges ---

	// ActiveSessions tracks the number of live prompter sessions.
	ActiveSessions metric.Int64UpDownCounter

	// ActiveSubscribers tracks the number of connected position-feed
	// subscribers across all sessions.
	ActiveSubscribers metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) optimised
// for speech-tracking latencies.
var latencyBuckets = []float64{
	0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.TrackerUpdateDuration, err = m.Float64Histogram("cueline.tracker.update.duration",
		metric.WithDescription("Latency of a single tracker transcript update."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.STTDuration, err = m.Float64Histogram("cueline.stt.duration",
		metric.WithDescription("Latency of speech-to-text transcription."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.TranscriptUpdates, err = m.Int64Counter("cueline.transcript.updates",
		metric.WithDescription("Total transcript snapshots processed by session."),
	); err != nil {
		return nil, err
	}
	if met.LineJumps, err = m.Int64Counter("cueline.line.jumps",
		metric.WithDescription("Total line jumps by session and source."),
	); err != nil {
		return nil, err
	}
	if met.ProgressAdvances, err = m.Int64Counter("cueline.progress.advances",
		metric.WithDescription("Total in-line position advances by session."),
	); err != nil {
		return nil, err
	}

	// Error counters.
	if met.ProviderErrors, err = m.Int64Counter("cueline.provider.errors",
		metric.WithDescription("Total STT provider errors by provider."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveSessions, err = m.Int64UpDownCounter("cueline.active_sessions",
		metric.WithDescription("Number of live prompter sessions."),
	); err != nil {
		return nil, err
	}
	if met.ActiveSubscribers, err = m.Int64UpDownCounter("cueline.active_subscribers",
		metric.WithDescription("Number of connected position-feed subscribers."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("cueline.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordTranscriptUpdate records a processed transcript snapshot for a session.
func (m *Metrics) RecordTranscriptUpdate(ctx context.Context, sessionID string) {
	m.TranscriptUpdates.Add(ctx, 1,
		metric.WithAttributes(attribute.String("session_id", sessionID)),
	)
}

// RecordLineJump records a line jump with its originating source, either
// "detector" for automatic jumps or "manual" for operator navigation.
func (m *Metrics) RecordLineJump(ctx context.Context, sessionID, source string) {
	m.LineJumps.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("session_id", sessionID),
			attribute.String("source", source),
		),
	)
}

// RecordProgressAdvance records an in-line position advance for a session.
func (m *Metrics) RecordProgressAdvance(ctx context.Context, sessionID string) {
	m.ProgressAdvances.Add(ctx, 1,
		metric.WithAttributes(attribute.String("session_id", sessionID)),
	)
}

// RecordProviderError records an STT provider error.
func (m *Metrics) RecordProviderError(ctx context.Context, provider string) {
	m.ProviderErrors.Add(ctx, 1,
		metric.WithAttributes(attribute.String("provider", provider)),
	)
}
