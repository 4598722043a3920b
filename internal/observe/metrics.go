// Package observe provides application-wide observability primitives for
// Audicia: OpenTelemetry metrics and the provider setup that exposes them.
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

// meterName is the instrumentation scope name used for all Audicia metrics.
const meterName = "github.com/DandaAkhilReddy/audicia"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms ---

	// StageDuration tracks per-stage pipeline latency. Use with attribute:
	//   attribute.String("stage", ...)
	StageDuration metric.Float64Histogram

	// PipelineDuration tracks end-to-end session processing latency.
	PipelineDuration metric.Float64Histogram

	// --- Counters ---

	// ProviderRequests counts provider API calls. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...), attribute.String("status", ...)
	ProviderRequests metric.Int64Counter

	// ProviderErrors counts provider errors. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...)
	ProviderErrors metric.Int64Counter

	// SessionsProcessed counts finished pipeline runs. Use with attribute:
	//   attribute.String("outcome", "completed"|"failed")
	SessionsProcessed metric.Int64Counter

	// EntitiesMasked counts identifying spans substituted by the masking
	// stage. Use with attribute: attribute.String("kind", ...)
	EntitiesMasked metric.Int64Counter

	// ValidationIssues counts validator findings. Use with attributes:
	//   attribute.String("kind", ...), attribute.String("severity", ...)
	ValidationIssues metric.Int64Counter

	// TokensConsumed counts generative provider tokens. Use with attribute:
	//   attribute.String("kind", "prompt"|"completion")
	TokensConsumed metric.Int64Counter

	// --- Gauges ---

	// ActiveSessions tracks the number of pipeline runs in flight.
	ActiveSessions metric.Int64UpDownCounter
}

// latencyBuckets defines histogram bucket boundaries (in seconds). Dictation
// processing is dominated by the two provider calls, so the buckets stretch
// well past interactive latencies.
var latencyBuckets = []float64{
	0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.StageDuration, err = m.Float64Histogram("audicia.stage.duration",
		metric.WithDescription("Latency of each pipeline stage."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.PipelineDuration, err = m.Float64Histogram("audicia.pipeline.duration",
		metric.WithDescription("End-to-end session processing latency."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.ProviderRequests, err = m.Int64Counter("audicia.provider.requests",
		metric.WithDescription("Total provider API requests by provider, kind, and status."),
	); err != nil {
		return nil, err
	}
	if met.ProviderErrors, err = m.Int64Counter("audicia.provider.errors",
		metric.WithDescription("Total provider errors by provider and kind."),
	); err != nil {
		return nil, err
	}
	if met.SessionsProcessed, err = m.Int64Counter("audicia.sessions.processed",
		metric.WithDescription("Total finished pipeline runs by outcome."),
	); err != nil {
		return nil, err
	}
	if met.EntitiesMasked, err = m.Int64Counter("audicia.phi.entities_masked",
		metric.WithDescription("Total identifying spans masked, by entity kind."),
	); err != nil {
		return nil, err
	}
	if met.ValidationIssues, err = m.Int64Counter("audicia.validation.issues",
		metric.WithDescription("Total validator findings by kind and severity."),
	); err != nil {
		return nil, err
	}
	if met.TokensConsumed, err = m.Int64Counter("audicia.extraction.tokens",
		metric.WithDescription("Total generative provider tokens by kind."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveSessions, err = m.Int64UpDownCounter("audicia.active_sessions",
		metric.WithDescription("Number of pipeline runs currently in flight."),
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

// RecordStage records one pipeline stage duration in seconds.
func (m *Metrics) RecordStage(ctx context.Context, stage string, seconds float64) {
	m.StageDuration.Record(ctx, seconds,
		metric.WithAttributes(attribute.String("stage", stage)),
	)
}

// RecordProviderRequest records a provider request counter increment with the
// standard attribute set.
func (m *Metrics) RecordProviderRequest(ctx context.Context, provider, kind, status string) {
	m.ProviderRequests.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
			attribute.String("status", status),
		),
	)
}

// RecordProviderError records a provider error counter increment.
func (m *Metrics) RecordProviderError(ctx context.Context, provider, kind string) {
	m.ProviderErrors.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
		),
	)
}

// RecordSessionOutcome records one finished pipeline run.
func (m *Metrics) RecordSessionOutcome(ctx context.Context, outcome string) {
	m.SessionsProcessed.Add(ctx, 1,
		metric.WithAttributes(attribute.String("outcome", outcome)),
	)
}

// RecordMaskedEntities records masked identifying spans of one kind.
func (m *Metrics) RecordMaskedEntities(ctx context.Context, kind string, n int64) {
	m.EntitiesMasked.Add(ctx, n,
		metric.WithAttributes(attribute.String("kind", kind)),
	)
}

// RecordValidationIssue records one validator finding.
func (m *Metrics) RecordValidationIssue(ctx context.Context, kind, severity string) {
	m.ValidationIssues.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("kind", kind),
			attribute.String("severity", severity),
		),
	)
}

// RecordTokenUsage records generative token consumption for one session.
func (m *Metrics) RecordTokenUsage(ctx context.Context, promptTokens, completionTokens int64) {
	m.TokensConsumed.Add(ctx, promptTokens,
		metric.WithAttributes(attribute.String("kind", "prompt")),
	)
	m.TokensConsumed.Add(ctx, completionTokens,
		metric.WithAttributes(attribute.String("kind", "completion")),
	)
}
