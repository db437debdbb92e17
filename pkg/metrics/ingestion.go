package metrics

import "time"

// IngestionMetrics provides observability for the per-TIP pipeline:
// upstream fetch outcomes, attachment downloads, retry scheduling, and
// circuit breaker state. Implementations can collect these however they
// like; this interface is optional and pass nil for zero overhead.
//
// Example usage:
//
//	metrics.InitRegistry()
//	ingestionMetrics := metrics.NewIngestionMetrics()
//	proc := processor.New(st, client, cb, mapper, renderer, downloader, folders, journal,
//		processor.Config{Metrics: ingestionMetrics})
type IngestionMetrics interface {
	// ObserveTip records one terminal Process() call: its kind, outcome
	// (complete, partial, interrupted, not_found, transient_fail,
	// permanent_fail), and wall-clock duration.
	ObserveTip(kind, outcome string, duration time.Duration)

	// RecordAttachment records one attachment download attempt.
	// status is "success" or "failure".
	RecordAttachment(kind, status string, bytes int64, duration time.Duration)

	// RecordRetry records that a WorkItem was scheduled for another
	// retry attempt (not yet permanently failed).
	RecordRetry(kind string)

	// SetBreakerState records the current circuit breaker state
	// ("closed", "open", "half_open").
	SetBreakerState(state string)
}

// NewIngestionMetrics creates a new Prometheus-backed IngestionMetrics
// instance. Returns nil if metrics are not enabled (InitRegistry not
// called), in which case callers should pass nil onward.
func NewIngestionMetrics() IngestionMetrics {
	if !IsEnabled() {
		return nil
	}
	return newPrometheusIngestionMetrics()
}

// newPrometheusIngestionMetrics is implemented in
// pkg/metrics/prometheus/ingestion.go. This indirection avoids an import
// cycle: pkg/metrics/prometheus imports pkg/metrics for the registry, so
// pkg/metrics cannot import pkg/metrics/prometheus back.
var newPrometheusIngestionMetrics func() IngestionMetrics

// RegisterIngestionMetricsConstructor registers the Prometheus ingestion
// metrics constructor. Called by pkg/metrics/prometheus/ingestion.go
// during package initialization.
func RegisterIngestionMetricsConstructor(constructor func() IngestionMetrics) {
	newPrometheusIngestionMetrics = constructor
}

// ObserveTip forwards to m.ObserveTip, tolerating a nil m.
func ObserveTip(m IngestionMetrics, kind, outcome string, duration time.Duration) {
	if m != nil {
		m.ObserveTip(kind, outcome, duration)
	}
}

// RecordAttachment forwards to m.RecordAttachment, tolerating a nil m.
func RecordAttachment(m IngestionMetrics, kind, status string, bytes int64, duration time.Duration) {
	if m != nil {
		m.RecordAttachment(kind, status, bytes, duration)
	}
}

// RecordRetry forwards to m.RecordRetry, tolerating a nil m.
func RecordRetry(m IngestionMetrics, kind string) {
	if m != nil {
		m.RecordRetry(kind)
	}
}

// SetBreakerState forwards to m.SetBreakerState, tolerating a nil m.
func SetBreakerState(m IngestionMetrics, state string) {
	if m != nil {
		m.SetBreakerState(state)
	}
}
