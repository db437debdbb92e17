package metrics

import "time"

// RunnerMetrics provides observability for the ContinuousRunner's cycle
// loop: per-cycle duration and the backlog depth of eligible work.
// Optional; pass nil for zero overhead.
type RunnerMetrics interface {
	// ObserveCycle records one completed runner cycle's duration.
	ObserveCycle(duration time.Duration)

	// SetQueueDepth records the number of WorkItems currently in a given
	// (kind, status) bucket. Intended to be refreshed periodically from
	// store.CountWorkItemsByKindAndStatus.
	SetQueueDepth(kind, status string, count int64)
}

// NewRunnerMetrics creates a new Prometheus-backed RunnerMetrics
// instance, or nil if metrics are disabled.
func NewRunnerMetrics() RunnerMetrics {
	if !IsEnabled() {
		return nil
	}
	return newPrometheusRunnerMetrics()
}

// newPrometheusRunnerMetrics is implemented in
// pkg/metrics/prometheus/runner.go.
var newPrometheusRunnerMetrics func() RunnerMetrics

// RegisterRunnerMetricsConstructor registers the Prometheus runner
// metrics constructor. Called by pkg/metrics/prometheus/runner.go during
// package initialization.
func RegisterRunnerMetricsConstructor(constructor func() RunnerMetrics) {
	newPrometheusRunnerMetrics = constructor
}

// ObserveCycle forwards to m.ObserveCycle, tolerating a nil m.
func ObserveCycle(m RunnerMetrics, duration time.Duration) {
	if m != nil {
		m.ObserveCycle(duration)
	}
}

// SetQueueDepth forwards to m.SetQueueDepth, tolerating a nil m.
func SetQueueDepth(m RunnerMetrics, kind, status string, count int64) {
	if m != nil {
		m.SetQueueDepth(kind, status, count)
	}
}
