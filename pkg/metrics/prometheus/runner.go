package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ingestkit/tipline/pkg/metrics"
)

func init() {
	metrics.RegisterRunnerMetricsConstructor(NewRunnerMetrics)
}

// runnerMetrics is the Prometheus implementation of metrics.RunnerMetrics.
type runnerMetrics struct {
	cycleDuration prometheus.Histogram
	queueDepth    *prometheus.GaugeVec
}

// NewRunnerMetrics creates a new Prometheus-backed RunnerMetrics
// instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewRunnerMetrics() metrics.RunnerMetrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	return &runnerMetrics{
		cycleDuration: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name:    "tipline_runner_cycle_duration_seconds",
				Help:    "Duration of one ContinuousRunner cycle across all kinds",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
			},
		),
		queueDepth: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "tipline_work_items_queue_depth",
				Help: "Number of WorkItems by kind and status",
			},
			[]string{"kind", "status"},
		),
	}
}

func (m *runnerMetrics) ObserveCycle(duration time.Duration) {
	if m == nil {
		return
	}
	m.cycleDuration.Observe(duration.Seconds())
}

func (m *runnerMetrics) SetQueueDepth(kind, status string, count int64) {
	if m == nil {
		return
	}
	m.queueDepth.WithLabelValues(kind, status).Set(float64(count))
}
