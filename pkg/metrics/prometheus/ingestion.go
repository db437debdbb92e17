package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ingestkit/tipline/pkg/metrics"
)

func init() {
	metrics.RegisterIngestionMetricsConstructor(NewIngestionMetrics)
}

// ingestionMetrics is the Prometheus implementation of metrics.IngestionMetrics.
type ingestionMetrics struct {
	tipsProcessed    *prometheus.CounterVec
	tipDuration      *prometheus.HistogramVec
	attachments      *prometheus.CounterVec
	attachmentBytes  *prometheus.HistogramVec
	attachmentTiming *prometheus.HistogramVec
	retries          *prometheus.CounterVec
	breakerState     prometheus.Gauge
}

// NewIngestionMetrics creates a new Prometheus-backed IngestionMetrics
// instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewIngestionMetrics() metrics.IngestionMetrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	return &ingestionMetrics{
		tipsProcessed: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "tipline_tips_processed_total",
				Help: "Total number of TIPs processed, by kind and terminal outcome",
			},
			[]string{"kind", "outcome"},
		),
		tipDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "tipline_tip_duration_seconds",
				Help: "Wall-clock duration of one TIP's full pipeline, by kind",
				Buckets: []float64{
					0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300,
				},
			},
			[]string{"kind"},
		),
		attachments: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "tipline_attachments_downloaded_total",
				Help: "Total number of attachment download attempts, by kind and status",
			},
			[]string{"kind", "status"}, // status: "success", "failure"
		),
		attachmentBytes: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "tipline_attachment_bytes",
				Help: "Distribution of downloaded attachment sizes in bytes",
				Buckets: []float64{
					1024, 32768, 131072, 1048576, 4194304, 16777216, 67108864,
				},
			},
			[]string{"kind"},
		),
		attachmentTiming: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tipline_attachment_download_duration_seconds",
				Help:    "Duration of one attachment download, by kind",
				Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"kind"},
		),
		retries: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "tipline_retries_scheduled_total",
				Help: "Total number of times a WorkItem was rescheduled for retry, by kind",
			},
			[]string{"kind"},
		),
		breakerState: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "tipline_upstream_breaker_state",
				Help: "Circuit breaker state against the upstream API: 0=closed, 1=half_open, 2=open",
			},
		),
	}
}

func (m *ingestionMetrics) ObserveTip(kind, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.tipsProcessed.WithLabelValues(kind, outcome).Inc()
	m.tipDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

func (m *ingestionMetrics) RecordAttachment(kind, status string, bytes int64, duration time.Duration) {
	if m == nil {
		return
	}
	m.attachments.WithLabelValues(kind, status).Inc()
	m.attachmentTiming.WithLabelValues(kind).Observe(duration.Seconds())
	if bytes > 0 {
		m.attachmentBytes.WithLabelValues(kind).Observe(float64(bytes))
	}
}

func (m *ingestionMetrics) RecordRetry(kind string) {
	if m == nil {
		return
	}
	m.retries.WithLabelValues(kind).Inc()
}

func (m *ingestionMetrics) SetBreakerState(state string) {
	if m == nil {
		return
	}
	switch state {
	case "closed":
		m.breakerState.Set(0)
	case "half_open":
		m.breakerState.Set(1)
	case "open":
		m.breakerState.Set(2)
	}
}
