package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ingestkit/tipline/pkg/metrics"
)

func init() {
	metrics.RegisterSourceMetricsConstructor(NewSourceMetrics)
}

// sourceMetrics is the Prometheus implementation of metrics.SourceMetrics.
type sourceMetrics struct {
	rowsIngested *prometheus.CounterVec
	duplicates   *prometheus.CounterVec
	pollErrors   *prometheus.CounterVec
	quarantined  *prometheus.CounterVec
}

// NewSourceMetrics creates a new Prometheus-backed SourceMetrics
// instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewSourceMetrics() metrics.SourceMetrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	return &sourceMetrics{
		rowsIngested: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "tipline_source_rows_ingested_total",
				Help: "Total number of rows inserted as new WorkItems, by source and kind",
			},
			[]string{"source", "abbreviation"}, // source: "sftp", "localdir"
		),
		duplicates: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "tipline_source_rows_duplicate_total",
				Help: "Total number of rows skipped as duplicates, by source and kind",
			},
			[]string{"source", "abbreviation"},
		),
		pollErrors: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "tipline_source_poll_errors_total",
				Help: "Total number of poll cycles that failed before processing any files, by source",
			},
			[]string{"source"},
		),
		quarantined: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "tipline_source_files_quarantined_total",
				Help: "Total number of source files quarantined for unrecognised kind, by source",
			},
			[]string{"source"},
		),
	}
}

func (m *sourceMetrics) RecordIngest(source, abbreviation string, inserted, duplicates int) {
	if m == nil {
		return
	}
	if inserted > 0 {
		m.rowsIngested.WithLabelValues(source, abbreviation).Add(float64(inserted))
	}
	if duplicates > 0 {
		m.duplicates.WithLabelValues(source, abbreviation).Add(float64(duplicates))
	}
}

func (m *sourceMetrics) RecordPollError(source string) {
	if m == nil {
		return
	}
	m.pollErrors.WithLabelValues(source).Inc()
}

func (m *sourceMetrics) RecordQuarantine(source string) {
	if m == nil {
		return
	}
	m.quarantined.WithLabelValues(source).Inc()
}
