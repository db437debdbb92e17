package metrics

// SourceMetrics provides observability for the SFTP and local-directory
// pollers: rows ingested per file and poll-level failures. Optional;
// pass nil for zero overhead.
type SourceMetrics interface {
	// RecordIngest records the outcome of ingesting one source file.
	// source is "sftp" or "localdir".
	RecordIngest(source, abbreviation string, inserted, duplicates int)

	// RecordPollError records a poll cycle that failed before it could
	// process any files (connection failure, directory read failure).
	RecordPollError(source string)

	// RecordQuarantine records a file moved to quarantine because its
	// kind could not be detected.
	RecordQuarantine(source string)
}

// NewSourceMetrics creates a new Prometheus-backed SourceMetrics
// instance, or nil if metrics are disabled.
func NewSourceMetrics() SourceMetrics {
	if !IsEnabled() {
		return nil
	}
	return newPrometheusSourceMetrics()
}

// newPrometheusSourceMetrics is implemented in
// pkg/metrics/prometheus/source.go.
var newPrometheusSourceMetrics func() SourceMetrics

// RegisterSourceMetricsConstructor registers the Prometheus source
// metrics constructor. Called by pkg/metrics/prometheus/source.go during
// package initialization.
func RegisterSourceMetricsConstructor(constructor func() SourceMetrics) {
	newPrometheusSourceMetrics = constructor
}

// RecordIngest forwards to m.RecordIngest, tolerating a nil m.
func RecordIngest(m SourceMetrics, source, abbreviation string, inserted, duplicates int) {
	if m != nil {
		m.RecordIngest(source, abbreviation, inserted, duplicates)
	}
}

// RecordPollError forwards to m.RecordPollError, tolerating a nil m.
func RecordPollError(m SourceMetrics, source string) {
	if m != nil {
		m.RecordPollError(source)
	}
}

// RecordQuarantine forwards to m.RecordQuarantine, tolerating a nil m.
func RecordQuarantine(m SourceMetrics, source string) {
	if m != nil {
		m.RecordQuarantine(source)
	}
}
