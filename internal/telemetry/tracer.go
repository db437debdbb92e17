package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys for ingestion pipeline spans, grouped by the component
// that emits them.
const (
	// Record identity, shared across most spans.
	AttrTIP          = "tip.id"
	AttrKind         = "tip.kind"
	AttrInspectionID = "tip.inspection_id"
	AttrStatus       = "tip.status"
	AttrAttempt      = "tip.attempt"

	// UpstreamClient.
	AttrEndpoint   = "upstream.endpoint"
	AttrHTTPStatus = "upstream.http_status"
	AttrRetryCount = "upstream.retry_count"

	// CircuitBreaker.
	AttrBreakerState = "breaker.state"
	AttrFailureRate  = "breaker.failure_rate"

	// HashResolver.
	AttrHashType = "hash.type"
	AttrResolved = "hash.resolved"

	// AttachmentDownloader.
	AttrAttachmentTIP   = "attachment.tip"
	AttrAttachmentCount = "attachment.count"
	AttrAttachmentSize  = "attachment.size_bytes"

	// SourcePoller.
	AttrSourceFile = "source.file"
	AttrRemoteHost = "source.remote_host"
	AttrRowCount   = "source.row_count"
)

// Span name prefixes for ingestion pipeline operations.
const (
	SpanUpstreamRequest   = "upstream.request"
	SpanBreakerBeforeCall = "breaker.before_request"
	SpanHashLookup        = "hashresolver.lookup"
	SpanAttachmentExtract = "attachment.extract"
	SpanAttachmentFetch   = "attachment.download"
	SpanReportRender      = "report.render"
	SpanTipProcess        = "processor.process_tip"
	SpanSourcePoll        = "source.poll"
	SpanRunnerCycle       = "runner.cycle"
)

// TIP returns an attribute for the record's TIP identifier.
func TIP(tip string) attribute.KeyValue {
	return attribute.String(AttrTIP, tip)
}

// Kind returns an attribute for the record's kind code (e.g. LCD, CCC).
func Kind(kind string) attribute.KeyValue {
	return attribute.String(AttrKind, kind)
}

// InspectionID returns an attribute for the upstream inspection ID.
func InspectionID(id string) attribute.KeyValue {
	return attribute.String(AttrInspectionID, id)
}

// Status returns an attribute for a WorkItem status value.
func Status(status string) attribute.KeyValue {
	return attribute.String(AttrStatus, status)
}

// Attempt returns an attribute for a retry attempt number.
func Attempt(n int) attribute.KeyValue {
	return attribute.Int(AttrAttempt, n)
}

// Endpoint returns an attribute for the upstream URL.
func Endpoint(url string) attribute.KeyValue {
	return attribute.String(AttrEndpoint, url)
}

// HTTPStatus returns an attribute for an HTTP response status code.
func HTTPStatus(code int) attribute.KeyValue {
	return attribute.Int(AttrHTTPStatus, code)
}

// RetryCount returns an attribute for the number of attempts made so far.
func RetryCount(n int) attribute.KeyValue {
	return attribute.Int(AttrRetryCount, n)
}

// BreakerState returns an attribute for the circuit breaker's current
// state.
func BreakerState(state string) attribute.KeyValue {
	return attribute.String(AttrBreakerState, state)
}

// FailureRate returns an attribute for the breaker's sliding-window
// failure fraction.
func FailureRate(rate float64) attribute.KeyValue {
	return attribute.Float64(AttrFailureRate, rate)
}

// HashType returns an attribute for a hash lookup type.
func HashType(t string) attribute.KeyValue {
	return attribute.String(AttrHashType, t)
}

// Resolved returns an attribute for whether a hash lookup hit the
// dictionary.
func Resolved(hit bool) attribute.KeyValue {
	return attribute.Bool(AttrResolved, hit)
}

// AttachmentTIP returns an attribute for an attachment's own TIP.
func AttachmentTIP(tip string) attribute.KeyValue {
	return attribute.String(AttrAttachmentTIP, tip)
}

// AttachmentCount returns an attribute for the number of attachments
// discovered or processed.
func AttachmentCount(n int) attribute.KeyValue {
	return attribute.Int(AttrAttachmentCount, n)
}

// AttachmentSize returns an attribute for a downloaded attachment's size
// in bytes.
func AttachmentSize(size int64) attribute.KeyValue {
	return attribute.Int64(AttrAttachmentSize, size)
}

// SourceFile returns an attribute for the CSV file being ingested.
func SourceFile(name string) attribute.KeyValue {
	return attribute.String(AttrSourceFile, name)
}

// RemoteHost returns an attribute for the SFTP host being polled.
func RemoteHost(host string) attribute.KeyValue {
	return attribute.String(AttrRemoteHost, host)
}

// RowCount returns an attribute for a count of rows processed.
func RowCount(n int) attribute.KeyValue {
	return attribute.Int(AttrRowCount, n)
}

// StartTipSpan starts a span for one TipProcessor invocation, tagging it
// with the record's identity up front.
func StartTipSpan(ctx context.Context, tip, kind string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := append([]attribute.KeyValue{TIP(tip), Kind(kind)}, attrs...)
	return StartSpan(ctx, SpanTipProcess, trace.WithAttributes(allAttrs...))
}

// StartUpstreamSpan starts a span for one outbound upstream request.
func StartUpstreamSpan(ctx context.Context, endpoint string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := append([]attribute.KeyValue{Endpoint(endpoint)}, attrs...)
	return StartSpan(ctx, SpanUpstreamRequest, trace.WithAttributes(allAttrs...))
}

// StartSourcePollSpan starts a span for one source-poller cycle (SFTP or
// local-directory).
func StartSourcePollSpan(ctx context.Context, source string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := append([]attribute.KeyValue{attribute.String("source.kind", source)}, attrs...)
	return StartSpan(ctx, SpanSourcePoll, trace.WithAttributes(allAttrs...))
}

// StartAttachmentSpan starts a span for one attachment download attempt.
func StartAttachmentSpan(ctx context.Context, tip, attachmentTIP string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := append([]attribute.KeyValue{TIP(tip), AttachmentTIP(attachmentTIP)}, attrs...)
	return StartSpan(ctx, SpanAttachmentFetch, trace.WithAttributes(allAttrs...))
}

// StartCycleSpan starts a span for one ContinuousRunner cycle.
func StartCycleSpan(ctx context.Context, cycle int, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := append([]attribute.KeyValue{attribute.Int("runner.cycle", cycle)}, attrs...)
	return StartSpan(ctx, SpanRunnerCycle, trace.WithAttributes(allAttrs...))
}
