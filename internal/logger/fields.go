package logger

import (
	"log/slog"
)

// Standard field keys for structured logging.
// Use these keys consistently across all log statements for log aggregation and querying.
const (
	// ========================================================================
	// Distributed Tracing
	// ========================================================================
	KeyTraceID = "trace_id" // OpenTelemetry trace ID for request correlation
	KeySpanID  = "span_id"  // OpenTelemetry span ID for operation tracking

	// ========================================================================
	// Work item identity
	// ========================================================================
	KeyTIP           = "tip"             // the TIP being processed
	KeyKind          = "kind"            // kind abbreviation (LCD, CCC, TA, ...)
	KeyInspectionID  = "inspection_id"   // inspection ID extracted from the upstream payload
	KeyStatus        = "status"          // work item status
	KeyPrevStatus    = "prev_status"     // status before a transition
	KeyAttempt       = "attempt"         // current retry attempt number
	KeyMaxRetries    = "max_retries"     // maximum retry attempts configured
	KeyNextRetryAt   = "next_retry_at"   // scheduled time of the next retry

	// ========================================================================
	// Upstream client
	// ========================================================================
	KeyEndpoint    = "endpoint"     // upstream URL or endpoint template
	KeyHTTPStatus  = "http_status"  // HTTP response status code
	KeyBackoffSecs = "backoff_secs" // computed backoff delay in seconds

	// ========================================================================
	// Circuit breaker
	// ========================================================================
	KeyBreakerState    = "breaker_state"    // closed, open, half_open
	KeyFailureRate     = "failure_rate"     // fraction of recent requests that failed
	KeyWindowSize      = "window_size"      // configured sliding window sample size

	// ========================================================================
	// Hash resolution
	// ========================================================================
	KeyHashType  = "hash_type"  // hash dictionary category (vehicle, driver, ...)
	KeyHashValue = "hash_value" // the raw hash being resolved
	KeyResolved  = "resolved"   // whether the hash resolved to a known value

	// ========================================================================
	// Attachments
	// ========================================================================
	KeyAttachmentURL   = "attachment_url"   // source URL of an attachment
	KeyAttachmentStub  = "attachment_stub"  // derived short name for an attachment
	KeyAttachmentCount = "attachment_count" // number of attachments discovered/downloaded
	KeySequence        = "sequence"         // position of an attachment within its field

	// ========================================================================
	// Filesystem operations
	// ========================================================================
	KeyPath       = "path"        // full file/directory path
	KeyFilename   = "filename"    // file or directory name (basename)
	KeyParentPath = "parent_path" // parent directory path
	KeySize       = "size"        // file size in bytes
	KeyMD5        = "md5"         // MD5 hash of a downloaded file

	// ========================================================================
	// Source polling (SFTP / local directory)
	// ========================================================================
	KeySourceFile = "source_file" // remote or local source filename
	KeyRemoteHost = "remote_host" // SFTP remote host
	KeyRowCount   = "row_count"   // number of rows processed from a source file

	// ========================================================================
	// Operation metadata
	// ========================================================================
	KeyDurationMs = "duration_ms" // operation duration in milliseconds
	KeyError      = "error"       // error message
	KeyErrorCode  = "error_code"  // numeric or symbolic error code
	KeyOperation  = "operation"   // sub-operation type for complex operations

	// ========================================================================
	// Store / database
	// ========================================================================
	KeyStoreDriver = "store_driver" // sqlite or postgres
	KeyRowsAffected = "rows_affected"

	// ========================================================================
	// Session / progress
	// ========================================================================
	KeyProcessed = "processed" // items processed so far in a session
	KeySucceeded = "succeeded" // items that completed successfully
	KeyFailed    = "failed"    // items that failed permanently
	KeyCycle     = "cycle"     // ContinuousRunner cycle number
)

// ============================================================================
// Field constructors for type safety
// These functions provide type-safe construction of slog.Attr values.
// ============================================================================

// TraceID returns a slog.Attr for OpenTelemetry trace ID.
func TraceID(id string) slog.Attr {
	return slog.String(KeyTraceID, id)
}

// SpanID returns a slog.Attr for OpenTelemetry span ID.
func SpanID(id string) slog.Attr {
	return slog.String(KeySpanID, id)
}

// TIP returns a slog.Attr for the TIP being processed.
func TIP(tip string) slog.Attr {
	return slog.String(KeyTIP, tip)
}

// Kind returns a slog.Attr for the kind abbreviation.
func Kind(kind string) slog.Attr {
	return slog.String(KeyKind, kind)
}

// InspectionID returns a slog.Attr for the extracted inspection ID.
func InspectionID(id string) slog.Attr {
	return slog.String(KeyInspectionID, id)
}

// Status returns a slog.Attr for work item status.
func Status(status string) slog.Attr {
	return slog.String(KeyStatus, status)
}

// PrevStatus returns a slog.Attr for the status before a transition.
func PrevStatus(status string) slog.Attr {
	return slog.String(KeyPrevStatus, status)
}

// Attempt returns a slog.Attr for the current retry attempt number.
func Attempt(n int) slog.Attr {
	return slog.Int(KeyAttempt, n)
}

// MaxRetries returns a slog.Attr for the maximum configured retry attempts.
func MaxRetries(n int) slog.Attr {
	return slog.Int(KeyMaxRetries, n)
}

// NextRetryAt returns a slog.Attr for the scheduled time of the next retry.
func NextRetryAt(ts string) slog.Attr {
	return slog.String(KeyNextRetryAt, ts)
}

// Endpoint returns a slog.Attr for an upstream endpoint.
func Endpoint(ep string) slog.Attr {
	return slog.String(KeyEndpoint, ep)
}

// HTTPStatus returns a slog.Attr for an HTTP response status code.
func HTTPStatus(code int) slog.Attr {
	return slog.Int(KeyHTTPStatus, code)
}

// BackoffSecs returns a slog.Attr for a computed backoff delay.
func BackoffSecs(secs float64) slog.Attr {
	return slog.Float64(KeyBackoffSecs, secs)
}

// BreakerState returns a slog.Attr for the circuit breaker state.
func BreakerState(state string) slog.Attr {
	return slog.String(KeyBreakerState, state)
}

// FailureRate returns a slog.Attr for the circuit breaker's observed failure rate.
func FailureRate(rate float64) slog.Attr {
	return slog.Float64(KeyFailureRate, rate)
}

// WindowSize returns a slog.Attr for the circuit breaker's sliding window size.
func WindowSize(n int) slog.Attr {
	return slog.Int(KeyWindowSize, n)
}

// HashType returns a slog.Attr for a hash dictionary category.
func HashType(t string) slog.Attr {
	return slog.String(KeyHashType, t)
}

// HashValue returns a slog.Attr for a raw hash value being resolved.
func HashValue(h string) slog.Attr {
	return slog.String(KeyHashValue, h)
}

// Resolved returns a slog.Attr for whether a hash resolved.
func Resolved(ok bool) slog.Attr {
	return slog.Bool(KeyResolved, ok)
}

// AttachmentURL returns a slog.Attr for an attachment's source URL.
func AttachmentURL(url string) slog.Attr {
	return slog.String(KeyAttachmentURL, url)
}

// AttachmentStub returns a slog.Attr for an attachment's derived stub name.
func AttachmentStub(stub string) slog.Attr {
	return slog.String(KeyAttachmentStub, stub)
}

// AttachmentCount returns a slog.Attr for the number of attachments.
func AttachmentCount(n int) slog.Attr {
	return slog.Int(KeyAttachmentCount, n)
}

// Sequence returns a slog.Attr for an attachment's position within its field.
func Sequence(n int) slog.Attr {
	return slog.Int(KeySequence, n)
}

// Path returns a slog.Attr for a file/directory path.
func Path(p string) slog.Attr {
	return slog.String(KeyPath, p)
}

// Filename returns a slog.Attr for a filename.
func Filename(name string) slog.Attr {
	return slog.String(KeyFilename, name)
}

// ParentPath returns a slog.Attr for a parent directory path.
func ParentPath(p string) slog.Attr {
	return slog.String(KeyParentPath, p)
}

// Size returns a slog.Attr for a file size in bytes.
func Size(s int64) slog.Attr {
	return slog.Int64(KeySize, s)
}

// MD5 returns a slog.Attr for a file's MD5 hash.
func MD5(sum string) slog.Attr {
	return slog.String(KeyMD5, sum)
}

// SourceFile returns a slog.Attr for a source filename.
func SourceFile(name string) slog.Attr {
	return slog.String(KeySourceFile, name)
}

// RemoteHost returns a slog.Attr for an SFTP remote host.
func RemoteHost(host string) slog.Attr {
	return slog.String(KeyRemoteHost, host)
}

// RowCount returns a slog.Attr for the number of rows processed.
func RowCount(n int) slog.Attr {
	return slog.Int(KeyRowCount, n)
}

// DurationMs returns a slog.Attr for duration in milliseconds.
func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}

// Err returns a slog.Attr for an error.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// ErrorCode returns a slog.Attr for a numeric or symbolic error code.
func ErrorCode(code string) slog.Attr {
	return slog.String(KeyErrorCode, code)
}

// Operation returns a slog.Attr for a sub-operation type.
func Operation(op string) slog.Attr {
	return slog.String(KeyOperation, op)
}

// StoreDriver returns a slog.Attr for the active store backend.
func StoreDriver(driver string) slog.Attr {
	return slog.String(KeyStoreDriver, driver)
}

// RowsAffected returns a slog.Attr for the number of rows a store operation touched.
func RowsAffected(n int64) slog.Attr {
	return slog.Int64(KeyRowsAffected, n)
}

// Processed returns a slog.Attr for the number of items processed in a session.
func Processed(n int) slog.Attr {
	return slog.Int(KeyProcessed, n)
}

// Succeeded returns a slog.Attr for the number of items that completed successfully.
func Succeeded(n int) slog.Attr {
	return slog.Int(KeySucceeded, n)
}

// Failed returns a slog.Attr for the number of items that failed permanently.
func Failed(n int) slog.Attr {
	return slog.Int(KeyFailed, n)
}

// Cycle returns a slog.Attr for the ContinuousRunner cycle number.
func Cycle(n int) slog.Attr {
	return slog.Int(KeyCycle, n)
}
