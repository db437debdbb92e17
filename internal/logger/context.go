package logger

import (
	"context"
	"time"
)

// contextKey is a private type for context keys to avoid collisions
type contextKey struct{}

// logContextKey is the key for LogContext in context.Context
var logContextKey = contextKey{}

// LogContext holds request-scoped logging context for a single TIP's
// journey through the pipeline.
type LogContext struct {
	TraceID   string    // OpenTelemetry trace ID
	SpanID    string    // OpenTelemetry span ID
	TIP       string    // the TIP being processed
	Kind      string    // kind abbreviation (LCD, CCC, TA, ...)
	Status    string    // current work item status
	Attempt   int       // current retry attempt number
	StartTime time.Time // for duration calculation
}

// WithContext returns a new context with the given LogContext
func WithContext(ctx context.Context, lc *LogContext) context.Context {
	return context.WithValue(ctx, logContextKey, lc)
}

// FromContext retrieves the LogContext from context, or nil if not present
func FromContext(ctx context.Context) *LogContext {
	if ctx == nil {
		return nil
	}
	lc, _ := ctx.Value(logContextKey).(*LogContext)
	return lc
}

// NewLogContext creates a new LogContext for the given TIP.
func NewLogContext(tip string) *LogContext {
	return &LogContext{
		TIP:       tip,
		StartTime: time.Now(),
	}
}

// Clone creates a copy of the LogContext
func (lc *LogContext) Clone() *LogContext {
	if lc == nil {
		return nil
	}
	return &LogContext{
		TraceID:   lc.TraceID,
		SpanID:    lc.SpanID,
		TIP:       lc.TIP,
		Kind:      lc.Kind,
		Status:    lc.Status,
		Attempt:   lc.Attempt,
		StartTime: lc.StartTime,
	}
}

// WithKind returns a copy with the kind set
func (lc *LogContext) WithKind(kind string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.Kind = kind
	}
	return clone
}

// WithStatus returns a copy with the status set
func (lc *LogContext) WithStatus(status string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.Status = status
	}
	return clone
}

// WithAttempt returns a copy with the attempt number set
func (lc *LogContext) WithAttempt(attempt int) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.Attempt = attempt
	}
	return clone
}

// WithTrace returns a copy with trace info set
func (lc *LogContext) WithTrace(traceID, spanID string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.TraceID = traceID
		clone.SpanID = spanID
	}
	return clone
}

// DurationMs returns the duration since StartTime in milliseconds
func (lc *LogContext) DurationMs() float64 {
	if lc == nil || lc.StartTime.IsZero() {
		return 0
	}
	return float64(time.Since(lc.StartTime).Microseconds()) / 1000.0
}
