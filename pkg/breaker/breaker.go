// Package breaker implements a process-wide circuit breaker guarding the
// upstream records service, tracking a bounded sliding window of recent
// outcomes rather than a simple consecutive-failure count.
package breaker

import (
	"context"
	"sync"
	"time"

	"github.com/ingestkit/tipline/internal/logger"
	"github.com/ingestkit/tipline/pkg/ingesterr"
)

// State is one of Closed, Open, or HalfOpen.
type State string

const (
	Closed   State = "closed"
	Open     State = "open"
	HalfOpen State = "half_open"
)

// Config controls the breaker's thresholds and window size.
type Config struct {
	// SampleSize is N, the number of recent outcomes retained in the
	// sliding window. Typical 20.
	SampleSize int
	// FailureThreshold is the failure fraction above which Closed trips
	// to Open, once the window is full. Typical 0.5.
	FailureThreshold float64
	// RecoveryThreshold is the failure fraction at or below which
	// HalfOpen closes on success. Typical 0.3.
	RecoveryThreshold float64
	// OpenDuration is how long the breaker stays Open before permitting
	// a single HalfOpen trial request.
	OpenDuration time.Duration
}

// ApplyDefaults fills unset fields with their production defaults.
func (c *Config) ApplyDefaults() {
	if c.SampleSize == 0 {
		c.SampleSize = 20
	}
	if c.FailureThreshold == 0 {
		c.FailureThreshold = 0.5
	}
	if c.RecoveryThreshold == 0 {
		c.RecoveryThreshold = 0.3
	}
	if c.OpenDuration == 0 {
		c.OpenDuration = 60 * time.Second
	}
}

// Breaker is a process-wide, mutex-guarded circuit breaker. All state
// transitions and window mutations are guarded by mu.
type Breaker struct {
	cfg Config

	mu       sync.Mutex
	state    State
	window   []bool
	openedAt time.Time

	successCount int64
	failureCount int64
}

// New creates a Breaker in the Closed state.
func New(cfg Config) *Breaker {
	cfg.ApplyDefaults()
	return &Breaker{
		cfg:   cfg,
		state: Closed,
	}
}

// BeforeRequest permits or denies a request based on current state. While
// Open, the first call after OpenDuration has elapsed transitions to
// HalfOpen and is permitted; every other call while Open is denied with
// CircuitOpenError. Entering HalfOpen clears the window, so recovery is
// judged only on outcomes recorded since the trial request.
func (b *Breaker) BeforeRequest(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != Open {
		return nil
	}

	if time.Since(b.openedAt) < b.cfg.OpenDuration {
		rate := b.failureRateLocked()
		logger.WarnCtx(ctx, "circuit breaker open, request denied",
			logger.BreakerState(string(b.state)), logger.FailureRate(rate))
		return &ingesterr.CircuitOpenError{FailureRate: rate}
	}

	b.state = HalfOpen
	b.window = nil
	logger.InfoCtx(ctx, "circuit breaker entering half-open state", logger.BreakerState(string(b.state)))
	return nil
}

// RecordSuccess records a successful request outcome and evaluates
// HalfOpen → Closed recovery.
func (b *Breaker) RecordSuccess(ctx context.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.successCount++
	b.pushLocked(true)

	if b.state == HalfOpen {
		rate := b.failureRateLocked()
		if rate <= b.cfg.RecoveryThreshold {
			b.state = Closed
			b.openedAt = time.Time{}
			logger.InfoCtx(ctx, "circuit breaker closed, recovered",
				logger.BreakerState(string(b.state)), logger.FailureRate(rate))
		}
	}
}

// RecordFailure records a failed request outcome and evaluates Closed →
// Open (on threshold breach) and HalfOpen → Open (unconditional, any
// failure during a trial reopens the circuit).
func (b *Breaker) RecordFailure(ctx context.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failureCount++
	b.pushLocked(false)
	rate := b.failureRateLocked()

	switch b.state {
	case HalfOpen:
		b.state = Open
		b.openedAt = time.Now()
		logger.WarnCtx(ctx, "circuit breaker reopened, recovery trial failed",
			logger.BreakerState(string(b.state)), logger.FailureRate(rate))
	case Closed:
		if len(b.window) >= b.cfg.SampleSize && rate > b.cfg.FailureThreshold {
			b.state = Open
			b.openedAt = time.Now()
			logger.WarnCtx(ctx, "circuit breaker open, failure threshold exceeded",
				logger.BreakerState(string(b.state)), logger.FailureRate(rate),
				logger.WindowSize(len(b.window)))
		}
	}
}

// State returns the breaker's current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// FailureRate returns the current sliding-window failure fraction.
func (b *Breaker) FailureRate() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failureRateLocked()
}

// Reset restores the breaker to its initial Closed state, discarding the
// window and counters.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = Closed
	b.window = nil
	b.openedAt = time.Time{}
	b.successCount = 0
	b.failureCount = 0
}

func (b *Breaker) pushLocked(success bool) {
	b.window = append(b.window, success)
	if len(b.window) > b.cfg.SampleSize {
		b.window = b.window[1:]
	}
}

func (b *Breaker) failureRateLocked() float64 {
	if len(b.window) == 0 {
		return 0
	}
	failures := 0
	for _, ok := range b.window {
		if !ok {
			failures++
		}
	}
	return float64(failures) / float64(len(b.window))
}
