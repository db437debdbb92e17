package processor

import (
	"time"
)

// RetryConfig controls the WorkItem-level retry schedule, distinct from
// the intra-request retries of pkg/upstream.
type RetryConfig struct {
	// MaxAttempts is the number of failed attempts allowed before a
	// WorkItem is marked permanently failed.
	MaxAttempts int
	// BackoffMultiplier is applied exponentially against BaseDelay per
	// attempt.
	BackoffMultiplier float64
	// BaseDelay is the delay before the first retry.
	BaseDelay time.Duration
	// MaxDelay caps the computed delay.
	MaxDelay time.Duration
}

// ApplyDefaults fills unset fields with their production defaults.
func (c *RetryConfig) ApplyDefaults() {
	if c.MaxAttempts == 0 {
		c.MaxAttempts = 5
	}
	if c.BackoffMultiplier == 0 {
		c.BackoffMultiplier = 2
	}
	if c.BaseDelay == 0 {
		c.BaseDelay = 5 * time.Minute
	}
	if c.MaxDelay == 0 {
		c.MaxDelay = 24 * time.Hour
	}
}

// NextRetry computes the next retry time for a WorkItem that has just
// failed with retryCount prior attempts, and whether it should instead be
// marked permanently failed.
func (c RetryConfig) NextRetry(retryCount int, now time.Time) (nextRetryAt time.Time, permanentlyFailed bool) {
	if retryCount >= c.MaxAttempts {
		return time.Time{}, true
	}

	delay := time.Duration(float64(c.BaseDelay) * pow(c.BackoffMultiplier, retryCount))
	if delay > c.MaxDelay {
		delay = c.MaxDelay
	}
	return now.Add(delay), false
}

func pow(base float64, exp int) float64 {
	result := 1.0
	for i := 0; i < exp; i++ {
		result *= base
	}
	return result
}
