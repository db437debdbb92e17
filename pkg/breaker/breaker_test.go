package breaker_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ingestkit/tipline/pkg/breaker"
	"github.com/ingestkit/tipline/pkg/ingesterr"
)

func newTestBreaker() *breaker.Breaker {
	return breaker.New(breaker.Config{
		SampleSize:        10,
		FailureThreshold:  0.5,
		RecoveryThreshold: 0.3,
		OpenDuration:      50 * time.Millisecond,
	})
}

func TestStaysClosedOnAllSuccesses(t *testing.T) {
	ctx := context.Background()
	b := newTestBreaker()

	for i := 0; i < 5; i++ {
		require.NoError(t, b.BeforeRequest(ctx))
		b.RecordSuccess(ctx)
	}

	assert.Equal(t, breaker.Closed, b.State())
}

func TestOpensWhenFailureThresholdExceededOverFullWindow(t *testing.T) {
	ctx := context.Background()
	b := newTestBreaker()

	for i := 0; i < 10; i++ {
		require.NoError(t, b.BeforeRequest(ctx))
		if i%2 == 0 || i == 9 {
			b.RecordFailure(ctx)
		} else {
			b.RecordSuccess(ctx)
		}
	}

	assert.Equal(t, breaker.Open, b.State())
}

func TestOpenDeniesUntilCooldownElapses(t *testing.T) {
	ctx := context.Background()
	b := newTestBreaker()
	for i := 0; i < 10; i++ {
		b.RecordFailure(ctx)
	}
	require.Equal(t, breaker.Open, b.State())

	err := b.BeforeRequest(ctx)
	var circuitOpen *ingesterr.CircuitOpenError
	require.ErrorAs(t, err, &circuitOpen)

	time.Sleep(60 * time.Millisecond)
	require.NoError(t, b.BeforeRequest(ctx))
	assert.Equal(t, breaker.HalfOpen, b.State())
}

func TestHalfOpenClosesOnRecoverySuccess(t *testing.T) {
	ctx := context.Background()
	b := newTestBreaker()
	for i := 0; i < 10; i++ {
		b.RecordFailure(ctx)
	}
	time.Sleep(60 * time.Millisecond)
	require.NoError(t, b.BeforeRequest(ctx))
	require.Equal(t, breaker.HalfOpen, b.State())

	b.RecordSuccess(ctx)
	assert.Equal(t, breaker.Closed, b.State())
}

func TestHalfOpenReopensOnAnyFailureRegardlessOfThreshold(t *testing.T) {
	ctx := context.Background()
	b := newTestBreaker()
	for i := 0; i < 10; i++ {
		b.RecordFailure(ctx)
	}
	time.Sleep(60 * time.Millisecond)
	require.NoError(t, b.BeforeRequest(ctx))
	require.Equal(t, breaker.HalfOpen, b.State())

	b.RecordFailure(ctx)
	assert.Equal(t, breaker.Open, b.State())
}
