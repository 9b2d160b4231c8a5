package resilience

import (
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func failing(err error) func(ctx context.Context) (int, error) {
	return func(ctx context.Context) (int, error) { return 0, err }
}

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	b := NewBreaker(BreakerConfig{FailureThreshold: 3, ResetTimeout: time.Minute})
	boom := eris.New("boom")

	for i := 0; i < 3; i++ {
		_, err := Guard(context.Background(), b, failing(boom))
		require.Error(t, err)
	}
	assert.Equal(t, BreakerOpen, b.State())

	called := false
	_, err := Guard(context.Background(), b, func(ctx context.Context) (int, error) {
		called = true
		return 1, nil
	})
	assert.ErrorIs(t, err, ErrBreakerOpen)
	assert.False(t, called)
}

func TestBreaker_SuccessResetsCounter(t *testing.T) {
	b := NewBreaker(BreakerConfig{FailureThreshold: 2, ResetTimeout: time.Minute})
	boom := eris.New("boom")

	_, _ = Guard(context.Background(), b, failing(boom))
	_, err := Guard(context.Background(), b, func(ctx context.Context) (int, error) { return 7, nil })
	require.NoError(t, err)
	_, _ = Guard(context.Background(), b, failing(boom))

	assert.Equal(t, BreakerClosed, b.State())
}

func TestBreaker_HalfOpenProbe(t *testing.T) {
	b := NewBreaker(BreakerConfig{FailureThreshold: 1, ResetTimeout: 10 * time.Millisecond})
	now := time.Now()
	b.nowFunc = func() time.Time { return now }

	_, _ = Guard(context.Background(), b, failing(eris.New("boom")))
	assert.Equal(t, BreakerOpen, b.State())

	// Advance past the reset timeout; probe is allowed and closes on success.
	now = now.Add(20 * time.Millisecond)
	assert.Equal(t, BreakerHalfOpen, b.State())

	val, err := Guard(context.Background(), b, func(ctx context.Context) (int, error) { return 9, nil })
	require.NoError(t, err)
	assert.Equal(t, 9, val)
	assert.Equal(t, BreakerClosed, b.State())
}

func TestBreaker_HalfOpenFailureReopens(t *testing.T) {
	b := NewBreaker(BreakerConfig{FailureThreshold: 1, ResetTimeout: 10 * time.Millisecond})
	now := time.Now()
	b.nowFunc = func() time.Time { return now }

	_, _ = Guard(context.Background(), b, failing(eris.New("boom")))
	now = now.Add(20 * time.Millisecond)

	_, err := Guard(context.Background(), b, failing(eris.New("still down")))
	require.Error(t, err)
	assert.Equal(t, BreakerOpen, b.State())
}

func TestBreaker_ShouldTripFilter(t *testing.T) {
	b := NewBreaker(BreakerConfig{
		FailureThreshold: 1,
		ResetTimeout:     time.Minute,
		ShouldTrip:       IsTransient,
	})

	// Non-transient errors pass through without tripping.
	_, err := Guard(context.Background(), b, failing(eris.New("400 bad request")))
	require.Error(t, err)
	assert.Equal(t, BreakerClosed, b.State())

	_, _ = Guard(context.Background(), b, failing(NewTransientError(eris.New("503"), 503)))
	assert.Equal(t, BreakerOpen, b.State())
}

func TestBreaker_Reset(t *testing.T) {
	b := NewBreaker(BreakerConfig{FailureThreshold: 1, ResetTimeout: time.Hour})
	_, _ = Guard(context.Background(), b, failing(eris.New("boom")))
	assert.Equal(t, BreakerOpen, b.State())

	b.Reset()
	assert.Equal(t, BreakerClosed, b.State())
}
