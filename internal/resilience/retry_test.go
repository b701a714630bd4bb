package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetryConfig(attempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts:    attempts,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		Multiplier:     2.0,
		JitterFraction: 0,
	}
}

func TestDo_SucceedsFirstTry(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastRetryConfig(3), func(ctx context.Context) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_RetriesTransient(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastRetryConfig(3), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return NewTransientError(errors.New("database is locked"))
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_StopsOnPermanentError(t *testing.T) {
	calls := 0
	permanent := errors.New("syntax error at or near SELECT")
	err := Do(context.Background(), fastRetryConfig(3), func(ctx context.Context) error {
		calls++
		return permanent
	})
	require.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls)
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastRetryConfig(3), func(ctx context.Context) error {
		calls++
		return errors.New("database is locked")
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_ContextCancelStopsRetries(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Do(ctx, fastRetryConfig(5), func(ctx context.Context) error {
		calls++
		cancel()
		return errors.New("connection refused")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_OnRetryCallback(t *testing.T) {
	var attempts []int
	cfg := fastRetryConfig(3)
	cfg.OnRetry = func(attempt int, err error) {
		attempts = append(attempts, attempt)
	}
	_ = Do(context.Background(), cfg, func(ctx context.Context) error {
		return errors.New("database is locked")
	})
	assert.Equal(t, []int{1, 2}, attempts)
}

func TestDo_CustomShouldRetry(t *testing.T) {
	calls := 0
	cfg := fastRetryConfig(3)
	cfg.ShouldRetry = func(err error) bool { return true }
	_ = Do(context.Background(), cfg, func(ctx context.Context) error {
		calls++
		return errors.New("anything retries")
	})
	assert.Equal(t, 3, calls)
}

func TestComputeBackoff_CapsAtMax(t *testing.T) {
	cfg := RetryConfig{
		InitialBackoff: time.Second,
		MaxBackoff:     2 * time.Second,
		Multiplier:     10,
		JitterFraction: 0,
	}
	assert.Equal(t, 2*time.Second, computeBackoff(5, cfg))
}
