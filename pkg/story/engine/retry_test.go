package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithRetryEventualSuccess(t *testing.T) {
	rig := newRig()
	cfg := fastConfig()
	cfg.MaxRetries = 2
	eng := rig.engine(cfg)

	calls := 0
	err := eng.withRetry(context.Background(), "flaky", time.Second, func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestWithRetryExhaustion(t *testing.T) {
	rig := newRig()
	cfg := fastConfig()
	cfg.MaxRetries = 2
	eng := rig.engine(cfg)

	calls := 0
	err := eng.withRetry(context.Background(), "down", time.Second, func(ctx context.Context) error {
		calls++
		return errors.New("still broken")
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls, "MaxRetries=2 means 3 attempts total")
	assert.ErrorContains(t, err, "still broken")
	assert.ErrorContains(t, err, "down failed after 3 attempts")
}

func TestWithRetryNoRetriesConfigured(t *testing.T) {
	rig := newRig()
	eng := rig.engine(fastConfig()) // MaxRetries: 0

	calls := 0
	err := eng.withRetry(context.Background(), "once", time.Second, func(ctx context.Context) error {
		calls++
		return errors.New("boom")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestWithRetryStopsOnCancelBetweenAttempts(t *testing.T) {
	rig := newRig()
	cfg := fastConfig()
	cfg.MaxRetries = 5
	cfg.RetryBackoff = 50 * time.Millisecond
	eng := rig.engine(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := eng.withRetry(ctx, "cancelled", time.Second, func(ctx context.Context) error {
		calls++
		cancel()
		return errors.New("transient")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls, "the backoff wait observes cancellation")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWithRetryAttemptTimeoutApplies(t *testing.T) {
	rig := newRig()
	eng := rig.engine(fastConfig())

	err := eng.withRetry(context.Background(), "slow", 20*time.Millisecond, func(ctx context.Context) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
			return nil
		}
	})

	require.Error(t, err)
	assert.ErrorContains(t, err, "deadline")
}

func TestWithRetryAttemptSurvivesCallerCancel(t *testing.T) {
	// An in-flight call keeps its own timeout even after the caller aborts.
	rig := newRig()
	eng := rig.engine(fastConfig())

	ctx, cancel := context.WithCancel(context.Background())
	err := eng.withRetry(ctx, "detached", time.Second, func(callCtx context.Context) error {
		cancel()
		select {
		case <-callCtx.Done():
			return callCtx.Err()
		case <-time.After(20 * time.Millisecond):
			return nil
		}
	})

	assert.NoError(t, err)
}
