package breaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlaspay/aggregator-core/internal/platform/mcircuitbreaker"
	cn "github.com/atlaspay/aggregator-core/pkg/constant"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.FailureWindow = time.Minute
	cfg.OpenTimeout = 10 * time.Millisecond

	return cfg
}

func fail(ctx context.Context) error    { return errors.New("boom") }
func succeed(ctx context.Context) error { return nil }

// B1: 4 failures in 4 attempts with volume_threshold=10 -> state remains
// CLOSED (volume threshold must be enforced).
func TestBreaker_LowVolume_StaysClosedDespiteFailures(t *testing.T) {
	b := New("g1", testConfig(), nil)

	for i := 0; i < 4; i++ {
		err := b.Execute(context.Background(), fail)
		require.Error(t, err)
	}

	assert.Equal(t, StateClosed, b.State())
}

// B2: 10 attempts / 5 failures -> OPEN exactly once.
func TestBreaker_VolumeAndFailureThresholdMet_Opens(t *testing.T) {
	listener := &recordingListener{}
	b := New("g1", testConfig(), listener)

	for i := 0; i < 5; i++ {
		_ = b.Execute(context.Background(), succeed)
	}

	for i := 0; i < 5; i++ {
		_ = b.Execute(context.Background(), fail)
	}

	assert.Equal(t, StateOpen, b.State())
	require.Len(t, listener.events, 1)
	assert.Equal(t, mcircuitbreaker.StateOpen, listener.events[0].ToState)
}

func TestBreaker_OpenRejectsImmediately(t *testing.T) {
	b := New("g1", testConfig(), nil)

	for i := 0; i < 10; i++ {
		_ = b.Execute(context.Background(), fail)
	}

	require.Equal(t, StateOpen, b.State())

	err := b.Execute(context.Background(), succeed)
	assert.ErrorIs(t, err, cn.ErrCircuitOpen)
}

func TestBreaker_OpenTimeoutElapsed_LazilyGoesHalfOpenOnNextCall(t *testing.T) {
	cfg := testConfig()
	b := New("g1", cfg, nil)

	for i := 0; i < 10; i++ {
		_ = b.Execute(context.Background(), fail)
	}

	require.Equal(t, StateOpen, b.State())

	time.Sleep(cfg.OpenTimeout + 5*time.Millisecond)

	err := b.Execute(context.Background(), succeed)
	require.NoError(t, err)

	// One success in HALF_OPEN with success_threshold=2 isn't enough yet.
	assert.Equal(t, StateHalfOpen, b.State())
}

func TestBreaker_HalfOpen_SuccessThresholdCloses(t *testing.T) {
	cfg := testConfig()
	cfg.SuccessThreshold = 2
	b := New("g1", cfg, nil)

	for i := 0; i < 10; i++ {
		_ = b.Execute(context.Background(), fail)
	}

	time.Sleep(cfg.OpenTimeout + 5*time.Millisecond)

	require.NoError(t, b.Execute(context.Background(), succeed))
	require.NoError(t, b.Execute(context.Background(), succeed))

	assert.Equal(t, StateClosed, b.State())
}

func TestBreaker_HalfOpen_AnyFailureReopens(t *testing.T) {
	cfg := testConfig()
	b := New("g1", cfg, nil)

	for i := 0; i < 10; i++ {
		_ = b.Execute(context.Background(), fail)
	}

	time.Sleep(cfg.OpenTimeout + 5*time.Millisecond)

	require.NoError(t, b.Execute(context.Background(), succeed))
	_ = b.Execute(context.Background(), fail)

	assert.Equal(t, StateOpen, b.State())
}

func TestBreaker_RequestTimeout_ReturnsTimeoutError(t *testing.T) {
	cfg := testConfig()
	cfg.RequestTimeout = 5 * time.Millisecond
	b := New("g1", cfg, nil)

	err := b.Execute(context.Background(), func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	assert.ErrorIs(t, err, cn.ErrOperationTimeout)
}

// §4.3: HALF_OPEN admits only success_threshold concurrent probes; further
// callers are rejected rather than let through, so the probe can't be
// stampeded by more callers than the decision threshold.
func TestBreaker_HalfOpen_CapsConcurrentAttemptsAtSuccessThreshold(t *testing.T) {
	cfg := testConfig()
	cfg.SuccessThreshold = 2
	b := New("g1", cfg, nil)

	for i := 0; i < 10; i++ {
		_ = b.Execute(context.Background(), fail)
	}

	time.Sleep(cfg.OpenTimeout + 5*time.Millisecond)

	block := make(chan struct{})
	hold := func(ctx context.Context) error {
		<-block
		return nil
	}

	errs := make(chan error, 3)

	for i := 0; i < 3; i++ {
		go func() { errs <- b.Execute(context.Background(), hold) }()
	}

	// Give the three goroutines a chance to reach Execute before releasing them.
	time.Sleep(20 * time.Millisecond)
	close(block)

	rejected := 0

	for i := 0; i < 3; i++ {
		if err := <-errs; errors.Is(err, cn.ErrCircuitOpen) {
			rejected++
		}
	}

	assert.Equal(t, 1, rejected, "only success_threshold probes should be admitted, the rest rejected")
}

func TestBreaker_Reset_ClearsState(t *testing.T) {
	b := New("g1", testConfig(), nil)

	for i := 0; i < 10; i++ {
		_ = b.Execute(context.Background(), fail)
	}

	require.Equal(t, StateOpen, b.State())

	b.Reset()

	assert.Equal(t, StateClosed, b.State())
}

type recordingListener struct {
	events []mcircuitbreaker.StateChangeEvent
}

func (r *recordingListener) OnCircuitBreakerStateChange(event mcircuitbreaker.StateChangeEvent) {
	r.events = append(r.events, event)
}
