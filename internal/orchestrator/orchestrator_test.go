package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlaspay/aggregator-core/internal/breaker"
	"github.com/atlaspay/aggregator-core/internal/choreographer"
	"github.com/atlaspay/aggregator-core/internal/health"
	"github.com/atlaspay/aggregator-core/internal/retry"
	"github.com/atlaspay/aggregator-core/internal/router"
)

func twoGatewayRouter() (*router.Router, *health.Tracker, *breaker.Registry) {
	tracker := health.NewTracker()
	registry := breaker.NewRegistry(breaker.DefaultConfig(), nil)

	gateways := []router.Gateway{
		{Name: "g1", FixedFee: 100, PercentageFee: decimal.NewFromFloat(0.01)},
		{Name: "g2", FixedFee: 100, PercentageFee: decimal.NewFromFloat(0.01)},
	}

	r := router.New(router.DefaultConfig(), gateways, tracker, registry)

	return r, tracker, registry
}

func fastRetryPolicy() retry.Policy {
	return retry.DefaultPolicy().WithMaxAttempts(2).WithInitialDelay(time.Millisecond).WithMaxDelay(2 * time.Millisecond)
}

// recordingDispatch stands in for a *choreographer.UseCase wired through
// dispatcher; it assigns a fresh transaction id per distinct SourceRef and
// replays the same id (Duplicate:true) for a repeat.
type recordingDispatch struct {
	seen map[string]string
	evts []choreographer.Event
}

func newRecordingDispatch() *recordingDispatch {
	return &recordingDispatch{seen: make(map[string]string)}
}

func (d *recordingDispatch) dispatch(ctx context.Context, evt choreographer.Event) (DispatchResult, error) {
	d.evts = append(d.evts, evt)

	if id, ok := d.seen[evt.SourceRef]; ok {
		return DispatchResult{TransactionID: id, Duplicate: true}, nil
	}

	id := uuid.New().String()
	d.seen[evt.SourceRef] = id

	return DispatchResult{TransactionID: id}, nil
}

// S1: happy path, two healthy gateways, succeeds via g1.
func TestProcessPayment_HappyPath_SucceedsViaPrimary(t *testing.T) {
	r, tracker, registry := twoGatewayRouter()
	dispatch := newRecordingDispatch()

	g1 := NewFakeAdapter("g1").WithSuccess(ChargeResult{GatewayTxnRef: "g1tx1", GatewayFee: 1500})
	o := New(r, tracker, registry, fastRetryPolicy(), map[string]GatewayAdapter{"g1": g1, "g2": NewFakeAdapter("g2")},
		FeeSchedule{Percentage: decimal.NewFromFloat(0.02)}, dispatch.dispatch)

	result, err := o.ProcessPayment(context.Background(), Envelope{
		Amount: 100000, Currency: "INR", Tenant: "T", IdempotencyKey: "k1",
	})

	require.NoError(t, err)
	assert.Equal(t, "g1", result.Gateway)
	assert.Equal(t, "success", result.Status)
	assert.False(t, result.Duplicate)
	require.Len(t, dispatch.evts, 1)
	assert.Equal(t, choreographer.EventPaymentSuccess, dispatch.evts[0].Type)
}

// S2: idempotent replay — same idempotency_key returns the same
// transaction id with duplicate:true, no new choreographer entries beyond
// the replay dispatch itself.
func TestProcessPayment_IdempotentReplay_ReturnsSameTransaction(t *testing.T) {
	r, tracker, registry := twoGatewayRouter()
	dispatch := newRecordingDispatch()

	g1 := NewFakeAdapter("g1").WithSuccess(ChargeResult{GatewayFee: 1500}).WithSuccess(ChargeResult{GatewayFee: 1500})
	o := New(r, tracker, registry, fastRetryPolicy(), map[string]GatewayAdapter{"g1": g1, "g2": NewFakeAdapter("g2")},
		FeeSchedule{Percentage: decimal.NewFromFloat(0.02)}, dispatch.dispatch)

	env := Envelope{Amount: 100000, Currency: "INR", Tenant: "T", IdempotencyKey: "k1"}

	first, err := o.ProcessPayment(context.Background(), env)
	require.NoError(t, err)

	second, err := o.ProcessPayment(context.Background(), env)
	require.NoError(t, err)

	assert.Equal(t, first.TransactionID, second.TransactionID)
	assert.True(t, second.Duplicate)
}

// S3: g1 fails with a retryable network error twice, router falls back to
// g2 which succeeds; no ledger entry attributed to g1 (dispatch only fires
// once, for g2).
func TestProcessPayment_PrimaryFails_FallsBackToSecondary(t *testing.T) {
	r, tracker, registry := twoGatewayRouter()
	dispatch := newRecordingDispatch()

	g1 := NewFakeAdapter("g1").WithNetworkError("timeout").WithNetworkError("timeout")
	g2 := NewFakeAdapter("g2").WithSuccess(ChargeResult{GatewayFee: 1200})

	o := New(r, tracker, registry, fastRetryPolicy(), map[string]GatewayAdapter{"g1": g1, "g2": g2},
		FeeSchedule{Percentage: decimal.NewFromFloat(0.02)}, dispatch.dispatch)

	result, err := o.ProcessPayment(context.Background(), Envelope{
		Amount: 100000, Currency: "INR", Tenant: "T", IdempotencyKey: "k2",
	})

	require.NoError(t, err)
	assert.Equal(t, "g2", result.Gateway)
	assert.Equal(t, 2, g1.CallCount(), "retry budget of 2 attempts against g1 before falling back")
	assert.Equal(t, 1, g2.CallCount())
	require.Len(t, dispatch.evts, 1)
	assert.Equal(t, "g2", result.Gateway)
}

// S4: breaker trips after enough failures within the window; the next
// request routes directly to g2 without invoking g1 at all.
func TestProcessPayment_BreakerTrips_RoutesDirectlyToSecondary(t *testing.T) {
	r, tracker, registry := twoGatewayRouter()
	dispatch := newRecordingDispatch()

	cfg := breaker.DefaultConfig()
	cfg.VolumeThreshold = 10
	cfg.FailureThreshold = 5
	registry = breaker.NewRegistry(cfg, nil)
	// The router gets no health tracker here: with one, g1's first failure
	// drops its health score below 50 (UNHEALTHY) and the router stops
	// planning it before the breaker has seen enough requests to open.
	r = router.New(router.DefaultConfig(), []router.Gateway{
		{Name: "g1", FixedFee: 100, PercentageFee: decimal.NewFromFloat(0.01)},
		{Name: "g2", FixedFee: 100, PercentageFee: decimal.NewFromFloat(0.01)},
	}, nil, registry)

	failingAdapter := func() GatewayAdapter { return NewFakeAdapter("g1").WithFailure(breakerTestErr{}) }
	successAdapter := NewFakeAdapter("g2").WithSuccess(ChargeResult{GatewayFee: 100})

	onceRetryPolicy := fastRetryPolicy().WithMaxAttempts(1)

	adapters := map[string]GatewayAdapter{"g1": failingAdapter(), "g2": successAdapter}
	o := New(r, tracker, registry, onceRetryPolicy, adapters, FeeSchedule{Percentage: decimal.NewFromFloat(0.02)}, dispatch.dispatch)

	// VolumeThreshold=10 and FailureThreshold=5: 10 failing attempts trips
	// the breaker open.
	for i := 0; i < 10; i++ {
		_, _ = o.ProcessPayment(context.Background(), Envelope{Amount: 1000, Currency: "INR", Tenant: "T", IdempotencyKey: uuid.NewString()})
		adapters["g1"] = failingAdapter()
		o.Adapters = adapters
	}

	assert.Equal(t, breaker.StateOpen, registry.Get("g1").State())

	result, err := o.ProcessPayment(context.Background(), Envelope{Amount: 1000, Currency: "INR", Tenant: "T", IdempotencyKey: "final"})
	require.NoError(t, err)
	assert.Equal(t, "g2", result.Gateway)
}

type breakerTestErr struct{}

func (breakerTestErr) Error() string { return "simulated gateway failure" }

func TestProcessPayment_NoEligibleGateway_ReturnsNoGatewayAvailable(t *testing.T) {
	tracker := health.NewTracker()
	registry := breaker.NewRegistry(breaker.DefaultConfig(), nil)
	r := router.New(router.DefaultConfig(), nil, tracker, registry)
	dispatch := newRecordingDispatch()

	o := New(r, tracker, registry, fastRetryPolicy(), map[string]GatewayAdapter{}, FeeSchedule{}, dispatch.dispatch)

	_, err := o.ProcessPayment(context.Background(), Envelope{Amount: 1000, Currency: "INR", Tenant: "T", IdempotencyKey: "x"})
	require.Error(t, err)
}
