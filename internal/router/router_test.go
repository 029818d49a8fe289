package router

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlaspay/aggregator-core/internal/breaker"
	"github.com/atlaspay/aggregator-core/internal/health"
	"github.com/atlaspay/aggregator-core/pkg/money"
)

func sampleGateways() []Gateway {
	return []Gateway{
		{Name: "razorpay", FixedFee: 200, PercentageFee: decimal.NewFromFloat(0.02), Priority: 1},
		{Name: "payu", FixedFee: 100, PercentageFee: decimal.NewFromFloat(0.025), Priority: 2},
		{Name: "stripe", FixedFee: 300, PercentageFee: decimal.NewFromFloat(0.015), Priority: 3},
	}
}

func TestPlan_HealthBased_OrdersByScoreDescending(t *testing.T) {
	tracker := health.NewTracker()

	for i := 0; i < 20; i++ {
		tracker.RecordSuccess("razorpay", 50*time.Millisecond)
		tracker.RecordFailure("payu", 50*time.Millisecond)
		tracker.RecordSuccess("stripe", 500*time.Millisecond)
	}

	r := New(DefaultConfig(), sampleGateways(), tracker, breaker.NewRegistry(breaker.DefaultConfig(), nil))

	plan := r.Plan(Request{Amount: 10000, Currency: "INR"})

	require.NotEmpty(t, plan)
	assert.Equal(t, "razorpay", plan[0])
}

func TestPlan_ExcludesOpenBreaker(t *testing.T) {
	tracker := health.NewTracker()
	for i := 0; i < 20; i++ {
		tracker.RecordSuccess("razorpay", 50*time.Millisecond)
		tracker.RecordSuccess("payu", 50*time.Millisecond)
		tracker.RecordSuccess("stripe", 50*time.Millisecond)
	}

	registry := breaker.NewRegistry(breaker.DefaultConfig(), nil)
	b := registry.Get("razorpay")

	for i := 0; i < 10; i++ {
		_ = b.Execute(context.Background(), func(ctx context.Context) error { return errors.New("boom") })
	}

	r := New(DefaultConfig(), sampleGateways(), tracker, registry)

	plan := r.Plan(Request{Amount: 10000})

	for _, g := range plan {
		assert.NotEqual(t, "razorpay", g)
	}
}

func TestPlan_CostOptimized_OrdersByEffectiveCostAscending(t *testing.T) {
	tracker := health.NewTracker()
	for i := 0; i < 20; i++ {
		tracker.RecordSuccess("razorpay", 50*time.Millisecond)
		tracker.RecordSuccess("payu", 50*time.Millisecond)
		tracker.RecordSuccess("stripe", 50*time.Millisecond)
	}

	cfg := DefaultConfig()
	cfg.Strategy = StrategyCostOptimized

	r := New(cfg, sampleGateways(), tracker, breaker.NewRegistry(breaker.DefaultConfig(), nil))

	plan := r.Plan(Request{Amount: 10000})

	require.Len(t, plan, 3)
	assert.Equal(t, "payu", plan[0])
}

func TestPlan_Priority_FiltersBelowThreshold(t *testing.T) {
	tracker := health.NewTracker()

	for i := 0; i < 20; i++ {
		tracker.RecordSuccess("razorpay", 50*time.Millisecond)
		tracker.RecordFailure("payu", 2*time.Second)
	}

	cfg := DefaultConfig()
	cfg.Strategy = StrategyPriority
	cfg.PriorityThreshold = 50
	cfg.MaxFallbackAttempts = 5

	r := New(cfg, sampleGateways(), tracker, breaker.NewRegistry(breaker.DefaultConfig(), nil))

	plan := r.Plan(Request{Amount: 10000})

	for _, g := range plan {
		assert.NotEqual(t, "payu", g)
	}
}

func TestPlan_MaxFallbackAttemptsCapsLength(t *testing.T) {
	tracker := health.NewTracker()
	for i := 0; i < 20; i++ {
		tracker.RecordSuccess("razorpay", 50*time.Millisecond)
		tracker.RecordSuccess("payu", 50*time.Millisecond)
		tracker.RecordSuccess("stripe", 50*time.Millisecond)
	}

	cfg := DefaultConfig()
	cfg.MaxFallbackAttempts = 1

	r := New(cfg, sampleGateways(), tracker, breaker.NewRegistry(breaker.DefaultConfig(), nil))

	plan := r.Plan(Request{Amount: 10000})

	assert.Len(t, plan, 2)
}

func TestPlan_NoEligibleGateways_ReturnsEmptyPlan(t *testing.T) {
	r := New(DefaultConfig(), sampleGateways(), health.NewTracker(), breaker.NewRegistry(breaker.DefaultConfig(), nil))

	plan := r.Plan(Request{
		Amount:   10000,
		Excluded: map[string]bool{"razorpay": true, "payu": true, "stripe": true},
	})

	assert.Empty(t, plan)
}

func TestPlan_RoundRobin_RotatesAcrossCalls(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Strategy = StrategyRoundRobin
	cfg.MaxFallbackAttempts = 2

	r := New(cfg, sampleGateways(), health.NewTracker(), breaker.NewRegistry(breaker.DefaultConfig(), nil))

	first := r.Plan(Request{Amount: 10000})
	second := r.Plan(Request{Amount: 10000})

	require.Len(t, first, 3)
	require.Len(t, second, 3)
	assert.NotEqual(t, first[0], second[0])
}

func TestMoneyEffectiveCost_SanityCheck(t *testing.T) {
	cost := money.PercentageFee(10000, 200, decimal.NewFromFloat(0.02))
	assert.Equal(t, money.MinorUnits(400), cost)
}
