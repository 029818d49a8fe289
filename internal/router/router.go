// Package router implements C5: turning a request envelope plus C2 health
// snapshots and C3 breaker states into an ordered gateway plan
// (spec.md §4.5).
package router

import (
	"sort"

	"github.com/atlaspay/aggregator-core/internal/breaker"
	"github.com/atlaspay/aggregator-core/internal/health"
	"github.com/atlaspay/aggregator-core/pkg/money"
	"github.com/shopspring/decimal"
)

// Strategy selects which ordering rule the Router applies.
type Strategy string

const (
	StrategyHealthBased    Strategy = "HEALTH_BASED"
	StrategyLatencyBased   Strategy = "LATENCY_BASED"
	StrategyCostOptimized  Strategy = "COST_OPTIMIZED"
	StrategyPriority       Strategy = "PRIORITY"
	StrategyRoundRobin     Strategy = "ROUND_ROBIN"
	defaultPriorityMinimum = 50.0
)

// Gateway is the router's static view of a configured payment gateway: its
// cost model and, for PRIORITY, its configured rank.
type Gateway struct {
	Name          string
	FixedFee      money.MinorUnits
	PercentageFee decimal.Decimal
	Priority      int
}

// Request is the envelope the router plans against.
type Request struct {
	Amount   money.MinorUnits
	Currency string
	Excluded map[string]bool
}

// Config tunes the router beyond the per-call Strategy.
type Config struct {
	Strategy            Strategy
	MaxFallbackAttempts int
	PriorityThreshold   float64
}

// DefaultConfig returns HEALTH_BASED with the spec's documented defaults.
func DefaultConfig() Config {
	return Config{
		Strategy:            StrategyHealthBased,
		MaxFallbackAttempts: 2,
		PriorityThreshold:   defaultPriorityMinimum,
	}
}

// Router plans gateway fallback order from live health/breaker state.
type Router struct {
	cfg      Config
	gateways []Gateway
	health   *health.Tracker
	breakers *breaker.Registry
	rrCursor int
}

// New builds a Router over the given static gateway list, reading
// liveliness from tracker and breakers.
func New(cfg Config, gateways []Gateway, tracker *health.Tracker, breakers *breaker.Registry) *Router {
	return &Router{cfg: cfg, gateways: gateways, health: tracker, breakers: breakers}
}

// candidate is a gateway annotated with everything a strategy might sort
// on.
type candidate struct {
	gw   Gateway
	snap health.Snapshot
	cost money.MinorUnits
}

func (r *Router) effectiveCost(gw Gateway, amount money.MinorUnits) money.MinorUnits {
	return money.PercentageFee(amount, gw.FixedFee, gw.PercentageFee)
}

// eligible returns every configured gateway not excluded by the caller,
// whose breaker isn't OPEN and whose health status isn't UNHEALTHY,
// annotated with its current health snapshot.
func (r *Router) eligible(req Request) []candidate {
	candidates := make([]candidate, 0, len(r.gateways))

	for _, gw := range r.gateways {
		if req.Excluded != nil && req.Excluded[gw.Name] {
			continue
		}

		if r.breakers != nil && r.breakers.Get(gw.Name).State() == breaker.StateOpen {
			continue
		}

		snap := health.Snapshot{Status: health.StatusUnknown}
		if r.health != nil {
			snap = r.health.Snapshot(gw.Name)
		}

		if snap.Status == health.StatusUnhealthy {
			continue
		}

		candidates = append(candidates, candidate{gw: gw, snap: snap, cost: r.effectiveCost(gw, req.Amount)})
	}

	return candidates
}

// Plan returns the ordered gateway list [primary, fallback_1, ...] for
// req, capped at MaxFallbackAttempts fallbacks (MaxFallbackAttempts+1
// entries total). An empty slice means no_gateway_available; the router
// itself never errors (§4.5).
func (r *Router) Plan(req Request) []string {
	candidates := r.eligible(req)
	if len(candidates) == 0 {
		return nil
	}

	switch r.cfg.Strategy {
	case StrategyLatencyBased:
		sort.SliceStable(candidates, func(i, j int) bool {
			return candidates[i].snap.AvgResponseTime < candidates[j].snap.AvgResponseTime
		})
	case StrategyCostOptimized:
		sort.SliceStable(candidates, func(i, j int) bool {
			return candidates[i].cost < candidates[j].cost
		})
	case StrategyPriority:
		filtered := candidates[:0]

		for _, c := range candidates {
			if c.snap.HealthScore >= r.cfg.PriorityThreshold || c.snap.Status == health.StatusUnknown {
				filtered = append(filtered, c)
			}
		}

		candidates = filtered

		sort.SliceStable(candidates, func(i, j int) bool {
			return candidates[i].gw.Priority < candidates[j].gw.Priority
		})
	case StrategyRoundRobin:
		sort.SliceStable(candidates, func(i, j int) bool {
			return candidates[i].gw.Name < candidates[j].gw.Name
		})

		if len(candidates) > 0 {
			shift := r.rrCursor % len(candidates)
			candidates = append(candidates[shift:], candidates[:shift]...)
			r.rrCursor++
		}
	case StrategyHealthBased:
		fallthrough
	default:
		sort.SliceStable(candidates, func(i, j int) bool {
			if candidates[i].snap.HealthScore != candidates[j].snap.HealthScore {
				return candidates[i].snap.HealthScore > candidates[j].snap.HealthScore
			}

			return candidates[i].cost < candidates[j].cost
		})
	}

	maxLen := r.cfg.MaxFallbackAttempts + 1
	if maxLen <= 0 || maxLen > len(candidates) {
		maxLen = len(candidates)
	}

	plan := make([]string, 0, maxLen)
	for _, c := range candidates[:maxLen] {
		plan = append(plan, c.gw.Name)
	}

	return plan
}
