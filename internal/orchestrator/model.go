// Package orchestrator implements C11: the only place the four resilience
// primitives (Router, Health, Breaker, Retry) compose around a gateway
// call, plus the single handoff into the event choreographer on terminal
// success (spec.md §4.11).
package orchestrator

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/atlaspay/aggregator-core/pkg/money"
)

// Instrument is the payment method detail, opaque beyond its kind (spec.md
// §6: "instrument: {kind, ...}"; per-provider codecs are out of scope).
type Instrument struct {
	Kind   string
	Detail map[string]string
}

// Envelope is the normalized request spec.md §6 enumerates.
type Envelope struct {
	Amount         money.MinorUnits
	Currency       string
	CustomerRef    string
	Instrument     Instrument
	OrderRef       string
	Tenant         string
	IdempotencyKey string
}

// ChargeResult is what a GatewayAdapter returns on a successful charge.
type ChargeResult struct {
	GatewayTxnRef string
	GatewayFee    money.MinorUnits
}

// GatewayAdapter is the capability every payment gateway integration
// implements: charge, and nothing else (Design Notes, spec.md §9,
// "Polymorphism over instruments" — a capability set, not an inheritance
// hierarchy).
type GatewayAdapter interface {
	Charge(ctx context.Context, env Envelope) (ChargeResult, error)
}

// ProcessPaymentResult is what ProcessPayment returns on success (spec.md
// §6: "{transaction_id, gateway, status, response_time_ms}").
type ProcessPaymentResult struct {
	TransactionID  string
	Gateway        string
	Status         string
	ResponseTimeMs int64
	Duplicate      bool
}

// FeeSchedule computes the platform's own cut of a payment, distinct from
// the per-gateway cost model the Router reasons on (spec.md §4.8 row 1,
// "platform_fee").
type FeeSchedule struct {
	FixedFee   money.MinorUnits
	Percentage decimal.Decimal
}

// PlatformFee returns the platform's cut of amount under this schedule.
func (f FeeSchedule) PlatformFee(amount money.MinorUnits) money.MinorUnits {
	return money.PercentageFee(amount, f.FixedFee, f.Percentage)
}
