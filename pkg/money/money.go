// Package money implements the integer-minor-units discipline the spec
// mandates at every boundary (spec.md §9 Open Questions: "any non-integer
// amount is an input validation failure"). Amounts flow through the core as
// int64 minor units (e.g. paise); shopspring/decimal is reserved for the
// fractional percentage-fee arithmetic the router's cost model and the
// orchestrator's platform fee need against those integers (spec.md §4.5).
package money

import (
	"github.com/shopspring/decimal"

	cn "github.com/atlaspay/aggregator-core/pkg/constant"
)

// MinorUnits is an amount expressed in the smallest unit of its currency
// (e.g. paise for INR, cents for USD). It must never be negative for an
// entry amount (I2-adjacent: "amount > 0" in spec.md §3).
type MinorUnits int64

// Validate rejects non-positive amounts. Entries require strictly positive
// amounts; callers needing a zero-or-positive check (e.g. balances) should
// compare the raw int64 directly.
func (m MinorUnits) Validate() error {
	if m <= 0 {
		return cn.ErrInvalidMinorUnits
	}

	return nil
}

// PercentageFee computes fixed + percentage*amount, rounded to the nearest
// minor unit, using exact decimal arithmetic so floating-point error never
// leaks into a ledger entry (spec.md §4.5 COST_OPTIMIZED, §4.8 fee rows).
func PercentageFee(amount MinorUnits, fixedFee MinorUnits, percentage decimal.Decimal) MinorUnits {
	pct := decimal.NewFromInt(int64(amount)).Mul(percentage)
	total := pct.Add(decimal.NewFromInt(int64(fixedFee)))

	return MinorUnits(total.Round(0).IntPart())
}

// Sum adds a slice of minor-unit amounts without intermediate float
// conversion.
func Sum(amounts ...MinorUnits) MinorUnits {
	var total MinorUnits
	for _, a := range amounts {
		total += a
	}

	return total
}
