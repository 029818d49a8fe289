// Package choreographer implements C8: the only path by which a business
// event may produce ledger entries (spec.md §4.8). Each handler is pure
// with respect to its inputs — it takes every amount it needs as an
// explicit parameter and never looks anything up by customer or merchant
// id, so the same Event always yields the same posting request.
package choreographer

import (
	"github.com/atlaspay/aggregator-core/pkg/money"
)

// EventType names one of the business events the choreographer accepts.
type EventType string

const (
	EventPaymentSuccess   EventType = "payment_success"
	EventRefundCompleted  EventType = "refund_completed"
	EventSettlement       EventType = "settlement"
	EventChargebackDebit  EventType = "chargeback_debit"
	EventManualAdjustment EventType = "manual_adjustment"
)

// Event is the normalized envelope every handler consumes. Fields unused by
// a given event type are left zero; handlers read only what their row in
// spec.md §4.8 names.
type Event struct {
	Type       EventType
	Tenant     string
	SourceRef  string
	Amount     money.MinorUnits
	PlatformFee money.MinorUnits
	GatewayFee  money.MinorUnits
	Currency   string
	Actor      string

	// settlement only: the net amount posted; chargeback_debit posts Amount.
	NetAmount money.MinorUnits

	// manual_adjustment only.
	DebitAccount  string
	CreditAccount string
	Description   string
	Override      bool
	UserRole      string
	Justification string
}

// AccountMap names the fixed chart-of-accounts codes the handlers post to.
// Tenants share one chart; spec.md §3 treats account codes as
// tenant-scoped rows, not per-tenant-distinct names.
type AccountMap struct {
	EscrowAsset        string
	EscrowLiability     string
	MerchantReceivable string
	MerchantPayable    string
	CustomerClearing   string
	GatewayPayable     string
	PlatformRevenue    string
	PlatformFeeExpense string
	GatewayFeeExpense  string
}

// DefaultAccountMap is the chart of accounts named in spec.md §3/§4.8.
func DefaultAccountMap() AccountMap {
	return AccountMap{
		EscrowAsset:        "escrow_asset",
		EscrowLiability:    "escrow_liability",
		MerchantReceivable: "merchant_receivable",
		MerchantPayable:    "merchant_payable",
		CustomerClearing:   "customer_clearing",
		GatewayPayable:     "gateway_payable",
		PlatformRevenue:    "platform_revenue",
		PlatformFeeExpense: "platform_fee_expense",
		GatewayFeeExpense:  "gateway_fee_expense",
	}
}
