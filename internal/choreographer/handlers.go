package choreographer

import (
	"time"

	"github.com/atlaspay/aggregator-core/internal/ledger"
)

// idempotencyKey derives the stable (event_type, source_ref) key spec.md
// §4.8 requires so at-least-once delivery never double-posts.
func idempotencyKey(evt Event) string {
	return string(evt.Type) + ":" + evt.SourceRef
}

// paymentSuccessRequest builds the 8-entry balanced posting for a captured
// payment (spec.md §4.8 row 1).
func paymentSuccessRequest(evt Event, accounts AccountMap, now time.Time) ledger.PostRequest {
	netToMerchant := evt.Amount - evt.PlatformFee - evt.GatewayFee

	return ledger.PostRequest{
		Tenant:          evt.Tenant,
		EventType:       string(EventPaymentSuccess),
		SourceRef:       evt.SourceRef,
		IdempotencyKey:  idempotencyKey(evt),
		Amount:          evt.Amount,
		Currency:        evt.Currency,
		CreatedBy:       evt.Actor,
		TransactionDate: now,
		Entries: []ledger.EntryInput{
			{AccountCode: accounts.EscrowAsset, Side: ledger.SideDebit, Amount: evt.Amount, Description: "payment captured"},
			{AccountCode: accounts.MerchantReceivable, Side: ledger.SideDebit, Amount: netToMerchant, Description: "merchant net receivable"},
			{AccountCode: accounts.PlatformFeeExpense, Side: ledger.SideDebit, Amount: evt.PlatformFee, Description: "platform fee expense"},
			{AccountCode: accounts.GatewayFeeExpense, Side: ledger.SideDebit, Amount: evt.GatewayFee, Description: "gateway fee expense"},
			{AccountCode: accounts.CustomerClearing, Side: ledger.SideCredit, Amount: evt.Amount, Description: "customer clearing"},
			{AccountCode: accounts.EscrowLiability, Side: ledger.SideCredit, Amount: evt.Amount - evt.PlatformFee - evt.GatewayFee, Description: "escrow liability net of fees"},
			{AccountCode: accounts.PlatformRevenue, Side: ledger.SideCredit, Amount: evt.PlatformFee, Description: "platform revenue"},
			{AccountCode: accounts.GatewayPayable, Side: ledger.SideCredit, Amount: evt.GatewayFee, Description: "gateway payable"},
		},
	}
}

// refundCompletedRequest mirrors paymentSuccessRequest with sides flipped;
// partial refunds post a smaller Amount than the original payment (spec.md
// §4.8 row 2, "partial refund allowed").
func refundCompletedRequest(evt Event, accounts AccountMap, now time.Time) ledger.PostRequest {
	return ledger.PostRequest{
		Tenant:          evt.Tenant,
		EventType:       string(EventRefundCompleted),
		SourceRef:       evt.SourceRef,
		IdempotencyKey:  idempotencyKey(evt),
		Amount:          evt.Amount,
		Currency:        evt.Currency,
		CreatedBy:       evt.Actor,
		TransactionDate: now,
		Entries: []ledger.EntryInput{
			{AccountCode: accounts.EscrowLiability, Side: ledger.SideDebit, Amount: evt.Amount - evt.PlatformFee, Description: "escrow liability reversed"},
			{AccountCode: accounts.PlatformRevenue, Side: ledger.SideDebit, Amount: evt.PlatformFee, Description: "platform fee refunded"},
			{AccountCode: accounts.EscrowAsset, Side: ledger.SideCredit, Amount: evt.Amount, Description: "escrow asset refunded"},
			{AccountCode: accounts.MerchantReceivable, Side: ledger.SideCredit, Amount: evt.Amount - evt.PlatformFee, Description: "merchant receivable reversed"},
		},
	}
}

// settlementRequest moves the merchant's earned balance from payable into
// paid state (spec.md §4.8 row 3). Posted exactly once at CREATED per
// spec.md §4.9 — the settlement state machine never re-posts on retry.
func settlementRequest(evt Event, accounts AccountMap, now time.Time) ledger.PostRequest {
	return ledger.PostRequest{
		Tenant:          evt.Tenant,
		EventType:       string(EventSettlement),
		SourceRef:       evt.SourceRef,
		IdempotencyKey:  idempotencyKey(evt),
		Amount:          evt.NetAmount,
		Currency:        evt.Currency,
		CreatedBy:       evt.Actor,
		TransactionDate: now,
		Entries: []ledger.EntryInput{
			{AccountCode: accounts.MerchantPayable, Side: ledger.SideDebit, Amount: evt.NetAmount, Description: "settlement net"},
			{AccountCode: accounts.EscrowAsset, Side: ledger.SideCredit, Amount: evt.NetAmount, Description: "settlement funded from escrow"},
		},
	}
}

// chargebackDebitRequest books a disputed charge against the merchant;
// reversible via ledger.ReverseTransaction if the dispute is won (spec.md
// §4.8 row 4).
func chargebackDebitRequest(evt Event, accounts AccountMap, now time.Time) ledger.PostRequest {
	return ledger.PostRequest{
		Tenant:          evt.Tenant,
		EventType:       string(EventChargebackDebit),
		SourceRef:       evt.SourceRef,
		IdempotencyKey:  idempotencyKey(evt),
		Amount:          evt.Amount,
		Currency:        evt.Currency,
		CreatedBy:       evt.Actor,
		TransactionDate: now,
		Entries: []ledger.EntryInput{
			{AccountCode: accounts.MerchantPayable, Side: ledger.SideDebit, Amount: evt.Amount, Description: "chargeback debited from merchant"},
			{AccountCode: accounts.EscrowAsset, Side: ledger.SideCredit, Amount: evt.Amount, Description: "chargeback funded from escrow"},
		},
	}
}

// manualAdjustmentRequest posts a free-form two-leg entry an operator
// configured explicitly; accounts and amount are caller-supplied, not
// derived (spec.md §4.8 row 5).
func manualAdjustmentRequest(evt Event, now time.Time) ledger.PostRequest {
	return ledger.PostRequest{
		Tenant:                evt.Tenant,
		EventType:             string(EventManualAdjustment),
		SourceRef:             evt.SourceRef,
		IdempotencyKey:        idempotencyKey(evt),
		Amount:                evt.Amount,
		Currency:              evt.Currency,
		CreatedBy:             evt.Actor,
		TransactionDate:       now,
		Override:              evt.Override,
		UserRole:              evt.UserRole,
		OverrideJustification: evt.Justification,
		Entries: []ledger.EntryInput{
			{AccountCode: evt.DebitAccount, Side: ledger.SideDebit, Amount: evt.Amount, Description: evt.Description},
			{AccountCode: evt.CreditAccount, Side: ledger.SideCredit, Amount: evt.Amount, Description: evt.Description},
		},
	}
}
