package choreographer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlaspay/aggregator-core/internal/ledger"
	"github.com/atlaspay/aggregator-core/pkg/money"
	"github.com/atlaspay/aggregator-core/pkg/principal"

	cn "github.com/atlaspay/aggregator-core/pkg/constant"
)

// fakeLedger records every PostRequest it receives and replays a result for
// a repeated IdempotencyKey, standing in for C6's own replay behavior.
type fakeLedger struct {
	posted  []ledger.PostRequest
	byKey   map[string]ledger.PostResult
	failNext error
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{byKey: make(map[string]ledger.PostResult)}
}

func (f *fakeLedger) PostTransaction(ctx context.Context, req ledger.PostRequest) (ledger.PostResult, error) {
	if f.failNext != nil {
		err := f.failNext
		f.failNext = nil

		return ledger.PostResult{}, err
	}

	if existing, ok := f.byKey[req.IdempotencyKey]; ok {
		existing.Duplicate = true
		return existing, nil
	}

	f.posted = append(f.posted, req)

	var debits, credits money.MinorUnits
	for _, e := range req.Entries {
		if e.Side == ledger.SideDebit {
			debits += e.Amount
		} else {
			credits += e.Amount
		}
	}

	result := ledger.PostResult{
		Validation: ledger.Validation{Balanced: debits == credits, TotalDebits: debits, TotalCredits: credits},
	}

	if req.IdempotencyKey != "" {
		f.byKey[req.IdempotencyKey] = result
	}

	return result, nil
}

func fixedClock(t time.Time) Clock { return func() time.Time { return t } }

func TestDispatch_PaymentSuccess_ProducesBalancedEightEntries(t *testing.T) {
	fl := newFakeLedger()
	uc := New(fl, nil)
	uc.Now = fixedClock(time.Unix(0, 0))

	result, err := uc.Dispatch(context.Background(), Event{
		Type: EventPaymentSuccess, Tenant: "t1", SourceRef: "pay_1",
		Amount: 10000, PlatformFee: 200, GatewayFee: 100, Currency: "INR", Actor: "system",
	})

	require.NoError(t, err)
	assert.True(t, result.Validation.Balanced)
	require.Len(t, fl.posted, 1)
	assert.Len(t, fl.posted[0].Entries, 8)
	assert.Equal(t, "payment_success:pay_1", fl.posted[0].IdempotencyKey)
}

func TestDispatch_SameSourceRefTwice_IsIdempotent(t *testing.T) {
	fl := newFakeLedger()
	uc := New(fl, nil)
	uc.Now = fixedClock(time.Unix(0, 0))

	evt := Event{Type: EventPaymentSuccess, Tenant: "t1", SourceRef: "pay_2", Amount: 5000, Currency: "INR"}

	_, err := uc.Dispatch(context.Background(), evt)
	require.NoError(t, err)

	second, err := uc.Dispatch(context.Background(), evt)
	require.NoError(t, err)
	assert.True(t, second.Duplicate)
	assert.Len(t, fl.posted, 1, "at-least-once delivery must not double-post")
}

func TestDispatch_RefundCompleted_MirrorsPaymentSides(t *testing.T) {
	fl := newFakeLedger()
	uc := New(fl, nil)
	uc.Now = fixedClock(time.Unix(0, 0))

	_, err := uc.Dispatch(context.Background(), Event{
		Type: EventRefundCompleted, Tenant: "t1", SourceRef: "refund_1",
		Amount: 3000, PlatformFee: 60, Currency: "INR",
	})

	require.NoError(t, err)
	require.Len(t, fl.posted, 1)

	req := fl.posted[0]
	var debits, credits money.MinorUnits
	for _, e := range req.Entries {
		if e.Side == ledger.SideDebit {
			debits += e.Amount
		} else {
			credits += e.Amount
		}
	}
	assert.Equal(t, debits, credits)
}

func TestDispatch_Settlement_MovesPayableToEscrow(t *testing.T) {
	fl := newFakeLedger()
	uc := New(fl, nil)
	uc.Now = fixedClock(time.Unix(0, 0))

	_, err := uc.Dispatch(context.Background(), Event{
		Type: EventSettlement, Tenant: "t1", SourceRef: "settle_1", NetAmount: 9700, Currency: "INR",
	})

	require.NoError(t, err)
	require.Len(t, fl.posted, 1)
	assert.Len(t, fl.posted[0].Entries, 2)
}

func TestDispatch_ChargebackDebit_PostsTwoEntries(t *testing.T) {
	fl := newFakeLedger()
	uc := New(fl, nil)
	uc.Now = fixedClock(time.Unix(0, 0))

	_, err := uc.Dispatch(context.Background(), Event{
		Type: EventChargebackDebit, Tenant: "t1", SourceRef: "cb_1", Amount: 1500, Currency: "INR",
	})

	require.NoError(t, err)
	assert.Len(t, fl.posted[0].Entries, 2)
}

// manual_adjustment below threshold requires no override.
func TestDispatch_ManualAdjustment_BelowThreshold_NoOverrideNeeded(t *testing.T) {
	fl := newFakeLedger()
	uc := New(fl, map[string]money.MinorUnits{"t1": 100000})
	uc.Now = fixedClock(time.Unix(0, 0))

	_, err := uc.Dispatch(context.Background(), Event{
		Type: EventManualAdjustment, Tenant: "t1", SourceRef: "adj_1",
		Amount: 500, Currency: "INR", DebitAccount: "platform_revenue", CreditAccount: "merchant_payable",
	})

	require.NoError(t, err)
}

// manual_adjustment at/above threshold requires override + finance_admin +
// sufficient justification, even though the fake PeriodGate is never
// consulted here (the choreographer enforces this independently of C6).
func TestDispatch_ManualAdjustment_AboveThreshold_RequiresOverride(t *testing.T) {
	fl := newFakeLedger()
	uc := New(fl, map[string]money.MinorUnits{"t1": 1000})
	uc.Now = fixedClock(time.Unix(0, 0))

	base := Event{
		Type: EventManualAdjustment, Tenant: "t1", SourceRef: "adj_2",
		Amount: 5000, Currency: "INR", DebitAccount: "platform_revenue", CreditAccount: "merchant_payable",
	}

	_, err := uc.Dispatch(context.Background(), base)
	require.ErrorIs(t, err, cn.ErrAdminOverrideRequired)

	withOverride := base
	withOverride.Override = true
	withOverride.UserRole = string(principal.RoleOpsAdmin)
	withOverride.Justification = "sufficient length"

	_, err = uc.Dispatch(context.Background(), withOverride)
	require.ErrorIs(t, err, cn.ErrInsufficientOverrideRole)

	withOverride.UserRole = string(principal.RoleFinanceAdmin)
	withOverride.Justification = "short"

	_, err = uc.Dispatch(context.Background(), withOverride)
	require.ErrorIs(t, err, cn.ErrJustificationTooShort)

	withOverride.Justification = "sufficient length"

	_, err = uc.Dispatch(context.Background(), withOverride)
	require.NoError(t, err)
}

func TestDispatch_UnknownEventType_Rejected(t *testing.T) {
	fl := newFakeLedger()
	uc := New(fl, nil)

	_, err := uc.Dispatch(context.Background(), Event{Type: EventType("unknown"), Tenant: "t1", SourceRef: "x"})
	require.ErrorIs(t, err, cn.ErrUnknownEventType)
}

func TestDispatch_LedgerPostingFails_PropagatesError(t *testing.T) {
	fl := newFakeLedger()
	fl.failNext = cn.ErrPeriodClosed
	uc := New(fl, nil)

	_, err := uc.Dispatch(context.Background(), Event{
		Type: EventPaymentSuccess, Tenant: "t1", SourceRef: "pay_3", Amount: 100, Currency: "INR",
	})

	require.ErrorIs(t, err, cn.ErrPeriodClosed)
}
