package choreographer

import (
	"context"
	"time"

	"github.com/atlaspay/aggregator-core/internal/ledger"
	"github.com/atlaspay/aggregator-core/internal/platform/mlog"
	"github.com/atlaspay/aggregator-core/internal/platform/mtrace"
	"github.com/atlaspay/aggregator-core/pkg/aggerrors"
	"github.com/atlaspay/aggregator-core/pkg/money"
	"github.com/atlaspay/aggregator-core/pkg/principal"

	cn "github.com/atlaspay/aggregator-core/pkg/constant"
)

// Ledger is the narrow C6 surface the choreographer depends on.
type Ledger interface {
	PostTransaction(ctx context.Context, req ledger.PostRequest) (ledger.PostResult, error)
}

// Clock lets tests pin TransactionDate without a real wall clock.
type Clock func() time.Time

// UseCase is C8's public surface: the only caller permitted to produce
// ledger entries for a given business event (spec.md §4.8, "no ad-hoc
// postings from elsewhere in the system").
type UseCase struct {
	Ledger     Ledger
	Accounts   AccountMap
	Now        Clock
	// AdjustmentThreshold is the tenant-scoped minimum manual_adjustment
	// amount that requires override even on an OPEN period (resolves
	// spec.md §9's Open Question on manual-adjustment authorization).
	AdjustmentThreshold map[string]money.MinorUnits
}

// New builds a choreographer UseCase with the default chart of accounts.
func New(ledgerUC Ledger, thresholds map[string]money.MinorUnits) *UseCase {
	return &UseCase{
		Ledger:              ledgerUC,
		Accounts:            DefaultAccountMap(),
		Now:                 time.Now,
		AdjustmentThreshold: thresholds,
	}
}

// Dispatch routes an Event to its handler and posts the resulting balanced
// request through the ledger. Each event type owns exactly one handler
// (spec.md §4.8).
func (uc *UseCase) Dispatch(ctx context.Context, evt Event) (ledger.PostResult, error) {
	logger := mlog.FromContext(ctx)
	ctx, span := mtrace.Start(ctx, "choreographer.dispatch")
	defer span.End()

	now := uc.Now()

	var req ledger.PostRequest

	switch evt.Type {
	case EventPaymentSuccess:
		req = paymentSuccessRequest(evt, uc.Accounts, now)
	case EventRefundCompleted:
		req = refundCompletedRequest(evt, uc.Accounts, now)
	case EventSettlement:
		req = settlementRequest(evt, uc.Accounts, now)
	case EventChargebackDebit:
		req = chargebackDebitRequest(evt, uc.Accounts, now)
	case EventManualAdjustment:
		if err := uc.checkAdjustmentThreshold(evt); err != nil {
			mtrace.HandleSpanError(&span, "manual adjustment rejected", err)
			return ledger.PostResult{}, aggerrors.ValidateBusinessError(err, "ManualAdjustment")
		}

		req = manualAdjustmentRequest(evt, now)
	default:
		logger.Errorf("choreographer: unknown event type %q for source_ref %s", evt.Type, evt.SourceRef)
		return ledger.PostResult{}, aggerrors.ValidateBusinessError(cn.ErrUnknownEventType, "Event")
	}

	result, err := uc.Ledger.PostTransaction(ctx, req)
	if err != nil {
		logger.Errorf("choreographer: post_transaction failed for event %s/%s: %v", evt.Type, evt.SourceRef, err)
		mtrace.HandleSpanError(&span, "dispatch failed", err)

		return ledger.PostResult{}, err
	}

	return result, nil
}

// checkAdjustmentThreshold enforces the threshold rule that overrides the
// period gate's own OPEN-period leniency for large manual adjustments.
func (uc *UseCase) checkAdjustmentThreshold(evt Event) error {
	threshold, ok := uc.AdjustmentThreshold[evt.Tenant]
	if !ok || evt.Amount < threshold {
		return nil
	}

	if !evt.Override {
		return cn.ErrAdminOverrideRequired
	}

	if principal.Role(evt.UserRole) != principal.RoleFinanceAdmin {
		return cn.ErrInsufficientOverrideRole
	}

	if len(evt.Justification) < minAdjustmentJustificationLen {
		return cn.ErrJustificationTooShort
	}

	return nil
}

const minAdjustmentJustificationLen = 10
