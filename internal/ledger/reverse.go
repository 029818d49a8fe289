package ledger

import (
	"context"

	"github.com/google/uuid"

	"github.com/atlaspay/aggregator-core/internal/platform/mlog"
	"github.com/atlaspay/aggregator-core/internal/platform/mtrace"

	cn "github.com/atlaspay/aggregator-core/pkg/constant"
)

func flip(side Side) Side {
	if side == SideDebit {
		return SideCredit
	}

	return SideDebit
}

// ReverseTransaction creates a new transaction whose entries mirror the
// original with sides flipped, marks the original as reversed, and links
// both headers bidirectionally (spec.md §4.6). Period/lock gates apply to
// the reversal's transaction_date exactly as they would to any posting.
func (uc *UseCase) ReverseTransaction(ctx context.Context, tenant string, originalID uuid.UUID, reason, actor string) (PostResult, error) {
	logger := mlog.FromContext(ctx)
	ctx, span := mtrace.Start(ctx, "ledger.reverse_transaction")
	defer span.End()

	var result PostResult

	err := uc.Repo.WithTx(ctx, func(ctx context.Context) error {
		original, originalEntries, err := uc.Repo.FindTransaction(ctx, tenant, originalID)
		if err != nil {
			return err
		}

		if original == nil {
			return cn.ErrTransactionNotFound
		}

		if original.Status != TransactionStatusPosted {
			return cn.ErrTransactionAlreadyPosted
		}

		reversalEntries := make([]EntryInput, 0, len(originalEntries))
		for _, e := range originalEntries {
			reversalEntries = append(reversalEntries, EntryInput{
				AccountCode: e.AccountCode,
				Side:        flip(e.Side),
				Amount:      e.Amount,
				Description: "reversal: " + reason,
			})
		}

		req := PostRequest{
			Tenant:          tenant,
			TransactionRef:  original.TransactionRef + "-reversal",
			IdempotencyKey:  "reversal:" + original.ID.String(),
			EventType:       "reversal",
			SourceRef:       original.SourceRef,
			Amount:          original.Amount,
			Currency:        original.Currency,
			Description:     reason,
			Entries:         reversalEntries,
			TransactionDate: original.TransactionDate,
			CreatedBy:       actor,
		}

		posted, postErr := uc.postWithinTx(ctx, req)
		if postErr != nil {
			return postErr
		}

		if err := uc.Repo.UpdateTransactionStatus(ctx, tenant, original.ID, TransactionStatusReversed); err != nil {
			return err
		}

		if err := uc.Repo.LinkReversal(ctx, tenant, original.ID, posted.Transaction.ID); err != nil {
			return err
		}

		result = posted

		return nil
	})

	if err != nil {
		logger.Errorf("reverse_transaction failed for %s: %v", originalID, err)
		mtrace.HandleSpanError(&span, "reverse_transaction failed", err)

		return PostResult{}, err
	}

	return result, nil
}
