package ledger

import (
	"context"

	"github.com/google/uuid"

	cn "github.com/atlaspay/aggregator-core/pkg/constant"
)

// GetAccountBalance returns the derived projection for (tenant,
// accountCode) — never source of truth, a pure function of entries
// (spec.md §3, §4.6).
func (uc *UseCase) GetAccountBalance(ctx context.Context, tenant, accountCode string) (AccountBalance, error) {
	return uc.Repo.AccountBalance(ctx, tenant, accountCode)
}

// GetTransaction returns a transaction with its entries expanded
// (spec.md §4.6).
func (uc *UseCase) GetTransaction(ctx context.Context, tenant string, id uuid.UUID) (*Transaction, []Entry, error) {
	tx, entries, err := uc.Repo.FindTransaction(ctx, tenant, id)
	if err != nil {
		return nil, nil, err
	}

	if tx == nil {
		return nil, nil, cn.ErrTransactionNotFound
	}

	return tx, entries, nil
}
