package settlement

import (
	"context"

	"github.com/google/uuid"
)

// Repository is C9's storage abstraction. Transitions serialize on
// settlement.id (spec.md §5) — implementations are expected to take a row
// lock (or equivalent) for the duration of FindByID..Save pairs invoked
// from the same state-machine call. WithTx scopes the Save/AppendTransition
// pair of a single transition inside one storage transaction, the same
// explicit-transaction-boundary convention C6 uses (internal/ledger.
// Repository.WithTx) instead of an ambient connection.
type Repository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error

	Save(ctx context.Context, s *Settlement) error
	FindByID(ctx context.Context, tenant string, id uuid.UUID) (*Settlement, error)
	FindByUTR(ctx context.Context, tenant, utr string) (*Settlement, error)
	AppendTransition(ctx context.Context, t Transition) error
}
