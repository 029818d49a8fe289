package period

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository is C7's storage abstraction. Implementations (Postgres in
// production, an in-memory fake in tests) must make SavePeriod/SaveLock
// durable before returning, since the Controller relies on them to
// enforce I6/I7/I8 without re-checking after the call returns.
type Repository interface {
	FindPeriod(ctx context.Context, tenant string, typ Type, at time.Time) (*AccountingPeriod, error)
	FindPeriodByID(ctx context.Context, tenant string, id uuid.UUID) (*AccountingPeriod, error)
	SavePeriod(ctx context.Context, p *AccountingPeriod) error

	FindOverlappingLocks(ctx context.Context, tenant string, lockType LockType, start, end time.Time) ([]Lock, error)
	ActiveLocksCovering(ctx context.Context, tenant string, at time.Time) ([]Lock, error)
	SaveLock(ctx context.Context, l *Lock) error
	FindLock(ctx context.Context, tenant string, id uuid.UUID) (*Lock, error)

	HasCompletedReconciliation(ctx context.Context, tenant string, periodID uuid.UUID) (bool, error)
}
