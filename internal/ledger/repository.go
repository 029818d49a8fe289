package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository is C6's storage abstraction. WithTx scopes a single storage
// transaction explicitly around a unit of work, replacing an ambient
// database connection (Design Notes, spec.md §9): every PostTransaction
// call runs its steps inside exactly one WithTx invocation, so a failure
// at any step leaves no visible partial state.
type Repository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error

	FindTransactionByIdempotencyKey(ctx context.Context, tenant, key string) (*Transaction, []Entry, error)
	FindAccountsByCode(ctx context.Context, tenant string, codes []string) (map[string]Account, error)
	InsertTransaction(ctx context.Context, tx *Transaction) error
	InsertEntries(ctx context.Context, entries []Entry) error
	UpdateTransactionStatus(ctx context.Context, tenant string, id uuid.UUID, status TransactionStatus) error
	FindTransaction(ctx context.Context, tenant string, id uuid.UUID) (*Transaction, []Entry, error)
	AccountBalance(ctx context.Context, tenant, accountCode string) (AccountBalance, error)
	LinkReversal(ctx context.Context, tenant string, originalID, reversalID uuid.UUID) error
	AppendOverrideAudit(ctx context.Context, entry OverrideAuditEntry) error
	AppendAuditLog(ctx context.Context, entry AuditLogEntry) error
}

// PeriodGate is the subset of C7's Controller that C6 depends on: the
// combined period/lock verdict checkPeriodForPosting returns (spec.md
// §4.7). Defined here so ledger depends on a narrow interface rather than
// period's full Controller surface.
type PeriodGate interface {
	CheckPeriodForPosting(ctx context.Context, tenant string, date time.Time) (PostingCheck, error)
}

// PostingCheck mirrors period.PostingCheck's shape without importing the
// period package's full vocabulary into this file's exported surface;
// PeriodAdapter (period_adapter.go) converts period.PostingCheck to this type.
type PostingCheck struct {
	PeriodID         uuid.UUID
	PeriodStatus     string
	PostingAllowed   bool
	OverrideRequired bool
	Locked           bool
	LockReason       string
	ErrorMessage     string
}
