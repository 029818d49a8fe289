package reconciliation

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository is C10's storage abstraction. Batches and their items are
// semi-structured, append-heavy records — no update in place once a batch
// is persisted (spec.md §4.10, "the batch and its items are persisted").
type Repository interface {
	SaveBatch(ctx context.Context, b *Batch) error
	FindBatch(ctx context.Context, tenant string, id uuid.UUID) (*Batch, error)
	FindBatchesInWindow(ctx context.Context, tenant, gateway string, from, to time.Time) ([]Batch, error)
	HasCompletedBatch(ctx context.Context, tenant string, periodFrom, periodTo time.Time) (bool, error)
}
