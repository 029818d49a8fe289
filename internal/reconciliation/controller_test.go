package reconciliation

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	batches []Batch
}

func (f *fakeRepo) SaveBatch(ctx context.Context, b *Batch) error {
	f.batches = append(f.batches, *b)
	return nil
}

func (f *fakeRepo) FindBatch(ctx context.Context, tenant string, id uuid.UUID) (*Batch, error) {
	for i := range f.batches {
		if f.batches[i].ID == id && f.batches[i].Tenant == tenant {
			return &f.batches[i], nil
		}
	}

	return nil, nil
}

func (f *fakeRepo) FindBatchesInWindow(ctx context.Context, tenant, gateway string, from, to time.Time) ([]Batch, error) {
	return f.batches, nil
}

func (f *fakeRepo) HasCompletedBatch(ctx context.Context, tenant string, from, to time.Time) (bool, error) {
	return len(f.batches) > 0, nil
}

// P9: reconciliation of a closed period with no anomalies yields
// {missing_internal:0, missing_external:0, amount_mismatch:0}.
func TestRun_NoAnomalies_YieldsCleanSummary(t *testing.T) {
	repo := &fakeRepo{}
	uc := New(repo)

	internal := []InternalRecord{{Ref: "A", Amount: 1000}, {Ref: "B", Amount: 2000}}
	external := []ExternalRecord{{Ref: "A", Amount: 1000}, {Ref: "B", Amount: 2000}}

	batch, err := uc.Run(context.Background(), RunRequest{Tenant: "t1", Gateway: "razorpay", Internal: internal, External: external})

	require.NoError(t, err)
	assert.Equal(t, 2, batch.Summary.MatchedCount)
	assert.Equal(t, 0, batch.Summary.MissingInternal)
	assert.Equal(t, 0, batch.Summary.MissingExternal)
	assert.Equal(t, 0, batch.Summary.AmountMismatch)
	assert.Equal(t, BatchStatusClean, batch.Summary.Status)
}

// S7: internal {A:1000, B:2000, C:1500, D:800}; external {A:1000, B:2000,
// C:1500 (mismatched by 50), E:500}. Expected: matched:2, missing_external:1
// (D), missing_internal:1 (E), amount_mismatch:1 (C).
func TestRun_FindsGap_MatchesScenario(t *testing.T) {
	repo := &fakeRepo{}
	uc := New(repo)

	internal := []InternalRecord{
		{Ref: "A", Amount: 1000},
		{Ref: "B", Amount: 2000},
		{Ref: "C", Amount: 1500},
		{Ref: "D", Amount: 800},
	}
	external := []ExternalRecord{
		{Ref: "A", Amount: 1000},
		{Ref: "B", Amount: 2000},
		{Ref: "C", Amount: 1550},
		{Ref: "E", Amount: 500},
	}

	batch, err := uc.Run(context.Background(), RunRequest{Tenant: "t1", Gateway: "razorpay", Internal: internal, External: external})

	require.NoError(t, err)
	assert.Equal(t, 2, batch.Summary.MatchedCount)
	assert.Equal(t, 1, batch.Summary.MissingExternal)
	assert.Equal(t, 1, batch.Summary.MissingInternal)
	assert.Equal(t, 1, batch.Summary.AmountMismatch)
	assert.Equal(t, int64(50), int64(batch.Summary.DifferenceAmount))
	assert.Equal(t, BatchStatusAnomalies, batch.Summary.Status)

	var sawD, sawE, sawC bool
	for _, item := range batch.Items {
		switch item.Ref {
		case "D":
			sawD = true
			assert.Equal(t, CategoryMissingExternal, item.Category)
		case "E":
			sawE = true
			assert.Equal(t, CategoryMissingInternal, item.Category)
		case "C":
			sawC = true
			assert.Equal(t, CategoryAmountMismatch, item.Category)
		}
	}
	assert.True(t, sawD && sawE && sawC)
}

func TestRunBankStatement_UsesBankStatementSource(t *testing.T) {
	repo := &fakeRepo{}
	uc := New(repo)

	batch, err := uc.RunBankStatement(context.Background(), RunRequest{
		Tenant: "t1", Gateway: "razorpay",
		Internal: []InternalRecord{{Ref: "A", Amount: 1000}},
		External: []ExternalRecord{{Ref: "A", Amount: 1000}},
	})

	require.NoError(t, err)
	assert.Equal(t, SourceBankStatement, batch.Source)
	require.Len(t, repo.batches, 1)
}

func TestRun_PersistsBatchForLaterLookup(t *testing.T) {
	repo := &fakeRepo{}
	uc := New(repo)

	batch, err := uc.Run(context.Background(), RunRequest{
		Tenant: "t1", Gateway: "razorpay",
		Internal: []InternalRecord{{Ref: "A", Amount: 1000}},
		External: []ExternalRecord{{Ref: "A", Amount: 1000}},
	})
	require.NoError(t, err)

	found, err := repo.FindBatch(context.Background(), "t1", batch.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, batch.ID, found.ID)
}
