package settlement

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlaspay/aggregator-core/pkg/principal"

	cn "github.com/atlaspay/aggregator-core/pkg/constant"
)

type fakeRepo struct {
	byID        map[uuid.UUID]*Settlement
	byUTR       map[string]uuid.UUID
	transitions []Transition
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{byID: make(map[uuid.UUID]*Settlement), byUTR: make(map[string]uuid.UUID)}
}

func (f *fakeRepo) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (f *fakeRepo) Save(ctx context.Context, s *Settlement) error {
	f.byID[s.ID] = s
	if s.UTR != "" {
		f.byUTR[s.UTR] = s.ID
	}

	return nil
}

func (f *fakeRepo) FindByID(ctx context.Context, tenant string, id uuid.UUID) (*Settlement, error) {
	s, ok := f.byID[id]
	if !ok || s.Tenant != tenant {
		return nil, nil
	}

	return s, nil
}

func (f *fakeRepo) FindByUTR(ctx context.Context, tenant, utr string) (*Settlement, error) {
	id, ok := f.byUTR[utr]
	if !ok {
		return nil, nil
	}

	return f.FindByID(ctx, tenant, id)
}

func (f *fakeRepo) AppendTransition(ctx context.Context, t Transition) error {
	f.transitions = append(f.transitions, t)
	return nil
}

func financeAdmin(tenant string) principal.Principal {
	return principal.Principal{ActorID: "fa1", Role: principal.RoleFinanceAdmin, Tenant: tenant}
}

func createAndReserve(t *testing.T, c *Controller, repo *fakeRepo) *Settlement {
	t.Helper()

	s, err := c.Create(context.Background(), CreateRequest{Tenant: "t1", MerchantRef: "m1", Amount: 1000, Currency: "INR", MaxRetries: 3})
	require.NoError(t, err)

	s, err = c.ReserveFunds(context.Background(), "t1", s.ID, "ops")
	require.NoError(t, err)

	return s
}

func TestCreate_StartsAtCreated(t *testing.T) {
	repo := newFakeRepo()
	c := New(repo)

	s, err := c.Create(context.Background(), CreateRequest{Tenant: "t1", MerchantRef: "m1", Amount: 500, Currency: "INR"})

	require.NoError(t, err)
	assert.Equal(t, StateCreated, s.State)
	assert.Equal(t, defaultMaxRetries, s.MaxRetries)
}

func TestHappyPath_CreatedToSettled(t *testing.T) {
	repo := newFakeRepo()
	c := New(repo)

	s := createAndReserve(t, c, repo)

	s, err := c.SendToBank(context.Background(), financeAdmin("t1"), s.ID, "batch_1")
	require.NoError(t, err)
	assert.Equal(t, StateSentToBank, s.State)
	assert.Equal(t, "batch_1", s.BatchRef)

	s, err = c.ConfirmByBank(context.Background(), "t1", s.ID, "UTR123", "bankref1", "ops")
	require.NoError(t, err)
	assert.Equal(t, StateBankConfirmed, s.State)

	s, err = c.MarkSettled(context.Background(), "t1", s.ID, "ops")
	require.NoError(t, err)
	assert.Equal(t, StateSettled, s.State)

	// SETTLED is terminal.
	_, err = c.MarkSettled(context.Background(), "t1", s.ID, "ops")
	require.ErrorIs(t, err, cn.ErrSettlementStateInvalid)
}

func TestSendToBank_RequiresFinanceAdmin(t *testing.T) {
	repo := newFakeRepo()
	c := New(repo)

	s := createAndReserve(t, c, repo)

	_, err := c.SendToBank(context.Background(), principal.Principal{ActorID: "a", Role: principal.RoleOpsAdmin, Tenant: "t1"}, s.ID, "batch_1")
	require.ErrorIs(t, err, cn.ErrSettlementRoleInsufficient)
}

func TestConfirmByBank_EmptyUTR_Rejected(t *testing.T) {
	repo := newFakeRepo()
	c := New(repo)

	s := createAndReserve(t, c, repo)
	_, err := c.SendToBank(context.Background(), financeAdmin("t1"), s.ID, "batch_1")
	require.NoError(t, err)

	_, err = c.ConfirmByBank(context.Background(), "t1", s.ID, "", "bankref1", "ops")
	require.ErrorIs(t, err, cn.ErrSettlementUTRRequired)
}

// I10: UTR uniqueness per tenant.
func TestConfirmByBank_DuplicateUTR_Rejected(t *testing.T) {
	repo := newFakeRepo()
	c := New(repo)

	first := createAndReserve(t, c, repo)
	_, err := c.SendToBank(context.Background(), financeAdmin("t1"), first.ID, "batch_1")
	require.NoError(t, err)
	_, err = c.ConfirmByBank(context.Background(), "t1", first.ID, "UTR-DUP", "bankref1", "ops")
	require.NoError(t, err)

	second, err := c.Create(context.Background(), CreateRequest{Tenant: "t1", MerchantRef: "m2", Amount: 200, Currency: "INR"})
	require.NoError(t, err)
	second, err = c.ReserveFunds(context.Background(), "t1", second.ID, "ops")
	require.NoError(t, err)
	_, err = c.SendToBank(context.Background(), financeAdmin("t1"), second.ID, "batch_2")
	require.NoError(t, err)

	_, err = c.ConfirmByBank(context.Background(), "t1", second.ID, "UTR-DUP", "bankref2", "ops")
	require.ErrorIs(t, err, cn.ErrDuplicateUTR)
}

// S6: FAILED -> RETRIED -> FUNDS_RESERVED, retry_count increments, two new
// state_transitions entries are appended.
func TestRetry_FailedToFundsReserved_IncrementsRetryCount(t *testing.T) {
	repo := newFakeRepo()
	c := New(repo)

	s := createAndReserve(t, c, repo)
	s, err := c.MarkFailed(context.Background(), "t1", s.ID, "bank rejected", "ops")
	require.NoError(t, err)
	assert.Equal(t, StateFailed, s.State)

	before := len(repo.transitions)

	s, err = c.Retry(context.Background(), "t1", s.ID, "ops", 0)
	require.NoError(t, err)
	assert.Equal(t, StateFundsReserved, s.State)
	assert.Equal(t, 1, s.RetryCount)
	assert.Len(t, repo.transitions, before+2, "FAILED->RETRIED and RETRIED->FUNDS_RESERVED must both be logged")
	require.NotNil(t, s.NextRetryAt)
}

// B3: the 4th retry attempt with max_retries=3 raises
// SettlementRetryExhaustedError.
func TestRetry_ExhaustsMaxRetries(t *testing.T) {
	repo := newFakeRepo()
	c := New(repo)

	s, err := c.Create(context.Background(), CreateRequest{Tenant: "t1", MerchantRef: "m1", Amount: 1000, Currency: "INR", MaxRetries: 3})
	require.NoError(t, err)
	s, err = c.ReserveFunds(context.Background(), "t1", s.ID, "ops")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		s, err = c.MarkFailed(context.Background(), "t1", s.ID, "retry loop", "ops")
		require.NoError(t, err)
		s, err = c.Retry(context.Background(), "t1", s.ID, "ops", 0)
		require.NoError(t, err, "retry %d should succeed", i+1)
	}

	s, err = c.MarkFailed(context.Background(), "t1", s.ID, "final failure", "ops")
	require.NoError(t, err)

	_, err = c.Retry(context.Background(), "t1", s.ID, "ops", 0)
	require.ErrorIs(t, err, cn.ErrSettlementRetryExhausted)
}

func TestRetry_BackoffCappedAtCeiling(t *testing.T) {
	repo := newFakeRepo()
	c := New(repo)

	s, err := c.Create(context.Background(), CreateRequest{Tenant: "t1", MerchantRef: "m1", Amount: 1000, Currency: "INR", MaxRetries: 10})
	require.NoError(t, err)
	s, err = c.ReserveFunds(context.Background(), "t1", s.ID, "ops")
	require.NoError(t, err)

	ceiling := time.Hour

	for i := 0; i < 5; i++ {
		s, err = c.MarkFailed(context.Background(), "t1", s.ID, "loop", "ops")
		require.NoError(t, err)
		s, err = c.Retry(context.Background(), "t1", s.ID, "ops", ceiling)
		require.NoError(t, err)
	}

	require.NotNil(t, s.NextRetryAt)
	assert.LessOrEqual(t, s.NextRetryAt.Sub(time.Now()), ceiling+time.Minute)
}

func TestInvalidTransition_Rejected(t *testing.T) {
	repo := newFakeRepo()
	c := New(repo)

	s, err := c.Create(context.Background(), CreateRequest{Tenant: "t1", MerchantRef: "m1", Amount: 1000, Currency: "INR"})
	require.NoError(t, err)

	// CREATED -> SENT_TO_BANK is not a permitted edge.
	_, err = c.SendToBank(context.Background(), financeAdmin("t1"), s.ID, "batch_1")
	require.ErrorIs(t, err, cn.ErrSettlementStateInvalid)
}
