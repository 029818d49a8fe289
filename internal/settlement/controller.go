package settlement

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/atlaspay/aggregator-core/pkg/principal"

	cn "github.com/atlaspay/aggregator-core/pkg/constant"
)

const defaultMaxRetries = 3

// Controller owns the Settlement state machine (spec.md §4.9).
type Controller struct {
	repo Repository
	now  func() time.Time
}

// New builds a Controller backed by repo.
func New(repo Repository) *Controller {
	return &Controller{repo: repo, now: time.Now}
}

func (c *Controller) transition(ctx context.Context, s *Settlement, to State, actor string, metadata map[string]string) error {
	from := s.State
	if !canTransition(from, to) {
		return cn.ErrSettlementStateInvalid
	}

	s.State = to
	s.UpdatedAt = c.now()

	return c.repo.WithTx(ctx, func(ctx context.Context) error {
		if err := c.repo.Save(ctx, s); err != nil {
			return err
		}

		return c.repo.AppendTransition(ctx, Transition{
			ID:           uuid.New(),
			SettlementID: s.ID,
			From:         from,
			To:           to,
			At:           s.UpdatedAt,
			Actor:        actor,
			Metadata:     metadata,
		})
	})
}

// Create starts a new settlement at CREATED. The settlement event_type
// posting happens exactly once here, upstream in the event choreographer
// (C8) — this method only records the bank-facing state.
func (c *Controller) Create(ctx context.Context, req CreateRequest) (*Settlement, error) {
	maxRetries := req.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	now := c.now()

	s := &Settlement{
		ID:          uuid.New(),
		Tenant:      req.Tenant,
		MerchantRef: req.MerchantRef,
		Amount:      req.Amount,
		Currency:    req.Currency,
		State:       StateCreated,
		MaxRetries:  maxRetries,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := c.repo.Save(ctx, s); err != nil {
		return nil, err
	}

	return s, nil
}

// ReserveFunds moves CREATED -> FUNDS_RESERVED, or RETRIED -> FUNDS_RESERVED
// on a retry attempt.
func (c *Controller) ReserveFunds(ctx context.Context, tenant string, id uuid.UUID, actor string) (*Settlement, error) {
	s, err := c.repo.FindByID(ctx, tenant, id)
	if err != nil {
		return nil, err
	}

	if s == nil {
		return nil, cn.ErrSettlementNotFound
	}

	if err := c.transition(ctx, s, StateFundsReserved, actor, nil); err != nil {
		return nil, err
	}

	return s, nil
}

// SendToBank dispatches one FUNDS_RESERVED settlement and records batchRef
// on it; settlements dispatched with the same batchRef share a batch
// (spec.md §6, supplemented §4.9 "Settlement batch dispatch"). Requires
// finance-admin.
func (c *Controller) SendToBank(ctx context.Context, p principal.Principal, id uuid.UUID, batchRef string) (*Settlement, error) {
	if !p.Role.IsFinanceAdmin() {
		return nil, cn.ErrSettlementRoleInsufficient
	}

	s, err := c.repo.FindByID(ctx, p.Tenant, id)
	if err != nil {
		return nil, err
	}

	if s == nil {
		return nil, cn.ErrSettlementNotFound
	}

	s.BatchRef = batchRef

	if err := c.transition(ctx, s, StateSentToBank, p.ActorID, map[string]string{"batch_ref": batchRef}); err != nil {
		return nil, err
	}

	return s, nil
}

// ConfirmByBank moves SENT_TO_BANK -> BANK_CONFIRMED. utr must be
// non-empty and unique per tenant (I10, spec.md §4.9).
func (c *Controller) ConfirmByBank(ctx context.Context, tenant string, id uuid.UUID, utr, bankRef, actor string) (*Settlement, error) {
	if utr == "" {
		return nil, cn.ErrSettlementUTRRequired
	}

	existing, err := c.repo.FindByUTR(ctx, tenant, utr)
	if err != nil {
		return nil, err
	}

	if existing != nil && existing.ID != id {
		return nil, cn.ErrDuplicateUTR
	}

	s, err := c.repo.FindByID(ctx, tenant, id)
	if err != nil {
		return nil, err
	}

	if s == nil {
		return nil, cn.ErrSettlementNotFound
	}

	s.UTR = utr
	s.BankRef = bankRef

	if err := c.transition(ctx, s, StateBankConfirmed, actor, map[string]string{"utr": utr, "bank_ref": bankRef}); err != nil {
		return nil, err
	}

	return s, nil
}

// MarkSettled moves BANK_CONFIRMED -> SETTLED, the terminal state. Any
// further transition attempt on a SETTLED settlement is rejected
// (spec.md §4.9, "SETTLED transitions are rejected... terminal").
func (c *Controller) MarkSettled(ctx context.Context, tenant string, id uuid.UUID, actor string) (*Settlement, error) {
	s, err := c.repo.FindByID(ctx, tenant, id)
	if err != nil {
		return nil, err
	}

	if s == nil {
		return nil, cn.ErrSettlementNotFound
	}

	if err := c.transition(ctx, s, StateSettled, actor, nil); err != nil {
		return nil, err
	}

	return s, nil
}

// MarkFailed moves CREATED, FUNDS_RESERVED, SENT_TO_BANK or BANK_CONFIRMED
// to FAILED.
func (c *Controller) MarkFailed(ctx context.Context, tenant string, id uuid.UUID, reason, actor string) (*Settlement, error) {
	s, err := c.repo.FindByID(ctx, tenant, id)
	if err != nil {
		return nil, err
	}

	if s == nil {
		return nil, cn.ErrSettlementNotFound
	}

	if err := c.transition(ctx, s, StateFailed, actor, map[string]string{"reason": reason}); err != nil {
		return nil, err
	}

	return s, nil
}

// Retry moves FAILED -> RETRIED -> FUNDS_RESERVED, incrementing retry_count
// and scheduling NextRetryAt with exponential backoff capped at ceiling
// (spec.md §4.9: "30·2^retry_count minutes, capped at a sensible
// ceiling"). Rejects once retry_count reaches MaxRetries.
func (c *Controller) Retry(ctx context.Context, tenant string, id uuid.UUID, actor string, ceiling time.Duration) (*Settlement, error) {
	if ceiling <= 0 {
		ceiling = defaultBackoffCeiling
	}

	s, err := c.repo.FindByID(ctx, tenant, id)
	if err != nil {
		return nil, err
	}

	if s == nil {
		return nil, cn.ErrSettlementNotFound
	}

	if s.RetryCount >= s.MaxRetries {
		return nil, cn.ErrSettlementRetryExhausted
	}

	if err := c.transition(ctx, s, StateRetried, actor, nil); err != nil {
		return nil, err
	}

	s.RetryCount++

	backoff := time.Duration(1<<uint(s.RetryCount)) * defaultBackoffUnit
	if backoff > ceiling {
		backoff = ceiling
	}

	next := c.now().Add(backoff)
	s.NextRetryAt = &next

	if err := c.repo.Save(ctx, s); err != nil {
		return nil, err
	}

	if err := c.transition(ctx, s, StateFundsReserved, actor, map[string]string{"retry_count": strconv.Itoa(s.RetryCount)}); err != nil {
		return nil, err
	}

	return s, nil
}
