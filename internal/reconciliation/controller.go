package reconciliation

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// UseCase is C10's public surface.
type UseCase struct {
	Repo Repository
	now  func() time.Time
}

// New builds a UseCase backed by repo.
func New(repo Repository) *UseCase {
	return &UseCase{Repo: repo, now: time.Now}
}

// RunRequest targets a reconciliation window, either a specific settlement
// or a (tenant, gateway, period_from, period_to) range (spec.md §4.10,
// "can target a reconciliation for a specific settlement id or a date
// range").
type RunRequest struct {
	Tenant       string
	Gateway      string
	PeriodFrom   time.Time
	PeriodTo     time.Time
	SettlementID *uuid.UUID
	Internal     []InternalRecord
	External     []ExternalRecord
}

// Run performs the gateway three-way match: internal ledger view vs a
// gateway settlement report (spec.md §4.10).
func (uc *UseCase) Run(ctx context.Context, req RunRequest) (Batch, error) {
	return uc.run(ctx, req, SourceGatewayReport)
}

// RunBankStatement performs the analogous match against a bank statement
// line feed, closing the loop escrow_asset -> real cash (supplements
// spec.md §4.10).
func (uc *UseCase) RunBankStatement(ctx context.Context, req RunRequest) (Batch, error) {
	return uc.run(ctx, req, SourceBankStatement)
}

func (uc *UseCase) run(ctx context.Context, req RunRequest, source Source) (Batch, error) {
	items, summary := match(req.Internal, req.External)

	batch := Batch{
		ID:           uuid.New(),
		Tenant:       req.Tenant,
		Gateway:      req.Gateway,
		Source:       source,
		PeriodFrom:   req.PeriodFrom,
		PeriodTo:     req.PeriodTo,
		SettlementID: req.SettlementID,
		Items:        items,
		Summary:      summary,
		RunAt:        uc.now(),
	}

	if err := uc.Repo.SaveBatch(ctx, &batch); err != nil {
		return Batch{}, err
	}

	return batch, nil
}
