package in

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/atlaspay/aggregator-core/internal/platform/mhttp"
	"github.com/atlaspay/aggregator-core/internal/reconciliation"
	"github.com/atlaspay/aggregator-core/pkg/money"
)

// ReconciliationHandler exposes C10's UseCase.
type ReconciliationHandler struct {
	UseCase *reconciliation.UseCase
}

// RecordInput is one line of either side of a reconciliation match.
type RecordInput struct {
	Ref    string `json:"ref" validate:"required"`
	Amount int64  `json:"amount" validate:"required"`
	Date   string `json:"date" validate:"required"`
}

// RunInput is the request body for POST /v1/reconciliation/runs.
type RunInput struct {
	Gateway      string        `json:"gateway" validate:"required"`
	PeriodFrom   time.Time     `json:"period_from" validate:"required"`
	PeriodTo     time.Time     `json:"period_to" validate:"required"`
	SettlementID *uuid.UUID    `json:"settlement_id"`
	Source       string        `json:"source" validate:"required,oneof=gateway_report bank_statement"`
	Internal     []RecordInput `json:"internal"`
	External     []RecordInput `json:"external"`
}

func toRecordsInternal(in []RecordInput) ([]reconciliation.InternalRecord, error) {
	out := make([]reconciliation.InternalRecord, 0, len(in))

	for _, r := range in {
		date, err := time.Parse(time.RFC3339, r.Date)
		if err != nil {
			return nil, fiber.NewError(fiber.StatusBadRequest, "invalid record date, expected RFC3339")
		}

		out = append(out, reconciliation.InternalRecord{Ref: r.Ref, Amount: money.MinorUnits(r.Amount), Date: date})
	}

	return out, nil
}

func toRecordsExternal(in []RecordInput) ([]reconciliation.ExternalRecord, error) {
	out := make([]reconciliation.ExternalRecord, 0, len(in))

	for _, r := range in {
		date, err := time.Parse(time.RFC3339, r.Date)
		if err != nil {
			return nil, fiber.NewError(fiber.StatusBadRequest, "invalid record date, expected RFC3339")
		}

		out = append(out, reconciliation.ExternalRecord{Ref: r.Ref, Amount: money.MinorUnits(r.Amount), Date: date})
	}

	return out, nil
}

// Run handles POST /v1/reconciliation/runs, dispatching to the
// gateway-report or bank-statement match per the source field
// (supplements spec.md §4.10).
func (h *ReconciliationHandler) Run(c *fiber.Ctx, body RunInput) error {
	p := mhttp.PrincipalFromHeaders(c)

	internal, err := toRecordsInternal(body.Internal)
	if err != nil {
		return err
	}

	external, err := toRecordsExternal(body.External)
	if err != nil {
		return err
	}

	req := reconciliation.RunRequest{
		Tenant:       p.Tenant,
		Gateway:      body.Gateway,
		PeriodFrom:   body.PeriodFrom,
		PeriodTo:     body.PeriodTo,
		SettlementID: body.SettlementID,
		Internal:     internal,
		External:     external,
	}

	var batch reconciliation.Batch

	if body.Source == "bank_statement" {
		batch, err = h.UseCase.RunBankStatement(c.UserContext(), req)
	} else {
		batch, err = h.UseCase.Run(c.UserContext(), req)
	}

	if err != nil {
		return mhttp.WriteError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(batch)
}
