package in

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/atlaspay/aggregator-core/internal/platform/mhttp"
	"github.com/atlaspay/aggregator-core/internal/settlement"
	"github.com/atlaspay/aggregator-core/pkg/money"
)

// SettlementHandler exposes C9's Controller.
type SettlementHandler struct {
	Controller *settlement.Controller
}

// CreateSettlementInput is the request body for POST /v1/settlements.
type CreateSettlementInput struct {
	MerchantRef string `json:"merchant_ref" validate:"required"`
	Amount      int64  `json:"amount" validate:"required,gt=0"`
	Currency    string `json:"currency" validate:"required,len=3"`
	MaxRetries  int    `json:"max_retries"`
}

// Create handles POST /v1/settlements.
func (h *SettlementHandler) Create(c *fiber.Ctx, body CreateSettlementInput) error {
	p := mhttp.PrincipalFromHeaders(c)

	s, err := h.Controller.Create(c.UserContext(), settlement.CreateRequest{
		Tenant:      p.Tenant,
		MerchantRef: body.MerchantRef,
		Amount:      money.MinorUnits(body.Amount),
		Currency:    body.Currency,
		MaxRetries:  body.MaxRetries,
		Actor:       p.ActorID,
	})
	if err != nil {
		return mhttp.WriteError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(s)
}

// ReserveFunds handles POST /v1/settlements/:id/reserve.
func (h *SettlementHandler) ReserveFunds(c *fiber.Ctx) error {
	p := mhttp.PrincipalFromHeaders(c)

	id, err := mhttp.PathUUID(c, "id")
	if err != nil {
		return err
	}

	s, err := h.Controller.ReserveFunds(c.UserContext(), p.Tenant, id, p.ActorID)
	if err != nil {
		return mhttp.WriteError(c, err)
	}

	return c.JSON(s)
}

// SendToBankInput is the request body for POST /v1/settlements/:id/send.
type SendToBankInput struct {
	BatchRef string `json:"batch_ref" validate:"required"`
}

// SendToBank handles POST /v1/settlements/:id/send. Requires finance-admin
// (spec.md §4.9).
func (h *SettlementHandler) SendToBank(c *fiber.Ctx, body SendToBankInput) error {
	p := mhttp.PrincipalFromHeaders(c)

	id, err := mhttp.PathUUID(c, "id")
	if err != nil {
		return err
	}

	s, err := h.Controller.SendToBank(c.UserContext(), p, id, body.BatchRef)
	if err != nil {
		return mhttp.WriteError(c, err)
	}

	return c.JSON(s)
}

// ConfirmByBankInput is the request body for POST /v1/settlements/:id/confirm.
type ConfirmByBankInput struct {
	UTR     string `json:"utr" validate:"required"`
	BankRef string `json:"bank_ref"`
}

// ConfirmByBank handles POST /v1/settlements/:id/confirm.
func (h *SettlementHandler) ConfirmByBank(c *fiber.Ctx, body ConfirmByBankInput) error {
	p := mhttp.PrincipalFromHeaders(c)

	id, err := mhttp.PathUUID(c, "id")
	if err != nil {
		return err
	}

	s, err := h.Controller.ConfirmByBank(c.UserContext(), p.Tenant, id, body.UTR, body.BankRef, p.ActorID)
	if err != nil {
		return mhttp.WriteError(c, err)
	}

	return c.JSON(s)
}

// MarkSettled handles POST /v1/settlements/:id/settled.
func (h *SettlementHandler) MarkSettled(c *fiber.Ctx) error {
	p := mhttp.PrincipalFromHeaders(c)

	id, err := mhttp.PathUUID(c, "id")
	if err != nil {
		return err
	}

	s, err := h.Controller.MarkSettled(c.UserContext(), p.Tenant, id, p.ActorID)
	if err != nil {
		return mhttp.WriteError(c, err)
	}

	return c.JSON(s)
}

// MarkFailedInput is the request body for POST /v1/settlements/:id/failed.
type MarkFailedInput struct {
	Reason string `json:"reason" validate:"required"`
}

// MarkFailed handles POST /v1/settlements/:id/failed.
func (h *SettlementHandler) MarkFailed(c *fiber.Ctx, body MarkFailedInput) error {
	p := mhttp.PrincipalFromHeaders(c)

	id, err := mhttp.PathUUID(c, "id")
	if err != nil {
		return err
	}

	s, err := h.Controller.MarkFailed(c.UserContext(), p.Tenant, id, body.Reason, p.ActorID)
	if err != nil {
		return mhttp.WriteError(c, err)
	}

	return c.JSON(s)
}

// Retry handles POST /v1/settlements/:id/retry.
func (h *SettlementHandler) Retry(c *fiber.Ctx) error {
	p := mhttp.PrincipalFromHeaders(c)

	id, err := mhttp.PathUUID(c, "id")
	if err != nil {
		return err
	}

	s, err := h.Controller.Retry(c.UserContext(), p.Tenant, id, p.ActorID, settlementRetryBackoffCeiling)
	if err != nil {
		return mhttp.WriteError(c, err)
	}

	return c.JSON(s)
}

// settlementRetryBackoffCeiling is the decided answer to spec.md §9's Open
// Question on the settlement retry backoff ceiling: the longest delay Retry
// adds to NextRetryAt.
const settlementRetryBackoffCeiling = 24 * time.Hour
