package in

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/atlaspay/aggregator-core/internal/period"
	"github.com/atlaspay/aggregator-core/internal/platform/mhttp"
)

// PeriodHandler exposes C7's Controller.
type PeriodHandler struct {
	Controller *period.Controller
}

// SoftCloseInput is the request body for POST /v1/periods/:id/soft-close.
type SoftCloseInput struct {
	Notes string `json:"notes"`
}

// SoftClose handles POST /v1/periods/:id/soft-close.
func (h *PeriodHandler) SoftClose(c *fiber.Ctx, body SoftCloseInput) error {
	p := mhttp.PrincipalFromHeaders(c)

	id, err := mhttp.PathUUID(c, "id")
	if err != nil {
		return err
	}

	period, err := h.Controller.SoftClose(c.UserContext(), p, id, body.Notes)
	if err != nil {
		return mhttp.WriteError(c, err)
	}

	return c.JSON(period)
}

// HardClose handles POST /v1/periods/:id/hard-close.
func (h *PeriodHandler) HardClose(c *fiber.Ctx, body SoftCloseInput) error {
	p := mhttp.PrincipalFromHeaders(c)

	id, err := mhttp.PathUUID(c, "id")
	if err != nil {
		return err
	}

	period, err := h.Controller.HardClose(c.UserContext(), p, id, body.Notes)
	if err != nil {
		return mhttp.WriteError(c, err)
	}

	return c.JSON(period)
}

// ApplyLockInput is the request body for POST /v1/locks.
type ApplyLockInput struct {
	Type   string    `json:"type" validate:"required"`
	Start  time.Time `json:"start" validate:"required"`
	End    time.Time `json:"end" validate:"required"`
	Reason string    `json:"reason" validate:"required"`
	Ref    string    `json:"ref"`
}

// ApplyLock handles POST /v1/locks.
func (h *PeriodHandler) ApplyLock(c *fiber.Ctx, body ApplyLockInput) error {
	p := mhttp.PrincipalFromHeaders(c)

	lock, err := h.Controller.ApplyLock(c.UserContext(), period.ApplyLockRequest{
		Tenant: p.Tenant,
		Type:   period.LockType(body.Type),
		Start:  body.Start,
		End:    body.End,
		Reason: body.Reason,
		Ref:    body.Ref,
		Actor:  p.ActorID,
		Role:   string(p.Role),
	})
	if err != nil {
		return mhttp.WriteError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(lock)
}

// ReleaseLockInput is the request body for POST /v1/locks/:id/release.
type ReleaseLockInput struct {
	Notes string `json:"notes"`
}

// ReleaseLock handles POST /v1/locks/:id/release.
func (h *PeriodHandler) ReleaseLock(c *fiber.Ctx, body ReleaseLockInput) error {
	p := mhttp.PrincipalFromHeaders(c)

	id, err := mhttp.PathUUID(c, "id")
	if err != nil {
		return err
	}

	if err := h.Controller.ReleaseLock(c.UserContext(), period.ReleaseLockRequest{
		Tenant: p.Tenant,
		LockID: id,
		Actor:  p.ActorID,
		Role:   string(p.Role),
		Notes:  body.Notes,
	}); err != nil {
		return mhttp.WriteError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// CheckLockStatus handles GET /v1/locks/status.
func (h *PeriodHandler) CheckLockStatus(c *fiber.Ctx) error {
	p := mhttp.PrincipalFromHeaders(c)

	date, err := time.Parse(time.RFC3339, c.Query("date"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid date query parameter, expected RFC3339")
	}

	lock, err := h.Controller.CheckLockStatus(c.UserContext(), p.Tenant, date)
	if err != nil {
		return mhttp.WriteError(c, err)
	}

	return c.JSON(lock)
}
