// Package in holds the fiber handlers exposing the core components over
// HTTP, grounded on the teacher's components/*/internal/adapters/http/in
// handler-per-resource layout.
package in

import (
	"github.com/gofiber/fiber/v2"

	"github.com/atlaspay/aggregator-core/internal/orchestrator"
	"github.com/atlaspay/aggregator-core/internal/platform/mhttp"
	"github.com/atlaspay/aggregator-core/pkg/money"
)

// PaymentHandler exposes C11's Orchestrator.
type PaymentHandler struct {
	Orchestrator *orchestrator.Orchestrator
}

// ProcessPaymentInput is the request body for POST /v1/payments.
type ProcessPaymentInput struct {
	Amount         int64           `json:"amount" validate:"required,gt=0"`
	Currency       string          `json:"currency" validate:"required,len=3"`
	CustomerRef    string          `json:"customer_ref" validate:"required"`
	Instrument     InstrumentInput `json:"instrument" validate:"required"`
	OrderRef       string          `json:"order_ref" validate:"required"`
	IdempotencyKey string          `json:"idempotency_key" validate:"required"`
}

// InstrumentInput mirrors orchestrator.Instrument for request binding.
type InstrumentInput struct {
	Kind   string            `json:"kind" validate:"required"`
	Detail map[string]string `json:"detail"`
}

// ProcessPayment handles POST /v1/payments (spec.md §6, "{transaction_id,
// gateway, status, response_time_ms}").
func (h *PaymentHandler) ProcessPayment(c *fiber.Ctx, body ProcessPaymentInput) error {
	tenant := c.Get("X-Tenant-Id")

	result, err := h.Orchestrator.ProcessPayment(c.UserContext(), orchestrator.Envelope{
		Amount:         money.MinorUnits(body.Amount),
		Currency:       body.Currency,
		CustomerRef:    body.CustomerRef,
		Instrument:     orchestrator.Instrument{Kind: body.Instrument.Kind, Detail: body.Instrument.Detail},
		OrderRef:       body.OrderRef,
		Tenant:         tenant,
		IdempotencyKey: body.IdempotencyKey,
	})
	if err != nil {
		return mhttp.WriteError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"transaction_id":   result.TransactionID,
		"gateway":          result.Gateway,
		"status":           result.Status,
		"response_time_ms": result.ResponseTimeMs,
		"duplicate":        result.Duplicate,
	})
}
