// Package mhttp holds the small set of fiber helpers every handler in
// internal/adapters/http/in shares, grounded on the teacher's
// common/net/http package (WithBody, ParseUUIDPathParameters, Ping,
// Version) but trimmed to what this module's handlers actually use.
package mhttp

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/atlaspay/aggregator-core/internal/platform/mlog"
	"github.com/atlaspay/aggregator-core/pkg/aggerrors"
	"github.com/atlaspay/aggregator-core/pkg/principal"
)

var validate = validator.New()

// WithBody parses and validates the request body into a fresh T, passing
// the populated value to next.
func WithBody[T any](next func(c *fiber.Ctx, body T) error) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body T

		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "malformed request body")
		}

		if err := validate.Struct(body); err != nil {
			return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
		}

		return next(c, body)
	}
}

// PathUUID parses path parameter name as a uuid.UUID, 400ing on failure.
func PathUUID(c *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.UUID{}, fiber.NewError(fiber.StatusBadRequest, "invalid "+name)
	}

	return id, nil
}

// PrincipalFromHeaders builds the attested caller from the headers the
// auth middleware sets ahead of the handler (Design Notes, spec.md §9,
// "the core never parses a token itself").
func PrincipalFromHeaders(c *fiber.Ctx) principal.Principal {
	return principal.Principal{
		ActorID: c.Get("X-Actor-Id"),
		Role:    principal.Role(c.Get("X-Actor-Role")),
		Tenant:  c.Get("X-Tenant-Id"),
	}
}

// WriteError maps a domain error to an HTTP response, unwrapping a
// taxonomy/aggerrors classification when present instead of leaking a bare
// 500 for every business rejection.
func WriteError(c *fiber.Ctx, err error) error {
	status := aggerrors.HTTPStatus(err)
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}

// RequestID returns, or lazily assigns, the correlation id for this
// request so downstream logs and responses can be tied together.
func RequestID(c *fiber.Ctx) string {
	if id := c.Get("X-Request-Id"); id != "" {
		return id
	}

	id := uuid.New().String()
	c.Set("X-Request-Id", id)

	return id
}

// WithLogging attaches a request-scoped logger to the fiber context's
// underlying context.Context and logs the outcome once the handler chain
// completes.
func WithLogging(logger mlog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		requestID := RequestID(c)

		scoped := logger.WithFields("request_id", requestID, "path", c.Path())
		c.SetUserContext(mlog.ContextWithLogger(c.UserContext(), scoped))

		err := c.Next()

		scoped.Infof("%s %s -> %d (%s)", c.Method(), c.Path(), c.Response().StatusCode(), time.Since(start))

		return err
	}
}

// Ping answers the liveness probe.
func Ping(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}
