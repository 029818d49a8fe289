package in

import (
	"github.com/LerianStudio/lib-auth/v2/auth/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberSwagger "github.com/swaggo/fiber-swagger"

	"github.com/atlaspay/aggregator-core/internal/platform/mhttp"
	"github.com/atlaspay/aggregator-core/internal/platform/mlog"
)

// ApplicationName identifies this component to the auth client's resource
// namespace (spec.md §6 Principal Contract). Kept as a literal, not an
// import of internal/bootstrap, to avoid a bootstrap<->http/in cycle.
const ApplicationName = "aggregator-core"

// NewRouter assembles the fiber app and registers every route, grounded on
// the teacher's components/*/internal/adapters/http/in/routes.go.
func NewRouter(logger mlog.Logger, authHost string, authEnabled bool, ph *PaymentHandler, sh *SettlementHandler, prh *PeriodHandler, rh *ReconciliationHandler) *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	app.Use(cors.New())
	app.Use(mhttp.WithLogging(logger))

	auth := middleware.NewAuthClient(authHost, authEnabled, &logger)

	app.Post("/v1/payments", auth.Authorize(ApplicationName, "payments", "post"), mhttp.WithBody(ph.ProcessPayment))

	app.Post("/v1/settlements", auth.Authorize(ApplicationName, "settlements", "post"), mhttp.WithBody(sh.Create))
	app.Post("/v1/settlements/:id/reserve", auth.Authorize(ApplicationName, "settlements", "post"), sh.ReserveFunds)
	app.Post("/v1/settlements/:id/send", auth.Authorize(ApplicationName, "settlements", "post"), mhttp.WithBody(sh.SendToBank))
	app.Post("/v1/settlements/:id/confirm", auth.Authorize(ApplicationName, "settlements", "post"), mhttp.WithBody(sh.ConfirmByBank))
	app.Post("/v1/settlements/:id/settled", auth.Authorize(ApplicationName, "settlements", "post"), sh.MarkSettled)
	app.Post("/v1/settlements/:id/failed", auth.Authorize(ApplicationName, "settlements", "post"), mhttp.WithBody(sh.MarkFailed))
	app.Post("/v1/settlements/:id/retry", auth.Authorize(ApplicationName, "settlements", "post"), sh.Retry)

	app.Post("/v1/periods/:id/soft-close", auth.Authorize(ApplicationName, "periods", "post"), mhttp.WithBody(prh.SoftClose))
	app.Post("/v1/periods/:id/hard-close", auth.Authorize(ApplicationName, "periods", "post"), mhttp.WithBody(prh.HardClose))
	app.Post("/v1/locks", auth.Authorize(ApplicationName, "locks", "post"), mhttp.WithBody(prh.ApplyLock))
	app.Post("/v1/locks/:id/release", auth.Authorize(ApplicationName, "locks", "post"), mhttp.WithBody(prh.ReleaseLock))
	app.Get("/v1/locks/status", auth.Authorize(ApplicationName, "locks", "get"), prh.CheckLockStatus)

	app.Post("/v1/reconciliation/runs", auth.Authorize(ApplicationName, "reconciliation", "post"), mhttp.WithBody(rh.Run))

	app.Get("/health", mhttp.Ping)
	app.Get("/swagger/*", fiberSwagger.WrapHandler)

	return app
}
