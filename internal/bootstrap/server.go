package bootstrap

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	httpin "github.com/atlaspay/aggregator-core/internal/adapters/http/in"
	"github.com/atlaspay/aggregator-core/internal/platform/mlog"
)

// Server wraps the fiber app this Service exposes.
type Server struct {
	app           *fiber.App
	serverAddress string
	logger        mlog.Logger
}

// NewServer builds the HTTP server over svc's components, wiring every
// handler the way the teacher's bootstrap.NewServer wires onboarding and
// transaction's handlers into one fiber.App.
func NewServer(cfg *Config, svc *Service) *Server {
	app := httpin.NewRouter(
		svc.Logger,
		cfg.AuthHost,
		cfg.AuthEnabled,
		&httpin.PaymentHandler{Orchestrator: svc.Orchestrator},
		&httpin.SettlementHandler{Controller: svc.Settlement},
		&httpin.PeriodHandler{Controller: svc.Period},
		&httpin.ReconciliationHandler{UseCase: svc.Reconciliation},
	)

	return &Server{app: app, serverAddress: cfg.ServerAddress, logger: svc.Logger}
}

// Run starts the HTTP server and blocks until ctx is cancelled, then drains
// in-flight requests with a bounded grace period.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		s.logger.Infof("listening on %s", s.serverAddress)
		errCh <- s.app.Listen(s.serverAddress)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		s.logger.Info("shutting down http server")

		return s.app.ShutdownWithContext(shutdownCtx)
	}
}
