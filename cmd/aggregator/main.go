// Command aggregator runs the unified payment aggregation service: the
// HTTP API (C11 orchestrator, C7/C9/C10 admin operations) and the
// rabbitmq event consumer (C8 choreographer) in one process, grounded on
// the teacher's cmd/app main-per-component layout collapsed to a single
// binary.
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/atlaspay/aggregator-core/internal/bootstrap"
	"github.com/atlaspay/aggregator-core/internal/platform/mlog"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := mlog.NewZap()
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	defer func() { _ = logger.Sync() }()

	ctx = mlog.ContextWithLogger(ctx, logger)

	svc, err := bootstrap.NewService(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("init service: %v", err)
	}

	server := bootstrap.NewServer(cfg, svc)

	go func() {
		if err := svc.Consumer.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Errorf("event consumer stopped: %v", err)
		}
	}()

	if err := server.Run(ctx); err != nil {
		logger.Fatalf("http server stopped: %v", err)
	}
}
