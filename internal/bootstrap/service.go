package bootstrap

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"

	reconciliationmongo "github.com/atlaspay/aggregator-core/internal/adapters/mongo/reconciliation"
	ledgerpg "github.com/atlaspay/aggregator-core/internal/adapters/postgres/ledger"
	periodpg "github.com/atlaspay/aggregator-core/internal/adapters/postgres/period"
	settlementpg "github.com/atlaspay/aggregator-core/internal/adapters/postgres/settlement"
	"github.com/atlaspay/aggregator-core/internal/adapters/rabbitmq/events"
	redisbreaker "github.com/atlaspay/aggregator-core/internal/adapters/redis/breaker"

	"github.com/atlaspay/aggregator-core/internal/breaker"
	"github.com/atlaspay/aggregator-core/internal/choreographer"
	"github.com/atlaspay/aggregator-core/internal/health"
	"github.com/atlaspay/aggregator-core/internal/ledger"
	"github.com/atlaspay/aggregator-core/internal/orchestrator"
	"github.com/atlaspay/aggregator-core/internal/period"
	"github.com/atlaspay/aggregator-core/internal/platform/mlog"
	"github.com/atlaspay/aggregator-core/internal/platform/mmongo"
	"github.com/atlaspay/aggregator-core/internal/platform/mpostgres"
	"github.com/atlaspay/aggregator-core/internal/platform/mredis"
	"github.com/atlaspay/aggregator-core/internal/platform/mrabbitmq"
	"github.com/atlaspay/aggregator-core/internal/reconciliation"
	"github.com/atlaspay/aggregator-core/internal/retry"
	"github.com/atlaspay/aggregator-core/internal/router"
	"github.com/atlaspay/aggregator-core/internal/settlement"
)

// Service composes the eleven core components over real storage and
// messaging adapters, the way the teacher's bootstrap.Service composes
// onboarding and transaction (internal/bootstrap/service.go).
type Service struct {
	Cfg    *Config
	Logger mlog.Logger

	Ledger         *ledger.UseCase
	Period         *period.Controller
	Settlement     *settlement.Controller
	Reconciliation *reconciliation.UseCase
	Choreographer  *choreographer.UseCase
	Orchestrator   *orchestrator.Orchestrator

	breakerCache *redisbreaker.Listener
	rabbitmq     *mrabbitmq.Connection
	eventChannel *amqp.Channel

	Producer *events.Producer
	Consumer *events.Consumer
}

// NewService connects every platform dependency and wires the domain
// components on top of them.
func NewService(ctx context.Context, cfg *Config, logger mlog.Logger) (*Service, error) {
	ledgerDB, err := connectPostgres(ctx, cfg.LedgerPrimaryDSN, cfg.LedgerReplicaDSN, cfg.LedgerMigrationsDir, logger)
	if err != nil {
		return nil, fmt.Errorf("connect ledger database: %w", err)
	}

	periodDB, err := connectPostgres(ctx, cfg.PeriodPrimaryDSN, cfg.PeriodReplicaDSN, "", logger)
	if err != nil {
		return nil, fmt.Errorf("connect period database: %w", err)
	}

	settlementDB, err := connectPostgres(ctx, cfg.SettlementPrimaryDSN, cfg.SettlementReplicaDSN, "", logger)
	if err != nil {
		return nil, fmt.Errorf("connect settlement database: %w", err)
	}

	mongoConn := &mmongo.Connection{URI: cfg.MongoURI, Database: cfg.MongoReconciliationDB, Logger: logger}

	mongoDB, err := mongoConn.DB(ctx)
	if err != nil {
		return nil, fmt.Errorf("connect reconciliation database: %w", err)
	}

	redisConn := &mredis.Connection{URL: cfg.RedisURL, Logger: logger}

	redisClient, err := redisConn.Client(ctx)
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	breakerCache := redisbreaker.New(redisClient, time.Duration(cfg.BreakerCacheTTLHr)*time.Hour, logger)

	rabbitConn := &mrabbitmq.Connection{URL: cfg.RabbitMQURL, Logger: logger}

	rabbitChannel, err := rabbitConn.Channel(ctx)
	if err != nil {
		return nil, fmt.Errorf("connect rabbitmq: %w", err)
	}

	producer, err := events.NewProducer(rabbitChannel)
	if err != nil {
		return nil, fmt.Errorf("build event producer: %w", err)
	}

	periodResolver, err := periodDB.DB(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve period database pool: %w", err)
	}

	periodRepo := periodpg.New(periodResolver)
	periodCtl := period.New(periodRepo)

	ledgerResolver, err := ledgerDB.DB(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve ledger database pool: %w", err)
	}

	ledgerRepo := ledgerpg.New(ledgerResolver)
	ledgerUC := ledger.New(ledgerRepo, ledger.PeriodAdapter{Controller: periodCtl})

	settlementResolver, err := settlementDB.DB(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve settlement database pool: %w", err)
	}

	settlementRepo := settlementpg.New(settlementResolver)
	settlementCtl := settlement.New(settlementRepo)

	reconciliationRepo := reconciliationmongo.New(mongoDB)
	reconciliationUC := reconciliation.New(reconciliationRepo)

	choreographerUC := choreographer.New(ledgerUC, cfg.AdjustmentThresholds())

	tracker := health.NewTracker()
	breakers := breaker.NewRegistry(breaker.DefaultConfig(), breakerCache)

	gateways := defaultGateways()

	r := router.New(router.DefaultConfig(), gateways, tracker, breakers)

	adapters := make(map[string]orchestrator.GatewayAdapter, len(gateways))
	for _, g := range gateways {
		adapters[g.Name] = orchestrator.NoopAdapter{Name: g.Name}
	}

	fees := orchestrator.FeeSchedule{FixedFee: 0, Percentage: decimal.NewFromFloat(0.02)}

	dispatch := func(ctx context.Context, evt choreographer.Event) (orchestrator.DispatchResult, error) {
		result, err := choreographerUC.Dispatch(ctx, evt)
		if err != nil {
			return orchestrator.DispatchResult{}, err
		}

		return orchestrator.DispatchResult{TransactionID: result.TransactionID, Duplicate: result.Duplicate}, nil
	}

	orch := orchestrator.New(r, tracker, breakers, retry.DefaultPolicy(), adapters, fees, dispatch)

	consumer, err := events.NewConsumer(rabbitChannel, choreographerUC, logger)
	if err != nil {
		return nil, fmt.Errorf("build event consumer: %w", err)
	}

	return &Service{
		Cfg:            cfg,
		Logger:         logger,
		Ledger:         ledgerUC,
		Period:         periodCtl,
		Settlement:     settlementCtl,
		Reconciliation: reconciliationUC,
		Choreographer:  choreographerUC,
		Orchestrator:   orch,
		breakerCache:   breakerCache,
		rabbitmq:       rabbitConn,
		eventChannel:   rabbitChannel,
		Producer:       producer,
		Consumer:       consumer,
	}, nil
}

func connectPostgres(ctx context.Context, primaryDSN, replicaDSN, migrationsDir string, logger mlog.Logger) (*mpostgres.Connection, error) {
	conn := &mpostgres.Connection{
		PrimaryDSN:    primaryDSN,
		ReplicaDSN:    replicaDSN,
		MigrationsDir: migrationsDir,
		Logger:        logger,
	}

	if err := conn.Connect(ctx); err != nil {
		return nil, err
	}

	return conn, nil
}

// defaultGateways is the static cost model for the gateway pool until a
// real configuration service replaces it (Design Notes, spec.md §9,
// per-provider codecs explicitly out of scope).
func defaultGateways() []router.Gateway {
	return []router.Gateway{
		{Name: "primary_gateway", Priority: 100, PercentageFee: decimal.NewFromFloat(0.019)},
		{Name: "secondary_gateway", Priority: 80, PercentageFee: decimal.NewFromFloat(0.021)},
	}
}
