// Package bootstrap wires the platform connections and the eleven core
// components into one runnable Service, grounded on the teacher's
// components/ledger/internal/bootstrap package (config.go/service.go/
// server.go), collapsed to a single process since this module has no
// onboarding/transaction split to unify.
package bootstrap

import (
	"fmt"
	"strings"

	libCommons "github.com/LerianStudio/lib-commons/v2/commons"

	"github.com/atlaspay/aggregator-core/pkg/money"
)

// ApplicationName identifies this service in logs and telemetry.
const ApplicationName = "aggregator-core"

// Config is the top-level configuration, populated from environment
// variables the way the teacher's components load theirs.
type Config struct {
	EnvName  string `env:"ENV_NAME" envDefault:"development"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	Version  string `env:"VERSION"`

	ServerAddress string `env:"SERVER_ADDRESS" envDefault:":3003"`

	LedgerPrimaryDSN    string `env:"LEDGER_DB_PRIMARY_DSN"`
	LedgerReplicaDSN    string `env:"LEDGER_DB_REPLICA_DSN"`
	LedgerMigrationsDir string `env:"LEDGER_DB_MIGRATIONS_DIR"`

	PeriodPrimaryDSN string `env:"PERIOD_DB_PRIMARY_DSN"`
	PeriodReplicaDSN string `env:"PERIOD_DB_REPLICA_DSN"`

	SettlementPrimaryDSN string `env:"SETTLEMENT_DB_PRIMARY_DSN"`
	SettlementReplicaDSN string `env:"SETTLEMENT_DB_REPLICA_DSN"`

	MongoURI              string `env:"MONGO_URI"`
	MongoReconciliationDB string `env:"MONGO_RECONCILIATION_DATABASE" envDefault:"aggregator_reconciliation"`

	RedisURL          string `env:"REDIS_URL"`
	BreakerCacheTTLHr int    `env:"BREAKER_CACHE_TTL_HOURS" envDefault:"24"`

	RabbitMQURL string `env:"RABBITMQ_URL"`

	// AdjustmentThresholdMinorUnits is the manual_adjustment threshold
	// (spec.md §9's Open Question, decided as a flat per-deployment value
	// until a tenant settings service exists) applied to every tenant
	// named in AdjustmentThresholdTenants.
	AdjustmentThresholdMinorUnits int64  `env:"ADJUSTMENT_THRESHOLD_MINOR_UNITS" envDefault:"10000000"`
	AdjustmentThresholdTenants    string `env:"ADJUSTMENT_THRESHOLD_TENANTS"`

	OtelServiceName         string `env:"OTEL_RESOURCE_SERVICE_NAME" envDefault:"aggregator-core"`
	OtelColExporterEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	EnableTelemetry         bool   `env:"ENABLE_TELEMETRY"`

	AuthEnabled bool   `env:"PLUGIN_AUTH_ENABLED"`
	AuthHost    string `env:"PLUGIN_AUTH_HOST"`
}

// LoadConfig populates a Config from the process environment.
func LoadConfig() (*Config, error) {
	cfg := &Config{}

	if err := libCommons.SetConfigFromEnvVars(cfg); err != nil {
		return nil, fmt.Errorf("load config from environment: %w", err)
	}

	return cfg, nil
}

// AdjustmentThresholds builds the tenant->threshold map the choreographer
// needs, applying the same flat threshold to every tenant listed in
// AdjustmentThresholdTenants (comma-separated).
func (c *Config) AdjustmentThresholds() map[string]money.MinorUnits {
	thresholds := make(map[string]money.MinorUnits)

	for _, t := range strings.Split(c.AdjustmentThresholdTenants, ",") {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}

		thresholds[t] = money.MinorUnits(c.AdjustmentThresholdMinorUnits)
	}

	return thresholds
}
