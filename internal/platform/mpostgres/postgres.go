// Package mpostgres adapts the teacher's common/mpostgres connection hub:
// a dbresolver-backed primary/replica pool with golang-migrate applying
// migrations from a configurable directory on connect, rather than the
// single hardcoded components/ledger/migrations path the teacher used.
package mpostgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"

	"github.com/bxcodec/dbresolver/v2"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/atlaspay/aggregator-core/internal/platform/mlog"
)

// Connection is a hub which deals with postgres primary/replica connections
// for one logical database.
type Connection struct {
	PrimaryDSN    string
	ReplicaDSN    string
	DatabaseName  string
	MigrationsDir string
	Logger        mlog.Logger

	db        dbresolver.DB
	connected bool
}

// Connect opens the primary and replica pools, runs pending migrations
// against the primary, and verifies connectivity.
func (c *Connection) Connect(ctx context.Context) error {
	c.Logger.Infof("connecting to postgres database %s", c.DatabaseName)

	primary, err := sql.Open("pgx", c.PrimaryDSN)
	if err != nil {
		return fmt.Errorf("open primary: %w", err)
	}

	replica, err := sql.Open("pgx", c.ReplicaDSN)
	if err != nil {
		return fmt.Errorf("open replica: %w", err)
	}

	resolved := dbresolver.New(
		dbresolver.WithPrimaryDBs(primary),
		dbresolver.WithReplicaDBs(replica),
		dbresolver.WithLoadBalancer(dbresolver.RoundRobinLB),
	)

	if c.MigrationsDir != "" {
		if err := c.migrate(primary); err != nil {
			return fmt.Errorf("migrate %s: %w", c.DatabaseName, err)
		}
	}

	if err := resolved.PingContext(ctx); err != nil {
		return fmt.Errorf("ping %s: %w", c.DatabaseName, err)
	}

	c.db = resolved
	c.connected = true

	c.Logger.Infof("connected to postgres database %s", c.DatabaseName)

	return nil
}

func (c *Connection) migrate(primary *sql.DB) error {
	abs, err := filepath.Abs(c.MigrationsDir)
	if err != nil {
		return err
	}

	sourceURL := url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}

	driver, err := postgres.WithInstance(primary, &postgres.Config{
		MultiStatementEnabled: true,
		DatabaseName:          c.DatabaseName,
		SchemaName:            "public",
	})
	if err != nil {
		return err
	}

	m, err := migrate.NewWithDatabaseInstance(sourceURL.String(), c.DatabaseName, driver)
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}

	return nil
}

// DB returns the resolved pool, connecting lazily if necessary.
func (c *Connection) DB(ctx context.Context) (dbresolver.DB, error) {
	if !c.connected {
		if err := c.Connect(ctx); err != nil {
			return nil, err
		}
	}

	return c.db, nil
}
