// Package mmongo adapts the teacher's common/mmongo connection hub: a
// thin wrapper around the official driver's Client, lazily connected.
package mmongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/atlaspay/aggregator-core/internal/platform/mlog"
)

// Connection is a hub which deals with mongo connections for one database.
type Connection struct {
	URI      string
	Database string
	Logger   mlog.Logger

	client *mongo.Client
}

// Connect dials mongo and verifies connectivity with a ping.
func (c *Connection) Connect(ctx context.Context) error {
	c.Logger.Infof("connecting to mongo database %s", c.Database)

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(c.URI))
	if err != nil {
		return fmt.Errorf("connect mongo: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("ping mongo: %w", err)
	}

	c.client = client

	c.Logger.Infof("connected to mongo database %s", c.Database)

	return nil
}

// DB returns the database handle, connecting lazily if necessary.
func (c *Connection) DB(ctx context.Context) (*mongo.Database, error) {
	if c.client == nil {
		if err := c.Connect(ctx); err != nil {
			return nil, err
		}
	}

	return c.client.Database(c.Database), nil
}
