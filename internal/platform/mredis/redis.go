// Package mredis adapts the teacher's common/mredis connection hub: a
// singleton *redis.Client, lazily connected and pinged once on Connect.
package mredis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/atlaspay/aggregator-core/internal/platform/mlog"
)

// Connection is a hub which deals with redis connections.
type Connection struct {
	URL    string
	Logger mlog.Logger

	client *redis.Client
}

// Connect parses URL, dials redis, and verifies connectivity with a ping.
func (c *Connection) Connect(ctx context.Context) error {
	c.Logger.Info("connecting to redis")

	opts, err := redis.ParseURL(c.URL)
	if err != nil {
		return fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}

	c.client = client

	c.Logger.Info("connected to redis")

	return nil
}

// Client returns the redis client, connecting lazily if necessary.
func (c *Connection) Client(ctx context.Context) (*redis.Client, error) {
	if c.client == nil {
		if err := c.Connect(ctx); err != nil {
			return nil, err
		}
	}

	return c.client, nil
}
