// Package mrabbitmq adapts the teacher's common/mrabbitmq connection hub
// onto github.com/rabbitmq/amqp091-go (the maintained fork of the
// streadway/amqp API the teacher's original hub used), keeping the same
// Connect/GetChannel/healthCheck shape.
package mrabbitmq

import (
	"context"
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/atlaspay/aggregator-core/internal/platform/mlog"
)

// Connection is a hub which deals with a single rabbitmq channel.
type Connection struct {
	URL    string
	Logger mlog.Logger

	conn    *amqp.Connection
	channel *amqp.Channel
}

// Connect dials rabbitmq and opens one channel.
func (c *Connection) Connect(ctx context.Context) error {
	c.Logger.Info("connecting to rabbitmq")

	conn, err := amqp.Dial(c.URL)
	if err != nil {
		return fmt.Errorf("dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}

	c.conn = conn
	c.channel = ch

	c.Logger.Info("connected to rabbitmq")

	return nil
}

// Channel returns the open channel, connecting lazily if necessary.
func (c *Connection) Channel(ctx context.Context) (*amqp.Channel, error) {
	if c.channel == nil {
		if err := c.Connect(ctx); err != nil {
			return nil, err
		}
	}

	return c.channel, nil
}

// Close releases the channel and underlying connection.
func (c *Connection) Close() error {
	var errs []error

	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
