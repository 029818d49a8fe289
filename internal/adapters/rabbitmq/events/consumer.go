package events

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/atlaspay/aggregator-core/internal/choreographer"
	"github.com/atlaspay/aggregator-core/internal/ledger"
	"github.com/atlaspay/aggregator-core/internal/platform/mlog"
	"github.com/atlaspay/aggregator-core/internal/taxonomy"
)

// Dispatcher is the narrow choreographer surface the consumer drives.
type Dispatcher interface {
	Dispatch(ctx context.Context, evt choreographer.Event) (ledger.PostResult, error)
}

// Consumer drains QueueName and hands each delivery to a Dispatcher.
type Consumer struct {
	channel    *amqp.Channel
	dispatcher Dispatcher
	logger     mlog.Logger
}

// NewConsumer declares the queue, binds it to every event routing key on
// ExchangeName, and returns a Consumer ready for Run.
func NewConsumer(channel *amqp.Channel, dispatcher Dispatcher, logger mlog.Logger) (*Consumer, error) {
	if _, err := channel.QueueDeclare(QueueName, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare queue: %w", err)
	}

	if err := channel.QueueBind(QueueName, RoutingKeyPrefix+"#", ExchangeName, false, nil); err != nil {
		return nil, fmt.Errorf("bind queue: %w", err)
	}

	if err := channel.Qos(10, 0, false); err != nil {
		return nil, fmt.Errorf("set qos: %w", err)
	}

	return &Consumer{channel: channel, dispatcher: dispatcher, logger: logger}, nil
}

// Run blocks consuming deliveries until ctx is cancelled or the channel's
// delivery stream closes.
func (c *Consumer) Run(ctx context.Context) error {
	deliveries, err := c.channel.Consume(QueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case delivery, ok := <-deliveries:
			if !ok {
				return nil
			}

			c.handle(ctx, delivery)
		}
	}
}

// handle dispatches one delivery. It acks on success and on an undecodable
// payload, nacks without requeue on a non-retryable dispatch failure, and
// nacks with requeue on a retryable one so the broker redelivers it.
func (c *Consumer) handle(ctx context.Context, delivery amqp.Delivery) {
	var evt choreographer.Event

	if err := json.Unmarshal(delivery.Body, &evt); err != nil {
		c.logger.Errorf("events consumer: malformed payload, dropping: %v", err)
		_ = delivery.Ack(false)

		return
	}

	_, err := c.dispatcher.Dispatch(ctx, evt)
	if err == nil {
		_ = delivery.Ack(false)
		return
	}

	classified := taxonomy.Reclassify(err)

	c.logger.Errorf("events consumer: dispatch %s/%s failed: %v", evt.Type, evt.SourceRef, err)

	if classified.Retryable {
		_ = delivery.Nack(false, true)
		return
	}

	_ = delivery.Nack(false, false)
}
