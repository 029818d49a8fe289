// Package events publishes and consumes choreographer.Event messages over
// rabbitmq, grounded on the teacher's common/mrabbitmq connection hub but
// reworked for the maintained amqp091-go client (see
// internal/platform/mrabbitmq) instead of the teacher's streadway/amqp.
package events

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/atlaspay/aggregator-core/internal/choreographer"
)

const (
	// ExchangeName is the topic exchange every event type is published to.
	ExchangeName = "aggregator.events"
	// QueueName is the durable queue the choreographer consumer drains.
	QueueName = "aggregator.choreographer"
	// RoutingKeyPrefix namespaces routing keys by event type, e.g.
	// "event.payment_success".
	RoutingKeyPrefix = "event."
)

// Producer publishes choreographer events onto the topic exchange.
type Producer struct {
	channel *amqp.Channel
}

// NewProducer builds a Producer over an already-open channel and declares
// the exchange it publishes to.
func NewProducer(channel *amqp.Channel) (*Producer, error) {
	if err := channel.ExchangeDeclare(ExchangeName, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	return &Producer{channel: channel}, nil
}

// Publish marshals evt as JSON and publishes it under a per-type routing
// key, persisted (DeliveryMode 2) so a broker restart does not drop it.
func (p *Producer) Publish(ctx context.Context, evt choreographer.Event) error {
	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	routingKey := RoutingKeyPrefix + string(evt.Type)

	return p.channel.PublishWithContext(ctx, ExchangeName, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
		Type:         string(evt.Type),
		AppId:        evt.Tenant,
		MessageId:    evt.SourceRef,
	})
}
