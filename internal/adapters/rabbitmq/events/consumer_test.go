package events

import (
	"context"
	"encoding/json"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlaspay/aggregator-core/internal/choreographer"
	"github.com/atlaspay/aggregator-core/internal/ledger"
	"github.com/atlaspay/aggregator-core/internal/platform/mlog"
	"github.com/atlaspay/aggregator-core/internal/taxonomy"
)

// fakeAcknowledger records the terminal decision handle made on a delivery
// without needing a live broker connection.
type fakeAcknowledger struct {
	acked   bool
	nacked  bool
	requeue bool
}

func (f *fakeAcknowledger) Ack(tag uint64, multiple bool) error {
	f.acked = true
	return nil
}

func (f *fakeAcknowledger) Nack(tag uint64, multiple, requeue bool) error {
	f.nacked = true
	f.requeue = requeue

	return nil
}

func (f *fakeAcknowledger) Reject(tag uint64, requeue bool) error { return nil }

type dispatchFunc func(ctx context.Context, evt choreographer.Event) (ledger.PostResult, error)

func (f dispatchFunc) Dispatch(ctx context.Context, evt choreographer.Event) (ledger.PostResult, error) {
	return f(ctx, evt)
}

func deliveryFor(t *testing.T, evt choreographer.Event, ack *fakeAcknowledger) amqp.Delivery {
	t.Helper()

	body, err := json.Marshal(evt)
	require.NoError(t, err)

	return amqp.Delivery{Acknowledger: ack, Body: body}
}

func TestConsumerHandle_AcksOnSuccessfulDispatch(t *testing.T) {
	ack := &fakeAcknowledger{}
	evt := choreographer.Event{Type: choreographer.EventPaymentSuccess, SourceRef: "txn_1"}

	c := &Consumer{
		dispatcher: dispatchFunc(func(ctx context.Context, evt choreographer.Event) (ledger.PostResult, error) {
			return ledger.PostResult{}, nil
		}),
		logger: mlog.NoOp{},
	}

	c.handle(context.Background(), deliveryFor(t, evt, ack))

	assert.True(t, ack.acked)
	assert.False(t, ack.nacked)
}

func TestConsumerHandle_AcksAndDropsMalformedPayload(t *testing.T) {
	ack := &fakeAcknowledger{}

	c := &Consumer{
		dispatcher: dispatchFunc(func(ctx context.Context, evt choreographer.Event) (ledger.PostResult, error) {
			t.Fatal("dispatch must not be called for an undecodable delivery")
			return ledger.PostResult{}, nil
		}),
		logger: mlog.NoOp{},
	}

	c.handle(context.Background(), amqp.Delivery{Acknowledger: ack, Body: []byte("not json")})

	assert.True(t, ack.acked)
	assert.False(t, ack.nacked)
}

func TestConsumerHandle_RequeuesOnRetryableDispatchFailure(t *testing.T) {
	ack := &fakeAcknowledger{}
	evt := choreographer.Event{Type: choreographer.EventPaymentSuccess, SourceRef: "txn_1"}

	retryable := taxonomy.Classify(taxonomy.CategoryTimeout, taxonomy.SeverityMedium, "gateway callback timed out", nil, nil)

	c := &Consumer{
		dispatcher: dispatchFunc(func(ctx context.Context, evt choreographer.Event) (ledger.PostResult, error) {
			return ledger.PostResult{}, retryable
		}),
		logger: mlog.NoOp{},
	}

	c.handle(context.Background(), deliveryFor(t, evt, ack))

	assert.False(t, ack.acked)
	assert.True(t, ack.nacked)
	assert.True(t, ack.requeue)
}

func TestConsumerHandle_DeadLettersOnNonRetryableDispatchFailure(t *testing.T) {
	ack := &fakeAcknowledger{}
	evt := choreographer.Event{Type: choreographer.EventPaymentSuccess, SourceRef: "txn_1"}

	nonRetryable := taxonomy.Classify(taxonomy.CategoryValidation, taxonomy.SeverityHigh, "unknown event type", nil, nil)

	c := &Consumer{
		dispatcher: dispatchFunc(func(ctx context.Context, evt choreographer.Event) (ledger.PostResult, error) {
			return ledger.PostResult{}, nonRetryable
		}),
		logger: mlog.NoOp{},
	}

	c.handle(context.Background(), deliveryFor(t, evt, ack))

	assert.False(t, ack.acked)
	assert.True(t, ack.nacked)
	assert.False(t, ack.requeue)
}
