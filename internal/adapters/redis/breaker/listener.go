// Package breaker persists C3 breaker state transitions to Redis so a
// process other than the one that observed the transition (an admin API,
// a separate health-check process) can read the latest state without
// sharing the in-memory breaker.Registry.
package breaker

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/atlaspay/aggregator-core/internal/platform/mcircuitbreaker"
	"github.com/atlaspay/aggregator-core/internal/platform/mlog"
)

const keyPrefix = "aggregator:breaker:"

// cachedState is the msgpack-encoded snapshot stored per gateway.
type cachedState struct {
	ServiceName string                    `msgpack:"service_name"`
	State       mcircuitbreaker.State     `msgpack:"state"`
	Counts      mcircuitbreaker.Counts    `msgpack:"counts"`
	At          time.Time                 `msgpack:"at"`
}

// Listener implements mcircuitbreaker.StateListener by writing every
// transition to Redis with a TTL so a stale entry for a gateway nobody
// calls anymore eventually disappears on its own.
type Listener struct {
	client *redis.Client
	ttl    time.Duration
	logger mlog.Logger
}

// New builds a Listener writing through client with ttl per entry.
func New(client *redis.Client, ttl time.Duration, logger mlog.Logger) *Listener {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	return &Listener{client: client, ttl: ttl, logger: logger}
}

var _ mcircuitbreaker.StateListener = (*Listener)(nil)

func (l *Listener) OnCircuitBreakerStateChange(event mcircuitbreaker.StateChangeEvent) {
	snapshot := cachedState{
		ServiceName: event.ServiceName,
		State:       event.ToState,
		Counts:      event.Counts,
		At:          time.Now(),
	}

	data, err := msgpack.Marshal(snapshot)
	if err != nil {
		l.logger.Errorf("breaker cache: marshal snapshot for %s: %v", event.ServiceName, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := l.client.Set(ctx, keyPrefix+event.ServiceName, data, l.ttl).Err(); err != nil {
		l.logger.Errorf("breaker cache: write snapshot for %s: %v", event.ServiceName, err)
	}
}

// Snapshot reads back the last cached state for gateway, or (nil, nil) if
// nothing has been cached yet (a breaker that has never tripped).
func (l *Listener) Snapshot(ctx context.Context, gateway string) (*mcircuitbreaker.StateChangeEvent, error) {
	data, err := l.client.Get(ctx, keyPrefix+gateway).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}

		return nil, err
	}

	var cached cachedState
	if err := msgpack.Unmarshal(data, &cached); err != nil {
		return nil, err
	}

	return &mcircuitbreaker.StateChangeEvent{
		ServiceName: cached.ServiceName,
		ToState:     cached.State,
		Counts:      cached.Counts,
	}, nil
}
