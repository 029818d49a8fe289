// Package breaker implements C3: a per-gateway CLOSED -> OPEN -> HALF_OPEN
// -> CLOSED circuit breaker (spec.md §4.3). Volume threshold gating and
// the lazy OPEN -> HALF_OPEN transition are both enforced here; state
// transitions are emitted to an optional mcircuitbreaker.StateListener.
package breaker

import (
	"context"
	"sync"
	"time"

	"github.com/atlaspay/aggregator-core/internal/platform/mcircuitbreaker"
	cn "github.com/atlaspay/aggregator-core/pkg/constant"
)

// State is one of CLOSED, OPEN, HALF_OPEN.
type State string

const (
	StateClosed   State = "CLOSED"
	StateOpen     State = "OPEN"
	StateHalfOpen State = "HALF_OPEN"
)

// Config holds the tunables spec.md §4.3 names, each with its documented
// default.
type Config struct {
	FailureWindow     time.Duration // default 60s
	VolumeThreshold   int           // default 10
	FailureThreshold  int           // default 5
	OpenTimeout       time.Duration // default 30s
	SuccessThreshold  int           // default 2
	RequestTimeout    time.Duration // default 10s
}

// DefaultConfig returns the spec's documented defaults.
func DefaultConfig() Config {
	return Config{
		FailureWindow:    60 * time.Second,
		VolumeThreshold:  10,
		FailureThreshold: 5,
		OpenTimeout:      30 * time.Second,
		SuccessThreshold: 2,
		RequestTimeout:   10 * time.Second,
	}
}

// windowEntry tracks one attempt's outcome for volume/failure counting
// within FailureWindow.
type windowEntry struct {
	at      time.Time
	success bool
}

// Breaker is a single gateway's circuit. It is safe for concurrent use; a
// single mutex per breaker enforces the contract that state transitions are
// observed exactly once (§5).
type Breaker struct {
	mu sync.Mutex

	name   string
	cfg    Config
	now    func() time.Time
	listen mcircuitbreaker.StateListener

	state                State
	openedAt             time.Time
	consecutiveFailures  int
	consecutiveSuccesses int
	halfOpenAttempts     int
	entries              []windowEntry

	totalRequests uint32
	totalFailures uint32
	totalSuccess  uint32
}

// New builds a Breaker for gateway name with cfg. listen may be nil.
func New(name string, cfg Config, listen mcircuitbreaker.StateListener) *Breaker {
	return &Breaker{
		name:   name,
		cfg:    cfg,
		now:    time.Now,
		listen: listen,
		state:  StateClosed,
	}
}

// State returns the breaker's current state, applying the lazy OPEN ->
// HALF_OPEN transition if open_timeout has elapsed (§4.3: "triggered by
// the next attempted call; no scheduler required").
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.maybeTransitionToHalfOpen()

	return b.state
}

func (b *Breaker) maybeTransitionToHalfOpen() {
	if b.state == StateOpen && b.now().Sub(b.openedAt) >= b.cfg.OpenTimeout {
		b.transition(StateHalfOpen)
		b.consecutiveSuccesses = 0
		b.halfOpenAttempts = 0
	}
}

// Execute runs fn under the breaker's protection: rejects immediately if
// OPEN, bounds fn by RequestTimeout, and updates state on the outcome. While
// HALF_OPEN it admits at most SuccessThreshold concurrent probes (§4.3: "only
// success_threshold attempts flow before a decision") and rejects the rest
// with ErrCircuitOpen rather than letting every caller through.
func (b *Breaker) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	b.mu.Lock()
	b.maybeTransitionToHalfOpen()

	switch b.state {
	case StateOpen:
		b.mu.Unlock()
		return cn.ErrCircuitOpen
	case StateHalfOpen:
		if b.halfOpenAttempts >= b.cfg.SuccessThreshold {
			b.mu.Unlock()
			return cn.ErrCircuitOpen
		}

		b.halfOpenAttempts++
	}

	b.mu.Unlock()

	callCtx, cancel := context.WithTimeout(ctx, b.cfg.RequestTimeout)
	defer cancel()

	err := fn(callCtx)

	if err == nil {
		b.onSuccess()
		return nil
	}

	if callCtx.Err() != nil && ctx.Err() == nil {
		// fn exceeded RequestTimeout but the caller's own context is
		// still live: this is our timeout, not a cancellation.
		b.onFailure()
		return cn.ErrOperationTimeout
	}

	b.onFailure()

	return err
}

func (b *Breaker) onSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.recordEntry(true)
	b.consecutiveFailures = 0
	b.consecutiveSuccesses++
	b.totalSuccess++

	if b.state == StateHalfOpen && b.consecutiveSuccesses >= b.cfg.SuccessThreshold {
		b.transition(StateClosed)
		b.resetCounters()
	}
}

func (b *Breaker) onFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.recordEntry(false)
	b.consecutiveSuccesses = 0
	b.consecutiveFailures++
	b.totalFailures++

	if b.state == StateHalfOpen {
		b.transition(StateOpen)
		b.openedAt = b.now()
		b.halfOpenAttempts = 0

		return
	}

	if b.state == StateClosed {
		total, failures := b.windowCounts()
		if total >= b.cfg.VolumeThreshold && failures >= b.cfg.FailureThreshold {
			b.transition(StateOpen)
			b.openedAt = b.now()
		}
	}
}

func (b *Breaker) recordEntry(success bool) {
	b.totalRequests++
	b.entries = append(b.entries, windowEntry{at: b.now(), success: success})

	cutoff := b.now().Add(-b.cfg.FailureWindow)

	pruned := b.entries[:0]

	for _, e := range b.entries {
		if !e.at.Before(cutoff) {
			pruned = append(pruned, e)
		}
	}

	b.entries = pruned
}

func (b *Breaker) windowCounts() (total, failures int) {
	cutoff := b.now().Add(-b.cfg.FailureWindow)

	for _, e := range b.entries {
		if e.at.Before(cutoff) {
			continue
		}

		total++

		if !e.success {
			failures++
		}
	}

	return total, failures
}

func (b *Breaker) resetCounters() {
	b.consecutiveFailures = 0
	b.consecutiveSuccesses = 0
	b.halfOpenAttempts = 0
	b.entries = nil
}

// Reset clears all counters and returns the breaker to CLOSED.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.transition(StateClosed)
	b.resetCounters()
}

func (b *Breaker) transition(to State) {
	from := b.state
	if from == to {
		return
	}

	b.state = to

	if b.listen != nil {
		b.listen.OnCircuitBreakerStateChange(mcircuitbreaker.StateChangeEvent{
			ServiceName: b.name,
			FromState:   mcircuitbreaker.State(from),
			ToState:     mcircuitbreaker.State(to),
			Counts: mcircuitbreaker.Counts{
				Requests:             b.totalRequests,
				TotalSuccesses:       b.totalSuccess,
				TotalFailures:        b.totalFailures,
				ConsecutiveSuccesses: uint32(b.consecutiveSuccesses),
				ConsecutiveFailures:  uint32(b.consecutiveFailures),
			},
		})
	}
}

// Registry owns one Breaker per gateway, created lazily, so the router and
// orchestrator share a single circuit per gateway name across goroutines.
type Registry struct {
	mu       sync.Mutex
	cfg      Config
	listen   mcircuitbreaker.StateListener
	breakers map[string]*Breaker
}

// NewRegistry builds a Registry applying cfg to every breaker it creates.
func NewRegistry(cfg Config, listen mcircuitbreaker.StateListener) *Registry {
	return &Registry{cfg: cfg, listen: listen, breakers: make(map[string]*Breaker)}
}

// Get returns (creating if necessary) the Breaker for gateway.
func (r *Registry) Get(gateway string) *Breaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.breakers[gateway]
	if !ok {
		b = New(gateway, r.cfg, r.listen)
		r.breakers[gateway] = b
	}

	return b
}
