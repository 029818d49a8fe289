// Package mcircuitbreaker adapts the core's own State/Counts vocabulary
// onto github.com/LerianStudio/lib-commons/v2/commons/circuitbreaker's
// StateChangeListener, the same indirection the teacher's
// pkg/mcircuitbreaker package applies, so breaker state transitions (C3)
// can be forwarded to whatever observability sink lib-commons wires up
// without C3 depending on that package directly.
package mcircuitbreaker

import (
	libCircuitBreaker "github.com/LerianStudio/lib-commons/v2/commons/circuitbreaker"
)

// State mirrors libCircuitBreaker.State without requiring every caller in
// this module to import the lib-commons package directly.
type State string

const (
	StateClosed   State = "CLOSED"
	StateOpen     State = "OPEN"
	StateHalfOpen State = "HALF_OPEN"
	StateUnknown  State = "UNKNOWN"
)

// Counts mirrors libCircuitBreaker.Counts.
type Counts struct {
	Requests             uint32
	TotalSuccesses       uint32
	TotalFailures        uint32
	ConsecutiveSuccesses uint32
	ConsecutiveFailures  uint32
}

// StateChangeEvent is what a StateListener receives on every breaker
// transition.
type StateChangeEvent struct {
	ServiceName string
	FromState   State
	ToState     State
	Counts      Counts
}

// StateListener is implemented by anything that wants to observe breaker
// transitions (metrics exporters, audit logs, the HTTP adapter's health
// endpoint).
type StateListener interface {
	OnCircuitBreakerStateChange(event StateChangeEvent)
}

func convertState(s libCircuitBreaker.State) State {
	switch s {
	case libCircuitBreaker.StateClosed:
		return StateClosed
	case libCircuitBreaker.StateOpen:
		return StateOpen
	case libCircuitBreaker.StateHalfOpen:
		return StateHalfOpen
	default:
		return StateUnknown
	}
}

// LibCommonsAdapter implements libCircuitBreaker.StateChangeListener and
// forwards every callback to an inner StateListener using our own
// vocabulary.
type LibCommonsAdapter struct {
	inner StateListener
}

// NewLibCommonsAdapter builds an adapter forwarding to inner. inner may be
// nil, in which case OnStateChange is a no-op.
func NewLibCommonsAdapter(inner StateListener) *LibCommonsAdapter {
	return &LibCommonsAdapter{inner: inner}
}

// OnStateChange implements libCircuitBreaker.StateChangeListener.
func (a *LibCommonsAdapter) OnStateChange(serviceName string, from, to libCircuitBreaker.State, counts libCircuitBreaker.Counts) {
	if a.inner == nil {
		return
	}

	a.inner.OnCircuitBreakerStateChange(StateChangeEvent{
		ServiceName: serviceName,
		FromState:   convertState(from),
		ToState:     convertState(to),
		Counts: Counts{
			Requests:             counts.Requests,
			TotalSuccesses:       counts.TotalSuccesses,
			TotalFailures:        counts.TotalFailures,
			ConsecutiveSuccesses: counts.ConsecutiveSuccesses,
			ConsecutiveFailures:  counts.ConsecutiveFailures,
		},
	})
}

var _ libCircuitBreaker.StateChangeListener = (*LibCommonsAdapter)(nil)
