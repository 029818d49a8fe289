package orchestrator

import (
	"context"
	"sync"

	"github.com/atlaspay/aggregator-core/internal/taxonomy"
)

// NoopAdapter always succeeds with a zero GatewayFee; useful as a
// placeholder wiring target before a real per-provider codec exists.
type NoopAdapter struct {
	Name string
}

func (a NoopAdapter) Charge(ctx context.Context, env Envelope) (ChargeResult, error) {
	return ChargeResult{GatewayTxnRef: a.Name + ":" + env.IdempotencyKey}, nil
}

// scriptedCall is one queued response a FakeAdapter will return, in order.
type scriptedCall struct {
	result ChargeResult
	err    error
}

// FakeAdapter is a test double that can be scripted to fail or succeed per
// call, standing in for the per-provider codecs explicitly out of scope
// (Design Notes, spec.md §9).
type FakeAdapter struct {
	mu     sync.Mutex
	name   string
	script []scriptedCall
	calls  int
}

// NewFakeAdapter builds a FakeAdapter for gateway name with no scripted
// calls; use WithSuccess/WithFailure to queue responses.
func NewFakeAdapter(name string) *FakeAdapter {
	return &FakeAdapter{name: name}
}

// WithSuccess queues a successful charge.
func (a *FakeAdapter) WithSuccess(fee ChargeResult) *FakeAdapter {
	a.script = append(a.script, scriptedCall{result: fee})
	return a
}

// WithFailure queues a failing charge classified as err.
func (a *FakeAdapter) WithFailure(err error) *FakeAdapter {
	a.script = append(a.script, scriptedCall{err: err})
	return a
}

// WithNetworkError queues a retryable network-classified failure, the
// shape S3 exercises.
func (a *FakeAdapter) WithNetworkError(message string) *FakeAdapter {
	return a.WithFailure(taxonomy.Classify(taxonomy.CategoryNetwork, taxonomy.SeverityMedium, message, nil, nil))
}

func (a *FakeAdapter) Charge(ctx context.Context, env Envelope) (ChargeResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	idx := a.calls
	a.calls++

	if idx >= len(a.script) {
		return ChargeResult{GatewayTxnRef: a.name + ":" + env.IdempotencyKey}, nil
	}

	call := a.script[idx]
	if call.err != nil {
		return ChargeResult{}, call.err
	}

	return call.result, nil
}

// CallCount reports how many times Charge has been invoked.
func (a *FakeAdapter) CallCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.calls
}
