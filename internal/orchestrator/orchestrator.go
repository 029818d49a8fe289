package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/atlaspay/aggregator-core/internal/breaker"
	"github.com/atlaspay/aggregator-core/internal/choreographer"
	"github.com/atlaspay/aggregator-core/internal/health"
	"github.com/atlaspay/aggregator-core/internal/platform/mlog"
	"github.com/atlaspay/aggregator-core/internal/platform/mtrace"
	"github.com/atlaspay/aggregator-core/internal/retry"
	"github.com/atlaspay/aggregator-core/internal/router"
	"github.com/atlaspay/aggregator-core/pkg/aggerrors"

	cn "github.com/atlaspay/aggregator-core/pkg/constant"
)

// dispatcher adapts a *choreographer.UseCase's Dispatch method (which
// returns a ledger.PostResult) into the narrow shape ProcessPayment reads.
type dispatcher func(ctx context.Context, evt choreographer.Event) (DispatchResult, error)

// DispatchResult is the subset of ledger.PostResult the orchestrator reads
// after handing a payment_success event to the choreographer.
type DispatchResult struct {
	TransactionID string
	Duplicate     bool
}

// Orchestrator is C11's public surface.
type Orchestrator struct {
	Router      *router.Router
	Health      *health.Tracker
	Breakers    *breaker.Registry
	RetryPolicy retry.Policy
	Adapters    map[string]GatewayAdapter
	Fees        FeeSchedule
	Dispatch    dispatcher
	now         func() time.Time
}

// New builds an Orchestrator. dispatch is typically a thin wrapper around
// a *choreographer.UseCase that adapts ledger.PostResult into
// DispatchResult.
func New(r *router.Router, tracker *health.Tracker, breakers *breaker.Registry, policy retry.Policy, adapters map[string]GatewayAdapter, fees FeeSchedule, dispatch dispatcher) *Orchestrator {
	return &Orchestrator{
		Router: r, Health: tracker, Breakers: breakers, RetryPolicy: policy,
		Adapters: adapters, Fees: fees, Dispatch: dispatch, now: time.Now,
	}
}

// notCircuitOpen vetoes retrying within the same gateway once its breaker
// has opened — spec.md §4.11 step 3 requires advancing to the next
// gateway on breaker-open, not burning retry budget against a gateway that
// will keep rejecting immediately.
func notCircuitOpen(err error) bool {
	return !errors.Is(err, cn.ErrCircuitOpen)
}

// ProcessPayment runs spec.md §4.11's four-step algorithm: plan, then for
// each candidate gateway run Retry(Breaker(Charge)), recording health and
// handing a terminal success to the choreographer; advances to the next
// gateway on any other failure; returns the last classified error once the
// plan is exhausted.
func (o *Orchestrator) ProcessPayment(ctx context.Context, env Envelope) (ProcessPaymentResult, error) {
	logger := mlog.FromContext(ctx)
	ctx, span := mtrace.Start(ctx, "orchestrator.process_payment")
	defer span.End()

	plan := o.Router.Plan(router.Request{Amount: env.Amount, Currency: env.Currency})
	if len(plan) == 0 {
		mtrace.HandleSpanError(&span, "no eligible gateway", cn.ErrNoGatewayAvailable)
		return ProcessPaymentResult{}, aggerrors.ValidateBusinessError(cn.ErrNoGatewayAvailable, "Payment")
	}

	policy := o.RetryPolicy
	policy.RetryablePredicate = combinePredicates(policy.RetryablePredicate, notCircuitOpen)

	var lastErr error

	for _, gateway := range plan {
		adapter, ok := o.Adapters[gateway]
		if !ok {
			continue
		}

		br := o.Breakers.Get(gateway)

		var result ChargeResult

		start := o.now()
		metrics := retry.Metrics{}

		err := retry.Execute(ctx, policy, &metrics, func(ctx context.Context) error {
			return br.Execute(ctx, func(ctx context.Context) error {
				r, chargeErr := adapter.Charge(ctx, env)
				if chargeErr != nil {
					return chargeErr
				}

				result = r

				return nil
			})
		})

		elapsed := o.now().Sub(start)

		if err != nil {
			o.Health.RecordFailure(gateway, elapsed)
			lastErr = err

			logger.Infof("gateway %s failed for tenant %s order %s: %v", gateway, env.Tenant, env.OrderRef, err)

			continue
		}

		o.Health.RecordSuccess(gateway, elapsed)

		dispatchResult, dispatchErr := o.Dispatch(ctx, choreographer.Event{
			Type:        choreographer.EventPaymentSuccess,
			Tenant:      env.Tenant,
			SourceRef:   env.IdempotencyKey,
			Amount:      env.Amount,
			PlatformFee: o.Fees.PlatformFee(env.Amount),
			GatewayFee:  result.GatewayFee,
			Currency:    env.Currency,
			Actor:       "orchestrator",
		})
		if dispatchErr != nil {
			mtrace.HandleSpanError(&span, "payment_success dispatch failed", dispatchErr)
			return ProcessPaymentResult{}, dispatchErr
		}

		return ProcessPaymentResult{
			TransactionID:  dispatchResult.TransactionID,
			Gateway:        gateway,
			Status:         "success",
			ResponseTimeMs: elapsed.Milliseconds(),
			Duplicate:      dispatchResult.Duplicate,
		}, nil
	}

	mtrace.HandleSpanError(&span, "payment plan exhausted", lastErr)

	if lastErr == nil {
		lastErr = cn.ErrNoGatewayAvailable
	}

	return ProcessPaymentResult{}, aggerrors.ValidateBusinessError(lastErr, "Payment")
}

func combinePredicates(a, b func(error) bool) func(error) bool {
	return func(err error) bool {
		if a != nil && !a(err) {
			return false
		}

		return b(err)
	}
}
