// Package retry implements C4: executing a function under an exponential
// backoff policy gated by the C1 error taxonomy's retryable classification
// (spec.md §4.4).
package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/atlaspay/aggregator-core/internal/taxonomy"
)

// Policy mirrors spec.md §4.4's named fields, each with a With* chained
// setter so callers can start from DefaultPolicy and override only what
// they need.
type Policy struct {
	MaxAttempts        int
	InitialDelay       time.Duration
	Multiplier         float64
	MaxDelay           time.Duration
	JitterEnabled      bool
	RetryablePredicate func(err error) bool
}

// DefaultPolicy returns the spec's documented defaults: 3 attempts, 1s
// initial delay, 2x multiplier, 30s ceiling, jitter on.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:        3,
		InitialDelay:       time.Second,
		Multiplier:         2,
		MaxDelay:           30 * time.Second,
		JitterEnabled:      true,
		RetryablePredicate: func(error) bool { return true },
	}
}

func (p Policy) WithMaxAttempts(n int) Policy {
	p.MaxAttempts = n
	return p
}

func (p Policy) WithInitialDelay(d time.Duration) Policy {
	p.InitialDelay = d
	return p
}

func (p Policy) WithMultiplier(m float64) Policy {
	p.Multiplier = m
	return p
}

func (p Policy) WithMaxDelay(d time.Duration) Policy {
	p.MaxDelay = d
	return p
}

func (p Policy) WithJitterEnabled(enabled bool) Policy {
	p.JitterEnabled = enabled
	return p
}

func (p Policy) WithRetryablePredicate(pred func(err error) bool) Policy {
	p.RetryablePredicate = pred
	return p
}

// ConfigValidationError reports a single invalid Policy field.
type ConfigValidationError struct {
	Field   string
	Message string
}

func (e ConfigValidationError) Error() string {
	return fmt.Sprintf("retry: invalid %s: %s", e.Field, e.Message)
}

// Validate rejects policies that would make delay() misbehave.
func (p Policy) Validate() error {
	if p.MaxAttempts < 1 {
		return ConfigValidationError{"MaxAttempts", "must be >= 1"}
	}

	if p.InitialDelay <= 0 {
		return ConfigValidationError{"InitialDelay", "must be > 0"}
	}

	if p.MaxDelay <= 0 {
		return ConfigValidationError{"MaxDelay", "must be > 0"}
	}

	if p.MaxDelay < p.InitialDelay {
		return ConfigValidationError{"MaxDelay", "must be >= InitialDelay"}
	}

	if p.Multiplier < 1 {
		return ConfigValidationError{"Multiplier", "must be >= 1"}
	}

	return nil
}

// delay returns the backoff before attempt k (0-indexed), per §4.4:
// min(initial*multiplier^k, max_delay), optionally scaled by a uniform
// jitter factor in [0.85, 1.15].
func (p Policy) delay(k int) time.Duration {
	base := float64(p.InitialDelay)
	for i := 0; i < k; i++ {
		base *= p.Multiplier
	}

	if d := float64(p.MaxDelay); base > d {
		base = d
	}

	if p.JitterEnabled {
		base *= 0.85 + rand.Float64()*0.30
	}

	return time.Duration(base)
}

// Metrics accumulates observability counters. It never gates retry
// behaviour (§4.4: "exposed for observability, never gates behaviour").
type Metrics struct {
	TotalAttempts    int
	SuccessfulRetries int
	FailedRetries    int
}

// Execute runs fn, retrying per policy while the raised error classifies
// as retryable (via taxonomy.Reclassify) and policy.RetryablePredicate
// accepts it, up to MaxAttempts total attempts. It stops early if ctx is
// cancelled. On exhaustion the last error is returned unchanged.
func Execute(ctx context.Context, policy Policy, metrics *Metrics, fn func(ctx context.Context) error) error {
	if metrics == nil {
		metrics = &Metrics{}
	}

	pred := policy.RetryablePredicate
	if pred == nil {
		pred = func(error) bool { return true }
	}

	var lastErr error

	for attempt := 0; attempt < policy.MaxAttempts; attempt++ {
		metrics.TotalAttempts++

		err := fn(ctx)
		if err == nil {
			if attempt > 0 {
				metrics.SuccessfulRetries++
			}

			return nil
		}

		lastErr = err

		classified := taxonomy.Reclassify(err)

		retryable := classified.Retryable && pred(err)
		attemptsRemain := attempt < policy.MaxAttempts-1

		if !retryable || !attemptsRemain {
			if attempt > 0 {
				metrics.FailedRetries++
			}

			return err
		}

		select {
		case <-ctx.Done():
			return errors.Join(lastErr, ctx.Err())
		case <-time.After(policy.delay(attempt)):
		}
	}

	return lastErr
}
