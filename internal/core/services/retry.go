package services

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/custodia-labs/faersight/internal/core/domain"
	"github.com/custodia-labs/faersight/internal/logger"
)

// RetryPolicy retries transient provider failures with randomised
// exponential backoff. Only errors classified by domain.IsTransient are
// retried; everything else fails on the first attempt.
type RetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration

	// sleep and jitter are replaced in tests.
	sleep  func(ctx context.Context, d time.Duration) error
	jitter func(n int64) int64
}

// NewRetryPolicy creates a policy from settings, filling unset fields with
// the defaults (3 attempts, 1s initial, 20s cap).
func NewRetryPolicy(settings domain.RetrySettings) *RetryPolicy {
	defaults := domain.DefaultAppSettings().Retry
	if settings.MaxAttempts <= 0 {
		settings.MaxAttempts = defaults.MaxAttempts
	}
	if settings.InitialBackoff <= 0 {
		settings.InitialBackoff = defaults.InitialBackoff
	}
	if settings.MaxBackoff < settings.InitialBackoff {
		settings.MaxBackoff = max(defaults.MaxBackoff, settings.InitialBackoff)
	}
	return &RetryPolicy{
		MaxAttempts:    settings.MaxAttempts,
		InitialBackoff: settings.InitialBackoff,
		MaxBackoff:     settings.MaxBackoff,
		sleep:          sleepContext,
		jitter:         rand.Int64N,
	}
}

// Backoff returns the wait before the attempt following the given one.
// The wait is drawn from [InitialBackoff, min(MaxBackoff, InitialBackoff*2^(attempt-1))].
func (p *RetryPolicy) Backoff(attempt int) time.Duration {
	ceiling := p.InitialBackoff
	for i := 1; i < attempt && ceiling < p.MaxBackoff; i++ {
		ceiling *= 2
	}
	ceiling = min(ceiling, p.MaxBackoff)

	spread := int64(ceiling - p.InitialBackoff)
	if spread <= 0 {
		return p.InitialBackoff
	}
	return p.InitialBackoff + time.Duration(p.jitter(spread+1))
}

// Retry runs op under the policy. A permanent failure is returned as a
// *domain.ProviderError after one attempt; running out of attempts returns
// one with Exhausted set.
func Retry[T any](ctx context.Context, p *RetryPolicy, provider string, op func(context.Context) (T, error)) (T, error) {
	var zero T
	for attempt := 1; ; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return zero, ctxErr
		}
		if !domain.IsTransient(err) {
			return zero, &domain.ProviderError{Provider: provider, Attempts: attempt, Err: err}
		}
		if attempt >= p.MaxAttempts {
			logger.Warn("%s: giving up after %d attempts: %v", provider, attempt, err)
			return zero, &domain.ProviderError{Provider: provider, Attempts: attempt, Exhausted: true, Err: err}
		}

		wait := p.Backoff(attempt)
		logger.Debug("%s: attempt %d failed (%v), retrying in %s", provider, attempt, err, wait)
		if err := p.sleep(ctx, wait); err != nil {
			return zero, err
		}
	}
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// isContextError reports whether err came from cancellation or deadline.
func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
