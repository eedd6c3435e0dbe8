package httpx

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// MaxRetryAfter caps the pause honoured from a Retry-After header.
const MaxRetryAfter = time.Minute

// Limiter throttles requests to one provider. It combines a token bucket
// with a pause requested by the provider through Retry-After.
// A nil *Limiter never blocks.
type Limiter struct {
	mu      sync.Mutex
	bucket  *rate.Limiter
	retryAt time.Time
	now     func() time.Time
}

// NewLimiter creates a limiter allowing requestsPerSecond with the given
// burst. A non-positive rate returns nil, which disables throttling.
func NewLimiter(requestsPerSecond float64, burst int) *Limiter {
	if requestsPerSecond <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = max(1, int(requestsPerSecond))
	}
	return &Limiter{
		bucket: rate.NewLimiter(rate.Limit(requestsPerSecond), burst),
		now:    time.Now,
	}
}

// Wait blocks until a request may be sent or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil {
		return ctx.Err()
	}

	l.mu.Lock()
	pause := l.retryAt.Sub(l.now())
	l.mu.Unlock()

	if pause > 0 {
		timer := time.NewTimer(pause)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	return l.bucket.Wait(ctx)
}

// Pause holds every request for d, capped at MaxRetryAfter. A shorter pause
// never cuts an earlier, longer one.
func (l *Limiter) Pause(d time.Duration) {
	if l == nil || d <= 0 {
		return
	}
	d = min(d, MaxRetryAfter)

	l.mu.Lock()
	defer l.mu.Unlock()
	if until := l.now().Add(d); until.After(l.retryAt) {
		l.retryAt = until
	}
}

// Allow reports whether a request may be sent immediately.
func (l *Limiter) Allow() bool {
	if l == nil {
		return true
	}
	l.mu.Lock()
	paused := l.now().Before(l.retryAt)
	l.mu.Unlock()
	if paused {
		return false
	}
	return l.bucket.Allow()
}
