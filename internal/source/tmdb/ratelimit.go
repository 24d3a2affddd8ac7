package tmdb

import (
	"context"
	"sync"
	"time"
)

const maxDelay = 5 * time.Second

// rateLimiter enforces a minimum inter-call delay and adapts to the
// provider's 429 responses: the delay doubles after a penalty (capped at
// maxDelay) and decays back toward the base delay after successes.
type rateLimiter struct {
	mu       sync.Mutex
	base     time.Duration
	current  time.Duration
	lastCall time.Time
}

func newRateLimiter(base time.Duration) *rateLimiter {
	return &rateLimiter{base: base, current: base}
}

// Acquire blocks until the minimum delay since the previous call has
// elapsed, or returns early when ctx is cancelled.
func (r *rateLimiter) Acquire(ctx context.Context) error {
	r.mu.Lock()
	wait := time.Duration(0)
	if !r.lastCall.IsZero() {
		if elapsed := time.Since(r.lastCall); elapsed < r.current {
			wait = r.current - elapsed
		}
	}
	r.lastCall = time.Now().Add(wait)
	r.mu.Unlock()

	if wait <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Penalize doubles the delay after a rate-limit response.
func (r *rateLimiter) Penalize() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.current *= 2
	if r.current > maxDelay {
		r.current = maxDelay
	}
}

// Reward decays the delay back toward the base after a successful call.
func (r *rateLimiter) Reward() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current > r.base {
		r.current = r.current * 9 / 10
		if r.current < r.base {
			r.current = r.base
		}
	}
}

func (r *rateLimiter) delay() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}
