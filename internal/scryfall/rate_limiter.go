package scryfall

import (
	"context"
	"sync"
	"time"
)

// RateLimiter spaces outbound requests so the API never sees a sustained
// rate above the configured requests per second. A small burst allowance
// lets the first few calls of a batch go out immediately; Scryfall asks
// clients to stay near 10 requests per second overall.
type RateLimiter struct {
	mu            sync.Mutex
	nextAllowedAt time.Time
	interval      time.Duration
	burst         time.Duration
}

func NewRateLimiter(requestsPerSecond int) *RateLimiter {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 1
	}
	interval := time.Second / time.Duration(requestsPerSecond)
	return &RateLimiter{
		interval: interval,
		burst:    3 * interval,
	}
}

// Wait blocks until the caller may send a request, or until the context is
// done. A cancelled wait does not consume the reserved slot's delay for
// later callers beyond its own reservation.
func (r *RateLimiter) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	now := time.Now()
	// Idle time earns back burst headroom, floored so a long pause never
	// schedules requests in the past by more than the allowance.
	floor := now.Add(-r.burst)
	if r.nextAllowedAt.Before(floor) {
		r.nextAllowedAt = floor
	}
	scheduled := r.nextAllowedAt
	r.nextAllowedAt = scheduled.Add(r.interval)
	r.mu.Unlock()

	sleep := time.Until(scheduled)
	if sleep <= 0 {
		return nil
	}

	timer := time.NewTimer(sleep)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
