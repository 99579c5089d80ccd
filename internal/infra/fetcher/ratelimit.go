package fetcher

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimiter throttles outbound calls to a source's servers so a large
// refresh or a burst of queued downloads cannot be mistaken for abuse.
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter creates a token-bucket limiter allowing requestsPerSecond
// sustained, with up to burst requests immediately.
func NewRateLimiter(requestsPerSecond float64, burst int) *RateLimiter {
	return &RateLimiter{limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), burst)}
}

// Wait blocks until a token is available or ctx is cancelled.
func (r *RateLimiter) Wait(ctx context.Context) error {
	return r.limiter.Wait(ctx)
}
