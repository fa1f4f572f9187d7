package ratelimiter

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimiter throttles incoming file manager requests with a token bucket.
//
// A zero rate disables limiting entirely: Allow always succeeds and Wait
// never blocks. Thread safety: all methods are safe for concurrent use.
type RateLimiter struct {
	limiter *rate.Limiter
}

// New creates a limiter admitting requestsPerSecond sustained requests with
// bursts of up to burst requests.
//
// When burst is 0 it defaults to requestsPerSecond, so a configuration that
// only sets a rate still admits one second worth of traffic at once.
func New(requestsPerSecond, burst uint) *RateLimiter {
	if requestsPerSecond == 0 {
		return &RateLimiter{limiter: rate.NewLimiter(rate.Inf, 0)}
	}
	if burst == 0 {
		burst = requestsPerSecond
	}

	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), int(burst)),
	}
}

// Unlimited reports whether the limiter admits every request.
func (r *RateLimiter) Unlimited() bool {
	return r.limiter.Limit() == rate.Inf
}

// Allow consumes a token if one is available and reports whether it did.
// The HTTP gateway uses it to reject excess requests with 429.
func (r *RateLimiter) Allow() bool {
	return r.limiter.Allow()
}

// Wait blocks until a token is available or ctx is done.
func (r *RateLimiter) Wait(ctx context.Context) error {
	return r.limiter.Wait(ctx)
}

// Tokens returns the number of tokens currently in the bucket.
func (r *RateLimiter) Tokens() float64 {
	return r.limiter.Tokens()
}
