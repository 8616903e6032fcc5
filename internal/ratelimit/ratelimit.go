// Package ratelimit provides the shared admission control for outbound
// provider calls. A single Bucket is constructed at startup and handed
// to every provider client.
package ratelimit

import (
	"time"

	"golang.org/x/time/rate"
)

// Bucket is a token bucket sized from a requests-per-minute budget. The
// capacity equals the budget and tokens refill at budget/60 per second.
type Bucket struct {
	limiter *rate.Limiter
}

// New creates a bucket for the given requests-per-minute budget. A
// non-positive budget falls back to one request per minute.
func New(rpm int) *Bucket {
	if rpm <= 0 {
		rpm = 1
	}
	return &Bucket{
		limiter: rate.NewLimiter(rate.Limit(float64(rpm)/60.0), rpm),
	}
}

// Allow consumes one token if available and reports whether the call is
// admitted. It never blocks; callers must treat false as an immediate
// failure. The refill-and-check sequence is a single critical section
// inside the limiter, so concurrent callers cannot double-spend a token.
func (b *Bucket) Allow() bool {
	return b.limiter.Allow()
}

// AllowN consumes n tokens at the given instant. Exposed for tests that
// need to drive the clock deterministically.
func (b *Bucket) AllowN(now time.Time, n int) bool {
	return b.limiter.AllowN(now, n)
}

// Tokens reports the tokens currently available. Refills are monotonic in
// wall-clock time and the value is clamped to the configured capacity.
func (b *Bucket) Tokens() float64 {
	return b.limiter.Tokens()
}

// TokensAt reports the tokens available at the given instant.
func (b *Bucket) TokensAt(now time.Time) float64 {
	return b.limiter.TokensAt(now)
}

// Burst returns the bucket capacity.
func (b *Bucket) Burst() int {
	return b.limiter.Burst()
}
