package p2p

import (
	"context"
	"sync"
	"time"
)

// RateLimiter paces outgoing searches with a token bucket. The
// marketplace throttles aggressive clients, so searches queue here
// rather than burst upstream.
type RateLimiter struct {
	rate  float64 // refill rate, tokens per second
	burst int     // bucket capacity

	mu     sync.Mutex
	tokens float64
	last   time.Time // last refill
}

// NewRateLimiter creates a limiter that starts with a full bucket
func NewRateLimiter(requestsPerSecond float64, burst int) *RateLimiter {
	return &RateLimiter{
		rate:   requestsPerSecond,
		burst:  burst,
		tokens: float64(burst),
		last:   time.Now(),
	}
}

// Rate returns the refill rate in tokens per second
func (rl *RateLimiter) Rate() float64 {
	return rl.rate
}

// Burst returns the bucket capacity
func (rl *RateLimiter) Burst() int {
	return rl.burst
}

// TryAcquire takes a token if one is available, without blocking
func (rl *RateLimiter) TryAcquire() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.refillTokens()

	if rl.tokens >= 1.0 {
		rl.tokens -= 1.0
		return true
	}

	return false
}

// Wait blocks until a token is available or ctx is cancelled. A zero
// rate with an empty bucket cannot ever produce a token.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if rl.TryAcquire() {
		return nil
	}

	if rl.rate == 0 {
		return context.DeadlineExceeded
	}

	waitTime := time.Duration((1.0 / rl.rate) * float64(time.Second))

	select {
	case <-time.After(waitTime):
		if rl.TryAcquire() {
			return nil
		}
		return rl.Wait(ctx)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// refillTokens credits tokens for the time elapsed since the last
// refill, capped at the bucket capacity. Caller holds the lock.
func (rl *RateLimiter) refillTokens() {
	now := time.Now()
	elapsed := now.Sub(rl.last).Seconds()

	rl.tokens += elapsed * rl.rate
	if rl.tokens > float64(rl.burst) {
		rl.tokens = float64(rl.burst)
	}

	rl.last = now
}
