package broker

import (
	"context"
	"sync"
	"time"
)

// RateLimiter is a token bucket: up to maxTokens calls in a burst, then one
// more every refillRate.
type RateLimiter struct {
	mu             sync.Mutex
	tokens         int
	maxTokens      int
	refillRate     time.Duration
	lastRefillTime time.Time
	now            func() time.Time
}

func NewRateLimiter(maxTokens int, refillRate time.Duration) *RateLimiter {
	if maxTokens <= 0 {
		maxTokens = 1
	}
	return &RateLimiter{
		tokens:         maxTokens,
		maxTokens:      maxTokens,
		refillRate:     refillRate,
		lastRefillTime: time.Now(),
		now:            time.Now,
	}
}

// Wait blocks until a token is available or ctx is done.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	if rl == nil {
		return nil
	}
	for {
		wait, ok := rl.tryAcquire()
		if ok {
			return nil
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// tryAcquire takes a token if one is available, otherwise returns how long
// until the next refill.
func (rl *RateLimiter) tryAcquire() (time.Duration, bool) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if rl.refillRate <= 0 {
		return 0, true
	}

	now := rl.now()
	elapsed := now.Sub(rl.lastRefillTime)
	if add := int(elapsed / rl.refillRate); add > 0 {
		rl.tokens = min(rl.tokens+add, rl.maxTokens)
		rl.lastRefillTime = rl.lastRefillTime.Add(time.Duration(add) * rl.refillRate)
	}

	if rl.tokens > 0 {
		rl.tokens--
		return 0, true
	}
	return rl.refillRate - now.Sub(rl.lastRefillTime), false
}
