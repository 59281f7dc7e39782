package scheduler

import (
	"context"
	"time"
)

// Backoff returns base * 2^(n-1) capped at max, for the n-th consecutive
// failure (1-based). n <= 0 yields 0.
func Backoff(base, max time.Duration, n int) time.Duration {
	if n <= 0 || base <= 0 {
		return 0
	}
	wait := base
	for i := 1; i < n; i++ {
		wait *= 2
		if max > 0 && wait >= max {
			return max
		}
	}
	if max > 0 && wait > max {
		return max
	}
	return wait
}

// Retry calls fn up to attempts times, sleeping Backoff(base, max, n) after
// the n-th failure. It returns nil on the first success, otherwise the last
// error, or ctx.Err() if ctx ends while waiting.
func Retry(ctx context.Context, attempts int, base, max time.Duration, fn func(context.Context) error) error {
	if attempts <= 0 {
		attempts = 1
	}
	var err error
	for n := 1; n <= attempts; n++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if n == attempts {
			break
		}
		if !sleepCtx(ctx, Backoff(base, max, n)) {
			return ctx.Err()
		}
	}
	return err
}

// sleepCtx waits for d or until ctx is done. It reports whether the full
// duration elapsed.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
