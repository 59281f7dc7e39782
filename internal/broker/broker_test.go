package broker

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"rfactor-bot/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiterBurstThenRefill(t *testing.T) {
	rl := NewRateLimiter(2, time.Second)
	now := time.Date(2026, 1, 5, 9, 15, 0, 0, time.UTC)
	rl.lastRefillTime = now
	rl.now = func() time.Time { return now }

	_, ok := rl.tryAcquire()
	assert.True(t, ok)
	_, ok = rl.tryAcquire()
	assert.True(t, ok)
	wait, ok := rl.tryAcquire()
	assert.False(t, ok)
	assert.Equal(t, time.Second, wait)

	now = now.Add(1500 * time.Millisecond)
	_, ok = rl.tryAcquire()
	assert.True(t, ok)
	wait, ok = rl.tryAcquire()
	assert.False(t, ok)
	assert.Equal(t, 500*time.Millisecond, wait)

	now = now.Add(time.Hour)
	for range 2 {
		_, ok = rl.tryAcquire()
		assert.True(t, ok)
	}
	_, ok = rl.tryAcquire()
	assert.False(t, ok, "bucket never exceeds its burst")
}

func TestRateLimiterWaitHonoursContext(t *testing.T) {
	rl := NewRateLimiter(1, time.Hour)
	require.NoError(t, rl.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, rl.Wait(ctx), context.DeadlineExceeded)

	var nilLimiter *RateLimiter
	assert.NoError(t, nilLimiter.Wait(context.Background()))
}

type slowExchange struct {
	inFlight, maxInFlight atomic.Int64
	calls                 atomic.Int64
}

func (s *slowExchange) enter() func() {
	n := s.inFlight.Add(1)
	if n > s.maxInFlight.Load() {
		s.maxInFlight.Store(n)
	}
	s.calls.Add(1)
	time.Sleep(2 * time.Millisecond)
	return func() { s.inFlight.Add(-1) }
}

func (s *slowExchange) BestBidAsk(context.Context, string) (types.Quote, error) {
	defer s.enter()()
	return types.Quote{}, nil
}

func (s *slowExchange) Candles(context.Context, string, string, int) ([]types.Candle, error) {
	defer s.enter()()
	return nil, nil
}

func (s *slowExchange) CreateLimitOrder(context.Context, types.OrderReq) (types.OrderHandle, error) {
	defer s.enter()()
	return types.OrderHandle{OrderID: "1"}, nil
}

func (s *slowExchange) OpenPositions(context.Context) ([]types.Position, error) {
	defer s.enter()()
	return nil, nil
}

func (s *slowExchange) Start(context.Context, []string) error { return nil }
func (s *slowExchange) Stop(context.Context)                  {}

func TestGuardSerializesCalls(t *testing.T) {
	inner := &slowExchange{}
	ex := Guard(inner, NewRateLimiter(100, time.Millisecond))
	ctx := context.Background()

	var wg sync.WaitGroup
	for range 5 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = ex.BestBidAsk(ctx, "INFY")
			_, _ = ex.OpenPositions(ctx)
		}()
		go func() {
			defer wg.Done()
			_, _ = ex.Candles(ctx, "INFY", "15m", 20)
			_, _ = ex.CreateLimitOrder(ctx, types.OrderReq{Symbol: "INFY"})
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(20), inner.calls.Load())
	assert.Equal(t, int64(1), inner.maxInFlight.Load())
}

func TestGuardCancelledBeforeCall(t *testing.T) {
	inner := &slowExchange{}
	ex := Guard(inner, NewRateLimiter(1, time.Hour))
	ctx := context.Background()
	_, err := ex.BestBidAsk(ctx, "INFY")
	require.NoError(t, err)

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	_, err = ex.BestBidAsk(cctx, "INFY")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int64(1), inner.calls.Load())
}
