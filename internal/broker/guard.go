package broker

import (
	"context"
	"sync"

	"rfactor-bot/internal/interfaces"
	"rfactor-bot/internal/types"
)

// guardedExchange serializes every call to the wrapped Exchange and paces
// them through a RateLimiter. The two triggers share one Exchange, so this
// is the only place exchange access is synchronized.
type guardedExchange struct {
	mu      sync.Mutex
	ex      interfaces.Exchange
	limiter *RateLimiter
}

var _ interfaces.Exchange = (*guardedExchange)(nil)

// Guard wraps ex. limiter may be nil.
func Guard(ex interfaces.Exchange, limiter *RateLimiter) interfaces.Exchange {
	return &guardedExchange{ex: ex, limiter: limiter}
}

func (g *guardedExchange) acquire(ctx context.Context) error {
	if err := g.limiter.Wait(ctx); err != nil {
		return err
	}
	g.mu.Lock()
	return nil
}

func (g *guardedExchange) BestBidAsk(ctx context.Context, symbol string) (types.Quote, error) {
	if err := g.acquire(ctx); err != nil {
		return types.Quote{}, err
	}
	defer g.mu.Unlock()
	return g.ex.BestBidAsk(ctx, symbol)
}

func (g *guardedExchange) Candles(ctx context.Context, symbol, timeframe string, limit int) ([]types.Candle, error) {
	if err := g.acquire(ctx); err != nil {
		return nil, err
	}
	defer g.mu.Unlock()
	return g.ex.Candles(ctx, symbol, timeframe, limit)
}

func (g *guardedExchange) CreateLimitOrder(ctx context.Context, req types.OrderReq) (types.OrderHandle, error) {
	if err := g.acquire(ctx); err != nil {
		return types.OrderHandle{}, err
	}
	defer g.mu.Unlock()
	return g.ex.CreateLimitOrder(ctx, req)
}

func (g *guardedExchange) OpenPositions(ctx context.Context) ([]types.Position, error) {
	if err := g.acquire(ctx); err != nil {
		return nil, err
	}
	defer g.mu.Unlock()
	return g.ex.OpenPositions(ctx)
}

func (g *guardedExchange) Start(ctx context.Context, symbols []string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.ex.Start(ctx, symbols)
}

func (g *guardedExchange) Stop(ctx context.Context) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.ex.Stop(ctx)
}
