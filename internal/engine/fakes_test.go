package engine

import (
	"context"
	"fmt"
	"sync"

	"rfactor-bot/internal/types"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type fakeSnapshots struct {
	snaps     map[string]types.MarketSnapshot
	positions []types.Position
	snapErr   error
	posErr    error
	snapCalls int
}

func (f *fakeSnapshots) GetSnapshot(_ context.Context, symbol string, _ []string) (types.MarketSnapshot, error) {
	f.snapCalls++
	if f.snapErr != nil {
		return types.MarketSnapshot{}, f.snapErr
	}
	s, ok := f.snaps[symbol]
	if !ok {
		return types.MarketSnapshot{}, fmt.Errorf("%w: no quote for %s", types.ErrDataUnavailable, symbol)
	}
	return s, nil
}

func (f *fakeSnapshots) GetOpenPositions(context.Context) ([]types.Position, error) {
	if f.posErr != nil {
		return nil, f.posErr
	}
	return f.positions, nil
}

// fakeExchange records orders and rejects those whose symbol is in reject.
type fakeExchange struct {
	mu     sync.Mutex
	orders []types.OrderReq
	reject map[string]bool
}

func (f *fakeExchange) BestBidAsk(context.Context, string) (types.Quote, error) {
	return types.Quote{}, nil
}

func (f *fakeExchange) Candles(context.Context, string, string, int) ([]types.Candle, error) {
	return nil, nil
}

func (f *fakeExchange) CreateLimitOrder(_ context.Context, req types.OrderReq) (types.OrderHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders = append(f.orders, req)
	if f.reject[req.Symbol] {
		return types.OrderHandle{}, fmt.Errorf("insufficient margin")
	}
	return types.OrderHandle{OrderID: fmt.Sprintf("ORD-%d", len(f.orders)), Status: "OPEN"}, nil
}

func (f *fakeExchange) OpenPositions(context.Context) ([]types.Position, error) { return nil, nil }
func (f *fakeExchange) Start(context.Context, []string) error                   { return nil }
func (f *fakeExchange) Stop(context.Context)                                    {}

func snap(symbol, bid, ask string, mas map[string]string) types.MarketSnapshot {
	s := types.MarketSnapshot{Symbol: symbol, Bid: d(bid), Ask: d(ask)}
	if mas != nil {
		s.MovingAverages = make(map[string]decimal.Decimal, len(mas))
		for k, v := range mas {
			s.MovingAverages[k] = d(v)
		}
	}
	return s
}

func params(rFactor string) types.RiskParameters {
	return types.RiskParameters{
		RiskPerTrade:  d("10"),
		Leverage:      d("5"),
		RFactor:       d(rFactor),
		MinWinRate:    d("35"),
		StopFraction:  d("0.01"),
		SizePrecision: 6,
	}
}
