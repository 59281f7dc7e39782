package market

import (
	"context"
	"errors"
	"fmt"
	"time"

	"rfactor-bot/internal/interfaces"
	"rfactor-bot/internal/logger"
	"rfactor-bot/internal/ta"
	"rfactor-bot/internal/types"

	"github.com/shopspring/decimal"
)

// DefaultWindow is the number of closes averaged per timeframe.
const DefaultWindow = 20

// Provider builds MarketSnapshots from an Exchange.
type Provider struct {
	ex     interfaces.Exchange
	window int
	now    func() time.Time
}

var _ interfaces.SnapshotProvider = (*Provider)(nil)

func NewProvider(ex interfaces.Exchange, window int) *Provider {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Provider{ex: ex, window: window, now: time.Now}
}

// GetSnapshot reads the moving averages for every requested timeframe and
// then the top of book, so the quote is the freshest value in the snapshot.
// Any missing piece fails the whole snapshot with ErrDataUnavailable.
func (p *Provider) GetSnapshot(ctx context.Context, symbol string, timeframes []string) (types.MarketSnapshot, error) {
	mas := make(map[string]decimal.Decimal, len(timeframes))
	for _, tf := range timeframes {
		candles, err := p.ex.Candles(ctx, symbol, tf, p.window)
		if err != nil {
			return types.MarketSnapshot{}, unavailable(err, "candles %s %s", symbol, tf)
		}
		if len(candles) == 0 {
			return types.MarketSnapshot{}, fmt.Errorf("%w: empty candle set for %s %s", types.ErrDataUnavailable, symbol, tf)
		}
		sma, ok := ta.SMA(ta.Closes(candles), p.window)
		if !ok {
			return types.MarketSnapshot{}, fmt.Errorf("%w: %d candles for %s %s, need %d",
				types.ErrDataUnavailable, len(candles), symbol, tf, p.window)
		}
		mas[tf] = sma
	}

	q, err := p.ex.BestBidAsk(ctx, symbol)
	if err != nil {
		return types.MarketSnapshot{}, unavailable(err, "best bid/ask %s", symbol)
	}
	if !q.Bid.IsPositive() || !q.Ask.IsPositive() {
		return types.MarketSnapshot{}, fmt.Errorf("%w: empty book for %s (bid=%s ask=%s)",
			types.ErrDataUnavailable, symbol, q.Bid, q.Ask)
	}

	ts := q.Ts
	if ts.IsZero() {
		ts = p.now()
	}

	snap := types.MarketSnapshot{
		Symbol:         symbol,
		Bid:            q.Bid,
		Ask:            q.Ask,
		MovingAverages: mas,
		Time:           ts,
	}
	logger.Debug(ctx, "Snapshot built", "symbol", symbol, "bid", q.Bid, "ask", q.Ask, "moving_averages", mas)
	return snap, nil
}

// GetOpenPositions fetches the exchange positions fresh on every call.
func (p *Provider) GetOpenPositions(ctx context.Context) ([]types.Position, error) {
	positions, err := p.ex.OpenPositions(ctx)
	if err != nil {
		return nil, unavailable(err, "open positions")
	}
	return positions, nil
}

func unavailable(err error, format string, args ...any) error {
	if errors.Is(err, types.ErrDataUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", types.ErrDataUnavailable, fmt.Sprintf(format, args...), err)
}
