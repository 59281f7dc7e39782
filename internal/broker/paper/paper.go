package paper

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"rfactor-bot/internal/interfaces"
	"rfactor-bot/internal/market"
	"rfactor-bot/internal/types"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const pricePlaces = 2

type Config struct {
	Seed       int64
	StartPrice float64
	// Spread is the full bid/ask spread as a fraction of mid.
	Spread float64
	// Volatility is the standard deviation of one random-walk step as a
	// fraction of mid.
	Volatility float64
}

// position is a netted book entry. qty is signed: negative is short.
type position struct {
	qty decimal.Decimal
	avg decimal.Decimal
}

// Exchange is an in-memory exchange for DRY_RUN. Every quote read advances
// a random walk on the mid price; limit orders fill immediately at their
// limit price into a netting position book.
type Exchange struct {
	mu        sync.Mutex
	cfg       Config
	rng       *rand.Rand
	mids      map[string]decimal.Decimal
	positions map[string]*position
	now       func() time.Time
}

var _ interfaces.Exchange = (*Exchange)(nil)

func New(cfg Config) *Exchange {
	if cfg.StartPrice <= 0 {
		cfg.StartPrice = 100
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Exchange{
		cfg:       cfg,
		rng:       rand.New(rand.NewSource(seed)),
		mids:      make(map[string]decimal.Decimal),
		positions: make(map[string]*position),
		now:       time.Now,
	}
}

func (e *Exchange) Start(ctx context.Context, symbols []string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, s := range symbols {
		e.midLocked(s)
	}
	return nil
}

func (e *Exchange) Stop(ctx context.Context) {}

// SetMid pins the mid price of symbol. The walk continues from it.
func (e *Exchange) SetMid(symbol string, mid decimal.Decimal) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.mids[symbol] = mid
}

func (e *Exchange) BestBidAsk(ctx context.Context, symbol string) (types.Quote, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	mid := e.step(e.midLocked(symbol))
	e.mids[symbol] = mid
	half := decimal.NewFromFloat(e.cfg.Spread / 2)
	return types.Quote{
		Bid: mid.Mul(decimal.NewFromInt(1).Sub(half)).Round(pricePlaces),
		Ask: mid.Mul(decimal.NewFromInt(1).Add(half)).Round(pricePlaces),
		Ts:  e.now(),
	}, nil
}

// Candles walks backwards from the current mid so that the newest close is
// the current mid. The walk's step grows with the square root of the bar
// length in minutes.
func (e *Exchange) Candles(ctx context.Context, symbol, timeframe string, limit int) ([]types.Candle, error) {
	tf, err := market.ParseTimeframe(timeframe)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	scale := math.Sqrt(tf.Minutes())
	closes := make([]decimal.Decimal, limit)
	closes[limit-1] = e.midLocked(symbol)
	for i := limit - 2; i >= 0; i-- {
		closes[i] = e.stepScaled(closes[i+1], scale)
	}

	end := e.now().Truncate(tf)
	out := make([]types.Candle, limit)
	for i, c := range closes {
		open := c
		if i > 0 {
			open = closes[i-1]
		}
		out[i] = types.Candle{
			Ts:    end.Add(-time.Duration(limit-1-i) * tf).Unix(),
			Open:  open.Round(pricePlaces),
			High:  decimal.Max(open, c).Round(pricePlaces),
			Low:   decimal.Min(open, c).Round(pricePlaces),
			Close: c.Round(pricePlaces),
			Vol:   decimal.NewFromInt(int64(e.rng.Intn(10_000))),
		}
	}
	return out, nil
}

func (e *Exchange) CreateLimitOrder(ctx context.Context, req types.OrderReq) (types.OrderHandle, error) {
	if !req.Size.IsPositive() {
		return types.OrderHandle{}, fmt.Errorf("%w: size %s", types.ErrOrderRejected, req.Size)
	}
	if !req.Price.IsPositive() {
		return types.OrderHandle{}, fmt.Errorf("%w: price %s", types.ErrOrderRejected, req.Price)
	}
	var signed decimal.Decimal
	switch strings.ToUpper(req.Side) {
	case "BUY":
		signed = req.Size
	case "SELL":
		signed = req.Size.Neg()
	default:
		return types.OrderHandle{}, fmt.Errorf("%w: unknown side %q", types.ErrOrderRejected, req.Side)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.fill(req.Symbol, signed, req.Price)

	return types.OrderHandle{
		OrderID: "SIM-" + uuid.NewString(),
		Status:  "FILLED",
		Message: "dry-run",
	}, nil
}

func (e *Exchange) OpenPositions(ctx context.Context) ([]types.Position, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]types.Position, 0, len(e.positions))
	for sym, p := range e.positions {
		side := types.SideLong
		if p.qty.IsNegative() {
			side = types.SideShort
		}
		out = append(out, types.Position{
			Symbol:     sym,
			Side:       side,
			Size:       p.qty.Abs(),
			EntryPrice: p.avg,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out, nil
}

// fill nets signed quantity into the symbol's position. Adding to a
// position averages the entry; reducing keeps it; flipping through zero
// restarts it at price.
func (e *Exchange) fill(symbol string, signed, price decimal.Decimal) {
	p, ok := e.positions[symbol]
	if !ok {
		e.positions[symbol] = &position{qty: signed, avg: price}
		return
	}

	next := p.qty.Add(signed)
	switch {
	case next.IsZero():
		delete(e.positions, symbol)
	case p.qty.Sign() == signed.Sign():
		notional := p.avg.Mul(p.qty.Abs()).Add(price.Mul(signed.Abs()))
		p.avg = notional.Div(next.Abs())
		p.qty = next
	case p.qty.Sign() != next.Sign():
		p.qty = next
		p.avg = price
	default:
		p.qty = next
	}
}

func (e *Exchange) midLocked(symbol string) decimal.Decimal {
	mid, ok := e.mids[symbol]
	if !ok {
		mid = decimal.NewFromFloat(e.cfg.StartPrice)
		e.mids[symbol] = mid
	}
	return mid
}

func (e *Exchange) step(mid decimal.Decimal) decimal.Decimal {
	return e.stepScaled(mid, 1)
}

func (e *Exchange) stepScaled(mid decimal.Decimal, scale float64) decimal.Decimal {
	if e.cfg.Volatility <= 0 {
		return mid
	}
	move := e.rng.NormFloat64() * e.cfg.Volatility * scale
	move = math.Max(-0.5, math.Min(0.5, move))
	return mid.Mul(decimal.NewFromFloat(1 + move)).Round(6)
}
