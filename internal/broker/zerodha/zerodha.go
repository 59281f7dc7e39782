package zerodha

import (
	"context"
	"fmt"
	"strings"
	"time"

	"rfactor-bot/internal/interfaces"
	"rfactor-bot/internal/market"
	"rfactor-bot/internal/types"

	"github.com/shopspring/decimal"
	kiteconnect "github.com/zerodha/gokiteconnect/v4"
)

type Params struct {
	APIKey      string
	AccessToken string
	Exchange    string
	// Product is the Kite product code, MIS unless set.
	Product string
}

// Zerodha is the live Exchange backed by Kite Connect. Kite only trades
// whole shares, so order sizes are floored to an integer quantity.
type Zerodha struct {
	p           Params
	kc          *kiteconnect.Client
	instruments *instrumentMapper
	now         func() time.Time
}

var _ interfaces.Exchange = (*Zerodha)(nil)

func NewZerodha(p Params) (*Zerodha, error) {
	if p.APIKey == "" || p.AccessToken == "" {
		return nil, fmt.Errorf("%w: missing KITE_API_KEY or KITE_ACCESS_TOKEN", types.ErrUnrecoverable)
	}
	if p.Exchange == "" {
		p.Exchange = "NSE"
	}
	if p.Product == "" {
		p.Product = kiteconnect.ProductMIS
	}
	kc := kiteconnect.New(p.APIKey)
	kc.SetAccessToken(p.AccessToken)
	return &Zerodha{p: p, kc: kc, instruments: newInstrumentMapper(), now: time.Now}, nil
}

// Start loads instrument tokens for symbols. Historical candles are keyed by
// token, so a symbol missing from the exchange's instrument list is fatal.
func (z *Zerodha) Start(ctx context.Context, symbols []string) error {
	insts, err := z.kc.GetInstrumentsByExchange(z.p.Exchange)
	if err != nil {
		return fmt.Errorf("load %s instruments: %w", z.p.Exchange, err)
	}
	want := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		want[s] = true
	}
	for _, inst := range insts {
		if want[inst.Tradingsymbol] {
			z.instruments.addMapping(inst.Tradingsymbol, int(inst.InstrumentToken))
		}
	}
	for _, s := range symbols {
		if _, err := z.instruments.token(s); err != nil {
			return fmt.Errorf("%w: %s not listed on %s", types.ErrUnrecoverable, s, z.p.Exchange)
		}
	}
	return nil
}

func (z *Zerodha) Stop(ctx context.Context) {
	z.instruments.clear()
}

func (z *Zerodha) BestBidAsk(ctx context.Context, symbol string) (types.Quote, error) {
	key := z.p.Exchange + ":" + symbol
	quotes, err := z.kc.GetQuote(key)
	if err != nil {
		return types.Quote{}, err
	}
	q, ok := quotes[key]
	if !ok {
		return types.Quote{}, fmt.Errorf("%w: no quote for %s", types.ErrDataUnavailable, key)
	}
	var bid, ask float64
	if len(q.Depth.Buy) > 0 {
		bid = q.Depth.Buy[0].Price
	}
	if len(q.Depth.Sell) > 0 {
		ask = q.Depth.Sell[0].Price
	}
	return types.Quote{
		Bid: decimal.NewFromFloat(bid),
		Ask: decimal.NewFromFloat(ask),
		Ts:  z.now(),
	}, nil
}

func (z *Zerodha) Candles(ctx context.Context, symbol, timeframe string, limit int) ([]types.Candle, error) {
	token, err := z.instruments.token(symbol)
	if err != nil {
		return nil, err
	}
	interval, err := kiteInterval(timeframe)
	if err != nil {
		return nil, err
	}
	tf, err := market.ParseTimeframe(timeframe)
	if err != nil {
		return nil, err
	}

	to := z.now()
	from := to.Add(-lookback(tf, limit))
	data, err := z.kc.GetHistoricalData(token, interval, from, to, false, false)
	if err != nil {
		return nil, err
	}
	if len(data) > limit {
		data = data[len(data)-limit:]
	}

	out := make([]types.Candle, 0, len(data))
	for _, c := range data {
		out = append(out, types.Candle{
			Ts:    c.Date.Unix(),
			Open:  decimal.NewFromFloat(c.Open),
			High:  decimal.NewFromFloat(c.High),
			Low:   decimal.NewFromFloat(c.Low),
			Close: decimal.NewFromFloat(c.Close),
			Vol:   decimal.NewFromInt(int64(c.Volume)),
		})
	}
	return out, nil
}

func (z *Zerodha) CreateLimitOrder(ctx context.Context, req types.OrderReq) (types.OrderHandle, error) {
	qty, err := quantity(req.Size)
	if err != nil {
		return types.OrderHandle{}, err
	}
	txn, err := transactionType(req.Side)
	if err != nil {
		return types.OrderHandle{}, err
	}

	resp, err := z.kc.PlaceOrder(kiteconnect.VarietyRegular, kiteconnect.OrderParams{
		Exchange:        z.p.Exchange,
		Tradingsymbol:   req.Symbol,
		TransactionType: txn,
		OrderType:       kiteconnect.OrderTypeLimit,
		Product:         z.p.Product,
		Validity:        kiteconnect.ValidityDay,
		Quantity:        qty,
		Price:           req.Price.InexactFloat64(),
		Tag:             req.Tag,
	})
	if err != nil {
		return types.OrderHandle{}, fmt.Errorf("%w: %w", types.ErrOrderRejected, err)
	}
	return types.OrderHandle{OrderID: resp.OrderID, Status: "PLACED"}, nil
}

// OpenPositions returns the non-flat net positions on the configured
// exchange.
func (z *Zerodha) OpenPositions(ctx context.Context) ([]types.Position, error) {
	pos, err := z.kc.GetPositions()
	if err != nil {
		return nil, err
	}
	out := make([]types.Position, 0, len(pos.Net))
	for _, p := range pos.Net {
		if p.Exchange != "" && p.Exchange != z.p.Exchange {
			continue
		}
		if np, ok := netPosition(p.Tradingsymbol, p.Quantity, p.AveragePrice); ok {
			out = append(out, np)
		}
	}
	return out, nil
}

func netPosition(symbol string, qty int, avg float64) (types.Position, bool) {
	if qty == 0 {
		return types.Position{}, false
	}
	side := types.SideLong
	if qty < 0 {
		side = types.SideShort
		qty = -qty
	}
	return types.Position{
		Symbol:     symbol,
		Side:       side,
		Size:       decimal.NewFromInt(int64(qty)),
		EntryPrice: decimal.NewFromFloat(avg),
	}, true
}

func quantity(size decimal.Decimal) (int, error) {
	qty := size.Floor().IntPart()
	if qty <= 0 {
		return 0, fmt.Errorf("%w: size %s is below one share", types.ErrOrderRejected, size)
	}
	return int(qty), nil
}

func transactionType(side string) (string, error) {
	switch strings.ToUpper(side) {
	case "BUY":
		return kiteconnect.TransactionTypeBuy, nil
	case "SELL":
		return kiteconnect.TransactionTypeSell, nil
	default:
		return "", fmt.Errorf("%w: unknown side %q", types.ErrOrderRejected, side)
	}
}

// kiteInterval maps a timeframe to a Kite historical-data interval.
func kiteInterval(tf string) (string, error) {
	switch tf {
	case "1m":
		return "minute", nil
	case "3m", "5m", "10m", "15m", "30m":
		return strings.TrimSuffix(tf, "m") + "minute", nil
	case "1h", "60m":
		return "60minute", nil
	case "1d":
		return "day", nil
	default:
		return "", fmt.Errorf("timeframe %s is not a Kite interval", tf)
	}
}

// lookback is a window wide enough to contain limit bars of tf once
// nights, weekends and exchange holidays are skipped.
func lookback(tf time.Duration, limit int) time.Duration {
	const day = 24 * time.Hour
	if tf >= day {
		return time.Duration(limit)*tf*2 + 10*day
	}
	return max(time.Duration(limit)*tf*4, 5*day)
}
