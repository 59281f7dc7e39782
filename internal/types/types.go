package types

import (
	"time"

	"github.com/shopspring/decimal"
)

type Candle struct {
	Ts                          int64
	Open, High, Low, Close, Vol decimal.Decimal
}

// Quote is the top of book at the time it was read.
type Quote struct {
	Bid, Ask decimal.Decimal
	Ts       time.Time
}

// MarketSnapshot is a point-in-time read of one symbol. Built once per
// evaluation and never modified afterwards.
type MarketSnapshot struct {
	Symbol         string                     `json:"symbol"`
	Bid            decimal.Decimal            `json:"bid"`
	Ask            decimal.Decimal            `json:"ask"`
	MovingAverages map[string]decimal.Decimal `json:"moving_averages"`
	Time           time.Time                  `json:"time"`
}

// MA returns the moving average for a timeframe.
func (s MarketSnapshot) MA(timeframe string) (decimal.Decimal, bool) {
	v, ok := s.MovingAverages[timeframe]
	return v, ok
}

type RiskParameters struct {
	RiskPerTrade  decimal.Decimal `json:"risk_per_trade"`
	Leverage      decimal.Decimal `json:"leverage"`
	RFactor       decimal.Decimal `json:"r_factor"`
	MinWinRate    decimal.Decimal `json:"min_win_rate"`
	StopFraction  decimal.Decimal `json:"stop_fraction"`
	SizePrecision int32           `json:"size_precision"`
}

type Signal string

const (
	SignalBuy  Signal = "BUY"
	SignalSell Signal = "SELL"
	SignalHold Signal = "HOLD"
)

type Side string

const (
	SideLong  Side = "long"
	SideShort Side = "short"
)

// Opposite is the side that closes a position held on s.
func (s Side) Opposite() Side {
	if s == SideLong {
		return SideShort
	}
	return SideLong
}

// OrderSide maps a position side to the order side that opens it.
func (s Side) OrderSide() string {
	if s == SideLong {
		return "BUY"
	}
	return "SELL"
}

type TradePlan struct {
	Symbol       string          `json:"symbol"`
	Signal       Signal          `json:"signal"`
	EntryPrice   decimal.Decimal `json:"entry_price"`
	StopLoss     decimal.Decimal `json:"stop_loss"`
	TakeProfit   decimal.Decimal `json:"take_profit"`
	Size         decimal.Decimal `json:"size"`
	LeverageUsed decimal.Decimal `json:"leverage_used"`
}

// Position is a read-only projection of an exchange-owned position.
type Position struct {
	Symbol     string          `json:"symbol"`
	Side       Side            `json:"side"`
	Size       decimal.Decimal `json:"size"`
	EntryPrice decimal.Decimal `json:"entry_price"`
}

func (p Position) IsLong() bool  { return p.Side == SideLong }
func (p Position) IsShort() bool { return p.Side == SideShort }

type PnLReading struct {
	CurrentPrice decimal.Decimal `json:"current_price"`
	PnLPercent   decimal.Decimal `json:"pnl_percent"`
}

type CloseReason string

const (
	CloseTakeProfit CloseReason = "TAKE_PROFIT"
	CloseStopLoss   CloseReason = "STOP_LOSS"
	CloseHold       CloseReason = "HOLD"
)

type CloseDecision struct {
	Position Position     `json:"position"`
	Reading  PnLReading   `json:"reading"`
	Close    bool         `json:"close"`
	Reason   CloseReason  `json:"reason"`
	Order    *OrderHandle `json:"order,omitempty"`
}

type OrderReq struct {
	Symbol, Side string
	Size         decimal.Decimal
	Price        decimal.Decimal
	Leverage     decimal.Decimal
	Tag          string
}

// OrderHandle is opaque beyond logging.
type OrderHandle struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

type TradeResult struct {
	Symbol string       `json:"symbol"`
	Signal Signal       `json:"signal"`
	Plan   *TradePlan   `json:"plan,omitempty"`
	Order  *OrderHandle `json:"order,omitempty"`
	Time   time.Time    `json:"time"`
	Reason string       `json:"reason"`
}
