package engine

import (
	"context"
	"errors"
	"fmt"

	"rfactor-bot/internal/logger"
	"rfactor-bot/internal/types"

	"github.com/shopspring/decimal"
)

// BuildPlan sizes a trade so that hitting the stop loses exactly
// RiskPerTrade. HOLD yields ErrNoSignal; a zero stop distance, a size that
// rounds to zero or a non-positive leverage yields ErrDegenerateRisk. No
// TradePlan is constructed in either case.
func BuildPlan(signal types.Signal, snap types.MarketSnapshot, params types.RiskParameters) (types.TradePlan, error) {
	var entry decimal.Decimal
	switch signal {
	case types.SignalBuy:
		entry = snap.Ask
	case types.SignalSell:
		entry = snap.Bid
	default:
		return types.TradePlan{}, types.ErrNoSignal
	}

	stop, target, _ := newStopManager(params.StopFraction, params.RFactor).levels(signal, entry)

	distance := entry.Sub(stop).Abs()
	if distance.IsZero() {
		return types.TradePlan{}, fmt.Errorf("%w: entry %s equals stop %s", types.ErrDegenerateRisk, entry, stop)
	}
	if !params.Leverage.IsPositive() {
		return types.TradePlan{}, fmt.Errorf("%w: leverage %s", types.ErrDegenerateRisk, params.Leverage)
	}

	size := params.RiskPerTrade.Div(distance).Round(params.SizePrecision)
	if !size.IsPositive() {
		return types.TradePlan{}, fmt.Errorf("%w: size %s for risk %s over distance %s",
			types.ErrDegenerateRisk, size, params.RiskPerTrade, distance)
	}

	return types.TradePlan{
		Symbol:       snap.Symbol,
		Signal:       signal,
		EntryPrice:   entry,
		StopLoss:     stop,
		TakeProfit:   target,
		Size:         size,
		LeverageUsed: size.Mul(entry).Div(params.Leverage),
	}, nil
}

// riskManager applies the process-wide RiskParameters and reports rejections.
type riskManager struct {
	params types.RiskParameters
}

func newRiskManager(params types.RiskParameters) *riskManager {
	return &riskManager{params: params}
}

func (rm *riskManager) buildPlan(ctx context.Context, signal types.Signal, snap types.MarketSnapshot) (types.TradePlan, error) {
	plan, err := BuildPlan(signal, snap, rm.params)
	switch {
	case errors.Is(err, types.ErrNoSignal):
		logger.Debug(ctx, "No trade signal, skipping", "symbol", snap.Symbol, "signal", signal)
	case errors.Is(err, types.ErrDegenerateRisk):
		logger.Risk(ctx, snap.Symbol, "DEGENERATE_RISK",
			"signal", signal,
			"bid", snap.Bid,
			"ask", snap.Ask,
			"stop_fraction", rm.params.StopFraction,
			"risk_per_trade", rm.params.RiskPerTrade,
			"error", err,
		)
	case err == nil:
		logger.Debug(ctx, "Trade plan built",
			"symbol", plan.Symbol,
			"signal", plan.Signal,
			"entry", plan.EntryPrice,
			"stop_loss", plan.StopLoss,
			"take_profit", plan.TakeProfit,
			"size", plan.Size,
			"leverage_used", plan.LeverageUsed,
		)
	}
	return plan, err
}
