package engine

import (
	"context"
	"errors"
	"fmt"

	"rfactor-bot/internal/interfaces"
	"rfactor-bot/internal/logger"
	"rfactor-bot/internal/state"
	"rfactor-bot/internal/types"

	"github.com/shopspring/decimal"
)

var (
	hundred    = decimal.NewFromInt(100)
	stopOutPnL = decimal.NewFromInt(-100)
)

// EvaluatePosition prices a position against a snapshot and decides whether
// to close it. The current price is the side a close would trade against:
// bid for a long, ask for a short. PnL is signed so that a short gains when
// the price falls.
func EvaluatePosition(pos types.Position, snap types.MarketSnapshot, params types.RiskParameters) (types.PnLReading, types.CloseReason) {
	cur := snap.Bid
	if pos.IsShort() {
		cur = snap.Ask
	}
	pnl := cur.Sub(pos.EntryPrice).Div(pos.EntryPrice).Mul(params.Leverage).Mul(hundred)
	if pos.IsShort() {
		pnl = pnl.Neg()
	}
	reading := types.PnLReading{CurrentPrice: cur, PnLPercent: pnl}

	switch {
	case pnl.GreaterThanOrEqual(params.RFactor.Mul(hundred)):
		return reading, types.CloseTakeProfit
	case pnl.LessThanOrEqual(stopOutPnL):
		return reading, types.CloseStopLoss
	default:
		return reading, types.CloseHold
	}
}

// reconciler closes positions that reached their take-profit or stop-out
// threshold. Positions are fetched fresh every tick; nothing is cached
// between ticks.
type reconciler struct {
	snaps  interfaces.SnapshotProvider
	orders *orderExecutor
	params types.RiskParameters
	state  *state.Store
}

func newReconciler(snaps interfaces.SnapshotProvider, orders *orderExecutor, params types.RiskParameters, st *state.Store) *reconciler {
	return &reconciler{snaps: snaps, orders: orders, params: params, state: st}
}

type positionKey struct {
	symbol string
	side   types.Side
}

// reconcile evaluates every open position once. A snapshot failure aborts
// the tick before any close is sent. A rejected close does not stop the
// remaining positions from being evaluated; all close failures are returned
// joined alongside the decisions.
func (r *reconciler) reconcile(ctx context.Context) ([]types.CloseDecision, error) {
	positions, err := r.snaps.GetOpenPositions(ctx)
	if err != nil {
		return nil, err
	}
	if len(positions) == 0 {
		logger.Debug(ctx, "No open positions")
		r.state.PutReadings(nil)
		return nil, nil
	}

	// One quote per symbol for the whole tick.
	snaps := make(map[string]types.MarketSnapshot)
	for _, p := range positions {
		if _, ok := snaps[p.Symbol]; ok {
			continue
		}
		snap, err := r.snaps.GetSnapshot(ctx, p.Symbol, nil)
		if err != nil {
			return nil, err
		}
		snaps[p.Symbol] = snap
	}

	var (
		decisions []types.CloseDecision
		readings  []state.PositionReading
		errs      []error
	)
	closed := make(map[positionKey]bool)
	for _, p := range positions {
		if !p.Size.IsPositive() || !p.EntryPrice.IsPositive() {
			logger.Warn(ctx, "Skipping position with invalid size or entry", "symbol", p.Symbol, "side", p.Side, "size", p.Size, "entry", p.EntryPrice)
			continue
		}
		key := positionKey{symbol: p.Symbol, side: p.Side}
		if closed[key] {
			continue
		}

		reading, reason := EvaluatePosition(p, snaps[p.Symbol], r.params)
		d := types.CloseDecision{Position: p, Reading: reading, Close: reason != types.CloseHold, Reason: reason}

		if d.Close {
			logger.Risk(ctx, p.Symbol, string(reason),
				"side", p.Side,
				"size", p.Size,
				"entry", p.EntryPrice,
				"current_price", reading.CurrentPrice,
				"pnl_percent", reading.PnLPercent.StringFixed(2),
			)
			h, err := r.orders.closePosition(ctx, p, reading.CurrentPrice, reason)
			if err != nil {
				errs = append(errs, fmt.Errorf("close %s %s: %w", p.Symbol, p.Side, err))
			} else {
				d.Order = &h
				closed[key] = true
			}
		} else {
			logger.Debug(ctx, "Holding position",
				"symbol", p.Symbol,
				"side", p.Side,
				"current_price", reading.CurrentPrice,
				"pnl_percent", reading.PnLPercent.StringFixed(2),
			)
		}

		decisions = append(decisions, d)
		readings = append(readings, state.PositionReading{Position: p, Reading: reading, Closed: d.Order != nil})
	}

	r.state.PutReadings(readings)
	return decisions, errors.Join(errs...)
}
