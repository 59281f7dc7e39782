package engine

import (
	"context"
	"errors"
	"time"

	"rfactor-bot/internal/interfaces"
	"rfactor-bot/internal/logger"
	"rfactor-bot/internal/state"
	"rfactor-bot/internal/store"
	"rfactor-bot/internal/tradelog"
	"rfactor-bot/internal/types"
)

// Engine runs the two tick bodies for one configured symbol. It keeps no
// state between ticks; every tick starts from a fresh snapshot.
type Engine struct {
	symbol     string
	timeframes []string

	snaps      interfaces.SnapshotProvider
	signals    *signalGenerator
	risk       *riskManager
	orders     *orderExecutor
	reconciler *reconciler
	journal    *tradelog.Journal
	state      *state.Store
	now        func() time.Time
}

var _ interfaces.Engine = (*Engine)(nil)

func newEngine(cfg *store.Config, snaps interfaces.SnapshotProvider, ex interfaces.Exchange, journal *tradelog.Journal, st *state.Store) *Engine {
	params := cfg.RiskParameters()
	orders := newOrderExecutor(ex, journal, params.Leverage)
	return &Engine{
		symbol:     cfg.Symbol,
		timeframes: cfg.TimeframeList(),
		snaps:      snaps,
		signals:    newSignalGenerator(cfg.Timeframes.Short, cfg.Timeframes.Long),
		risk:       newRiskManager(params),
		orders:     orders,
		reconciler: newReconciler(snaps, orders, params, st),
		journal:    journal,
		state:      st,
		now:        time.Now,
	}
}

// ExecuteTrade is one pass of snapshot, signal, plan and submit. HOLD is a
// successful tick with no order. Any error means no order was placed, except
// ErrOrderRejected which means the single submit call failed.
func (e *Engine) ExecuteTrade(ctx context.Context) (*types.TradeResult, error) {
	snap, err := e.snaps.GetSnapshot(ctx, e.symbol, e.timeframes)
	if err != nil {
		return nil, err
	}

	signal, err := e.signals.generate(snap)
	if err != nil {
		return nil, err
	}
	e.state.PutSignal(e.symbol, signal, snap)
	logger.Signal(ctx, e.symbol, string(signal),
		"bid", snap.Bid,
		"ask", snap.Ask,
		"moving_averages", snap.MovingAverages,
	)

	result := &types.TradeResult{Symbol: e.symbol, Signal: signal, Time: e.now()}

	plan, err := e.risk.buildPlan(ctx, signal, snap)
	if errors.Is(err, types.ErrNoSignal) {
		result.Reason = "no signal"
		return result, nil
	}
	if err != nil {
		return nil, err
	}
	result.Plan = &plan
	_ = e.journal.Append(tradelog.Entry{
		Kind:   tradelog.KindPlan,
		Symbol: plan.Symbol,
		Side:   string(plan.Signal),
		Size:   plan.Size,
		Price:  plan.EntryPrice,
		Extra: map[string]any{
			"stop_loss":     plan.StopLoss.String(),
			"take_profit":   plan.TakeProfit.String(),
			"leverage_used": plan.LeverageUsed.String(),
		},
	})

	h, err := e.orders.submit(ctx, plan)
	if err != nil {
		return nil, err
	}
	result.Order = &h
	result.Reason = "submitted"
	return result, nil
}

// ReconcilePositions evaluates every open position and closes the ones past
// a threshold.
func (e *Engine) ReconcilePositions(ctx context.Context) ([]types.CloseDecision, error) {
	return e.reconciler.reconcile(ctx)
}
