package engineobs

import (
	"context"
	"errors"
	"time"

	"rfactor-bot/internal/interfaces"
	"rfactor-bot/internal/logger"
	"rfactor-bot/internal/trace"
	"rfactor-bot/internal/types"
)

type observableEngine struct {
	engine interfaces.Engine
}

var _ interfaces.Engine = (*observableEngine)(nil)

func Wrap(eng interfaces.Engine) interfaces.Engine {
	return &observableEngine{
		engine: eng,
	}
}

func (oe *observableEngine) ExecuteTrade(ctx context.Context) (*types.TradeResult, error) {
	ctx, span := trace.StartSpan(ctx, "engine.ExecuteTrade")
	defer span.End()

	start := time.Now()

	result, err := oe.engine.ExecuteTrade(ctx)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Trade execution failed", err,
			"kind", errorKind(err),
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return nil, err
	}

	args := []any{
		"symbol", result.Symbol,
		"signal", result.Signal,
		"reason", result.Reason,
		"duration_ms", time.Since(start).Milliseconds(),
	}
	if result.Order != nil {
		args = append(args, "order_id", result.Order.OrderID)
	}
	logger.InfoSkip(ctx, 1, "Trade execution completed", args...)

	return result, nil
}

func (oe *observableEngine) ReconcilePositions(ctx context.Context) ([]types.CloseDecision, error) {
	ctx, span := trace.StartSpan(ctx, "engine.ReconcilePositions")
	defer span.End()

	start := time.Now()

	decisions, err := oe.engine.ReconcilePositions(ctx)

	closed := 0
	for _, d := range decisions {
		if d.Order != nil {
			closed++
		}
	}
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Reconciliation failed", err,
			"kind", errorKind(err),
			"positions", len(decisions),
			"closed", closed,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return decisions, err
	}

	logger.InfoSkip(ctx, 1, "Reconciliation completed",
		"positions", len(decisions),
		"closed", closed,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return decisions, nil
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, types.ErrDataUnavailable):
		return "DataUnavailable"
	case errors.Is(err, types.ErrDegenerateRisk):
		return "DegenerateRisk"
	case errors.Is(err, types.ErrOrderRejected):
		return "OrderRejected"
	case errors.Is(err, types.ErrUnrecoverable):
		return "Unrecoverable"
	default:
		return "Unknown"
	}
}
