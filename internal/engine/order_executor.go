package engine

import (
	"context"
	"errors"
	"fmt"

	"rfactor-bot/internal/interfaces"
	"rfactor-bot/internal/logger"
	"rfactor-bot/internal/tradelog"
	"rfactor-bot/internal/types"

	"github.com/shopspring/decimal"
)

// Order tags sent with every request.
const (
	TagEntry = "ENTRY"
	TagClose = "CLOSE"
)

// orderExecutor turns plans and close decisions into exactly one
// create-limit-order call each. It never retries.
type orderExecutor struct {
	ex       interfaces.Exchange
	journal  *tradelog.Journal
	leverage decimal.Decimal
}

func newOrderExecutor(ex interfaces.Exchange, journal *tradelog.Journal, leverage decimal.Decimal) *orderExecutor {
	return &orderExecutor{ex: ex, journal: journal, leverage: leverage}
}

// submit places a limit order at the plan's entry price for its full size.
func (oe *orderExecutor) submit(ctx context.Context, plan types.TradePlan) (types.OrderHandle, error) {
	side := types.SideLong
	if plan.Signal == types.SignalSell {
		side = types.SideShort
	}
	req := types.OrderReq{
		Symbol:   plan.Symbol,
		Side:     side.OrderSide(),
		Size:     plan.Size,
		Price:    plan.EntryPrice,
		Leverage: oe.leverage,
		Tag:      TagEntry,
	}
	return oe.place(ctx, req, string(plan.Signal))
}

// closePosition places an opposite-side limit order for the whole position
// at price.
func (oe *orderExecutor) closePosition(ctx context.Context, pos types.Position, price decimal.Decimal, reason types.CloseReason) (types.OrderHandle, error) {
	req := types.OrderReq{
		Symbol: pos.Symbol,
		Side:   pos.Side.Opposite().OrderSide(),
		Size:   pos.Size,
		Price:  price,
		Tag:    TagClose,
	}
	return oe.place(ctx, req, string(reason))
}

func (oe *orderExecutor) place(ctx context.Context, req types.OrderReq, reason string) (types.OrderHandle, error) {
	h, err := oe.ex.CreateLimitOrder(ctx, req)
	if err != nil {
		if !errors.Is(err, types.ErrOrderRejected) {
			err = fmt.Errorf("%w: %s %s %s@%s: %w", types.ErrOrderRejected, req.Tag, req.Side, req.Size, req.Price, err)
		}
		logger.ErrorWithErr(ctx, "Order rejected", err,
			"symbol", req.Symbol,
			"side", req.Side,
			"size", req.Size,
			"price", req.Price,
			"tag", req.Tag,
		)
		_ = oe.journal.Append(tradelog.Entry{
			Kind:   tradelog.KindRejected,
			Symbol: req.Symbol,
			Side:   req.Side,
			Size:   req.Size,
			Price:  req.Price,
			Reason: err.Error(),
		})
		return types.OrderHandle{}, err
	}

	logger.Trade(ctx, req.Symbol, req.Side, req.Size, req.Price, h.OrderID, "tag", req.Tag, "reason", reason, "status", h.Status)
	kind := tradelog.KindOrder
	if req.Tag == TagClose {
		kind = tradelog.KindClose
	}
	_ = oe.journal.Append(tradelog.Entry{
		Kind:    kind,
		Symbol:  req.Symbol,
		Side:    req.Side,
		Size:    req.Size,
		Price:   req.Price,
		OrderID: h.OrderID,
		Reason:  reason,
	})
	return h, nil
}
