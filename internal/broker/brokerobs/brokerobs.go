package brokerobs

import (
	"context"
	"fmt"

	"rfactor-bot/internal/interfaces"
	"rfactor-bot/internal/logger"
	"rfactor-bot/internal/trace"
	"rfactor-bot/internal/types"
)

// observableExchange wraps an Exchange with logging and tracing
type observableExchange struct {
	ex interfaces.Exchange
}

// Compile-time interface check
var _ interfaces.Exchange = (*observableExchange)(nil)

// Wrap wraps an exchange with observability middleware
func Wrap(ex interfaces.Exchange) interfaces.Exchange {
	return &observableExchange{
		ex: ex,
	}
}

func (oe *observableExchange) BestBidAsk(ctx context.Context, symbol string) (types.Quote, error) {
	ctx, span := trace.StartSpan(ctx, "exchange.BestBidAsk")
	defer span.End()

	q, err := oe.ex.BestBidAsk(ctx, symbol)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to fetch best bid/ask", err, "symbol", symbol)
		return types.Quote{}, err
	}

	logger.DebugSkip(ctx, 1, "Best bid/ask fetched", "symbol", symbol, "bid", q.Bid, "ask", q.Ask)
	return q, nil
}

func (oe *observableExchange) Candles(ctx context.Context, symbol, timeframe string, limit int) ([]types.Candle, error) {
	ctx, span := trace.StartSpan(ctx, "exchange.Candles")
	defer span.End()

	candles, err := oe.ex.Candles(ctx, symbol, timeframe, limit)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to fetch candles", err, "symbol", symbol, "timeframe", timeframe, "limit", limit)
		return nil, err
	}

	logger.DebugSkip(ctx, 1, "Candles fetched", "symbol", symbol, "timeframe", timeframe, "count", len(candles))
	return candles, nil
}

// CreateLimitOrder is logged at info level on both outcomes
func (oe *observableExchange) CreateLimitOrder(ctx context.Context, req types.OrderReq) (types.OrderHandle, error) {
	ctx, span := trace.StartSpan(ctx, "exchange.CreateLimitOrder")
	defer span.End()

	logger.InfoSkip(ctx, 1, "Placing limit order",
		"symbol", req.Symbol,
		"side", req.Side,
		"size", req.Size,
		"price", req.Price,
		"leverage", req.Leverage,
		"tag", req.Tag,
	)

	h, err := oe.ex.CreateLimitOrder(ctx, req)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to place limit order", err,
			"symbol", req.Symbol,
			"side", req.Side,
			"size", req.Size,
		)
		return types.OrderHandle{}, err
	}

	logger.InfoSkip(ctx, 1, "Limit order placed",
		"symbol", req.Symbol,
		"order_id", h.OrderID,
		"status", h.Status,
	)
	return h, nil
}

func (oe *observableExchange) OpenPositions(ctx context.Context) ([]types.Position, error) {
	ctx, span := trace.StartSpan(ctx, "exchange.OpenPositions")
	defer span.End()

	positions, err := oe.ex.OpenPositions(ctx)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to fetch open positions", err)
		return nil, err
	}

	logger.DebugSkip(ctx, 1, "Open positions fetched", "count", len(positions))
	return positions, nil
}

// Start initializes the exchange with observability
func (oe *observableExchange) Start(ctx context.Context, symbols []string) error {
	ctx, span := trace.StartSpan(ctx, "exchange.Start")
	defer span.End()

	logger.InfoSkip(ctx, 1, "Starting exchange", "symbols", symbols, "count", len(symbols))

	err := oe.ex.Start(ctx, symbols)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to start exchange", err, "symbols", symbols)
		return fmt.Errorf("exchange start failed: %w", err)
	}

	logger.InfoSkip(ctx, 1, "Exchange started successfully", "symbols", symbols)
	return nil
}

// Stop shuts down the exchange with observability
func (oe *observableExchange) Stop(ctx context.Context) {
	ctx, span := trace.StartSpan(ctx, "exchange.Stop")
	defer span.End()

	logger.InfoSkip(ctx, 1, "Stopping exchange")
	oe.ex.Stop(ctx)
	logger.InfoSkip(ctx, 1, "Exchange stopped successfully")
}
