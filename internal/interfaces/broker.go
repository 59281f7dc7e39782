package interfaces

import (
	"context"

	"rfactor-bot/internal/types"
)

// Exchange is the external market-data and order-execution API.
type Exchange interface {
	// BestBidAsk returns the top of book for symbol at call time.
	BestBidAsk(ctx context.Context, symbol string) (types.Quote, error)

	// Candles returns up to limit most recent candles, oldest first.
	Candles(ctx context.Context, symbol, timeframe string, limit int) ([]types.Candle, error)

	// CreateLimitOrder places one limit order and returns an opaque handle.
	CreateLimitOrder(ctx context.Context, req types.OrderReq) (types.OrderHandle, error)

	// OpenPositions lists the positions currently open on the account.
	OpenPositions(ctx context.Context) ([]types.Position, error)

	// Start prepares connections and lookups for the given symbols.
	Start(ctx context.Context, symbols []string) error

	// Stop releases connections.
	Stop(ctx context.Context)
}
