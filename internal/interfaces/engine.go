package interfaces

import (
	"context"

	"rfactor-bot/internal/types"
)

type Engine interface {
	ExecuteTrade(ctx context.Context) (*types.TradeResult, error)
	ReconcilePositions(ctx context.Context) ([]types.CloseDecision, error)
}
