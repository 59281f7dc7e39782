package interfaces

import (
	"context"

	"rfactor-bot/internal/types"
)

type SnapshotProvider interface {
	GetSnapshot(ctx context.Context, symbol string, timeframes []string) (types.MarketSnapshot, error)
	GetOpenPositions(ctx context.Context) ([]types.Position, error)
}
