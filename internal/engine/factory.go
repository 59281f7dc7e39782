package engine

import (
	"rfactor-bot/internal/interfaces"
	"rfactor-bot/internal/state"
	"rfactor-bot/internal/store"
	"rfactor-bot/internal/tradelog"
)

// New builds the engine. journal and st may be nil.
func New(cfg *store.Config, snaps interfaces.SnapshotProvider, ex interfaces.Exchange, journal *tradelog.Journal, st *state.Store) interfaces.Engine {
	return newEngine(cfg, snaps, ex, journal, st)
}
