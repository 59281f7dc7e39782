package state

import (
	"maps"
	"sync"
	"time"

	"rfactor-bot/internal/types"
)

// PositionReading pairs a position with the PnL computed for it on one
// reconciliation tick.
type PositionReading struct {
	Position types.Position   `json:"position"`
	Reading  types.PnLReading `json:"reading"`
	Closed   bool             `json:"closed"`
}

// SymbolState is the latest view of one symbol.
type SymbolState struct {
	Signal       types.Signal          `json:"signal,omitempty"`
	Snapshot     *types.MarketSnapshot `json:"snapshot,omitempty"`
	SignalAt     time.Time             `json:"signal_at,omitzero"`
	Positions    []PositionReading     `json:"positions,omitempty"`
	ReconciledAt time.Time             `json:"reconciled_at,omitzero"`
}

// Store is the single keyed store between the engine, which writes, and
// dashboards, which only read. Values handed out are copies.
type Store struct {
	mu      sync.RWMutex
	symbols map[string]SymbolState
	now     func() time.Time
}

func NewStore() *Store {
	return &Store{symbols: make(map[string]SymbolState), now: time.Now}
}

func (s *Store) PutSignal(symbol string, sig types.Signal, snap types.MarketSnapshot) {
	if s == nil {
		return
	}
	snap.MovingAverages = maps.Clone(snap.MovingAverages)

	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.symbols[symbol]
	st.Signal = sig
	st.Snapshot = &snap
	st.SignalAt = s.now()
	s.symbols[symbol] = st
}

// PutReadings replaces the position readings of every symbol with the
// result of one reconciliation tick. Symbols without readings are cleared.
func (s *Store) PutReadings(readings []PositionReading) {
	if s == nil {
		return
	}
	bySymbol := make(map[string][]PositionReading)
	for _, r := range readings {
		bySymbol[r.Position.Symbol] = append(bySymbol[r.Position.Symbol], r)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for sym, st := range s.symbols {
		if _, ok := bySymbol[sym]; !ok && len(st.Positions) > 0 {
			st.Positions = nil
			st.ReconciledAt = now
			s.symbols[sym] = st
		}
	}
	for sym, rs := range bySymbol {
		st := s.symbols[sym]
		st.Positions = rs
		st.ReconciledAt = now
		s.symbols[sym] = st
	}
}

func (s *Store) Get(symbol string) (SymbolState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.symbols[symbol]
	return copyState(st), ok
}

func (s *Store) All() map[string]SymbolState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]SymbolState, len(s.symbols))
	for k, v := range s.symbols {
		out[k] = copyState(v)
	}
	return out
}

func copyState(st SymbolState) SymbolState {
	if st.Snapshot != nil {
		snap := *st.Snapshot
		snap.MovingAverages = maps.Clone(snap.MovingAverages)
		st.Snapshot = &snap
	}
	if st.Positions != nil {
		st.Positions = append([]PositionReading(nil), st.Positions...)
	}
	return st
}
