package engine

import (
	"rfactor-bot/internal/types"

	"github.com/shopspring/decimal"
)

var one = decimal.NewFromInt(1)

// stopManager derives stop-loss and take-profit prices from an entry price.
type stopManager struct {
	stopFraction decimal.Decimal // distance of the stop from entry, as a fraction of entry
	rFactor      decimal.Decimal // take-profit distance in multiples of the stop distance
}

func newStopManager(stopFraction, rFactor decimal.Decimal) *stopManager {
	return &stopManager{stopFraction: stopFraction, rFactor: rFactor}
}

// levels computes stop and target for an entry on the given signal.
//
//   - BUY:  stop = entry * (1 - f), target = entry * (1 + r*f)
//   - SELL: stop = entry * (1 + f), target = entry * (1 - r*f)
//
// ok is false for HOLD.
func (sm *stopManager) levels(signal types.Signal, entry decimal.Decimal) (stop, target decimal.Decimal, ok bool) {
	reward := sm.rFactor.Mul(sm.stopFraction)
	switch signal {
	case types.SignalBuy:
		return entry.Mul(one.Sub(sm.stopFraction)), entry.Mul(one.Add(reward)), true
	case types.SignalSell:
		return entry.Mul(one.Add(sm.stopFraction)), entry.Mul(one.Sub(reward)), true
	default:
		return decimal.Zero, decimal.Zero, false
	}
}
