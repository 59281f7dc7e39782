package engine

import (
	"fmt"

	"rfactor-bot/internal/types"

	"github.com/shopspring/decimal"
)

// GenerateSignal compares the bid against a short and a long moving average.
// The bid must be strictly above both for BUY and strictly below both for
// SELL; anything else, including equality with either average, is HOLD.
func GenerateSignal(bid, smaShort, smaLong decimal.Decimal) types.Signal {
	switch {
	case bid.GreaterThan(smaLong) && bid.GreaterThan(smaShort):
		return types.SignalBuy
	case bid.LessThan(smaLong) && bid.LessThan(smaShort):
		return types.SignalSell
	default:
		return types.SignalHold
	}
}

// signalGenerator reads the two configured timeframes out of a snapshot.
type signalGenerator struct {
	short, long string
}

func newSignalGenerator(short, long string) *signalGenerator {
	return &signalGenerator{short: short, long: long}
}

func (sg *signalGenerator) generate(snap types.MarketSnapshot) (types.Signal, error) {
	smaShort, ok := snap.MA(sg.short)
	if !ok {
		return types.SignalHold, fmt.Errorf("%w: snapshot has no %s average", types.ErrDataUnavailable, sg.short)
	}
	smaLong, ok := snap.MA(sg.long)
	if !ok {
		return types.SignalHold, fmt.Errorf("%w: snapshot has no %s average", types.ErrDataUnavailable, sg.long)
	}
	return GenerateSignal(snap.Bid, smaShort, smaLong), nil
}
