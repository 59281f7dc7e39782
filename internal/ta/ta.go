package ta

import (
	"rfactor-bot/internal/types"

	"github.com/shopspring/decimal"
)

// SMA is the arithmetic mean of the last n values. ok is false when fewer
// than n values are available.
func SMA(vals []decimal.Decimal, n int) (decimal.Decimal, bool) {
	if len(vals) < n || n <= 0 {
		return decimal.Zero, false
	}
	return decimal.Avg(vals[len(vals)-n], vals[len(vals)-n+1:]...), true
}

func Closes(cs []types.Candle) []decimal.Decimal {
	out := make([]decimal.Decimal, len(cs))
	for i, c := range cs {
		out[i] = c.Close
	}
	return out
}
