package paper

import (
	"context"
	"strings"
	"testing"

	"rfactor-bot/internal/types"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func flat() *Exchange {
	return New(Config{Seed: 7, StartPrice: 100, Spread: 0.002})
}

func TestBestBidAskAroundMid(t *testing.T) {
	ex := flat()
	q, err := ex.BestBidAsk(context.Background(), "INFY")
	require.NoError(t, err)
	assert.Equal(t, "99.9", q.Bid.String())
	assert.Equal(t, "100.1", q.Ask.String())
	assert.False(t, q.Ts.IsZero())
}

func TestRandomWalkIsSeeded(t *testing.T) {
	a := New(Config{Seed: 42, StartPrice: 100, Spread: 0.001, Volatility: 0.01})
	b := New(Config{Seed: 42, StartPrice: 100, Spread: 0.001, Volatility: 0.01})
	ctx := context.Background()
	for range 5 {
		qa, _ := a.BestBidAsk(ctx, "INFY")
		qb, _ := b.BestBidAsk(ctx, "INFY")
		assert.True(t, qa.Bid.Equal(qb.Bid))
		assert.True(t, qa.Bid.IsPositive())
		assert.True(t, qa.Ask.GreaterThan(qa.Bid))
	}
}

func TestCandlesEndAtMid(t *testing.T) {
	ex := New(Config{Seed: 1, StartPrice: 250, Volatility: 0.002})
	ex.SetMid("INFY", d("250"))

	cs, err := ex.Candles(context.Background(), "INFY", "15m", 20)
	require.NoError(t, err)
	require.Len(t, cs, 20)
	assert.True(t, cs[19].Close.Equal(d("250")))
	for i := 1; i < len(cs); i++ {
		assert.Equal(t, int64(15*60), cs[i].Ts-cs[i-1].Ts)
		assert.True(t, cs[i].Open.Equal(cs[i-1].Close))
		assert.True(t, cs[i].High.GreaterThanOrEqual(cs[i].Low))
	}

	_, err = ex.Candles(context.Background(), "INFY", "fortnight", 20)
	assert.Error(t, err)
}

func TestOrdersNetIntoPositions(t *testing.T) {
	ex := flat()
	ctx := context.Background()
	order := func(side, size, price string) {
		t.Helper()
		h, err := ex.CreateLimitOrder(ctx, types.OrderReq{Symbol: "INFY", Side: side, Size: d(size), Price: d(price)})
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(h.OrderID, "SIM-"))
		assert.Equal(t, "FILLED", h.Status)
	}

	order("BUY", "10", "100")
	order("BUY", "10", "110")
	pos, err := ex.OpenPositions(ctx)
	require.NoError(t, err)
	require.Len(t, pos, 1)
	assert.Equal(t, types.SideLong, pos[0].Side)
	assert.True(t, pos[0].Size.Equal(d("20")))
	assert.True(t, pos[0].EntryPrice.Equal(d("105")))

	order("SELL", "5", "120")
	pos, _ = ex.OpenPositions(ctx)
	assert.True(t, pos[0].Size.Equal(d("15")))
	assert.True(t, pos[0].EntryPrice.Equal(d("105")))

	order("SELL", "20", "90")
	pos, _ = ex.OpenPositions(ctx)
	require.Len(t, pos, 1)
	assert.Equal(t, types.SideShort, pos[0].Side)
	assert.True(t, pos[0].Size.Equal(d("5")))
	assert.True(t, pos[0].EntryPrice.Equal(d("90")))

	order("BUY", "5", "80")
	pos, _ = ex.OpenPositions(ctx)
	assert.Empty(t, pos)
}

func TestCreateLimitOrderRejects(t *testing.T) {
	ex := flat()
	ctx := context.Background()
	bad := []types.OrderReq{
		{Symbol: "INFY", Side: "BUY", Size: d("0"), Price: d("100")},
		{Symbol: "INFY", Side: "BUY", Size: d("1"), Price: d("0")},
		{Symbol: "INFY", Side: "HOLD", Size: d("1"), Price: d("100")},
	}
	for _, req := range bad {
		_, err := ex.CreateLimitOrder(ctx, req)
		assert.ErrorIs(t, err, types.ErrOrderRejected)
	}
	pos, _ := ex.OpenPositions(ctx)
	assert.Empty(t, pos)
}
