package engine

import (
	"context"
	"testing"

	"rfactor-bot/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPlanBuyScenario(t *testing.T) {
	plan, err := BuildPlan(types.SignalBuy, snap("INFY", "99.9", "100", nil), params("2"))
	require.NoError(t, err)

	assert.Equal(t, "INFY", plan.Symbol)
	assert.True(t, plan.EntryPrice.Equal(d("100")))
	assert.True(t, plan.StopLoss.Equal(d("99")), "stop %s", plan.StopLoss)
	assert.True(t, plan.TakeProfit.Equal(d("102")), "target %s", plan.TakeProfit)
	assert.Equal(t, "10.000000", plan.Size.StringFixed(6))
	assert.True(t, plan.LeverageUsed.Equal(d("200")), "leverage used %s", plan.LeverageUsed)
}

func TestBuildPlanSellUsesBid(t *testing.T) {
	plan, err := BuildPlan(types.SignalSell, snap("INFY", "200", "200.5", nil), params("2"))
	require.NoError(t, err)

	assert.True(t, plan.EntryPrice.Equal(d("200")))
	assert.True(t, plan.StopLoss.Equal(d("202")))
	assert.True(t, plan.TakeProfit.Equal(d("196")))
	assert.True(t, plan.Size.Equal(d("5")))
}

func TestBuildPlanHoldIsNoSignal(t *testing.T) {
	plan, err := BuildPlan(types.SignalHold, snap("INFY", "100", "100", nil), params("2"))
	require.ErrorIs(t, err, types.ErrNoSignal)
	assert.Equal(t, types.TradePlan{}, plan)
}

func TestBuildPlanDegenerate(t *testing.T) {
	zeroStop := params("2")
	zeroStop.StopFraction = d("0")
	_, err := BuildPlan(types.SignalBuy, snap("INFY", "100", "100", nil), zeroStop)
	require.ErrorIs(t, err, types.ErrDegenerateRisk)

	tiny := params("2")
	tiny.RiskPerTrade = d("0.0000001")
	_, err = BuildPlan(types.SignalBuy, snap("INFY", "100", "100", nil), tiny)
	require.ErrorIs(t, err, types.ErrDegenerateRisk)

	noLeverage := params("2")
	noLeverage.Leverage = d("0")
	_, err = BuildPlan(types.SignalSell, snap("INFY", "100", "100", nil), noLeverage)
	require.ErrorIs(t, err, types.ErrDegenerateRisk)
}

func TestBuildPlanSizeMatchesRiskOverDistance(t *testing.T) {
	p := params("2")
	for _, entry := range []string{"1", "7.5", "100", "123.45", "2500"} {
		plan, err := BuildPlan(types.SignalBuy, snap("INFY", entry, entry, nil), p)
		require.NoError(t, err, entry)

		distance := plan.EntryPrice.Sub(plan.StopLoss).Abs()
		want := p.RiskPerTrade.Div(distance).Round(p.SizePrecision)
		assert.True(t, plan.Size.Equal(want), "entry %s: size %s want %s", entry, plan.Size, want)
		assert.True(t, plan.Size.IsPositive())
	}
}

func TestRiskManagerPassesThroughErrors(t *testing.T) {
	rm := newRiskManager(params("2"))
	_, err := rm.buildPlan(context.Background(), types.SignalHold, snap("INFY", "100", "100", nil))
	assert.ErrorIs(t, err, types.ErrNoSignal)
}
