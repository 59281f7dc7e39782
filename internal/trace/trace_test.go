package trace

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisabledIsNoop(t *testing.T) {
	require.NoError(t, InitWithConfig(Config{}))
	assert.False(t, Enabled())

	ctx, span := StartSpan(context.Background(), "noop")
	defer span.End()
	_, _, ok := GetTraceFields(ctx)
	assert.False(t, ok)

	assert.NotPanics(t, func() {
		RecordError(ctx, errors.New("ignored"))
		AddEvent(ctx, "ignored", "k", "v")
	})
}

func TestEnabledSpansCarryIDs(t *testing.T) {
	require.NoError(t, InitWithConfig(Config{Enabled: true}))
	t.Cleanup(func() {
		_ = Shutdown(context.Background())
		_ = InitWithConfig(Config{})
	})

	ctx, span := StartSpan(context.Background(), "engine.ExecuteTrade")
	traceID, spanID, ok := GetTraceFields(ctx)
	require.True(t, ok)
	assert.Len(t, traceID, 32)
	assert.Len(t, spanID, 16)

	AddEvent(ctx, "signal", "symbol", "INFY", "dangling")
	RecordError(ctx, errors.New("boom"))
	span.End()
}
