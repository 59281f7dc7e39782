package main

import (
	"context"
	"errors"
	"sync"
	"testing"

	"rfactor-bot/internal/broker/paper"
	"rfactor-bot/internal/interfaces"
	"rfactor-bot/internal/market"
	"rfactor-bot/internal/store"
	"rfactor-bot/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakyExchange fails Start, BestBidAsk or OpenPositions until the
// matching counter runs out, then defers to the paper exchange.
type flakyExchange struct {
	interfaces.Exchange

	mu             sync.Mutex
	startFails     int
	quoteFails     int
	positionsFails int
	starts         int
	positionCalls  int
}

var errDown = errors.New("connection refused")

func (f *flakyExchange) Start(ctx context.Context, symbols []string) error {
	f.mu.Lock()
	f.starts++
	fail := f.startFails > 0
	if fail {
		f.startFails--
	}
	f.mu.Unlock()
	if fail {
		return errDown
	}
	return f.Exchange.Start(ctx, symbols)
}

func (f *flakyExchange) BestBidAsk(ctx context.Context, symbol string) (types.Quote, error) {
	f.mu.Lock()
	fail := f.quoteFails > 0
	if fail {
		f.quoteFails--
	}
	f.mu.Unlock()
	if fail {
		return types.Quote{}, errDown
	}
	return f.Exchange.BestBidAsk(ctx, symbol)
}

func (f *flakyExchange) OpenPositions(ctx context.Context) ([]types.Position, error) {
	f.mu.Lock()
	f.positionCalls++
	fail := f.positionsFails > 0
	if fail {
		f.positionsFails--
	}
	f.mu.Unlock()
	if fail {
		return nil, errDown
	}
	return f.Exchange.OpenPositions(ctx)
}

func probeConfig(t *testing.T) *store.Config {
	t.Helper()
	cfg, err := store.ParseConfig([]byte("symbol: INFY\nsma_window: 5\nschedule:\n  startup_retries: 3\n"))
	require.NoError(t, err)
	// no waiting between attempts
	cfg.Schedule.CooldownSeconds = 0
	return cfg
}

func newFlaky() *flakyExchange {
	return &flakyExchange{Exchange: paper.New(paper.Config{Seed: 7, StartPrice: 1500})}
}

func TestProbeUnrecoverableAfterRetries(t *testing.T) {
	cases := map[string]func(f *flakyExchange){
		"start":     func(f *flakyExchange) { f.startFails = 100 },
		"snapshot":  func(f *flakyExchange) { f.quoteFails = 100 },
		"positions": func(f *flakyExchange) { f.positionsFails = 100 },
	}
	for name, breakIt := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := probeConfig(t)
			ex := newFlaky()
			breakIt(ex)

			err := probe(context.Background(), cfg, ex, market.NewProvider(ex, cfg.SMAWindow))
			require.Error(t, err)
			assert.True(t, errors.Is(err, types.ErrUnrecoverable))
			assert.True(t, errors.Is(err, errDown))
			assert.Equal(t, cfg.Schedule.StartupRetries, ex.starts)
		})
	}
}

func TestProbePassesOnceExchangeRecovers(t *testing.T) {
	cfg := probeConfig(t)
	ex := newFlaky()
	ex.startFails = 1
	ex.positionsFails = 1

	err := probe(context.Background(), cfg, ex, market.NewProvider(ex, cfg.SMAWindow))
	require.NoError(t, err)
	assert.Equal(t, 3, ex.starts)
	assert.Equal(t, 2, ex.positionCalls)
}
