package main

import (
	"context"
	"fmt"
	"os"

	"rfactor-bot/internal/broker"
	"rfactor-bot/internal/broker/brokerobs"
	"rfactor-bot/internal/broker/paper"
	"rfactor-bot/internal/broker/zerodha"
	"rfactor-bot/internal/engine"
	"rfactor-bot/internal/engine/engineobs"
	"rfactor-bot/internal/interfaces"
	"rfactor-bot/internal/logger"
	"rfactor-bot/internal/scheduler"
	"rfactor-bot/internal/state"
	"rfactor-bot/internal/store"
	"rfactor-bot/internal/trace"
	"rfactor-bot/internal/tradelog"
	"rfactor-bot/internal/types"

	"github.com/joho/godotenv"
)

// initializeSystem initializes logger and tracer
func initializeSystem() error {
	// Load environment variables
	_ = godotenv.Load()

	// Initialize logger
	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	// Initialize tracer
	if err := trace.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize tracer: %v\n", err)
	}

	return nil
}

// loadConfig loads credentials from the environment and the YAML config they point at
func loadConfig(ctx context.Context) (*store.Config, store.Credentials, error) {
	creds, err := store.LoadCredentials()
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to read environment", err)
		return nil, store.Credentials{}, err
	}
	cfg, err := store.LoadConfig(creds.ConfigPath)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to load config", err, "path", creds.ConfigPath)
		return nil, store.Credentials{}, err
	}
	return cfg, creds, nil
}

// openJournal compresses journal files past retention and opens today's journal
func openJournal(ctx context.Context, cfg *store.Config, creds store.Credentials) (*tradelog.Journal, error) {
	if err := tradelog.CompressOlder(cfg.JournalDir, creds.RetentionDays); err != nil {
		logger.Warn(ctx, "Failed to compress old journal files", "error", err)
	}
	return tradelog.Open(cfg.JournalDir)
}

// initializeExchange builds the exchange for the configured mode, serialized
// and rate limited, with observability
func initializeExchange(ctx context.Context, cfg *store.Config, creds store.Credentials) (interfaces.Exchange, error) {
	var ex interfaces.Exchange

	switch cfg.Mode {
	case "LIVE":
		z, err := zerodha.NewZerodha(zerodha.Params{
			APIKey:      creds.APIKey,
			AccessToken: creds.AccessToken,
			Exchange:    cfg.Exchange,
		})
		if err != nil {
			return nil, err
		}
		logger.Warn(ctx, "Running in LIVE mode - orders will reach the exchange", "exchange", cfg.Exchange)
		ex = z
	default:
		ex = paper.New(paper.Config{
			Seed:       cfg.Paper.Seed,
			StartPrice: cfg.Paper.StartPrice,
			Spread:     cfg.Paper.Spread,
			Volatility: cfg.Paper.Volatility,
		})
		logger.Warn(ctx, "Running in DRY_RUN mode - orders will be simulated")
	}

	limiter := broker.NewRateLimiter(cfg.Broker.RateLimitBurst, cfg.RateLimitRefill())

	// Wrap with observability middleware
	return brokerobs.Wrap(broker.Guard(ex, limiter)), nil
}

// initializeEngine initializes and returns the trading engine with observability
func initializeEngine(cfg *store.Config, snaps interfaces.SnapshotProvider, ex interfaces.Exchange, journal *tradelog.Journal, st *state.Store) interfaces.Engine {
	// Create base engine
	eng := engine.New(cfg, snaps, ex, journal, st)

	// Wrap with observability middleware
	return engineobs.Wrap(eng)
}

// probe checks that the exchange answers a full snapshot and a position
// listing before anything is scheduled. Exhausting the retries is fatal.
func probe(ctx context.Context, cfg *store.Config, ex interfaces.Exchange, snaps interfaces.SnapshotProvider) error {
	err := scheduler.Retry(ctx, cfg.Schedule.StartupRetries, cfg.Cooldown()/10, cfg.Cooldown(), func(ctx context.Context) error {
		if err := ex.Start(ctx, []string{cfg.Symbol}); err != nil {
			return err
		}
		if _, err := snaps.GetSnapshot(ctx, cfg.Symbol, cfg.TimeframeList()); err != nil {
			logger.Warn(ctx, "Startup probe failed", "symbol", cfg.Symbol, "error", err)
			return err
		}
		_, err := snaps.GetOpenPositions(ctx)
		return err
	})
	if err != nil {
		return fmt.Errorf("%w: exchange unreachable after %d attempts: %w", types.ErrUnrecoverable, cfg.Schedule.StartupRetries, err)
	}
	logger.Info(ctx, "Startup probe passed", "symbol", cfg.Symbol)
	return nil
}
