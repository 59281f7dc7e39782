package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rfactor-bot/internal/interfaces"
	"rfactor-bot/internal/logger"
	"rfactor-bot/internal/market"
	"rfactor-bot/internal/scheduler"
	"rfactor-bot/internal/state"
	"rfactor-bot/internal/trace"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "rfactor-bot: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if err := initializeSystem(); err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = trace.Shutdown(shutdownCtx)
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, creds, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	journal, err := openJournal(ctx, cfg, creds)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer journal.Close()

	ex, err := initializeExchange(ctx, cfg, creds)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to initialize exchange", err, "mode", cfg.Mode)
		return err
	}
	defer ex.Stop(context.WithoutCancel(ctx))

	snaps := market.NewProvider(ex, cfg.SMAWindow)
	if err := probe(ctx, cfg, ex, snaps); err != nil {
		logger.ErrorWithErr(ctx, "Startup failed", err)
		return err
	}

	st := state.NewStore()
	eng := initializeEngine(cfg, snaps, ex, journal, st)

	if cfg.StatusAddr != "" {
		go func() {
			if err := state.Serve(ctx, cfg.StatusAddr, st); err != nil {
				logger.ErrorWithErr(ctx, "Status server stopped", err, "addr", cfg.StatusAddr)
			}
		}()
	}

	sup := scheduler.New(cfg.Cooldown(), cfg.MaxCooldown(),
		scheduler.Trigger{Name: "ExecuteTrade", Symbol: cfg.Symbol, Interval: cfg.ExecuteInterval(), Run: executeTrade(eng)},
		scheduler.Trigger{Name: "ReconcilePositions", Symbol: cfg.Symbol, Interval: cfg.ReconcileInterval(), Run: reconcilePositions(eng)},
	)

	logger.Info(ctx, "Bot started",
		"mode", cfg.Mode,
		"symbol", cfg.Symbol,
		"timeframes", cfg.TimeframeList(),
		"execute_every", cfg.ExecuteInterval().String(),
		"reconcile_every", cfg.ReconcileInterval().String(),
	)
	if err := sup.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info(context.WithoutCancel(ctx), "Shutting down...")
	return nil
}

func executeTrade(eng interfaces.Engine) func(context.Context) error {
	return func(ctx context.Context) error {
		res, err := eng.ExecuteTrade(ctx)
		if err != nil {
			return err
		}
		printJSON(res)
		return nil
	}
}

func reconcilePositions(eng interfaces.Engine) func(context.Context) error {
	return func(ctx context.Context) error {
		decisions, err := eng.ReconcilePositions(ctx)
		for _, d := range decisions {
			if d.Close {
				printJSON(d)
			}
		}
		return err
	}
}

func printJSON(v any) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	fmt.Println(string(b))
}
