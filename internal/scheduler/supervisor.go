package scheduler

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"rfactor-bot/internal/logger"
	"rfactor-bot/internal/trace"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Trigger is one periodic job. Run must not assume it shares a goroutine
// with any other trigger.
type Trigger struct {
	Name     string
	Symbol   string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// Stats are the counters kept for one trigger.
type Stats struct {
	Ticks       int64     `json:"ticks"`
	Failures    int64     `json:"failures"`
	Consecutive int       `json:"consecutive_failures"`
	LastRun     time.Time `json:"last_run,omitzero"`
	LastError   string    `json:"last_error,omitempty"`
}

type job struct {
	Trigger

	mu    sync.Mutex
	stats Stats
}

// Supervisor drives each trigger on its own fixed interval. A trigger never
// has more than one tick in flight. A failed or panicking tick is logged,
// followed by a cooldown that doubles with each consecutive failure up to
// maxCooldown, after which the trigger runs again at once. Nothing a tick does stops the
// supervisor; only cancelling the Run context does.
type Supervisor struct {
	jobs        []*job
	cooldown    time.Duration
	maxCooldown time.Duration

	sleep func(ctx context.Context, d time.Duration) bool
}

func New(cooldown, maxCooldown time.Duration, triggers ...Trigger) *Supervisor {
	s := &Supervisor{
		cooldown:    cooldown,
		maxCooldown: maxCooldown,
		sleep:       sleepCtx,
	}
	for _, t := range triggers {
		s.jobs = append(s.jobs, &job{Trigger: t})
	}
	return s
}

// Run blocks until ctx is cancelled. Every trigger fires once immediately.
// Ticks run under a context detached from ctx so that shutdown waits for an
// in-flight tick instead of cutting its exchange calls short.
func (s *Supervisor) Run(ctx context.Context) error {
	if len(s.jobs) == 0 {
		return errors.New("no triggers")
	}
	for _, j := range s.jobs {
		if j.Interval <= 0 {
			return fmt.Errorf("trigger %s: interval must be positive, got %s", j.Name, j.Interval)
		}
	}

	logger.Info(ctx, "Supervisor started", "triggers", len(s.jobs), "cooldown", s.cooldown.String(), "max_cooldown", s.maxCooldown.String())

	g, gctx := errgroup.WithContext(ctx)
	for _, j := range s.jobs {
		g.Go(func() error {
			s.loop(gctx, j)
			return nil
		})
	}
	err := g.Wait()

	for name, st := range s.Stats() {
		logger.Info(context.WithoutCancel(ctx), "Supervisor stopped trigger",
			"trigger", name,
			"ticks", st.Ticks,
			"failures", st.Failures,
		)
	}
	return err
}

func (s *Supervisor) loop(ctx context.Context, j *job) {
	ticker := time.NewTicker(j.Interval)
	defer ticker.Stop()

	for {
		if err := s.tick(ctx, j); err != nil {
			wait := Backoff(s.cooldown, s.maxCooldown, j.consecutive())
			logger.Warn(ctx, "Trigger cooling down", "trigger", j.Name, "cooldown", wait.String())
			if !s.sleep(ctx, wait) {
				return
			}
			// The failed tick is still due; rerun it now and restart the interval.
			ticker.Reset(j.Interval)
			select {
			case <-ticker.C:
			default:
			}
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// tick runs one evaluation of j and records the outcome.
func (s *Supervisor) tick(ctx context.Context, j *job) (err error) {
	tctx, span := trace.StartSpan(context.WithoutCancel(ctx), "scheduler."+j.Name)
	defer span.End()

	tickID := uuid.NewString()
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s tick: %v", j.Name, r)
			logger.Error(tctx, "Tick panicked", "trigger", j.Name, "tick_id", tickID, "stack", string(debug.Stack()))
		}
		elapsed := time.Since(start)
		j.record(start, err)
		if err != nil {
			logger.ErrorWithErr(tctx, "Tick failed", err,
				"trigger", j.Name,
				"symbol", j.Symbol,
				"tick_id", tickID,
				"at", start.UTC().Format(time.RFC3339),
				"duration_ms", elapsed.Milliseconds(),
			)
			return
		}
		if elapsed > j.Interval {
			logger.Warn(tctx, "Tick overran its interval", "trigger", j.Name, "tick_id", tickID, "duration", elapsed.String(), "interval", j.Interval.String())
		}
		logger.Debug(tctx, "Tick completed", "trigger", j.Name, "tick_id", tickID, "duration_ms", elapsed.Milliseconds())
	}()

	return j.Run(tctx)
}

func (j *job) record(at time.Time, err error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.stats.Ticks++
	j.stats.LastRun = at
	if err != nil {
		j.stats.Failures++
		j.stats.Consecutive++
		j.stats.LastError = err.Error()
		return
	}
	j.stats.Consecutive = 0
	j.stats.LastError = ""
}

func (j *job) consecutive() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.stats.Consecutive
}

// Stats returns a copy of the counters per trigger name.
func (s *Supervisor) Stats() map[string]Stats {
	out := make(map[string]Stats, len(s.jobs))
	for _, j := range s.jobs {
		j.mu.Lock()
		out[j.Name] = j.stats
		j.mu.Unlock()
	}
	return out
}
