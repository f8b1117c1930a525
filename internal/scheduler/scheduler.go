// Package scheduler drives the periodic dashboard updates. Each schedule allows at most
// one run in flight; ticks that arrive while a run is active are dropped, not queued.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kjstillabower/soil-monitor-service/internal/observability"
	"github.com/kjstillabower/soil-monitor-service/internal/requestctx"
)

// Task is one scheduled unit of work. The context carries a per-tick correlation ID and logger.
type Task func(ctx context.Context) error

// Schedule runs Task every Interval, starting immediately.
type Schedule struct {
	name     string
	interval time.Duration
	task     Task
	logger   *zap.Logger

	busy atomic.Bool
	wg   sync.WaitGroup
}

func New(name string, interval time.Duration, task Task, logger *zap.Logger) *Schedule {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Schedule{
		name:     name,
		interval: interval,
		task:     task,
		logger:   logger.With(zap.String("schedule", name)),
	}
}

func (s *Schedule) Name() string { return s.name }

// Busy reports whether a run is in flight.
func (s *Schedule) Busy() bool { return s.busy.Load() }

// Run fires one tick immediately, then one per interval until ctx is done.
// It waits for an in-flight run to return before exiting.
func (s *Schedule) Run(ctx context.Context) error {
	defer s.wg.Wait()
	s.Tick(ctx)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick starts a run in the background unless one is already in flight.
// Returns false when the tick was dropped.
func (s *Schedule) Tick(ctx context.Context) bool {
	if !s.busy.CompareAndSwap(false, true) {
		observability.ScheduleTicksTotal.WithLabelValues(s.name, "dropped").Inc()
		s.logger.Debug("tick dropped, previous run still in flight")
		return false
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.busy.Store(false)
		s.runOnce(ctx)
	}()
	return true
}

func (s *Schedule) runOnce(ctx context.Context) {
	id := uuid.NewString()
	logger := s.logger.With(zap.String("correlation_id", id))
	ctx = requestctx.WithCorrelationID(ctx, id)
	ctx = requestctx.WithLogger(ctx, logger)

	start := time.Now()
	err := s.task(ctx)
	observability.ScheduleTickDuration.WithLabelValues(s.name).Observe(time.Since(start).Seconds())

	switch {
	case err == nil:
		observability.ScheduleTicksTotal.WithLabelValues(s.name, "ok").Inc()
	case errors.Is(err, context.Canceled):
		observability.ScheduleTicksTotal.WithLabelValues(s.name, "cancelled").Inc()
	default:
		observability.ScheduleTicksTotal.WithLabelValues(s.name, "error").Inc()
		logger.Warn("scheduled run failed", zap.Error(err))
	}
}
