// Package service runs the dashboard pipeline: acquire, evaluate, render, then share the result.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/soil-monitor-service/internal/alerts"
	"github.com/kjstillabower/soil-monitor-service/internal/cache"
	"github.com/kjstillabower/soil-monitor-service/internal/dashboard"
	"github.com/kjstillabower/soil-monitor-service/internal/models"
	"github.com/kjstillabower/soil-monitor-service/internal/notify"
	"github.com/kjstillabower/soil-monitor-service/internal/observability"
	"github.com/kjstillabower/soil-monitor-service/internal/requestctx"
)

const (
	ScheduleLive       = "live"
	ScheduleSimulation = "simulation"
)

// Acquirer returns a soil reading, live or synthetic. It never fails.
type Acquirer interface {
	Acquire(ctx context.Context) models.Reading
}

// ClimateSource produces the simulated temperature/humidity readings.
type ClimateSource interface {
	ClimateReading() models.Reading
}

// Deps wires the service. Cache and Publisher may be nil.
type Deps struct {
	Acquirer         Acquirer
	Climate          ClimateSource
	LivePolicy       alerts.Policy
	SimulationPolicy alerts.Policy
	State            *dashboard.DashboardState
	Cache            cache.Cache
	CacheTTL         time.Duration
	Publisher        notify.Publisher
	Logger           *zap.Logger
}

// DashboardService owns one pipeline per schedule over a shared DashboardState.
type DashboardService struct {
	acquirer  Acquirer
	climate   ClimateSource
	live      alerts.Policy
	sim       alerts.Policy
	state     *dashboard.DashboardState
	cache     cache.Cache
	ttl       time.Duration
	publisher notify.Publisher
	logger    *zap.Logger
	now       func() time.Time

	// storeMu orders snapshot writes across schedules; storedVersion is the newest one written.
	storeMu       sync.Mutex
	storedVersion uint64
}

func NewDashboardService(d Deps) *DashboardService {
	if d.LivePolicy == nil {
		d.LivePolicy = alerts.SoilOnly{}
	}
	if d.SimulationPolicy == nil {
		d.SimulationPolicy = alerts.Combined{}
	}
	if d.Publisher == nil {
		d.Publisher = notify.NoopPublisher{}
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.State == nil {
		d.State = dashboard.NewDashboardState()
	}
	return &DashboardService{
		acquirer:  d.Acquirer,
		climate:   d.Climate,
		live:      d.LivePolicy,
		sim:       d.SimulationPolicy,
		state:     d.State,
		cache:     d.Cache,
		ttl:       d.CacheTTL,
		publisher: d.Publisher,
		logger:    d.Logger,
		now:       time.Now,
	}
}

// PollLive acquires a soil reading and renders it with the live policy.
func (s *DashboardService) PollLive(ctx context.Context) error {
	reading := s.acquirer.Acquire(ctx)
	return s.process(ctx, ScheduleLive, s.live, reading)
}

// Simulate renders one synthetic climate reading with the simulation policy.
func (s *DashboardService) Simulate(ctx context.Context) error {
	reading := s.climate.ClimateReading()
	return s.process(ctx, ScheduleSimulation, s.sim, reading)
}

// process renders first so the dashboard is current even when sharing the result fails.
func (s *DashboardService) process(ctx context.Context, schedule string, policy alerts.Policy, reading models.Reading) error {
	logger := requestctx.Logger(ctx, s.logger)
	now := s.now()

	records := policy.Evaluate(reading, now)
	for _, rec := range records {
		observability.AlertsTotal.WithLabelValues(policy.Name(), string(rec.Severity)).Inc()
	}
	snap := dashboard.Render(s.state, reading, records)
	observability.DashboardGaugeValue.Set(reading.Moisture)

	logger.Debug("dashboard rendered",
		zap.String("policy", policy.Name()),
		zap.Float64("moisture", reading.Moisture),
		zap.Bool("is_real_data", reading.IsRealData),
		zap.Int("alerts", len(records)),
	)

	var errs []error
	if err := s.storeSnapshot(ctx, snap); err != nil {
		errs = append(errs, err)
	}
	if err := s.publish(ctx, notify.NewAlertEvent(schedule, policy.Name(), reading, records, now)); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// storeSnapshot writes snap unless a newer render has already been stored.
func (s *DashboardService) storeSnapshot(ctx context.Context, snap models.Snapshot) error {
	if s.cache == nil {
		return nil
	}
	s.storeMu.Lock()
	defer s.storeMu.Unlock()
	if snap.Version <= s.storedVersion {
		observability.SnapshotCacheOpsTotal.WithLabelValues("set", "stale").Inc()
		return nil
	}
	if err := s.cache.Set(ctx, cache.SnapshotKey, snap, s.ttl); err != nil {
		observability.SnapshotCacheOpsTotal.WithLabelValues("set", "error").Inc()
		return fmt.Errorf("store snapshot: %w", err)
	}
	s.storedVersion = snap.Version
	observability.SnapshotCacheOpsTotal.WithLabelValues("set", "success").Inc()
	return nil
}

func (s *DashboardService) publish(ctx context.Context, ev notify.AlertEvent) error {
	if _, noop := s.publisher.(notify.NoopPublisher); noop {
		return nil
	}
	if err := s.publisher.Publish(ctx, ev); err != nil {
		observability.AlertPublishTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("publish alerts: %w", err)
	}
	observability.AlertPublishTotal.WithLabelValues("success").Inc()
	return nil
}

// Snapshot returns the latest snapshot from the shared store, or the in-process state on miss or error.
func (s *DashboardService) Snapshot(ctx context.Context) models.Snapshot {
	if s.cache != nil {
		snap, ok, err := s.cache.Get(ctx, cache.SnapshotKey)
		switch {
		case err != nil:
			observability.SnapshotCacheOpsTotal.WithLabelValues("get", "error").Inc()
			requestctx.Logger(ctx, s.logger).Warn("snapshot cache get failed", zap.Error(err))
		case ok:
			observability.SnapshotCacheOpsTotal.WithLabelValues("get", "hit").Inc()
			return snap
		default:
			observability.SnapshotCacheOpsTotal.WithLabelValues("get", "miss").Inc()
		}
	}
	return s.state.Snapshot()
}

// Alerts returns the current alert entries.
func (s *DashboardService) Alerts(ctx context.Context) []models.AlertEntry {
	return s.Snapshot(ctx).Alerts
}

// Resize re-lays out the charts and refreshes the stored snapshot.
func (s *DashboardService) Resize(ctx context.Context) (models.Snapshot, error) {
	snap := dashboard.Resize(s.state)
	if err := s.storeSnapshot(ctx, snap); err != nil {
		return snap, err
	}
	return snap, nil
}
