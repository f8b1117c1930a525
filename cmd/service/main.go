package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/soil-monitor-service/internal/acquisition"
	"github.com/kjstillabower/soil-monitor-service/internal/alerts"
	"github.com/kjstillabower/soil-monitor-service/internal/cache"
	"github.com/kjstillabower/soil-monitor-service/internal/circuitbreaker"
	"github.com/kjstillabower/soil-monitor-service/internal/client"
	"github.com/kjstillabower/soil-monitor-service/internal/config"
	"github.com/kjstillabower/soil-monitor-service/internal/dashboard"
	httphandler "github.com/kjstillabower/soil-monitor-service/internal/http"
	"github.com/kjstillabower/soil-monitor-service/internal/lifecycle"
	"github.com/kjstillabower/soil-monitor-service/internal/notify"
	"github.com/kjstillabower/soil-monitor-service/internal/observability"
	"github.com/kjstillabower/soil-monitor-service/internal/scheduler"
	"github.com/kjstillabower/soil-monitor-service/internal/service"
	"github.com/kjstillabower/soil-monitor-service/internal/synthetic"
	"github.com/kjstillabower/soil-monitor-service/internal/traffic"
)

const soilComponent = "soil_api"

func main() {
	logger, err := observability.NewLogger("soil-monitor-service")
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}
	phase := lifecycle.New()

	soilClient, err := client.NewHTTPSoilClientWithRetry(
		cfg.SoilAPIBaseURL,
		cfg.SoilAPITimeout,
		cfg.RetryAttempts,
		cfg.RetryBaseDelay,
		cfg.RetryMaxDelay,
	)
	if err != nil {
		logger.Fatal("soil client", zap.Error(err))
	}
	if cfg.CircuitBreakerEnabled {
		cb := circuitbreaker.New(circuitbreaker.Config{
			FailureThreshold: cfg.CircuitBreakerFailureThreshold,
			SuccessThreshold: cfg.CircuitBreakerSuccessThreshold,
			OpenTimeout:      cfg.CircuitBreakerTimeout,
			Component:        soilComponent,
			OnStateChange: func(component string, from, to circuitbreaker.State) {
				observability.RecordCircuitBreakerTransition(component, from.String(), to.String(), int(to))
				logger.Info("circuit breaker transition",
					zap.String("component", component),
					zap.String("from", from.String()),
					zap.String("to", to.String()))
			},
		})
		soilClient.SetCircuitBreaker(cb)
		observability.CircuitBreakerState.WithLabelValues(soilComponent).Set(0)
		logger.Info("circuit breaker enabled",
			zap.Int("failure_threshold", cfg.CircuitBreakerFailureThreshold),
			zap.Duration("timeout", cfg.CircuitBreakerTimeout))
	}

	livePolicy, err := alerts.PolicyByName(cfg.LivePolicy)
	if err != nil {
		logger.Fatal("live policy", zap.Error(err))
	}
	simPolicy, err := alerts.PolicyByName(cfg.SimulationPolicy)
	if err != nil {
		logger.Fatal("simulation policy", zap.Error(err))
	}

	gen := synthetic.NewGenerator()
	tracker := traffic.NewTracker(cfg.DegradedWindow)
	acquirer := acquisition.NewAcquirer(soilClient, gen, tracker, logger)

	state := dashboard.NewDashboardState()
	state.Attach(
		dashboard.NewGaugeView(gen.Moisture()),
		dashboard.NewTrendView(dashboard.HourLabels()),
		dashboard.NewAlertBoard(),
	)

	snapshotCache, closeCache, err := buildCache(context.Background(), cfg)
	if err != nil {
		logger.Fatal("snapshot cache", zap.Error(err))
	}
	logger.Info("snapshot cache ready", zap.String("backend", cfg.CacheBackend))
	publisher, err := buildPublisher(cfg)
	if err != nil {
		logger.Fatal("kafka alert publisher", zap.Error(err))
	}
	if cfg.KafkaTopic == "" {
		logger.Info("alert sink disabled")
	} else {
		logger.Info("alert sink: kafka", zap.Strings("brokers", cfg.KafkaBrokers), zap.String("topic", cfg.KafkaTopic))
	}

	svc := service.NewDashboardService(service.Deps{
		Acquirer:         acquirer,
		Climate:          gen,
		LivePolicy:       livePolicy,
		SimulationPolicy: simPolicy,
		State:            state,
		Cache:            snapshotCache,
		CacheTTL:         cfg.CacheTTL,
		Publisher:        publisher,
		Logger:           logger,
	})

	var limiter *rate.Limiter
	if cfg.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)
	}
	handler := httphandler.NewHandler(svc, tracker, &httphandler.HealthConfig{
		DegradedWindow:      cfg.DegradedWindow,
		DegradedFallbackPct: cfg.DegradedFallbackPct,
		Phase:               phase,
		CachePing:           cache.PingFunc(snapshotCache),
	}, logger)
	inFlight := &httphandler.InFlightTracker{}
	router := httphandler.NewRouter(handler, logger, httphandler.RouterConfig{
		RequestTimeout:     cfg.RequestTimeout,
		Limiter:            limiter,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		InFlight:           inFlight,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var schedules []*scheduler.Schedule
	if cfg.LiveEnabled {
		schedules = append(schedules, scheduler.New(service.ScheduleLive, cfg.LiveInterval, svc.PollLive, logger))
	}
	if cfg.SimulationEnabled {
		schedules = append(schedules, scheduler.New(service.ScheduleSimulation, cfg.SimulationInterval, svc.Simulate, logger))
	}
	var wg sync.WaitGroup
	for _, s := range schedules {
		wg.Add(1)
		go func(s *scheduler.Schedule) {
			defer wg.Done()
			logger.Info("schedule started", zap.String("schedule", s.Name()))
			if err := s.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("schedule stopped", zap.String("schedule", s.Name()), zap.Error(err))
			}
		}(s)
	}

	<-ctx.Done()
	stop()

	logger.Info("graceful shutdown triggered")
	phase.BeginShutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	wg.Wait()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	if err := inFlight.WaitForZero(shutdownCtx, 50*time.Millisecond); err != nil {
		logger.Warn("in-flight requests not completed", zap.Error(err), zap.Int64("remaining", inFlight.Count()))
	}

	if err := publisher.Close(); err != nil {
		logger.Error("alert publisher close", zap.Error(err))
	}
	if closeCache != nil {
		if err := closeCache(); err != nil {
			logger.Error("snapshot cache close", zap.Error(err))
		}
	}
	if err := observability.FlushTelemetry(context.Background(), logger); err != nil {
		logger.Error("telemetry flush", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

// buildCache returns the configured snapshot store and its closer (nil for in_memory).
func buildCache(ctx context.Context, cfg *config.Config) (cache.Cache, func() error, error) {
	switch cfg.CacheBackend {
	case "memcached":
		mc, err := cache.NewMemcachedCache(cfg.MemcachedAddrs, cfg.MemcachedTimeout, cfg.MemcachedMaxIdleConns)
		if err != nil {
			return nil, nil, err
		}
		return mc, mc.Close, nil
	case "redis":
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		rc, err := cache.NewRedisCache(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, nil, err
		}
		return rc, rc.Close, nil
	default:
		return cache.NewInMemoryCache(), nil, nil
	}
}

// buildPublisher returns a Kafka publisher when a topic is configured, otherwise a noop.
func buildPublisher(cfg *config.Config) (notify.Publisher, error) {
	if cfg.KafkaTopic == "" {
		return notify.NoopPublisher{}, nil
	}
	p, err := notify.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.KafkaWriteTimeout)
	if err != nil {
		return nil, err
	}
	return p, nil
}
