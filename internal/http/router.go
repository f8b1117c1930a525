package http

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/soil-monitor-service/internal/observability"
)

// RouterConfig configures the browser-facing router.
type RouterConfig struct {
	RequestTimeout     time.Duration
	Limiter            *rate.Limiter // nil disables rate limiting
	CORSAllowedOrigins []string
	InFlight           *InFlightTracker
}

// NewRouter mounts the dashboard API, /health and /metrics behind CORS and panic recovery.
func NewRouter(h *Handler, logger *zap.Logger, cfg RouterConfig) http.Handler {
	router := mux.NewRouter()
	router.Use(CorrelationIDMiddleware(logger))
	router.Use(MetricsMiddleware)
	if cfg.InFlight != nil {
		router.Use(InFlightMiddleware(cfg.InFlight))
	}

	router.HandleFunc("/health", h.GetHealth).Methods(http.MethodGet)
	router.Handle("/metrics", observability.MetricsHandler()).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()
	if cfg.RequestTimeout > 0 {
		api.Use(TimeoutMiddleware(cfg.RequestTimeout))
	}
	api.Use(RateLimitMiddleware(cfg.Limiter))
	api.HandleFunc("/dashboard", h.GetDashboard).Methods(http.MethodGet)
	api.HandleFunc("/dashboard/resize", h.PostResize).Methods(http.MethodPost)
	api.HandleFunc("/alerts", h.GetAlerts).Methods(http.MethodGet)

	origins := cfg.CORSAllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	cors := handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type", correlationHeader}),
		handlers.ExposedHeaders([]string{correlationHeader}),
	)
	recovery := handlers.RecoveryHandler(
		handlers.RecoveryLogger(recoveryLogger{logger: logger}),
		handlers.PrintRecoveryStack(false),
	)
	return recovery(cors(router))
}

// recoveryLogger adapts zap to handlers.RecoveryHandlerLogger.
type recoveryLogger struct {
	logger *zap.Logger
}

func (l recoveryLogger) Println(v ...interface{}) {
	l.logger.Error("panic recovered in http handler", zap.String("panic", fmt.Sprint(v...)))
}
