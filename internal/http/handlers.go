package http

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/soil-monitor-service/internal/lifecycle"
	"github.com/kjstillabower/soil-monitor-service/internal/models"
	"github.com/kjstillabower/soil-monitor-service/internal/requestctx"
)

const serviceName = "soil-monitor-service"

// Dashboard is the read/resize surface the browser talks to.
type Dashboard interface {
	Snapshot(ctx context.Context) models.Snapshot
	Alerts(ctx context.Context) []models.AlertEntry
	Resize(ctx context.Context) (models.Snapshot, error)
}

// FallbackRater reports how many recent acquisitions fell back to synthetic data.
type FallbackRater interface {
	FallbackRate(window time.Duration) (fallbacks, total int)
}

// HealthConfig holds thresholds and probes for the health handler.
type HealthConfig struct {
	DegradedWindow      time.Duration
	DegradedFallbackPct int
	Phase               *lifecycle.Phase
	// CachePing, when set, is called to check reachability of a network snapshot cache.
	CachePing func() error
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	dashboard        Dashboard
	outcomes         FallbackRater
	healthConfig     *HealthConfig
	logger           *zap.Logger
	healthStatusMu   sync.Mutex
	healthStatusPrev string
}

func NewHandler(dashboard Dashboard, outcomes FallbackRater, healthConfig *HealthConfig, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		dashboard:    dashboard,
		outcomes:     outcomes,
		healthConfig: healthConfig,
		logger:       logger,
	}
}

// GetDashboard handles GET /api/dashboard.
func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.dashboard.Snapshot(r.Context()))
}

// GetAlerts handles GET /api/alerts.
func (h *Handler) GetAlerts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"alerts": h.dashboard.Alerts(r.Context()),
	})
}

// PostResize handles POST /api/dashboard/resize. The charts are re-laid out even when
// refreshing the shared snapshot fails, so the error is logged rather than returned.
func (h *Handler) PostResize(w http.ResponseWriter, r *http.Request) {
	snap, err := h.dashboard.Resize(r.Context())
	if err != nil {
		requestctx.Logger(r.Context(), h.logger).Warn("resize snapshot refresh failed", zap.Error(err))
	}
	writeJSON(w, http.StatusOK, snap)
}

type healthResult struct {
	status      string
	statusCode  int
	reason      string
	fallbackPct int
}

// GetHealth handles GET /health.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	result := h.computeHealthStatus()

	h.healthStatusMu.Lock()
	prev := h.healthStatusPrev
	if prev != "" && prev != result.status {
		h.logger.Info("health status transition",
			zap.String("previous_status", prev),
			zap.String("current_status", result.status),
			zap.String("reason", result.reason))
	}
	h.healthStatusPrev = result.status
	h.healthStatusMu.Unlock()

	checks := map[string]string{"soilApi": "healthy"}
	if result.reason == "fallback_rate_breach" {
		checks["soilApi"] = "unhealthy"
	}
	if h.healthConfig != nil && h.healthConfig.CachePing != nil {
		if h.healthConfig.CachePing() == nil {
			checks["cache"] = "healthy"
		} else {
			checks["cache"] = "unhealthy"
		}
	}
	resp := map[string]interface{}{
		"status":      result.status,
		"service":     serviceName,
		"version":     "dev",
		"checks":      checks,
		"fallbackPct": result.fallbackPct,
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
	}
	if h.healthConfig != nil && h.healthConfig.Phase != nil {
		resp["uptimeSeconds"] = int64(h.healthConfig.Phase.Uptime().Seconds())
	}
	writeJSON(w, result.statusCode, resp)
}

// computeHealthStatus evaluates in priority order: shutting-down > degraded > healthy.
func (h *Handler) computeHealthStatus() healthResult {
	if h.healthConfig == nil {
		return healthResult{status: "healthy", statusCode: http.StatusOK}
	}
	if h.healthConfig.Phase != nil && h.healthConfig.Phase.ShuttingDown() {
		return healthResult{status: "shutting-down", statusCode: http.StatusServiceUnavailable, reason: "signal"}
	}
	pct := 0
	if h.outcomes != nil && h.healthConfig.DegradedWindow > 0 {
		fallbacks, total := h.outcomes.FallbackRate(h.healthConfig.DegradedWindow)
		if total > 0 {
			pct = fallbacks * 100 / total
		}
		if total > 0 && h.healthConfig.DegradedFallbackPct > 0 && pct >= h.healthConfig.DegradedFallbackPct {
			return healthResult{status: "degraded", statusCode: http.StatusServiceUnavailable, reason: "fallback_rate_breach", fallbackPct: pct}
		}
	}
	return healthResult{status: "healthy", statusCode: http.StatusOK, fallbackPct: pct}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes the standard error body with the request's correlation ID.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{
			"code":      code,
			"message":   message,
			"requestId": requestctx.CorrelationID(r.Context()),
		},
	})
}
