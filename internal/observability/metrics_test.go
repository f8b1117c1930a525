package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// TestMetrics_Usable verifies label dimensions match usage across client, acquisition, scheduler,
// cache, notify and http packages.
func TestMetrics_Usable(t *testing.T) {
	HTTPRequestsTotal.WithLabelValues("GET", "/api/dashboard", "2xx").Inc()
	HTTPRequestDuration.WithLabelValues("GET", "/api/dashboard").Observe(0.01)
	SoilAPICallsTotal.WithLabelValues("success").Inc()
	SoilAPIDuration.WithLabelValues("success").Observe(0.1)
	SoilAPIErrorsTotal.WithLabelValues("transport").Inc()
	AcquisitionsTotal.WithLabelValues("live").Inc()
	AcquisitionsTotal.WithLabelValues("synthetic").Inc()
	AlertsTotal.WithLabelValues("soil_only", "over_wet").Inc()
	ScheduleTicksTotal.WithLabelValues("live", "dropped").Inc()
	ScheduleTickDuration.WithLabelValues("live").Observe(0.2)
	SnapshotCacheOpsTotal.WithLabelValues("set", "success").Inc()
	AlertPublishTotal.WithLabelValues("error").Inc()
	RecordCircuitBreakerTransition("soil_api", "closed", "open", 1)
}

func TestMetricsHandler_ServesPrometheusFormat(t *testing.T) {
	HTTPRequestsTotal.WithLabelValues("GET", "/health", "2xx").Inc()

	handler := MetricsHandler()
	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("MetricsHandler status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), "httpRequestsTotal") {
		t.Error("MetricsHandler response should contain metric output")
	}
}
