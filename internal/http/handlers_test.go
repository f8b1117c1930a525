package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kjstillabower/soil-monitor-service/internal/lifecycle"
	"github.com/kjstillabower/soil-monitor-service/internal/models"
)

type mockDashboard struct {
	snap      models.Snapshot
	resizeErr error
	resizes   int
}

func (m *mockDashboard) Snapshot(context.Context) models.Snapshot { return m.snap }

func (m *mockDashboard) Alerts(context.Context) []models.AlertEntry { return m.snap.Alerts }

func (m *mockDashboard) Resize(context.Context) (models.Snapshot, error) {
	m.resizes++
	m.snap.Layouts++
	return m.snap, m.resizeErr
}

type mockRater struct {
	fallbacks, total int
}

func (m *mockRater) FallbackRate(time.Duration) (int, int) { return m.fallbacks, m.total }

func sampleSnapshot() models.Snapshot {
	return models.Snapshot{
		GaugeValue:  62.4,
		Labels:      []string{"00:00", "01:00"},
		Temperature: []float64{21.5},
		Alerts: []models.AlertEntry{
			{Text: "10:00:00 - normal: 62.4%", Severity: models.SeverityNormal},
			{Text: "10:00:00 - last update: 10:00:00", Severity: models.SeverityInfo},
		},
		IsRealData: true,
	}
}

func TestHandler_GetDashboard(t *testing.T) {
	handler := NewHandler(&mockDashboard{snap: sampleSnapshot()}, nil, nil, zap.NewNop())

	req := httptest.NewRequest("GET", "/api/dashboard", nil)
	w := httptest.NewRecorder()
	handler.GetDashboard(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
	var got models.Snapshot
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.GaugeValue != 62.4 || !got.IsRealData || len(got.Alerts) != 2 {
		t.Errorf("body = %+v", got)
	}
}

func TestHandler_GetAlerts(t *testing.T) {
	handler := NewHandler(&mockDashboard{snap: sampleSnapshot()}, nil, nil, zap.NewNop())

	w := httptest.NewRecorder()
	handler.GetAlerts(w, httptest.NewRequest("GET", "/api/alerts", nil))

	var body struct {
		Alerts []models.AlertEntry `json:"alerts"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Alerts) != 2 || body.Alerts[0].Severity != models.SeverityNormal {
		t.Errorf("alerts = %+v", body.Alerts)
	}
}

func TestHandler_PostResize(t *testing.T) {
	dash := &mockDashboard{snap: sampleSnapshot()}
	handler := NewHandler(dash, nil, nil, zap.NewNop())

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		handler.PostResize(w, httptest.NewRequest("POST", "/api/dashboard/resize", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", w.Code)
		}
	}
	if dash.resizes != 2 {
		t.Errorf("resizes = %d, want 2", dash.resizes)
	}
}

func TestHandler_PostResize_StoreErrorStillOK(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	dash := &mockDashboard{snap: sampleSnapshot(), resizeErr: errors.New("cache down")}
	handler := NewHandler(dash, nil, nil, zap.New(core))

	w := httptest.NewRecorder()
	handler.PostResize(w, httptest.NewRequest("POST", "/api/dashboard/resize", nil))

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
	if logs.FilterMessage("resize snapshot refresh failed").Len() != 1 {
		t.Errorf("expected warn log, got %v", logs.All())
	}
}

func TestHandler_GetHealth(t *testing.T) {
	tests := []struct {
		name       string
		rater      *mockRater
		shutdown   bool
		cachePing  func() error
		wantCode   int
		wantStatus string
		wantCache  string
	}{
		{
			name:       "healthy with no acquisitions yet",
			rater:      &mockRater{},
			wantCode:   http.StatusOK,
			wantStatus: "healthy",
		},
		{
			name:       "healthy below fallback threshold",
			rater:      &mockRater{fallbacks: 1, total: 4},
			wantCode:   http.StatusOK,
			wantStatus: "healthy",
		},
		{
			name:       "degraded at fallback threshold",
			rater:      &mockRater{fallbacks: 2, total: 4},
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: "degraded",
		},
		{
			name:       "shutting down wins over degraded",
			rater:      &mockRater{fallbacks: 4, total: 4},
			shutdown:   true,
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: "shutting-down",
		},
		{
			name:       "cache unreachable is reported",
			rater:      &mockRater{},
			cachePing:  func() error { return errors.New("dial tcp: refused") },
			wantCode:   http.StatusOK,
			wantStatus: "healthy",
			wantCache:  "unhealthy",
		},
		{
			name:       "cache reachable",
			rater:      &mockRater{},
			cachePing:  func() error { return nil },
			wantCode:   http.StatusOK,
			wantStatus: "healthy",
			wantCache:  "healthy",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			phase := lifecycle.New()
			if tt.shutdown {
				phase.BeginShutdown()
			}
			cfg := &HealthConfig{
				DegradedWindow:      time.Minute,
				DegradedFallbackPct: 50,
				Phase:               phase,
				CachePing:           tt.cachePing,
			}
			handler := NewHandler(&mockDashboard{}, tt.rater, cfg, zap.NewNop())

			w := httptest.NewRecorder()
			handler.GetHealth(w, httptest.NewRequest("GET", "/health", nil))

			if w.Code != tt.wantCode {
				t.Errorf("status code = %d, want %d", w.Code, tt.wantCode)
			}
			var body struct {
				Status  string            `json:"status"`
				Service string            `json:"service"`
				Checks  map[string]string `json:"checks"`
			}
			if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Status != tt.wantStatus {
				t.Errorf("status = %q, want %q", body.Status, tt.wantStatus)
			}
			if body.Service != serviceName {
				t.Errorf("service = %q, want %q", body.Service, serviceName)
			}
			if got := body.Checks["cache"]; got != tt.wantCache {
				t.Errorf("checks.cache = %q, want %q", got, tt.wantCache)
			}
		})
	}
}

func TestHandler_GetHealth_NilConfigHealthy(t *testing.T) {
	handler := NewHandler(&mockDashboard{}, nil, nil, nil)
	w := httptest.NewRecorder()
	handler.GetHealth(w, httptest.NewRequest("GET", "/health", nil))
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

func TestHandler_GetHealth_LogsTransition(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	rater := &mockRater{fallbacks: 0, total: 2}
	cfg := &HealthConfig{DegradedWindow: time.Minute, DegradedFallbackPct: 50, Phase: lifecycle.New()}
	handler := NewHandler(&mockDashboard{}, rater, cfg, zap.New(core))

	req := httptest.NewRequest("GET", "/health", nil)
	handler.GetHealth(httptest.NewRecorder(), req)
	if logs.Len() != 0 {
		t.Fatalf("first call should not log transition; got %d logs", logs.Len())
	}

	rater.fallbacks, rater.total = 2, 3
	w := httptest.NewRecorder()
	handler.GetHealth(w, req)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("second GetHealth status = %d, want 503", w.Code)
	}

	entries := logs.FilterMessage("health status transition").All()
	if len(entries) != 1 {
		t.Fatalf("want 1 transition log, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["previous_status"] != "healthy" || fields["current_status"] != "degraded" || fields["reason"] != "fallback_rate_breach" {
		t.Errorf("transition fields = %v", fields)
	}

	handler.GetHealth(httptest.NewRecorder(), req)
	if logs.Len() != 1 {
		t.Errorf("unchanged status should not log; total logs = %d, want 1", logs.Len())
	}
}
