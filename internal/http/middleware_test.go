package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/soil-monitor-service/internal/requestctx"
)

func TestMiddleware_CorrelationIDGenerated(t *testing.T) {
	var seen string
	router := mux.NewRouter()
	router.Use(CorrelationIDMiddleware(zap.NewNop()))
	router.Use(MetricsMiddleware)
	router.HandleFunc("/api/dashboard", func(w http.ResponseWriter, r *http.Request) {
		seen = requestctx.CorrelationID(r.Context())
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/dashboard", nil))

	header := w.Header().Get(correlationHeader)
	if header == "" {
		t.Fatal("X-Correlation-ID header missing")
	}
	if seen != header {
		t.Errorf("context correlation ID = %q, want header value %q", seen, header)
	}
}

func TestMiddleware_CorrelationIDPropagated(t *testing.T) {
	router := mux.NewRouter()
	router.Use(CorrelationIDMiddleware(zap.NewNop()))
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {})

	req := httptest.NewRequest("GET", "/health", nil)
	req.Header.Set(correlationHeader, "client-provided-id")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if got := w.Header().Get(correlationHeader); got != "client-provided-id" {
		t.Errorf("X-Correlation-ID = %q, want client-provided-id", got)
	}
}

func TestMiddleware_GetRouteUsesTemplate(t *testing.T) {
	var route string
	router := mux.NewRouter()
	router.HandleFunc("/api/dashboard/resize", func(w http.ResponseWriter, r *http.Request) {
		route = getRoute(r)
	})
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/dashboard/resize", nil))
	if route != "/api/dashboard/resize" {
		t.Errorf("getRoute() = %q, want /api/dashboard/resize", route)
	}

	if got := getRoute(httptest.NewRequest("GET", "/nope", nil)); got != "unmatched" {
		t.Errorf("getRoute(no route) = %q, want unmatched", got)
	}
}

func TestMiddleware_StatusRecorder(t *testing.T) {
	w := httptest.NewRecorder()
	rec := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
	rec.WriteHeader(http.StatusServiceUnavailable)
	if rec.statusCode != http.StatusServiceUnavailable {
		t.Errorf("statusCode = %d, want 503", rec.statusCode)
	}
	if got := statusCodeString(rec.statusCode); got != "5xx" {
		t.Errorf("statusCodeString = %q, want 5xx", got)
	}
}

func TestTimeoutMiddleware_CancelsContextAfterTimeout(t *testing.T) {
	router := mux.NewRouter()
	router.Use(TimeoutMiddleware(10 * time.Millisecond))
	router.HandleFunc("/api/dashboard", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
			if r.Context().Err() != context.DeadlineExceeded {
				t.Errorf("ctx.Err() = %v, want DeadlineExceeded", r.Context().Err())
			}
			w.WriteHeader(http.StatusGatewayTimeout)
		case <-time.After(time.Second):
			t.Error("context was not cancelled")
		}
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/dashboard", nil))
	if w.Code != http.StatusGatewayTimeout {
		t.Errorf("status = %d, want 504", w.Code)
	}
}

func TestRateLimitMiddleware_Returns429WhenExceeded(t *testing.T) {
	limiter := rate.NewLimiter(rate.Limit(1), 1)
	router := mux.NewRouter()
	router.Use(CorrelationIDMiddleware(zap.NewNop()))
	router.Use(RateLimitMiddleware(limiter))
	router.HandleFunc("/api/dashboard", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	w1 := httptest.NewRecorder()
	router.ServeHTTP(w1, httptest.NewRequest("GET", "/api/dashboard", nil))
	if w1.Code != http.StatusOK {
		t.Fatalf("first request status = %d, want 200", w1.Code)
	}

	w2 := httptest.NewRecorder()
	router.ServeHTTP(w2, httptest.NewRequest("GET", "/api/dashboard", nil))
	if w2.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want 429", w2.Code)
	}
	var body struct {
		Error struct {
			Code      string `json:"code"`
			RequestID string `json:"requestId"`
		} `json:"error"`
	}
	if err := json.NewDecoder(w2.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error.Code != "RATE_LIMITED" {
		t.Errorf("error.code = %q, want RATE_LIMITED", body.Error.Code)
	}
	if body.Error.RequestID != w2.Header().Get(correlationHeader) {
		t.Errorf("requestId = %q, want correlation header", body.Error.RequestID)
	}
}

func TestRateLimitMiddleware_NilLimiterPassesThrough(t *testing.T) {
	router := mux.NewRouter()
	router.Use(RateLimitMiddleware(nil))
	router.HandleFunc("/api/dashboard", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/api/dashboard", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("request %d status = %d, want 200", i, w.Code)
		}
	}
}
