package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/kjstillabower/soil-monitor-service/internal/circuitbreaker"
	"github.com/kjstillabower/soil-monitor-service/internal/models"
	"github.com/kjstillabower/soil-monitor-service/internal/observability"
	"github.com/kjstillabower/soil-monitor-service/internal/requestctx"
)

// SoilDataPath is the fixed path of the soil sensor endpoint, relative to the base URL.
const SoilDataPath = "/api/soil_data"

// SoilClient fetches one live soil reading.
type SoilClient interface {
	FetchSoilData(ctx context.Context) (models.Reading, error)
}

var (
	// ErrTransport covers connection failures and timeouts.
	ErrTransport = errors.New("transport error")
	// ErrDecode covers unreadable bodies, invalid JSON and missing fields.
	ErrDecode = errors.New("decode error")
	// ErrApplication is returned when the body reports success=false.
	ErrApplication = errors.New("application error")
	// ErrUpstreamFailure covers 5xx responses.
	ErrUpstreamFailure = errors.New("upstream failure")
	// ErrRateLimited is returned on 429.
	ErrRateLimited = errors.New("rate limited")
	// ErrUnexpectedStatus covers non-2xx responses that are not retried.
	ErrUnexpectedStatus = errors.New("unexpected status")
)

type HTTPSoilClient struct {
	baseURL        string
	timeout        time.Duration
	client         *http.Client
	retryAttempts  int
	retryBaseDelay time.Duration
	retryMaxDelay  time.Duration
	breaker        *circuitbreaker.CircuitBreaker
	now            func() time.Time
}

func NewHTTPSoilClient(baseURL string, timeout time.Duration) (*HTTPSoilClient, error) {
	return NewHTTPSoilClientWithRetry(baseURL, timeout, 1, 0, 0)
}

func NewHTTPSoilClientWithRetry(baseURL string, timeout time.Duration, retryAttempts int, retryBaseDelay, retryMaxDelay time.Duration) (*HTTPSoilClient, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("soil API base URL is required")
	}
	if retryAttempts <= 0 {
		retryAttempts = 1
	}
	return &HTTPSoilClient{
		baseURL:        baseURL,
		timeout:        timeout,
		retryAttempts:  retryAttempts,
		retryBaseDelay: retryBaseDelay,
		retryMaxDelay:  retryMaxDelay,
		client: &http.Client{
			Timeout: timeout,
		},
		now: time.Now,
	}, nil
}

// SetCircuitBreaker routes every call through cb. While open, calls fail fast with circuitbreaker.ErrOpen.
func (c *HTTPSoilClient) SetCircuitBreaker(cb *circuitbreaker.CircuitBreaker) {
	c.breaker = cb
}

// URL returns the full soil data endpoint.
func (c *HTTPSoilClient) URL() string {
	return c.baseURL + SoilDataPath
}

type soilDataResponse struct {
	Success      bool       `json:"success"`
	SoilMoisture *flexFloat `json:"soil_moisture"`
	Timestamp    string     `json:"timestamp"`
	Error        string     `json:"error"`
}

// flexFloat accepts a JSON number or a numeric string.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		return fmt.Errorf("null value")
	}
	s = strings.Trim(s, `"`)
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("non-finite value %q", s)
	}
	*f = flexFloat(v)
	return nil
}

// FetchSoilData issues GET {base}/api/soil_data, retrying transport, 5xx and 429 failures.
func (c *HTTPSoilClient) FetchSoilData(ctx context.Context) (models.Reading, error) {
	var lastErr error

	for attempt := 0; attempt < c.retryAttempts; attempt++ {
		if attempt > 0 {
			observability.SoilAPIRetriesTotal.Inc()
			select {
			case <-ctx.Done():
				return models.Reading{}, fmt.Errorf("%w: %v", ErrTransport, ctx.Err())
			case <-time.After(c.calculateBackoff(attempt)):
			}
		}

		var result models.Reading
		call := func(ctx context.Context) error {
			var err error
			result, err = c.callAPI(ctx)
			return err
		}
		var err error
		if c.breaker != nil {
			err = c.breaker.Call(ctx, call)
		} else {
			err = call(ctx)
		}
		if err == nil {
			return result, nil
		}

		observability.SoilAPIErrorsTotal.WithLabelValues(string(CategorizeError(err))).Inc()
		lastErr = err
		if !isRetryable(err) {
			return models.Reading{}, err
		}
	}

	if c.retryAttempts == 1 {
		return models.Reading{}, lastErr
	}
	return models.Reading{}, fmt.Errorf("exhausted retries: %w", lastErr)
}

func (c *HTTPSoilClient) callAPI(ctx context.Context) (models.Reading, error) {
	start := time.Now()

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, c.URL(), nil)
	if err != nil {
		return models.Reading{}, fmt.Errorf("%w: build request: %v", ErrTransport, err)
	}
	req.Header.Set("Accept", "application/json")
	if corrID := requestctx.CorrelationID(ctx); corrID != "" {
		req.Header.Set("X-Correlation-ID", corrID)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		observability.SoilAPICallsTotal.WithLabelValues("error").Inc()
		observability.SoilAPIDuration.WithLabelValues("error").Observe(time.Since(start).Seconds())
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return models.Reading{}, fmt.Errorf("%w: request timeout: %w", ErrTransport, err)
		}
		return models.Reading{}, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer resp.Body.Close()

	status := statusLabel(resp.StatusCode)
	observability.SoilAPICallsTotal.WithLabelValues(status).Inc()
	observability.SoilAPIDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())

	if err := handleErrorResponse(resp); err != nil {
		return models.Reading{}, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.Reading{}, fmt.Errorf("%w: read response body: %v", ErrDecode, err)
	}

	var apiResp soilDataResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return models.Reading{}, fmt.Errorf("%w: parse response: %v", ErrDecode, err)
	}
	return c.mapResponse(apiResp)
}

func (c *HTTPSoilClient) mapResponse(apiResp soilDataResponse) (models.Reading, error) {
	if !apiResp.Success {
		msg := strings.TrimSpace(apiResp.Error)
		if msg == "" {
			msg = "unknown error"
		}
		return models.Reading{}, fmt.Errorf("%w: %s", ErrApplication, msg)
	}
	if apiResp.SoilMoisture == nil {
		return models.Reading{}, fmt.Errorf("%w: soil_moisture missing", ErrDecode)
	}
	ts, ok := parseTimestamp(apiResp.Timestamp)
	if !ok {
		ts = c.now()
	}
	return models.Reading{
		Moisture:   float64(*apiResp.SoilMoisture),
		Timestamp:  ts,
		IsRealData: true,
	}, nil
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999",
}

// parseTimestamp accepts RFC 3339 and the naive local layouts sensor gateways commonly emit.
func parseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, circuitbreaker.ErrOpen) {
		return false
	}
	return errors.Is(err, ErrTransport) || errors.Is(err, ErrUpstreamFailure) || errors.Is(err, ErrRateLimited)
}

func (c *HTTPSoilClient) calculateBackoff(attempt int) time.Duration {
	delay := float64(c.retryBaseDelay) * math.Pow(2, float64(attempt-1))
	if c.retryMaxDelay > 0 && delay > float64(c.retryMaxDelay) {
		delay = float64(c.retryMaxDelay)
	}

	jitter := delay * 0.1 * rand.Float64()
	return time.Duration(delay + jitter)
}

func handleErrorResponse(resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: HTTP %d", ErrRateLimited, resp.StatusCode)
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: HTTP %d", ErrUpstreamFailure, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return fmt.Errorf("%w: HTTP %d", ErrUnexpectedStatus, resp.StatusCode)
	}
	return nil
}

func statusLabel(statusCode int) string {
	if statusCode >= 200 && statusCode < 300 {
		return "success"
	}
	if statusCode == 429 {
		return "rate_limited"
	}
	if statusCode >= 400 && statusCode < 500 {
		return "client_error"
	}
	if statusCode >= 500 {
		return "server_error"
	}
	return "error"
}
