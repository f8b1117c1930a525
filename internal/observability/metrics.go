package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry *prometheus.Registry

	// HTTP request rate for the dashboard API. Watch for: sudden drops (browser clients gone).
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTP request latency per request.
	HTTPRequestDuration *prometheus.HistogramVec

	// Concurrent requests in flight.
	HTTPRequestsInFlight prometheus.Gauge

	// Soil API call rate by status label. Watch for: error vs success ratio.
	SoilAPICallsTotal *prometheus.CounterVec

	// Soil API latency per call. Watch for: p95 near soil_api.timeout.
	SoilAPIDuration *prometheus.HistogramVec

	// Retry attempts against the soil API. High values = unstable sensor gateway.
	SoilAPIRetriesTotal prometheus.Counter

	// Soil API failures by category (transport, decode, application, ...).
	SoilAPIErrorsTotal *prometheus.CounterVec

	// Readings produced per source (live, synthetic). Synthetic share is the degraded signal.
	AcquisitionsTotal *prometheus.CounterVec

	// Live readings whose moisture falls outside [0,100]. Passed through unchanged.
	SoilReadingsOutOfRangeTotal prometheus.Counter

	// Alert records emitted by policy and severity.
	AlertsTotal *prometheus.CounterVec

	// Schedule ticks by outcome (run, dropped). Dropped = previous tick still in flight.
	ScheduleTicksTotal *prometheus.CounterVec

	// Tick duration per schedule.
	ScheduleTickDuration *prometheus.HistogramVec

	// Current gauge value shown on the dashboard.
	DashboardGaugeValue prometheus.Gauge

	// Snapshot cache operations by op (get, set) and status (hit, miss, success, error).
	SnapshotCacheOpsTotal *prometheus.CounterVec

	// Alert batches published to the alert sink by status.
	AlertPublishTotal *prometheus.CounterVec

	// Circuit breaker state per component: 0=closed, 1=open, 2=half_open.
	CircuitBreakerState *prometheus.GaugeVec

	// Circuit breaker transitions.
	CircuitBreakerTransitionsTotal *prometheus.CounterVec

	// Rate limit denials on the dashboard API.
	RateLimitDeniedTotal prometheus.Counter
)

func init() {
	registry = prometheus.NewRegistry()

	registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "httpRequestsTotal",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "statusCode"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "httpRequestDurationSeconds",
			Help:    "HTTP request latency in seconds (per request)",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	HTTPRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "httpRequestsInFlight",
			Help: "Number of HTTP requests currently being served",
		},
	)
	SoilAPICallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "soilApiCallsTotal",
			Help: "Total number of soil API calls",
		},
		[]string{"status"},
	)
	SoilAPIDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "soilApiDurationSeconds",
			Help:    "Soil API latency in seconds (per call)",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"status"},
	)
	SoilAPIRetriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "soilApiRetriesTotal",
			Help: "Total number of retry attempts for soil API calls",
		},
	)
	SoilAPIErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "soilApiErrorsTotal",
			Help: "Soil API failures by category",
		},
		[]string{"category"},
	)
	AcquisitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "acquisitionsTotal",
			Help: "Readings produced by acquisition, by source (live, synthetic)",
		},
		[]string{"source"},
	)
	SoilReadingsOutOfRangeTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "soilReadingsOutOfRangeTotal",
			Help: "Live soil readings with moisture outside [0,100], passed through unchanged",
		},
	)
	AlertsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alertsTotal",
			Help: "Alert records emitted, by policy and severity",
		},
		[]string{"policy", "severity"},
	)
	ScheduleTicksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scheduleTicksTotal",
			Help: "Schedule ticks by outcome (run, dropped)",
		},
		[]string{"schedule", "outcome"},
	)
	ScheduleTickDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scheduleTickDurationSeconds",
			Help:    "Duration of one schedule tick in seconds",
			Buckets: []float64{.001, .01, .05, .1, .5, 1, 5, 15, 30},
		},
		[]string{"schedule"},
	)
	DashboardGaugeValue = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "dashboardGaugeValue",
			Help: "Moisture/humidity value currently shown on the gauge",
		},
	)
	SnapshotCacheOpsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snapshotCacheOpsTotal",
			Help: "Snapshot cache operations by op and status",
		},
		[]string{"op", "status"},
	)
	AlertPublishTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alertPublishTotal",
			Help: "Alert batches published to the alert sink, by status",
		},
		[]string{"status"},
	)
	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuitBreakerState",
			Help: "Circuit breaker state: 0=closed, 1=open, 2=half_open",
		},
		[]string{"component"},
	)
	CircuitBreakerTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuitBreakerTransitionsTotal",
			Help: "Circuit breaker state transitions",
		},
		[]string{"component", "from", "to"},
	)
	RateLimitDeniedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rateLimitDeniedTotal",
			Help: "Total number of requests denied by rate limiter (429)",
		},
	)

	registry.MustRegister(
		HTTPRequestsTotal, HTTPRequestDuration, HTTPRequestsInFlight,
		SoilAPICallsTotal, SoilAPIDuration, SoilAPIRetriesTotal, SoilAPIErrorsTotal,
		AcquisitionsTotal, SoilReadingsOutOfRangeTotal,
		AlertsTotal,
		ScheduleTicksTotal, ScheduleTickDuration,
		DashboardGaugeValue,
		SnapshotCacheOpsTotal,
		AlertPublishTotal,
		CircuitBreakerState, CircuitBreakerTransitionsTotal,
		RateLimitDeniedTotal,
	)
}

// RecordCircuitBreakerTransition counts a transition and updates the state gauge.
func RecordCircuitBreakerTransition(component, from, to string, toValue int) {
	CircuitBreakerTransitionsTotal.WithLabelValues(component, from, to).Inc()
	CircuitBreakerState.WithLabelValues(component).Set(float64(toValue))
}

// MetricsHandler returns an http.Handler that serves application and runtime metrics.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
