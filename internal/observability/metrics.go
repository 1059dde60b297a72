package observability

import (
	"net/http"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry *prometheus.Registry

	// HTTP request rate. Watch for: sudden drops (service down) or spikes (traffic surge).
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTP request latency per request. Watch for: p95/p99 increases. Agent runs
	// block the whole request, so the /api/query histogram tracks run time too.
	HTTPRequestDuration *prometheus.HistogramVec

	// Concurrent requests in flight. Watch for: saturation, capacity limits.
	HTTPRequestsInFlight prometheus.Gauge

	// Queries by routing mode (weather, research). Watch for: traffic mix.
	QueriesTotal *prometheus.CounterVec

	// Per-city weather query count (allow-list; others go to "other").
	QueriesByCityTotal *prometheus.CounterVec

	// Web search call rate by outcome. Watch for: error vs success ratio.
	SearchCallsTotal *prometheus.CounterVec

	// Web search latency. Watch for: p95 > 5s (upstream degradation).
	SearchDuration *prometheus.HistogramVec

	// Agent invocations by outcome. Watch for: error rate, timeout rate.
	AgentRunsTotal *prometheus.CounterVec

	// Agent run wall time. Runs are long; buckets go out to minutes.
	AgentRunDuration prometheus.Histogram

	// Code blocks scraped per run. Watch for: drop to zero = the agent's
	// console format changed and the scraper no longer matches it.
	CodeBlocksCaptured prometheus.Histogram

	// Weather fallback servings. Watch for: sustained non-zero = search path broken.
	WeatherFallbacksTotal prometheus.Counter

	// Cache hits by type. Watch for: hit rate collapse after deploys.
	CacheHitsTotal *prometheus.CounterVec

	// Cache operation failures by operation and category.
	CacheErrorsTotal *prometheus.CounterVec

	// Rate limit denials. Watch for: overload, capacity exceeded.
	RateLimitDeniedTotal prometheus.Counter

	// Circuit breaker state per component (0 closed, 1 open, 2 half-open).
	CircuitBreakerState *prometheus.GaugeVec

	// Circuit breaker transitions per component.
	CircuitBreakerTransitionsTotal *prometheus.CounterVec

	// In-flight requests observed when shutdown began.
	ShutdownInFlight prometheus.Gauge

	// trackedCities is built from config; used to resolve the city label.
	trackedCitiesMu sync.RWMutex
	trackedCities   map[string]struct{}
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
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"method", "route"},
	)
	HTTPRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "httpRequestsInFlight",
			Help: "Number of HTTP requests currently being served",
		},
	)
	QueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "queriesTotal",
			Help: "Total number of dashboard queries by routing mode",
		},
		[]string{"mode"},
	)
	QueriesByCityTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "queriesByCityTotal",
			Help: "Weather queries by city (allow-list; others use city=other)",
		},
		[]string{"city"},
	)
	SearchCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "searchCallsTotal",
			Help: "Total number of web search calls",
		},
		[]string{"status"},
	)
	SearchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "searchDurationSeconds",
			Help:    "Web search latency in seconds (per call)",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 15},
		},
		[]string{"status"},
	)
	AgentRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentRunsTotal",
			Help: "Total number of external agent invocations",
		},
		[]string{"status"},
	)
	AgentRunDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "agentRunDurationSeconds",
			Help:    "External agent run wall time in seconds",
			Buckets: []float64{1, 2.5, 5, 10, 30, 60, 120, 300},
		},
	)
	CodeBlocksCaptured = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "codeBlocksCapturedPerRun",
			Help:    "Code blocks scraped from the agent transcript per run",
			Buckets: []float64{0, 1, 2, 3, 5, 8, 13, 21},
		},
	)
	WeatherFallbacksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "weatherFallbacksTotal",
			Help: "Weather reports served from the static fallback table",
		},
	)
	CacheHitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cacheHitsTotal",
			Help: "Total number of cache hits",
		},
		[]string{"cacheType"},
	)
	CacheErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cacheErrorsTotal",
			Help: "Cache operation failures by operation and error category",
		},
		[]string{"operation", "category"},
	)
	RateLimitDeniedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rateLimitDeniedTotal",
			Help: "Total number of requests denied by rate limiter (429)",
		},
	)
	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuitBreakerState",
			Help: "Circuit breaker state (0 closed, 1 open, 2 half-open)",
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
	ShutdownInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "shutdownInFlightRequests",
			Help: "In-flight requests observed when graceful shutdown began",
		},
	)

	registry.MustRegister(
		HTTPRequestsTotal, HTTPRequestDuration, HTTPRequestsInFlight,
		QueriesTotal, QueriesByCityTotal,
		SearchCallsTotal, SearchDuration,
		AgentRunsTotal, AgentRunDuration, CodeBlocksCaptured,
		WeatherFallbacksTotal,
		CacheHitsTotal, CacheErrorsTotal,
		RateLimitDeniedTotal,
		CircuitBreakerState, CircuitBreakerTransitionsTotal,
		ShutdownInFlight,
	)
}

// SetTrackedCities sets the allow-list for the city label. Non-tracked
// cities increment "other" to keep label cardinality bounded.
func SetTrackedCities(cities []string) {
	trackedCitiesMu.Lock()
	defer trackedCitiesMu.Unlock()
	trackedCities = make(map[string]struct{}, len(cities))
	for _, c := range cities {
		trackedCities[normalizeCityLabel(c)] = struct{}{}
	}
}

// CityLabel resolves a city to its metric label ("other" when not tracked).
func CityLabel(city string) string {
	c := normalizeCityLabel(city)
	trackedCitiesMu.RLock()
	_, ok := trackedCities[c] // nil map read is safe in Go
	trackedCitiesMu.RUnlock()
	if ok {
		return c
	}
	return "other"
}

// RecordWeatherQuery records one weather-mode query for the given city.
func RecordWeatherQuery(city string) {
	QueriesTotal.WithLabelValues("weather").Inc()
	QueriesByCityTotal.WithLabelValues(CityLabel(city)).Inc()
}

// RecordResearchQuery records one research-mode query.
func RecordResearchQuery() {
	QueriesTotal.WithLabelValues("research").Inc()
}

// RecordCircuitBreakerTransition records a state transition and updates the
// state gauge for the component.
func RecordCircuitBreakerTransition(component, from, to string, stateValue float64) {
	CircuitBreakerTransitionsTotal.WithLabelValues(component, from, to).Inc()
	CircuitBreakerState.WithLabelValues(component).Set(stateValue)
}

func normalizeCityLabel(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// MetricsHandler returns an http.Handler that serves application and runtime metrics.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
