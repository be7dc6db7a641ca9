package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects Prometheus metrics for outbound API calls and for the
// mock backend's HTTP handlers.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	apiRequests     *prometheus.CounterVec
	apiDuration     *prometheus.HistogramVec
	authErrors      prometheus.Counter
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// NewMetrics initialises a private registry with the base metrics.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	apiRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wastewatch_api_requests_total",
		Help: "Outbound API requests by method, endpoint and outcome.",
	}, []string{"method", "endpoint", "outcome"})
	apiDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "wastewatch_api_request_duration_seconds",
		Help:    "Outbound API request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "endpoint"})
	authErrors := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "wastewatch_auth_errors_total",
		Help: "Auth-error signals raised after a 401 response.",
	})
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wastewatch_http_requests_total",
		Help: "Requests served by the mock backend by route and status.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "wastewatch_http_request_duration_seconds",
		Help:    "Mock backend request latency per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	registry.MustRegister(apiRequests, apiDuration, authErrors, requests, duration)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		apiRequests:     apiRequests,
		apiDuration:     apiDuration,
		authErrors:      authErrors,
		requestsTotal:   requests,
		requestDuration: duration,
	}
}

// Handler returns the /metrics handler.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveRequest records one outbound call. outcome is the status code, or
// "network"/"timeout" when no response arrived.
func (m *Metrics) ObserveRequest(method, endpoint, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.apiRequests.WithLabelValues(method, endpoint, outcome).Inc()
	m.apiDuration.WithLabelValues(method, endpoint).Observe(elapsed.Seconds())
}

// AuthErrorRaised counts one auth-error broadcast.
func (m *Metrics) AuthErrorRaised() {
	if m == nil {
		return
	}
	m.authErrors.Inc()
}

// Middleware records metrics for each request served by a chi router.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
