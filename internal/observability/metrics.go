package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects Prometheus metrics for the application.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	directoryLoads  *prometheus.CounterVec
	selectionsTotal *prometheus.CounterVec
	switchesTotal   *prometheus.CounterVec
}

// NewMetrics initializes the registry with the base metric set.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fakturio_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fakturio_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	directoryLoads := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fakturio_company_directory_loads_total",
		Help: "Company directory loads by result.",
	}, []string{"result"})
	selections := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fakturio_company_selections_total",
		Help: "Automatic company selections by reason.",
	}, []string{"reason"})
	switches := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fakturio_company_switches_total",
		Help: "Manual company switches by result.",
	}, []string{"result"})
	registry.MustRegister(requests, duration, directoryLoads, selections, switches)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		directoryLoads:  directoryLoads,
		selectionsTotal: selections,
		switchesTotal:   switches,
	}
}

// Handler returns the http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records metrics for every HTTP request.
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

// ObserveDirectoryLoad counts a directory load attempt. Result is one of
// ok, empty, error.
func (m *Metrics) ObserveDirectoryLoad(result string) {
	if m == nil {
		return
	}
	m.directoryLoads.WithLabelValues(result).Inc()
}

// ObserveSelection counts an automatic selection by reason: preference,
// active-flag or fallback.
func (m *Metrics) ObserveSelection(reason string) {
	if m == nil {
		return
	}
	m.selectionsTotal.WithLabelValues(reason).Inc()
}

// ObserveSwitch counts a manual switch attempt by result: ok or failed.
func (m *Metrics) ObserveSwitch(result string) {
	if m == nil {
		return
	}
	m.switchesTotal.WithLabelValues(result).Inc()
}

// Registerer exposes the registry for custom metric registration.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
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
