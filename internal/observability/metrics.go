package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is the per-process registry shared by the API and the worker. It owns
// the route collectors directly and hands the budgeting collectors out through
// Domain.
type Metrics struct {
	registry *prometheus.Registry
	handler  http.Handler
	routes   routeCollectors
	domain   *Domain
}

type routeCollectors struct {
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

func newRouteCollectors(registerer prometheus.Registerer) routeCollectors {
	rc := routeCollectors{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "budget_http_requests_total",
			Help: "Budget API requests by chi route pattern and response code.",
		}, []string{"route", "code"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "budget_http_request_duration_seconds",
			Help:    "Budget API latency by chi route pattern; report routes include snapshot loading.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
	}
	registerer.MustRegister(rc.requests, rc.latency)
	return rc
}

// NewMetrics builds a private registry carrying runtime, route and budgeting
// collectors. Each binary creates exactly one.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return &Metrics{
		registry: registry,
		handler:  promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),
		routes:   newRouteCollectors(registry),
		domain:   NewDomain(registry),
	}
}

// Handler serves the scrape endpoint. Without a registry it answers 503.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware labels each request with its chi route pattern, so /budgets/{id}
// stays one series regardless of the id.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.routes.requests.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.routes.latency.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// Domain returns the membership, report and export collectors.
func (m *Metrics) Domain() *Domain {
	if m == nil {
		return nil
	}
	return m.domain
}

// Registerer lets the worker add its job collectors to the same scrape.
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
