package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the server's Prometheus collectors on a private registry
type Metrics struct {
	registry        *prometheus.Registry
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	taskMutations   *prometheus.CounterVec
	authEvents      *prometheus.CounterVec
	rateLimited     *prometheus.CounterVec
}

// taskRoutes maps mutating routes to the operation label they count under
var taskRoutes = map[string]string{
	http.MethodPost + " /api/v1/tasks":                    "create",
	http.MethodPut + " /api/v1/tasks/:id":                 "update",
	http.MethodPut + " /api/v1/tasks/:id/status":          "status",
	http.MethodDelete + " /api/v1/tasks/:id":              "cancel",
	http.MethodPost + " /api/v1/tasks/:id/contacts":       "add_contacts",
	http.MethodDelete + " /api/v1/tasks/:id/contacts":     "remove_contacts",
	http.MethodPost + " /api/v1/contacts":                 "contact_create",
	http.MethodDelete + " /api/v1/contacts/:id":           "contact_deactivate",
	http.MethodDelete + " /api/v1/contacts/:id/permanent": "contact_delete",
	http.MethodPost + " /api/v1/ai/interpret":             "ai_interpret",
	http.MethodPost + " /api/v1/ai/confirm/:request_id":   "ai_confirm",
}

// NewMetrics registers the HTTP and domain collectors
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		taskMutations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "autotasks_mutations_total",
				Help: "Successful task and contact mutations",
			},
			[]string{"operation"},
		),
		authEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "autotasks_auth_events_total",
				Help: "Rejected authentication and authorization attempts",
			},
			[]string{"event"},
		),
		rateLimited: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rate_limiter_blocked_total",
				Help: "Total requests blocked by the rate limiter",
			},
			[]string{"endpoint"},
		),
	}

	m.registry.MustRegister(
		m.requestsTotal,
		m.requestDuration,
		m.taskMutations,
		m.authEvents,
		m.rateLimited,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Middleware records request counts, latencies and domain mutations
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			}

			method := c.Request().Method
			path := c.Path()

			m.requestsTotal.WithLabelValues(method, path, fmt.Sprintf("%d", status)).Inc()
			m.requestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())

			if err == nil && status < http.StatusBadRequest {
				if op, ok := taskRoutes[method+" "+path]; ok {
					m.taskMutations.WithLabelValues(op).Inc()
				}
			}

			return err
		}
	}
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) authEvent(event string) {
	if m == nil {
		return
	}
	m.authEvents.WithLabelValues(event).Inc()
}

func (m *Metrics) blocked(endpoint string) {
	if m == nil {
		return
	}
	m.rateLimited.WithLabelValues(endpoint).Inc()
}
