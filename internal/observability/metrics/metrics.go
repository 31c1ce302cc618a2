package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics exposes application-level instruments on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	redemptions    *prometheus.CounterVec
	pointsCredited prometheus.Counter
	consumptions   *prometheus.CounterVec
	pointsConsumed prometheus.Counter
}

func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pointgate_http_requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pointgate_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		redemptions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pointgate_redemptions_total",
			Help: "Redemption attempts by code kind and outcome.",
		}, []string{"kind", "outcome"}),
		pointsCredited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pointgate_points_credited_total",
			Help: "Points credited through redemptions.",
		}),
		consumptions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pointgate_consumptions_total",
			Help: "Consumption attempts by action and outcome.",
		}, []string{"action", "outcome"}),
		pointsConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pointgate_points_consumed_total",
			Help: "Points debited through consumptions.",
		}),
	}

	registry.MustRegister(
		m.httpRequests,
		m.httpDuration,
		m.redemptions,
		m.pointsCredited,
		m.consumptions,
		m.pointsConsumed,
	)

	return m
}

// Handler serves the /metrics endpoint. The default gatherer is merged in so
// process/runtime collectors and the gorm plugin stay visible.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(
		prometheus.Gatherers{m.registry, prometheus.DefaultGatherer},
		promhttp.HandlerOpts{},
	)
}

// Registry exposes the underlying registry for plugins (gorm prometheus).
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) ObserveRedemption(kind, outcome string, credited int64) {
	if m == nil {
		return
	}
	m.redemptions.WithLabelValues(kind, outcome).Inc()
	if credited > 0 {
		m.pointsCredited.Add(float64(credited))
	}
}

func (m *Metrics) ObserveConsumption(action, outcome string, debited int64) {
	if m == nil {
		return
	}
	m.consumptions.WithLabelValues(action, outcome).Inc()
	if debited > 0 {
		m.pointsConsumed.Add(float64(debited))
	}
}

// GinMiddleware records request counts and latency per route.
func GinMiddleware(m *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		route := c.FullPath()
		if strings.TrimSpace(route) == "" {
			route = "unknown"
		}
		m.httpRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.httpDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}
