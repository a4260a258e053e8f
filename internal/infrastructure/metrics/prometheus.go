// Package metrics exposes Prometheus metrics for scraping at /metrics:
// HTTP request rate, errors and latency plus the CRM pipeline counters.
package metrics

import (
	"context"
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

const namespace = "crm"

// Metrics owns a private registry so tests can build as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	httpInFlight    prometheus.Gauge
	leadTransitions *prometheus.CounterVec
	dealsWon        prometheus.Counter
	wonAmount       prometheus.Counter
	conflicts       *prometheus.CounterVec
	outboxDelivered *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_in_flight",
			Help:      "Number of HTTP requests being served",
		}),
		leadTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lead_transitions_total",
			Help:      "Lead status transitions",
		}, []string{"from", "to"}),
		dealsWon: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deals_won_total",
			Help:      "Leads closed as won",
		}),
		wonAmount: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deals_won_amount_total",
			Help:      "Sum of closed-won sale amounts",
		}),
		conflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "concurrency_conflicts_total",
			Help:      "Optimistic lock conflicts by operation",
		}, []string{"operation"}),
		outboxDelivered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_deliveries_total",
			Help:      "Outbox delivery attempts by event type and outcome",
		}, []string{"event_type", "outcome"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests,
		m.httpDuration,
		m.httpInFlight,
		m.leadTransitions,
		m.dealsWon,
		m.wonAmount,
		m.conflicts,
		m.outboxDelivered,
	)
	return m
}

// RegisterDBStats exports the connection pool statistics of db.
func (m *Metrics) RegisterDBStats(db *sql.DB, name string) error {
	return m.registry.Register(collectors.NewDBStatsCollector(db, name))
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// GinMiddleware records every request. The route label is the matched
// pattern, so /accounts/:id stays one series; unmatched paths are "unmatched".
func (m *Metrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		m.httpInFlight.Inc()
		defer m.httpInFlight.Dec()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method
		m.httpRequests.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}

func (m *Metrics) LeadTransitioned(_ context.Context, from, to string) {
	m.leadTransitions.WithLabelValues(from, to).Inc()
}

func (m *Metrics) DealWon(_ context.Context, amount decimal.Decimal) {
	m.dealsWon.Inc()
	if amount.IsPositive() {
		m.wonAmount.Add(amount.InexactFloat64())
	}
}

func (m *Metrics) ConflictDetected(_ context.Context, operation string) {
	m.conflicts.WithLabelValues(operation).Inc()
}

// ObserveDelivery counts outbox delivery outcomes.
func (m *Metrics) ObserveDelivery(eventType, outcome string) {
	m.outboxDelivered.WithLabelValues(eventType, outcome).Inc()
}
