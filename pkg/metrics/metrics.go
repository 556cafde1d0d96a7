package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all production-service metrics.
type Metrics struct {
	serviceName string
	registry    *prometheus.Registry

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Routing metrics
	StagesConfirmed   *prometheus.CounterVec
	StagesTransferred *prometheus.CounterVec
	StageRemainders   prometheus.Counter

	// Settlement metrics
	TasksAssigned     prometheus.Counter
	TasksSettled      *prometheus.CounterVec
	BalancePosted     prometheus.Counter
	LowStockWarnings  prometheus.Counter
	DefectsReported   prometheus.Counter
	DefectTransitions *prometheus.CounterVec

	// Outbox metrics
	OutboxPending   prometheus.Gauge
	OutboxPublished *prometheus.CounterVec
}

// Config holds metrics configuration.
type Config struct {
	ServiceName string
}

// DefaultConfig returns a default metrics configuration.
func DefaultConfig(serviceName string) *Config {
	return &Config{ServiceName: serviceName}
}

// New creates and registers all metrics.
func New(config *Config) *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		serviceName: config.ServiceName,
		registry:    registry,

		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "http_requests_total",
			Help:        "Total number of HTTP requests",
			ConstLabels: prometheus.Labels{"service": config.ServiceName},
		}, []string{"method", "path", "status"}),

		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "http_request_duration_seconds",
			Help:        "HTTP request duration in seconds",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: prometheus.Labels{"service": config.ServiceName},
		}, []string{"method", "path"}),

		StagesConfirmed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "production_stages_confirmed_total",
			Help:        "Stage confirmations by resulting status",
			ConstLabels: prometheus.Labels{"service": config.ServiceName},
		}, []string{"status"}),

		StagesTransferred: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "production_stages_transferred_total",
			Help:        "Manual stage transfers by target station",
			ConstLabels: prometheus.Labels{"service": config.ServiceName},
		}, []string{"station"}),

		StageRemainders: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "production_stage_remainders_total",
			Help:        "Remainder sibling stages created by partial confirmations",
			ConstLabels: prometheus.Labels{"service": config.ServiceName},
		}),

		TasksAssigned: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "production_tasks_assigned_total",
			Help:        "Task assignments created or topped up",
			ConstLabels: prometheus.Labels{"service": config.ServiceName},
		}),

		TasksSettled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "production_tasks_settled_total",
			Help:        "Settlement recomputes by price source",
			ConstLabels: prometheus.Labels{"service": config.ServiceName},
		}, []string{"price_source"}),

		BalancePosted: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "production_balance_postings_total",
			Help:        "Worker balance delta postings",
			ConstLabels: prometheus.Labels{"service": config.ServiceName},
		}),

		LowStockWarnings: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "production_low_stock_warnings_total",
			Help:        "Material depletions short of required stock",
			ConstLabels: prometheus.Labels{"service": config.ServiceName},
		}),

		DefectsReported: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "production_defects_reported_total",
			Help:        "Defect records created from progress reports",
			ConstLabels: prometheus.Labels{"service": config.ServiceName},
		}),

		DefectTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "production_defect_transitions_total",
			Help:        "Defect lifecycle transitions",
			ConstLabels: prometheus.Labels{"service": config.ServiceName},
		}, []string{"to"}),

		OutboxPending: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "production_outbox_pending_events",
			Help:        "Unpublished events waiting in the outbox",
			ConstLabels: prometheus.Labels{"service": config.ServiceName},
		}),

		OutboxPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "production_outbox_published_total",
			Help:        "Outbox publish attempts by outcome",
			ConstLabels: prometheus.Labels{"service": config.ServiceName},
		}, []string{"event_type", "success"}),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.StagesConfirmed,
		m.StagesTransferred,
		m.StageRemainders,
		m.TasksAssigned,
		m.TasksSettled,
		m.BalancePosted,
		m.LowStockWarnings,
		m.DefectsReported,
		m.DefectTransitions,
		m.OutboxPending,
		m.OutboxPublished,
	)

	return m
}

// Handler returns the /metrics HTTP handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordHTTPRequest records an HTTP request observation.
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordOutboxPublish records an outbox publish attempt.
func (m *Metrics) RecordOutboxPublish(eventType string, success bool) {
	m.OutboxPublished.WithLabelValues(eventType, strconv.FormatBool(success)).Inc()
}

// SetOutboxPending records the pending outbox backlog size.
func (m *Metrics) SetOutboxPending(count int) {
	m.OutboxPending.Set(float64(count))
}
