package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "hostel"

// Operation results.
const (
	ResultSuccess = "success"
	ResultPartial = "partial"
	ResultError   = "error"
)

// Metrics holds every collector the service exports.
type Metrics struct {
	Operations          *prometheus.CounterVec
	OperationDuration   *prometheus.HistogramVec
	AmenityFailures     *prometheus.CounterVec
	IntegrityViolations *prometheus.GaugeVec
	LowStockItems       prometheus.Gauge
	OverdueTrainees     prometheus.Gauge
	HTTPRequests        *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// New registers the collectors on reg. Tests pass a fresh prometheus.NewRegistry().
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		Operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "allocation_operations_total",
			Help:      "Allocation coordinator operations by operation and result.",
		}, []string{"operation", "result"}),
		OperationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "allocation_operation_duration_seconds",
			Help:      "Latency of allocation coordinator operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		AmenityFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "amenity_failures_total",
			Help:      "Amenity side effects that failed after the primary change committed.",
		}, []string{"operation"}),
		IntegrityViolations: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "integrity_violations",
			Help:      "Violations found by the last integrity scan, by check.",
		}, []string{"check"}),
		LowStockItems: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "inventory_low_stock_items",
			Help:      "Inventory items at or below their minimum threshold.",
		}),
		OverdueTrainees: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "overdue_trainees",
			Help:      "Active trainees past their expected check-out date.",
		}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		gatherer: reg,
	}

	reg.MustRegister(
		m.Operations,
		m.OperationDuration,
		m.AmenityFailures,
		m.IntegrityViolations,
		m.LowStockItems,
		m.OverdueTrainees,
		m.HTTPRequests,
	)
	return m
}

// ObserveOperation records one finished coordinator operation.
func (m *Metrics) ObserveOperation(operation, result string, started time.Time) {
	m.Operations.WithLabelValues(operation, result).Inc()
	m.OperationDuration.WithLabelValues(operation).Observe(time.Since(started).Seconds())
}

func (m *Metrics) AmenityFailure(operation string) {
	m.AmenityFailures.WithLabelValues(operation).Inc()
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
