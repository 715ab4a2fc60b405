// Package observability provides Prometheus metrics for the application.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ytmp3"

// Metrics holds all application metrics.
type Metrics struct {
	registry *prometheus.Registry

	// Catalog metrics
	CatalogPages     *prometheus.CounterVec
	CatalogErrors    *prometheus.CounterVec
	ItemsResolved    prometheus.Counter
	MalformedRecords *prometheus.CounterVec

	// Conversion metrics
	ConvertAttempts *prometheus.CounterVec
	ConvertBytes    prometheus.Counter
	ConvertDuration prometheus.Histogram
	ItemsCompleted  prometheus.Counter
	ItemsFailed     *prometheus.CounterVec
	ItemsInProgress prometheus.Gauge

	// Coordinator metrics
	RetryRounds prometheus.Counter

	// Proxy metrics
	ProxyFailures *prometheus.CounterVec
}

// New creates all application metrics on a fresh registry.
// A nil *Metrics is valid and turns every Record call into a no-op.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		CatalogPages: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "catalog",
			Name:      "pages_total",
			Help:      "Total number of catalog page requests",
		}, []string{"endpoint"}),
		CatalogErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "catalog",
			Name:      "errors_total",
			Help:      "Total number of failed catalog page requests",
		}, []string{"endpoint"}),
		ItemsResolved: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "catalog",
			Name:      "items_resolved_total",
			Help:      "Total number of items resolved from raw records",
		}),
		MalformedRecords: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "catalog",
			Name:      "malformed_records_total",
			Help:      "Total number of raw records skipped for missing fields",
		}, []string{"mode"}),

		ConvertAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "convert",
			Name:      "attempts_total",
			Help:      "Total number of conversion requests by result",
		}, []string{"result"}),
		ConvertBytes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "convert",
			Name:      "bytes_total",
			Help:      "Total bytes of accepted payloads",
		}),
		ConvertDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "convert",
			Name:      "duration_seconds",
			Help:      "Histogram of per-item conversion duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300},
		}),
		ItemsCompleted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "items",
			Name:      "completed_total",
			Help:      "Total number of items converted and placed",
		}),
		ItemsFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "items",
			Name:      "failed_total",
			Help:      "Total number of failed item conversions by reason",
		}, []string{"reason"}),
		ItemsInProgress: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "items",
			Name:      "in_progress",
			Help:      "Number of items currently converting",
		}),

		RetryRounds: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "coordinator",
			Name:      "retry_rounds_total",
			Help:      "Total number of operator-approved retry rounds",
		}),

		ProxyFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "proxy",
			Name:      "failures_total",
			Help:      "Total number of proxy failures",
		}, []string{"proxy"}),
	}
}

// Handler returns the Prometheus HTTP handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordCatalogPage records one catalog page request.
func (m *Metrics) RecordCatalogPage(endpoint string, err error) {
	if m == nil {
		return
	}

	m.CatalogPages.WithLabelValues(endpoint).Inc()

	if err != nil {
		m.CatalogErrors.WithLabelValues(endpoint).Inc()
	}
}

// RecordResolved records resolver results.
func (m *Metrics) RecordResolved(mode string, resolved, malformed int) {
	if m == nil {
		return
	}

	m.ItemsResolved.Add(float64(resolved))
	m.MalformedRecords.WithLabelValues(mode).Add(float64(malformed))
}

// RecordConvertAttempt records a single conversion request.
func (m *Metrics) RecordConvertAttempt(result string) {
	if m == nil {
		return
	}

	m.ConvertAttempts.WithLabelValues(result).Inc()
}

// ItemTimer marks an item as in progress and returns a function recording its duration.
func (m *Metrics) ItemTimer() func() {
	if m == nil {
		return func() {}
	}

	start := time.Now()
	m.ItemsInProgress.Inc()

	return func() {
		m.ItemsInProgress.Dec()
		m.ConvertDuration.Observe(time.Since(start).Seconds())
	}
}

// RecordItemCompleted records a placed file of size bytes.
func (m *Metrics) RecordItemCompleted(size int64) {
	if m == nil {
		return
	}

	m.ItemsCompleted.Inc()
	m.ConvertBytes.Add(float64(size))
}

// RecordItemFailed records a failed item.
func (m *Metrics) RecordItemFailed(reason string) {
	if m == nil {
		return
	}

	m.ItemsFailed.WithLabelValues(reason).Inc()
}

// RecordRetryRound records an approved retry round.
func (m *Metrics) RecordRetryRound() {
	if m == nil {
		return
	}

	m.RetryRounds.Inc()
}

// RecordProxyFailure records a proxy failure.
func (m *Metrics) RecordProxyFailure(proxy string) {
	if m == nil {
		return
	}

	m.ProxyFailures.WithLabelValues(proxy).Inc()
}
