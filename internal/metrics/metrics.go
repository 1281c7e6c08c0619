// Package metrics exposes Prometheus instrumentation for the import pipeline.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Item terminal status label values
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Metrics holds the import pipeline collectors on a private registry
type Metrics struct {
	registry *prometheus.Registry

	JobsCreated  prometheus.Counter
	ItemsTotal   *prometheus.CounterVec
	ItemDuration prometheus.Histogram
	QueueDepth   prometheus.Gauge
}

// New creates and registers the import metrics
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		JobsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wardrobe_import_jobs_created_total",
			Help: "Import jobs accepted and enqueued.",
		}),
		ItemsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wardrobe_import_items_total",
			Help: "Import entries reaching a terminal state, by status.",
		}, []string{"status"}),
		ItemDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "wardrobe_import_item_duration_seconds",
			Help:    "Wall time spent processing one import entry.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "wardrobe_import_queue_depth",
			Help: "Jobs waiting in the run queue.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		m.JobsCreated,
		m.ItemsTotal,
		m.ItemDuration,
		m.QueueDepth,
	)

	return m
}

// Handler serves the registry in Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
