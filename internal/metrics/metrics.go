// Package metrics provides Prometheus metrics for corpus imports.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the import collectors and the registry they live in.
type Metrics struct {
	registry *prometheus.Registry

	// Import metrics
	ImportsTotal      *prometheus.CounterVec
	PhaseDuration     *prometheus.HistogramVec
	NodesIndexed      prometheus.Counter
	LeavesIndexed     prometheus.Counter
	SequenceWarnings  *prometheus.CounterVec
	RecordsStored     prometheus.Counter
	StoreRetriesTotal prometheus.Counter
	QueueDepth        prometheus.Gauge

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// New creates a fresh registry and registers every collector in it.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		ImportsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "corpusgest_imports_total",
				Help: "Corpus imports by final status",
			},
			[]string{"status"},
		),
		PhaseDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "corpusgest_import_phase_duration_seconds",
				Help:    "Duration of each import phase in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"phase"},
		),
		NodesIndexed: f.NewCounter(prometheus.CounterOpts{
			Name: "corpusgest_nodes_indexed_total",
			Help: "Structural nodes indexed",
		}),
		LeavesIndexed: f.NewCounter(prometheus.CounterOpts{
			Name: "corpusgest_leaves_indexed_total",
			Help: "Countable verses and hadiths indexed",
		}),
		SequenceWarnings: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "corpusgest_sequence_warnings_total",
				Help: "Chapter numbering discontinuities found while indexing",
			},
			[]string{"corpus"},
		),
		RecordsStored: f.NewCounter(prometheus.CounterOpts{
			Name: "corpusgest_records_stored_total",
			Help: "Records upserted into the sink",
		}),
		StoreRetriesTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "corpusgest_store_retries_total",
			Help: "Sink writes retried after a transient failure",
		}),
		QueueDepth: f.NewGauge(prometheus.GaugeOpts{
			Name: "corpusgest_queue_depth",
			Help: "Import jobs waiting for a worker",
		}),

		HTTPRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "corpusgest_http_requests_total",
				Help: "HTTP requests by route and status code",
			},
			[]string{"method", "route", "code"},
		),
		HTTPRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "corpusgest_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
	}
}

// RecordImport counts a finished import.
func (m *Metrics) RecordImport(status string) {
	m.ImportsTotal.WithLabelValues(status).Inc()
}

// ObservePhase records how long an import phase took.
func (m *Metrics) ObservePhase(phase string, d time.Duration) {
	m.PhaseDuration.WithLabelValues(phase).Observe(d.Seconds())
}

// RecordIndexed adds one corpus's indexing totals.
func (m *Metrics) RecordIndexed(corpus string, nodes, leaves, warnings int) {
	m.NodesIndexed.Add(float64(nodes))
	m.LeavesIndexed.Add(float64(leaves))
	m.SequenceWarnings.WithLabelValues(corpus).Add(float64(warnings))
}

// RecordHTTPRequest records a served request.
func (m *Metrics) RecordHTTPRequest(method, route string, code int, d time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	m.HTTPRequestDuration.WithLabelValues(route).Observe(d.Seconds())
}

// Registry exposes the registry for tests and custom collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
