package metrics

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusCollector implements Collector backed by Prometheus. Metrics are
// registered lazily on first use.
type PrometheusCollector struct {
	reg       prometheus.Registerer
	namespace string
	once      sync.Once

	saves          *prometheus.CounterVec
	saveLatency    prometheus.Histogram
	tasksCreated   prometheus.Counter
	partitions     prometheus.Counter
	partitionSize  prometheus.Histogram
	exports        *prometheus.CounterVec
	exportRows     *prometheus.CounterVec
	requests       *prometheus.CounterVec
	requestLatency *prometheus.HistogramVec
}

var _ Collector = (*PrometheusCollector)(nil)

// NewPrometheus creates a Prometheus-backed collector. A nil reg uses
// prometheus.DefaultRegisterer and an empty namespace defaults to "annotate".
func NewPrometheus(reg prometheus.Registerer, namespace string) *PrometheusCollector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = "annotate"
	}
	return &PrometheusCollector{reg: reg, namespace: namespace}
}

func (p *PrometheusCollector) ensureRegistered() {
	p.once.Do(func() {
		p.saves = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "ledger",
			Name:      "saves_total",
			Help:      "Annotation save attempts by outcome (created,updated,rejected,error).",
		}, []string{"outcome"})
		p.saveLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "ledger",
			Name:      "save_latency_seconds",
			Help:      "Latency of annotation saves in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12), // 0.5ms .. ~1s
		})

		p.tasksCreated = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "tasks",
			Name:      "created_total",
			Help:      "Tasks persisted, shards included.",
		})
		p.partitions = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "tasks",
			Name:      "partitions_total",
			Help:      "Record sets split into more than one shard.",
		})
		p.partitionSize = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "tasks",
			Name:      "partition_shards",
			Help:      "Number of shards produced per partition.",
			Buckets:   []float64{2, 3, 4, 5, 8, 10, 16, 32, 64},
		})

		p.exports = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "export",
			Name:      "runs_total",
			Help:      "Exports by format.",
		}, []string{"format"})
		p.exportRows = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "export",
			Name:      "rows_total",
			Help:      "Rows written by exports, by format.",
		}, []string{"format"})

		p.requests = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"})
		p.requestLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency in seconds by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"})

		p.reg.MustRegister(p.saves)
		p.reg.MustRegister(p.saveLatency)
		p.reg.MustRegister(p.tasksCreated)
		p.reg.MustRegister(p.partitions)
		p.reg.MustRegister(p.partitionSize)
		p.reg.MustRegister(p.exports)
		p.reg.MustRegister(p.exportRows)
		p.reg.MustRegister(p.requests)
		p.reg.MustRegister(p.requestLatency)
	})
}

// RecordSave increments the save counter for outcome.
func (p *PrometheusCollector) RecordSave(outcome string) {
	p.ensureRegistered()
	p.saves.WithLabelValues(outcome).Inc()
}

// ObserveSaveLatency observes a save duration.
func (p *PrometheusCollector) ObserveSaveLatency(seconds float64) {
	p.ensureRegistered()
	p.saveLatency.Observe(seconds)
}

// RecordTasksCreated adds count persisted tasks.
func (p *PrometheusCollector) RecordTasksCreated(count int) {
	p.ensureRegistered()
	p.tasksCreated.Add(float64(count))
}

// RecordPartition records a split into shards pieces.
func (p *PrometheusCollector) RecordPartition(shards int) {
	p.ensureRegistered()
	p.partitions.Inc()
	p.partitionSize.Observe(float64(shards))
}

// RecordExport records an export run and its row count.
func (p *PrometheusCollector) RecordExport(format string, rows int) {
	p.ensureRegistered()
	p.exports.WithLabelValues(format).Inc()
	p.exportRows.WithLabelValues(format).Add(float64(rows))
}

// ObserveRequest records one served HTTP request.
func (p *PrometheusCollector) ObserveRequest(route, method string, status int, seconds float64) {
	p.ensureRegistered()
	p.requests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	p.requestLatency.WithLabelValues(route).Observe(seconds)
}
