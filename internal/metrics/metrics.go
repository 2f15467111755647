// Package metrics records evaluation runs as Prometheus metrics. Each Metrics
// value owns its registry; batch runs export it with WriteTextfile for the
// node_exporter textfile collector.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/resul4e/shapeeval/internal/retrieval"
)

const namespace = "shapeeval"

// Metrics holds all evaluation metrics.
type Metrics struct {
	registry *prometheus.Registry

	// Evaluator metrics
	PhaseDuration *prometheus.HistogramVec // labels: phase, status
	Queries       prometheus.Counter
	Runs          *prometheus.CounterVec // labels: dataset
	LastRun       *prometheus.GaugeVec   // labels: dataset
	GlobalMAP     *prometheus.GaugeVec   // labels: dataset
	ClassMAP      *prometheus.GaugeVec   // labels: dataset, label
	Precision     *prometheus.GaugeVec   // labels: dataset, k
	Recall        *prometheus.GaugeVec   // labels: dataset, k

	// Bus metrics
	BusEventsPublished *prometheus.CounterVec   // labels: topic
	BusEventLatency    *prometheus.HistogramVec // labels: topic
	BusErrors          *prometheus.CounterVec   // labels: topic
}

// New creates a Metrics instance registered on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		PhaseDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "phase_duration_seconds",
			Help:      "Duration of evaluator phases.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"phase", "status"}),
		Queries: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queries_evaluated_total",
			Help:      "Number of query shapes evaluated.",
		}),
		Runs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Number of completed evaluation runs.",
		}, []string{"dataset"}),
		LastRun: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last evaluation run started.",
		}, []string{"dataset"}),
		GlobalMAP: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "global_map",
			Help:      "Mean average precision over every query of the last run.",
		}, []string{"dataset"}),
		ClassMAP: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "class_map",
			Help:      "Rounded mean average precision per class of the last run.",
		}, []string{"dataset", "label"}),
		Precision: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "precision",
			Help:      "Mean precision at k of the last run.",
		}, []string{"dataset", "k"}),
		Recall: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "recall",
			Help:      "Mean recall at k of the last run.",
		}, []string{"dataset", "k"}),
		BusEventsPublished: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bus_events_published_total",
			Help:      "Events published to the bus.",
		}, []string{"topic"}),
		BusEventLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "bus_publish_duration_seconds",
			Help:      "Bus publish latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"topic"}),
		BusErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bus_errors_total",
			Help:      "Failed bus publishes.",
		}, []string{"topic"}),
	}
}

// Registry returns the registry holding every metric.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObservePhase implements retrieval.Observer.
func (m *Metrics) ObservePhase(phase string, d time.Duration, err error) {
	m.PhaseDuration.WithLabelValues(phase, status(err)).Observe(d.Seconds())
}

// ObserveQueries implements retrieval.Observer.
func (m *Metrics) ObserveQueries(n int) {
	m.Queries.Add(float64(n))
}

// ObserveReport implements retrieval.Observer. Gauges hold the values of the
// most recent run of each dataset.
func (m *Metrics) ObserveReport(r *retrieval.Report) {
	m.Runs.WithLabelValues(r.Dataset).Inc()
	m.LastRun.WithLabelValues(r.Dataset).Set(float64(r.StartedAt.Unix()))
	m.GlobalMAP.WithLabelValues(r.Dataset).Set(r.MAP.Global)

	m.ClassMAP.DeletePartialMatch(prometheus.Labels{"dataset": r.Dataset})
	for _, cp := range r.MAP.PerClass {
		m.ClassMAP.WithLabelValues(r.Dataset, cp.Label).Set(cp.MAP)
	}

	m.Precision.DeletePartialMatch(prometheus.Labels{"dataset": r.Dataset})
	m.Recall.DeletePartialMatch(prometheus.Labels{"dataset": r.Dataset})
	for _, row := range r.Sweep {
		k := strconv.Itoa(row.K)
		m.Precision.WithLabelValues(r.Dataset, k).Set(row.Precision)
		m.Recall.WithLabelValues(r.Dataset, k).Set(row.Recall)
	}
}

// RecordBusPublish records a bus publish.
func (m *Metrics) RecordBusPublish(topic string, d time.Duration, err error) {
	if err != nil {
		m.BusErrors.WithLabelValues(topic).Inc()
		return
	}
	m.BusEventsPublished.WithLabelValues(topic).Inc()
	m.BusEventLatency.WithLabelValues(topic).Observe(d.Seconds())
}

// WriteTextfile writes the registry in the text exposition format. The file
// is written atomically.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

var _ retrieval.Observer = (*Metrics)(nil)
