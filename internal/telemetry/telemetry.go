// Package telemetry exports Prometheus metrics for the ecoscand daemon and
// wires them to the pipeline callbacks.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	ecoscan "github.com/anatolykoptev/go-ecoscan"
)

// Metrics holds all ecoscan Prometheus metrics.
type Metrics struct {
	Verdicts         *prometheus.CounterVec
	StageFailures    *prometheus.CounterVec
	Panics           *prometheus.CounterVec
	AnalysisDuration *prometheus.HistogramVec
	BatchSize        prometheus.Histogram

	registry *prometheus.Registry
}

// NewMetrics creates the metrics and registers them on a fresh registry
// together with the Go and process collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		Verdicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ecoscan_verdicts_total",
			Help: "Total verdicts by status and request context",
		}, []string{"status", "context"}),
		StageFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ecoscan_stage_failures_total",
			Help: "Pipeline stages that degraded to a neutral result",
		}, []string{"stage"}),
		Panics: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ecoscan_panics_total",
			Help: "Recovered panics by tag",
		}, []string{"tag"}),
		AnalysisDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ecoscan_analysis_duration_seconds",
			Help:    "Time to analyze a single image",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"context"}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ecoscan_batch_size",
			Help:    "Number of images per batch request",
			Buckets: []float64{1, 2, 3, 5, 8, 10},
		}),
	}
	reg.MustRegister(m.Verdicts, m.StageFailures, m.Panics, m.AnalysisDuration, m.BatchSize)
	return m
}

// Registry returns the registry backing these metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the Prometheus HTTP handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordVerdict counts one verdict and observes its duration.
func (m *Metrics) RecordVerdict(ev ecoscan.VerdictEvent) {
	m.Verdicts.WithLabelValues(string(ev.Status), string(ev.Context)).Inc()
	m.AnalysisDuration.WithLabelValues(string(ev.Context)).Observe(ev.Duration.Seconds())
}

// RecordStageFailure counts a degraded stage.
func (m *Metrics) RecordStageFailure(stage string, _ error) {
	m.StageFailures.WithLabelValues(stage).Inc()
}

// RecordPanic counts a recovered panic.
func (m *Metrics) RecordPanic(tag string, _ any) {
	m.Panics.WithLabelValues(tag).Inc()
}

// RecordBatch observes a batch size.
func (m *Metrics) RecordBatch(size int) {
	m.BatchSize.Observe(float64(size))
}

// Instrument sets the pipeline callbacks on cfg, chaining any callbacks
// already present.
func (m *Metrics) Instrument(cfg *ecoscan.Config) {
	prevVerdict, prevStage, prevPanic, prevBatch := cfg.OnVerdict, cfg.OnStageFailure, cfg.OnPanic, cfg.OnBatch

	cfg.OnVerdict = func(ev ecoscan.VerdictEvent) {
		m.RecordVerdict(ev)
		if prevVerdict != nil {
			prevVerdict(ev)
		}
	}
	cfg.OnStageFailure = func(stage string, err error) {
		m.RecordStageFailure(stage, err)
		if prevStage != nil {
			prevStage(stage, err)
		}
	}
	cfg.OnPanic = func(tag string, r any) {
		m.RecordPanic(tag, r)
		if prevPanic != nil {
			prevPanic(tag, r)
		}
	}
	cfg.OnBatch = func(size int) {
		m.RecordBatch(size)
		if prevBatch != nil {
			prevBatch(size)
		}
	}
}
