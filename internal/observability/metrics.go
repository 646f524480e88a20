package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// lakehouse pipeline.
type Metrics struct {
	// Extraction metrics.
	ExtractRequests *prometheus.CounterVec   // labels: source, outcome={success,error}
	ExtractDuration *prometheus.HistogramVec // labels: source

	// Table write metrics.
	RowsWritten *prometheus.CounterVec // labels: table
	RowsDeleted *prometheus.CounterVec // labels: table
	Commits     *prometheus.CounterVec // labels: table, operation

	// Run metrics.
	LayerRuns     *prometheus.CounterVec   // labels: layer, outcome={success,error}
	LayerDuration *prometheus.HistogramVec // labels: layer
	CityFailures  *prometheus.CounterVec   // labels: city

	InsightsPublished prometheus.Counter
	PublishErrors     prometheus.Counter
	PipelineRunning   prometheus.Gauge
}

// NewMetrics creates all pipeline metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ExtractRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lakehouse",
			Name:      "extract_requests_total",
			Help:      "Extraction attempts by source and outcome.",
		}, []string{"source", "outcome"}),
		ExtractDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "lakehouse",
			Name:      "extract_duration_seconds",
			Help:      "Upstream API extraction duration per source.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"source"}),
		RowsWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lakehouse",
			Name:      "rows_written_total",
			Help:      "Rows written per table.",
		}, []string{"table"}),
		RowsDeleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lakehouse",
			Name:      "rows_deleted_total",
			Help:      "Rows removed from live snapshots per table.",
		}, []string{"table"}),
		Commits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lakehouse",
			Name:      "commits_total",
			Help:      "Table commits by operation.",
		}, []string{"table", "operation"}),
		LayerRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lakehouse",
			Name:      "layer_runs_total",
			Help:      "Layer runs by outcome.",
		}, []string{"layer", "outcome"}),
		LayerDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "lakehouse",
			Name:      "layer_duration_seconds",
			Help:      "Duration of one complete layer run.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"layer"}),
		CityFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lakehouse",
			Name:      "city_failures_total",
			Help:      "Bronze extraction or write failures per city.",
		}, []string{"city"}),
		InsightsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "lakehouse",
			Name:      "insights_published_total",
			Help:      "Gold insight rows published to the sink topic.",
		}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "lakehouse",
			Name:      "publish_errors_total",
			Help:      "Failed insight publish batches.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "lakehouse",
			Name:      "pipeline_running",
			Help:      "1 while a pipeline run is active, 0 between runs.",
		}),
	}

	reg.MustRegister(
		m.ExtractRequests,
		m.ExtractDuration,
		m.RowsWritten,
		m.RowsDeleted,
		m.Commits,
		m.LayerRuns,
		m.LayerDuration,
		m.CityFailures,
		m.InsightsPublished,
		m.PublishErrors,
		m.PipelineRunning,
	)

	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		ExtractRequests:   prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "lakehouse", Name: "extract_requests_total"}, []string{"source", "outcome"}),
		ExtractDuration:   prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: "lakehouse", Name: "extract_duration_seconds"}, []string{"source"}),
		RowsWritten:       prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "lakehouse", Name: "rows_written_total"}, []string{"table"}),
		RowsDeleted:       prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "lakehouse", Name: "rows_deleted_total"}, []string{"table"}),
		Commits:           prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "lakehouse", Name: "commits_total"}, []string{"table", "operation"}),
		LayerRuns:         prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "lakehouse", Name: "layer_runs_total"}, []string{"layer", "outcome"}),
		LayerDuration:     prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: "lakehouse", Name: "layer_duration_seconds"}, []string{"layer"}),
		CityFailures:      prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "lakehouse", Name: "city_failures_total"}, []string{"city"}),
		InsightsPublished: prometheus.NewCounter(prometheus.CounterOpts{Namespace: "lakehouse", Name: "insights_published_total"}),
		PublishErrors:     prometheus.NewCounter(prometheus.CounterOpts{Namespace: "lakehouse", Name: "publish_errors_total"}),
		PipelineRunning:   prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "lakehouse", Name: "pipeline_running"}),
	}
}
