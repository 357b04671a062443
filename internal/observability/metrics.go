package observability

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "puma_wage"

// Metrics holds the Prometheus counters, gauges and histograms for one batch
// run. Batch jobs exit before a scraper could reach them, so metrics are
// exported with WriteTextfile for the node_exporter textfile collector.
type Metrics struct {
	registry *prometheus.Registry

	RecordsRead     prometheus.Counter
	RecordsEligible prometheus.Counter
	RecordsSkipped  *prometheus.CounterVec // labels: reason

	AreasAggregated prometheus.Gauge
	AreasRendered   prometheus.Gauge
	AreasUnmatched  prometheus.Gauge
	AreasExcluded   prometheus.Gauge

	StageDuration *prometheus.HistogramVec // labels: stage
	LastSuccess   prometheus.Gauge
}

// NewMetrics creates the batch metrics on a private registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		RecordsRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_read_total",
			Help:      "Microdata lines read from the extract.",
		}),
		RecordsEligible: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_eligible_total",
			Help:      "Microdata records with positive weeks, hours and wage income.",
		}),
		RecordsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_skipped_total",
			Help:      "Microdata records excluded from aggregation by reason.",
		}, []string{"reason"}),
		AreasAggregated: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "areas_aggregated",
			Help:      "PUMAs with a computed average hourly wage.",
		}),
		AreasRendered: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "areas_rendered",
			Help:      "Boundary polygons drawn on the map.",
		}),
		AreasUnmatched: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "areas_unmatched",
			Help:      "Boundary polygons without a wage row.",
		}),
		AreasExcluded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "areas_excluded",
			Help:      "Boundary polygons dropped by the state exclusion list.",
		}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of each pipeline stage.",
			Buckets:   []float64{0.01, 0.1, 0.5, 1, 5, 15, 30, 60, 120},
		}, []string{"stage"}),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run.",
		}),
	}

	m.registry.MustRegister(
		m.RecordsRead,
		m.RecordsEligible,
		m.RecordsSkipped,
		m.AreasAggregated,
		m.AreasRendered,
		m.AreasUnmatched,
		m.AreasExcluded,
		m.StageDuration,
		m.LastSuccess,
	)

	return m
}

// Gatherer exposes the registry, mainly for tests.
func (m *Metrics) Gatherer() prometheus.Gatherer { return m.registry }

// WriteTextfile writes all metrics in the text exposition format to path.
// An empty path is a no-op.
func (m *Metrics) WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
