package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all prometheus metrics
type Metrics struct {
	BundlesProcessed prometheus.Counter
	BundlesSkipped   *prometheus.CounterVec
	FaresDropped     *prometheus.CounterVec
	RecordsWritten   *prometheus.CounterVec
	Flushes          prometheus.Counter
	FlushTime        prometheus.Histogram
	TasksDispatched  *prometheus.CounterVec
	RunTime          *prometheus.HistogramVec
}

// NewMetrics creates new prometheus metrics registered on reg.
// Pass prometheus.DefaultRegisterer in production and a fresh registry in tests.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		BundlesProcessed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bundles_processed_total",
			Help:      "The total number of raw fare bundles read by the extraction cursor",
		}),
		BundlesSkipped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bundles_skipped_total",
			Help:      "Raw fare bundles rejected by the admission filter",
		}, []string{"reason"}),
		FaresDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fares_dropped_total",
			Help:      "Fare entries dropped before merge",
		}, []string{"reason"}),
		RecordsWritten: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_written_total",
			Help:      "Flight fare records upserted, by result",
		}, []string{"result"}),
		Flushes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batch_flushes_total",
			Help:      "The total number of bulk writes issued",
		}),
		FlushTime: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_flush_time_seconds",
			Help:      "Time taken by a bulk write",
			Buckets:   prometheus.DefBuckets,
		}),
		TasksDispatched: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_dispatched_total",
			Help:      "Schedule tasks dispatched, by kind and outcome",
		}, []string{"kind", "status"}),
		RunTime: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_time_seconds",
			Help:      "Duration of a full pipeline run",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		}, []string{"pipeline"}),
	}
}
