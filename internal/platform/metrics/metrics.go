package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	ObservationsIngested prometheus.Counter
	IngestRejected       prometheus.Counter
	AnomaliesRecorded    *prometheus.CounterVec
	EntitiesCreated      prometheus.Counter
	ConnectionsLive      prometheus.Gauge
	ConnectionsTotal     prometheus.Counter
	BroadcastDuration    prometheus.Histogram
	BroadcastFanout      prometheus.Histogram
	LogsPublished        prometheus.Counter
	LogPublishFailures   prometheus.Counter
}

// New creates and registers all Prometheus metrics on the default registry.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers metrics on the given registerer so tests can use isolated
// registries.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ObservationsIngested: factory.NewCounter(prometheus.CounterOpts{
			Name: "object_tracker_observations_ingested_total",
			Help: "Total observations persisted by the reconciler",
		}),
		IngestRejected: factory.NewCounter(prometheus.CounterOpts{
			Name: "object_tracker_ingest_rejected_total",
			Help: "Total ingestion payloads rejected before persistence",
		}),
		AnomaliesRecorded: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "object_tracker_anomalies_recorded_total",
			Help: "Validation log entries recorded by kind",
		}, []string{"kind"}),
		EntitiesCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "object_tracker_entities_created_total",
			Help: "Tracked entities created from unmatched observations",
		}),
		ConnectionsLive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "object_tracker_connections_live",
			Help: "Currently registered WebSocket connections",
		}),
		ConnectionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "object_tracker_connections_total",
			Help: "Total connections accepted since start",
		}),
		BroadcastDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "object_tracker_broadcast_duration_seconds",
			Help:    "Time to fan one message out to all live connections",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		}),
		BroadcastFanout: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "object_tracker_broadcast_fanout",
			Help:    "Number of connections reached per broadcast",
			Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100, 250},
		}),
		LogsPublished: factory.NewCounter(prometheus.CounterOpts{
			Name: "object_tracker_validation_logs_published_total",
			Help: "Validation log events delivered to the Kafka sink",
		}),
		LogPublishFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "object_tracker_validation_log_publish_failures_total",
			Help: "Validation log events that failed to reach the Kafka sink",
		}),
	}
}
