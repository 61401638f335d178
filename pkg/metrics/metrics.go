// Package metrics provides Prometheus metrics for the ResearchCollab service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "researchcollab"

var (
	// DatabaseQueryDuration tracks store round trips by table and operation
	DatabaseQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Duration of database queries in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"table", "operation"},
	)

	// StoreErrorsTotal counts failures surfaced as store errors
	StoreErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "store_errors_total",
			Help:      "Total number of store errors by table and status",
		},
		[]string{"table", "status"},
	)

	// ValidationFailuresTotal counts writes rejected before reaching the store
	ValidationFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "schema",
			Name:      "validation_failures_total",
			Help:      "Total number of writes rejected by schema validation",
		},
		[]string{"entity"},
	)

	// RealtimeSubscriptions tracks live realtime channels
	RealtimeSubscriptions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "realtime",
			Name:      "subscriptions",
			Help:      "Number of live realtime subscriptions",
		},
	)

	// RealtimeEventsTotal counts events by direction and table
	RealtimeEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "realtime",
			Name:      "events_total",
			Help:      "Total number of realtime events published or delivered",
		},
		[]string{"direction", "table"},
	)

	// RealtimeStatusTotal counts subscription status transitions
	RealtimeStatusTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "realtime",
			Name:      "status_total",
			Help:      "Total number of subscription status changes",
		},
		[]string{"status"},
	)

	// ChangeFeedEventsTotal counts change data capture events consumed
	ChangeFeedEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "changefeed",
			Name:      "events_total",
			Help:      "Total number of change feed events by table and outcome",
		},
		[]string{"table", "outcome"},
	)

	// KafkaMessagesPublished tracks Kafka messages published
	KafkaMessagesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "kafka",
			Name:      "messages_published_total",
			Help:      "Total number of messages published to Kafka",
		},
		[]string{"topic", "status"},
	)

	// KafkaPublishDuration tracks Kafka publish duration
	KafkaPublishDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "kafka",
			Name:      "publish_duration_seconds",
			Help:      "Duration of Kafka publish operations in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5},
		},
	)

	// StorageOperationsTotal counts object storage calls
	StorageOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "operations_total",
			Help:      "Total number of object storage operations",
		},
		[]string{"bucket", "operation", "status"},
	)

	// HTTPRequestsTotal tracks outbound literature API requests
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http_client",
			Name:      "requests_total",
			Help:      "Total number of outbound HTTP requests",
		},
		[]string{"source", "status_code"},
	)

	// HTTPRequestDuration tracks outbound literature API request duration
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http_client",
			Name:      "request_duration_seconds",
			Help:      "Duration of outbound HTTP requests in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"source"},
	)

	// RateLimitWaitTime tracks time spent waiting on outbound rate limits
	RateLimitWaitTime = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ratelimit",
			Name:      "wait_seconds",
			Help:      "Time spent waiting for rate limits in seconds",
			Buckets:   []float64{0.01, 0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"source"},
	)
)

// RecordQuery records a store round trip
func RecordQuery(table, operation string, durationSeconds float64) {
	DatabaseQueryDuration.WithLabelValues(table, operation).Observe(durationSeconds)
}

// RecordStoreError records a store failure
func RecordStoreError(table, status string) {
	StoreErrorsTotal.WithLabelValues(table, status).Inc()
}

func RecordValidationFailure(entity string) {
	ValidationFailuresTotal.WithLabelValues(entity).Inc()
}

// RecordRealtimeEvent records an event; direction is "published" or "delivered"
func RecordRealtimeEvent(direction, table string) {
	RealtimeEventsTotal.WithLabelValues(direction, table).Inc()
}

func RecordRealtimeStatus(status string) {
	RealtimeStatusTotal.WithLabelValues(status).Inc()
}

func RecordChangeFeedEvent(table, outcome string) {
	ChangeFeedEventsTotal.WithLabelValues(table, outcome).Inc()
}

// RecordKafkaPublish records a Kafka publish operation
func RecordKafkaPublish(topic, status string, durationSeconds float64) {
	KafkaMessagesPublished.WithLabelValues(topic, status).Inc()
	KafkaPublishDuration.Observe(durationSeconds)
}

func RecordStorageOperation(bucket, operation, status string) {
	StorageOperationsTotal.WithLabelValues(bucket, operation, status).Inc()
}

// RecordHTTPRequest records an outbound HTTP request metric
func RecordHTTPRequest(source, statusCode string, durationSeconds float64) {
	HTTPRequestsTotal.WithLabelValues(source, statusCode).Inc()
	HTTPRequestDuration.WithLabelValues(source).Observe(durationSeconds)
}

func RecordRateLimitWait(source string, durationSeconds float64) {
	RateLimitWaitTime.WithLabelValues(source).Observe(durationSeconds)
}
