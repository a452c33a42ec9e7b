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

// Config holds metrics configuration.
type Config struct {
	ServiceName string
	Namespace   string
	Subsystem   string
}

// DefaultConfig returns the standard configuration under the imports namespace.
func DefaultConfig(serviceName string) *Config {
	return &Config{
		ServiceName: serviceName,
		Namespace:   "imports",
		Subsystem:   serviceName,
	}
}

// Metrics bundles every collector the service exposes. All collectors live
// on a private registry so only what is declared here reaches /metrics.
type Metrics struct {
	serviceName string
	registry    *prometheus.Registry

	// HTTP metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Kafka metrics
	KafkaEventsPublished *prometheus.CounterVec
	KafkaEventsConsumed  *prometheus.CounterVec
	KafkaPublishDuration *prometheus.HistogramVec

	// MongoDB metrics
	MongoDBOperations        *prometheus.CounterVec
	MongoDBOperationDuration *prometheus.HistogramVec

	// Outbox metrics
	OutboxPending         prometheus.Gauge
	OutboxPublished       *prometheus.CounterVec
	OutboxPublishDuration *prometheus.HistogramVec
	OutboxRetries         *prometheus.CounterVec

	// Business metrics
	ShipmentsCreated        *prometheus.CounterVec
	ShipmentStatusChanges   *prometheus.CounterVec
	ReportsGenerated        *prometheus.CounterVec
	NotificationsDispatched *prometheus.CounterVec

	// Circuit breaker metrics
	CircuitBreakerState *prometheus.GaugeVec
	CircuitBreakerTrips *prometheus.CounterVec
}

var (
	httpDurationBuckets  = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
	mongoDurationBuckets = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5}
	kafkaDurationBuckets = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1}
)

// New builds the Metrics set on a fresh registry with the Go runtime and
// process collectors attached.
func New(config *Config) *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	factory := promauto.With(registry)
	serviceLabel := prometheus.Labels{"service": config.ServiceName}

	return &Metrics{
		serviceName: config.ServiceName,
		registry:    registry,

		HTTPRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"service", "method", "path", "status"}),

		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: config.Namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   httpDurationBuckets,
		}, []string{"service", "method", "path"}),

		HTTPRequestsInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Name:        "http_requests_in_flight",
			Help:        "Number of HTTP requests currently being processed",
			ConstLabels: serviceLabel,
		}),

		KafkaEventsPublished: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "kafka_events_published_total",
			Help:      "Total number of Kafka events published",
		}, []string{"service", "topic", "event_type", "status"}),

		KafkaEventsConsumed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "kafka_events_consumed_total",
			Help:      "Total number of Kafka events consumed",
		}, []string{"service", "topic", "event_type", "status"}),

		KafkaPublishDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: config.Namespace,
			Name:      "kafka_publish_duration_seconds",
			Help:      "Kafka publish duration in seconds",
			Buckets:   kafkaDurationBuckets,
		}, []string{"service", "topic"}),

		MongoDBOperations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "mongodb_operations_total",
			Help:      "Total number of MongoDB operations",
		}, []string{"service", "collection", "operation", "status"}),

		MongoDBOperationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: config.Namespace,
			Name:      "mongodb_operation_duration_seconds",
			Help:      "MongoDB operation duration in seconds",
			Buckets:   mongoDurationBuckets,
		}, []string{"service", "collection", "operation"}),

		OutboxPending: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Name:        "outbox_events_pending",
			Help:        "Number of outbox events awaiting publication",
			ConstLabels: serviceLabel,
		}),

		OutboxPublished: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "outbox_events_published_total",
			Help:      "Total number of outbox events published to Kafka",
		}, []string{"service", "event_type", "status"}),

		OutboxPublishDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: config.Namespace,
			Name:      "outbox_publish_duration_seconds",
			Help:      "Outbox event publish duration in seconds",
			Buckets:   kafkaDurationBuckets,
		}, []string{"service"}),

		OutboxRetries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "outbox_event_retries_total",
			Help:      "Total number of outbox publish retries",
		}, []string{"service", "event_type"}),

		ShipmentsCreated: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "shipments_created_total",
			Help:      "Total number of shipments created",
		}, []string{"service", "warehouse"}),

		ShipmentStatusChanges: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "shipment_status_changes_total",
			Help:      "Total number of shipment status transitions",
		}, []string{"service", "status"}),

		ReportsGenerated: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "reports_generated_total",
			Help:      "Total number of shipment reports generated",
		}, []string{"service", "format"}),

		NotificationsDispatched: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "notifications_dispatched_total",
			Help:      "Total number of notifications dispatched",
		}, []string{"service", "channel", "status"}),

		CircuitBreakerState: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: config.Namespace,
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		}, []string{"service", "name"}),

		CircuitBreakerTrips: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "circuit_breaker_trips_total",
			Help:      "Total number of circuit breaker trips",
		}, []string{"service", "name"}),
	}
}

// Handler serves the private registry in OpenMetrics format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Registry exposes the underlying registry so sibling packages can register
// their own collectors on the same /metrics endpoint.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func outcome(success bool) string {
	if success {
		return "success"
	}
	return "error"
}

// RecordHTTPRequest records one handled HTTP request.
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(m.serviceName, method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(m.serviceName, method, path).Observe(duration.Seconds())
}

// IncrementHTTPRequestsInFlight increments in-flight requests.
func (m *Metrics) IncrementHTTPRequestsInFlight() {
	m.HTTPRequestsInFlight.Inc()
}

// DecrementHTTPRequestsInFlight decrements in-flight requests.
func (m *Metrics) DecrementHTTPRequestsInFlight() {
	m.HTTPRequestsInFlight.Dec()
}

// RecordKafkaPublish records one produced event.
func (m *Metrics) RecordKafkaPublish(topic, eventType string, success bool, duration time.Duration) {
	m.KafkaEventsPublished.WithLabelValues(m.serviceName, topic, eventType, outcome(success)).Inc()
	m.KafkaPublishDuration.WithLabelValues(m.serviceName, topic).Observe(duration.Seconds())
}

// RecordKafkaConsume records one consumed event.
func (m *Metrics) RecordKafkaConsume(topic, eventType string, success bool) {
	m.KafkaEventsConsumed.WithLabelValues(m.serviceName, topic, eventType, outcome(success)).Inc()
}

// RecordMongoDBOperation records one MongoDB operation.
func (m *Metrics) RecordMongoDBOperation(collection, operation string, success bool, duration time.Duration) {
	m.MongoDBOperations.WithLabelValues(m.serviceName, collection, operation, outcome(success)).Inc()
	m.MongoDBOperationDuration.WithLabelValues(m.serviceName, collection, operation).Observe(duration.Seconds())
}

// SetOutboxPending sets the number of unpublished outbox events.
func (m *Metrics) SetOutboxPending(count int) {
	m.OutboxPending.Set(float64(count))
}

// RecordOutboxPublish records one outbox publish attempt.
func (m *Metrics) RecordOutboxPublish(eventType string, success bool, duration time.Duration) {
	m.OutboxPublished.WithLabelValues(m.serviceName, eventType, outcome(success)).Inc()
	m.OutboxPublishDuration.WithLabelValues(m.serviceName).Observe(duration.Seconds())
}

// RecordOutboxRetry records one outbox publish retry.
func (m *Metrics) RecordOutboxRetry(eventType string) {
	m.OutboxRetries.WithLabelValues(m.serviceName, eventType).Inc()
}

// RecordShipmentCreated records a shipment registration.
func (m *Metrics) RecordShipmentCreated(warehouse string) {
	m.ShipmentsCreated.WithLabelValues(m.serviceName, warehouse).Inc()
}

// RecordStatusChange records a shipment status transition.
func (m *Metrics) RecordStatusChange(status string) {
	m.ShipmentStatusChanges.WithLabelValues(m.serviceName, status).Inc()
}

// RecordReportGenerated records a report export.
func (m *Metrics) RecordReportGenerated(format string) {
	m.ReportsGenerated.WithLabelValues(m.serviceName, format).Inc()
}

// RecordNotificationDispatched records a notification delivery attempt.
func (m *Metrics) RecordNotificationDispatched(channel string, success bool) {
	status := "sent"
	if !success {
		status = "failed"
	}
	m.NotificationsDispatched.WithLabelValues(m.serviceName, channel, status).Inc()
}

// SetCircuitBreakerState sets the breaker state gauge.
func (m *Metrics) SetCircuitBreakerState(name string, state int) {
	m.CircuitBreakerState.WithLabelValues(m.serviceName, name).Set(float64(state))
}

// RecordCircuitBreakerTrip records a closed-to-open transition.
func (m *Metrics) RecordCircuitBreakerTrip(name string) {
	m.CircuitBreakerTrips.WithLabelValues(m.serviceName, name).Inc()
}
