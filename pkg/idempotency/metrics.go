package idempotency

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exposes idempotency and deduplication counters. HTTP-side
// counters are labelled by service, endpoint and method; consumer-side
// counters by service, topic and event type.
type Metrics struct {
	hits                 *prometheus.CounterVec
	misses               *prometheus.CounterVec
	parameterMismatches  *prometheus.CounterVec
	concurrentCollisions *prometheus.CounterVec
	storageErrors        *prometheus.CounterVec

	dedupHits   *prometheus.CounterVec
	dedupMisses *prometheus.CounterVec
	dedupErrors *prometheus.CounterVec
}

// NewMetrics registers all counters on the given registry. A nil registry
// falls back to the default Prometheus registerer.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	factory := promauto.With(registry)
	counter := func(name, help string, labels ...string) *prometheus.CounterVec {
		return factory.NewCounterVec(prometheus.CounterOpts{Name: name, Help: help}, labels)
	}

	return &Metrics{
		hits: counter("idempotency_hits_total",
			"Total number of idempotency cache hits (cached response replayed)",
			"service", "endpoint", "method"),
		misses: counter("idempotency_misses_total",
			"Total number of idempotency cache misses (new request processed)",
			"service", "endpoint", "method"),
		parameterMismatches: counter("idempotency_parameter_mismatches_total",
			"Total number of parameter mismatch errors (same key, different body)",
			"service", "endpoint", "method"),
		concurrentCollisions: counter("idempotency_concurrent_collisions_total",
			"Total number of concurrent request collisions (409 Conflict)",
			"service", "endpoint", "method"),
		storageErrors: counter("idempotency_storage_errors_total",
			"Total number of idempotency storage errors",
			"service", "operation"),
		dedupHits: counter("message_deduplication_hits_total",
			"Total number of duplicate messages skipped",
			"service", "topic", "event_type"),
		dedupMisses: counter("message_deduplication_misses_total",
			"Total number of new messages processed",
			"service", "topic", "event_type"),
		dedupErrors: counter("message_deduplication_errors_total",
			"Total number of errors during message deduplication",
			"service", "topic", "event_type"),
	}
}

// RecordHit counts a cached response replay.
func (m *Metrics) RecordHit(service, endpoint, method string) {
	m.hits.WithLabelValues(service, endpoint, method).Inc()
}

// RecordMiss counts a new request passing through to its handler.
func (m *Metrics) RecordMiss(service, endpoint, method string) {
	m.misses.WithLabelValues(service, endpoint, method).Inc()
}

// RecordParameterMismatch counts a key reuse with a different request body.
func (m *Metrics) RecordParameterMismatch(service, endpoint, method string) {
	m.parameterMismatches.WithLabelValues(service, endpoint, method).Inc()
}

// RecordConcurrentCollision counts a request rejected while another holds
// the same key.
func (m *Metrics) RecordConcurrentCollision(service, endpoint, method string) {
	m.concurrentCollisions.WithLabelValues(service, endpoint, method).Inc()
}

// RecordStorageError counts a failed repository operation.
func (m *Metrics) RecordStorageError(service, operation string) {
	m.storageErrors.WithLabelValues(service, operation).Inc()
}

// RecordDeduplicationHit counts a duplicate message skipped.
func (m *Metrics) RecordDeduplicationHit(service, topic, eventType string) {
	m.dedupHits.WithLabelValues(service, topic, eventType).Inc()
}

// RecordDeduplicationMiss counts a first-time message handled.
func (m *Metrics) RecordDeduplicationMiss(service, topic, eventType string) {
	m.dedupMisses.WithLabelValues(service, topic, eventType).Inc()
}

// RecordDeduplicationError counts a dedup check or record failure.
func (m *Metrics) RecordDeduplicationError(service, topic, eventType string) {
	m.dedupErrors.WithLabelValues(service, topic, eventType).Inc()
}
