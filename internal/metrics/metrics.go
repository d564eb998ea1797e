// Stitchboard - Crochet Community Notification Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stitchboard

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Delivery transport labels.
const (
	TransportDirect = "direct"
	TransportBus    = "bus"
)

var (
	// Delivery Metrics
	NotificationsDelivered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_delivered_total",
			Help: "Notifications persisted or handed to the bus, by transport and type",
		},
		[]string{"transport", "type"},
	)

	NotificationDeliveryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_delivery_errors_total",
			Help: "Failed notification deliveries, by transport and reason",
		},
		[]string{"transport", "reason"}, // "not_found", "store", "publish", "invalid"
	)

	NotificationBusFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notification_bus_fallbacks_total",
			Help: "Bus publishes that fell back to direct delivery",
		},
	)

	NotificationDeliveryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "notification_delivery_duration_seconds",
			Help:    "Time spent delivering a single notification",
			Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"transport"},
	)

	// Resolver Metrics
	NotificationsSuppressed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_suppressed_total",
			Help: "Notifications skipped because they would reach their own sender",
		},
		[]string{"reason"}, // "self_owner", "self_mention", "self_request"
	)

	// Fan-out Metrics
	FanOutRecipients = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fanout_recipients_total",
			Help: "Recipients processed by broadcast fan-out, by outcome",
		},
		[]string{"outcome"}, // "delivered", "failed"
	)

	FanOutBatches = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fanout_batches_total",
			Help: "Batches dispatched by broadcast fan-out",
		},
	)

	FanOutTimeouts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fanout_timeouts_total",
			Help: "Fan-outs whose join deadline elapsed before all batches finished",
		},
	)

	FanOutDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fanout_duration_seconds",
			Help:    "Wall time a caller waited on a broadcast fan-out",
			Buckets: []float64{.01, .05, .1, .5, 1, 5, 15, 30, 60, 120, 300},
		},
	)

	FanOutActiveBatches = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fanout_active_batches",
			Help: "Batch tasks currently running, including those past their join deadline",
		},
	)

	// NATS Metrics
	NATSMessagesPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nats_messages_published_total",
			Help: "Messages published to JetStream",
		},
	)

	NATSMessagesConsumed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nats_messages_consumed_total",
			Help: "Messages received by the notification consumer",
		},
	)

	NATSMessagesProcessed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nats_messages_processed_total",
			Help: "Messages successfully applied by the notification consumer",
		},
	)

	NATSMessagesDeduplicated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nats_messages_deduplicated_total",
			Help: "Redelivered messages skipped because their event ID was already applied",
		},
	)

	NATSMessagesPoisoned = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nats_messages_poisoned_total",
			Help: "Messages acked without processing because they can never succeed",
		},
		[]string{"reason"}, // "empty_payload", "decode", "schema_version", "receiver_not_found", "invalid_request", "unknown_event_kind"
	)

	DomainEventsConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "domain_events_consumed_total",
			Help: "Domain events taken off the bus, by kind and result",
		},
		[]string{"kind", "result"}, // "processed", "deduplicated", "poisoned"
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	// Inbox Metrics
	InboxOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inbox_operations_total",
			Help: "Inbox operations, by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	UnreadCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "unread_cache_lookups_total",
			Help: "Redis unread-count cache lookups",
		},
		[]string{"result"}, // "hit", "miss", "error"
	)

	// HTTP Metrics (health and metrics listener)
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "HTTP requests by method, route pattern and status",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

// RecordDelivery records the outcome of a single transport call.
func RecordDelivery(transport, notificationType string, duration time.Duration, reason string) {
	NotificationDeliveryDuration.WithLabelValues(transport).Observe(duration.Seconds())
	if reason != "" {
		NotificationDeliveryErrors.WithLabelValues(transport, reason).Inc()
		return
	}
	NotificationsDelivered.WithLabelValues(transport, notificationType).Inc()
}

// RecordBusFallback records a bus publish that fell back to direct delivery.
func RecordBusFallback() {
	NotificationBusFallbacks.Inc()
}

// RecordSuppressed records a resolver path skipped for reason.
func RecordSuppressed(reason string) {
	NotificationsSuppressed.WithLabelValues(reason).Inc()
}

// RecordFanOutRecipient records one recipient processed by a batch task.
func RecordFanOutRecipient(err error) {
	if err != nil {
		FanOutRecipients.WithLabelValues("failed").Inc()
		return
	}
	FanOutRecipients.WithLabelValues("delivered").Inc()
}

// RecordFanOut records a completed (or abandoned) fan-out wait.
func RecordFanOut(batches int, duration time.Duration, timedOut bool) {
	FanOutBatches.Add(float64(batches))
	FanOutDuration.Observe(duration.Seconds())
	if timedOut {
		FanOutTimeouts.Inc()
	}
}

// TrackBatch adjusts the active batch gauge.
func TrackBatch(start bool) {
	if start {
		FanOutActiveBatches.Inc()
	} else {
		FanOutActiveBatches.Dec()
	}
}

// RecordNATSPublish records a message being published to NATS.
func RecordNATSPublish() {
	NATSMessagesPublished.Inc()
}

// RecordNATSConsume records a message being consumed from NATS.
func RecordNATSConsume() {
	NATSMessagesConsumed.Inc()
}

// RecordNATSProcessed records a message being successfully processed.
func RecordNATSProcessed() {
	NATSMessagesProcessed.Inc()
}

// RecordNATSDeduplicated records a message skipped due to deduplication.
func RecordNATSDeduplicated() {
	NATSMessagesDeduplicated.Inc()
}

// RecordNATSPoisoned records a message acked without processing.
func RecordNATSPoisoned(reason string) {
	NATSMessagesPoisoned.WithLabelValues(reason).Inc()
}

// RecordDomainEvent records the outcome of one domain event taken off the
// bus. kind is empty when the envelope could not be decoded.
func RecordDomainEvent(kind, result string) {
	if kind == "" {
		kind = "unknown"
	}
	DomainEventsConsumed.WithLabelValues(kind, result).Inc()
}

// RecordCircuitBreakerState publishes a breaker's state as a gauge.
func RecordCircuitBreakerState(name string, state int) {
	CircuitBreakerState.WithLabelValues(name).Set(float64(state))
}

// RecordInboxOperation records an inbox operation outcome.
func RecordInboxOperation(operation string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	InboxOperations.WithLabelValues(operation, outcome).Inc()
}

// RecordUnreadCacheLookup records a Redis unread-count cache lookup.
func RecordUnreadCacheLookup(result string) {
	UnreadCacheLookups.WithLabelValues(result).Inc()
}

// RecordAPIRequest records one HTTP request. route should be the matched
// pattern, not the raw path, to bound label cardinality.
func RecordAPIRequest(method, route, status string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, status).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}
