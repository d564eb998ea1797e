// Stitchboard - Crochet Community Notification Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stitchboard

/*
Package metrics provides Prometheus instrumentation for notification delivery.

Metrics are registered with promauto on the default registry and exposed at
/metrics by the HTTP server:

	curl http://localhost:8080/metrics

# Available Metrics

Delivery:
  - notifications_delivered_total{transport,type}
  - notification_delivery_errors_total{transport,reason}
  - notification_bus_fallbacks_total
  - notification_delivery_duration_seconds{transport}
  - notifications_suppressed_total{reason}

Fan-out:
  - fanout_recipients_total{outcome}
  - fanout_batches_total, fanout_timeouts_total
  - fanout_duration_seconds
  - fanout_active_batches (includes tasks still running past the join deadline)

Bus:
  - nats_messages_{published,consumed,processed,deduplicated}_total
  - nats_messages_poisoned_total{reason}
  - circuit_breaker_state{name}

Inbox:
  - inbox_operations_total{operation,outcome}
  - unread_cache_lookups_total{result}

Record* helpers keep label values consistent across packages.
*/
package metrics
