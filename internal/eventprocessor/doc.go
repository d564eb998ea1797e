// Stitchboard - Crochet Community Notification Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stitchboard

// Package eventprocessor carries notifications and the domain events that
// cause them over NATS JetStream using Watermill.
//
// # Flow
//
//	BusTransport ──PublishNotification──▶ Publisher (circuit breaker)
//	                                          │
//	                                          ▼
//	                          NATS JetStream stream NOTIFICATIONS
//	                          subjects notifications.>
//	                                          │
//	                                          ▼
//	                    Subscriber ──▶ Router ──▶ Consumer ──▶ DirectTransport
//
// Business code in other processes raises domain events through an
// EventForwarder. They travel on events.<kind> in the same stream and an
// EventConsumer, reading through its own durable, hands them to the
// notification listener:
//
//	EventForwarder ──PublishEvent──▶ events.> ──▶ EventConsumer ──▶ Listener
//
// Each message body is a versioned JSON Envelope holding the notification
// request, an event ID and a timestamp. The event ID doubles as the
// Watermill message UUID and the Nats-Msg-Id header, so JetStream drops
// duplicate publishes inside the stream's duplicate window. The consumer
// also remembers processed event IDs in a TTL LRU cache to absorb
// redeliveries.
//
// # Failure handling
//
// On the publish side an open circuit breaker or a disconnected client
// fails fast, and the notify package then falls back to direct delivery.
//
// On the consume side messages that can never succeed (empty, undecodable,
// unknown schema version, unknown receiver, invalid request) are logged,
// counted in nats_messages_poisoned_total and acked. Domain events are
// acked once decoded, since the listener logs its own failures. Other
// errors are retried by the router and then nacked, leaving redelivery to
// JetStream up to MaxDeliver attempts.
//
// # Components
//
//   - EmbeddedServer: in-process nats-server with JetStream
//   - StreamInitializer: idempotent stream creation
//   - Publisher / Subscriber: Watermill NATS wrappers
//   - Router: Watermill router with recoverer, retry and throttle middleware
//   - Consumer: envelope decoding, deduplication, delivery
//   - EventConsumer / EventForwarder: domain event ingress and egress
//   - HealthChecker: aggregated readiness of the above
package eventprocessor
