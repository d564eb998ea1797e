// Stitchboard - Crochet Community Notification Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stitchboard

/*
Package config loads and validates Stitchboard configuration.

# Configuration Sources

Values are layered with koanf, later sources overriding earlier ones:

 1. Built-in defaults (defaultConfig)
 2. A YAML file named by CONFIG_PATH, or the first of DefaultConfigPaths
 3. Environment variables listed in envMappings

A .env file, when present, is loaded into the process environment by
cmd/server before Load is called.

# Environment Variables

Notification delivery (NotifyConfig):
  - NOTIFY_BUS_ENABLED: Deliver over the bus with direct fallback (default: true)
  - NOTIFY_COMMENT_SUBJECT: Subject for comment notifications (default: notifications.comment)
  - NOTIFY_SUBJECT_PREFIX: Prefix for per-category subjects (default: notifications)
  - NOTIFY_BATCH_SIZE: Recipients per fan-out batch (default: 50)
  - NOTIFY_FANOUT_TIMEOUT: Upper bound on a broadcast (default: 5m)
  - NOTIFY_MAX_CONCURRENT_BATCHES: Cap on running batches, 0 for none (default: 0)
  - NOTIFY_RATE_LIMIT: Fan-out deliveries per second, 0 for none (default: 0)

Bus (NATSConfig, CircuitBreakerConfig):
  - NATS_URL, NATS_EMBEDDED, NATS_HOST, NATS_PORT, NATS_STORE_DIR
  - NATS_STREAM_NAME (default: NOTIFICATIONS), NATS_RETENTION, NATS_DUPLICATE_WINDOW
  - NATS_DURABLE_NAME, NATS_QUEUE_GROUP, NATS_SUBSCRIBERS, NATS_MAX_DELIVER, NATS_ACK_WAIT
  - NATS_DEDUP_CACHE_SIZE, NATS_DEDUP_TTL
  - CIRCUIT_BREAKER_MAX_REQUESTS, CIRCUIT_BREAKER_INTERVAL, CIRCUIT_BREAKER_TIMEOUT,
    CIRCUIT_BREAKER_FAILURE_THRESHOLD

Storage (StoreConfig, RedisConfig):
  - STORE_DRIVER: badger or postgres (default: badger)
  - BADGER_PATH, BADGER_IN_MEMORY
  - POSTGRES_DSN or DATABASE_URL, POSTGRES_MAX_CONNS
  - REDIS_ENABLED, REDIS_ADDR, REDIS_PASSWORD, REDIS_DB, REDIS_UNREAD_TTL

Server and logging:
  - HTTP_HOST, HTTP_PORT (default: 8080), HTTP_SHUTDOWN_TIMEOUT,
    HTTP_RATE_LIMIT (per-IP requests per minute, default: 1000)
  - LOG_LEVEL, LOG_FORMAT, LOG_CALLER

# Validation

Config.Validate runs struct-tag rules through the shared validator and then
cross-field checks, e.g. a DSN is required for the postgres driver and the
comment subject must sit under the subject prefix so the consumer sees it.
*/
package config
