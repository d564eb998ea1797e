// Stitchboard - Crochet Community Notification Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stitchboard

package config

import "time"

// Config is the complete service configuration.
type Config struct {
	Logging        LoggingConfig        `koanf:"logging"`
	Notify         NotifyConfig         `koanf:"notify"`
	NATS           NATSConfig           `koanf:"nats"`
	CircuitBreaker CircuitBreakerConfig `koanf:"circuit_breaker"`
	Store          StoreConfig          `koanf:"store"`
	Redis          RedisConfig          `koanf:"redis"`
	Server         ServerConfig         `koanf:"server"`
}

// LoggingConfig mirrors logging.Config.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn warning error fatal panic disabled"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// NotifyConfig controls delivery and broadcast fan-out.
type NotifyConfig struct {
	// BusEnabled selects bus-mediated delivery (with direct fallback) over
	// direct writes. Env: NOTIFY_BUS_ENABLED (default: true)
	BusEnabled bool `koanf:"bus_enabled"`

	// CommentSubject is the subject comment notifications are published to.
	// Env: NOTIFY_COMMENT_SUBJECT (default: notifications.comment)
	CommentSubject string `koanf:"comment_subject" validate:"subject_token"`

	// SubjectPrefix scopes the per-category subjects (<prefix>.<category>).
	// Env: NOTIFY_SUBJECT_PREFIX (default: notifications)
	SubjectPrefix string `koanf:"subject_prefix" validate:"subject_token"`

	// EventSubjectPrefix scopes the domain events other processes publish
	// for this service to handle (<prefix>.<event kind>).
	// Env: NOTIFY_EVENT_SUBJECT_PREFIX (default: events)
	EventSubjectPrefix string `koanf:"event_subject_prefix" validate:"subject_token"`

	// BatchSize is the number of recipients per fan-out batch.
	// Env: NOTIFY_BATCH_SIZE (default: 50)
	BatchSize int `koanf:"batch_size" validate:"min=1"`

	// FanOutTimeout bounds how long a broadcast waits for its batches.
	// Env: NOTIFY_FANOUT_TIMEOUT (default: 5m)
	FanOutTimeout time.Duration `koanf:"fanout_timeout" validate:"gt=0"`

	// MaxConcurrentBatches caps running batch tasks. 0 means one task per batch.
	// Env: NOTIFY_MAX_CONCURRENT_BATCHES (default: 0)
	MaxConcurrentBatches int `koanf:"max_concurrent_batches" validate:"gte=0"`

	// RateLimit is the per-second limit on fan-out deliveries. 0 disables it.
	// Env: NOTIFY_RATE_LIMIT (default: 0)
	RateLimit float64 `koanf:"rate_limit" validate:"gte=0"`
}

// NATSConfig holds JetStream settings for the notification bus.
type NATSConfig struct {
	URL             string        `koanf:"url"`
	EmbeddedServer  bool          `koanf:"embedded_server"`
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port" validate:"gte=0,lte=65535"`
	StoreDir        string        `koanf:"store_dir"`
	MaxMemory       int64         `koanf:"max_memory"`
	MaxStore        int64         `koanf:"max_store"`
	StreamMaxBytes  int64         `koanf:"stream_max_bytes" validate:"gt=0"`
	StreamName      string        `koanf:"stream_name"`
	Retention       time.Duration `koanf:"retention"`
	DuplicateWindow time.Duration `koanf:"duplicate_window"`
	DurableName     string        `koanf:"durable_name"`
	QueueGroup      string        `koanf:"queue_group"`
	Subscribers     int           `koanf:"subscribers" validate:"min=1"`
	MaxDeliver      int           `koanf:"max_deliver" validate:"min=1"`
	AckWait         time.Duration `koanf:"ack_wait"`
	DedupCacheSize  int           `koanf:"dedup_cache_size" validate:"min=1"`
	DedupTTL        time.Duration `koanf:"dedup_ttl"`
}

// CircuitBreakerConfig guards bus publishes.
type CircuitBreakerConfig struct {
	MaxRequests      uint32        `koanf:"max_requests"`
	Interval         time.Duration `koanf:"interval"`
	Timeout          time.Duration `koanf:"timeout"`
	FailureThreshold uint32        `koanf:"failure_threshold" validate:"min=1"`
}

// Store drivers.
const (
	StoreDriverBadger   = "badger"
	StoreDriverPostgres = "postgres"
)

// StoreConfig selects and configures the NotificationStore backend.
type StoreConfig struct {
	Driver         string `koanf:"driver" validate:"oneof=badger postgres"`
	BadgerPath     string `koanf:"badger_path"`
	BadgerInMemory bool   `koanf:"badger_in_memory"`
	PostgresDSN    string `koanf:"postgres_dsn"`
	PostgresConns  int32  `koanf:"postgres_max_conns"`
}

// RedisConfig enables the unread-count cache.
type RedisConfig struct {
	Enabled   bool          `koanf:"enabled"`
	Addr      string        `koanf:"addr"`
	Password  string        `koanf:"password"`
	DB        int           `koanf:"db"`
	UnreadTTL time.Duration `koanf:"unread_ttl"`
}

// ServerConfig configures the health and metrics listener.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port" validate:"gte=1,lte=65535"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	// RateLimit is the per-IP request limit per minute on the health
	// endpoints. 0 disables it. Env: HTTP_RATE_LIMIT (default: 1000)
	RateLimit int `koanf:"rate_limit" validate:"gte=0"`
}

// Load reads configuration from, in increasing priority:
//
//  1. Built-in defaults
//  2. Config file (CONFIG_PATH, or config.yaml in a default location)
//  3. Environment variables
//
// See LoadWithKoanf for the underlying implementation.
func Load() (*Config, error) {
	return LoadWithKoanf()
}
