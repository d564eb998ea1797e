// Stitchboard - Crochet Community Notification Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stitchboard

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths are searched in order when CONFIG_PATH is unset.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/stitchboard/config.yaml",
	"/etc/stitchboard/config.yml",
}

// ConfigPathEnvVar names the environment variable holding an explicit config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

func defaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Notify: NotifyConfig{
			BusEnabled:           true,
			CommentSubject:       "notifications.comment",
			SubjectPrefix:        "notifications",
			EventSubjectPrefix:   "events",
			BatchSize:            50,
			FanOutTimeout:        5 * time.Minute,
			MaxConcurrentBatches: 0,
			RateLimit:            0,
		},
		NATS: NATSConfig{
			URL:             "nats://127.0.0.1:4222",
			EmbeddedServer:  true,
			Host:            "127.0.0.1",
			Port:            4222,
			StoreDir:        "/data/nats/jetstream",
			MaxMemory:       256 << 20, // 256MB
			MaxStore:        2 << 30,   // 2GB
			StreamMaxBytes:  1 << 30,   // 1GB
			StreamName:      "NOTIFICATIONS",
			Retention:       7 * 24 * time.Hour,
			DuplicateWindow: 2 * time.Minute,
			DurableName:     "notification-consumer",
			QueueGroup:      "notification-workers",
			Subscribers:     4,
			MaxDeliver:      5,
			AckWait:         30 * time.Second,
			DedupCacheSize:  10000,
			DedupTTL:        10 * time.Minute,
		},
		CircuitBreaker: CircuitBreakerConfig{
			MaxRequests:      3,
			Interval:         30 * time.Second,
			Timeout:          10 * time.Second,
			FailureThreshold: 5,
		},
		Store: StoreConfig{
			Driver:        StoreDriverBadger,
			BadgerPath:    "/data/notifications",
			PostgresConns: 20,
		},
		Redis: RedisConfig{
			Enabled:   false,
			Addr:      "127.0.0.1:6379",
			UnreadTTL: time.Minute,
		},
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ShutdownTimeout: 10 * time.Second,
			RateLimit:       1000,
		},
	}
}

// LoadWithKoanf layers defaults, an optional YAML file and environment
// variables, then validates the result.
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envMappings maps lower-cased environment variable names to config paths.
// Unmapped variables are ignored so unrelated environment cannot leak in.
var envMappings = map[string]string{
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	"notify_bus_enabled":            "notify.bus_enabled",
	"notify_comment_subject":        "notify.comment_subject",
	"notify_subject_prefix":         "notify.subject_prefix",
	"notify_event_subject_prefix":   "notify.event_subject_prefix",
	"notify_batch_size":             "notify.batch_size",
	"notify_fanout_timeout":         "notify.fanout_timeout",
	"notify_max_concurrent_batches": "notify.max_concurrent_batches",
	"notify_rate_limit":             "notify.rate_limit",

	"nats_url":              "nats.url",
	"nats_embedded":         "nats.embedded_server",
	"nats_host":             "nats.host",
	"nats_port":             "nats.port",
	"nats_store_dir":        "nats.store_dir",
	"nats_max_memory":       "nats.max_memory",
	"nats_max_store":        "nats.max_store",
	"nats_stream_name":      "nats.stream_name",
	"nats_stream_max_bytes": "nats.stream_max_bytes",
	"nats_retention":        "nats.retention",
	"nats_duplicate_window": "nats.duplicate_window",
	"nats_durable_name":     "nats.durable_name",
	"nats_queue_group":      "nats.queue_group",
	"nats_subscribers":      "nats.subscribers",
	"nats_max_deliver":      "nats.max_deliver",
	"nats_ack_wait":         "nats.ack_wait",
	"nats_dedup_cache_size": "nats.dedup_cache_size",
	"nats_dedup_ttl":        "nats.dedup_ttl",

	"circuit_breaker_max_requests":      "circuit_breaker.max_requests",
	"circuit_breaker_interval":          "circuit_breaker.interval",
	"circuit_breaker_timeout":           "circuit_breaker.timeout",
	"circuit_breaker_failure_threshold": "circuit_breaker.failure_threshold",

	"store_driver":       "store.driver",
	"badger_path":        "store.badger_path",
	"badger_in_memory":   "store.badger_in_memory",
	"postgres_dsn":       "store.postgres_dsn",
	"database_url":       "store.postgres_dsn",
	"postgres_max_conns": "store.postgres_max_conns",

	"redis_enabled":    "redis.enabled",
	"redis_addr":       "redis.addr",
	"redis_password":   "redis.password",
	"redis_db":         "redis.db",
	"redis_unread_ttl": "redis.unread_ttl",

	"http_host":             "server.host",
	"http_port":             "server.port",
	"http_shutdown_timeout": "server.shutdown_timeout",
	"http_rate_limit":       "server.rate_limit",
}

// envTransformFunc maps an environment variable name to its koanf path.
//
// Examples:
//   - NOTIFY_BATCH_SIZE -> notify.batch_size
//   - NATS_URL -> nats.url
//   - DATABASE_URL -> store.postgres_dsn
//   - HTTP_PORT -> server.port
func envTransformFunc(key string) string {
	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}
	return ""
}
