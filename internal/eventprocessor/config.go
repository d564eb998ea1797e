// Stitchboard - Crochet Community Notification Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stitchboard

package eventprocessor

import (
	"fmt"
	"time"

	"github.com/tomtom215/stitchboard/internal/config"
)

// ServerConfig holds embedded NATS server configuration.
type ServerConfig struct {
	Host              string
	Port              int
	StoreDir          string
	JetStreamMaxMem   int64
	JetStreamMaxStore int64
}

// DefaultServerConfig returns production defaults for embedded NATS server.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:              "127.0.0.1",
		Port:              4222,
		StoreDir:          "/data/nats/jetstream",
		JetStreamMaxMem:   1 << 30,  // 1GB
		JetStreamMaxStore: 10 << 30, // 10GB
	}
}

// ServerConfigFrom maps the nats section onto an embedded server config.
func ServerConfigFrom(cfg *config.NATSConfig) ServerConfig {
	return ServerConfig{
		Host:              cfg.Host,
		Port:              cfg.Port,
		StoreDir:          cfg.StoreDir,
		JetStreamMaxMem:   cfg.MaxMemory,
		JetStreamMaxStore: cfg.MaxStore,
	}
}

// PublisherConfig holds publisher configuration.
type PublisherConfig struct {
	URL              string
	MaxReconnects    int
	ReconnectWait    time.Duration
	ReconnectBuffer  int
	EnableTrackMsgID bool //nolint:revive // ID is correct per Go conventions
}

// DefaultPublisherConfig returns production defaults for publisher.
func DefaultPublisherConfig(url string) PublisherConfig {
	return PublisherConfig{
		URL:              url,
		MaxReconnects:    -1, // Unlimited
		ReconnectWait:    2 * time.Second,
		ReconnectBuffer:  8 * 1024 * 1024, // 8MB
		EnableTrackMsgID: true,
	}
}

// SubscriberConfig holds subscriber configuration.
type SubscriberConfig struct {
	URL              string
	DurableName      string
	QueueGroup       string
	SubscribersCount int
	AckWaitTimeout   time.Duration
	MaxDeliver       int
	MaxAckPending    int
	CloseTimeout     time.Duration
	MaxReconnects    int
	ReconnectWait    time.Duration

	// StreamName binds the subscriber to an existing stream. Required for
	// wildcard topics such as "notifications.>", since stream names cannot
	// contain wildcards.
	StreamName string
}

// DefaultSubscriberConfig returns production defaults for subscriber.
func DefaultSubscriberConfig(url string) SubscriberConfig {
	return SubscriberConfig{
		URL:              url,
		DurableName:      "notification-consumer",
		QueueGroup:       "notification-workers",
		SubscribersCount: 4,
		AckWaitTimeout:   30 * time.Second,
		MaxDeliver:       5,
		MaxAckPending:    1000,
		CloseTimeout:     30 * time.Second,
		MaxReconnects:    -1,
		ReconnectWait:    2 * time.Second,
		StreamName:       "NOTIFICATIONS",
	}
}

// SubscriberConfigFrom maps the nats section onto a subscriber config.
func SubscriberConfigFrom(url string, cfg *config.NATSConfig) SubscriberConfig {
	sc := DefaultSubscriberConfig(url)
	sc.DurableName = cfg.DurableName
	sc.QueueGroup = cfg.QueueGroup
	sc.SubscribersCount = cfg.Subscribers
	sc.MaxDeliver = cfg.MaxDeliver
	sc.StreamName = cfg.StreamName
	if cfg.AckWait > 0 {
		sc.AckWaitTimeout = cfg.AckWait
	}
	return sc
}

// EventSubscriberConfigFrom maps the nats section onto the subscriber for
// domain events. It gets its own durable and queue group so both consumers
// see every message on their subjects.
func EventSubscriberConfigFrom(url string, cfg *config.NATSConfig) SubscriberConfig {
	sc := SubscriberConfigFrom(url, cfg)
	sc.DurableName = cfg.DurableName + "-events"
	sc.QueueGroup = cfg.QueueGroup + "-events"
	return sc
}

// StreamConfig defines the notification stream settings.
type StreamConfig struct {
	Name            string
	Subjects        []string
	MaxAge          time.Duration
	MaxBytes        int64
	MaxMsgs         int64
	DuplicateWindow time.Duration
	Replicas        int
}

// DefaultStreamConfig returns production stream configuration.
func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		Name:            "NOTIFICATIONS",
		Subjects:        []string{"notifications.>"},
		MaxAge:          7 * 24 * time.Hour,
		MaxBytes:        1024 * 1024 * 1024, // 1GB
		MaxMsgs:         -1,
		DuplicateWindow: 2 * time.Minute,
		Replicas:        1,
	}
}

// StreamConfigFrom builds the stream config covering every subject under
// each prefix.
func StreamConfigFrom(cfg *config.NATSConfig, prefixes ...string) StreamConfig {
	sc := DefaultStreamConfig()
	sc.Name = cfg.StreamName
	sc.Subjects = make([]string, 0, len(prefixes))
	for _, prefix := range prefixes {
		sc.Subjects = append(sc.Subjects, WildcardSubject(prefix))
	}
	if cfg.Retention > 0 {
		sc.MaxAge = cfg.Retention
	}
	if cfg.DuplicateWindow > 0 {
		sc.DuplicateWindow = cfg.DuplicateWindow
	}
	if cfg.StreamMaxBytes > 0 {
		sc.MaxBytes = cfg.StreamMaxBytes
	}
	return sc
}

// Validate reports obviously unusable stream settings.
func (c StreamConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("%w: stream name required", ErrInvalidConfig)
	}
	if len(c.Subjects) == 0 {
		return fmt.Errorf("%w: stream %s has no subjects", ErrInvalidConfig, c.Name)
	}
	if c.Replicas < 1 {
		return fmt.Errorf("%w: stream %s needs at least one replica", ErrInvalidConfig, c.Name)
	}
	return nil
}

// WildcardSubject returns the subject matching everything under prefix.
func WildcardSubject(prefix string) string {
	return prefix + ".>"
}

// CircuitBreakerConfig holds circuit breaker settings.
type CircuitBreakerConfig struct {
	Name             string
	MaxRequests      uint32        // Allowed in half-open state
	Interval         time.Duration // Reset interval for counts
	Timeout          time.Duration // Time to stay open
	FailureThreshold uint32        // Failures before opening
}

// DefaultCircuitBreakerConfig returns production defaults.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:             name,
		MaxRequests:      3,
		Interval:         30 * time.Second,
		Timeout:          10 * time.Second,
		FailureThreshold: 5,
	}
}

// CircuitBreakerConfigFrom maps the circuit_breaker section.
func CircuitBreakerConfigFrom(name string, cfg *config.CircuitBreakerConfig) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:             name,
		MaxRequests:      cfg.MaxRequests,
		Interval:         cfg.Interval,
		Timeout:          cfg.Timeout,
		FailureThreshold: cfg.FailureThreshold,
	}
}

// ConsumerConfig tunes the bus consumer.
type ConsumerConfig struct {
	// Topic is the subscription subject, usually "<prefix>.>".
	Topic string

	// DedupCacheSize and DedupTTL bound the processed event ID cache.
	DedupCacheSize int
	DedupTTL       time.Duration
}

// DefaultConsumerConfig returns production defaults for the consumer.
func DefaultConsumerConfig(prefix string) ConsumerConfig {
	return ConsumerConfig{
		Topic:          WildcardSubject(prefix),
		DedupCacheSize: 10000,
		DedupTTL:       10 * time.Minute,
	}
}

// ConsumerConfigFrom maps the nats and notify sections onto a consumer config.
func ConsumerConfigFrom(nats *config.NATSConfig, notify *config.NotifyConfig) ConsumerConfig {
	cc := DefaultConsumerConfig(notify.SubjectPrefix)
	if nats.DedupCacheSize > 0 {
		cc.DedupCacheSize = nats.DedupCacheSize
	}
	if nats.DedupTTL > 0 {
		cc.DedupTTL = nats.DedupTTL
	}
	return cc
}

// EventConsumerConfigFrom maps the nats and notify sections onto the domain
// event consumer config.
func EventConsumerConfigFrom(nats *config.NATSConfig, notify *config.NotifyConfig) ConsumerConfig {
	cc := ConsumerConfigFrom(nats, notify)
	cc.Topic = WildcardSubject(notify.EventSubjectPrefix)
	return cc
}
