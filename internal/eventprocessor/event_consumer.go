// Stitchboard - Crochet Community Notification Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stitchboard

package eventprocessor

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/rs/zerolog"

	"github.com/tomtom215/stitchboard/internal/cache"
	"github.com/tomtom215/stitchboard/internal/logging"
	"github.com/tomtom215/stitchboard/internal/metrics"
	"github.com/tomtom215/stitchboard/internal/models"
)

// EventHandler receives domain events taken off the bus. The notification
// listener satisfies it.
type EventHandler interface {
	Publish(ctx context.Context, evt models.DomainEvent)
}

// Domain event results recorded in metrics.
const (
	eventProcessed    = "processed"
	eventDeduplicated = "deduplicated"
	eventPoisoned     = "poisoned"
)

// poisonUnknownKind is the poison reason for events of an unhandled kind.
const poisonUnknownKind = "unknown_event_kind"

// EventConsumer feeds domain events published by other processes into the
// notification listener.
//
// Every decodable event is acked once handed over. The listener logs its
// own delivery failures, and a redelivery after a partial success would
// notify the same users twice. Undecodable events are poisoned.
type EventConsumer struct {
	handler    EventHandler
	serializer *Serializer
	processed  *cache.LRU[struct{}]
	config     ConsumerConfig
	logger     zerolog.Logger

	received     atomic.Int64
	processedN   atomic.Int64
	deduplicated atomic.Int64
	poisoned     atomic.Int64
}

// NewEventConsumer creates an event consumer handing events to handler.
func NewEventConsumer(logger *zerolog.Logger, handler EventHandler, cfg ConsumerConfig) (*EventConsumer, error) {
	if handler == nil {
		return nil, fmt.Errorf("%w: event handler required", ErrInvalidConfig)
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("%w: event consumer topic required", ErrInvalidConfig)
	}

	return &EventConsumer{
		handler:    handler,
		serializer: NewSerializer(),
		processed:  cache.NewLRU[struct{}](cfg.DedupCacheSize, cfg.DedupTTL),
		config:     cfg,
		logger:     logging.Component(logger, "event_consumer"),
	}, nil
}

// Topic returns the subject the consumer subscribes to.
func (c *EventConsumer) Topic() string {
	return c.config.Topic
}

// CleanupExpired drops expired event IDs from the dedup cache.
func (c *EventConsumer) CleanupExpired() int {
	return c.processed.CleanupExpired()
}

// Register adds the consumer to router, reading from sub.
func (c *EventConsumer) Register(router *Router, sub message.Subscriber) {
	router.AddConsumerHandler("domain_event_consumer", c.config.Topic, sub, c.Handle)
}

// Handle processes one message. It always acks.
func (c *EventConsumer) Handle(msg *message.Message) error {
	c.received.Add(1)

	ctx := msg.Context()
	if id := msg.Metadata.Get(MetadataCorrelationID); id != "" {
		ctx = logging.ContextWithCorrelationID(ctx, id)
	}
	ctx = logging.ContextWithEventID(ctx, msg.UUID)
	log := logging.Enrich(ctx, c.logger)

	env, evt, err := c.serializer.UnmarshalEvent(msg.Payload)
	if err != nil {
		c.poisoned.Add(1)
		metrics.RecordNATSPoisoned(eventDecodeReason(err))
		metrics.RecordDomainEvent(msg.Metadata.Get(MetadataEventKind), eventPoisoned)
		log.Error().Err(err).Str("reason", eventDecodeReason(err)).Msg("Dropping undecodable domain event")
		return nil
	}

	kind := string(env.Kind)
	if c.processed.Contains(env.EventID) {
		c.deduplicated.Add(1)
		metrics.RecordDomainEvent(kind, eventDeduplicated)
		log.Debug().Str("event_id", env.EventID).Msg("Skipping already processed domain event")
		return nil
	}
	c.processed.Add(env.EventID, struct{}{})

	c.handler.Publish(ctx, evt)

	c.processedN.Add(1)
	metrics.RecordDomainEvent(kind, eventProcessed)
	log.Debug().Str("event", kind).Msg("Domain event handled")
	return nil
}

func eventDecodeReason(err error) string {
	if errors.Is(err, ErrUnknownEventKind) {
		return poisonUnknownKind
	}
	return decodeReason(err)
}

// Stats returns a snapshot of the consumer counters. Failed is always zero
// since delivery failures stay inside the listener.
func (c *EventConsumer) Stats() ConsumerStats {
	return ConsumerStats{
		Received:     c.received.Load(),
		Processed:    c.processedN.Load(),
		Deduplicated: c.deduplicated.Load(),
		Poisoned:     c.poisoned.Load(),
	}
}

// HealthCheck implements HealthCheckable.
func (c *EventConsumer) HealthCheck(_ context.Context) ComponentHealth {
	stats := c.Stats()
	return ComponentHealth{
		Healthy: true,
		Details: map[string]any{
			"received":     stats.Received,
			"processed":    stats.Processed,
			"deduplicated": stats.Deduplicated,
			"poisoned":     stats.Poisoned,
		},
	}
}

// EventPublisher is the part of Publisher an EventForwarder needs.
type EventPublisher interface {
	PublishEvent(ctx context.Context, subject string, evt models.DomainEvent) error
}

// EventForwarder lets business code in another process raise domain events
// on the bus. Like the in-process listener it never fails the caller.
type EventForwarder struct {
	publisher EventPublisher
	prefix    string
	logger    zerolog.Logger
}

// NewEventForwarder publishes events under prefix through publisher.
func NewEventForwarder(logger *zerolog.Logger, publisher EventPublisher, prefix string) *EventForwarder {
	return &EventForwarder{
		publisher: publisher,
		prefix:    prefix,
		logger:    logging.Component(logger, "event_forwarder"),
	}
}

// Publish sends evt to its kind's subject. Errors are logged.
func (f *EventForwarder) Publish(ctx context.Context, evt models.DomainEvent) {
	subject := EventSubject(f.prefix, evt.Kind())
	if err := f.publisher.PublishEvent(ctx, subject, evt); err != nil {
		log := logging.Enrich(ctx, f.logger)
		log.Error().Err(err).
			Str("subject", subject).
			Str("event", string(evt.Kind())).
			Msg("Failed to forward domain event")
	}
}
