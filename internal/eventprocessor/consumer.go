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
	"github.com/tomtom215/stitchboard/internal/store"
	"github.com/tomtom215/stitchboard/internal/validation"
)

// DeliveryHandler persists a notification taken off the bus. The direct
// notification transport satisfies it.
type DeliveryHandler interface {
	Deliver(ctx context.Context, req models.NotificationRequest) error
}

// Poison reasons recorded in metrics.
const (
	poisonEmpty         = "empty_payload"
	poisonDecode        = "decode"
	poisonSchemaVersion = "schema_version"
	poisonNotFound      = "receiver_not_found"
	poisonInvalid       = "invalid_request"
)

// ConsumerStats holds runtime counters for the consumer.
type ConsumerStats struct {
	Received     int64
	Processed    int64
	Deduplicated int64
	Poisoned     int64
	Failed       int64
}

// Consumer turns bus messages back into direct deliveries.
//
// Messages that can never succeed (undecodable, unknown schema version,
// unknown receiver, invalid request) are logged and acked so they do not
// block the subscription. Other delivery errors are returned, which makes
// the router retry and finally nack for broker redelivery. Event IDs of
// processed messages are remembered for a while so redeliveries do not
// create duplicate records.
type Consumer struct {
	handler    DeliveryHandler
	serializer *Serializer
	processed  *cache.LRU[struct{}]
	config     ConsumerConfig
	logger     zerolog.Logger

	received     atomic.Int64
	processedN   atomic.Int64
	deduplicated atomic.Int64
	poisoned     atomic.Int64
	failed       atomic.Int64
}

// NewConsumer creates a consumer delivering through handler.
func NewConsumer(logger *zerolog.Logger, handler DeliveryHandler, cfg ConsumerConfig) (*Consumer, error) {
	if handler == nil {
		return nil, fmt.Errorf("%w: delivery handler required", ErrInvalidConfig)
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("%w: consumer topic required", ErrInvalidConfig)
	}

	return &Consumer{
		handler:    handler,
		serializer: NewSerializer(),
		processed:  cache.NewLRU[struct{}](cfg.DedupCacheSize, cfg.DedupTTL),
		config:     cfg,
		logger:     logging.Component(logger, "bus_consumer"),
	}, nil
}

// Topic returns the subject the consumer subscribes to.
func (c *Consumer) Topic() string {
	return c.config.Topic
}

// CleanupExpired drops expired event IDs from the dedup cache.
func (c *Consumer) CleanupExpired() int {
	return c.processed.CleanupExpired()
}

// Register adds the consumer to router, reading from sub.
func (c *Consumer) Register(router *Router, sub message.Subscriber) {
	router.AddConsumerHandler("notification_consumer", c.config.Topic, sub, c.Handle)
}

// Handle processes one message. A nil return acks it.
func (c *Consumer) Handle(msg *message.Message) error {
	c.received.Add(1)
	metrics.RecordNATSConsume()

	ctx := msg.Context()
	if id := msg.Metadata.Get(MetadataCorrelationID); id != "" {
		ctx = logging.ContextWithCorrelationID(ctx, id)
	}
	ctx = logging.ContextWithEventID(ctx, msg.UUID)
	log := logging.Enrich(ctx, c.logger)

	env, err := c.serializer.Unmarshal(msg.Payload)
	if err != nil {
		c.poison(log, decodeReason(err), err)
		return nil
	}

	if c.processed.Contains(env.EventID) {
		c.deduplicated.Add(1)
		metrics.RecordNATSDeduplicated()
		log.Debug().Str("event_id", env.EventID).Msg("Skipping already processed notification")
		return nil
	}

	if err := c.handler.Deliver(ctx, env.NotificationRequest); err != nil {
		if reason, permanent := deliveryPoisonReason(err); permanent {
			c.poison(log, reason, err)
			c.processed.Add(env.EventID, struct{}{})
			return nil
		}
		c.failed.Add(1)
		log.Warn().Err(err).
			Str("receiver_id", env.ReceiverID).
			Msg("Bus delivery failed, message will be retried")
		return fmt.Errorf("deliver event %s: %w", env.EventID, err)
	}

	c.processed.Add(env.EventID, struct{}{})
	c.processedN.Add(1)
	metrics.RecordNATSProcessed()
	return nil
}

func (c *Consumer) poison(log zerolog.Logger, reason string, err error) {
	c.poisoned.Add(1)
	metrics.RecordNATSPoisoned(reason)
	log.Error().Err(err).Str("reason", reason).Msg("Dropping undeliverable bus message")
}

func decodeReason(err error) string {
	switch {
	case errors.Is(err, ErrEmptyPayload):
		return poisonEmpty
	case errors.Is(err, ErrUnsupportedSchemaVersion):
		return poisonSchemaVersion
	default:
		return poisonDecode
	}
}

func deliveryPoisonReason(err error) (string, bool) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return poisonNotFound, true
	case errors.As(err, new(*validation.RequestValidationError)):
		return poisonInvalid, true
	default:
		return "", false
	}
}

// Stats returns a snapshot of the consumer counters.
func (c *Consumer) Stats() ConsumerStats {
	return ConsumerStats{
		Received:     c.received.Load(),
		Processed:    c.processedN.Load(),
		Deduplicated: c.deduplicated.Load(),
		Poisoned:     c.poisoned.Load(),
		Failed:       c.failed.Load(),
	}
}
