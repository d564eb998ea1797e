// Stitchboard - Crochet Community Notification Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stitchboard

package eventprocessor

import (
	"context"
	"fmt"
	"sync"
	"time"

	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	natsgo "github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/stitchboard/internal/logging"
	"github.com/tomtom215/stitchboard/internal/metrics"
	"github.com/tomtom215/stitchboard/internal/models"
)

// ConnectionStatus reports whether the broker connection is usable.
type ConnectionStatus interface {
	IsConnected() bool
}

// Publisher wraps a Watermill publisher with a circuit breaker and a
// connection check. It satisfies the bus side of the notification
// transport: PublishNotification plus IsConnected.
type Publisher struct {
	publisher      message.Publisher
	conn           ConnectionStatus
	circuitBreaker *gobreaker.CircuitBreaker[any]
	serializer     *Serializer
	mu             sync.RWMutex
	closed         bool
	logger         zerolog.Logger
}

// NewPublisher connects to NATS and creates a JetStream publisher.
// Message IDs are tracked so the stream's duplicate window applies.
func NewPublisher(logger *zerolog.Logger, cfg PublisherConfig) (*Publisher, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("%w: publisher url required", ErrInvalidConfig)
	}
	log := logging.Component(logger, "nats_publisher")

	natsOpts := []natsgo.Option{
		natsgo.Name("stitchboard-publisher"),
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(cfg.MaxReconnects),
		natsgo.ReconnectWait(cfg.ReconnectWait),
		natsgo.ReconnectBufSize(cfg.ReconnectBuffer),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				log.Warn().Err(err).Msg("NATS disconnected")
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		natsgo.ErrorHandler(func(_ *natsgo.Conn, sub *natsgo.Subscription, err error) {
			event := log.Error().Err(err)
			if sub != nil {
				event = event.Str("subject", sub.Subject)
			}
			event.Msg("NATS error")
		}),
	}

	conn, err := natsgo.Connect(cfg.URL, natsOpts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	// NewPublisherWithNatsConn skips watermill's defaults, so the subject
	// calculator must be set here.
	wmConfig := wmNats.PublisherConfig{
		URL:               cfg.URL,
		Marshaler:         &wmNats.NATSMarshaler{},
		SubjectCalculator: wmNats.DefaultSubjectCalculator,
		JetStream: wmNats.JetStreamConfig{
			Disabled:      false,
			AutoProvision: false, // Stream is pre-created by StreamInitializer
			TrackMsgId:    cfg.EnableTrackMsgID,
			PublishOptions: []natsgo.PubOpt{
				natsgo.RetryAttempts(3),
				natsgo.RetryWait(100 * time.Millisecond),
			},
		},
	}

	pub, err := wmNats.NewPublisherWithNatsConn(conn, wmConfig.GetPublisherPublishConfig(), logging.NewWatermillAdapter(logger))
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("create watermill publisher: %w", err)
	}

	return &Publisher{
		publisher:  pub,
		conn:       conn,
		serializer: NewSerializer(),
		logger:     log,
	}, nil
}

// NewPublisherFromWatermill wraps an existing Watermill publisher, such as a
// gochannel pub/sub. A nil conn means the publisher is always connected.
func NewPublisherFromWatermill(logger *zerolog.Logger, pub message.Publisher, conn ConnectionStatus) (*Publisher, error) {
	if pub == nil {
		return nil, ErrNilPublisher
	}
	return &Publisher{
		publisher:  pub,
		conn:       conn,
		serializer: NewSerializer(),
		logger:     logging.Component(logger, "nats_publisher"),
	}, nil
}

// SetCircuitBreaker configures the circuit breaker for publish operations.
func (p *Publisher) SetCircuitBreaker(cb *gobreaker.CircuitBreaker[any]) {
	p.circuitBreaker = cb
}

// IsConnected reports whether publishes can currently reach the broker.
func (p *Publisher) IsConnected() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return false
	}
	return p.conn == nil || p.conn.IsConnected()
}

// PublishNotification wraps req in a fresh envelope and publishes it to
// subject.
func (p *Publisher) PublishNotification(ctx context.Context, subject string, req models.NotificationRequest) error {
	env, err := NewEnvelope(req)
	if err != nil {
		return err
	}
	msg, err := p.serializer.NewMessage(env)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	if id := logging.CorrelationIDFromContext(ctx); id != "" {
		msg.Metadata.Set(MetadataCorrelationID, id)
	}

	if err := p.Publish(ctx, subject, msg); err != nil {
		return err
	}

	log := logging.Enrich(ctx, p.logger)
	log.Debug().
		Str("subject", subject).
		Str("event_id", env.EventID).
		Str("receiver_id", req.ReceiverID).
		Msg("Notification published")
	return nil
}

// PublishEvent wraps evt in a fresh event envelope and publishes it to
// subject.
func (p *Publisher) PublishEvent(ctx context.Context, subject string, evt models.DomainEvent) error {
	env, err := NewEventEnvelope(evt)
	if err != nil {
		return err
	}
	msg, err := p.serializer.NewEventMessage(env)
	if err != nil {
		return fmt.Errorf("encode domain event: %w", err)
	}
	if id := logging.CorrelationIDFromContext(ctx); id != "" {
		msg.Metadata.Set(MetadataCorrelationID, id)
	}

	if err := p.Publish(ctx, subject, msg); err != nil {
		return err
	}

	log := logging.Enrich(ctx, p.logger)
	log.Debug().
		Str("subject", subject).
		Str("event_id", env.EventID).
		Str("event", string(env.Kind)).
		Msg("Domain event published")
	return nil
}

// Publish sends a message to the specified topic with circuit breaker protection.
// The message UUID is used as Nats-Msg-Id for deduplication if not already set.
func (p *Publisher) Publish(ctx context.Context, topic string, msg *message.Message) error {
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return ErrPublisherClosed
	}
	p.mu.RUnlock()

	if msg.Metadata.Get(natsgo.MsgIdHdr) == "" {
		msg.Metadata.Set(natsgo.MsgIdHdr, msg.UUID)
	}
	msg.SetContext(ctx)

	var err error
	if p.circuitBreaker != nil {
		_, err = p.circuitBreaker.Execute(func() (any, error) {
			return nil, p.publisher.Publish(topic, msg)
		})
	} else {
		err = p.publisher.Publish(topic, msg)
	}
	if err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}

	metrics.RecordNATSPublish()
	return nil
}

// Close gracefully shuts down the publisher.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	err := p.publisher.Close()
	if nc, ok := p.conn.(*natsgo.Conn); ok && !nc.IsClosed() {
		nc.Close()
	}
	return err
}
