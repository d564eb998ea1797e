// Stitchboard - Crochet Community Notification Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stitchboard

package main

import (
	"context"
	"errors"
	"fmt"

	natsgo "github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/tomtom215/stitchboard/internal/config"
	"github.com/tomtom215/stitchboard/internal/eventprocessor"
	"github.com/tomtom215/stitchboard/internal/logging"
	"github.com/tomtom215/stitchboard/internal/supervisor/services"
)

// BusComponents holds the notification bus: the optional embedded server,
// the stream, the publisher behind its circuit breaker and the consumers.
// The router and its subscribers are created per run by NewRunner.
type BusComponents struct {
	server        *eventprocessor.EmbeddedServer
	adminConn     *natsgo.Conn
	streamInit    *eventprocessor.StreamInitializer
	publisher     *eventprocessor.Publisher
	consumer      *eventprocessor.Consumer
	eventConsumer *eventprocessor.EventConsumer

	url       string
	natsCfg   config.NATSConfig
	notifyCfg config.NotifyConfig
	routerCfg eventprocessor.RouterConfig
	logger    *zerolog.Logger
}

// InitBus starts the embedded server when configured, ensures the stream
// and creates the publisher and notification consumer. handler stores the
// notifications the consumer takes off the bus. Domain events are consumed
// once AttachListener has been called.
func InitBus(ctx context.Context, logger *zerolog.Logger, cfg *config.Config, handler eventprocessor.DeliveryHandler) (*BusComponents, error) {
	bus := &BusComponents{
		natsCfg:   cfg.NATS,
		notifyCfg: cfg.Notify,
		routerCfg: eventprocessor.DefaultRouterConfig(),
		logger:    logger,
	}

	if cfg.NATS.EmbeddedServer {
		serverCfg := eventprocessor.ServerConfigFrom(&cfg.NATS)
		srv, err := eventprocessor.NewEmbeddedServer(logger, &serverCfg)
		if err != nil {
			return nil, err
		}
		bus.server = srv
		bus.url = srv.ClientURL()
		logging.Info().Str("url", bus.url).Msg("Embedded NATS server started")
	} else {
		bus.url = cfg.NATS.URL
		logging.Info().Str("url", bus.url).Msg("Using external NATS server")
	}

	nc, js, err := eventprocessor.ConnectJetStream(bus.url)
	if err != nil {
		bus.Shutdown(ctx)
		return nil, err
	}
	bus.adminConn = nc

	streamCfg := eventprocessor.StreamConfigFrom(&cfg.NATS, cfg.Notify.SubjectPrefix, cfg.Notify.EventSubjectPrefix)
	streamInit, err := eventprocessor.NewStreamInitializer(logger, js, &streamCfg)
	if err != nil {
		bus.Shutdown(ctx)
		return nil, fmt.Errorf("create stream initializer: %w", err)
	}
	bus.streamInit = streamInit

	if _, err := streamInit.EnsureStream(ctx); err != nil {
		bus.Shutdown(ctx)
		return nil, fmt.Errorf("ensure stream exists: %w", err)
	}

	publisher, err := eventprocessor.NewPublisher(logger, eventprocessor.DefaultPublisherConfig(bus.url))
	if err != nil {
		bus.Shutdown(ctx)
		return nil, err
	}
	breakerCfg := eventprocessor.CircuitBreakerConfigFrom("nats-publisher", &cfg.CircuitBreaker)
	publisher.SetCircuitBreaker(eventprocessor.NewCircuitBreaker(logger, breakerCfg))
	bus.publisher = publisher

	consumer, err := eventprocessor.NewConsumer(logger, handler, eventprocessor.ConsumerConfigFrom(&cfg.NATS, &cfg.Notify))
	if err != nil {
		bus.Shutdown(ctx)
		return nil, err
	}
	bus.consumer = consumer

	logging.Info().
		Str("stream", streamCfg.Name).
		Str("topic", consumer.Topic()).
		Msg("Notification bus initialized")
	return bus, nil
}

// Publisher returns the bus publisher used by the bus transport.
func (b *BusComponents) Publisher() *eventprocessor.Publisher {
	return b.publisher
}

// Consumer returns the notification consumer.
func (b *BusComponents) Consumer() *eventprocessor.Consumer {
	return b.consumer
}

// EventConsumer returns the domain event consumer, or nil before
// AttachListener.
func (b *BusComponents) EventConsumer() *eventprocessor.EventConsumer {
	return b.eventConsumer
}

// AttachListener creates the domain event consumer that hands events
// published under notify.event_subject_prefix to listener. It must be
// called before the first runner is built.
func (b *BusComponents) AttachListener(listener eventprocessor.EventHandler) error {
	consumer, err := eventprocessor.NewEventConsumer(b.logger, listener,
		eventprocessor.EventConsumerConfigFrom(&b.natsCfg, &b.notifyCfg))
	if err != nil {
		return err
	}
	b.eventConsumer = consumer
	logging.Info().Str("topic", consumer.Topic()).Msg("Domain event ingress attached")
	return nil
}

// busRunner is one router run bound to its own subscribers.
type busRunner struct {
	router      *eventprocessor.Router
	subscribers []*eventprocessor.Subscriber
}

func (r *busRunner) Run(ctx context.Context) error {
	return r.router.Run(ctx)
}

func (r *busRunner) Close() error {
	errs := []error{r.router.Close()}
	for _, sub := range r.subscribers {
		errs = append(errs, sub.Close())
	}
	return errors.Join(errs...)
}

// NewRunner builds a fresh router with the notification consumer and, when
// attached, the domain event consumer registered. Each consumer reads
// through its own durable subscriber. It is the factory of the supervised
// bus consumer service.
func (b *BusComponents) NewRunner(checker *eventprocessor.HealthChecker) services.BusRunnerFactory {
	return func() (services.BusRunner, error) {
		router, err := eventprocessor.NewRouter(b.logger, &b.routerCfg)
		if err != nil {
			return nil, err
		}
		runner := &busRunner{router: router}

		subCfg := eventprocessor.SubscriberConfigFrom(b.url, &b.natsCfg)
		sub, err := eventprocessor.NewSubscriber(b.logger, &subCfg)
		if err != nil {
			_ = runner.Close()
			return nil, err
		}
		runner.subscribers = append(runner.subscribers, sub)
		b.consumer.Register(router, sub)

		if b.eventConsumer != nil {
			eventSubCfg := eventprocessor.EventSubscriberConfigFrom(b.url, &b.natsCfg)
			eventSub, err := eventprocessor.NewSubscriber(b.logger, &eventSubCfg)
			if err != nil {
				_ = runner.Close()
				return nil, err
			}
			runner.subscribers = append(runner.subscribers, eventSub)
			b.eventConsumer.Register(router, eventSub)
		}

		checker.RegisterComponent("router", router)
		return runner, nil
	}
}

// RegisterHealth adds the bus checks to checker. The router registers
// itself on every run.
func (b *BusComponents) RegisterHealth(checker *eventprocessor.HealthChecker) {
	if b.server != nil {
		checker.RegisterComponent("nats_server", b.server)
	}
	checker.RegisterComponent("stream", b.streamInit)
	checker.RegisterComponent("publisher", b.publisher)
	checker.RegisterComponent("consumer", b.consumer)
	if b.eventConsumer != nil {
		checker.RegisterComponent("event_consumer", b.eventConsumer)
	}
}

// Shutdown closes the publisher, the admin connection and finally the
// embedded server. The supervised consumer must already be stopped.
func (b *BusComponents) Shutdown(ctx context.Context) {
	if b == nil {
		return
	}
	if b.publisher != nil {
		if err := b.publisher.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing publisher")
		}
	}
	if b.adminConn != nil {
		b.adminConn.Close()
	}
	if b.server != nil {
		if err := b.server.Shutdown(ctx); err != nil {
			logging.Error().Err(err).Msg("Error shutting down embedded NATS server")
		}
	}
	logging.Info().Msg("Notification bus shut down")
}
