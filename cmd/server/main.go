// Stitchboard - Crochet Community Notification Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stitchboard

// Package main is the entry point for the Stitchboard notification service.
//
// Stitchboard turns community activity (comments, mentions, newly published
// patterns, products and blog posts) into per-user notifications. Comment
// notifications travel over a NATS JetStream bus and are stored by the bus
// consumer; broadcasts fan out in batches straight to the store.
//
// # Startup order
//
//  1. Configuration: .env, config.yaml and environment (koanf)
//  2. Logging (zerolog)
//  3. Stores: BadgerDB or PostgreSQL, optional Redis unread cache
//  4. Notification bus (NOTIFY_BUS_ENABLED): embedded or external NATS,
//     stream, publisher with circuit breaker, notification consumer
//  5. Notifier: resolver, transports, fan-out dispatcher, listener, inbox
//  6. Domain event ingress: bus consumer feeding the listener
//  7. Supervisor tree: cache janitor, bus consumers, HTTP server
//
// # Signal Handling
//
// SIGINT and SIGTERM cancel the root context. The supervisor stops every
// service, then the bus and stores are closed in reverse order.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/tomtom215/stitchboard/internal/api"
	"github.com/tomtom215/stitchboard/internal/config"
	"github.com/tomtom215/stitchboard/internal/eventprocessor"
	"github.com/tomtom215/stitchboard/internal/logging"
	"github.com/tomtom215/stitchboard/internal/notify"
	"github.com/tomtom215/stitchboard/internal/supervisor"
	"github.com/tomtom215/stitchboard/internal/supervisor/services"
)

const (
	healthCheckTimeout    = 5 * time.Second
	cacheJanitorInterval  = time.Minute
	startupTimeout        = 60 * time.Second
	busShutdownTimeout    = 10 * time.Second
	httpReadHeaderTimeout = 10 * time.Second
)

func main() {
	if err := run(); err != nil {
		logging.Fatal().Err(err).Msg("Stitchboard stopped with error")
	}
}

//nolint:gocyclo // sequential startup steps
func run() error {
	// A missing .env is normal outside development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logging.Warn().Err(err).Msg("Failed to load .env file")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
	})
	logger := logging.Logger()

	logging.Info().
		Str("store", cfg.Store.Driver).
		Bool("bus_enabled", cfg.Notify.BusEnabled).
		Bool("redis_enabled", cfg.Redis.Enabled).
		Msg("Starting Stitchboard")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	startCtx, startCancel := context.WithTimeout(ctx, startupTimeout)
	defer startCancel()

	stores, err := OpenStores(startCtx, &logger, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := stores.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing stores")
		}
	}()

	checker := eventprocessor.NewHealthChecker(healthCheckTimeout)
	stores.RegisterHealth(checker)

	direct := notify.NewDirectTransport(&logger, stores.Users, stores.Notifications)

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
		return fmt.Errorf("create supervisor tree: %w", err)
	}

	janitor := services.NewCacheJanitorService(&logger, cacheJanitorInterval)
	janitor.Register("user_directory", stores.Users)
	tree.AddMaintenanceService(janitor)

	var publisher notify.BusPublisher
	var bus *BusComponents
	if cfg.Notify.BusEnabled {
		bus, err = InitBus(startCtx, &logger, cfg, direct)
		if err != nil {
			return fmt.Errorf("initialize notification bus: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), busShutdownTimeout)
			defer cancel()
			bus.Shutdown(shutdownCtx)
		}()

		publisher = bus.Publisher()
	} else {
		logging.Info().Msg("Notification bus disabled, delivering directly (NOTIFY_BUS_ENABLED=false)")
	}

	notifier := BuildNotifier(&logger, &cfg.Notify, stores.Users, stores.Notifications, direct, publisher)
	logging.Info().
		Int("batch_size", cfg.Notify.BatchSize).
		Dur("fanout_timeout", cfg.Notify.FanOutTimeout).
		Msg("Notifier ready")

	// Domain events published by other processes reach the listener through
	// the bus; the consumers start with the messaging layer.
	if bus != nil {
		if err := bus.AttachListener(notifier.Listener); err != nil {
			return fmt.Errorf("attach domain event ingress: %w", err)
		}
		bus.RegisterHealth(checker)
		janitor.Register("event_dedup", bus.Consumer())
		janitor.Register("domain_event_dedup", bus.EventConsumer())
		tree.AddMessagingService(services.NewBusConsumerService(&logger, bus.NewRunner(checker), 0))
	}

	server := newHTTPServer(cfg, checker)
	tree.AddAPIService(services.NewHTTPServerService(&logger, server, cfg.Server.ShutdownTimeout))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	logging.Info().Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	// ServeBackground sends exactly one value and never closes the channel.
	select {
	case <-ctx.Done():
		logging.Info().Msg("Shutdown signal received, waiting for supervisor to finish")
		err = <-errCh
	case err = <-errCh:
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("Supervisor tree error")
	}

	reportUnstopped(tree)
	logging.Info().Msg("Stitchboard stopped")
	return nil
}

func newHTTPServer(cfg *config.Config, checker *eventprocessor.HealthChecker) *http.Server {
	return &http.Server{
		Addr: fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: api.NewRouter(api.RouterConfig{
			HealthRateLimit:  cfg.Server.RateLimit,
			ReadinessTimeout: 2 * healthCheckTimeout,
		}, checker),
		ReadHeaderTimeout: httpReadHeaderTimeout,
		IdleTimeout:       60 * time.Second,
	}
}

func reportUnstopped(tree *supervisor.SupervisorTree) {
	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) == 0 {
		return
	}
	logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
	}
}
