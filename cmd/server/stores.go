// Stitchboard - Crochet Community Notification Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stitchboard

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/tomtom215/stitchboard/internal/config"
	"github.com/tomtom215/stitchboard/internal/eventprocessor"
	"github.com/tomtom215/stitchboard/internal/logging"
	"github.com/tomtom215/stitchboard/internal/store"
)

// Directory cache sizing for broadcast fan-out.
const (
	directoryCacheSize = 10000
	directoryCacheTTL  = 5 * time.Minute
)

// backend is what both store drivers provide.
type backend interface {
	store.NotificationStore
	store.UserDirectory
	io.Closer
	Ping(ctx context.Context) error
}

// Stores holds the opened persistence layer.
type Stores struct {
	Notifications store.NotificationStore
	Users         *store.CachedDirectory

	backend backend
	redis   *redis.Client
}

// OpenStores opens the configured backend and its optional Redis unread
// cache.
func OpenStores(ctx context.Context, logger *zerolog.Logger, cfg *config.Config) (*Stores, error) {
	var (
		b   backend
		err error
	)
	switch cfg.Store.Driver {
	case config.StoreDriverPostgres:
		b, err = store.OpenPostgres(ctx, logger, store.PostgresOptions{
			DSN:      cfg.Store.PostgresDSN,
			MaxConns: cfg.Store.PostgresConns,
		})
	default:
		b, err = store.OpenBadger(logger, store.BadgerOptions{
			Path:     cfg.Store.BadgerPath,
			InMemory: cfg.Store.BadgerInMemory,
		})
	}
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Store.Driver, err)
	}

	s := &Stores{
		Notifications: b,
		Users:         store.NewCachedDirectory(b, directoryCacheSize, directoryCacheTTL),
		backend:       b,
	}

	if cfg.Redis.Enabled {
		client, err := store.NewRedisClient(ctx, store.RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			// The cache is optional; counts fall through to the backend.
			logging.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("Redis unavailable, unread-count cache disabled")
		} else {
			s.redis = client
			s.Notifications = store.NewUnreadCountCache(logger, b, client, cfg.Redis.UnreadTTL)
			logging.Info().Str("addr", cfg.Redis.Addr).Msg("Unread-count cache enabled")
		}
	}

	return s, nil
}

// RegisterHealth adds the store checks to checker.
func (s *Stores) RegisterHealth(checker *eventprocessor.HealthChecker) {
	checker.RegisterComponent("store", eventprocessor.HealthCheckFunc(s.backend.Ping))
	if s.redis != nil {
		checker.RegisterComponent("redis", eventprocessor.HealthCheckFunc(func(ctx context.Context) error {
			return s.redis.Ping(ctx).Err()
		}))
	}
}

// Close releases the backend and the Redis client.
func (s *Stores) Close() error {
	var errs []error
	if s.redis != nil {
		errs = append(errs, s.redis.Close())
	}
	errs = append(errs, s.backend.Close())
	return errors.Join(errs...)
}
