// Stitchboard - Crochet Community Notification Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stitchboard

package store

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/tomtom215/stitchboard/internal/logging"
	"github.com/tomtom215/stitchboard/internal/metrics"
	"github.com/tomtom215/stitchboard/internal/models"
)

const (
	unreadCacheNamespace = "stitchboard:unread:"

	// generationTTLFactor scales the count TTL for the generation key.
	generationTTLFactor = 10
)

// RedisOptions configures NewRedisClient.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisClient creates a client and verifies the connection.
func NewRedisClient(ctx context.Context, opts RedisOptions) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

// UnreadCountCache decorates a NotificationStore with a Redis cache of
// per-receiver unread counts. Cached counts are keyed by a per-receiver
// generation, and every write that can change a count bumps it. A reader that
// loaded a count before a concurrent write therefore fills a key no later
// reader consults. Redis failures are logged and the inner store is used.
type UnreadCountCache struct {
	NotificationStore

	client redis.UniversalClient
	ttl    time.Duration
	logger zerolog.Logger
}

// NewUnreadCountCache wraps inner. A non-positive ttl defaults to one minute.
func NewUnreadCountCache(logger *zerolog.Logger, inner NotificationStore, client redis.UniversalClient, ttl time.Duration) *UnreadCountCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &UnreadCountCache{
		NotificationStore: inner,
		client:            client,
		ttl:               ttl,
		logger:            logging.Component(logger, "unread_cache"),
	}
}

func unreadGenerationKey(receiverID string) string {
	return unreadCacheNamespace + "gen:" + receiverID
}

func unreadCacheKey(receiverID string, gen int64) string {
	return unreadCacheNamespace + receiverID + ":" + strconv.FormatInt(gen, 10)
}

// generation returns the receiver's current cache generation. A missing key
// is generation zero.
func (c *UnreadCountCache) generation(ctx context.Context, receiverID string) (int64, error) {
	gen, err := c.client.Get(ctx, unreadGenerationKey(receiverID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

// CountUnread serves from Redis when possible.
func (c *UnreadCountCache) CountUnread(ctx context.Context, receiverID string) (int64, error) {
	gen, err := c.generation(ctx, receiverID)
	if err != nil {
		metrics.RecordUnreadCacheLookup("error")
		c.logger.Warn().Err(err).Str("receiver_id", receiverID).Msg("Unread cache generation read failed")
		return c.NotificationStore.CountUnread(ctx, receiverID)
	}
	key := unreadCacheKey(receiverID, gen)

	val, err := c.client.Get(ctx, key).Result()
	switch {
	case err == nil:
		if n, parseErr := strconv.ParseInt(val, 10, 64); parseErr == nil {
			metrics.RecordUnreadCacheLookup("hit")
			return n, nil
		}
		metrics.RecordUnreadCacheLookup("error")
	case errors.Is(err, redis.Nil):
		metrics.RecordUnreadCacheLookup("miss")
	default:
		metrics.RecordUnreadCacheLookup("error")
		c.logger.Warn().Err(err).Str("receiver_id", receiverID).Msg("Unread cache read failed")
	}

	n, err := c.NotificationStore.CountUnread(ctx, receiverID)
	if err != nil {
		return 0, err
	}
	c.fill(ctx, receiverID, gen, n)
	return n, nil
}

// fill caches n under generation gen. A fill for a superseded generation is
// harmless since readers only look up the current one.
func (c *UnreadCountCache) fill(ctx context.Context, receiverID string, gen, n int64) {
	if err := c.client.Set(ctx, unreadCacheKey(receiverID, gen), n, c.ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Str("receiver_id", receiverID).Msg("Unread cache write failed")
	}
}

// invalidate bumps the receiver's generation. The generation key outlives any
// count it guards so that it cannot reset to a generation still cached.
func (c *UnreadCountCache) invalidate(ctx context.Context, receiverID string) {
	genKey := unreadGenerationKey(receiverID)
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, genKey)
		pipe.Expire(ctx, genKey, generationTTLFactor*c.ttl)
		return nil
	})
	if err != nil {
		c.logger.Warn().Err(err).Str("receiver_id", receiverID).Msg("Unread cache invalidation failed")
	}
}

// Insert implements NotificationStore.
func (c *UnreadCountCache) Insert(ctx context.Context, rec *models.NotificationRecord) (*models.NotificationRecord, error) {
	out, err := c.NotificationStore.Insert(ctx, rec)
	if err != nil {
		return nil, err
	}
	c.invalidate(ctx, out.ReceiverID)
	return out, nil
}

// SetRead implements NotificationStore.
func (c *UnreadCountCache) SetRead(ctx context.Context, id string, read bool) error {
	rec, err := c.NotificationStore.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := c.NotificationStore.SetRead(ctx, id, read); err != nil {
		return err
	}
	if rec.Read != read {
		c.invalidate(ctx, rec.ReceiverID)
	}
	return nil
}

// SetAllRead implements NotificationStore.
func (c *UnreadCountCache) SetAllRead(ctx context.Context, receiverID string) (int64, error) {
	n, err := c.NotificationStore.SetAllRead(ctx, receiverID)
	c.invalidate(ctx, receiverID)
	return n, err
}

// DeleteByID implements NotificationStore.
func (c *UnreadCountCache) DeleteByID(ctx context.Context, id string) error {
	rec, err := c.NotificationStore.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := c.NotificationStore.DeleteByID(ctx, id); err != nil {
		return err
	}
	c.invalidate(ctx, rec.ReceiverID)
	return nil
}

// DeleteAllForReceiver implements NotificationStore.
func (c *UnreadCountCache) DeleteAllForReceiver(ctx context.Context, receiverID string) (int64, error) {
	n, err := c.NotificationStore.DeleteAllForReceiver(ctx, receiverID)
	c.invalidate(ctx, receiverID)
	return n, err
}
