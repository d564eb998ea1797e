// Stitchboard - Crochet Community Notification Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stitchboard

//go:build integration

package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/stitchboard/internal/testinfra"
)

func TestPostgresStore_Integration(t *testing.T) {
	testinfra.SkipIfNoDocker(t)
	ctx := context.Background()

	pg, err := testinfra.NewPostgresContainer(ctx)
	if err != nil {
		t.Fatalf("Failed to start postgres: %v", err)
	}
	defer testinfra.CleanupContainer(t, ctx, pg)

	logger := zerolog.Nop()
	s, err := OpenPostgres(ctx, &logger, PostgresOptions{DSN: pg.DSN, MaxConns: 8})
	if err != nil {
		t.Fatalf("OpenPostgres failed: %v", err)
	}
	defer s.Close()

	// EnsureSchema must be repeatable.
	if err := s.EnsureSchema(ctx); err != nil {
		t.Fatalf("Second EnsureSchema failed: %v", err)
	}

	runStoreConformance(t, s)
	runUsersIteration(t, s)
}

func TestUnreadCountCache_Integration(t *testing.T) {
	testinfra.SkipIfNoDocker(t)
	ctx := context.Background()

	rc, err := testinfra.NewRedisContainer(ctx)
	if err != nil {
		t.Fatalf("Failed to start redis: %v", err)
	}
	defer testinfra.CleanupContainer(t, ctx, rc)

	client, err := NewRedisClient(ctx, RedisOptions{Addr: rc.Addr})
	if err != nil {
		t.Fatalf("NewRedisClient failed: %v", err)
	}
	defer client.Close()

	inner := newTestBadgerStore(t)
	seedUsers(t, inner, "u1", "u2")
	logger := zerolog.Nop()
	cached := NewUnreadCountCache(&logger, inner, client, time.Minute)

	rec, err := cached.Insert(ctx, newTestRecord("u2", "u1"))
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	n, err := cached.CountUnread(ctx, "u2")
	if err != nil || n != 1 {
		t.Fatalf("Expected 1 unread, got %d (err %v)", n, err)
	}
	gen, err := cached.generation(ctx, "u2")
	if err != nil || gen != 1 {
		t.Fatalf("Expected generation 1 after one insert, got %d (err %v)", gen, err)
	}
	cachedVal, err := client.Get(ctx, unreadCacheKey("u2", gen)).Int64()
	if err != nil || cachedVal != 1 {
		t.Errorf("Expected cached value 1, got %d (err %v)", cachedVal, err)
	}

	// A write through the decorator drops the cached count.
	if err := cached.SetRead(ctx, rec.ID, true); err != nil {
		t.Fatalf("SetRead failed: %v", err)
	}
	n, err = cached.CountUnread(ctx, "u2")
	if err != nil || n != 0 {
		t.Errorf("Expected 0 unread after SetRead, got %d (err %v)", n, err)
	}

	// Writes that bypass the decorator are masked until the TTL expires.
	if _, err := inner.Insert(ctx, newTestRecord("u2", "u1")); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	n, _ = cached.CountUnread(ctx, "u2")
	if n != 0 {
		t.Errorf("Expected stale cached 0, got %d", n)
	}

	// A reader that loaded its count before a concurrent write fills a
	// superseded generation, so the stale value is never served.
	staleGen, err := cached.generation(ctx, "u2")
	if err != nil {
		t.Fatalf("generation failed: %v", err)
	}
	if _, err := cached.Insert(ctx, newTestRecord("u2", "u1")); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	cached.fill(ctx, "u2", staleGen, 0)
	n, err = cached.CountUnread(ctx, "u2")
	if err != nil || n != 2 {
		t.Errorf("Expected 2 unread after a racing fill, got %d (err %v)", n, err)
	}

	if _, err := cached.DeleteAllForReceiver(ctx, "u2"); err != nil {
		t.Fatalf("DeleteAllForReceiver failed: %v", err)
	}
	if err := cached.DeleteByID(ctx, rec.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}
