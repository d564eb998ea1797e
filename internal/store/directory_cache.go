// Stitchboard - Crochet Community Notification Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stitchboard

package store

import (
	"context"
	"errors"
	"time"

	"github.com/tomtom215/stitchboard/internal/cache"
	"github.com/tomtom215/stitchboard/internal/models"
)

// CachedDirectory keeps recently resolved users in an LRU so a broadcast
// does not look up the same creator once per recipient. Misses are not
// cached, so a newly registered user is visible immediately.
type CachedDirectory struct {
	UserDirectory

	users *cache.LRU[models.UserInfo]
}

// NewCachedDirectory wraps inner with a cache of the given size and ttl.
func NewCachedDirectory(inner UserDirectory, size int, ttl time.Duration) *CachedDirectory {
	return &CachedDirectory{
		UserDirectory: inner,
		users:         cache.NewLRU[models.UserInfo](size, ttl),
	}
}

// Get implements UserDirectory.
func (d *CachedDirectory) Get(ctx context.Context, id string) (models.UserInfo, error) {
	if user, ok := d.users.Get(id); ok {
		return user, nil
	}
	user, err := d.UserDirectory.Get(ctx, id)
	if err != nil {
		return models.UserInfo{}, err
	}
	d.users.Add(id, user)
	return user, nil
}

// Exists implements UserDirectory.
func (d *CachedDirectory) Exists(ctx context.Context, id string) (bool, error) {
	if d.users.Contains(id) {
		return true, nil
	}
	_, err := d.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// Invalidate drops id from the cache, e.g. after a rename.
func (d *CachedDirectory) Invalidate(id string) {
	d.users.Remove(id)
}

// CleanupExpired drops expired users and returns how many were removed.
func (d *CachedDirectory) CleanupExpired() int {
	return d.users.CleanupExpired()
}
