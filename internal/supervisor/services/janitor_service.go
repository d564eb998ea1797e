// Stitchboard - Crochet Community Notification Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stitchboard

package services

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/stitchboard/internal/logging"
)

// Expirer is a cache that drops expired entries on request.
type Expirer interface {
	CleanupExpired() int
}

// CacheJanitorService periodically sweeps expired entries from the
// in-process caches (dedup cache, user directory cache). Those caches only
// expire lazily on access, so without a sweep cold keys linger until evicted.
type CacheJanitorService struct {
	interval time.Duration
	logger   zerolog.Logger

	mu     sync.Mutex
	caches map[string]Expirer
}

// NewCacheJanitorService sweeps every interval. A non-positive interval
// means one minute.
func NewCacheJanitorService(logger *zerolog.Logger, interval time.Duration) *CacheJanitorService {
	if interval <= 0 {
		interval = time.Minute
	}
	return &CacheJanitorService{
		interval: interval,
		logger:   logging.Component(logger, "cache_janitor"),
		caches:   make(map[string]Expirer),
	}
}

// Register adds a cache under name, replacing any previous one.
func (s *CacheJanitorService) Register(name string, cache Expirer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.caches[name] = cache
}

// Sweep runs one cleanup pass and returns the entries removed per cache.
func (s *CacheJanitorService) Sweep() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := make(map[string]int, len(s.caches))
	for name, cache := range s.caches {
		n := cache.CleanupExpired()
		removed[name] = n
		if n > 0 {
			s.logger.Debug().Str("cache", name).Int("removed", n).Msg("Expired cache entries removed")
		}
	}
	return removed
}

// Serve implements suture.Service.
func (s *CacheJanitorService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.Sweep()
		}
	}
}

// String implements fmt.Stringer.
func (s *CacheJanitorService) String() string {
	return "cache-janitor"
}
