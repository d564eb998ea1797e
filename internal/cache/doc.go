// Stitchboard - Crochet Community Notification Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stitchboard

/*
Package cache provides a thread-safe, generic LRU cache with TTL support.

# Use Cases

  - Bus consumer: remembers processed event IDs so JetStream redeliveries
    that slip past the broker's duplicate window do not create a second
    notification record (LRU[struct{}] with Seen).
  - User directory: caches UserInfo lookups while a broadcast fan-out
    resolves the same creator for every recipient.

# Usage Example

	seen := cache.NewLRU[struct{}](10000, 10*time.Minute)
	if seen.Seen(eventID) {
	    return nil // already processed
	}

All operations are O(1). Expired entries are removed lazily on access, or in
bulk via CleanupExpired.
*/
package cache
