// Stitchboard - Crochet Community Notification Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stitchboard

/*
Package store holds the persistence collaborators of the notification core.

# Interfaces

  - NotificationStore: CRUD over NotificationRecord, safe for concurrent writers
  - UserDirectory: existence and display-name lookups plus a lazy walk of all users
  - UserWriter: registering users (seeding, tests)

Misses are reported as ErrNotFound on every backend.

# Backends

BadgerStore is the default embedded backend. Keys:

	notif:{id}                      JSON NotificationRecord
	notif_recv:{receiver}:{id}      receiver index (reverse order = newest first)
	notif_unread:{receiver}:{id}    unread index
	user:{id}                       JSON UserInfo

PostgresStore uses a pgx pool with the schema created by EnsureSchema.

# Decorators

UnreadCountCache caches CountUnread in Redis and drops the cached value on
every write that can change it. CachedDirectory keeps resolved users in an
in-process LRU so broadcasts do not repeat the creator lookup.
*/
package store
