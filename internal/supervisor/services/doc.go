// Stitchboard - Crochet Community Notification Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stitchboard

/*
Package services adapts Stitchboard components to suture.Service.

Each wrapper translates a component lifecycle into Serve(ctx) error:

  - HTTPServerService: ListenAndServe/Shutdown for the health and metrics
    listener, with a drain timeout.
  - BusConsumerService: builds a fresh router per run through a factory,
    since a closed watermill router cannot be restarted.
  - CacheJanitorService: periodic CleanupExpired over registered LRU caches.

Return values drive the supervisor:

	nil         stopped cleanly, not restarted
	error       crashed, restarted with backoff
	ctx.Err()   shutdown requested

Every service implements fmt.Stringer so supervisor events name it.
*/
package services
