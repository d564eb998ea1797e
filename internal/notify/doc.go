// Stitchboard - Crochet Community Notification Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stitchboard

/*
Package notify turns domain events into persisted notifications.

# Flow

	business action
	    -> Listener.Publish(ctx, evt)
	        CommentCreated:      Resolver.ResolveOwner / ResolveMention -> Transport.Deliver
	        NewContentPublished: Resolver.ResolveBroadcast -> Dispatcher.FanOut -> DirectTransport.Deliver

# Transports

DirectTransport checks the receiver exists, drops an unknown sender and
inserts an unread record. BusTransport publishes to <prefix>.<category>
(comments use their own configurable subject) and falls back to its
fallback transport when the publisher is disconnected or the publish fails.
The bus consumer in package eventprocessor hands received requests to a
DirectTransport.

# Fan-out

Dispatcher reads the recipient sequence once, cuts it into batches of
BatchSize and runs one goroutine per batch (optionally capped). It waits for
all batches or Timeout, whichever is first. Batches left running at the
deadline finish in the background.

# Errors

Notification failures never surface to the business caller through
Publish. Handle returns them joined for callers that want to inspect them.
ErrNotFound is shared with package store.
*/
package notify
