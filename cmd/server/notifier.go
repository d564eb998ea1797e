// Stitchboard - Crochet Community Notification Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stitchboard

package main

import (
	"github.com/rs/zerolog"

	"github.com/tomtom215/stitchboard/internal/config"
	"github.com/tomtom215/stitchboard/internal/notify"
	"github.com/tomtom215/stitchboard/internal/store"
)

// Notifier is the in-process notification subsystem: the listener business
// code publishes domain events to, and the inbox it reads back from.
type Notifier struct {
	Listener *notify.Listener
	Inbox    *notify.Inbox
}

// BuildNotifier wires resolver, transports and dispatcher. When publisher
// is nil comment notifications are written directly; otherwise they go
// through the bus and fall back to direct on failure. Broadcasts always
// use direct delivery from the fan-out batches.
func BuildNotifier(
	logger *zerolog.Logger,
	cfg *config.NotifyConfig,
	users store.UserDirectory,
	notifications store.NotificationStore,
	direct *notify.DirectTransport,
	publisher notify.BusPublisher,
) *Notifier {
	var transport notify.Transport = direct
	if publisher != nil {
		transport = notify.NewBusTransport(logger, publisher, direct, notify.Subjects{
			Comment: cfg.CommentSubject,
			Prefix:  cfg.SubjectPrefix,
		})
	}

	dispatcher := notify.NewDispatcher(logger, notify.FanOutConfig{
		BatchSize:            cfg.BatchSize,
		Timeout:              cfg.FanOutTimeout,
		MaxConcurrentBatches: cfg.MaxConcurrentBatches,
		RateLimit:            cfg.RateLimit,
	})

	return &Notifier{
		Listener: notify.NewListener(logger, notify.ListenerDeps{
			Resolver:   notify.NewResolver(logger, users),
			Transport:  transport,
			Direct:     direct,
			Dispatcher: dispatcher,
		}),
		Inbox: notify.NewInbox(logger, users, notifications),
	}
}
