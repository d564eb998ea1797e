// Stitchboard - Crochet Community Notification Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stitchboard

package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/tomtom215/stitchboard/internal/logging"
	"github.com/tomtom215/stitchboard/internal/models"
)

// NotificationPublisher is what business code calls after an action that
// may notify someone. It never fails the caller: delivery problems are
// logged.
type NotificationPublisher interface {
	Publish(ctx context.Context, evt models.DomainEvent)
}

// Handler reacts to one kind of domain event.
type Handler func(ctx context.Context, evt models.DomainEvent) error

// Listener routes domain events to handlers through an explicit registry.
// The default registry wires CommentCreated to the resolver and transport
// and NewContentPublished to the fan-out dispatcher.
type Listener struct {
	resolver   *Resolver
	transport  Transport
	direct     Transport
	dispatcher *Dispatcher
	logger     zerolog.Logger

	mu       sync.RWMutex
	handlers map[models.EventKind][]Handler
}

// ListenerDeps are the collaborators of a Listener.
type ListenerDeps struct {
	Resolver *Resolver

	// Transport delivers comment notifications: a BusTransport when the bus
	// is enabled, otherwise the DirectTransport.
	Transport Transport

	// Direct delivers broadcast notifications.
	Direct Transport

	Dispatcher *Dispatcher
}

// NewListener creates a Listener with the default handlers registered.
func NewListener(logger *zerolog.Logger, deps ListenerDeps) *Listener {
	l := &Listener{
		resolver:   deps.Resolver,
		transport:  deps.Transport,
		direct:     deps.Direct,
		dispatcher: deps.Dispatcher,
		logger:     logging.Component(logger, "listener"),
		handlers:   make(map[models.EventKind][]Handler),
	}
	l.Register(models.EventCommentCreated, l.handleCommentCreated)
	l.Register(models.EventNewContentPublished, l.handleNewContentPublished)
	return l
}

// Register adds h to the handlers for kind. Handlers run in registration
// order.
func (l *Listener) Register(kind models.EventKind, h Handler) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.handlers[kind] = append(l.handlers[kind], h)
}

// Handle runs every handler registered for evt and returns their joined
// errors. A failing handler does not stop the others.
func (l *Listener) Handle(ctx context.Context, evt models.DomainEvent) error {
	l.mu.RLock()
	handlers := append([]Handler(nil), l.handlers[evt.Kind()]...)
	l.mu.RUnlock()

	if len(handlers) == 0 {
		l.logger.Debug().Str("event", string(evt.Kind())).Msg("No handlers registered for event")
		return nil
	}

	var errs []error
	for _, h := range handlers {
		if err := h(ctx, evt); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Publish implements NotificationPublisher.
func (l *Listener) Publish(ctx context.Context, evt models.DomainEvent) {
	if err := l.Handle(ctx, evt); err != nil {
		log := logging.Enrich(ctx, l.logger)
		log.Error().Err(err).
			Str("event", string(evt.Kind())).
			Msg("Notification delivery failed")
	}
}

// handleCommentCreated resolves and delivers the owner and mention paths
// independently, so a failure on one never blocks the other.
func (l *Listener) handleCommentCreated(ctx context.Context, evt models.DomainEvent) error {
	e, ok := evt.(models.CommentCreated)
	if !ok {
		return fmt.Errorf("unexpected event type %T for %s", evt, evt.Kind())
	}
	comment := &e.Comment

	paths := []struct {
		name    string
		resolve func(context.Context, *models.CommentSnapshot) (*models.NotificationRequest, error)
	}{
		{"owner", l.resolver.ResolveOwner},
		{"mention", l.resolver.ResolveMention},
	}

	var errs []error
	for _, p := range paths {
		req, err := p.resolve(ctx, comment)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s notification for comment %s: %w", p.name, comment.ID, err))
			continue
		}
		if req == nil {
			continue
		}
		if err := l.transport.Deliver(ctx, *req); err != nil {
			errs = append(errs, fmt.Errorf("deliver %s notification for comment %s: %w", p.name, comment.ID, err))
		}
	}
	return errors.Join(errs...)
}

// handleNewContentPublished broadcasts to every other user. The fan-out
// outlives the caller's request, so it runs on a context that is not
// cancelled with it.
func (l *Listener) handleNewContentPublished(ctx context.Context, evt models.DomainEvent) error {
	e, ok := evt.(models.NewContentPublished)
	if !ok {
		return fmt.Errorf("unexpected event type %T for %s", evt, evt.Kind())
	}

	bctx := context.WithoutCancel(ctx)
	b, err := l.resolver.ResolveBroadcast(bctx, e)
	if err != nil {
		return fmt.Errorf("broadcast %s %s: %w", e.ContentKind, e.ContentID, err)
	}

	result := l.dispatcher.FanOut(bctx, b.Recipients(), func(ctx context.Context, recipientID string) error {
		return l.direct.Deliver(ctx, b.Request(recipientID))
	})

	if !result.TimedOut {
		if err := b.Err(); err != nil {
			return fmt.Errorf("broadcast %s %s: %w", e.ContentKind, e.ContentID, err)
		}
	}
	return nil
}
