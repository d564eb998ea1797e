// Stitchboard - Crochet Community Notification Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stitchboard

package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/stitchboard/internal/logging"
	"github.com/tomtom215/stitchboard/internal/metrics"
	"github.com/tomtom215/stitchboard/internal/models"
	"github.com/tomtom215/stitchboard/internal/store"
	"github.com/tomtom215/stitchboard/internal/validation"
)

// Transport delivers a single notification request.
type Transport interface {
	Deliver(ctx context.Context, req models.NotificationRequest) error
}

// DirectTransport persists requests straight into the NotificationStore.
type DirectTransport struct {
	users         store.UserDirectory
	notifications store.NotificationStore
	now           func() time.Time
	logger        zerolog.Logger
}

// NewDirectTransport creates a DirectTransport.
func NewDirectTransport(logger *zerolog.Logger, users store.UserDirectory, notifications store.NotificationStore) *DirectTransport {
	return &DirectTransport{
		users:         users,
		notifications: notifications,
		now:           time.Now,
		logger:        logging.Component(logger, "direct_transport"),
	}
}

// Deliver validates the receiver, resolves the sender on a best-effort
// basis and stores an unread record. A request addressed to its own sender
// is skipped. Errors propagate to the caller.
func (t *DirectTransport) Deliver(ctx context.Context, req models.NotificationRequest) error {
	if req.IsSelfNotification() {
		metrics.RecordSuppressed(suppressSelfRequest)
		t.logger.Debug().
			Str("receiver_id", req.ReceiverID).
			Msg("Skipping notification addressed to its own sender")
		return nil
	}

	start := time.Now()
	err := t.deliver(ctx, req)

	reason := ""
	switch {
	case err == nil:
	case errors.Is(err, ErrNotFound):
		reason = "receiver_not_found"
	case errors.As(err, new(*validation.RequestValidationError)):
		reason = "invalid_request"
	default:
		reason = "store_error"
	}
	metrics.RecordDelivery(metrics.TransportDirect, string(req.Type), time.Since(start), reason)
	return err
}

func (t *DirectTransport) deliver(ctx context.Context, req models.NotificationRequest) error {
	if err := validation.ValidateStruct(req); err != nil {
		return fmt.Errorf("invalid notification request: %w", err)
	}
	ok, err := t.users.Exists(ctx, req.ReceiverID)
	if err != nil {
		return fmt.Errorf("check receiver %q: %w", req.ReceiverID, err)
	}
	if !ok {
		return fmt.Errorf("receiver %q: %w", req.ReceiverID, ErrNotFound)
	}

	rec := models.NewRecord(req)
	if req.SenderID != "" {
		if ok, err := t.users.Exists(ctx, req.SenderID); err != nil || !ok {
			t.logger.Debug().Err(err).
				Str("sender_id", req.SenderID).
				Msg("Sender not resolvable, storing notification without sender")
			rec.SenderID = ""
		}
	}
	rec.CreatedAt = t.now().UTC()

	stored, err := t.notifications.Insert(ctx, rec)
	if err != nil {
		return fmt.Errorf("store notification: %w", err)
	}

	log := logging.Enrich(ctx, t.logger)
	log.Debug().
		Str("notification_id", stored.ID).
		Str("receiver_id", stored.ReceiverID).
		Str("type", string(stored.Type)).
		Msg("Notification stored")
	return nil
}

// BusPublisher publishes a request to a message bus subject. Publishing is
// fire-and-forget: a nil error means the broker accepted the message, not
// that a consumer stored it.
type BusPublisher interface {
	PublishNotification(ctx context.Context, subject string, req models.NotificationRequest) error
}

// ConnectionChecker is implemented by publishers that can report whether
// their connection is currently usable.
type ConnectionChecker interface {
	IsConnected() bool
}

// Subjects maps notification types to bus subjects.
type Subjects struct {
	// Comment is used for COMMENT notifications.
	Comment string

	// Prefix scopes every other type as <Prefix>.<category>.
	Prefix string
}

// For returns the subject for t.
func (s Subjects) For(t models.NotificationType) string {
	if t == models.NotificationTypeComment && s.Comment != "" {
		return s.Comment
	}
	return s.Prefix + "." + t.Category()
}

var errBusDisconnected = errors.New("bus connection is not established")

// BusTransport publishes requests to the bus and falls back to another
// transport, normally DirectTransport, whenever the publish fails. A request
// is never dropped silently: either the publish or the fallback succeeds,
// or the joined error is returned.
type BusTransport struct {
	publisher BusPublisher
	fallback  Transport
	subjects  Subjects
	logger    zerolog.Logger
}

// NewBusTransport creates a BusTransport.
func NewBusTransport(logger *zerolog.Logger, publisher BusPublisher, fallback Transport, subjects Subjects) *BusTransport {
	return &BusTransport{
		publisher: publisher,
		fallback:  fallback,
		subjects:  subjects,
		logger:    logging.Component(logger, "bus_transport"),
	}
}

// Deliver implements Transport.
func (t *BusTransport) Deliver(ctx context.Context, req models.NotificationRequest) error {
	subject := t.subjects.For(req.Type)
	start := time.Now()

	err := t.publish(ctx, subject, req)
	if err == nil {
		metrics.RecordDelivery(metrics.TransportBus, string(req.Type), time.Since(start), "")
		return nil
	}

	terr := &TransportError{Subject: subject, Err: err}
	metrics.RecordDelivery(metrics.TransportBus, string(req.Type), time.Since(start), "publish_failed")
	metrics.RecordBusFallback()
	log := logging.Enrich(ctx, t.logger)
	log.Warn().Err(terr).
		Str("subject", subject).
		Str("receiver_id", req.ReceiverID).
		Msg("Bus publish failed, falling back to direct delivery")

	if ferr := t.fallback.Deliver(ctx, req); ferr != nil {
		log.Error().Err(ferr).
			Str("subject", subject).
			Str("receiver_id", req.ReceiverID).
			Msg("Fallback delivery failed")
		return errors.Join(terr, ferr)
	}
	return nil
}

func (t *BusTransport) publish(ctx context.Context, subject string, req models.NotificationRequest) error {
	if cc, ok := t.publisher.(ConnectionChecker); ok && !cc.IsConnected() {
		return errBusDisconnected
	}
	return t.publisher.PublishNotification(ctx, subject, req)
}
