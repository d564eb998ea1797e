// Stitchboard - Crochet Community Notification Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stitchboard

package notify

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/tomtom215/stitchboard/internal/logging"
	"github.com/tomtom215/stitchboard/internal/metrics"
	"github.com/tomtom215/stitchboard/internal/models"
	"github.com/tomtom215/stitchboard/internal/store"
)

// Inbox is the read side of notifications: listing, read state and removal.
// The receiver is always passed explicitly.
type Inbox struct {
	users         store.UserDirectory
	notifications store.NotificationStore
	logger        zerolog.Logger
}

// NewInbox creates an Inbox.
func NewInbox(logger *zerolog.Logger, users store.UserDirectory, notifications store.NotificationStore) *Inbox {
	return &Inbox{
		users:         users,
		notifications: notifications,
		logger:        logging.Component(logger, "inbox"),
	}
}

func (i *Inbox) requireReceiver(ctx context.Context, receiverID string) error {
	ok, err := i.users.Exists(ctx, receiverID)
	if err != nil {
		return fmt.Errorf("check receiver %q: %w", receiverID, err)
	}
	if !ok {
		return fmt.Errorf("receiver %q: %w", receiverID, ErrNotFound)
	}
	return nil
}

// List returns one page of the receiver's notifications, newest first.
func (i *Inbox) List(ctx context.Context, receiverID string, page, size int) (models.Page[models.NotificationRecord], error) {
	result, err := i.list(ctx, receiverID, page, size)
	metrics.RecordInboxOperation("list", err)
	return result, err
}

func (i *Inbox) list(ctx context.Context, receiverID string, page, size int) (models.Page[models.NotificationRecord], error) {
	if err := i.requireReceiver(ctx, receiverID); err != nil {
		return models.Page[models.NotificationRecord]{}, err
	}
	page, size = models.NormalizePaging(page, size)
	return i.notifications.ListForReceiver(ctx, receiverID, page, size)
}

// MarkAsRead marks one notification read. Marking an already read
// notification succeeds without change.
func (i *Inbox) MarkAsRead(ctx context.Context, id string) error {
	err := i.notifications.SetRead(ctx, id, true)
	if err != nil {
		err = fmt.Errorf("mark notification %q read: %w", id, err)
	}
	metrics.RecordInboxOperation("mark_read", err)
	return err
}

// MarkAllAsRead marks every unread notification of the receiver read and
// returns how many changed.
func (i *Inbox) MarkAllAsRead(ctx context.Context, receiverID string) (int64, error) {
	n, err := i.markAllAsRead(ctx, receiverID)
	metrics.RecordInboxOperation("mark_all_read", err)
	if err == nil && n > 0 {
		i.logger.Debug().Str("receiver_id", receiverID).Int64("count", n).Msg("Marked notifications read")
	}
	return n, err
}

func (i *Inbox) markAllAsRead(ctx context.Context, receiverID string) (int64, error) {
	if err := i.requireReceiver(ctx, receiverID); err != nil {
		return 0, err
	}
	return i.notifications.SetAllRead(ctx, receiverID)
}

// CountUnread returns the receiver's unread count.
func (i *Inbox) CountUnread(ctx context.Context, receiverID string) (int64, error) {
	n, err := i.countUnread(ctx, receiverID)
	metrics.RecordInboxOperation("count_unread", err)
	return n, err
}

func (i *Inbox) countUnread(ctx context.Context, receiverID string) (int64, error) {
	if err := i.requireReceiver(ctx, receiverID); err != nil {
		return 0, err
	}
	return i.notifications.CountUnread(ctx, receiverID)
}

// Delete removes one notification.
func (i *Inbox) Delete(ctx context.Context, id string) error {
	err := i.notifications.DeleteByID(ctx, id)
	if err != nil {
		err = fmt.Errorf("delete notification %q: %w", id, err)
	}
	metrics.RecordInboxOperation("delete", err)
	return err
}

// DeleteAllForReceiver removes every notification of the receiver.
func (i *Inbox) DeleteAllForReceiver(ctx context.Context, receiverID string) (int64, error) {
	n, err := i.notifications.DeleteAllForReceiver(ctx, receiverID)
	metrics.RecordInboxOperation("delete_all", err)
	if err == nil {
		i.logger.Info().Str("receiver_id", receiverID).Int64("count", n).Msg("Deleted all notifications for receiver")
	}
	return n, err
}
