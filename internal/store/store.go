// Stitchboard - Crochet Community Notification Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stitchboard

package store

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/stitchboard/internal/models"
)

// ErrNotFound is returned when a user or notification record does not exist.
var ErrNotFound = errors.New("not found")

// NotificationStore is durable CRUD over notification records.
// Implementations must be safe for concurrent writers.
type NotificationStore interface {
	// Insert persists rec and returns the stored copy. An empty ID is
	// replaced with a UUIDv7 and a zero CreatedAt with the current time.
	Insert(ctx context.Context, rec *models.NotificationRecord) (*models.NotificationRecord, error)

	// FindByID returns ErrNotFound when id is unknown.
	FindByID(ctx context.Context, id string) (*models.NotificationRecord, error)

	// SetRead sets the read flag. Setting the current value again succeeds.
	SetRead(ctx context.Context, id string, read bool) error

	// SetAllRead marks every unread record of the receiver read and returns
	// how many changed.
	SetAllRead(ctx context.Context, receiverID string) (int64, error)

	// DeleteByID returns ErrNotFound when id is unknown.
	DeleteByID(ctx context.Context, id string) error

	// DeleteAllForReceiver returns the number of records removed.
	DeleteAllForReceiver(ctx context.Context, receiverID string) (int64, error)

	CountUnread(ctx context.Context, receiverID string) (int64, error)

	// ListForReceiver returns a zero-based page, newest first.
	ListForReceiver(ctx context.Context, receiverID string, page, size int) (models.Page[models.NotificationRecord], error)
}

// UserDirectory answers who exists and what they are called.
type UserDirectory interface {
	Exists(ctx context.Context, id string) (bool, error)

	// Get returns ErrNotFound when id is unknown.
	Get(ctx context.Context, id string) (models.UserInfo, error)

	// Users walks every known user ID once. The sequence is lazy and
	// stops at the first error, which is yielded with an empty ID.
	Users(ctx context.Context) iter.Seq2[string, error]
}

// UserWriter registers users in a directory.
type UserWriter interface {
	PutUser(ctx context.Context, user models.UserInfo) error
}

// userScanChunk is how many user IDs are read per round trip by Users.
const userScanChunk = 256

// prepareInsert returns a copy of rec with ID and CreatedAt filled in.
func prepareInsert(rec *models.NotificationRecord) (*models.NotificationRecord, error) {
	if rec == nil {
		return nil, errors.New("nil notification record")
	}
	if rec.ReceiverID == "" {
		return nil, errors.New("notification record has no receiver")
	}

	out := *rec
	if out.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return nil, fmt.Errorf("generate notification id: %w", err)
		}
		out.ID = id.String()
	}
	if out.CreatedAt.IsZero() {
		out.CreatedAt = time.Now().UTC()
	}
	return &out, nil
}
