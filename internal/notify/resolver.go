// Stitchboard - Crochet Community Notification Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stitchboard

package notify

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/tomtom215/stitchboard/internal/logging"
	"github.com/tomtom215/stitchboard/internal/metrics"
	"github.com/tomtom215/stitchboard/internal/models"
	"github.com/tomtom215/stitchboard/internal/store"
)

// Suppression reasons recorded in metrics.
const (
	suppressSelfOwner   = "self_owner"
	suppressSelfMention = "self_mention"
	suppressSelfRequest = "self_request"
)

// Resolver turns domain events into notification requests.
//
// Comment rules:
//   - replies resolve against the root comment's content and owner
//   - the content owner is notified unless they wrote the comment
//   - a mentioned user is notified unless they wrote the comment
//
// The two paths are independent, so a comment yields zero, one or two
// requests.
type Resolver struct {
	users  store.UserDirectory
	logger zerolog.Logger
}

// NewResolver creates a Resolver backed by users.
func NewResolver(logger *zerolog.Logger, users store.UserDirectory) *Resolver {
	return &Resolver{
		users:  users,
		logger: logging.Component(logger, "resolver"),
	}
}

func (r *Resolver) lookup(ctx context.Context, role, id string) (models.UserInfo, error) {
	user, err := r.users.Get(ctx, id)
	if err != nil {
		return models.UserInfo{}, fmt.Errorf("resolve %s %q: %w", role, id, err)
	}
	return user, nil
}

// ResolveOwner returns the content-owner request for c, or nil when the
// owner wrote the comment.
func (r *Resolver) ResolveOwner(ctx context.Context, c *models.CommentSnapshot) (*models.NotificationRequest, error) {
	target := c.Root().Target
	if target.OwnerID == c.AuthorID {
		metrics.RecordSuppressed(suppressSelfOwner)
		return nil, nil
	}

	if _, err := r.lookup(ctx, "content owner", target.OwnerID); err != nil {
		return nil, err
	}
	commenter, err := r.lookup(ctx, "commenter", c.AuthorID)
	if err != nil {
		return nil, err
	}

	req := ownerCommentRequest(commenter, target)
	return &req, nil
}

// ResolveMention returns the mention request for c, or nil when nobody (or
// only the author) is mentioned.
func (r *Resolver) ResolveMention(ctx context.Context, c *models.CommentSnapshot) (*models.NotificationRequest, error) {
	if c.MentionedUserID == "" {
		return nil, nil
	}
	if c.MentionedUserID == c.AuthorID {
		metrics.RecordSuppressed(suppressSelfMention)
		return nil, nil
	}

	if _, err := r.lookup(ctx, "mentioned user", c.MentionedUserID); err != nil {
		return nil, err
	}
	commenter, err := r.lookup(ctx, "commenter", c.AuthorID)
	if err != nil {
		return nil, err
	}

	req := mentionRequest(commenter, c.MentionedUserID, c.Root().Target)
	return &req, nil
}

// ResolveComment resolves both paths. It is all or nothing: if either
// lookup fails no request is returned.
func (r *Resolver) ResolveComment(ctx context.Context, c *models.CommentSnapshot) ([]models.NotificationRequest, error) {
	owner, err := r.ResolveOwner(ctx, c)
	if err != nil {
		return nil, err
	}
	mention, err := r.ResolveMention(ctx, c)
	if err != nil {
		return nil, err
	}

	var reqs []models.NotificationRequest
	if owner != nil {
		reqs = append(reqs, *owner)
	}
	if mention != nil {
		reqs = append(reqs, *mention)
	}
	return reqs, nil
}

// Broadcast is a resolved NewContentPublished event: the creator and a
// single-use lazy sequence of every other user.
type Broadcast struct {
	Event   models.NewContentPublished
	Creator models.UserInfo

	users    store.UserDirectory
	ctx      context.Context
	consumed atomic.Bool

	mu  sync.Mutex
	err error
}

// ResolveBroadcast looks up the creator and prepares the recipient sequence.
// Nothing is read from the directory until Recipients is iterated.
func (r *Resolver) ResolveBroadcast(ctx context.Context, evt models.NewContentPublished) (*Broadcast, error) {
	creator, err := r.lookup(ctx, "creator", evt.CreatorID)
	if err != nil {
		return nil, err
	}
	return &Broadcast{
		Event:   evt,
		Creator: creator,
		users:   r.users,
		ctx:     ctx,
	}, nil
}

// Recipients yields every known user except the creator. It can be ranged
// over once; later iterations yield nothing. A directory error ends the
// sequence early and is reported by Err.
func (b *Broadcast) Recipients() iter.Seq[string] {
	return func(yield func(string) bool) {
		if !b.consumed.CompareAndSwap(false, true) {
			return
		}
		for id, err := range b.users.Users(b.ctx) {
			if err != nil {
				b.setErr(err)
				return
			}
			if id == b.Event.CreatorID {
				continue
			}
			if !yield(id) {
				return
			}
		}
	}
}

// Request builds the notification for one recipient.
func (b *Broadcast) Request(receiverID string) models.NotificationRequest {
	return publishedRequest(b.Creator, b.Event, receiverID)
}

// Err returns the error that ended recipient iteration early, if any.
func (b *Broadcast) Err() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.err
}

func (b *Broadcast) setErr(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.err = errors.Join(b.err, fmt.Errorf("list broadcast recipients: %w", err))
}
