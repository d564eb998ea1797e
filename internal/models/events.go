// Stitchboard - Crochet Community Notification Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stitchboard

package models

// EventKind identifies a DomainEvent variant.
type EventKind string

const (
	EventCommentCreated      EventKind = "comment_created"
	EventNewContentPublished EventKind = "new_content_published"
)

// DomainEvent is a closed set of events raised by business actions.
// Only types in this package can implement it.
type DomainEvent interface {
	Kind() EventKind
	domainEvent()
}

// ContentKind is the kind of content a comment or publication refers to.
type ContentKind string

const (
	ContentBlogPost    ContentKind = "BLOG_POST"
	ContentFreePattern ContentKind = "FREE_PATTERN"
	ContentProduct     ContentKind = "PRODUCT"
)

// Path returns the site-relative link for content of this kind.
func (k ContentKind) Path(id string) string {
	switch k {
	case ContentBlogPost:
		return "/blogs/" + id
	case ContentProduct:
		return "/shop/" + id
	default:
		return "/free-patterns/" + id
	}
}

// Noun is the word used for this kind in notification messages.
func (k ContentKind) Noun() string {
	switch k {
	case ContentBlogPost:
		return "post"
	case ContentProduct:
		return "product"
	default:
		return "chart"
	}
}

// PublishedType is the notification type emitted when content of this kind
// is published.
func (k ContentKind) PublishedType() NotificationType {
	switch k {
	case ContentBlogPost:
		return NotificationTypeNewBlog
	case ContentProduct:
		return NotificationTypeNewProduct
	default:
		return NotificationTypeNewPattern
	}
}

// ContentRef points at a piece of content and its owner.
type ContentRef struct {
	Kind    ContentKind `json:"kind"`
	ID      string      `json:"id"`
	OwnerID string      `json:"ownerId"`
}

// CommentSnapshot is the state of a comment at the time it was created.
// Parent is nil for root comments.
type CommentSnapshot struct {
	ID              string           `json:"id"`
	AuthorID        string           `json:"authorId"`
	Target          ContentRef       `json:"target"`
	Parent          *CommentSnapshot `json:"parent,omitempty"`
	MentionedUserID string           `json:"mentionedUserId,omitempty"`
}

// Root returns the top-level comment of the thread c belongs to.
func (c *CommentSnapshot) Root() *CommentSnapshot {
	root := c
	for root.Parent != nil {
		root = root.Parent
	}
	return root
}

// CommentCreated is raised after a comment or reply has been stored.
type CommentCreated struct {
	Comment CommentSnapshot `json:"comment"`
}

// Kind implements DomainEvent.
func (CommentCreated) Kind() EventKind { return EventCommentCreated }
func (CommentCreated) domainEvent()    {}

// NewContentPublished is raised when a user publishes content that every
// other user should hear about.
type NewContentPublished struct {
	CreatorID   string      `json:"creatorId"`
	ContentID   string      `json:"contentId"`
	ContentName string      `json:"contentName"`
	ContentKind ContentKind `json:"contentKind"`
}

// Kind implements DomainEvent.
func (NewContentPublished) Kind() EventKind { return EventNewContentPublished }
func (NewContentPublished) domainEvent()    {}
