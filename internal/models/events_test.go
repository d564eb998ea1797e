// Stitchboard - Crochet Community Notification Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stitchboard

package models

import "testing"

func TestCommentSnapshot_Root(t *testing.T) {
	t.Parallel()

	root := &CommentSnapshot{ID: "c1", AuthorID: "u2", Target: ContentRef{Kind: ContentFreePattern, ID: "p1", OwnerID: "u9"}}
	reply := &CommentSnapshot{ID: "c2", AuthorID: "u3", Target: root.Target, Parent: root}
	replyToReply := &CommentSnapshot{ID: "c3", AuthorID: "u1", Target: ContentRef{Kind: ContentBlogPost, ID: "stale"}, Parent: reply}

	if got := root.Root(); got != root {
		t.Errorf("Expected root comment to be its own root, got %s", got.ID)
	}
	if got := reply.Root(); got != root {
		t.Errorf("Expected reply root c1, got %s", got.ID)
	}
	if got := replyToReply.Root(); got != root {
		t.Errorf("Expected reply-to-reply root c1, got %s", got.ID)
	}
}

func TestContentKind(t *testing.T) {
	t.Parallel()

	tests := []struct {
		kind    ContentKind
		path    string
		noun    string
		pubType NotificationType
	}{
		{ContentBlogPost, "/blogs/b1", "post", NotificationTypeNewBlog},
		{ContentFreePattern, "/free-patterns/b1", "chart", NotificationTypeNewPattern},
		{ContentProduct, "/shop/b1", "product", NotificationTypeNewProduct},
	}

	for _, tt := range tests {
		if got := tt.kind.Path("b1"); got != tt.path {
			t.Errorf("%s: expected path %s, got %s", tt.kind, tt.path, got)
		}
		if got := tt.kind.Noun(); got != tt.noun {
			t.Errorf("%s: expected noun %s, got %s", tt.kind, tt.noun, got)
		}
		if got := tt.kind.PublishedType(); got != tt.pubType {
			t.Errorf("%s: expected type %s, got %s", tt.kind, tt.pubType, got)
		}
	}
}

func TestDomainEvent_Kinds(t *testing.T) {
	t.Parallel()

	events := map[EventKind]DomainEvent{
		EventCommentCreated:      CommentCreated{},
		EventNewContentPublished: NewContentPublished{},
	}
	for want, evt := range events {
		if evt.Kind() != want {
			t.Errorf("Expected kind %s, got %s", want, evt.Kind())
		}
	}
}
