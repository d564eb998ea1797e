// Stitchboard - Crochet Community Notification Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stitchboard

package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/tomtom215/stitchboard/internal/models"
)

func newTestInbox(t *testing.T, deliveries map[string]int) (*Inbox, map[string][]string) {
	t.Helper()

	s := newTestStore(t, "u1", "u2", "u3")
	ctx := context.Background()
	ids := make(map[string][]string)
	for receiver, n := range deliveries {
		for range n {
			rec, err := s.Insert(ctx, models.NewRecord(commentRequest(receiver, "u1")))
			if err != nil {
				t.Fatalf("Insert failed: %v", err)
			}
			ids[receiver] = append(ids[receiver], rec.ID)
		}
	}
	return NewInbox(nopLogger(), s, s), ids
}

func TestInbox_MarkAsReadIsIdempotent(t *testing.T) {
	t.Parallel()

	inbox, ids := newTestInbox(t, map[string]int{"u2": 2})
	ctx := context.Background()
	id := ids["u2"][0]

	for i := range 2 {
		if err := inbox.MarkAsRead(ctx, id); err != nil {
			t.Fatalf("MarkAsRead #%d failed: %v", i+1, err)
		}
		n, err := inbox.CountUnread(ctx, "u2")
		if err != nil {
			t.Fatalf("CountUnread failed: %v", err)
		}
		if n != 1 {
			t.Errorf("After MarkAsRead #%d expected 1 unread, got %d", i+1, n)
		}
	}
}

func TestInbox_MarkAsReadUnknown(t *testing.T) {
	t.Parallel()

	inbox, _ := newTestInbox(t, nil)
	if err := inbox.MarkAsRead(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestInbox_UnknownReceiver(t *testing.T) {
	t.Parallel()

	inbox, _ := newTestInbox(t, nil)
	ctx := context.Background()

	if _, err := inbox.CountUnread(ctx, "ghost"); !errors.Is(err, ErrNotFound) {
		t.Errorf("CountUnread: expected ErrNotFound, got %v", err)
	}
	if _, err := inbox.List(ctx, "ghost", 0, 10); !errors.Is(err, ErrNotFound) {
		t.Errorf("List: expected ErrNotFound, got %v", err)
	}
	if _, err := inbox.MarkAllAsRead(ctx, "ghost"); !errors.Is(err, ErrNotFound) {
		t.Errorf("MarkAllAsRead: expected ErrNotFound, got %v", err)
	}
}

func TestInbox_CountUnreadKnownReceiverWithNothing(t *testing.T) {
	t.Parallel()

	inbox, _ := newTestInbox(t, nil)
	n, err := inbox.CountUnread(context.Background(), "u3")
	if err != nil {
		t.Fatalf("CountUnread failed: %v", err)
	}
	if n != 0 {
		t.Errorf("Expected 0 unread, got %d", n)
	}
}

func TestInbox_ListPaging(t *testing.T) {
	t.Parallel()

	inbox, _ := newTestInbox(t, map[string]int{"u2": 25, "u3": 3})
	ctx := context.Background()

	tests := []struct {
		page, size   int
		wantContents int
		wantPageSize int
		wantLast     bool
	}{
		{0, 10, 10, 10, false},
		{2, 10, 5, 10, true},
		{3, 10, 0, 10, true},
		{-1, 0, 10, 10, false},
		{0, 1000, 25, 100, true},
	}

	for _, tt := range tests {
		page, err := inbox.List(ctx, "u2", tt.page, tt.size)
		if err != nil {
			t.Fatalf("List(%d, %d) failed: %v", tt.page, tt.size, err)
		}
		if len(page.Contents) != tt.wantContents {
			t.Errorf("List(%d, %d): expected %d items, got %d", tt.page, tt.size, tt.wantContents, len(page.Contents))
		}
		if page.PageSize != tt.wantPageSize {
			t.Errorf("List(%d, %d): expected page size %d, got %d", tt.page, tt.size, tt.wantPageSize, page.PageSize)
		}
		if page.TotalElements != 25 {
			t.Errorf("List(%d, %d): expected 25 total, got %d", tt.page, tt.size, page.TotalElements)
		}
		if page.Last != tt.wantLast {
			t.Errorf("List(%d, %d): expected last=%v, got %v", tt.page, tt.size, tt.wantLast, page.Last)
		}
		for _, rec := range page.Contents {
			if rec.ReceiverID != "u2" {
				t.Errorf("List returned another receiver's notification: %s", rec.ReceiverID)
			}
		}
	}
}

func TestInbox_MarkAllAsRead(t *testing.T) {
	t.Parallel()

	inbox, ids := newTestInbox(t, map[string]int{"u2": 4, "u3": 2})
	ctx := context.Background()

	if err := inbox.MarkAsRead(ctx, ids["u2"][0]); err != nil {
		t.Fatalf("MarkAsRead failed: %v", err)
	}
	n, err := inbox.MarkAllAsRead(ctx, "u2")
	if err != nil {
		t.Fatalf("MarkAllAsRead failed: %v", err)
	}
	if n != 3 {
		t.Errorf("Expected 3 changed, got %d", n)
	}

	if unread, _ := inbox.CountUnread(ctx, "u2"); unread != 0 {
		t.Errorf("Expected 0 unread for u2, got %d", unread)
	}
	if unread, _ := inbox.CountUnread(ctx, "u3"); unread != 2 {
		t.Errorf("Expected u3 untouched with 2 unread, got %d", unread)
	}

	n, err = inbox.MarkAllAsRead(ctx, "u2")
	if err != nil || n != 0 {
		t.Errorf("Expected second MarkAllAsRead to change nothing, got %d, %v", n, err)
	}
}

func TestInbox_Delete(t *testing.T) {
	t.Parallel()

	inbox, ids := newTestInbox(t, map[string]int{"u2": 2})
	ctx := context.Background()

	if err := inbox.Delete(ctx, ids["u2"][0]); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := inbox.Delete(ctx, ids["u2"][0]); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound on second delete, got %v", err)
	}
	if unread, _ := inbox.CountUnread(ctx, "u2"); unread != 1 {
		t.Errorf("Expected 1 remaining unread, got %d", unread)
	}
}

func TestInbox_DeleteAllForReceiver(t *testing.T) {
	t.Parallel()

	inbox, _ := newTestInbox(t, map[string]int{"u2": 3, "u3": 1})
	ctx := context.Background()

	n, err := inbox.DeleteAllForReceiver(ctx, "u2")
	if err != nil {
		t.Fatalf("DeleteAllForReceiver failed: %v", err)
	}
	if n != 3 {
		t.Errorf("Expected 3 removed, got %d", n)
	}

	page, err := inbox.List(ctx, "u2", 0, 10)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if page.TotalElements != 0 {
		t.Errorf("Expected empty inbox, got %d", page.TotalElements)
	}
	if unread, _ := inbox.CountUnread(ctx, "u3"); unread != 1 {
		t.Errorf("Expected u3 untouched, got %d", unread)
	}
}

func TestInbox_DeliveredThroughDirectTransport(t *testing.T) {
	t.Parallel()

	s := newTestStore(t, "u1", "u2")
	ctx := context.Background()
	direct := NewDirectTransport(nopLogger(), s, s)
	inbox := NewInbox(nopLogger(), s, s)

	if err := direct.Deliver(ctx, commentRequest("u2", "u1")); err != nil {
		t.Fatalf("Deliver failed: %v", err)
	}
	page, err := inbox.List(ctx, "u2", 0, 10)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(page.Contents) != 1 {
		t.Fatalf("Expected 1 notification, got %d", len(page.Contents))
	}
	rec := page.Contents[0]
	if rec.Read || rec.SenderID != "u1" || rec.CreatedAt.IsZero() {
		t.Errorf("Unexpected stored record %+v", rec)
	}
}
