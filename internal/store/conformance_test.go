// Stitchboard - Crochet Community Notification Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stitchboard

package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/stitchboard/internal/models"
)

// backend is what every store implementation under test provides.
type backend interface {
	NotificationStore
	UserDirectory
	UserWriter
}

func seedUsers(t *testing.T, b backend, ids ...string) {
	t.Helper()
	for _, id := range ids {
		if err := b.PutUser(context.Background(), models.UserInfo{ID: id, DisplayName: "User " + id}); err != nil {
			t.Fatalf("PutUser(%s) failed: %v", id, err)
		}
	}
}

func newTestRecord(receiver, sender string) *models.NotificationRecord {
	return models.NewRecord(models.NotificationRequest{
		Title:      "New comment",
		Message:    "Mai commented on your chart",
		Link:       "/free-patterns/p1",
		ReceiverID: receiver,
		SenderID:   sender,
		Type:       models.NotificationTypeComment,
	})
}

// runStoreConformance exercises the NotificationStore and UserDirectory
// contracts against b.
func runStoreConformance(t *testing.T, b backend) {
	ctx := context.Background()
	seedUsers(t, b, "u1", "u2", "u3")

	t.Run("insert assigns id and timestamp", func(t *testing.T) {
		before := time.Now().Add(-time.Second)
		rec, err := b.Insert(ctx, newTestRecord("u2", "u1"))
		if err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
		if rec.ID == "" {
			t.Error("Expected ID to be assigned")
		}
		if rec.CreatedAt.Before(before) {
			t.Errorf("Expected CreatedAt to be set to now, got %v", rec.CreatedAt)
		}
		if rec.Read {
			t.Error("Expected new record to be unread")
		}

		got, err := b.FindByID(ctx, rec.ID)
		if err != nil {
			t.Fatalf("FindByID failed: %v", err)
		}
		if got.ReceiverID != "u2" || got.SenderID != "u1" || got.Type != models.NotificationTypeComment {
			t.Errorf("Unexpected record: %+v", got)
		}
		if got.Link != "/free-patterns/p1" {
			t.Errorf("Expected link /free-patterns/p1, got %s", got.Link)
		}
	})

	t.Run("insert without sender", func(t *testing.T) {
		rec, err := b.Insert(ctx, newTestRecord("u3", ""))
		if err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
		got, err := b.FindByID(ctx, rec.ID)
		if err != nil {
			t.Fatalf("FindByID failed: %v", err)
		}
		if got.SenderID != "" {
			t.Errorf("Expected empty sender, got %s", got.SenderID)
		}
	})

	t.Run("find missing", func(t *testing.T) {
		_, err := b.FindByID(ctx, "does-not-exist")
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})

	t.Run("set read is idempotent", func(t *testing.T) {
		rec, err := b.Insert(ctx, newTestRecord("u1", "u2"))
		if err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
		for i := 0; i < 2; i++ {
			if err := b.SetRead(ctx, rec.ID, true); err != nil {
				t.Fatalf("SetRead #%d failed: %v", i+1, err)
			}
		}
		got, err := b.FindByID(ctx, rec.ID)
		if err != nil {
			t.Fatalf("FindByID failed: %v", err)
		}
		if !got.Read {
			t.Error("Expected record to be read")
		}
		if err := b.SetRead(ctx, "does-not-exist", true); !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})

	t.Run("count unread and mark all read", func(t *testing.T) {
		receiver := "u3"
		if _, err := b.DeleteAllForReceiver(ctx, receiver); err != nil {
			t.Fatalf("DeleteAllForReceiver failed: %v", err)
		}
		for i := 0; i < 3; i++ {
			if _, err := b.Insert(ctx, newTestRecord(receiver, "u1")); err != nil {
				t.Fatalf("Insert failed: %v", err)
			}
		}

		n, err := b.CountUnread(ctx, receiver)
		if err != nil {
			t.Fatalf("CountUnread failed: %v", err)
		}
		if n != 3 {
			t.Errorf("Expected 3 unread, got %d", n)
		}

		changed, err := b.SetAllRead(ctx, receiver)
		if err != nil {
			t.Fatalf("SetAllRead failed: %v", err)
		}
		if changed != 3 {
			t.Errorf("Expected 3 changed, got %d", changed)
		}

		n, err = b.CountUnread(ctx, receiver)
		if err != nil {
			t.Fatalf("CountUnread failed: %v", err)
		}
		if n != 0 {
			t.Errorf("Expected 0 unread, got %d", n)
		}
	})

	t.Run("list newest first with paging", func(t *testing.T) {
		receiver := "u2"
		if _, err := b.DeleteAllForReceiver(ctx, receiver); err != nil {
			t.Fatalf("DeleteAllForReceiver failed: %v", err)
		}
		var ids []string
		base := time.Now().UTC().Add(-time.Hour)
		for i := 0; i < 5; i++ {
			rec := newTestRecord(receiver, "u1")
			rec.Title = fmt.Sprintf("n%d", i)
			rec.CreatedAt = base.Add(time.Duration(i) * time.Minute)
			out, err := b.Insert(ctx, rec)
			if err != nil {
				t.Fatalf("Insert failed: %v", err)
			}
			ids = append(ids, out.ID)
		}

		page, err := b.ListForReceiver(ctx, receiver, 0, 2)
		if err != nil {
			t.Fatalf("ListForReceiver failed: %v", err)
		}
		if page.TotalElements != 5 || page.TotalPages != 3 || page.Last {
			t.Errorf("Unexpected page metadata: %+v", page)
		}
		if len(page.Contents) != 2 || page.Contents[0].ID != ids[4] || page.Contents[1].ID != ids[3] {
			t.Errorf("Expected newest first [%s %s], got %+v", ids[4], ids[3], page.Contents)
		}

		last, err := b.ListForReceiver(ctx, receiver, 2, 2)
		if err != nil {
			t.Fatalf("ListForReceiver failed: %v", err)
		}
		if !last.Last || len(last.Contents) != 1 || last.Contents[0].ID != ids[0] {
			t.Errorf("Expected last page with oldest record, got %+v", last)
		}
	})

	t.Run("delete", func(t *testing.T) {
		rec, err := b.Insert(ctx, newTestRecord("u1", "u3"))
		if err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
		if err := b.DeleteByID(ctx, rec.ID); err != nil {
			t.Fatalf("DeleteByID failed: %v", err)
		}
		if _, err := b.FindByID(ctx, rec.ID); !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected ErrNotFound after delete, got %v", err)
		}
		if err := b.DeleteByID(ctx, rec.ID); !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected ErrNotFound on second delete, got %v", err)
		}
	})

	t.Run("delete all for receiver", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			if _, err := b.Insert(ctx, newTestRecord("u1", "u2")); err != nil {
				t.Fatalf("Insert failed: %v", err)
			}
		}
		if _, err := b.DeleteAllForReceiver(ctx, "u1"); err != nil {
			t.Fatalf("DeleteAllForReceiver failed: %v", err)
		}
		page, err := b.ListForReceiver(ctx, "u1", 0, 10)
		if err != nil {
			t.Fatalf("ListForReceiver failed: %v", err)
		}
		if page.TotalElements != 0 || len(page.Contents) != 0 {
			t.Errorf("Expected no records, got %d", page.TotalElements)
		}
		n, err := b.CountUnread(ctx, "u1")
		if err != nil || n != 0 {
			t.Errorf("Expected 0 unread, got %d (err %v)", n, err)
		}
	})

	t.Run("concurrent inserts", func(t *testing.T) {
		const writers = 16
		if _, err := b.DeleteAllForReceiver(ctx, "u3"); err != nil {
			t.Fatalf("DeleteAllForReceiver failed: %v", err)
		}

		var wg sync.WaitGroup
		errs := make(chan error, writers)
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := b.Insert(ctx, newTestRecord("u3", "u1")); err != nil {
					errs <- err
				}
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			t.Errorf("Concurrent insert failed: %v", err)
		}

		n, err := b.CountUnread(ctx, "u3")
		if err != nil {
			t.Fatalf("CountUnread failed: %v", err)
		}
		if n != writers {
			t.Errorf("Expected %d unread, got %d", writers, n)
		}
	})

	t.Run("directory", func(t *testing.T) {
		ok, err := b.Exists(ctx, "u1")
		if err != nil || !ok {
			t.Errorf("Expected u1 to exist, got %v (err %v)", ok, err)
		}
		ok, err = b.Exists(ctx, "ghost")
		if err != nil || ok {
			t.Errorf("Expected ghost to be missing, got %v (err %v)", ok, err)
		}

		user, err := b.Get(ctx, "u2")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if user.DisplayName != "User u2" {
			t.Errorf("Expected display name 'User u2', got %q", user.DisplayName)
		}
		if _, err := b.Get(ctx, "ghost"); !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})
}

// runUsersIteration checks Users walks every user exactly once across
// several scan chunks and honours early termination.
func runUsersIteration(t *testing.T, b backend) {
	ctx := context.Background()
	total := userScanChunk*2 + 7

	want := make([]string, 0, total)
	for i := 0; i < total; i++ {
		id := fmt.Sprintf("member-%04d", i)
		want = append(want, id)
	}
	seedUsers(t, b, want...)

	var got []string
	for id, err := range b.Users(ctx) {
		if err != nil {
			t.Fatalf("Users yielded error: %v", err)
		}
		if strings.HasPrefix(id, "member-") {
			got = append(got, id)
		}
	}

	sort.Strings(got)
	if len(got) != total {
		t.Fatalf("Expected %d users, got %d", total, len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Expected %s at %d, got %s", want[i], i, got[i])
		}
	}

	seen := 0
	for range b.Users(ctx) {
		seen++
		if seen == 3 {
			break
		}
	}
	if seen != 3 {
		t.Errorf("Expected early break after 3, got %d", seen)
	}
}
