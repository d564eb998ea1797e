// Stitchboard - Crochet Community Notification Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stitchboard

package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/stitchboard/internal/metrics"
	"github.com/tomtom215/stitchboard/internal/models"
	"github.com/tomtom215/stitchboard/internal/validation"
)

func commentRequest(receiver, sender string) models.NotificationRequest {
	return models.NotificationRequest{
		Title:      "New comment",
		Message:    "Name u1 commented on your chart",
		Link:       "/free-patterns/p1",
		ReceiverID: receiver,
		SenderID:   sender,
		Type:       models.NotificationTypeComment,
	}
}

func TestDirectTransport_Deliver(t *testing.T) {
	t.Parallel()

	s := newTestStore(t, "u1", "u2")
	direct := NewDirectTransport(nopLogger(), s, s)
	ctx := context.Background()

	if err := direct.Deliver(ctx, commentRequest("u2", "u1")); err != nil {
		t.Fatalf("Deliver failed: %v", err)
	}

	page, err := s.ListForReceiver(ctx, "u2", 0, 10)
	if err != nil {
		t.Fatalf("ListForReceiver failed: %v", err)
	}
	if len(page.Contents) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(page.Contents))
	}
	rec := page.Contents[0]
	if rec.Read {
		t.Error("Expected record to be unread")
	}
	if rec.SenderID != "u1" || rec.Title != "New comment" || rec.Link != "/free-patterns/p1" {
		t.Errorf("Unexpected record: %+v", rec)
	}
	if rec.CreatedAt.IsZero() {
		t.Error("Expected CreatedAt to be set")
	}
}

func TestDirectTransport_SelfNotificationIsSkipped(t *testing.T) {
	s := newTestStore(t, "u1")
	direct := NewDirectTransport(nopLogger(), s, s)
	ctx := context.Background()
	suppressed := metrics.NotificationsSuppressed.WithLabelValues(suppressSelfRequest)
	before := testutil.ToFloat64(suppressed)

	if err := direct.Deliver(ctx, commentRequest("u1", "u1")); err != nil {
		t.Fatalf("Deliver failed: %v", err)
	}

	n, err := s.CountUnread(ctx, "u1")
	if err != nil {
		t.Fatalf("CountUnread failed: %v", err)
	}
	if n != 0 {
		t.Errorf("Expected no record for a self notification, got %d", n)
	}
	if got := testutil.ToFloat64(suppressed) - before; got != 1 {
		t.Errorf("Expected suppressed counter to grow by 1, got %v", got)
	}
}

func TestDirectTransport_UnknownSenderIsDropped(t *testing.T) {
	t.Parallel()

	s := newTestStore(t, "u2")
	direct := NewDirectTransport(nopLogger(), s, s)
	ctx := context.Background()

	if err := direct.Deliver(ctx, commentRequest("u2", "deleted-user")); err != nil {
		t.Fatalf("Deliver failed: %v", err)
	}
	page, err := s.ListForReceiver(ctx, "u2", 0, 10)
	if err != nil {
		t.Fatalf("ListForReceiver failed: %v", err)
	}
	if len(page.Contents) != 1 || page.Contents[0].SenderID != "" {
		t.Errorf("Expected one record without sender, got %+v", page.Contents)
	}
}

func TestDirectTransport_Errors(t *testing.T) {
	t.Parallel()

	s := newTestStore(t, "u1")
	direct := NewDirectTransport(nopLogger(), s, s)
	ctx := context.Background()

	if err := direct.Deliver(ctx, commentRequest("ghost", "u1")); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for unknown receiver, got %v", err)
	}

	invalid := commentRequest("u1", "")
	invalid.Title = ""
	err := direct.Deliver(ctx, invalid)
	var verr *validation.RequestValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Expected validation error, got %v", err)
	}
	if !verr.HasField("title") {
		t.Errorf("Expected title to fail validation, got %v", verr)
	}

	badType := commentRequest("u1", "")
	badType.Type = "LIKE"
	if err := direct.Deliver(ctx, badType); err == nil {
		t.Error("Expected error for unknown notification type")
	}
}

func TestSubjects_For(t *testing.T) {
	t.Parallel()

	s := Subjects{Comment: "notifications.comment", Prefix: "notifications"}
	tests := []struct {
		typ  models.NotificationType
		want string
	}{
		{models.NotificationTypeComment, "notifications.comment"},
		{models.NotificationTypeNewPattern, "notifications.new_pattern"},
		{models.NotificationTypeSystem, "notifications.system"},
	}
	for _, tt := range tests {
		if got := s.For(tt.typ); got != tt.want {
			t.Errorf("For(%s) = %s, want %s", tt.typ, got, tt.want)
		}
	}

	custom := Subjects{Comment: "crochet.comments", Prefix: "crochet"}
	if got := custom.For(models.NotificationTypeComment); got != "crochet.comments" {
		t.Errorf("Expected custom comment subject, got %s", got)
	}
}

func TestBusTransport_PublishSucceeds(t *testing.T) {
	t.Parallel()

	pub := &fakePublisher{}
	fallback := &recordingTransport{}
	bus := NewBusTransport(nopLogger(), pub, fallback, Subjects{Comment: "notifications.comment", Prefix: "notifications"})

	if err := bus.Deliver(context.Background(), commentRequest("u2", "u1")); err != nil {
		t.Fatalf("Deliver failed: %v", err)
	}
	if got := len(pub.published["notifications.comment"]); got != 1 {
		t.Errorf("Expected 1 message on notifications.comment, got %d", got)
	}
	if got := len(fallback.snapshot()); got != 0 {
		t.Errorf("Expected no fallback calls, got %d", got)
	}
}

func TestBusTransport_FallbackPersists(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		pub  *fakePublisher
	}{
		{"publish error", &fakePublisher{err: errBoom}},
		{"disconnected", &fakePublisher{disconnected: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := newTestStore(t, "u1", "u2")
			direct := NewDirectTransport(nopLogger(), s, s)
			bus := NewBusTransport(nopLogger(), tt.pub, direct, Subjects{Comment: "notifications.comment", Prefix: "notifications"})
			ctx := context.Background()

			req := commentRequest("u2", "u1")
			if err := bus.Deliver(ctx, req); err != nil {
				t.Fatalf("Deliver failed: %v", err)
			}
			if tt.pub.count() != 0 {
				t.Errorf("Expected nothing published, got %d", tt.pub.count())
			}

			page, err := s.ListForReceiver(ctx, "u2", 0, 10)
			if err != nil {
				t.Fatalf("ListForReceiver failed: %v", err)
			}
			if len(page.Contents) != 1 {
				t.Fatalf("Expected fallback to persist 1 record, got %d", len(page.Contents))
			}
			rec := page.Contents[0]
			if rec.Title != req.Title || rec.Message != req.Message || rec.Link != req.Link ||
				rec.SenderID != req.SenderID || rec.Type != req.Type {
				t.Errorf("Persisted record differs from request: %+v vs %+v", rec, req)
			}
		})
	}
}

func TestBusTransport_BothFail(t *testing.T) {
	t.Parallel()

	pub := &fakePublisher{err: errBoom}
	fallbackErr := errors.New("store unavailable")
	fallback := &recordingTransport{failFor: map[string]error{"u2": fallbackErr}}
	bus := NewBusTransport(nopLogger(), pub, fallback, Subjects{Comment: "notifications.comment", Prefix: "notifications"})

	err := bus.Deliver(context.Background(), commentRequest("u2", "u1"))
	if err == nil {
		t.Fatal("Expected error when both transports fail")
	}

	var terr *TransportError
	if !errors.As(err, &terr) {
		t.Fatalf("Expected TransportError in %v", err)
	}
	if terr.Subject != "notifications.comment" || !errors.Is(terr, errBoom) {
		t.Errorf("Unexpected TransportError: %v", terr)
	}
	if !errors.Is(err, fallbackErr) {
		t.Errorf("Expected fallback error in %v", err)
	}
	if len(fallback.snapshot()) != 1 {
		t.Errorf("Expected fallback to be attempted once, got %d", len(fallback.snapshot()))
	}
}
