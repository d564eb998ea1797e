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
	"testing"

	"github.com/rs/zerolog"

	"github.com/tomtom215/stitchboard/internal/models"
	"github.com/tomtom215/stitchboard/internal/store"
)

func nopLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

// fakeDirectory is an ordered in-memory UserDirectory.
type fakeDirectory struct {
	order   []string
	users   map[string]models.UserInfo
	iterErr error
}

func newFakeDirectory(ids ...string) *fakeDirectory {
	d := &fakeDirectory{users: make(map[string]models.UserInfo)}
	for _, id := range ids {
		d.add(id)
	}
	return d
}

func (d *fakeDirectory) add(id string) {
	d.order = append(d.order, id)
	d.users[id] = models.UserInfo{ID: id, DisplayName: "Name " + id}
}

func (d *fakeDirectory) Exists(_ context.Context, id string) (bool, error) {
	_, ok := d.users[id]
	return ok, nil
}

func (d *fakeDirectory) Get(_ context.Context, id string) (models.UserInfo, error) {
	u, ok := d.users[id]
	if !ok {
		return models.UserInfo{}, store.ErrNotFound
	}
	return u, nil
}

func (d *fakeDirectory) Users(context.Context) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for _, id := range d.order {
			if !yield(id, nil) {
				return
			}
		}
		if d.iterErr != nil {
			yield("", d.iterErr)
		}
	}
}

// recordingTransport records every request and fails for selected receivers.
type recordingTransport struct {
	mu       sync.Mutex
	requests []models.NotificationRequest
	failFor  map[string]error
}

func (t *recordingTransport) Deliver(_ context.Context, req models.NotificationRequest) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.requests = append(t.requests, req)
	if err, ok := t.failFor[req.ReceiverID]; ok {
		return err
	}
	return nil
}

func (t *recordingTransport) snapshot() []models.NotificationRequest {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]models.NotificationRequest(nil), t.requests...)
}

func (t *recordingTransport) countFor(receiverID string) int {
	n := 0
	for _, r := range t.snapshot() {
		if r.ReceiverID == receiverID {
			n++
		}
	}
	return n
}

// fakePublisher is a BusPublisher with a switchable failure and connection.
type fakePublisher struct {
	mu           sync.Mutex
	err          error
	disconnected bool
	published    map[string][]models.NotificationRequest
}

func (p *fakePublisher) PublishNotification(_ context.Context, subject string, req models.NotificationRequest) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	if p.published == nil {
		p.published = make(map[string][]models.NotificationRequest)
	}
	p.published[subject] = append(p.published[subject], req)
	return nil
}

func (p *fakePublisher) IsConnected() bool {
	return !p.disconnected
}

func (p *fakePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, reqs := range p.published {
		n += len(reqs)
	}
	return n
}

// newTestStore opens an in-memory BadgerStore seeded with users.
func newTestStore(t *testing.T, ids ...string) *store.BadgerStore {
	t.Helper()
	s, err := store.OpenBadger(nopLogger(), store.BadgerOptions{InMemory: true})
	if err != nil {
		t.Fatalf("Failed to open in-memory store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	for _, id := range ids {
		if err := s.PutUser(context.Background(), models.UserInfo{ID: id, DisplayName: "Name " + id}); err != nil {
			t.Fatalf("PutUser(%s) failed: %v", id, err)
		}
	}
	return s
}

func userIDs(prefix string, n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("%s%03d", prefix, i)
	}
	return ids
}

var errBoom = errors.New("boom")
