// Stitchboard - Crochet Community Notification Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stitchboard

package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/stitchboard/internal/logging"
	"github.com/tomtom215/stitchboard/internal/models"
)

// Key prefixes for BadgerDB storage
const (
	notifKeyPrefix       = "notif:"
	notifRecvKeyPrefix   = "notif_recv:"
	notifUnreadKeyPrefix = "notif_unread:"
	userKeyPrefix        = "user:"
)

const (
	// maxConflictRetries bounds retries of a transaction that lost a race.
	maxConflictRetries = 5

	// bulkChunk is how many records a single bulk transaction touches.
	bulkChunk = 500
)

// BadgerStore implements NotificationStore, UserDirectory and UserWriter on
// an embedded BadgerDB.
//
// Records are indexed per receiver under notif_recv:{receiver}:{id}. IDs are
// UUIDv7 strings, so reverse key order is newest first. Unread records are
// additionally indexed under notif_unread:{receiver}:{id}.
type BadgerStore struct {
	db     *badger.DB
	owned  bool
	logger zerolog.Logger
}

// BadgerOptions configures OpenBadger.
type BadgerOptions struct {
	Path     string
	InMemory bool
}

// OpenBadger opens (or creates) a BadgerDB and wraps it in a BadgerStore.
// The returned store closes the database on Close.
func OpenBadger(logger *zerolog.Logger, opts BadgerOptions) (*BadgerStore, error) {
	bopts := badger.DefaultOptions(opts.Path)
	if opts.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	}
	// Reduce logging verbosity
	bopts.Logger = nil

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("open badger db for notifications: %w", err)
	}

	s := NewBadgerStore(logger, db)
	s.owned = true

	s.logger.Info().
		Str("path", opts.Path).
		Bool("in_memory", opts.InMemory).
		Msg("Notification store opened")
	return s, nil
}

// NewBadgerStore wraps an already open database. The caller keeps ownership.
func NewBadgerStore(logger *zerolog.Logger, db *badger.DB) *BadgerStore {
	return &BadgerStore{
		db:     db,
		logger: logging.Component(logger, "badger_store"),
	}
}

// Close closes the database if the store opened it.
func (s *BadgerStore) Close() error {
	if s.owned {
		return s.db.Close()
	}
	return nil
}

// Ping reports whether the database is usable.
func (s *BadgerStore) Ping(_ context.Context) error {
	if s.db.IsClosed() {
		return errors.New("badger db is closed")
	}
	return nil
}

func recordKey(id string) []byte {
	return []byte(notifKeyPrefix + id)
}

func receiverPrefix(receiverID string) []byte {
	return []byte(notifRecvKeyPrefix + receiverID + ":")
}

func receiverKey(receiverID, id string) []byte {
	return []byte(notifRecvKeyPrefix + receiverID + ":" + id)
}

func unreadPrefix(receiverID string) []byte {
	return []byte(notifUnreadKeyPrefix + receiverID + ":")
}

func unreadKey(receiverID, id string) []byte {
	return []byte(notifUnreadKeyPrefix + receiverID + ":" + id)
}

// update runs fn in a read-write transaction, retrying on conflicts with
// concurrent writers.
func (s *BadgerStore) update(fn func(txn *badger.Txn) error) error {
	var err error
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		err = s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
		s.logger.Debug().Int("attempt", attempt+1).Msg("Transaction conflict, retrying")
	}
	return err
}

func getRecord(txn *badger.Txn, id string) (*models.NotificationRecord, error) {
	item, err := txn.Get(recordKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get notification: %w", err)
	}

	var rec models.NotificationRecord
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &rec)
	}); err != nil {
		return nil, fmt.Errorf("decode notification: %w", err)
	}
	return &rec, nil
}

func putRecord(txn *badger.Txn, rec *models.NotificationRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	if err := txn.Set(recordKey(rec.ID), data); err != nil {
		return fmt.Errorf("set notification: %w", err)
	}
	return nil
}

// Insert implements NotificationStore.
func (s *BadgerStore) Insert(ctx context.Context, rec *models.NotificationRecord) (*models.NotificationRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out, err := prepareInsert(rec)
	if err != nil {
		return nil, err
	}

	err = s.update(func(txn *badger.Txn) error {
		if err := putRecord(txn, out); err != nil {
			return err
		}
		if err := txn.Set(receiverKey(out.ReceiverID, out.ID), nil); err != nil {
			return fmt.Errorf("set receiver index: %w", err)
		}
		if !out.Read {
			if err := txn.Set(unreadKey(out.ReceiverID, out.ID), nil); err != nil {
				return fmt.Errorf("set unread index: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// FindByID implements NotificationStore.
func (s *BadgerStore) FindByID(ctx context.Context, id string) (*models.NotificationRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var rec *models.NotificationRecord
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		rec, err = getRecord(txn, id)
		return err
	})
	return rec, err
}

// SetRead implements NotificationStore.
func (s *BadgerStore) SetRead(ctx context.Context, id string, read bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.update(func(txn *badger.Txn) error {
		rec, err := getRecord(txn, id)
		if err != nil {
			return err
		}
		return setReadTxn(txn, rec, read)
	})
}

func setReadTxn(txn *badger.Txn, rec *models.NotificationRecord, read bool) error {
	if rec.Read == read {
		return nil
	}
	rec.Read = read
	if err := putRecord(txn, rec); err != nil {
		return err
	}
	if read {
		return txn.Delete(unreadKey(rec.ReceiverID, rec.ID))
	}
	return txn.Set(unreadKey(rec.ReceiverID, rec.ID), nil)
}

// SetAllRead implements NotificationStore.
func (s *BadgerStore) SetAllRead(ctx context.Context, receiverID string) (int64, error) {
	var total int64
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		ids, err := s.scanIDs(unreadPrefix(receiverID), bulkChunk)
		if err != nil {
			return total, err
		}
		if len(ids) == 0 {
			return total, nil
		}

		var changed int64
		err = s.update(func(txn *badger.Txn) error {
			changed = 0
			for _, id := range ids {
				rec, err := getRecord(txn, id)
				if errors.Is(err, ErrNotFound) {
					// Dangling index entry
					if err := txn.Delete(unreadKey(receiverID, id)); err != nil {
						return err
					}
					continue
				}
				if err != nil {
					return err
				}
				if !rec.Read {
					changed++
				}
				if err := setReadTxn(txn, rec, true); err != nil {
					return err
				}
				// Clears stale index entries for records already read.
				if err := txn.Delete(unreadKey(receiverID, id)); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return total, fmt.Errorf("mark all read: %w", err)
		}
		total += changed
	}
}

// DeleteByID implements NotificationStore.
func (s *BadgerStore) DeleteByID(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.update(func(txn *badger.Txn) error {
		rec, err := getRecord(txn, id)
		if err != nil {
			return err
		}
		return deleteRecordTxn(txn, rec.ReceiverID, id)
	})
}

func deleteRecordTxn(txn *badger.Txn, receiverID, id string) error {
	for _, key := range [][]byte{recordKey(id), receiverKey(receiverID, id), unreadKey(receiverID, id)} {
		if err := txn.Delete(key); err != nil {
			return fmt.Errorf("delete notification: %w", err)
		}
	}
	return nil
}

// DeleteAllForReceiver implements NotificationStore.
func (s *BadgerStore) DeleteAllForReceiver(ctx context.Context, receiverID string) (int64, error) {
	var total int64
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		ids, err := s.scanIDs(receiverPrefix(receiverID), bulkChunk)
		if err != nil {
			return total, err
		}
		if len(ids) == 0 {
			return total, nil
		}

		err = s.update(func(txn *badger.Txn) error {
			for _, id := range ids {
				if err := deleteRecordTxn(txn, receiverID, id); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return total, fmt.Errorf("delete receiver notifications: %w", err)
		}
		total += int64(len(ids))
	}
}

// CountUnread implements NotificationStore.
func (s *BadgerStore) CountUnread(ctx context.Context, receiverID string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var count int64
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		prefix := unreadPrefix(receiverID)
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}
	return count, nil
}

// ListForReceiver implements NotificationStore.
func (s *BadgerStore) ListForReceiver(ctx context.Context, receiverID string, page, size int) (models.Page[models.NotificationRecord], error) {
	page, size = models.NormalizePaging(page, size)
	if err := ctx.Err(); err != nil {
		return models.Page[models.NotificationRecord]{}, err
	}

	var (
		total    int64
		contents []models.NotificationRecord
	)
	skip := int64(page) * int64(size)

	err := s.db.View(func(txn *badger.Txn) error {
		prefix := receiverPrefix(receiverID)
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Reverse = true
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		// Reverse iteration must start past the last key with this prefix.
		seek := append(bytes.Clone(prefix), 0xFF)
		for it.Seek(seek); it.ValidForPrefix(prefix); it.Next() {
			if total >= skip && len(contents) < size {
				id := string(it.Item().KeyCopy(nil)[len(prefix):])
				rec, err := getRecord(txn, id)
				if err != nil {
					return err
				}
				contents = append(contents, *rec)
			}
			total++
		}
		return nil
	})
	if err != nil {
		return models.Page[models.NotificationRecord]{}, fmt.Errorf("list notifications: %w", err)
	}
	return models.NewPage(contents, page, size, total), nil
}

// scanIDs returns up to limit IDs stored as key suffixes under prefix.
func (s *BadgerStore) scanIDs(prefix []byte, limit int) ([]string, error) {
	var ids []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix) && len(ids) < limit; it.Next() {
			ids = append(ids, string(it.Item().Key()[len(prefix):]))
		}
		return nil
	})
	return ids, err
}

// PutUser implements UserWriter.
func (s *BadgerStore) PutUser(ctx context.Context, user models.UserInfo) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if user.ID == "" || strings.Contains(user.ID, ":") {
		return fmt.Errorf("invalid user id %q", user.ID)
	}
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}
	return s.update(func(txn *badger.Txn) error {
		return txn.Set([]byte(userKeyPrefix+user.ID), data)
	})
}

// Exists implements UserDirectory.
func (s *BadgerStore) Exists(ctx context.Context, id string) (bool, error) {
	_, err := s.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// Get implements UserDirectory.
func (s *BadgerStore) Get(ctx context.Context, id string) (models.UserInfo, error) {
	if err := ctx.Err(); err != nil {
		return models.UserInfo{}, err
	}
	var user models.UserInfo
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(userKeyPrefix + id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get user: %w", err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &user)
		})
	})
	return user, err
}

// Users implements UserDirectory. Keys are read in chunks so no read
// transaction stays open while the caller processes IDs.
func (s *BadgerStore) Users(ctx context.Context) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		prefix := []byte(userKeyPrefix)
		seek := prefix
		for {
			if err := ctx.Err(); err != nil {
				yield("", err)
				return
			}

			var ids []string
			err := s.db.View(func(txn *badger.Txn) error {
				opts := badger.DefaultIteratorOptions
				opts.PrefetchValues = false
				opts.Prefix = prefix
				it := txn.NewIterator(opts)
				defer it.Close()

				for it.Seek(seek); it.ValidForPrefix(prefix) && len(ids) < userScanChunk; it.Next() {
					ids = append(ids, string(it.Item().Key()[len(prefix):]))
				}
				return nil
			})
			if err != nil {
				yield("", fmt.Errorf("scan users: %w", err))
				return
			}

			for _, id := range ids {
				if !yield(id, nil) {
					return
				}
			}
			if len(ids) < userScanChunk {
				return
			}
			// Resume just past the last key seen.
			seek = append([]byte(userKeyPrefix+ids[len(ids)-1]), 0x00)
		}
	}
}
