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

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/tomtom215/stitchboard/internal/logging"
	"github.com/tomtom215/stitchboard/internal/models"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS users (
	id           TEXT PRIMARY KEY,
	display_name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS notifications (
	id                TEXT PRIMARY KEY,
	title             TEXT NOT NULL,
	message           TEXT NOT NULL,
	link              TEXT,
	is_read           BOOLEAN NOT NULL DEFAULT FALSE,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
	receiver_id       TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	sender_id         TEXT REFERENCES users(id) ON DELETE SET NULL,
	notification_type TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_notifications_receiver_created
	ON notifications (receiver_id, created_at DESC, id DESC);

CREATE INDEX IF NOT EXISTS idx_notifications_receiver_unread
	ON notifications (receiver_id) WHERE NOT is_read;
`

const notificationColumns = `id, title, message, COALESCE(link, ''), is_read, created_at,
	receiver_id, COALESCE(sender_id, ''), notification_type`

// PostgresStore implements NotificationStore, UserDirectory and UserWriter
// on PostgreSQL through a pgx connection pool.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// PostgresOptions configures OpenPostgres.
type PostgresOptions struct {
	DSN      string
	MaxConns int32
}

// OpenPostgres creates a connection pool, verifies it and ensures the schema.
func OpenPostgres(ctx context.Context, logger *zerolog.Logger, opts PostgresOptions) (*PostgresStore, error) {
	poolConfig, err := pgxpool.ParseConfig(opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if opts.MaxConns > 0 {
		poolConfig.MaxConns = opts.MaxConns
	}
	poolConfig.MaxConnLifetime = 30 * time.Minute
	poolConfig.MaxConnIdleTime = 5 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute
	poolConfig.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeCacheStatement
	poolConfig.ConnConfig.ConnectTimeout = 10 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s := NewPostgresStore(logger, pool)
	if err := s.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	s.logger.Info().
		Int32("max_conns", poolConfig.MaxConns).
		Msg("Notification store connected")
	return s, nil
}

// NewPostgresStore wraps an existing pool.
func NewPostgresStore(logger *zerolog.Logger, pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{
		pool:   pool,
		logger: logging.Component(logger, "postgres_store"),
	}
}

// EnsureSchema creates tables and indexes when missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure notification schema: %w", err)
	}
	return nil
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// Ping checks connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func scanRecord(row pgx.Row) (*models.NotificationRecord, error) {
	var (
		rec     models.NotificationRecord
		notType string
	)
	err := row.Scan(
		&rec.ID,
		&rec.Title,
		&rec.Message,
		&rec.Link,
		&rec.Read,
		&rec.CreatedAt,
		&rec.ReceiverID,
		&rec.SenderID,
		&notType,
	)
	if err != nil {
		return nil, err
	}
	rec.Type = models.NotificationType(notType)
	return &rec, nil
}

// Insert implements NotificationStore.
func (s *PostgresStore) Insert(ctx context.Context, rec *models.NotificationRecord) (*models.NotificationRecord, error) {
	out, err := prepareInsert(rec)
	if err != nil {
		return nil, err
	}

	query := `
		INSERT INTO notifications
			(id, title, message, link, is_read, created_at, receiver_id, sender_id, notification_type)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, NULLIF($8, ''), $9)
	`
	_, err = s.pool.Exec(ctx, query,
		out.ID, out.Title, out.Message, out.Link, out.Read, out.CreatedAt,
		out.ReceiverID, out.SenderID, string(out.Type),
	)
	if err != nil {
		return nil, fmt.Errorf("insert notification: %w", err)
	}
	return out, nil
}

// FindByID implements NotificationStore.
func (s *PostgresStore) FindByID(ctx context.Context, id string) (*models.NotificationRecord, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE id = $1`

	rec, err := scanRecord(s.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find notification: %w", err)
	}
	return rec, nil
}

// SetRead implements NotificationStore. UPDATE reports matched rows, so
// setting the current value again still counts as found.
func (s *PostgresStore) SetRead(ctx context.Context, id string, read bool) error {
	ct, err := s.pool.Exec(ctx, `UPDATE notifications SET is_read = $2 WHERE id = $1`, id, read)
	if err != nil {
		return fmt.Errorf("set notification read: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetAllRead implements NotificationStore.
func (s *PostgresStore) SetAllRead(ctx context.Context, receiverID string) (int64, error) {
	ct, err := s.pool.Exec(ctx,
		`UPDATE notifications SET is_read = TRUE WHERE receiver_id = $1 AND NOT is_read`, receiverID)
	if err != nil {
		return 0, fmt.Errorf("mark all read: %w", err)
	}
	return ct.RowsAffected(), nil
}

// DeleteByID implements NotificationStore.
func (s *PostgresStore) DeleteByID(ctx context.Context, id string) error {
	ct, err := s.pool.Exec(ctx, `DELETE FROM notifications WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete notification: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteAllForReceiver implements NotificationStore.
func (s *PostgresStore) DeleteAllForReceiver(ctx context.Context, receiverID string) (int64, error) {
	ct, err := s.pool.Exec(ctx, `DELETE FROM notifications WHERE receiver_id = $1`, receiverID)
	if err != nil {
		return 0, fmt.Errorf("delete receiver notifications: %w", err)
	}
	return ct.RowsAffected(), nil
}

// CountUnread implements NotificationStore.
func (s *PostgresStore) CountUnread(ctx context.Context, receiverID string) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM notifications WHERE receiver_id = $1 AND NOT is_read`, receiverID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}
	return count, nil
}

// ListForReceiver implements NotificationStore.
func (s *PostgresStore) ListForReceiver(ctx context.Context, receiverID string, page, size int) (models.Page[models.NotificationRecord], error) {
	page, size = models.NormalizePaging(page, size)

	var total int64
	if err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM notifications WHERE receiver_id = $1`, receiverID,
	).Scan(&total); err != nil {
		return models.Page[models.NotificationRecord]{}, fmt.Errorf("count notifications: %w", err)
	}

	query := `
		SELECT ` + notificationColumns + `
		FROM notifications
		WHERE receiver_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := s.pool.Query(ctx, query, receiverID, size, page*size)
	if err != nil {
		return models.Page[models.NotificationRecord]{}, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	contents := make([]models.NotificationRecord, 0, size)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return models.Page[models.NotificationRecord]{}, fmt.Errorf("scan notification: %w", err)
		}
		contents = append(contents, *rec)
	}
	if err := rows.Err(); err != nil {
		return models.Page[models.NotificationRecord]{}, fmt.Errorf("list notifications: %w", err)
	}
	return models.NewPage(contents, page, size, total), nil
}

// PutUser implements UserWriter.
func (s *PostgresStore) PutUser(ctx context.Context, user models.UserInfo) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (id, display_name) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET display_name = EXCLUDED.display_name
	`, user.ID, user.DisplayName)
	if err != nil {
		return fmt.Errorf("put user: %w", err)
	}
	return nil
}

// Exists implements UserDirectory.
func (s *PostgresStore) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("check user: %w", err)
	}
	return exists, nil
}

// Get implements UserDirectory.
func (s *PostgresStore) Get(ctx context.Context, id string) (models.UserInfo, error) {
	var user models.UserInfo
	err := s.pool.QueryRow(ctx, `SELECT id, display_name FROM users WHERE id = $1`, id).
		Scan(&user.ID, &user.DisplayName)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.UserInfo{}, ErrNotFound
	}
	if err != nil {
		return models.UserInfo{}, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// Users implements UserDirectory with keyset pagination over the primary key.
func (s *PostgresStore) Users(ctx context.Context) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		after := ""
		for {
			rows, err := s.pool.Query(ctx,
				`SELECT id FROM users WHERE id > $1 ORDER BY id LIMIT $2`, after, userScanChunk)
			if err != nil {
				yield("", fmt.Errorf("scan users: %w", err))
				return
			}
			ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
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
			after = ids[len(ids)-1]
		}
	}
}
