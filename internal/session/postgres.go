package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS image_sessions (
	user_id      BIGINT PRIMARY KEY,
	session_id   TEXT NOT NULL,
	image_data   BYTEA NOT NULL,
	content_type TEXT NOT NULL,
	file_name    TEXT NOT NULL,
	updated_at   TIMESTAMPTZ NOT NULL
)`

// PostgresStore keeps sessions in a single table so the bot survives
// a restart, or so several instances can share one store. The TTL is
// enforced lazily: expired rows are deleted when read.
type PostgresStore struct {
	pool *pgxpool.Pool
	ttl  time.Duration
}

// NewPostgresStore connects to the given DSN and ensures the schema
// exists.
func NewPostgresStore(ctx context.Context, databaseURL string, ttl time.Duration) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to reach database: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to create sessions table: %w", err)
	}

	return &PostgresStore{pool: pool, ttl: ttl}, nil
}

func (s *PostgresStore) Put(ctx context.Context, userID int64, sess *Session) error {
	_, err := s.pool.Exec(
		ctx,
		`INSERT INTO image_sessions (user_id, session_id, image_data, content_type, file_name, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (user_id) DO UPDATE SET
			session_id = EXCLUDED.session_id,
			image_data = EXCLUDED.image_data,
			content_type = EXCLUDED.content_type,
			file_name = EXCLUDED.file_name,
			updated_at = EXCLUDED.updated_at`,
		userID, sess.ID, sess.Data, sess.ContentType, sess.Name, sess.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("unable to store session: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, userID int64) (*Session, error) {
	sess := &Session{}
	err := s.pool.QueryRow(
		ctx,
		`SELECT session_id, image_data, content_type, file_name, updated_at
		 FROM image_sessions WHERE user_id = $1`,
		userID,
	).Scan(&sess.ID, &sess.Data, &sess.ContentType, &sess.Name, &sess.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("unable to load session: %w", err)
	}

	if s.ttl > 0 && time.Since(sess.UpdatedAt) > s.ttl {
		if err := s.Clear(ctx, userID); err != nil {
			return nil, err
		}
		return nil, ErrNotFound
	}

	return sess, nil
}

func (s *PostgresStore) Clear(ctx context.Context, userID int64) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM image_sessions WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("unable to clear session: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}
