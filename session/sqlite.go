package session

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	apperrors "github.com/nijaru/yt-tutor/errors"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	video_url TEXT NOT NULL DEFAULT '',
	transcript TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sessions_updated_at ON sessions(updated_at);
`

// SQLiteStore keeps sessions in a SQLite file. A session expires once it has
// been idle for longer than the TTL; expired rows are removed when touched or
// by PurgeExpired.
type SQLiteStore struct {
	db     *sql.DB
	ttl    time.Duration
	now    func() time.Time
	logger *logrus.Logger
}

type Option func(*SQLiteStore)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *SQLiteStore) { s.now = now }
}

func WithLogger(logger *logrus.Logger) Option {
	return func(s *SQLiteStore) { s.logger = logger }
}

func OpenSQLite(dbPath string, ttl time.Duration, opts ...Option) (*SQLiteStore, error) {
	const op = "session.OpenSQLite"

	if err := os.MkdirAll(filepath.Dir(dbPath), os.ModePerm); err != nil {
		return nil, apperrors.Internal(op, err, "Failed to create database directory")
	}

	db, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, apperrors.Internal(op, err, "Failed to open database")
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(15 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, apperrors.Internal(op, err, "Failed to create sessions table")
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, apperrors.Internal(op, err, "Failed to connect to database")
	}

	s := &SQLiteStore{
		db:     db,
		ttl:    ttl,
		now:    time.Now,
		logger: logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.logger.WithFields(logrus.Fields{
		"path": dbPath,
		"ttl":  ttl,
	}).Info("Session store ready")

	return s, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) expired(updatedAt time.Time) bool {
	return s.now().Sub(updatedAt) > s.ttl
}

// Get returns ErrNotFound for unknown or expired ids. An expired row is
// deleted on the way out.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*Session, error) {
	const op = "session.Get"

	sess := &Session{ID: id}
	var created, updated int64
	err := s.db.QueryRowContext(ctx,
		"SELECT video_url, transcript, created_at, updated_at FROM sessions WHERE id = ?", id,
	).Scan(&sess.VideoURL, &sess.Transcript, &created, &updated)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, apperrors.Internal(op, err, "Failed to query session")
	}

	sess.CreatedAt = time.Unix(0, created).UTC()
	sess.UpdatedAt = time.Unix(0, updated).UTC()

	if s.expired(sess.UpdatedAt) {
		// The caller may hold Lock(id), so the lock entry is kept.
		if err := s.deleteRow(ctx, id); err != nil {
			s.logger.WithError(err).WithField("session_id", id).Warn("Failed to delete expired session")
		}
		return nil, ErrNotFound
	}

	return sess, nil
}

// Save inserts or replaces the session and refreshes its UpdatedAt.
func (s *SQLiteStore) Save(ctx context.Context, sess *Session) error {
	const op = "session.Save"

	if sess == nil || sess.ID == "" {
		return apperrors.InvalidInput(op, nil, "Session id is required")
	}

	now := s.now().UTC()
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = now
	}
	sess.UpdatedAt = now

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.Internal(op, err, "Failed to begin transaction")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO sessions (id, video_url, transcript, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id)
		DO UPDATE SET video_url=excluded.video_url, transcript=excluded.transcript, updated_at=excluded.updated_at`)
	if err != nil {
		return apperrors.Internal(op, err, "Failed to prepare statement")
	}
	defer stmt.Close()

	if _, err := stmt.ExecContext(ctx, sess.ID, sess.VideoURL, sess.Transcript,
		sess.CreatedAt.UnixNano(), sess.UpdatedAt.UnixNano()); err != nil {
		return apperrors.Internal(op, err, "Failed to save session")
	}

	if err := tx.Commit(); err != nil {
		return apperrors.Internal(op, err, "Failed to commit transaction")
	}
	return nil
}

// Delete removes the session and its lock entry. Callers must not hold
// Lock(id).
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	if err := s.deleteRow(ctx, id); err != nil {
		return err
	}
	forget(id)
	return nil
}

func (s *SQLiteStore) deleteRow(ctx context.Context, id string) error {
	const op = "session.Delete"

	if _, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", id); err != nil {
		return apperrors.Internal(op, err, "Failed to delete session")
	}
	return nil
}

// PurgeExpired removes every session idle for longer than the TTL and reports
// how many were removed. It drops their lock entries, so run it while no
// request is in flight, as serve does at startup.
func (s *SQLiteStore) PurgeExpired(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-s.ttl).UnixNano()

	rows, err := s.db.QueryContext(ctx, "SELECT id FROM sessions WHERE updated_at < ?", cutoff)
	if err != nil {
		return 0, errors.Wrap(err, "list expired sessions")
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, errors.Wrap(err, "scan expired session")
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, errors.Wrap(err, "list expired sessions")
	}

	res, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE updated_at < ?", cutoff)
	if err != nil {
		return 0, errors.Wrap(err, "purge expired sessions")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "purge expired sessions")
	}

	for _, id := range ids {
		forget(id)
	}

	if n > 0 {
		s.logger.WithField("purged", n).Info("Purged expired sessions")
	}
	return n, nil
}
