package session

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"grievance/internal/platform/sqlite"
	"grievance/internal/shared"
)

//go:embed migrations/*.sql
var migrations embed.FS

const (
	keySessionID = "session_id"
	keyUserID    = "user_id"
)

// Store is a Provider persisted in SQLite. The session id survives restarts
// until Clear is called. Reads are served from memory; writes go through to
// the database first.
type Store struct {
	db *sqlx.DB

	mu        sync.RWMutex
	userID    string
	sessionID string
}

// Open migrates db and loads the persisted session, creating one if none
// exists yet.
func Open(ctx context.Context, db *sqlx.DB) (*Store, error) {
	if err := sqlite.ApplyMigrations(db, migrations, "migrations"); err != nil {
		return nil, shared.Wrap(err, "session")
	}

	s := &Store{db: db}
	sid, ok, err := s.Get(ctx, keySessionID)
	if err != nil {
		return nil, err
	}
	if !ok {
		sid = uuid.NewString()
		if err := s.Set(ctx, keySessionID, sid); err != nil {
			return nil, err
		}
	}
	uid, _, err := s.Get(ctx, keyUserID)
	if err != nil {
		return nil, err
	}
	s.sessionID, s.userID = sid, uid
	return s, nil
}

// UserID implements Provider.
func (s *Store) UserID(ctx context.Context) string {
	if id, ok := FromContext(ctx); ok && id.UserID != "" {
		return id.UserID
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID
}

// SessionID implements Provider.
func (s *Store) SessionID(ctx context.Context) string {
	if id, ok := FromContext(ctx); ok && id.SessionID != "" {
		return id.SessionID
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessionID
}

// SetUserID persists the logged in user.
func (s *Store) SetUserID(ctx context.Context, userID string) error {
	if err := s.Set(ctx, keyUserID, userID); err != nil {
		return err
	}
	s.mu.Lock()
	s.userID = userID
	s.mu.Unlock()
	return nil
}

// Clear removes every stored value and starts a new session.
func (s *Store) Clear(ctx context.Context) error {
	sid := uuid.NewString()
	err := sqlite.WithinTx(ctx, s.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM session_kv`); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, upsertQuery, keySessionID, sid)
		return err
	})
	if err != nil {
		return shared.Wrap(err, "session: clear")
	}
	s.mu.Lock()
	s.userID, s.sessionID = "", sid
	s.mu.Unlock()
	return nil
}

const upsertQuery = `
INSERT INTO session_kv (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`

// Get returns a stored value.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := s.db.GetContext(ctx, &v, `SELECT value FROM session_kv WHERE key = ?`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, shared.Wrapf(err, "session: get %s", key)
	}
	return v, true, nil
}

// Set stores a value.
func (s *Store) Set(ctx context.Context, key, value string) error {
	if _, err := s.db.ExecContext(ctx, upsertQuery, key, value); err != nil {
		return shared.Wrapf(err, "session: set %s", key)
	}
	return nil
}

// Check pings the database and fails on a dirty schema.
func (s *Store) Check(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return shared.Wrap(err, "session: ping")
	}
	_, dirty, err := sqlite.MigrationVersion(s.db, migrations, "migrations")
	if err != nil {
		return shared.Wrap(err, "session")
	}
	if dirty {
		return errors.New("session: schema is dirty")
	}
	return nil
}
