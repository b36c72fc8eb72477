package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore persists one session's artifacts in a SQLite database so that
// successive CLI invocations see the same workflow state
type SQLiteStore struct {
	db        *sql.DB
	sessionID string
}

// OpenSQLite opens (and creates if needed) the session database at path
func OpenSQLite(path, sessionID string) (*SQLiteStore, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("session id is required")
	}

	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create session directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open session database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create session schema: %w", err)
	}

	return &SQLiteStore{db: db, sessionID: sessionID}, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS session_values (
		session_id TEXT NOT NULL,
		key        TEXT NOT NULL,
		value      BLOB NOT NULL,
		updated_at INTEGER NOT NULL,
		PRIMARY KEY (session_id, key)
	)`)
	return err
}

const upsertSQL = `INSERT INTO session_values (session_id, key, value, updated_at) VALUES (?, ?, ?, ?)
	ON CONFLICT(session_id, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`

// SessionID returns the id this store reads and writes
func (s *SQLiteStore) SessionID() string {
	return s.sessionID
}

func (s *SQLiteStore) Get(ctx context.Context, key Key) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM session_values WHERE session_id = ? AND key = ?`,
		s.sessionID, string(key)).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return value, nil
}

func (s *SQLiteStore) Put(ctx context.Context, key Key, value []byte) error {
	_, err := s.db.ExecContext(ctx, upsertSQL, s.sessionID, string(key), value, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, keys ...Key) error {
	return s.PutAll(ctx, nil, keys...)
}

func (s *SQLiteStore) PutAll(ctx context.Context, values map[Key][]byte, drop ...Key) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, k := range drop {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM session_values WHERE session_id = ? AND key = ?`,
			s.sessionID, string(k)); err != nil {
			return fmt.Errorf("failed to delete %s: %w", k, err)
		}
	}

	now := time.Now().Unix()
	for k, value := range values {
		if _, err := tx.ExecContext(ctx, upsertSQL, s.sessionID, string(k), value, now); err != nil {
			return fmt.Errorf("failed to write %s: %w", k, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM session_values WHERE session_id = ?`, s.sessionID); err != nil {
		return fmt.Errorf("failed to clear session %s: %w", s.sessionID, err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
