// Package sqlite archives named session files in a SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/nstogner/diagrammer/pkg/store"
)

// Store implements store.Archive using SQLite.
type Store struct {
	db *sql.DB
}

// Verify interface compliance at compile time.
var _ store.Archive = (*Store)(nil)

// New opens (or creates) a SQLite database at the given path and runs migrations.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		name TEXT PRIMARY KEY,
		data TEXT NOT NULL,
		messages INTEGER NOT NULL DEFAULT 0,
		kind TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_updated ON sessions(updated_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Save validates data as a session file and stores it under name.
func (s *Store) Save(ctx context.Context, name string, data []byte) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("archive name is required")
	}
	sess, err := store.Decode(data)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sessions (name, data, messages, kind, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET data=excluded.data, messages=excluded.messages, kind=excluded.kind, updated_at=excluded.updated_at`,
		name, string(data), len(sess.Messages), string(sess.CurrentKind), now, now,
	)
	return err
}

func (s *Store) Load(ctx context.Context, name string) ([]byte, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM sessions WHERE name = ?`, name).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", store.ErrNotFound, name)
	}
	if err != nil {
		return nil, err
	}
	return []byte(data), nil
}

func (s *Store) List(ctx context.Context) ([]store.ArchiveEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, messages, kind, created_at, updated_at
		 FROM sessions ORDER BY updated_at DESC, name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.ArchiveEntry
	for rows.Next() {
		var e store.ArchiveEntry
		if err := rows.Scan(&e.Name, &e.Messages, &e.Kind, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) Delete(ctx context.Context, name string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE name=?`, name)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("%w: %s", store.ErrNotFound, name)
	}
	return nil
}
