// Package store persists tasks, time-tracking sessions, comments and
// appointments for the reference server.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const currentVersion = 1

var (
	ErrNotFound          = errors.New("not found")
	ErrAlreadyActive     = errors.New("time tracking is already active for this task")
	ErrNotActive         = errors.New("time tracking is not active for this task")
	ErrInvalidTransition = errors.New("invalid status transition")
)

type Store struct {
	db  *sql.DB
	now func() time.Time
}

// New opens (or creates) the SQLite database at dbPath and runs migrations.
func New(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(1)

	// Configure pragmas.
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db, now: time.Now}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// NewMemory creates an in-memory store for testing.
func NewMemory() (*Store, error) {
	return New(":memory:")
}

func (s *Store) Close() error {
	return s.db.Close()
}

// SetClock replaces the time source used for session accounting.
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

func (s *Store) timestamp() time.Time {
	return s.now().UTC()
}

func (s *Store) migrate() error {
	var version int
	err := s.db.QueryRow("PRAGMA user_version").Scan(&version)
	if err != nil {
		return fmt.Errorf("read user_version: %w", err)
	}

	if version >= currentVersion {
		return nil
	}

	if version < 1 {
		if err := s.migrateV1(); err != nil {
			return err
		}
	}

	_, err = s.db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentVersion))
	return err
}

func (s *Store) migrateV1() error {
	const ddl = `
	CREATE TABLE IF NOT EXISTS tasks (
		id                 TEXT PRIMARY KEY,
		title              TEXT NOT NULL DEFAULT '',
		status             TEXT NOT NULL DEFAULT 'to_do',
		task_type          TEXT NOT NULL,
		folder_id          TEXT,
		total_time_seconds INTEGER NOT NULL DEFAULT 0 CHECK (total_time_seconds >= 0),
		total_sessions     INTEGER NOT NULL DEFAULT 0,
		spouse_sign        INTEGER NOT NULL DEFAULT 0,
		assignee_id        TEXT,
		client_ids         TEXT NOT NULL DEFAULT '',
		file_ids           TEXT NOT NULL DEFAULT '',
		created_at         TEXT NOT NULL,
		updated_at         TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_tasks_assignee ON tasks(assignee_id);

	CREATE TABLE IF NOT EXISTS time_sessions (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		task_id     TEXT NOT NULL REFERENCES tasks(id),
		started_at  TEXT NOT NULL,
		ended_at    TEXT,
		duration    INTEGER NOT NULL DEFAULT 0
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_sessions_one_active
		ON time_sessions(task_id) WHERE ended_at IS NULL;

	CREATE TABLE IF NOT EXISTS comments (
		id          TEXT PRIMARY KEY,
		task_id     TEXT NOT NULL REFERENCES tasks(id),
		content     TEXT NOT NULL,
		created_at  TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_comments_task ON comments(task_id);

	CREATE TABLE IF NOT EXISTS appointments (
		id               TEXT PRIMARY KEY,
		status           TEXT NOT NULL DEFAULT 'pending',
		appointment_date TEXT NOT NULL,
		appointment_time TEXT NOT NULL,
		client_id        TEXT NOT NULL,
		meeting_type     TEXT NOT NULL,
		cancel_reason    TEXT,
		created_at       TEXT NOT NULL,
		updated_at       TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS settings (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(ddl)
	return err
}

// DefaultDBPath returns ~/.config/preptrack/preptrack.db
func DefaultDBPath() (string, error) {
	cfg, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cfg, "preptrack", "preptrack.db"), nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}
