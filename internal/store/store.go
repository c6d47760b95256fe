// Package store persists the task-tracking data model in a transactional
// SQLite database. The UNIQUE(project_id, commit_hash) constraint is the
// deduplication mechanism: concurrent deliveries of one physical commit
// resolve to exactly one inserted row.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	// SQLite driver registration.
	_ "github.com/mattn/go-sqlite3"
)

// Sentinel errors for lookups.
var (
	// ErrProjectNotFound indicates no project matched the payload identity.
	ErrProjectNotFound = errors.New("project not found")
	// ErrUserNotFound indicates no user matched the lookup token.
	ErrUserNotFound = errors.New("user not found")
	// ErrTaskNotFound indicates no task exists for the feature code.
	ErrTaskNotFound = errors.New("task not found")
)

// Store wraps the SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens (and migrates) the database at path. Use ":memory:" for tests.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000", path)

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	// SQLite permits one writer; a single pooled connection avoids
	// SQLITE_BUSY churn under concurrent deliveries.
	db.SetMaxOpenConns(1)

	st := &Store{db: db}

	if err := st.migrate(); err != nil {
		_ = db.Close()

		return nil, err
	}

	return st, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close store: %w", err)
	}

	return nil
}

// Ping verifies database liveness.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping store: %w", err)
	}

	return nil
}

// Tx is a transactional view of the store. All ingestion writes go through
// one Tx per commit so a partial failure rolls back atomically.
type Tx struct {
	tx *sql.Tx
}

// WithTx runs fn inside a transaction, committing on nil error and rolling
// back otherwise.
func (s *Store) WithTx(ctx context.Context, fn func(tx *Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if err := fn(&Tx{tx: sqlTx}); err != nil {
		if rbErr := sqlTx.Rollback(); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}

		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS projects (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			key TEXT NOT NULL UNIQUE,
			external_id INTEGER,
			html_url TEXT,
			secret TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			nickname TEXT NOT NULL UNIQUE,
			email TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL DEFAULT ''
		);

		CREATE TABLE IF NOT EXISTS commits (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			project_id INTEGER NOT NULL REFERENCES projects(id),
			hash TEXT NOT NULL,
			message TEXT NOT NULL,
			author_name TEXT NOT NULL DEFAULT '',
			author_email TEXT NOT NULL DEFAULT '',
			authored_at TEXT NOT NULL,
			source_url TEXT NOT NULL DEFAULT '',
			lines_added INTEGER NOT NULL DEFAULT 0,
			lines_modified INTEGER NOT NULL DEFAULT 0,
			lines_deleted INTEGER NOT NULL DEFAULT 0,
			files_changed INTEGER NOT NULL DEFAULT 0,
			degraded INTEGER NOT NULL DEFAULT 0,
			task_id INTEGER REFERENCES tasks(id),
			created_at TEXT NOT NULL,
			UNIQUE(project_id, hash)
		);

		CREATE TABLE IF NOT EXISTS file_changes (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			commit_id INTEGER NOT NULL REFERENCES commits(id),
			path TEXT NOT NULL,
			change_kind TEXT NOT NULL,
			lines_added INTEGER NOT NULL DEFAULT 0,
			lines_deleted INTEGER NOT NULL DEFAULT 0,
			lines_modified INTEGER NOT NULL DEFAULT 0,
			language TEXT NOT NULL DEFAULT ''
		);

		CREATE TABLE IF NOT EXISTS tasks (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			project_id INTEGER NOT NULL REFERENCES projects(id),
			feature_code TEXT NOT NULL,
			title TEXT NOT NULL,
			status TEXT NOT NULL,
			assignee_id INTEGER REFERENCES users(id),
			sprint TEXT,
			backlog_priority TEXT,
			story_points INTEGER,
			estimate_minutes INTEGER,
			task_type TEXT,
			tags TEXT NOT NULL DEFAULT '[]',
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			UNIQUE(project_id, feature_code)
		);

		CREATE TABLE IF NOT EXISTS ledger_entries (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			project_id INTEGER NOT NULL REFERENCES projects(id),
			email TEXT NOT NULL,
			name TEXT NOT NULL DEFAULT '',
			commits INTEGER NOT NULL DEFAULT 0,
			lines_added INTEGER NOT NULL DEFAULT 0,
			lines_modified INTEGER NOT NULL DEFAULT 0,
			lines_deleted INTEGER NOT NULL DEFAULT 0,
			files_changed INTEGER NOT NULL DEFAULT 0,
			languages TEXT NOT NULL DEFAULT '{}',
			first_commit_at TEXT NOT NULL,
			last_commit_at TEXT NOT NULL,
			UNIQUE(project_id, email)
		);

		CREATE TABLE IF NOT EXISTS payload_archive (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			delivery_id TEXT NOT NULL DEFAULT '',
			project_id INTEGER NOT NULL REFERENCES projects(id),
			provider TEXT NOT NULL DEFAULT '',
			body BLOB NOT NULL,
			body_size INTEGER NOT NULL,
			received_at TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_commits_project ON commits(project_id);
		CREATE INDEX IF NOT EXISTS idx_tasks_project ON tasks(project_id);
		CREATE INDEX IF NOT EXISTS idx_ledger_project ON ledger_entries(project_id);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("migrate store: %w", err)
	}

	return nil
}
