package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	appLog "kidplan/internal/log"
	"kidplan/internal/model"
)

// ErrNotFound is returned by Rename when no log entry carries the old title.
var ErrNotFound = errors.New("store: event not found")

const (
	schemaName    = "kidplan"
	schemaVersion = 1

	taskSourceCalendar = "calendar"
	taskStatusPending  = "pending"
)

// Store keeps the per-child import log and task list in SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and applies
// pending schema migrations.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("store: database path is empty")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("store: create data dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	// A single connection keeps ":memory:" databases alive and serializes writers.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS db_version (
		name TEXT PRIMARY KEY,
		version INTEGER NOT NULL
	)`); err != nil {
		return fmt.Errorf("store: create db_version: %w", err)
	}

	var version int
	err := s.db.QueryRowContext(ctx, `SELECT version FROM db_version WHERE name = ?`, schemaName).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		if _, err := s.db.ExecContext(ctx, `INSERT INTO db_version (name, version) VALUES (?, 0)`, schemaName); err != nil {
			return fmt.Errorf("store: init db_version: %w", err)
		}
		version = 0
	} else if err != nil {
		return fmt.Errorf("store: read db_version: %w", err)
	}

	if version < 1 {
		stmts := []string{
			`CREATE TABLE IF NOT EXISTS calendar_log (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				child_id TEXT NOT NULL,
				title TEXT NOT NULL,
				duration REAL NOT NULL,
				created_at TEXT NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS ix_calendar_log_child ON calendar_log (child_id, id)`,
			`CREATE TABLE IF NOT EXISTS child_tasks (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				child_id TEXT NOT NULL,
				name TEXT NOT NULL,
				duration REAL NOT NULL,
				source TEXT NOT NULL,
				status TEXT NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS ix_child_tasks_child ON child_tasks (child_id, id)`,
			`UPDATE db_version SET version = 1 WHERE name = 'kidplan'`,
		}
		for _, stmt := range stmts {
			if _, err := s.db.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("store: migrate to v1: %w", err)
			}
		}
		appLog.Info("store: schema migrated", "version", schemaVersion)
	}
	return nil
}

// AppendImport records an import in the child's log and adds a pending
// task for it, atomically.
func (s *Store) AppendImport(ctx context.Context, childID, title string, duration float64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO calendar_log (child_id, title, duration, created_at) VALUES (?, ?, ?, ?)`,
		childID, title, duration, time.Now().UTC().Format(time.RFC3339Nano),
	); err != nil {
		return fmt.Errorf("store: insert log entry: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO child_tasks (child_id, name, duration, source, status) VALUES (?, ?, ?, ?, ?)`,
		childID, title, duration, taskSourceCalendar, taskStatusPending,
	); err != nil {
		return fmt.Errorf("store: insert task: %w", err)
	}

	return tx.Commit()
}

// Log returns the child's import log in insertion order.
func (s *Store) Log(ctx context.Context, childID string) ([]model.LogEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT title, duration FROM calendar_log WHERE child_id = ? ORDER BY id`, childID)
	if err != nil {
		return nil, fmt.Errorf("store: query log: %w", err)
	}
	defer rows.Close()

	out := []model.LogEntry{}
	for rows.Next() {
		var e model.LogEntry
		if err := rows.Scan(&e.Title, &e.Duration); err != nil {
			return nil, fmt.Errorf("store: scan log: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Tasks returns the child's task list in insertion order.
func (s *Store) Tasks(ctx context.Context, childID string) ([]model.ChildTask, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, duration, source, status FROM child_tasks WHERE child_id = ? ORDER BY id`, childID)
	if err != nil {
		return nil, fmt.Errorf("store: query tasks: %w", err)
	}
	defer rows.Close()

	out := []model.ChildTask{}
	for rows.Next() {
		var task model.ChildTask
		if err := rows.Scan(&task.Name, &task.Duration, &task.Source, &task.Status); err != nil {
			return nil, fmt.Errorf("store: scan task: %w", err)
		}
		out = append(out, task)
	}
	return out, rows.Err()
}

// Rename updates the first log entry titled oldTitle and the first task
// named oldTitle. The task is optional; the log entry is not.
func (s *Store) Rename(ctx context.Context, childID, oldTitle, newTitle string, newDuration float64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `UPDATE calendar_log SET title = ?, duration = ?
		WHERE id = (SELECT id FROM calendar_log WHERE child_id = ? AND title = ? ORDER BY id LIMIT 1)`,
		newTitle, newDuration, childID, oldTitle)
	if err != nil {
		return fmt.Errorf("store: update log entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: update log entry: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}

	if _, err := tx.ExecContext(ctx, `UPDATE child_tasks SET name = ?, duration = ?
		WHERE id = (SELECT id FROM child_tasks WHERE child_id = ? AND name = ? ORDER BY id LIMIT 1)`,
		newTitle, newDuration, childID, oldTitle); err != nil {
		return fmt.Errorf("store: update task: %w", err)
	}

	return tx.Commit()
}
