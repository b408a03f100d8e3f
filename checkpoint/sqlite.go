package checkpoint

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/NikhilKumarMandal/multi-agent-system/core"
)

// SQLiteStore persists checkpoints in a SQLite database file, one row per
// thread holding the full history envelope.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (and creates if needed) the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, errors.New("checkpoint: sqlite path is empty")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One writer keeps SQLite free of SQLITE_BUSY under concurrent turns.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &SQLiteStore{db: db}

	if err := store.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS checkpoints (
		thread_id TEXT PRIMARY KEY,
		messages TEXT NOT NULL,
		version INTEGER NOT NULL,
		updated_at DATETIME NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Load returns the thread's history, or an empty history if unseen.
func (s *SQLiteStore) Load(ctx context.Context, threadID string) ([]core.Message, error) {
	if err := checkThreadID(threadID); err != nil {
		return nil, err
	}

	var data string
	err := s.db.QueryRowContext(ctx, `SELECT messages FROM checkpoints WHERE thread_id = ?`, threadID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return []core.Message{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load checkpoint %q: %w", threadID, err)
	}

	return Decode([]byte(data))
}

// Save replaces the thread's history in a single upsert statement.
func (s *SQLiteStore) Save(ctx context.Context, threadID string, msgs []core.Message) error {
	if err := checkThreadID(threadID); err != nil {
		return err
	}

	data, err := Encode(msgs)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO checkpoints (thread_id, messages, version, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(thread_id) DO UPDATE SET
			messages = excluded.messages,
			version = excluded.version,
			updated_at = excluded.updated_at
	`, threadID, string(data), CurrentVersion, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to save checkpoint %q: %w", threadID, err)
	}

	return nil
}

// Threads lists thread ids, most recently updated first.
func (s *SQLiteStore) Threads(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT thread_id FROM checkpoints ORDER BY updated_at DESC, thread_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list threads: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

// Delete drops a thread.
func (s *SQLiteStore) Delete(ctx context.Context, threadID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM checkpoints WHERE thread_id = ?`, threadID); err != nil {
		return fmt.Errorf("failed to delete checkpoint %q: %w", threadID, err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

var (
	_ Store   = (*SQLiteStore)(nil)
	_ Lister  = (*SQLiteStore)(nil)
	_ Deleter = (*SQLiteStore)(nil)
)
