// Package history persists completed session transcripts to SQLite.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Entry is one completed session as stored.
type Entry struct {
	ID           int64
	StartedAt    time.Time
	CompletedAt  time.Time
	Language     string
	Chunks       int
	FailedChunks int
	DurationSec  float64
	Transcript   string
}

// Store is the completed-session transcript archive.
type Store struct {
	db *sql.DB
}

// Open creates or opens the history database and applies the schema.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("ensure history dir: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping history database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply history schema: %w", err)
	}

	return &Store{db: db}, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	started_at    REAL NOT NULL,
	completed_at  REAL NOT NULL,
	language      TEXT NOT NULL,
	chunks        INTEGER NOT NULL,
	failed_chunks INTEGER NOT NULL,
	duration_sec  REAL NOT NULL,
	transcript    TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sessions_completed_at ON sessions(completed_at DESC);
`

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Insert records one completed session and returns its row id.
func (s *Store) Insert(ctx context.Context, entry Entry) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (started_at, completed_at, language, chunks, failed_chunks, duration_sec, transcript)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		unixFloat(entry.StartedAt),
		unixFloat(entry.CompletedAt),
		entry.Language,
		entry.Chunks,
		entry.FailedChunks,
		entry.DurationSec,
		entry.Transcript,
	)
	if err != nil {
		return 0, fmt.Errorf("insert session: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("read inserted session id: %w", err)
	}
	return id, nil
}

// Recent returns the newest completed sessions, most recent first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, started_at, completed_at, language, chunks, failed_chunks, duration_sec, transcript
		FROM sessions
		ORDER BY completed_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent sessions: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var entry Entry
		var startedAt, completedAt float64
		if err := rows.Scan(&entry.ID, &startedAt, &completedAt, &entry.Language,
			&entry.Chunks, &entry.FailedChunks, &entry.DurationSec, &entry.Transcript); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		entry.StartedAt = timeFromUnix(startedAt)
		entry.CompletedAt = timeFromUnix(completedAt)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func unixFloat(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

func timeFromUnix(seconds float64) time.Time {
	return time.Unix(0, int64(seconds*float64(time.Second))).UTC()
}
