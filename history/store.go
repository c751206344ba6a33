// Package history is the durable log of completed transcriptions.
// Records are append-only; the store returns them in insertion order
// and leaves presentation ordering to the caller.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver.
)

// ErrStorageUnavailable marks persistence failures the recording
// pipeline must treat as non-fatal: the transcript is still delivered
// live even when it cannot be saved.
var ErrStorageUnavailable = errors.New("history: storage unavailable")

type Record struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	AudioPath string    `json:"audio_path,omitempty"`
	Text      string    `json:"text"`
}

type Store struct {
	db *sql.DB
}

// DefaultPath returns the database location under the platform config
// dir.
func DefaultPath() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "murmur", "history.sqlite"), nil
}

// Open opens or creates the database and applies migrations.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS transcriptions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp TEXT NOT NULL,
		audio_path TEXT NOT NULL DEFAULT '',
		text TEXT NOT NULL
	);`)
	return err
}

// Append writes one completed transcription and returns it with the
// storage-assigned id. The record is never mutated afterwards.
func (s *Store) Append(ctx context.Context, rec Record) (Record, error) {
	if s == nil {
		return Record{}, ErrStorageUnavailable
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO transcriptions (timestamp, audio_path, text) VALUES (?, ?, ?)`,
		rec.Timestamp.UTC().Format(time.RFC3339Nano), rec.AudioPath, rec.Text,
	)
	if err != nil {
		return Record{}, fmt.Errorf("%w: insert: %v", ErrStorageUnavailable, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Record{}, fmt.Errorf("%w: last id: %v", ErrStorageUnavailable, err)
	}
	rec.ID = id
	return rec, nil
}

// List returns every record in insertion order.
func (s *Store) List(ctx context.Context) ([]Record, error) {
	if s == nil {
		return nil, ErrStorageUnavailable
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, timestamp, audio_path, text FROM transcriptions ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("%w: query: %v", ErrStorageUnavailable, err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var ts string
		if err := rows.Scan(&rec.ID, &ts, &rec.AudioPath, &rec.Text); err != nil {
			return nil, fmt.Errorf("%w: scan: %v", ErrStorageUnavailable, err)
		}
		rec.Timestamp, err = time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("%w: timestamp %q: %v", ErrStorageUnavailable, ts, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return records, nil
}

// Count returns the number of stored records.
func (s *Store) Count(ctx context.Context) (int, error) {
	if s == nil {
		return 0, ErrStorageUnavailable
	}
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transcriptions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: count: %v", ErrStorageUnavailable, err)
	}
	return n, nil
}
