package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// SQLite is a Store backed by a single SQLite table
type SQLite struct {
	db   *sql.DB
	opts options
}

// NewSQLite opens (creating if needed) the database at path
func NewSQLite(path string, opts ...Option) (*SQLite, error) {
	if path == "" {
		return nil, errors.New("sqlite path cannot be empty")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	// a single writer connection keeps id assignment serialized
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to SQLite database: %w", err)
	}

	s := &SQLite{db: db, opts: buildOptions(opts)}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *SQLite) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS seo_analyses (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			url TEXT NOT NULL,
			payload BLOB NOT NULL,
			created_at TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_seo_analyses_url ON seo_analyses(url);
		CREATE INDEX IF NOT EXISTS idx_seo_analyses_created_at ON seo_analyses(created_at);
	`)
	return err
}

// Append inserts rec and returns it with the assigned id
func (s *SQLite) Append(ctx context.Context, rec Record) (StoredRecord, error) {
	payload, err := json.Marshal(rec)
	if err != nil {
		return StoredRecord{}, fmt.Errorf("failed to marshal record: %w", err)
	}
	createdAt := formatCreatedAt(s.opts.now())

	res, err := s.db.ExecContext(ctx,
		"INSERT INTO seo_analyses (url, payload, created_at) VALUES (?, ?, ?)",
		rec.URL, payload, createdAt)
	if err != nil {
		return StoredRecord{}, fmt.Errorf("failed to insert record: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return StoredRecord{}, fmt.Errorf("failed to read record id: %w", err)
	}

	return StoredRecord{ID: id, Record: cloneRecord(rec), CreatedAt: createdAt}, nil
}

// ListRecent returns up to limit records, most recent first
func (s *SQLite) ListRecent(ctx context.Context, limit int) ([]StoredRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, payload, created_at FROM seo_analyses ORDER BY created_at DESC, id DESC LIMIT ?",
		normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	records := []StoredRecord{}
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate records: %w", err)
	}
	return records, nil
}

// Get returns the record with the given id
func (s *SQLite) Get(ctx context.Context, id int64) (StoredRecord, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, payload, created_at FROM seo_analyses WHERE id = ?", id)
	return scanRecord(row)
}

// FindByURL returns the first record stored for url
func (s *SQLite) FindByURL(ctx context.Context, url string) (StoredRecord, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, payload, created_at FROM seo_analyses WHERE url = ? ORDER BY id ASC LIMIT 1", url)
	return scanRecord(row)
}

// Close closes the database
func (s *SQLite) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (StoredRecord, error) {
	var (
		r       StoredRecord
		payload []byte
	)
	if err := row.Scan(&r.ID, &payload, &r.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return StoredRecord{}, ErrNotFound
		}
		return StoredRecord{}, fmt.Errorf("failed to scan record: %w", err)
	}
	if err := json.Unmarshal(payload, &r.Record); err != nil {
		return StoredRecord{}, fmt.Errorf("failed to decode record %d: %w", r.ID, err)
	}
	return r, nil
}
