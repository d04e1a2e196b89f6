// Package store keeps terminal validation records so they can be looked up
// and retried by id.
//
// SQLiteStore is safe for concurrent use. Each record is one row holding the
// article and the result as JSON documents.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ppiankov/credence/internal/model"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver (no CGO required)
)

// ErrNotFound is returned when no record exists for an id
var ErrNotFound = errors.New("validation not found")

// Record is one stored validation
type Record struct {
	Article model.Article
	Result  *model.ValidationResult
}

// SQLiteStore persists validation records in SQLite
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at path and applies migrations.
// ":memory:" gives a private in-process database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if path == ":memory:" {
		// every pooled connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	} else if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS validations (
		id TEXT PRIMARY KEY,
		fingerprint TEXT NOT NULL,
		status TEXT NOT NULL,
		article TEXT NOT NULL,
		result TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_validations_fingerprint ON validations(fingerprint, updated_at DESC);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Save inserts or replaces the record for result.ID
func (s *SQLiteStore) Save(ctx context.Context, article model.Article, result *model.ValidationResult) error {
	articleJSON, resultJSON, err := encodeRecord(article, result)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO validations (id, fingerprint, status, article, result, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			article = excluded.article,
			result = excluded.result,
			updated_at = excluded.updated_at`,
		result.ID, result.Fingerprint, string(result.Status),
		articleJSON, resultJSON,
		result.CreatedAt.UTC(), time.Now().UnixNano())
	if err != nil {
		return fmt.Errorf("save validation %s: %w", result.ID, err)
	}
	return nil
}

// Create inserts the record unless one already exists for result.ID. It
// reports whether a row was written; an existing record is never modified.
func (s *SQLiteStore) Create(ctx context.Context, article model.Article, result *model.ValidationResult) (bool, error) {
	articleJSON, resultJSON, err := encodeRecord(article, result)
	if err != nil {
		return false, err
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO validations (id, fingerprint, status, article, result, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING`,
		result.ID, result.Fingerprint, string(result.Status),
		articleJSON, resultJSON,
		result.CreatedAt.UTC(), time.Now().UnixNano())
	if err != nil {
		return false, fmt.Errorf("create validation %s: %w", result.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("create validation %s: %w", result.ID, err)
	}
	return n > 0, nil
}

func encodeRecord(article model.Article, result *model.ValidationResult) (string, string, error) {
	articleJSON, err := json.Marshal(article)
	if err != nil {
		return "", "", fmt.Errorf("marshal article: %w", err)
	}
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return "", "", fmt.Errorf("marshal result: %w", err)
	}
	return string(articleJSON), string(resultJSON), nil
}

// Get returns the record stored under id, or ErrNotFound
func (s *SQLiteStore) Get(ctx context.Context, id string) (*Record, error) {
	row := s.db.QueryRowContext(ctx, `SELECT article, result FROM validations WHERE id = ?`, id)
	return scanRecord(row)
}

// Latest returns the most recently updated record for a fingerprint
func (s *SQLiteStore) Latest(ctx context.Context, fp string) (*Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT article, result FROM validations
		WHERE fingerprint = ?
		ORDER BY updated_at DESC LIMIT 1`, fp)
	return scanRecord(row)
}

// List returns up to limit records for a fingerprint, most recently
// updated first. A limit of zero or less returns all of them.
func (s *SQLiteStore) List(ctx context.Context, fp string, limit int) ([]*Record, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT article, result FROM validations
		WHERE fingerprint = ?
		ORDER BY updated_at DESC LIMIT ?`, fp, limit)
	if err != nil {
		return nil, fmt.Errorf("list validations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Count returns the number of stored records
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM validations`).Scan(&n)
	return n, err
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row scanner) (*Record, error) {
	var articleJSON, resultJSON string
	if err := row.Scan(&articleJSON, &resultJSON); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	rec := &Record{}
	if err := json.Unmarshal([]byte(articleJSON), &rec.Article); err != nil {
		return nil, fmt.Errorf("decode article: %w", err)
	}
	if err := json.Unmarshal([]byte(resultJSON), &rec.Result); err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}
	return rec, nil
}
