// Package sqlite provides a SQLite-backed submission store for local runs
// without PostgreSQL.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"leadwizard/api/services/storage"
)

const schema = `
CREATE TABLE IF NOT EXISTS lead_submissions (
    id           TEXT    PRIMARY KEY,
    variant      TEXT    NOT NULL,
    payload      TEXT    NOT NULL,
    submitted_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS lead_submissions_variant_submitted_at_idx
    ON lead_submissions (variant, submitted_at DESC);
`

// Store persists submissions in SQLite.
type Store struct {
	sqlDB *sql.DB
}

var _ storage.Storage = (*Store)(nil)

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite submission store and applies the schema.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// SaveSubmission inserts one submission.
func (s *Store) SaveSubmission(ctx context.Context, sub storage.Submission) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if sub.ID == uuid.Nil {
		return fmt.Errorf("submission id is required")
	}
	if !json.Valid(sub.Payload) {
		return fmt.Errorf("submission payload is not valid JSON")
	}
	submittedAt := sub.SubmittedAt
	if submittedAt.IsZero() {
		submittedAt = time.Now()
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO lead_submissions (id, variant, payload, submitted_at)
		 VALUES (?, ?, ?, ?)`,
		sub.ID.String(),
		sub.Variant,
		string(sub.Payload),
		toMillis(submittedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", storage.ErrAlreadyExists, sub.ID)
		}
		return fmt.Errorf("save submission: %w", err)
	}
	return nil
}

// GetSubmission returns one submission by id.
func (s *Store) GetSubmission(ctx context.Context, id uuid.UUID) (*storage.Submission, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT variant, payload, submitted_at
		   FROM lead_submissions
		  WHERE id = ?`,
		id.String(),
	)

	sub := storage.Submission{ID: id}
	var payload string
	var submittedAt int64
	if err := row.Scan(&sub.Variant, &payload, &submittedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, id)
		}
		return nil, fmt.Errorf("get submission: %w", err)
	}
	sub.Payload = json.RawMessage(payload)
	sub.SubmittedAt = fromMillis(submittedAt)
	return &sub, nil
}

// ListSubmissions returns up to limit submissions, newest first. An empty
// variant lists every variant.
func (s *Store) ListSubmissions(ctx context.Context, variant string, limit int) ([]storage.Submission, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than zero")
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT id, variant, payload, submitted_at
		   FROM lead_submissions
		  WHERE ? = '' OR variant = ?
		  ORDER BY submitted_at DESC, id ASC
		  LIMIT ?`,
		variant,
		variant,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	defer rows.Close()

	out := make([]storage.Submission, 0, limit)
	for rows.Next() {
		var (
			sub         storage.Submission
			id          string
			payload     string
			submittedAt int64
		)
		if err := rows.Scan(&id, &sub.Variant, &payload, &submittedAt); err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		if sub.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("parse submission id %q: %w", id, err)
		}
		sub.Payload = json.RawMessage(payload)
		sub.SubmittedAt = fromMillis(submittedAt)
		out = append(out, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate submissions: %w", err)
	}
	return out, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}
