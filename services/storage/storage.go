package storage

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// queryTimeout bounds a single storage round trip.
const queryTimeout = 5 * time.Second

var (
	// ErrNotFound is returned by every backend for a missing submission.
	ErrNotFound = errors.New("submission not found")
	// ErrAlreadyExists is returned when a submission id is stored twice.
	ErrAlreadyExists = errors.New("submission already exists")
)

// DB abstracts the database operations used by the storage layer.
// Satisfied by *pgxpool.Pool in production and pgxmock in tests.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Storage defines the interface for submission data access.
// The dispatcher writes through it; the admin listing reads through it.
type Storage interface {
	SaveSubmission(ctx context.Context, s Submission) error
	GetSubmission(ctx context.Context, id uuid.UUID) (*Submission, error)
	// ListSubmissions returns the newest submissions first. An empty
	// variant lists every variant.
	ListSubmissions(ctx context.Context, variant string, limit int) ([]Submission, error)
}

//go:embed schema.sql
var schemaSQL string

// PgStorage implements the Storage interface using PostgreSQL.
type PgStorage struct {
	DB DB
}

// NewInstance creates a new PostgreSQL-backed Storage implementation.
func NewInstance(db DB) (*PgStorage, error) {
	if db == nil {
		return nil, fmt.Errorf("repository: db connection cannot be nil")
	}
	return &PgStorage{DB: db}, nil
}

// Migrate creates the submissions table when it does not exist yet.
func (r *PgStorage) Migrate(ctx context.Context) error {
	timeoutCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if _, err := r.DB.Exec(timeoutCtx, schemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// SaveSubmission inserts one submission. Stored submissions are never updated.
func (r *PgStorage) SaveSubmission(ctx context.Context, s Submission) error {
	timeoutCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := r.DB.Exec(timeoutCtx, `
        INSERT INTO lead_submissions (id, variant, payload, submitted_at)
        VALUES ($1, $2, $3, $4)`,
		s.ID, s.Variant, s.Payload, s.SubmittedAt.UTC())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("%w: %s", ErrAlreadyExists, s.ID)
		}
		return fmt.Errorf("failed to insert submission: %w", err)
	}
	return nil
}

// GetSubmission fetches one submission by id. A missing row matches both
// ErrNotFound and pgx.ErrNoRows.
func (r *PgStorage) GetSubmission(ctx context.Context, id uuid.UUID) (*Submission, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	s := &Submission{ID: id}
	err := r.DB.QueryRow(timeoutCtx, `
        SELECT variant, payload, submitted_at
        FROM lead_submissions
        WHERE id = $1`,
		id).Scan(&s.Variant, &s.Payload, &s.SubmittedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %w", ErrNotFound, err)
		}
		return nil, err
	}
	return s, nil
}

// ListSubmissions returns up to limit submissions, newest first.
func (r *PgStorage) ListSubmissions(ctx context.Context, variant string, limit int) ([]Submission, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than zero")
	}
	timeoutCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	// $1 = '' lists every variant.
	rows, err := r.DB.Query(timeoutCtx, `
        SELECT id, variant, payload, submitted_at
        FROM lead_submissions
        WHERE $1 = '' OR variant = $1
        ORDER BY submitted_at DESC
        LIMIT $2`,
		variant, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Submission{}
	for rows.Next() {
		var s Submission
		if err := rows.Scan(&s.ID, &s.Variant, &s.Payload, &s.SubmittedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
