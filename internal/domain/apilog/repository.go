// Package apilog persists an audit row per map-provider call so provider
// incidents stay diagnosable after the fact.
package apilog

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// Entry is one provider call outcome keyed to the acting user.
type Entry struct {
	RequestURL string
	StatusCode int
	Reason     string
	Payload    string
	UserID     uuid.UUID
}

type Repository interface {
	Create(ctx context.Context, entry Entry) error
}

// PGXExec is the pool subset this repository uses.
type PGXExec interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

var _ Repository = (*RepositoryImpl)(nil)

type RepositoryImpl struct {
	logger *slog.Logger
	pgpool PGXExec
}

func NewRepositoryImpl(pool PGXExec, logger *slog.Logger) *RepositoryImpl {
	return &RepositoryImpl{
		logger: logger,
		pgpool: pool,
	}
}

func (r *RepositoryImpl) Create(ctx context.Context, entry Entry) error {
	// Anonymous calls carry no user; store NULL rather than a zero UUID.
	var userID any
	if entry.UserID != uuid.Nil {
		userID = entry.UserID
	}
	_, err := r.pgpool.Exec(ctx, `
        INSERT INTO google_maps_api_logs (request_url, status_code, reason, payload, user_id, created_at)
        VALUES ($1, $2, $3, $4, $5, NOW())`,
		entry.RequestURL, entry.StatusCode, entry.Reason, entry.Payload, userID)
	if err != nil {
		return fmt.Errorf("writing api log: %w", err)
	}
	return nil
}

// NopRepository discards audit rows. Used where no relational store is
// wired, e.g. unit tests.
type NopRepository struct{}

func (NopRepository) Create(context.Context, Entry) error { return nil }
