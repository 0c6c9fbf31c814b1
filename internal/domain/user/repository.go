// Package user is the read/write side of the per-user signals the
// recommender consumes: interest marks, search history, preferred types.
// Account lifecycle lives elsewhere.
package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"github.com/f-lab-edu/Meet-Up-Spot/internal/types"
)

var _ Repository = (*RepositoryImpl)(nil)

type Repository interface {
	GetByID(ctx context.Context, userID uuid.UUID) (*types.User, error)

	// GetSignals loads everything the scoring step reads for one user.
	GetSignals(ctx context.Context, userID uuid.UUID) (*types.UserSignals, error)

	AddSearchHistory(ctx context.Context, userID uuid.UUID, addresses []string) error
	HasInterest(ctx context.Context, userID uuid.UUID, placeRowID int64) (bool, error)
	MarkInterest(ctx context.Context, userID uuid.UUID, placeRowID int64) error
	UnmarkInterest(ctx context.Context, userID uuid.UUID, placeRowID int64) error
}

// PGXPool is the pool subset this repository uses.
type PGXPool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type RepositoryImpl struct {
	logger *slog.Logger
	pgpool PGXPool
}

func NewRepositoryImpl(pool PGXPool, logger *slog.Logger) *RepositoryImpl {
	return &RepositoryImpl{
		logger: logger,
		pgpool: pool,
	}
}

func (r *RepositoryImpl) GetByID(ctx context.Context, userID uuid.UUID) (*types.User, error) {
	var u types.User
	err := r.pgpool.QueryRow(ctx,
		`SELECT id, email, full_name, is_active FROM users WHERE id = $1`, userID,
	).Scan(&u.ID, &u.Email, &u.FullName, &u.IsActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user %s: %w", userID, types.ErrNotFound)
		}
		return nil, fmt.Errorf("loading user %s: %w", userID, err)
	}
	return &u, nil
}

// GetSignals implements Repository. Preferred types are derived as the
// union of place types over the user's interested places.
func (r *RepositoryImpl) GetSignals(ctx context.Context, userID uuid.UUID) (*types.UserSignals, error) {
	ctx, span := otel.Tracer("UserRepo").Start(ctx, "GetSignals")
	defer span.End()

	signals := &types.UserSignals{
		InterestedPlaceIDs: make(map[string]struct{}),
		PreferredTypes:     make(map[string]struct{}),
	}

	rows, err := r.pgpool.Query(ctx, `
        SELECT p.place_id
        FROM user_interested_places uip
        JOIN places p ON p.id = uip.place_id
        WHERE uip.user_id = $1`, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "interested places query failed")
		return nil, fmt.Errorf("loading interested places: %w", err)
	}
	for rows.Next() {
		var placeID string
		if err := rows.Scan(&placeID); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning interested place: %w", err)
		}
		signals.InterestedPlaceIDs[placeID] = struct{}{}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading interested places: %w", err)
	}

	rows, err = r.pgpool.Query(ctx, `
        SELECT DISTINCT pt.type_name
        FROM user_interested_places uip
        JOIN place_type_associations pta ON pta.place_id = uip.place_id
        JOIN place_types pt ON pt.id = pta.place_type_id
        WHERE uip.user_id = $1`, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "preferred types query failed")
		return nil, fmt.Errorf("loading preferred types: %w", err)
	}
	for rows.Next() {
		var typeName string
		if err := rows.Scan(&typeName); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning preferred type: %w", err)
		}
		signals.PreferredTypes[typeName] = struct{}{}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading preferred types: %w", err)
	}

	rows, err = r.pgpool.Query(ctx, `
        SELECT id, user_id, address, created_at
        FROM user_search_history
        WHERE user_id = $1
        ORDER BY created_at`, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "search history query failed")
		return nil, fmt.Errorf("loading search history: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var h types.SearchHistory
		if err := rows.Scan(&h.ID, &h.UserID, &h.Address, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning search history: %w", err)
		}
		signals.SearchHistory = append(signals.SearchHistory, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading search history: %w", err)
	}

	span.SetStatus(codes.Ok, "Signals loaded")
	return signals, nil
}

func (r *RepositoryImpl) AddSearchHistory(ctx context.Context, userID uuid.UUID, addresses []string) error {
	for _, address := range addresses {
		_, err := r.pgpool.Exec(ctx, `
            INSERT INTO user_search_history (user_id, address, created_at)
            VALUES ($1, $2, NOW())`, userID, address)
		if err != nil {
			return fmt.Errorf("recording search of %q: %w", address, err)
		}
	}
	return nil
}

func (r *RepositoryImpl) HasInterest(ctx context.Context, userID uuid.UUID, placeRowID int64) (bool, error) {
	var exists bool
	err := r.pgpool.QueryRow(ctx, `
        SELECT EXISTS (
            SELECT 1 FROM user_interested_places WHERE user_id = $1 AND place_id = $2
        )`, userID, placeRowID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking interest: %w", err)
	}
	return exists, nil
}

func (r *RepositoryImpl) MarkInterest(ctx context.Context, userID uuid.UUID, placeRowID int64) error {
	_, err := r.pgpool.Exec(ctx, `
        INSERT INTO user_interested_places (user_id, place_id)
        VALUES ($1, $2)`, userID, placeRowID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("place already marked: %w", types.ErrConflict)
		}
		return fmt.Errorf("marking interest: %w", err)
	}
	return nil
}

func (r *RepositoryImpl) UnmarkInterest(ctx context.Context, userID uuid.UUID, placeRowID int64) error {
	tag, err := r.pgpool.Exec(ctx, `
        DELETE FROM user_interested_places WHERE user_id = $1 AND place_id = $2`, userID, placeRowID)
	if err != nil {
		return fmt.Errorf("unmarking interest: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("place not marked: %w", types.ErrNotFound)
	}
	return nil
}
