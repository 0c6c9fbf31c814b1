// Package places persists and deduplicates Location and Place entities.
// It is the only point in the recommendation pipeline that commits writes.
package places

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/f-lab-edu/Meet-Up-Spot/internal/types"
)

// Repository is the PlaceStore contract. Both calls are idempotent:
// repeating them with the same input never creates duplicate rows.
type Repository interface {
	// GetOrCreateLocations bulk-looks-up the candidates' coordinates,
	// inserts the ones not present, and returns existing plus new rows.
	GetOrCreateLocations(ctx context.Context, candidates []types.NearbyPlace) ([]types.Location, error)

	// GetOrCreatePlaces does the same keyed by provider place id, creating
	// place-type associations against the deduplicated type vocabulary.
	// locationIDs maps each candidate's coordinates to its Location row.
	GetOrCreatePlaces(ctx context.Context, candidates []types.NearbyPlace, locationIDs map[types.LatLng]int64) ([]types.Place, error)

	GetByPlaceID(ctx context.Context, placeID string) (*types.Place, error)
	UpdateAddress(ctx context.Context, placeID, address string) error
	List(ctx context.Context) ([]types.Place, error)
}

// PGXPool is the subset of pgxpool.Pool the repository needs; pgxmock
// satisfies it in tests.
type PGXPool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
	Begin(ctx context.Context) (pgx.Tx, error)
}

// LocationIDMap indexes materialized locations by their exact coordinates
// so places can be joined to them in the next step.
func LocationIDMap(locations []types.Location) map[types.LatLng]int64 {
	ids := make(map[types.LatLng]int64, len(locations))
	for _, loc := range locations {
		ids[types.LatLng{Lat: loc.Latitude, Lng: loc.Longitude}] = loc.ID
	}
	return ids
}
