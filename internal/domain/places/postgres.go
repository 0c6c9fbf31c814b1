package places

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/f-lab-edu/Meet-Up-Spot/internal/types"
)

var _ Repository = (*PostgresRepository)(nil)

const placeSelectWithTypes = `
        SELECT p.id, p.place_id, p.name, p.address, p.rating, p.user_ratings_total, p.location_id,
               COALESCE(array_agg(pt.type_name ORDER BY pt.type_name) FILTER (WHERE pt.type_name IS NOT NULL), '{}')
        FROM places p
        LEFT JOIN place_type_associations pta ON pta.place_id = p.id
        LEFT JOIN place_types pt ON pt.id = pta.place_type_id`

// PostgresRepository implements Repository on the relational store.
//
// Duplicate-key violations are deliberately not caught here: the batched
// existing/new split is supposed to prevent them, so a violation signals a
// real race or logic bug and must surface.
type PostgresRepository struct {
	logger *slog.Logger
	pgpool PGXPool
}

func NewPostgresRepository(pool PGXPool, logger *slog.Logger) *PostgresRepository {
	return &PostgresRepository{
		logger: logger,
		pgpool: pool,
	}
}

// GetOrCreateLocations implements Repository.
func (r *PostgresRepository) GetOrCreateLocations(ctx context.Context, candidates []types.NearbyPlace) ([]types.Location, error) {
	ctx, span := otel.Tracer("PlaceStore").Start(ctx, "GetOrCreateLocations", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "locations"),
		attribute.Int("candidates.count", len(candidates)),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "GetOrCreateLocations"))

	keys := uniqueLatLngs(candidates)
	if len(keys) == 0 {
		return nil, nil
	}

	existing, err := r.locationsByLatLng(ctx, keys)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB SELECT failed")
		return nil, fmt.Errorf("looking up existing locations: %w", err)
	}

	byKey := make(map[types.LatLng]types.Location, len(existing))
	for _, loc := range existing {
		byKey[types.LatLng{Lat: loc.Latitude, Lng: loc.Longitude}] = loc
	}

	var missing []types.NearbyPlace
	seen := make(map[types.LatLng]struct{})
	for _, candidate := range candidates {
		key := candidate.LatLngKey()
		if _, ok := byKey[key]; ok {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		missing = append(missing, candidate)
	}

	if len(missing) > 0 {
		batch := &pgx.Batch{}
		insert := `
            INSERT INTO locations (latitude, longitude, compound_code, global_code)
            VALUES ($1, $2, $3, $4)`
		for _, candidate := range missing {
			batch.Queue(insert, candidate.Latitude, candidate.Longitude, candidate.CompoundCode, candidate.GlobalCode)
		}
		if err := r.sendBatch(ctx, batch); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "DB bulk INSERT failed")
			return nil, fmt.Errorf("bulk inserting locations: %w", err)
		}

		// Re-read for the generated identifiers.
		created, err := r.locationsByLatLng(ctx, keys)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "DB re-read failed")
			return nil, fmt.Errorf("re-reading inserted locations: %w", err)
		}
		byKey = make(map[types.LatLng]types.Location, len(created))
		for _, loc := range created {
			byKey[types.LatLng{Lat: loc.Latitude, Lng: loc.Longitude}] = loc
		}
	}

	locations := make([]types.Location, 0, len(keys))
	for _, key := range keys {
		loc, ok := byKey[key]
		if !ok {
			span.SetStatus(codes.Error, "location missing after insert")
			return nil, fmt.Errorf("location (%v,%v) missing after insert: %w", key.Lat, key.Lng, types.ErrNotFound)
		}
		locations = append(locations, loc)
	}

	l.DebugContext(ctx, "locations materialized",
		slog.Int("existing", len(existing)), slog.Int("created", len(missing)))
	span.SetAttributes(attribute.Int("locations.created", len(missing)))
	span.SetStatus(codes.Ok, "Locations materialized")
	return locations, nil
}

// GetOrCreatePlaces implements Repository.
func (r *PostgresRepository) GetOrCreatePlaces(ctx context.Context, candidates []types.NearbyPlace, locationIDs map[types.LatLng]int64) ([]types.Place, error) {
	ctx, span := otel.Tracer("PlaceStore").Start(ctx, "GetOrCreatePlaces", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "places"),
		attribute.Int("candidates.count", len(candidates)),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "GetOrCreatePlaces"))

	ordered := dedupeByPlaceID(candidates)
	if len(ordered) == 0 {
		return nil, nil
	}

	ids := make([]string, len(ordered))
	for i, candidate := range ordered {
		ids[i] = candidate.PlaceID
	}

	existing, err := r.placesByPlaceID(ctx, ids)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB SELECT failed")
		return nil, fmt.Errorf("looking up existing places: %w", err)
	}

	byID := make(map[string]types.Place, len(existing))
	for _, place := range existing {
		byID[place.PlaceID] = place
	}

	var missing []types.NearbyPlace
	for _, candidate := range ordered {
		if _, ok := byID[candidate.PlaceID]; !ok {
			missing = append(missing, candidate)
		}
	}

	if len(missing) > 0 {
		if err := r.insertPlaces(ctx, missing, locationIDs); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "DB bulk INSERT failed")
			return nil, err
		}

		created, err := r.placesByPlaceID(ctx, ids)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "DB re-read failed")
			return nil, fmt.Errorf("re-reading inserted places: %w", err)
		}
		byID = make(map[string]types.Place, len(created))
		for _, place := range created {
			byID[place.PlaceID] = place
		}
	}

	result := make([]types.Place, 0, len(ordered))
	for _, candidate := range ordered {
		place, ok := byID[candidate.PlaceID]
		if !ok {
			span.SetStatus(codes.Error, "place missing after insert")
			return nil, fmt.Errorf("place %s missing after insert: %w", candidate.PlaceID, types.ErrNotFound)
		}
		result = append(result, place)
	}

	l.DebugContext(ctx, "places materialized",
		slog.Int("existing", len(existing)), slog.Int("created", len(missing)))
	span.SetAttributes(attribute.Int("places.created", len(missing)))
	span.SetStatus(codes.Ok, "Places materialized")
	return result, nil
}

// insertPlaces bulk-inserts new places with their type associations inside
// one transaction. The type vocabulary is deduplicated by name first.
func (r *PostgresRepository) insertPlaces(ctx context.Context, missing []types.NearbyPlace, locationIDs map[types.LatLng]int64) error {
	tx, err := r.pgpool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	typeIDs, err := r.ensurePlaceTypes(ctx, tx, missing)
	if err != nil {
		return err
	}

	insert := `
        INSERT INTO places (place_id, name, address, rating, user_ratings_total, location_id)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id`
	assoc := `
        INSERT INTO place_type_associations (place_id, place_type_id)
        VALUES ($1, $2)`

	assocBatch := &pgx.Batch{}
	for _, candidate := range missing {
		locationID, ok := locationIDs[candidate.LatLngKey()]
		if !ok {
			return fmt.Errorf("no location for place %s: %w", candidate.PlaceID, types.ErrBadRequest)
		}

		var placeRowID int64
		err := tx.QueryRow(ctx, insert,
			candidate.PlaceID, candidate.Name, candidate.Vicinity,
			candidate.Rating, candidate.UserRatingsTotal, locationID,
		).Scan(&placeRowID)
		if err != nil {
			return fmt.Errorf("inserting place %s: %w", candidate.PlaceID, err)
		}

		for _, typeName := range candidate.Types {
			typeID, ok := typeIDs[typeName]
			if !ok {
				return fmt.Errorf("place type %q missing after vocabulary insert: %w", typeName, types.ErrNotFound)
			}
			assocBatch.Queue(assoc, placeRowID, typeID)
		}
	}

	if assocBatch.Len() > 0 {
		br := tx.SendBatch(ctx, assocBatch)
		for i := 0; i < assocBatch.Len(); i++ {
			if _, err := br.Exec(); err != nil {
				_ = br.Close()
				return fmt.Errorf("inserting place type association (%d of %d): %w", i+1, assocBatch.Len(), err)
			}
		}
		if err := br.Close(); err != nil {
			return fmt.Errorf("closing association batch: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing place insert: %w", err)
	}
	return nil
}

// ensurePlaceTypes inserts only genuinely new type names and returns the
// full name -> id mapping for the candidates' types.
func (r *PostgresRepository) ensurePlaceTypes(ctx context.Context, tx pgx.Tx, candidates []types.NearbyPlace) (map[string]int64, error) {
	names := make([]string, 0)
	seen := make(map[string]struct{})
	for _, candidate := range candidates {
		for _, name := range candidate.Types {
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return map[string]int64{}, nil
	}

	lookup := `SELECT id, type_name FROM place_types WHERE type_name = ANY($1)`

	typeIDs := make(map[string]int64, len(names))
	rows, err := tx.Query(ctx, lookup, names)
	if err != nil {
		return nil, fmt.Errorf("looking up place types: %w", err)
	}
	for rows.Next() {
		var id int64
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning place type: %w", err)
		}
		typeIDs[name] = id
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading place types: %w", err)
	}

	for _, name := range names {
		if _, ok := typeIDs[name]; ok {
			continue
		}
		var id int64
		err := tx.QueryRow(ctx, `INSERT INTO place_types (type_name) VALUES ($1) RETURNING id`, name).Scan(&id)
		if err != nil {
			return nil, fmt.Errorf("inserting place type %q: %w", name, err)
		}
		typeIDs[name] = id
	}
	return typeIDs, nil
}

// GetByPlaceID implements Repository.
func (r *PostgresRepository) GetByPlaceID(ctx context.Context, placeID string) (*types.Place, error) {
	ctx, span := otel.Tracer("PlaceStore").Start(ctx, "GetByPlaceID", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "places"),
	))
	defer span.End()

	placesFound, err := r.placesByPlaceID(ctx, []string{placeID})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB SELECT failed")
		return nil, fmt.Errorf("looking up place %s: %w", placeID, err)
	}
	if len(placesFound) == 0 {
		span.SetStatus(codes.Error, "Place not found")
		return nil, fmt.Errorf("place %s: %w", placeID, types.ErrNotFound)
	}
	span.SetStatus(codes.Ok, "Place found")
	return &placesFound[0], nil
}

// UpdateAddress implements Repository. Used by the routes-matrix
// reconciliation when the distance-matrix formatted address disagrees with
// the stored vicinity text.
func (r *PostgresRepository) UpdateAddress(ctx context.Context, placeID, address string) error {
	ctx, span := otel.Tracer("PlaceStore").Start(ctx, "UpdateAddress", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "UPDATE"),
		attribute.String("db.sql.table", "places"),
	))
	defer span.End()

	tag, err := r.pgpool.Exec(ctx, `UPDATE places SET address = $1 WHERE place_id = $2`, address, placeID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB UPDATE failed")
		return fmt.Errorf("updating address of place %s: %w", placeID, err)
	}
	if tag.RowsAffected() == 0 {
		span.SetStatus(codes.Error, "Place not found")
		return fmt.Errorf("place %s: %w", placeID, types.ErrNotFound)
	}
	span.SetStatus(codes.Ok, "Address updated")
	return nil
}

// List implements Repository.
func (r *PostgresRepository) List(ctx context.Context) ([]types.Place, error) {
	ctx, span := otel.Tracer("PlaceStore").Start(ctx, "List", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "places"),
	))
	defer span.End()

	query := placeSelectWithTypes + `
        GROUP BY p.id
        ORDER BY p.id`
	rows, err := r.pgpool.Query(ctx, query)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB SELECT failed")
		return nil, fmt.Errorf("listing places: %w", err)
	}
	defer rows.Close()

	return scanPlaces(rows)
}

func (r *PostgresRepository) locationsByLatLng(ctx context.Context, keys []types.LatLng) ([]types.Location, error) {
	or := squirrel.Or{}
	for _, key := range keys {
		or = append(or, squirrel.Eq{"latitude": key.Lat, "longitude": key.Lng})
	}

	query, args, err := squirrel.
		Select("id", "latitude", "longitude", "compound_code", "global_code").
		From("locations").
		Where(or).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building location lookup: %w", err)
	}

	rows, err := r.pgpool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var locations []types.Location
	for rows.Next() {
		var loc types.Location
		if err := rows.Scan(&loc.ID, &loc.Latitude, &loc.Longitude, &loc.CompoundCode, &loc.GlobalCode); err != nil {
			return nil, err
		}
		locations = append(locations, loc)
	}
	return locations, rows.Err()
}

func (r *PostgresRepository) placesByPlaceID(ctx context.Context, placeIDs []string) ([]types.Place, error) {
	query := placeSelectWithTypes + `
        WHERE p.place_id = ANY($1)
        GROUP BY p.id`

	rows, err := r.pgpool.Query(ctx, query, placeIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanPlaces(rows)
}

func (r *PostgresRepository) sendBatch(ctx context.Context, batch *pgx.Batch) error {
	br := r.pgpool.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return fmt.Errorf("batch operation %d of %d: %w", i+1, batch.Len(), err)
		}
	}
	return br.Close()
}

func scanPlaces(rows pgx.Rows) ([]types.Place, error) {
	var result []types.Place
	for rows.Next() {
		var place types.Place
		if err := rows.Scan(
			&place.ID, &place.PlaceID, &place.Name, &place.Address,
			&place.Rating, &place.UserRatingsTotal, &place.LocationID, &place.PlaceTypes,
		); err != nil {
			return nil, err
		}
		result = append(result, place)
	}
	if err := rows.Err(); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return result, nil
}

func uniqueLatLngs(candidates []types.NearbyPlace) []types.LatLng {
	seen := make(map[types.LatLng]struct{}, len(candidates))
	keys := make([]types.LatLng, 0, len(candidates))
	for _, candidate := range candidates {
		key := candidate.LatLngKey()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	return keys
}

func dedupeByPlaceID(candidates []types.NearbyPlace) []types.NearbyPlace {
	seen := make(map[string]struct{}, len(candidates))
	ordered := make([]types.NearbyPlace, 0, len(candidates))
	for _, candidate := range candidates {
		if _, ok := seen[candidate.PlaceID]; ok {
			continue
		}
		seen[candidate.PlaceID] = struct{}{}
		ordered = append(ordered, candidate)
	}
	return ordered
}
