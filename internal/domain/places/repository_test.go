package places

import (
	"context"
	"log/slog"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/f-lab-edu/Meet-Up-Spot/internal/types"
)

var testCandidates = []types.NearbyPlace{
	{
		PlaceID: "place-1", Name: "Pangyo Station", Vicinity: "Pangyo",
		Types: []string{"subway_station", "transit_station"},
		Rating: 4.2, UserRatingsTotal: 120,
		Latitude: 37.394, Longitude: 127.111,
		CompoundCode: "9QJR+XX Seongnam", GlobalCode: "8Q999QJR+XX",
	},
	{
		PlaceID: "place-2", Name: "Seoul Station", Vicinity: "Seoul",
		Types: []string{"subway_station", "train_station"},
		Rating: 4.0, UserRatingsTotal: 300,
		Latitude: 37.554, Longitude: 126.970,
		CompoundCode: "HX3C+XX Seoul", GlobalCode: "8Q98HX3C+XX",
	},
}

func TestMemoryRepository_GetOrCreateLocations_Idempotent(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	first, err := repo.GetOrCreateLocations(ctx, testCandidates)
	require.NoError(t, err)
	require.Len(t, first, 2)

	second, err := repo.GetOrCreateLocations(ctx, testCandidates)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	locations, _, _ := repo.Counts()
	assert.Equal(t, 2, locations)
}

func TestMemoryRepository_GetOrCreateLocations_MixedExistingAndNew(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	_, err := repo.GetOrCreateLocations(ctx, testCandidates[:1])
	require.NoError(t, err)

	all, err := repo.GetOrCreateLocations(ctx, testCandidates)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	locations, _, _ := repo.Counts()
	assert.Equal(t, 2, locations)
}

func TestMemoryRepository_GetOrCreatePlaces_Idempotent(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	locations, err := repo.GetOrCreateLocations(ctx, testCandidates)
	require.NoError(t, err)
	locationIDs := LocationIDMap(locations)

	first, err := repo.GetOrCreatePlaces(ctx, testCandidates, locationIDs)
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, "Pangyo", first[0].Address)

	second, err := repo.GetOrCreatePlaces(ctx, testCandidates, locationIDs)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	_, placeRows, typeRows := repo.Counts()
	assert.Equal(t, 2, placeRows)
	// subway_station is shared; the vocabulary stays deduplicated.
	assert.Equal(t, 3, typeRows)
}

func TestMemoryRepository_UpdateAddress(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	locations, err := repo.GetOrCreateLocations(ctx, testCandidates)
	require.NoError(t, err)
	_, err = repo.GetOrCreatePlaces(ctx, testCandidates, LocationIDMap(locations))
	require.NoError(t, err)

	require.NoError(t, repo.UpdateAddress(ctx, "place-1", "corrected address"))

	place, err := repo.GetByPlaceID(ctx, "place-1")
	require.NoError(t, err)
	assert.Equal(t, "corrected address", place.Address)

	err = repo.UpdateAddress(ctx, "no-such-place", "x")
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestNewRepository_FactorySelectsByEnv(t *testing.T) {
	memory := NewRepository("test", nil, slog.Default())
	assert.IsType(t, &MemoryRepository{}, memory)

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	pg := NewRepository("production", mock, slog.Default())
	assert.IsType(t, &PostgresRepository{}, pg)
}

func TestPostgresRepository_GetOrCreateLocations_AllExisting(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	rows := pgxmock.NewRows([]string{"id", "latitude", "longitude", "compound_code", "global_code"}).
		AddRow(int64(1), 37.394, 127.111, "9QJR+XX Seongnam", "8Q999QJR+XX").
		AddRow(int64(2), 37.554, 126.970, "HX3C+XX Seoul", "8Q98HX3C+XX")
	mock.ExpectQuery("SELECT id, latitude, longitude, compound_code, global_code FROM locations").
		WithArgs(37.394, 127.111, 37.554, 126.970).
		WillReturnRows(rows)

	repo := NewPostgresRepository(mock, slog.Default())
	locations, err := repo.GetOrCreateLocations(context.Background(), testCandidates)
	require.NoError(t, err)
	require.Len(t, locations, 2)
	assert.Equal(t, int64(1), locations[0].ID)
	assert.Equal(t, int64(2), locations[1].ID)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_GetByPlaceID_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT p.id, p.place_id").
		WithArgs([]string{"missing"}).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "place_id", "name", "address", "rating", "user_ratings_total", "location_id", "types",
		}))

	repo := NewPostgresRepository(mock, slog.Default())
	_, err = repo.GetByPlaceID(context.Background(), "missing")
	assert.ErrorIs(t, err, types.ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_UpdateAddress(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("UPDATE places SET address").
		WithArgs("corrected", "place-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	repo := NewPostgresRepository(mock, slog.Default())
	require.NoError(t, repo.UpdateAddress(context.Background(), "place-1", "corrected"))

	mock.ExpectExec("UPDATE places SET address").
		WithArgs("corrected", "missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	err = repo.UpdateAddress(context.Background(), "missing", "corrected")
	assert.ErrorIs(t, err, types.ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}
