package recommend

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/f-lab-edu/Meet-Up-Spot/internal/domain/maps"
	"github.com/f-lab-edu/Meet-Up-Spot/internal/domain/places"
	"github.com/f-lab-edu/Meet-Up-Spot/internal/domain/spatialcache"
	"github.com/f-lab-edu/Meet-Up-Spot/internal/types"
	"github.com/f-lab-edu/Meet-Up-Spot/pkg/metrics"
)

// stubUserRepo serves canned signals and records history writes.
type stubUserRepo struct {
	signals  *types.UserSignals
	recorded [][]string
}

func (s *stubUserRepo) GetByID(context.Context, uuid.UUID) (*types.User, error) {
	return nil, types.ErrNotFound
}

func (s *stubUserRepo) GetSignals(context.Context, uuid.UUID) (*types.UserSignals, error) {
	if s.signals != nil {
		return s.signals, nil
	}
	return &types.UserSignals{
		InterestedPlaceIDs: map[string]struct{}{},
		PreferredTypes:     map[string]struct{}{},
	}, nil
}

func (s *stubUserRepo) AddSearchHistory(_ context.Context, _ uuid.UUID, addresses []string) error {
	s.recorded = append(s.recorded, addresses)
	return nil
}

func (s *stubUserRepo) HasInterest(context.Context, uuid.UUID, int64) (bool, error) {
	return false, nil
}

func (s *stubUserRepo) MarkInterest(context.Context, uuid.UUID, int64) error { return nil }

func (s *stubUserRepo) UnmarkInterest(context.Context, uuid.UUID, int64) error { return nil }

func emptySignals() *types.UserSignals {
	return &types.UserSignals{
		InterestedPlaceIDs: map[string]struct{}{},
		PreferredTypes:     map[string]struct{}{},
	}
}

func newScoringRecommender() *Recommender {
	return NewRecommender(nil, nil, nil, nil, slog.New(slog.DiscardHandler), Weights{})
}

func TestScore(t *testing.T) {
	place := types.Place{
		PlaceID:    "place-1",
		Name:       "Pangyo Station",
		Address:    "Pangyo-ro 160",
		Rating:     4.0,
		PlaceTypes: []string{"subway_station", "transit_station"},
	}

	t.Run("rating only", func(t *testing.T) {
		r := newScoringRecommender()
		assert.InDelta(t, 4.0, r.Score(place, emptySignals()), 1e-9)
	})

	t.Run("one matching preferred type adds the type weight", func(t *testing.T) {
		r := newScoringRecommender()
		signals := emptySignals()
		signals.PreferredTypes["subway_station"] = struct{}{}
		assert.InDelta(t, 4.0+2.0, r.Score(place, signals), 1e-9)
	})

	t.Run("interest adds the interest weight", func(t *testing.T) {
		r := newScoringRecommender()
		signals := emptySignals()
		signals.InterestedPlaceIDs["place-1"] = struct{}{}
		assert.InDelta(t, 4.0+5.0, r.Score(place, signals), 1e-9)
	})

	t.Run("identical recent search contributes similarity times recentness", func(t *testing.T) {
		now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
		r := newScoringRecommender()
		r.now = func() time.Time { return now }

		signals := emptySignals()
		signals.SearchHistory = []types.SearchHistory{
			{Address: "Pangyo-ro 160", CreatedAt: now.Add(-24 * time.Hour)},
		}
		// similarity 1.0 x recentness 1.5 x search weight 1.0
		assert.InDelta(t, 4.0+1.5, r.Score(place, signals), 1e-9)
	})

	t.Run("old searches lose the recentness boost", func(t *testing.T) {
		now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
		r := newScoringRecommender()
		r.now = func() time.Time { return now }

		signals := emptySignals()
		signals.SearchHistory = []types.SearchHistory{
			{Address: "Pangyo-ro 160", CreatedAt: now.Add(-30 * 24 * time.Hour)},
		}
		assert.InDelta(t, 4.0+1.0, r.Score(place, signals), 1e-9)
	})
}

func TestStringSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, stringSimilarity("Pangyo", "Pangyo"), 1e-9)
	assert.InDelta(t, 0.0, stringSimilarity("abc", "xyz"), 1e-9)

	partial := stringSimilarity("Pangyo Station", "Pangyo")
	assert.Greater(t, partial, 0.0)
	assert.Less(t, partial, 1.0)
}

func pipelineFixtures(t *testing.T) (*Recommender, *stubClient, *stubUserRepo) {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)

	client := &stubClient{
		geocodeFn: func(address string) ([]types.GeocodeResult, error) {
			switch address {
			case "A":
				return []types.GeocodeResult{{Latitude: 37, Longitude: 127}}, nil
			case "B":
				return []types.GeocodeResult{{Latitude: 38, Longitude: 128}}, nil
			}
			return nil, nil
		},
		nearbyFn: func(maps.NearbySearchRequest) ([]types.NearbyPlace, error) {
			return []types.NearbyPlace{
				{PlaceID: "place-1", Name: "Quiet Cafe", Vicinity: "Road 1", Types: []string{"cafe"}, Rating: 3.0, Latitude: 37.50, Longitude: 127.50},
				{PlaceID: "place-2", Name: "Busy Cafe", Vicinity: "Road 2", Types: []string{"cafe"}, Rating: 5.0, Latitude: 37.51, Longitude: 127.51},
				{PlaceID: "place-3", Name: "Far Cafe", Vicinity: "Road 3", Types: []string{"cafe"}, Rating: 4.5, Latitude: 37.90, Longitude: 127.90},
			}, nil
		},
		matrixFn: func(req maps.DistanceMatrixRequest) ([]types.DistanceInfo, error) {
			var rows []types.DistanceInfo
			totals := map[string][2]int{
				"place-1": {1000, 600},
				"place-2": {1500, 700},
				"place-3": {9000, 3000},
			}
			for _, origin := range req.Origins {
				for _, id := range req.DestinationIDs {
					rows = append(rows, types.DistanceInfo{
						Origin:        origin,
						DestinationID: id,
						Destination:   "Road " + id[len(id)-1:],
						DistanceValue: intp(totals[id][0]),
						DurationValue: intp(totals[id][1]),
					})
				}
			}
			return rows, nil
		},
	}

	adapter := newStubAdapter(client)
	store := places.NewMemoryRepository()
	cache := spatialcache.New(spatialcache.NewMemoryIndex(), logger,
		metrics.New(prometheus.NewRegistry()), 0)
	fetcher := NewFetcher(adapter, cache, store, logger, FetcherConfig{})
	users := &stubUserRepo{}

	return NewRecommender(fetcher, adapter, store, users, logger, Weights{}), client, users
}

func TestRecommendByAddress(t *testing.T) {
	ctx := context.Background()
	actor := &types.User{ID: uuid.New()}
	prefs := types.UserPreferences{
		PlaceType:       types.CategoryCafe,
		ReturnCount:     2,
		FilterCondition: types.AggregatedDistance,
	}

	t.Run("two addresses rank around the midpoint", func(t *testing.T) {
		recommender, client, users := pipelineFixtures(t)

		ranked, err := recommender.RecommendByAddress(ctx, actor, []string{"A", "B"}, prefs)
		require.NoError(t, err)

		// place-3 is worst on both metrics, the survivors sort by score
		// which here is rating alone.
		require.Len(t, ranked, 2)
		assert.Equal(t, "place-2", ranked[0].PlaceID)
		assert.Equal(t, "place-1", ranked[1].PlaceID)

		assert.Equal(t, 2, client.geocodeCalls)
		assert.Equal(t, 1, client.nearbyCalls)
		assert.Equal(t, 1, client.matrixCalls)
		require.Len(t, users.recorded, 1)
		assert.Equal(t, []string{"A", "B"}, users.recorded[0])
	})

	t.Run("interest outranks rating", func(t *testing.T) {
		recommender, _, users := pipelineFixtures(t)
		users.signals = emptySignals()
		users.signals.InterestedPlaceIDs["place-1"] = struct{}{}

		ranked, err := recommender.RecommendByAddress(ctx, actor, []string{"A", "B"}, prefs)
		require.NoError(t, err)

		// place-1: 3.0 + 5.0 interest = 8.0 beats place-2's 5.0.
		require.Len(t, ranked, 2)
		assert.Equal(t, "place-1", ranked[0].PlaceID)
	})

	t.Run("invalid preferences are rejected up front", func(t *testing.T) {
		recommender, client, _ := pipelineFixtures(t)

		_, err := recommender.RecommendByAddress(ctx, actor, []string{"A"}, types.UserPreferences{})
		require.ErrorIs(t, err, types.ErrBadRequest)
		assert.Zero(t, client.geocodeCalls)
	})

	t.Run("no addresses is a bad request", func(t *testing.T) {
		recommender, _, _ := pipelineFixtures(t)

		_, err := recommender.RecommendByAddress(ctx, actor, nil, prefs)
		require.ErrorIs(t, err, types.ErrBadRequest)
	})

	t.Run("zero geocode results surface distinctly", func(t *testing.T) {
		recommender, client, _ := pipelineFixtures(t)
		client.geocodeFn = func(string) ([]types.GeocodeResult, error) { return nil, nil }

		_, err := recommender.RecommendByAddress(ctx, actor, []string{"nowhere"}, prefs)
		require.ErrorIs(t, err, types.ErrZeroResults)
	})
}

func TestRecommendByLocation(t *testing.T) {
	ctx := context.Background()
	actor := &types.User{ID: uuid.New()}
	prefs := types.UserPreferences{
		PlaceType:       types.CategoryCafe,
		ReturnCount:     2,
		FilterCondition: types.AggregatedDuration,
	}

	recommender, client, users := pipelineFixtures(t)

	ranked, err := recommender.RecommendByLocation(ctx, actor, 37.5, 127.5, prefs)
	require.NoError(t, err)

	require.Len(t, ranked, 2)
	assert.Equal(t, "place-2", ranked[0].PlaceID)

	assert.Zero(t, client.geocodeCalls, "a coordinate probe needs no geocoding")
	assert.Empty(t, users.recorded, "location probes are not search history")
}

func TestFilterByRoutesExcludesNoRouteCandidates(t *testing.T) {
	recommender, client, _ := pipelineFixtures(t)
	client.matrixFn = func(req maps.DistanceMatrixRequest) ([]types.DistanceInfo, error) {
		var rows []types.DistanceInfo
		for _, origin := range req.Origins {
			for _, id := range req.DestinationIDs {
				row := types.DistanceInfo{Origin: origin, DestinationID: id}
				if id != "place-2" {
					row.DistanceValue = intp(1000)
					row.DurationValue = intp(600)
				}
				rows = append(rows, row)
			}
		}
		return rows, nil
	}

	ctx := context.Background()
	prefs := types.UserPreferences{
		PlaceType:       types.CategoryCafe,
		ReturnCount:     3,
		FilterCondition: types.AggregatedDistance,
	}

	ranked, err := recommender.RecommendByAddress(ctx, &types.User{ID: uuid.New()}, []string{"A", "B"}, prefs)
	require.NoError(t, err)

	for _, place := range ranked {
		assert.NotEqual(t, "place-2", place.PlaceID, "a candidate without routes must never rank")
	}
	require.Len(t, ranked, 2)
}

func TestRecommendByAddress_AllDestinationsUnroutable(t *testing.T) {
	recommender, client, _ := pipelineFixtures(t)
	client.matrixFn = func(req maps.DistanceMatrixRequest) ([]types.DistanceInfo, error) {
		var rows []types.DistanceInfo
		for _, origin := range req.Origins {
			for _, id := range req.DestinationIDs {
				rows = append(rows, types.DistanceInfo{Origin: origin, DestinationID: id})
			}
		}
		return rows, nil
	}

	ctx := context.Background()
	prefs := types.UserPreferences{
		PlaceType:       types.CategoryCafe,
		ReturnCount:     2,
		FilterCondition: types.AggregatedDistance,
	}

	ranked, err := recommender.RecommendByAddress(ctx, &types.User{ID: uuid.New()}, []string{"A", "B"}, prefs)
	require.ErrorIs(t, err, types.ErrZeroResults, "an all-unroutable candidate set must not succeed silently")
	assert.Nil(t, ranked)
}
