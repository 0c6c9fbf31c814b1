package recommend

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/f-lab-edu/Meet-Up-Spot/internal/domain/places"
	"github.com/f-lab-edu/Meet-Up-Spot/internal/types"
)

func intp(v int) *int { return &v }

func matrixFixture() []types.DistanceInfo {
	// Two origins x two destinations; summed durations 2104 and 5233.
	return []types.DistanceInfo{
		{Origin: "A", DestinationID: "place-1", Destination: "Pangyo-ro 160", DistanceValue: intp(1200), DurationValue: intp(1000)},
		{Origin: "B", DestinationID: "place-1", Destination: "Pangyo-ro 160", DistanceValue: intp(1500), DurationValue: intp(1104)},
		{Origin: "A", DestinationID: "place-2", Destination: "Hangang-daero 405", DistanceValue: intp(4000), DurationValue: intp(2600)},
		{Origin: "B", DestinationID: "place-2", Destination: "Hangang-daero 405", DistanceValue: intp(4100), DurationValue: intp(2633)},
	}
}

func TestGroupByDestination(t *testing.T) {
	matrix := NewRoutesMatrix(matrixFixture())

	groups := matrix.GroupByDestination()
	require.Len(t, groups, 2)
	assert.Len(t, groups["place-1"], 2)
	assert.Len(t, groups["place-2"], 2)
}

func TestSortByAggregatedAttr(t *testing.T) {
	t.Run("sums durations per destination ascending", func(t *testing.T) {
		matrix := NewRoutesMatrix(matrixFixture())

		summaries := matrix.SortByAggregatedAttr(types.AggregatedDuration, 5)
		require.Len(t, summaries, 2)
		assert.Equal(t, DestinationSummary{DestinationID: "place-1", TotalValue: 2104}, summaries[0])
		assert.Equal(t, DestinationSummary{DestinationID: "place-2", TotalValue: 5233}, summaries[1])
	})

	t.Run("truncates to count", func(t *testing.T) {
		matrix := NewRoutesMatrix(matrixFixture())

		summaries := matrix.SortByAggregatedAttr(types.AggregatedDuration, 1)
		require.Len(t, summaries, 1)
		assert.Equal(t, "place-1", summaries[0].DestinationID)
	})

	t.Run("destination with a no-route pair never ranks by that metric", func(t *testing.T) {
		rows := matrixFixture()
		// place-1 loses its route from origin B.
		rows[1].DistanceValue = nil
		rows[1].DurationValue = nil
		matrix := NewRoutesMatrix(rows)

		byDistance := matrix.SortByAggregatedAttr(types.AggregatedDistance, 5)
		require.Len(t, byDistance, 1)
		assert.Equal(t, "place-2", byDistance[0].DestinationID)

		byDuration := matrix.SortByAggregatedAttr(types.AggregatedDuration, 5)
		require.Len(t, byDuration, 1)
		assert.Equal(t, "place-2", byDuration[0].DestinationID)
	})
}

func TestUpdateCandidateAddresses(t *testing.T) {
	ctx := context.Background()
	store := places.NewMemoryRepository()

	candidates := nearbyFixture()
	locations, err := store.GetOrCreateLocations(ctx, candidates)
	require.NoError(t, err)
	materialized, err := store.GetOrCreatePlaces(ctx, candidates, places.LocationIDMap(locations))
	require.NoError(t, err)

	rows := matrixFixture()
	// The matrix formatted address for place-2 disagrees with the stored
	// vicinity text.
	rows[2].Destination = "405 Hangang-daero, Yongsan-gu"
	rows[3].Destination = "405 Hangang-daero, Yongsan-gu"

	matrix := NewRoutesMatrix(rows)
	require.NoError(t, matrix.UpdateCandidateAddresses(ctx, store, slog.New(slog.DiscardHandler), materialized))

	assert.Equal(t, "405 Hangang-daero, Yongsan-gu", materialized[1].Address, "in-memory candidate must be patched")

	stored, err := store.GetByPlaceID(ctx, "place-2")
	require.NoError(t, err)
	assert.Equal(t, "405 Hangang-daero, Yongsan-gu", stored.Address, "stored row must be reconciled")

	unchanged, err := store.GetByPlaceID(ctx, "place-1")
	require.NoError(t, err)
	assert.Equal(t, "Pangyo-ro 160", unchanged.Address)
}
