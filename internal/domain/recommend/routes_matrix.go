package recommend

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/f-lab-edu/Meet-Up-Spot/internal/domain/places"
	"github.com/f-lab-edu/Meet-Up-Spot/internal/types"
)

// DestinationSummary is one destination's aggregate over all origins.
type DestinationSummary struct {
	DestinationID string
	TotalValue    int
}

// RoutesMatrix wraps the flat origin x destination rows of one
// distance-matrix call and derives the group-level rankings from them.
type RoutesMatrix struct {
	rows []types.DistanceInfo
}

func NewRoutesMatrix(rows []types.DistanceInfo) *RoutesMatrix {
	return &RoutesMatrix{rows: rows}
}

// UpdateCandidateAddresses reconciles each candidate's stored address
// against the formatted destination address of the matrix. The nearby-search
// vicinity text and the matrix address can disagree; the matrix is treated
// as ground truth, so mismatches are persisted and patched in place.
func (m *RoutesMatrix) UpdateCandidateAddresses(ctx context.Context, store places.Repository, logger *slog.Logger, candidates []types.Place) error {
	byPlaceID := make(map[string]*types.Place, len(candidates))
	for i := range candidates {
		byPlaceID[candidates[i].PlaceID] = &candidates[i]
	}

	for _, row := range m.rows {
		candidate, ok := byPlaceID[row.DestinationID]
		if !ok || row.Destination == "" || row.Destination == candidate.Address {
			continue
		}
		logger.InfoContext(ctx, "reconciling candidate address",
			slog.String("place_id", candidate.PlaceID),
			slog.String("stored", candidate.Address),
			slog.String("matrix", row.Destination))
		if err := store.UpdateAddress(ctx, candidate.PlaceID, row.Destination); err != nil {
			return fmt.Errorf("reconciling address of %s: %w", candidate.PlaceID, err)
		}
		candidate.Address = row.Destination
	}
	return nil
}

// GroupByDestination buckets the rows per destination place id.
func (m *RoutesMatrix) GroupByDestination() map[string][]types.DistanceInfo {
	groups := make(map[string][]types.DistanceInfo)
	for _, row := range m.rows {
		groups[row.DestinationID] = append(groups[row.DestinationID], row)
	}
	return groups
}

// SortByAggregatedAttr sums the chosen attribute across all origins per
// destination and returns the top count ascending, smaller aggregate being
// closer or faster for the whole group. A destination with any no-route
// row for the attribute is excluded outright: it must never rank by a
// metric it has no value for. Ties keep first-seen row order.
func (m *RoutesMatrix) SortByAggregatedAttr(attr types.AggregatedAttr, count int) []DestinationSummary {
	totals := make(map[string]int)
	routable := make(map[string]bool)
	var order []string

	for _, row := range m.rows {
		if _, seen := routable[row.DestinationID]; !seen {
			routable[row.DestinationID] = true
			order = append(order, row.DestinationID)
		}

		value := row.DistanceValue
		if attr == types.AggregatedDuration {
			value = row.DurationValue
		}
		if value == nil {
			routable[row.DestinationID] = false
			continue
		}
		totals[row.DestinationID] += *value
	}

	summaries := make([]DestinationSummary, 0, len(order))
	for _, id := range order {
		if !routable[id] {
			continue
		}
		summaries = append(summaries, DestinationSummary{DestinationID: id, TotalValue: totals[id]})
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].TotalValue < summaries[j].TotalValue
	})
	if count >= 0 && len(summaries) > count {
		summaries = summaries[:count]
	}
	return summaries
}
