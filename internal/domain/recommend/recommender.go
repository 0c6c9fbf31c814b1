package recommend

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/pmezard/go-difflib/difflib"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/f-lab-edu/Meet-Up-Spot/internal/domain/maps"
	"github.com/f-lab-edu/Meet-Up-Spot/internal/domain/places"
	"github.com/f-lab-edu/Meet-Up-Spot/internal/domain/user"
	"github.com/f-lab-edu/Meet-Up-Spot/internal/types"
)

// Weights are the scoring coefficients of the composite recommendation
// score.
type Weights struct {
	Interest float64
	Search   float64
	Type     float64
	Rating   float64
}

func DefaultWeights() Weights {
	return Weights{
		Interest: 5.0,
		Search:   1.0,
		Type:     2.0,
		Rating:   1.0,
	}
}

// recentSearchWindow is the age under which a search-history entry weighs
// more in the score.
const recentSearchWindow = 7

// Recommender runs the pipeline end to end: fetch candidates, build the
// routes matrix, reconcile addresses, filter by group-level route
// rankings, score against the user's signals, sort.
type Recommender struct {
	fetcher  *Fetcher
	provider *maps.Adapter
	store    places.Repository
	users    user.Repository
	logger   *slog.Logger
	weights  Weights

	now func() time.Time
}

func NewRecommender(fetcher *Fetcher, provider *maps.Adapter, store places.Repository, users user.Repository, logger *slog.Logger, weights Weights) *Recommender {
	if weights == (Weights{}) {
		weights = DefaultWeights()
	}
	return &Recommender{
		fetcher:  fetcher,
		provider: provider,
		store:    store,
		users:    users,
		logger:   logger,
		weights:  weights,
		now:      time.Now,
	}
}

// RecommendByAddress recommends meeting places for one or more addresses.
// A single address searches around it directly; multiple addresses search
// around their midpoint. The searched addresses are recorded in the acting
// user's history.
func (r *Recommender) RecommendByAddress(ctx context.Context, actor *types.User, addresses []string, prefs types.UserPreferences) ([]types.Place, error) {
	ctx, span := otel.Tracer("Recommender").Start(ctx, "RecommendByAddress")
	defer span.End()
	span.SetAttributes(attribute.Int("addresses", len(addresses)))

	if len(addresses) == 0 {
		return nil, fmt.Errorf("no addresses given: %w", types.ErrBadRequest)
	}
	if err := prefs.Validate(); err != nil {
		return nil, err
	}

	var candidates []types.Place
	var err error
	if len(addresses) == 1 {
		candidates, err = r.fetcher.FetchByAddress(ctx, actor, addresses[0], prefs.PlaceType)
	} else {
		candidates, err = r.fetcher.FetchByMidpoint(ctx, actor, addresses, prefs.PlaceType)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "candidate fetch failed")
		return nil, err
	}

	if actor != nil {
		if err := r.users.AddSearchHistory(ctx, actor.ID, addresses); err != nil {
			return nil, fmt.Errorf("recording search history: %w", err)
		}
	}

	ranked, err := r.rank(ctx, actor, addresses, candidates, prefs)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "ranking failed")
		return nil, err
	}
	span.SetStatus(codes.Ok, "Recommendations computed")
	return ranked, nil
}

// RecommendByLocation recommends places around the user's current
// coordinates. Nothing is written to the search history: a location probe
// is not an address the user typed.
func (r *Recommender) RecommendByLocation(ctx context.Context, actor *types.User, lat, lng float64, prefs types.UserPreferences) ([]types.Place, error) {
	ctx, span := otel.Tracer("Recommender").Start(ctx, "RecommendByLocation")
	defer span.End()

	if err := prefs.Validate(); err != nil {
		return nil, err
	}

	candidates, err := r.fetcher.FetchByCoordinates(ctx, actor, lat, lng, prefs.PlaceType, r.fetcher.defaultRadiusM)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "candidate fetch failed")
		return nil, err
	}

	origin := fmt.Sprintf("%f,%f", lat, lng)
	ranked, err := r.rank(ctx, actor, []string{origin}, candidates, prefs)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "ranking failed")
		return nil, err
	}
	span.SetStatus(codes.Ok, "Recommendations computed")
	return ranked, nil
}

// rank is steps 2..6 of the pipeline for an already-fetched candidate set.
func (r *Recommender) rank(ctx context.Context, actor *types.User, origins []string, candidates []types.Place, prefs types.UserPreferences) ([]types.Place, error) {
	destinationIDs := make([]string, len(candidates))
	for i, candidate := range candidates {
		destinationIDs[i] = candidate.PlaceID
	}

	rows, err := r.provider.DistanceMatrix(ctx, actor, maps.DistanceMatrixRequest{
		Origins:        origins,
		DestinationIDs: destinationIDs,
	})
	if err != nil {
		return nil, err
	}
	matrix := NewRoutesMatrix(rows)

	if err := matrix.UpdateCandidateAddresses(ctx, r.store, r.logger, candidates); err != nil {
		return nil, err
	}

	filtered := r.filterByRoutes(matrix, candidates, prefs)
	if len(filtered) == 0 {
		return nil, fmt.Errorf("no routable destinations: %w", types.ErrZeroResults)
	}

	signals, err := r.loadSignals(ctx, actor)
	if err != nil {
		return nil, err
	}

	type scored struct {
		place types.Place
		score float64
	}
	ranked := make([]scored, len(filtered))
	for i, candidate := range filtered {
		ranked[i] = scored{place: candidate, score: r.Score(candidate, signals)}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})

	result := make([]types.Place, len(ranked))
	for i, s := range ranked {
		result[i] = s.place
	}
	return result, nil
}

// filterByRoutes keeps the candidates ranked near-best on either metric:
// the union of the top return_count destinations by total distance and by
// total duration, deduplicated, capped at return_count. The preferred
// filter condition decides which ranking leads the merge.
func (r *Recommender) filterByRoutes(matrix *RoutesMatrix, candidates []types.Place, prefs types.UserPreferences) []types.Place {
	first, second := types.AggregatedDistance, types.AggregatedDuration
	if prefs.FilterCondition == types.AggregatedDuration {
		first, second = second, first
	}

	survivors := make(map[string]struct{})
	for _, attr := range []types.AggregatedAttr{first, second} {
		for _, summary := range matrix.SortByAggregatedAttr(attr, prefs.ReturnCount) {
			survivors[summary.DestinationID] = struct{}{}
		}
	}

	filtered := make([]types.Place, 0, len(survivors))
	for _, candidate := range candidates {
		if _, ok := survivors[candidate.PlaceID]; ok {
			filtered = append(filtered, candidate)
		}
	}
	if len(filtered) > prefs.ReturnCount {
		filtered = filtered[:prefs.ReturnCount]
	}
	return filtered
}

func (r *Recommender) loadSignals(ctx context.Context, actor *types.User) (*types.UserSignals, error) {
	if actor == nil {
		return &types.UserSignals{
			InterestedPlaceIDs: map[string]struct{}{},
			PreferredTypes:     map[string]struct{}{},
		}, nil
	}
	signals, err := r.users.GetSignals(ctx, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("loading user signals: %w", err)
	}
	return signals, nil
}

// Score computes the composite recommendation score of one place against
// the user's signals.
func (r *Recommender) Score(place types.Place, signals *types.UserSignals) float64 {
	score := 0.0

	if _, ok := signals.InterestedPlaceIDs[place.PlaceID]; ok {
		score += r.weights.Interest
	}

	for _, history := range signals.SearchHistory {
		similarity := stringSimilarity(history.Address, place.Address)
		score += r.weights.Search * similarity * r.recentnessWeight(history.CreatedAt)
	}

	matched := make(map[string]struct{})
	for _, placeType := range place.PlaceTypes {
		if _, ok := signals.PreferredTypes[placeType]; ok {
			matched[placeType] = struct{}{}
		}
	}
	score += r.weights.Type * float64(len(matched))

	score += r.weights.Rating * place.Rating

	return score
}

// recentnessWeight boosts history entries searched within the last week.
func (r *Recommender) recentnessWeight(searchedAt time.Time) float64 {
	ageDays := int(r.now().Sub(searchedAt).Hours() / 24)
	if ageDays <= recentSearchWindow {
		return 1.5
	}
	return 1.0
}

// stringSimilarity is a normalized sequence-similarity ratio in [0,1],
// rounded to 2 decimals, over the characters of the two strings.
func stringSimilarity(a, b string) float64 {
	matcher := difflib.NewMatcher(strings.Split(a, ""), strings.Split(b, ""))
	return math.Round(matcher.Ratio()*100) / 100
}
