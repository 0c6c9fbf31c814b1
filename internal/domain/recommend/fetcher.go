// Package recommend is the pipeline core: candidate acquisition, the
// distance matrix, route-based filtering and multi-factor scoring.
package recommend

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/f-lab-edu/Meet-Up-Spot/internal/domain/geomath"
	"github.com/f-lab-edu/Meet-Up-Spot/internal/domain/maps"
	"github.com/f-lab-edu/Meet-Up-Spot/internal/domain/places"
	"github.com/f-lab-edu/Meet-Up-Spot/internal/domain/spatialcache"
	"github.com/f-lab-edu/Meet-Up-Spot/internal/types"
)

// Search radii in meters. WideRadiusM bounds the midpoint search when the
// parties are far apart.
const (
	WideRadiusM    = 50000
	DefaultRadiusM = 1000

	// CacheLookupRadiusM is the fixed radius of the spatial-cache probe.
	// Distinct from the API search radius on purpose: the probe only asks
	// "was anything searched near here recently".
	CacheLookupRadiusM = 1000

	// maxCandidates caps what one fetch hands downstream.
	maxCandidates = 20
)

// FetcherConfig overrides the radius policy and geocode memoization TTL.
// Zero values fall back to the defaults above.
type FetcherConfig struct {
	WideRadiusM        int
	DefaultRadiusM     int
	CacheLookupRadiusM int
	GeocodeTTL         time.Duration
}

// Fetcher resolves addresses to candidate places: geocode, midpoint and
// radius decision, spatial-cache lookup with live-search fallback, then
// materialization through the place store.
type Fetcher struct {
	provider *maps.Adapter
	cache    *spatialcache.Service
	store    places.Repository
	logger   *slog.Logger

	geocoded *gocache.Cache

	wideRadiusM        int
	defaultRadiusM     int
	cacheLookupRadiusM int
}

func NewFetcher(provider *maps.Adapter, cache *spatialcache.Service, store places.Repository, logger *slog.Logger, cfg FetcherConfig) *Fetcher {
	if cfg.WideRadiusM <= 0 {
		cfg.WideRadiusM = WideRadiusM
	}
	if cfg.DefaultRadiusM <= 0 {
		cfg.DefaultRadiusM = DefaultRadiusM
	}
	if cfg.CacheLookupRadiusM <= 0 {
		cfg.CacheLookupRadiusM = CacheLookupRadiusM
	}
	if cfg.GeocodeTTL <= 0 {
		cfg.GeocodeTTL = spatialcache.DefaultTTL
	}
	return &Fetcher{
		provider:           provider,
		cache:              cache,
		store:              store,
		logger:             logger,
		geocoded:           gocache.New(cfg.GeocodeTTL, 2*cfg.GeocodeTTL),
		wideRadiusM:        cfg.WideRadiusM,
		defaultRadiusM:     cfg.DefaultRadiusM,
		cacheLookupRadiusM: cfg.CacheLookupRadiusM,
	}
}

// GeocodeAddress resolves one address, memoizing results in-process so a
// group request does not geocode the same address twice.
func (f *Fetcher) GeocodeAddress(ctx context.Context, user *types.User, address string) (geomath.Point, error) {
	if cached, ok := f.geocoded.Get(address); ok {
		return cached.(geomath.Point), nil
	}

	results, err := f.provider.Geocode(ctx, user, address)
	if err != nil {
		return geomath.Point{}, err
	}

	point := geomath.Point{Lat: results[0].Latitude, Lng: results[0].Longitude}
	f.geocoded.SetDefault(address, point)
	return point, nil
}

// FetchByAddress returns candidates around a single geocoded address.
func (f *Fetcher) FetchByAddress(ctx context.Context, user *types.User, address string, category types.PlaceCategory) ([]types.Place, error) {
	point, err := f.GeocodeAddress(ctx, user, address)
	if err != nil {
		return nil, err
	}
	return f.FetchByCoordinates(ctx, user, point.Lat, point.Lng, category, f.defaultRadiusM)
}

// FetchByMidpoint geocodes every address, searches around their arithmetic
// midpoint with a radius decided from the group's spread.
func (f *Fetcher) FetchByMidpoint(ctx context.Context, user *types.User, addresses []string, category types.PlaceCategory) ([]types.Place, error) {
	points := make([]geomath.Point, 0, len(addresses))
	for _, address := range addresses {
		point, err := f.GeocodeAddress(ctx, user, address)
		if err != nil {
			return nil, err
		}
		points = append(points, point)
	}

	midpoint, err := geomath.MidpointArithmetic(points)
	if err != nil {
		return nil, err
	}

	return f.FetchByCoordinates(ctx, user, midpoint.Lat, midpoint.Lng, category, f.decideRadius(points))
}

// decideRadius sizes the search to the group's spread: half the maximum
// pairwise distance, capped at the wide radius once the parties are spread
// beyond twice that.
func (f *Fetcher) decideRadius(points []geomath.Point) int {
	maxDist := geomath.MaxPairwiseDistance(points)
	if maxDist >= float64(2*f.wideRadiusM) {
		return f.wideRadiusM
	}
	if radius := int(maxDist / 2); radius > 0 {
		return radius
	}
	return f.defaultRadiusM
}

// FetchByCoordinates is the shared fetch path: probe the spatial cache
// first, fall back to a live nearby search on a miss, and materialize the
// raw results through the place store either way. Candidates are capped at
// maxCandidates before being handed downstream.
func (f *Fetcher) FetchByCoordinates(ctx context.Context, user *types.User, lat, lng float64, category types.PlaceCategory, radiusM int) ([]types.Place, error) {
	cached, err := f.lookupCached(ctx, lat, lng)
	if err != nil {
		return nil, err
	}
	if len(cached) > 0 {
		f.logger.DebugContext(ctx, "serving candidates from spatial cache",
			slog.Float64("lat", lat), slog.Float64("lng", lng), slog.Int("candidates", len(cached)))
		return f.materialize(ctx, cached)
	}

	results, err := f.provider.NearbySearch(ctx, user, maps.NearbySearchRequest{
		Latitude:  lat,
		Longitude: lng,
		RadiusM:   radiusM,
		Category:  category,
	})
	if err != nil {
		return nil, err
	}

	if err := f.cache.CacheResponse(ctx, lat, lng, results); err != nil {
		return nil, err
	}
	if _, err := f.cache.AddLocation(ctx, lat, lng); err != nil {
		return nil, err
	}

	return f.materialize(ctx, results)
}

// lookupCached probes the geospatial index around the query point and
// flattens every cached response found there. Empty means a miss.
func (f *Fetcher) lookupCached(ctx context.Context, lat, lng float64) ([]types.NearbyPlace, error) {
	hashes, err := f.cache.FindInRadius(ctx, lat, lng, float64(f.cacheLookupRadiusM))
	if err != nil {
		return nil, err
	}
	if len(hashes) == 0 {
		return nil, nil
	}

	responses, err := f.cache.CachedResponses(ctx, hashes)
	if err != nil {
		return nil, err
	}

	var flattened []types.NearbyPlace
	for _, results := range responses {
		flattened = append(flattened, results...)
	}
	return flattened, nil
}

// materialize runs raw nearby-search results through the deduplicating
// store: locations first, then places joined to them.
func (f *Fetcher) materialize(ctx context.Context, candidates []types.NearbyPlace) ([]types.Place, error) {
	if len(candidates) > maxCandidates {
		candidates = candidates[:maxCandidates]
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("no candidates to materialize: %w", types.ErrZeroResults)
	}

	locations, err := f.store.GetOrCreateLocations(ctx, candidates)
	if err != nil {
		return nil, fmt.Errorf("materializing locations: %w", err)
	}

	materialized, err := f.store.GetOrCreatePlaces(ctx, candidates, places.LocationIDMap(locations))
	if err != nil {
		return nil, fmt.Errorf("materializing places: %w", err)
	}
	return materialized, nil
}
