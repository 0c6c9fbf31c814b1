// Package spatialcache avoids redundant nearby-search provider calls by
// caching raw responses under geohash keys in a geospatial index.
package spatialcache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/mmcloughlin/geohash"

	"github.com/f-lab-edu/Meet-Up-Spot/internal/types"
	"github.com/f-lab-edu/Meet-Up-Spot/pkg/metrics"
)

const (
	// geoSetKey is the fixed namespace of the geospatial index.
	geoSetKey = "geolocations"

	// GeohashPrecision of 5 gives ~4.9km x 4.9km cells. Coarse on purpose:
	// it trades recall for hit rate, and the fetch path falls back to the
	// live API whenever the cache yields nothing.
	GeohashPrecision = 5

	// DefaultTTL bounds staleness; venue data and ratings drift, so entries
	// older than this force a fresh provider fetch.
	DefaultTTL = time.Hour
)

// GeoIndex is the backend contract of the cache: a geospatial set plus
// plain get/set-with-expiry, i.e. the GEOADD/GEOSEARCH/SET/MGET primitives.
type GeoIndex interface {
	GeoAdd(ctx context.Context, key string, lng, lat float64, member string) error
	GeoSearch(ctx context.Context, key string, lng, lat, radiusM float64) ([]string, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	MGet(ctx context.Context, keys []string) ([][]byte, error)
}

// Service is the spatial cache. All backend failures are wrapped into
// types.ErrCacheOperation; callers never see a backend-specific error.
type Service struct {
	index   GeoIndex
	logger  *slog.Logger
	metrics *metrics.Metrics
	ttl     time.Duration
}

func New(index GeoIndex, logger *slog.Logger, m *metrics.Metrics, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{
		index:   index,
		logger:  logger,
		metrics: m,
		ttl:     ttl,
	}
}

// AddLocation registers a searched coordinate in the geospatial index and
// returns its geohash.
func (s *Service) AddLocation(ctx context.Context, lat, lng float64) (string, error) {
	hash := geohash.EncodeWithPrecision(lat, lng, GeohashPrecision)

	if err := s.index.GeoAdd(ctx, geoSetKey, lng, lat, hash); err != nil {
		s.metrics.CacheErrors.Inc()
		s.logger.ErrorContext(ctx, "failed to add location to geospatial index",
			slog.String("geohash", hash), slog.Any("error", err))
		return "", fmt.Errorf("adding location to index: %w", types.ErrCacheOperation)
	}
	return hash, nil
}

// FindInRadius returns the geohashes of previously searched coordinates
// within radiusM meters of the given point.
func (s *Service) FindInRadius(ctx context.Context, lat, lng, radiusM float64) ([]string, error) {
	hashes, err := s.index.GeoSearch(ctx, geoSetKey, lng, lat, radiusM)
	if err != nil {
		s.metrics.CacheErrors.Inc()
		s.logger.ErrorContext(ctx, "geospatial radius query failed",
			slog.Float64("lat", lat), slog.Float64("lng", lng), slog.Any("error", err))
		return nil, fmt.Errorf("searching index in radius: %w", types.ErrCacheOperation)
	}
	return hashes, nil
}

// CacheResponse stores a raw nearby-search result list under the geohash of
// its query point, with the configured expiry.
func (s *Service) CacheResponse(ctx context.Context, lat, lng float64, results []types.NearbyPlace) error {
	hash := geohash.EncodeWithPrecision(lat, lng, GeohashPrecision)

	payload, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("encoding nearby-search results: %w", err)
	}

	if err := s.index.Set(ctx, hash, payload, s.ttl); err != nil {
		s.metrics.CacheErrors.Inc()
		s.logger.ErrorContext(ctx, "failed to cache nearby-search response",
			slog.String("geohash", hash), slog.Any("error", err))
		return fmt.Errorf("caching nearby-search response: %w", types.ErrCacheOperation)
	}
	return nil
}

// CachedResponses retrieves the cached result lists for the given geohashes.
// Expired or missing entries are skipped, so the result may be shorter than
// the input; an empty result means a miss, not an error.
func (s *Service) CachedResponses(ctx context.Context, geohashes []string) ([][]types.NearbyPlace, error) {
	if len(geohashes) == 0 {
		return nil, nil
	}

	payloads, err := s.index.MGet(ctx, geohashes)
	if err != nil {
		s.metrics.CacheErrors.Inc()
		s.logger.ErrorContext(ctx, "failed to read cached responses",
			slog.Int("keys", len(geohashes)), slog.Any("error", err))
		return nil, fmt.Errorf("reading cached responses: %w", types.ErrCacheOperation)
	}

	responses := make([][]types.NearbyPlace, 0, len(payloads))
	for i, payload := range payloads {
		if payload == nil {
			continue
		}
		var results []types.NearbyPlace
		if err := json.Unmarshal(payload, &results); err != nil {
			// A corrupt entry is treated as a miss rather than failing the
			// whole lookup.
			s.logger.WarnContext(ctx, "dropping undecodable cache entry",
				slog.String("geohash", geohashes[i]), slog.Any("error", err))
			continue
		}
		responses = append(responses, results)
	}

	if len(responses) == 0 {
		s.metrics.CacheMisses.Inc()
	} else {
		s.metrics.CacheHits.Inc()
	}
	return responses, nil
}
