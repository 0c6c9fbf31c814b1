package spatialcache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

var _ GeoIndex = (*RedisIndex)(nil)

// RedisIndex backs the cache with a Redis geospatial set.
type RedisIndex struct {
	client *redis.Client
}

func NewRedisIndex(client *redis.Client) *RedisIndex {
	return &RedisIndex{client: client}
}

func (r *RedisIndex) GeoAdd(ctx context.Context, key string, lng, lat float64, member string) error {
	return r.client.GeoAdd(ctx, key, &redis.GeoLocation{
		Name:      member,
		Longitude: lng,
		Latitude:  lat,
	}).Err()
}

func (r *RedisIndex) GeoSearch(ctx context.Context, key string, lng, lat, radiusM float64) ([]string, error) {
	return r.client.GeoSearch(ctx, key, &redis.GeoSearchQuery{
		Longitude:  lng,
		Latitude:   lat,
		Radius:     radiusM,
		RadiusUnit: "m",
	}).Result()
}

func (r *RedisIndex) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

func (r *RedisIndex) MGet(ctx context.Context, keys []string) ([][]byte, error) {
	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	payloads := make([][]byte, len(values))
	for i, v := range values {
		if v == nil {
			continue
		}
		if s, ok := v.(string); ok {
			payloads[i] = []byte(s)
		}
	}
	return payloads, nil
}
