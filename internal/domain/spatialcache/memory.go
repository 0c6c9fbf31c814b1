package spatialcache

import (
	"context"
	"sync"
	"time"

	"github.com/f-lab-edu/Meet-Up-Spot/internal/domain/geomath"
)

var _ GeoIndex = (*MemoryIndex)(nil)

// MemoryIndex is an in-process GeoIndex used in tests and local runs
// without a Redis backend.
type MemoryIndex struct {
	mu      sync.RWMutex
	members map[string]map[string]geomath.Point // geo set key -> member -> point
	values  map[string]memoryEntry

	now func() time.Time
}

type memoryEntry struct {
	payload   []byte
	expiresAt time.Time
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		members: make(map[string]map[string]geomath.Point),
		values:  make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (m *MemoryIndex) GeoAdd(_ context.Context, key string, lng, lat float64, member string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	set, ok := m.members[key]
	if !ok {
		set = make(map[string]geomath.Point)
		m.members[key] = set
	}
	set[member] = geomath.Point{Lat: lat, Lng: lng}
	return nil
}

func (m *MemoryIndex) GeoSearch(_ context.Context, key string, lng, lat, radiusM float64) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	center := geomath.Point{Lat: lat, Lng: lng}
	var hits []string
	for member, point := range m.members[key] {
		if geomath.Distance(center, point) <= radiusM {
			hits = append(hits, member)
		}
	}
	return hits, nil
}

func (m *MemoryIndex) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.values[key] = memoryEntry{payload: value, expiresAt: m.now().Add(ttl)}
	return nil
}

func (m *MemoryIndex) MGet(_ context.Context, keys []string) ([][]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	payloads := make([][]byte, len(keys))
	for i, key := range keys {
		entry, ok := m.values[key]
		if !ok || m.now().After(entry.expiresAt) {
			continue
		}
		payloads[i] = entry.payload
	}
	return payloads, nil
}
