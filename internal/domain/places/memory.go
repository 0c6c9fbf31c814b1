package places

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/f-lab-edu/Meet-Up-Spot/internal/types"
)

var _ Repository = (*MemoryRepository)(nil)

// MemoryRepository keeps the store in process memory. It backs fast tests
// and local runs without Postgres, with the same dedup semantics as the
// relational implementation.
type MemoryRepository struct {
	mu         sync.Mutex
	nextID     int64
	nextTypeID int64

	locations map[types.LatLng]types.Location
	placeRows map[string]types.Place
	typeRows  map[string]types.PlaceType
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		locations: make(map[types.LatLng]types.Location),
		placeRows: make(map[string]types.Place),
		typeRows:  make(map[string]types.PlaceType),
	}
}

func (m *MemoryRepository) GetOrCreateLocations(_ context.Context, candidates []types.NearbyPlace) ([]types.Location, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	keys := uniqueLatLngs(candidates)
	byKey := make(map[types.LatLng]types.NearbyPlace, len(candidates))
	for _, candidate := range candidates {
		if _, ok := byKey[candidate.LatLngKey()]; !ok {
			byKey[candidate.LatLngKey()] = candidate
		}
	}

	result := make([]types.Location, 0, len(keys))
	for _, key := range keys {
		loc, ok := m.locations[key]
		if !ok {
			candidate := byKey[key]
			m.nextID++
			loc = types.Location{
				ID:           m.nextID,
				Latitude:     candidate.Latitude,
				Longitude:    candidate.Longitude,
				CompoundCode: candidate.CompoundCode,
				GlobalCode:   candidate.GlobalCode,
			}
			m.locations[key] = loc
		}
		result = append(result, loc)
	}
	return result, nil
}

func (m *MemoryRepository) GetOrCreatePlaces(_ context.Context, candidates []types.NearbyPlace, locationIDs map[types.LatLng]int64) ([]types.Place, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ordered := dedupeByPlaceID(candidates)
	result := make([]types.Place, 0, len(ordered))
	for _, candidate := range ordered {
		place, ok := m.placeRows[candidate.PlaceID]
		if !ok {
			locationID, ok := locationIDs[candidate.LatLngKey()]
			if !ok {
				return nil, fmt.Errorf("no location for place %s: %w", candidate.PlaceID, types.ErrBadRequest)
			}
			for _, name := range candidate.Types {
				if _, exists := m.typeRows[name]; !exists {
					m.nextTypeID++
					m.typeRows[name] = types.PlaceType{ID: m.nextTypeID, TypeName: name}
				}
			}
			m.nextID++
			place = types.Place{
				ID:               m.nextID,
				PlaceID:          candidate.PlaceID,
				Name:             candidate.Name,
				Address:          candidate.Vicinity,
				Rating:           candidate.Rating,
				UserRatingsTotal: candidate.UserRatingsTotal,
				LocationID:       locationID,
				PlaceTypes:       append([]string(nil), candidate.Types...),
			}
			m.placeRows[candidate.PlaceID] = place
		}
		result = append(result, place)
	}
	return result, nil
}

func (m *MemoryRepository) GetByPlaceID(_ context.Context, placeID string) (*types.Place, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	place, ok := m.placeRows[placeID]
	if !ok {
		return nil, fmt.Errorf("place %s: %w", placeID, types.ErrNotFound)
	}
	return &place, nil
}

func (m *MemoryRepository) UpdateAddress(_ context.Context, placeID, address string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	place, ok := m.placeRows[placeID]
	if !ok {
		return fmt.Errorf("place %s: %w", placeID, types.ErrNotFound)
	}
	place.Address = address
	m.placeRows[placeID] = place
	return nil
}

func (m *MemoryRepository) List(_ context.Context) ([]types.Place, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := make([]types.Place, 0, len(m.placeRows))
	for _, place := range m.placeRows {
		result = append(result, place)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// Counts reports stored row counts, used by tests asserting idempotency.
func (m *MemoryRepository) Counts() (locations, placeRows, typeRows int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.locations), len(m.placeRows), len(m.typeRows)
}
