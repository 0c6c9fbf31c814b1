// Package maps wraps the external mapping provider. Client is the raw
// contract; Adapter is the layer every call passes through for logging,
// rate limiting, retry, status classification and audit persistence.
package maps

import (
	"context"

	"github.com/f-lab-edu/Meet-Up-Spot/internal/types"
)

// NearbySearchRequest asks for venues of one category around a point.
type NearbySearchRequest struct {
	Latitude  float64
	Longitude float64
	RadiusM   int
	Category  types.PlaceCategory
	Language  string
}

// DistanceMatrixRequest asks for distance and duration between every
// origin address and every destination place id.
type DistanceMatrixRequest struct {
	Origins        []string
	DestinationIDs []string
	Mode           types.TravelMode
	Language       string
}

// Client is the raw provider contract. Implementations return whatever the
// provider returned; classification of empty or failed outcomes is the
// Adapter's job.
type Client interface {
	Geocode(ctx context.Context, address string) ([]types.GeocodeResult, error)
	NearbySearch(ctx context.Context, req NearbySearchRequest) ([]types.NearbyPlace, error)
	DistanceMatrix(ctx context.Context, req DistanceMatrixRequest) ([]types.DistanceInfo, error)
}

// Provider function names, used for audit rows and metrics labels.
const (
	fnGeocode        = "geocode_address"
	fnNearbySearch   = "search_nearby_places"
	fnDistanceMatrix = "calculate_distance_matrix"
)

// requestURLs keys audit rows to the provider endpoint behind each call.
var requestURLs = map[string]string{
	fnGeocode:        "https://maps.googleapis.com/maps/api/geocode/json",
	fnNearbySearch:   "https://maps.googleapis.com/maps/api/place/nearbysearch/json",
	fnDistanceMatrix: "https://maps.googleapis.com/maps/api/distancematrix/json",
}
