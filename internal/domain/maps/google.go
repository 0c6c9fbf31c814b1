package maps

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	olc "github.com/google/open-location-code/go"
	"golang.org/x/time/rate"
	gmaps "googlemaps.github.io/maps"

	"github.com/f-lab-edu/Meet-Up-Spot/internal/types"
)

var _ Client = (*GoogleClient)(nil)

// plusCodeLength is the standard Open Location Code precision (~14m cell).
const plusCodeLength = 10

// GoogleClient implements Client on the official Google Maps client. A
// client-side rate limiter bounds QPS before any request leaves the
// process.
type GoogleClient struct {
	client  *gmaps.Client
	limiter *rate.Limiter
}

func NewGoogleClient(apiKey string, qps int, timeout time.Duration) (*GoogleClient, error) {
	client, err := gmaps.NewClient(
		gmaps.WithAPIKey(apiKey),
		gmaps.WithHTTPClient(newHTTPClient(timeout)),
	)
	if err != nil {
		return nil, fmt.Errorf("creating google maps client: %w", err)
	}
	if qps <= 0 {
		qps = 10
	}
	return &GoogleClient{
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(qps), qps),
	}, nil
}

// Geocode implements Client.
func (g *GoogleClient) Geocode(ctx context.Context, address string) ([]types.GeocodeResult, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	results, err := g.client.Geocode(ctx, &gmaps.GeocodingRequest{Address: address})
	if err != nil {
		return nil, err
	}

	geocoded := make([]types.GeocodeResult, 0, len(results))
	for _, result := range results {
		lat := result.Geometry.Location.Lat
		lng := result.Geometry.Location.Lng
		geocoded = append(geocoded, types.GeocodeResult{
			Latitude:     lat,
			Longitude:    lng,
			CompoundCode: compoundCode(lat, lng, result.FormattedAddress),
			GlobalCode:   olc.Encode(lat, lng, plusCodeLength),
		})
	}
	return geocoded, nil
}

// NearbySearch implements Client.
func (g *GoogleClient) NearbySearch(ctx context.Context, req NearbySearchRequest) ([]types.NearbyPlace, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	resp, err := g.client.NearbySearch(ctx, &gmaps.NearbySearchRequest{
		Location: &gmaps.LatLng{Lat: req.Latitude, Lng: req.Longitude},
		Radius:   uint(req.RadiusM),
		Type:     gmaps.PlaceType(req.Category),
		Language: req.Language,
	})
	if err != nil {
		return nil, err
	}

	nearby := make([]types.NearbyPlace, 0, len(resp.Results))
	for _, result := range resp.Results {
		lat := result.Geometry.Location.Lat
		lng := result.Geometry.Location.Lng
		nearby = append(nearby, types.NearbyPlace{
			PlaceID:          result.PlaceID,
			Name:             result.Name,
			Vicinity:         result.Vicinity,
			Types:            result.Types,
			Rating:           float64(result.Rating),
			UserRatingsTotal: result.UserRatingsTotal,
			Latitude:         lat,
			Longitude:        lng,
			CompoundCode:     compoundCode(lat, lng, result.Vicinity),
			GlobalCode:       olc.Encode(lat, lng, plusCodeLength),
		})
	}
	return nearby, nil
}

// DistanceMatrix implements Client. Destinations are queried by place id;
// elements without a route come back with nil numeric values.
func (g *GoogleClient) DistanceMatrix(ctx context.Context, req DistanceMatrixRequest) ([]types.DistanceInfo, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	destinations := make([]string, len(req.DestinationIDs))
	for i, id := range req.DestinationIDs {
		destinations[i] = "place_id:" + id
	}

	mode := gmaps.TravelModeTransit
	switch req.Mode {
	case types.ModeDriving:
		mode = gmaps.TravelModeDriving
	case types.ModeWalking:
		mode = gmaps.TravelModeWalking
	case types.ModeBicycling:
		mode = gmaps.TravelModeBicycling
	}

	resp, err := g.client.DistanceMatrix(ctx, &gmaps.DistanceMatrixRequest{
		Origins:      req.Origins,
		Destinations: destinations,
		Mode:         mode,
		Language:     req.Language,
	})
	if err != nil {
		return nil, err
	}

	var distances []types.DistanceInfo
	for rowIdx, row := range resp.Rows {
		origin := ""
		if rowIdx < len(resp.OriginAddresses) {
			origin = resp.OriginAddresses[rowIdx]
		}
		for elemIdx, element := range row.Elements {
			info := types.DistanceInfo{
				Origin: origin,
			}
			if elemIdx < len(resp.DestinationAddresses) {
				info.Destination = resp.DestinationAddresses[elemIdx]
			}
			if elemIdx < len(req.DestinationIDs) {
				info.DestinationID = req.DestinationIDs[elemIdx]
			}
			if element.Status == "OK" {
				meters := element.Distance.Meters
				seconds := int(element.Duration / time.Second)
				info.DistanceText = element.Distance.HumanReadable
				info.DistanceValue = &meters
				info.DurationText = element.Duration.String()
				info.DurationValue = &seconds
			}
			distances = append(distances, info)
		}
	}
	return distances, nil
}

// newHTTPClient applies the fixed per-call socket timeout. Bounding a hang
// beyond that is the caller's responsibility.
func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

// compoundCode builds a plus-code compound form ("9QJR+XX <locality>")
// from the full code and the provider's locality text.
func compoundCode(lat, lng float64, locality string) string {
	code := olc.Encode(lat, lng, plusCodeLength)
	short := code[4:]
	locality = strings.TrimSpace(locality)
	if locality == "" {
		return short
	}
	return short + " " + locality
}
