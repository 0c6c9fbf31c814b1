package types

// GeocodeResult is the coordinate (plus plus-code pair) the provider
// resolved an address to.
type GeocodeResult struct {
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	CompoundCode string  `json:"compound_code"`
	GlobalCode   string  `json:"global_code"`
}

// DistanceInfo is one origin x destination element of a distance-matrix
// response. DestinationID is set only when destinations were queried by
// place id. Nil numeric values mean the provider found no route for the
// pair; such rows must never be used as ranking signal.
type DistanceInfo struct {
	Origin        string `json:"origin"`
	Destination   string `json:"destination"`
	DestinationID string `json:"destination_id,omitempty"`
	DistanceText  string `json:"distance_text,omitempty"`
	DistanceValue *int   `json:"distance_value"`
	DurationText  string `json:"duration_text,omitempty"`
	DurationValue *int   `json:"duration_value"`
}

// AggregatedAttr selects which distance-matrix value is summed across
// origins when ranking destinations for a group.
type AggregatedAttr string

const (
	AggregatedDistance AggregatedAttr = "distance"
	AggregatedDuration AggregatedAttr = "duration"
)

func (a AggregatedAttr) Valid() bool {
	return a == AggregatedDistance || a == AggregatedDuration
}

// TravelMode mirrors the provider's distance-matrix travel modes.
type TravelMode string

const (
	ModeDriving   TravelMode = "driving"
	ModeWalking   TravelMode = "walking"
	ModeBicycling TravelMode = "bicycling"
	ModeTransit   TravelMode = "transit"
)

func (m TravelMode) Valid() bool {
	switch m {
	case ModeDriving, ModeWalking, ModeBicycling, ModeTransit:
		return true
	}
	return false
}

// UserPreferences configures one recommendation request.
type UserPreferences struct {
	PlaceType       PlaceCategory  `json:"place_type"`
	ReturnCount     int            `json:"return_count"`
	FilterCondition AggregatedAttr `json:"filter_condition"`
}

// Validate checks the request config before the pipeline runs.
func (p UserPreferences) Validate() error {
	if !p.PlaceType.Valid() {
		return ErrBadRequest
	}
	if p.ReturnCount <= 0 {
		return ErrBadRequest
	}
	if !p.FilterCondition.Valid() {
		return ErrBadRequest
	}
	return nil
}
