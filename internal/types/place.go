package types

// Location is append-only reference data for places. Identity is the
// (latitude, longitude) pair or, equivalently, the provider plus-code pair.
type Location struct {
	ID           int64   `json:"id"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	CompoundCode string  `json:"compound_code"`
	GlobalCode   string  `json:"global_code"`
}

// Place is a venue returned by the provider's nearby search, persisted and
// deduplicated by its provider place id. Address is the only mutable field:
// the distance-matrix formatted address is treated as ground truth and may
// overwrite the nearby-search vicinity text later.
type Place struct {
	ID               int64    `json:"id"`
	PlaceID          string   `json:"place_id"`
	Name             string   `json:"name"`
	Address          string   `json:"address"`
	Rating           float64  `json:"rating"`
	UserRatingsTotal int      `json:"user_ratings_total"`
	LocationID       int64    `json:"location_id"`
	PlaceTypes       []string `json:"place_types"`
}

// PlaceType is a row of the deduplicated type vocabulary. Type names are
// case-sensitive and unique.
type PlaceType struct {
	ID       int64  `json:"id"`
	TypeName string `json:"type_name"`
}

// NearbyPlace is one raw nearby-search result before persistence.
type NearbyPlace struct {
	PlaceID          string   `json:"place_id"`
	Name             string   `json:"name"`
	Vicinity         string   `json:"vicinity"`
	Types            []string `json:"types"`
	Rating           float64  `json:"rating"`
	UserRatingsTotal int      `json:"user_ratings_total"`
	Latitude         float64  `json:"latitude"`
	Longitude        float64  `json:"longitude"`
	CompoundCode     string   `json:"compound_code"`
	GlobalCode       string   `json:"global_code"`
}

// LatLngKey is the map key used to join nearby-search results to their
// materialized locations.
func (p NearbyPlace) LatLngKey() LatLng {
	return LatLng{Lat: p.Latitude, Lng: p.Longitude}
}

// LatLng is an exact coordinate pair used as a lookup key.
type LatLng struct {
	Lat float64
	Lng float64
}

// PlaceCategory is the vocabulary of venue categories a recommendation
// request may ask for.
type PlaceCategory string

const (
	CategoryAmusementPark    PlaceCategory = "amusement_park"
	CategoryAquarium         PlaceCategory = "aquarium"
	CategoryArtGallery       PlaceCategory = "art_gallery"
	CategoryBakery           PlaceCategory = "bakery"
	CategoryBar              PlaceCategory = "bar"
	CategoryBookStore        PlaceCategory = "book_store"
	CategoryBusStation       PlaceCategory = "bus_station"
	CategoryCafe             PlaceCategory = "cafe"
	CategoryCityHall         PlaceCategory = "city_hall"
	CategoryConvenienceStore PlaceCategory = "convenience_store"
	CategoryDepartmentStore  PlaceCategory = "department_store"
	CategoryLibrary          PlaceCategory = "library"
	CategoryMovieTheater     PlaceCategory = "movie_theater"
	CategoryMuseum           PlaceCategory = "museum"
	CategoryNightClub        PlaceCategory = "night_club"
	CategoryPark             PlaceCategory = "park"
	CategoryParking          PlaceCategory = "parking"
	CategoryRestaurant       PlaceCategory = "restaurant"
	CategoryShoppingMall     PlaceCategory = "shopping_mall"
	CategoryStadium          PlaceCategory = "stadium"
	CategoryStore            PlaceCategory = "store"
	CategorySubwayStation    PlaceCategory = "subway_station"
	CategorySupermarket      PlaceCategory = "supermarket"
	CategoryTouristSpot      PlaceCategory = "tourist_attraction"
	CategoryTrainStation     PlaceCategory = "train_station"
	CategoryTransitStation   PlaceCategory = "transit_station"
)

var placeCategories = map[PlaceCategory]struct{}{
	CategoryAmusementPark: {}, CategoryAquarium: {}, CategoryArtGallery: {},
	CategoryBakery: {}, CategoryBar: {}, CategoryBookStore: {},
	CategoryBusStation: {}, CategoryCafe: {}, CategoryCityHall: {},
	CategoryConvenienceStore: {}, CategoryDepartmentStore: {},
	CategoryLibrary: {}, CategoryMovieTheater: {}, CategoryMuseum: {},
	CategoryNightClub: {}, CategoryPark: {}, CategoryParking: {},
	CategoryRestaurant: {}, CategoryShoppingMall: {}, CategoryStadium: {},
	CategoryStore: {}, CategorySubwayStation: {}, CategorySupermarket: {},
	CategoryTouristSpot: {}, CategoryTrainStation: {}, CategoryTransitStation: {},
}

func (c PlaceCategory) Valid() bool {
	_, ok := placeCategories[c]
	return ok
}
