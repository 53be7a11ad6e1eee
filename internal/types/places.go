package locitypes

// Coordinates is a resolved latitude/longitude pair.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// PlaceCategory is the fixed set of nearby-search categories.
type PlaceCategory string

const (
	CategoryLodging           PlaceCategory = "lodging"
	CategoryRestaurant        PlaceCategory = "restaurant"
	CategoryTouristAttraction PlaceCategory = "tourist_attraction"
	CategoryMuseum            PlaceCategory = "museum"
	CategoryCafe              PlaceCategory = "cafe"
)

// Known reports whether c is part of the enumeration.
func (c PlaceCategory) Known() bool {
	switch c {
	case CategoryLodging, CategoryRestaurant, CategoryTouristAttraction, CategoryMuseum, CategoryCafe:
		return true
	}
	return false
}

// Normalize maps unknown categories onto the generic attraction query.
func (c PlaceCategory) Normalize() PlaceCategory {
	if c.Known() {
		return c
	}
	return CategoryTouristAttraction
}

// Place sources.
const (
	SourceGoogle = "google"
	SourceOSM    = "osm"
)

// Place is a point of interest normalized across providers.
// Source tells which provider answered.
type Place struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Lat     float64  `json:"lat"`
	Lng     float64  `json:"lng"`
	Rating  *float64 `json:"rating,omitempty"`
	Address string   `json:"address,omitempty"`
	Types   []string `json:"types,omitempty"`
	Source  string   `json:"source"`
}

// NearbyQuery parameters a nearby search. Radius is in meters.
type NearbyQuery struct {
	Lat      float64
	Lng      float64
	Radius   int
	Category PlaceCategory
}
