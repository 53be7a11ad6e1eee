package itinerary

import (
	"github.com/FACorreiaa/loci-trip-planner/internal/types"
)

// fallbackBody is the deterministic one-day plan used when the model's reply is unusable.
// It starts from the first monument and restaurant, with placeholders when none were found.
func fallbackBody(destination string, nearby locitypes.Nearby) locitypes.ItineraryBody {
	morning := locitypes.Activity{
		Time:     "Morning",
		Title:    "Local Exploration",
		Category: "Sightseeing",
		BestTime: "Morning",
		Score:    90,
	}
	if len(nearby.Monuments) > 0 {
		m := nearby.Monuments[0]
		morning.Title = m.Name
		morning.Lat, morning.Lng = coord(m.Lat), coord(m.Lng)
	}

	evening := locitypes.Activity{
		Time:     "Evening",
		Title:    "Dinner by Sunset",
		Category: "Food",
		BestTime: "Evening",
		Score:    85,
	}
	if len(nearby.Restaurants) > 0 {
		r := nearby.Restaurants[0]
		evening.Title = r.Name
		evening.Lat, evening.Lng = coord(r.Lat), coord(r.Lng)
	}

	return locitypes.ItineraryBody{
		Title:       destination + " Trip",
		Destination: destination,
		Days: []locitypes.Day{
			{Day: 1, Items: []locitypes.Activity{morning, evening}},
		},
	}
}

func coord(v float64) *float64 { return &v }
