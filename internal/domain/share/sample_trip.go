package share

import (
	"time"

	"github.com/FACorreiaa/loci-trip-planner/internal/types"
)

// SampleItineraryID is the id carried by the demonstration itinerary.
const SampleItineraryID = "sample-jaipur-heritage"

func f(v float64) *float64 { return &v }

// SampleItinerary is the fixed record every guest share link resolves to.
func SampleItinerary() locitypes.Itinerary {
	return locitypes.Itinerary{
		ID:           SampleItineraryID,
		Title:        "Jaipur Heritage Getaway",
		Location:     locitypes.Location{Name: "Jaipur, Rajasthan", Lat: 26.9124, Lng: 75.7873},
		Budget:       18000,
		CostEstimate: 18000,
		Persona:      "Heritage Lover",
		Days: []locitypes.Day{
			{Day: 1, Items: []locitypes.Activity{
				{Time: "Morning", Title: "Amber Fort Visit", Category: "Culture", BestTime: "Morning", Score: 95, Lat: f(26.9855), Lng: f(75.8513)},
				{Time: "Evening", Title: "Hawa Mahal", Category: "Sightseeing", BestTime: "Evening", Score: 90, Lat: f(26.9239), Lng: f(75.8267)},
			}},
			{Day: 2, Items: []locitypes.Activity{
				{Time: "Morning", Title: "City Palace", Category: "History", BestTime: "Morning", Score: 92, Lat: f(26.9258), Lng: f(75.8237)},
				{Time: "Afternoon", Title: "Bapu Bazaar", Category: "Shopping", BestTime: "Afternoon", Score: 85, Lat: f(26.9145), Lng: f(75.8231)},
			}},
		},
		Nearby:    locitypes.Nearby{Hotels: []locitypes.Place{}, Restaurants: []locitypes.Place{}, Monuments: []locitypes.Place{}},
		CreatedAt: time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC),
	}
}
