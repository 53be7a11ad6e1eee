package itinerary

import (
	"encoding/json"
	"fmt"

	"github.com/samber/lo"

	"github.com/FACorreiaa/loci-trip-planner/internal/types"
)

type promptPlace struct {
	Name   string   `json:"name"`
	Lat    float64  `json:"lat"`
	Lng    float64  `json:"lng"`
	Rating *float64 `json:"rating,omitempty"`
	Score  int      `json:"score"`
}

type promptNearby struct {
	Hotels      []promptPlace `json:"hotels"`
	Restaurants []promptPlace `json:"restaurants"`
	Monuments   []promptPlace `json:"monuments"`
}

// promptContext is the bundle the model plans from.
type promptContext struct {
	Destination string                   `json:"destination"`
	Location    locitypes.Coordinates    `json:"location"`
	Days        int                      `json:"days"`
	Budget      float64                  `json:"budget"`
	Persona     string                   `json:"persona,omitempty"`
	Interests   []string                 `json:"interests,omitempty"`
	Nearby      promptNearby             `json:"nearby"`
	Weather     locitypes.WeatherSummary `json:"weather"`
}

func newPromptContext(req locitypes.TripRequest, coords locitypes.Coordinates, nearby locitypes.Nearby, w locitypes.WeatherSummary) promptContext {
	ranker := newPlaceRanker(req.Persona, req.Interests)
	top := func(places []locitypes.Place) []promptPlace {
		return lo.Map(ranker.Top(places, promptPlacesPerCategory), func(p rankedPlace, _ int) promptPlace {
			return promptPlace{Name: p.Name, Lat: p.Lat, Lng: p.Lng, Rating: p.Rating, Score: p.Score}
		})
	}
	return promptContext{
		Destination: req.Destination,
		Location:    coords,
		Days:        req.Days,
		Budget:      req.Budget,
		Persona:     req.Persona,
		Interests:   req.Interests,
		Nearby: promptNearby{
			Hotels:      top(nearby.Hotels),
			Restaurants: top(nearby.Restaurants),
			Monuments:   top(nearby.Monuments),
		},
		Weather: w,
	}
}

func getItineraryPrompt(pc promptContext) string {
	bundle, err := json.MarshalIndent(pc, "", "  ")
	if err != nil {
		bundle = []byte("{}")
	}
	persona := pc.Persona
	if persona == "" {
		persona = "a general traveller"
	}
	return fmt.Sprintf(`
    You are a strict JSON-only generator.
    Do not include markdown, comments, or explanations.
    Return ONLY valid JSON, no backticks, no code fences.

    Generate a trip plan based on this context:

    %s

    Create a trip plan JSON in this exact format:
    {
        "title": "<destination> Getaway",
        "location": { "name": "<destination>", "lat": <lat>, "lng": <lng> },
        "costEstimate": <estimated total cost within budget>,
        "days": [
            {
                "day": 1,
                "items": [
                    {
                        "time": "Morning",
                        "title": "<activity name>",
                        "category": "<category>",
                        "bestTime": "<Morning|Afternoon|Evening>",
                        "score": <0-100>,
                        "lat": <lat>,
                        "lng": <lng>
                    }
                ]
            }
        ]
    }

    Rules:
    - Produce exactly %d days, numbered 1 to %d.
    - Use 2-3 activities per day.
    - Prefer real nearby places from the provided hotels, restaurants and monuments; higher score means a better fit.
    - Align activities with the persona (%s) and interests.
    - Keep the total cost estimate within the budget of %.0f.
    - If the weather is poor (rain, storms, snow), include indoor places such as museums or cafes.
    - Return ONLY JSON, no explanations.
    `, bundle, pc.Days, pc.Days, persona, pc.Budget)
}
