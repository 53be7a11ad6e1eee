package suggestion

import (
	"encoding/json"
	"fmt"

	"github.com/FACorreiaa/loci-trip-planner/internal/types"
)

// promptTrip is the part of an itinerary the model gets to see.
type promptTrip struct {
	Title        string          `json:"title"`
	Destination  string          `json:"destination"`
	Budget       float64         `json:"budget"`
	CostEstimate float64         `json:"costEstimate"`
	Persona      string          `json:"persona,omitempty"`
	Days         []locitypes.Day `json:"days"`
}

func tripJSON(it locitypes.Itinerary) string {
	b, err := json.MarshalIndent(promptTrip{
		Title:        it.Title,
		Destination:  it.Location.Name,
		Budget:       it.Budget,
		CostEstimate: it.CostEstimate,
		Persona:      it.Persona,
		Days:         it.Days,
	}, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(b)
}

func getRefinePrompt(it locitypes.Itinerary, userInput string) string {
	return fmt.Sprintf(`
		You are a trip planner AI.
		The user has this trip: %s.
		The user request is: %q.

		Return ONLY JSON in this format:
		{
			"action": "add" | "remove" | "replace",
			"day": <day number>,
			"items": [
				{ "time": "Morning", "title": "Activity name", "category": "type", "bestTime": "when", "score": 90 }
			]
		}
		If no update is needed, return {"action":"none"}.
	`, tripJSON(it), userInput)
}

func getAssistantPrompt(it locitypes.Itinerary, forecast []locitypes.DailyForecast, userInput string) string {
	weather, err := json.MarshalIndent(forecast, "", "  ")
	if err != nil || len(forecast) == 0 {
		weather = []byte("[]")
	}
	return fmt.Sprintf(`
		You are a professional travel planner AI.

		The user has this trip: %s.
		Weather details: %s.
		The user request is: %q.

		If the request is about CHANGING the itinerary (add/remove/replace items),
		respond ONLY in JSON format:
		{
			"mode": "update",
			"action": "add" | "remove" | "replace",
			"day": <day number>,
			"items": [
				{ "time": "Morning", "title": "Activity", "category": "type", "bestTime": "string", "score": 90 }
			]
		}

		If the request is conversational (greetings, questions about the trip, summaries,
		best times to visit), respond ONLY in JSON format:
		{
			"mode": "chat",
			"message": "A friendly, brochure-style answer highlighting activities, local culture, weather and best times."
		}
	`, tripJSON(it), weather, userInput)
}

func getSummaryPrompt(it locitypes.Itinerary) string {
	return fmt.Sprintf(`
		You are a travel planner AI.
		Summarize this trip in a friendly, brochure-style paragraph
		(3-5 sentences, highlight culture, activities, best times):

		%s

		Return ONLY plain text.
	`, tripJSON(it))
}
