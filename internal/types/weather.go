package locitypes

import "time"

// DailyForecast is one day of a multi-day forecast.
type DailyForecast struct {
	Timestamp   time.Time `json:"timestamp"`
	Temperature float64   `json:"temperature"`
	Condition   string    `json:"condition"`
	Icon        string    `json:"icon"`
}

// WeatherSummary is the one-line weather context handed to the prompt.
type WeatherSummary struct {
	AvgTemp   string `json:"avgTemp"`
	Condition string `json:"condition"`
	Poor      bool   `json:"poor"`
}

// WeatherHeadline is the current-conditions view shown next to an itinerary.
type WeatherHeadline struct {
	Temperature float64 `json:"temperature"`
	Condition   string  `json:"condition"`
	Icon        string  `json:"icon"`
	Available   bool    `json:"available"`
}
