package locitypes

// Messages exchanged on the TripService RPC surface.

type GenerateItineraryRequest struct {
	Trip TripRequest `json:"trip"`
}

type GenerateItineraryResponse struct {
	Result BuildResult `json:"result"`
}

type ItineraryRef struct {
	ItineraryID string `json:"itineraryId"`
}

type ItineraryResponse struct {
	Itinerary Itinerary `json:"itinerary"`
}

type ListItinerariesRequest struct{}

type ListItinerariesResponse struct {
	Itineraries []ItinerarySummary `json:"itineraries"`
}

type DeleteItineraryResponse struct{}

type ToggleFavoriteResponse struct {
	Favorite bool  `json:"favorite"`
	Revision int64 `json:"revision"`
}

type DeleteActivityRequest struct {
	ItineraryID string `json:"itineraryId"`
	Day         int    `json:"day"`
	Index       int    `json:"index"`
}

type SuggestEditRequest struct {
	ItineraryID string `json:"itineraryId"`
	Message     string `json:"message"`
}

type SuggestEditResponse struct {
	Edit *Edit `json:"edit,omitempty"`
}

type ApplyEditRequest struct {
	ItineraryID string `json:"itineraryId"`
	Edit        Edit   `json:"edit"`
}

type AskAssistantRequest struct {
	ItineraryID string `json:"itineraryId"`
	Message     string `json:"message"`
}

type AskAssistantResponse struct {
	Reply AssistantReply `json:"reply"`
}

type SummarizeItineraryResponse struct {
	Summary string `json:"summary"`
}

type CreateShareLinkResponse struct {
	Link ShareLink `json:"link"`
}

type ResolveShareLinkRequest struct {
	Token string `json:"token"`
}

type GetWeatherRequest struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type GetWeatherResponse struct {
	Headline WeatherHeadline `json:"headline"`
	Forecast []DailyForecast `json:"forecast"`
}

type WatchItineraryEvent struct {
	Itinerary *Itinerary `json:"itinerary,omitempty"`
	NotFound  bool       `json:"notFound"`
}

type WatchItinerariesEvent struct {
	Itineraries []ItinerarySummary `json:"itineraries"`
}
