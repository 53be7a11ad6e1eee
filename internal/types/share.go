package locitypes

// ShareRef is the only payload embedded in a share token.
type ShareRef struct {
	OwnerID     string `json:"userId"`
	ItineraryID string `json:"tripId"`
}

// ShareLink is a ready-to-send share reference.
type ShareLink struct {
	Token string `json:"token"`
	URL   string `json:"url"`
}
