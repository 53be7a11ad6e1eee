package locitypes

import (
	"encoding/json"
	"time"
)

// GuestOwnerID marks itineraries built or shared without an authenticated owner.
const GuestOwnerID = "guest"

// Location is the resolved destination of an itinerary.
type Location struct {
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
}

// Activity is a single planned visit inside a day.
// A zero Score means the activity was never scored.
type Activity struct {
	Time     string   `json:"time"`
	Title    string   `json:"title"`
	Category string   `json:"category"`
	BestTime string   `json:"bestTime"`
	Score    int      `json:"score"`
	Lat      *float64 `json:"lat,omitempty"`
	Lng      *float64 `json:"lng,omitempty"`
}

// Day groups activities under a 1-based day number.
type Day struct {
	Day   int        `json:"day"`
	Items []Activity `json:"items"`
}

// Nearby is the frozen snapshot of provider places captured at generation time.
type Nearby struct {
	Hotels      []Place `json:"hotels"`
	Restaurants []Place `json:"restaurants"`
	Monuments   []Place `json:"monuments"`
}

// Itinerary is the complete trip plan stored per owner.
type Itinerary struct {
	ID           string          `json:"id"`
	Title        string          `json:"title"`
	Location     Location        `json:"location"`
	Budget       float64         `json:"budget"`
	CostEstimate float64         `json:"costEstimate"`
	Days         []Day           `json:"days"`
	Nearby       Nearby          `json:"nearby"`
	Weather      json.RawMessage `json:"weather,omitempty"`
	Persona      string          `json:"persona,omitempty"`
	Interests    []string        `json:"interests,omitempty"`
	Unsaved      bool            `json:"unsaved"`
	Favorite     bool            `json:"favorite"`
	Revision     int64           `json:"revision"`
	CreatedAt    time.Time       `json:"createdAt"`
}

// FindDay returns the index of the day whose number equals day, or -1.
// Lookups go by the day field, never by array position.
func (it *Itinerary) FindDay(day int) int {
	for i := range it.Days {
		if it.Days[i].Day == day {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy so callers can mutate without touching the original.
func (it Itinerary) Clone() Itinerary {
	out := it
	if it.Days != nil {
		out.Days = make([]Day, len(it.Days))
		for i, d := range it.Days {
			out.Days[i] = Day{Day: d.Day, Items: cloneActivities(d.Items)}
		}
	}
	out.Nearby = Nearby{
		Hotels:      clonePlaces(it.Nearby.Hotels),
		Restaurants: clonePlaces(it.Nearby.Restaurants),
		Monuments:   clonePlaces(it.Nearby.Monuments),
	}
	if it.Weather != nil {
		out.Weather = append(json.RawMessage(nil), it.Weather...)
	}
	if it.Interests != nil {
		out.Interests = append([]string(nil), it.Interests...)
	}
	return out
}

func cloneActivities(in []Activity) []Activity {
	if in == nil {
		return nil
	}
	out := make([]Activity, len(in))
	for i, a := range in {
		out[i] = a
		if a.Lat != nil {
			v := *a.Lat
			out[i].Lat = &v
		}
		if a.Lng != nil {
			v := *a.Lng
			out[i].Lng = &v
		}
	}
	return out
}

func clonePlaces(in []Place) []Place {
	if in == nil {
		return nil
	}
	out := make([]Place, len(in))
	for i, p := range in {
		out[i] = p
		if p.Rating != nil {
			v := *p.Rating
			out[i].Rating = &v
		}
	}
	return out
}

// ItinerarySummary is the collection view of an itinerary.
type ItinerarySummary struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Destination string    `json:"destination"`
	DayCount    int       `json:"dayCount"`
	Favorite    bool      `json:"favorite"`
	Revision    int64     `json:"revision"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Summary projects the itinerary onto its collection view.
func (it *Itinerary) Summary() ItinerarySummary {
	return ItinerarySummary{
		ID:          it.ID,
		Title:       it.Title,
		Destination: it.Location.Name,
		DayCount:    len(it.Days),
		Favorite:    it.Favorite,
		Revision:    it.Revision,
		CreatedAt:   it.CreatedAt,
	}
}

// ItineraryPatch is a partial document update. Nil fields are left untouched.
type ItineraryPatch struct {
	Title        *string
	Days         []Day
	Favorite     *bool
	CostEstimate *float64
	Revision     int64
}

// ItineraryBody is the validated part of a generated itinerary.
type ItineraryBody struct {
	Title        string
	Destination  string
	Location     *Location
	CostEstimate float64
	Days         []Day
}

// TripRequest is the onboarding form submitted to build an itinerary.
type TripRequest struct {
	Destination string   `json:"destination" validate:"required,min=2,max=120"`
	Days        int      `json:"days" validate:"gte=1,lte=30"`
	Budget      float64  `json:"budget" validate:"gte=0"`
	Persona     string   `json:"persona" validate:"omitempty,max=60"`
	Interests   []string `json:"interests,omitempty" validate:"omitempty,max=10,dive,max=40"`
}

// BuildResult is what a successful or partially successful build hands back.
type BuildResult struct {
	Itinerary  Itinerary `json:"itinerary"`
	ShareToken string    `json:"shareToken,omitempty"`
	Fallback   bool      `json:"fallback"`
}

// EditAction enumerates the incremental edits an assistant can suggest.
type EditAction string

const (
	EditAdd     EditAction = "add"
	EditReplace EditAction = "replace"
	EditRemove  EditAction = "remove"
)

// Edit is an incremental change to one day of an itinerary.
type Edit struct {
	Action EditAction `json:"action"`
	Day    int        `json:"day"`
	Items  []Activity `json:"items"`
}

// AssistantMode tells whether the assistant answered or proposed a change.
type AssistantMode string

const (
	AssistantChat   AssistantMode = "chat"
	AssistantUpdate AssistantMode = "update"
)

// AssistantReply is the assistant's answer to a free-form user message.
type AssistantReply struct {
	Mode    AssistantMode `json:"mode"`
	Message string        `json:"message,omitempty"`
	Edit    *Edit         `json:"edit,omitempty"`
}

// AnalyticsEvent records one itinerary generation.
type AnalyticsEvent struct {
	OwnerID     string    `json:"uid"`
	Destination string    `json:"destination"`
	Budget      float64   `json:"budget"`
	Days        int       `json:"days"`
	Persona     string    `json:"persona"`
	CreatedAt   time.Time `json:"createdAt"`
}
