package itinerary

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/loci-trip-planner/internal/llm"
	"github.com/FACorreiaa/loci-trip-planner/internal/types"
)

var jaipur = &locitypes.Coordinates{Lat: 26.9124, Lng: 75.7873}

func rating(v float64) *float64 { return &v }

func place(id, name string, lat, lng float64) locitypes.Place {
	return locitypes.Place{ID: id, Name: name, Lat: lat, Lng: lng, Source: locitypes.SourceGoogle}
}

var (
	jaipurHotels      = []locitypes.Place{place("h1", "Rambagh Palace", 26.898, 75.808)}
	jaipurRestaurants = []locitypes.Place{place("r1", "Laxmi Mishthan Bhandar", 26.922, 75.823)}
	jaipurMonuments   = []locitypes.Place{place("m1", "Amber Fort", 26.985, 75.851), place("m2", "Hawa Mahal", 26.923, 75.826)}
)

const jaipurWeather = `{"list":[
	{"dt":1735725600,"main":{"temp":22.4},"weather":[{"description":"clear sky","icon":"01d"}]},
	{"dt":1735812000,"main":{"temp":24.6},"weather":[{"description":"few clouds","icon":"02d"}]}
],"city":{"timezone":19800}}`

const jaipurReply = "Here is your plan:\n```json\n" + `{
  "title": "Jaipur Heritage Getaway",
  "location": {"name": "Jaipur", "lat": 26.91, "lng": 75.78},
  "costEstimate": 11500,
  "days": [
    {"day": 1, "items": [
      {"time": "Morning", "title": "Amber Fort", "category": "Heritage", "bestTime": "Morning", "score": 96, "lat": 26.985, "lng": 75.851},
      {"time": "Evening", "title": "Laxmi Mishthan Bhandar", "category": "Food", "bestTime": "Evening", "score": 120}
    ]},
    {"day": 2, "items": [
      {"time": "Morning", "title": "Hawa Mahal", "category": "Heritage", "bestTime": "Morning", "score": 91},
      {"time": "Afternoon", "title": "City Palace", "category": "Museum", "bestTime": "Afternoon", "score": -4},
    ]}
  ]
}` + "\n```"

type fixture struct {
	geo      *MockGeoResolver
	weather  *MockWeatherClient
	places   *MockPlacesClient
	ai       *MockAIGateway
	store    *MockStore
	links    *MockShareLinker
	recorder *MockRecorder
	svc      *ServiceImpl
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		geo:      new(MockGeoResolver),
		weather:  new(MockWeatherClient),
		places:   new(MockPlacesClient),
		ai:       new(MockAIGateway),
		store:    new(MockStore),
		links:    new(MockShareLinker),
		recorder: new(MockRecorder),
	}
	f.svc = NewService(Config{BuildTimeout: 5 * time.Second}, f.geo, f.weather, f.places, f.ai, f.store, f.links, f.recorder, newTestLogger())
	f.svc.newID = func() string { return "it-1" }
	f.svc.now = func() time.Time { return time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC) }
	return f
}

func category(c locitypes.PlaceCategory) any {
	return mock.MatchedBy(func(q locitypes.NearbyQuery) bool { return q.Category == c })
}

// expectEnrichment wires Jaipur coordinates, weather and places.
func (f *fixture) expectEnrichment(hotels, restaurants, monuments []locitypes.Place) {
	f.geo.On("Resolve", mock.Anything, "Jaipur").Return(jaipur)
	f.weather.On("ForecastRaw", mock.Anything, jaipur.Lat, jaipur.Lng).Return(json.RawMessage(jaipurWeather))
	f.places.On("FetchNearby", mock.Anything, category(locitypes.CategoryLodging)).Return(hotels)
	f.places.On("FetchNearby", mock.Anything, category(locitypes.CategoryRestaurant)).Return(restaurants)
	f.places.On("FetchNearby", mock.Anything, category(locitypes.CategoryTouristAttraction)).Return(monuments)
	f.recorder.On("Record", mock.Anything, mock.Anything).Return(nil).Maybe()
}

func jaipurRequest() locitypes.TripRequest {
	return locitypes.TripRequest{Destination: "Jaipur", Days: 2, Budget: 12000, Persona: "Heritage Lover"}
}

func TestBuild_Jaipur(t *testing.T) {
	f := newFixture(t)
	f.expectEnrichment(jaipurHotels, jaipurRestaurants, jaipurMonuments)
	f.ai.On("Generate", mock.Anything, mock.MatchedBy(func(p string) bool {
		return strings.Contains(p, "Produce exactly 2 days") && strings.Contains(p, "Heritage Lover") &&
			strings.Contains(p, "Amber Fort")
	})).Return(jaipurReply)
	f.store.On("Set", mock.Anything, "uid-1", "it-1", mock.MatchedBy(func(it locitypes.Itinerary) bool {
		return it.ID == "it-1" && len(it.Days) == 2
	})).Return(nil)
	f.links.On("Link", locitypes.ShareRef{OwnerID: "uid-1", ItineraryID: "it-1"}).
		Return(locitypes.ShareLink{Token: "tok", URL: "http://localhost/s/tok"}, nil)

	res, err := f.svc.Build(context.Background(), jaipurRequest(), "uid-1")
	require.NoError(t, err)
	f.svc.Wait()

	it := res.Itinerary
	assert.False(t, res.Fallback)
	assert.Equal(t, "tok", res.ShareToken)
	assert.False(t, it.Unsaved)
	assert.Equal(t, "Jaipur Heritage Getaway", it.Title)
	assert.InDelta(t, 26.91, it.Location.Lat, 0.01)
	assert.InDelta(t, 75.78, it.Location.Lng, 0.01)
	assert.Equal(t, 11500.0, it.CostEstimate)
	assert.Equal(t, 12000.0, it.Budget)
	require.Len(t, it.Days, 2)
	for _, d := range it.Days {
		for _, a := range d.Items {
			assert.GreaterOrEqual(t, a.Score, 0)
			assert.LessOrEqual(t, a.Score, 100)
		}
	}
	assert.Len(t, it.Nearby.Monuments, 2)
	assert.JSONEq(t, jaipurWeather, string(it.Weather))
	assert.Equal(t, int64(1), it.Revision)

	f.recorder.AssertCalled(t, "Record", mock.Anything, mock.MatchedBy(func(e locitypes.AnalyticsEvent) bool {
		return e.OwnerID == "uid-1" && e.Destination == "Jaipur" && e.Days == 2 && e.Persona == "Heritage Lover"
	}))
	f.store.AssertExpectations(t)
}

func TestBuild_FallbackOnUnstructuredReply(t *testing.T) {
	f := newFixture(t)
	f.expectEnrichment(jaipurHotels, jaipurRestaurants, jaipurMonuments)
	f.ai.On("Generate", mock.Anything, mock.Anything).Return(llm.FailureSentinel)
	f.store.On("Set", mock.Anything, "uid-1", "it-1", mock.Anything).Return(nil)
	f.links.On("Link", mock.Anything).Return(locitypes.ShareLink{Token: "tok"}, nil)

	res, err := f.svc.Build(context.Background(), jaipurRequest(), "uid-1")
	require.NoError(t, err)
	f.svc.Wait()

	assert.True(t, res.Fallback)
	it := res.Itinerary
	assert.Equal(t, "Jaipur Trip", it.Title)
	require.Len(t, it.Days, 1)
	require.Len(t, it.Days[0].Items, 2)
	assert.Equal(t, "Amber Fort", it.Days[0].Items[0].Title)
	assert.Equal(t, 90, it.Days[0].Items[0].Score)
	assert.Equal(t, "Laxmi Mishthan Bhandar", it.Days[0].Items[1].Title)
	assert.Equal(t, 85, it.Days[0].Items[1].Score)
	assert.Equal(t, 12000.0, it.CostEstimate)
}

func TestBuild_FallbackOnInvalidBody(t *testing.T) {
	f := newFixture(t)
	f.expectEnrichment(jaipurHotels, jaipurRestaurants, jaipurMonuments)
	f.ai.On("Generate", mock.Anything, mock.Anything).Return(`{"days":[]}`)
	f.store.On("Set", mock.Anything, "uid-1", "it-1", mock.Anything).Return(nil)
	f.links.On("Link", mock.Anything).Return(locitypes.ShareLink{Token: "tok"}, nil)

	res, err := f.svc.Build(context.Background(), jaipurRequest(), "uid-1")
	require.NoError(t, err)
	f.svc.Wait()

	assert.True(t, res.Fallback)
	assert.NotEmpty(t, res.Itinerary.Days)
}

func TestBuild_FallbackWithoutAnyPlaces(t *testing.T) {
	f := newFixture(t)
	empty := []locitypes.Place{}
	f.geo.On("Resolve", mock.Anything, "Jaipur").Return(jaipur)
	f.weather.On("ForecastRaw", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.places.On("FetchNearby", mock.Anything, mock.Anything).Return(empty)
	f.recorder.On("Record", mock.Anything, mock.Anything).Return(nil)
	f.ai.On("Generate", mock.Anything, mock.Anything).Return("I cannot help with that.")

	res, err := f.svc.Build(context.Background(), jaipurRequest(), locitypes.GuestOwnerID)
	require.NoError(t, err)
	f.svc.Wait()

	items := res.Itinerary.Days[0].Items
	assert.Equal(t, "Local Exploration", items[0].Title)
	assert.Nil(t, items[0].Lat)
	assert.Equal(t, "Dinner by Sunset", items[1].Title)
	assert.NotNil(t, res.Itinerary.Nearby.Hotels)
	assert.Empty(t, res.Itinerary.Weather)
}

func TestBuild_InvalidDestinationNeverPersists(t *testing.T) {
	f := newFixture(t)
	f.geo.On("Resolve", mock.Anything, "Xqzzvv Nowhere").Return(nil)

	req := jaipurRequest()
	req.Destination = "  Xqzzvv   Nowhere "
	res, err := f.svc.Build(context.Background(), req, "uid-1")

	assert.Nil(t, res)
	assert.ErrorIs(t, err, locitypes.ErrInvalidDestination)
	f.store.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.ai.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
	f.places.AssertNotCalled(t, "FetchNearby", mock.Anything, mock.Anything)
}

func TestBuild_InvalidInput(t *testing.T) {
	tests := []struct {
		name  string
		req   locitypes.TripRequest
		field string
	}{
		{name: "zero days", req: locitypes.TripRequest{Destination: "Jaipur", Days: 0}, field: "days"},
		{name: "negative days", req: locitypes.TripRequest{Destination: "Jaipur", Days: -3}, field: "days"},
		{name: "too many days", req: locitypes.TripRequest{Destination: "Jaipur", Days: 31}, field: "days"},
		{name: "blank destination", req: locitypes.TripRequest{Destination: "   ", Days: 2}, field: "destination"},
		{name: "negative budget", req: locitypes.TripRequest{Destination: "Jaipur", Days: 2, Budget: -1}, field: "budget"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.svc.Build(context.Background(), tt.req, "uid-1")

			require.ErrorIs(t, err, locitypes.ErrInvalidInput)
			var inputErr *locitypes.InputError
			require.ErrorAs(t, err, &inputErr)
			assert.Contains(t, inputErr.Fields, tt.field)
			f.geo.AssertNotCalled(t, "Resolve", mock.Anything, mock.Anything)
		})
	}
}

func TestBuild_PersistenceFailureKeepsDraft(t *testing.T) {
	f := newFixture(t)
	f.expectEnrichment(jaipurHotels, jaipurRestaurants, jaipurMonuments)
	f.ai.On("Generate", mock.Anything, mock.Anything).Return(jaipurReply)
	f.store.On("Set", mock.Anything, "uid-1", "it-1", mock.Anything).Return(errors.New("connection refused")).Once()

	res, err := f.svc.Build(context.Background(), jaipurRequest(), "uid-1")
	f.svc.Wait()

	require.ErrorIs(t, err, locitypes.ErrPersistence)
	require.NotNil(t, res)
	assert.True(t, res.Itinerary.Unsaved)
	assert.Empty(t, res.ShareToken)
	f.links.AssertNotCalled(t, "Link", mock.Anything)

	f.store.On("Set", mock.Anything, "uid-1", "it-1", mock.Anything).Return(nil).Once()
	f.links.On("Link", mock.Anything).Return(locitypes.ShareLink{Token: "tok"}, nil)

	saved, err := f.svc.SaveDraft(context.Background(), "uid-1", "it-1")
	require.NoError(t, err)
	assert.False(t, saved.Itinerary.Unsaved)
	assert.Equal(t, "tok", saved.ShareToken)
	assert.Len(t, saved.Itinerary.Days, 2)

	_, err = f.svc.SaveDraft(context.Background(), "uid-1", "it-1")
	assert.ErrorIs(t, err, locitypes.ErrNotFound, "draft is dropped once saved")
}

func TestBuild_GuestIsNotPersisted(t *testing.T) {
	f := newFixture(t)
	f.expectEnrichment(jaipurHotels, jaipurRestaurants, jaipurMonuments)
	f.ai.On("Generate", mock.Anything, mock.Anything).Return(jaipurReply)

	res, err := f.svc.Build(context.Background(), jaipurRequest(), "")
	require.NoError(t, err)
	f.svc.Wait()

	assert.True(t, res.Itinerary.Unsaved)
	assert.Empty(t, res.ShareToken)
	f.store.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.recorder.AssertCalled(t, "Record", mock.Anything, mock.MatchedBy(func(e locitypes.AnalyticsEvent) bool {
		return e.OwnerID == locitypes.GuestOwnerID
	}))
}

func TestBuild_IgnoresCallerCancellation(t *testing.T) {
	f := newFixture(t)
	f.expectEnrichment(jaipurHotels, jaipurRestaurants, jaipurMonuments)
	f.ai.On("Generate", mock.MatchedBy(func(ctx context.Context) bool { return ctx.Err() == nil }), mock.Anything).
		Return(jaipurReply)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := f.svc.Build(ctx, jaipurRequest(), locitypes.GuestOwnerID)
	require.NoError(t, err)
	f.svc.Wait()
	assert.Len(t, res.Itinerary.Days, 2)
}

func TestBuild_AnalyticsFailureIsIgnored(t *testing.T) {
	f := newFixture(t)
	f.geo.On("Resolve", mock.Anything, "Jaipur").Return(jaipur)
	f.weather.On("ForecastRaw", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.places.On("FetchNearby", mock.Anything, mock.Anything).Return([]locitypes.Place{})
	f.recorder.On("Record", mock.Anything, mock.Anything).Return(errors.New("insert failed"))
	f.ai.On("Generate", mock.Anything, mock.Anything).Return(jaipurReply)

	_, err := f.svc.Build(context.Background(), jaipurRequest(), locitypes.GuestOwnerID)
	f.svc.Wait()
	assert.NoError(t, err)
}

func storedTrip() *locitypes.Itinerary {
	return &locitypes.Itinerary{
		ID:       "it-1",
		Title:    "Jaipur Trip",
		Revision: 2,
		Days: []locitypes.Day{
			{Day: 1, Items: []locitypes.Activity{{Title: "Amber Fort"}, {Title: "Hawa Mahal"}, {Title: "Chokhi Dhani"}}},
		},
	}
}

func TestToggleFavorite(t *testing.T) {
	f := newFixture(t)
	f.store.On("Get", mock.Anything, "uid-1", "it-1").Return(storedTrip(), nil)
	f.store.On("Update", mock.Anything, "uid-1", "it-1", mock.MatchedBy(func(p locitypes.ItineraryPatch) bool {
		return p.Favorite != nil && *p.Favorite && p.Revision == 3 && p.Days == nil
	})).Return(nil)

	fav, rev, err := f.svc.ToggleFavorite(context.Background(), "uid-1", "it-1")
	require.NoError(t, err)
	assert.True(t, fav)
	assert.Equal(t, int64(3), rev)
	f.store.AssertExpectations(t)
}

func TestToggleFavorite_UpdateFailure(t *testing.T) {
	f := newFixture(t)
	f.store.On("Get", mock.Anything, "uid-1", "it-1").Return(storedTrip(), nil)
	f.store.On("Update", mock.Anything, "uid-1", "it-1", mock.Anything).Return(errors.New("timeout"))

	_, _, err := f.svc.ToggleFavorite(context.Background(), "uid-1", "it-1")
	assert.ErrorIs(t, err, locitypes.ErrPersistence)
}

func TestDeleteActivity(t *testing.T) {
	f := newFixture(t)
	stored := storedTrip()
	f.store.On("Get", mock.Anything, "uid-1", "it-1").Return(stored, nil)
	f.store.On("Update", mock.Anything, "uid-1", "it-1", mock.MatchedBy(func(p locitypes.ItineraryPatch) bool {
		return p.Revision == 3 && len(p.Days[0].Items) == 2
	})).Return(nil)

	it, err := f.svc.DeleteActivity(context.Background(), "uid-1", "it-1", 1, 1)
	require.NoError(t, err)
	titles := []string{it.Days[0].Items[0].Title, it.Days[0].Items[1].Title}
	assert.Equal(t, []string{"Amber Fort", "Chokhi Dhani"}, titles)
	assert.Len(t, stored.Days[0].Items, 3, "stored value untouched")
}

func TestDeleteActivity_OutOfRange(t *testing.T) {
	for _, tc := range []struct{ day, index int }{{2, 0}, {1, 3}, {1, -1}} {
		t.Run(fmt.Sprintf("day%d_index%d", tc.day, tc.index), func(t *testing.T) {
			f := newFixture(t)
			f.store.On("Get", mock.Anything, "uid-1", "it-1").Return(storedTrip(), nil)

			_, err := f.svc.DeleteActivity(context.Background(), "uid-1", "it-1", tc.day, tc.index)
			assert.ErrorIs(t, err, locitypes.ErrBadRequest)
			f.store.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestGetAndDeletePassThrough(t *testing.T) {
	f := newFixture(t)
	f.store.On("Get", mock.Anything, "uid-1", "gone").Return(nil, locitypes.ErrNotFound)
	f.store.On("Delete", mock.Anything, "uid-1", "it-1").Return(nil)
	f.store.On("List", mock.Anything, "uid-1").Return([]locitypes.ItinerarySummary{{ID: "it-1"}}, nil)

	_, err := f.svc.Get(context.Background(), "uid-1", "gone")
	assert.ErrorIs(t, err, locitypes.ErrNotFound)
	assert.NoError(t, f.svc.Delete(context.Background(), "uid-1", "it-1"))
	list, err := f.svc.List(context.Background(), "uid-1")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
