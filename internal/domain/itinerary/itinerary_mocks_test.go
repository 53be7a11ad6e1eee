package itinerary

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"

	"github.com/stretchr/testify/mock"

	"github.com/FACorreiaa/loci-trip-planner/internal/domain/trips"
	"github.com/FACorreiaa/loci-trip-planner/internal/types"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type MockGeoResolver struct {
	mock.Mock
}

func (m *MockGeoResolver) Resolve(ctx context.Context, place string) *locitypes.Coordinates {
	args := m.Called(ctx, place)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(*locitypes.Coordinates)
}

type MockWeatherClient struct {
	mock.Mock
}

func (m *MockWeatherClient) Forecast(ctx context.Context, lat, lng float64) []locitypes.DailyForecast {
	args := m.Called(ctx, lat, lng)
	return args.Get(0).([]locitypes.DailyForecast)
}

func (m *MockWeatherClient) ForecastRaw(ctx context.Context, lat, lng float64) json.RawMessage {
	args := m.Called(ctx, lat, lng)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(json.RawMessage)
}

type MockPlacesClient struct {
	mock.Mock
}

func (m *MockPlacesClient) FetchNearby(ctx context.Context, q locitypes.NearbyQuery) []locitypes.Place {
	args := m.Called(ctx, q)
	return args.Get(0).([]locitypes.Place)
}

type MockAIGateway struct {
	mock.Mock
}

func (m *MockAIGateway) Generate(ctx context.Context, prompt string) string {
	return m.Called(ctx, prompt).String(0)
}

type MockStore struct {
	mock.Mock
}

func (m *MockStore) Get(ctx context.Context, ownerID, itineraryID string) (*locitypes.Itinerary, error) {
	args := m.Called(ctx, ownerID, itineraryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*locitypes.Itinerary), args.Error(1)
}

func (m *MockStore) List(ctx context.Context, ownerID string) ([]locitypes.ItinerarySummary, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]locitypes.ItinerarySummary), args.Error(1)
}

func (m *MockStore) Set(ctx context.Context, ownerID, itineraryID string, doc locitypes.Itinerary) error {
	return m.Called(ctx, ownerID, itineraryID, doc).Error(0)
}

func (m *MockStore) Update(ctx context.Context, ownerID, itineraryID string, patch locitypes.ItineraryPatch) error {
	return m.Called(ctx, ownerID, itineraryID, patch).Error(0)
}

func (m *MockStore) Delete(ctx context.Context, ownerID, itineraryID string) error {
	return m.Called(ctx, ownerID, itineraryID).Error(0)
}

func (m *MockStore) SubscribeCollection(ctx context.Context, ownerID string) (*trips.Subscription[[]locitypes.ItinerarySummary], error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*trips.Subscription[[]locitypes.ItinerarySummary]), args.Error(1)
}

func (m *MockStore) SubscribeDocument(ctx context.Context, ownerID, itineraryID string) (*trips.Subscription[trips.DocumentSnapshot], error) {
	args := m.Called(ctx, ownerID, itineraryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*trips.Subscription[trips.DocumentSnapshot]), args.Error(1)
}

type MockShareLinker struct {
	mock.Mock
}

func (m *MockShareLinker) Link(ref locitypes.ShareRef) (locitypes.ShareLink, error) {
	args := m.Called(ref)
	return args.Get(0).(locitypes.ShareLink), args.Error(1)
}

type MockRecorder struct {
	mock.Mock
}

func (m *MockRecorder) Record(ctx context.Context, event locitypes.AnalyticsEvent) error {
	return m.Called(ctx, event).Error(0)
}
