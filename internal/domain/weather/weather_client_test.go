package weather

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/loci-trip-planner/pkg/httpclient"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// forecastJSON builds a payload with 3-hourly entries starting at midnight UTC on 2025-03-01.
func forecastJSON(t *testing.T, entries int, descriptions ...string) json.RawMessage {
	t.Helper()
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	list := make([]map[string]any, 0, entries)
	for i := range entries {
		desc := "clear sky"
		if i < len(descriptions) {
			desc = descriptions[i]
		}
		list = append(list, map[string]any{
			"dt":      start.Add(time.Duration(i) * 3 * time.Hour).Unix(),
			"main":    map[string]any{"temp": 20.0 + float64(i%2)},
			"weather": []any{map[string]any{"description": desc, "icon": "01d"}},
		})
	}
	raw, err := json.Marshal(map[string]any{"list": list, "city": map[string]any{"timezone": 0}})
	require.NoError(t, err)
	return raw
}

func TestDaily_OnePerDayNearNoonCappedAtFive(t *testing.T) {
	days := Daily(forecastJSON(t, 56))

	require.Len(t, days, 5)
	for i, d := range days {
		assert.Equal(t, 12, d.Timestamp.Hour())
		assert.Equal(t, 1+i, d.Timestamp.Day())
		assert.Equal(t, "clear sky", d.Condition)
	}
}

func TestDaily_EmptyOnGarbage(t *testing.T) {
	assert.Empty(t, Daily(nil))
	assert.Empty(t, Daily(json.RawMessage(`{"cod":"401"}`)))
	assert.NotNil(t, Daily(json.RawMessage(`not json`)))
}

func TestSummarize(t *testing.T) {
	s := Summarize(forecastJSON(t, 4, "light rain"))
	assert.Equal(t, "20.5", s.AvgTemp)
	assert.Equal(t, "light rain", s.Condition)
	assert.True(t, s.Poor)

	s = Summarize(forecastJSON(t, 2))
	assert.False(t, s.Poor)

	s = Summarize(nil)
	assert.Equal(t, "N/A", s.AvgTemp)
	assert.Equal(t, "clear", s.Condition)
	assert.False(t, s.Poor)
}

func TestClient_ForecastAndHeadline(t *testing.T) {
	payload := forecastJSON(t, 16, "overcast clouds")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/data/2.5/forecast", r.URL.Path)
		assert.Equal(t, "metric", r.URL.Query().Get("units"))
		assert.Equal(t, "weather-key", r.URL.Query().Get("appid"))
		_, _ = w.Write(payload)
	}))
	defer srv.Close()

	logger := newTestLogger()
	c := NewClient(Config{BaseURL: srv.URL, APIKey: "weather-key"}, httpclient.New(httpclient.Options{Name: "openweather"}, logger), logger)

	assert.JSONEq(t, string(payload), string(c.ForecastRaw(context.Background(), 26.9, 75.8)))
	assert.Len(t, c.Forecast(context.Background(), 26.9, 75.8), 2)

	h := HeadlineOf(c.ForecastRaw(context.Background(), 26.9, 75.8))
	assert.True(t, h.Available)
	assert.Equal(t, "overcast clouds", h.Condition)
	assert.InDelta(t, 20.0, h.Temperature, 1e-9)
}

func TestClient_FailureIsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	logger := newTestLogger()
	c := NewClient(Config{BaseURL: srv.URL, APIKey: "bad"}, httpclient.New(httpclient.Options{Name: "openweather"}, logger), logger)

	assert.Nil(t, c.ForecastRaw(context.Background(), 0, 0))
	forecast := c.Forecast(context.Background(), 0, 0)
	assert.NotNil(t, forecast)
	assert.Empty(t, forecast)
	assert.False(t, HeadlineOf(c.ForecastRaw(context.Background(), 0, 0)).Available)
}
