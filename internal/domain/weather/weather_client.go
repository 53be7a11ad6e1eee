package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net/url"
	"strings"
	"time"

	a "github.com/petar-dambovaliev/aho-corasick"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/loci-trip-planner/internal/types"
	"github.com/FACorreiaa/loci-trip-planner/pkg/httpclient"
)

const maxForecastDays = 5

// Client reads multi-day forecasts. Failures yield empty results, never errors.
type Client interface {
	Forecast(ctx context.Context, lat, lng float64) []locitypes.DailyForecast
	ForecastRaw(ctx context.Context, lat, lng float64) json.RawMessage
}

var _ Client = (*ClientImpl)(nil)

type Config struct {
	BaseURL string
	APIKey  string
}

// ClientImpl reads the OpenWeather 5 day / 3 hour forecast.
type ClientImpl struct {
	cfg    Config
	http   *httpclient.Client
	logger *slog.Logger
}

func NewClient(cfg Config, http *httpclient.Client, logger *slog.Logger) *ClientImpl {
	return &ClientImpl{cfg: cfg, http: http, logger: logger}
}

// Payload is the subset of the forecast document the service reads.
type Payload struct {
	List []Entry `json:"list"`
	City struct {
		Timezone int `json:"timezone"`
	} `json:"city"`
}

type Entry struct {
	Dt   int64 `json:"dt"`
	Main struct {
		Temp float64 `json:"temp"`
	} `json:"main"`
	Weather []struct {
		Description string `json:"description"`
		Icon        string `json:"icon"`
	} `json:"weather"`
}

func (e Entry) condition() (string, string) {
	if len(e.Weather) == 0 {
		return "", ""
	}
	return e.Weather[0].Description, e.Weather[0].Icon
}

func (c *ClientImpl) ForecastRaw(ctx context.Context, lat, lng float64) json.RawMessage {
	ctx, span := otel.Tracer("WeatherClient").Start(ctx, "ForecastRaw", trace.WithAttributes(
		attribute.Float64("weather.lat", lat),
		attribute.Float64("weather.lng", lng),
	))
	defer span.End()

	if c.cfg.APIKey == "" {
		span.SetStatus(codes.Error, "no api key")
		return nil
	}
	raw, err := c.http.GetRaw(ctx, strings.TrimRight(c.cfg.BaseURL, "/")+"/data/2.5/forecast", url.Values{
		"lat":   {fmt.Sprint(lat)},
		"lon":   {fmt.Sprint(lng)},
		"units": {"metric"},
		"appid": {c.cfg.APIKey},
	})
	if err != nil {
		c.logger.WarnContext(ctx, "Weather forecast failed", slog.String("method", "ForecastRaw"), slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "forecast failed")
		return nil
	}
	span.SetStatus(codes.Ok, "")
	return raw
}

func (c *ClientImpl) Forecast(ctx context.Context, lat, lng float64) []locitypes.DailyForecast {
	return Daily(c.ForecastRaw(ctx, lat, lng))
}

func parse(raw json.RawMessage) (Payload, bool) {
	var p Payload
	if len(raw) == 0 {
		return p, false
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return p, false
	}
	return p, len(p.List) > 0
}

// Daily collapses the 3-hourly forecast into at most five days, keeping
// the entry nearest local noon for each calendar day.
func Daily(raw json.RawMessage) []locitypes.DailyForecast {
	p, ok := parse(raw)
	if !ok {
		return []locitypes.DailyForecast{}
	}
	offset := time.Duration(p.City.Timezone) * time.Second

	type pick struct {
		entry    Entry
		distance time.Duration
	}
	var order []string
	best := make(map[string]pick)
	for _, e := range p.List {
		local := time.Unix(e.Dt, 0).UTC().Add(offset)
		day := local.Format(time.DateOnly)
		noon := time.Date(local.Year(), local.Month(), local.Day(), 12, 0, 0, 0, time.UTC)
		distance := local.Sub(noon).Abs()

		current, seen := best[day]
		if !seen {
			order = append(order, day)
		}
		if !seen || distance < current.distance {
			best[day] = pick{entry: e, distance: distance}
		}
	}

	if len(order) > maxForecastDays {
		order = order[:maxForecastDays]
	}
	out := make([]locitypes.DailyForecast, 0, len(order))
	for _, day := range order {
		e := best[day].entry
		condition, icon := e.condition()
		out = append(out, locitypes.DailyForecast{
			Timestamp:   time.Unix(e.Dt, 0).UTC(),
			Temperature: e.Main.Temp,
			Condition:   condition,
			Icon:        icon,
		})
	}
	return out
}

// HeadlineOf reports the first forecast entry.
func HeadlineOf(raw json.RawMessage) locitypes.WeatherHeadline {
	p, ok := parse(raw)
	if !ok {
		return locitypes.WeatherHeadline{}
	}
	condition, icon := p.List[0].condition()
	return locitypes.WeatherHeadline{
		Temperature: p.List[0].Main.Temp,
		Condition:   condition,
		Icon:        icon,
		Available:   true,
	}
}

var (
	poorWeatherBuilder = a.NewAhoCorasickBuilder(a.Opts{
		AsciiCaseInsensitive: true,
		MatchOnlyWholeWords:  true,
	})
	poorWeatherMatcher = poorWeatherBuilder.Build([]string{
		"rain", "drizzle", "thunderstorm", "storm", "snow", "sleet", "shower", "squalls",
	})
)

// Summarize reduces a raw forecast to the prompt's weather line:
// mean temperature to one decimal ("N/A" without data) and the first condition ("clear" by default).
func Summarize(raw json.RawMessage) locitypes.WeatherSummary {
	p, ok := parse(raw)
	if !ok {
		return locitypes.WeatherSummary{AvgTemp: "N/A", Condition: "clear"}
	}

	total := 0.0
	for _, e := range p.List {
		total += e.Main.Temp
	}
	avg := math.Round(total/float64(len(p.List))*10) / 10

	condition, _ := p.List[0].condition()
	if condition == "" {
		condition = "clear"
	}
	return locitypes.WeatherSummary{
		AvgTemp:   fmt.Sprintf("%.1f", avg),
		Condition: condition,
		Poor:      poorWeatherMatcher.Iter(condition).Next() != nil,
	}
}
