package geo

import (
	"context"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/loci-trip-planner/internal/types"
	"github.com/FACorreiaa/loci-trip-planner/pkg/httpclient"
	"github.com/FACorreiaa/loci-trip-planner/pkg/observability"
)

// Resolver turns a free-text place into coordinates. It never returns an error:
// nil means no provider could place it.
type Resolver interface {
	Resolve(ctx context.Context, place string) *locitypes.Coordinates
}

var _ Resolver = (*ResolverImpl)(nil)

// Config points the resolver at its providers.
type Config struct {
	GoogleBaseURL    string
	GoogleAPIKey     string
	NominatimBaseURL string
}

// ResolverImpl queries Google Geocoding first and Nominatim second.
type ResolverImpl struct {
	cfg       Config
	google    *httpclient.Client
	nominatim *httpclient.Client
	logger    *slog.Logger
}

func NewResolver(cfg Config, google, nominatim *httpclient.Client, logger *slog.Logger) *ResolverImpl {
	return &ResolverImpl{
		cfg:       cfg,
		google:    google,
		nominatim: nominatim,
		logger:    logger,
	}
}

type googleGeocodeResponse struct {
	Status  string `json:"status"`
	Results []struct {
		Geometry struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

type nominatimResult struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

func (r *ResolverImpl) Resolve(ctx context.Context, place string) *locitypes.Coordinates {
	ctx, span := otel.Tracer("GeoResolver").Start(ctx, "Resolve", trace.WithAttributes(
		attribute.String("geo.place", place),
	))
	defer span.End()

	place = strings.TrimSpace(place)
	if place == "" {
		span.SetStatus(codes.Error, "empty place")
		return nil
	}
	l := r.logger.With(slog.String("method", "Resolve"), slog.String("place", place))

	if coords, err := r.fromGoogle(ctx, place); err != nil {
		l.WarnContext(ctx, "Primary geocoder failed", slog.Any("error", err))
	} else if coords != nil {
		span.SetAttributes(attribute.String("geo.source", locitypes.SourceGoogle))
		span.SetStatus(codes.Ok, "")
		return coords
	}

	coords, err := r.fromNominatim(ctx, place)
	if err != nil {
		l.WarnContext(ctx, "Fallback geocoder failed", slog.Any("error", err))
		span.RecordError(err)
	}
	if coords == nil {
		l.InfoContext(ctx, "Place could not be resolved")
		span.SetStatus(codes.Error, "unresolved")
		return nil
	}
	observability.ProviderFallbacks.WithLabelValues("geo").Inc()
	span.SetAttributes(attribute.String("geo.source", locitypes.SourceOSM))
	span.SetStatus(codes.Ok, "")
	return coords
}

func (r *ResolverImpl) fromGoogle(ctx context.Context, place string) (*locitypes.Coordinates, error) {
	if r.cfg.GoogleAPIKey == "" || r.google == nil {
		return nil, nil
	}
	var resp googleGeocodeResponse
	err := r.google.GetJSON(ctx, strings.TrimRight(r.cfg.GoogleBaseURL, "/")+"/maps/api/geocode/json", url.Values{
		"address": {place},
		"key":     {r.cfg.GoogleAPIKey},
	}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.Status != "OK" || len(resp.Results) == 0 {
		return nil, nil
	}
	loc := resp.Results[0].Geometry.Location
	return &locitypes.Coordinates{Lat: loc.Lat, Lng: loc.Lng}, nil
}

func (r *ResolverImpl) fromNominatim(ctx context.Context, place string) (*locitypes.Coordinates, error) {
	var results []nominatimResult
	err := r.nominatim.GetJSON(ctx, strings.TrimRight(r.cfg.NominatimBaseURL, "/")+"/search", url.Values{
		"format": {"json"},
		"limit":  {"1"},
		"q":      {place},
	}, &results)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}
	lat, errLat := strconv.ParseFloat(results[0].Lat, 64)
	lng, errLng := strconv.ParseFloat(results[0].Lon, 64)
	if errLat != nil || errLng != nil {
		return nil, nil
	}
	return &locitypes.Coordinates{Lat: lat, Lng: lng}, nil
}
