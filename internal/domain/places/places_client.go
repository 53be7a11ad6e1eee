package places

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"slices"
	"strings"

	"github.com/samber/lo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/loci-trip-planner/internal/types"
	"github.com/FACorreiaa/loci-trip-planner/pkg/httpclient"
	"github.com/FACorreiaa/loci-trip-planner/pkg/observability"
)

const (
	DefaultRadius = 2000
	overpassLimit = 30
)

// Client fetches nearby places. It never fails: an empty slice means no enrichment.
type Client interface {
	FetchNearby(ctx context.Context, q locitypes.NearbyQuery) []locitypes.Place
}

var _ Client = (*ClientImpl)(nil)

type Config struct {
	GoogleBaseURL string
	GoogleAPIKey  string
	OverpassURL   string
}

// ClientImpl asks Google Places first and OpenStreetMap's Overpass API second.
type ClientImpl struct {
	cfg      Config
	google   *httpclient.Client
	overpass *httpclient.Client
	logger   *slog.Logger
}

func NewClient(cfg Config, google, overpass *httpclient.Client, logger *slog.Logger) *ClientImpl {
	return &ClientImpl{cfg: cfg, google: google, overpass: overpass, logger: logger}
}

type googleNearbyResponse struct {
	Status  string        `json:"status"`
	Results []googlePlace `json:"results"`
}

type googlePlace struct {
	PlaceID  string   `json:"place_id"`
	Name     string   `json:"name"`
	Rating   *float64 `json:"rating"`
	Vicinity string   `json:"vicinity"`
	Address  string   `json:"formatted_address"`
	Types    []string `json:"types"`
	Geometry struct {
		Location struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"location"`
	} `json:"geometry"`
}

type overpassResponse struct {
	Elements []overpassElement `json:"elements"`
}

type overpassElement struct {
	Type   string            `json:"type"`
	ID     int64             `json:"id"`
	Lat    float64           `json:"lat"`
	Lon    float64           `json:"lon"`
	Center *struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	} `json:"center"`
	Tags map[string]string `json:"tags"`
}

func (c *ClientImpl) FetchNearby(ctx context.Context, q locitypes.NearbyQuery) []locitypes.Place {
	q.Category = q.Category.Normalize()
	if q.Radius <= 0 {
		q.Radius = DefaultRadius
	}

	ctx, span := otel.Tracer("PlacesClient").Start(ctx, "FetchNearby", trace.WithAttributes(
		attribute.String("places.category", string(q.Category)),
		attribute.Int("places.radius", q.Radius),
	))
	defer span.End()

	l := c.logger.With(slog.String("method", "FetchNearby"), slog.String("category", string(q.Category)))

	results, err := c.fromGoogle(ctx, q)
	if err != nil {
		l.WarnContext(ctx, "Primary places provider failed", slog.Any("error", err))
	}
	if len(results) > 0 {
		span.SetAttributes(attribute.String("places.source", locitypes.SourceGoogle), attribute.Int("places.count", len(results)))
		span.SetStatus(codes.Ok, "")
		return results
	}

	results, err = c.fromOverpass(ctx, q)
	if err != nil {
		l.WarnContext(ctx, "Fallback places provider failed", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "no provider answered")
		return []locitypes.Place{}
	}
	observability.ProviderFallbacks.WithLabelValues("places").Inc()
	span.SetAttributes(attribute.String("places.source", locitypes.SourceOSM), attribute.Int("places.count", len(results)))
	span.SetStatus(codes.Ok, "")
	return results
}

func (c *ClientImpl) fromGoogle(ctx context.Context, q locitypes.NearbyQuery) ([]locitypes.Place, error) {
	if c.cfg.GoogleAPIKey == "" || c.google == nil {
		return nil, nil
	}
	var resp googleNearbyResponse
	err := c.google.GetJSON(ctx, strings.TrimRight(c.cfg.GoogleBaseURL, "/")+"/maps/api/place/nearbysearch/json", url.Values{
		"location": {fmt.Sprintf("%f,%f", q.Lat, q.Lng)},
		"radius":   {fmt.Sprint(q.Radius)},
		"type":     {string(q.Category)},
		"key":      {c.cfg.GoogleAPIKey},
	}, &resp)
	if err != nil {
		return nil, err
	}

	return lo.Map(resp.Results, func(r googlePlace, _ int) locitypes.Place {
		return locitypes.Place{
			ID:      r.PlaceID,
			Name:    r.Name,
			Lat:     r.Geometry.Location.Lat,
			Lng:     r.Geometry.Location.Lng,
			Rating:  r.Rating,
			Address: lo.CoalesceOrEmpty(r.Vicinity, r.Address),
			Types:   r.Types,
			Source:  locitypes.SourceGoogle,
		}
	}), nil
}

// overpassFilters maps a category to OSM tag selectors.
func overpassFilters(category locitypes.PlaceCategory) []string {
	switch category {
	case locitypes.CategoryRestaurant:
		return []string{"[amenity=restaurant]"}
	case locitypes.CategoryLodging:
		return []string{"[tourism=hotel]", "[tourism=guest_house]", "[tourism=hostel]"}
	case locitypes.CategoryMuseum:
		return []string{"[tourism=museum]", "[amenity=museum]"}
	case locitypes.CategoryCafe:
		return []string{"[amenity=cafe]"}
	default:
		return []string{"[tourism=attraction]", "[historic]", "[amenity=museum]"}
	}
}

// OverpassQuery renders the Overpass QL used for the fallback lookup.
func OverpassQuery(q locitypes.NearbyQuery) string {
	var b strings.Builder
	b.WriteString("[out:json][timeout:25];(")
	for _, filter := range overpassFilters(q.Category.Normalize()) {
		for _, kind := range []string{"node", "way"} {
			fmt.Fprintf(&b, "%s(around:%d,%f,%f)%s;", kind, q.Radius, q.Lat, q.Lng, filter)
		}
	}
	fmt.Fprintf(&b, ");out center %d;", overpassLimit)
	return b.String()
}

func (c *ClientImpl) fromOverpass(ctx context.Context, q locitypes.NearbyQuery) ([]locitypes.Place, error) {
	var resp overpassResponse
	if err := c.overpass.PostFormJSON(ctx, c.cfg.OverpassURL, url.Values{"data": {OverpassQuery(q)}}, &resp); err != nil {
		return nil, err
	}

	elements := resp.Elements
	if len(elements) > overpassLimit {
		elements = elements[:overpassLimit]
	}

	out := make([]locitypes.Place, 0, len(elements))
	for _, el := range elements {
		lat, lng := el.Lat, el.Lon
		if el.Center != nil && lat == 0 && lng == 0 {
			lat, lng = el.Center.Lat, el.Center.Lon
		}
		keys := lo.Keys(el.Tags)
		slices.Sort(keys)
		out = append(out, locitypes.Place{
			ID:      fmt.Sprintf("osm-%d", el.ID),
			Name:    lo.CoalesceOrEmpty(el.Tags["name"], el.Tags["official_name"], "Unknown place"),
			Lat:     lat,
			Lng:     lng,
			Address: lo.CoalesceOrEmpty(el.Tags["addr:full"], el.Tags["addr:street"], el.Tags["addr:city"]),
			Types:   keys,
			Source:  locitypes.SourceOSM,
		})
	}
	return out, nil
}
