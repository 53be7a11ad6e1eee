package itinerary

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/FACorreiaa/loci-trip-planner/internal/domain/analytics"
	"github.com/FACorreiaa/loci-trip-planner/internal/domain/geo"
	"github.com/FACorreiaa/loci-trip-planner/internal/domain/places"
	"github.com/FACorreiaa/loci-trip-planner/internal/domain/trips"
	"github.com/FACorreiaa/loci-trip-planner/internal/domain/weather"
	"github.com/FACorreiaa/loci-trip-planner/internal/llm"
	"github.com/FACorreiaa/loci-trip-planner/internal/types"
	"github.com/FACorreiaa/loci-trip-planner/pkg/observability"
)

var _ Service = (*ServiceImpl)(nil)

// Service builds itineraries and manages their lifecycle.
type Service interface {
	Build(ctx context.Context, req locitypes.TripRequest, ownerID string) (*locitypes.BuildResult, error)
	SaveDraft(ctx context.Context, ownerID, itineraryID string) (*locitypes.BuildResult, error)
	Get(ctx context.Context, ownerID, itineraryID string) (*locitypes.Itinerary, error)
	List(ctx context.Context, ownerID string) ([]locitypes.ItinerarySummary, error)
	ToggleFavorite(ctx context.Context, ownerID, itineraryID string) (favorite bool, revision int64, err error)
	DeleteActivity(ctx context.Context, ownerID, itineraryID string, day, index int) (*locitypes.Itinerary, error)
	Delete(ctx context.Context, ownerID, itineraryID string) error
}

// ShareLinker issues the share link handed back with a persisted itinerary.
type ShareLinker interface {
	Link(ref locitypes.ShareRef) (locitypes.ShareLink, error)
}

type Config struct {
	// BuildTimeout bounds a whole build, enrichment and generation included.
	BuildTimeout time.Duration
	SearchRadius int
	DraftTTL     time.Duration
}

type ServiceImpl struct {
	logger    *slog.Logger
	cfg       Config
	geo       geo.Resolver
	weather   weather.Client
	places    places.Client
	ai        llm.AIGateway
	store     trips.Store
	links     ShareLinker
	analytics analytics.Recorder
	drafts    *cache.Cache

	now   func() time.Time
	newID func() string
	bg    sync.WaitGroup
}

func NewService(
	cfg Config,
	geoResolver geo.Resolver,
	weatherClient weather.Client,
	placesClient places.Client,
	ai llm.AIGateway,
	store trips.Store,
	links ShareLinker,
	recorder analytics.Recorder,
	logger *slog.Logger,
) *ServiceImpl {
	if cfg.BuildTimeout <= 0 {
		cfg.BuildTimeout = 90 * time.Second
	}
	if cfg.SearchRadius <= 0 {
		cfg.SearchRadius = places.DefaultRadius
	}
	if cfg.DraftTTL <= 0 {
		cfg.DraftTTL = time.Hour
	}
	return &ServiceImpl{
		logger:    logger,
		cfg:       cfg,
		geo:       geoResolver,
		weather:   weatherClient,
		places:    placesClient,
		ai:        ai,
		store:     store,
		links:     links,
		analytics: recorder,
		drafts:    cache.New(cfg.DraftTTL, cfg.DraftTTL/2),
		now:       func() time.Time { return time.Now().UTC() },
		newID:     uuid.NewString,
	}
}

// Build runs the whole generation pipeline. Once validation passes it is detached
// from the caller's cancellation and bounded only by BuildTimeout.
//
// A failed save returns both the unsaved result and an error wrapping ErrPersistence;
// SaveDraft retries it.
func (s *ServiceImpl) Build(ctx context.Context, req locitypes.TripRequest, ownerID string) (*locitypes.BuildResult, error) {
	req = NormalizeRequest(req)
	if err := ValidateRequest(req); err != nil {
		observability.Builds.WithLabelValues("invalid_input").Inc()
		return nil, err
	}
	if ownerID == "" {
		ownerID = locitypes.GuestOwnerID
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.BuildTimeout)
	defer cancel()

	ctx, span := otel.Tracer("ItineraryService").Start(ctx, "Build", trace.WithAttributes(
		attribute.String("trip.destination", req.Destination),
		attribute.Int("trip.days", req.Days),
		attribute.Float64("trip.budget", req.Budget),
		attribute.Bool("owner.guest", ownerID == locitypes.GuestOwnerID),
	))
	defer span.End()
	l := s.logger.With(slog.String("method", "Build"), slog.String("destination", req.Destination))

	coords := s.geo.Resolve(ctx, req.Destination)
	if coords == nil {
		l.InfoContext(ctx, "Destination could not be resolved")
		observability.Builds.WithLabelValues("invalid_destination").Inc()
		span.SetStatus(codes.Error, "invalid destination")
		return nil, fmt.Errorf("%w: %q", locitypes.ErrInvalidDestination, req.Destination)
	}
	span.SetAttributes(attribute.Float64("trip.lat", coords.Lat), attribute.Float64("trip.lng", coords.Lng))

	rawWeather, nearby := s.enrich(ctx, *coords)
	summary := weather.Summarize(rawWeather)

	prompt := getItineraryPrompt(newPromptContext(req, *coords, nearby, summary))
	body, fallback := s.generate(ctx, l, prompt, req, nearby)

	it := locitypes.Itinerary{
		ID:    s.newID(),
		Title: body.Title,
		Location: locitypes.Location{
			Name: req.Destination,
			Lat:  coords.Lat,
			Lng:  coords.Lng,
		},
		Budget:       req.Budget,
		CostEstimate: body.CostEstimate,
		Days:         body.Days,
		Nearby:       nearby,
		Weather:      rawWeather,
		Persona:      req.Persona,
		Interests:    req.Interests,
		Unsaved:      true,
		Revision:     1,
		CreatedAt:    s.now(),
	}
	if it.Title == "" {
		it.Title = req.Destination + " Trip"
	}
	if it.CostEstimate <= 0 {
		it.CostEstimate = req.Budget
	}
	span.SetAttributes(attribute.String("itinerary.id", it.ID), attribute.Bool("itinerary.fallback", fallback))

	s.recordAsync(ctx, locitypes.AnalyticsEvent{
		OwnerID:     ownerID,
		Destination: req.Destination,
		Budget:      req.Budget,
		Days:        len(it.Days),
		Persona:     req.Persona,
		CreatedAt:   it.CreatedAt,
	})

	outcome := "ok"
	if fallback {
		outcome = "fallback"
	}

	result := &locitypes.BuildResult{Itinerary: it, Fallback: fallback}
	if ownerID == locitypes.GuestOwnerID {
		observability.Builds.WithLabelValues(outcome).Inc()
		span.SetStatus(codes.Ok, "guest build")
		return result, nil
	}

	saved, err := s.persist(ctx, ownerID, it)
	if err != nil {
		l.ErrorContext(ctx, "Itinerary kept as draft", slog.String("itinerary_id", it.ID), slog.Any("error", err))
		observability.Builds.WithLabelValues("persist_failed").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "persistence failed")
		return result, err
	}

	observability.Builds.WithLabelValues(outcome).Inc()
	l.InfoContext(ctx, "Itinerary built",
		slog.String("itinerary_id", it.ID),
		slog.Int("days", len(it.Days)),
		slog.Bool("fallback", fallback))
	span.SetStatus(codes.Ok, "")
	return saved, nil
}

// enrich fetches the forecast and the three place categories concurrently. Every
// source degrades to empty on its own and none cancels the others.
func (s *ServiceImpl) enrich(ctx context.Context, c locitypes.Coordinates) (json.RawMessage, locitypes.Nearby) {
	ctx, span := otel.Tracer("ItineraryService").Start(ctx, "Enrich")
	defer span.End()

	var (
		rawWeather json.RawMessage
		nearby     locitypes.Nearby
	)
	query := func(cat locitypes.PlaceCategory) locitypes.NearbyQuery {
		return locitypes.NearbyQuery{Lat: c.Lat, Lng: c.Lng, Radius: s.cfg.SearchRadius, Category: cat}
	}

	var g errgroup.Group
	g.Go(func() error {
		rawWeather = s.weather.ForecastRaw(ctx, c.Lat, c.Lng)
		return nil
	})
	g.Go(func() error {
		nearby.Hotels = s.places.FetchNearby(ctx, query(locitypes.CategoryLodging))
		return nil
	})
	g.Go(func() error {
		nearby.Restaurants = s.places.FetchNearby(ctx, query(locitypes.CategoryRestaurant))
		return nil
	})
	g.Go(func() error {
		nearby.Monuments = s.places.FetchNearby(ctx, query(locitypes.CategoryTouristAttraction))
		return nil
	})
	_ = g.Wait()

	if nearby.Hotels == nil {
		nearby.Hotels = []locitypes.Place{}
	}
	if nearby.Restaurants == nil {
		nearby.Restaurants = []locitypes.Place{}
	}
	if nearby.Monuments == nil {
		nearby.Monuments = []locitypes.Place{}
	}

	degraded := map[string]bool{
		"weather":     len(rawWeather) == 0,
		"hotels":      len(nearby.Hotels) == 0,
		"restaurants": len(nearby.Restaurants) == 0,
		"monuments":   len(nearby.Monuments) == 0,
	}
	for source, empty := range degraded {
		if empty {
			observability.DegradedData.WithLabelValues(source).Inc()
			s.logger.WarnContext(ctx, "Enrichment returned no data", slog.String("source", source))
		}
	}
	span.SetAttributes(
		attribute.Int("nearby.hotels", len(nearby.Hotels)),
		attribute.Int("nearby.restaurants", len(nearby.Restaurants)),
		attribute.Int("nearby.monuments", len(nearby.Monuments)),
		attribute.Bool("weather.available", len(rawWeather) > 0),
	)
	return rawWeather, nearby
}

// generate asks the model for the itinerary body. The second return reports whether
// the deterministic fallback replaced an unusable reply.
func (s *ServiceImpl) generate(ctx context.Context, l *slog.Logger, prompt string, req locitypes.TripRequest, nearby locitypes.Nearby) (locitypes.ItineraryBody, bool) {
	reply := s.ai.Generate(ctx, prompt)

	extraction := llm.ExtractJSON(reply)
	if !extraction.Structured() {
		l.WarnContext(ctx, "Model reply was unstructured, using fallback itinerary",
			slog.Int("reply_length", len(reply)))
		observability.ProviderFallbacks.WithLabelValues("itinerary").Inc()
		return fallbackBody(req.Destination, nearby), true
	}

	body, err := llm.ValidateItineraryBody(extraction.Object, req.Days)
	if err != nil {
		l.WarnContext(ctx, "Model reply failed validation, using fallback itinerary", slog.Any("error", err))
		observability.ProviderFallbacks.WithLabelValues("itinerary").Inc()
		return fallbackBody(req.Destination, nearby), true
	}
	return body, false
}

func (s *ServiceImpl) persist(ctx context.Context, ownerID string, it locitypes.Itinerary) (*locitypes.BuildResult, error) {
	if err := s.store.Set(ctx, ownerID, it.ID, it); err != nil {
		s.drafts.Set(draftKey(ownerID, it.ID), it, cache.DefaultExpiration)
		return nil, fmt.Errorf("%w: %w", locitypes.ErrPersistence, err)
	}
	s.drafts.Delete(draftKey(ownerID, it.ID))

	it.Unsaved = false
	result := &locitypes.BuildResult{Itinerary: it}
	if s.links != nil {
		link, err := s.links.Link(locitypes.ShareRef{OwnerID: ownerID, ItineraryID: it.ID})
		if err != nil {
			s.logger.WarnContext(ctx, "Failed to issue share token", slog.String("itinerary_id", it.ID), slog.Any("error", err))
		} else {
			result.ShareToken = link.Token
		}
	}
	return result, nil
}

// SaveDraft retries persisting an itinerary whose first save failed.
func (s *ServiceImpl) SaveDraft(ctx context.Context, ownerID, itineraryID string) (*locitypes.BuildResult, error) {
	ctx, span := otel.Tracer("ItineraryService").Start(ctx, "SaveDraft", trace.WithAttributes(
		attribute.String("itinerary.id", itineraryID),
	))
	defer span.End()

	cached, ok := s.drafts.Get(draftKey(ownerID, itineraryID))
	if !ok {
		span.SetStatus(codes.Error, "no draft")
		return nil, fmt.Errorf("%w: no unsaved draft %s", locitypes.ErrNotFound, itineraryID)
	}
	it := cached.(locitypes.Itinerary)

	result, err := s.persist(ctx, ownerID, it)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persistence failed")
		return &locitypes.BuildResult{Itinerary: it}, err
	}
	span.SetStatus(codes.Ok, "")
	return result, nil
}

func (s *ServiceImpl) Get(ctx context.Context, ownerID, itineraryID string) (*locitypes.Itinerary, error) {
	return s.store.Get(ctx, ownerID, itineraryID)
}

func (s *ServiceImpl) List(ctx context.Context, ownerID string) ([]locitypes.ItinerarySummary, error) {
	return s.store.List(ctx, ownerID)
}

// ToggleFavorite flips the favorite flag and reports the new flag and revision.
func (s *ServiceImpl) ToggleFavorite(ctx context.Context, ownerID, itineraryID string) (bool, int64, error) {
	ctx, span := otel.Tracer("ItineraryService").Start(ctx, "ToggleFavorite", trace.WithAttributes(
		attribute.String("itinerary.id", itineraryID),
	))
	defer span.End()

	it, err := s.store.Get(ctx, ownerID, itineraryID)
	if err != nil {
		span.RecordError(err)
		return false, 0, err
	}
	favorite := !it.Favorite
	revision := it.Revision + 1
	if err := s.store.Update(ctx, ownerID, itineraryID, locitypes.ItineraryPatch{
		Favorite: &favorite,
		Revision: revision,
	}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
		return it.Favorite, it.Revision, persistenceErr(err)
	}
	span.SetStatus(codes.Ok, "")
	return favorite, revision, nil
}

// DeleteActivity removes the index-th activity of the given day number.
func (s *ServiceImpl) DeleteActivity(ctx context.Context, ownerID, itineraryID string, day, index int) (*locitypes.Itinerary, error) {
	ctx, span := otel.Tracer("ItineraryService").Start(ctx, "DeleteActivity", trace.WithAttributes(
		attribute.String("itinerary.id", itineraryID),
		attribute.Int("day", day),
		attribute.Int("index", index),
	))
	defer span.End()

	current, err := s.store.Get(ctx, ownerID, itineraryID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	it := current.Clone()
	d := it.FindDay(day)
	if d == -1 {
		return nil, fmt.Errorf("%w: day %d does not exist", locitypes.ErrBadRequest, day)
	}
	items := it.Days[d].Items
	if index < 0 || index >= len(items) {
		return nil, fmt.Errorf("%w: day %d has no activity at index %d", locitypes.ErrBadRequest, day, index)
	}
	it.Days[d].Items = append(items[:index:index], items[index+1:]...)
	it.Revision = current.Revision + 1

	if err := s.store.Update(ctx, ownerID, itineraryID, locitypes.ItineraryPatch{
		Days:     it.Days,
		Revision: it.Revision,
	}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
		return nil, persistenceErr(err)
	}
	span.SetStatus(codes.Ok, "")
	return &it, nil
}

func (s *ServiceImpl) Delete(ctx context.Context, ownerID, itineraryID string) error {
	s.drafts.Delete(draftKey(ownerID, itineraryID))
	return s.store.Delete(ctx, ownerID, itineraryID)
}

// Wait blocks until background analytics writes have finished.
func (s *ServiceImpl) Wait() {
	s.bg.Wait()
}

func (s *ServiceImpl) recordAsync(ctx context.Context, event locitypes.AnalyticsEvent) {
	if s.analytics == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	s.bg.Add(1)
	go func() {
		defer s.bg.Done()
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := s.analytics.Record(ctx, event); err != nil {
			s.logger.WarnContext(ctx, "Analytics event dropped", slog.Any("error", err))
		}
	}()
}

func persistenceErr(err error) error {
	if errors.Is(err, locitypes.ErrNotFound) {
		return err
	}
	return fmt.Errorf("%w: %w", locitypes.ErrPersistence, err)
}

func draftKey(ownerID, itineraryID string) string {
	return ownerID + "/" + itineraryID
}
