package api

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/FACorreiaa/loci-trip-planner/internal/domain/analytics"
	"github.com/FACorreiaa/loci-trip-planner/internal/domain/geo"
	"github.com/FACorreiaa/loci-trip-planner/internal/domain/itinerary"
	"github.com/FACorreiaa/loci-trip-planner/internal/domain/places"
	"github.com/FACorreiaa/loci-trip-planner/internal/domain/share"
	"github.com/FACorreiaa/loci-trip-planner/internal/domain/suggestion"
	"github.com/FACorreiaa/loci-trip-planner/internal/domain/trips"
	"github.com/FACorreiaa/loci-trip-planner/internal/domain/weather"
	"github.com/FACorreiaa/loci-trip-planner/internal/llm"
	"github.com/FACorreiaa/loci-trip-planner/pkg/config"
	"github.com/FACorreiaa/loci-trip-planner/pkg/db"
	"github.com/FACorreiaa/loci-trip-planner/pkg/httpclient"
)

// buildTimeoutMargin is added on top of the AI timeout so enrichment and
// persistence still fit inside one build.
const buildTimeoutMargin = 30 * time.Second

// Dependencies holds all application dependencies
type Dependencies struct {
	Config *config.Config
	DB     *db.DB
	Logger *slog.Logger

	// Providers
	Geo     geo.Resolver
	Places  places.Client
	Weather weather.Client
	AI      llm.AIGateway

	// Storage
	Store     *trips.PostgresStore
	Hub       *trips.Hub
	Analytics analytics.Recorder

	// Services
	ShareService      *share.ServiceImpl
	SuggestionService suggestion.Service
	ItineraryService  *itinerary.ServiceImpl

	// Handlers
	TripHandler *itinerary.Handler

	stopHub context.CancelFunc
	hubDone sync.WaitGroup
}

// InitDependencies initializes all application dependencies
func InitDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if err := deps.initDatabase(); err != nil {
		return nil, fmt.Errorf("failed to init database: %w", err)
	}

	if err := deps.initProviders(ctx); err != nil {
		deps.Cleanup()
		return nil, fmt.Errorf("failed to init providers: %w", err)
	}

	deps.initStorage()

	if err := deps.initServices(); err != nil {
		deps.Cleanup()
		return nil, fmt.Errorf("failed to init services: %w", err)
	}

	deps.initHandlers()

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

// initDatabase initializes the database connection and runs migrations
func (d *Dependencies) initDatabase() error {
	database, err := db.New(db.Config{
		DSN:             d.Config.Database.DSN(),
		MaxConns:        25,
		MinConns:        5,
		MaxConnLifetime: 5 * time.Minute,
		MaxConnIdleTime: 10 * time.Minute,
	}, d.Logger)
	if err != nil {
		return err
	}
	d.DB = database

	if err := d.DB.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	d.Logger.Info("database connected and migrations completed successfully")
	return nil
}

// initProviders builds one breaker-guarded HTTP client per upstream. The OSM
// services ask for at most one request per second.
func (d *Dependencies) initProviders(ctx context.Context) error {
	p := d.Config.Providers
	client := func(name string, limiter *rate.Limiter) *httpclient.Client {
		return httpclient.New(httpclient.Options{
			Name:      name,
			Timeout:   p.HTTPTimeout,
			UserAgent: p.UserAgent,
			Limiter:   limiter,
		}, d.Logger)
	}
	osmLimit := func() *rate.Limiter { return rate.NewLimiter(rate.Every(time.Second), 1) }

	googleMaps := client("google_maps", nil)

	resolver := geo.NewResolver(geo.Config{
		GoogleBaseURL:    p.GoogleMapsBaseURL,
		GoogleAPIKey:     p.GoogleMapsAPIKey,
		NominatimBaseURL: p.NominatimBaseURL,
	}, googleMaps, client("nominatim", osmLimit()), d.Logger)
	d.Geo = geo.NewCachedResolver(resolver, d.Config.Cache.GeocodeTTL)

	d.Places = places.NewClient(places.Config{
		GoogleBaseURL: p.GoogleMapsBaseURL,
		GoogleAPIKey:  p.GoogleMapsAPIKey,
		OverpassURL:   p.OverpassURL,
	}, googleMaps, client("overpass", osmLimit()), d.Logger)

	d.Weather = weather.NewClient(weather.Config{
		BaseURL: p.OpenWeatherURL,
		APIKey:  p.OpenWeatherAPIKey,
	}, client("openweather", nil), d.Logger)

	generator, err := llm.NewGenerator(ctx, d.Config.AI)
	if err != nil {
		return fmt.Errorf("failed to create %s generator: %w", d.Config.AI.Backend, err)
	}
	d.AI = llm.NewGateway(generator, d.Config.AI.Timeout, d.Logger)

	d.Logger.Info("providers initialized",
		slog.String("ai_backend", d.Config.AI.Backend),
		slog.String("ai_model", generator.Model()))
	return nil
}

// initStorage wires the itinerary store to its change hub and starts listening.
func (d *Dependencies) initStorage() {
	d.Store = trips.NewPostgresStore(d.DB.Pool, d.Logger)
	d.Hub = trips.NewHub(d.Store, trips.PoolListener(d.DB.Pool, trips.ChangeChannel), d.Logger)
	d.Store.WithHub(d.Hub)
	d.Analytics = analytics.NewRecorder(d.DB.Pool, d.Logger)

	ctx, cancel := context.WithCancel(context.Background())
	d.stopHub = cancel
	d.hubDone.Add(1)
	go func() {
		defer d.hubDone.Done()
		if err := d.Hub.Run(ctx); err != nil && ctx.Err() == nil {
			d.Logger.Error("itinerary change hub stopped", slog.Any("error", err))
		}
	}()

	d.Logger.Info("storage initialized", slog.String("channel", trips.ChangeChannel))
}

// initServices initializes all service layer dependencies
func (d *Dependencies) initServices() error {
	codec, err := share.NewCodec(d.Config.Share.Key, d.Config.Share.IV)
	if err != nil {
		return fmt.Errorf("failed to create share codec: %w", err)
	}
	d.ShareService = share.NewService(codec, d.Store, d.Config.Server.PublicBaseURL, d.Logger)

	d.SuggestionService = suggestion.NewService(d.AI, d.Store, d.Logger)

	d.ItineraryService = itinerary.NewService(itinerary.Config{
		BuildTimeout: d.Config.AI.Timeout + buildTimeoutMargin,
		SearchRadius: d.Config.Providers.SearchRadius,
		DraftTTL:     d.Config.Cache.DraftTTL,
	},
		d.Geo,
		d.Weather,
		d.Places,
		d.AI,
		d.Store,
		d.ShareService,
		d.Analytics,
		d.Logger,
	)

	d.Logger.Info("services initialized")
	return nil
}

// initHandlers initializes all handler dependencies
func (d *Dependencies) initHandlers() {
	d.TripHandler = itinerary.NewHandler(
		d.ItineraryService,
		d.SuggestionService,
		d.ShareService,
		d.Weather,
		d.Store,
		d.Logger,
	)
	d.Logger.Info("handlers initialized")
}

// Drain closes open watch streams and stops the change hub. It is registered as
// an http.Server shutdown hook, since Shutdown waits for streams but never
// cancels them.
func (d *Dependencies) Drain() {
	if d.TripHandler != nil {
		d.TripHandler.Drain()
	}
	if d.stopHub != nil {
		d.stopHub()
	}
	d.Logger.Info("watch streams drained")
}

// Cleanup stops the change hub, waits for background writes and closes the pool.
func (d *Dependencies) Cleanup() {
	if d.stopHub != nil {
		d.stopHub()
		d.hubDone.Wait()
	}
	if d.ItineraryService != nil {
		d.ItineraryService.Wait()
	}
	if d.DB != nil {
		d.DB.Close()
	}
	d.Logger.Info("cleanup completed")
}
