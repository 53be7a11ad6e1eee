package api

import (
	"log/slog"
	"net/http"

	"connectrpc.com/connect"
	connectcors "connectrpc.com/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.opentelemetry.io/otel"
	"golang.org/x/time/rate"

	"github.com/FACorreiaa/loci-trip-planner/internal/domain/itinerary"
	"github.com/FACorreiaa/loci-trip-planner/internal/domain/share"
	"github.com/FACorreiaa/loci-trip-planner/pkg/config"
	"github.com/FACorreiaa/loci-trip-planner/pkg/interceptors"
	"github.com/FACorreiaa/loci-trip-planner/pkg/observability"
	"github.com/FACorreiaa/loci-trip-planner/pkg/tripconnect"
)

// HealthChecker reports whether the backing store is reachable.
type HealthChecker interface {
	Health() error
}

// RouterDeps is what the router needs from the wired application.
type RouterDeps struct {
	Config  *config.Config
	Logger  *slog.Logger
	Handler tripconnect.TripServiceHandler
	Shares  share.Service
	Health  HealthChecker
}

// SetupRouter configures all routes and returns the HTTP service
func SetupRouter(deps *Dependencies) http.Handler {
	return NewRouter(RouterDeps{
		Config:  deps.Config,
		Logger:  deps.Logger,
		Handler: deps.TripHandler,
		Shares:  deps.ShareService,
		Health:  deps.DB,
	})
}

// NewRouter mounts the TripService, the share routes and the utility endpoints.
func NewRouter(rd RouterDeps) http.Handler {
	mux := http.NewServeMux()
	cfg := rd.Config

	jwtSecret := []byte(cfg.Auth.JWTSecret)
	if len(jwtSecret) == 0 {
		rd.Logger.Warn("JWT secret is empty; only public procedures will be reachable")
	}

	tracer := otel.GetTracerProvider().Tracer("loci/api")

	chain := []connect.Interceptor{
		interceptors.NewRequestIDInterceptor("X-Request-ID"),
		interceptors.NewTracingInterceptor(tracer),
	}
	if cfg.Server.RateLimitPerSecond > 0 && cfg.Server.RateLimitBurst > 0 {
		limiter := rate.NewLimiter(rate.Limit(float64(cfg.Server.RateLimitPerSecond)), cfg.Server.RateLimitBurst)
		chain = append(chain, interceptors.NewRateLimitInterceptor(limiter))
	}
	chain = append(chain,
		interceptors.NewRecoveryInterceptor(rd.Logger),
		interceptors.NewLoggingInterceptor(rd.Logger),
		interceptors.NewAuthInterceptor(jwtSecret, tripconnect.PublicProcedures...),
		observability.NewMetricsInterceptor(),
	)

	path, handler := tripconnect.NewTripServiceHandler(rd.Handler, connect.WithInterceptors(chain...))
	mux.Handle(path, handler)
	rd.Logger.Info("registered Connect RPC service", "path", path)

	share.RegisterRoutes(mux, rd.Shares, rd.Logger)
	rd.Logger.Info("registered share routes", "path", "/s/{token}")

	registerUtilityRoutes(mux, rd)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   connectcors.AllowedMethods(),
		AllowedHeaders:   append(connectcors.AllowedHeaders(), "Authorization", "X-Request-ID"),
		ExposedHeaders:   append(connectcors.ExposedHeaders(), itinerary.DraftHeader),
		AllowCredentials: true,
	})

	return corsHandler.Handler(mux)
}

// registerUtilityRoutes registers health check, metrics, and other utility routes
func registerUtilityRoutes(mux *http.ServeMux, rd RouterDeps) {
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if rd.Health != nil {
			if err := rd.Health.Health(); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte("database unhealthy"))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	rd.Logger.Info("registered health check", "path", "/health")

	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})
	rd.Logger.Info("registered readiness check", "path", "/ready")

	if rd.Config.Observability.MetricsEnabled {
		mux.Handle("/metrics", promhttp.Handler())
		rd.Logger.Info("registered metrics endpoint", "path", "/metrics")
	}
}
