package observability

import (
	"context"
	"errors"
	"time"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "loci_trips"

var (
	rpcRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rpc_requests_total",
		Help:      "Connect RPC requests by procedure and code.",
	}, []string{"procedure", "code"})

	rpcDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "rpc_duration_seconds",
		Help:      "Connect RPC latency.",
		Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"procedure"})

	// Builds counts finished itinerary builds by outcome (ai, fallback, invalid_destination, persist_failed).
	Builds = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "itinerary_builds_total",
		Help:      "Itinerary builds by outcome.",
	}, []string{"outcome"})

	// ProviderFallbacks counts calls answered by a secondary provider.
	ProviderFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "provider_fallbacks_total",
		Help:      "Lookups answered by the fallback provider.",
	}, []string{"component"})

	// DegradedData counts enrichment fetches that came back empty.
	DegradedData = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "degraded_enrichment_total",
		Help:      "Enrichment fetches that returned no data.",
	}, []string{"source"})

	// AIFailures counts gateway calls that produced the failure sentinel.
	AIFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ai_failures_total",
		Help:      "AI gateway calls that failed.",
	}, []string{"backend"})

	// ShareDecodeErrors counts share tokens that could not be decoded.
	ShareDecodeErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "share_decode_errors_total",
		Help:      "Share tokens rejected as invalid.",
	})

	// PersonaBuilds counts builds per persona.
	PersonaBuilds = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "persona_builds_total",
		Help:      "Itinerary builds by declared persona.",
	}, []string{"persona"})

	// ActiveSubscriptions tracks live itinerary watchers.
	ActiveSubscriptions = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_subscriptions",
		Help:      "Open document and collection subscriptions.",
	}, []string{"kind"})
)

// NewMetricsInterceptor records request counts and latency for every unary and streaming RPC.
func NewMetricsInterceptor() connect.Interceptor {
	return &metricsInterceptor{}
}

type metricsInterceptor struct{}

func (m *metricsInterceptor) WrapUnary(next connect.UnaryFunc) connect.UnaryFunc {
	return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		start := time.Now()
		resp, err := next(ctx, req)
		observe(req.Spec().Procedure, start, err)
		return resp, err
	}
}

func (m *metricsInterceptor) WrapStreamingClient(next connect.StreamingClientFunc) connect.StreamingClientFunc {
	return next
}

func (m *metricsInterceptor) WrapStreamingHandler(next connect.StreamingHandlerFunc) connect.StreamingHandlerFunc {
	return func(ctx context.Context, conn connect.StreamingHandlerConn) error {
		start := time.Now()
		err := next(ctx, conn)
		observe(conn.Spec().Procedure, start, err)
		return err
	}
}

func observe(procedure string, start time.Time, err error) {
	code := "ok"
	if err != nil {
		code = connect.CodeOf(err).String()
		if errors.Is(err, context.Canceled) {
			code = connect.CodeCanceled.String()
		}
	}
	rpcRequests.WithLabelValues(procedure, code).Inc()
	rpcDuration.WithLabelValues(procedure).Observe(time.Since(start).Seconds())
}
