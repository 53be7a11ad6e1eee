package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/loci-trip-planner/internal/types"
	"github.com/FACorreiaa/loci-trip-planner/pkg/observability"
)

var _ Recorder = (*RecorderImpl)(nil)

// Recorder stores one event per itinerary generation.
type Recorder interface {
	Record(ctx context.Context, event locitypes.AnalyticsEvent) error
}

// Execer is satisfied by pgxpool.Pool and pgxmock pools.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type RecorderImpl struct {
	logger *slog.Logger
	db     Execer
}

func NewRecorder(db Execer, logger *slog.Logger) *RecorderImpl {
	return &RecorderImpl{
		logger: logger,
		db:     db,
	}
}

func (r *RecorderImpl) Record(ctx context.Context, event locitypes.AnalyticsEvent) error {
	ctx, span := otel.Tracer("AnalyticsRecorder").Start(ctx, "Record", trace.WithAttributes(
		attribute.String("analytics.destination", event.Destination),
		attribute.Int("analytics.days", event.Days),
	))
	defer span.End()

	if event.OwnerID == "" {
		event.OwnerID = locitypes.GuestOwnerID
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	persona := strings.ToLower(strings.TrimSpace(event.Persona))
	if persona == "" {
		persona = "none"
	}
	observability.PersonaBuilds.WithLabelValues(persona).Inc()

	query := `
		INSERT INTO trip_analytics (owner_id, destination, budget, days, persona, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := r.db.Exec(ctx, query,
		event.OwnerID, event.Destination, event.Budget, event.Days, event.Persona, event.CreatedAt); err != nil {
		r.logger.WarnContext(ctx, "Failed to record analytics event",
			slog.String("destination", event.Destination), slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
		return fmt.Errorf("failed to record analytics event: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return nil
}
