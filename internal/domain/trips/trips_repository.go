package trips

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/loci-trip-planner/internal/types"
)

var _ Store = (*PostgresStore)(nil)

// DBTX is the subset of pgxpool.Pool the store needs. pgxmock pools satisfy it too.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Reader is the read side the hub uses to build snapshots.
type Reader interface {
	Get(ctx context.Context, ownerID, itineraryID string) (*locitypes.Itinerary, error)
	List(ctx context.Context, ownerID string) ([]locitypes.ItinerarySummary, error)
}

// Store is the persisted document store keyed by owner and itinerary id.
type Store interface {
	Reader
	Set(ctx context.Context, ownerID, itineraryID string, doc locitypes.Itinerary) error
	Update(ctx context.Context, ownerID, itineraryID string, patch locitypes.ItineraryPatch) error
	Delete(ctx context.Context, ownerID, itineraryID string) error
	SubscribeCollection(ctx context.Context, ownerID string) (*Subscription[[]locitypes.ItinerarySummary], error)
	SubscribeDocument(ctx context.Context, ownerID, itineraryID string) (*Subscription[DocumentSnapshot], error)
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

type PostgresStore struct {
	logger *slog.Logger
	db     DBTX
	hub    *Hub
}

// NewPostgresStore wires the store to db. Subscriptions stay disabled until WithHub.
func NewPostgresStore(db DBTX, logger *slog.Logger) *PostgresStore {
	return &PostgresStore{
		logger: logger,
		db:     db,
	}
}

// WithHub enables SubscribeCollection and SubscribeDocument.
func (s *PostgresStore) WithHub(hub *Hub) *PostgresStore {
	s.hub = hub
	return s
}

func (s *PostgresStore) Get(ctx context.Context, ownerID, itineraryID string) (*locitypes.Itinerary, error) {
	ctx, span := otel.Tracer("TripStore").Start(ctx, "Get", trace.WithAttributes(
		attribute.String("owner.id", ownerID),
		attribute.String("itinerary.id", itineraryID),
	))
	defer span.End()

	query := `SELECT doc, favorite, revision FROM itineraries WHERE owner_id = $1 AND id = $2`

	var (
		raw      []byte
		favorite bool
		revision int64
	)
	err := s.db.QueryRow(ctx, query, ownerID, itineraryID).Scan(&raw, &favorite, &revision)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Ok, "not found")
			return nil, locitypes.ErrNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "query failed")
		return nil, fmt.Errorf("failed to get itinerary %s: %w", itineraryID, err)
	}

	var it locitypes.Itinerary
	if err := json.Unmarshal(raw, &it); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "decode failed")
		return nil, fmt.Errorf("failed to decode itinerary %s: %w", itineraryID, err)
	}
	// columns are authoritative for fields that can change without a doc rewrite
	it.ID = itineraryID
	it.Favorite = favorite
	it.Revision = revision
	it.Unsaved = false

	span.SetStatus(codes.Ok, "")
	return &it, nil
}

func (s *PostgresStore) Set(ctx context.Context, ownerID, itineraryID string, doc locitypes.Itinerary) error {
	ctx, span := otel.Tracer("TripStore").Start(ctx, "Set", trace.WithAttributes(
		attribute.String("owner.id", ownerID),
		attribute.String("itinerary.id", itineraryID),
	))
	defer span.End()

	doc.ID = itineraryID
	doc.Unsaved = false
	raw, err := json.Marshal(doc)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to encode itinerary: %w", err)
	}

	query := `
		INSERT INTO itineraries (owner_id, id, title, destination, doc, favorite, revision, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		ON CONFLICT (owner_id, id) DO UPDATE SET
			title = EXCLUDED.title,
			destination = EXCLUDED.destination,
			doc = EXCLUDED.doc,
			favorite = EXCLUDED.favorite,
			revision = EXCLUDED.revision,
			updated_at = NOW()`

	_, err = s.db.Exec(ctx, query,
		ownerID, itineraryID, doc.Title, doc.Location.Name, raw, doc.Favorite, doc.Revision, doc.CreatedAt)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to store itinerary",
			slog.String("itinerary_id", itineraryID), slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
		return fmt.Errorf("failed to store itinerary %s: %w", itineraryID, err)
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// Update merges patch into the stored document. The doc column is patched with a jsonb
// concatenation so fields outside the patch are preserved.
func (s *PostgresStore) Update(ctx context.Context, ownerID, itineraryID string, patch locitypes.ItineraryPatch) error {
	ctx, span := otel.Tracer("TripStore").Start(ctx, "Update", trace.WithAttributes(
		attribute.String("owner.id", ownerID),
		attribute.String("itinerary.id", itineraryID),
		attribute.Int64("revision", patch.Revision),
	))
	defer span.End()

	fields := map[string]any{"revision": patch.Revision}
	q := psql.Update("itineraries").
		Set("revision", patch.Revision).
		Set("updated_at", sq.Expr("NOW()"))
	if patch.Title != nil {
		q = q.Set("title", *patch.Title)
		fields["title"] = *patch.Title
	}
	if patch.Favorite != nil {
		q = q.Set("favorite", *patch.Favorite)
		fields["favorite"] = *patch.Favorite
	}
	if patch.Days != nil {
		fields["days"] = patch.Days
	}
	if patch.CostEstimate != nil {
		fields["costEstimate"] = *patch.CostEstimate
	}

	raw, err := json.Marshal(fields)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to encode patch: %w", err)
	}
	q = q.Set("doc", sq.Expr("doc || ?::jsonb", string(raw))).
		Where("owner_id = ? AND id = ?", ownerID, itineraryID)

	query, args, err := q.ToSql()
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to build update: %w", err)
	}

	tag, err := s.db.Exec(ctx, query, args...)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to update itinerary",
			slog.String("itinerary_id", itineraryID), slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
		return fmt.Errorf("failed to update itinerary %s: %w", itineraryID, err)
	}
	if tag.RowsAffected() == 0 {
		span.SetStatus(codes.Error, "not found")
		return locitypes.ErrNotFound
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, ownerID, itineraryID string) error {
	ctx, span := otel.Tracer("TripStore").Start(ctx, "Delete", trace.WithAttributes(
		attribute.String("owner.id", ownerID),
		attribute.String("itinerary.id", itineraryID),
	))
	defer span.End()

	tag, err := s.db.Exec(ctx, `DELETE FROM itineraries WHERE owner_id = $1 AND id = $2`, ownerID, itineraryID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "delete failed")
		return fmt.Errorf("failed to delete itinerary %s: %w", itineraryID, err)
	}
	if tag.RowsAffected() == 0 {
		return locitypes.ErrNotFound
	}
	span.SetStatus(codes.Ok, "")
	return nil
}

// List returns the owner's itineraries, favorites first then newest.
func (s *PostgresStore) List(ctx context.Context, ownerID string) ([]locitypes.ItinerarySummary, error) {
	ctx, span := otel.Tracer("TripStore").Start(ctx, "List", trace.WithAttributes(
		attribute.String("owner.id", ownerID),
	))
	defer span.End()

	query, args, err := psql.
		Select("id::text", "title", "destination", "COALESCE(jsonb_array_length(doc->'days'), 0)",
			"favorite", "revision", "created_at").
		From("itineraries").
		Where(sq.Eq{"owner_id": ownerID}).
		OrderBy("favorite DESC", "created_at DESC").
		ToSql()
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to build list query: %w", err)
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "query failed")
		return nil, fmt.Errorf("failed to list itineraries: %w", err)
	}
	defer rows.Close()

	out := []locitypes.ItinerarySummary{}
	for rows.Next() {
		var it locitypes.ItinerarySummary
		if err := rows.Scan(&it.ID, &it.Title, &it.Destination, &it.DayCount,
			&it.Favorite, &it.Revision, &it.CreatedAt); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("failed to scan itinerary row: %w", err)
		}
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("error iterating itinerary rows: %w", err)
	}

	span.SetAttributes(attribute.Int("itineraries.count", len(out)))
	span.SetStatus(codes.Ok, "")
	return out, nil
}

func (s *PostgresStore) SubscribeCollection(ctx context.Context, ownerID string) (*Subscription[[]locitypes.ItinerarySummary], error) {
	if s.hub == nil {
		return nil, errHubDisabled
	}
	return s.hub.SubscribeCollection(ctx, ownerID)
}

func (s *PostgresStore) SubscribeDocument(ctx context.Context, ownerID, itineraryID string) (*Subscription[DocumentSnapshot], error) {
	if s.hub == nil {
		return nil, errHubDisabled
	}
	return s.hub.SubscribeDocument(ctx, ownerID, itineraryID)
}
