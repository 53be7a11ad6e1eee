package share

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	qrcode "github.com/skip2/go-qrcode"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"github.com/FACorreiaa/loci-trip-planner/internal/types"
	"github.com/FACorreiaa/loci-trip-planner/pkg/observability"
)

// TripGetter is the slice of the trip store that share resolution needs.
type TripGetter interface {
	Get(ctx context.Context, ownerID, itineraryID string) (*locitypes.Itinerary, error)
}

// Service issues share links and resolves them back to itineraries.
type Service interface {
	Link(ref locitypes.ShareRef) (locitypes.ShareLink, error)
	Resolve(ctx context.Context, token string) (*locitypes.Itinerary, error)
	QR(token string, size int) ([]byte, error)
}

var _ Service = (*ServiceImpl)(nil)

type ServiceImpl struct {
	codec   *Codec
	trips   TripGetter
	baseURL string
	logger  *slog.Logger
}

func NewService(codec *Codec, trips TripGetter, publicBaseURL string, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		codec:   codec,
		trips:   trips,
		baseURL: strings.TrimRight(publicBaseURL, "/"),
		logger:  logger,
	}
}

// Link encodes ref and renders the share URL: a single path segment, no query.
func (s *ServiceImpl) Link(ref locitypes.ShareRef) (locitypes.ShareLink, error) {
	token, err := s.codec.Encode(ref)
	if err != nil {
		return locitypes.ShareLink{}, err
	}
	return locitypes.ShareLink{Token: token, URL: s.URL(token)}, nil
}

func (s *ServiceImpl) URL(token string) string {
	return fmt.Sprintf("%s/s/%s", s.baseURL, token)
}

// Resolve decodes a token and loads what it points at. Guest tokens resolve to
// the sample itinerary without touching the store. Decode failures wrap
// ErrInvalidShareToken; missing or deleted trips return ErrNotFound.
func (s *ServiceImpl) Resolve(ctx context.Context, token string) (*locitypes.Itinerary, error) {
	ctx, span := otel.Tracer("ShareService").Start(ctx, "Resolve")
	defer span.End()

	ref, err := s.codec.Decode(token)
	if err != nil {
		observability.ShareDecodeErrors.Inc()
		s.logger.InfoContext(ctx, "Rejected share token", slog.Any("error", err))
		span.SetStatus(codes.Error, "invalid token")
		return nil, err
	}

	if ref.OwnerID == locitypes.GuestOwnerID {
		sample := SampleItinerary()
		span.SetStatus(codes.Ok, "guest sample")
		return &sample, nil
	}

	trip, err := s.trips.Get(ctx, ref.OwnerID, ref.ItineraryID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "lookup failed")
		if errors.Is(err, locitypes.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to load shared itinerary: %w", err)
	}
	span.SetStatus(codes.Ok, "")
	return trip, nil
}

// QR renders the share URL of a valid token as a PNG.
func (s *ServiceImpl) QR(token string, size int) ([]byte, error) {
	if _, err := s.codec.Decode(token); err != nil {
		return nil, err
	}
	if size <= 0 {
		size = 256
	}
	png, err := qrcode.Encode(s.URL(token), qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("failed to render qr code: %w", err)
	}
	return png, nil
}
