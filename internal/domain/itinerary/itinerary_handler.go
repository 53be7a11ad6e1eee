package itinerary

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"connectrpc.com/connect"

	"github.com/FACorreiaa/loci-trip-planner/internal/domain/share"
	"github.com/FACorreiaa/loci-trip-planner/internal/domain/suggestion"
	"github.com/FACorreiaa/loci-trip-planner/internal/domain/trips"
	"github.com/FACorreiaa/loci-trip-planner/internal/domain/weather"
	"github.com/FACorreiaa/loci-trip-planner/internal/types"
	"github.com/FACorreiaa/loci-trip-planner/pkg/interceptors"
	"github.com/FACorreiaa/loci-trip-planner/pkg/tripconnect"
)

// DraftHeader names the error metadata carrying the id of an itinerary whose save failed.
const DraftHeader = "Loci-Draft-Id"

var _ tripconnect.TripServiceHandler = (*Handler)(nil)

// Handler implements the TripService RPCs.
type Handler struct {
	svc         Service
	suggestions suggestion.Service
	shares      share.Service
	weather     weather.Client
	store       trips.Store
	logger      *slog.Logger

	draining  chan struct{}
	drainOnce sync.Once

	watchMu  sync.Mutex
	watchers map[watchKey]map[*trips.Viewer]struct{}
}

type watchKey struct {
	owner string
	id    string
}

// NewHandler wires a TripService handler.
func NewHandler(
	svc Service,
	suggestions suggestion.Service,
	shares share.Service,
	weatherClient weather.Client,
	store trips.Store,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		svc:         svc,
		suggestions: suggestions,
		shares:      shares,
		weather:     weatherClient,
		store:       store,
		logger:      logger,
		draining:    make(chan struct{}),
		watchers:    make(map[watchKey]map[*trips.Viewer]struct{}),
	}
}

// Drain ends every open watch stream. Call it when the server starts shutting
// down so long-lived streams do not hold the shutdown open.
func (h *Handler) Drain() {
	h.drainOnce.Do(func() { close(h.draining) })
}

// GenerateItinerary builds a new itinerary. Anonymous callers get an unsaved guest plan.
func (h *Handler) GenerateItinerary(
	ctx context.Context,
	req *connect.Request[locitypes.GenerateItineraryRequest],
) (*connect.Response[locitypes.GenerateItineraryResponse], error) {
	ownerID, _ := interceptors.UserIDFromContext(ctx)

	result, err := h.svc.Build(ctx, req.Msg.Trip, ownerID)
	if err != nil {
		if result != nil && errors.Is(err, locitypes.ErrPersistence) {
			return nil, h.draftError(err, result.Itinerary.ID)
		}
		return nil, h.toConnectError(err)
	}
	return connect.NewResponse(&locitypes.GenerateItineraryResponse{Result: *result}), nil
}

// SaveItinerary retries the save of an itinerary whose first write failed.
func (h *Handler) SaveItinerary(
	ctx context.Context,
	req *connect.Request[locitypes.ItineraryRef],
) (*connect.Response[locitypes.GenerateItineraryResponse], error) {
	ownerID, err := h.requireOwner(ctx)
	if err != nil {
		return nil, err
	}

	result, err := h.svc.SaveDraft(ctx, ownerID, req.Msg.ItineraryID)
	if err != nil {
		if errors.Is(err, locitypes.ErrPersistence) {
			return nil, h.draftError(err, req.Msg.ItineraryID)
		}
		return nil, h.toConnectError(err)
	}
	return connect.NewResponse(&locitypes.GenerateItineraryResponse{Result: *result}), nil
}

func (h *Handler) GetItinerary(
	ctx context.Context,
	req *connect.Request[locitypes.ItineraryRef],
) (*connect.Response[locitypes.ItineraryResponse], error) {
	it, err := h.load(ctx, req.Msg.ItineraryID)
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(&locitypes.ItineraryResponse{Itinerary: *it}), nil
}

// ListItineraries returns the caller's trips, favorites first and then newest first.
func (h *Handler) ListItineraries(
	ctx context.Context,
	_ *connect.Request[locitypes.ListItinerariesRequest],
) (*connect.Response[locitypes.ListItinerariesResponse], error) {
	ownerID, err := h.requireOwner(ctx)
	if err != nil {
		return nil, err
	}

	list, err := h.svc.List(ctx, ownerID)
	if err != nil {
		return nil, h.toConnectError(err)
	}
	return connect.NewResponse(&locitypes.ListItinerariesResponse{Itineraries: list}), nil
}

func (h *Handler) DeleteItinerary(
	ctx context.Context,
	req *connect.Request[locitypes.ItineraryRef],
) (*connect.Response[locitypes.DeleteItineraryResponse], error) {
	ownerID, err := h.requireOwner(ctx)
	if err != nil {
		return nil, err
	}
	if err := h.svc.Delete(ctx, ownerID, req.Msg.ItineraryID); err != nil {
		return nil, h.toConnectError(err)
	}
	return connect.NewResponse(&locitypes.DeleteItineraryResponse{}), nil
}

func (h *Handler) ToggleFavorite(
	ctx context.Context,
	req *connect.Request[locitypes.ItineraryRef],
) (*connect.Response[locitypes.ToggleFavoriteResponse], error) {
	ownerID, err := h.requireOwner(ctx)
	if err != nil {
		return nil, err
	}

	favorite, revision, err := h.svc.ToggleFavorite(ctx, ownerID, req.Msg.ItineraryID)
	if err != nil {
		return nil, h.toConnectError(err)
	}
	h.expectRevision(ownerID, req.Msg.ItineraryID, revision)
	return connect.NewResponse(&locitypes.ToggleFavoriteResponse{Favorite: favorite, Revision: revision}), nil
}

func (h *Handler) DeleteActivity(
	ctx context.Context,
	req *connect.Request[locitypes.DeleteActivityRequest],
) (*connect.Response[locitypes.ItineraryResponse], error) {
	ownerID, err := h.requireOwner(ctx)
	if err != nil {
		return nil, err
	}

	it, err := h.svc.DeleteActivity(ctx, ownerID, req.Msg.ItineraryID, req.Msg.Day, req.Msg.Index)
	if err != nil {
		return nil, h.toConnectError(err)
	}
	h.expectRevision(ownerID, req.Msg.ItineraryID, it.Revision)
	return connect.NewResponse(&locitypes.ItineraryResponse{Itinerary: *it}), nil
}

// SuggestEdit asks the model for an incremental change without applying it.
func (h *Handler) SuggestEdit(
	ctx context.Context,
	req *connect.Request[locitypes.SuggestEditRequest],
) (*connect.Response[locitypes.SuggestEditResponse], error) {
	message := strings.TrimSpace(req.Msg.Message)
	if message == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("message is required"))
	}
	it, err := h.load(ctx, req.Msg.ItineraryID)
	if err != nil {
		return nil, err
	}

	edit := h.suggestions.Suggest(ctx, *it, message)
	return connect.NewResponse(&locitypes.SuggestEditResponse{Edit: edit}), nil
}

func (h *Handler) ApplyEdit(
	ctx context.Context,
	req *connect.Request[locitypes.ApplyEditRequest],
) (*connect.Response[locitypes.ItineraryResponse], error) {
	ownerID, err := h.requireOwner(ctx)
	if err != nil {
		return nil, err
	}

	it, err := h.suggestions.ApplyEdit(ctx, ownerID, req.Msg.ItineraryID, req.Msg.Edit)
	if err != nil {
		return nil, h.toConnectError(err)
	}
	h.expectRevision(ownerID, req.Msg.ItineraryID, it.Revision)
	return connect.NewResponse(&locitypes.ItineraryResponse{Itinerary: *it}), nil
}

// AskAssistant answers a free-form message, optionally proposing an edit. The forecast
// handed to the model is the one captured when the itinerary was built, or a live one
// when none was stored.
func (h *Handler) AskAssistant(
	ctx context.Context,
	req *connect.Request[locitypes.AskAssistantRequest],
) (*connect.Response[locitypes.AskAssistantResponse], error) {
	message := strings.TrimSpace(req.Msg.Message)
	if message == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("message is required"))
	}
	it, err := h.load(ctx, req.Msg.ItineraryID)
	if err != nil {
		return nil, err
	}

	forecast := weather.Daily(it.Weather)
	if len(forecast) == 0 {
		forecast = h.weather.Forecast(ctx, it.Location.Lat, it.Location.Lng)
	}
	reply := h.suggestions.Assist(ctx, *it, forecast, message)
	return connect.NewResponse(&locitypes.AskAssistantResponse{Reply: reply}), nil
}

func (h *Handler) SummarizeItinerary(
	ctx context.Context,
	req *connect.Request[locitypes.ItineraryRef],
) (*connect.Response[locitypes.SummarizeItineraryResponse], error) {
	it, err := h.load(ctx, req.Msg.ItineraryID)
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(&locitypes.SummarizeItineraryResponse{
		Summary: h.suggestions.Summarize(ctx, *it),
	}), nil
}

// CreateShareLink issues a link only for itineraries that exist.
func (h *Handler) CreateShareLink(
	ctx context.Context,
	req *connect.Request[locitypes.ItineraryRef],
) (*connect.Response[locitypes.CreateShareLinkResponse], error) {
	ownerID, err := h.requireOwner(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := h.svc.Get(ctx, ownerID, req.Msg.ItineraryID); err != nil {
		return nil, h.toConnectError(err)
	}

	link, err := h.shares.Link(locitypes.ShareRef{OwnerID: ownerID, ItineraryID: req.Msg.ItineraryID})
	if err != nil {
		return nil, h.toConnectError(err)
	}
	return connect.NewResponse(&locitypes.CreateShareLinkResponse{Link: link}), nil
}

func (h *Handler) ResolveShareLink(
	ctx context.Context,
	req *connect.Request[locitypes.ResolveShareLinkRequest],
) (*connect.Response[locitypes.ItineraryResponse], error) {
	it, err := h.shares.Resolve(ctx, strings.TrimSpace(req.Msg.Token))
	if err != nil {
		return nil, h.toConnectError(err)
	}
	return connect.NewResponse(&locitypes.ItineraryResponse{Itinerary: *it}), nil
}

// GetWeather returns current conditions and the daily forecast for a point.
func (h *Handler) GetWeather(
	ctx context.Context,
	req *connect.Request[locitypes.GetWeatherRequest],
) (*connect.Response[locitypes.GetWeatherResponse], error) {
	lat, lng := req.Msg.Lat, req.Msg.Lng
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("coordinates out of range"))
	}

	raw := h.weather.ForecastRaw(ctx, lat, lng)
	return connect.NewResponse(&locitypes.GetWeatherResponse{
		Headline: weather.HeadlineOf(raw),
		Forecast: weather.Daily(raw),
	}), nil
}

// WatchItinerary streams the itinerary whenever it changes. The stream ends after
// reporting that the itinerary no longer exists.
func (h *Handler) WatchItinerary(
	ctx context.Context,
	req *connect.Request[locitypes.ItineraryRef],
	stream *connect.ServerStream[locitypes.WatchItineraryEvent],
) error {
	ownerID, err := h.requireOwner(ctx)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	updates := make(chan trips.DocumentSnapshot)
	viewer := trips.NewViewer(h.store, func(snap trips.DocumentSnapshot) {
		select {
		case updates <- snap:
		case <-ctx.Done():
		}
	})
	defer viewer.Close()

	if err := viewer.View(ctx, ownerID, req.Msg.ItineraryID); err != nil {
		h.logger.ErrorContext(ctx, "Failed to watch itinerary",
			slog.String("itinerary_id", req.Msg.ItineraryID), slog.Any("error", err))
		return connect.NewError(connect.CodeUnavailable, errors.New("live updates are unavailable"))
	}
	defer h.trackViewer(ownerID, req.Msg.ItineraryID, viewer)()

	for {
		select {
		case snap := <-updates:
			event := &locitypes.WatchItineraryEvent{Itinerary: snap.Itinerary, NotFound: snap.NotFound}
			if err := stream.Send(event); err != nil {
				return err
			}
			if snap.NotFound {
				return nil
			}
		case <-h.draining:
			return nil
		case <-ctx.Done():
			return nil
		}
	}
}

// WatchItineraries streams the caller's itinerary list whenever any of them changes.
func (h *Handler) WatchItineraries(
	ctx context.Context,
	_ *connect.Request[locitypes.ListItinerariesRequest],
	stream *connect.ServerStream[locitypes.WatchItinerariesEvent],
) error {
	ownerID, err := h.requireOwner(ctx)
	if err != nil {
		return err
	}

	sub, err := h.store.SubscribeCollection(ctx, ownerID)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to watch itineraries", slog.Any("error", err))
		return connect.NewError(connect.CodeUnavailable, errors.New("live updates are unavailable"))
	}
	defer sub.Close()

	for {
		select {
		case list, ok := <-sub.C:
			if !ok {
				return nil
			}
			if err := stream.Send(&locitypes.WatchItinerariesEvent{Itineraries: list}); err != nil {
				return err
			}
		case <-h.draining:
			return nil
		case <-ctx.Done():
			return nil
		}
	}
}

// trackViewer registers a watch stream's viewer so writes made through this
// handler can announce their revision to it. The returned func unregisters it.
func (h *Handler) trackViewer(ownerID, itineraryID string, v *trips.Viewer) func() {
	key := watchKey{owner: ownerID, id: itineraryID}
	h.watchMu.Lock()
	if h.watchers[key] == nil {
		h.watchers[key] = make(map[*trips.Viewer]struct{})
	}
	h.watchers[key][v] = struct{}{}
	h.watchMu.Unlock()

	return func() {
		h.watchMu.Lock()
		defer h.watchMu.Unlock()
		delete(h.watchers[key], v)
		if len(h.watchers[key]) == 0 {
			delete(h.watchers, key)
		}
	}
}

// expectRevision keeps open watch streams of the itinerary from replaying a
// snapshot older than a write this handler just acknowledged.
func (h *Handler) expectRevision(ownerID, itineraryID string, revision int64) {
	h.watchMu.Lock()
	defer h.watchMu.Unlock()
	for v := range h.watchers[watchKey{owner: ownerID, id: itineraryID}] {
		v.ExpectRevision(revision)
	}
}

func (h *Handler) load(ctx context.Context, itineraryID string) (*locitypes.Itinerary, error) {
	ownerID, err := h.requireOwner(ctx)
	if err != nil {
		return nil, err
	}
	it, err := h.svc.Get(ctx, ownerID, itineraryID)
	if err != nil {
		return nil, h.toConnectError(err)
	}
	return it, nil
}

func (h *Handler) requireOwner(ctx context.Context) (string, error) {
	ownerID, ok := interceptors.UserIDFromContext(ctx)
	if !ok {
		return "", connect.NewError(connect.CodeUnauthenticated, errors.New("authentication required"))
	}
	return ownerID, nil
}

func (h *Handler) draftError(err error, itineraryID string) error {
	cerr := connect.NewError(connect.CodeUnavailable, err)
	cerr.Meta().Set(DraftHeader, itineraryID)
	return cerr
}

func (h *Handler) toConnectError(err error) error {
	var inputErr *locitypes.InputError
	switch {
	case errors.As(err, &inputErr):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, locitypes.ErrInvalidInput),
		errors.Is(err, locitypes.ErrInvalidDestination),
		errors.Is(err, locitypes.ErrBadRequest):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, locitypes.ErrInvalidShareToken):
		return connect.NewError(connect.CodeInvalidArgument, locitypes.ErrInvalidShareToken)
	case errors.Is(err, locitypes.ErrNotFound):
		return connect.NewError(connect.CodeNotFound, errors.New("trip not found or was removed"))
	case errors.Is(err, locitypes.ErrPersistence):
		return connect.NewError(connect.CodeUnavailable, err)
	case errors.Is(err, locitypes.ErrUnauthenticated):
		return connect.NewError(connect.CodeUnauthenticated, err)
	case errors.Is(err, locitypes.ErrForbidden):
		return connect.NewError(connect.CodePermissionDenied, err)
	case errors.Is(err, locitypes.ErrConflict):
		return connect.NewError(connect.CodeAlreadyExists, err)
	default:
		h.logger.Error("Unhandled trip service error", slog.Any("error", err))
		return connect.NewError(connect.CodeInternal, errors.New("something went wrong"))
	}
}
