// Package tripconnect exposes the TripService over Connect. Messages are plain
// Go structs from internal/types encoded with interceptors.JSONCodec.
package tripconnect

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"

	"github.com/FACorreiaa/loci-trip-planner/internal/types"
	"github.com/FACorreiaa/loci-trip-planner/pkg/interceptors"
)

// TripServiceName is the fully-qualified name of the TripService.
const TripServiceName = "loci.trip.v1.TripService"

// Procedure paths of the TripService RPCs.
const (
	TripServiceGenerateItineraryProcedure  = "/loci.trip.v1.TripService/GenerateItinerary"
	TripServiceSaveItineraryProcedure      = "/loci.trip.v1.TripService/SaveItinerary"
	TripServiceGetItineraryProcedure       = "/loci.trip.v1.TripService/GetItinerary"
	TripServiceListItinerariesProcedure    = "/loci.trip.v1.TripService/ListItineraries"
	TripServiceDeleteItineraryProcedure    = "/loci.trip.v1.TripService/DeleteItinerary"
	TripServiceToggleFavoriteProcedure     = "/loci.trip.v1.TripService/ToggleFavorite"
	TripServiceDeleteActivityProcedure     = "/loci.trip.v1.TripService/DeleteActivity"
	TripServiceSuggestEditProcedure        = "/loci.trip.v1.TripService/SuggestEdit"
	TripServiceApplyEditProcedure          = "/loci.trip.v1.TripService/ApplyEdit"
	TripServiceAskAssistantProcedure       = "/loci.trip.v1.TripService/AskAssistant"
	TripServiceSummarizeItineraryProcedure = "/loci.trip.v1.TripService/SummarizeItinerary"
	TripServiceCreateShareLinkProcedure    = "/loci.trip.v1.TripService/CreateShareLink"
	TripServiceResolveShareLinkProcedure   = "/loci.trip.v1.TripService/ResolveShareLink"
	TripServiceGetWeatherProcedure         = "/loci.trip.v1.TripService/GetWeather"
	TripServiceWatchItineraryProcedure     = "/loci.trip.v1.TripService/WatchItinerary"
	TripServiceWatchItinerariesProcedure   = "/loci.trip.v1.TripService/WatchItineraries"
)

// PublicProcedures may be called without a bearer token; callers act as guests.
var PublicProcedures = []string{
	TripServiceGenerateItineraryProcedure,
	TripServiceResolveShareLinkProcedure,
	TripServiceGetWeatherProcedure,
}

// TripServiceHandler is the server side of the TripService.
type TripServiceHandler interface {
	GenerateItinerary(context.Context, *connect.Request[locitypes.GenerateItineraryRequest]) (*connect.Response[locitypes.GenerateItineraryResponse], error)
	SaveItinerary(context.Context, *connect.Request[locitypes.ItineraryRef]) (*connect.Response[locitypes.GenerateItineraryResponse], error)
	GetItinerary(context.Context, *connect.Request[locitypes.ItineraryRef]) (*connect.Response[locitypes.ItineraryResponse], error)
	ListItineraries(context.Context, *connect.Request[locitypes.ListItinerariesRequest]) (*connect.Response[locitypes.ListItinerariesResponse], error)
	DeleteItinerary(context.Context, *connect.Request[locitypes.ItineraryRef]) (*connect.Response[locitypes.DeleteItineraryResponse], error)
	ToggleFavorite(context.Context, *connect.Request[locitypes.ItineraryRef]) (*connect.Response[locitypes.ToggleFavoriteResponse], error)
	DeleteActivity(context.Context, *connect.Request[locitypes.DeleteActivityRequest]) (*connect.Response[locitypes.ItineraryResponse], error)
	SuggestEdit(context.Context, *connect.Request[locitypes.SuggestEditRequest]) (*connect.Response[locitypes.SuggestEditResponse], error)
	ApplyEdit(context.Context, *connect.Request[locitypes.ApplyEditRequest]) (*connect.Response[locitypes.ItineraryResponse], error)
	AskAssistant(context.Context, *connect.Request[locitypes.AskAssistantRequest]) (*connect.Response[locitypes.AskAssistantResponse], error)
	SummarizeItinerary(context.Context, *connect.Request[locitypes.ItineraryRef]) (*connect.Response[locitypes.SummarizeItineraryResponse], error)
	CreateShareLink(context.Context, *connect.Request[locitypes.ItineraryRef]) (*connect.Response[locitypes.CreateShareLinkResponse], error)
	ResolveShareLink(context.Context, *connect.Request[locitypes.ResolveShareLinkRequest]) (*connect.Response[locitypes.ItineraryResponse], error)
	GetWeather(context.Context, *connect.Request[locitypes.GetWeatherRequest]) (*connect.Response[locitypes.GetWeatherResponse], error)
	WatchItinerary(context.Context, *connect.Request[locitypes.ItineraryRef], *connect.ServerStream[locitypes.WatchItineraryEvent]) error
	WatchItineraries(context.Context, *connect.Request[locitypes.ListItinerariesRequest], *connect.ServerStream[locitypes.WatchItinerariesEvent]) error
}

// NewTripServiceHandler builds an HTTP handler for every TripService procedure.
// The returned path is the mount prefix.
func NewTripServiceHandler(svc TripServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(interceptors.JSONCodec{})}, opts...)

	routes := map[string]http.Handler{
		TripServiceGenerateItineraryProcedure:  connect.NewUnaryHandler(TripServiceGenerateItineraryProcedure, svc.GenerateItinerary, opts...),
		TripServiceSaveItineraryProcedure:      connect.NewUnaryHandler(TripServiceSaveItineraryProcedure, svc.SaveItinerary, opts...),
		TripServiceGetItineraryProcedure:       connect.NewUnaryHandler(TripServiceGetItineraryProcedure, svc.GetItinerary, opts...),
		TripServiceListItinerariesProcedure:    connect.NewUnaryHandler(TripServiceListItinerariesProcedure, svc.ListItineraries, opts...),
		TripServiceDeleteItineraryProcedure:    connect.NewUnaryHandler(TripServiceDeleteItineraryProcedure, svc.DeleteItinerary, opts...),
		TripServiceToggleFavoriteProcedure:     connect.NewUnaryHandler(TripServiceToggleFavoriteProcedure, svc.ToggleFavorite, opts...),
		TripServiceDeleteActivityProcedure:     connect.NewUnaryHandler(TripServiceDeleteActivityProcedure, svc.DeleteActivity, opts...),
		TripServiceSuggestEditProcedure:        connect.NewUnaryHandler(TripServiceSuggestEditProcedure, svc.SuggestEdit, opts...),
		TripServiceApplyEditProcedure:          connect.NewUnaryHandler(TripServiceApplyEditProcedure, svc.ApplyEdit, opts...),
		TripServiceAskAssistantProcedure:       connect.NewUnaryHandler(TripServiceAskAssistantProcedure, svc.AskAssistant, opts...),
		TripServiceSummarizeItineraryProcedure: connect.NewUnaryHandler(TripServiceSummarizeItineraryProcedure, svc.SummarizeItinerary, opts...),
		TripServiceCreateShareLinkProcedure:    connect.NewUnaryHandler(TripServiceCreateShareLinkProcedure, svc.CreateShareLink, opts...),
		TripServiceResolveShareLinkProcedure:   connect.NewUnaryHandler(TripServiceResolveShareLinkProcedure, svc.ResolveShareLink, opts...),
		TripServiceGetWeatherProcedure:         connect.NewUnaryHandler(TripServiceGetWeatherProcedure, svc.GetWeather, opts...),
		TripServiceWatchItineraryProcedure:     connect.NewServerStreamHandler(TripServiceWatchItineraryProcedure, svc.WatchItinerary, opts...),
		TripServiceWatchItinerariesProcedure:   connect.NewServerStreamHandler(TripServiceWatchItinerariesProcedure, svc.WatchItineraries, opts...),
	}

	prefix := "/" + TripServiceName + "/"
	return prefix, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h, ok := routes[r.URL.Path]
		if !ok || !strings.HasPrefix(r.URL.Path, prefix) {
			http.NotFound(w, r)
			return
		}
		h.ServeHTTP(w, r)
	})
}

// TripServiceClient is a JSON Connect client for the TripService.
type TripServiceClient struct {
	generateItinerary  *connect.Client[locitypes.GenerateItineraryRequest, locitypes.GenerateItineraryResponse]
	saveItinerary      *connect.Client[locitypes.ItineraryRef, locitypes.GenerateItineraryResponse]
	getItinerary       *connect.Client[locitypes.ItineraryRef, locitypes.ItineraryResponse]
	listItineraries    *connect.Client[locitypes.ListItinerariesRequest, locitypes.ListItinerariesResponse]
	deleteItinerary    *connect.Client[locitypes.ItineraryRef, locitypes.DeleteItineraryResponse]
	toggleFavorite     *connect.Client[locitypes.ItineraryRef, locitypes.ToggleFavoriteResponse]
	deleteActivity     *connect.Client[locitypes.DeleteActivityRequest, locitypes.ItineraryResponse]
	suggestEdit        *connect.Client[locitypes.SuggestEditRequest, locitypes.SuggestEditResponse]
	applyEdit          *connect.Client[locitypes.ApplyEditRequest, locitypes.ItineraryResponse]
	askAssistant       *connect.Client[locitypes.AskAssistantRequest, locitypes.AskAssistantResponse]
	summarizeItinerary *connect.Client[locitypes.ItineraryRef, locitypes.SummarizeItineraryResponse]
	createShareLink    *connect.Client[locitypes.ItineraryRef, locitypes.CreateShareLinkResponse]
	resolveShareLink   *connect.Client[locitypes.ResolveShareLinkRequest, locitypes.ItineraryResponse]
	getWeather         *connect.Client[locitypes.GetWeatherRequest, locitypes.GetWeatherResponse]
	watchItinerary     *connect.Client[locitypes.ItineraryRef, locitypes.WatchItineraryEvent]
	watchItineraries   *connect.Client[locitypes.ListItinerariesRequest, locitypes.WatchItinerariesEvent]
}

// NewTripServiceClient builds a client against baseURL, e.g. http://localhost:8000.
func NewTripServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *TripServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{connect.WithCodec(interceptors.JSONCodec{})}, opts...)
	return &TripServiceClient{
		generateItinerary:  connect.NewClient[locitypes.GenerateItineraryRequest, locitypes.GenerateItineraryResponse](httpClient, baseURL+TripServiceGenerateItineraryProcedure, opts...),
		saveItinerary:      connect.NewClient[locitypes.ItineraryRef, locitypes.GenerateItineraryResponse](httpClient, baseURL+TripServiceSaveItineraryProcedure, opts...),
		getItinerary:       connect.NewClient[locitypes.ItineraryRef, locitypes.ItineraryResponse](httpClient, baseURL+TripServiceGetItineraryProcedure, opts...),
		listItineraries:    connect.NewClient[locitypes.ListItinerariesRequest, locitypes.ListItinerariesResponse](httpClient, baseURL+TripServiceListItinerariesProcedure, opts...),
		deleteItinerary:    connect.NewClient[locitypes.ItineraryRef, locitypes.DeleteItineraryResponse](httpClient, baseURL+TripServiceDeleteItineraryProcedure, opts...),
		toggleFavorite:     connect.NewClient[locitypes.ItineraryRef, locitypes.ToggleFavoriteResponse](httpClient, baseURL+TripServiceToggleFavoriteProcedure, opts...),
		deleteActivity:     connect.NewClient[locitypes.DeleteActivityRequest, locitypes.ItineraryResponse](httpClient, baseURL+TripServiceDeleteActivityProcedure, opts...),
		suggestEdit:        connect.NewClient[locitypes.SuggestEditRequest, locitypes.SuggestEditResponse](httpClient, baseURL+TripServiceSuggestEditProcedure, opts...),
		applyEdit:          connect.NewClient[locitypes.ApplyEditRequest, locitypes.ItineraryResponse](httpClient, baseURL+TripServiceApplyEditProcedure, opts...),
		askAssistant:       connect.NewClient[locitypes.AskAssistantRequest, locitypes.AskAssistantResponse](httpClient, baseURL+TripServiceAskAssistantProcedure, opts...),
		summarizeItinerary: connect.NewClient[locitypes.ItineraryRef, locitypes.SummarizeItineraryResponse](httpClient, baseURL+TripServiceSummarizeItineraryProcedure, opts...),
		createShareLink:    connect.NewClient[locitypes.ItineraryRef, locitypes.CreateShareLinkResponse](httpClient, baseURL+TripServiceCreateShareLinkProcedure, opts...),
		resolveShareLink:   connect.NewClient[locitypes.ResolveShareLinkRequest, locitypes.ItineraryResponse](httpClient, baseURL+TripServiceResolveShareLinkProcedure, opts...),
		getWeather:         connect.NewClient[locitypes.GetWeatherRequest, locitypes.GetWeatherResponse](httpClient, baseURL+TripServiceGetWeatherProcedure, opts...),
		watchItinerary:     connect.NewClient[locitypes.ItineraryRef, locitypes.WatchItineraryEvent](httpClient, baseURL+TripServiceWatchItineraryProcedure, opts...),
		watchItineraries:   connect.NewClient[locitypes.ListItinerariesRequest, locitypes.WatchItinerariesEvent](httpClient, baseURL+TripServiceWatchItinerariesProcedure, opts...),
	}
}

func (c *TripServiceClient) GenerateItinerary(ctx context.Context, req *connect.Request[locitypes.GenerateItineraryRequest]) (*connect.Response[locitypes.GenerateItineraryResponse], error) {
	return c.generateItinerary.CallUnary(ctx, req)
}

func (c *TripServiceClient) SaveItinerary(ctx context.Context, req *connect.Request[locitypes.ItineraryRef]) (*connect.Response[locitypes.GenerateItineraryResponse], error) {
	return c.saveItinerary.CallUnary(ctx, req)
}

func (c *TripServiceClient) GetItinerary(ctx context.Context, req *connect.Request[locitypes.ItineraryRef]) (*connect.Response[locitypes.ItineraryResponse], error) {
	return c.getItinerary.CallUnary(ctx, req)
}

func (c *TripServiceClient) ListItineraries(ctx context.Context, req *connect.Request[locitypes.ListItinerariesRequest]) (*connect.Response[locitypes.ListItinerariesResponse], error) {
	return c.listItineraries.CallUnary(ctx, req)
}

func (c *TripServiceClient) DeleteItinerary(ctx context.Context, req *connect.Request[locitypes.ItineraryRef]) (*connect.Response[locitypes.DeleteItineraryResponse], error) {
	return c.deleteItinerary.CallUnary(ctx, req)
}

func (c *TripServiceClient) ToggleFavorite(ctx context.Context, req *connect.Request[locitypes.ItineraryRef]) (*connect.Response[locitypes.ToggleFavoriteResponse], error) {
	return c.toggleFavorite.CallUnary(ctx, req)
}

func (c *TripServiceClient) DeleteActivity(ctx context.Context, req *connect.Request[locitypes.DeleteActivityRequest]) (*connect.Response[locitypes.ItineraryResponse], error) {
	return c.deleteActivity.CallUnary(ctx, req)
}

func (c *TripServiceClient) SuggestEdit(ctx context.Context, req *connect.Request[locitypes.SuggestEditRequest]) (*connect.Response[locitypes.SuggestEditResponse], error) {
	return c.suggestEdit.CallUnary(ctx, req)
}

func (c *TripServiceClient) ApplyEdit(ctx context.Context, req *connect.Request[locitypes.ApplyEditRequest]) (*connect.Response[locitypes.ItineraryResponse], error) {
	return c.applyEdit.CallUnary(ctx, req)
}

func (c *TripServiceClient) AskAssistant(ctx context.Context, req *connect.Request[locitypes.AskAssistantRequest]) (*connect.Response[locitypes.AskAssistantResponse], error) {
	return c.askAssistant.CallUnary(ctx, req)
}

func (c *TripServiceClient) SummarizeItinerary(ctx context.Context, req *connect.Request[locitypes.ItineraryRef]) (*connect.Response[locitypes.SummarizeItineraryResponse], error) {
	return c.summarizeItinerary.CallUnary(ctx, req)
}

func (c *TripServiceClient) CreateShareLink(ctx context.Context, req *connect.Request[locitypes.ItineraryRef]) (*connect.Response[locitypes.CreateShareLinkResponse], error) {
	return c.createShareLink.CallUnary(ctx, req)
}

func (c *TripServiceClient) ResolveShareLink(ctx context.Context, req *connect.Request[locitypes.ResolveShareLinkRequest]) (*connect.Response[locitypes.ItineraryResponse], error) {
	return c.resolveShareLink.CallUnary(ctx, req)
}

func (c *TripServiceClient) GetWeather(ctx context.Context, req *connect.Request[locitypes.GetWeatherRequest]) (*connect.Response[locitypes.GetWeatherResponse], error) {
	return c.getWeather.CallUnary(ctx, req)
}

func (c *TripServiceClient) WatchItinerary(ctx context.Context, req *connect.Request[locitypes.ItineraryRef]) (*connect.ServerStreamForClient[locitypes.WatchItineraryEvent], error) {
	return c.watchItinerary.CallServerStream(ctx, req)
}

func (c *TripServiceClient) WatchItineraries(ctx context.Context, req *connect.Request[locitypes.ListItinerariesRequest]) (*connect.ServerStreamForClient[locitypes.WatchItinerariesEvent], error) {
	return c.watchItineraries.CallServerStream(ctx, req)
}
