package suggestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/loci-trip-planner/internal/domain/trips"
	"github.com/FACorreiaa/loci-trip-planner/internal/llm"
	"github.com/FACorreiaa/loci-trip-planner/internal/types"
)

var _ Service = (*ServiceImpl)(nil)

type Service interface {
	// Suggest asks the model for one edit. nil means no change.
	Suggest(ctx context.Context, it locitypes.Itinerary, userInput string) *locitypes.Edit
	Assist(ctx context.Context, it locitypes.Itinerary, forecast []locitypes.DailyForecast, userInput string) locitypes.AssistantReply
	Summarize(ctx context.Context, it locitypes.Itinerary) string
	ApplyEdit(ctx context.Context, ownerID, itineraryID string, edit locitypes.Edit) (*locitypes.Itinerary, error)
}

type ServiceImpl struct {
	logger *slog.Logger
	ai     llm.AIGateway
	store  trips.Store
}

func NewService(ai llm.AIGateway, store trips.Store, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger: logger,
		ai:     ai,
		store:  store,
	}
}

func (s *ServiceImpl) Suggest(ctx context.Context, it locitypes.Itinerary, userInput string) *locitypes.Edit {
	ctx, span := otel.Tracer("SuggestionService").Start(ctx, "Suggest", trace.WithAttributes(
		attribute.String("itinerary.id", it.ID),
	))
	defer span.End()
	l := s.logger.With(slog.String("method", "Suggest"), slog.String("itinerary_id", it.ID))

	reply := s.ai.Generate(ctx, getRefinePrompt(it, userInput))
	extraction := llm.ExtractJSON(reply)
	if !extraction.Structured() {
		l.WarnContext(ctx, "Refine reply carried no JSON", slog.Int("reply_length", len(reply)))
		span.SetStatus(codes.Ok, "unstructured")
		return nil
	}

	edit, ok := parseEdit(extraction.Object)
	if !ok {
		l.InfoContext(ctx, "Model suggested no change", slog.Any("action", extraction.Object["action"]))
		span.SetStatus(codes.Ok, "no edit")
		return nil
	}
	span.SetAttributes(attribute.String("edit.action", string(edit.Action)), attribute.Int("edit.day", edit.Day))
	span.SetStatus(codes.Ok, "")
	return edit
}

func (s *ServiceImpl) Assist(ctx context.Context, it locitypes.Itinerary, forecast []locitypes.DailyForecast, userInput string) locitypes.AssistantReply {
	ctx, span := otel.Tracer("SuggestionService").Start(ctx, "Assist", trace.WithAttributes(
		attribute.String("itinerary.id", it.ID),
	))
	defer span.End()

	reply := s.ai.Generate(ctx, getAssistantPrompt(it, forecast, userInput))
	extraction := llm.ExtractJSON(reply)
	if !extraction.Structured() {
		span.SetStatus(codes.Ok, "unstructured")
		return locitypes.AssistantReply{Mode: locitypes.AssistantChat, Message: extraction.Text}
	}

	mode, _ := extraction.Object["mode"].(string)
	if strings.EqualFold(mode, string(locitypes.AssistantUpdate)) {
		if edit, ok := parseEdit(extraction.Object); ok {
			span.SetAttributes(attribute.String("assistant.mode", "update"))
			span.SetStatus(codes.Ok, "")
			return locitypes.AssistantReply{Mode: locitypes.AssistantUpdate, Edit: edit}
		}
		s.logger.WarnContext(ctx, "Assistant update carried no usable edit", slog.String("itinerary_id", it.ID))
	}

	message, _ := extraction.Object["message"].(string)
	if strings.TrimSpace(message) == "" {
		message = extraction.Text
	}
	span.SetAttributes(attribute.String("assistant.mode", "chat"))
	span.SetStatus(codes.Ok, "")
	return locitypes.AssistantReply{Mode: locitypes.AssistantChat, Message: strings.TrimSpace(message)}
}

// Summarize returns a short brochure paragraph, or the failure sentinel.
func (s *ServiceImpl) Summarize(ctx context.Context, it locitypes.Itinerary) string {
	ctx, span := otel.Tracer("SuggestionService").Start(ctx, "Summarize")
	defer span.End()
	return llm.CleanResponse(s.ai.Generate(ctx, getSummaryPrompt(it)))
}

// ApplyEdit merges edit into the stored itinerary and persists the new days with a bumped revision.
func (s *ServiceImpl) ApplyEdit(ctx context.Context, ownerID, itineraryID string, edit locitypes.Edit) (*locitypes.Itinerary, error) {
	ctx, span := otel.Tracer("SuggestionService").Start(ctx, "ApplyEdit", trace.WithAttributes(
		attribute.String("itinerary.id", itineraryID),
		attribute.String("edit.action", string(edit.Action)),
		attribute.Int("edit.day", edit.Day),
	))
	defer span.End()
	l := s.logger.With(slog.String("method", "ApplyEdit"), slog.String("itinerary_id", itineraryID))

	if !knownAction(edit.Action) {
		span.SetStatus(codes.Error, "unknown action")
		return nil, fmt.Errorf("%w: unknown edit action %q", locitypes.ErrBadRequest, edit.Action)
	}

	current, err := s.store.Get(ctx, ownerID, itineraryID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load failed")
		if errors.Is(err, locitypes.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to load itinerary: %w", err)
	}

	merged := Apply(*current, edit)
	merged.Revision = current.Revision + 1

	if err := s.store.Update(ctx, ownerID, itineraryID, locitypes.ItineraryPatch{
		Days:     merged.Days,
		Revision: merged.Revision,
	}); err != nil {
		l.ErrorContext(ctx, "Failed to persist edit", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
		return nil, fmt.Errorf("%w: %w", locitypes.ErrPersistence, err)
	}

	l.InfoContext(ctx, "Edit applied",
		slog.String("action", string(edit.Action)),
		slog.Int("day", edit.Day),
		slog.Int64("revision", merged.Revision))
	span.SetStatus(codes.Ok, "")
	return &merged, nil
}

func knownAction(a locitypes.EditAction) bool {
	switch a {
	case locitypes.EditAdd, locitypes.EditReplace, locitypes.EditRemove:
		return true
	}
	return false
}

// parseEdit reads an edit out of a model reply. Entries without a title are skipped;
// an edit without a known action, a positive day or any item is rejected.
func parseEdit(obj map[string]any) (*locitypes.Edit, bool) {
	action, _ := obj["action"].(string)
	edit := locitypes.Edit{Action: locitypes.EditAction(strings.ToLower(strings.TrimSpace(action)))}
	if !knownAction(edit.Action) {
		return nil, false
	}

	day, ok := number(obj["day"])
	if !ok || day < 1 || day != float64(int(day)) {
		return nil, false
	}
	edit.Day = int(day)

	rawItems, _ := obj["items"].([]any)
	for _, ri := range rawItems {
		im, ok := ri.(map[string]any)
		if !ok {
			continue
		}
		title, _ := im["title"].(string)
		if strings.TrimSpace(title) == "" {
			continue
		}
		act := locitypes.Activity{
			Title:    strings.TrimSpace(title),
			Time:     str(im["time"]),
			Category: str(im["category"]),
			BestTime: str(im["bestTime"]),
		}
		if score, ok := number(im["score"]); ok {
			act.Score = llm.ClampScore(score)
		}
		edit.Items = append(edit.Items, act)
	}
	if len(edit.Items) == 0 {
		return nil, false
	}
	return &edit, true
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}

func str(v any) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}
