package llm

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/FACorreiaa/loci-trip-planner/internal/types"
)

// ErrSchema marks a model reply that parsed as JSON but is not a usable itinerary.
var ErrSchema = errors.New("itinerary schema violation")

func schemaErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrSchema, fmt.Sprintf(format, args...))
}

// ValidateItineraryBody checks the structure of a generated itinerary and normalizes it.
// Days outside 1..requestedDays are dropped; what remains must cover exactly requestedDays
// distinct days, each with at least one titled activity. Scores are clamped to [0,100].
func ValidateItineraryBody(obj map[string]any, requestedDays int) (locitypes.ItineraryBody, error) {
	var body locitypes.ItineraryBody

	rawDays, ok := obj["days"].([]any)
	if !ok {
		return body, schemaErr("days must be an array")
	}
	if len(rawDays) == 0 {
		return body, schemaErr("days is empty")
	}

	seen := make(map[int]bool, len(rawDays))
	for i, rd := range rawDays {
		dm, ok := rd.(map[string]any)
		if !ok {
			return body, schemaErr("days[%d] must be an object", i)
		}
		num, ok := integer(dm["day"])
		if !ok || num < 1 {
			return body, schemaErr("days[%d].day must be a positive integer", i)
		}
		if requestedDays > 0 && num > requestedDays {
			continue
		}
		if seen[num] {
			return body, schemaErr("day %d appears more than once", num)
		}
		seen[num] = true

		items, err := validateItems(dm["items"], i)
		if err != nil {
			return body, err
		}
		body.Days = append(body.Days, locitypes.Day{Day: num, Items: items})
	}

	if requestedDays > 0 && len(body.Days) != requestedDays {
		return body, schemaErr("expected %d days, got %d", requestedDays, len(body.Days))
	}
	slices.SortFunc(body.Days, func(a, b locitypes.Day) int { return a.Day - b.Day })

	body.Title = optionalString(obj["title"])
	body.Destination = optionalString(obj["destination"])
	if cost, ok := obj["costEstimate"].(float64); ok && cost > 0 {
		body.CostEstimate = math.Round(cost)
	}
	if loc, ok := obj["location"].(map[string]any); ok {
		lat, latOK := loc["lat"].(float64)
		lng, lngOK := loc["lng"].(float64)
		if latOK && lngOK {
			body.Location = &locitypes.Location{Name: optionalString(loc["name"]), Lat: lat, Lng: lng}
		}
	}
	return body, nil
}

func validateItems(v any, dayIdx int) ([]locitypes.Activity, error) {
	rawItems, ok := v.([]any)
	if !ok {
		return nil, schemaErr("days[%d].items must be an array", dayIdx)
	}
	if len(rawItems) == 0 {
		return nil, schemaErr("days[%d].items is empty", dayIdx)
	}

	items := make([]locitypes.Activity, 0, len(rawItems))
	for j, ri := range rawItems {
		im, ok := ri.(map[string]any)
		if !ok {
			return nil, schemaErr("days[%d].items[%d] must be an object", dayIdx, j)
		}
		title, ok := im["title"].(string)
		if !ok || strings.TrimSpace(title) == "" {
			return nil, schemaErr("days[%d].items[%d].title is required", dayIdx, j)
		}

		act := locitypes.Activity{Title: strings.TrimSpace(title)}
		for field, dst := range map[string]*string{"time": &act.Time, "category": &act.Category, "bestTime": &act.BestTime} {
			if raw, present := im[field]; present && raw != nil {
				s, ok := raw.(string)
				if !ok {
					return nil, schemaErr("days[%d].items[%d].%s must be a string", dayIdx, j, field)
				}
				*dst = s
			}
		}
		if raw, present := im["score"]; present && raw != nil {
			score, ok := raw.(float64)
			if !ok {
				return nil, schemaErr("days[%d].items[%d].score must be a number", dayIdx, j)
			}
			act.Score = ClampScore(score)
		}
		if lat, ok := im["lat"].(float64); ok {
			act.Lat = &lat
		}
		if lng, ok := im["lng"].(float64); ok {
			act.Lng = &lng
		}
		items = append(items, act)
	}
	return items, nil
}

// ClampScore rounds a score into the 0..100 range.
func ClampScore(score float64) int {
	if math.IsNaN(score) {
		return 0
	}
	return int(math.Round(math.Max(0, math.Min(100, score))))
}

func integer(v any) (int, bool) {
	f, ok := v.(float64)
	if !ok || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}

func optionalString(v any) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}
