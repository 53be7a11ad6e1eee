package itinerary

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/loci-trip-planner/internal/types"
)

func TestPlaceRanker_PersonaKeywords(t *testing.T) {
	r := newPlaceRanker("Heritage Lover", nil)
	pizza := locitypes.Place{Name: "Pizza Corner", Rating: rating(4.0)}
	fort := locitypes.Place{Name: "Nahargarh Fort", Rating: rating(4.0)}

	ranked := r.Rank([]locitypes.Place{pizza, fort})
	require.Len(t, ranked, 2)
	assert.Equal(t, "Nahargarh Fort", ranked[0].Name)
	assert.Greater(t, ranked[0].Score, ranked[1].Score)
}

func TestPlaceRanker_ScoreBounds(t *testing.T) {
	r := newPlaceRanker("", nil)
	assert.Equal(t, unratedPlaceScore, r.Score(locitypes.Place{Name: "Unknown"}))
	assert.Equal(t, minPlaceScore, r.Score(locitypes.Place{Name: "Poor", Rating: rating(1.0)}))

	rich := newPlaceRanker("museum art history", []string{"palace", "fort"})
	score := rich.Score(locitypes.Place{Name: "Palace Fort Museum of Art", Rating: rating(5.0), Types: []string{"historic_site"}})
	assert.Equal(t, maxPlaceScore, score)
}

func TestPlaceRanker_TypesCountOnce(t *testing.T) {
	r := newPlaceRanker("", []string{"museum"})
	once := r.Score(locitypes.Place{Name: "City Museum", Types: []string{"museum"}})
	assert.Equal(t, unratedPlaceScore+keywordBonus, once)
}

func TestPlaceRanker_StableTies(t *testing.T) {
	r := newPlaceRanker("", nil)
	ranked := r.Rank([]locitypes.Place{{Name: "A"}, {Name: "B"}, {Name: "C"}})
	assert.Equal(t, "A", ranked[0].Name)
	assert.Equal(t, "C", ranked[2].Name)
}

func TestItineraryPrompt(t *testing.T) {
	monuments := make([]locitypes.Place, 0, 15)
	for i := range 15 {
		monuments = append(monuments, locitypes.Place{Name: fmt.Sprintf("Monument %02d", i)})
	}
	req := locitypes.TripRequest{Destination: "Jaipur", Days: 2, Budget: 12000}
	pc := newPromptContext(req, *jaipur, locitypes.Nearby{Monuments: monuments}, locitypes.WeatherSummary{Poor: true})

	assert.Len(t, pc.Nearby.Monuments, promptPlacesPerCategory)
	prompt := getItineraryPrompt(pc)
	assert.Contains(t, prompt, "Produce exactly 2 days, numbered 1 to 2.")
	assert.Contains(t, prompt, "a general traveller")
	assert.Contains(t, prompt, "budget of 12000")
	assert.Contains(t, prompt, `"poor": true`)
	assert.False(t, strings.Contains(prompt, "Monument 14"))
}

func TestNormalizeAndValidate(t *testing.T) {
	req := NormalizeRequest(locitypes.TripRequest{
		Destination: "  New   Delhi ",
		Days:        3,
		Persona:     " Foodie ",
		Interests:   []string{" food ", "", "  "},
	})
	assert.Equal(t, "New Delhi", req.Destination)
	assert.Equal(t, "Foodie", req.Persona)
	assert.Equal(t, []string{"food"}, req.Interests)
	assert.NoError(t, ValidateRequest(req))

	err := ValidateRequest(locitypes.TripRequest{Destination: "X", Days: 0})
	var inputErr *locitypes.InputError
	require.ErrorAs(t, err, &inputErr)
	assert.Equal(t, "must be at least 2 characters", inputErr.Fields["destination"])
	assert.Equal(t, "must be at least 1", inputErr.Fields["days"])
}
