package suggestion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/loci-trip-planner/internal/types"
)

func act(title string) locitypes.Activity {
	return locitypes.Activity{Time: "Morning", Title: title, Category: "Sightseeing", BestTime: "Morning", Score: 80}
}

func titles(items []locitypes.Activity) []string {
	out := make([]string, len(items))
	for i, a := range items {
		out[i] = a.Title
	}
	return out
}

func twoDayTrip() locitypes.Itinerary {
	lat := 26.92
	first := act("Museum")
	first.Lat = &lat
	return locitypes.Itinerary{
		ID:    "it-1",
		Title: "Jaipur Trip",
		Days: []locitypes.Day{
			{Day: 1, Items: []locitypes.Activity{act("Fort")}},
			{Day: 2, Items: []locitypes.Activity{first, act("Cafe")}},
		},
	}
}

func TestApply_RemoveByTitle(t *testing.T) {
	it := twoDayTrip()
	out := Apply(it, locitypes.Edit{Action: locitypes.EditRemove, Day: 2, Items: []locitypes.Activity{{Title: "Museum"}}})

	assert.Equal(t, []string{"Cafe"}, titles(out.Days[1].Items))
	assert.Equal(t, []string{"Fort"}, titles(out.Days[0].Items))
	assert.Equal(t, []string{"Museum", "Cafe"}, titles(it.Days[1].Items), "input must not be mutated")
}

func TestApply_RemoveTakesDuplicateTitles(t *testing.T) {
	it := twoDayTrip()
	it.Days[1].Items = append(it.Days[1].Items, act("Museum"))

	out := Apply(it, locitypes.Edit{Action: locitypes.EditRemove, Day: 2, Items: []locitypes.Activity{{Title: "Museum"}}})
	assert.Equal(t, []string{"Cafe"}, titles(out.Days[1].Items))
}

func TestApply_Add(t *testing.T) {
	it := twoDayTrip()
	edit := locitypes.Edit{Action: locitypes.EditAdd, Day: 1, Items: []locitypes.Activity{act("Bazaar"), act("Stepwell")}}

	once := Apply(it, edit)
	assert.Equal(t, []string{"Fort", "Bazaar", "Stepwell"}, titles(once.Days[0].Items))

	twice := Apply(once, edit)
	assert.Len(t, twice.Days[0].Items, 5, "add is not idempotent")
	assert.Len(t, it.Days[0].Items, 1)
}

func TestApply_ReplaceIsIdempotent(t *testing.T) {
	it := twoDayTrip()
	edit := locitypes.Edit{Action: locitypes.EditReplace, Day: 2, Items: []locitypes.Activity{act("Palace")}}

	once := Apply(it, edit)
	twice := Apply(once, edit)
	assert.Equal(t, once, twice)
	assert.Equal(t, []string{"Palace"}, titles(once.Days[1].Items))
}

func TestApply_MissingDayIsNoop(t *testing.T) {
	it := twoDayTrip()
	for _, action := range []locitypes.EditAction{locitypes.EditAdd, locitypes.EditReplace, locitypes.EditRemove} {
		out := Apply(it, locitypes.Edit{Action: action, Day: 7, Items: []locitypes.Activity{act("Fort")}})
		assert.Equal(t, it, out, "action %s", action)
		assert.Len(t, out.Days, 2)
	}
}

func TestApply_LooksUpDayByNumber(t *testing.T) {
	it := locitypes.Itinerary{Days: []locitypes.Day{
		{Day: 3, Items: []locitypes.Activity{act("A")}},
		{Day: 1, Items: []locitypes.Activity{act("B")}},
	}}

	out := Apply(it, locitypes.Edit{Action: locitypes.EditAdd, Day: 1, Items: []locitypes.Activity{act("C")}})
	assert.Equal(t, []string{"B", "C"}, titles(out.Days[1].Items))
	assert.Equal(t, []string{"A"}, titles(out.Days[0].Items))
}

func TestApply_DoesNotAliasEditItems(t *testing.T) {
	it := twoDayTrip()
	items := []locitypes.Activity{act("Palace")}

	out := Apply(it, locitypes.Edit{Action: locitypes.EditReplace, Day: 1, Items: items})
	items[0].Title = "changed"
	require.Len(t, out.Days[0].Items, 1)
	assert.Equal(t, "Palace", out.Days[0].Items[0].Title)

	// coordinate pointers are copied too
	*out.Days[1].Items[0].Lat = 0
	assert.InDelta(t, 26.92, *it.Days[1].Items[0].Lat, 1e-9)
}
