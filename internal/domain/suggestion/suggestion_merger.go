package suggestion

import (
	"github.com/samber/lo"

	"github.com/FACorreiaa/loci-trip-planner/internal/types"
)

// Apply returns a copy of it with edit merged into the day whose number equals
// edit.Day. An unknown day leaves the copy unchanged; no day is ever created here.
//
// Remove matches by exact title, so duplicate titles in one day go together.
func Apply(it locitypes.Itinerary, edit locitypes.Edit) locitypes.Itinerary {
	out := it.Clone()

	idx := out.FindDay(edit.Day)
	if idx == -1 {
		return out
	}
	day := &out.Days[idx]
	items := cloneItems(edit.Items)

	switch edit.Action {
	case locitypes.EditAdd:
		day.Items = append(day.Items, items...)
	case locitypes.EditReplace:
		day.Items = items
	case locitypes.EditRemove:
		titles := lo.SliceToMap(edit.Items, func(a locitypes.Activity) (string, struct{}) {
			return a.Title, struct{}{}
		})
		day.Items = lo.Reject(day.Items, func(a locitypes.Activity, _ int) bool {
			_, hit := titles[a.Title]
			return hit
		})
	}
	return out
}

func cloneItems(in []locitypes.Activity) []locitypes.Activity {
	// Clone deep-copies the coordinate pointers for us.
	tmp := locitypes.Itinerary{Days: []locitypes.Day{{Items: in}}}.Clone()
	if tmp.Days[0].Items == nil {
		return []locitypes.Activity{}
	}
	return tmp.Days[0].Items
}
