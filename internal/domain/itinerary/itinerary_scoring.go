package itinerary

import (
	"sort"
	"strings"

	a "github.com/petar-dambovaliev/aho-corasick"
	"github.com/samber/lo"

	"github.com/FACorreiaa/loci-trip-planner/internal/types"
)

const (
	promptPlacesPerCategory = 10
	minPlaceScore           = 50
	maxPlaceScore           = 99
	unratedPlaceScore       = 60
	keywordBonus            = 8
)

// themeKeywords expands common persona and interest words into place vocabulary.
var themeKeywords = map[string][]string{
	"heritage":  {"fort", "palace", "temple", "museum", "monument", "historic", "heritage", "castle", "church", "mosque"},
	"history":   {"fort", "palace", "museum", "monument", "historic", "memorial", "castle", "ruins"},
	"culture":   {"museum", "gallery", "theatre", "temple", "cultural", "market"},
	"food":      {"restaurant", "cafe", "bakery", "market", "street food", "bistro", "dhaba"},
	"foodie":    {"restaurant", "cafe", "bakery", "market", "street food", "bistro"},
	"nature":    {"park", "garden", "lake", "hill", "viewpoint", "trail", "beach", "zoo"},
	"adventure": {"trail", "hill", "fort", "viewpoint", "safari", "climbing", "lake"},
	"art":       {"gallery", "museum", "art", "theatre", "studio"},
	"family":    {"zoo", "park", "aquarium", "museum", "garden"},
	"nightlife": {"bar", "pub", "club", "lounge", "rooftop"},
	"shopping":  {"market", "bazaar", "mall", "shop", "boutique"},
	"luxury":    {"palace", "resort", "spa", "rooftop", "fine dining"},
	"budget":    {"hostel", "street food", "market", "dhaba"},
	"spiritual": {"temple", "mosque", "church", "monastery", "shrine", "gurudwara"},
}

// placeRanker scores places against the traveller's persona and interests.
type placeRanker struct {
	matcher  *a.AhoCorasick
	keywords []string
}

func newPlaceRanker(persona string, interests []string) placeRanker {
	words := lo.FlatMap(append([]string{persona}, interests...), func(s string, _ int) []string {
		return strings.Fields(strings.ToLower(s))
	})
	keywords := lo.Uniq(lo.FlatMap(words, func(w string, _ int) []string {
		w = strings.Trim(w, ".,;:!?'\"()")
		out := append([]string(nil), themeKeywords[w]...)
		if len(w) >= 4 {
			out = append(out, w)
		}
		// "lover", "enthusiast" and friends carry no place meaning
		return lo.Without(out, "lover", "lovers", "enthusiast", "seeker", "traveller", "traveler")
	}))
	if len(keywords) == 0 {
		return placeRanker{}
	}

	builder := a.NewAhoCorasickBuilder(a.Opts{
		AsciiCaseInsensitive: true,
		MatchOnlyWholeWords:  true,
	})
	matcher := builder.Build(keywords)
	return placeRanker{matcher: &matcher, keywords: keywords}
}

// Score rates a place in 50..99 from its rating and keyword hits.
func (r placeRanker) Score(p locitypes.Place) int {
	score := unratedPlaceScore
	if p.Rating != nil {
		score = int(*p.Rating * 20)
	}
	if r.matcher != nil {
		text := strings.ReplaceAll(p.Name+" "+strings.Join(p.Types, " "), "_", " ")
		hits := map[string]struct{}{}
		for _, m := range r.matcher.FindAll(text) {
			hits[strings.ToLower(text[m.Start():m.End()])] = struct{}{}
		}
		score += keywordBonus * len(hits)
	}
	return max(minPlaceScore, min(maxPlaceScore, score))
}

type rankedPlace struct {
	locitypes.Place
	Score int
}

// Rank orders places by score, best first, keeping provider order among ties.
func (r placeRanker) Rank(places []locitypes.Place) []rankedPlace {
	ranked := lo.Map(places, func(p locitypes.Place, _ int) rankedPlace {
		return rankedPlace{Place: p, Score: r.Score(p)}
	})
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })
	return ranked
}

// Top returns at most n of the best ranked places.
func (r placeRanker) Top(places []locitypes.Place, n int) []rankedPlace {
	ranked := r.Rank(places)
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}
