package scoring

import (
	"math"
	"sort"
	"strings"
)

// ThemeOther collects tokens that fit no semantic bucket.
const ThemeOther = "other"

// conflictPenalty is the fixed cohesion deduction applied per opposite
// theme pair present in the same record.
const conflictPenalty = 20

// ambiguityMarginPct: when the top two buckets' weight shares differ by
// less than this many percentage points, the record is ambiguous.
const ambiguityMarginPct = 15

// themeNames is the bucket order used for every deterministic scan.
var themeNames = []string{"anime", "horror", "kawaii", "meme", "reaction"}

var themeKeywords = map[string][]string{
	"anime":    {"anime", "manga", "chibi", "waifu", "otaku"},
	"horror":   {"horror", "creepy", "gothic", "spooky", "demon", "ghost", "zombie", "gore"},
	"kawaii":   {"kawaii", "pastel", "adorable"},
	"meme":     {"meme", "shitpost", "troll", "dank"},
	"reaction": {"reaction", "expression", "mood", "feels"},
}

// oppositeThemes are theme pairs that should not co-dominate one record.
var oppositeThemes = [][2]string{
	{"kawaii", "horror"},
}

// ThemeOf classifies one folded token into a theme bucket: exact or prefix
// keyword match first, then suffix heuristics (e.g. "_reaction",
// "_expression" land in reaction).
func ThemeOf(token string) string {
	for _, name := range themeNames {
		for _, kw := range themeKeywords[name] {
			if token == kw || strings.HasPrefix(token, kw+"_") {
				return name
			}
		}
	}
	for _, name := range themeNames {
		for _, kw := range themeKeywords[name] {
			if strings.HasSuffix(token, "_"+kw) {
				return name
			}
		}
	}
	return ThemeOther
}

// themeScore is the outcome of bucketing one record's folded token weights.
type themeScore struct {
	buckets   map[string]int      // theme -> summed weight
	tokens    map[string][]string // theme -> tokens, sorted weight desc then name
	ordered   []string            // all tokens, sorted weight desc then name
	total     int
	dominant  string
	cohesion  int  // round(dominant/total * 100) before penalties
	penalty   int  // summed opposite-pair penalties
	ambiguous bool // margin or conflict
}

// scoreThemes buckets folded token weights and computes the dominant theme,
// cohesion, and conflict state.
func scoreThemes(folded map[string]int) themeScore {
	ts := themeScore{
		buckets: make(map[string]int),
		tokens:  make(map[string][]string),
	}

	ts.ordered = sortedTokens(folded)
	for _, token := range ts.ordered {
		theme := ThemeOf(token)
		ts.buckets[theme] += folded[token]
		ts.tokens[theme] = append(ts.tokens[theme], token)
		ts.total += folded[token]
	}
	if ts.total == 0 {
		ts.dominant = ThemeOther
		return ts
	}

	// Winner is the max-weight bucket; ties resolve to the
	// lexicographically smallest name.
	for _, name := range bucketNames(ts.buckets) {
		if ts.dominant == "" || ts.buckets[name] > ts.buckets[ts.dominant] {
			ts.dominant = name
		}
	}
	ts.cohesion = int(math.Round(float64(ts.buckets[ts.dominant]) / float64(ts.total) * 100))

	// Margin ambiguity: top two buckets within ambiguityMarginPct of each
	// other, measured in percentage-point shares.
	if first, second, ok := topTwo(ts.buckets); ok {
		firstShare := float64(first) / float64(ts.total) * 100
		secondShare := float64(second) / float64(ts.total) * 100
		if firstShare-secondShare < ambiguityMarginPct {
			ts.ambiguous = true
		}
	}

	// Opposite-theme conflicts force ambiguity and carry a fixed penalty.
	for _, pair := range oppositeThemes {
		if ts.buckets[pair[0]] > 0 && ts.buckets[pair[1]] > 0 {
			ts.penalty += conflictPenalty
			ts.ambiguous = true
		}
	}

	return ts
}

// sortedTokens orders a weighted multiset by weight desc, then token asc.
func sortedTokens(weights map[string]int) []string {
	tokens := make([]string, 0, len(weights))
	for token := range weights {
		tokens = append(tokens, token)
	}
	sort.Slice(tokens, func(i, j int) bool {
		if weights[tokens[i]] != weights[tokens[j]] {
			return weights[tokens[i]] > weights[tokens[j]]
		}
		return tokens[i] < tokens[j]
	})
	return tokens
}

// bucketNames returns bucket names in ascending order.
func bucketNames(buckets map[string]int) []string {
	names := make([]string, 0, len(buckets))
	for name := range buckets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// topTwo returns the two largest bucket weights.
func topTwo(buckets map[string]int) (first, second int, ok bool) {
	if len(buckets) < 2 {
		return 0, 0, false
	}
	weights := make([]int, 0, len(buckets))
	for _, w := range buckets {
		weights = append(weights, w)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(weights)))
	return weights[0], weights[1], true
}
