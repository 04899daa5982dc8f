package scoring

import (
	"sort"
	"strings"
)

// defaultDictionary maps normalized tokens to canonical phrases. Folding
// merges classifier vocabulary drift ("cute", "adorable", "scary") onto the
// canonical theme words the rest of the platform keys on.
var defaultDictionary = map[string]string{
	"cute_anime_girl":    "kawaii_anime_girl",
	"cute_anime":         "kawaii_anime",
	"cute":               "kawaii",
	"adorable":           "kawaii",
	"pastel_aesthetic":   "kawaii_pastel",
	"japanese_animation": "anime",
	"manga_panel":        "manga",
	"cartoon_girl":       "anime_girl",
	"chibi_character":    "chibi",
	"funny_meme":         "meme",
	"dank_meme":          "meme",
	"shitpost":           "meme_shitpost",
	"troll_face":         "meme_troll",
	"scary":              "horror",
	"spooky":             "horror",
	"creepy":             "horror_creepy",
	"gothic_aesthetic":   "horror_gothic",
	"dark_aesthetic":     "horror_dark",
	"reaction_face":      "reaction",
	"facial_expression":  "reaction_expression",
	"mood_face":          "reaction_mood",
}

// foldOrder lists dictionary sources longest first (ties broken
// alphabetically) so substring folding is deterministic and the most
// specific phrase wins.
var foldOrder = func() []string {
	sources := make([]string, 0, len(defaultDictionary))
	for src := range defaultDictionary {
		sources = append(sources, src)
	}
	sort.Slice(sources, func(i, j int) bool {
		if len(sources[i]) != len(sources[j]) {
			return len(sources[i]) > len(sources[j])
		}
		return sources[i] < sources[j]
	})
	return sources
}()

// canonicalTargets is the set of dictionary values. Canonical phrases are
// fixpoints of FoldToken, which keeps folding idempotent when engine output
// is fed back through the engine on a later cycle.
var canonicalTargets = func() map[string]struct{} {
	targets := make(map[string]struct{}, len(defaultDictionary))
	for _, target := range defaultDictionary {
		targets[target] = struct{}{}
	}
	return targets
}()

// FoldToken maps one normalized token onto its canonical phrase. Exact
// matches win; otherwise the longest dictionary source that appears inside
// the token (or that the token appears inside) applies. Canonical phrases
// and unmapped tokens pass through unchanged.
func FoldToken(token string) string {
	if _, ok := canonicalTargets[token]; ok {
		return token
	}
	if target, ok := defaultDictionary[token]; ok {
		return target
	}
	for _, src := range foldOrder {
		if strings.Contains(token, src) || strings.Contains(src, token) {
			return defaultDictionary[src]
		}
	}
	return token
}

// FoldWeights applies FoldToken across a weighted multiset, merging the
// weights of tokens that collapse onto the same target.
func FoldWeights(weights map[string]int) map[string]int {
	folded := make(map[string]int, len(weights))
	for token, weight := range weights {
		folded[FoldToken(token)] += weight
	}
	return folded
}
