// Package scoring implements the deterministic reclassification engine:
// token normalization, dictionary folding, theme bucketing, and the
// cohesion/conflict score derived from upstream classifier output.
package scoring

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// minTokenLen is the shortest token the normalizer accepts.
const minTokenLen = 3

// stopwords are tokens and token words that carry no semantic signal.
// A candidate is rejected when the whole token, or any of its words of at
// least minTokenLen characters, appears here.
var stopwords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "with": {}, "from": {},
	"this": {}, "that": {}, "are": {}, "was": {}, "has": {},
	"image": {}, "img": {}, "pic": {}, "picture": {}, "photo": {},
	"file": {}, "misc": {}, "general": {}, "random": {}, "stuff": {},
	"thing": {}, "things": {}, "item": {}, "items": {}, "content": {},
	"sticker": {}, "stickers": {}, "pack": {}, "packs": {},
	"new": {}, "all": {}, "you": {}, "your": {}, "very": {},
}

var diacriticStripper = transform.Chain(
	norm.NFD,
	runes.Remove(runes.In(unicode.Mn)),
	norm.NFC,
)

// Slugify converts a raw label into its normalized token form: lowercase,
// diacritics stripped, runs of non-alphanumerics collapsed into single
// underscores, leading/trailing underscores trimmed.
func Slugify(raw string) string {
	lowered := strings.ToLower(strings.TrimSpace(raw))
	if folded, _, err := transform.String(diacriticStripper, lowered); err == nil {
		lowered = folded
	}

	var b strings.Builder
	b.Grow(len(lowered))
	lastUnderscore := true // trims a leading separator run
	for _, r := range lowered {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			lastUnderscore = false
			continue
		}
		if !lastUnderscore {
			b.WriteByte('_')
			lastUnderscore = true
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}

// acceptable reports whether a slugified token survives the stopword and
// length filters.
func acceptable(token string) bool {
	if len(token) < minTokenLen {
		return false
	}
	if _, bad := stopwords[token]; bad {
		return false
	}
	for _, word := range strings.Split(token, "_") {
		if len(word) < minTokenLen {
			continue
		}
		if _, bad := stopwords[word]; bad {
			return false
		}
	}
	return true
}

// NormalizeTokens slugifies and filters candidate labels, aggregating the
// survivors into a weighted multiset. Weight is occurrence count, so the
// same label appearing in several source fields sums.
func NormalizeTokens(labels []string) map[string]int {
	weights := make(map[string]int)
	for _, raw := range labels {
		token := Slugify(raw)
		if !acceptable(token) {
			continue
		}
		weights[token]++
	}
	return weights
}
