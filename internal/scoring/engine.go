package scoring

import (
	"github.com/stickerpress/curator/internal/models"
)

// Result is the derived classification state for one record. Reclassify is
// pure: equal inputs always produce equal Results.
type Result struct {
	Subtags        []string
	DominantTheme  string
	CohesionScore  int
	Ambiguous      bool
	AffinityWeight float64
}

// Reclassify derives themes and scores from a record's label-like fields.
// Pipeline: gather labels, normalize into a weighted multiset, fold through
// the dictionary, bucket by theme, then score cohesion and conflicts.
func Reclassify(rec *models.ClassificationRecord) Result {
	if rec == nil {
		return Result{DominantTheme: ThemeOther}
	}
	return Score(gatherLabels(rec))
}

// Score runs the engine over raw labels directly.
func Score(labels []string) Result {
	folded := FoldWeights(NormalizeTokens(labels))
	ts := scoreThemes(folded)
	if ts.total == 0 {
		return Result{DominantTheme: ThemeOther}
	}

	score := ts.cohesion - ts.penalty
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	return Result{
		Subtags:        subtagsFor(ts),
		DominantTheme:  ts.dominant,
		CohesionScore:  score,
		Ambiguous:      ts.ambiguous,
		AffinityWeight: clamp01(float64(score) / 100),
	}
}

// gatherLabels collects every label-like field of a record.
func gatherLabels(rec *models.ClassificationRecord) []string {
	var labels []string
	if rec.Category != "" {
		labels = append(labels, rec.Category)
	}
	labels = append(labels, rec.SubtagList()...)
	labels = append(labels, rec.StyleTraitList()...)
	labels = append(labels, rec.EmotionList()...)
	labels = append(labels, rec.PackSuggestionList()...)
	labels = append(labels, rec.TopLabelList()...)
	return labels
}

// subtagsFor selects the dominant bucket's tokens; when the dominant bucket
// is "other" it falls back to every mapped token so nothing is lost.
func subtagsFor(ts themeScore) []string {
	tokens := ts.tokens[ts.dominant]
	if ts.dominant == ThemeOther || len(tokens) == 0 {
		all := make([]string, len(ts.ordered))
		copy(all, ts.ordered)
		return all
	}
	out := make([]string, len(tokens))
	copy(out, tokens)
	return out
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
