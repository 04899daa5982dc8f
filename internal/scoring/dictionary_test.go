package scoring

import (
	"reflect"
	"testing"
)

func TestFoldTokenExact(t *testing.T) {
	cases := map[string]string{
		"cute":            "kawaii",
		"cute_anime_girl": "kawaii_anime_girl",
		"scary":           "horror",
		"dank_meme":       "meme",
	}
	for token, want := range cases {
		if got := FoldToken(token); got != want {
			t.Errorf("FoldToken(%q) = %q, want %q", token, got, want)
		}
	}
}

func TestFoldTokenSubstringPrefersLongestSource(t *testing.T) {
	// The token contains "cute_anime_girl", "cute_anime", and "cute"; the
	// longest source must win.
	if got := FoldToken("very_cute_anime_girl_art"); got != "kawaii_anime_girl" {
		t.Fatalf("FoldToken = %q, want kawaii_anime_girl", got)
	}
}

func TestFoldTokenReverseContainment(t *testing.T) {
	// "spook" is a fragment of the source "spooky".
	if got := FoldToken("spook"); got != "horror" {
		t.Fatalf("FoldToken(spook) = %q, want horror", got)
	}
}

func TestFoldTokenCanonicalFixpoints(t *testing.T) {
	for _, target := range defaultDictionary {
		if got := FoldToken(target); got != target {
			t.Errorf("FoldToken(%q) = %q, want it unchanged", target, got)
		}
	}
}

func TestFoldTokenPassThrough(t *testing.T) {
	if got := FoldToken("dragon"); got != "dragon" {
		t.Fatalf("FoldToken(dragon) = %q, want dragon", got)
	}
}

func TestFoldWeightsMergesTargets(t *testing.T) {
	got := FoldWeights(map[string]int{"cute": 2, "adorable": 1, "dragon": 1})
	want := map[string]int{"kawaii": 3, "dragon": 1}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("FoldWeights = %v, want %v", got, want)
	}
}
