package scoring

import (
	"reflect"
	"testing"
)

func TestSlugify(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{"Cute Anime Girl!", "cute_anime_girl"},
		{"  --Héllo,  Wörld__ ", "hello_world"},
		{"ANIME", "anime"},
		{"café racer", "cafe_racer"},
		{"???", ""},
		{"", ""},
		{"a--b__c", "a_b_c"},
	}
	for _, c := range cases {
		if got := Slugify(c.raw); got != c.want {
			t.Errorf("Slugify(%q) = %q, want %q", c.raw, got, c.want)
		}
	}
}

func TestAcceptableRejectsStopwords(t *testing.T) {
	rejected := []string{"the", "image", "random_image", "sticker_pack", "ab"}
	for _, token := range rejected {
		if acceptable(token) {
			t.Errorf("acceptable(%q) = true, want false", token)
		}
	}

	accepted := []string{"anime", "kawaii_anime_girl", "horror"}
	for _, token := range accepted {
		if !acceptable(token) {
			t.Errorf("acceptable(%q) = false, want true", token)
		}
	}
}

func TestAcceptableIgnoresShortConnectives(t *testing.T) {
	// Words under the minimum length inside a token are not checked against
	// the stopword list even when they match one.
	if !acceptable("girl_of_doom") {
		t.Fatal("acceptable(girl_of_doom) = false, want true")
	}
}

func TestNormalizeTokensSumsOccurrences(t *testing.T) {
	labels := []string{"Cute Anime Girl!", "cute anime girl", "spooky", "Random Image"}
	got := NormalizeTokens(labels)

	want := map[string]int{
		"cute_anime_girl": 2,
		"spooky":          1,
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("NormalizeTokens = %v, want %v", got, want)
	}
}

func TestNormalizeTokensAllFiltered(t *testing.T) {
	got := NormalizeTokens([]string{"Random Image", "the", "!!"})
	if len(got) != 0 {
		t.Fatalf("NormalizeTokens = %v, want empty", got)
	}
}
