package normalize

import "testing"

func TestNormalizeBasic(t *testing.T) {
	r := Normalize("Block & Crown", "Lonely Heart (Extended Mix)")
	if r.PrimaryArtist != "Block" {
		t.Errorf("primary artist = %q, want %q", r.PrimaryArtist, "Block")
	}
	if r.NormalizedTitle != "lonely heart" {
		t.Errorf("normalized title = %q, want %q", r.NormalizedTitle, "lonely heart")
	}
	if !r.IsRemixOrEdit {
		t.Error("expected IsRemixOrEdit = true for an extended mix title")
	}
}

func TestNormalizeFeaturedArtistReattribution(t *testing.T) {
	r := Normalize("Block & Crown", "Lonely Heart feat. Daniela Andrade")
	if r.NormalizedTitle != "lonely heart" {
		t.Errorf("normalized title = %q, want the feat. marker stripped", r.NormalizedTitle)
	}
	if !contains(r.NormalizedArtists, "daniela andrade") {
		t.Errorf("normalized artists = %q, want featured artist folded in", r.NormalizedArtists)
	}
}

func TestNormalizeAccentStripping(t *testing.T) {
	r := Normalize("Mötley Crüe", "Dr. Feelgood")
	if r.NormalizedArtists != "motley crue" {
		t.Errorf("normalized artists = %q, want %q", r.NormalizedArtists, "motley crue")
	}
}

func TestNormalizeSeparators(t *testing.T) {
	cases := []string{
		"Block & Crown",
		"Block x Crown",
		"Block × Crown",
		"Block + Crown",
		"Block and Crown",
		"Block with Crown",
	}
	for _, in := range cases {
		r := Normalize(in, "Title")
		if r.NormalizedArtists != "block & crown" {
			t.Errorf("Normalize(%q) artists = %q, want %q", in, r.NormalizedArtists, "block & crown")
		}
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	first := Normalize("Block & Crown", "Lonely Heart (Extended Mix)")
	second := Normalize(first.CleanArtists, first.CleanTitle)
	if first.NormalizedArtists != second.NormalizedArtists {
		t.Errorf("not idempotent on artists: %q vs %q", first.NormalizedArtists, second.NormalizedArtists)
	}
	if first.NormalizedTitle != second.NormalizedTitle {
		t.Errorf("not idempotent on title: %q vs %q", first.NormalizedTitle, second.NormalizedTitle)
	}
}

func TestDurationsCloseMS(t *testing.T) {
	a := int64(180000)
	b := int64(181500)
	if !DurationsCloseMS(&a, &b, 2000) {
		t.Error("expected durations within 2000ms tolerance to be close")
	}
	c := int64(184000)
	if DurationsCloseMS(&a, &c, 2000) {
		t.Error("expected durations outside tolerance to not be close")
	}
	if DurationsCloseMS(nil, &b, 2000) {
		t.Error("expected nil duration to never be close")
	}
}

func TestDurationDeltaSec(t *testing.T) {
	a := int64(180000)
	b := int64(183000)
	delta, ok := DurationDeltaSec(&a, &b)
	if !ok || delta != 3.0 {
		t.Errorf("delta = %v, ok = %v, want 3.0, true", delta, ok)
	}
	if _, ok := DurationDeltaSec(nil, &b); ok {
		t.Error("expected ok = false when a duration is nil")
	}
}

func TestTokens(t *testing.T) {
	got := Tokens("lonely heart & friends")
	want := []string{"lonely", "heart", "&", "friends"}
	if len(got) != len(want) {
		t.Fatalf("Tokens = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Tokens[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func contains(haystack, needle string) bool {
	return len(haystack) >= len(needle) && indexOf(haystack, needle) >= 0
}

func indexOf(haystack, needle string) int {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return i
		}
	}
	return -1
}
