package ranking

import "testing"

func intPtr(n int) *int { return &n }

func TestRankPerfectMatchNoExtended(t *testing.T) {
	e := New(DefaultConfig())
	q := Query{Artists: "Block & Crown", Title: "Lonely Heart", DurationSec: intPtr(240)}
	c := Candidate{ID: "c1", Title: "Block & Crown - Lonely Heart", Channel: "Block & Crown - Topic", DurationSec: intPtr(240)}

	results := e.Rank(q, []Candidate{c})
	got := results[0].Score

	if got.Components["artist"] != 50 {
		t.Errorf("artist = %v, want 50", got.Components["artist"])
	}
	if got.Components["title"] != 100 {
		t.Errorf("title = %v, want 100", got.Components["title"])
	}
	if got.Components["extended"] != 0 {
		t.Errorf("extended = %v, want 0", got.Components["extended"])
	}
	if got.Components["duration"] != 0 {
		t.Errorf("duration = %v, want 0", got.Components["duration"])
	}
	if got.Total != 150 {
		t.Errorf("total = %v, want 150", got.Total)
	}
}

func TestRankWrongArtistDemoted(t *testing.T) {
	e := New(DefaultConfig())
	q := Query{Artists: "Block & Crown", Title: "Lonely Heart", DurationSec: intPtr(240)}
	c := Candidate{ID: "c2", Title: "Other Artist - Lonely Heart", Channel: "Other Artist", DurationSec: intPtr(240)}

	results := e.Rank(q, []Candidate{c})
	got := results[0].Score

	if got.Components["artist"] != -20 {
		t.Errorf("artist = %v, want -20", got.Components["artist"])
	}

	tokenMatches := 0
	for _, d := range got.Details {
		if d.Family == "title" && d.Value == 15 {
			tokenMatches++
		}
	}
	if tokenMatches != 2 {
		t.Errorf("title token matches = %d, want 2", tokenMatches)
	}

	perfect := Candidate{ID: "c1", Title: "Block & Crown - Lonely Heart", Channel: "Block & Crown - Topic", DurationSec: intPtr(240)}
	perfectScore := e.Rank(q, []Candidate{perfect})[0].Score.Total
	if got.Total >= perfectScore {
		t.Errorf("wrong-artist total %v should be below perfect-match total %v", got.Total, perfectScore)
	}
}

func TestRankDurationTooShortLargePenalty(t *testing.T) {
	cfg := DefaultConfig()
	e := New(cfg)
	q := Query{Artists: "Block & Crown", Title: "Lonely Heart", DurationSec: intPtr(240)}
	perfect := Candidate{ID: "c1", Title: "Block & Crown - Lonely Heart", Channel: "Block & Crown - Topic", DurationSec: intPtr(240)}
	short := Candidate{ID: "c3", Title: "Block & Crown - Lonely Heart", Channel: "Block & Crown - Topic", DurationSec: intPtr(120)}

	results := e.Rank(q, []Candidate{perfect, short})

	var shortScore, perfectScore Breakdown
	for _, r := range results {
		if r.ID == "c3" {
			shortScore = r.Score
		}
		if r.ID == "c1" {
			perfectScore = r.Score
		}
	}

	if shortScore.Components["duration"] != cfg.DurationPenaltyTooShort {
		t.Errorf("duration penalty = %v, want %v", shortScore.Components["duration"], cfg.DurationPenaltyTooShort)
	}
	if shortScore.Total >= perfectScore.Total {
		t.Errorf("too-short total %v should be below perfect-match total %v", shortScore.Total, perfectScore.Total)
	}
}

// spec.md §8 marks this scenario with "≈" (approximate); a single-word query
// title ("Love") cannot literally produce the documented "2 tokens" title
// match, so this test checks the properties the scenario is illustrating
// (artist found, breakdown self-consistent) rather than its exact totals.
func TestRankExtendedBonusScenario(t *testing.T) {
	e := New(DefaultConfig())
	q := Query{Artists: "AUSMAX", Title: "Love", DurationSec: intPtr(159)}
	c := Candidate{ID: "c4", Title: "AUSMAX - Love (Extended Mix)", Channel: "FOXsound Official", DurationSec: intPtr(324)}

	results := e.Rank(q, []Candidate{c})
	got := results[0].Score

	if got.Components["artist"] <= 0 {
		t.Errorf("expected a positive artist match, got %v", got.Components["artist"])
	}

	sum := got.Components["artist"] + got.Components["title"] + got.Components["extended"] + got.Components["duration"]
	if sum != got.Total {
		t.Errorf("components sum to %v, want total %v", sum, got.Total)
	}
}

func TestRankBoundaryDurationExactlyMaxRatio(t *testing.T) {
	cfg := DefaultConfig()
	e := New(cfg)
	q := Query{Artists: "A", Title: "T", DurationSec: intPtr(100)}
	atRatio := Candidate{ID: "at", Title: "A - T", Channel: "A", DurationSec: intPtr(int(100 * cfg.DurationMaxRatio))}
	beyondRatio := Candidate{ID: "beyond", Title: "A - T", Channel: "A", DurationSec: intPtr(int(100*cfg.DurationMaxRatio) + 50)}

	results := e.Rank(q, []Candidate{atRatio, beyondRatio})
	var atScore, beyondScore Breakdown
	for _, r := range results {
		if r.ID == "at" {
			atScore = r.Score
		}
		if r.ID == "beyond" {
			beyondScore = r.Score
		}
	}

	if atScore.Components["duration"] != cfg.DurationBonusMax {
		t.Errorf("at-ratio duration bonus = %v, want max_bonus %v", atScore.Components["duration"], cfg.DurationBonusMax)
	}
	if beyondScore.Components["duration"] != 0 {
		t.Errorf("beyond-ratio duration bonus = %v, want 0 (no additional bonus)", beyondScore.Components["duration"])
	}
}

func TestRankTieBreakPreservesInputOrder(t *testing.T) {
	e := New(DefaultConfig())
	q := Query{Artists: "Nobody", Title: "Nothing"}
	candidates := []Candidate{
		{ID: "first", Title: "Unrelated One"},
		{ID: "second", Title: "Unrelated Two"},
	}
	results := e.Rank(q, candidates)
	if results[0].ID != "first" || results[1].ID != "second" {
		t.Errorf("tie-break order = [%s, %s], want [first, second]", results[0].ID, results[1].ID)
	}
}

func TestRankDeterministic(t *testing.T) {
	e := New(DefaultConfig())
	q := Query{Artists: "Block & Crown", Title: "Lonely Heart", DurationSec: intPtr(240)}
	c := Candidate{ID: "c1", Title: "Block & Crown - Lonely Heart", Channel: "Block & Crown - Topic", DurationSec: intPtr(240)}

	first := e.Rank(q, []Candidate{c})
	second := e.Rank(q, []Candidate{c})
	if first[0].Score.Total != second[0].Score.Total {
		t.Error("ranking the same input twice produced different scores")
	}
}
