// Package ranking scores extractor search candidates against a reference
// track and produces a stable, transparent ordering.
package ranking

// Config holds the tunable constants the scoring algorithm consults; a
// caller wanting to tune behavior does so by constructing a different
// Config. Two values live in engine.go instead and are not configurable:
// the Jaro-Winkler similarity threshold (jaroWinklerThreshold, 0.90) and
// the 0.5 factor applied to ExtendedLargeBonus for implicit extended versions.
type Config struct {
	ArtistBonusPerMatch      float64
	ArtistBonusPerFuzzyMatch float64
	ArtistPenaltyPerMiss     float64

	TitleExactMatchBonus          float64
	TitleTokenBonusPerMatch       float64
	TitleTokenPenaltyPerMiss      float64
	TitleRemainingTokenPenalty    float64
	TitleRemainingTokenPenaltyMax float64

	ExtendedKeywords                   []string
	ExtendedLargeBonus                 float64
	ExtendedMaxRemainingPenaltyAllowed float64
	ExtendedMinArtistScore             float64
	ExtendedMinTitleScore              float64
	ExtendedDurationBonus              float64
	ExtendedDurationRatio              float64
	ExtendedImplicitDurationWindowSec  int

	DurationPenaltyTooShort float64
	DurationMaxRatio        float64
	DurationBonusMin        float64
	DurationBonusMax        float64
	DurationBonusPerSecond  float64

	OfficialChannelSuffixes []string
}

// DefaultConfig returns the constants calibrated against the literal
// worked examples: artist-miss penalty at -20 (not -15), no channel-exact
// super-bonus, no slightly-too-long duration consolation tier.
func DefaultConfig() Config {
	return Config{
		ArtistBonusPerMatch:      50,
		ArtistBonusPerFuzzyMatch: 35,
		ArtistPenaltyPerMiss:     -20,

		TitleExactMatchBonus:          100,
		TitleTokenBonusPerMatch:       15,
		TitleTokenPenaltyPerMiss:      -10,
		TitleRemainingTokenPenalty:    -5,
		TitleRemainingTokenPenaltyMax: -30,

		ExtendedKeywords:                   []string{"extended", "club", "original mix"},
		ExtendedLargeBonus:                 55,
		ExtendedMaxRemainingPenaltyAllowed: 25,
		ExtendedMinArtistScore:             30,
		ExtendedMinTitleScore:              70,
		ExtendedDurationBonus:              10,
		ExtendedDurationRatio:              1.3,
		ExtendedImplicitDurationWindowSec:  20,

		DurationPenaltyTooShort: -100,
		DurationMaxRatio:        2.0,
		DurationBonusMin:        0,
		DurationBonusMax:        30,
		DurationBonusPerSecond:  0.5,

		OfficialChannelSuffixes: []string{
			" - topic", " - official", "vevo", " official", " - audio", " music",
		},
	}
}
