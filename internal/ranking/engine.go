package ranking

import (
	"regexp"
	"sort"
	"strings"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"

	"github.com/triv3/musicvault/internal/normalize"
)

// jaroWinklerThreshold is how close a token must be to an artist name,
// after accent folding has already failed to find a substring match, before
// it counts as a fuzzy hit. High enough to catch spelling drift
// ("Hörger"/"Hoerger") without matching unrelated short tokens.
const jaroWinklerThreshold = 0.90

var jaroWinkler = metrics.NewJaroWinkler()

// similarTokenFound reports whether any token in text is within
// jaroWinklerThreshold similarity of target under Jaro-Winkler.
func similarTokenFound(text, target string) bool {
	if target == "" {
		return false
	}
	for _, token := range tokenize(text) {
		if strutil.Similarity(token, target, jaroWinkler) >= jaroWinklerThreshold {
			return true
		}
	}
	return false
}

// Query is the reference track a candidate is scored against.
type Query struct {
	Artists     string
	Title       string
	DurationSec *int
}

// Candidate is one extractor search result.
type Candidate struct {
	ID          string
	Title       string
	Channel     string
	DurationSec *int
}

// Scored pairs a Candidate with its Breakdown, retaining the index it held
// in the input slice so ties can preserve that order.
type Scored struct {
	Candidate
	Score         Breakdown
	originalIndex int
}

// Engine scores candidates against a Query using a fixed Config.
type Engine struct {
	cfg Config
}

// New constructs an Engine with the given Config.
func New(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

var separatorRunRe = regexp.MustCompile(`^[\s-]+|[\s-]+$`)

func tokenize(s string) []string {
	return strings.Fields(strings.ToLower(s))
}

func stripSeparatorRuns(s string) string {
	return separatorRunRe.ReplaceAllString(s, "")
}

func stripOfficialSuffixes(channel string, suffixes []string) string {
	s := strings.ToLower(channel)
	for _, suffix := range suffixes {
		if strings.HasSuffix(s, suffix) {
			s = strings.TrimSpace(strings.TrimSuffix(s, suffix))
		}
	}
	return s
}

// findAndRemove reports whether pattern occurs (case-insensitively) in text
// and, if so, returns text with the first occurrence removed and trimmed.
func findAndRemove(text, pattern string) (found bool, remaining string) {
	lowerText := strings.ToLower(text)
	lowerPattern := strings.ToLower(pattern)
	idx := strings.Index(lowerText, lowerPattern)
	if idx < 0 {
		return false, lowerText
	}
	rest := lowerText[:idx] + lowerText[idx+len(lowerPattern):]
	return true, strings.TrimSpace(rest)
}

func detectExtendedKeywords(text string, keywords []string) []string {
	lower := strings.ToLower(text)
	var found []string
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			found = append(found, kw)
		}
	}
	return found
}

// scoreArtist awards or penalizes each comma-delimited reference artist and
// returns the working title with matched substrings removed.
func (e *Engine) scoreArtist(artists, channel, workingTitle string, b *Breakdown) string {
	for _, artist := range strings.Split(artists, ",") {
		artist = strings.TrimSpace(artist)
		if artist == "" {
			continue
		}
		normalizedArtist := strings.ToLower(artist)
		normalizedChannel := stripOfficialSuffixes(channel, e.cfg.OfficialChannelSuffixes)

		foundInTitle, newWorking := findAndRemove(workingTitle, artist)
		foundInChannel := strings.Contains(normalizedChannel, normalizedArtist)

		switch {
		case foundInTitle || foundInChannel:
			source := "channel"
			if foundInTitle {
				source = "title"
				workingTitle = newWorking
			}
			b.add("artist.match:"+artist, e.cfg.ArtistBonusPerMatch, "artist", "found in "+source)
		default:
			fuzzyArtist := normalize.Fold(artist)
			fuzzyFoundInTitle, fuzzyNewWorking := findAndRemove(workingTitle, fuzzyArtist)
			fuzzyChannel := normalize.Fold(stripOfficialSuffixes(channel, e.cfg.OfficialChannelSuffixes))
			fuzzyFoundInChannel := strings.Contains(fuzzyChannel, fuzzyArtist)

			if fuzzyFoundInTitle || fuzzyFoundInChannel {
				source := "channel"
				if fuzzyFoundInTitle {
					source = "title"
					workingTitle = fuzzyNewWorking
				}
				b.add("artist.fuzzy-match:"+artist, e.cfg.ArtistBonusPerFuzzyMatch, "artist", "fuzzy match in "+source)
			} else if similarTokenFound(workingTitle, fuzzyArtist) || similarTokenFound(fuzzyChannel, fuzzyArtist) {
				b.add("artist.fuzzy-match:"+artist, e.cfg.ArtistBonusPerFuzzyMatch, "artist", "jaro-winkler fuzzy match")
			} else {
				b.add("artist.miss:"+artist, e.cfg.ArtistPenaltyPerMiss, "artist", "")
			}
		}
	}
	return workingTitle
}

// scoreTitle tries an exact (trim-then-equality) match before falling back
// to per-token scoring, returning the working title with matches removed.
func (e *Engine) scoreTitle(title, workingTitle string, b *Breakdown) string {
	normalizedTitle := strings.ToLower(title)
	trimmedWorking := stripSeparatorRuns(workingTitle)

	if trimmedWorking == normalizedTitle {
		b.add("title.exact", e.cfg.TitleExactMatchBonus, "title", "exact title match")
		return ""
	}

	titleTokens := tokenize(normalizedTitle)
	workingTokens := tokenize(workingTitle)

	for _, token := range titleTokens {
		idx := indexOfString(workingTokens, token)
		if idx >= 0 {
			b.add("title.token:"+token, e.cfg.TitleTokenBonusPerMatch, "title", "")
			workingTokens = append(workingTokens[:idx], workingTokens[idx+1:]...)
		} else {
			b.add("title.miss:"+token, e.cfg.TitleTokenPenaltyPerMiss, "title", "")
		}
	}
	return strings.Join(workingTokens, " ")
}

func indexOfString(tokens []string, target string) int {
	for i, t := range tokens {
		if t == target {
			return i
		}
	}
	return -1
}

// scoreRemainingTokens penalizes every non-extended token surviving after
// artist and title scoring, applying TitleRemainingTokenPenaltyMax as a
// signed floor to the aggregate (not an unsigned magnitude cap).
func (e *Engine) scoreRemainingTokens(workingTitle string, extendedTokens map[string]bool, b *Breakdown) float64 {
	penalty := 0.0
	for _, token := range tokenize(workingTitle) {
		if extendedTokens[token] {
			continue
		}
		penalty += e.cfg.TitleRemainingTokenPenalty
		b.add("title.remaining-token:"+token, e.cfg.TitleRemainingTokenPenalty, "title", "")
	}
	if penalty < e.cfg.TitleRemainingTokenPenaltyMax {
		correction := e.cfg.TitleRemainingTokenPenaltyMax - penalty
		b.add("title.remaining-capped", correction, "title", "penalty floored")
		penalty = e.cfg.TitleRemainingTokenPenaltyMax
	}
	return penalty
}

// scoreExtended evaluates the extended/club/original-mix gate against the
// real remaining-token penalty, artist score, and title score, recording
// its result as components on b.
func (e *Engine) scoreExtended(keywords []string, artistScore, titleScore, remainingPenalty float64, candidateSec, querySec *int, b *Breakdown) {
	if len(keywords) == 0 {
		return
	}
	remainingMagnitude := remainingPenalty
	if remainingMagnitude < 0 {
		remainingMagnitude = -remainingMagnitude
	}
	conditionsMet := remainingMagnitude <= e.cfg.ExtendedMaxRemainingPenaltyAllowed &&
		artistScore >= e.cfg.ExtendedMinArtistScore &&
		titleScore >= e.cfg.ExtendedMinTitleScore

	joined := strings.Join(keywords, ", ")
	if !conditionsMet {
		b.add("extended.rejected:"+joined, 0, "extended", "conditions not met")
		return
	}
	b.add("extended.detected:"+joined, e.cfg.ExtendedLargeBonus, "extended", "extended version detected with sufficient match quality")

	if candidateSec != nil && querySec != nil && float64(*candidateSec) > float64(*querySec)*e.cfg.ExtendedDurationRatio {
		b.add("extended.duration-bonus", e.cfg.ExtendedDurationBonus, "extended", "extended version with appropriate long duration")
	}
}

// scoreDuration awards a too-short penalty, zero on exact match, or a
// proportional bonus up to DurationMaxRatio; beyond the ratio, no further
// bonus is added.
func (e *Engine) scoreDuration(querySec, candidateSec *int, b *Breakdown) {
	if querySec == nil || candidateSec == nil {
		b.add("duration.unknown", 0, "duration", "duration not available")
		return
	}
	q, c := *querySec, *candidateSec
	switch {
	case c < q:
		b.add("duration.too-short", e.cfg.DurationPenaltyTooShort, "duration", "candidate shorter than reference")
	case c == q:
		b.add("duration.exact", 0, "duration", "exact duration match")
	default:
		delta := c - q
		maxDelta := int(float64(q) * (e.cfg.DurationMaxRatio - 1))
		if delta <= maxDelta {
			bonus := e.cfg.DurationBonusMin + float64(delta)*e.cfg.DurationBonusPerSecond
			if bonus > e.cfg.DurationBonusMax {
				bonus = e.cfg.DurationBonusMax
			}
			b.add("duration.bonus:+", bonus, "duration", "longer but within acceptable range")
		} else {
			b.add("duration.too-long:+", 0, "duration", "exceeds max ratio")
		}
	}
}

// scoreCandidate runs all four scoring families for one candidate.
func (e *Engine) scoreCandidate(q Query, c Candidate) Breakdown {
	b := newBreakdown()
	workingTitle := strings.ToLower(c.Title)

	workingTitle = e.scoreArtist(q.Artists, c.Channel, workingTitle, b)
	artistScore := b.Components["artist"]

	workingTitle = e.scoreTitle(q.Title, workingTitle, b)
	titleScore := b.Components["title"]

	keywords := detectExtendedKeywords(workingTitle, e.cfg.ExtendedKeywords)
	extendedTokens := map[string]bool{}
	for _, kw := range keywords {
		for _, t := range tokenize(kw) {
			extendedTokens[t] = true
		}
	}

	remainingPenalty := e.scoreRemainingTokens(workingTitle, extendedTokens, b)

	e.scoreExtended(keywords, artistScore, titleScore, remainingPenalty, c.DurationSec, q.DurationSec, b)
	e.scoreDuration(q.DurationSec, c.DurationSec, b)

	return *b
}

// Rank scores every candidate against query and returns them sorted by
// descending score, ties preserving input order (stable, total order).
func (e *Engine) Rank(q Query, candidates []Candidate) []Scored {
	scored := make([]Scored, len(candidates))
	for i, c := range candidates {
		scored[i] = Scored{Candidate: c, Score: e.scoreCandidate(q, c), originalIndex: i}
	}

	e.applyImplicitExtended(q, scored)

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score.Total != scored[j].Score.Total {
			return scored[i].Score.Total > scored[j].Score.Total
		}
		return scored[i].originalIndex < scored[j].originalIndex
	})
	return scored
}

// applyImplicitExtended awards half of ExtendedLargeBonus to candidates
// that lack an explicit extended keyword but whose duration sits within
// ExtendedImplicitDurationWindowSec of an explicit extended candidate's
// duration, modeling a re-upload that dropped the marker from its title.
func (e *Engine) applyImplicitExtended(q Query, scored []Scored) {
	var explicitDurations []int
	for _, s := range scored {
		if len(detectExtendedKeywords(s.Title, e.cfg.ExtendedKeywords)) > 0 && s.DurationSec != nil {
			explicitDurations = append(explicitDurations, *s.DurationSec)
		}
	}
	if len(explicitDurations) == 0 || q.DurationSec == nil {
		return
	}

	for i := range scored {
		s := &scored[i]
		if len(detectExtendedKeywords(s.Title, e.cfg.ExtendedKeywords)) > 0 {
			continue
		}
		if s.DurationSec == nil {
			continue
		}
		artistScore := s.Score.Components["artist"]
		titleScore := s.Score.Components["title"]
		if artistScore < e.cfg.ExtendedMinArtistScore || titleScore < e.cfg.ExtendedMinTitleScore {
			continue
		}
		if float64(*s.DurationSec) <= float64(*q.DurationSec)*e.cfg.ExtendedDurationRatio {
			continue
		}
		for _, extDuration := range explicitDurations {
			diff := *s.DurationSec - extDuration
			if diff < 0 {
				diff = -diff
			}
			if diff <= e.cfg.ExtendedImplicitDurationWindowSec {
				s.Score.add("extended.implicit", e.cfg.ExtendedLargeBonus*0.5, "extended", "implicit extended version")
				break
			}
		}
	}
}
