// Package normalize implements pure, deterministic cleanup of artist/title
// metadata so the catalog and ranking engine compare like with like.
package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var (
	featureRe = regexp.MustCompile(`(?i)\b(extended mix|club mix|original mix|radio edit|edit|remix)\b|\b(live( version)?|remastered?( \d{2,4})?)\b`)
	featRe    = regexp.MustCompile(`(?i)\b(feat\.?|ft\.?|featuring)\b\s*([^()\-·–—]+)`)
	parensRe  = regexp.MustCompile(`\([^)]*\)`)
	dashSufRe = regexp.MustCompile(`\s*[\-–—]\s*[^\-–—()]+$`)

	sepXRe     = regexp.MustCompile(`(?i)\s*[x×]\s*`)
	sepPlusRe  = regexp.MustCompile(`\s*\+\s*`)
	sepSlashRe = regexp.MustCompile(`\s*/\s*`)
	sepAndRe   = regexp.MustCompile(`(?i)\s*\band\b\s*`)
	sepWithRe  = regexp.MustCompile(`(?i)\s*\bwith\b\s*`)
	dupAmpRe   = regexp.MustCompile(`\s*&\s*&\s*`)
	dupCommaRe = regexp.MustCompile(`\s*,\s*,\s*`)
	commaRe    = regexp.MustCompile(`\s*,\s*`)
	ampRe      = regexp.MustCompile(`\s*&\s*`)
	spaceRe    = regexp.MustCompile(`\s+`)
	punctRe    = regexp.MustCompile(`[^a-zA-Z0-9&,+/\\'\- ]+`)

	remixFlagRe    = regexp.MustCompile(`(?i)\b(remix|edit|mix)\b`)
	liveFlagRe     = regexp.MustCompile(`(?i)\blive\b`)
	remasterFlagRe = regexp.MustCompile(`(?i)\bremaster(?:ed)?\b`)

	artistSplitRe = regexp.MustCompile(`(?i)\s*(,|&| x | and )\s*`)
)

// Result is the output of Normalize: cleaned strings plus the flags the
// ranking engine and tagger consult.
type Result struct {
	PrimaryArtist     string
	CleanArtists      string
	CleanTitle        string
	NormalizedArtists string
	NormalizedTitle   string
	IsRemixOrEdit     bool
	IsLive            bool
	IsRemaster        bool
}

// Tokens splits s on whitespace after normalization, for the ranking engine's
// per-token matching. Embedded '&' survives as its own token.
func Tokens(s string) []string {
	fields := strings.Fields(s)
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

func collapseSpace(s string) string {
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}

func normalizeDashVariants(s string) string {
	s = strings.ReplaceAll(s, "–", "-")
	s = strings.ReplaceAll(s, "—", "-")
	return collapseSpace(s)
}

func normalizeArtistSeparators(s string) string {
	s = normalizeDashVariants(s)
	s = sepXRe.ReplaceAllString(s, " & ")
	s = sepPlusRe.ReplaceAllString(s, " & ")
	s = sepSlashRe.ReplaceAllString(s, " & ")
	s = sepAndRe.ReplaceAllString(s, " & ")
	s = sepWithRe.ReplaceAllString(s, " & ")
	s = dupAmpRe.ReplaceAllString(s, " & ")
	s = dupCommaRe.ReplaceAllString(s, ", ")
	s = commaRe.ReplaceAllString(s, ", ")
	s = ampRe.ReplaceAllString(s, " & ")
	return collapseSpace(s)
}

func stripAccents(s string) string {
	decomposed := norm.NFKD.String(s)
	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		switch r {
		case 'ø', 'Ø':
			b.WriteByte('o')
		case 'æ', 'Æ':
			b.WriteString("ae")
		case 'œ', 'Œ':
			b.WriteString("oe")
		case 'ß':
			b.WriteString("ss")
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func cleanPunctuation(s string) string {
	s = punctRe.ReplaceAllString(s, " ")
	return collapseSpace(s)
}

func extractPrimaryArtist(artists string) string {
	parts := artistSplitRe.Split(artists, -1)
	if len(parts) == 0 {
		return strings.TrimSpace(artists)
	}
	return strings.TrimSpace(parts[0])
}

// extractFeaturedArtists pulls the names following feat./ft./featuring out
// of s, returning the stripped string and the extracted names joined for
// re-attribution to the artist list (per the normalizer's "attribute them to
// artists" contract — the featured performer is a collaborator, not noise).
func extractFeaturedArtists(s string) (stripped string, featured []string) {
	matches := featRe.FindAllStringSubmatch(s, -1)
	for _, m := range matches {
		name := strings.TrimSpace(m[2])
		name = strings.Trim(name, " ,.-")
		if name != "" {
			featured = append(featured, name)
		}
	}
	stripped = featRe.ReplaceAllString(s, "")
	return stripped, featured
}

// Normalize cleans artists/title, folding featured-artist mentions into the
// artist list and extracting boolean version flags. Calling Normalize twice
// on its own CleanArtists/CleanTitle output is a no-op (idempotent).
func Normalize(artists, title string) Result {
	origArtists := normalizeArtistSeparators(artists)
	origTitle := normalizeDashVariants(title)

	artistsWoFeat, featFromArtists := extractFeaturedArtists(origArtists)
	titleWoFeat, featFromTitle := extractFeaturedArtists(origTitle)

	titleBase := parensRe.ReplaceAllString(titleWoFeat, "")
	titleBase = dashSufRe.ReplaceAllString(titleBase, "")

	flagsSrc := origTitle + " " + origArtists
	isRemixOrEdit := remixFlagRe.MatchString(flagsSrc)
	isLive := liveFlagRe.MatchString(flagsSrc)
	isRemaster := remasterFlagRe.MatchString(flagsSrc)

	titleBase = featureRe.ReplaceAllString(titleBase, "")

	allFeatured := append(append([]string{}, featFromArtists...), featFromTitle...)
	artistsWithFeatured := artistsWoFeat
	if len(allFeatured) > 0 {
		artistsWithFeatured = normalizeArtistSeparators(artistsWithFeatured + ", " + strings.Join(allFeatured, ", "))
	}

	artistsNoAccents := stripAccents(artistsWithFeatured)
	titleNoAccents := stripAccents(titleBase)

	artistsNoAccents = normalizeArtistSeparators(artistsNoAccents)
	cleanArtists := cleanPunctuation(artistsNoAccents)
	cleanTitle := cleanPunctuation(titleNoAccents)

	primary := extractPrimaryArtist(cleanArtists)

	return Result{
		PrimaryArtist:     primary,
		CleanArtists:      cleanArtists,
		CleanTitle:        cleanTitle,
		NormalizedArtists: strings.ToLower(cleanArtists),
		NormalizedTitle:   strings.ToLower(cleanTitle),
		IsRemixOrEdit:     isRemixOrEdit,
		IsLive:            isLive,
		IsRemaster:        isRemaster,
	}
}

// Fold lowercases s and strips accents for lenient fuzzy comparisons (e.g.
// "Mårten Hörger" vs "Marten Horger"). Unlike Normalize, it does not strip
// punctuation or separators.
func Fold(s string) string {
	return stripAccents(strings.ToLower(s))
}

// DurationsCloseMS reports whether both durations are present and within
// toleranceMS of each other.
func DurationsCloseMS(aMS, bMS *int64, toleranceMS int64) bool {
	if aMS == nil || bMS == nil {
		return false
	}
	if toleranceMS < 0 {
		toleranceMS = 0
	}
	delta := *aMS - *bMS
	if delta < 0 {
		delta = -delta
	}
	return delta <= toleranceMS
}

// DurationDeltaSec returns the absolute delta in seconds if both durations
// are present, or ok=false otherwise.
func DurationDeltaSec(aMS, bMS *int64) (delta float64, ok bool) {
	if aMS == nil || bMS == nil {
		return 0, false
	}
	d := *aMS - *bMS
	if d < 0 {
		d = -d
	}
	return float64(d) / 1000.0, true
}
