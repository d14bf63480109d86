package extractor

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// FixtureExtractor returns canned data and writes placeholder files instead
// of shelling out, toggled on via YOUTUBE_SEARCH_FAKE/DOWNLOAD_FAKE so every
// automated test can run without a real yt-dlp binary on PATH.
type FixtureExtractor struct{}

func NewFixtureExtractor() *FixtureExtractor {
	return &FixtureExtractor{}
}

var nonAlnumRe = regexp.MustCompile(`[^a-zA-Z0-9 ]+`)

// Search reproduces the three canned result shapes used throughout the
// fixture-mode test suite: an official upload, an extended mix, and an
// unrelated result, so fixture tests exercise every ranking tier.
func (f *FixtureExtractor) Search(ctx context.Context, q Query, opts SearchOptions) ([]RawCandidate, error) {
	base := strings.TrimSpace(nonAlnumRe.ReplaceAllString(q.Artists+" "+q.Title, ""))
	official := "Channel A"
	club := "DJ Channel"
	other := "Other"
	officialDur, clubDur, otherDur := 180, 200, 175

	thumb1, thumb2 := "https://i.ytimg.com/fake1.jpg", "https://i.ytimg.com/fake2.jpg"
	results := []RawCandidate{
		{ExternalID: "fake1", Title: base + " (Official Video)", URL: "https://youtu.be/fake1", Channel: &official, DurationSec: &officialDur, ThumbnailURL: &thumb1},
		{ExternalID: "fake2", Title: base + " (Extended Mix)", URL: "https://youtu.be/fake2", Channel: &club, DurationSec: &clubDur, ThumbnailURL: &thumb2},
		{ExternalID: "fake3", Title: "Random Other " + base, URL: "https://youtu.be/fake3", Channel: &other, DurationSec: &otherDur},
	}
	if opts.Limit > 0 && len(results) > opts.Limit {
		results = results[:opts.Limit]
	}
	return results, nil
}

// Download writes a small placeholder file rather than fetching real audio,
// so downstream tagging/checksum code still has a real file to operate on.
func (f *FixtureExtractor) Download(ctx context.Context, externalIDOrURL string, opts DownloadOptions) (DownloadResult, error) {
	format := opts.PreferredAudioFormat
	if format == "" {
		format = "m4a"
	}
	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return DownloadResult{}, fmt.Errorf("create output dir: %w", err)
	}
	filename := fmt.Sprintf("fixture-%d.%s", time.Now().UnixNano(), format)
	path := filepath.Join(opts.OutputDir, filename)

	content := []byte("fixture audio placeholder for " + externalIDOrURL)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return DownloadResult{}, fmt.Errorf("write fixture file: %w", err)
	}

	sum := sha256.Sum256(content)
	return DownloadResult{
		FilePath:  path,
		Container: format,
		Bytes:     int64(len(content)),
		Checksum:  hex.EncodeToString(sum[:]),
	}, nil
}
