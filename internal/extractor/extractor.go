// Package extractor is the capability interface over an external
// "search + download audio" tool. The core only ever talks to the
// Extractor interface; which implementation backs it is a deployment
// decision made through configuration, not a compile-time one.
package extractor

import (
	"context"
	"time"
)

// Query is the reference track a search is run against.
type Query struct {
	Artists     string
	Title       string
	DurationSec *int
}

// RawCandidate is one unranked search result as returned by the backing
// tool, before the Ranking Engine scores it.
type RawCandidate struct {
	ExternalID   string
	Title        string
	URL          string
	Channel      *string
	DurationSec  *int
	ThumbnailURL *string
}

// SearchOptions bounds one search call.
type SearchOptions struct {
	Limit         int
	MaxPages      int
	PageSize      int
	StopThreshold float64
}

// DownloadOptions configures one download call.
type DownloadOptions struct {
	OutputDir            string
	PreferredAudioFormat string
	ExtractorArgs        string
	CookiesFile          string
	EmbedThumbnail       bool
}

// DownloadResult describes the audio file a download produced.
type DownloadResult struct {
	FilePath  string
	Container string
	Bytes     int64
	Checksum  string
}

// Extractor is the two-method capability the core depends on. Concurrency
// invariants (parallel searches, at-most-one-download-per-job) are owned by
// the Download Scheduler, not by implementations of this interface.
type Extractor interface {
	Search(ctx context.Context, q Query, opts SearchOptions) ([]RawCandidate, error)
	Download(ctx context.Context, externalIDOrURL string, opts DownloadOptions) (DownloadResult, error)
}

// DurationProber is an optional Extractor capability: a cheaper, native-Go
// metadata fetch that confirms a candidate's duration ahead of a download,
// without spending a subprocess invocation just to read it. Not every
// implementation can offer this (the fixture extractor has no real video to
// probe), so callers go through Manager.ProbeDuration and treat
// ErrProbeUnsupported as "skip the check" rather than a hard failure.
type DurationProber interface {
	ProbeDuration(ctx context.Context, videoURL string) (time.Duration, error)
}
