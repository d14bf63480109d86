package extractor

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/kkdai/youtube/v2"

	"github.com/triv3/musicvault/internal/ranking"
)

// YtDlpExtractor shells out to a yt-dlp binary for search and download, the
// only two operations the core needs from the underlying tool.
type YtDlpExtractor struct {
	Bin           string
	FFmpegBin     string
	Engine        *ranking.Engine
	MetadataProbe *youtube.Client
	Timeout       time.Duration
}

// NewYtDlpExtractor constructs a real Extractor backed by the given yt-dlp
// binary path, scored against engine for early-stop decisions during
// paging.
func NewYtDlpExtractor(bin, ffmpegBin string, engine *ranking.Engine, timeout time.Duration) *YtDlpExtractor {
	return &YtDlpExtractor{
		Bin:           bin,
		FFmpegBin:     ffmpegBin,
		Engine:        engine,
		MetadataProbe: &youtube.Client{},
		Timeout:       timeout,
	}
}

type ytDlpSearchEntry struct {
	ID         string   `json:"id"`
	DisplayID  string   `json:"display_id"`
	Title      string   `json:"title"`
	WebpageURL string   `json:"webpage_url"`
	Channel    string   `json:"channel"`
	Uploader   string   `json:"uploader"`
	Duration   *float64 `json:"duration"`
	Thumbnail  string   `json:"thumbnail"`
}

// Search pages through up to opts.MaxPages pages of opts.PageSize results,
// scoring each page against q via e.Engine and stopping early once the
// best score-so-far crosses opts.StopThreshold. A wall-clock timeout bounds
// the whole call; on timeout it returns an empty result with no error,
// discarding any pages already gathered.
func (e *YtDlpExtractor) Search(ctx context.Context, q Query, opts SearchOptions) ([]RawCandidate, error) {
	ctx, cancel := context.WithTimeout(ctx, e.Timeout)
	defer cancel()

	query := strings.TrimSpace(q.Artists + " " + q.Title)
	if query == "" {
		return nil, nil
	}

	maxPages := opts.MaxPages
	if maxPages < 1 {
		maxPages = 1
	}
	pageSize := opts.PageSize
	if pageSize < 1 {
		pageSize = 10
	}

	var all []RawCandidate
	seen := map[string]bool{}
	bestScore := 0.0

	for page := 0; page < maxPages; page++ {
		n := pageSize * (page + 1)
		entries, err := e.runSearch(ctx, query, n)
		if err != nil {
			if ctx.Err() != nil {
				return nil, nil
			}
			return all, nil
		}

		newOnPage := 0
		for _, c := range entries {
			if seen[c.ExternalID] {
				continue
			}
			seen[c.ExternalID] = true
			all = append(all, c)
			newOnPage++
		}
		if newOnPage == 0 {
			break
		}

		if e.Engine != nil {
			candidates := make([]ranking.Candidate, len(all))
			for i, c := range all {
				channel := ""
				if c.Channel != nil {
					channel = *c.Channel
				}
				candidates[i] = ranking.Candidate{ID: c.ExternalID, Title: c.Title, Channel: channel, DurationSec: c.DurationSec}
			}
			ranked := e.Engine.Rank(ranking.Query{Artists: q.Artists, Title: q.Title, DurationSec: q.DurationSec}, candidates)
			if len(ranked) > 0 && ranked[0].Score.Total > bestScore {
				bestScore = ranked[0].Score.Total
			}
			if bestScore >= opts.StopThreshold {
				break
			}
		}

		if ctx.Err() != nil {
			return nil, nil
		}
	}

	if opts.Limit > 0 && len(all) > opts.Limit {
		all = all[:opts.Limit]
	}
	return all, nil
}

// runSearch invokes yt-dlp once for up to n results via its ytsearchN:
// pseudo-URL, parsing one JSON object per line of stdout.
func (e *YtDlpExtractor) runSearch(ctx context.Context, query string, n int) ([]RawCandidate, error) {
	cmd := exec.CommandContext(ctx, e.Bin,
		fmt.Sprintf("ytsearch%d:%s", n, query),
		"--skip-download",
		"--dump-json",
		"--no-warnings",
		"--default-search", "ytsearch",
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("yt-dlp search: %w: %s", err, stderr.String())
	}

	var results []RawCandidate
	for _, line := range strings.Split(stdout.String(), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var entry ytDlpSearchEntry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			continue
		}
		id := entry.ID
		if id == "" {
			id = entry.DisplayID
		}
		if id == "" {
			continue
		}
		url := entry.WebpageURL
		if url == "" {
			url = "https://www.youtube.com/watch?v=" + id
		}
		channel := entry.Channel
		if channel == "" {
			channel = entry.Uploader
		}
		var channelPtr *string
		if channel != "" {
			channelPtr = &channel
		}
		var durationSec *int
		if entry.Duration != nil {
			d := int(*entry.Duration)
			durationSec = &d
		}
		var thumbnailPtr *string
		if entry.Thumbnail != "" {
			thumbnailPtr = &entry.Thumbnail
		}
		results = append(results, RawCandidate{
			ExternalID:   id,
			Title:        entry.Title,
			URL:          url,
			Channel:      channelPtr,
			DurationSec:  durationSec,
			ThumbnailURL: thumbnailPtr,
		})
	}
	return results, nil
}

// ProbeDuration uses a native-Go metadata fetch to cross-check a candidate's
// duration before spending a subprocess invocation on the actual download,
// avoiding a second yt-dlp spawn purely to read metadata.
func (e *YtDlpExtractor) ProbeDuration(ctx context.Context, videoURL string) (time.Duration, error) {
	video, err := e.MetadataProbe.GetVideoContext(ctx, videoURL)
	if err != nil {
		return 0, fmt.Errorf("probe metadata: %w", err)
	}
	return video.Duration, nil
}

// Download invokes yt-dlp to extract audio from externalIDOrURL into
// opts.OutputDir, then checksums the resulting file.
func (e *YtDlpExtractor) Download(ctx context.Context, externalIDOrURL string, opts DownloadOptions) (DownloadResult, error) {
	url := externalIDOrURL
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		url = "https://www.youtube.com/watch?v=" + url
	}

	format := opts.PreferredAudioFormat
	if format == "" {
		format = "m4a"
	}
	stem := fmt.Sprintf("extract-%d", time.Now().UnixNano())
	outputTemplate := filepath.Join(opts.OutputDir, stem+".%(ext)s")

	args := []string{
		"--format", "bestaudio",
		"--extract-audio",
		"--audio-format", format,
		"--audio-quality", "0",
		"--output", outputTemplate,
		"--no-overwrites",
	}
	if e.FFmpegBin != "" {
		args = append(args, "--ffmpeg-location", e.FFmpegBin)
	}
	if opts.CookiesFile != "" {
		args = append(args, "--cookies", opts.CookiesFile)
	}
	if opts.EmbedThumbnail {
		args = append(args, "--embed-thumbnail")
	}
	if opts.ExtractorArgs != "" {
		args = append(args, "--extractor-args", opts.ExtractorArgs)
	}
	args = append(args, url)

	var output bytes.Buffer
	cmd := exec.CommandContext(ctx, e.Bin, args...)
	cmd.Stdout = &output
	cmd.Stderr = &output
	if err := cmd.Run(); err != nil {
		return DownloadResult{}, fmt.Errorf("yt-dlp download failed: %w: %s", err, boundedPrefix(output.String(), 4000))
	}

	outputPath := filepath.Join(opts.OutputDir, stem+"."+format)
	info, err := os.Stat(outputPath)
	if err != nil {
		return DownloadResult{}, fmt.Errorf("locate downloaded file: %w", err)
	}

	checksum, err := checksumFile(outputPath)
	if err != nil {
		return DownloadResult{}, fmt.Errorf("checksum downloaded file: %w", err)
	}

	return DownloadResult{
		FilePath:  outputPath,
		Container: format,
		Bytes:     info.Size(),
		Checksum:  checksum,
	}, nil
}

func checksumFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// boundedPrefix returns at most the first n bytes of s, for capturing a
// bounded prefix of stderr in an error_message.
func boundedPrefix(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
