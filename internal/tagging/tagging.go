// Package tagging writes canonical metadata into a freshly downloaded audio
// file and embeds cover art, dispatching on container extension to the
// ID3v2.3/v1 writer for MPEG-layer audio or the MP4 atom rewriter for
// MP4-container audio.
package tagging

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/triv3/musicvault/internal/apperr"
	"github.com/triv3/musicvault/internal/domain"
	"github.com/triv3/musicvault/internal/httpclient"
)

// Cover is the resolved cover art to embed, or a zero value for "none".
type Cover struct {
	Data     []byte
	MimeType string
}

// CoverSource describes the embedded cover art's origin, for logging.
type CoverSource string

const (
	CoverNone       CoverSource = "none"
	CoverSpotify    CoverSource = "spotify"
	CoverExtractor  CoverSource = "extractor_thumbnail"
	spotifyCoverHost            = "i.scdn.co"
)

// SelectCoverURL applies the cover selection rule: a Spotify-origin cover
// (host i.scdn.co) always wins over an extractor-provided thumbnail; absent
// that, the thumbnail is used; absent both, no cover is embedded.
func SelectCoverURL(track *domain.Track, extractorThumbnailURL string) (string, CoverSource) {
	if track.CoverURL != nil && *track.CoverURL != "" {
		if u, err := url.Parse(*track.CoverURL); err == nil && strings.HasSuffix(u.Host, spotifyCoverHost) {
			return *track.CoverURL, CoverSpotify
		}
	}
	if extractorThumbnailURL != "" {
		return extractorThumbnailURL, CoverExtractor
	}
	return "", CoverNone
}

// DownloadImage fetches cover art over HTTP, identifying itself with a
// desktop user agent since some image CDNs reject bare Go HTTP clients.
// Goes through the shared rate-limited client so a burst of cover fetches
// can't also get i.scdn.co to start returning 429s.
func DownloadImage(ctx context.Context, client *httpclient.Client, imageURL string) (Cover, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return Cover{}, apperr.Infrastructure("build cover request", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; musicvault/1.0)")

	resp, err := client.Do(ctx, req)
	if err != nil {
		return Cover{}, apperr.ExternalProvider("fetch cover art", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Cover{}, apperr.ExternalProvider(fmt.Sprintf("cover fetch returned %d", resp.StatusCode), nil)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return Cover{}, apperr.Infrastructure("read cover body", err)
	}
	mime := http.DetectContentType(data)
	return Cover{Data: data, MimeType: mime}, nil
}

// TagFile drops source-derived metadata and writes the Track's canonical
// tags plus an optional cover, dispatching by file extension. It returns
// the recomputed checksum of the tagged file.
func TagFile(path string, track *domain.Track, cover Cover) (checksum string, err error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".mp3":
		if err := tagMP3(path, track, cover); err != nil {
			return "", err
		}
	case ".m4a", ".mp4":
		if err := tagMP4(path, track, cover); err != nil {
			return "", err
		}
	default:
		return "", apperr.Validation(fmt.Sprintf("unsupported audio container %q for tagging", ext))
	}
	return checksumFile(path)
}

func checksumFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", apperr.Infrastructure("open file for checksum", err)
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", apperr.Infrastructure("checksum file", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// releaseYear extracts the YYYY prefix from a Track's release_date, for the
// legacy TYER/year fields that only hold a year.
func releaseYear(releaseDate *string) string {
	if releaseDate == nil || len(*releaseDate) < 4 {
		return ""
	}
	return (*releaseDate)[:4]
}

// fmtFloat renders a *float64 as a plain decimal string, or "" if nil.
func fmtFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.6f", *v), "0"), ".")
}

func str(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
