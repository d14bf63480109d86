package httpapi

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/triv3/musicvault/internal/apperr"
)

// ParseRange parses a single HTTP Range header value of the form
// "bytes=start-end" against a resource of the given size, returning the
// inclusive [start, end] byte range to serve. Supports the suffix form
// ("bytes=-N") and the open-ended form ("bytes=N-"); rejects multi-range
// specs and any value this handler can't satisfy.
func ParseRange(header string, size int64) (start, end int64, err error) {
	value := strings.TrimSpace(header)
	if !strings.HasPrefix(strings.ToLower(value), "bytes=") {
		return 0, 0, apperr.Validation("unsupported range unit")
	}

	spec := strings.TrimSpace(value[len("bytes="):])
	if strings.Contains(spec, ",") {
		return 0, 0, apperr.Validation("multiple ranges not supported")
	}

	dash := strings.Index(spec, "-")
	if dash < 0 {
		return 0, 0, apperr.Validation("invalid range format")
	}
	startStr := strings.TrimSpace(spec[:dash])
	endStr := strings.TrimSpace(spec[dash+1:])
	if startStr == "" && endStr == "" {
		return 0, 0, apperr.Validation("invalid empty range")
	}

	if startStr == "" {
		suffixLen, convErr := strconv.ParseInt(endStr, 10, 64)
		if convErr != nil || suffixLen <= 0 {
			return 0, 0, apperr.Validation("invalid suffix range")
		}
		if suffixLen > size {
			start = 0
		} else {
			start = size - suffixLen
		}
		return start, size - 1, nil
	}

	start, convErr := strconv.ParseInt(startStr, 10, 64)
	if convErr != nil || start < 0 || start >= size {
		return 0, 0, apperr.Validation(fmt.Sprintf("start out of range: %s", startStr))
	}

	if endStr == "" {
		return start, size - 1, nil
	}

	end, convErr = strconv.ParseInt(endStr, 10, 64)
	if convErr != nil {
		return 0, 0, apperr.Validation("invalid end value")
	}
	if end < start {
		return 0, 0, apperr.Validation("end before start")
	}
	if end >= size {
		end = size - 1
	}
	return start, end, nil
}

// BuildContentRange renders the Content-Range header value for a served
// byte range out of total.
func BuildContentRange(start, end, total int64) string {
	return fmt.Sprintf("bytes %d-%d/%d", start, end, total)
}

// AudioMimeForPath returns a content type for common audio containers,
// falling back to application/octet-stream.
func AudioMimeForPath(ext string) string {
	switch strings.ToLower(ext) {
	case ".mp3":
		return "audio/mpeg"
	case ".m4a", ".mp4", ".aac":
		return "audio/mp4"
	case ".flac":
		return "audio/flac"
	case ".wav":
		return "audio/wav"
	default:
		return "application/octet-stream"
	}
}
