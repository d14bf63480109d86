// Package timestamp sets a downloaded file's modification and (best-effort)
// creation time from catalog-derived values, per the Timestamp Capability
// contract: mtime is always set; creation time is OS-dependent and never
// fails the caller's job on error.
package timestamp

import (
	"os"
	"time"

	"github.com/triv3/musicvault/internal/domain"
)

// Targets is the pair of timestamps to apply to a library file.
type Targets struct {
	ModTime      time.Time
	CreationTime time.Time
}

// Resolve computes the mtime/creation-time targets for a track per the
// scheduler's worker-loop step 8: mtime prefers the latest playlist
// membership's added_at, falling back to the track's spotify_added_at, then
// its release_date, then the current time; creation time prefers
// release_date, falling back to whatever mtime resolved to.
func Resolve(track *domain.Track, latestPlaylistAddedAt *time.Time, now time.Time) Targets {
	modTime := now
	switch {
	case latestPlaylistAddedAt != nil:
		modTime = *latestPlaylistAddedAt
	case track.SpotifyAddedAt != nil:
		modTime = *track.SpotifyAddedAt
	case track.ReleaseDate != nil:
		if t, ok := parseReleaseDate(*track.ReleaseDate); ok {
			modTime = t
		}
	}

	creationTime := modTime
	if track.ReleaseDate != nil {
		if t, ok := parseReleaseDate(*track.ReleaseDate); ok {
			creationTime = t
		}
	}

	return Targets{ModTime: modTime, CreationTime: creationTime}
}

func parseReleaseDate(s string) (time.Time, bool) {
	for _, layout := range []string{"2006-01-02", "2006-01", "2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Apply sets path's mtime unconditionally via os.Chtimes, then attempts to
// set the platform creation time. mtimeErr is fatal to the caller's job;
// creationErr is best-effort and should only be logged, per §7's "best-
// effort subsystems never fail a job" policy.
func Apply(path string, t Targets) (mtimeErr, creationErr error) {
	if err := os.Chtimes(path, t.ModTime, t.ModTime); err != nil {
		return err, nil
	}
	return nil, setCreationTime(path, t.CreationTime)
}
