// Package constants contains application-wide constants to avoid magic numbers and strings.
package constants

import "time"

// Application defaults
const (
	DefaultPort              = "8080"
	DefaultDatabaseURL       = "file:musicvault.db"
	DefaultLibraryDir        = "library"
	DefaultConcurrency       = 2
	DefaultPollInterval      = 2 * time.Second
	DefaultHTTPTimeout       = 5 * time.Minute
	ImageHTTPTimeout         = 30 * time.Second
	DefaultRetryCount        = 3
	DefaultRetryBase         = 1 * time.Second
	DefaultPreferredAudioFmt = "mp3"
	DefaultYtDlpBin          = "yt-dlp"
	DefaultFfmpegBin         = "ffmpeg"
	DefaultHistoryKeep       = 30
	DefaultLogBufferMaxLines = 200
	LogBufferMinLines        = 10
	LogBufferMaxLinesCap     = 5000
)

// Extractor search defaults
const (
	DefaultYouTubeSearchLimit         = 10
	DefaultYouTubeSearchTimeout       = 8 * time.Second
	DefaultYouTubeSearchMaxPages      = 3
	DefaultYouTubeSearchPageSize      = 10
	DefaultYouTubeSearchStopThreshold = 130.0
	DefaultMinAutochooseScore         = 60.0
)

// MIME Types
const (
	MimeTypeMP3  = "audio/mpeg"
	MimeTypeMP4  = "audio/mp4"
	MimeTypeFLAC = "audio/flac"
	MimeTypeWAV  = "audio/wav"
	MimeTypeJPEG = "image/jpeg"
	MimeTypePNG  = "image/png"
	MimeTypeOctet = "application/octet-stream"
)

// File Extensions
const (
	ExtMP3 = ".mp3"
	ExtM4A = ".m4a"
	ExtMP4 = ".mp4"
	ExtJPG = ".jpg"
	ExtPNG = ".png"
)

// File Permissions
const (
	DirPermissions  = 0755
	FilePermissions = 0644
)

// Cache / settings keys persisted in the catalog's key/value tables.
const (
	SettingActiveSpotifyAccount = "active_spotify_account"
	CacheKeyMusicBrainzPrefix   = "musicbrainz:"
)

// Characters stripped from filesystem paths.
const InvalidPathChars = "<>:\"/\\|?*"

// Spotify cover-art host pattern recognized by the cover selection rule.
const SpotifyCoverHost = "i.scdn.co/"

// Bounded limits
const (
	MaxSearchResults    = 50
	MaxStderrCapture    = 4096
	StderrCaptureLines  = 40
)
