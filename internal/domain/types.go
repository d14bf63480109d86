// Package domain defines the catalog's persisted entities and closed
// enumerations shared by every component that reads or writes them.
package domain

import (
	"strconv"
	"time"
)

// IdentityProvider names the catalog external to a Track identity.
type IdentityProvider string

const (
	ProviderManual  IdentityProvider = "manual"
	ProviderSpotify IdentityProvider = "spotify"
	ProviderYouTube IdentityProvider = "youtube"
)

// DownloadStatus is the closed set of states a Download can occupy.
type DownloadStatus string

const (
	DownloadQueued  DownloadStatus = "queued"
	DownloadRunning DownloadStatus = "running"
	DownloadDone    DownloadStatus = "done"
	DownloadFailed  DownloadStatus = "failed"
	DownloadSkipped DownloadStatus = "skipped"
	DownloadAlready DownloadStatus = "already"
)

// IsTerminal reports whether the status never transitions further.
func (s DownloadStatus) IsTerminal() bool {
	switch s {
	case DownloadDone, DownloadFailed, DownloadSkipped, DownloadAlready:
		return true
	default:
		return false
	}
}

// TrackAnnotation records catalog-level bookkeeping that is not a Download
// (e.g. a bulk search that found nothing above MIN_AUTOCHOOSE_SCORE).
type TrackAnnotation string

const AnnotationSearchedNotFound TrackAnnotation = "searched_not_found"

// Track is the canonical song entity. NormalizedArtists/NormalizedTitle are
// maintained by the Normalizer and form the manual-import dedup key.
type Track struct {
	ID                int        `db:"id" json:"id"`
	Artists           string     `db:"artists" json:"artists"`
	Title             string     `db:"title" json:"title"`
	NormalizedArtists string     `db:"normalized_artists" json:"normalized_artists"`
	NormalizedTitle   string     `db:"normalized_title" json:"normalized_title"`
	DurationMS        *int64     `db:"duration_ms" json:"duration_ms,omitempty"`
	ISRC              *string    `db:"isrc" json:"isrc,omitempty"`
	Album             *string    `db:"album" json:"album,omitempty"`
	AlbumArtist       *string    `db:"album_artist" json:"album_artist,omitempty"`
	CoverURL          *string    `db:"cover_url" json:"cover_url,omitempty"`
	Genre             *string    `db:"genre" json:"genre,omitempty"`
	BPM               *float64   `db:"bpm" json:"bpm,omitempty"`
	ReleaseDate       *string    `db:"release_date" json:"release_date,omitempty"`
	SpotifyAddedAt    *time.Time `db:"spotify_added_at" json:"spotify_added_at,omitempty"`
	Explicit          bool       `db:"explicit" json:"explicit"`
	Label             *string    `db:"label" json:"label,omitempty"`
	Composer          *string    `db:"composer" json:"composer,omitempty"`
	Copyright         *string    `db:"copyright" json:"copyright,omitempty"`
	Version           *string    `db:"version" json:"version,omitempty"`
	Description       *string    `db:"description" json:"description,omitempty"`
	URL               *string    `db:"url" json:"url,omitempty"`
	AudioQuality      *string    `db:"audio_quality" json:"audio_quality,omitempty"`
	AudioModes        *string    `db:"audio_modes" json:"audio_modes,omitempty"`
	ReplayGain        *float64   `db:"replay_gain" json:"replay_gain,omitempty"`
	Peak              *float64   `db:"peak" json:"peak,omitempty"`
	KeyName           *string    `db:"key_name" json:"key_name,omitempty"`
	KeyScale          *string    `db:"key_scale" json:"key_scale,omitempty"`
	Barcode           *string    `db:"barcode" json:"barcode,omitempty"`
	CatalogNumber     *string    `db:"catalog_number" json:"catalog_number,omitempty"`
	ReleaseType       *string    `db:"release_type" json:"release_type,omitempty"`
	Annotation        *string    `db:"annotation" json:"annotation,omitempty"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updated_at"`
}

// TrackIdentity links a Track to an external catalog entry.
type TrackIdentity struct {
	ID              int              `db:"id" json:"id"`
	TrackID         int              `db:"track_id" json:"track_id"`
	Provider        IdentityProvider `db:"provider" json:"provider"`
	ProviderTrackID string           `db:"provider_track_id" json:"provider_track_id"`
	ProviderURL     *string          `db:"provider_url" json:"provider_url,omitempty"`
	Fingerprint     *string          `db:"fingerprint" json:"fingerprint,omitempty"`
	CreatedAt       time.Time        `db:"created_at" json:"created_at"`
}

// ManualIdentity returns the canonical manual identity's provider_track_id
// for a given Track id.
func ManualIdentity(trackID int) string {
	return "manual:" + strconv.Itoa(trackID)
}

// Playlist is a named grouping of tracks, either manual or provider-sourced.
type Playlist struct {
	ID                 int              `db:"id" json:"id"`
	Provider           IdentityProvider `db:"provider" json:"provider"`
	ProviderPlaylistID *string          `db:"provider_playlist_id" json:"provider_playlist_id,omitempty"`
	Name               string           `db:"name" json:"name"`
	Owner              *string          `db:"owner" json:"owner,omitempty"`
	Snapshot           *string          `db:"snapshot" json:"snapshot,omitempty"`
	SourceAccountID    *int             `db:"source_account_id" json:"source_account_id,omitempty"`
	Selected           bool             `db:"selected" json:"selected"`
	CreatedAt          time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time        `db:"updated_at" json:"updated_at"`
}

// PlaylistTrack is the link record between a Playlist and a Track.
type PlaylistTrack struct {
	PlaylistID int        `db:"playlist_id" json:"playlist_id"`
	TrackID    int        `db:"track_id" json:"track_id"`
	Position   *int       `db:"position" json:"position,omitempty"`
	AddedAt    *time.Time `db:"added_at" json:"added_at,omitempty"`
}

// SearchCandidate is a ranked extractor result persisted for a Track.
type SearchCandidate struct {
	ID             int       `db:"id" json:"id"`
	TrackID        int       `db:"track_id" json:"track_id"`
	Provider       string    `db:"provider" json:"provider"`
	ExternalID     string    `db:"external_id" json:"external_id"`
	URL            string    `db:"url" json:"url"`
	Title          string    `db:"title" json:"title"`
	Channel        *string   `db:"channel" json:"channel,omitempty"`
	DurationSec    *int      `db:"duration_sec" json:"duration_sec,omitempty"`
	ThumbnailURL   *string   `db:"thumbnail_url" json:"thumbnail_url,omitempty"`
	Score          float64   `db:"score" json:"score"`
	Chosen         bool      `db:"chosen" json:"chosen"`
	ScoreBreakdown *string   `db:"score_breakdown" json:"score_breakdown,omitempty"` // JSON-encoded ranking.Breakdown
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// Download is one acquisition attempt for a Track.
type Download struct {
	ID            int            `db:"id" json:"id"`
	TrackID       int            `db:"track_id" json:"track_id"`
	CandidateID   *int           `db:"candidate_id" json:"candidate_id,omitempty"`
	Provider      string         `db:"provider" json:"provider"`
	Status        DownloadStatus `db:"status" json:"status"`
	FilePath      *string        `db:"filepath" json:"filepath,omitempty"`
	Format        *string        `db:"format" json:"format,omitempty"`
	FilesizeBytes *int64         `db:"filesize_bytes" json:"filesize_bytes,omitempty"`
	Checksum      *string        `db:"checksum" json:"checksum,omitempty"`
	ErrorMessage  *string        `db:"error_message" json:"error_message,omitempty"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
	StartedAt     *time.Time     `db:"started_at" json:"started_at,omitempty"`
	FinishedAt    *time.Time     `db:"finished_at" json:"finished_at,omitempty"`
}

// LibraryFile is the ground truth that a Track has already been acquired.
type LibraryFile struct {
	ID        int        `db:"id" json:"id"`
	TrackID   int        `db:"track_id" json:"track_id"`
	FilePath  string     `db:"filepath" json:"filepath"`
	FileSize  *int64     `db:"file_size" json:"file_size,omitempty"`
	FileMtime *time.Time `db:"file_mtime" json:"file_mtime,omitempty"`
	Checksum  *string    `db:"checksum" json:"checksum,omitempty"`
	Container string     `db:"container" json:"container"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}

// SourceAccount is a connected external-provider account (currently Spotify).
type SourceAccount struct {
	ID          int              `db:"id" json:"id"`
	Provider    IdentityProvider `db:"provider" json:"provider"`
	DisplayName *string          `db:"display_name" json:"display_name,omitempty"`
	CreatedAt   time.Time        `db:"created_at" json:"created_at"`
}

// OAuthToken holds an encrypted-at-rest refresh token for a SourceAccount.
type OAuthToken struct {
	ID                    int       `db:"id" json:"id"`
	SourceAccountID       int       `db:"source_account_id" json:"source_account_id"`
	AccessToken           string    `db:"access_token" json:"-"`
	RefreshTokenEncrypted string    `db:"refresh_token_encrypted" json:"-"`
	ExpiresAt             time.Time `db:"expires_at" json:"expires_at"`
	Scope                 string    `db:"scope" json:"scope"`
	UpdatedAt             time.Time `db:"updated_at" json:"updated_at"`
}

// OAuthState is a short-lived PKCE/csrf handshake record.
type OAuthState struct {
	State        string    `db:"state" json:"state"`
	CodeVerifier string    `db:"code_verifier" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	ExpiresAt    time.Time `db:"expires_at" json:"expires_at"`
}
