package store

import (
	"context"
	"time"

	"github.com/triv3/musicvault/internal/domain"
)

// TrackWithPlaylistInfo is a Track enriched with the aggregated playlist
// membership an orchestration client needs without issuing N+1 queries.
type TrackWithPlaylistInfo struct {
	domain.Track
	PlaylistNames  string     `db:"playlist_names" json:"playlist_names"`
	PlaylistCount  int        `db:"playlist_count" json:"playlist_count"`
	LatestAddedAt  *time.Time `db:"latest_added_at" json:"latest_added_at,omitempty"`
}

// ListTracksWithPlaylistInfo returns every Track alongside a comma-joined
// summary of the playlists it belongs to, for the catalog overview screen.
func (db *DB) ListTracksWithPlaylistInfo(ctx context.Context) ([]TrackWithPlaylistInfo, error) {
	var rows []TrackWithPlaylistInfo
	err := db.SelectContext(ctx, &rows, `
		SELECT tracks.*,
			COALESCE(GROUP_CONCAT(playlists.name, ', '), '') AS playlist_names,
			COUNT(playlists.id) AS playlist_count,
			MAX(playlist_tracks.added_at) AS latest_added_at
		FROM tracks
		LEFT JOIN playlist_tracks ON playlist_tracks.track_id = tracks.id
		LEFT JOIN playlists ON playlists.id = playlist_tracks.playlist_id
		GROUP BY tracks.id
		ORDER BY tracks.created_at DESC`)
	return rows, err
}

// ListTracksReadyForDownload returns every Track that has a chosen candidate
// but no recorded LibraryFile yet — the acquisition queue's source set.
func (db *DB) ListTracksReadyForDownload(ctx context.Context) ([]domain.Track, error) {
	var tracks []domain.Track
	err := db.SelectContext(ctx, &tracks, `
		SELECT tracks.* FROM tracks
		JOIN search_candidates ON search_candidates.track_id = tracks.id AND search_candidates.chosen = 1
		WHERE NOT EXISTS (SELECT 1 FROM library_files WHERE library_files.track_id = tracks.id)
		ORDER BY tracks.created_at ASC`)
	return tracks, err
}

// CandidateEnriched is a SearchCandidate alongside its Track's display name,
// for the review-candidates screen.
type CandidateEnriched struct {
	domain.SearchCandidate
	TrackArtists string `db:"track_artists" json:"track_artists"`
	TrackTitle   string `db:"track_title" json:"track_title"`
}

// ListCandidatesEnriched returns every SearchCandidate joined to its Track's
// artists/title, best score first within each track.
func (db *DB) ListCandidatesEnriched(ctx context.Context) ([]CandidateEnriched, error) {
	var rows []CandidateEnriched
	err := db.SelectContext(ctx, &rows, `
		SELECT search_candidates.*, tracks.artists AS track_artists, tracks.title AS track_title
		FROM search_candidates
		JOIN tracks ON tracks.id = search_candidates.track_id
		ORDER BY search_candidates.track_id ASC, search_candidates.score DESC`)
	return rows, err
}

// DownloadWithTrack is a Download joined to its Track's display name.
type DownloadWithTrack struct {
	domain.Download
	TrackArtists string `db:"track_artists" json:"track_artists"`
	TrackTitle   string `db:"track_title" json:"track_title"`
}

// ListDownloadsWithTracks returns every Download joined to its Track, most
// recent first.
func (db *DB) ListDownloadsWithTracks(ctx context.Context) ([]DownloadWithTrack, error) {
	var rows []DownloadWithTrack
	err := db.SelectContext(ctx, &rows, `
		SELECT downloads.*, tracks.artists AS track_artists, tracks.title AS track_title
		FROM downloads
		JOIN tracks ON tracks.id = downloads.track_id
		ORDER BY downloads.created_at DESC`)
	return rows, err
}

// ListAllDownloads returns every Download, most recent first.
func (db *DB) ListAllDownloads(ctx context.Context) ([]domain.Download, error) {
	var downloads []domain.Download
	err := db.SelectContext(ctx, &downloads, "SELECT * FROM downloads ORDER BY created_at DESC")
	return downloads, err
}

// PlaylistEntry is a Track paired with its membership metadata in one
// specific Playlist.
type PlaylistEntry struct {
	domain.Track
	Position *int       `db:"position" json:"position,omitempty"`
	AddedAt  *time.Time `db:"added_at" json:"added_at,omitempty"`
}

// ListPlaylistEntries returns a playlist's tracks in position order along
// with their membership metadata.
func (db *DB) ListPlaylistEntries(ctx context.Context, playlistID int) ([]PlaylistEntry, error) {
	var rows []PlaylistEntry
	err := db.SelectContext(ctx, &rows, `
		SELECT tracks.*, playlist_tracks.position, playlist_tracks.added_at
		FROM tracks
		JOIN playlist_tracks ON playlist_tracks.track_id = tracks.id
		WHERE playlist_tracks.playlist_id = ?
		ORDER BY playlist_tracks.position ASC`, playlistID)
	return rows, err
}

// PlaylistStats summarizes one playlist's acquisition progress.
type PlaylistStats struct {
	PlaylistID   int    `db:"playlist_id" json:"playlist_id"`
	Name         string `db:"name" json:"name"`
	TotalTracks  int    `db:"total_tracks" json:"total_tracks"`
	Downloaded   int    `db:"downloaded" json:"downloaded"`
	NotFound     int    `db:"not_found" json:"not_found"`
}

// ListPlaylistStats summarizes every playlist's acquisition progress,
// optionally restricted to playlists flagged selected.
func (db *DB) ListPlaylistStats(ctx context.Context, selectedOnly bool) ([]PlaylistStats, error) {
	query := `
		SELECT
			playlists.id AS playlist_id,
			playlists.name AS name,
			COUNT(DISTINCT playlist_tracks.track_id) AS total_tracks,
			COUNT(DISTINCT library_files.track_id) AS downloaded,
			COUNT(DISTINCT CASE WHEN tracks.annotation = 'searched_not_found' THEN tracks.id END) AS not_found
		FROM playlists
		LEFT JOIN playlist_tracks ON playlist_tracks.playlist_id = playlists.id
		LEFT JOIN tracks ON tracks.id = playlist_tracks.track_id
		LEFT JOIN library_files ON library_files.track_id = tracks.id`
	if selectedOnly {
		query += " WHERE playlists.selected = 1"
	}
	query += " GROUP BY playlists.id ORDER BY playlists.name ASC"

	var rows []PlaylistStats
	err := db.SelectContext(ctx, &rows, query)
	return rows, err
}
