package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/triv3/musicvault/internal/domain"
)

// CreatePlaylist persists a new Playlist, manual or provider-sourced.
func (db *DB) CreatePlaylist(ctx context.Context, p *domain.Playlist) (*domain.Playlist, error) {
	row := db.QueryRowxContext(ctx, `
		INSERT INTO playlists (provider, provider_playlist_id, name, owner, snapshot, source_account_id, selected)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING id, provider, provider_playlist_id, name, owner, snapshot, source_account_id,
			selected, created_at, updated_at`,
		p.Provider, p.ProviderPlaylistID, p.Name, p.Owner, p.Snapshot, p.SourceAccountID, p.Selected,
	)
	var created domain.Playlist
	if err := row.StructScan(&created); err != nil {
		return nil, fmt.Errorf("create playlist: %w", err)
	}
	return &created, nil
}

// GetPlaylist fetches a Playlist by id.
func (db *DB) GetPlaylist(ctx context.Context, id int) (*domain.Playlist, error) {
	var p domain.Playlist
	err := db.GetContext(ctx, &p, "SELECT * FROM playlists WHERE id = ?", id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// FindPlaylistByProviderID looks up a Playlist by its external identity,
// used by sync to decide whether an incoming playlist already exists.
func (db *DB) FindPlaylistByProviderID(ctx context.Context, provider domain.IdentityProvider, providerPlaylistID string) (*domain.Playlist, error) {
	var p domain.Playlist
	err := db.GetContext(ctx, &p,
		"SELECT * FROM playlists WHERE provider = ? AND provider_playlist_id = ?",
		provider, providerPlaylistID,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListPlaylists returns every known Playlist.
func (db *DB) ListPlaylists(ctx context.Context) ([]domain.Playlist, error) {
	var playlists []domain.Playlist
	err := db.SelectContext(ctx, &playlists, "SELECT * FROM playlists ORDER BY name ASC")
	return playlists, err
}

// ListSelectedPlaylists returns only the playlists flagged for sync.
func (db *DB) ListSelectedPlaylists(ctx context.Context) ([]domain.Playlist, error) {
	var playlists []domain.Playlist
	err := db.SelectContext(ctx, &playlists, "SELECT * FROM playlists WHERE selected = 1")
	return playlists, err
}

// SetPlaylistSelected toggles whether a playlist is included in sync runs.
func (db *DB) SetPlaylistSelected(ctx context.Context, id int, selected bool) error {
	_, err := db.ExecContext(ctx,
		"UPDATE playlists SET selected = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?", selected, id)
	return err
}

// UpdatePlaylistSnapshot records the provider's snapshot/etag after a sync
// pass, so the next run can short-circuit on an unchanged playlist.
func (db *DB) UpdatePlaylistSnapshot(ctx context.Context, id int, snapshot string) error {
	_, err := db.ExecContext(ctx,
		"UPDATE playlists SET snapshot = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?", snapshot, id)
	return err
}

// LinkTrack idempotently adds a Track to a Playlist at the given position.
// Re-linking an already-linked pair updates position/added_at in place,
// which is what keeps repeated sync runs safe to re-run.
func (db *DB) LinkTrack(ctx context.Context, playlistID, trackID int, position *int, addedAt *time.Time) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO playlist_tracks (playlist_id, track_id, position, added_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(playlist_id, track_id) DO UPDATE SET
			position = excluded.position, added_at = excluded.added_at`,
		playlistID, trackID, position, addedAt,
	)
	return err
}

// UnlinkTrack removes a Track from a Playlist, used when a sync pass
// detects the track was removed upstream.
func (db *DB) UnlinkTrack(ctx context.Context, playlistID, trackID int) error {
	_, err := db.ExecContext(ctx,
		"DELETE FROM playlist_tracks WHERE playlist_id = ? AND track_id = ?", playlistID, trackID)
	return err
}

// ListTrackIDsInPlaylist returns every track id currently linked to a
// playlist, for diffing against an incoming provider track list.
func (db *DB) ListTrackIDsInPlaylist(ctx context.Context, playlistID int) ([]int, error) {
	var ids []int
	err := db.SelectContext(ctx, &ids,
		"SELECT track_id FROM playlist_tracks WHERE playlist_id = ?", playlistID)
	return ids, err
}

// ListTracksInPlaylist returns the full Track rows linked to a playlist, in
// position order.
func (db *DB) ListTracksInPlaylist(ctx context.Context, playlistID int) ([]domain.Track, error) {
	var tracks []domain.Track
	err := db.SelectContext(ctx, &tracks, `
		SELECT tracks.* FROM tracks
		JOIN playlist_tracks ON playlist_tracks.track_id = tracks.id
		WHERE playlist_tracks.playlist_id = ?
		ORDER BY playlist_tracks.position ASC`,
		playlistID,
	)
	return tracks, err
}

// GetLatestPlaylistAddedAt returns the most recent added_at across every
// playlist a track belongs to, or nil if the track has no links or none
// carry a timestamp. Used by the Timestamp Capability to pick mtime.
func (db *DB) GetLatestPlaylistAddedAt(ctx context.Context, trackID int) (*time.Time, error) {
	var addedAt sql.NullTime
	err := db.GetContext(ctx, &addedAt, `
		SELECT MAX(added_at) FROM playlist_tracks WHERE track_id = ? AND added_at IS NOT NULL`,
		trackID,
	)
	if err != nil {
		return nil, err
	}
	if !addedAt.Valid {
		return nil, nil
	}
	return &addedAt.Time, nil
}

// PlaylistTrackInput is one wanted membership row: a track id plus the
// provider's added_at for that specific track, not a playlist-wide value.
type PlaylistTrackInput struct {
	TrackID int
	AddedAt *time.Time
}

// ReplacePlaylistTracks atomically reconciles a playlist's membership with
// want: unlinks whatever is no longer present, links/repositions whatever
// is, preserving each track's own added_at. Used by the Sync Ingestor so a
// playlist sync is one transaction rather than a sequence of independent
// link/unlink calls. Returns how many links were created and removed, so
// callers can report sync deltas.
func (db *DB) ReplacePlaylistTracks(ctx context.Context, playlistID int, want []PlaylistTrackInput) (linksCreated, linksRemoved int, err error) {
	err = db.RunInTx(ctx, func(tx *sqlx.Tx) error {
		existing := map[int]bool{}
		var ids []int
		if err := tx.SelectContext(ctx, &ids, "SELECT track_id FROM playlist_tracks WHERE playlist_id = ?", playlistID); err != nil {
			return fmt.Errorf("list existing links: %w", err)
		}
		for _, id := range ids {
			existing[id] = true
		}

		wantIDs := map[int]bool{}
		for _, item := range want {
			wantIDs[item.TrackID] = true
		}

		for id := range existing {
			if !wantIDs[id] {
				if _, err := tx.ExecContext(ctx,
					"DELETE FROM playlist_tracks WHERE playlist_id = ? AND track_id = ?", playlistID, id,
				); err != nil {
					return fmt.Errorf("unlink track %d: %w", id, err)
				}
				linksRemoved++
			}
		}

		for position, item := range want {
			if !existing[item.TrackID] {
				linksCreated++
			}
			_, err := tx.ExecContext(ctx, `
				INSERT INTO playlist_tracks (playlist_id, track_id, position, added_at)
				VALUES (?, ?, ?, ?)
				ON CONFLICT(playlist_id, track_id) DO UPDATE SET
					position = excluded.position, added_at = excluded.added_at`,
				playlistID, item.TrackID, position, item.AddedAt,
			)
			if err != nil {
				return fmt.Errorf("link track %d: %w", item.TrackID, err)
			}
		}
		return nil
	})
	return linksCreated, linksRemoved, err
}
