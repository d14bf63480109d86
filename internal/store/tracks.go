package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/triv3/musicvault/internal/domain"
)

// CreateTrack inserts t and atomically creates its manual:{id} identity,
// per the Catalog's "every Track has an identity" invariant.
func (db *DB) CreateTrack(ctx context.Context, t *domain.Track) (*domain.Track, error) {
	var created domain.Track
	err := db.RunInTx(ctx, func(tx *sqlx.Tx) error {
		row := tx.QueryRowxContext(ctx, `
			INSERT INTO tracks (
				artists, title, normalized_artists, normalized_title, duration_ms, isrc,
				album, album_artist, cover_url, genre, bpm, release_date, spotify_added_at,
				explicit, label, composer, copyright, version, description, url,
				audio_quality, audio_modes, replay_gain, peak, key_name, key_scale,
				barcode, catalog_number, release_type, annotation
			) VALUES (
				?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?
			) RETURNING id, artists, title, normalized_artists, normalized_title, duration_ms,
				isrc, album, album_artist, cover_url, genre, bpm, release_date, spotify_added_at,
				explicit, label, composer, copyright, version, description, url, audio_quality,
				audio_modes, replay_gain, peak, key_name, key_scale, barcode, catalog_number,
				release_type, annotation, created_at, updated_at`,
			t.Artists, t.Title, t.NormalizedArtists, t.NormalizedTitle, t.DurationMS, t.ISRC,
			t.Album, t.AlbumArtist, t.CoverURL, t.Genre, t.BPM, t.ReleaseDate, t.SpotifyAddedAt,
			t.Explicit, t.Label, t.Composer, t.Copyright, t.Version, t.Description, t.URL,
			t.AudioQuality, t.AudioModes, t.ReplayGain, t.Peak, t.KeyName, t.KeyScale,
			t.Barcode, t.CatalogNumber, t.ReleaseType, t.Annotation,
		)
		if err := row.StructScan(&created); err != nil {
			return fmt.Errorf("insert track: %w", err)
		}

		_, err := tx.ExecContext(ctx, `
			INSERT INTO track_identities (track_id, provider, provider_track_id)
			VALUES (?, ?, ?)`,
			created.ID, domain.ProviderManual, domain.ManualIdentity(created.ID),
		)
		if err != nil {
			return fmt.Errorf("create manual identity: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// GetTrack fetches a Track by id.
func (db *DB) GetTrack(ctx context.Context, id int) (*domain.Track, error) {
	var t domain.Track
	err := db.GetContext(ctx, &t, "SELECT * FROM tracks WHERE id = ?", id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// FindTrackByNormalized looks up a track by its dedup key, used by manual
// import and sync to avoid creating duplicate Tracks for the same song.
func (db *DB) FindTrackByNormalized(ctx context.Context, normalizedArtists, normalizedTitle string) (*domain.Track, error) {
	var t domain.Track
	err := db.GetContext(ctx, &t,
		"SELECT * FROM tracks WHERE normalized_artists = ? AND normalized_title = ? LIMIT 1",
		normalizedArtists, normalizedTitle,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// FindTrackByIdentity looks up a track by external provider identity.
func (db *DB) FindTrackByIdentity(ctx context.Context, provider domain.IdentityProvider, providerTrackID string) (*domain.Track, error) {
	var t domain.Track
	err := db.GetContext(ctx, &t, `
		SELECT tracks.* FROM tracks
		JOIN track_identities ON track_identities.track_id = tracks.id
		WHERE track_identities.provider = ? AND track_identities.provider_track_id = ?`,
		provider, providerTrackID,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ListTracks returns every Track, ordered by most recently created.
func (db *DB) ListTracks(ctx context.Context) ([]domain.Track, error) {
	var tracks []domain.Track
	err := db.SelectContext(ctx, &tracks, "SELECT * FROM tracks ORDER BY created_at DESC")
	return tracks, err
}

// trackUpdatableColumns allow-lists the columns UpdateTrackFields may touch,
// avoiding reflection-driven dynamic updates over the full struct shape.
var trackUpdatableColumns = map[string]bool{
	"artists": true, "title": true, "normalized_artists": true, "normalized_title": true,
	"duration_ms": true, "isrc": true, "album": true, "album_artist": true, "cover_url": true,
	"genre": true, "bpm": true, "release_date": true, "spotify_added_at": true, "explicit": true,
	"label": true, "composer": true, "copyright": true, "version": true, "description": true,
	"url": true, "audio_quality": true, "audio_modes": true, "replay_gain": true, "peak": true,
	"key_name": true, "key_scale": true, "barcode": true, "catalog_number": true,
	"release_type": true, "annotation": true,
}

// UpdateTrackFields patches the given columns on Track id. Unknown column
// names are rejected rather than silently ignored.
func (db *DB) UpdateTrackFields(ctx context.Context, id int, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	setClauses := "updated_at = CURRENT_TIMESTAMP"
	args := []any{}
	for col, val := range fields {
		if !trackUpdatableColumns[col] {
			return fmt.Errorf("update track: column %q is not updatable", col)
		}
		setClauses += fmt.Sprintf(", %s = ?", col)
		args = append(args, val)
	}
	args = append(args, id)
	_, err := db.ExecContext(ctx, fmt.Sprintf("UPDATE tracks SET %s WHERE id = ?", setClauses), args...)
	return err
}

// DeleteTrack cascades Identities, Candidates, Downloads, PlaylistLinks, and
// LibraryFiles before removing the Track itself (manual cascade: the schema
// has no ON DELETE CASCADE, so each child table is cleared explicitly).
func (db *DB) DeleteTrack(ctx context.Context, id int) error {
	return db.RunInTx(ctx, func(tx *sqlx.Tx) error {
		stmts := []string{
			"DELETE FROM track_identities WHERE track_id = ?",
			"DELETE FROM search_candidates WHERE track_id = ?",
			"DELETE FROM downloads WHERE track_id = ?",
			"DELETE FROM playlist_tracks WHERE track_id = ?",
			"DELETE FROM library_files WHERE track_id = ?",
			"DELETE FROM tracks WHERE id = ?",
		}
		for _, stmt := range stmts {
			if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
				return fmt.Errorf("delete track cascade (%s): %w", stmt, err)
			}
		}
		return nil
	})
}

// CreateIdentity links an existing Track to an external provider entry.
func (db *DB) CreateIdentity(ctx context.Context, identity *domain.TrackIdentity) (*domain.TrackIdentity, error) {
	row := db.QueryRowxContext(ctx, `
		INSERT INTO track_identities (track_id, provider, provider_track_id, provider_url, fingerprint)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id, track_id, provider, provider_track_id, provider_url, fingerprint, created_at`,
		identity.TrackID, identity.Provider, identity.ProviderTrackID, identity.ProviderURL, identity.Fingerprint,
	)
	var created domain.TrackIdentity
	if err := row.StructScan(&created); err != nil {
		return nil, fmt.Errorf("create identity: %w", err)
	}
	return &created, nil
}

// ListIdentitiesByTrack returns every identity a Track holds.
func (db *DB) ListIdentitiesByTrack(ctx context.Context, trackID int) ([]domain.TrackIdentity, error) {
	var identities []domain.TrackIdentity
	err := db.SelectContext(ctx, &identities, "SELECT * FROM track_identities WHERE track_id = ?", trackID)
	return identities, err
}
