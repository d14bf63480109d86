package sync

import (
	"context"
	"time"

	"github.com/zmb3/spotify/v2"

	"github.com/triv3/musicvault/internal/apperr"
	"github.com/triv3/musicvault/internal/domain"
	"github.com/triv3/musicvault/internal/store"
)

// RemotePlaylist is what Discover hands back: enough to let a caller decide
// what to Select, without yet touching the catalog.
type RemotePlaylist struct {
	ProviderPlaylistID string `json:"provider_playlist_id"`
	Name               string `json:"name"`
	Owner              string `json:"owner"`
	TrackCount         int    `json:"track_count"`
	Selected           bool   `json:"selected"`
}

// Discover lists every playlist visible to the connected account and flags
// which ones are already selected for sync.
func (ing *Ingestor) Discover(ctx context.Context, accountID int) ([]RemotePlaylist, error) {
	client, err := ing.spotifyClient(ctx, accountID)
	if err != nil {
		return nil, err
	}

	selected, err := ing.store.ListSelectedPlaylists(ctx)
	if err != nil {
		return nil, apperr.Infrastructure("list selected playlists", err)
	}
	selectedIDs := make(map[string]bool, len(selected))
	for _, p := range selected {
		if p.ProviderPlaylistID != nil {
			selectedIDs[*p.ProviderPlaylistID] = true
		}
	}

	var out []RemotePlaylist
	limit := 50
	for offset := 0; ; offset += limit {
		page, err := client.CurrentUsersPlaylists(ctx, spotify.Limit(limit), spotify.Offset(offset))
		if err != nil {
			return nil, apperr.ExternalProvider("list spotify playlists", err)
		}
		for _, p := range page.Playlists {
			out = append(out, RemotePlaylist{
				ProviderPlaylistID: string(p.ID),
				Name:               p.Name,
				Owner:              p.Owner.DisplayName,
				TrackCount:         int(p.Tracks.Total),
				Selected:           selectedIDs[string(p.ID)],
			})
		}
		if len(page.Playlists) < limit {
			break
		}
	}
	return out, nil
}

// Select is a set operation: exactly the given provider playlist ids end up
// selected for this account, every other playlist of the account's is
// unselected. A playlist not yet in the catalog is created, already
// selected, from its Spotify metadata.
func (ing *Ingestor) Select(ctx context.Context, accountID int, providerPlaylistIDs []string) error {
	want := make(map[string]bool, len(providerPlaylistIDs))
	for _, id := range providerPlaylistIDs {
		want[id] = true
	}

	client, err := ing.spotifyClient(ctx, accountID)
	if err != nil {
		return err
	}

	for providerID := range want {
		existing, err := ing.store.FindPlaylistByProviderID(ctx, domain.ProviderSpotify, providerID)
		if err != nil {
			return apperr.Infrastructure("find playlist", err)
		}
		if existing != nil {
			if err := ing.store.SetPlaylistSelected(ctx, existing.ID, true); err != nil {
				return apperr.Infrastructure("select playlist", err)
			}
			continue
		}

		full, err := client.GetPlaylist(ctx, spotify.ID(providerID))
		if err != nil {
			return apperr.ExternalProvider("fetch spotify playlist", err)
		}
		name := full.Name
		owner := full.Owner.DisplayName
		snapshot := full.SnapshotID
		created, err := ing.store.CreatePlaylist(ctx, &domain.Playlist{
			Provider:           domain.ProviderSpotify,
			ProviderPlaylistID: &providerID,
			Name:               name,
			Owner:              &owner,
			Snapshot:           &snapshot,
			SourceAccountID:    &accountID,
			Selected:           true,
		})
		if err != nil {
			return apperr.Infrastructure("create playlist", err)
		}
		_ = created
	}

	all, err := ing.store.ListPlaylists(ctx)
	if err != nil {
		return apperr.Infrastructure("list playlists", err)
	}
	for _, p := range all {
		if p.Provider != domain.ProviderSpotify || p.SourceAccountID == nil || *p.SourceAccountID != accountID {
			continue
		}
		if p.ProviderPlaylistID == nil {
			continue
		}
		shouldSelect := want[*p.ProviderPlaylistID]
		if shouldSelect != p.Selected {
			if err := ing.store.SetPlaylistSelected(ctx, p.ID, shouldSelect); err != nil {
				return apperr.Infrastructure("update playlist selection", err)
			}
		}
	}
	return nil
}

// PlaylistSyncResult summarizes one playlist's reconciliation.
type PlaylistSyncResult struct {
	PlaylistID    int    `json:"playlist_id"`
	Name          string `json:"name"`
	Skipped       bool   `json:"skipped"`
	TracksCreated int    `json:"tracks_created"`
	TracksUpdated int    `json:"tracks_updated"`
	LinksCreated  int    `json:"links_created"`
	LinksRemoved  int    `json:"links_removed"`
}

// SyncResult is the total of every playlist touched by Sync, plus the sum
// of every per-playlist field so a caller doesn't have to add them up.
type SyncResult struct {
	Playlists     []PlaylistSyncResult `json:"playlists"`
	TracksCreated int                  `json:"tracks_created"`
	TracksUpdated int                  `json:"tracks_updated"`
	LinksCreated  int                  `json:"links_created"`
	LinksRemoved  int                  `json:"links_removed"`
	Skipped       int                  `json:"skipped"`
}

func (r *SyncResult) add(one PlaylistSyncResult) {
	r.Playlists = append(r.Playlists, one)
	if one.Skipped {
		r.Skipped++
		return
	}
	r.TracksCreated += one.TracksCreated
	r.TracksUpdated += one.TracksUpdated
	r.LinksCreated += one.LinksCreated
	r.LinksRemoved += one.LinksRemoved
}

// Sync reconciles every selected playlist of the account against the
// catalog: unchanged snapshots are skipped unless force is set, changed or
// new ones are re-fetched track by track, deduped first by the Spotify
// track-id identity then by normalized artists/title (ISRC is not used
// for matching), and PlaylistTrack membership
// is replaced wholesale to match what Spotify reports now.
func (ing *Ingestor) Sync(ctx context.Context, accountID int, force bool) (SyncResult, error) {
	client, err := ing.spotifyClient(ctx, accountID)
	if err != nil {
		return SyncResult{}, err
	}

	playlists, err := ing.store.ListSelectedPlaylists(ctx)
	if err != nil {
		return SyncResult{}, apperr.Infrastructure("list selected playlists", err)
	}

	result := SyncResult{}
	for _, playlist := range playlists {
		if playlist.SourceAccountID == nil || *playlist.SourceAccountID != accountID || playlist.ProviderPlaylistID == nil {
			continue
		}

		full, err := client.GetPlaylist(ctx, spotify.ID(*playlist.ProviderPlaylistID))
		if err != nil {
			return result, apperr.ExternalProvider("fetch spotify playlist", err)
		}

		if !force && playlist.Snapshot != nil && *playlist.Snapshot == full.SnapshotID {
			result.add(PlaylistSyncResult{PlaylistID: playlist.ID, Name: playlist.Name, Skipped: true})
			continue
		}

		one, err := ing.syncOnePlaylist(ctx, client, &playlist)
		if err != nil {
			return result, err
		}
		if err := ing.store.UpdatePlaylistSnapshot(ctx, playlist.ID, full.SnapshotID); err != nil {
			return result, apperr.Infrastructure("update playlist snapshot", err)
		}
		result.add(one)
	}
	return result, nil
}

func (ing *Ingestor) syncOnePlaylist(ctx context.Context, client *spotify.Client, playlist *domain.Playlist) (PlaylistSyncResult, error) {
	out := PlaylistSyncResult{PlaylistID: playlist.ID, Name: playlist.Name}
	var items []store.PlaylistTrackInput
	limit := 100

	for offset := 0; ; offset += limit {
		page, err := client.GetPlaylistTracks(ctx, spotify.ID(*playlist.ProviderPlaylistID),
			spotify.Limit(limit), spotify.Offset(offset))
		if err != nil {
			return out, apperr.ExternalProvider("fetch spotify playlist tracks", err)
		}
		for _, item := range page.Tracks {
			if item.IsLocal || item.Track.ID == "" {
				continue
			}
			addedAt := parseSpotifyAddedAt(item.AddedAt)
			trackID, created, updated, err := ing.upsertRemoteTrack(ctx, &item.Track, addedAt)
			if err != nil {
				return out, err
			}
			items = append(items, store.PlaylistTrackInput{TrackID: trackID, AddedAt: addedAt})
			if created {
				out.TracksCreated++
			} else if updated {
				out.TracksUpdated++
			}
		}
		if len(page.Tracks) < limit {
			break
		}
	}

	linksCreated, linksRemoved, err := ing.store.ReplacePlaylistTracks(ctx, playlist.ID, items)
	if err != nil {
		return out, apperr.Infrastructure("replace playlist tracks", err)
	}
	out.LinksCreated = linksCreated
	out.LinksRemoved = linksRemoved
	return out, nil
}

// parseSpotifyAddedAt parses the RFC3339 added_at Spotify reports per
// playlist item, returning nil rather than erroring on an empty or
// malformed value (local tracks and some legacy playlists omit it).
func parseSpotifyAddedAt(raw string) *time.Time {
	if raw == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil
	}
	return &t
}

// upsertRemoteTrack finds or creates the catalog Track for one Spotify
// FullTrack, preferring its Spotify track-id TrackIdentity and falling back
// to the normalized artists/title dedup key used by manual entry; a track's
// ISRC is stored and refreshed but never used to find a match. On a
// match it refreshes Album/ISRC/DurationMS/SpotifyAddedAt from the fresher
// Spotify data whenever any of them changed.
func (ing *Ingestor) upsertRemoteTrack(ctx context.Context, t *spotify.FullTrack, addedAt *time.Time) (trackID int, created, updated bool, err error) {
	existing, err := ing.store.FindTrackByIdentity(ctx, domain.ProviderSpotify, string(t.ID))
	if err != nil {
		return 0, false, false, apperr.Infrastructure("find track identity", err)
	}
	if existing != nil {
		updated, err = ing.refreshTrackFromSpotify(ctx, existing, t, addedAt)
		return existing.ID, false, updated, err
	}

	artists := joinArtistNames(t.Artists)
	title := t.Name
	normArtists, normTitle := trackDedupKey(artists, title)

	byDedup, err := ing.store.FindTrackByNormalized(ctx, normArtists, normTitle)
	if err != nil {
		return 0, false, false, apperr.Infrastructure("find track by dedup key", err)
	}

	var track *domain.Track
	if byDedup != nil {
		track = byDedup
		updated, err = ing.refreshTrackFromSpotify(ctx, track, t, addedAt)
		if err != nil {
			return 0, false, false, err
		}
	} else {
		album := t.Album.Name
		isrc := t.ExternalIDs["isrc"]
		durationMS := int64(t.Duration)
		track, err = ing.store.CreateTrack(ctx, &domain.Track{
			Artists:           artists,
			Title:             title,
			NormalizedArtists: normArtists,
			NormalizedTitle:   normTitle,
			Album:             &album,
			ISRC:              &isrc,
			DurationMS:        &durationMS,
			SpotifyAddedAt:    addedAt,
		})
		if err != nil {
			return 0, false, false, apperr.Infrastructure("create track", err)
		}
		created = true
	}

	if _, err := ing.store.CreateIdentity(ctx, &domain.TrackIdentity{
		TrackID:         track.ID,
		Provider:        domain.ProviderSpotify,
		ProviderTrackID: string(t.ID),
	}); err != nil {
		return 0, false, false, apperr.Infrastructure("create track identity", err)
	}
	return track.ID, created, updated, nil
}

// refreshTrackFromSpotify updates a matched Track's Album/ISRC/DurationMS/
// SpotifyAddedAt when Spotify's current data differs from what's stored,
// so a playlist re-sync keeps the catalog's metadata current and feeds the
// Timestamp Capability a SpotifyAddedAt it didn't have before.
func (ing *Ingestor) refreshTrackFromSpotify(ctx context.Context, track *domain.Track, t *spotify.FullTrack, addedAt *time.Time) (bool, error) {
	fields := map[string]any{}

	if album := t.Album.Name; track.Album == nil || *track.Album != album {
		fields["album"] = album
	}
	if isrc := t.ExternalIDs["isrc"]; isrc != "" && (track.ISRC == nil || *track.ISRC != isrc) {
		fields["isrc"] = isrc
	}
	if durationMS := int64(t.Duration); track.DurationMS == nil || *track.DurationMS != durationMS {
		fields["duration_ms"] = durationMS
	}
	if addedAt != nil && (track.SpotifyAddedAt == nil || !track.SpotifyAddedAt.Equal(*addedAt)) {
		fields["spotify_added_at"] = *addedAt
	}

	if len(fields) == 0 {
		return false, nil
	}
	if err := ing.store.UpdateTrackFields(ctx, track.ID, fields); err != nil {
		return false, apperr.Infrastructure("update track from spotify", err)
	}
	return true, nil
}

func joinArtistNames(artists []spotify.SimpleArtist) string {
	names := make([]string, 0, len(artists))
	for _, a := range artists {
		names = append(names, a.Name)
	}
	out := ""
	for i, n := range names {
		if i > 0 {
			out += ", "
		}
		out += n
	}
	return out
}

func (ing *Ingestor) spotifyClient(ctx context.Context, accountID int) (*spotify.Client, error) {
	httpClient, err := ing.httpClient(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return spotify.New(httpClient), nil
}
