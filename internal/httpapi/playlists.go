package httpapi

import (
	"net/http"

	"github.com/triv3/musicvault/internal/apperr"
	"github.com/triv3/musicvault/internal/domain"
)

func (s *Server) listPlaylists(w http.ResponseWriter, r *http.Request) {
	playlists, err := s.store.ListPlaylists(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, playlists)
}

func (s *Server) playlistStats(w http.ResponseWriter, r *http.Request) {
	selectedOnly := r.URL.Query().Get("selected_only") == "true"
	stats, err := s.store.ListPlaylistStats(r.Context(), selectedOnly)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// PlaylistMembershipRequest pins a Track's playlist memberships, across
// every known playlist, to exactly the given set, the same set-replacement
// contract as Spotify sync uses for provider playlists.
type PlaylistMembershipRequest struct {
	TrackID     int   `json:"track_id"`
	PlaylistIDs []int `json:"playlist_ids"`
}

func (s *Server) setPlaylistMemberships(w http.ResponseWriter, r *http.Request) {
	var req PlaylistMembershipRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.TrackID == 0 {
		writeError(w, apperr.Validation("track_id is required"))
		return
	}

	current, err := s.store.ListPlaylists(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	want := make(map[int]bool, len(req.PlaylistIDs))
	for _, id := range req.PlaylistIDs {
		want[id] = true
	}
	for _, p := range current {
		trackIDs, err := s.store.ListTrackIDsInPlaylist(r.Context(), p.ID)
		if err != nil {
			writeError(w, err)
			return
		}
		isMember := false
		for _, id := range trackIDs {
			if id == req.TrackID {
				isMember = true
				break
			}
		}
		switch {
		case want[p.ID] && !isMember:
			if err := s.store.LinkTrack(r.Context(), p.ID, req.TrackID, nil, nil); err != nil {
				writeError(w, err)
				return
			}
		case !want[p.ID] && isMember:
			if err := s.store.UnlinkTrack(r.Context(), p.ID, req.TrackID); err != nil {
				writeError(w, err)
				return
			}
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) discoverSpotifyPlaylists(w http.ResponseWriter, r *http.Request) {
	accountID, err := s.spotifyAccountID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	playlists, err := s.sync.Discover(r.Context(), accountID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, playlists)
}

// PlaylistSelectRequest names exactly the provider playlists that should be
// selected for sync going forward; everything else for the account is
// unselected.
type PlaylistSelectRequest struct {
	ProviderPlaylistIDs []string `json:"provider_playlist_ids"`
}

func (s *Server) selectSpotifyPlaylists(w http.ResponseWriter, r *http.Request) {
	accountID, err := s.spotifyAccountID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req PlaylistSelectRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := s.sync.Select(r.Context(), accountID, req.ProviderPlaylistIDs); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) syncSpotifyPlaylists(w http.ResponseWriter, r *http.Request) {
	accountID, err := s.spotifyAccountID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	force := r.URL.Query().Get("force") == "true"
	result, err := s.sync.Sync(r.Context(), accountID, force)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) playlistEntries(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "playlistID")
	if err != nil {
		writeError(w, err)
		return
	}
	entries, err := s.store.ListPlaylistEntries(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) playlistAutoDownload(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "playlistID")
	if err != nil {
		writeError(w, err)
		return
	}
	result, err := s.scheduler.AutoDownload(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// playlistRetryNotFound clears the searched_not_found annotation on every
// track in the playlist that carries it and reports how many were cleared
// as "retried". It runs no search itself; the cleared tracks are searched
// again only by a later auto_download or YouTube search call.
func (s *Server) playlistRetryNotFound(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "playlistID")
	if err != nil {
		writeError(w, err)
		return
	}
	trackIDs, err := s.store.ListTrackIDsInPlaylist(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	retried := 0
	for _, trackID := range trackIDs {
		track, err := s.store.GetTrack(r.Context(), trackID)
		if err != nil {
			writeError(w, err)
			return
		}
		if track == nil || track.Annotation == nil || domain.TrackAnnotation(*track.Annotation) != domain.AnnotationSearchedNotFound {
			continue
		}
		if err := s.store.UpdateTrackFields(r.Context(), trackID, map[string]any{"annotation": nil}); err != nil {
			writeError(w, err)
			return
		}
		retried++
	}
	writeJSON(w, http.StatusOK, map[string]int{"retried": retried})
}

// spotifyAccountID resolves the account a sync request operates against.
// The API is single-operator: whichever account is connected is the one
// every playlist endpoint acts on, so ensure_account's own id is reused
// rather than requiring an account_id query param everywhere.
func (s *Server) spotifyAccountID(r *http.Request) (int, error) {
	account, err := s.sync.EnsureAccount(r.Context())
	if err != nil {
		return 0, err
	}
	return account.ID, nil
}
