package httpapi

import (
	"net/http"

	"github.com/triv3/musicvault/internal/apperr"
	"github.com/triv3/musicvault/internal/domain"
)

// CandidateCreateRequest is a manually-added search candidate, used when an
// operator pastes in a URL the extractor's own search didn't surface.
type CandidateCreateRequest struct {
	TrackID      int     `json:"track_id"`
	Provider     string  `json:"provider"`
	ExternalID   string  `json:"external_id"`
	URL          string  `json:"url"`
	Title        string  `json:"title"`
	Channel      *string `json:"channel,omitempty"`
	DurationSec  *int    `json:"duration_sec,omitempty"`
	ThumbnailURL *string `json:"thumbnail_url,omitempty"`
}

func (s *Server) createCandidate(w http.ResponseWriter, r *http.Request) {
	var req CandidateCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.TrackID == 0 || req.URL == "" || req.Title == "" {
		writeError(w, apperr.Validation("track_id, url, and title are required"))
		return
	}
	if req.Provider == "" {
		req.Provider = "youtube"
	}

	created, err := s.store.CreateCandidate(r.Context(), &domain.SearchCandidate{
		TrackID:      req.TrackID,
		Provider:     req.Provider,
		ExternalID:   req.ExternalID,
		URL:          req.URL,
		Title:        req.Title,
		Channel:      req.Channel,
		DurationSec:  req.DurationSec,
		ThumbnailURL: req.ThumbnailURL,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) listCandidates(w http.ResponseWriter, r *http.Request) {
	trackIDStr := r.URL.Query().Get("track_id")
	if trackIDStr == "" {
		writeError(w, apperr.Validation("track_id query param is required"))
		return
	}
	trackID, err := parseQueryInt(trackIDStr)
	if err != nil {
		writeError(w, err)
		return
	}
	candidates, err := s.store.ListCandidatesByTrack(r.Context(), trackID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, candidates)
}

func (s *Server) listCandidatesEnriched(w http.ResponseWriter, r *http.Request) {
	rows, err := s.store.ListCandidatesEnriched(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) getCandidate(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "candidateID")
	if err != nil {
		writeError(w, err)
		return
	}
	candidate, err := s.store.GetCandidate(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if candidate == nil {
		writeError(w, apperr.NotFound("candidate not found"))
		return
	}
	writeJSON(w, http.StatusOK, candidate)
}

func (s *Server) deleteCandidate(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "candidateID")
	if err != nil {
		writeError(w, err)
		return
	}
	if _, err := s.store.ExecContext(r.Context(), "DELETE FROM search_candidates WHERE id = ?", id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) chooseCandidate(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "candidateID")
	if err != nil {
		writeError(w, err)
		return
	}
	candidate, err := s.store.GetCandidate(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if candidate == nil {
		writeError(w, apperr.NotFound("candidate not found"))
		return
	}
	if err := s.store.ChooseCandidate(r.Context(), candidate.TrackID, id); err != nil {
		writeError(w, err)
		return
	}
	updated, err := s.store.GetCandidate(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}
