package httpapi

import (
	"net/http"

	"github.com/triv3/musicvault/internal/apperr"
)

// DownloadEnqueueRequest requests one acquisition attempt.
type DownloadEnqueueRequest struct {
	TrackID     int  `json:"track_id"`
	CandidateID *int `json:"candidate_id,omitempty"`
	Force       bool `json:"force,omitempty"`
}

func (s *Server) enqueueDownload(w http.ResponseWriter, r *http.Request) {
	var req DownloadEnqueueRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.TrackID == 0 {
		writeError(w, apperr.Validation("track_id is required"))
		return
	}
	download, err := s.scheduler.Enqueue(r.Context(), req.TrackID, req.CandidateID, req.Force)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, download)
}

func (s *Server) cancelDownload(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "downloadID")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.scheduler.Cancel(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) stopAllDownloads(w http.ResponseWriter, r *http.Request) {
	n, err := s.scheduler.StopAll(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"drained": n})
}

func (s *Server) restartWorker(w http.ResponseWriter, r *http.Request) {
	s.scheduler.RestartWorker()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) downloadStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.scheduler.Status(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) downloadLogs(w http.ResponseWriter, r *http.Request) {
	count := 0
	if v := r.URL.Query().Get("count"); v != "" {
		if n, err := parseQueryInt(v); err == nil {
			count = n
		}
	}
	writeJSON(w, http.StatusOK, s.scheduler.Logs(count))
}

func (s *Server) listDownloads(w http.ResponseWriter, r *http.Request) {
	downloads, err := s.store.ListAllDownloads(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, downloads)
}

func (s *Server) listDownloadsWithTracks(w http.ResponseWriter, r *http.Request) {
	rows, err := s.store.ListDownloadsWithTracks(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}
