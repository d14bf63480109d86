package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/triv3/musicvault/internal/apperr"
	"github.com/triv3/musicvault/internal/domain"
	"github.com/triv3/musicvault/internal/extractor"
	"github.com/triv3/musicvault/internal/normalize"
	"github.com/triv3/musicvault/internal/ranking"
	"github.com/triv3/musicvault/internal/tagging"
)

// TrackResponse is the wire representation of a Track. It carries
// domain.Track's fields except SpotifyAddedAt; CreatedAt and UpdatedAt are
// strings that NewTrackResponse formats with timeFormat.
type TrackResponse struct {
	ID                int        `json:"id"`
	Artists           string     `json:"artists"`
	Title             string     `json:"title"`
	NormalizedArtists string     `json:"normalized_artists"`
	NormalizedTitle   string     `json:"normalized_title"`
	DurationMS        *int64     `json:"duration_ms,omitempty"`
	ISRC              *string    `json:"isrc,omitempty"`
	Album             *string    `json:"album,omitempty"`
	AlbumArtist       *string    `json:"album_artist,omitempty"`
	CoverURL          *string    `json:"cover_url,omitempty"`
	Genre             *string    `json:"genre,omitempty"`
	BPM               *float64   `json:"bpm,omitempty"`
	ReleaseDate       *string    `json:"release_date,omitempty"`
	Explicit          bool       `json:"explicit"`
	Label             *string    `json:"label,omitempty"`
	Composer          *string    `json:"composer,omitempty"`
	Copyright         *string    `json:"copyright,omitempty"`
	Version           *string    `json:"version,omitempty"`
	Description       *string    `json:"description,omitempty"`
	URL               *string    `json:"url,omitempty"`
	AudioQuality      *string    `json:"audio_quality,omitempty"`
	AudioModes        *string    `json:"audio_modes,omitempty"`
	ReplayGain        *float64   `json:"replay_gain,omitempty"`
	Peak              *float64   `json:"peak,omitempty"`
	KeyName           *string    `json:"key_name,omitempty"`
	KeyScale          *string    `json:"key_scale,omitempty"`
	Barcode           *string    `json:"barcode,omitempty"`
	CatalogNumber     *string    `json:"catalog_number,omitempty"`
	ReleaseType       *string    `json:"release_type,omitempty"`
	Annotation        *string    `json:"annotation,omitempty"`
	CreatedAt         string     `json:"created_at"`
	UpdatedAt         string     `json:"updated_at"`
}

// NewTrackResponse builds the wire representation of a persisted Track.
func NewTrackResponse(t *domain.Track) TrackResponse {
	return TrackResponse{
		ID:                t.ID,
		Artists:           t.Artists,
		Title:             t.Title,
		NormalizedArtists: t.NormalizedArtists,
		NormalizedTitle:   t.NormalizedTitle,
		DurationMS:        t.DurationMS,
		ISRC:              t.ISRC,
		Album:             t.Album,
		AlbumArtist:       t.AlbumArtist,
		CoverURL:          t.CoverURL,
		Genre:             t.Genre,
		BPM:               t.BPM,
		ReleaseDate:       t.ReleaseDate,
		Explicit:          t.Explicit,
		Label:             t.Label,
		Composer:          t.Composer,
		Copyright:         t.Copyright,
		Version:           t.Version,
		Description:       t.Description,
		URL:               t.URL,
		AudioQuality:      t.AudioQuality,
		AudioModes:        t.AudioModes,
		ReplayGain:        t.ReplayGain,
		Peak:              t.Peak,
		KeyName:           t.KeyName,
		KeyScale:          t.KeyScale,
		Barcode:           t.Barcode,
		CatalogNumber:     t.CatalogNumber,
		ReleaseType:       t.ReleaseType,
		Annotation:        t.Annotation,
		CreatedAt:         t.CreatedAt.Format(timeFormat),
		UpdatedAt:         t.UpdatedAt.Format(timeFormat),
	}
}

const timeFormat = "2006-01-02T15:04:05Z07:00"

func parseIDParam(r *http.Request, name string) (int, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperr.Validation("invalid id: " + raw)
	}
	return id, nil
}

// TrackCreateRequest is the manual-entry request body for a new Track.
type TrackCreateRequest struct {
	Artists     string   `json:"artists"`
	Title       string   `json:"title"`
	DurationMS  *int64   `json:"duration_ms,omitempty"`
	ISRC        *string  `json:"isrc,omitempty"`
	Album       *string  `json:"album,omitempty"`
	AlbumArtist *string  `json:"album_artist,omitempty"`
	CoverURL    *string  `json:"cover_url,omitempty"`
	Genre       *string  `json:"genre,omitempty"`
	ReleaseDate *string  `json:"release_date,omitempty"`
	Explicit    bool     `json:"explicit,omitempty"`
}

func (s *Server) createTrack(w http.ResponseWriter, r *http.Request) {
	var req TrackCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Artists == "" || req.Title == "" {
		writeError(w, apperr.Validation("artists and title are required"))
		return
	}

	result := normalize.Normalize(req.Artists, req.Title)
	track := &domain.Track{
		Artists:           req.Artists,
		Title:             req.Title,
		NormalizedArtists: result.NormalizedArtists,
		NormalizedTitle:   result.NormalizedTitle,
		DurationMS:        req.DurationMS,
		ISRC:              req.ISRC,
		Album:             req.Album,
		AlbumArtist:       req.AlbumArtist,
		CoverURL:          req.CoverURL,
		Genre:             req.Genre,
		ReleaseDate:       req.ReleaseDate,
		Explicit:          req.Explicit,
	}

	created, err := s.store.CreateTrack(r.Context(), track)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, NewTrackResponse(created))
}

func (s *Server) listTracks(w http.ResponseWriter, r *http.Request) {
	tracks, err := s.store.ListTracks(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]TrackResponse, len(tracks))
	for i := range tracks {
		out[i] = NewTrackResponse(&tracks[i])
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getTrack(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "trackID")
	if err != nil {
		writeError(w, err)
		return
	}
	track, err := s.store.GetTrack(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if track == nil {
		writeError(w, apperr.NotFound("track not found"))
		return
	}
	writeJSON(w, http.StatusOK, NewTrackResponse(track))
}

// TrackUpdateRequest carries only the fields a caller wants to change.
// Explicit per-field pointers, not a reflective diff over the whole struct.
type TrackUpdateRequest struct {
	Artists       *string  `json:"artists,omitempty"`
	Title         *string  `json:"title,omitempty"`
	DurationMS    *int64   `json:"duration_ms,omitempty"`
	ISRC          *string  `json:"isrc,omitempty"`
	Album         *string  `json:"album,omitempty"`
	AlbumArtist   *string  `json:"album_artist,omitempty"`
	CoverURL      *string  `json:"cover_url,omitempty"`
	Genre         *string  `json:"genre,omitempty"`
	BPM           *float64 `json:"bpm,omitempty"`
	ReleaseDate   *string  `json:"release_date,omitempty"`
	Explicit      *bool    `json:"explicit,omitempty"`
	Label         *string  `json:"label,omitempty"`
	Composer      *string  `json:"composer,omitempty"`
	Copyright     *string  `json:"copyright,omitempty"`
	Version       *string  `json:"version,omitempty"`
	Description   *string  `json:"description,omitempty"`
	URL           *string  `json:"url,omitempty"`
	AudioQuality  *string  `json:"audio_quality,omitempty"`
	AudioModes    *string  `json:"audio_modes,omitempty"`
	ReplayGain    *float64 `json:"replay_gain,omitempty"`
	Peak          *float64 `json:"peak,omitempty"`
	KeyName       *string  `json:"key_name,omitempty"`
	KeyScale      *string  `json:"key_scale,omitempty"`
	Barcode       *string  `json:"barcode,omitempty"`
	CatalogNumber *string  `json:"catalog_number,omitempty"`
	ReleaseType   *string  `json:"release_type,omitempty"`
	Annotation    *string  `json:"annotation,omitempty"`
}

// toFields builds the column map UpdateTrackFields applies, recomputing the
// normalized columns whenever artists or title changes so the dedup key
// never drifts out of sync with the display strings.
func (req TrackUpdateRequest) toFields(currentArtists, currentTitle string) map[string]any {
	fields := map[string]any{}
	artists, title := currentArtists, currentTitle
	if req.Artists != nil {
		fields["artists"] = *req.Artists
		artists = *req.Artists
	}
	if req.Title != nil {
		fields["title"] = *req.Title
		title = *req.Title
	}
	if req.Artists != nil || req.Title != nil {
		result := normalize.Normalize(artists, title)
		fields["normalized_artists"] = result.NormalizedArtists
		fields["normalized_title"] = result.NormalizedTitle
	}
	if req.DurationMS != nil {
		fields["duration_ms"] = *req.DurationMS
	}
	if req.ISRC != nil {
		fields["isrc"] = *req.ISRC
	}
	if req.Album != nil {
		fields["album"] = *req.Album
	}
	if req.AlbumArtist != nil {
		fields["album_artist"] = *req.AlbumArtist
	}
	if req.CoverURL != nil {
		fields["cover_url"] = *req.CoverURL
	}
	if req.Genre != nil {
		fields["genre"] = *req.Genre
	}
	if req.BPM != nil {
		fields["bpm"] = *req.BPM
	}
	if req.ReleaseDate != nil {
		fields["release_date"] = *req.ReleaseDate
	}
	if req.Explicit != nil {
		fields["explicit"] = *req.Explicit
	}
	if req.Label != nil {
		fields["label"] = *req.Label
	}
	if req.Composer != nil {
		fields["composer"] = *req.Composer
	}
	if req.Copyright != nil {
		fields["copyright"] = *req.Copyright
	}
	if req.Version != nil {
		fields["version"] = *req.Version
	}
	if req.Description != nil {
		fields["description"] = *req.Description
	}
	if req.URL != nil {
		fields["url"] = *req.URL
	}
	if req.AudioQuality != nil {
		fields["audio_quality"] = *req.AudioQuality
	}
	if req.AudioModes != nil {
		fields["audio_modes"] = *req.AudioModes
	}
	if req.ReplayGain != nil {
		fields["replay_gain"] = *req.ReplayGain
	}
	if req.Peak != nil {
		fields["peak"] = *req.Peak
	}
	if req.KeyName != nil {
		fields["key_name"] = *req.KeyName
	}
	if req.KeyScale != nil {
		fields["key_scale"] = *req.KeyScale
	}
	if req.Barcode != nil {
		fields["barcode"] = *req.Barcode
	}
	if req.CatalogNumber != nil {
		fields["catalog_number"] = *req.CatalogNumber
	}
	if req.ReleaseType != nil {
		fields["release_type"] = *req.ReleaseType
	}
	if req.Annotation != nil {
		fields["annotation"] = *req.Annotation
	}
	return fields
}

func (s *Server) updateTrack(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "trackID")
	if err != nil {
		writeError(w, err)
		return
	}
	existing, err := s.store.GetTrack(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if existing == nil {
		writeError(w, apperr.NotFound("track not found"))
		return
	}

	var req TrackUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	fields := req.toFields(existing.Artists, existing.Title)
	if err := s.store.UpdateTrackFields(r.Context(), id, fields); err != nil {
		writeError(w, err)
		return
	}

	updated, err := s.store.GetTrack(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, NewTrackResponse(updated))
}

func (s *Server) deleteTrack(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "trackID")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.store.DeleteTrack(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// NormalizePreviewResponse mirrors normalize.Result over the wire.
type NormalizePreviewResponse struct {
	PrimaryArtist     string `json:"primary_artist"`
	CleanArtists      string `json:"clean_artists"`
	CleanTitle        string `json:"clean_title"`
	NormalizedArtists string `json:"normalized_artists"`
	NormalizedTitle   string `json:"normalized_title"`
	IsRemixOrEdit     bool   `json:"is_remix_or_edit"`
	IsLive            bool   `json:"is_live"`
	IsRemaster        bool   `json:"is_remaster"`
}

func (s *Server) normalizePreview(w http.ResponseWriter, r *http.Request) {
	artists := r.URL.Query().Get("artists")
	title := r.URL.Query().Get("title")
	if artists == "" || title == "" {
		writeError(w, apperr.Validation("artists and title query params are required"))
		return
	}
	result := normalize.Normalize(artists, title)
	writeJSON(w, http.StatusOK, NormalizePreviewResponse{
		PrimaryArtist:     result.PrimaryArtist,
		CleanArtists:      result.CleanArtists,
		CleanTitle:        result.CleanTitle,
		NormalizedArtists: result.NormalizedArtists,
		NormalizedTitle:   result.NormalizedTitle,
		IsRemixOrEdit:     result.IsRemixOrEdit,
		IsLive:            result.IsLive,
		IsRemaster:        result.IsRemaster,
	})
}

func (s *Server) listTrackIdentities(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "trackID")
	if err != nil {
		writeError(w, err)
		return
	}
	identities, err := s.store.ListIdentitiesByTrack(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, identities)
}

// refreshCover re-resolves a Track's cover_url using the Spotify-over-
// extractor-thumbnail precedence rule, verifying the winning URL is
// actually fetchable before persisting it.
func (s *Server) refreshCover(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "trackID")
	if err != nil {
		writeError(w, err)
		return
	}
	track, err := s.store.GetTrack(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if track == nil {
		writeError(w, apperr.NotFound("track not found"))
		return
	}

	var thumbnailURL string
	if chosen, err := s.store.GetChosenCandidate(r.Context(), id); err == nil && chosen != nil && chosen.ThumbnailURL != nil {
		thumbnailURL = *chosen.ThumbnailURL
	}

	coverURL, source := tagging.SelectCoverURL(track, thumbnailURL)
	if coverURL == "" {
		writeJSON(w, http.StatusOK, map[string]string{"cover_url": "", "source": string(tagging.CoverNone)})
		return
	}
	if _, err := tagging.DownloadImage(r.Context(), s.httpc, coverURL); err != nil {
		writeError(w, err)
		return
	}
	if err := s.store.UpdateTrackFields(r.Context(), id, map[string]any{"cover_url": coverURL}); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"cover_url": coverURL, "source": string(source)})
}

func (s *Server) tracksWithPlaylistInfo(w http.ResponseWriter, r *http.Request) {
	rows, err := s.store.ListTracksWithPlaylistInfo(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) tracksReadyForDownload(w http.ResponseWriter, r *http.Request) {
	tracks, err := s.store.ListTracksReadyForDownload(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]TrackResponse, len(tracks))
	for i := range tracks {
		out[i] = NewTrackResponse(&tracks[i])
	}
	writeJSON(w, http.StatusOK, out)
}

// YouTubeSearchResult pairs one ranked candidate with its score.
type YouTubeSearchResult struct {
	ExternalID   string              `json:"external_id"`
	Title        string              `json:"title"`
	URL          string              `json:"url"`
	Channel      *string             `json:"channel,omitempty"`
	DurationSec  *int                `json:"duration_sec,omitempty"`
	ThumbnailURL *string             `json:"thumbnail_url,omitempty"`
	Score        ranking.Breakdown   `json:"score"`
}

// searchYouTube runs the extractor's search, ranks the raw results, and
// optionally persists the top `persist` candidates for the track (back-
// filling its cover from the top result's thumbnail when it has none yet).
func (s *Server) searchYouTube(w http.ResponseWriter, r *http.Request) {
	trackID, err := parseIDParam(r, "trackID")
	if err != nil {
		writeError(w, err)
		return
	}
	track, err := s.store.GetTrack(r.Context(), trackID)
	if err != nil {
		writeError(w, err)
		return
	}
	if track == nil {
		writeError(w, apperr.NotFound("track not found"))
		return
	}

	q := r.URL.Query()
	limit := s.searchLimit
	if v, err := strconv.Atoi(q.Get("limit")); err == nil && v > 0 {
		limit = v
	}
	persist := 0
	if v, err := strconv.Atoi(q.Get("persist")); err == nil && v > 0 {
		persist = v
	}
	preferExtended := q.Get("prefer_extended") == "true"

	var durationSec *int
	if track.DurationMS != nil {
		d := int(*track.DurationMS / 1000)
		durationSec = &d
	}

	raws, err := s.extractor.Search(r.Context(), extractor.Query{
		Artists:     track.Artists,
		Title:       track.Title,
		DurationSec: durationSec,
	}, extractor.SearchOptions{
		Limit:         limit,
		MaxPages:      s.searchPages,
		PageSize:      s.searchPage,
		StopThreshold: s.searchStop,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	candidates := make([]ranking.Candidate, len(raws))
	for i, raw := range raws {
		channel := ""
		if raw.Channel != nil {
			channel = *raw.Channel
		}
		candidates[i] = ranking.Candidate{ID: raw.ExternalID, Title: raw.Title, Channel: channel, DurationSec: raw.DurationSec}
	}
	rankQuery := ranking.Query{Artists: track.Artists, Title: track.Title, DurationSec: durationSec}
	_ = preferExtended // unused: the engine applies its extended-mix scoring to every search regardless
	scored := s.ranking.Rank(rankQuery, candidates)

	byID := make(map[string]extractor.RawCandidate, len(raws))
	for _, raw := range raws {
		byID[raw.ExternalID] = raw
	}

	results := make([]YouTubeSearchResult, len(scored))
	for i, sc := range scored {
		raw := byID[sc.ID]
		results[i] = YouTubeSearchResult{
			ExternalID:   raw.ExternalID,
			Title:        raw.Title,
			URL:          raw.URL,
			Channel:      raw.Channel,
			DurationSec:  raw.DurationSec,
			ThumbnailURL: raw.ThumbnailURL,
			Score:        sc.Score,
		}
	}

	if persist > 0 {
		if err := s.persistTopCandidates(r.Context(), track, results, persist); err != nil {
			writeError(w, err)
			return
		}
	}

	writeJSON(w, http.StatusOK, results)
}

// persistTopCandidates saves the top `persist` ranked results as
// SearchCandidate rows, marks the very top one chosen, and back-fills the
// track's cover from its thumbnail when the track has no cover yet.
func (s *Server) persistTopCandidates(ctx context.Context, track *domain.Track, results []YouTubeSearchResult, persist int) error {
	if persist > len(results) {
		persist = len(results)
	}
	var topID *int
	for i := 0; i < persist; i++ {
		res := results[i]
		breakdown, err := json.Marshal(res.Score)
		if err != nil {
			return err
		}
		breakdownStr := string(breakdown)
		created, err := s.store.CreateCandidate(ctx, &domain.SearchCandidate{
			TrackID:        track.ID,
			Provider:       "youtube",
			ExternalID:     res.ExternalID,
			URL:            res.URL,
			Title:          res.Title,
			Channel:        res.Channel,
			DurationSec:    res.DurationSec,
			ThumbnailURL:   res.ThumbnailURL,
			Score:          res.Score.Total,
			ScoreBreakdown: &breakdownStr,
		})
		if err != nil {
			return err
		}
		if i == 0 {
			topID = &created.ID
		}
	}
	if topID == nil {
		return nil
	}
	if err := s.store.ChooseCandidate(ctx, track.ID, *topID); err != nil {
		return err
	}
	if track.CoverURL == nil || *track.CoverURL == "" {
		if results[0].ThumbnailURL != nil && *results[0].ThumbnailURL != "" {
			if err := s.store.UpdateTrackFields(ctx, track.ID, map[string]any{"cover_url": *results[0].ThumbnailURL}); err != nil {
				return err
			}
		}
	}
	return nil
}
