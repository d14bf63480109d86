package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/triv3/musicvault/internal/extractor"
	"github.com/triv3/musicvault/internal/httpclient"
	"github.com/triv3/musicvault/internal/logger"
	"github.com/triv3/musicvault/internal/ranking"
	"github.com/triv3/musicvault/internal/store"
)

// newTestServer builds a Server against a fresh in-memory database, wired
// the same way store_test.go wires one, with no scheduler or sync ingestor
// since the handlers under test here never touch either.
func newTestServer(t *testing.T) (*Server, *store.DB) {
	t.Helper()
	db, err := store.Open("file::memory:?cache=shared")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	mgr := extractor.NewManager(extractor.NewFixtureExtractor())
	engine := ranking.New(ranking.DefaultConfig())
	srv := New(db, mgr, engine, nil, nil, logger.Default(), httpclient.NewClient(nil, 0), Config{
		LibraryDir:     t.TempDir(),
		SearchLimit:    10,
		SearchMaxPages: 1,
		SearchPageSize: 10,
	})
	return srv, db
}

func doRequest(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestCreateAndGetTrack(t *testing.T) {
	srv, _ := newTestServer(t)
	router := srv.Router(nil)

	rec := doRequest(t, router, http.MethodPost, "/api/v1/tracks/", TrackCreateRequest{
		Artists: "Daft Punk",
		Title:   "One More Time",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var created TrackResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("unmarshal create response: %v", err)
	}
	if created.ID == 0 {
		t.Fatalf("expected a nonzero track id")
	}
	if created.NormalizedArtists == "" || created.NormalizedTitle == "" {
		t.Errorf("expected normalized fields to be populated, got %+v", created)
	}

	rec = doRequest(t, router, http.MethodGet, "/api/v1/tracks/1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var fetched TrackResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &fetched); err != nil {
		t.Fatalf("unmarshal get response: %v", err)
	}
	if fetched.Title != "One More Time" {
		t.Errorf("Title = %q, want %q", fetched.Title, "One More Time")
	}
}

func TestCreateTrackValidation(t *testing.T) {
	srv, _ := newTestServer(t)
	router := srv.Router(nil)

	rec := doRequest(t, router, http.MethodPost, "/api/v1/tracks/", TrackCreateRequest{Title: "missing artist"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d, body = %s", rec.Code, http.StatusBadRequest, rec.Body.String())
	}
}

func TestGetTrackNotFound(t *testing.T) {
	srv, _ := newTestServer(t)
	router := srv.Router(nil)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/tracks/999", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d, body = %s", rec.Code, http.StatusNotFound, rec.Body.String())
	}
}

func TestUpdateTrackRenormalizes(t *testing.T) {
	srv, _ := newTestServer(t)
	router := srv.Router(nil)

	rec := doRequest(t, router, http.MethodPost, "/api/v1/tracks/", TrackCreateRequest{Artists: "Artist A", Title: "Song A"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d", rec.Code)
	}

	newTitle := "Song A (Extended Mix)"
	rec = doRequest(t, router, http.MethodPut, "/api/v1/tracks/1", TrackUpdateRequest{Title: &newTitle})
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var updated TrackResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &updated); err != nil {
		t.Fatalf("unmarshal update response: %v", err)
	}
	if updated.Title != newTitle {
		t.Errorf("Title = %q, want %q", updated.Title, newTitle)
	}
	if updated.NormalizedTitle == "" {
		t.Errorf("expected normalized_title to be recomputed after title change")
	}
}

func TestDeleteTrack(t *testing.T) {
	srv, _ := newTestServer(t)
	router := srv.Router(nil)

	rec := doRequest(t, router, http.MethodPost, "/api/v1/tracks/", TrackCreateRequest{Artists: "Artist B", Title: "Song B"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d", rec.Code)
	}

	rec = doRequest(t, router, http.MethodDelete, "/api/v1/tracks/1", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}

	rec = doRequest(t, router, http.MethodGet, "/api/v1/tracks/1", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status after delete = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestSearchYouTubePersistsTopCandidate(t *testing.T) {
	srv, _ := newTestServer(t)
	router := srv.Router(nil)

	rec := doRequest(t, router, http.MethodPost, "/api/v1/tracks/", TrackCreateRequest{Artists: "Daft Punk", Title: "One More Time"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d", rec.Code)
	}

	rec = doRequest(t, router, http.MethodGet, "/api/v1/tracks/1/youtube/search?persist=1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("search status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var results []YouTubeSearchResult
	if err := json.Unmarshal(rec.Body.Bytes(), &results); err != nil {
		t.Fatalf("unmarshal search response: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 fixture results, got %d", len(results))
	}

	rec = doRequest(t, router, http.MethodGet, "/api/v1/candidates/?track_id=1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list candidates status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var persisted []struct {
		Chosen bool `json:"chosen"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &persisted); err != nil {
		t.Fatalf("unmarshal candidates response: %v", err)
	}
	if len(persisted) != 1 {
		t.Fatalf("expected 1 persisted candidate, got %d", len(persisted))
	}
	if !persisted[0].Chosen {
		t.Errorf("expected the persisted top candidate to be chosen")
	}
}

func TestHealthAndInfo(t *testing.T) {
	srv, _ := newTestServer(t)
	router := srv.Router(nil)

	rec := doRequest(t, router, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("health status = %d", rec.Code)
	}

	rec = doRequest(t, router, http.MethodGet, "/api/v1/info", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("info status = %d", rec.Code)
	}
}
