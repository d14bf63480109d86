package store

import (
	"context"
	"testing"
	"time"

	"github.com/triv3/musicvault/internal/domain"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open("file::memory:?cache=shared")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestCreateTrackAlsoCreatesManualIdentity(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	track, err := db.CreateTrack(ctx, &domain.Track{
		Artists: "Daft Punk", Title: "One More Time",
		NormalizedArtists: "daft punk", NormalizedTitle: "one more time",
	})
	if err != nil {
		t.Fatalf("create track: %v", err)
	}
	if track.ID == 0 {
		t.Fatalf("expected assigned id")
	}

	identities, err := db.ListIdentitiesByTrack(ctx, track.ID)
	if err != nil {
		t.Fatalf("list identities: %v", err)
	}
	if len(identities) != 1 {
		t.Fatalf("expected exactly 1 identity, got %d", len(identities))
	}
	if identities[0].Provider != domain.ProviderManual {
		t.Fatalf("expected manual provider, got %s", identities[0].Provider)
	}
	want := domain.ManualIdentity(track.ID)
	if identities[0].ProviderTrackID != want {
		t.Fatalf("expected provider_track_id %q, got %q", want, identities[0].ProviderTrackID)
	}
}

func TestFindTrackByNormalized(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	_, err := db.CreateTrack(ctx, &domain.Track{
		Artists: "Daft Punk", Title: "One More Time",
		NormalizedArtists: "daft punk", NormalizedTitle: "one more time",
	})
	if err != nil {
		t.Fatalf("create track: %v", err)
	}

	found, err := db.FindTrackByNormalized(ctx, "daft punk", "one more time")
	if err != nil {
		t.Fatalf("find track: %v", err)
	}
	if found == nil {
		t.Fatalf("expected a match")
	}

	miss, err := db.FindTrackByNormalized(ctx, "daft punk", "aerodynamic")
	if err != nil {
		t.Fatalf("find track: %v", err)
	}
	if miss != nil {
		t.Fatalf("expected no match, got track %d", miss.ID)
	}
}

func TestUpdateTrackFieldsRejectsUnknownColumn(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	track, err := db.CreateTrack(ctx, &domain.Track{
		Artists: "A", Title: "B", NormalizedArtists: "a", NormalizedTitle: "b",
	})
	if err != nil {
		t.Fatalf("create track: %v", err)
	}

	if err := db.UpdateTrackFields(ctx, track.ID, map[string]any{"id": 999}); err == nil {
		t.Fatalf("expected rejection of unknown column")
	}

	if err := db.UpdateTrackFields(ctx, track.ID, map[string]any{"genre": "house"}); err != nil {
		t.Fatalf("update track: %v", err)
	}
	updated, err := db.GetTrack(ctx, track.ID)
	if err != nil {
		t.Fatalf("get track: %v", err)
	}
	if updated.Genre == nil || *updated.Genre != "house" {
		t.Fatalf("expected genre to be updated")
	}
}

func TestDeleteTrackCascades(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	track, err := db.CreateTrack(ctx, &domain.Track{
		Artists: "A", Title: "B", NormalizedArtists: "a", NormalizedTitle: "b",
	})
	if err != nil {
		t.Fatalf("create track: %v", err)
	}
	if _, err := db.CreateCandidate(ctx, &domain.SearchCandidate{
		TrackID: track.ID, Provider: "youtube", ExternalID: "abc", URL: "https://example.com/abc", Title: "B",
	}); err != nil {
		t.Fatalf("create candidate: %v", err)
	}

	if err := db.DeleteTrack(ctx, track.ID); err != nil {
		t.Fatalf("delete track: %v", err)
	}

	got, err := db.GetTrack(ctx, track.ID)
	if err != nil {
		t.Fatalf("get track: %v", err)
	}
	if got != nil {
		t.Fatalf("expected track to be gone")
	}
	candidates, err := db.ListCandidatesByTrack(ctx, track.ID)
	if err != nil {
		t.Fatalf("list candidates: %v", err)
	}
	if len(candidates) != 0 {
		t.Fatalf("expected candidates to cascade-delete, found %d", len(candidates))
	}
}

func TestChooseCandidateEnforcesExclusivity(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	track, err := db.CreateTrack(ctx, &domain.Track{
		Artists: "A", Title: "B", NormalizedArtists: "a", NormalizedTitle: "b",
	})
	if err != nil {
		t.Fatalf("create track: %v", err)
	}
	c1, err := db.CreateCandidate(ctx, &domain.SearchCandidate{
		TrackID: track.ID, Provider: "youtube", ExternalID: "one", URL: "https://example.com/1", Title: "B", Score: 90,
	})
	if err != nil {
		t.Fatalf("create candidate 1: %v", err)
	}
	c2, err := db.CreateCandidate(ctx, &domain.SearchCandidate{
		TrackID: track.ID, Provider: "youtube", ExternalID: "two", URL: "https://example.com/2", Title: "B", Score: 80,
	})
	if err != nil {
		t.Fatalf("create candidate 2: %v", err)
	}

	if err := db.ChooseCandidate(ctx, track.ID, c1.ID); err != nil {
		t.Fatalf("choose c1: %v", err)
	}
	if err := db.ChooseCandidate(ctx, track.ID, c2.ID); err != nil {
		t.Fatalf("choose c2: %v", err)
	}

	chosen, err := db.GetChosenCandidate(ctx, track.ID)
	if err != nil {
		t.Fatalf("get chosen: %v", err)
	}
	if chosen == nil || chosen.ID != c2.ID {
		t.Fatalf("expected c2 to be the sole chosen candidate")
	}

	candidates, err := db.ListCandidatesByTrack(ctx, track.ID)
	if err != nil {
		t.Fatalf("list candidates: %v", err)
	}
	chosenCount := 0
	for _, c := range candidates {
		if c.Chosen {
			chosenCount++
		}
	}
	if chosenCount != 1 {
		t.Fatalf("expected exactly 1 chosen candidate, got %d", chosenCount)
	}
}

func TestChooseCandidateRejectsForeignCandidate(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	trackA, _ := db.CreateTrack(ctx, &domain.Track{Artists: "A", Title: "A", NormalizedArtists: "a", NormalizedTitle: "a"})
	trackB, _ := db.CreateTrack(ctx, &domain.Track{Artists: "B", Title: "B", NormalizedArtists: "b", NormalizedTitle: "b"})
	cand, err := db.CreateCandidate(ctx, &domain.SearchCandidate{
		TrackID: trackB.ID, Provider: "youtube", ExternalID: "x", URL: "https://example.com/x", Title: "B",
	})
	if err != nil {
		t.Fatalf("create candidate: %v", err)
	}

	if err := db.ChooseCandidate(ctx, trackA.ID, cand.ID); err == nil {
		t.Fatalf("expected rejection of a candidate that belongs to a different track")
	}
}

func TestDownloadLifecycleRecordsLibraryFile(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	track, _ := db.CreateTrack(ctx, &domain.Track{Artists: "A", Title: "B", NormalizedArtists: "a", NormalizedTitle: "b"})
	cand, _ := db.CreateCandidate(ctx, &domain.SearchCandidate{
		TrackID: track.ID, Provider: "youtube", ExternalID: "x", URL: "https://example.com/x", Title: "B",
	})

	dl, err := db.CreateDownload(ctx, &domain.Download{TrackID: track.ID, CandidateID: &cand.ID, Provider: "youtube"})
	if err != nil {
		t.Fatalf("create download: %v", err)
	}
	if dl.Status != domain.DownloadQueued {
		t.Fatalf("expected queued status, got %s", dl.Status)
	}

	if err := db.MarkDownloadRunning(ctx, dl.ID); err != nil {
		t.Fatalf("mark running: %v", err)
	}

	path := "/library/a/b.m4a"
	format := "m4a"
	checksum := "deadbeef"
	var size int64 = 1024
	if err := db.FinishDownload(ctx, dl.ID, domain.DownloadDone, &path, &format, &checksum, &size, nil); err != nil {
		t.Fatalf("finish download: %v", err)
	}

	has, err := db.HasLibraryFile(ctx, track.ID)
	if err != nil {
		t.Fatalf("has library file: %v", err)
	}
	if !has {
		t.Fatalf("expected a library file to be recorded on successful download")
	}

	finished, err := db.GetDownload(ctx, dl.ID)
	if err != nil {
		t.Fatalf("get download: %v", err)
	}
	if !finished.Status.IsTerminal() {
		t.Fatalf("expected terminal status after finishing")
	}
}

func TestReplacePlaylistTracksReconcilesMembership(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	playlist, err := db.CreatePlaylist(ctx, &domain.Playlist{Provider: domain.ProviderSpotify, Name: "Workout"})
	if err != nil {
		t.Fatalf("create playlist: %v", err)
	}
	t1, _ := db.CreateTrack(ctx, &domain.Track{Artists: "A", Title: "1", NormalizedArtists: "a", NormalizedTitle: "1"})
	t2, _ := db.CreateTrack(ctx, &domain.Track{Artists: "A", Title: "2", NormalizedArtists: "a", NormalizedTitle: "2"})
	t3, _ := db.CreateTrack(ctx, &domain.Track{Artists: "A", Title: "3", NormalizedArtists: "a", NormalizedTitle: "3"})

	created, removed, err := db.ReplacePlaylistTracks(ctx, playlist.ID, []PlaylistTrackInput{{TrackID: t1.ID}, {TrackID: t2.ID}})
	if err != nil {
		t.Fatalf("replace tracks (first pass): %v", err)
	}
	if created != 2 || removed != 0 {
		t.Fatalf("first pass deltas = created %d removed %d, want 2 and 0", created, removed)
	}
	ids, err := db.ListTrackIDsInPlaylist(ctx, playlist.ID)
	if err != nil {
		t.Fatalf("list track ids: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("expected 2 linked tracks, got %d", len(ids))
	}

	created, removed, err = db.ReplacePlaylistTracks(ctx, playlist.ID, []PlaylistTrackInput{{TrackID: t2.ID}, {TrackID: t3.ID}})
	if err != nil {
		t.Fatalf("replace tracks (second pass): %v", err)
	}
	if created != 1 || removed != 1 {
		t.Fatalf("second pass deltas = created %d removed %d, want 1 and 1", created, removed)
	}
	ids, err = db.ListTrackIDsInPlaylist(ctx, playlist.ID)
	if err != nil {
		t.Fatalf("list track ids: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("expected 2 linked tracks after reconciliation, got %d", len(ids))
	}
	seen := map[int]bool{}
	for _, id := range ids {
		seen[id] = true
	}
	if seen[t1.ID] {
		t.Fatalf("expected track 1 to be unlinked")
	}
	if !seen[t2.ID] || !seen[t3.ID] {
		t.Fatalf("expected tracks 2 and 3 to remain linked")
	}
}

func TestOAuthStateConsumedOnce(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if err := db.CreateOAuthState(ctx, "state-1", "verifier-1", 0); err != nil {
		t.Fatalf("create state: %v", err)
	}

	first, err := db.ConsumeOAuthState(ctx, "state-1")
	if err != nil {
		t.Fatalf("consume state: %v", err)
	}
	if first != nil {
		t.Fatalf("expected nil for an already-expired ttl, got a live state")
	}

	if err := db.CreateOAuthState(ctx, "state-2", "verifier-2", time.Minute); err != nil {
		t.Fatalf("create state: %v", err)
	}
	live, err := db.ConsumeOAuthState(ctx, "state-2")
	if err != nil {
		t.Fatalf("consume state: %v", err)
	}
	if live == nil || live.CodeVerifier != "verifier-2" {
		t.Fatalf("expected the live state on first consume")
	}
	replay, err := db.ConsumeOAuthState(ctx, "state-2")
	if err != nil {
		t.Fatalf("consume state again: %v", err)
	}
	if replay != nil {
		t.Fatalf("expected a second consume of the same state to return nil")
	}
}
