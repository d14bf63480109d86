package timestamp

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/triv3/musicvault/internal/domain"
)

func TestResolvePrefersPlaylistAddedAt(t *testing.T) {
	added := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	track := &domain.Track{}
	targets := Resolve(track, &added, time.Now())
	if !targets.ModTime.Equal(added) {
		t.Errorf("ModTime = %v, want %v", targets.ModTime, added)
	}
}

func TestResolveFallsBackToSpotifyAddedAt(t *testing.T) {
	spotifyAdded := time.Date(2019, 5, 5, 0, 0, 0, 0, time.UTC)
	track := &domain.Track{SpotifyAddedAt: &spotifyAdded}
	targets := Resolve(track, nil, time.Now())
	if !targets.ModTime.Equal(spotifyAdded) {
		t.Errorf("ModTime = %v, want %v", targets.ModTime, spotifyAdded)
	}
}

func TestResolveFallsBackToReleaseDateThenNow(t *testing.T) {
	release := "2018-03-09"
	track := &domain.Track{ReleaseDate: &release}
	targets := Resolve(track, nil, time.Now())
	want := time.Date(2018, 3, 9, 0, 0, 0, 0, time.UTC)
	if !targets.ModTime.Equal(want) {
		t.Errorf("ModTime = %v, want %v", targets.ModTime, want)
	}
	if !targets.CreationTime.Equal(want) {
		t.Errorf("CreationTime = %v, want %v", targets.CreationTime, want)
	}

	now := time.Now()
	empty := &domain.Track{}
	targets2 := Resolve(empty, nil, now)
	if !targets2.ModTime.Equal(now) {
		t.Errorf("ModTime fallback = %v, want %v", targets2.ModTime, now)
	}
}

func TestApplySetsModTime(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "file.mp3")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	want := time.Date(2015, 6, 15, 12, 0, 0, 0, time.UTC)
	mtimeErr, _ := Apply(path, Targets{ModTime: want, CreationTime: want})
	if mtimeErr != nil {
		t.Fatal(mtimeErr)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if !info.ModTime().Equal(want) {
		t.Errorf("ModTime() = %v, want %v", info.ModTime(), want)
	}
}
