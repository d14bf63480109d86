package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func TestBuildFilename(t *testing.T) {
	got := BuildFilename("Block & Crown", "Lonely Heart", "mp3")
	want := "Block & Crown - Lonely Heart.mp3"
	if got != want {
		t.Errorf("BuildFilename() = %q, want %q", got, want)
	}
}

func TestBuildFilenameSanitizesInvalidChars(t *testing.T) {
	got := BuildFilename("AC/DC", "T.N.T:", "mp3")
	if got != "ACDC - T.N.T.mp3" {
		t.Errorf("BuildFilename() = %q", got)
	}
}

func TestResolveCollisionPath(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "Artist - Title.mp3")

	first, err := ResolveCollisionPath(base)
	if err != nil {
		t.Fatal(err)
	}
	if first != base {
		t.Errorf("first resolution = %q, want %q", first, base)
	}

	if err := os.WriteFile(base, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	second, err := ResolveCollisionPath(base)
	if err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(dir, "Artist - Title (2).mp3")
	if second != want {
		t.Errorf("second resolution = %q, want %q", second, want)
	}

	if err := os.WriteFile(second, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	third, err := ResolveCollisionPath(base)
	if err != nil {
		t.Fatal(err)
	}
	wantThird := filepath.Join(dir, "Artist - Title (3).mp3")
	if third != wantThird {
		t.Errorf("third resolution = %q, want %q", third, wantThird)
	}
}

func TestSlugKey(t *testing.T) {
	if got := SlugKey("My Cookies Jar!"); got != "my-cookies-jar" {
		t.Errorf("SlugKey() = %q", got)
	}
}
