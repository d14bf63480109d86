package extractor

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestFixtureSearchReturnsThreeCanonicalTiers(t *testing.T) {
	f := NewFixtureExtractor()
	results, err := f.Search(context.Background(), Query{Artists: "Block & Crown", Title: "Lonely Heart"}, SearchOptions{})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 canned results, got %d", len(results))
	}
	if results[0].Channel == nil || *results[0].Channel != "Channel A" {
		t.Fatalf("expected first result on the official channel")
	}
}

func TestFixtureSearchRespectsLimit(t *testing.T) {
	f := NewFixtureExtractor()
	results, err := f.Search(context.Background(), Query{Artists: "A", Title: "B"}, SearchOptions{Limit: 1})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected limit to be honored, got %d results", len(results))
	}
}

func TestFixtureDownloadWritesPlaceholderFile(t *testing.T) {
	f := NewFixtureExtractor()
	dir := t.TempDir()

	result, err := f.Download(context.Background(), "fake1", DownloadOptions{OutputDir: dir, PreferredAudioFormat: "m4a"})
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	if result.Container != "m4a" {
		t.Fatalf("expected container m4a, got %s", result.Container)
	}
	if _, err := os.Stat(result.FilePath); err != nil {
		t.Fatalf("expected file to exist: %v", err)
	}
	if filepath.Dir(result.FilePath) != dir {
		t.Fatalf("expected file written under %s", dir)
	}
	if result.Checksum == "" {
		t.Fatalf("expected a non-empty checksum")
	}
}

func TestManagerSwapsImplementation(t *testing.T) {
	m := NewManager(NewFixtureExtractor())
	results, err := m.Search(context.Background(), Query{Artists: "A", Title: "B"}, SearchOptions{})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) == 0 {
		t.Fatalf("expected fixture results")
	}

	m.Set(emptyExtractor{})
	results, err = m.Search(context.Background(), Query{Artists: "A", Title: "B"}, SearchOptions{})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected swapped implementation to return no results")
	}
}

func TestManagerCookiesConfigured(t *testing.T) {
	m := NewManager(NewFixtureExtractor())
	if m.CookiesConfigured() {
		t.Fatalf("expected no cookies configured by default")
	}
	m.SetCookiesFile("/etc/secrets/cookies.txt")
	if !m.CookiesConfigured() {
		t.Fatalf("expected cookies to be configured after SetCookiesFile")
	}
}

type emptyExtractor struct{}

func (emptyExtractor) Search(ctx context.Context, q Query, opts SearchOptions) ([]RawCandidate, error) {
	return nil, nil
}

func (emptyExtractor) Download(ctx context.Context, externalIDOrURL string, opts DownloadOptions) (DownloadResult, error) {
	return DownloadResult{}, nil
}
