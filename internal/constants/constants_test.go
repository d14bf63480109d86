package constants

import (
	"testing"
	"time"
)

func TestDefaultValues(t *testing.T) {
	if DefaultPort != "8080" {
		t.Errorf("Expected DefaultPort to be '8080', got '%s'", DefaultPort)
	}
	if DefaultDatabaseURL != "file:musicvault.db" {
		t.Errorf("Expected DefaultDatabaseURL to be 'file:musicvault.db', got '%s'", DefaultDatabaseURL)
	}
	if DefaultPreferredAudioFmt != "mp3" {
		t.Errorf("Expected DefaultPreferredAudioFmt to be 'mp3', got '%s'", DefaultPreferredAudioFmt)
	}
	if DefaultLibraryDir == "" {
		t.Error("DefaultLibraryDir should not be empty")
	}
}

func TestTimeouts(t *testing.T) {
	if DefaultHTTPTimeout != 5*time.Minute {
		t.Errorf("Expected DefaultHTTPTimeout to be 5 minutes, got %v", DefaultHTTPTimeout)
	}
	if DefaultPollInterval != 2*time.Second {
		t.Errorf("Expected DefaultPollInterval to be 2 seconds, got %v", DefaultPollInterval)
	}
	if DefaultRetryBase != 1*time.Second {
		t.Errorf("Expected DefaultRetryBase to be 1 second, got %v", DefaultRetryBase)
	}
	if ImageHTTPTimeout != 30*time.Second {
		t.Errorf("Expected ImageHTTPTimeout to be 30 seconds, got %v", ImageHTTPTimeout)
	}
}

func TestRetryCount(t *testing.T) {
	if DefaultRetryCount != 3 {
		t.Errorf("Expected DefaultRetryCount to be 3, got %d", DefaultRetryCount)
	}
}

func TestConcurrency(t *testing.T) {
	if DefaultConcurrency != 2 {
		t.Errorf("Expected DefaultConcurrency to be 2, got %d", DefaultConcurrency)
	}
}

func TestSearchDefaults(t *testing.T) {
	if DefaultYouTubeSearchLimit <= 0 {
		t.Error("DefaultYouTubeSearchLimit should be positive")
	}
	if DefaultYouTubeSearchMaxPages <= 0 {
		t.Error("DefaultYouTubeSearchMaxPages should be positive")
	}
	if DefaultYouTubeSearchPageSize <= 0 {
		t.Error("DefaultYouTubeSearchPageSize should be positive")
	}
	if DefaultMinAutochooseScore <= 0 {
		t.Error("DefaultMinAutochooseScore should be positive")
	}
}

func TestMimeTypes(t *testing.T) {
	types := []string{MimeTypeMP3, MimeTypeMP4, MimeTypeFLAC, MimeTypeWAV, MimeTypeJPEG, MimeTypePNG, MimeTypeOctet}
	for _, m := range types {
		if m == "" {
			t.Error("MIME type constant should not be empty")
		}
	}
}

func TestFileExtensions(t *testing.T) {
	extensions := []string{ExtMP3, ExtM4A, ExtMP4, ExtJPG, ExtPNG}
	for _, ext := range extensions {
		if ext == "" || ext[0] != '.' {
			t.Errorf("expected a dot-prefixed extension, got %q", ext)
		}
	}
}

func TestInvalidPathChars(t *testing.T) {
	if InvalidPathChars == "" {
		t.Error("InvalidPathChars should not be empty")
	}
}

func TestSpotifyCoverHost(t *testing.T) {
	if SpotifyCoverHost != "i.scdn.co/" {
		t.Errorf("Expected SpotifyCoverHost to be 'i.scdn.co/', got '%s'", SpotifyCoverHost)
	}
}

func TestBoundedLimits(t *testing.T) {
	if MaxSearchResults <= 0 {
		t.Error("MaxSearchResults should be positive")
	}
	if MaxStderrCapture <= 0 {
		t.Error("MaxStderrCapture should be positive")
	}
}
