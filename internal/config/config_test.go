package config

import (
	"os"
	"testing"

	"github.com/triv3/musicvault/internal/constants"
)

func TestLoad(t *testing.T) {
	cfg := Load()

	if cfg.Port != constants.DefaultPort {
		t.Errorf("Expected Port to be %s, got %s", constants.DefaultPort, cfg.Port)
	}
	if cfg.DatabaseURL != constants.DefaultDatabaseURL {
		t.Errorf("Expected DatabaseURL to be %s, got %s", constants.DefaultDatabaseURL, cfg.DatabaseURL)
	}
	if cfg.PreferredAudioFormat != constants.DefaultPreferredAudioFmt {
		t.Errorf("Expected PreferredAudioFormat to be %s, got %s", constants.DefaultPreferredAudioFmt, cfg.PreferredAudioFormat)
	}
	if cfg.LibraryDir == "" {
		t.Error("Expected LibraryDir to not be empty")
	}
}

func TestLoadWithEnvVars(t *testing.T) {
	os.Setenv("PORT", "9090")
	os.Setenv("DATABASE_URL", "/tmp/test.db")
	os.Setenv("PREFERRED_AUDIO_FORMAT", "flac")
	os.Setenv("YOUTUBE_SEARCH_LIMIT", "25")
	defer func() {
		os.Unsetenv("PORT")
		os.Unsetenv("DATABASE_URL")
		os.Unsetenv("PREFERRED_AUDIO_FORMAT")
		os.Unsetenv("YOUTUBE_SEARCH_LIMIT")
	}()

	cfg := Load()

	if cfg.Port != "9090" {
		t.Errorf("Expected Port to be 9090, got %s", cfg.Port)
	}
	if cfg.DatabaseURL != "/tmp/test.db" {
		t.Errorf("Expected DatabaseURL to be /tmp/test.db, got %s", cfg.DatabaseURL)
	}
	if cfg.PreferredAudioFormat != "flac" {
		t.Errorf("Expected PreferredAudioFormat to be flac, got %s", cfg.PreferredAudioFormat)
	}
	if cfg.YouTubeSearchLimit != 25 {
		t.Errorf("Expected YouTubeSearchLimit to be 25, got %d", cfg.YouTubeSearchLimit)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{
			name: "valid config",
			config: Config{
				Port:         "8080",
				DatabaseURL:  "test.db",
				LibraryDir:   "/tmp/library",
				DownloadFake: true,
				LogLevel:     "info",
			},
			wantErr: false,
		},
		{
			name: "invalid port - not a number",
			config: Config{
				Port:         "abc",
				DatabaseURL:  "test.db",
				LibraryDir:   "/tmp/library",
				DownloadFake: true,
				LogLevel:     "info",
			},
			wantErr: true,
		},
		{
			name: "invalid port - out of range",
			config: Config{
				Port:         "99999",
				DatabaseURL:  "test.db",
				LibraryDir:   "/tmp/library",
				DownloadFake: true,
				LogLevel:     "info",
			},
			wantErr: true,
		},
		{
			name: "empty database url",
			config: Config{
				Port:         "8080",
				DatabaseURL:  "",
				LibraryDir:   "/tmp/library",
				DownloadFake: true,
				LogLevel:     "info",
			},
			wantErr: true,
		},
		{
			name: "empty library dir",
			config: Config{
				Port:         "8080",
				DatabaseURL:  "test.db",
				LibraryDir:   "",
				DownloadFake: true,
				LogLevel:     "info",
			},
			wantErr: true,
		},
		{
			name: "invalid log level",
			config: Config{
				Port:         "8080",
				DatabaseURL:  "test.db",
				LibraryDir:   "/tmp/library",
				DownloadFake: true,
				LogLevel:     "invalid",
			},
			wantErr: true,
		},
		{
			name: "missing yt-dlp binary when download fake disabled",
			config: Config{
				Port:        "8080",
				DatabaseURL: "test.db",
				LibraryDir:  "/tmp/library",
				YtDlpBin:    "definitely-not-a-real-binary-xyz",
				LogLevel:    "info",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestGetEnv(t *testing.T) {
	os.Setenv("TEST_VAR", "test_value")
	defer os.Unsetenv("TEST_VAR")

	value := getEnv("TEST_VAR", "default")
	if value != "test_value" {
		t.Errorf("Expected 'test_value', got '%s'", value)
	}

	value = getEnv("NON_EXISTENT_VAR", "default")
	if value != "default" {
		t.Errorf("Expected 'default', got '%s'", value)
	}
}

func TestGetEnvBool(t *testing.T) {
	os.Setenv("TEST_BOOL", "true")
	defer os.Unsetenv("TEST_BOOL")

	if !getEnvBool("TEST_BOOL", false) {
		t.Error("Expected true")
	}
	if getEnvBool("NON_EXISTENT_BOOL", false) {
		t.Error("Expected fallback false")
	}
}
