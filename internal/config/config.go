// Package config loads application configuration from environment variables
// and an optional .env file.
package config

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"

	"github.com/triv3/musicvault/internal/constants"
)

// Config holds all application configuration, sourced from the environment
// variables recognized by the system.
type Config struct {
	Port        string
	SecretKey   string
	DatabaseURL string

	SpotifyClientID     string
	SpotifyClientSecret string
	SpotifyRedirectURI  string

	LibraryDir string
	YtDlpBin   string
	FFmpegBin  string

	PreferredAudioFormat string

	DownloadFake             bool
	YouTubeSearchFake        bool
	YouTubeSearchFallbackFake bool

	YouTubeSearchLimit          int
	YouTubeSearchTimeout        time.Duration
	YouTubeSearchMaxPages       int
	YouTubeSearchPageSize       int
	YouTubeSearchPageStopThresh float64

	DisableDownloadWorker    bool
	DownloadYtDlpExtractorArgs string
	DownloadEmbedThumbnail   bool

	CORSOrigins []string
	LogLevel    string
	LogFormat   string

	TZ   string
	PUID string
	PGID string

	CookiesFile string
	Concurrency int
}

// Load loads configuration from a .env file (if present) and the process
// environment, applying defaults for anything unset.
func Load() *Config {
	_ = godotenv.Load()

	defaultLibraryDir := filepath.Join(xdg.DataHome, "musicvault", constants.DefaultLibraryDir)

	return &Config{
		Port:        getEnv("PORT", constants.DefaultPort),
		SecretKey:   getEnv("SECRET_KEY", ""),
		DatabaseURL: getEnv("DATABASE_URL", constants.DefaultDatabaseURL),

		SpotifyClientID:     getEnv("SPOTIFY_CLIENT_ID", ""),
		SpotifyClientSecret: getEnv("SPOTIFY_CLIENT_SECRET", ""),
		SpotifyRedirectURI:  getEnv("SPOTIFY_REDIRECT_URI", ""),

		LibraryDir: getEnv("LIBRARY_DIR", defaultLibraryDir),
		YtDlpBin:   getEnv("YT_DLP_BIN", constants.DefaultYtDlpBin),
		FFmpegBin:  getEnv("FFMPEG_BIN", constants.DefaultFfmpegBin),

		PreferredAudioFormat: getEnv("PREFERRED_AUDIO_FORMAT", constants.DefaultPreferredAudioFmt),

		DownloadFake:              getEnvBool("DOWNLOAD_FAKE", false),
		YouTubeSearchFake:         getEnvBool("YOUTUBE_SEARCH_FAKE", false),
		YouTubeSearchFallbackFake: getEnvBool("YOUTUBE_SEARCH_FALLBACK_FAKE", false),

		YouTubeSearchLimit:          getEnvInt("YOUTUBE_SEARCH_LIMIT", constants.DefaultYouTubeSearchLimit),
		YouTubeSearchTimeout:        getEnvDuration("YOUTUBE_SEARCH_TIMEOUT", constants.DefaultYouTubeSearchTimeout),
		YouTubeSearchMaxPages:       getEnvInt("YOUTUBE_SEARCH_MAX_PAGES", constants.DefaultYouTubeSearchMaxPages),
		YouTubeSearchPageSize:       getEnvInt("YOUTUBE_SEARCH_PAGE_SIZE", constants.DefaultYouTubeSearchPageSize),
		YouTubeSearchPageStopThresh: getEnvFloat("YOUTUBE_SEARCH_PAGE_STOP_THRESHOLD", constants.DefaultYouTubeSearchStopThreshold),

		DisableDownloadWorker:      getEnvBool("DISABLE_DOWNLOAD_WORKER", false),
		DownloadYtDlpExtractorArgs: getEnv("DOWNLOAD_YTDLP_EXTRACTOR_ARGS", ""),
		DownloadEmbedThumbnail:     getEnvBool("DOWNLOAD_EMBED_THUMBNAIL", true),

		CORSOrigins: splitCSV(getEnv("CORS_ORIGINS", "*")),
		LogLevel:    getEnv("APP_LOG_LEVEL", "info"),
		LogFormat:   getEnv("LOG_FORMAT", "text"),

		TZ:   getEnv("TZ", ""),
		PUID: getEnv("PUID", ""),
		PGID: getEnv("PGID", ""),

		CookiesFile: getEnv("COOKIES_FILE", ""),
		Concurrency: getEnvInt("DOWNLOAD_CONCURRENCY", constants.DefaultConcurrency),
	}
}

// Validate returns an aggregate error describing every configuration problem
// found, or nil if the configuration is runnable. The extractor binary is
// only required when fixture mode is disabled.
func (c *Config) Validate() error {
	var errs []string

	if c.Port == "" {
		errs = append(errs, "PORT cannot be empty")
	} else if port, err := strconv.Atoi(c.Port); err != nil || port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("PORT must be between 1 and 65535, got: %s", c.Port))
	}

	if c.DatabaseURL == "" {
		errs = append(errs, "DATABASE_URL cannot be empty")
	}
	if c.LibraryDir == "" {
		errs = append(errs, "LIBRARY_DIR cannot be empty")
	}

	if !c.DownloadFake {
		if _, err := exec.LookPath(c.YtDlpBin); err != nil {
			errs = append(errs, fmt.Sprintf("YT_DLP_BIN %q not found on PATH and DOWNLOAD_FAKE is not set", c.YtDlpBin))
		}
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.LogLevel] {
		errs = append(errs, fmt.Sprintf("APP_LOG_LEVEL must be one of debug, info, warn, error, got: %s", c.LogLevel))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getEnvInt(key string, fallback int) int {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
