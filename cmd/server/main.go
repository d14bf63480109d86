package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/triv3/musicvault/internal/config"
	"github.com/triv3/musicvault/internal/extractor"
	"github.com/triv3/musicvault/internal/httpapi"
	"github.com/triv3/musicvault/internal/httpclient"
	"github.com/triv3/musicvault/internal/logger"
	"github.com/triv3/musicvault/internal/ranking"
	"github.com/triv3/musicvault/internal/scheduler"
	"github.com/triv3/musicvault/internal/secure"
	"github.com/triv3/musicvault/internal/store"
	"github.com/triv3/musicvault/internal/sync"
)

func main() {
	cfg := config.Load()

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	appLogger := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})

	db, err := store.Open(cfg.DatabaseURL)
	if err != nil {
		appLogger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	box, err := secure.NewBox(cfg.SecretKey)
	if err != nil {
		appLogger.Error("failed to build secret box", "error", err)
		os.Exit(1)
	}
	if box == nil {
		appLogger.Warn("SECRET_KEY is not set, refresh tokens will be stored unencrypted")
	}

	engine := ranking.New(ranking.DefaultConfig())

	var underlying extractor.Extractor
	if cfg.YouTubeSearchFake || cfg.DownloadFake {
		underlying = extractor.NewFixtureExtractor()
	} else {
		underlying = extractor.NewYtDlpExtractor(cfg.YtDlpBin, cfg.FFmpegBin, engine, cfg.YouTubeSearchTimeout)
	}
	mgr := extractor.NewManager(underlying)

	// Cover art fetches share one rate-limited, retrying client so a burst
	// of downloads can't also get i.scdn.co and other image hosts to start
	// throttling or dropping requests.
	httpc := httpclient.NewClient(&http.Client{Timeout: 30 * time.Second}, 50*time.Millisecond)

	schedCfg := scheduler.DefaultConfig()
	schedCfg.Concurrency = cfg.Concurrency
	schedCfg.LibraryDir = cfg.LibraryDir
	schedCfg.PreferredAudioFormat = cfg.PreferredAudioFormat
	schedCfg.ExtractorArgs = cfg.DownloadYtDlpExtractorArgs
	schedCfg.EmbedThumbnail = cfg.DownloadEmbedThumbnail
	schedCfg.CookiesFile = cfg.CookiesFile
	schedCfg.SearchLimit = cfg.YouTubeSearchLimit
	schedCfg.SearchMaxPages = cfg.YouTubeSearchMaxPages
	schedCfg.SearchPageSize = cfg.YouTubeSearchPageSize
	schedCfg.SearchStopThreshold = cfg.YouTubeSearchPageStopThresh

	sched := scheduler.New(db, mgr, engine, appLogger, httpc, schedCfg)
	if !cfg.DisableDownloadWorker {
		sched.Start()
		defer sched.Stop()
	}

	ingestor := sync.New(db, box, sync.Config{
		ClientID:     cfg.SpotifyClientID,
		ClientSecret: cfg.SpotifyClientSecret,
		RedirectURI:  cfg.SpotifyRedirectURI,
	}, appLogger)

	server := httpapi.New(db, mgr, engine, sched, ingestor, appLogger, httpc, httpapi.Config{
		LibraryDir:          cfg.LibraryDir,
		SearchLimit:         cfg.YouTubeSearchLimit,
		SearchMaxPages:      cfg.YouTubeSearchMaxPages,
		SearchPageSize:      cfg.YouTubeSearchPageSize,
		SearchStopThreshold: cfg.YouTubeSearchPageStopThresh,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: server.Router(cfg.CORSOrigins),
	}

	go func() {
		appLogger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}

	appLogger.Info("server exiting")
}
