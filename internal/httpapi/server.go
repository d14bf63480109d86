// Package httpapi is the Orchestration API: a chi router exposing the
// catalog, search, download, library, and sync capabilities as JSON over
// HTTP under /api/v1.
package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/triv3/musicvault/internal/extractor"
	"github.com/triv3/musicvault/internal/httpclient"
	"github.com/triv3/musicvault/internal/logger"
	"github.com/triv3/musicvault/internal/ranking"
	"github.com/triv3/musicvault/internal/scheduler"
	"github.com/triv3/musicvault/internal/store"
	"github.com/triv3/musicvault/internal/sync"
)

// Version is the orchestration API's reported build version.
const Version = "1.0.0"

// Server holds every capability the handlers dispatch into. It carries no
// state of its own beyond these references.
type Server struct {
	store     *store.DB
	extractor *extractor.Manager
	ranking   *ranking.Engine
	scheduler *scheduler.Scheduler
	sync      *sync.Ingestor
	log       *logger.Logger
	httpc     *httpclient.Client

	libraryDir    string
	searchLimit   int
	searchPages   int
	searchPage    int
	searchStop    float64
}

// Config configures the parts of Server not already owned by its
// collaborators.
type Config struct {
	LibraryDir          string
	SearchLimit         int
	SearchMaxPages      int
	SearchPageSize      int
	SearchStopThreshold float64
}

// New constructs the Server backing the Orchestration API.
func New(db *store.DB, mgr *extractor.Manager, engine *ranking.Engine, sched *scheduler.Scheduler, ing *sync.Ingestor, log *logger.Logger, httpc *httpclient.Client, cfg Config) *Server {
	if log == nil {
		log = logger.Default()
	}
	if httpc == nil {
		httpc = httpclient.NewClient(nil, 0)
	}
	return &Server{
		store:       db,
		extractor:   mgr,
		ranking:     engine,
		scheduler:   sched,
		sync:        ing,
		log:         log.WithComponent("httpapi"),
		httpc:       httpc,
		libraryDir:  cfg.LibraryDir,
		searchLimit: cfg.SearchLimit,
		searchPages: cfg.SearchMaxPages,
		searchPage:  cfg.SearchPageSize,
		searchStop:  cfg.SearchStopThreshold,
	}
}

// Router builds the complete chi.Router for the Orchestration API,
// mounting every endpoint group under /api/v1.
func (s *Server) Router(corsOrigins []string) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(corsMiddleware(corsOrigins))

	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/info", s.handleInfo)

		r.Route("/tracks", func(r chi.Router) {
			r.Get("/", s.listTracks)
			r.Post("/", s.createTrack)
			r.Get("/normalize/preview", s.normalizePreview)
			r.Get("/with_playlist_info", s.tracksWithPlaylistInfo)
			r.Get("/ready_for_download", s.tracksReadyForDownload)
			r.Route("/{trackID}", func(r chi.Router) {
				r.Get("/", s.getTrack)
				r.Put("/", s.updateTrack)
				r.Delete("/", s.deleteTrack)
				r.Get("/identities", s.listTrackIdentities)
				r.Get("/youtube/search", s.searchYouTube)
				r.Post("/cover/refresh", s.refreshCover)
			})
		})

		r.Route("/candidates", func(r chi.Router) {
			r.Get("/", s.listCandidates)
			r.Post("/", s.createCandidate)
			r.Get("/enriched", s.listCandidatesEnriched)
			r.Route("/{candidateID}", func(r chi.Router) {
				r.Get("/", s.getCandidate)
				r.Delete("/", s.deleteCandidate)
				r.Post("/choose", s.chooseCandidate)
			})
		})

		r.Route("/downloads", func(r chi.Router) {
			r.Post("/enqueue", s.enqueueDownload)
			r.Post("/cancel/{downloadID}", s.cancelDownload)
			r.Post("/stop_all", s.stopAllDownloads)
			r.Post("/restart_worker", s.restartWorker)
			r.Get("/status", s.downloadStatus)
			r.Get("/logs", s.downloadLogs)
			r.Get("/", s.listDownloads)
			r.Get("/with_tracks", s.listDownloadsWithTracks)
		})

		r.Route("/library", func(r chi.Router) {
			r.Route("/files", func(r chi.Router) {
				r.Get("/", s.listLibraryFiles)
				r.Post("/scan", s.scanLibrary)
				r.Post("/reindex_from_tracks", s.reindexLibraryFromTracks)
				r.Post("/resync", s.resyncLibrary)
				r.Route("/{fileID}", func(r chi.Router) {
					r.Get("/", s.getLibraryFile)
					r.Delete("/", s.deleteLibraryFile)
					r.Get("/download", s.downloadLibraryFile)
					r.Get("/stream", s.streamLibraryFile)
					r.Post("/reveal", s.revealLibraryFile)
				})
			})
		})

		r.Route("/playlists", func(r chi.Router) {
			r.Get("/", s.listPlaylists)
			r.Get("/stats", s.playlistStats)
			r.Post("/memberships", s.setPlaylistMemberships)
			r.Route("/spotify", func(r chi.Router) {
				r.Get("/discover", s.discoverSpotifyPlaylists)
				r.Post("/select", s.selectSpotifyPlaylists)
				r.Post("/sync", s.syncSpotifyPlaylists)
			})
			r.Route("/{playlistID}", func(r chi.Router) {
				r.Get("/entries", s.playlistEntries)
				r.Post("/auto_download", s.playlistAutoDownload)
				r.Post("/retry_not_found", s.playlistRetryNotFound)
			})
		})

		r.Route("/oauth", func(r chi.Router) {
			r.Get("/tokens", s.listConnectedAccounts)
			r.Route("/spotify", func(r chi.Router) {
				r.Get("/authorize", s.spotifyAuthorize)
				r.Get("/callback", s.spotifyCallback)
				r.Post("/refresh", s.spotifyRefresh)
				r.Post("/ensure_account", s.spotifyEnsureAccount)
			})
		})
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"name": "musicvault", "version": Version})
}

// corsMiddleware reflects an allowed Origin back verbatim; an empty origin
// list or one containing "*" allows every Origin, matching the teacher's permissive
// single-operator-deployment posture rather than a public multi-tenant API.
func corsMiddleware(allowed []string) func(http.Handler) http.Handler {
	allowAll := len(allowed) == 0
	allowSet := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			allowAll = true
		}
		allowSet[o] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" && (allowAll || allowSet[origin]) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
				w.Header().Set("Vary", "Origin")
			}
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
