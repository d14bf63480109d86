// Package scheduler is the Download Scheduler: a bounded-concurrency worker
// pool over the Catalog's Download queue, plus the bulk auto-download path
// that searches and enqueues an entire playlist.
package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/triv3/musicvault/internal/apperr"
	"github.com/triv3/musicvault/internal/constants"
	"github.com/triv3/musicvault/internal/domain"
	"github.com/triv3/musicvault/internal/extractor"
	"github.com/triv3/musicvault/internal/httpclient"
	"github.com/triv3/musicvault/internal/logger"
	"github.com/triv3/musicvault/internal/ranking"
	"github.com/triv3/musicvault/internal/storage"
	"github.com/triv3/musicvault/internal/store"
	"github.com/triv3/musicvault/internal/tagging"
	"github.com/triv3/musicvault/internal/timestamp"
)

// Config configures one Scheduler instance.
type Config struct {
	Concurrency          int
	SearchConcurrency    int
	LibraryDir           string
	PreferredAudioFormat string
	ExtractorArgs        string
	EmbedThumbnail       bool
	CookiesFile          string
	HistoryKeep          int
	MinAutochooseScore   float64
	LogBufferMaxLines    int
	PollInterval         time.Duration

	SearchLimit         int
	SearchMaxPages      int
	SearchPageSize      int
	SearchStopThreshold float64
}

// DefaultConfig returns the Scheduler defaults from constants.
func DefaultConfig() Config {
	return Config{
		Concurrency:          constants.DefaultConcurrency,
		SearchConcurrency:    constants.DefaultConcurrency,
		PreferredAudioFormat: constants.DefaultPreferredAudioFmt,
		EmbedThumbnail:       true,
		HistoryKeep:          constants.DefaultHistoryKeep,
		MinAutochooseScore:   constants.DefaultMinAutochooseScore,
		LogBufferMaxLines:    constants.DefaultLogBufferMaxLines,
		PollInterval:         constants.DefaultPollInterval,
		SearchLimit:          constants.DefaultYouTubeSearchLimit,
		SearchMaxPages:       constants.DefaultYouTubeSearchMaxPages,
		SearchPageSize:       constants.DefaultYouTubeSearchPageSize,
		SearchStopThreshold:  constants.DefaultYouTubeSearchStopThreshold,
	}
}

// Status is the scheduler's introspection snapshot.
type Status struct {
	WorkerRunning bool `json:"worker_running"`
	QueueSize     int  `json:"queue_size"`
	ActiveTasks   int  `json:"active_tasks"`
	Concurrency   int  `json:"concurrency"`
}

// AutoDownloadResult is the immediate response to a bulk auto-download
// request; the actual work continues after it is returned.
type AutoDownloadResult struct {
	Status      string `json:"status"`
	TotalTracks int    `json:"total_tracks"`
}

// Scheduler owns the Download queue's worker pool and the bulk
// auto-download path. It holds no database transaction across a
// suspension point: every DB mutation it issues is a short, independent
// call into store.DB.
type Scheduler struct {
	store     *store.DB
	extractor *extractor.Manager
	ranking   *ranking.Engine
	log       *logger.Logger
	httpc     *httpclient.Client
	cfg       Config
	logBuf    *LogBuffer

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	sem       chan struct{}
	searchSem chan struct{}

	stopped atomic.Bool
	active  atomic.Int64
	started atomic.Bool
}

// New constructs a Scheduler. Call Start to begin processing.
func New(db *store.DB, mgr *extractor.Manager, engine *ranking.Engine, log *logger.Logger, httpc *httpclient.Client, cfg Config) *Scheduler {
	if log == nil {
		log = logger.Default()
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = constants.DefaultConcurrency
	}
	if cfg.SearchConcurrency <= 0 {
		cfg.SearchConcurrency = cfg.Concurrency
	}
	if cfg.SearchLimit <= 0 {
		cfg.SearchLimit = constants.DefaultYouTubeSearchLimit
	}
	if cfg.SearchMaxPages <= 0 {
		cfg.SearchMaxPages = constants.DefaultYouTubeSearchMaxPages
	}
	if cfg.SearchPageSize <= 0 {
		cfg.SearchPageSize = constants.DefaultYouTubeSearchPageSize
	}
	if cfg.SearchStopThreshold <= 0 {
		cfg.SearchStopThreshold = constants.DefaultYouTubeSearchStopThreshold
	}
	if cfg.HistoryKeep <= 0 {
		cfg.HistoryKeep = constants.DefaultHistoryKeep
	}
	if cfg.MinAutochooseScore <= 0 {
		cfg.MinAutochooseScore = constants.DefaultMinAutochooseScore
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = constants.DefaultPollInterval
	}
	bufSize := cfg.LogBufferMaxLines
	if bufSize < constants.LogBufferMinLines {
		bufSize = constants.LogBufferMinLines
	}
	if bufSize > constants.LogBufferMaxLinesCap {
		bufSize = constants.LogBufferMaxLinesCap
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		store:     db,
		extractor: mgr,
		ranking:   engine,
		log:       log.WithComponent("scheduler"),
		httpc:     httpc,
		cfg:       cfg,
		logBuf:    NewLogBuffer(bufSize),
		ctx:       ctx,
		cancel:    cancel,
		sem:       make(chan struct{}, cfg.Concurrency),
		searchSem: make(chan struct{}, cfg.SearchConcurrency),
	}
}

func (s *Scheduler) logf(level, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	s.logBuf.Append(level, msg)
	switch level {
	case "error":
		s.log.Error(msg)
	case "warn":
		s.log.Warn(msg)
	default:
		s.log.Info(msg)
	}
}

// Start recovers interrupted downloads from a previous process lifetime,
// then begins the worker loop and the periodic history-trimming sweep.
func (s *Scheduler) Start() {
	if !s.started.CompareAndSwap(false, true) {
		return
	}
	s.logf("info", "scheduler starting, concurrency=%d", s.cfg.Concurrency)
	s.recoverInterrupted()

	s.wg.Add(2)
	go s.processLoop()
	go s.trimLoop()
}

// Stop cancels every in-flight job's context and waits for the worker pool
// to exit; queued rows are left queued (StopAll skips them). In-flight jobs still finish whatever
// extractor step they're in before observing cancellation.
func (s *Scheduler) Stop() {
	s.stopped.Store(true)
	s.cancel()
	s.wg.Wait()
}

// RestartWorker clears the stopped flag and gives the scheduler a fresh
// processing context, resuming queue consumption.
func (s *Scheduler) RestartWorker() {
	if !s.stopped.Load() {
		return
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.stopped.Store(false)
	s.logf("info", "worker restarted")
	s.wg.Add(2)
	go s.processLoop()
	go s.trimLoop()
}

// Status reports the scheduler's current introspection snapshot.
func (s *Scheduler) Status(ctx context.Context) (Status, error) {
	queued, err := s.store.ListQueuedDownloads(ctx, 1<<30)
	if err != nil {
		return Status{}, err
	}
	return Status{
		WorkerRunning: s.started.Load() && !s.stopped.Load(),
		QueueSize:     len(queued),
		ActiveTasks:   int(s.active.Load()),
		Concurrency:   s.cfg.Concurrency,
	}, nil
}

// Logs returns the last count lines from the operator log ring buffer.
func (s *Scheduler) Logs(count int) []LogEntry {
	return s.logBuf.Snapshot(count)
}

func (s *Scheduler) recoverInterrupted() {
	interrupted, err := s.store.FindInterruptedDownloads(s.ctx)
	if err != nil {
		s.logf("error", "recover interrupted downloads: %v", err)
		return
	}
	for _, d := range interrupted {
		msg := "process restarted while running"
		if err := s.store.FinishDownload(s.ctx, d.ID, domain.DownloadFailed, nil, nil, nil, nil, &msg); err != nil {
			s.logf("error", "recover download %d: %v", d.ID, err)
			continue
		}
		s.logf("warn", "recovered interrupted download %d as failed", d.ID)
	}
}

func (s *Scheduler) trimLoop() {
	defer s.wg.Done()
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.trimHistory()
		}
	}
}

// trimHistory keeps at most HistoryKeep terminal rows by age; running and
// queued rows are never affected since ClearFinishedDownloads only targets
// terminal statuses.
func (s *Scheduler) trimHistory() {
	finished, err := s.store.ListFinishedDownloads(s.ctx, s.cfg.HistoryKeep+1)
	if err != nil || len(finished) <= s.cfg.HistoryKeep {
		return
	}
	cutoff := finished[s.cfg.HistoryKeep-1].FinishedAt
	if cutoff == nil {
		return
	}
	n, err := s.store.ClearFinishedDownloads(s.ctx, *cutoff)
	if err != nil {
		s.logf("error", "trim history: %v", err)
		return
	}
	if n > 0 {
		s.logf("info", "trimmed %d old download rows", n)
	}
}

// Enqueue persists a Download row honoring the dedup/force contract: an
// existing LibraryFile short-circuits to status "already" unless force is
// set, an active non-terminal Download for the same track always refuses,
// and a missing candidate_id resolves to the track's chosen candidate.
func (s *Scheduler) Enqueue(ctx context.Context, trackID int, candidateID *int, force bool) (*domain.Download, error) {
	if active, err := s.store.GetActiveDownloadForTrack(ctx, trackID); err != nil {
		return nil, err
	} else if active != nil {
		return nil, apperr.Conflict("a download is already active for this track", "ACTIVE_DOWNLOAD")
	}

	if !force {
		has, err := s.store.HasLibraryFile(ctx, trackID)
		if err != nil {
			return nil, err
		}
		if has {
			d, err := s.store.CreateDownload(ctx, &domain.Download{TrackID: trackID, CandidateID: candidateID, Provider: "youtube"})
			if err != nil {
				return nil, err
			}
			if err := s.store.FinishDownload(ctx, d.ID, domain.DownloadAlready, nil, nil, nil, nil, nil); err != nil {
				return nil, err
			}
			d.Status = domain.DownloadAlready
			return d, nil
		}
	}

	if candidateID == nil {
		chosen, err := s.store.GetChosenCandidate(ctx, trackID)
		if err != nil {
			return nil, err
		}
		if chosen == nil {
			return nil, apperr.Validation("NO_CANDIDATE: track has no chosen candidate")
		}
		candidateID = &chosen.ID
	}

	return s.store.CreateDownload(ctx, &domain.Download{
		TrackID:     trackID,
		CandidateID: candidateID,
		Provider:    "youtube",
	})
}

// Cancel transitions a queued download to skipped. Idempotent: cancelling
// an already-terminal download is a no-op rather than an error. Cancelling
// a running download refuses with a conflict.
func (s *Scheduler) Cancel(ctx context.Context, downloadID int) error {
	d, err := s.store.GetDownload(ctx, downloadID)
	if err != nil {
		return err
	}
	if d == nil {
		return apperr.NotFound(fmt.Sprintf("download %d not found", downloadID))
	}
	if d.Status == domain.DownloadRunning {
		return apperr.Conflict("cannot cancel a running download", "DOWNLOAD_RUNNING")
	}
	_, err = s.store.MarkDownloadSkipped(ctx, downloadID)
	return err
}

// StopAll drains the queue (marking every queued download skipped) and
// cancels the in-flight jobs' contexts; running jobs finish their current
// extractor step before reporting failed with a cancellation cause.
func (s *Scheduler) StopAll(ctx context.Context) (int64, error) {
	n, err := s.store.SkipAllQueued(ctx)
	if err != nil {
		return 0, err
	}
	s.Stop()
	s.logf("info", "stop_all: drained %d queued downloads", n)
	return n, nil
}

func (s *Scheduler) processLoop() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.dispatchQueued()
		}
	}
}

func (s *Scheduler) dispatchQueued() {
	queued, err := s.store.ListQueuedDownloads(s.ctx, s.cfg.Concurrency*4)
	if err != nil {
		s.logf("error", "list queued downloads: %v", err)
		return
	}
	for _, d := range queued {
		select {
		case s.sem <- struct{}{}:
		default:
			return
		}
		s.wg.Add(1)
		s.active.Add(1)
		go func(d domain.Download) {
			defer s.wg.Done()
			defer func() { <-s.sem; s.active.Add(-1) }()
			s.runJob(s.ctx, d.ID)
		}(d)
	}
}

// runJob implements the worker loop's 10-step contract over one Download.
func (s *Scheduler) runJob(ctx context.Context, downloadID int) {
	fresh, err := s.store.GetDownload(ctx, downloadID)
	if err != nil || fresh == nil {
		s.logf("error", "download %d vanished before start: %v", downloadID, err)
		return
	}
	if fresh.Status != domain.DownloadQueued {
		return
	}

	if err := s.store.MarkDownloadRunning(ctx, downloadID); err != nil {
		s.logf("error", "mark download %d running: %v", downloadID, err)
		return
	}

	track, err := s.store.GetTrack(ctx, fresh.TrackID)
	if err != nil || track == nil {
		s.fail(ctx, downloadID, "track not found")
		return
	}

	var candidate *domain.SearchCandidate
	if fresh.CandidateID != nil {
		candidate, err = s.store.GetCandidate(ctx, *fresh.CandidateID)
		if err != nil {
			s.fail(ctx, downloadID, fmt.Sprintf("resolve candidate: %v", err))
			return
		}
	}
	if candidate == nil {
		s.fail(ctx, downloadID, "no resolvable candidate")
		return
	}

	if ctx.Err() != nil {
		s.fail(context.WithoutCancel(ctx), downloadID, "cancelled before download")
		return
	}

	s.probeDuration(ctx, downloadID, track, candidate)

	result, err := s.extractor.Download(context.WithoutCancel(ctx), candidate.URL, extractor.DownloadOptions{
		OutputDir:            s.cfg.LibraryDir,
		PreferredAudioFormat: s.cfg.PreferredAudioFormat,
		ExtractorArgs:        s.cfg.ExtractorArgs,
		CookiesFile:          s.cfg.CookiesFile,
		EmbedThumbnail:       s.cfg.EmbedThumbnail,
	})
	if err != nil {
		s.fail(ctx, downloadID, fmt.Sprintf("extractor download failed: %v", err))
		return
	}

	if ctx.Err() != nil {
		s.fail(context.WithoutCancel(ctx), downloadID, "cancelled after download")
		return
	}

	finalPath, err := s.relocate(result.FilePath, track)
	if err != nil {
		s.fail(ctx, downloadID, fmt.Sprintf("place downloaded file: %v", err))
		return
	}

	thumb := ""
	if candidate.ThumbnailURL != nil {
		thumb = *candidate.ThumbnailURL
	}
	coverURL, coverSource := tagging.SelectCoverURL(track, thumb)
	var cover tagging.Cover
	if coverURL != "" {
		cover, err = tagging.DownloadImage(ctx, s.httpc, coverURL)
		if err != nil {
			s.logf("warn", "cover fetch failed for download %d (%s): %v", downloadID, coverSource, err)
		}
	}

	checksum, err := tagging.TagFile(finalPath, track, cover)
	if err != nil {
		s.fail(ctx, downloadID, fmt.Sprintf("tag file: %v", err))
		return
	}

	s.applyTimestamps(ctx, track, finalPath)

	format := strings.TrimPrefix(filepath.Ext(finalPath), ".")
	size := result.Bytes
	if fi, statErr := os.Stat(finalPath); statErr == nil {
		size = fi.Size()
	}

	if err := s.store.FinishDownload(ctx, downloadID, domain.DownloadDone, &finalPath, &format, &checksum, &size, nil); err != nil {
		s.logf("error", "finish download %d: %v", downloadID, err)
		return
	}
	s.logf("info", "download %d done: %s", downloadID, finalPath)
}

// probeDurationMismatchTolerance bounds how far a probed duration can drift
// from the track's catalog duration before it's logged as a mismatch.
const probeDurationMismatchTolerance = 10 * time.Second

// probeDuration cross-checks the chosen candidate's actual duration against
// the track's catalog duration right before spending a subprocess download
// on it. Best-effort: an extractor with no DurationProber capability, or a
// probe that errors, just skips the check rather than failing the job.
func (s *Scheduler) probeDuration(ctx context.Context, downloadID int, track *domain.Track, candidate *domain.SearchCandidate) {
	if track.DurationMS == nil {
		return
	}
	probed, err := s.extractor.ProbeDuration(ctx, candidate.URL)
	if err != nil {
		if !errors.Is(err, extractor.ErrProbeUnsupported) {
			s.logf("warn", "download %d: duration probe failed: %v", downloadID, err)
		}
		return
	}
	want := time.Duration(*track.DurationMS) * time.Millisecond
	if diff := probed - want; diff > probeDurationMismatchTolerance || diff < -probeDurationMismatchTolerance {
		s.logf("warn", "download %d: probed duration %s differs from catalog duration %s for %s",
			downloadID, probed, want, candidate.URL)
	}
}

func (s *Scheduler) fail(ctx context.Context, downloadID int, reason string) {
	if err := s.store.FinishDownload(ctx, downloadID, domain.DownloadFailed, nil, nil, nil, nil, &reason); err != nil {
		s.logf("error", "finish download %d as failed: %v", downloadID, err)
		return
	}
	s.logf("warn", "download %d failed: %s", downloadID, reason)
}

// relocate moves the extractor's output file to the catalog's canonical
// "<artists> - <title>.<ext>" path under LibraryDir, appending a numeric
// suffix on collision.
func (s *Scheduler) relocate(srcPath string, track *domain.Track) (string, error) {
	ext := strings.TrimPrefix(filepath.Ext(srcPath), ".")
	filename := storage.BuildFilename(track.Artists, track.Title, ext)
	dstPath := filepath.Join(s.cfg.LibraryDir, filename)

	resolved, err := storage.ResolveCollisionPath(dstPath)
	if err != nil {
		return "", err
	}
	if err := storage.EnsureDir(filepath.Dir(resolved)); err != nil {
		return "", err
	}
	if err := storage.MoveFile(srcPath, resolved); err != nil {
		return "", err
	}
	return resolved, nil
}

func (s *Scheduler) applyTimestamps(ctx context.Context, track *domain.Track, path string) {
	latest, err := s.store.GetLatestPlaylistAddedAt(ctx, track.ID)
	if err != nil {
		s.logf("warn", "resolve playlist added_at for track %d: %v", track.ID, err)
	}
	targets := timestamp.Resolve(track, latest, time.Now())
	if mtimeErr, creationErr := timestamp.Apply(path, targets); mtimeErr != nil {
		s.logf("warn", "set mtime for %s: %v", path, mtimeErr)
	} else if creationErr != nil {
		s.logf("warn", "set creation time for %s: %v", path, creationErr)
	}
}

// AutoDownload runs the bulk auto-download path for a playlist: for every
// track lacking both a LibraryFile and a chosen candidate, it searches,
// ranks, and either enqueues the top candidate or annotates the track
// searched_not_found when the top score falls under MinAutochooseScore.
// It returns immediately; the work continues on a detached goroutine.
func (s *Scheduler) AutoDownload(ctx context.Context, playlistID int) (AutoDownloadResult, error) {
	tracks, err := s.store.ListTracksInPlaylist(ctx, playlistID)
	if err != nil {
		return AutoDownloadResult{}, err
	}

	go func() {
		bg := context.Background()
		var wg sync.WaitGroup
		for _, t := range tracks {
			t := t
			has, err := s.store.HasLibraryFile(bg, t.ID)
			if err != nil || has {
				continue
			}
			if active, err := s.store.GetActiveDownloadForTrack(bg, t.ID); err != nil || active != nil {
				continue
			}

			wg.Add(1)
			s.searchSem <- struct{}{}
			go func(track domain.Track) {
				defer wg.Done()
				defer func() { <-s.searchSem }()
				s.autoChooseAndEnqueue(bg, &track)
			}(t)
		}
		wg.Wait()
	}()

	return AutoDownloadResult{Status: "processing", TotalTracks: len(tracks)}, nil
}

func (s *Scheduler) autoChooseAndEnqueue(ctx context.Context, track *domain.Track) {
	chosen, err := s.store.GetChosenCandidate(ctx, track.ID)
	if err != nil {
		s.logf("error", "lookup chosen candidate for track %d: %v", track.ID, err)
		return
	}
	if chosen == nil {
		chosen, err = s.searchAndRank(ctx, track)
		if err != nil {
			s.logf("error", "search track %d: %v", track.ID, err)
			return
		}
		if chosen == nil {
			return
		}
	}
	if _, err := s.Enqueue(ctx, track.ID, &chosen.ID, false); err != nil {
		s.logf("warn", "auto-enqueue track %d: %v", track.ID, err)
	}
}

// searchAndRank runs Extractor.search, ranks the results, and persists the
// top candidate as chosen if its score clears MinAutochooseScore. Below
// that bar, the track is annotated searched_not_found and nil is returned.
func (s *Scheduler) searchAndRank(ctx context.Context, track *domain.Track) (*domain.SearchCandidate, error) {
	var durationSec *int
	if track.DurationMS != nil {
		d := int(*track.DurationMS / 1000)
		durationSec = &d
	}

	raws, err := s.extractor.Search(ctx, extractor.Query{
		Artists:     track.Artists,
		Title:       track.Title,
		DurationSec: durationSec,
	}, extractor.SearchOptions{
		Limit:         s.cfg.SearchLimit,
		MaxPages:      s.cfg.SearchMaxPages,
		PageSize:      s.cfg.SearchPageSize,
		StopThreshold: s.cfg.SearchStopThreshold,
	})
	if err != nil {
		return nil, err
	}
	if len(raws) == 0 {
		_ = s.store.UpdateTrackFields(ctx, track.ID, map[string]any{"annotation": string(domain.AnnotationSearchedNotFound)})
		return nil, nil
	}

	candidates := make([]ranking.Candidate, len(raws))
	for i, r := range raws {
		channel := ""
		if r.Channel != nil {
			channel = *r.Channel
		}
		candidates[i] = ranking.Candidate{ID: r.ExternalID, Title: r.Title, Channel: channel, DurationSec: r.DurationSec}
	}

	scored := s.ranking.Rank(ranking.Query{Artists: track.Artists, Title: track.Title, DurationSec: durationSec}, candidates)
	if len(scored) == 0 || scored[0].Score.Total < s.cfg.MinAutochooseScore {
		_ = s.store.UpdateTrackFields(ctx, track.ID, map[string]any{"annotation": string(domain.AnnotationSearchedNotFound)})
		return nil, nil
	}

	top := scored[0]
	var raw *extractor.RawCandidate
	for i := range raws {
		if raws[i].ExternalID == top.ID {
			raw = &raws[i]
			break
		}
	}
	if raw == nil {
		return nil, fmt.Errorf("matched candidate %q not found among raw results", top.ID)
	}

	breakdown, err := json.Marshal(top.Score)
	if err != nil {
		return nil, err
	}
	breakdownStr := string(breakdown)

	created, err := s.store.CreateCandidate(ctx, &domain.SearchCandidate{
		TrackID:        track.ID,
		Provider:       "youtube",
		ExternalID:     raw.ExternalID,
		URL:            raw.URL,
		Title:          raw.Title,
		Channel:        raw.Channel,
		DurationSec:    raw.DurationSec,
		ThumbnailURL:   raw.ThumbnailURL,
		Score:          top.Score.Total,
		ScoreBreakdown: &breakdownStr,
	})
	if err != nil {
		return nil, err
	}
	if err := s.store.ChooseCandidate(ctx, track.ID, created.ID); err != nil {
		return nil, err
	}
	created.Chosen = true
	return created, nil
}
