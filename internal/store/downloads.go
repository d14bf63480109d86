package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/triv3/musicvault/internal/domain"
)

// CreateDownload enqueues a new acquisition attempt in the queued state.
func (db *DB) CreateDownload(ctx context.Context, d *domain.Download) (*domain.Download, error) {
	row := db.QueryRowxContext(ctx, `
		INSERT INTO downloads (track_id, candidate_id, provider, status)
		VALUES (?, ?, ?, ?)
		RETURNING id, track_id, candidate_id, provider, status, filepath, format,
			filesize_bytes, checksum, error_message, created_at, started_at, finished_at`,
		d.TrackID, d.CandidateID, d.Provider, domain.DownloadQueued,
	)
	var created domain.Download
	if err := row.StructScan(&created); err != nil {
		return nil, fmt.Errorf("create download: %w", err)
	}
	return &created, nil
}

// GetDownload fetches a Download by id.
func (db *DB) GetDownload(ctx context.Context, id int) (*domain.Download, error) {
	var d domain.Download
	err := db.GetContext(ctx, &d, "SELECT * FROM downloads WHERE id = ?", id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// GetActiveDownloadForTrack returns the queued or running download for a
// track, if any. Used to enforce "at most one non-terminal download per
// track" on enqueue.
func (db *DB) GetActiveDownloadForTrack(ctx context.Context, trackID int) (*domain.Download, error) {
	var d domain.Download
	err := db.GetContext(ctx, &d, `
		SELECT * FROM downloads
		WHERE track_id = ? AND status IN (?, ?)
		ORDER BY created_at DESC LIMIT 1`,
		trackID, domain.DownloadQueued, domain.DownloadRunning,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// ListDownloadsByTrack returns every attempt for a track, most recent first.
func (db *DB) ListDownloadsByTrack(ctx context.Context, trackID int) ([]domain.Download, error) {
	var downloads []domain.Download
	err := db.SelectContext(ctx, &downloads,
		"SELECT * FROM downloads WHERE track_id = ? ORDER BY created_at DESC",
		trackID,
	)
	return downloads, err
}

// ListQueuedDownloads returns queued downloads in FIFO order, for the
// scheduler's worker loop to pop from.
func (db *DB) ListQueuedDownloads(ctx context.Context, limit int) ([]domain.Download, error) {
	var downloads []domain.Download
	err := db.SelectContext(ctx, &downloads,
		"SELECT * FROM downloads WHERE status = ? ORDER BY created_at ASC LIMIT ?",
		domain.DownloadQueued, limit,
	)
	return downloads, err
}

// MarkDownloadRunning transitions a queued download to running.
func (db *DB) MarkDownloadRunning(ctx context.Context, id int) error {
	now := time.Now()
	_, err := db.ExecContext(ctx,
		"UPDATE downloads SET status = ?, started_at = ? WHERE id = ? AND status = ?",
		domain.DownloadRunning, now, id, domain.DownloadQueued,
	)
	return err
}

// MarkDownloadSkipped transitions a queued download to skipped. Only
// affects rows still queued, so a second cancel call against an already-
// terminal download is a no-op rather than an error (§8's idempotent-
// cancel property).
func (db *DB) MarkDownloadSkipped(ctx context.Context, id int) (int64, error) {
	now := time.Now()
	res, err := db.ExecContext(ctx,
		"UPDATE downloads SET status = ?, finished_at = ? WHERE id = ? AND status = ?",
		domain.DownloadSkipped, now, id, domain.DownloadQueued,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// SkipAllQueued transitions every queued download to skipped in one sweep,
// the "drain the queue" half of stop_all.
func (db *DB) SkipAllQueued(ctx context.Context) (int64, error) {
	now := time.Now()
	res, err := db.ExecContext(ctx,
		"UPDATE downloads SET status = ?, finished_at = ? WHERE status = ?",
		domain.DownloadSkipped, now, domain.DownloadQueued,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// FinishDownload transitions a running download to a terminal state and, on
// success, atomically records the LibraryFile ground truth (invariant 5).
func (db *DB) FinishDownload(ctx context.Context, id int, status domain.DownloadStatus, filepath, format, checksum *string, filesizeBytes *int64, errorMessage *string) error {
	return db.RunInTx(ctx, func(tx *sqlx.Tx) error {
		var trackID int
		if err := tx.GetContext(ctx, &trackID, "SELECT track_id FROM downloads WHERE id = ?", id); err != nil {
			return fmt.Errorf("lookup download track: %w", err)
		}

		now := time.Now()
		_, err := tx.ExecContext(ctx, `
			UPDATE downloads SET status = ?, filepath = ?, format = ?, filesize_bytes = ?,
				checksum = ?, error_message = ?, finished_at = ?
			WHERE id = ?`,
			status, filepath, format, filesizeBytes, checksum, errorMessage, now, id,
		)
		if err != nil {
			return fmt.Errorf("finish download: %w", err)
		}

		if status == domain.DownloadDone && filepath != nil {
			container := ""
			if format != nil {
				container = *format
			}
			_, err := tx.ExecContext(ctx, `
				INSERT INTO library_files (track_id, filepath, file_size, checksum, container)
				VALUES (?, ?, ?, ?, ?)
				ON CONFLICT(filepath) DO UPDATE SET
					file_size = excluded.file_size, checksum = excluded.checksum, container = excluded.container`,
				trackID, *filepath, filesizeBytes, checksum, container,
			)
			if err != nil {
				return fmt.Errorf("record library file: %w", err)
			}
		}
		return nil
	})
}

// FindInterruptedDownloads returns downloads left running by a previous,
// uncleanly terminated process — candidates for requeue on boot.
func (db *DB) FindInterruptedDownloads(ctx context.Context) ([]domain.Download, error) {
	var downloads []domain.Download
	err := db.SelectContext(ctx, &downloads, "SELECT * FROM downloads WHERE status = ?", domain.DownloadRunning)
	return downloads, err
}

// ListFinishedDownloads returns terminal downloads, most recent first, for
// the history endpoint.
func (db *DB) ListFinishedDownloads(ctx context.Context, limit int) ([]domain.Download, error) {
	var downloads []domain.Download
	err := db.SelectContext(ctx, &downloads, `
		SELECT * FROM downloads
		WHERE status IN (?, ?, ?, ?)
		ORDER BY finished_at DESC LIMIT ?`,
		domain.DownloadDone, domain.DownloadFailed, domain.DownloadSkipped, domain.DownloadAlready, limit,
	)
	return downloads, err
}

// ClearFinishedDownloads deletes every terminal download older than before.
func (db *DB) ClearFinishedDownloads(ctx context.Context, before time.Time) (int64, error) {
	res, err := db.ExecContext(ctx, `
		DELETE FROM downloads
		WHERE status IN (?, ?, ?, ?) AND finished_at < ?`,
		domain.DownloadDone, domain.DownloadFailed, domain.DownloadSkipped, domain.DownloadAlready, before,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
