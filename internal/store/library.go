package store

import (
	"context"
	"database/sql"

	"github.com/triv3/musicvault/internal/domain"
)

// CreateLibraryFile records the ground truth that a Track has been acquired
// onto disk. Upserts on filepath so a rescan never creates duplicates for a
// file that is already known.
func (db *DB) CreateLibraryFile(ctx context.Context, f *domain.LibraryFile) (*domain.LibraryFile, error) {
	row := db.QueryRowxContext(ctx, `
		INSERT INTO library_files (track_id, filepath, file_size, file_mtime, checksum, container)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(filepath) DO UPDATE SET
			file_size = excluded.file_size, file_mtime = excluded.file_mtime,
			checksum = excluded.checksum, container = excluded.container
		RETURNING id, track_id, filepath, file_size, file_mtime, checksum, container, created_at`,
		f.TrackID, f.FilePath, f.FileSize, f.FileMtime, f.Checksum, f.Container,
	)
	var created domain.LibraryFile
	if err := row.StructScan(&created); err != nil {
		return nil, err
	}
	return &created, nil
}

// GetLibraryFileByPath looks up a LibraryFile by its on-disk path.
func (db *DB) GetLibraryFileByPath(ctx context.Context, filepath string) (*domain.LibraryFile, error) {
	var f domain.LibraryFile
	err := db.GetContext(ctx, &f, "SELECT * FROM library_files WHERE filepath = ?", filepath)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// ListLibraryFilesByTrack returns every on-disk file recorded for a Track.
// Normally zero or one, but a re-download into a different format/bitrate
// can leave more than one behind until the caller prunes it.
func (db *DB) ListLibraryFilesByTrack(ctx context.Context, trackID int) ([]domain.LibraryFile, error) {
	var files []domain.LibraryFile
	err := db.SelectContext(ctx, &files, "SELECT * FROM library_files WHERE track_id = ?", trackID)
	return files, err
}

// HasLibraryFile reports whether a Track already has a recorded file,
// the check behind the "already acquired" skip path.
func (db *DB) HasLibraryFile(ctx context.Context, trackID int) (bool, error) {
	var count int
	err := db.GetContext(ctx, &count, "SELECT COUNT(*) FROM library_files WHERE track_id = ?", trackID)
	return count > 0, err
}

// DeleteLibraryFile removes the ground-truth record for a path, used when a
// rescan finds the file missing from disk.
func (db *DB) DeleteLibraryFile(ctx context.Context, filepath string) error {
	_, err := db.ExecContext(ctx, "DELETE FROM library_files WHERE filepath = ?", filepath)
	return err
}

// ListAllLibraryFiles returns every recorded file, for the filesystem
// reconciliation pass to diff against what it finds on disk.
func (db *DB) ListAllLibraryFiles(ctx context.Context) ([]domain.LibraryFile, error) {
	var files []domain.LibraryFile
	err := db.SelectContext(ctx, &files, "SELECT * FROM library_files")
	return files, err
}
