package httpapi

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/triv3/musicvault/internal/apperr"
	"github.com/triv3/musicvault/internal/domain"
)

func (s *Server) listLibraryFiles(w http.ResponseWriter, r *http.Request) {
	if trackIDStr := r.URL.Query().Get("track_id"); trackIDStr != "" {
		trackID, err := parseQueryInt(trackIDStr)
		if err != nil {
			writeError(w, err)
			return
		}
		files, err := s.store.ListLibraryFilesByTrack(r.Context(), trackID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, files)
		return
	}
	files, err := s.store.ListAllLibraryFiles(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, files)
}

func (s *Server) getLibraryFile(w http.ResponseWriter, r *http.Request) {
	f, err := s.resolveLibraryFile(r)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func (s *Server) resolveLibraryFile(r *http.Request) (*domain.LibraryFile, error) {
	id, err := parseIDParam(r, "fileID")
	if err != nil {
		return nil, err
	}
	files, err := s.store.ListAllLibraryFiles(r.Context())
	if err != nil {
		return nil, err
	}
	for i := range files {
		if files[i].ID == id {
			return &files[i], nil
		}
	}
	return nil, apperr.NotFound("library file not found")
}

func (s *Server) deleteLibraryFile(w http.ResponseWriter, r *http.Request) {
	f, err := s.resolveLibraryFile(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.store.DeleteLibraryFile(r.Context(), f.FilePath); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) downloadLibraryFile(w http.ResponseWriter, r *http.Request) {
	f, err := s.resolveLibraryFile(r)
	if err != nil {
		writeError(w, err)
		return
	}
	file, err := os.Open(f.FilePath)
	if err != nil {
		writeError(w, apperr.Infrastructure("open library file", err))
		return
	}
	defer file.Close()

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(f.FilePath)))
	w.Header().Set("Content-Type", AudioMimeForPath(filepath.Ext(f.FilePath)))
	http.ServeContent(w, r, filepath.Base(f.FilePath), time.Time{}, file)
}

// streamLibraryFile implements the byte-range streaming contract: no Range
// header serves the full body as 200 with Accept-Ranges advertised; a valid
// Range header serves the requested slice as 206 with Content-Range set.
// The ETag is a strong hash over size and mtime, not file content, so it's
// cheap to compute on every request.
func (s *Server) streamLibraryFile(w http.ResponseWriter, r *http.Request) {
	f, err := s.resolveLibraryFile(r)
	if err != nil {
		writeError(w, err)
		return
	}

	file, err := os.Open(f.FilePath)
	if err != nil {
		writeError(w, apperr.Infrastructure("open library file", err))
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		writeError(w, apperr.Infrastructure("stat library file", err))
		return
	}
	size := info.Size()

	etag := computeETag(size, info.ModTime())
	w.Header().Set("ETag", etag)
	w.Header().Set("Last-Modified", info.ModTime().UTC().Format(http.TimeFormat))
	w.Header().Set("Accept-Ranges", "bytes")
	contentType := AudioMimeForPath(filepath.Ext(f.FilePath))
	w.Header().Set("Content-Type", contentType)

	rangeHeader := r.Header.Get("Range")
	if rangeHeader == "" {
		w.Header().Set("Content-Length", fmt.Sprintf("%d", size))
		w.WriteHeader(http.StatusOK)
		if r.Method != http.MethodHead {
			io.Copy(w, file)
		}
		return
	}

	start, end, err := ParseRange(rangeHeader, size)
	if err != nil {
		w.Header().Set("Content-Range", fmt.Sprintf("bytes */%d", size))
		writeError(w, err)
		return
	}

	if _, err := file.Seek(start, io.SeekStart); err != nil {
		writeError(w, apperr.Infrastructure("seek library file", err))
		return
	}

	length := end - start + 1
	w.Header().Set("Content-Range", BuildContentRange(start, end, size))
	w.Header().Set("Content-Length", fmt.Sprintf("%d", length))
	w.WriteHeader(http.StatusPartialContent)
	if r.Method != http.MethodHead {
		io.CopyN(w, file, length)
	}
}

func computeETag(size int64, mtime time.Time) string {
	h := sha256.New()
	fmt.Fprintf(h, "%d|%d", size, mtime.UnixNano())
	return `"` + hex.EncodeToString(h.Sum(nil)) + `"`
}

func (s *Server) revealLibraryFile(w http.ResponseWriter, r *http.Request) {
	f, err := s.resolveLibraryFile(r)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"directory": filepath.Dir(f.FilePath), "filepath": f.FilePath})
}

// scanLibrary walks LibraryDir and upserts a LibraryFile row for every audio
// file it finds that isn't already recorded, the filesystem-to-catalog
// reconciliation's "discover new files" half.
func (s *Server) scanLibrary(w http.ResponseWriter, r *http.Request) {
	created := 0
	err := filepath.WalkDir(s.libraryDir, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil || d.IsDir() {
			return nil
		}
		switch filepath.Ext(path) {
		case ".mp3", ".m4a", ".mp4":
		default:
			return nil
		}
		existing, err := s.store.GetLibraryFileByPath(r.Context(), path)
		if err != nil {
			return err
		}
		if existing != nil {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		size := info.Size()
		mtime := info.ModTime()
		container := filepath.Ext(path)[1:]
		if _, err := s.store.CreateLibraryFile(r.Context(), &domain.LibraryFile{
			FilePath: path, FileSize: &size, FileMtime: &mtime, Container: container,
		}); err != nil {
			return err
		}
		created++
		return nil
	})
	if err != nil {
		writeError(w, apperr.Infrastructure("scan library directory", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"discovered": created})
}

// reindexLibraryFromTracks checks every recorded LibraryFile path against
// the filesystem and reports how many still exist ("checked") out of the
// total; it changes no rows and recomputes no paths.
func (s *Server) reindexLibraryFromTracks(w http.ResponseWriter, r *http.Request) {
	files, err := s.store.ListAllLibraryFiles(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	checked := 0
	for _, f := range files {
		if _, err := os.Stat(f.FilePath); err == nil {
			checked++
		}
	}
	writeJSON(w, http.StatusOK, map[string]int{"checked": checked, "total": len(files)})
}

// resyncLibrary removes LibraryFile rows whose on-disk file is gone, the
// reconciliation pass's "drop stale records" half.
func (s *Server) resyncLibrary(w http.ResponseWriter, r *http.Request) {
	files, err := s.store.ListAllLibraryFiles(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	removed := 0
	for _, f := range files {
		if _, err := os.Stat(f.FilePath); err != nil && os.IsNotExist(err) {
			if err := s.store.DeleteLibraryFile(r.Context(), f.FilePath); err != nil {
				writeError(w, err)
				return
			}
			removed++
		}
	}
	writeJSON(w, http.StatusOK, map[string]int{"removed": removed, "checked": len(files)})
}
