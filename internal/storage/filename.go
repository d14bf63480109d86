package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gosimple/slug"
)

// BuildFilename renders the library filename "<artists> - <title>.<ext>",
// slugging each segment's invalid-path characters away via Sanitize while
// preserving spaces (gosimple/slug.Make would collapse them to hyphens,
// which this naming scheme does not want — SlugKey below offers that
// stricter form).
func BuildFilename(artists, title, ext string) string {
	ext = strings.TrimPrefix(ext, ".")
	name := fmt.Sprintf("%s - %s", Sanitize(artists), Sanitize(title))
	return fmt.Sprintf("%s.%s", name, ext)
}

// ResolveCollisionPath returns path unchanged if nothing exists there yet;
// otherwise it appends " (2)", " (3)", … before the extension until it finds
// a free path, per the library naming contract's collision suffix rule.
func ResolveCollisionPath(path string) (string, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return path, nil
		}
		return "", err
	}

	dir := filepath.Dir(path)
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(filepath.Base(path), ext)

	for n := 2; ; n++ {
		candidate := filepath.Join(dir, fmt.Sprintf("%s (%d)%s", stem, n, ext))
		if _, err := os.Stat(candidate); err != nil {
			if os.IsNotExist(err) {
				return candidate, nil
			}
			return "", err
		}
	}
}

// SlugKey renders s as a filesystem-safe, lowercase, hyphenated key, for
// names where spaces and punctuation are undesirable even though they're
// tolerated in library filenames. Library filenames do not use it.
func SlugKey(s string) string {
	return slug.Make(s)
}
