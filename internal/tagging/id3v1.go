package tagging

import (
	"os"

	"github.com/triv3/musicvault/internal/apperr"
	"github.com/triv3/musicvault/internal/domain"
)

// id3v1GenreOther is the ID3v1 genre byte for "Other", used when the
// Track's genre string has no match in the fixed ID3v1 genre table.
const id3v1GenreOther = 12

// appendID3v1 appends a minimal 128-byte ID3v1.1 trailer after the ID3v2
// tag, since the id3v2 library writes ID3v2 only. ID3v1 layout: "TAG" (3),
// title (30), artist (30), album (30), year (4), comment (28), a zero byte
// and track number (2, ID3v1.1 extension), genre (1).
func appendID3v1(path string, track *domain.Track) error {
	var frame [128]byte
	copy(frame[0:3], "TAG")
	putFixed(frame[3:33], track.Title)
	putFixed(frame[33:63], track.Artists)
	if track.Album != nil {
		putFixed(frame[63:93], *track.Album)
	}
	putFixed(frame[93:97], releaseYear(track.ReleaseDate))
	frame[127] = id3v1GenreOther

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return apperr.Infrastructure("open mp3 for id3v1 append", err)
	}
	defer f.Close()
	if _, err := f.Write(frame[:]); err != nil {
		return apperr.Infrastructure("write id3v1 trailer", err)
	}
	return nil
}

func putFixed(dst []byte, s string) {
	b := []byte(s)
	n := copy(dst, b)
	for i := n; i < len(dst); i++ {
		dst[i] = 0
	}
}
