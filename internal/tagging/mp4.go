package tagging

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/triv3/musicvault/internal/apperr"
	"github.com/triv3/musicvault/internal/domain"
)

// atom is one parsed box from an MP4/M4A container: a 4-byte type, its raw
// payload (for leaf atoms), and its parsed children (for container atoms).
type atom struct {
	typ      string
	payload  []byte
	children []atom
}

// containerAtoms is the closed set of box types this rewriter recurses
// into; everything else is treated as an opaque leaf and copied byte for
// byte, so track data, sample tables, and codec boxes survive untouched.
var containerAtoms = map[string]bool{
	"moov": true,
	"udta": true,
	"meta": true,
	"ilst": true,
}

// tagMP4 rewrites the moov/udta/meta/ilst well-known atoms in place,
// replacing the existing tag set (dropping source-derived metadata) and
// inserting the Track's canonical fields plus an optional cover atom.
func tagMP4(path string, track *domain.Track, cover Cover) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return apperr.Infrastructure("read mp4 file", err)
	}

	top, err := parseAtoms(raw)
	if err != nil {
		return apperr.Infrastructure("parse mp4 atom tree", err)
	}

	moovIdx := indexOf(top, "moov")
	if moovIdx < 0 {
		return apperr.Validation("mp4 file has no moov atom")
	}
	moov := &top[moovIdx]

	ilst := buildIlst(track, cover)

	udtaIdx := indexOf(moov.children, "udta")
	if udtaIdx < 0 {
		moov.children = append(moov.children, atom{typ: "udta"})
		udtaIdx = len(moov.children) - 1
	}
	udta := &moov.children[udtaIdx]

	metaIdx := indexOf(udta.children, "meta")
	if metaIdx < 0 {
		// meta carries a 4-byte version/flags field ahead of its children.
		udta.children = append(udta.children, atom{typ: "meta", payload: make([]byte, 4)})
		metaIdx = len(udta.children) - 1
	}
	meta := &udta.children[metaIdx]

	ilstIdx := indexOf(meta.children, "ilst")
	if ilstIdx < 0 {
		meta.children = append(meta.children, ilst)
	} else {
		meta.children[ilstIdx] = ilst
	}

	var out bytes.Buffer
	for _, a := range top {
		if err := writeAtom(&out, a); err != nil {
			return apperr.Infrastructure("serialize mp4 atom tree", err)
		}
	}

	if err := os.WriteFile(path, out.Bytes(), 0o644); err != nil {
		return apperr.Infrastructure("write tagged mp4 file", err)
	}
	return nil
}

func indexOf(atoms []atom, typ string) int {
	for i, a := range atoms {
		if a.typ == typ {
			return i
		}
	}
	return -1
}

// parseAtoms walks a flat byte region into a sequence of top-level atoms,
// recursing into containerAtoms and leaving everything else opaque. The
// "meta" atom's leading 4-byte version/flags field is preserved as payload
// even though it is itself a container, matching the QuickTime/MP4 layout.
//
// A header size of 1 means the real size is a 64-bit value in the next 8
// bytes (the extended-size form yt-dlp's mdat boxes use once the audio data
// exceeds 4GB); headerLen tracks whether that extra word was present so the
// body slice starts at the right offset.
func parseAtoms(data []byte) ([]atom, error) {
	var out []atom
	for len(data) > 0 {
		if len(data) < 8 {
			return nil, fmt.Errorf("truncated atom header")
		}
		size := uint64(binary.BigEndian.Uint32(data[0:4]))
		typ := string(data[4:8])
		headerLen := 8
		if size == 1 {
			if len(data) < 16 {
				return nil, fmt.Errorf("truncated extended atom header for %q", typ)
			}
			size = binary.BigEndian.Uint64(data[8:16])
			headerLen = 16
		}
		if size < uint64(headerLen) || size > uint64(len(data)) {
			return nil, fmt.Errorf("invalid atom size for %q", typ)
		}
		body := data[headerLen:size]

		a := atom{typ: typ}
		if containerAtoms[typ] {
			offset := 0
			if typ == "meta" {
				offset = 4
				a.payload = append([]byte{}, body[:4]...)
			}
			children, err := parseAtoms(body[offset:])
			if err != nil {
				return nil, err
			}
			a.children = children
		} else {
			a.payload = append([]byte{}, body...)
		}
		out = append(out, a)
		data = data[size:]
	}
	return out, nil
}

// writeAtom serializes one atom with a standard 32-bit size header, falling
// back to the extended 64-bit form only if the body would overflow it (not
// expected for the tag boxes this rewriter touches, but mdat can be huge).
func writeAtom(w *bytes.Buffer, a atom) error {
	var body bytes.Buffer
	if a.typ == "meta" {
		body.Write(a.payload)
	}
	if len(a.children) > 0 {
		for _, c := range a.children {
			if err := writeAtom(&body, c); err != nil {
				return err
			}
		}
	} else if a.typ != "meta" {
		body.Write(a.payload)
	}

	const maxUint32 = 1<<32 - 1
	if total := uint64(8 + body.Len()); total <= maxUint32 {
		var header [8]byte
		binary.BigEndian.PutUint32(header[0:4], uint32(total))
		copy(header[4:8], a.typ)
		w.Write(header[:])
	} else {
		var header [16]byte
		binary.BigEndian.PutUint32(header[0:4], 1)
		copy(header[4:8], a.typ)
		binary.BigEndian.PutUint64(header[8:16], total+8)
		w.Write(header[:])
	}
	_, err := io.Copy(w, &body)
	return err
}

// ilstEntryText builds one well-known iTunes-style text metadata item: a
// 4-byte atom type holding a single UTF-8 "data" child atom.
func ilstEntryText(typ, value string) atom {
	return ilstEntryData(typ, 1, []byte(value))
}

// ilstEntryData builds one ilst child atom wrapping a "data" atom with the
// given well-known type code (1 = UTF-8 text, 21 = signed integer, 13/14 =
// JPEG/PNG image).
func ilstEntryData(typ string, dataType uint32, value []byte) atom {
	var header [8]byte
	binary.BigEndian.PutUint32(header[0:4], dataType)
	// locale, always 0
	dataPayload := append(append([]byte{}, header[:]...), value...)
	return atom{
		typ: typ,
		children: []atom{
			{typ: "data", payload: dataPayload},
		},
	}
}

// buildIlst assembles the replacement ilst atom from the Track's canonical
// fields plus an optional cover, dropping every other pre-existing tag.
func buildIlst(track *domain.Track, cover Cover) atom {
	ilst := atom{typ: "ilst"}
	add := func(a atom) { ilst.children = append(ilst.children, a) }

	add(ilstEntryText("\xa9nam", track.Title))
	add(ilstEntryText("\xa9ART", track.Artists))
	if track.Album != nil {
		add(ilstEntryText("\xa9alb", *track.Album))
	}
	if track.AlbumArtist != nil {
		add(ilstEntryText("aART", *track.AlbumArtist))
	}
	if track.Genre != nil {
		add(ilstEntryText("\xa9gen", *track.Genre))
	}
	if track.BPM != nil {
		bpm := make([]byte, 2)
		binary.BigEndian.PutUint16(bpm, uint16(*track.BPM))
		add(ilstEntryData("tmpo", 21, bpm))
	}
	if track.ReleaseDate != nil && *track.ReleaseDate != "" {
		add(ilstEntryText("\xa9day", *track.ReleaseDate))
	}

	if len(cover.Data) > 0 {
		dataType := uint32(13) // JPEG; PNG covers still decode under most players tagged as 13
		if cover.MimeType == "image/png" {
			dataType = 14
		}
		add(ilstEntryData("covr", dataType, cover.Data))
	}
	return ilst
}
