package tagging

import (
	"github.com/bogem/id3v2/v2"

	"github.com/triv3/musicvault/internal/apperr"
	"github.com/triv3/musicvault/internal/domain"
)

// tagMP3 drops existing frames, writes the canonical ID3v2.3 tag set plus a
// TXXX frame per optional catalog field, embeds cover art if given, and
// appends a compatibility ID3v1 trailer.
func tagMP3(path string, track *domain.Track, cover Cover) error {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: false})
	if err != nil {
		return apperr.Infrastructure("open mp3 for tagging", err)
	}
	defer tag.Close()

	tag.DeleteAllFrames()
	tag.SetVersion(3)
	tag.SetDefaultEncoding(id3v2.EncodingUTF8)

	tag.SetArtist(track.Artists)
	tag.SetTitle(track.Title)
	if track.Album != nil {
		tag.SetAlbum(*track.Album)
	}
	if track.Genre != nil {
		tag.SetGenre(*track.Genre)
	}
	if track.AlbumArtist != nil {
		tag.AddTextFrame(tag.CommonID("Band/Orchestra/Accompaniment"), tag.DefaultEncoding(), *track.AlbumArtist)
	}

	if track.ReleaseDate != nil && *track.ReleaseDate != "" {
		tag.AddTextFrame(tag.CommonID("Content group description"), tag.DefaultEncoding(), *track.ReleaseDate)
		tag.AddTextFrame(tag.CommonID("Date"), tag.DefaultEncoding(), *track.ReleaseDate)
	}
	if year := releaseYear(track.ReleaseDate); year != "" {
		tag.SetYear(year)
		tag.AddTextFrame(tag.CommonID("Recording time"), tag.DefaultEncoding(), year)
	}

	addTXXX := func(description, value string) {
		if value == "" {
			return
		}
		tag.AddUserDefinedTextFrame(id3v2.UserDefinedTextFrame{
			Encoding:    tag.DefaultEncoding(),
			Description: description,
			Value:       value,
		})
	}
	addTXXX("BPM", fmtFloat(track.BPM))
	addTXXX("LABEL", str(track.Label))
	addTXXX("COMPOSER", str(track.Composer))
	addTXXX("COPYRIGHT", str(track.Copyright))
	addTXXX("VERSION", str(track.Version))
	addTXXX("DESCRIPTION", str(track.Description))
	addTXXX("URL", str(track.URL))
	addTXXX("AUDIO_QUALITY", str(track.AudioQuality))
	addTXXX("AUDIO_MODES", str(track.AudioModes))
	addTXXX("REPLAYGAIN_TRACK_GAIN", fmtFloat(track.ReplayGain))
	addTXXX("REPLAYGAIN_TRACK_PEAK", fmtFloat(track.Peak))
	addTXXX("INITIALKEY", str(track.KeyName))
	addTXXX("KEY_SCALE", str(track.KeyScale))
	addTXXX("BARCODE", str(track.Barcode))
	addTXXX("CATALOGNUMBER", str(track.CatalogNumber))
	addTXXX("RELEASETYPE", str(track.ReleaseType))
	if track.ISRC != nil {
		addTXXX("ISRC", *track.ISRC)
		tag.AddTextFrame(tag.CommonID("ISRC"), tag.DefaultEncoding(), *track.ISRC)
	}

	if len(cover.Data) > 0 {
		tag.AddAttachedPicture(id3v2.PictureFrame{
			Encoding:    tag.DefaultEncoding(),
			MimeType:    cover.MimeType,
			PictureType: id3v2.PTFrontCover,
			Description: "Cover",
			Picture:     cover.Data,
		})
	}

	if err := tag.Save(); err != nil {
		return apperr.Infrastructure("save id3v2 tag", err)
	}
	if err := appendID3v1(path, track); err != nil {
		return apperr.Infrastructure("append id3v1 trailer", err)
	}
	return nil
}
