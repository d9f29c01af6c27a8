package tags

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bogem/id3v2"
	"github.com/desertthunder/copyurl/internal/models"
	"github.com/desertthunder/copyurl/internal/shared"
	"github.com/go-flac/flacvorbis"
	"github.com/go-flac/go-flac"
)

// albumArtistFrame is the ID3v2 "Band/Orchestra/Accompaniment" frame players use for album artist.
const albumArtistFrame = "TPE2"

// Tags are the text fields read from one audio file.
type Tags struct {
	Title       string
	Album       string
	Artist      string
	AlbumArtist string
}

// PrimaryArtist returns the album artist, or the track artist when the former is empty.
func (t Tags) PrimaryArtist() string {
	if strings.TrimSpace(t.AlbumArtist) != "" {
		return t.AlbumArtist
	}
	return t.Artist
}

// LocalTrackInfo snapshots the fields used for matching.
func (t Tags) LocalTrackInfo() models.LocalTrackInfo {
	return models.LocalTrackInfo{
		Title:      t.Title,
		AlbumName:  t.Album,
		ArtistName: t.PrimaryArtist(),
	}
}

// Supported reports whether Read understands the file extension of path.
func Supported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3", ".flac":
		return true
	default:
		return false
	}
}

// Read parses the tags of an MP3 (ID3v2) or FLAC (Vorbis comment) file.
func Read(path string) (Tags, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		return readID3(path)
	case ".flac":
		return readFLAC(path)
	default:
		return Tags{}, fmt.Errorf("%w: %s", shared.ErrUnsupportedFile, filepath.Base(path))
	}
}

func readID3(path string) (Tags, error) {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return Tags{}, fmt.Errorf("failed to read ID3 tags from %s: %w", path, err)
	}
	defer tag.Close()

	return Tags{
		Title:       tag.Title(),
		Album:       tag.Album(),
		Artist:      tag.Artist(),
		AlbumArtist: tag.GetTextFrame(albumArtistFrame).Text,
	}, nil
}

// readFLAC parses only the metadata blocks. The audio frames are never read, so a file
// truncated after its header still yields its tags.
func readFLAC(path string) (Tags, error) {
	r, err := os.Open(path)
	if err != nil {
		return Tags{}, fmt.Errorf("failed to open FLAC file %s: %w", path, err)
	}
	defer r.Close()

	f, err := flac.ParseMetadata(r)
	if err != nil {
		return Tags{}, fmt.Errorf("failed to parse FLAC file %s: %w", path, err)
	}

	for _, block := range f.Meta {
		if block.Type != flac.VorbisComment {
			continue
		}

		cmt, err := flacvorbis.ParseFromMetaDataBlock(*block)
		if err != nil {
			return Tags{}, fmt.Errorf("failed to read Vorbis comment from %s: %w", path, err)
		}
		return Tags{
			Title:       first(cmt, flacvorbis.FIELD_TITLE),
			Album:       first(cmt, flacvorbis.FIELD_ALBUM),
			Artist:      first(cmt, flacvorbis.FIELD_ARTIST),
			AlbumArtist: first(cmt, "ALBUMARTIST"),
		}, nil
	}

	return Tags{}, nil
}

func first(cmt *flacvorbis.MetaDataBlockVorbisComment, field string) string {
	values, err := cmt.Get(field)
	if err != nil || len(values) == 0 {
		return ""
	}
	return values[0]
}
