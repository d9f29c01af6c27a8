package models

import (
	"fmt"
	"strings"
)

// Kind selects which catalog collection a search targets.
type Kind int

const (
	KindTrack Kind = iota
	KindAlbum
)

func (k Kind) String() string {
	switch k {
	case KindTrack:
		return "track"
	case KindAlbum:
		return "album"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// LocalTrackInfo is the tag snapshot of one library file, taken when a search starts.
type LocalTrackInfo struct {
	Title      string
	AlbumName  string
	ArtistName string
}

// Item returns the field compared against a candidate's name for the given [Kind].
func (l LocalTrackInfo) Item(kind Kind) string {
	if kind == KindAlbum {
		return l.AlbumName
	}
	return l.Title
}

// Candidate is one search result, copied verbatim from the catalog response.
type Candidate struct {
	Kind        Kind
	Name        string
	ArtistNames []string
	URI         string
}

// FirstArtist returns the primary credited artist, or "" when none is listed.
func (c Candidate) FirstArtist() string {
	if len(c.ArtistNames) == 0 {
		return ""
	}
	return c.ArtistNames[0]
}

// ResolvedItem is a candidate accepted by the matcher together with its public URL.
type ResolvedItem struct {
	Candidate Candidate
	URL       string
}

// NewResolvedItem derives the public URL from the candidate's URI.
func NewResolvedItem(c Candidate) (ResolvedItem, error) {
	url, err := SpotifyURLFromURI(c.URI)
	if err != nil {
		return ResolvedItem{}, err
	}
	return ResolvedItem{Candidate: c, URL: url}, nil
}

const openSpotifyBase = "https://open.spotify.com"

// SpotifyURLFromURI turns "spotify:{type}:{id}" into "https://open.spotify.com/{type}/{id}".
func SpotifyURLFromURI(uri string) (string, error) {
	parts := strings.Split(uri, ":")
	if len(parts) != 3 || parts[1] == "" || parts[2] == "" {
		return "", fmt.Errorf("malformed catalog uri %q", uri)
	}
	return fmt.Sprintf("%s/%s/%s", openSpotifyBase, parts[1], parts[2]), nil
}

// Cue is the system sound played with a [Notice].
type Cue int

const (
	CueNone Cue = iota
	CueExclamation
	CueHand
)

func (c Cue) String() string {
	switch c {
	case CueExclamation:
		return "exclamation"
	case CueHand:
		return "hand"
	default:
		return "none"
	}
}

// Notice is the single user-visible outcome of a search request.
type Notice struct {
	Message string
	Cue     Cue
}
