package tidal

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind classifies a catalog identifier.
type Kind int

const (
	// KindTrack denotes a single track.
	KindTrack Kind = iota

	// KindAlbum denotes an album.
	KindAlbum

	// KindPlaylist denotes a playlist.
	KindPlaylist
)

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case KindTrack:
		return "track"
	case KindAlbum:
		return "album"
	case KindPlaylist:
		return "playlist"
	default:
		return "unknown"
	}
}

// ParseLink classifies a tidal.com URL and extracts its catalog id.
//
// Track and album ids are numeric; playlist ids are UUID strings. A
// non-numeric id outside a playlist path is an artist page, which is
// not supported.
func ParseLink(raw string) (string, Kind, error) {
	if !strings.Contains(raw, "tidal.com") {
		return "", 0, fmt.Errorf("%w: %q is not a tidal.com URL", ErrUnsupportedLink, raw)
	}

	trimmed := strings.TrimRight(raw, "/")
	if i := strings.IndexAny(trimmed, "?#"); i != -1 {
		trimmed = trimmed[:i]
	}

	slash := strings.LastIndex(trimmed, "/")
	if slash == -1 || slash == len(trimmed)-1 {
		return "", 0, fmt.Errorf("%w: %q has no id segment", ErrUnsupportedLink, raw)
	}
	id := trimmed[slash+1:]

	switch {
	case strings.Contains(raw, "/playlist/"):
		return id, KindPlaylist, nil
	case strings.Contains(raw, "/album/"):
		return id, KindAlbum, nil
	}

	if _, err := strconv.ParseInt(id, 10, 64); err != nil {
		return "", 0, fmt.Errorf("%w: artist pages are not supported", ErrUnsupportedLink)
	}
	return id, KindTrack, nil
}
