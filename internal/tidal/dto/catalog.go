package dto

import "strings"

// Catalog items arrive with loosely guaranteed shapes; every field a
// descriptor needs is declared as a pointer so absence can be told apart
// from a zero value at the parsing boundary.

// ArtistRef is one entry of a track's artist list.
type ArtistRef struct {
	Name *string `json:"name"`
}

// AlbumRef is the album block embedded in a track item.
type AlbumRef struct {
	Title *string `json:"title"`
	Cover *string `json:"cover"`
}

// TrackItem is the track payload shared by the single-track endpoint and
// the album/playlist item listings.
type TrackItem struct {
	ID           *int64      `json:"id"`
	Title        *string     `json:"title"`
	TrackNumber  *int        `json:"trackNumber"`
	AudioQuality *string     `json:"audioQuality"`
	Artist       *ArtistRef  `json:"artist"`
	Artists      []ArtistRef `json:"artists"`
	Album        *AlbumRef   `json:"album"`
}

// AlbumItemsPage is one page of an album's item listing.
type AlbumItemsPage struct {
	Items []TrackItem `json:"items"`
}

// PlaylistItemsPage is one page of a playlist's item listing. Playlist
// entries wrap the track payload one level deeper than album entries.
type PlaylistItemsPage struct {
	Items []struct {
		Item TrackItem `json:"item"`
	} `json:"items"`
}

// PlaylistInfo is the playlist metadata used for destination naming.
type PlaylistInfo struct {
	Title *string `json:"title"`
}

// CoverPath converts a cover identifier to its path form for the image
// CDN (dashes become path separators).
func CoverPath(coverID string) string {
	return strings.ReplaceAll(coverID, "-", "/")
}

// JoinArtists joins all named artists with ", ". Entries without a name
// are skipped.
func JoinArtists(artists []ArtistRef) string {
	names := make([]string, 0, len(artists))
	for _, a := range artists {
		if a.Name != nil && *a.Name != "" {
			names = append(names, *a.Name)
		}
	}
	return strings.Join(names, ", ")
}
