package audio

import (
	"fmt"
	"strings"

	"github.com/handiism/tidal-downloader/internal/model"
)

// PlaylistCreator generates M3U playlist files for downloaded batches.
//
// The generated playlist references tracks by bare file name, assuming
// the playlist file sits in the same directory as the tracks, which is
// where the destination plan places it.
//
// Example:
//
//	creator := NewPlaylistCreator(true)
//	content := creator.CreatePlaylist("My Mix", tracks)
//	ioutils.WriteFile(plan.PlaylistPath(), []byte(content))
//
//	// Result:
//	// #EXTM3U
//	// #PLAYLIST:My Mix
//	// #EXTINF:-1,Artist - Song Title
//	// Artist - Song Title.flac
type PlaylistCreator struct {
	extended bool // include #EXTM3U header and EXTINF lines
}

// NewPlaylistCreator creates a PlaylistCreator.
//
// When extended is true the playlist carries #EXTINF entries. Track
// descriptors do not include durations, so EXTINF lines use -1, the
// marker for an unknown length.
func NewPlaylistCreator(extended bool) *PlaylistCreator {
	return &PlaylistCreator{extended: extended}
}

// CreatePlaylist generates M3U playlist content for the given tracks.
//
// title names the playlist in the #PLAYLIST directive; it may be empty,
// in which case the directive is omitted.
func (p *PlaylistCreator) CreatePlaylist(title string, tracks []*model.Track) string {
	var sb strings.Builder

	if p.extended {
		sb.WriteString("#EXTM3U\n")
		if title != "" {
			sb.WriteString("#PLAYLIST:" + title + "\n")
		}
	}

	for _, track := range tracks {
		if p.extended {
			sb.WriteString(fmt.Sprintf("#EXTINF:-1,%s - %s\n", track.Artist, track.Title))
		}
		sb.WriteString(track.FileName() + "\n")
	}

	return sb.String()
}
