package model

import (
	"fmt"
	"strings"
)

// Track represents a single Tidal track descriptor.
//
// Track contains everything needed to fetch and tag one track:
//   - Numeric catalog ID for playback-info lookups
//   - Title, Album, Artist metadata for tagging and file naming
//   - Cover art identifier for artwork downloads
//   - The quality string reported by the catalog, which decides the
//     container extension of the downloaded file
//
// Tracks are created by the catalog resolver and are read-only afterward.
type Track struct {
	// ID is the numeric track identifier within the Tidal catalog.
	ID int64

	// Title is the track title.
	Title string

	// Album is the title of the album the track belongs to.
	Album string

	// Artist is the lead artist name.
	Artist string

	// Artists is the full artist list joined with ", ".
	Artists string

	// Number is the track number within the album or playlist.
	Number int

	// CoverID is the cover art identifier with its segments already
	// converted to path form (dashes replaced by slashes).
	CoverID string

	// Quality is the audio quality string reported by the catalog,
	// e.g. "LOSSLESS" or "HIGH".
	Quality string
}

// Ext returns the container extension for the track based on its quality
// string. Qualities delivered in a lossy AAC container carry the "HIGH"
// marker; everything else is delivered as FLAC.
func (t *Track) Ext() string {
	if strings.Contains(t.Quality, "HIGH") {
		return ".mp4"
	}
	return ".flac"
}

// FileName returns the sanitized file name for the track, including the
// extension derived from the quality string.
//
// Example:
//
//	t := &Track{Artist: "X", Title: "A", Quality: "LOSSLESS"}
//	t.FileName() // "X - A.flac"
func (t *Track) FileName() string {
	return sanitizeFileName(fmt.Sprintf("%s - %s", t.Artist, t.Title)) + t.Ext()
}

// CoverURL returns the cover art URL for the track at the given square
// resolution (e.g. 1280 for a 1280x1280 image).
func (t *Track) CoverURL(size int) string {
	return fmt.Sprintf("https://resources.tidal.com/images/%s/%dx%d.jpg", t.CoverID, size, size)
}
