package model

import (
	"path/filepath"
	"regexp"
	"strings"
)

// Plan is the destination plan for one resolved catalog request: the single
// directory under which every track of the request is written.
//
// A plan is computed once per request and shared read-only by all download
// jobs of that request. Directory naming follows the catalog kind:
//
//	Playlist/<playlist title>
//	Album/<first-track artist>/<first-track album>
//
// Album naming deliberately uses the first resolved track, on the assumption
// that all tracks of an album resolution share one artist/album pair.
type Plan struct {
	// Dir is the absolute (or root-relative) destination directory.
	Dir string
}

// PlaylistPlan returns the destination plan for a playlist with the given
// display title, rooted at root.
func PlaylistPlan(root, title string) Plan {
	return Plan{Dir: filepath.Join(root, "Playlist", sanitizeFileName(title))}
}

// AlbumPlan returns the destination plan for an album (or single track)
// by the given artist, rooted at root.
func AlbumPlan(root, artist, album string) Plan {
	return Plan{Dir: filepath.Join(root, "Album", sanitizeFileName(artist), sanitizeFileName(album))}
}

// TrackPath returns the full destination file path for a track under this plan.
func (p Plan) TrackPath(t *Track) string {
	return filepath.Join(p.Dir, t.FileName())
}

// CoverPath returns the destination file path for a saved cover image
// under this plan.
func (p Plan) CoverPath() string {
	return filepath.Join(p.Dir, "cover.jpg")
}

// PlaylistPath returns the destination file path for an .m3u playlist file
// named after the plan's directory.
func (p Plan) PlaylistPath() string {
	return filepath.Join(p.Dir, filepath.Base(p.Dir)+".m3u")
}

// sanitizeFileName removes or replaces characters that are invalid in
// file/folder names.
//
// The following transformations are applied:
//   - Invalid characters (<>:"/\|?* and control chars) are replaced with underscore
//   - Trailing dots are removed (Windows limitation)
//   - Multiple whitespace is collapsed to single space
//   - Trailing whitespace is removed
func sanitizeFileName(name string) string {
	invalidChars := regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)
	name = invalidChars.ReplaceAllString(name, "_")

	name = regexp.MustCompile(`\.+$`).ReplaceAllString(name, "")

	name = regexp.MustCompile(`\s+`).ReplaceAllString(name, " ")

	return strings.TrimRight(name, " ")
}
