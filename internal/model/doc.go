// Package model defines the core data structures used throughout
// the tidal-downloader application.
//
// # Track
//
// Track is the immutable per-track descriptor produced by the catalog
// resolver:
//
//	track := &model.Track{ID: 1234, Artist: "Artist", Title: "Title", Quality: "LOSSLESS"}
//	fmt.Println(track.FileName())     // "Artist - Title.flac"
//	fmt.Println(track.CoverURL(1280)) // Cover art URL at 1280x1280
//
// The quality string decides the container extension: qualities carrying
// the "HIGH" marker are delivered in an MP4 container, everything else
// as FLAC.
//
// # Plan
//
// Plan is the destination directory shared by all tracks of one resolved
// catalog request:
//
//	plan := model.AlbumPlan("/music", "Artist", "Album")
//	fmt.Println(plan.TrackPath(track)) // "/music/Album/Artist/Album/Artist - Title.flac"
//
// Invalid filename characters are replaced with underscores in every
// path component derived from catalog metadata.
package model
