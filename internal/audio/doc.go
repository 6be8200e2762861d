// Package audio provides metadata embedding and playlist generation for
// downloaded tracks.
//
// # Tagging
//
// Use the Tagger to write metadata and cover art into a downloaded file:
//
//	tagger := audio.NewTagger(client, images, 1280, 640)
//	err := tagger.Embed(ctx, track, path)
//
// The container format is probed from the file contents and dispatched
// to the matching writer:
//   - FLAC: Vorbis comment block plus a PICTURE metadata block
//   - MP4 (AAC): iTunes-style metadata atoms
//   - MP3: ID3v2 frames
//
// The embedded fields are title, artist list, album, track number, and
// a front-cover JPEG.
//
// # Playlist Generation
//
// Generate an M3U playlist for a downloaded batch:
//
//	creator := audio.NewPlaylistCreator(true) // extended M3U
//	content := creator.CreatePlaylist("My Mix", tracks)
//	ioutils.WriteFile(plan.PlaylistPath(), []byte(content))
package audio
