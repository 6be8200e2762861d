package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	mp4tag "github.com/Sorrow446/go-mp4tag"
	"github.com/bogem/id3v2"
	"github.com/go-flac/flacpicture"
	"github.com/go-flac/flacvorbis"
	flac "github.com/go-flac/go-flac"

	ihttp "github.com/handiism/tidal-downloader/internal/http"
	ioutils "github.com/handiism/tidal-downloader/internal/io"
	"github.com/handiism/tidal-downloader/internal/model"
)

var (
	// ErrUnsupportedFormat is returned when a downloaded file does not
	// look like FLAC, MP4, or MP3.
	ErrUnsupportedFormat = errors.New("audio: unsupported container format")

	// ErrCoverFetch is returned when the cover art cannot be downloaded
	// or processed.
	ErrCoverFetch = errors.New("audio: cover art fetch failed")

	// ErrTagWrite is returned when tags cannot be written to the file.
	ErrTagWrite = errors.New("audio: tag write failed")
)

// Tagger embeds metadata and cover art into downloaded audio files.
//
// Tagger probes the container format from the file's leading bytes and
// dispatches to a format-specific writer:
//   - FLAC files receive a Vorbis comment block and a PICTURE block
//   - MP4 (AAC) files receive iTunes-style atoms
//   - MP3 files receive ID3v2 frames
//
// The written fields are title, artist list, album, track number, and a
// front-cover picture. Tagging runs after a track has been fully written
// to disk; a tagging failure never invalidates the download itself.
//
// Example:
//
//	tagger := NewTagger(client, ioutils.NewImageService(), 1280, 640)
//	if err := tagger.Embed(ctx, track, path); err != nil {
//	    log.Warn("tagging failed", "track", track.Title, "err", err)
//	}
type Tagger struct {
	client    *ihttp.Client
	images    *ioutils.ImageService
	coverSize int
	maxWidth  int

	// coverURL formats the cover art URL; replaced in tests.
	coverURL func(t *model.Track, size int) string
}

// NewTagger creates a Tagger.
//
// coverSize is the square resolution requested from the image CDN
// (e.g. 1280 for 1280x1280). maxWidth bounds the embedded image; covers
// larger than maxWidth in either dimension are scaled down before
// embedding.
func NewTagger(client *ihttp.Client, images *ioutils.ImageService, coverSize, maxWidth int) *Tagger {
	return &Tagger{
		client:    client,
		images:    images,
		coverSize: coverSize,
		maxWidth:  maxWidth,
		coverURL:  (*model.Track).CoverURL,
	}
}

// Embed downloads the track's cover art and writes metadata plus the
// cover into the audio file at path.
func (t *Tagger) Embed(ctx context.Context, track *model.Track, path string) error {
	cover, err := t.FetchCover(ctx, track)
	if err != nil {
		return err
	}
	return t.Tag(track, path, cover)
}

// FetchCover downloads the track's cover art and returns it as JPEG
// bytes, resized to fit the configured embedding bounds.
func (t *Tagger) FetchCover(ctx context.Context, track *model.Track) ([]byte, error) {
	raw, err := t.client.Get(ctx, t.coverURL(track, t.coverSize))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCoverFetch, err)
	}

	cover, err := t.images.ResizeImage(raw, t.maxWidth, t.maxWidth)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCoverFetch, err)
	}
	return cover, nil
}

// Tag writes the track's metadata and the given JPEG cover into the
// file at path. The container format is probed from the file contents,
// not the extension, so a mislabeled file still gets the right writer.
func (t *Tagger) Tag(track *model.Track, path string, cover []byte) error {
	format, err := probeFormat(path)
	if err != nil {
		return err
	}

	switch format {
	case formatFLAC:
		err = tagFLAC(track, path, cover)
	case formatMP4:
		err = tagMP4(track, path, cover)
	case formatMP3:
		err = tagMP3(track, path, cover)
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTagWrite, err)
	}
	return nil
}

type containerFormat int

const (
	formatFLAC containerFormat = iota
	formatMP4
	formatMP3
)

// probeFormat sniffs the container format from the file's first bytes.
func probeFormat(path string) (containerFormat, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	head := make([]byte, 12)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	head = head[:n]

	switch {
	case bytes.HasPrefix(head, []byte("fLaC")):
		return formatFLAC, nil
	case len(head) >= 8 && bytes.Equal(head[4:8], []byte("ftyp")):
		return formatMP4, nil
	case bytes.HasPrefix(head, []byte("ID3")):
		return formatMP3, nil
	}
	return 0, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
}

// tagFLAC writes a Vorbis comment block and a front-cover PICTURE block.
//
// An existing comment block is updated in place so that any vendor
// string in the file survives; otherwise a new block is appended. Any
// existing PICTURE blocks are dropped before the new cover goes in, so
// retagging a file does not accumulate duplicates.
//
// go-flac panics instead of returning an error on truncated streams,
// so the parse and save run behind a recover that turns the panic into
// a plain error.
func tagFLAC(track *model.Track, path string, cover []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed flac stream: %v", r)
		}
	}()

	file, err := flac.ParseFile(path)
	if err != nil {
		return err
	}

	cmt, idx := findVorbisComment(file)
	if cmt == nil {
		cmt = flacvorbis.New()
	}

	if err := setVorbisFields(cmt, track); err != nil {
		return err
	}

	block := cmt.Marshal()
	if idx >= 0 {
		file.Meta[idx] = &block
	} else {
		file.Meta = append(file.Meta, &block)
	}

	if cover != nil {
		pic, err := flacpicture.NewFromImageData(flacpicture.PictureTypeFrontCover, "Front cover", cover, "image/jpeg")
		if err != nil {
			return err
		}
		kept := file.Meta[:0]
		for _, meta := range file.Meta {
			if meta.Type != flac.Picture {
				kept = append(kept, meta)
			}
		}
		picBlock := pic.Marshal()
		file.Meta = append(kept, &picBlock)
	}

	return file.Save(path)
}

// findVorbisComment locates an existing Vorbis comment block and its
// index, or (nil, -1) if the file has none.
func findVorbisComment(file *flac.File) (*flacvorbis.MetaDataBlockVorbisComment, int) {
	for i, meta := range file.Meta {
		if meta.Type == flac.VorbisComment {
			cmt, err := flacvorbis.ParseFromMetaDataBlock(*meta)
			if err == nil {
				return cmt, i
			}
		}
	}
	return nil, -1
}

// setVorbisFields replaces the track fields in cmt. Add appends without
// deduplicating, so existing entries for each field are removed first.
func setVorbisFields(cmt *flacvorbis.MetaDataBlockVorbisComment, track *model.Track) error {
	fields := []struct {
		name  string
		value string
	}{
		{flacvorbis.FIELD_TITLE, track.Title},
		{flacvorbis.FIELD_ARTIST, track.Artists},
		{flacvorbis.FIELD_ALBUM, track.Album},
		{flacvorbis.FIELD_TRACKNUMBER, strconv.Itoa(track.Number)},
	}
	for _, field := range fields {
		removeVorbisField(cmt, field.name)
		if err := cmt.Add(field.name, field.value); err != nil {
			return err
		}
	}
	return nil
}

// removeVorbisField drops all comment entries for the given field name.
// Vorbis field names are case-insensitive.
func removeVorbisField(cmt *flacvorbis.MetaDataBlockVorbisComment, name string) {
	prefix := strings.ToUpper(name) + "="
	kept := cmt.Comments[:0]
	for _, c := range cmt.Comments {
		if !strings.HasPrefix(strings.ToUpper(c), prefix) {
			kept = append(kept, c)
		}
	}
	cmt.Comments = kept
}

// tagMP4 writes iTunes-style metadata atoms.
func tagMP4(track *model.Track, path string, cover []byte) error {
	mp4, err := mp4tag.Open(path)
	if err != nil {
		return err
	}
	defer mp4.Close()

	tags := &mp4tag.MP4Tags{
		Title:       track.Title,
		Artist:      track.Artists,
		Album:       track.Album,
		TrackNumber: int16(track.Number),
	}
	if cover != nil {
		tags.Pictures = []*mp4tag.MP4Picture{{Data: cover}}
	}

	return mp4.Write(tags, []string{})
}

// tagMP3 writes ID3v2 frames.
func tagMP3(track *model.Track, path string, cover []byte) error {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return err
	}
	defer tag.Close()

	tag.SetTitle(track.Title)
	tag.SetArtist(track.Artists)
	tag.SetAlbum(track.Album)
	tag.AddTextFrame("TRCK", id3v2.EncodingUTF8, strconv.Itoa(track.Number))

	if cover != nil {
		tag.DeleteFrames(tag.CommonID("Attached picture"))
		tag.AddAttachedPicture(id3v2.PictureFrame{
			Encoding:    id3v2.EncodingUTF8,
			MimeType:    "image/jpeg",
			PictureType: id3v2.PTFrontCover,
			Description: "Cover",
			Picture:     cover,
		})
	}

	return tag.Save()
}
