package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/handiism/tidal-downloader/internal/audio"
	"github.com/handiism/tidal-downloader/internal/config"
	ihttp "github.com/handiism/tidal-downloader/internal/http"
	ioutils "github.com/handiism/tidal-downloader/internal/io"
	"github.com/handiism/tidal-downloader/internal/model"
)

var (
	// ErrNoContentLength is returned when the stream endpoint does not
	// report the payload size. Progress accounting needs the total, and
	// the CDN always provides it for track assets.
	ErrNoContentLength = errors.New("download: response has no content length")

	// ErrTransferFailed is returned when a track body could not be
	// fully streamed to disk.
	ErrTransferFailed = errors.New("download: transfer failed")
)

// ProgressLevel indicates the severity of a progress message.
type ProgressLevel int

const (
	LevelInfo ProgressLevel = iota
	LevelVerbose
	LevelWarning
	LevelError
	LevelSuccess
)

// ProgressEvent represents a download progress update.
type ProgressEvent struct {
	Message string
	Level   ProgressLevel
}

// Status describes the outcome of a single download job.
type Status int

const (
	// StatusDone means the track was transferred and written to disk.
	StatusDone Status = iota

	// StatusSkipped means the destination file already existed and the
	// transfer was short-circuited.
	StatusSkipped

	// StatusFailed means the transfer failed; Err carries the cause.
	StatusFailed
)

// String returns a short human-readable form of the status.
func (s Status) String() string {
	switch s {
	case StatusDone:
		return "done"
	case StatusSkipped:
		return "skipped"
	case StatusFailed:
		return "failed"
	}
	return "unknown"
}

// Job pairs a track descriptor with its resolved stream URL and
// destination path.
type Job struct {
	Track *model.Track

	// URL is the direct stream URL decoded from the playback manifest.
	URL string

	// Path is the destination file path from the batch plan.
	Path string
}

// Result reports the outcome of one job.
//
// A tagging failure does not fail the job: the downloaded file stands
// and TagErr records what went wrong.
type Result struct {
	Track  *model.Track
	Path   string
	Status Status
	Err    error
	TagErr error
}

// Tagger embeds metadata into a downloaded file. Satisfied by
// audio.Tagger.
type Tagger interface {
	Embed(ctx context.Context, track *model.Track, path string) error
}

// Batch groups the jobs sharing one destination plan.
type Batch struct {
	// Plan is the destination directory layout for the batch.
	Plan model.Plan

	// Title is the playlist display title; empty for album batches.
	Title string

	Jobs []Job
}

// Engine downloads batches of tracks with bounded concurrency.
//
// Each job runs independently: one failing transfer never aborts its
// siblings, and the per-job outcome is reported in the returned Result
// slice. After a successful transfer the engine hands the file to the
// Tagger synchronously; a tagging failure is recorded but the download
// stands.
//
// Progress is exposed two ways: an aggregate byte/file counter snapshot
// safe for concurrent readers (Progress), and a message callback with
// severity levels (onProgress).
//
// Example:
//
//	engine := download.NewEngine(settings, client, tagger, func(e download.ProgressEvent) {
//	    fmt.Println(e.Message)
//	})
//	results := engine.Run(ctx, batch)
type Engine struct {
	settings *config.Settings
	client   *ihttp.Client
	tagger   Tagger
	playlist *audio.PlaylistCreator
	images   *ioutils.ImageService

	totalBytes    int64
	receivedBytes int64
	totalFiles    int32
	doneFiles     int32

	// onProgress may be invoked from concurrent jobs.
	onProgress func(ProgressEvent)

	// coverURL formats the cover art URL; replaced in tests.
	coverURL func(t *model.Track, size int) string
}

// NewEngine creates a download Engine.
//
// tagger may be nil, in which case downloaded files are left untagged.
// onProgress may be nil; when set it must be safe to call from
// concurrent jobs.
func NewEngine(settings *config.Settings, client *ihttp.Client, tagger Tagger, onProgress func(ProgressEvent)) *Engine {
	return &Engine{
		settings:   settings,
		client:     client,
		tagger:     tagger,
		playlist:   audio.NewPlaylistCreator(true),
		images:     ioutils.NewImageService(),
		onProgress: onProgress,
		coverURL:   (*model.Track).CoverURL,
	}
}

// Progress returns the aggregate download progress. Safe to call
// concurrently while Run is in flight.
func (e *Engine) Progress() (receivedBytes, totalBytes int64, doneFiles, totalFiles int32) {
	return atomic.LoadInt64(&e.receivedBytes), atomic.LoadInt64(&e.totalBytes),
		atomic.LoadInt32(&e.doneFiles), atomic.LoadInt32(&e.totalFiles)
}

// Run downloads all jobs in the batch and returns one Result per job,
// in job order.
//
// Concurrency is bounded by Settings.MaxConcurrentDownloads. Optional
// batch extras run around the transfers: a cover.jpg saved once into
// the destination directory before the jobs start, and an M3U playlist
// written after a batch in which every job succeeded.
func (e *Engine) Run(ctx context.Context, batch Batch) []Result {
	atomic.AddInt32(&e.totalFiles, int32(len(batch.Jobs)))

	if err := ioutils.EnsureDir(batch.Plan.Dir); err != nil {
		e.progress(ProgressEvent{Message: fmt.Sprintf("Error creating directory: %v", err), Level: LevelError})
		return e.failAll(batch.Jobs, err)
	}

	if e.settings.SaveCover && len(batch.Jobs) > 0 {
		e.saveCover(ctx, batch.Jobs[0].Track, batch.Plan)
	}

	results := make([]Result, len(batch.Jobs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.settings.MaxConcurrentDownloads)

	for i, job := range batch.Jobs {
		i, job := i, job
		g.Go(func() error {
			results[i] = e.runJob(ctx, job)
			return nil // per-job failures never abort siblings
		})
	}
	_ = g.Wait() // goroutines always return nil; Wait only synchronizes

	if e.settings.CreatePlaylist && allSucceeded(results) {
		e.writePlaylist(batch)
	}

	return results
}

// runJob transfers one track and tags the written file.
func (e *Engine) runJob(ctx context.Context, job Job) Result {
	result := Result{Track: job.Track, Path: job.Path}

	if e.settings.ExistCheck {
		if _, err := os.Stat(job.Path); err == nil {
			e.progress(ProgressEvent{Message: fmt.Sprintf("Skipping existing: %s", filepath.Base(job.Path)), Level: LevelVerbose})
			atomic.AddInt32(&e.doneFiles, 1)
			result.Status = StatusSkipped
			return result
		}
	}

	if err := e.transfer(ctx, job); err != nil {
		e.progress(ProgressEvent{Message: fmt.Sprintf("Error downloading %s: %v", job.Track.Title, err), Level: LevelError})
		result.Status = StatusFailed
		result.Err = err
		return result
	}

	atomic.AddInt32(&e.doneFiles, 1)
	result.Status = StatusDone

	if e.tagger != nil {
		if err := e.tagger.Embed(ctx, job.Track, job.Path); err != nil {
			e.progress(ProgressEvent{Message: fmt.Sprintf("Error tagging %s: %v", job.Track.Title, err), Level: LevelWarning})
			result.TagErr = err
		}
	}

	e.progress(ProgressEvent{Message: fmt.Sprintf("Downloaded: %s", filepath.Base(job.Path)), Level: LevelVerbose})
	return result
}

// transfer streams the track body to its destination file, feeding the
// aggregate byte counters as data arrives.
func (e *Engine) transfer(ctx context.Context, job Job) error {
	resp, err := e.client.Stream(ctx, job.URL)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}
	defer resp.Body.Close()

	if resp.ContentLength <= 0 {
		return ErrNoContentLength
	}
	atomic.AddInt64(&e.totalBytes, resp.ContentLength)

	if err := ioutils.EnsureDir(filepath.Dir(job.Path)); err != nil {
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}

	file, err := os.Create(job.Path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}
	defer file.Close()

	var previous int64
	pw := &ihttp.ProgressWriter{
		Writer: file,
		Total:  resp.ContentLength,
		OnUpdate: func(written, total int64) {
			atomic.AddInt64(&e.receivedBytes, written-previous)
			previous = written
		},
	}

	if _, err := io.Copy(pw, resp.Body); err != nil {
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}

	return nil
}

// saveCover writes the batch cover art into the destination directory.
// Failures are reported as warnings; the batch proceeds without a
// folder cover.
func (e *Engine) saveCover(ctx context.Context, track *model.Track, plan model.Plan) {
	raw, err := e.client.Get(ctx, e.coverURL(track, e.settings.CoverSize))
	if err != nil {
		e.progress(ProgressEvent{Message: fmt.Sprintf("Error downloading cover: %v", err), Level: LevelWarning})
		return
	}

	cover, err := e.images.ConvertToJPEG(raw)
	if err != nil {
		e.progress(ProgressEvent{Message: fmt.Sprintf("Error converting cover: %v", err), Level: LevelWarning})
		return
	}

	if err := ioutils.WriteFile(plan.CoverPath(), cover); err != nil {
		e.progress(ProgressEvent{Message: fmt.Sprintf("Error saving cover: %v", err), Level: LevelWarning})
		return
	}

	e.progress(ProgressEvent{Message: "Saved cover art", Level: LevelVerbose})
}

// writePlaylist writes an M3U playlist next to the downloaded tracks.
func (e *Engine) writePlaylist(batch Batch) {
	tracks := make([]*model.Track, len(batch.Jobs))
	for i, job := range batch.Jobs {
		tracks[i] = job.Track
	}

	content := e.playlist.CreatePlaylist(batch.Title, tracks)
	if err := ioutils.WriteFile(batch.Plan.PlaylistPath(), []byte(content)); err != nil {
		e.progress(ProgressEvent{Message: fmt.Sprintf("Error creating playlist: %v", err), Level: LevelWarning})
		return
	}

	e.progress(ProgressEvent{Message: "Created playlist", Level: LevelSuccess})
}

func (e *Engine) failAll(jobs []Job, err error) []Result {
	results := make([]Result, len(jobs))
	for i, job := range jobs {
		results[i] = Result{Track: job.Track, Path: job.Path, Status: StatusFailed, Err: fmt.Errorf("%w: %v", ErrTransferFailed, err)}
	}
	return results
}

// allSucceeded reports whether every job ended done or skipped.
func allSucceeded(results []Result) bool {
	for _, r := range results {
		if r.Status == StatusFailed {
			return false
		}
	}
	return true
}

func (e *Engine) progress(event ProgressEvent) {
	if e.onProgress != nil {
		e.onProgress(event)
	}
}
