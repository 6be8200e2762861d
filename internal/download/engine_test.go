package download

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/handiism/tidal-downloader/internal/config"
	ihttp "github.com/handiism/tidal-downloader/internal/http"
	"github.com/handiism/tidal-downloader/internal/model"
)

// countingTagger records Embed invocations and optionally fails for a
// specific track ID.
type countingTagger struct {
	calls  int32
	failID int64
}

func (t *countingTagger) Embed(ctx context.Context, track *model.Track, path string) error {
	atomic.AddInt32(&t.calls, 1)
	if t.failID != 0 && track.ID == t.failID {
		return errors.New("tag write refused")
	}
	return nil
}

func testSettings(t *testing.T) *config.Settings {
	t.Helper()

	settings := config.DefaultSettings()
	settings.DownloadsPath = t.TempDir()
	settings.MaxConcurrentDownloads = 2
	settings.ExistCheck = false
	settings.SaveCover = false
	settings.CreatePlaylist = false
	return settings
}

// newTrackServer serves fixed payloads under /tracks/{id} and returns
// 404 for everything else.
func newTrackServer(payloads map[string][]byte) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := payloads[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Length", fmt.Sprint(len(body)))
		w.Write(body)
	}))
}

func testJobs(serverURL, dir string, n int) []Job {
	jobs := make([]Job, n)
	for i := range jobs {
		track := &model.Track{
			ID:      int64(i + 1),
			Title:   fmt.Sprintf("Track %d", i+1),
			Artist:  "Artist",
			Artists: "Artist",
			Album:   "Album",
			Number:  i + 1,
			Quality: "LOSSLESS",
		}
		jobs[i] = Job{
			Track: track,
			URL:   fmt.Sprintf("%s/tracks/%d", serverURL, track.ID),
			Path:  model.Plan{Dir: dir}.TrackPath(track),
		}
	}
	return jobs
}

func TestEngine_Run_Success(t *testing.T) {
	payloads := map[string][]byte{
		"/tracks/1": []byte("first track body"),
		"/tracks/2": []byte("second track body"),
		"/tracks/3": []byte("third track body"),
	}
	server := newTrackServer(payloads)
	defer server.Close()

	settings := testSettings(t)
	tagger := &countingTagger{}
	engine := NewEngine(settings, ihttp.NewClient(), tagger, nil)

	plan := model.AlbumPlan(settings.DownloadsPath, "Artist", "Album")
	batch := Batch{Plan: plan, Jobs: testJobs(server.URL, plan.Dir, 3)}

	results := engine.Run(context.Background(), batch)

	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	for i, r := range results {
		if r.Status != StatusDone {
			t.Errorf("job %d status = %v (err %v), want done", i, r.Status, r.Err)
		}
		data, err := os.ReadFile(r.Path)
		if err != nil {
			t.Errorf("job %d file missing: %v", i, err)
			continue
		}
		want := payloads[fmt.Sprintf("/tracks/%d", i+1)]
		if !bytes.Equal(data, want) {
			t.Errorf("job %d content = %q, want %q", i, data, want)
		}
	}

	if got := atomic.LoadInt32(&tagger.calls); got != 3 {
		t.Errorf("tagger invoked %d times, want 3 (once per successful transfer)", got)
	}

	received, total, done, files := engine.Progress()
	if done != 3 || files != 3 {
		t.Errorf("progress files = %d/%d, want 3/3", done, files)
	}
	if received != total {
		t.Errorf("progress bytes = %d/%d, want equal after completion", received, total)
	}
}

func TestEngine_Run_PartialFailure(t *testing.T) {
	server := newTrackServer(map[string][]byte{
		"/tracks/1": []byte("first"),
		// track 2 missing: the server answers 404
		"/tracks/3": []byte("third"),
	})
	defer server.Close()

	settings := testSettings(t)
	settings.CreatePlaylist = true
	tagger := &countingTagger{}
	engine := NewEngine(settings, ihttp.NewClient(), tagger, nil)

	plan := model.AlbumPlan(settings.DownloadsPath, "Artist", "Album")
	batch := Batch{Plan: plan, Jobs: testJobs(server.URL, plan.Dir, 3)}

	results := engine.Run(context.Background(), batch)

	if results[0].Status != StatusDone || results[2].Status != StatusDone {
		t.Errorf("sibling jobs should succeed: statuses %v, %v", results[0].Status, results[2].Status)
	}
	if results[1].Status != StatusFailed {
		t.Fatalf("job 2 status = %v, want failed", results[1].Status)
	}
	if !errors.Is(results[1].Err, ErrTransferFailed) {
		t.Errorf("job 2 error = %v, want ErrTransferFailed", results[1].Err)
	}

	if got := atomic.LoadInt32(&tagger.calls); got != 2 {
		t.Errorf("tagger invoked %d times, want 2", got)
	}

	// A failed job in the batch suppresses the playlist.
	if _, err := os.Stat(plan.PlaylistPath()); err == nil {
		t.Error("playlist should not be written after a failed batch")
	}
}

// A batch whose target directory cannot be created fails every job
// with the same transfer error as a per-job failure.
func TestEngine_Run_DirCreateFails(t *testing.T) {
	settings := testSettings(t)
	tagger := &countingTagger{}
	engine := NewEngine(settings, ihttp.NewClient(), tagger, nil)

	plan := model.AlbumPlan(settings.DownloadsPath, "Artist", "Album")
	// A regular file where the album directory should go.
	if err := os.MkdirAll(filepath.Dir(plan.Dir), 0755); err != nil {
		t.Fatalf("create parent dirs: %v", err)
	}
	if err := os.WriteFile(plan.Dir, []byte("in the way"), 0644); err != nil {
		t.Fatalf("write blocking file: %v", err)
	}

	batch := Batch{Plan: plan, Jobs: testJobs("http://unused.invalid", plan.Dir, 2)}
	results := engine.Run(context.Background(), batch)

	if len(results) != 2 {
		t.Fatalf("results = %d, want 2", len(results))
	}
	for i, res := range results {
		if res.Status != StatusFailed {
			t.Errorf("job %d status = %v, want failed", i+1, res.Status)
		}
		if !errors.Is(res.Err, ErrTransferFailed) {
			t.Errorf("job %d error = %v, want ErrTransferFailed", i+1, res.Err)
		}
	}
	if got := atomic.LoadInt32(&tagger.calls); got != 0 {
		t.Errorf("tagger invoked %d times, want 0", got)
	}
}

func TestEngine_Run_SkipExisting(t *testing.T) {
	server := newTrackServer(map[string][]byte{
		"/tracks/1": []byte("fresh body"),
	})
	defer server.Close()

	settings := testSettings(t)
	settings.ExistCheck = true
	tagger := &countingTagger{}
	engine := NewEngine(settings, ihttp.NewClient(), tagger, nil)

	plan := model.AlbumPlan(settings.DownloadsPath, "Artist", "Album")
	jobs := testJobs(server.URL, plan.Dir, 1)

	if err := os.MkdirAll(plan.Dir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(jobs[0].Path, []byte("already here"), 0644); err != nil {
		t.Fatal(err)
	}

	results := engine.Run(context.Background(), Batch{Plan: plan, Jobs: jobs})

	if results[0].Status != StatusSkipped {
		t.Fatalf("status = %v, want skipped", results[0].Status)
	}

	data, err := os.ReadFile(jobs[0].Path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "already here" {
		t.Errorf("existing file was overwritten: %q", data)
	}

	if got := atomic.LoadInt32(&tagger.calls); got != 0 {
		t.Errorf("tagger invoked %d times for skipped job, want 0", got)
	}
}

func TestEngine_Run_NoContentLength(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Flushing before the body forces a chunked response without
		// a Content-Length header.
		w.WriteHeader(http.StatusOK)
		w.(http.Flusher).Flush()
		w.Write([]byte("chunked body"))
	}))
	defer server.Close()

	settings := testSettings(t)
	engine := NewEngine(settings, ihttp.NewClient(), nil, nil)

	plan := model.AlbumPlan(settings.DownloadsPath, "Artist", "Album")
	jobs := testJobs(server.URL, plan.Dir, 1)
	jobs[0].URL = server.URL + "/stream"

	results := engine.Run(context.Background(), Batch{Plan: plan, Jobs: jobs})

	if results[0].Status != StatusFailed {
		t.Fatalf("status = %v, want failed", results[0].Status)
	}
	if !errors.Is(results[0].Err, ErrNoContentLength) {
		t.Errorf("error = %v, want ErrNoContentLength", results[0].Err)
	}
}

func TestEngine_Run_TagFailureKeepsDownload(t *testing.T) {
	server := newTrackServer(map[string][]byte{
		"/tracks/1": []byte("body"),
	})
	defer server.Close()

	settings := testSettings(t)
	tagger := &countingTagger{failID: 1}
	engine := NewEngine(settings, ihttp.NewClient(), tagger, nil)

	plan := model.AlbumPlan(settings.DownloadsPath, "Artist", "Album")
	results := engine.Run(context.Background(), Batch{Plan: plan, Jobs: testJobs(server.URL, plan.Dir, 1)})

	if results[0].Status != StatusDone {
		t.Fatalf("status = %v, want done despite tag failure", results[0].Status)
	}
	if results[0].TagErr == nil {
		t.Error("TagErr should record the tagging failure")
	}
	if _, err := os.Stat(results[0].Path); err != nil {
		t.Errorf("downloaded file should survive a tag failure: %v", err)
	}
}

func TestEngine_Run_Playlist(t *testing.T) {
	server := newTrackServer(map[string][]byte{
		"/tracks/1": []byte("first"),
		"/tracks/2": []byte("second"),
	})
	defer server.Close()

	settings := testSettings(t)
	settings.CreatePlaylist = true
	engine := NewEngine(settings, ihttp.NewClient(), nil, nil)

	plan := model.PlaylistPlan(settings.DownloadsPath, "My Mix")
	results := engine.Run(context.Background(), Batch{
		Plan:  plan,
		Title: "My Mix",
		Jobs:  testJobs(server.URL, plan.Dir, 2),
	})

	for i, r := range results {
		if r.Status != StatusDone {
			t.Fatalf("job %d status = %v (err %v)", i, r.Status, r.Err)
		}
	}

	data, err := os.ReadFile(plan.PlaylistPath())
	if err != nil {
		t.Fatalf("playlist missing: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, "#PLAYLIST:My Mix") {
		t.Errorf("playlist missing title directive:\n%s", content)
	}
	if !strings.Contains(content, "Artist - Track 1.flac") {
		t.Errorf("playlist missing track entry:\n%s", content)
	}
}

func TestEngine_Run_SaveCover(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	var cover bytes.Buffer
	if err := png.Encode(&cover, img); err != nil {
		t.Fatal(err)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/images/") {
			w.Write(cover.Bytes())
			return
		}
		body := []byte("track body")
		w.Header().Set("Content-Length", fmt.Sprint(len(body)))
		w.Write(body)
	}))
	defer server.Close()

	settings := testSettings(t)
	settings.SaveCover = true
	engine := NewEngine(settings, ihttp.NewClient(), nil, nil)
	engine.coverURL = func(t *model.Track, size int) string {
		return fmt.Sprintf("%s/images/%s/%dx%d.jpg", server.URL, t.CoverID, size, size)
	}

	plan := model.AlbumPlan(settings.DownloadsPath, "Artist", "Album")
	jobs := testJobs(server.URL, plan.Dir, 1)
	jobs[0].Track.CoverID = "aa/bb/cc"

	results := engine.Run(context.Background(), Batch{Plan: plan, Jobs: jobs})

	if results[0].Status != StatusDone {
		t.Fatalf("status = %v (err %v)", results[0].Status, results[0].Err)
	}
	if _, err := os.Stat(plan.CoverPath()); err != nil {
		t.Errorf("cover.jpg should be saved: %v", err)
	}
}
