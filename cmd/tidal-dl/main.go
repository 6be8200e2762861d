package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/alexflint/go-arg"
	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"

	"github.com/handiism/tidal-downloader/internal/audio"
	"github.com/handiism/tidal-downloader/internal/config"
	"github.com/handiism/tidal-downloader/internal/download"
	ihttp "github.com/handiism/tidal-downloader/internal/http"
	ioutils "github.com/handiism/tidal-downloader/internal/io"
	"github.com/handiism/tidal-downloader/internal/tidal"
)

type args struct {
	URLs        []string `arg:"positional,required" help:"tidal.com track, album or playlist URLs"`
	OutPath     string   `arg:"-o,--output" help:"Where to download to. Overrides the configured path."`
	Concurrency int      `arg:"-c,--concurrency" help:"Max concurrent track downloads. Overrides config."`
	Quality     string   `arg:"-q,--quality" help:"Audio quality: LOW, HIGH, LOSSLESS, HI_RES."`
	NoSkip      bool     `arg:"--no-skip" help:"Re-download tracks even when the file already exists."`
	Playlist    bool     `arg:"-p,--playlist" help:"Write an M3U playlist after each fully successful batch."`
	Config      string   `arg:"--config" help:"Path to the settings file."`
	Verbose     bool     `arg:"-v,--verbose" help:"Show verbose output."`
}

func (args) Description() string {
	return "Download tracks, albums and playlists from Tidal."
}

func main() {
	var a args
	arg.MustParse(&a)

	logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true})
	if a.Verbose {
		logger.SetLevel(log.DebugLevel)
	}

	settings := loadSettings(logger, &a)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Warn("interrupted, cancelling")
		cancel()
	}()

	client := ihttp.NewClient()

	token, country, err := login(ctx, logger, client, settings)
	if err != nil {
		logger.Fatal("login failed", "err", err)
	}

	bearer := client.WithBearer(token)
	resolver := tidal.NewResolver(bearer, country)
	decoder := tidal.NewManifestDecoder(bearer, settings.AudioQuality)
	tagger := audio.NewTagger(client, ioutils.NewImageService(), settings.CoverSize, settings.EmbedMaxWidth)

	engine := download.NewEngine(settings, client, tagger, func(event download.ProgressEvent) {
		switch event.Level {
		case download.LevelError:
			logger.Error(event.Message)
		case download.LevelWarning:
			logger.Warn(event.Message)
		case download.LevelVerbose:
			logger.Debug(event.Message)
		default:
			logger.Info(event.Message)
		}
	})

	var failed int
	for _, url := range a.URLs {
		failed += run(ctx, logger, url, settings, resolver, decoder, engine)
		if ctx.Err() != nil {
			os.Exit(130)
		}
	}

	received, _, done, total := engine.Progress()
	logger.Info("finished",
		"tracks", done,
		"of", total,
		"size", humanize.Bytes(uint64(received)))

	if failed > 0 {
		os.Exit(1)
	}
}

// run resolves and downloads one URL, returning the number of failed
// tracks. Resolution errors fail the whole URL.
func run(ctx context.Context, logger *log.Logger, url string, settings *config.Settings,
	resolver *tidal.Resolver, decoder *tidal.ManifestDecoder, engine *download.Engine) int {

	id, kind, err := tidal.ParseLink(url)
	if err != nil {
		logger.Error("unsupported link", "url", url, "err", err)
		return 1
	}

	logger.Info("resolving", "kind", kind.String(), "id", id)

	tracks, plan, err := resolver.Resolve(ctx, id, kind, settings.DownloadsPath)
	if err != nil {
		logger.Error("resolution failed", "url", url, "err", err)
		return 1
	}
	logger.Info("resolved", "tracks", len(tracks), "dir", plan.Dir)

	jobs := make([]download.Job, 0, len(tracks))
	for _, track := range tracks {
		stream, err := decoder.Decode(ctx, track)
		if err != nil {
			logger.Error("manifest decode failed", "track", track.Title, "err", err)
			return 1
		}
		jobs = append(jobs, download.Job{
			Track: track,
			URL:   stream.URL,
			Path:  plan.TrackPath(track),
		})
	}

	batch := download.Batch{Plan: plan, Jobs: jobs}
	if kind == tidal.KindPlaylist {
		batch.Title = filepath.Base(plan.Dir)
	}

	var failed int
	for _, result := range engine.Run(ctx, batch) {
		switch result.Status {
		case download.StatusFailed:
			logger.Error("download failed", "track", result.Track.Title, "err", result.Err)
			failed++
		case download.StatusSkipped:
			logger.Debug("skipped existing", "track", result.Track.Title)
		default:
			if result.TagErr != nil {
				logger.Warn("downloaded but not tagged", "track", result.Track.Title, "err", result.TagErr)
			}
		}
	}
	return failed
}

// loadSettings reads the settings file and applies flag overrides.
func loadSettings(logger *log.Logger, a *args) *config.Settings {
	path := a.Config
	if path == "" {
		path = config.DefaultSettingsPath()
	}

	settings, err := config.Load(path)
	if err != nil {
		logger.Fatal("error loading config", "path", path, "err", err)
	}

	if a.OutPath != "" {
		settings.DownloadsPath = a.OutPath
	}
	if a.Concurrency > 0 {
		settings.MaxConcurrentDownloads = a.Concurrency
	}
	if a.Quality != "" {
		settings.AudioQuality = a.Quality
	}
	if a.NoSkip {
		settings.ExistCheck = false
	}
	if a.Playlist {
		settings.CreatePlaylist = true
	}
	return settings
}

// login returns a valid bearer token, running the device-code handshake
// when no persisted session can be reused.
func login(ctx context.Context, logger *log.Logger, client *ihttp.Client, settings *config.Settings) (token, country string, err error) {
	auth := tidal.NewAuthSession(client, settings.ClientID)

	session, err := config.LoadSession(config.DefaultSessionPath())
	if err != nil {
		logger.Warn("error reading session file", "err", err)
	}
	if session.Valid() {
		if err := auth.ValidateSession(ctx, session.AccessToken); err == nil {
			logger.Debug("reusing persisted session", "user", session.UserID)
			return session.AccessToken, session.CountryCode, nil
		}
		logger.Debug("persisted session rejected, starting fresh login")
	}

	handshake, err := auth.BeginHandshake(ctx)
	if err != nil {
		return "", "", err
	}

	logger.Info("authorize this device", "link", handshake.Link(), "code", handshake.UserCode)

	creds, err := auth.PollUntilAuthorized(ctx, time.Duration(settings.LoginTimeoutSec)*time.Second)
	if err != nil {
		return "", "", err
	}
	logger.Info("authorized", "country", creds.CountryCode)

	err = config.SaveSession(config.DefaultSessionPath(), &config.Session{
		AccessToken:  creds.AccessToken,
		RefreshToken: creds.RefreshToken,
		CountryCode:  creds.CountryCode,
		UserID:       creds.UserID,
		ExpiresAt:    creds.ExpiresAt,
	})
	if err != nil {
		logger.Warn("error persisting session", "err", err)
	}

	return creds.AccessToken, creds.CountryCode, nil
}
