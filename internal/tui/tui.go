// Package tui provides a Bubble Tea terminal user interface for
// tidal-downloader.
package tui

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/handiism/tidal-downloader/internal/audio"
	"github.com/handiism/tidal-downloader/internal/config"
	"github.com/handiism/tidal-downloader/internal/download"
	ihttp "github.com/handiism/tidal-downloader/internal/http"
	ioutils "github.com/handiism/tidal-downloader/internal/io"
	"github.com/handiism/tidal-downloader/internal/tidal"
)

// Styles for the TUI
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#61D4FA")).
			MarginBottom(1)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#4ECDC4"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#95E1A3"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFE66D"))

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A8DADC"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6C757D"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#4ECDC4")).
			Padding(1, 2)

	linkStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#F8B500"))
)

// State represents the current UI state.
type State int

const (
	StateInput State = iota
	StateLogin
	StateResolving
	StateDownloading
	StateComplete
	StateError
)

// LogEntry represents a log message in the UI.
type LogEntry struct {
	Message string
	Level   download.ProgressLevel
}

// logBuffer collects progress events from concurrent download jobs so
// the UI can drain them on its own tick.
type logBuffer struct {
	mu      sync.Mutex
	entries []LogEntry
}

func (b *logBuffer) add(entry LogEntry) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = append(b.entries, entry)
}

func (b *logBuffer) drain() []LogEntry {
	b.mu.Lock()
	defer b.mu.Unlock()
	entries := b.entries
	b.entries = nil
	return entries
}

// Model is the Bubble Tea model for the TUI.
type Model struct {
	state     State
	textInput textinput.Model
	spinner   spinner.Model
	progress  progress.Model
	settings  *config.Settings
	logs      []LogEntry
	logBuf    *logBuffer
	err       error

	ctx    context.Context
	cancel context.CancelFunc

	client *ihttp.Client
	engine *download.Engine

	// Login display
	loginLink string
	userCode  string

	// Download progress
	totalFiles    int32
	doneFiles     int32
	totalBytes    int64
	receivedBytes int64
	results       []download.Result

	verbose bool

	width  int
	height int
}

// NewModel creates a new TUI model.
func NewModel() Model {
	ti := textinput.New()
	ti.Placeholder = "https://tidal.com/browse/album/12345678"
	ti.Focus()
	ti.CharLimit = 500
	ti.Width = 60

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#61D4FA"))

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 50

	ctx, cancel := context.WithCancel(context.Background())

	settings, err := config.Load(config.DefaultSettingsPath())
	if err != nil {
		settings = config.DefaultSettings()
	}

	return Model{
		state:     StateInput,
		textInput: ti,
		spinner:   sp,
		progress:  prog,
		settings:  settings,
		logs:      make([]LogEntry, 0),
		logBuf:    &logBuffer{},
		ctx:       ctx,
		cancel:    cancel,
		client:    ihttp.NewClient(),
	}
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

// Message types
type (
	// LoginRequiredMsg is sent when no valid session exists and the
	// user must authorize the device.
	LoginRequiredMsg struct {
		Auth      *tidal.AuthSession
		Handshake *tidal.Handshake
		ID        string
		Kind      tidal.Kind
	}

	// SessionReadyMsg is sent when a bearer token is available.
	SessionReadyMsg struct {
		Token   string
		Country string
		ID      string
		Kind    tidal.Kind
	}

	// BatchReadyMsg is sent when all tracks are resolved and their
	// stream URLs decoded.
	BatchReadyMsg struct {
		Batch download.Batch
	}

	// DownloadDoneMsg is sent when the batch finishes.
	DownloadDoneMsg struct {
		Results []download.Result
	}

	// PipelineErrMsg aborts the pipeline with an error.
	PipelineErrMsg struct {
		Err error
	}

	// TickMsg is for periodic progress updates.
	TickMsg struct{}
)

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progress.Width = msg.Width - 20
		if m.progress.Width > 80 {
			m.progress.Width = 80
		}
		if m.progress.Width < 20 {
			m.progress.Width = 20
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.cancel()
			return m, tea.Quit

		case "esc":
			if m.state == StateInput {
				return m, tea.Quit
			}
			if m.state == StateLogin || m.state == StateResolving || m.state == StateDownloading {
				m.cancel()
				m.state = StateError
				m.err = fmt.Errorf("cancelled by user")
			}

		case "enter":
			if m.state == StateInput && m.textInput.Value() != "" {
				m.state = StateResolving
				return m, tea.Batch(m.startPipeline(), m.spinner.Tick)
			}

		case "v":
			if m.state == StateInput {
				m.verbose = !m.verbose
			}

		case "q":
			if m.state == StateComplete || m.state == StateError {
				return m, tea.Quit
			}

		case "r":
			if m.state == StateComplete || m.state == StateError {
				// Reset for a new download
				m.state = StateInput
				m.logs = nil
				m.err = nil
				m.results = nil
				m.engine = nil
				m.doneFiles = 0
				m.totalFiles = 0
				m.receivedBytes = 0
				m.totalBytes = 0
				m.loginLink = ""
				m.userCode = ""
				m.ctx, m.cancel = context.WithCancel(context.Background())
				m.textInput.SetValue("")
				m.textInput.Focus()
			}
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case LoginRequiredMsg:
		m.state = StateLogin
		m.loginLink = msg.Handshake.Link()
		m.userCode = msg.Handshake.UserCode
		cmds = append(cmds, m.pollLogin(msg), m.spinner.Tick)

	case SessionReadyMsg:
		m.state = StateResolving
		cmds = append(cmds, m.resolveBatch(msg), m.spinner.Tick)

	case BatchReadyMsg:
		m.state = StateDownloading
		m.engine = download.NewEngine(m.settings, m.client, m.newTagger(), func(event download.ProgressEvent) {
			m.logBuf.add(LogEntry{Message: event.Message, Level: event.Level})
		})
		cmds = append(cmds, m.runBatch(msg.Batch), m.tickProgress())

	case DownloadDoneMsg:
		m.results = msg.Results
		if m.engine != nil {
			m.receivedBytes, m.totalBytes, m.doneFiles, m.totalFiles = m.engine.Progress()
		}
		m.logs = append(m.logs, m.filterLogs(m.logBuf.drain())...)
		if m.ctx.Err() != nil {
			m.state = StateError
			m.err = fmt.Errorf("cancelled by user")
		} else {
			m.state = StateComplete
		}

	case PipelineErrMsg:
		m.state = StateError
		m.err = msg.Err

	case TickMsg:
		if m.engine != nil && m.state == StateDownloading {
			m.receivedBytes, m.totalBytes, m.doneFiles, m.totalFiles = m.engine.Progress()

			m.logs = append(m.logs, m.filterLogs(m.logBuf.drain())...)
			if len(m.logs) > 10 {
				m.logs = m.logs[len(m.logs)-10:]
			}

			var percent float64
			if m.totalFiles > 0 {
				percent = float64(m.doneFiles) / float64(m.totalFiles)
			}
			cmds = append(cmds, m.progress.SetPercent(percent), m.tickProgress())
		}

	case progress.FrameMsg:
		progressModel, cmd := m.progress.Update(msg)
		m.progress = progressModel.(progress.Model)
		cmds = append(cmds, cmd)
	}

	// Update text input
	if m.state == StateInput {
		var cmd tea.Cmd
		m.textInput, cmd = m.textInput.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// filterLogs drops verbose entries unless verbose mode is on.
func (m Model) filterLogs(entries []LogEntry) []LogEntry {
	if m.verbose {
		return entries
	}
	kept := entries[:0]
	for _, e := range entries {
		if e.Level != download.LevelVerbose {
			kept = append(kept, e)
		}
	}
	return kept
}

// tickProgress returns a command to tick progress updates.
func (m Model) tickProgress() tea.Cmd {
	return tea.Tick(200*time.Millisecond, func(_ time.Time) tea.Msg {
		return TickMsg{}
	})
}

// newTagger builds the metadata tagger from current settings.
func (m Model) newTagger() *audio.Tagger {
	return audio.NewTagger(m.client, ioutils.NewImageService(), m.settings.CoverSize, m.settings.EmbedMaxWidth)
}

// startPipeline classifies the link and checks for a valid session.
func (m *Model) startPipeline() tea.Cmd {
	ctx := m.ctx
	client := m.client
	settings := m.settings
	url := m.textInput.Value()

	return func() tea.Msg {
		id, kind, err := tidal.ParseLink(url)
		if err != nil {
			return PipelineErrMsg{Err: err}
		}

		auth := tidal.NewAuthSession(client, settings.ClientID)

		session, _ := config.LoadSession(config.DefaultSessionPath())
		if session.Valid() {
			if err := auth.ValidateSession(ctx, session.AccessToken); err == nil {
				return SessionReadyMsg{Token: session.AccessToken, Country: session.CountryCode, ID: id, Kind: kind}
			}
		}

		handshake, err := auth.BeginHandshake(ctx)
		if err != nil {
			return PipelineErrMsg{Err: err}
		}
		return LoginRequiredMsg{Auth: auth, Handshake: handshake, ID: id, Kind: kind}
	}
}

// pollLogin waits for the user to authorize the device, then persists
// the session.
func (m *Model) pollLogin(msg LoginRequiredMsg) tea.Cmd {
	ctx := m.ctx
	timeout := time.Duration(m.settings.LoginTimeoutSec) * time.Second

	return func() tea.Msg {
		creds, err := msg.Auth.PollUntilAuthorized(ctx, timeout)
		if err != nil {
			return PipelineErrMsg{Err: err}
		}

		session := &config.Session{
			AccessToken:  creds.AccessToken,
			RefreshToken: creds.RefreshToken,
			CountryCode:  creds.CountryCode,
			UserID:       creds.UserID,
			ExpiresAt:    creds.ExpiresAt,
		}
		if err := config.SaveSession(config.DefaultSessionPath(), session); err != nil {
			return PipelineErrMsg{Err: err}
		}

		return SessionReadyMsg{Token: creds.AccessToken, Country: creds.CountryCode, ID: msg.ID, Kind: msg.Kind}
	}
}

// resolveBatch resolves the catalog id into tracks and decodes each
// track's stream URL.
func (m *Model) resolveBatch(msg SessionReadyMsg) tea.Cmd {
	ctx := m.ctx
	settings := m.settings
	bearer := m.client.WithBearer(msg.Token)

	return func() tea.Msg {
		resolver := tidal.NewResolver(bearer, msg.Country)
		tracks, plan, err := resolver.Resolve(ctx, msg.ID, msg.Kind, settings.DownloadsPath)
		if err != nil {
			return PipelineErrMsg{Err: err}
		}

		decoder := tidal.NewManifestDecoder(bearer, settings.AudioQuality)
		jobs := make([]download.Job, 0, len(tracks))
		for _, track := range tracks {
			stream, err := decoder.Decode(ctx, track)
			if err != nil {
				return PipelineErrMsg{Err: err}
			}
			jobs = append(jobs, download.Job{
				Track: track,
				URL:   stream.URL,
				Path:  plan.TrackPath(track),
			})
		}

		batch := download.Batch{Plan: plan, Jobs: jobs}
		if msg.Kind == tidal.KindPlaylist {
			batch.Title = filepath.Base(plan.Dir)
		}
		return BatchReadyMsg{Batch: batch}
	}
}

// runBatch runs the download engine to completion.
func (m *Model) runBatch(batch download.Batch) tea.Cmd {
	ctx := m.ctx
	engine := m.engine

	return func() tea.Msg {
		results := engine.Run(ctx, batch)
		return DownloadDoneMsg{Results: results}
	}
}

// View renders the UI.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("♪ Tidal Downloader"))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("Download tracks, albums and playlists from Tidal"))
	b.WriteString("\n\n")

	switch m.state {
	case StateInput:
		b.WriteString(m.viewInput())
	case StateLogin:
		b.WriteString(m.viewLogin())
	case StateResolving:
		b.WriteString(m.viewResolving())
	case StateDownloading:
		b.WriteString(m.viewDownloading())
	case StateComplete:
		b.WriteString(m.viewComplete())
	case StateError:
		b.WriteString(m.viewError())
	}

	b.WriteString("\n")
	b.WriteString(dimStyle.Render(m.getHelpText()))

	return b.String()
}

func (m Model) viewInput() string {
	var b strings.Builder

	b.WriteString(subtitleStyle.Render("Enter Tidal URL:"))
	b.WriteString("\n\n")
	b.WriteString(m.textInput.View())
	b.WriteString("\n\n")

	verboseCheck := "[ ]"
	if m.verbose {
		verboseCheck = "[x]"
	}
	b.WriteString(fmt.Sprintf("  %s Verbose output (v)\n", verboseCheck))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("Download path: %s", m.settings.DownloadsPath)))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("Audio quality: %s", m.settings.AudioQuality)))
	b.WriteString("\n")

	return b.String()
}

func (m Model) viewLogin() string {
	var b strings.Builder

	b.WriteString(m.spinner.View())
	b.WriteString(" ")
	b.WriteString(subtitleStyle.Render("Waiting for authorization..."))
	b.WriteString("\n\n")
	b.WriteString("Open this link to authorize the device:\n\n")
	b.WriteString("  " + linkStyle.Render(m.loginLink))
	b.WriteString("\n\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("Code: %s", m.userCode)))
	b.WriteString("\n")

	return b.String()
}

func (m Model) viewResolving() string {
	var b strings.Builder

	b.WriteString(m.spinner.View())
	b.WriteString(" ")
	b.WriteString(subtitleStyle.Render("Resolving tracks..."))
	b.WriteString("\n\n")
	b.WriteString(m.renderLogs())

	return b.String()
}

func (m Model) viewDownloading() string {
	var b strings.Builder

	var percent float64
	if m.totalFiles > 0 {
		percent = float64(m.doneFiles) / float64(m.totalFiles)
	}
	b.WriteString(m.progress.ViewAs(percent))
	b.WriteString("\n")

	b.WriteString(infoStyle.Render(fmt.Sprintf(
		"Tracks: %d/%d | Downloaded: %s",
		m.doneFiles,
		m.totalFiles,
		humanize.Bytes(uint64(m.receivedBytes)),
	)))
	b.WriteString("\n\n")
	b.WriteString(m.renderLogs())

	return b.String()
}

func (m Model) viewComplete() string {
	var failed int
	for _, r := range m.results {
		if r.Status == download.StatusFailed {
			failed++
		}
	}

	summary := fmt.Sprintf(
		"Download Complete\n\n"+
			"Tracks: %d\n"+
			"Failed: %d\n"+
			"Size: %s",
		len(m.results),
		failed,
		humanize.Bytes(uint64(m.receivedBytes)),
	)

	var b strings.Builder
	b.WriteString(boxStyle.Render(summary))

	if failed > 0 {
		b.WriteString("\n\n")
		for _, r := range m.results {
			if r.Status == download.StatusFailed {
				b.WriteString(errorStyle.Render(fmt.Sprintf("  ✗ %s: %v", r.Track.Title, r.Err)))
				b.WriteString("\n")
			}
		}
	}

	return b.String()
}

func (m Model) viewError() string {
	var b strings.Builder

	b.WriteString(errorStyle.Render("Error occurred:"))
	b.WriteString("\n\n")
	if m.err != nil {
		b.WriteString(fmt.Sprintf("  %s", m.err.Error()))
	}

	return b.String()
}

func (m Model) renderLogs() string {
	var b strings.Builder

	for _, log := range m.logs {
		var style lipgloss.Style
		prefix := "•"
		switch log.Level {
		case download.LevelError:
			style = errorStyle
			prefix = "✗"
		case download.LevelWarning:
			style = warningStyle
			prefix = "!"
		case download.LevelSuccess:
			style = successStyle
			prefix = "✓"
		case download.LevelInfo:
			style = infoStyle
			prefix = "›"
		default:
			style = dimStyle
		}
		b.WriteString(style.Render(prefix + " " + log.Message))
		b.WriteString("\n")
	}

	return b.String()
}

func (m Model) getHelpText() string {
	switch m.state {
	case StateInput:
		return "enter: start • v: verbose • esc: quit"
	case StateLogin:
		return "esc: cancel"
	case StateResolving, StateDownloading:
		return "esc: cancel"
	case StateComplete, StateError:
		return "r: new download • q: quit"
	}
	return ""
}

// Run starts the TUI application.
func Run() error {
	p := tea.NewProgram(NewModel(), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
