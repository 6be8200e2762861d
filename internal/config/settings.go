package config

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Settings holds all user-configurable options.
type Settings struct {
	// Download settings
	DownloadsPath          string `json:"downloads_path"`
	MaxConcurrentDownloads int    `json:"max_concurrent_downloads"`
	ExistCheck             bool   `json:"exist_check"`

	// Quality requested from the playback-info endpoint.
	// One of LOW, HIGH, LOSSLESS, HI_RES.
	AudioQuality string `json:"audio_quality"`

	// Cover art settings
	SaveCover     bool `json:"save_cover"`
	CoverSize     int  `json:"cover_size"`
	EmbedMaxWidth int  `json:"embed_max_width"`

	// Playlist settings
	CreatePlaylist bool `json:"create_playlist"`

	// Auth settings
	ClientID        string `json:"client_id"`
	LoginTimeoutSec int    `json:"login_timeout_sec"`
}

// DefaultSettings returns settings with default values.
func DefaultSettings() *Settings {
	homeDir, _ := os.UserHomeDir()
	return &Settings{
		DownloadsPath:          filepath.Join(homeDir, "Music", "Tidal"),
		MaxConcurrentDownloads: 10,
		ExistCheck:             true,

		AudioQuality: "HI_RES",

		SaveCover:     true,
		CoverSize:     1280,
		EmbedMaxWidth: 1280,

		CreatePlaylist: false,

		ClientID:        "zU4XHVVkc2tDPo4t",
		LoginTimeoutSec: 300,
	}
}

// Load reads settings from a JSON file. A missing file yields defaults.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultSettings(), nil
		}
		return nil, err
	}

	settings := DefaultSettings()
	if err := json.Unmarshal(data, settings); err != nil {
		return nil, err
	}

	return settings, nil
}

// Save writes settings to a JSON file.
func (s *Settings) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
