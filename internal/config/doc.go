// Package config provides configuration management for tidal-downloader.
//
// This package handles:
//   - Loading and saving settings from JSON files
//   - Default configuration values
//   - Persisting session credentials between runs
//
// # Default Settings
//
// Use DefaultSettings() to get sensible defaults:
//
//	settings := config.DefaultSettings()
//	// Downloads to ~/Music/Tidal
//	// HI_RES quality, concurrent downloads, cover embedding enabled
//
// # Loading from File
//
//	settings, err := config.Load(config.DefaultSettingsPath())
//	if err != nil {
//	    // Uses defaults if file doesn't exist
//	}
//
// # Session Persistence
//
// A successful device-code login produces credentials that are persisted
// so later runs can skip the login handshake:
//
//	session, _ := config.LoadSession(config.DefaultSessionPath())
//	if !session.Valid() {
//	    // run the device-code handshake, then:
//	    config.SaveSession(config.DefaultSessionPath(), session)
//	}
package config
