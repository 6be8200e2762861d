package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// Session is the persisted credential record written after a successful
// device-code login. It is the on-disk counterpart of tidal.Credentials:
// the auth handshake produces a fresh value and the invoking layer hands
// it to SaveSession; nothing else writes it.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	CountryCode  string    `json:"country_code"`
	UserID       string    `json:"user_id"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Valid reports whether the session carries a token that has not expired.
func (s *Session) Valid() bool {
	return s != nil && s.AccessToken != "" && time.Now().Before(s.ExpiresAt)
}

// LoadSession reads a persisted session from a JSON file.
// A missing file returns (nil, nil): no session, not an error.
func LoadSession(path string) (*Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, err
	}

	return &session, nil
}

// SaveSession writes the session to a JSON file with owner-only permissions.
func SaveSession(path string, session *Session) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}

// DefaultSessionPath returns the default location of the persisted session,
// next to the settings file in the user config directory.
func DefaultSessionPath() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return ".tidal-session.json"
	}
	return filepath.Join(configDir, "tidal-dl", "session.json")
}

// DefaultSettingsPath returns the default location of the settings file.
func DefaultSettingsPath() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return ".tidal-dl.json"
	}
	return filepath.Join(configDir, "tidal-dl", "settings.json")
}
