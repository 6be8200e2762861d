package model

import (
	"testing"
)

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"normal-file.flac", "normal-file.flac"},
		{"file:with:colons", "file_with_colons"},
		{"file<with>brackets", "file_with_brackets"},
		{"file/with\\slashes", "file_with_slashes"},
		{"file|with|pipes", "file_with_pipes"},
		{"file?with*wildcards", "file_with_wildcards"},
		{"trailing dots...", "trailing dots"},
		{"multiple   spaces", "multiple spaces"},
		{"trailing spaces   ", "trailing spaces"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := sanitizeFileName(tt.input)
			if got != tt.want {
				t.Errorf("sanitizeFileName(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestTrack_Ext(t *testing.T) {
	tests := []struct {
		quality string
		want    string
	}{
		{"HIGH", ".mp4"},
		{"LOSSLESS", ".flac"},
		{"HI_RES_LOSSLESS", ".flac"},
		{"LOW", ".flac"},
		{"", ".flac"},
	}

	for _, tt := range tests {
		t.Run(tt.quality, func(t *testing.T) {
			track := &Track{Quality: tt.quality}
			if got := track.Ext(); got != tt.want {
				t.Errorf("Ext() for quality %q = %q, want %q", tt.quality, got, tt.want)
			}
		})
	}
}

func TestTrack_FileName(t *testing.T) {
	track := &Track{Artist: "Some Artist", Title: "Some: Title", Quality: "LOSSLESS"}

	want := "Some Artist - Some_ Title.flac"
	if got := track.FileName(); got != want {
		t.Errorf("FileName() = %q, want %q", got, want)
	}
}

func TestTrack_CoverURL(t *testing.T) {
	track := &Track{CoverID: "aa/bb/cc"}

	want := "https://resources.tidal.com/images/aa/bb/cc/1280x1280.jpg"
	if got := track.CoverURL(1280); got != want {
		t.Errorf("CoverURL(1280) = %q, want %q", got, want)
	}
}

func TestPlan_Paths(t *testing.T) {
	track := &Track{Artist: "Artist", Title: "Title", Quality: "LOSSLESS"}

	t.Run("album plan", func(t *testing.T) {
		plan := AlbumPlan("/music", "Artist", "Album")

		if plan.Dir != "/music/Album/Artist/Album" {
			t.Errorf("Dir = %q, want %q", plan.Dir, "/music/Album/Artist/Album")
		}
		if got, want := plan.TrackPath(track), "/music/Album/Artist/Album/Artist - Title.flac"; got != want {
			t.Errorf("TrackPath() = %q, want %q", got, want)
		}
	})

	t.Run("playlist plan", func(t *testing.T) {
		plan := PlaylistPlan("/music", "My Mix")

		if plan.Dir != "/music/Playlist/My Mix" {
			t.Errorf("Dir = %q, want %q", plan.Dir, "/music/Playlist/My Mix")
		}
		if got, want := plan.CoverPath(), "/music/Playlist/My Mix/cover.jpg"; got != want {
			t.Errorf("CoverPath() = %q, want %q", got, want)
		}
		if got, want := plan.PlaylistPath(), "/music/Playlist/My Mix/My Mix.m3u"; got != want {
			t.Errorf("PlaylistPath() = %q, want %q", got, want)
		}
	})

	t.Run("sanitized components", func(t *testing.T) {
		plan := PlaylistPlan("/music", "Mix: Vol 1/2")
		if plan.Dir != "/music/Playlist/Mix_ Vol 1_2" {
			t.Errorf("Dir = %q, want sanitized title", plan.Dir)
		}
	})
}
