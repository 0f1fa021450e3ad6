// ABOUTME: Tests for config defaults, loading, and path derivation
// ABOUTME: Verifies YAML round trips and probe address extraction

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := &Config{}

	if got := cfg.GetZoom(); got != 11 {
		t.Errorf("GetZoom() = %d, want 11", got)
	}
	if got := cfg.GetSnapshotWidth(); got != 512 {
		t.Errorf("GetSnapshotWidth() = %d, want 512", got)
	}
	if got := cfg.GetSnapshotHeight(); got != 512 {
		t.Errorf("GetSnapshotHeight() = %d, want 512", got)
	}
	if got := cfg.GetTileRadius(); got != 2 {
		t.Errorf("GetTileRadius() = %d, want 2", got)
	}
	if got := cfg.GetSource(); got != "gpsd" {
		t.Errorf("GetSource() = %q, want gpsd", got)
	}
	if got := cfg.GetGPSDAddr(); got != "localhost:2947" {
		t.Errorf("GetGPSDAddr() = %q, want localhost:2947", got)
	}
	if got := cfg.GetSampleInterval(); got != 5*time.Second {
		t.Errorf("GetSampleInterval() = %v, want 5s", got)
	}
	if got := cfg.GetHTTPTimeout(); got != 10*time.Second {
		t.Errorf("GetHTTPTimeout() = %v, want 10s", got)
	}
	if got := cfg.GetProbeInterval(); got != 30*time.Second {
		t.Errorf("GetProbeInterval() = %v, want 30s", got)
	}
	if got := cfg.GetTileURL(); got != defaultTileURL {
		t.Errorf("GetTileURL() = %q, want default", got)
	}
}

func TestDerivedPaths(t *testing.T) {
	cfg := &Config{DataDir: "/tmp/gpstrack-test"}

	if got := cfg.DBPath(); got != "/tmp/gpstrack-test/gpstrack.db" {
		t.Errorf("DBPath() = %q", got)
	}
	if got := cfg.SnapshotsDir(); got != "/tmp/gpstrack-test/snapshots" {
		t.Errorf("SnapshotsDir() = %q", got)
	}
	if got := cfg.GetControlSocket(); got != "/tmp/gpstrack-test/gpstrack.sock" {
		t.Errorf("GetControlSocket() = %q", got)
	}
}

func TestDefaultDataDirHonorsXDG(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/custom/data")

	cfg := &Config{}
	if got := cfg.GetDataDir(); got != "/custom/data/gpstrack" {
		t.Errorf("GetDataDir() = %q, want /custom/data/gpstrack", got)
	}
}

func TestProbeAddr(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://tile.openstreetmap.org/{z}/{x}/{y}.png", "tile.openstreetmap.org:443"},
		{"http://localhost:8080/{z}/{x}/{y}.png", "localhost:8080"},
		{"http://tiles.example.com/{z}/{x}/{y}.png", "tiles.example.com:80"},
	}
	for _, tt := range tests {
		cfg := &Config{TileURL: tt.url}
		if got := cfg.ProbeAddr(); got != tt.want {
			t.Errorf("ProbeAddr(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}

	if got := ExpandPath("~/tracks"); got != filepath.Join(home, "tracks") {
		t.Errorf("ExpandPath(~/tracks) = %q", got)
	}
	if got := ExpandPath("/abs/path"); got != "/abs/path" {
		t.Errorf("ExpandPath(/abs/path) = %q", got)
	}
	if got := ExpandPath(""); got != "" {
		t.Errorf("ExpandPath(\"\") = %q", got)
	}
}

func TestLoadFrom(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := `data_dir: /var/lib/gpstrack
zoom: 14
source: replay
replay_file: /tmp/track.gpx
sample_interval_seconds: 2
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if cfg.GetDataDir() != "/var/lib/gpstrack" {
		t.Errorf("DataDir = %q", cfg.GetDataDir())
	}
	if cfg.GetZoom() != 14 {
		t.Errorf("Zoom = %d, want 14", cfg.GetZoom())
	}
	if cfg.GetSource() != "replay" {
		t.Errorf("Source = %q, want replay", cfg.GetSource())
	}
	if cfg.ReplayFile != "/tmp/track.gpx" {
		t.Errorf("ReplayFile = %q", cfg.ReplayFile)
	}
	if cfg.GetSampleInterval() != 2*time.Second {
		t.Errorf("SampleInterval = %v, want 2s", cfg.GetSampleInterval())
	}
}

func TestLoadFromMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if cfg.GetZoom() != 11 {
		t.Errorf("Zoom = %d, want default 11", cfg.GetZoom())
	}
}

func TestLoadFromInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("zoom: [not a number"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFrom(path); err == nil {
		t.Error("LoadFrom() expected error for invalid YAML")
	}
}
