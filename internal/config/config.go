// ABOUTME: Daemon and CLI configuration with XDG paths
// ABOUTME: YAML file handling with defaults matching the recording subsystem

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default tile provider; {key} stays empty unless configured.
const defaultTileURL = "https://tile.openstreetmap.org/{z}/{x}/{y}.png"

// Config stores gpstrack configuration. Zero values fall back to the
// defaults returned by the getters.
type Config struct {
	// DataDir is the root directory for the database, tiles, and snapshots.
	// Supports ~ expansion. Defaults to ~/.local/share/gpstrack.
	DataDir string `yaml:"data_dir,omitempty"`

	// TileURL is the provider template embedding {z}, {x}, {y}, and
	// optionally {key}.
	TileURL string `yaml:"tile_url,omitempty"`
	// TileAPIKey substitutes {key} in TileURL.
	TileAPIKey string `yaml:"tile_api_key,omitempty"`
	// TileRadius is the prefetch radius; (2·radius+1)² tiles per area.
	TileRadius int `yaml:"tile_radius,omitempty"`

	// Zoom is the fixed tile zoom assigned to new routes.
	Zoom int `yaml:"zoom,omitempty"`
	// SnapshotWidth/SnapshotHeight are the route snapshot dimensions.
	SnapshotWidth  int `yaml:"snapshot_width,omitempty"`
	SnapshotHeight int `yaml:"snapshot_height,omitempty"`

	// Source selects the location source: "gpsd" (default) or "replay".
	Source string `yaml:"source,omitempty"`
	// GPSDAddr is the gpsd endpoint.
	GPSDAddr string `yaml:"gpsd_addr,omitempty"`
	// ReplayFile is the GPX file replayed when Source is "replay".
	ReplayFile string `yaml:"replay_file,omitempty"`
	// SampleIntervalSeconds is the spacing between accepted fixes.
	SampleIntervalSeconds int `yaml:"sample_interval_seconds,omitempty"`

	// HTTPTimeoutSeconds bounds tile fetches (connect and read).
	HTTPTimeoutSeconds int `yaml:"http_timeout_seconds,omitempty"`
	// ProbeIntervalSeconds is the connectivity check spacing.
	ProbeIntervalSeconds int `yaml:"probe_interval_seconds,omitempty"`

	// ControlSocket is the daemon command socket path.
	ControlSocket string `yaml:"control_socket,omitempty"`
}

// GetDataDir returns the configured data directory with ~ expanded,
// defaulting to the standard XDG data directory.
func (c *Config) GetDataDir() string {
	if c.DataDir == "" {
		return defaultDataDir()
	}
	return ExpandPath(c.DataDir)
}

func defaultDataDir() string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "gpstrack")
}

// DBPath returns the SQLite database path inside the data directory.
func (c *Config) DBPath() string {
	return filepath.Join(c.GetDataDir(), "gpstrack.db")
}

// SnapshotsDir returns where route snapshots are written.
func (c *Config) SnapshotsDir() string {
	return filepath.Join(c.GetDataDir(), "snapshots")
}

// GetTileURL returns the tile provider template.
func (c *Config) GetTileURL() string {
	if c.TileURL == "" {
		return defaultTileURL
	}
	return c.TileURL
}

// GetTileRadius returns the prefetch radius, default 2.
func (c *Config) GetTileRadius() int {
	if c.TileRadius == 0 {
		return 2
	}
	return c.TileRadius
}

// GetZoom returns the route zoom level, default 11.
func (c *Config) GetZoom() int {
	if c.Zoom == 0 {
		return 11
	}
	return c.Zoom
}

// GetSnapshotWidth returns the snapshot width in pixels, default 512.
func (c *Config) GetSnapshotWidth() int {
	if c.SnapshotWidth == 0 {
		return 512
	}
	return c.SnapshotWidth
}

// GetSnapshotHeight returns the snapshot height in pixels, default 512.
func (c *Config) GetSnapshotHeight() int {
	if c.SnapshotHeight == 0 {
		return 512
	}
	return c.SnapshotHeight
}

// GetSource returns the configured location source, defaulting to "gpsd".
func (c *Config) GetSource() string {
	if c.Source == "" {
		return "gpsd"
	}
	return c.Source
}

// GetGPSDAddr returns the gpsd endpoint, default localhost:2947.
func (c *Config) GetGPSDAddr() string {
	if c.GPSDAddr == "" {
		return "localhost:2947"
	}
	return c.GPSDAddr
}

// GetSampleInterval returns the fix spacing, default 5s.
func (c *Config) GetSampleInterval() time.Duration {
	if c.SampleIntervalSeconds == 0 {
		return 5 * time.Second
	}
	return time.Duration(c.SampleIntervalSeconds) * time.Second
}

// GetHTTPTimeout returns the tile fetch timeout, default 10s.
func (c *Config) GetHTTPTimeout() time.Duration {
	if c.HTTPTimeoutSeconds == 0 {
		return 10 * time.Second
	}
	return time.Duration(c.HTTPTimeoutSeconds) * time.Second
}

// GetProbeInterval returns the connectivity probe spacing, default 30s.
func (c *Config) GetProbeInterval() time.Duration {
	if c.ProbeIntervalSeconds == 0 {
		return 30 * time.Second
	}
	return time.Duration(c.ProbeIntervalSeconds) * time.Second
}

// GetControlSocket returns the daemon socket path, defaulting into the
// data directory.
func (c *Config) GetControlSocket() string {
	if c.ControlSocket == "" {
		return filepath.Join(c.GetDataDir(), "gpstrack.sock")
	}
	return ExpandPath(c.ControlSocket)
}

// ProbeAddr derives the host:port the connectivity monitor dials from the
// tile provider URL.
func (c *Config) ProbeAddr() string {
	url := c.GetTileURL()
	rest := url
	port := "80"
	if strings.HasPrefix(url, "https://") {
		rest = strings.TrimPrefix(url, "https://")
		port = "443"
	} else if strings.HasPrefix(url, "http://") {
		rest = strings.TrimPrefix(url, "http://")
	}
	host := rest
	if i := strings.IndexAny(rest, "/"); i >= 0 {
		host = rest[:i]
	}
	if strings.Contains(host, ":") {
		return host
	}
	return host + ":" + port
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) string {
	if path == "" {
		return ""
	}
	if path == "~" {
		home, _ := os.UserHomeDir()
		return home
	}
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}

// GetConfigPath returns the config file path.
func GetConfigPath() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, _ := os.UserHomeDir()
		configDir = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(configDir, "gpstrack", "config.yaml")
}

// Load reads the config from disk, returning defaults when no file exists.
func Load() (*Config, error) {
	return LoadFrom(GetConfigPath())
}

// LoadFrom reads a config file from an explicit path.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}

// Save writes the config to disk.
func (c *Config) Save() error {
	path := GetConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0600)
}
