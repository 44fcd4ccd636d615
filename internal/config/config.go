// Package config handles launcher settings and paths.
package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/tidwall/jsonc"
)

// Config holds the launcher settings. Values come from defaults, then
// <DataDir>/config.json (comments allowed), then MCLAUNCH_* variables.
type Config struct {
	// Paths
	DataDir string `json:"-"`
	GameDir string `json:"gameDir,omitempty" env:"MCLAUNCH_GAME_DIR"`

	// Endpoints
	DirectoryURL  string `json:"directoryURL,omitempty" env:"MCLAUNCH_DIRECTORY_URL"`
	AZauthURL     string `json:"azauthURL,omitempty" env:"MCLAUNCH_AZAUTH_URL"`
	AccessCodeURL string `json:"accessCodeURL,omitempty" env:"MCLAUNCH_ACCESS_CODE_URL"`

	// Auth
	MSAClientID string `json:"msaClientID,omitempty" env:"MCLAUNCH_MSA_CLIENT_ID"`

	// Behaviour
	WatchInterval Duration `json:"watchInterval,omitempty" env:"MCLAUNCH_WATCH_INTERVAL"`
	LaunchCommand []string `json:"launchCommand,omitempty" env:"MCLAUNCH_LAUNCH_COMMAND" envSeparator:" "`
	LogLevel      string   `json:"logLevel,omitempty" env:"MCLAUNCH_LOG_LEVEL"`
}

const (
	DefaultMSAClientID   = "c36a9fb6-4f2a-41ff-90bd-ae7cc92031eb"
	DefaultWatchInterval = 5 * time.Second
	configFileName       = "config.json"
)

// Duration is a time.Duration written as "5s" in files and variables.
type Duration time.Duration

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig(dataDir string) *Config {
	if dataDir == "" {
		dataDir = getDefaultDataDir()
	}
	return &Config{
		DataDir:       dataDir,
		GameDir:       filepath.Join(dataDir, "game"),
		MSAClientID:   DefaultMSAClientID,
		WatchInterval: Duration(DefaultWatchInterval),
		LogLevel:      "info",
	}
}

// Load reads the config for dataDir. An empty dataDir means MCLAUNCH_DATA_DIR
// or the platform default.
func Load(dataDir string) (*Config, error) {
	if dataDir == "" {
		dataDir = os.Getenv("MCLAUNCH_DATA_DIR")
	}
	cfg := DefaultConfig(dataDir)

	data, err := os.ReadFile(cfg.ConfigPath())
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, err
	default:
		if err := json.Unmarshal(jsonc.ToJSON(data), cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", cfg.ConfigPath(), err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

// applyDefaults restores defaults for fields left empty by the file.
func (c *Config) applyDefaults() {
	def := DefaultConfig(c.DataDir)
	if c.GameDir == "" {
		c.GameDir = def.GameDir
	}
	if c.MSAClientID == "" {
		c.MSAClientID = def.MSAClientID
	}
	if c.WatchInterval <= 0 {
		c.WatchInterval = def.WatchInterval
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
}

// Save writes config to disk
func (c *Config) Save() error {
	if err := os.MkdirAll(c.DataDir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(c.ConfigPath(), data, 0644)
}

// EnsureDirs creates all required directories
func (c *Config) EnsureDirs() error {
	for _, dir := range []string{c.DataDir, c.GameDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) ConfigPath() string { return filepath.Join(c.DataDir, configFileName) }
func (c *Config) StorePath() string  { return filepath.Join(c.DataDir, "launcher.db") }
func (c *Config) LogPath() string    { return filepath.Join(c.DataDir, "launcher.log") }

// Interval returns WatchInterval as a time.Duration.
func (c *Config) Interval() time.Duration { return time.Duration(c.WatchInterval) }

// SlogLevel parses LogLevel, falling back to info.
func (c *Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

func getDefaultDataDir() string {
	// Check for portable mode first
	exe, _ := os.Executable()
	portablePath := filepath.Join(filepath.Dir(exe), "data")
	if _, err := os.Stat(portablePath); err == nil {
		return portablePath
	}

	// Use XDG/platform-specific directories
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "mclaunch")
	}

	home, _ := os.UserHomeDir()
	switch {
	case os.Getenv("APPDATA") != "": // Windows
		return filepath.Join(os.Getenv("APPDATA"), "mclaunch")
	default: // Linux/macOS
		return filepath.Join(home, ".local", "share", "mclaunch")
	}
}
