package shared

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Sync        SyncConfig        `toml:"sync"`
	Credentials CredentialsConfig `toml:"credentials"`
	Database    DatabaseConfig    `toml:"database"`
	Fetch       FetchConfig       `toml:"fetch"`
}

// SyncConfig contains the mirror layout settings.
type SyncConfig struct {
	OutputDir   string `toml:"output_dir"`
	FoldersFile string `toml:"folders_file"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
}

// SpotifyConfig contains Spotify API credentials and the account whose playlists are mirrored.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	UserID       string `toml:"user_id"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// FetchConfig contains audio acquisition settings.
type FetchConfig struct {
	Binary      string  `toml:"binary"`       // yt-dlp binary name or path
	AudioFormat string  `toml:"audio_format"` // extracted audio format
	Parallelism int     `toml:"parallelism"`  // concurrent fetch workers
	RateLimit   float64 `toml:"rate_limit"`   // fetches per second
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read config file: %v", ErrMissingConfig, err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	config.Sync.OutputDir = expandHome(config.Sync.OutputDir)
	if config.Sync.FoldersFile != "" {
		folders := expandHome(config.Sync.FoldersFile)
		if !filepath.IsAbs(folders) {
			// Relative folders files resolve against the config file location.
			folders = filepath.Join(filepath.Dir(path), folders)
		}
		config.Sync.FoldersFile = folders
	}

	return &config, nil
}

// Validate checks that required fields are present.
func (c *Config) Validate() error {
	if c.Sync.OutputDir == "" {
		return fmt.Errorf("%w: missing required 'sync.output_dir'", ErrInvalidConfig)
	}
	if c.Sync.FoldersFile != "" && c.Credentials.Spotify.UserID == "" {
		return fmt.Errorf("%w: 'credentials.spotify.user_id' is required to look up playlists by name", ErrInvalidConfig)
	}
	return nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// expandHome replaces a leading ~ with the user's home directory.
func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
