// Package config provides configuration loading from YAML files.
package config

import (
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Catalog  CatalogConfig  `yaml:"catalog"`
	Media    MediaConfig    `yaml:"media"`
	Playback PlaybackConfig `yaml:"playback"`
	Upload   UploadConfig   `yaml:"upload"`
	Spotify  SpotifyConfig  `yaml:"spotify"`
}

// ServerConfig represents player server configuration.
type ServerConfig struct {
	Addr         string `yaml:"addr" default:":8090"`
	ControlToken string `yaml:"control_token"` // Empty disables control authentication
}

// CatalogConfig represents the song catalog backend configuration.
type CatalogConfig struct {
	BaseURL          string `yaml:"base_url" default:"http://localhost:5000/api" validate:"required,url"`
	TimeoutSec       int    `yaml:"timeout_sec" default:"30" validate:"gte=1,lte=600"`
	UploadTimeoutSec int    `yaml:"upload_timeout_sec" default:"60" validate:"gte=1,lte=3600"`
}

// Timeout returns the request timeout for regular calls.
func (c CatalogConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}

// UploadTimeout returns the request timeout for uploads.
func (c CatalogConfig) UploadTimeout() time.Duration {
	return time.Duration(c.UploadTimeoutSec) * time.Second
}

// MediaConfig selects and configures the media resource.
type MediaConfig struct {
	Type     string         `yaml:"type" default:"speaker" validate:"oneof=speaker silent"`
	Settings map[string]any `yaml:"settings,omitempty"`
}

// PlaybackConfig represents playback controller configuration.
type PlaybackConfig struct {
	InitialVolume   float64 `yaml:"initial_volume" default:"1" validate:"gte=0,lte=1"`
	ContinueOnEnded *bool   `yaml:"continue_on_ended" default:"true"`
	AutoloadCatalog *bool   `yaml:"autoload_catalog" default:"true"`
}

// ShouldContinueOnEnded reports whether playback continues after a song ends.
func (p PlaybackConfig) ShouldContinueOnEnded() bool {
	return p.ContinueOnEnded == nil || *p.ContinueOnEnded
}

// ShouldAutoloadCatalog reports whether the catalog is fetched at startup.
func (p PlaybackConfig) ShouldAutoloadCatalog() bool {
	return p.AutoloadCatalog == nil || *p.AutoloadCatalog
}

// UploadConfig represents upload validation configuration.
type UploadConfig struct {
	Filters map[string]FilterConfig `yaml:"filters"`
}

// FilterConfig represents a filter's configuration.
type FilterConfig struct {
	Enabled  bool           `yaml:"enabled"`
	Settings map[string]any `yaml:"settings,omitempty"`
}

// SpotifyConfig represents Spotify API configuration. The importer is
// disabled when ClientID is empty.
type SpotifyConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret" validate:"required_with=ClientID"`
	RefreshToken string `yaml:"refresh_token" validate:"required_with=ClientID"`
	Market       string `yaml:"market" validate:"omitempty,len=2" default:"US"`
}

// Enabled reports whether Spotify credentials are configured.
func (s SpotifyConfig) Enabled() bool {
	return s.ClientID != ""
}

// Load loads configuration from a YAML file.
// Environment variables take precedence over file values for sensitive fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}
	return Parse(data)
}

// Parse parses configuration from YAML bytes.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	// Override with environment variables
	cfg.overrideFromEnv()

	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() {
	if v := os.Getenv("MELODECK_CONTROL_TOKEN"); v != "" {
		c.Server.ControlToken = v
	}
	if v := os.Getenv("MELODECK_CATALOG_URL"); v != "" {
		c.Catalog.BaseURL = v
	}
	if v := os.Getenv("SPOTIFY_CLIENT_ID"); v != "" {
		c.Spotify.ClientID = v
	}
	if v := os.Getenv("SPOTIFY_CLIENT_SECRET"); v != "" {
		c.Spotify.ClientSecret = v
	}
	if v := os.Getenv("SPOTIFY_REFRESH_TOKEN"); v != "" {
		c.Spotify.RefreshToken = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}
	return nil
}

// IsFilterEnabled checks if an upload filter is enabled. Filters missing
// from the config run with their default settings.
func (c *Config) IsFilterEnabled(filterName string) bool {
	if f, ok := c.Upload.Filters[filterName]; ok {
		return f.Enabled
	}
	return true
}

// FilterSettings returns the configured settings of an upload filter.
func (c *Config) FilterSettings(filterName string) map[string]any {
	return c.Upload.Filters[filterName].Settings
}
