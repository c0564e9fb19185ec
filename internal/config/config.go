package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config represents the complete server configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" koanf:"server"`
	Routes    RoutesConfig    `yaml:"routes" koanf:"routes"`
	Icons     IconsConfig     `yaml:"icons" koanf:"icons"`
	Elevation ElevationConfig `yaml:"elevation" koanf:"elevation"`
}

// ServerConfig holds server-specific settings
type ServerConfig struct {
	Port        int      `yaml:"port" koanf:"port" validate:"min=0,max=65535"`
	CorsOrigins []string `yaml:"cors_origins" koanf:"cors_origins"`
}

// Route file source kinds
const (
	SourceDir  = "dir"
	SourceHTTP = "http"
)

// RoutesConfig holds route loading configuration
type RoutesConfig struct {
	Source               string        `yaml:"source" koanf:"source" validate:"oneof=dir http"`
	DataDir              string        `yaml:"data_dir" koanf:"data_dir" validate:"required_if=Source dir"`
	BaseURL              string        `yaml:"base_url" koanf:"base_url" validate:"required_if=Source http,omitempty,url"`
	Manifest             string        `yaml:"manifest" koanf:"manifest" validate:"required"`
	RefreshInterval      time.Duration `yaml:"refresh_interval" koanf:"refresh_interval" validate:"min=0"`
	StaleThreshold       time.Duration `yaml:"stale_threshold" koanf:"stale_threshold" validate:"min=0"`
	MaxConcurrentFetches int           `yaml:"max_concurrent_fetches" koanf:"max_concurrent_fetches" validate:"min=1"`
	FetchTimeout         time.Duration `yaml:"fetch_timeout" koanf:"fetch_timeout" validate:"min=0"`
	Palette              []string      `yaml:"palette" koanf:"palette" validate:"min=1,dive,hexcolor"`
}

// IconsConfig points at the role icon SVGs
type IconsConfig struct {
	Dir string `yaml:"dir" koanf:"dir"`
}

// ElevationConfig controls SRTM lookups for waypoints missing an elevation
type ElevationConfig struct {
	Enabled bool          `yaml:"enabled" koanf:"enabled"`
	Timeout time.Duration `yaml:"timeout" koanf:"timeout" validate:"min=0"`
}

// DefaultPalette is the route color cycle used on the map, in manifest order
var DefaultPalette = []string{
	"#cc0000", // Red
	"#0000cc", // Blue
	"#DD00DD", // Magenta
	"#4A148C", // Purple
	"#00aaaa", // Cyan
	"#FF6F00", // Orange
	"#4E342E", // Brown
	"#006064", // Teal
	"#0D1335", // Dark Blue
	"#A0740B", // Mustard
	"#003300", // Dark Green
	"#550000", // Burgundy
	"#8800DD", // Violet
}

var validate = validator.New()

// Validate checks field constraints across all sections
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	palette := make([]string, len(DefaultPalette))
	copy(palette, DefaultPalette)

	return &Config{
		Server: ServerConfig{
			Port:        8080,
			CorsOrigins: []string{"*"},
		},
		Routes: RoutesConfig{
			Source:               SourceDir,
			DataDir:              "data",
			Manifest:             "routes.json",
			RefreshInterval:      5 * time.Minute,
			StaleThreshold:       30 * time.Minute,
			MaxConcurrentFetches: 4,
			FetchTimeout:         30 * time.Second,
			Palette:              palette,
		},
		Icons: IconsConfig{
			Dir: "img/icons",
		},
		Elevation: ElevationConfig{
			Enabled: false,
			Timeout: 30 * time.Second,
		},
	}
}
