// Package config provides configuration management for the landcover service.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds the complete application configuration loaded from environment variables.
type Config struct {
	Server      ServerConfig      `envPrefix:"SERVER_"`
	Catalog     CatalogConfig     `envPrefix:"CATALOG_"`
	Raster      RasterConfig      `envPrefix:"RASTER_"`
	Classify    ClassifyConfig    `envPrefix:"CLASSIFY_"`
	Session     SessionConfig     `envPrefix:"SESSION_"`
	Collections CollectionsConfig `envPrefix:"COLLECTIONS_"`
	Logging     LoggingConfig     `envPrefix:"LOG_"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Host            string        `env:"HOST" envDefault:"0.0.0.0"`
	Port            int           `env:"PORT" envDefault:"8080"`
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"30s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"5m"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// CatalogConfig contains STAC catalog client configuration.
type CatalogConfig struct {
	URL        string        `env:"URL" envDefault:"https://earth-search.aws.element84.com/v1"`
	Timeout    time.Duration `env:"TIMEOUT" envDefault:"30s"`
	FilterMode string        `env:"FILTER_MODE" envDefault:"query"`
	PageSize   int           `env:"PAGE_SIZE" envDefault:"100"`
	MaxPages   int           `env:"MAX_PAGES" envDefault:"20"`
	RateLimit  float64       `env:"RATE_LIMIT" envDefault:"5"`
}

// RasterConfig contains raster materialization settings.
type RasterConfig struct {
	// Resolution is the output pixel size in degrees (0.0001 is roughly 10 m).
	Resolution  float64 `env:"RESOLUTION" envDefault:"0.0001"`
	MaxPixels   int     `env:"MAX_PIXELS" envDefault:"4000000"`
	Concurrency int     `env:"CONCURRENCY" envDefault:"8"`
}

// ClassifyConfig contains scene classification summary settings.
type ClassifyConfig struct {
	// NoDataPolicy is one of: exclude, dark-bright, bucket.
	NoDataPolicy string `env:"NODATA_POLICY" envDefault:"exclude"`
}

// SessionConfig contains session store settings.
type SessionConfig struct {
	TTL             time.Duration `env:"TTL" envDefault:"1h"`
	CleanupInterval time.Duration `env:"CLEANUP_INTERVAL" envDefault:"5m"`
	RetainOnFailure bool          `env:"RETAIN_ON_FAILURE" envDefault:"true"`
}

// CollectionsConfig points at optional collection definition files.
type CollectionsConfig struct {
	// Dir holds *.json / *.yaml collection files. Empty uses the built-in
	// definitions.
	Dir string `env:"DIR" envDefault:""`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level  string `env:"LEVEL" envDefault:"info"`
	Format string `env:"FORMAT" envDefault:"json"`
}

// Load parses configuration from environment variables.
// It returns an error if required fields are missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{}

	opts := env.Options{
		RequiredIfNoDef: true,
	}

	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive, got %s", c.Server.ReadTimeout)
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive, got %s", c.Server.WriteTimeout)
	}

	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server shutdown timeout must be positive, got %s", c.Server.ShutdownTimeout)
	}

	if c.Catalog.URL == "" {
		return fmt.Errorf("catalog URL is required")
	}

	if c.Catalog.Timeout <= 0 {
		return fmt.Errorf("catalog timeout must be positive, got %s", c.Catalog.Timeout)
	}

	if c.Catalog.FilterMode != "query" && c.Catalog.FilterMode != "cql2" {
		return fmt.Errorf("catalog filter mode must be 'query' or 'cql2', got %q", c.Catalog.FilterMode)
	}

	if c.Catalog.PageSize < 1 {
		return fmt.Errorf("catalog page size must be at least 1, got %d", c.Catalog.PageSize)
	}

	if c.Catalog.MaxPages < 1 {
		return fmt.Errorf("catalog max pages must be at least 1, got %d", c.Catalog.MaxPages)
	}

	if c.Catalog.RateLimit < 0 {
		return fmt.Errorf("catalog rate limit must not be negative, got %v", c.Catalog.RateLimit)
	}

	if c.Raster.Resolution <= 0 {
		return fmt.Errorf("raster resolution must be positive, got %v", c.Raster.Resolution)
	}

	if c.Raster.MaxPixels < 1 {
		return fmt.Errorf("raster max pixels must be at least 1, got %d", c.Raster.MaxPixels)
	}

	if c.Raster.Concurrency < 1 {
		return fmt.Errorf("raster concurrency must be at least 1, got %d", c.Raster.Concurrency)
	}

	validPolicies := map[string]bool{
		"exclude":     true,
		"dark-bright": true,
		"bucket":      true,
	}
	if !validPolicies[c.Classify.NoDataPolicy] {
		return fmt.Errorf("invalid no-data policy %q, must be one of: exclude, dark-bright, bucket", c.Classify.NoDataPolicy)
	}

	if c.Session.TTL <= 0 {
		return fmt.Errorf("session TTL must be positive, got %s", c.Session.TTL)
	}

	if c.Session.CleanupInterval <= 0 {
		return fmt.Errorf("session cleanup interval must be positive, got %s", c.Session.CleanupInterval)
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level %q, must be one of: debug, info, warn, error", c.Logging.Level)
	}

	validLogFormats := map[string]bool{
		"json": true,
		"text": true,
	}
	if !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("invalid log format %q, must be one of: json, text", c.Logging.Format)
	}

	return nil
}

// Address returns the server listen address in the format "host:port".
func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
