// Package server provides a public API for embedding the landcover service.
package server

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/robert-malhotra/landcover/internal/api"
	"github.com/robert-malhotra/landcover/internal/app"
	"github.com/robert-malhotra/landcover/internal/catalog"
	"github.com/robert-malhotra/landcover/internal/config"
	"github.com/robert-malhotra/landcover/internal/raster"
	"github.com/robert-malhotra/landcover/internal/session"
)

// Options configures the landcover server.
type Options struct {
	// CatalogURL is the STAC API root.
	// Default: Earth Search v1
	CatalogURL string

	// Timeout is the catalog request timeout.
	// Default: 30s
	Timeout time.Duration

	// FilterMode selects "query" or "cql2" encoding of cloud-cover predicates.
	// Default: "query"
	FilterMode string

	// Resolution is the output pixel size in degrees.
	// Default: 0.0001
	Resolution float64

	// MaxPixels caps the size of the output grid.
	// Default: 4000000
	MaxPixels int

	// Concurrency bounds parallel asset reads.
	// Default: 8
	Concurrency int

	// NoDataPolicy is one of exclude, dark-bright or bucket.
	// Default: "exclude"
	NoDataPolicy string

	// SessionTTL is how long an idle session is kept.
	// Default: 1h
	SessionTTL time.Duration

	// ClearOnFailure drops the loaded scenes when a search fails instead of
	// keeping the previous result.
	ClearOnFailure bool

	// CollectionsDir is the path to collection definition files.
	// Default: "" (uses built-in defaults)
	CollectionsDir string

	// Logger is the slog logger to use.
	// Default: slog.Default()
	Logger *slog.Logger
}

// Server is a landcover server that can be embedded in another application.
type Server struct {
	router   chi.Router
	sessions *session.Store
}

// New creates a new landcover server with the given options.
func New(opts Options) (*Server, error) {
	// Apply defaults
	if opts.CatalogURL == "" {
		opts.CatalogURL = catalog.DefaultEndpoint
	}
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.FilterMode == "" {
		opts.FilterMode = "query"
	}
	defaults := raster.DefaultOptions()
	if opts.Resolution == 0 {
		opts.Resolution = defaults.Resolution
	}
	if opts.MaxPixels == 0 {
		opts.MaxPixels = defaults.MaxPixels
	}
	if opts.Concurrency == 0 {
		opts.Concurrency = defaults.Concurrency
	}
	if opts.NoDataPolicy == "" {
		opts.NoDataPolicy = "exclude"
	}
	if opts.SessionTTL == 0 {
		opts.SessionTTL = time.Hour
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	// Build internal config
	cfg := &config.Config{
		Server: config.ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    5 * time.Minute,
			ShutdownTimeout: 10 * time.Second,
		},
		Catalog: config.CatalogConfig{
			URL:        opts.CatalogURL,
			Timeout:    opts.Timeout,
			FilterMode: opts.FilterMode,
			PageSize:   catalog.DefaultPageSize,
			MaxPages:   catalog.DefaultMaxPages,
		},
		Raster: config.RasterConfig{
			Resolution:  opts.Resolution,
			MaxPixels:   opts.MaxPixels,
			Concurrency: opts.Concurrency,
		},
		Classify: config.ClassifyConfig{
			NoDataPolicy: opts.NoDataPolicy,
		},
		Session: config.SessionConfig{
			TTL:             opts.SessionTTL,
			CleanupInterval: opts.SessionTTL / 12,
			RetainOnFailure: !opts.ClearOnFailure,
		},
		Collections: config.CollectionsConfig{
			Dir: opts.CollectionsDir,
		},
		Logging: config.LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
	if cfg.Session.CleanupInterval <= 0 {
		cfg.Session.CleanupInterval = time.Minute
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	components, err := app.New(cfg, opts.Logger)
	if err != nil {
		return nil, err
	}

	sessions := session.NewStore(cfg.Session.TTL, cfg.Session.CleanupInterval, app.SessionPolicy(cfg.Session))

	handlers := api.NewHandlers(components.Service, sessions, components.Collections, opts.Logger)

	return &Server{
		router:   api.NewRouter(handlers, opts.Logger),
		sessions: sessions,
	}, nil
}

// Router returns the chi.Router for mounting in another application.
func (s *Server) Router() chi.Router {
	return s.router
}

// Close stops background goroutines (session cleanup).
func (s *Server) Close() {
	if s.sessions != nil {
		s.sessions.Stop()
	}
}
