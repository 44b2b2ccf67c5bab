// Package app wires configuration into the long-lived components shared by
// the HTTP server and the command-line client.
package app

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/robert-malhotra/landcover/internal/catalog"
	"github.com/robert-malhotra/landcover/internal/config"
	"github.com/robert-malhotra/landcover/internal/pipeline"
	"github.com/robert-malhotra/landcover/internal/raster"
	"github.com/robert-malhotra/landcover/internal/raster/cog"
	"github.com/robert-malhotra/landcover/internal/scene"
	"github.com/robert-malhotra/landcover/internal/session"
	"github.com/robert-malhotra/landcover/internal/stac"
)

// App holds the components built from a Config.
type App struct {
	Config      *config.Config
	Collections *config.CollectionRegistry
	Catalog     *catalog.Client
	Loader      *raster.Loader
	Service     *pipeline.Service
}

// New builds the catalog client, raster loader and pipeline service.
func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	collections, err := Collections(cfg.Collections)
	if err != nil {
		return nil, err
	}
	logger.Info("loaded collections", "count", collections.Count(), "ids", collections.IDs())

	filterMode, err := stac.ParseFilterMode(cfg.Catalog.FilterMode)
	if err != nil {
		return nil, err
	}

	policy, err := scene.ParseNoDataPolicy(cfg.Classify.NoDataPolicy)
	if err != nil {
		return nil, err
	}

	client := catalog.NewClient(cfg.Catalog.URL, cfg.Catalog.Timeout).
		WithLogger(logger).
		WithRateLimit(cfg.Catalog.RateLimit, 1).
		WithFilterMode(filterMode).
		WithPaging(cfg.Catalog.PageSize, cfg.Catalog.MaxPages)

	loader := raster.NewLoader(cog.NewReader().WithLogger(logger), raster.Options{
		Resolution:  cfg.Raster.Resolution,
		MaxPixels:   cfg.Raster.MaxPixels,
		Concurrency: cfg.Raster.Concurrency,
	}).WithLogger(logger).WithAssets(collections)

	service := pipeline.NewService(collections, client, loader, policy).WithLogger(logger)

	return &App{
		Config:      cfg,
		Collections: collections,
		Catalog:     client,
		Loader:      loader,
		Service:     service,
	}, nil
}

// SessionPolicy returns the session policy configured in cfg.
func SessionPolicy(cfg config.SessionConfig) session.Policy {
	return session.Policy{RetainOnFailure: cfg.RetainOnFailure}
}

// Collections returns the registry from cfg.Dir, or the built-in collections
// when no directory is configured.
func Collections(cfg config.CollectionsConfig) (*config.CollectionRegistry, error) {
	if cfg.Dir == "" {
		return config.DefaultCollections()
	}
	registry, err := config.LoadCollections(cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to load collections: %w", err)
	}
	return registry, nil
}

// NewLogger creates a slog logger writing to w at the given level and format.
func NewLogger(w io.Writer, level, format string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}
