// Landcover server entry point
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robert-malhotra/landcover/internal/api"
	"github.com/robert-malhotra/landcover/internal/app"
	"github.com/robert-malhotra/landcover/internal/config"
	"github.com/robert-malhotra/landcover/internal/session"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := app.NewLogger(os.Stdout, cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(logger)

	logger.Info("starting landcover server",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"catalog", cfg.Catalog.URL,
	)

	components, err := app.New(cfg, logger)
	if err != nil {
		return err
	}

	// Sessions expire after TTL of inactivity.
	sessions := session.NewStore(cfg.Session.TTL, cfg.Session.CleanupInterval, app.SessionPolicy(cfg.Session))
	defer sessions.Stop()
	logger.Info("initialized session store",
		"ttl", cfg.Session.TTL,
		"cleanup_interval", cfg.Session.CleanupInterval,
		"retain_on_failure", cfg.Session.RetainOnFailure,
	)

	handlers := api.NewHandlers(components.Service, sessions, components.Collections, logger)
	router := api.NewRouter(handlers, logger)

	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		logger.Info("received shutdown signal", "signal", sig)
	}

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	logger.Info("shutting down server", "timeout", cfg.Server.ShutdownTimeout)
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	logger.Info("server stopped")
	return nil
}
