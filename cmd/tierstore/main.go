// Package main is the entry point for the TierStore HTTP server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tierstore/tierstore/internal/app"
	"github.com/tierstore/tierstore/internal/config"
	"github.com/tierstore/tierstore/internal/logging"
	"github.com/tierstore/tierstore/internal/metrics"
	"github.com/tierstore/tierstore/internal/server"
)

func main() {
	configPath := flag.String("config", "tierstore.yaml", "path to configuration file")
	port := flag.Int("port", 0, "override listening port (default: from config or 9300)")
	host := flag.String("host", "", "override listening host (default: from config or 0.0.0.0)")
	logLevel := flag.String("log-level", "", "log level: debug, info, warn, error (default: from config or info)")
	logFormat := flag.String("log-format", "", "log format: text, json (default: from config or text)")
	shutdownTimeout := flag.Int("shutdown-timeout", 0, "graceful shutdown timeout in seconds (default: from config or 30)")
	maxFileSize := flag.Int64("max-file-size", 0, "maximum request body in bytes (default: from config or 67108864)")
	mediaBackend := flag.String("media-backend", "", "media backend: none, local, memory, sqlite, aws, gcp, azure")
	catalogEngine := flag.String("catalog", "", "catalog engine: none, memory, sqlite, dynamodb, firestore, cosmos")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Command-line flags override config file values.
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *host != "" {
		cfg.Server.Host = *host
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}
	if *logFormat != "" {
		cfg.Logging.Format = *logFormat
	}
	if *shutdownTimeout != 0 {
		cfg.Server.ShutdownTimeout = *shutdownTimeout
	}
	if *maxFileSize != 0 {
		cfg.Server.MaxFileSize = *maxFileSize
	}
	if *mediaBackend != "" {
		cfg.Media.Backend = *mediaBackend
	}
	if *catalogEngine != "" {
		cfg.Catalog.Engine = *catalogEngine
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format, os.Stderr)
	if cfg.Observability.Metrics {
		metrics.Register()
	}

	// Every server start cleans up after the previous run: interrupted writes
	// leave temp files behind, and the SQLite stores recover their WAL on
	// open. tierctl never recovers, since the server may be mid-write.
	a, err := app.New(context.Background(), cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize storage: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()
	a.Recover()

	opts := []server.ServerOption{
		server.WithGrants(a.Grants),
		server.WithRecorder(a.Recorder),
	}
	if a.Media != nil {
		opts = append(opts, server.WithMediaStore(a.Media))
	}
	if a.Catalog != nil {
		opts = append(opts, server.WithCatalog(a.Catalog))
	}
	srv, err := server.New(cfg, a.Manager, opts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create server: %v\n", err)
		os.Exit(1)
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("TierStore listening", "addr", addr)
		if err := srv.ListenAndServe(addr); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("Received signal, shutting down", "signal", sig)

		ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			slog.Error("Shutdown error", "error", err)
		}
		slog.Info("Server stopped")

	case err := <-errCh:
		if err != nil {
			a.Close()
			fmt.Fprintf(os.Stderr, "server error: %v\n", err)
			os.Exit(1)
		}
	}
}
