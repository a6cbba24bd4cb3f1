// Reelsync - Trakt and Jellyfin to Letterboxd Watch History Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsync

// Package main is the entry point for the Reelsync server.
//
// Reelsync periodically pulls watched-movie history from Trakt or
// Jellyfin, generates Letterboxd import CSVs and optionally writes
// diary entries directly to a Letterboxd account. A small dashboard
// API exposes manual sync triggers, status, schedule management and
// export listing.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: environment variables and optional config file (Koanf v2)
//  2. Origin client: Trakt (behind a circuit breaker) or Jellyfin
//  3. Letterboxd: CSV exporter, film ID resolver, optional write session
//  4. Orchestrator: sync pipeline with watermark persistence
//  5. Scheduler: cron-driven incremental syncs
//  6. HTTP server: dashboard API with Prometheus metrics
//
// The scheduler and HTTP server run under a suture supervision tree,
// so a crash in one is restarted with backoff without affecting the
// other.
//
// # Configuration
//
// Key environment variables:
//
//	SYNC_SOURCE=trakt|jellyfin
//	TRAKT_CLIENT_ID, TRAKT_CLIENT_SECRET, TRAKT_ACCESS_TOKEN
//	JELLYFIN_URL, JELLYFIN_API_KEY, JELLYFIN_USER_ID
//	LETTERBOXD_USERNAME, LETTERBOXD_PASSWORD, LETTERBOXD_AUTO_UPLOAD
//	SYNC_SCHEDULE (cron, default "0 2 * * *")
//	ADMIN_PASSWORD (plaintext or bcrypt hash, gates mutating endpoints)
//
// # Signal Handling
//
// SIGINT and SIGTERM trigger graceful shutdown: the HTTP server drains
// in-flight requests and the scheduler waits for a running sync,
// bounded by the supervisor's shutdown timeout.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/reelsync/internal/api"
	"github.com/tomtom215/reelsync/internal/config"
	"github.com/tomtom215/reelsync/internal/jellyfin"
	"github.com/tomtom215/reelsync/internal/letterboxd"
	"github.com/tomtom215/reelsync/internal/logging"
	"github.com/tomtom215/reelsync/internal/scheduler"
	"github.com/tomtom215/reelsync/internal/supervisor"
	"github.com/tomtom215/reelsync/internal/supervisor/services"
	"github.com/tomtom215/reelsync/internal/syncer"
	"github.com/tomtom215/reelsync/internal/trakt"
)

func main() {
	// Load configuration first to get logging settings
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("source", cfg.Sync.Source).
		Str("schedule", cfg.Sync.Schedule).
		Bool("auto_upload", cfg.Letterboxd.AutoUpload).
		Msg("Starting Reelsync")

	if cfg.Security.AdminPassword == "" {
		logging.Warn().Msg("ADMIN_PASSWORD not set, mutating endpoints are unprotected")
	}

	source, err := buildSource(cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize origin client")
	}

	exporter, err := letterboxd.NewCSVExporter(cfg.Sync.ExportPath)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize CSV exporter")
	}

	var uploader syncer.Uploader
	if cfg.Letterboxd.AutoUpload {
		var resolver letterboxd.FilmResolver = letterboxd.NewResolver(cfg.Letterboxd)
		if cfg.Letterboxd.CacheEnabled {
			cached, err := letterboxd.NewCachedResolver(resolver, cfg.Letterboxd.CachePath)
			if err != nil {
				logging.Fatal().Err(err).Msg("Failed to open resolver cache")
			}
			defer func() {
				if err := cached.Close(); err != nil {
					logging.Error().Err(err).Msg("Error closing resolver cache")
				}
			}()
			resolver = cached
		}

		session, err := letterboxd.NewSession(cfg.Letterboxd, resolver)
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to initialize Letterboxd session")
		}
		uploader = session
	}

	manager := syncer.NewManager(cfg, source, exporter, uploader)

	sched, err := scheduler.New(cfg.Sync.Schedule, manager.Sync)
	if err != nil {
		logging.Fatal().Err(err).Msg("Invalid sync schedule")
	}

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           api.NewRouter(cfg, manager, sched).Setup(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
	}

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddJobService(services.NewSchedulerService(sched, 30*time.Second))
	tree.AddAPIService(services.NewHTTPService(server, 10*time.Second))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logging.Info().Str("addr", server.Addr).Msg("Serving")

	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logging.Fatal().Err(err).Msg("Supervisor tree exited with error")
	}

	if report, err := tree.UnstoppedServiceReport(); err == nil && len(report) > 0 {
		for _, svc := range report {
			logging.Warn().Str("service", svc.Name).Msg("Service did not stop in time")
		}
	}

	logging.Info().Msg("Shutdown complete")
}

// buildSource constructs the origin client named by SYNC_SOURCE. The
// Trakt client is wrapped in a circuit breaker; repeated API failures
// trip it open instead of hammering a degraded upstream.
func buildSource(cfg *config.Config) (syncer.Source, error) {
	switch cfg.Sync.Source {
	case "trakt":
		return trakt.NewCircuitBreakerClient(cfg.Trakt)
	case "jellyfin":
		return jellyfin.NewClient(cfg.Jellyfin)
	default:
		return nil, fmt.Errorf("unsupported sync source %q", cfg.Sync.Source)
	}
}
