// Reelsync - Trakt and Jellyfin to Letterboxd Watch History Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsync

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/reelsync/internal/config"
	"github.com/tomtom215/reelsync/internal/logging"
	"github.com/tomtom215/reelsync/internal/scheduler"
	"github.com/tomtom215/reelsync/internal/syncer"
)

// Router assembles the HTTP surface.
type Router struct {
	cfg     *config.Config
	handler *Handler
}

// NewRouter creates a router over the orchestrator and scheduler.
func NewRouter(cfg *config.Config, manager *syncer.Manager, sched *scheduler.Scheduler) *Router {
	return &Router{
		cfg:     cfg,
		handler: NewHandler(cfg, manager, sched),
	}
}

// Setup configures all routes and middleware.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(RequestLogger)
	r.Use(PrometheusMetrics)

	if len(router.cfg.Security.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: router.cfg.Security.CORSOrigins,
			AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", AdminPasswordHeader},
			MaxAge:         300,
		}))
	}

	if !router.cfg.Security.RateLimitDisabled {
		r.Use(httprate.LimitByIP(
			router.cfg.Security.RateLimitReqs,
			router.cfg.Security.RateLimitWindow,
		))
	} else {
		logging.Warn().Msg("API rate limiting disabled")
	}

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health/live", router.handler.HealthLive)
		r.Get("/health/ready", router.handler.HealthReady)

		r.Get("/sync/status", router.handler.SyncStatus)
		r.Get("/exports", router.handler.ListExports)
		r.Get("/schedule", router.handler.GetSchedule)
		r.Get("/config", router.handler.GetConfig)

		// Mutating endpoints sit behind the admin gate.
		r.Group(func(r chi.Router) {
			r.Use(AdminAuth(router.cfg.Security.AdminPassword))
			r.Post("/sync", router.handler.TriggerSync)
			r.Put("/schedule", router.handler.UpdateSchedule)
			r.Post("/test-connection", router.handler.TestConnection)
		})
	})

	return r
}
