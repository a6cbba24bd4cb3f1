// Reelsync - Trakt and Jellyfin to Letterboxd Watch History Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsync

package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/reelsync/internal/config"
	"github.com/tomtom215/reelsync/internal/logging"
	"github.com/tomtom215/reelsync/internal/models"
	"github.com/tomtom215/reelsync/internal/scheduler"
	"github.com/tomtom215/reelsync/internal/syncer"
)

// connectionTestTimeout bounds the origin-service probe triggered from
// the dashboard.
const connectionTestTimeout = 15 * time.Second

// Handler implements the dashboard endpoints on top of the sync
// orchestrator and scheduler public contracts.
type Handler struct {
	cfg       *config.Config
	manager   *syncer.Manager
	scheduler *scheduler.Scheduler
}

// NewHandler creates the endpoint handler.
func NewHandler(cfg *config.Config, manager *syncer.Manager, sched *scheduler.Scheduler) *Handler {
	return &Handler{cfg: cfg, manager: manager, scheduler: sched}
}

// syncStatus is the status payload.
type syncStatus struct {
	Running    bool               `json:"running"`
	Source     string             `json:"source"`
	Watermark  *time.Time         `json:"watermark,omitempty"`
	LastResult *models.SyncResult `json:"last_result,omitempty"`
	Schedule   scheduler.Status   `json:"schedule"`
}

// TriggerSync starts a sync in the background and returns immediately.
// A run already in flight yields 409 rather than queueing a second one.
func (h *Handler) TriggerSync(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	full := r.URL.Query().Get("full") == "true"

	if h.manager.Running() {
		rw.Conflict("sync already running")
		return
	}

	go func() {
		// Detached from the request; the run outlives the response.
		result := h.manager.Sync(context.Background(), full)
		if !result.Success {
			logging.Error().Str("error", result.Error).Msg("Manually triggered sync failed")
		}
	}()

	rw.Accepted(map[string]any{
		"message": "sync started",
		"full":    full,
	})
}

// SyncStatus reports the run state, watermark and last outcome.
func (h *Handler) SyncStatus(w http.ResponseWriter, r *http.Request) {
	status := syncStatus{
		Running:    h.manager.Running(),
		Source:     h.cfg.Sync.Source,
		LastResult: h.manager.LastResult(),
		Schedule:   h.scheduler.Status(),
	}
	if ts, ok := h.manager.Watermark(); ok {
		status.Watermark = &ts
	}

	NewResponseWriter(w, r).Success(status)
}

// ListExports returns previously generated artifacts, newest first.
func (h *Handler) ListExports(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			rw.BadRequest("limit must be a non-negative integer")
			return
		}
		limit = parsed
	}

	exports, err := h.manager.RecentExports(limit)
	if err != nil {
		rw.InternalError("failed to list exports")
		return
	}

	rw.Success(map[string]any{
		"exports": exports,
		"count":   len(exports),
	})
}

// GetSchedule reports the scheduler state.
func (h *Handler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(h.scheduler.Status())
}

// scheduleRequest is the schedule-update payload.
type scheduleRequest struct {
	Schedule string `json:"schedule"`
}

// UpdateSchedule swaps the cron expression at runtime. The change is
// not persisted; the configured expression applies again after a
// restart.
func (h *Handler) UpdateSchedule(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req scheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rw.BadRequest("invalid request body")
		return
	}
	if req.Schedule == "" {
		rw.BadRequest("schedule is required")
		return
	}

	if err := h.scheduler.UpdateSchedule(req.Schedule); err != nil {
		rw.Error(http.StatusBadRequest, ErrCodeValidationFailed, err.Error())
		return
	}

	rw.Success(h.scheduler.Status())
}

// configView is the redacted configuration exposed to the dashboard.
// Credentials and tokens never leave the process.
type configView struct {
	Source      string `json:"source"`
	Schedule    string `json:"schedule"`
	StartDate   string `json:"start_date,omitempty"`
	ExportPath  string `json:"export_path"`
	AutoUpload  bool   `json:"auto_upload"`
	TraktURL    string `json:"trakt_url"`
	JellyfinURL string `json:"jellyfin_url,omitempty"`
}

// GetConfig returns the redacted runtime configuration.
func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(configView{
		Source:      h.cfg.Sync.Source,
		Schedule:    h.scheduler.Schedule(),
		StartDate:   h.cfg.Sync.StartDate,
		ExportPath:  h.cfg.Sync.ExportPath,
		AutoUpload:  h.cfg.Letterboxd.AutoUpload,
		TraktURL:    h.cfg.Trakt.URL,
		JellyfinURL: h.cfg.Jellyfin.URL,
	})
}

// TestConnection probes an external collaborator with the configured
// credentials. The default target is the origin service;
// ?target=letterboxd signs in to the destination instead.
func (h *Handler) TestConnection(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	ctx, cancel := context.WithTimeout(r.Context(), connectionTestTimeout)
	defer cancel()

	target := r.URL.Query().Get("target")
	if target == "" || target == "source" {
		target = h.cfg.Sync.Source
	}

	var err error
	switch target {
	case h.cfg.Sync.Source:
		err = h.manager.TestConnection(ctx)
	case "letterboxd":
		err = h.manager.TestDestination(ctx)
	default:
		rw.BadRequest("unknown connection target")
		return
	}
	if err != nil {
		rw.Error(http.StatusBadGateway, ErrCodeExternalServiceFail, err.Error())
		return
	}

	rw.Success(map[string]any{
		"target":    target,
		"connected": true,
	})
}

// HealthLive reports process liveness.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(map[string]any{"status": "ok"})
}

// HealthReady reports readiness to serve sync triggers.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(map[string]any{
		"status":    "ok",
		"scheduler": h.scheduler.Started(),
	})
}
