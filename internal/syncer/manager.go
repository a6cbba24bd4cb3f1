// Reelsync - Trakt and Jellyfin to Letterboxd Watch History Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsync

/*
manager.go - sync pipeline orchestration

The manager owns one sync run end to end: window selection, source
fetch, ratings merge, CSV generation, optional diary upload, watermark
advance. Two trigger paths exist (scheduler and API) and may race; a
single-flight guard rejects the second caller instead of queueing it.
*/

package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tomtom215/reelsync/internal/config"
	"github.com/tomtom215/reelsync/internal/letterboxd"
	"github.com/tomtom215/reelsync/internal/logging"
	"github.com/tomtom215/reelsync/internal/metrics"
	"github.com/tomtom215/reelsync/internal/models"
)

// Source is the origin service the watch history is fetched from.
// Both the Trakt and Jellyfin clients satisfy it.
type Source interface {
	GetWatchedMovies(ctx context.Context, since *time.Time) ([]models.Movie, error)
	TestConnection(ctx context.Context) error
}

// RatingsSource is the optional bulk-ratings capability. Sources
// without one (Jellyfin) simply skip the ratings merge.
type RatingsSource interface {
	GetRatings(ctx context.Context) (map[string]float64, error)
}

// Uploader writes movies to the destination diary.
type Uploader interface {
	UploadMovies(ctx context.Context, movies []models.Movie) models.UploadResult
}

// Manager orchestrates sync runs. Safe for concurrent use; overlapping
// Sync calls are rejected, not serialized.
type Manager struct {
	cfg       *config.Config
	source    Source
	exporter  *letterboxd.CSVExporter
	uploader  Uploader
	watermark *WatermarkStore

	running atomic.Bool

	mu         sync.RWMutex
	lastResult *models.SyncResult
}

// NewManager wires a manager from its collaborators. uploader may be
// nil when auto-upload is disabled.
func NewManager(cfg *config.Config, source Source, exporter *letterboxd.CSVExporter, uploader Uploader) *Manager {
	return &Manager{
		cfg:       cfg,
		source:    source,
		exporter:  exporter,
		uploader:  uploader,
		watermark: NewWatermarkStore(cfg.Sync.WatermarkFile),
	}
}

// Sync runs one sync. With full set the whole history is fetched
// regardless of watermark; otherwise the window starts at the
// watermark, falling back to the configured start date, falling back
// to unbounded.
//
// On success, including the zero-record case, the watermark advances
// to "now". On failure it is left untouched. A second caller while a
// run is in flight gets an immediate failure result.
func (m *Manager) Sync(ctx context.Context, full bool) models.SyncResult {
	if !m.running.CompareAndSwap(false, true) {
		logging.Warn().Msg("Sync already running, rejecting trigger")
		metrics.SyncRuns.WithLabelValues("rejected").Inc()
		return models.SyncResult{
			Success:   false,
			Error:     "sync already running",
			Timestamp: time.Now().UTC(),
		}
	}
	defer m.running.Store(false)

	start := time.Now()
	defer func() {
		metrics.SyncDuration.Observe(time.Since(start).Seconds())
	}()

	since := m.syncWindow(full)
	if since != nil {
		logging.Info().Str("source", m.cfg.Sync.Source).Time("since", *since).Msg("Starting incremental sync")
	} else {
		logging.Info().Str("source", m.cfg.Sync.Source).Msg("Starting full sync")
	}

	movies, err := m.source.GetWatchedMovies(ctx, since)
	if err != nil {
		return m.fail(fmt.Sprintf("failed to fetch watched movies: %v", err))
	}

	if len(movies) == 0 {
		logging.Info().Msg("No new movies to sync")
		m.advanceWatermark()
		return m.succeed(models.SyncResult{
			Success:      true,
			MoviesSynced: 0,
			Timestamp:    time.Now().UTC(),
		})
	}

	m.mergeRatings(ctx, movies)

	csvPath, err := m.exporter.Generate(movies, "")
	if err != nil {
		return m.fail(fmt.Sprintf("failed to generate export: %v", err))
	}

	result := models.SyncResult{
		Success:      true,
		MoviesSynced: len(movies),
		CSVPath:      csvPath,
		Timestamp:    time.Now().UTC(),
	}

	if m.cfg.Letterboxd.AutoUpload && m.uploader != nil {
		upload := m.uploader.UploadMovies(ctx, movies)
		result.Upload = &upload
	}

	m.advanceWatermark()
	metrics.SyncMoviesSynced.Add(float64(len(movies)))

	logging.Info().Int("movies", len(movies)).Str("csv", csvPath).Msg("Sync completed")
	return m.succeed(result)
}

// syncWindow picks the lower bound for the source fetch.
func (m *Manager) syncWindow(full bool) *time.Time {
	if full {
		return nil
	}
	if ts, ok := m.watermark.Read(); ok {
		return &ts
	}
	if m.cfg.Sync.StartDate != "" {
		if ts, ok := models.ParseTimestamp(m.cfg.Sync.StartDate); ok {
			return &ts
		}
		logging.Warn().Str("start_date", m.cfg.Sync.StartDate).Msg("Ignoring unparseable start date")
	}
	return nil
}

// mergeRatings attaches the bulk-fetched ratings to the watched
// records in place, matched by the origin service's native movie ID.
// A ratings failure degrades the run to unrated records, it does not
// fail the sync.
func (m *Manager) mergeRatings(ctx context.Context, movies []models.Movie) {
	rs, ok := m.source.(RatingsSource)
	if !ok {
		return
	}

	ratings, err := rs.GetRatings(ctx)
	if err != nil {
		logging.Warn().Err(err).Msg("Failed to fetch ratings, continuing without them")
		return
	}

	matched := 0
	for i := range movies {
		if rating, ok := ratings[movies[i].TraktID]; ok {
			movies[i].Rating = rating
			matched++
		}
	}
	logging.Debug().Int("ratings", len(ratings)).Int("matched", matched).Msg("Merged ratings into watch history")
}

// advanceWatermark moves the watermark to "now", not to the latest
// watched timestamp seen. A write failure is logged but does not turn
// a completed sync into a failure.
func (m *Manager) advanceWatermark() {
	if err := m.watermark.Write(time.Now().UTC()); err != nil {
		logging.Error().Err(err).Msg("Failed to persist watermark")
	}
}

func (m *Manager) succeed(result models.SyncResult) models.SyncResult {
	metrics.SyncRuns.WithLabelValues("success").Inc()
	metrics.SyncLastSuccess.SetToCurrentTime()
	m.storeResult(result)
	return result
}

func (m *Manager) fail(msg string) models.SyncResult {
	logging.Error().Str("error", msg).Msg("Sync failed")
	metrics.SyncRuns.WithLabelValues("failure").Inc()
	result := models.SyncResult{
		Success:   false,
		Error:     msg,
		Timestamp: time.Now().UTC(),
	}
	m.storeResult(result)
	return result
}

func (m *Manager) storeResult(result models.SyncResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastResult = &result
}

// Running reports whether a sync is currently in flight.
func (m *Manager) Running() bool {
	return m.running.Load()
}

// LastResult returns the outcome of the most recent run, or nil before
// the first one.
func (m *Manager) LastResult() *models.SyncResult {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastResult
}

// Watermark exposes the persisted cutoff for status reporting.
func (m *Manager) Watermark() (time.Time, bool) {
	return m.watermark.Read()
}

// TestConnection checks the origin service with the configured
// credentials.
func (m *Manager) TestConnection(ctx context.Context) error {
	return m.source.TestConnection(ctx)
}

// LoginTester is implemented by uploaders whose credentials can be
// probed without writing anything.
type LoginTester interface {
	Login(ctx context.Context) error
}

// TestDestination checks the Letterboxd credentials by signing in.
// Only meaningful when auto-upload is configured.
func (m *Manager) TestDestination(ctx context.Context) error {
	if m.uploader == nil {
		return errors.New("auto-upload disabled, no destination credentials configured")
	}
	tester, ok := m.uploader.(LoginTester)
	if !ok {
		return errors.New("destination does not support connection tests")
	}
	return tester.Login(ctx)
}

// RecentExports lists previously generated artifacts for the API.
func (m *Manager) RecentExports(limit int) ([]models.ExportFile, error) {
	return m.exporter.RecentExports(limit)
}
