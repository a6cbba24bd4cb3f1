// Reelsync - Trakt and Jellyfin to Letterboxd Watch History Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsync

// Package scheduler fires periodic incremental syncs from a cron
// expression. A failed run is logged and waits for the next tick; the
// scheduler never retries immediately.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/tomtom215/reelsync/internal/logging"
	"github.com/tomtom215/reelsync/internal/models"
)

// SyncFunc is the orchestrator entry point the scheduler drives.
type SyncFunc func(ctx context.Context, full bool) models.SyncResult

// Status is a point-in-time snapshot for the API surface.
type Status struct {
	Schedule string     `json:"schedule"`
	Running  bool       `json:"running"`
	NextRun  *time.Time `json:"next_run,omitempty"`
}

// Scheduler wraps a cron runner around the sync orchestrator. Safe for
// concurrent use.
type Scheduler struct {
	syncFn SyncFunc

	mu       sync.Mutex
	cron     *cron.Cron
	entryID  cron.EntryID
	schedule string
	started  bool
}

// New creates a scheduler with a standard 5-field cron schedule. The
// expression is validated eagerly so a bad one fails at startup, not
// at the first tick.
func New(schedule string, syncFn SyncFunc) (*Scheduler, error) {
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("invalid cron schedule %q: %w", schedule, err)
	}
	return &Scheduler{
		syncFn:   syncFn,
		cron:     cron.New(),
		schedule: schedule,
	}, nil
}

// Start registers the job and begins ticking. Calling Start twice is a
// no-op.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	id, err := s.cron.AddFunc(s.schedule, s.runOnce)
	if err != nil {
		return fmt.Errorf("failed to schedule sync job: %w", err)
	}
	s.entryID = id
	s.cron.Start()
	s.started = true

	logging.Info().Str("schedule", s.schedule).Msg("Scheduler started")
	return nil
}

// Stop halts the ticker and waits for an in-flight job, bounded by ctx.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.started = false

	stopCtx := s.cron.Stop()
	select {
	case <-stopCtx.Done():
		logging.Info().Msg("Scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("timed out waiting for scheduled job to finish: %w", ctx.Err())
	}
}

// UpdateSchedule swaps the cron expression. An invalid expression is
// rejected and the current schedule stays in effect.
func (s *Scheduler) UpdateSchedule(schedule string) error {
	if _, err := cron.ParseStandard(schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", schedule, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		s.cron.Remove(s.entryID)
		id, err := s.cron.AddFunc(schedule, s.runOnce)
		if err != nil {
			return fmt.Errorf("failed to reschedule sync job: %w", err)
		}
		s.entryID = id
	}
	s.schedule = schedule

	logging.Info().Str("schedule", schedule).Msg("Sync schedule updated")
	return nil
}

// NextRun returns the next fire time, or false when not started.
func (s *Scheduler) NextRun() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return time.Time{}, false
	}
	entry := s.cron.Entry(s.entryID)
	if !entry.Valid() {
		return time.Time{}, false
	}
	return entry.Next, true
}

// Status reports the current schedule and next fire time.
func (s *Scheduler) Status() Status {
	status := Status{Schedule: s.Schedule(), Running: s.Started()}
	if next, ok := s.NextRun(); ok {
		status.NextRun = &next
	}
	return status
}

// Schedule returns the active cron expression.
func (s *Scheduler) Schedule() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.schedule
}

// Started reports whether the ticker is running.
func (s *Scheduler) Started() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}

// runOnce is the cron job body. Overlap with a manual trigger is
// resolved by the orchestrator's single-flight guard, not here.
func (s *Scheduler) runOnce() {
	logging.Info().Msg("Scheduled sync triggered")

	result := s.syncFn(context.Background(), false)
	if !result.Success {
		logging.Error().Str("error", result.Error).Msg("Scheduled sync failed, waiting for next tick")
		return
	}
	logging.Info().Int("movies", result.MoviesSynced).Msg("Scheduled sync completed")
}
