// Reelsync - Trakt and Jellyfin to Letterboxd Watch History Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsync

package services

import (
	"context"
	"fmt"
	"time"
)

// CronScheduler matches the scheduler's lifecycle methods.
type CronScheduler interface {
	Start() error
	Stop(ctx context.Context) error
}

// SchedulerService runs the cron scheduler under supervision.
type SchedulerService struct {
	scheduler   CronScheduler
	stopTimeout time.Duration
}

// NewSchedulerService wraps a scheduler. stopTimeout bounds the wait
// for an in-flight scheduled sync on shutdown.
func NewSchedulerService(scheduler CronScheduler, stopTimeout time.Duration) *SchedulerService {
	if stopTimeout <= 0 {
		stopTimeout = 30 * time.Second
	}
	return &SchedulerService{scheduler: scheduler, stopTimeout: stopTimeout}
}

// Serve implements suture.Service: start the ticker, park until the
// context ends, then stop with a bounded wait.
func (s *SchedulerService) Serve(ctx context.Context) error {
	if err := s.scheduler.Start(); err != nil {
		return fmt.Errorf("scheduler failed to start: %w", err)
	}

	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), s.stopTimeout)
	defer cancel()

	if err := s.scheduler.Stop(stopCtx); err != nil {
		return fmt.Errorf("scheduler shutdown failed: %w", err)
	}
	return ctx.Err()
}

// String identifies the service in supervisor logs.
func (s *SchedulerService) String() string {
	return "sync-scheduler"
}
