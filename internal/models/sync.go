// Reelsync - Trakt and Jellyfin to Letterboxd Watch History Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsync

package models

import "time"

// SyncResult is the outcome of one orchestration run. It is returned to
// the caller (scheduler or manual trigger) and never persisted.
type SyncResult struct {
	Success      bool      `json:"success"`
	MoviesSynced int       `json:"movies_synced"`
	CSVPath      string    `json:"csv_path,omitempty"`
	Error        string    `json:"error,omitempty"`
	Timestamp    time.Time `json:"timestamp"`

	// Upload carries the per-movie outcome of the authenticated write
	// path, nil when auto-upload is disabled.
	Upload *UploadResult `json:"upload,omitempty"`
}

// UploadResult aggregates per-movie outcomes of the authenticated write
// path for a single run. Errors is append-only and ordered.
type UploadResult struct {
	Succeeded int      `json:"succeeded"`
	Failed    int      `json:"failed"`
	Skipped   int      `json:"skipped"`
	Errors    []string `json:"errors,omitempty"`
}

// ExportFile describes one previously generated CSV artifact.
type ExportFile struct {
	Filename string    `json:"filename"`
	Path     string    `json:"path"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
}
