// Reelsync - Trakt and Jellyfin to Letterboxd Watch History Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsync

package syncer

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tomtom215/reelsync/internal/logging"
	"github.com/tomtom215/reelsync/internal/models"
)

// WatermarkStore persists the cutoff timestamp of the last successful
// sync as a single-line UTF-8 file. The file is shared across runs, so
// writes go through a temp file and an atomic rename.
type WatermarkStore struct {
	path string
}

// NewWatermarkStore creates a store backed by the given file path.
func NewWatermarkStore(path string) *WatermarkStore {
	return &WatermarkStore{path: path}
}

// Read returns the persisted watermark. A missing or malformed file
// means "no watermark": incremental syncs fall back to the configured
// start date or the full history. Read never returns an error; a
// corrupt watermark must not block syncing.
func (s *WatermarkStore) Read() (time.Time, bool) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			logging.Warn().Err(err).Str("path", s.path).Msg("Failed to read watermark file")
		}
		return time.Time{}, false
	}

	raw := strings.TrimSpace(string(data))
	ts, ok := models.ParseTimestamp(raw)
	if !ok {
		logging.Warn().Str("path", s.path).Str("value", raw).Msg("Ignoring malformed watermark")
		return time.Time{}, false
	}
	return ts, true
}

// Write persists the watermark atomically via temp file plus rename,
// in the canonical second-precision UTC format.
func (s *WatermarkStore) Write(ts time.Time) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create watermark directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create watermark temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.WriteString(models.FormatTimestamp(ts) + "\n"); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write watermark: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close watermark temp file: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to replace watermark file: %w", err)
	}
	return nil
}
