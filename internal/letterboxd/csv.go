// Reelsync - Trakt and Jellyfin to Letterboxd Watch History Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsync

package letterboxd

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/tomtom215/reelsync/internal/logging"
	"github.com/tomtom215/reelsync/internal/models"
)

// csvColumns is the fixed, ordered column set of the Letterboxd import format.
var csvColumns = []string{"Title", "Year", "imdbID", "tmdbID", "WatchedDate", "Rating"}

// exportPrefix is the filename prefix shared by generated artifacts; the
// export catalog lists only files matching it.
const exportPrefix = "letterboxd_import_"

// CSVExporter generates Letterboxd import CSV files and lists previously
// generated artifacts.
type CSVExporter struct {
	exportPath string
}

// NewCSVExporter creates an exporter writing into exportPath, creating the
// directory if needed.
func NewCSVExporter(exportPath string) (*CSVExporter, error) {
	if err := os.MkdirAll(exportPath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create export directory %s: %w", exportPath, err)
	}
	return &CSVExporter{exportPath: exportPath}, nil
}

// Generate writes the movies to a Letterboxd import CSV and returns the
// artifact path. When filename is empty a UTC-timestamped default is used,
// which guarantees no overwrite across runs at second granularity.
//
// Records lacking a title and both database identifiers are skipped
// silently. A failure mid-write is fatal for the call; no partial-file
// cleanup is attempted but success is never claimed.
func (e *CSVExporter) Generate(movies []models.Movie, filename string) (string, error) {
	if filename == "" {
		filename = exportPrefix + time.Now().UTC().Format("20060102_150405") + ".csv"
	}
	path := filepath.Join(e.exportPath, filename)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create export file: %w", err)
	}
	defer func() { _ = f.Close() }()

	w := csv.NewWriter(f)
	if err := w.Write(csvColumns); err != nil {
		return "", fmt.Errorf("failed to write header: %w", err)
	}

	written := 0
	for _, movie := range movies {
		if !movie.HasIdentifier() {
			logging.Warn().Str("trakt_id", movie.TraktID).Msg("Skipping movie without title or identifiers")
			continue
		}
		if err := w.Write(formatRow(movie)); err != nil {
			return "", fmt.Errorf("failed to write row: %w", err)
		}
		written++
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("failed to flush export file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close export file: %w", err)
	}

	logging.Info().Int("rows", written).Str("path", path).Msg("Generated Letterboxd import CSV")
	return path, nil
}

// formatRow renders one movie in the fixed column order.
func formatRow(movie models.Movie) []string {
	year := ""
	if movie.Year != 0 {
		year = strconv.Itoa(movie.Year)
	}
	return []string{
		movie.Title,
		year,
		movie.IMDBID,
		movie.TMDBID,
		movie.WatchedDate(),
		ConvertRating(movie.Rating),
	}
}

// RecentExports lists previously generated artifacts sorted by
// modification time, newest first, capped at limit.
func (e *CSVExporter) RecentExports(limit int) ([]models.ExportFile, error) {
	matches, err := filepath.Glob(filepath.Join(e.exportPath, exportPrefix+"*.csv"))
	if err != nil {
		return nil, fmt.Errorf("failed to list exports: %w", err)
	}

	exports := make([]models.ExportFile, 0, len(matches))
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil {
			// File vanished between glob and stat.
			continue
		}
		exports = append(exports, models.ExportFile{
			Filename: filepath.Base(path),
			Path:     path,
			Size:     info.Size(),
			Modified: info.ModTime().UTC(),
		})
	}

	sort.Slice(exports, func(i, j int) bool {
		return exports[i].Modified.After(exports[j].Modified)
	})

	if limit > 0 && len(exports) > limit {
		exports = exports[:limit]
	}
	return exports, nil
}
