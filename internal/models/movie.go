// Reelsync - Trakt and Jellyfin to Letterboxd Watch History Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsync

// Package models defines the canonical data shapes flowing through the
// sync pipeline.
package models

import "time"

// Movie is the canonical watched-movie record. It is created by a source
// adapter, mutated once by the rating merge, and then passed by value to
// the destination writers.
type Movie struct {
	// Title is the display title; source adapters default it to "Unknown"
	// when the origin service omits it.
	Title string `json:"title"`

	// Year is the release year, 0 when unknown.
	Year int `json:"year,omitempty"`

	// TraktID is the origin service's native identifier, used to merge
	// ratings into watched records. Empty for non-Trakt sources.
	TraktID string `json:"trakt_id,omitempty"`

	// IMDBID and TMDBID are cross-service movie database identifiers.
	IMDBID string `json:"imdb_id,omitempty"`
	TMDBID string `json:"tmdb_id,omitempty"`

	// WatchedAt is the normalized UTC watch timestamp, nil when the origin
	// provided none or it could not be parsed.
	WatchedAt *time.Time `json:"watched_at,omitempty"`

	// Rating is the origin-scale rating (Trakt 1-10), 0 when unrated.
	Rating float64 `json:"rating,omitempty"`
}

// HasIdentifier reports whether the record carries anything a destination
// can use. Records failing this check are dropped silently at the
// artifact-formatting stage.
func (m Movie) HasIdentifier() bool {
	return m.Title != "" || m.IMDBID != "" || m.TMDBID != ""
}

// WatchedDate returns the watch date formatted as YYYY-MM-DD, or an empty
// string when no watch timestamp is known.
func (m Movie) WatchedDate() string {
	if m.WatchedAt == nil {
		return ""
	}
	return m.WatchedAt.UTC().Format("2006-01-02")
}
