// Reelsync - Trakt and Jellyfin to Letterboxd Watch History Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsync

package models

import (
	"strings"
	"time"
)

// timestampLayouts are tried in order when parsing timestamps from
// external services and the watermark file. Covers fractional seconds,
// explicit offsets, the Z suffix, and a bare-date fallback.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseTimestamp leniently parses an ISO-8601-ish timestamp and returns
// it normalized to UTC. The second return value is false when the input
// is empty or unparsable; parse failure is never an error condition here,
// callers decide whether the absence matters.
func ParseTimestamp(value string) (time.Time, bool) {
	s := strings.TrimSpace(value)
	if s == "" {
		return time.Time{}, false
	}

	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}

	return time.Time{}, false
}

// FormatTimestamp renders a timestamp in the canonical persisted form:
// UTC, second precision, literal Z suffix.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format("2006-01-02T15:04:05Z")
}
