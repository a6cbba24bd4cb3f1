// Reelsync - Trakt and Jellyfin to Letterboxd Watch History Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsync

package letterboxd

import (
	"fmt"
	"math"
	"strconv"
)

// convertStars maps an origin-scale rating (Trakt 1-10) onto the
// Letterboxd star scale: linear rescale to [0.5,5.0], rounded to the
// nearest half star, clamped. Returns 0 for an absent rating.
func convertStars(rating float64) float64 {
	if rating == 0 || math.IsNaN(rating) || math.IsInf(rating, 0) {
		return 0
	}

	stars := rating / 10.0 * 5.0
	stars = math.Round(stars*2) / 2
	return math.Max(0.5, math.Min(5.0, stars))
}

// ConvertRating converts an origin-scale rating (Trakt 1-10) to the
// Letterboxd star scale, formatted with exactly one fractional digit
// (e.g. "3.5", never "3.50" or "3"). A zero or absent rating yields the
// empty string, the explicit "no rating" marker.
func ConvertRating(rating float64) string {
	stars := convertStars(rating)
	if stars == 0 {
		return ""
	}
	return fmt.Sprintf("%.1f", stars)
}

// DiaryRating converts an origin-scale rating to the integer half-star
// encoding the diary form expects: 0.5 stars -> "1", 1.0 -> "2", ...,
// 5.0 -> "10". An absent rating encodes as "0".
func DiaryRating(rating float64) string {
	stars := convertStars(rating)
	if stars == 0 {
		return "0"
	}
	return strconv.Itoa(int(stars * 2))
}
