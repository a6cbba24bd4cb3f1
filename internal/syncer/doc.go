// Reelsync - Trakt and Jellyfin to Letterboxd Watch History Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsync

// Package syncer orchestrates the fetch-export-upload pipeline and
// owns the persisted watermark that bounds incremental runs.
package syncer
