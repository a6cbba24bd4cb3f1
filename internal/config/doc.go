// Reelsync - Trakt and Jellyfin to Letterboxd Watch History Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsync

// Package config loads and validates application configuration via
// Koanf v2 with layered sources: built-in defaults, an optional YAML
// file, then environment variables.
//
// Validation is source-aware: Trakt credentials are only required when
// SYNC_SOURCE=trakt, Letterboxd credentials only when auto-upload is
// enabled. Error messages name the environment variable that fixes
// them.
package config
