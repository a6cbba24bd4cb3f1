// Reelsync - Trakt and Jellyfin to Letterboxd Watch History Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsync

package config

import "time"

// Config holds all application configuration loaded from environment
// variables and an optional YAML config file.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: Built-in sensible defaults for all optional settings
//  2. Config File: Optional YAML config file (config.yaml)
//  3. Environment Variables: Override any setting
//
// Config is immutable after Load() and safe for concurrent read access.
type Config struct {
	Trakt      TraktConfig      `koanf:"trakt"`
	Jellyfin   JellyfinConfig   `koanf:"jellyfin"`   // Optional: alternative watch-history source
	Letterboxd LetterboxdConfig `koanf:"letterboxd"` // Destination service
	Sync       SyncConfig       `koanf:"sync"`
	Server     ServerConfig     `koanf:"server"`
	Security   SecurityConfig   `koanf:"security"`
	Logging    LoggingConfig    `koanf:"logging"`
}

// TraktConfig holds Trakt API credentials and connection settings.
//
// Environment Variables:
//   - TRAKT_CLIENT_ID: OAuth application client ID (required when source=trakt)
//   - TRAKT_CLIENT_SECRET: OAuth application client secret (required when source=trakt)
//   - TRAKT_ACCESS_TOKEN: OAuth access token for the configured account
//   - TRAKT_REFRESH_TOKEN: OAuth refresh token (lifecycle managed externally)
type TraktConfig struct {
	URL          string        `koanf:"url"`
	ClientID     string        `koanf:"client_id"`
	ClientSecret string        `koanf:"client_secret"`
	AccessToken  string        `koanf:"access_token"`
	RefreshToken string        `koanf:"refresh_token"`
	Timeout      time.Duration `koanf:"timeout"`
}

// JellyfinConfig holds Jellyfin connection settings for the alternative
// watch-history source. Only validated when sync.source=jellyfin.
type JellyfinConfig struct {
	URL     string        `koanf:"url"`
	APIKey  string        `koanf:"api_key"`
	UserID  string        `koanf:"user_id"`
	Timeout time.Duration `koanf:"timeout"`
}

// LetterboxdConfig holds destination-service settings.
//
// AutoUpload enables the authenticated per-movie write path; when disabled
// only CSV artifacts are generated. The sign-in and diary endpoints are
// scraped HTML forms, so the base URL is configurable for testing.
type LetterboxdConfig struct {
	URL        string        `koanf:"url"`
	Username   string        `koanf:"username"`
	Password   string        `koanf:"password"`
	AutoUpload bool          `koanf:"auto_upload"`
	Timeout    time.Duration `koanf:"timeout"`

	// CacheEnabled turns on the persistent film-ID resolver cache.
	// Off by default: the stock behavior re-resolves on every call.
	CacheEnabled bool   `koanf:"cache_enabled"`
	CachePath    string `koanf:"cache_path"`
}

// SyncConfig controls the sync pipeline and scheduler.
type SyncConfig struct {
	// Source selects the watch-history provider: "trakt" or "jellyfin".
	Source string `koanf:"source"`

	// Schedule is a standard 5-field cron expression.
	Schedule string `koanf:"schedule"`

	// StartDate bounds the first sync when no watermark exists yet
	// (ISO-8601 date or timestamp; empty = sync entire history).
	StartDate string `koanf:"start_date"`

	// ExportPath is the directory for generated CSV artifacts.
	ExportPath string `koanf:"export_path"`

	// WatermarkFile is the single-line file holding the last-sync timestamp.
	WatermarkFile string `koanf:"watermark_file"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port"`
	Timeout time.Duration `koanf:"timeout"`
}

// SecurityConfig holds API security settings.
//
// AdminPassword may be a plaintext value or a bcrypt hash (values with the
// "$2" prefix are treated as bcrypt). An empty password disables the gate,
// which is only acceptable on trusted networks.
type SecurityConfig struct {
	AdminPassword     string        `koanf:"admin_password"`
	RateLimitReqs     int           `koanf:"rate_limit_requests"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	CORSOrigins       []string      `koanf:"cors_origins"`
}

// LoggingConfig holds log output configuration.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}
