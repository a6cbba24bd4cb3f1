// Reelsync - Trakt and Jellyfin to Letterboxd Watch History Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsync

package config

import (
	"strings"
	"testing"
)

// validTraktConfig returns a config that passes validation with source=trakt.
func validTraktConfig() *Config {
	cfg := Default()
	cfg.Trakt.ClientID = "id"
	cfg.Trakt.ClientSecret = "secret"
	return cfg
}

func TestValidateDefaults(t *testing.T) {
	// Defaults alone must fail: trakt is the default source and has no credentials.
	if err := Default().Validate(); err == nil {
		t.Fatal("expected validation error for default config without credentials")
	}
}

func TestValidateTraktSource(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid trakt config",
			mutate: func(c *Config) {},
		},
		{
			name:    "missing client id",
			mutate:  func(c *Config) { c.Trakt.ClientID = "" },
			wantErr: "TRAKT_CLIENT_ID",
		},
		{
			name:    "missing client secret",
			mutate:  func(c *Config) { c.Trakt.ClientSecret = "" },
			wantErr: "TRAKT_CLIENT_SECRET",
		},
		{
			name:    "bad trakt url scheme",
			mutate:  func(c *Config) { c.Trakt.URL = "ftp://api.trakt.tv" },
			wantErr: "TRAKT_URL",
		},
		{
			name:    "unknown source",
			mutate:  func(c *Config) { c.Sync.Source = "plex" },
			wantErr: "SYNC_SOURCE",
		},
		{
			name:    "empty export path",
			mutate:  func(c *Config) { c.Sync.ExportPath = "" },
			wantErr: "SYNC_EXPORT_PATH",
		},
		{
			name:    "invalid port",
			mutate:  func(c *Config) { c.Server.Port = 0 },
			wantErr: "SERVER_PORT",
		},
		{
			name:    "invalid log level",
			mutate:  func(c *Config) { c.Logging.Level = "verbose" },
			wantErr: "LOGGING_LEVEL",
		},
		{
			name:    "invalid log format",
			mutate:  func(c *Config) { c.Logging.Format = "xml" },
			wantErr: "LOGGING_FORMAT",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validTraktConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q, got nil", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %q", tt.wantErr, err.Error())
			}
		})
	}
}

func TestValidateJellyfinSource(t *testing.T) {
	cfg := Default()
	cfg.Sync.Source = "jellyfin"

	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "JELLYFIN_URL") {
		t.Fatalf("expected JELLYFIN_URL error, got %v", err)
	}

	cfg.Jellyfin.URL = "http://localhost:8096"
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "JELLYFIN_API_KEY") {
		t.Fatalf("expected JELLYFIN_API_KEY error, got %v", err)
	}

	cfg.Jellyfin.APIKey = "key"
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "JELLYFIN_USER_ID") {
		t.Fatalf("expected JELLYFIN_USER_ID error, got %v", err)
	}

	cfg.Jellyfin.UserID = "user"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error for complete jellyfin config: %v", err)
	}
}

func TestValidateLetterboxdAutoUpload(t *testing.T) {
	cfg := validTraktConfig()
	cfg.Letterboxd.AutoUpload = true

	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "LETTERBOXD_USERNAME") {
		t.Fatalf("expected LETTERBOXD_USERNAME error, got %v", err)
	}

	cfg.Letterboxd.Username = "cinephile"
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "LETTERBOXD_PASSWORD") {
		t.Fatalf("expected LETTERBOXD_PASSWORD error, got %v", err)
	}

	cfg.Letterboxd.Password = "hunter2"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cfg.Letterboxd.CacheEnabled = true
	cfg.Letterboxd.CachePath = ""
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "LETTERBOXD_CACHE_PATH") {
		t.Fatalf("expected LETTERBOXD_CACHE_PATH error, got %v", err)
	}
}

func TestEnvTransformFunc(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"TRAKT_CLIENT_ID", "trakt.client_id"},
		{"TRAKT_ACCESS_TOKEN", "trakt.access_token"},
		{"JELLYFIN_API_KEY", "jellyfin.api_key"},
		{"LETTERBOXD_AUTO_UPLOAD", "letterboxd.auto_upload"},
		{"SYNC_EXPORT_PATH", "sync.export_path"},
		{"SYNC_START_DATE", "sync.start_date"},
		{"SERVER_PORT", "server.port"},
		{"SECURITY_ADMIN_PASSWORD", "security.admin_password"},
		{"LOGGING_LEVEL", "logging.level"},
		{"LOG_LEVEL", "logging.level"},
		{"ADMIN_PASSWORD", "security.admin_password"},
		{"PATH", ""},
		{"HOME", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := envTransformFunc(tt.input); got != tt.expected {
				t.Errorf("envTransformFunc(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestDefaultConfigValues(t *testing.T) {
	cfg := Default()

	if cfg.Trakt.URL != "https://api.trakt.tv" {
		t.Errorf("unexpected default Trakt URL: %s", cfg.Trakt.URL)
	}
	if cfg.Letterboxd.URL != "https://letterboxd.com" {
		t.Errorf("unexpected default Letterboxd URL: %s", cfg.Letterboxd.URL)
	}
	if cfg.Letterboxd.AutoUpload {
		t.Error("auto upload should be disabled by default")
	}
	if cfg.Letterboxd.CacheEnabled {
		t.Error("resolver cache should be disabled by default")
	}
	if cfg.Sync.Schedule != "0 2 * * *" {
		t.Errorf("unexpected default schedule: %s", cfg.Sync.Schedule)
	}
	if cfg.Server.Port != 5000 {
		t.Errorf("unexpected default port: %d", cfg.Server.Port)
	}
}
