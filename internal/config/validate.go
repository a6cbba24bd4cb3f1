// Reelsync - Trakt and Jellyfin to Letterboxd Watch History Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsync

package config

import (
	"fmt"
	"net/url"
	"strings"
)

// validSources are the accepted watch-history providers.
var validSources = map[string]bool{
	"trakt":    true,
	"jellyfin": true,
}

// validLogLevels are the accepted logging levels.
var validLogLevels = map[string]bool{
	"trace": true, "debug": true, "info": true,
	"warn": true, "warning": true, "error": true, "fatal": true,
}

// Validate checks that required configuration is present and valid.
func (c *Config) Validate() error {
	if err := c.validateSync(); err != nil {
		return err
	}

	if err := c.validateSource(); err != nil {
		return err
	}

	if err := c.validateLetterboxd(); err != nil {
		return err
	}

	if err := c.validateServer(); err != nil {
		return err
	}

	return c.validateLogging()
}

// validateSync validates the sync pipeline settings.
func (c *Config) validateSync() error {
	if !validSources[c.Sync.Source] {
		return fmt.Errorf("SYNC_SOURCE must be one of: trakt, jellyfin (got %q)", c.Sync.Source)
	}
	if c.Sync.ExportPath == "" {
		return fmt.Errorf("SYNC_EXPORT_PATH must not be empty")
	}
	if c.Sync.WatermarkFile == "" {
		return fmt.Errorf("SYNC_WATERMARK_FILE must not be empty")
	}
	if c.Sync.Schedule == "" {
		return fmt.Errorf("SYNC_SCHEDULE must not be empty")
	}
	return nil
}

// validateSource validates the credentials for the selected watch-history source.
// Missing credentials are a configuration error: the affected client fails to
// initialize and sync calls fail fast with a descriptive message.
func (c *Config) validateSource() error {
	switch c.Sync.Source {
	case "trakt":
		if c.Trakt.ClientID == "" {
			return fmt.Errorf("TRAKT_CLIENT_ID is required when SYNC_SOURCE=trakt")
		}
		if c.Trakt.ClientSecret == "" {
			return fmt.Errorf("TRAKT_CLIENT_SECRET is required when SYNC_SOURCE=trakt")
		}
		if err := validateHTTPURL(c.Trakt.URL, "TRAKT_URL"); err != nil {
			return err
		}
	case "jellyfin":
		if c.Jellyfin.URL == "" {
			return fmt.Errorf("JELLYFIN_URL is required when SYNC_SOURCE=jellyfin")
		}
		if err := validateHTTPURL(c.Jellyfin.URL, "JELLYFIN_URL"); err != nil {
			return err
		}
		if c.Jellyfin.APIKey == "" {
			return fmt.Errorf("JELLYFIN_API_KEY is required when SYNC_SOURCE=jellyfin")
		}
		if c.Jellyfin.UserID == "" {
			return fmt.Errorf("JELLYFIN_USER_ID is required when SYNC_SOURCE=jellyfin")
		}
	}
	return nil
}

// validateLetterboxd validates destination-service settings.
// Credentials are only required when the authenticated upload path is enabled.
func (c *Config) validateLetterboxd() error {
	if err := validateHTTPURL(c.Letterboxd.URL, "LETTERBOXD_URL"); err != nil {
		return err
	}

	if !c.Letterboxd.AutoUpload {
		return nil
	}

	if c.Letterboxd.Username == "" {
		return fmt.Errorf("LETTERBOXD_USERNAME is required when LETTERBOXD_AUTO_UPLOAD=true")
	}
	if c.Letterboxd.Password == "" {
		return fmt.Errorf("LETTERBOXD_PASSWORD is required when LETTERBOXD_AUTO_UPLOAD=true")
	}
	if c.Letterboxd.CacheEnabled && c.Letterboxd.CachePath == "" {
		return fmt.Errorf("LETTERBOXD_CACHE_PATH is required when LETTERBOXD_CACHE_ENABLED=true")
	}
	return nil
}

// validateServer validates the HTTP server settings.
func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("SERVER_PORT must be between 1 and 65535 (got %d)", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("SERVER_TIMEOUT must be positive")
	}
	return nil
}

// validateLogging validates the logging settings.
func (c *Config) validateLogging() error {
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("LOGGING_LEVEL %q is not a valid log level", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
		return nil
	default:
		return fmt.Errorf("LOGGING_FORMAT must be json or console (got %q)", c.Logging.Format)
	}
}

// validateHTTPURL checks that the value parses as an absolute http(s) URL.
func validateHTTPURL(value, name string) error {
	u, err := url.Parse(value)
	if err != nil {
		return fmt.Errorf("%s is not a valid URL: %w", name, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s must use http or https scheme (got %q)", name, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%s is missing a host", name)
	}
	return nil
}
