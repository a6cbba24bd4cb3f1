// Reelsync - Trakt and Jellyfin to Letterboxd Watch History Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsync

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in
// order of priority. The first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/reelsync/config.yaml",
	"/etc/reelsync/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// Default returns a Config struct with all sensible default values.
// These defaults are applied first, then overridden by config file and env vars.
func Default() *Config {
	return &Config{
		Trakt: TraktConfig{
			URL:          "https://api.trakt.tv",
			ClientID:     "",
			ClientSecret: "",
			AccessToken:  "",
			RefreshToken: "",
			Timeout:      30 * time.Second,
		},
		Jellyfin: JellyfinConfig{
			URL:     "",
			APIKey:  "",
			UserID:  "",
			Timeout: 30 * time.Second,
		},
		Letterboxd: LetterboxdConfig{
			URL:          "https://letterboxd.com",
			Username:     "",
			Password:     "",
			AutoUpload:   false, // CSV artifacts only by default
			Timeout:      30 * time.Second,
			CacheEnabled: false, // Stock behavior re-resolves every film ID
			CachePath:    "/data/resolver-cache",
		},
		Sync: SyncConfig{
			Source:        "trakt",
			Schedule:      "0 2 * * *", // Daily at 02:00
			StartDate:     "",
			ExportPath:    "/data/exports",
			WatermarkFile: "/data/last_sync.txt",
		},
		Server: ServerConfig{
			Host:    "0.0.0.0",
			Port:    5000,
			Timeout: 30 * time.Second,
		},
		Security: SecurityConfig{
			AdminPassword:     "",
			RateLimitReqs:     100,
			RateLimitWindow:   time.Minute,
			RateLimitDisabled: false,
			CORSOrigins:       []string{"*"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Load loads configuration using Koanf v2 with layered sources:
//  1. Defaults: Built-in sensible defaults
//  2. Config File: Optional YAML config file (if exists)
//  3. Environment Variables: Override any setting
//
// The returned Config has passed Validate().
func Load() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: Load defaults from struct
	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: Load config file (optional)
	configPath := findConfigFile()
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: Load environment variables (highest priority)
	// TRAKT_CLIENT_ID -> trakt.client_id, SYNC_EXPORT_PATH -> sync.export_path
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// Post-process slice fields from comma-separated strings
	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches for a config file in the default paths.
// Returns the path to the first file found, or empty string if none found.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths defines which config paths are parsed as comma-separated slices.
var sliceConfigPaths = []string{
	"security.cors_origins",
}

// processSliceFields converts comma-separated string values to slices for
// known slice fields. Env vars come in as strings, but the config expects slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}

		// Already a slice (from YAML file or defaults)
		if _, ok := val.([]interface{}); ok {
			continue
		}
		if _, ok := val.([]string); ok {
			continue
		}

		strVal, ok := val.(string)
		if !ok || strVal == "" {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// configSections are the recognized top-level env var prefixes.
var configSections = []string{
	"trakt", "jellyfin", "letterboxd", "sync", "server", "security", "logging",
}

// envTransformFunc transforms environment variable names to koanf config paths.
//
// Examples:
//   - TRAKT_CLIENT_ID -> trakt.client_id
//   - LETTERBOXD_AUTO_UPLOAD -> letterboxd.auto_upload
//   - SYNC_EXPORT_PATH -> sync.export_path
//   - LOG_LEVEL -> logging.level (legacy alias)
//
// Variables that do not match a known section are dropped so unrelated
// environment noise never lands in the config tree.
func envTransformFunc(key string) string {
	key = strings.ToLower(key)

	// Legacy aliases kept for compatibility with the pre-Go deployment.
	switch key {
	case "log_level":
		return "logging.level"
	case "log_format":
		return "logging.format"
	case "admin_password":
		return "security.admin_password"
	}

	for _, section := range configSections {
		prefix := section + "_"
		if strings.HasPrefix(key, prefix) {
			return section + "." + strings.TrimPrefix(key, prefix)
		}
	}

	return ""
}
