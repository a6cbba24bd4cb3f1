// Reelsync - Trakt and Jellyfin to Letterboxd Watch History Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsync

/*
client.go - Jellyfin REST API Client

Implements the alternative watch-history source adapter against the
Jellyfin API. A single Items listing with Fields=ProviderIds,UserData
carries the full identifier set, so no per-movie enrichment requests
are needed.

API Reference: https://api.jellyfin.org/
*/

package jellyfin

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/reelsync/internal/config"
	"github.com/tomtom215/reelsync/internal/logging"
	"github.com/tomtom215/reelsync/internal/models"
)

// ClientInterface defines the interface for Jellyfin API operations.
type ClientInterface interface {
	GetWatchedMovies(ctx context.Context, since *time.Time) ([]models.Movie, error)
	TestConnection(ctx context.Context) error
}

// Ensure Client implements ClientInterface
var _ ClientInterface = (*Client)(nil)

// Client provides access to the Jellyfin REST API.
type Client struct {
	baseURL    string
	apiKey     string
	userID     string
	httpClient *http.Client
}

// itemsResponse is the Users/{id}/Items listing envelope.
type itemsResponse struct {
	Items            []item `json:"Items"`
	TotalRecordCount int    `json:"TotalRecordCount"`
}

type item struct {
	Name           string            `json:"Name"`
	ProductionYear int               `json:"ProductionYear"`
	ProviderIDs    map[string]string `json:"ProviderIds"`
	UserData       userData          `json:"UserData"`
}

type userData struct {
	Played         bool   `json:"Played"`
	LastPlayedDate string `json:"LastPlayedDate"`
}

// systemInfo is the subset of System/Info used by the connection test.
type systemInfo struct {
	ServerName string `json:"ServerName"`
	Version    string `json:"Version"`
}

// NewClient creates a new Jellyfin API client.
//
// Missing connection settings are a configuration error: the client fails
// to construct and sync calls against it fail fast.
func NewClient(cfg config.JellyfinConfig) (*Client, error) {
	if cfg.URL == "" || cfg.APIKey == "" || cfg.UserID == "" {
		return nil, fmt.Errorf("jellyfin client not configured: url, api key and user id are required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		baseURL: strings.TrimSuffix(cfg.URL, "/"),
		apiKey:  cfg.APIKey,
		userID:  cfg.UserID,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// GetWatchedMovies retrieves the user's played movies, normalized to the
// canonical Movie shape.
//
// Records whose UserData.Played flag is false are excluded entirely,
// independent of the since filter. Filtering by since happens after
// normalization; records with no resolvable watch timestamp are always
// kept. A non-success status on the listing call fails the whole fetch.
func (c *Client) GetWatchedMovies(ctx context.Context, since *time.Time) ([]models.Movie, error) {
	query := url.Values{}
	query.Set("Filters", "IsPlayed")
	query.Set("IncludeItemTypes", "Movie")
	query.Set("Recursive", "true")
	query.Set("Fields", "ProviderIds,UserData,ProductionYear,PremiereDate")
	query.Set("SortBy", "DatePlayed")
	query.Set("SortOrder", "Descending")
	query.Set("EnableUserData", "true")

	endpoint := fmt.Sprintf("/Users/%s/Items", c.userID)
	resp, err := c.doRequest(ctx, endpoint, query)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch watched movies: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("jellyfin items request failed with status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read items response: %w", err)
	}

	var listing itemsResponse
	if err := json.Unmarshal(body, &listing); err != nil {
		return nil, fmt.Errorf("failed to decode items response: %w", err)
	}

	movies := make([]models.Movie, 0, len(listing.Items))
	for _, it := range listing.Items {
		movie, ok := c.normalizeItem(it)
		if !ok {
			continue
		}
		if since != nil && movie.WatchedAt != nil && movie.WatchedAt.Before(*since) {
			continue
		}
		movies = append(movies, movie)
	}

	logging.Info().Int("count", len(movies)).Msg("Retrieved watched movies from Jellyfin")
	return movies, nil
}

// normalizeItem converts one Jellyfin item to the canonical Movie.
// Returns false for items not marked as played: the played flag is a hard
// inclusion gate, not a filter.
func (c *Client) normalizeItem(it item) (models.Movie, bool) {
	if !it.UserData.Played {
		logging.Debug().Str("title", it.Name).Msg("Skipping item not marked as played")
		return models.Movie{}, false
	}

	movie := models.Movie{
		Title:  it.Name,
		Year:   it.ProductionYear,
		TMDBID: it.ProviderIDs["Tmdb"],
		IMDBID: it.ProviderIDs["Imdb"],
	}
	if movie.Title == "" {
		movie.Title = "Unknown"
	}

	if it.UserData.LastPlayedDate != "" {
		if t, ok := models.ParseTimestamp(it.UserData.LastPlayedDate); ok {
			movie.WatchedAt = &t
		} else {
			logging.Warn().
				Str("title", movie.Title).
				Str("last_played", it.UserData.LastPlayedDate).
				Msg("Could not parse last played date, keeping record without date")
		}
	}

	return movie, true
}

// TestConnection verifies the Jellyfin API is reachable.
func (c *Client) TestConnection(ctx context.Context) error {
	resp, err := c.doRequest(ctx, "/System/Info", nil)
	if err != nil {
		return fmt.Errorf("jellyfin connection test failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("jellyfin connection test failed with status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read system info: %w", err)
	}

	var info systemInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return fmt.Errorf("failed to decode system info: %w", err)
	}

	logging.Info().Str("server", info.ServerName).Str("version", info.Version).Msg("Connected to Jellyfin")
	return nil
}

// doRequest performs an authenticated GET against the Jellyfin API.
func (c *Client) doRequest(ctx context.Context, endpoint string, query url.Values) (*http.Response, error) {
	u := c.baseURL + endpoint
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("X-Emby-Token", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", endpoint, err)
	}
	return resp, nil
}
