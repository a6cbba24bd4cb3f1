// Reelsync - Trakt and Jellyfin to Letterboxd Watch History Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsync

/*
client.go - Trakt.tv REST API Client

Implements the watch-history source adapter against the Trakt v2 API.
The history listing returns the full identifier set (trakt/imdb/tmdb) in
one paginated call, so no per-movie enrichment requests are needed.

API Reference: https://trakt.docs.apiary.io/
*/

package trakt

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/reelsync/internal/config"
	"github.com/tomtom215/reelsync/internal/logging"
	"github.com/tomtom215/reelsync/internal/models"
)

// historyPageLimit is the page size for the history listing. Trakt caps
// pages well below this in practice; the pagination loop follows the
// X-Pagination-Page-Count header either way.
const historyPageLimit = 1000

// ClientInterface defines the interface for Trakt API operations.
// Both Client and CircuitBreakerClient implement this interface.
type ClientInterface interface {
	GetWatchedMovies(ctx context.Context, since *time.Time) ([]models.Movie, error)
	GetRatings(ctx context.Context) (map[string]float64, error)
	TestConnection(ctx context.Context) error
}

// Ensure Client implements ClientInterface
var _ ClientInterface = (*Client)(nil)

// Client provides access to the Trakt v2 REST API.
type Client struct {
	baseURL      string
	clientID     string
	clientSecret string
	accessToken  string
	refreshToken string
	httpClient   *http.Client
}

// historyItem is one entry of the /sync/history/movies response.
type historyItem struct {
	WatchedAt string     `json:"watched_at"`
	Action    string     `json:"action"`
	Type      string     `json:"type"`
	Movie     *movieItem `json:"movie"`
}

// ratingItem is one entry of the /sync/ratings/movies response.
type ratingItem struct {
	Rating float64    `json:"rating"`
	Type   string     `json:"type"`
	Movie  *movieItem `json:"movie"`
}

type movieItem struct {
	Title string   `json:"title"`
	Year  int      `json:"year"`
	IDs   movieIDs `json:"ids"`
}

type movieIDs struct {
	Trakt int64  `json:"trakt"`
	Slug  string `json:"slug"`
	IMDB  string `json:"imdb"`
	TMDB  int64  `json:"tmdb"`
}

// NewClient creates a new Trakt API client.
//
// Missing client credentials are a configuration error: the client fails
// to construct and sync calls against it fail fast.
func NewClient(cfg config.TraktConfig) (*Client, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("trakt client not configured: client id and secret are required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		baseURL:      strings.TrimSuffix(cfg.URL, "/"),
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		accessToken:  cfg.AccessToken,
		refreshToken: cfg.RefreshToken,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// GetWatchedMovies retrieves the watched-movie history, normalized to the
// canonical Movie shape.
//
// Filtering by since happens after normalization: records whose normalized
// watch timestamp predates since are excluded, records with no resolvable
// timestamp are always kept. A timestamp that fails to parse is a
// per-record diagnostic, never a fetch failure; a non-success status on
// the listing call fails the whole fetch.
func (c *Client) GetWatchedMovies(ctx context.Context, since *time.Time) ([]models.Movie, error) {
	query := url.Values{}
	query.Set("limit", strconv.Itoa(historyPageLimit))
	if since != nil {
		query.Set("start_at", since.UTC().Format(time.RFC3339))
	}

	var movies []models.Movie

	for page := 1; ; page++ {
		query.Set("page", strconv.Itoa(page))

		items, pageCount, err := c.fetchHistoryPage(ctx, query)
		if err != nil {
			return nil, err
		}

		for _, item := range items {
			movie, ok := c.normalizeHistoryItem(item)
			if !ok {
				continue
			}
			if since != nil && movie.WatchedAt != nil && movie.WatchedAt.Before(*since) {
				continue
			}
			movies = append(movies, movie)
		}

		if page >= pageCount {
			break
		}
	}

	logging.Info().Int("count", len(movies)).Msg("Retrieved watched movies from Trakt")
	return movies, nil
}

// fetchHistoryPage requests one page of history and returns the items plus
// the total page count from the pagination headers.
func (c *Client) fetchHistoryPage(ctx context.Context, query url.Values) ([]historyItem, int, error) {
	resp, err := c.doRequest(ctx, "/sync/history/movies", query)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch watch history: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, 0, fmt.Errorf("trakt history request failed with status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read history response: %w", err)
	}

	var items []historyItem
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, 0, fmt.Errorf("failed to decode history response: %w", err)
	}

	pageCount := 1
	if v := resp.Header.Get("X-Pagination-Page-Count"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			pageCount = n
		}
	}

	return items, pageCount, nil
}

// normalizeHistoryItem converts one history entry to the canonical Movie.
// Returns false for entries without movie payloads.
func (c *Client) normalizeHistoryItem(item historyItem) (models.Movie, bool) {
	if item.Movie == nil {
		return models.Movie{}, false
	}

	movie := models.Movie{
		Title:  item.Movie.Title,
		Year:   item.Movie.Year,
		IMDBID: item.Movie.IDs.IMDB,
	}
	if movie.Title == "" {
		movie.Title = "Unknown"
	}
	if item.Movie.IDs.Trakt != 0 {
		movie.TraktID = strconv.FormatInt(item.Movie.IDs.Trakt, 10)
	}
	if item.Movie.IDs.TMDB != 0 {
		movie.TMDBID = strconv.FormatInt(item.Movie.IDs.TMDB, 10)
	}

	if item.WatchedAt != "" {
		if t, ok := models.ParseTimestamp(item.WatchedAt); ok {
			movie.WatchedAt = &t
		} else {
			logging.Warn().
				Str("title", movie.Title).
				Str("watched_at", item.WatchedAt).
				Msg("Could not parse watch timestamp, keeping record without date")
		}
	}

	return movie, true
}

// GetRatings retrieves the user's movie ratings as a bulk call, keyed by
// the native Trakt ID. Ratings are on the origin 1-10 scale.
func (c *Client) GetRatings(ctx context.Context) (map[string]float64, error) {
	resp, err := c.doRequest(ctx, "/sync/ratings/movies", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch ratings: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("trakt ratings request failed with status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read ratings response: %w", err)
	}

	var items []ratingItem
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("failed to decode ratings response: %w", err)
	}

	ratings := make(map[string]float64, len(items))
	for _, item := range items {
		if item.Movie == nil || item.Movie.IDs.Trakt == 0 || item.Rating == 0 {
			continue
		}
		ratings[strconv.FormatInt(item.Movie.IDs.Trakt, 10)] = item.Rating
	}

	logging.Info().Int("count", len(ratings)).Msg("Retrieved movie ratings from Trakt")
	return ratings, nil
}

// TestConnection verifies the API is reachable with the configured tokens.
func (c *Client) TestConnection(ctx context.Context) error {
	query := url.Values{}
	query.Set("limit", "1")

	resp, err := c.doRequest(ctx, "/sync/history/movies", query)
	if err != nil {
		return fmt.Errorf("trakt connection test failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("trakt connection test failed with status %d", resp.StatusCode)
	}
	return nil
}

// doRequest performs an authenticated GET against the Trakt API.
func (c *Client) doRequest(ctx context.Context, endpoint string, query url.Values) (*http.Response, error) {
	u := c.baseURL + endpoint
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("trakt-api-version", "2")
	req.Header.Set("trakt-api-key", c.clientID)
	if c.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", endpoint, err)
	}
	return resp, nil
}
