// Reelsync - Trakt and Jellyfin to Letterboxd Watch History Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsync

/*
resolver.go - TMDB to Letterboxd film ID resolution

Letterboxd exposes an unauthenticated /tmdb/{id} endpoint that redirects
to the film page. The numeric film ID needed by the diary form is then
scraped from the page markup: primarily the data-film-id attribute,
falling back to a "filmId" key in embedded script payloads.

The page structure is an uncontracted external dependency; everything
that knows about it stays inside this file and session.go.
*/

package letterboxd

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/tomtom215/reelsync/internal/config"
	"github.com/tomtom215/reelsync/internal/logging"
	"github.com/tomtom215/reelsync/internal/metrics"
)

// FilmResolver resolves an external movie database ID to a Letterboxd
// film ID. An empty result with nil error means "not found".
type FilmResolver interface {
	Resolve(ctx context.Context, tmdbID string) (string, error)
}

// Ensure Resolver implements FilmResolver
var _ FilmResolver = (*Resolver)(nil)

// Resolver resolves film IDs by following the /tmdb/ redirect and
// scraping the film page. Every call re-issues the network request;
// wrap with CachedResolver to memoize results across calls.
type Resolver struct {
	baseURL    string
	httpClient *http.Client
}

var (
	filmSlugPattern = regexp.MustCompile(`/film/([^/]+)/`)
	filmIDPattern   = regexp.MustCompile(`"filmId"\s*:\s*"?(\d+)"?`)
)

// NewResolver creates a resolver against the configured Letterboxd base URL.
func NewResolver(cfg config.LetterboxdConfig) *Resolver {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Resolver{
		baseURL: strings.TrimSuffix(cfg.URL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Resolve follows the TMDB cross-reference redirect and extracts the
// numeric film ID from the final page.
//
// A non-success status or a page the ID cannot be extracted from yields
// ("", nil) with a warning, never an error; only transport failures the
// caller cannot route around are returned as errors.
func (r *Resolver) Resolve(ctx context.Context, tmdbID string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/tmdb/"+tmdbID, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create resolve request: %w", err)
	}
	req.Header.Set("Accept", "text/html")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		metrics.ResolverLookups.WithLabelValues("error").Inc()
		return "", fmt.Errorf("tmdb redirect request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		logging.Warn().Str("tmdb_id", tmdbID).Int("status", resp.StatusCode).Msg("TMDB redirect failed")
		metrics.ResolverLookups.WithLabelValues("not_found").Inc()
		return "", nil
	}

	// The redirect chain must land on a film page.
	finalURL := resp.Request.URL.String()
	if !filmSlugPattern.MatchString(finalURL) {
		logging.Warn().Str("tmdb_id", tmdbID).Str("url", finalURL).Msg("Could not parse film URL")
		metrics.ResolverLookups.WithLabelValues("not_found").Inc()
		return "", nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.ResolverLookups.WithLabelValues("error").Inc()
		return "", fmt.Errorf("failed to read film page: %w", err)
	}

	filmID := extractFilmID(body)
	if filmID == "" {
		logging.Warn().Str("tmdb_id", tmdbID).Msg("Could not extract film ID from page")
		metrics.ResolverLookups.WithLabelValues("not_found").Inc()
		return "", nil
	}

	logging.Debug().Str("tmdb_id", tmdbID).Str("film_id", filmID).Msg("Resolved Letterboxd film ID")
	metrics.ResolverLookups.WithLabelValues("found").Inc()
	return filmID, nil
}

// extractFilmID pulls the numeric film ID out of the page markup.
// Primary location: a data-film-id attribute. Fallback: a "filmId" key
// inside an embedded script payload.
func extractFilmID(body []byte) string {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		// Malformed page; the regex fallback still has a chance.
		if m := filmIDPattern.FindSubmatch(body); m != nil {
			return string(m[1])
		}
		return ""
	}

	var filmID string
	var scripts []string

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if filmID != "" {
			return
		}
		if n.Type == html.ElementNode {
			for _, attr := range n.Attr {
				if attr.Key == "data-film-id" && attr.Val != "" {
					filmID = attr.Val
					return
				}
			}
			if n.Data == "script" && n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
				scripts = append(scripts, n.FirstChild.Data)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	if filmID != "" {
		return filmID
	}

	for _, script := range scripts {
		if m := filmIDPattern.FindStringSubmatch(script); m != nil {
			return m[1]
		}
	}
	return ""
}
