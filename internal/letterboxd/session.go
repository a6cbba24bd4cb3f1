// Reelsync - Trakt and Jellyfin to Letterboxd Watch History Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsync

/*
session.go - authenticated Letterboxd session for direct diary writes

Letterboxd has no public write API. The session drives the HTML sign-in
form and the diary-entry form the way a browser would: cookie jar,
anti-forgery token, hidden form fields merged blindly into the submit.
Sign-in success has no authoritative signal either; it is judged by a
prioritized list of independent probes, any one of which is sufficient.
*/

package letterboxd

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/tomtom215/reelsync/internal/config"
	"github.com/tomtom215/reelsync/internal/logging"
	"github.com/tomtom215/reelsync/internal/metrics"
	"github.com/tomtom215/reelsync/internal/models"
)

// csrfFieldNames are the hidden-input names checked, in order, for the
// anti-forgery token on the sign-in page.
var csrfFieldNames = []string{"__csrf", "csrf_token", "csrfToken"}

// Session is an authenticated browser-style session against Letterboxd.
// It is not safe for concurrent use; the sync pipeline processes movies
// strictly one at a time.
type Session struct {
	baseURL    string
	username   string
	password   string
	resolver   FilmResolver
	httpClient *http.Client

	csrfToken string
	loggedIn  bool
}

// NewSession creates a session with a fresh cookie jar. The session
// starts unauthenticated; callers log in via Login or implicitly via
// UploadMovies.
func NewSession(cfg config.LetterboxdConfig, resolver FilmResolver) (*Session, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Session{
		baseURL:  strings.TrimSuffix(cfg.URL, "/"),
		username: cfg.Username,
		password: cfg.Password,
		resolver: resolver,
		httpClient: &http.Client{
			Jar:     jar,
			Timeout: timeout,
		},
	}, nil
}

// LoggedIn reports whether a previous Login succeeded.
func (s *Session) LoggedIn() bool {
	return s.loggedIn
}

// Login fetches the sign-in page, extracts the anti-forgery token and
// submits credentials. The token is looked for in the known hidden
// fields first, then a csrf-token meta tag, then the session cookies;
// absence at every location is a hard failure.
func (s *Session) Login(ctx context.Context) error {
	logging.Info().Str("username", s.username).Msg("Logging in to Letterboxd")

	signInURL := s.baseURL + "/sign-in/"

	page, resp, err := s.getPage(ctx, signInURL)
	if err != nil {
		return fmt.Errorf("failed to load sign-in page: %w", err)
	}

	hidden, csrf := parseSignInForm(page)
	if csrf == "" {
		csrf = csrfFromCookies(resp.Cookies(), s.httpClient.Jar.Cookies(resp.Request.URL))
	}
	if csrf == "" {
		return fmt.Errorf("could not locate anti-forgery token on sign-in page")
	}
	s.csrfToken = csrf

	// Hidden fields are merged blindly; the form may carry fields the
	// server requires that we do not know about.
	form := url.Values{}
	for name, value := range hidden {
		form.Set(name, value)
	}
	form.Set("__csrf", s.csrfToken)
	form.Set("username", s.username)
	form.Set("password", s.password)
	form.Set("authenticationCode", "") // 2FA not supported

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, signInURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	loginResp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("login request failed: %w", err)
	}
	defer func() { _ = loginResp.Body.Close() }()

	if loginResp.StatusCode != http.StatusOK {
		return fmt.Errorf("login request returned status %d", loginResp.StatusCode)
	}

	body, err := io.ReadAll(loginResp.Body)
	if err != nil {
		return fmt.Errorf("failed to read login response: %w", err)
	}

	if !s.looksSignedIn(body) {
		return fmt.Errorf("login failed, no signed-in indicator in response")
	}

	// Refresh the token; post-login pages often rotate it.
	if _, newCSRF := parseSignInForm(body); newCSRF != "" {
		s.csrfToken = newCSRF
	}

	s.loggedIn = true
	logging.Info().Msg("Successfully logged in to Letterboxd")
	return nil
}

// looksSignedIn applies the sign-in probes to a response body. The
// probes are independent and OR-combined; pages may satisfy only one
// of them at a time.
func (s *Session) looksSignedIn(body []byte) bool {
	lower := strings.ToLower(string(body))

	probes := []bool{
		strings.Contains(lower, "sign-out") || strings.Contains(lower, "/signout"),
		strings.Contains(lower, "class=\"avatar") || strings.Contains(lower, "data-person="),
		s.username != "" && strings.Contains(lower, strings.ToLower(s.username)),
	}
	for _, hit := range probes {
		if hit {
			return true
		}
	}
	return false
}

// MarkAsWatched submits one diary entry. The session must already be
// authenticated; this fails fast rather than logging in inline.
func (s *Session) MarkAsWatched(ctx context.Context, filmID string, watchedAt *time.Time, rating float64) error {
	if !s.loggedIn {
		return fmt.Errorf("not logged in to Letterboxd")
	}

	viewingDate := ""
	if watchedAt != nil {
		viewingDate = watchedAt.UTC().Format("2006-01-02")
	}

	form := url.Values{}
	form.Set("__csrf", s.csrfToken)
	form.Set("filmId", filmID)
	form.Set("viewingDateStr", viewingDate)
	form.Set("rating", DiaryRating(rating))
	form.Set("liked", "false")
	form.Set("review", "")
	form.Set("tags", "")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/s/save-diary-entry", strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create diary request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("diary request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("diary entry rejected with status %d", resp.StatusCode)
	}

	logging.Debug().Str("film_id", filmID).Str("viewing_date", viewingDate).Msg("Marked film as watched")
	return nil
}

// UploadMovies logs the movies to the Letterboxd diary one at a time,
// in order. Each movie ends as succeeded, failed or skipped; a movie
// without a TMDB ID is skipped, an unresolvable one is failed. When
// login itself fails the result carries a single top-level error and
// zero processed movies.
func (s *Session) UploadMovies(ctx context.Context, movies []models.Movie) models.UploadResult {
	result := models.UploadResult{}

	if !s.loggedIn {
		if err := s.Login(ctx); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Failed to login to Letterboxd: %v", err))
			return result
		}
	}

	logging.Info().Int("movies", len(movies)).Msg("Uploading movies to Letterboxd")

	for _, movie := range movies {
		if err := ctx.Err(); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Upload aborted: %v", err))
			break
		}

		title := movie.Title
		if title == "" {
			title = "Unknown"
		}

		if movie.TMDBID == "" {
			logging.Warn().Str("title", title).Msg("Skipping movie without TMDB ID")
			metrics.UploadOutcomes.WithLabelValues("skipped").Inc()
			result.Skipped++
			continue
		}

		filmID, err := s.resolver.Resolve(ctx, movie.TMDBID)
		if err != nil || filmID == "" {
			logging.Warn().Str("title", title).Str("tmdb_id", movie.TMDBID).Err(err).Msg("Could not find Letterboxd film ID")
			metrics.UploadOutcomes.WithLabelValues("failed").Inc()
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("No Letterboxd match for %s", title))
			continue
		}

		if err := s.MarkAsWatched(ctx, filmID, movie.WatchedAt, movie.Rating); err != nil {
			logging.Warn().Str("title", title).Err(err).Msg("Failed to upload movie")
			metrics.UploadOutcomes.WithLabelValues("failed").Inc()
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("Failed to upload %s: %v", title, err))
			continue
		}

		logging.Info().Str("title", title).Msg("Uploaded movie to Letterboxd")
		metrics.UploadOutcomes.WithLabelValues("succeeded").Inc()
		result.Succeeded++
	}

	logging.Info().
		Int("succeeded", result.Succeeded).
		Int("failed", result.Failed).
		Int("skipped", result.Skipped).
		Msg("Letterboxd upload complete")
	return result
}

// getPage fetches a page and returns its body alongside the response
// for cookie inspection.
func (s *Session) getPage(ctx context.Context, pageURL string) ([]byte, *http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Accept", "text/html")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, err
	}
	return body, resp, nil
}

// parseSignInForm collects hidden input fields and the anti-forgery
// token from a sign-in page. Token precedence: known hidden-field
// names, then the csrf-token meta tag.
func parseSignInForm(body []byte) (map[string]string, string) {
	hidden := make(map[string]string)
	metaCSRF := ""

	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return hidden, ""
	}

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "input":
				attrs := attrMap(n)
				if attrs["type"] == "hidden" && attrs["name"] != "" {
					hidden[attrs["name"]] = attrs["value"]
				}
			case "meta":
				attrs := attrMap(n)
				if attrs["name"] == "csrf-token" && attrs["content"] != "" {
					metaCSRF = attrs["content"]
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	for _, name := range csrfFieldNames {
		if value, ok := hidden[name]; ok && value != "" {
			return hidden, value
		}
	}
	return hidden, metaCSRF
}

// csrfFromCookies is the last-resort token location: a cookie whose
// name mentions csrf, from the response itself or the accumulated jar.
func csrfFromCookies(groups ...[]*http.Cookie) string {
	for _, cookies := range groups {
		for _, cookie := range cookies {
			if strings.Contains(strings.ToLower(cookie.Name), "csrf") && cookie.Value != "" {
				return cookie.Value
			}
		}
	}
	return ""
}

func attrMap(n *html.Node) map[string]string {
	attrs := make(map[string]string, len(n.Attr))
	for _, attr := range n.Attr {
		attrs[attr.Key] = attr.Val
	}
	return attrs
}
