// Reelsync - Trakt and Jellyfin to Letterboxd Watch History Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsync

package jellyfin

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/tomtom215/reelsync/internal/config"
)

func newTestClient(t *testing.T, serverURL string) *Client {
	t.Helper()
	client, err := NewClient(config.JellyfinConfig{
		URL:     serverURL,
		APIKey:  "test-api-key",
		UserID:  "user-1",
		Timeout: 5 * time.Second,
	})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	return client
}

func TestNewClientRequiresSettings(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.JellyfinConfig
	}{
		{"empty", config.JellyfinConfig{}},
		{"missing api key", config.JellyfinConfig{URL: "http://jf", UserID: "u"}},
		{"missing user id", config.JellyfinConfig{URL: "http://jf", APIKey: "k"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewClient(tt.cfg); err == nil {
				t.Error("expected configuration error, got nil")
			}
		})
	}
}

func TestGetWatchedMovies(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/Users/user-1/Items" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("X-Emby-Token"); got != "test-api-key" {
			t.Errorf("unexpected token header %q", got)
		}
		if got := r.URL.Query().Get("Fields"); got != "ProviderIds,UserData,ProductionYear,PremiereDate" {
			t.Errorf("unexpected Fields parameter %q", got)
		}

		_, _ = w.Write([]byte(`{
			"Items": [
				{
					"Name": "Inception",
					"ProductionYear": 2010,
					"ProviderIds": {"Tmdb": "27205", "Imdb": "tt1375666"},
					"UserData": {"Played": true, "LastPlayedDate": "2024-03-15T22:30:00.0000000Z"}
				},
				{
					"Name": "Never Watched",
					"ProductionYear": 2020,
					"ProviderIds": {"Tmdb": "1"},
					"UserData": {"Played": false, "LastPlayedDate": "2024-05-01T00:00:00Z"}
				},
				{
					"Name": "Bad Date",
					"ProductionYear": 1999,
					"ProviderIds": {},
					"UserData": {"Played": true, "LastPlayedDate": "whenever"}
				}
			],
			"TotalRecordCount": 3
		}`))
	}))
	defer server.Close()

	movies, err := newTestClient(t, server.URL).GetWatchedMovies(context.Background(), nil)
	if err != nil {
		t.Fatalf("GetWatchedMovies failed: %v", err)
	}

	// The unplayed item is excluded entirely even though it has a later
	// LastPlayedDate than anything else.
	if len(movies) != 2 {
		t.Fatalf("expected 2 movies, got %d", len(movies))
	}

	first := movies[0]
	if first.Title != "Inception" || first.TMDBID != "27205" || first.IMDBID != "tt1375666" {
		t.Errorf("unexpected first movie: %+v", first)
	}
	if first.WatchedAt == nil || !first.WatchedAt.Equal(time.Date(2024, 3, 15, 22, 30, 0, 0, time.UTC)) {
		t.Errorf("unexpected watched_at: %v", first.WatchedAt)
	}

	if movies[1].Title != "Bad Date" || movies[1].WatchedAt != nil {
		t.Errorf("record with unparsable date should be kept without a date: %+v", movies[1])
	}
}

func TestGetWatchedMoviesSinceFilter(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"Items": [
				{"Name": "Old", "UserData": {"Played": true, "LastPlayedDate": "2023-01-01T00:00:00Z"}},
				{"Name": "New", "UserData": {"Played": true, "LastPlayedDate": "2024-06-01T00:00:00Z"}},
				{"Name": "Dateless", "UserData": {"Played": true}}
			],
			"TotalRecordCount": 3
		}`))
	}))
	defer server.Close()

	since := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	movies, err := newTestClient(t, server.URL).GetWatchedMovies(context.Background(), &since)
	if err != nil {
		t.Fatalf("GetWatchedMovies failed: %v", err)
	}

	if len(movies) != 2 {
		t.Fatalf("expected 2 movies after filter, got %d", len(movies))
	}
	if movies[0].Title != "New" || movies[1].Title != "Dateless" {
		t.Errorf("unexpected filter result: %+v", movies)
	}
}

func TestGetWatchedMoviesListingFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	if _, err := newTestClient(t, server.URL).GetWatchedMovies(context.Background(), nil); err == nil {
		t.Error("expected error on non-success listing status, got nil")
	}
}

func TestTestConnection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/System/Info" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"ServerName": "test", "Version": "10.9.0"}`))
	}))
	defer server.Close()

	if err := newTestClient(t, server.URL).TestConnection(context.Background()); err != nil {
		t.Errorf("TestConnection failed: %v", err)
	}
}
