// Reelsync - Trakt and Jellyfin to Letterboxd Watch History Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsync

// Package letterboxd implements the destination side of the pipeline.
//
// Letterboxd has no public write API, so the package offers two
// delivery strategies:
//
//   - CSVExporter generates files for the site's bulk-import feature
//     (columns Title, Year, imdbID, tmdbID, WatchedDate, Rating).
//   - Session drives the HTML sign-in and diary forms directly,
//     resolving TMDB IDs to internal film IDs via Resolver.
//
// Everything that knows about Letterboxd page structure lives in
// resolver.go and session.go; if an official API ever appears, those
// two files are the blast radius.
//
// Rating conversion is shared by both strategies: the origin 1-10
// scale maps linearly onto half-stars in [0.5, 5.0], with zero meaning
// "no rating".
package letterboxd
