// Reelsync - Trakt and Jellyfin to Letterboxd Watch History Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsync

package letterboxd

import (
	"context"
	"errors"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/tomtom215/reelsync/internal/logging"
	"github.com/tomtom215/reelsync/internal/metrics"
)

// CachedResolver wraps a FilmResolver with a persistent Badger-backed
// cache. TMDB-to-film-ID mappings are immutable on the remote side, so
// entries never expire. Negative results are not cached; a film absent
// today may be listed tomorrow.
type CachedResolver struct {
	inner FilmResolver
	db    *badger.DB
}

var _ FilmResolver = (*CachedResolver)(nil)

// NewCachedResolver opens (or creates) the cache database at path and
// wraps inner with it. The caller owns the returned resolver and must
// Close it to release the database lock.
func NewCachedResolver(inner FilmResolver, path string) (*CachedResolver, error) {
	opts := badger.DefaultOptions(path).
		WithLogger(nil).
		WithCompactL0OnClose(true)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open resolver cache at %s: %w", path, err)
	}

	logging.Info().Str("path", path).Msg("Opened film ID resolver cache")
	return &CachedResolver{inner: inner, db: db}, nil
}

// Resolve returns the cached film ID when present, otherwise delegates
// to the wrapped resolver and stores a positive result. Cache failures
// degrade to uncached lookups rather than failing the call.
func (c *CachedResolver) Resolve(ctx context.Context, tmdbID string) (string, error) {
	key := cacheKey(tmdbID)

	var cached string
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			cached = string(val)
			return nil
		})
	})
	switch {
	case err == nil && cached != "":
		metrics.ResolverLookups.WithLabelValues("cached").Inc()
		return cached, nil
	case err != nil && !errors.Is(err, badger.ErrKeyNotFound):
		logging.Warn().Err(err).Str("tmdb_id", tmdbID).Msg("Resolver cache read failed")
	}

	filmID, err := c.inner.Resolve(ctx, tmdbID)
	if err != nil || filmID == "" {
		return filmID, err
	}

	if err := c.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, []byte(filmID))
	}); err != nil {
		logging.Warn().Err(err).Str("tmdb_id", tmdbID).Msg("Resolver cache write failed")
	}
	return filmID, nil
}

// Close releases the cache database.
func (c *CachedResolver) Close() error {
	return c.db.Close()
}

func cacheKey(tmdbID string) []byte {
	return []byte("tmdb:" + tmdbID)
}
