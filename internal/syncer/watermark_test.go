// Reelsync - Trakt and Jellyfin to Letterboxd Watch History Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsync

package syncer

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestWatermarkRoundTrip(t *testing.T) {
	store := NewWatermarkStore(filepath.Join(t.TempDir(), "last_sync.txt"))

	if _, ok := store.Read(); ok {
		t.Error("expected no watermark before first write")
	}

	ts := time.Date(2024, 3, 15, 22, 30, 45, 123456789, time.UTC)
	if err := store.Write(ts); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	got, ok := store.Read()
	if !ok {
		t.Fatal("expected watermark after write")
	}
	// Persisted at second precision.
	want := time.Date(2024, 3, 15, 22, 30, 45, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("Read returned %v, want %v", got, want)
	}
}

func TestWatermarkFileFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "last_sync.txt")
	store := NewWatermarkStore(path)

	if err := store.Write(time.Date(2024, 3, 15, 22, 30, 45, 0, time.UTC)); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(string(data)) != "2024-03-15T22:30:45Z" {
		t.Errorf("unexpected file content: %q", string(data))
	}
}

func TestWatermarkMalformedContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "last_sync.txt")
	if err := os.WriteFile(path, []byte("not a timestamp\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, ok := NewWatermarkStore(path).Read(); ok {
		t.Error("malformed watermark must read as absent, not error")
	}
}

func TestWatermarkLenientRead(t *testing.T) {
	// Older writers used variant formats; reads stay lenient.
	path := filepath.Join(t.TempDir(), "last_sync.txt")
	if err := os.WriteFile(path, []byte("2024-03-15T22:30:45.500000000\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, ok := NewWatermarkStore(path).Read()
	if !ok {
		t.Fatal("expected lenient parse to succeed")
	}
	if got.UTC().Format("2006-01-02") != "2024-03-15" {
		t.Errorf("unexpected watermark: %v", got)
	}
}

func TestWatermarkCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deeper", "last_sync.txt")
	store := NewWatermarkStore(path)

	if err := store.Write(time.Now()); err != nil {
		t.Fatalf("Write should create parent directories: %v", err)
	}
	if _, ok := store.Read(); !ok {
		t.Error("expected watermark after write into created directory")
	}
}

func TestWatermarkNoTempFileLeftBehind(t *testing.T) {
	dir := t.TempDir()
	store := NewWatermarkStore(filepath.Join(dir, "last_sync.txt"))

	if err := store.Write(time.Now()); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "last_sync.txt" {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("expected only the watermark file, got %v", names)
	}
}
