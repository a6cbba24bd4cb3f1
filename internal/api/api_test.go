// Reelsync - Trakt and Jellyfin to Letterboxd Watch History Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsync

package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/reelsync/internal/config"
	"github.com/tomtom215/reelsync/internal/letterboxd"
	"github.com/tomtom215/reelsync/internal/models"
	"github.com/tomtom215/reelsync/internal/scheduler"
	"github.com/tomtom215/reelsync/internal/syncer"
)

type stubSource struct {
	movies  []models.Movie
	connErr error
	block   chan struct{}
}

func (s *stubSource) GetWatchedMovies(context.Context, *time.Time) ([]models.Movie, error) {
	if s.block != nil {
		<-s.block
	}
	return s.movies, nil
}

func (s *stubSource) TestConnection(context.Context) error { return s.connErr }

type testServer struct {
	cfg     *config.Config
	manager *syncer.Manager
	handler http.Handler
}

func newTestServer(t *testing.T, source syncer.Source, mutate func(*config.Config)) *testServer {
	t.Helper()

	dir := t.TempDir()
	cfg := config.Default()
	cfg.Sync.Source = "trakt"
	cfg.Sync.ExportPath = filepath.Join(dir, "exports")
	cfg.Sync.WatermarkFile = filepath.Join(dir, "last_sync.txt")
	cfg.Security.RateLimitDisabled = true
	if mutate != nil {
		mutate(cfg)
	}

	exporter, err := letterboxd.NewCSVExporter(cfg.Sync.ExportPath)
	if err != nil {
		t.Fatalf("NewCSVExporter failed: %v", err)
	}
	manager := syncer.NewManager(cfg, source, exporter, nil)

	sched, err := scheduler.New(cfg.Sync.Schedule, manager.Sync)
	if err != nil {
		t.Fatalf("scheduler.New failed: %v", err)
	}

	return &testServer{
		cfg:     cfg,
		manager: manager,
		handler: NewRouter(cfg, manager, sched).Setup(),
	}
}

func (ts *testServer) do(t *testing.T, method, target, body string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

// waitIdle blocks until a triggered sync has completed, so background
// runs do not outlive the test's temp directory.
func waitIdle(t *testing.T, manager *syncer.Manager) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for manager.LastResult() == nil || manager.Running() {
		select {
		case <-deadline:
			t.Fatal("sync did not complete")
		default:
			time.Sleep(time.Millisecond)
		}
	}
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
	}
	return resp
}

func TestHealthEndpoints(t *testing.T) {
	ts := newTestServer(t, &stubSource{}, nil)

	for _, path := range []string{"/api/v1/health/live", "/api/v1/health/ready"} {
		rec := ts.do(t, http.MethodGet, path, "", nil)
		if rec.Code != http.StatusOK {
			t.Errorf("%s returned %d", path, rec.Code)
		}
		if resp := decodeResponse(t, rec); !resp.Success {
			t.Errorf("%s returned unsuccessful envelope", path)
		}
	}
}

func TestSyncStatusBeforeFirstRun(t *testing.T) {
	ts := newTestServer(t, &stubSource{}, nil)

	rec := ts.do(t, http.MethodGet, "/api/v1/sync/status", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status endpoint returned %d", rec.Code)
	}

	body := rec.Body.String()
	if !strings.Contains(body, `"running":false`) {
		t.Errorf("expected running=false, got %s", body)
	}
	if strings.Contains(body, `"watermark"`) {
		t.Errorf("no watermark expected before first sync, got %s", body)
	}
}

func TestTriggerSync(t *testing.T) {
	ts := newTestServer(t, &stubSource{}, nil)

	rec := ts.do(t, http.MethodPost, "/api/v1/sync", "", nil)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("trigger returned %d: %s", rec.Code, rec.Body.String())
	}

	// The run happens in the background.
	deadline := time.After(2 * time.Second)
	for ts.manager.LastResult() == nil {
		select {
		case <-deadline:
			t.Fatal("sync never completed")
		default:
			time.Sleep(5 * time.Millisecond)
		}
	}
	if result := ts.manager.LastResult(); !result.Success {
		t.Errorf("background sync failed: %s", result.Error)
	}
	waitIdle(t, ts.manager)
}

func TestTriggerSyncConflict(t *testing.T) {
	source := &stubSource{block: make(chan struct{})}
	ts := newTestServer(t, source, nil)

	first := ts.do(t, http.MethodPost, "/api/v1/sync", "", nil)
	if first.Code != http.StatusAccepted {
		t.Fatalf("first trigger returned %d", first.Code)
	}

	deadline := time.After(2 * time.Second)
	for !ts.manager.Running() {
		select {
		case <-deadline:
			t.Fatal("first sync never started")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	second := ts.do(t, http.MethodPost, "/api/v1/sync", "", nil)
	if second.Code != http.StatusConflict {
		t.Errorf("second trigger returned %d, want 409", second.Code)
	}

	close(source.block)
	waitIdle(t, ts.manager)
}

func TestAdminGate(t *testing.T) {
	ts := newTestServer(t, &stubSource{}, func(cfg *config.Config) {
		cfg.Security.AdminPassword = "letmein"
	})

	rec := ts.do(t, http.MethodPost, "/api/v1/sync", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("missing credential returned %d, want 401", rec.Code)
	}

	rec = ts.do(t, http.MethodPost, "/api/v1/sync", "", map[string]string{AdminPasswordHeader: "wrong"})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("bad credential returned %d, want 401", rec.Code)
	}

	rec = ts.do(t, http.MethodPost, "/api/v1/sync", "", map[string]string{AdminPasswordHeader: "letmein"})
	if rec.Code != http.StatusAccepted {
		t.Errorf("good credential returned %d, want 202", rec.Code)
	}

	// Read endpoints stay open.
	rec = ts.do(t, http.MethodGet, "/api/v1/sync/status", "", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("status endpoint returned %d, want 200", rec.Code)
	}
	waitIdle(t, ts.manager)
}

func TestPasswordMatchesBcrypt(t *testing.T) {
	// bcrypt hash of "letmein", cost 12.
	hash := "$2b$12$.Z77JWf5lS4YQbNqpdJluuyab6mOdjMyqcor/kMDJWtX4PbsCdhx6"

	if !passwordMatches(hash, "letmein") {
		t.Error("expected bcrypt hash to match")
	}
	if passwordMatches(hash, "wrong") {
		t.Error("expected bcrypt mismatch")
	}
	if !passwordMatches("plain", "plain") {
		t.Error("expected plaintext comparison to match")
	}
}

func TestUpdateSchedule(t *testing.T) {
	ts := newTestServer(t, &stubSource{}, nil)

	rec := ts.do(t, http.MethodPut, "/api/v1/schedule", `{"schedule":"*/30 * * * *"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("update returned %d: %s", rec.Code, rec.Body.String())
	}

	rec = ts.do(t, http.MethodGet, "/api/v1/schedule", "", nil)
	if !strings.Contains(rec.Body.String(), "*/30 * * * *") {
		t.Errorf("schedule not updated: %s", rec.Body.String())
	}
}

func TestUpdateScheduleInvalid(t *testing.T) {
	ts := newTestServer(t, &stubSource{}, nil)

	tests := []string{
		`{"schedule":"banana"}`,
		`{"schedule":""}`,
		`not json`,
	}
	for _, body := range tests {
		rec := ts.do(t, http.MethodPut, "/api/v1/schedule", body, nil)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %q returned %d, want 400", body, rec.Code)
		}
	}
}

func TestListExports(t *testing.T) {
	ts := newTestServer(t, &stubSource{}, nil)

	rec := ts.do(t, http.MethodGet, "/api/v1/exports", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("exports returned %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"count":0`) {
		t.Errorf("expected empty export list, got %s", rec.Body.String())
	}

	rec = ts.do(t, http.MethodGet, "/api/v1/exports?limit=abc", "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad limit returned %d, want 400", rec.Code)
	}
}

func TestGetConfigRedacted(t *testing.T) {
	ts := newTestServer(t, &stubSource{}, func(cfg *config.Config) {
		cfg.Trakt.ClientSecret = "super-secret-value"
		cfg.Trakt.AccessToken = "token-value"
		cfg.Letterboxd.Password = "hunter2"
	})

	rec := ts.do(t, http.MethodGet, "/api/v1/config", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("config returned %d", rec.Code)
	}

	body := rec.Body.String()
	for _, secret := range []string{"super-secret-value", "token-value", "hunter2"} {
		if strings.Contains(body, secret) {
			t.Errorf("config response leaks credential %q", secret)
		}
	}
}

func TestConnectionProbe(t *testing.T) {
	ts := newTestServer(t, &stubSource{}, nil)
	rec := ts.do(t, http.MethodPost, "/api/v1/test-connection", "", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("healthy probe returned %d", rec.Code)
	}

	ts = newTestServer(t, &stubSource{connErr: errors.New("bad token")}, nil)
	rec = ts.do(t, http.MethodPost, "/api/v1/test-connection", "", nil)
	if rec.Code != http.StatusBadGateway {
		t.Errorf("failing probe returned %d, want 502", rec.Code)
	}
	resp := decodeResponse(t, rec)
	if resp.Error == nil || resp.Error.Code != ErrCodeExternalServiceFail {
		t.Errorf("unexpected error payload: %+v", resp.Error)
	}

	// Destination probe without auto-upload configured.
	rec = ts.do(t, http.MethodPost, "/api/v1/test-connection?target=letterboxd", "", nil)
	if rec.Code != http.StatusBadGateway {
		t.Errorf("destination probe returned %d, want 502", rec.Code)
	}

	rec = ts.do(t, http.MethodPost, "/api/v1/test-connection?target=imdb", "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown target returned %d, want 400", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t, &stubSource{}, nil)

	rec := ts.do(t, http.MethodGet, "/metrics", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics returned %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "go_goroutines") {
		t.Error("expected Prometheus runtime metrics in output")
	}
}
