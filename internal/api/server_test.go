package api

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manualshelf/manualshelf-server/internal/auth"
	"github.com/manualshelf/manualshelf-server/internal/backup"
	"github.com/manualshelf/manualshelf-server/internal/http/response"
	"github.com/manualshelf/manualshelf-server/internal/media/images"
	"github.com/manualshelf/manualshelf-server/internal/media/mediatest"
	"github.com/manualshelf/manualshelf-server/internal/ratelimit"
	"github.com/manualshelf/manualshelf-server/internal/search"
	"github.com/manualshelf/manualshelf-server/internal/service"
	"github.com/manualshelf/manualshelf-server/internal/sse"
	"github.com/manualshelf/manualshelf-server/internal/store/blob"
	"github.com/manualshelf/manualshelf-server/internal/store/sqlite"
)

// testServer wraps the API server with the stores behind it.
type testServer struct {
	*Server
	api   humatest.TestAPI
	db    *sqlite.Store
	files *blob.Store
}

type testConfig struct {
	passphrase string
	readOnly   bool
	limiter    *ratelimit.KeyedRateLimiter
}

type testOption func(*testConfig)

func withAccount(passphrase string, readOnly bool) testOption {
	return func(c *testConfig) {
		c.passphrase = passphrase
		c.readOnly = readOnly
	}
}

func withLimiter(l *ratelimit.KeyedRateLimiter) testOption {
	return func(c *testConfig) { c.limiter = l }
}

// setupTestServer creates a server over a SQLite store in a temp dir, an
// in-memory blob store and an in-memory search index.
func setupTestServer(t *testing.T, options ...testOption) *testServer {
	t.Helper()

	var cfg testConfig
	for _, o := range options {
		o(&cfg)
	}

	dir := t.TempDir()
	logger := slog.New(slog.DiscardHandler)

	st, err := sqlite.Open(filepath.Join(dir, "shelf.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	blobs, err := blob.OpenInMemory(logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = blobs.Close() })

	index, err := search.NewMemoryIndex()
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })
	st.SetSearchIndexer(index)

	storage, err := images.NewStorage(filepath.Join(dir, "thumbnails"))
	require.NoError(t, err)
	thumbs := images.NewProcessor(storage, logger)

	key, err := auth.LoadOrGenerateKey(dir)
	require.NoError(t, err)
	tokens, err := auth.NewTokenService(key, time.Hour)
	require.NoError(t, err)
	account, err := auth.NewAccount(cfg.passphrase, cfg.readOnly, tokens)
	require.NoError(t, err)

	events := sse.NewManager(logger)
	accounts := service.NewAccountService(account, st)
	syncService := service.NewSyncService(st, blobs, accounts, events, service.SyncOptions{
		SettleDelay:  10 * time.Millisecond,
		ConfirmDelay: 10 * time.Millisecond,
	}, logger)
	t.Cleanup(syncService.Shutdown)
	st.SetEmitter(syncService)

	tags := service.NewTagService(st, logger)
	services := &Services{
		Manual:   service.NewManualService(st, blobs, thumbs, tags, service.ManualOptions{MaxUploadBytes: 10 << 20}, logger),
		Tag:      tags,
		Search:   service.NewSearchService(index, st, logger),
		Sync:     syncService,
		Account:  accounts,
		Exporter: backup.New(st, blobs, logger),
	}

	s := NewServer(st, blobs, services, events, cfg.limiter, Options{
		MaxUploadBytes: 10 << 20,
		DataPath:       dir,
	}, logger)

	return &testServer{
		Server: s,
		api:    humatest.Wrap(t, s.API()),
		db:     st,
		files:  blobs,
	}
}

// newTestLimiter allows burst requests per client and then refuses.
func newTestLimiter(t *testing.T, burst int) *ratelimit.KeyedRateLimiter {
	t.Helper()
	l := ratelimit.New(0.001, burst)
	t.Cleanup(l.Stop)
	return l
}

type uploadPart struct {
	name string
	data []byte
}

// postMultipart sends files and form values to path through the router.
func (ts *testServer) postMultipart(t *testing.T, path string, fields map[string][]string, parts []uploadPart, headers ...string) *httptest.ResponseRecorder {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for key, values := range fields {
		for _, v := range values {
			require.NoError(t, mw.WriteField(key, v))
		}
	}
	for _, p := range parts {
		fw, err := mw.CreateFormFile("file", p.name)
		require.NoError(t, err)
		_, err = fw.Write(p.data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	ts.Handler().ServeHTTP(rec, req)
	return rec
}

// createManual uploads a manual with a PDF and a JPEG.
func (ts *testServer) createManual(t *testing.T, title string, tags ...string) ManualResponse {
	t.Helper()
	return ts.createManualAuthed(t, "", title, tags...)
}

// createManualAuthed is createManual with a bearer token, when not empty.
func (ts *testServer) createManualAuthed(t *testing.T, token, title string, tags ...string) ManualResponse {
	t.Helper()

	var headers []string
	if token != "" {
		headers = []string{"Authorization", "Bearer " + token}
	}
	rec := ts.postMultipart(t, "/api/v1/manuals",
		map[string][]string{"title": {title}, "tags": tags},
		[]uploadPart{
			{name: "manual.pdf", data: mediatest.PDF(2)},
			{name: "label.jpg", data: mediatest.JPEG(40, 20)},
		},
		headers...,
	)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	return decode[ManualResponse](t, rec.Body.Bytes())
}

func decode[T any](t *testing.T, body []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(body, &v), string(body))
	return v
}

func requireErrorCode(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	require.Equal(t, status, rec.Code, rec.Body.String())
	body := decode[response.ErrorBody](t, rec.Body.Bytes())
	assert.Equal(t, code, body.Code)
}

func TestHealthCheck(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/health")
	require.Equal(t, http.StatusOK, resp.Code)

	health := decode[HealthResponse](t, resp.Body.Bytes())
	assert.Equal(t, statusHealthy, health.Components["database"].Status)
	assert.Equal(t, statusHealthy, health.Components["blobs"].Status)
	assert.Equal(t, statusHealthy, health.Components["search"].Status)
	assert.Equal(t, "no connected clients", health.Components["sse"].Message)
	assert.Contains(t, health.Components, "disk")
}

func TestHealthCheck_ClosedDatabase(t *testing.T) {
	ts := setupTestServer(t)
	require.NoError(t, ts.db.Close())

	resp := ts.api.Get("/health")
	require.Equal(t, http.StatusOK, resp.Code)

	health := decode[HealthResponse](t, resp.Body.Bytes())
	assert.Equal(t, statusUnhealthy, health.Status)
	assert.Equal(t, statusUnhealthy, health.Components["database"].Status)
}

func TestFormatSSEStatus(t *testing.T) {
	assert.Equal(t, "no connected clients", formatSSEStatus(0))
	assert.Equal(t, "1 connected client", formatSSEStatus(1))
	assert.Equal(t, "12 connected clients", formatSSEStatus(12))
}

func TestClientIP(t *testing.T) {
	assert.Equal(t, "192.0.2.1", clientIP("192.0.2.1:5555"))
	assert.Equal(t, "2001:db8::1", clientIP("[2001:db8::1]:80"))
	assert.Equal(t, "192.0.2.1", clientIP("192.0.2.1"))
}

func TestSyncStatusEndpoints(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/api/v1/sync/status")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "unknown", decode[map[string]any](t, resp.Body.Bytes())["state"])

	// Without a passphrase there is no account to sync with.
	resp = ts.api.Post("/api/v1/sync/check-account", map[string]any{})
	require.Equal(t, http.StatusOK, resp.Code)
	status := decode[map[string]any](t, resp.Body.Bytes())
	assert.Equal(t, "error", status["state"])
	assert.Equal(t, "no_account", status["account"])
	assert.Equal(t, "no sync account", status["message"])
}

func TestForceSync_FlushesPendingChanges(t *testing.T) {
	ts := setupTestServer(t, withAccount("correct horse", false))
	token := ts.login(t, "correct horse")
	ts.createManualAuthed(t, token, "Router")

	resp := ts.api.Post("/api/v1/sync/force", "Authorization: Bearer "+token, map[string]any{})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	state, err := ts.db.GetSyncState(context.Background())
	require.NoError(t, err)
	assert.False(t, state.Pending())

	assert.Eventually(t, func() bool {
		return ts.services.Sync.Status().State == "synced"
	}, time.Second, 5*time.Millisecond)
}
