package api

import (
	"bytes"
	"context"
	"errors"
	"image/jpeg"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manualshelf/manualshelf-server/internal/domain"
	"github.com/manualshelf/manualshelf-server/internal/store"
)

func TestRotateFile(t *testing.T) {
	ts := setupTestServer(t)
	m := ts.createManual(t, "Heizung")
	pdfID := m.Files[0].ID

	steps := []struct {
		delta int
		want  int
	}{
		{-90, 270},
		{-90, 180},
		{90, 270},
		{90, 0},
		{90, 90},
	}
	for _, step := range steps {
		resp := ts.api.Post("/api/v1/files/"+pdfID+"/rotate", map[string]any{"delta": step.delta})
		require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
		assert.Equal(t, step.want, decode[FileResponse](t, resp.Body.Bytes()).Rotation)
	}

	// The angle is persisted on the PDF field only.
	f, err := ts.db.GetFile(context.Background(), pdfID)
	require.NoError(t, err)
	assert.Equal(t, domain.Rotation(90), f.PDFRotationDegrees)
	assert.Equal(t, domain.Rotation(0), f.ImageRotationDegrees)
}

func TestRotateFile_InvalidDelta(t *testing.T) {
	ts := setupTestServer(t)
	m := ts.createManual(t, "Heizung")

	resp := ts.api.Post("/api/v1/files/"+m.Files[1].ID+"/rotate", map[string]any{"delta": 45})
	requireErrorCode(t, resp, http.StatusBadRequest, "VALIDATION")

	resp = ts.api.Post("/api/v1/files/file-missing/rotate", map[string]any{"delta": 90})
	requireErrorCode(t, resp, http.StatusNotFound, "NOT_FOUND")
}

func TestRotateFile_PersistFailure(t *testing.T) {
	ts := setupTestServer(t)
	m := ts.createManual(t, "Heizung")
	require.NoError(t, ts.db.Close())

	resp := ts.api.Post("/api/v1/files/"+m.Files[1].ID+"/rotate", map[string]any{"delta": 90})
	require.GreaterOrEqual(t, resp.Code, http.StatusInternalServerError)
}

func TestFileContent(t *testing.T) {
	ts := setupTestServer(t)
	m := ts.createManual(t, "Kühlschrank")
	img := m.Files[1]

	resp := ts.api.Get("/api/v1/files/" + img.ID + "/content")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, "image/jpeg", resp.Header().Get("Content-Type"))
	assert.Contains(t, resp.Header().Get("Content-Disposition"), "label.jpg")
	raw := resp.Body.Bytes()

	resp = ts.api.Post("/api/v1/files/"+img.ID+"/rotate", map[string]any{"delta": 90})
	require.Equal(t, http.StatusOK, resp.Code)

	// Rotated content swaps the image's dimensions.
	resp = ts.api.Get("/api/v1/files/" + img.ID + "/content")
	require.Equal(t, http.StatusOK, resp.Code)
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(resp.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 20, cfg.Width)
	assert.Equal(t, 40, cfg.Height)

	// raw returns the stored bytes.
	resp = ts.api.Get("/api/v1/files/" + img.ID + "/content?raw=true")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, raw, resp.Body.Bytes())

	resp = ts.api.Get("/api/v1/files/" + m.Files[0].ID + "/content")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "application/pdf", resp.Header().Get("Content-Type"))
}

func TestFileContent_MissingPayload(t *testing.T) {
	ts := setupTestServer(t)
	m := ts.createManual(t, "Kühlschrank")
	require.NoError(t, ts.files.Delete(context.Background(), m.Files[0].ID))

	resp := ts.api.Get("/api/v1/files/" + m.Files[0].ID + "/content")
	requireErrorCode(t, resp, http.StatusUnprocessableEntity, "FILE_READ")
}

func TestFileContent_MalformedID(t *testing.T) {
	ts := setupTestServer(t)

	for _, path := range []string{"/api/v1/files/man-x/content", "/api/v1/files/file-short/thumbnail"} {
		resp := ts.api.Get(path)
		requireErrorCode(t, resp, http.StatusNotFound, "NOT_FOUND")
	}
}

func TestThumbnail(t *testing.T) {
	ts := setupTestServer(t)
	m := ts.createManual(t, "Mikrowelle")

	resp := ts.api.Get("/api/v1/files/" + m.Files[0].ID + "/thumbnail")
	requireErrorCode(t, resp, http.StatusUnsupportedMediaType, "UNDISPLAYABLE")

	path := "/api/v1/files/" + m.Files[1].ID + "/thumbnail"
	resp = ts.api.Get(path)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, "image/jpeg", resp.Header().Get("Content-Type"))
	etag := resp.Header().Get("ETag")
	require.NotEmpty(t, etag)

	resp = ts.api.Get(path, "If-None-Match: "+etag)
	assert.Equal(t, http.StatusNotModified, resp.Code)
	assert.Empty(t, resp.Body.Bytes())

	resp = ts.api.Post("/api/v1/files/"+m.Files[1].ID+"/rotate", map[string]any{"delta": -90})
	require.Equal(t, http.StatusOK, resp.Code)

	resp = ts.api.Get(path, "If-None-Match: "+etag)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.NotEqual(t, etag, resp.Header().Get("ETag"))
}

func TestDeleteFile(t *testing.T) {
	ts := setupTestServer(t)
	m := ts.createManual(t, "Staubsauger")

	resp := ts.api.Delete("/api/v1/files/" + m.Files[0].ID)
	require.Equal(t, http.StatusNoContent, resp.Code, resp.Body.String())

	// The last file stays.
	resp = ts.api.Delete("/api/v1/files/" + m.Files[1].ID)
	requireErrorCode(t, resp, http.StatusConflict, "CONFLICT")

	got, err := ts.db.GetManual(context.Background(), m.ID)
	require.NoError(t, err)
	require.Len(t, got.Files, 1)
	assert.Equal(t, m.Files[1].ID, got.Files[0].ID)

	_, err = ts.db.GetFile(context.Background(), m.Files[0].ID)
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestSetFileTags(t *testing.T) {
	ts := setupTestServer(t)
	m := ts.createManual(t, "Rasenmäher", "Garten")
	fileID := m.Files[0].ID

	resp := ts.api.Put("/api/v1/files/"+fileID+"/tags", map[string]any{"tags": []string{"Garage", "garten", "Akku"}})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	f := decode[FileResponse](t, resp.Body.Bytes())
	names := make([]string, len(f.Tags))
	for i, tag := range f.Tags {
		names[i] = tag.Name
	}
	assert.ElementsMatch(t, []string{"Garage", "Garten", "Akku"}, names)

	resp = ts.api.Put("/api/v1/files/"+fileID+"/tags", map[string]any{"tags": []string{" "}})
	requireErrorCode(t, resp, http.StatusBadRequest, "VALIDATION")

	resp = ts.api.Put("/api/v1/files/"+fileID+"/tags", map[string]any{"tags": []string{}})
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Empty(t, decode[FileResponse](t, resp.Body.Bytes()).Tags)
}
