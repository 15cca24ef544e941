package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manualshelf/manualshelf-server/internal/domain"
	"github.com/manualshelf/manualshelf-server/internal/media/mediatest"
)

func TestCreateManual(t *testing.T) {
	ts := setupTestServer(t)

	m := ts.createManual(t, "  Geschirrspüler  ", "Küche", "küche", "Garantie")

	assert.NotEmpty(t, m.ID)
	assert.Equal(t, "Geschirrspüler", m.Title)
	require.Len(t, m.Files, 2)
	assert.Equal(t, "pdf", m.Files[0].FileType)
	assert.Equal(t, 2, m.Files[0].PageCount)
	assert.Equal(t, "jpeg", m.Files[1].FileType)
	assert.NotEmpty(t, m.Files[1].BlurHash)

	// Tag names collapse case-insensitively and every file carries the set.
	require.Len(t, m.Tags, 2)
	for _, f := range m.Files {
		assert.Len(t, f.Tags, 2)
	}
	assert.NotEqual(t, m.Tags[0].Color.Key, m.Tags[1].Color.Key)
}

func TestCreateManual_Validation(t *testing.T) {
	ts := setupTestServer(t)

	rec := ts.postMultipart(t, "/api/v1/manuals", map[string][]string{"title": {"No files"}}, nil)
	requireErrorCode(t, rec, http.StatusBadRequest, "VALIDATION")

	rec = ts.postMultipart(t, "/api/v1/manuals", map[string][]string{"title": {"   "}},
		[]uploadPart{{name: "a.pdf", data: mediatest.PDF(1)}})
	requireErrorCode(t, rec, http.StatusBadRequest, "VALIDATION")
}

func TestCreateManual_CorruptFile(t *testing.T) {
	ts := setupTestServer(t)

	rec := ts.postMultipart(t, "/api/v1/manuals", map[string][]string{"title": {"Broken"}},
		[]uploadPart{{name: "broken.pdf", data: []byte("%PDF-1.7 this is not a pdf")}})
	requireErrorCode(t, rec, http.StatusUnprocessableEntity, "FILE_READ")

	_, total, err := ts.db.ListManuals(context.Background(), domain.ListQuery{})
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestCreateManual_RateLimited(t *testing.T) {
	ts := setupTestServer(t)
	ts.limiter = newTestLimiter(t, 1)

	ts.createManual(t, "First")

	rec := ts.postMultipart(t, "/api/v1/manuals", map[string][]string{"title": {"Second"}},
		[]uploadPart{{name: "a.pdf", data: mediatest.PDF(1)}})
	requireErrorCode(t, rec, http.StatusTooManyRequests, "RATE_LIMITED")
}

func TestListManuals_SortAndFilter(t *testing.T) {
	ts := setupTestServer(t)

	ts.createManual(t, "Waschmaschine", "Bad")
	oven := ts.createManual(t, "Ölradiator", "Wohnzimmer")
	ts.createManual(t, "Backofen", "Küche")

	resp := ts.api.Get("/api/v1/manuals?sort=title_asc")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	list := decode[ListManualsResponse](t, resp.Body.Bytes())
	assert.Equal(t, 3, list.Total)
	assert.Equal(t, []string{"Backofen", "Ölradiator", "Waschmaschine"}, titles(list.Manuals))

	// Default order is newest first.
	resp = ts.api.Get("/api/v1/manuals")
	list = decode[ListManualsResponse](t, resp.Body.Bytes())
	assert.Equal(t, "Backofen", list.Manuals[0].Title)

	// Search ignores case and diacritics, on titles and file names.
	resp = ts.api.Get("/api/v1/manuals?q=OLRAD")
	list = decode[ListManualsResponse](t, resp.Body.Bytes())
	require.Len(t, list.Manuals, 1)
	assert.Equal(t, oven.ID, list.Manuals[0].ID)

	resp = ts.api.Get("/api/v1/manuals?q=label.jpg")
	list = decode[ListManualsResponse](t, resp.Body.Bytes())
	assert.Equal(t, 3, list.Total)

	// Tag filter.
	resp = ts.api.Get("/api/v1/manuals?tag=" + oven.Tags[0].ID)
	list = decode[ListManualsResponse](t, resp.Body.Bytes())
	require.Len(t, list.Manuals, 1)
	assert.Equal(t, "Ölradiator", list.Manuals[0].Title)

	// Paging keeps the total.
	resp = ts.api.Get("/api/v1/manuals?sort=title_desc&limit=1&offset=1")
	list = decode[ListManualsResponse](t, resp.Body.Bytes())
	assert.Equal(t, 3, list.Total)
	assert.Equal(t, []string{"Ölradiator"}, titles(list.Manuals))
}

func TestListManuals_InvalidSort(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/api/v1/manuals?sort=size")
	requireErrorCode(t, resp, http.StatusBadRequest, "VALIDATION")
}

func TestGetManual_NotFound(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/api/v1/manuals/man-missing")
	requireErrorCode(t, resp, http.StatusNotFound, "NOT_FOUND")
}

func TestRenameManual(t *testing.T) {
	ts := setupTestServer(t)
	m := ts.createManual(t, "Kaffemaschine")

	resp := ts.api.Patch("/api/v1/manuals/"+m.ID, map[string]any{"title": "Kaffeemaschine"})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, "Kaffeemaschine", decode[ManualResponse](t, resp.Body.Bytes()).Title)

	resp = ts.api.Patch("/api/v1/manuals/"+m.ID, map[string]any{"title": "  "})
	requireErrorCode(t, resp, http.StatusBadRequest, "VALIDATION")
}

func TestDeleteManual_KeepsOrphanTags(t *testing.T) {
	ts := setupTestServer(t)
	m := ts.createManual(t, "Toaster", "Küche")

	resp := ts.api.Delete("/api/v1/manuals/" + m.ID)
	require.Equal(t, http.StatusNoContent, resp.Code, resp.Body.String())

	resp = ts.api.Get("/api/v1/manuals/" + m.ID)
	requireErrorCode(t, resp, http.StatusNotFound, "NOT_FOUND")

	// Payloads are gone.
	for _, f := range m.Files {
		exists, err := ts.files.Exists(context.Background(), f.ID)
		require.NoError(t, err)
		assert.False(t, exists)
	}

	// The tag survives with no files.
	resp = ts.api.Get("/api/v1/tags")
	tags := decode[ListTagsResponse](t, resp.Body.Bytes()).Tags
	require.Len(t, tags, 1)
	assert.Equal(t, "Küche", tags[0].Name)
	assert.Zero(t, tags[0].FileCount)
}

func TestAddFile(t *testing.T) {
	ts := setupTestServer(t)
	m := ts.createManual(t, "Drucker")

	rec := ts.postMultipart(t, "/api/v1/manuals/"+m.ID+"/files",
		map[string][]string{"tags": {"Büro"}},
		[]uploadPart{{name: "rechnung.png", data: mediatest.PNG(16, 16)}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	f := decode[FileResponse](t, rec.Body.Bytes())
	assert.Equal(t, m.ID, f.ManualID)
	assert.Equal(t, "png", f.FileType)
	require.Len(t, f.Tags, 1)
	assert.Equal(t, "Büro", f.Tags[0].Name)

	rec = ts.postMultipart(t, "/api/v1/manuals/man-missing/files", nil,
		[]uploadPart{{name: "a.png", data: mediatest.PNG(4, 4)}})
	requireErrorCode(t, rec, http.StatusNotFound, "NOT_FOUND")
}

func titles(rows []ManualRow) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Title
	}
	return out
}
