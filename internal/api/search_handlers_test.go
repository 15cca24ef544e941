package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manualshelf/manualshelf-server/internal/search"
)

func TestSearch(t *testing.T) {
	ts := setupTestServer(t)
	washer := ts.createManual(t, "Waschmaschine Bosch", "Bad")
	ts.createManual(t, "Kühlschrank Liebherr", "Küche")

	resp := ts.api.Get("/api/v1/search?q=waschmaschine")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	res := decode[search.SearchResult](t, resp.Body.Bytes())
	require.Equal(t, uint64(1), res.Total)
	assert.Equal(t, washer.ID, res.Hits[0].ID)
	assert.Equal(t, "Waschmaschine Bosch", res.Hits[0].Title)

	// Folded: no umlaut needed.
	resp = ts.api.Get("/api/v1/search?q=kuhlschrank")
	res = decode[search.SearchResult](t, resp.Body.Bytes())
	assert.Equal(t, uint64(1), res.Total)

	// Tag filter with an empty query matches all manuals carrying it.
	resp = ts.api.Get("/api/v1/search?tag=" + washer.Tags[0].ID)
	res = decode[search.SearchResult](t, resp.Body.Bytes())
	require.Equal(t, uint64(1), res.Total)
	assert.Equal(t, washer.ID, res.Hits[0].ID)
}

func TestSearch_TracksRenames(t *testing.T) {
	ts := setupTestServer(t)
	m := ts.createManual(t, "Entfeuchter")

	resp := ts.api.Patch("/api/v1/manuals/"+m.ID, map[string]any{"title": "Luftreiniger"})
	require.Equal(t, http.StatusOK, resp.Code)

	resp = ts.api.Get("/api/v1/search?q=entfeuchter")
	assert.Equal(t, uint64(0), decode[search.SearchResult](t, resp.Body.Bytes()).Total)

	resp = ts.api.Get("/api/v1/search?q=luftreiniger")
	assert.Equal(t, uint64(1), decode[search.SearchResult](t, resp.Body.Bytes()).Total)
}

func TestSearch_LimitTooLarge(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/api/v1/search?q=x&limit=500")
	requireErrorCode(t, resp, http.StatusBadRequest, "VALIDATION")
}
