package api

import (
	"archive/zip"
	"bytes"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/manualshelf/manualshelf-server/internal/backup"
)

func TestExport(t *testing.T) {
	ts := setupTestServer(t)
	m := ts.createManual(t, "Wärmepumpe", "Keller")

	resp := ts.api.Get("/api/v1/export")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "application/zip", resp.Header().Get("Content-Type"))
	assert.Contains(t, resp.Header().Get("Content-Disposition"), "attachment")

	body := resp.Body.Bytes()
	zr, err := zip.NewReader(bytes.NewReader(body), int64(len(body)))
	require.NoError(t, err)

	var manifest backup.Manifest
	var payloads int
	for _, f := range zr.File {
		if f.Name != backup.ManifestName {
			payloads++
			continue
		}
		rc, err := f.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		rc.Close()
		require.NoError(t, err)
		require.NoError(t, yaml.Unmarshal(data, &manifest))
	}

	assert.Equal(t, 2, payloads)
	assert.Equal(t, backup.FormatVersion, manifest.Version)
	require.Len(t, manifest.Manuals, 1)
	assert.Equal(t, m.ID, manifest.Manuals[0].ID)
	assert.Equal(t, "Wärmepumpe", manifest.Manuals[0].Title)
	require.Len(t, manifest.Tags, 1)
	assert.Equal(t, "Keller", manifest.Tags[0].Name)
}
