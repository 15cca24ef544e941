package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
)

func (s *Server) registerExportRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "exportShelf",
		Method:      http.MethodGet,
		Path:        "/api/v1/export",
		Summary:     "Export shelf",
		Description: "Streams a zip archive of every file with a manifest.yaml of manuals, files, tags and rotations",
		Tags:        []string{"Export"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleExport)
}

// handleExport streams the archive. The status is sent before the first
// byte, so a failure part way through only ends the stream early.
func (s *Server) handleExport(_ context.Context, _ *struct{}) (*huma.StreamResponse, error) {
	name := fmt.Sprintf("manualshelf-%s.zip", time.Now().UTC().Format("20060102-150405"))

	return &huma.StreamResponse{
		Body: func(hctx huma.Context) {
			hctx.SetHeader("Content-Type", "application/zip")
			hctx.SetHeader("Content-Disposition", "attachment; filename=\""+name+"\"")
			hctx.SetHeader("Cache-Control", CacheNoStore)

			manifest, err := s.services.Exporter.Export(hctx.Context(), hctx.BodyWriter())
			if err != nil {
				s.logger.Error("export failed", "error", err)
				return
			}
			s.logger.Info("export streamed",
				"manuals", manifest.Counts.Manuals,
				"files", manifest.Counts.Files,
				"bytes", manifest.Counts.Bytes,
			)
		},
	}, nil
}
