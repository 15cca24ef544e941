package api

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"strconv"

	"github.com/danielgtaylor/huma/v2"

	domainerrors "github.com/manualshelf/manualshelf-server/internal/errors"
	"github.com/manualshelf/manualshelf-server/internal/id"
	"github.com/manualshelf/manualshelf-server/internal/store/blob"
)

func (s *Server) registerFileRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID:   "deleteFile",
		Method:        http.MethodDelete,
		Path:          "/api/v1/files/{id}",
		Summary:       "Delete file",
		Description:   "Removes a file from its manual. The last file of a manual cannot be removed",
		Tags:          []string{"Files"},
		DefaultStatus: http.StatusNoContent,
		Security:      []map[string][]string{{"bearer": {}}},
	}, s.handleDeleteFile)

	huma.Register(s.api, huma.Operation{
		OperationID: "setFileTags",
		Method:      http.MethodPut,
		Path:        "/api/v1/files/{id}/tags",
		Summary:     "Set file tags",
		Description: "Replaces a file's tags. Unknown names are created",
		Tags:        []string{"Files"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleSetFileTags)

	huma.Register(s.api, huma.Operation{
		OperationID: "rotateFile",
		Method:      http.MethodPost,
		Path:        "/api/v1/files/{id}/rotate",
		Summary:     "Rotate file",
		Description: "Turns a file a quarter turn left (-90) or right (90) and persists the new angle",
		Tags:        []string{"Files"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleRotateFile)

	huma.Register(s.api, huma.Operation{
		OperationID: "getFileContent",
		Method:      http.MethodGet,
		Path:        "/api/v1/files/{id}/content",
		Summary:     "Get file content",
		Description: "Returns the file with its rotation applied, or the stored bytes with raw=true",
		Tags:        []string{"Files"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetFileContent)

	huma.Register(s.api, huma.Operation{
		OperationID: "getFileThumbnail",
		Method:      http.MethodGet,
		Path:        "/api/v1/files/{id}/thumbnail",
		Summary:     "Get thumbnail",
		Description: "Returns a JPEG preview of an image file at its rotation",
		Tags:        []string{"Files"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetFileThumbnail)
}

// === DTOs ===

// FileIDInput identifies a file.
type FileIDInput struct {
	ID string `path:"id" doc:"File ID"`
}

// FileOutput wraps a file for Huma.
type FileOutput struct {
	Body FileResponse
}

// SetFileTagsRequest is the request body for replacing a file's tags.
type SetFileTagsRequest struct {
	Tags []string `json:"tags" validate:"max=50,dive,notblank,max=60" doc:"Tag names; an empty list clears the tags"`
}

// SetFileTagsInput wraps the tag request for Huma.
type SetFileTagsInput struct {
	ID   string `path:"id" doc:"File ID"`
	Body SetFileTagsRequest
}

// RotateFileRequest is the request body for rotating a file.
type RotateFileRequest struct {
	Delta int `json:"delta" validate:"delta" doc:"-90 to turn left, 90 to turn right"`
}

// RotateFileInput wraps the rotate request for Huma.
type RotateFileInput struct {
	ID   string `path:"id" doc:"File ID"`
	Body RotateFileRequest
}

// FileContentInput selects rotated or stored bytes.
type FileContentInput struct {
	ID  string `path:"id" doc:"File ID"`
	Raw bool   `query:"raw" doc:"Skip the persisted rotation"`
}

// === Handlers ===

func (s *Server) handleDeleteFile(ctx context.Context, input *FileIDInput) (*struct{}, error) {
	if err := s.services.Manual.RemoveFile(ctx, input.ID); err != nil {
		return nil, err
	}
	return nil, nil
}

func (s *Server) handleSetFileTags(ctx context.Context, input *SetFileTagsInput) (*FileOutput, error) {
	if err := s.validator.Validate(input.Body); err != nil {
		return nil, err
	}
	f, err := s.services.Manual.SetFileTags(ctx, input.ID, input.Body.Tags)
	if err != nil {
		return nil, err
	}
	return &FileOutput{Body: toFileResponse(f)}, nil
}

// handleRotateFile reports a failed write as an error. The angle is not
// rolled back, so the next read shows what the store holds.
func (s *Server) handleRotateFile(ctx context.Context, input *RotateFileInput) (*FileOutput, error) {
	if err := s.validator.Validate(input.Body); err != nil {
		return nil, err
	}
	f, err := s.services.Manual.RotateFile(ctx, input.ID, input.Body.Delta)
	if err != nil {
		return nil, err
	}
	return &FileOutput{Body: toFileResponse(f)}, nil
}

// Content and thumbnails are fetched by image tags and viewers, so IDs of
// the wrong shape are turned away before touching the stores.
func fileNotFound(fileID string) error {
	if id.Is(fileID, id.PrefixFile) {
		return nil
	}
	return domainerrors.NotFound("file not found")
}

func (s *Server) handleGetFileContent(ctx context.Context, input *FileContentInput) (*huma.StreamResponse, error) {
	if err := fileNotFound(input.ID); err != nil {
		return nil, err
	}
	content, err := s.services.Manual.Content(ctx, input.ID, input.Raw)
	if err != nil {
		return nil, err
	}

	disposition := mime.FormatMediaType("inline", map[string]string{"filename": content.File.FileName})
	return &huma.StreamResponse{
		Body: func(hctx huma.Context) {
			hctx.SetHeader("Content-Type", content.ContentType)
			hctx.SetHeader("Content-Length", strconv.Itoa(len(content.Data)))
			hctx.SetHeader("Content-Disposition", disposition)
			hctx.SetHeader("Cache-Control", CacheNoStore)
			if _, err := hctx.BodyWriter().Write(content.Data); err != nil {
				s.logger.Debug("file content write aborted", "file_id", input.ID, "error", err)
			}
		},
	}, nil
}

func (s *Server) handleGetFileThumbnail(ctx context.Context, input *FileIDInput) (*huma.StreamResponse, error) {
	if err := fileNotFound(input.ID); err != nil {
		return nil, err
	}
	thumb, err := s.services.Manual.Thumbnail(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	tag := fmt.Sprintf("%q", blob.Hash(thumb)[:16])
	return &huma.StreamResponse{
		Body: func(hctx huma.Context) {
			// The cache is keyed by rotation, so rotating changes the ETag.
			hctx.SetHeader("ETag", tag)
			hctx.SetHeader("Cache-Control", CacheRevalidate)
			if hctx.Header("If-None-Match") == tag {
				hctx.SetStatus(http.StatusNotModified)
				return
			}
			hctx.SetHeader("Content-Type", "image/jpeg")
			hctx.SetHeader("Content-Length", strconv.Itoa(len(thumb)))
			if _, err := hctx.BodyWriter().Write(thumb); err != nil {
				s.logger.Debug("thumbnail write aborted", "file_id", input.ID, "error", err)
			}
		},
	}, nil
}
