package api

import (
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"

	"github.com/manualshelf/manualshelf-server/internal/domain"
	domainerrors "github.com/manualshelf/manualshelf-server/internal/errors"
	"github.com/manualshelf/manualshelf-server/internal/http/response"
	"github.com/manualshelf/manualshelf-server/internal/service"
)

func (s *Server) registerManualRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listManuals",
		Method:      http.MethodGet,
		Path:        "/api/v1/manuals",
		Summary:     "List manuals",
		Description: "Returns manuals filtered by search text and tag, in the requested order",
		Tags:        []string{"Manuals"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListManuals)

	huma.Register(s.api, huma.Operation{
		OperationID: "getManual",
		Method:      http.MethodGet,
		Path:        "/api/v1/manuals/{id}",
		Summary:     "Get manual",
		Description: "Returns a manual with its files and tags",
		Tags:        []string{"Manuals"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetManual)

	huma.Register(s.api, huma.Operation{
		OperationID: "renameManual",
		Method:      http.MethodPatch,
		Path:        "/api/v1/manuals/{id}",
		Summary:     "Rename manual",
		Description: "Changes a manual's title",
		Tags:        []string{"Manuals"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleRenameManual)

	huma.Register(s.api, huma.Operation{
		OperationID:   "deleteManual",
		Method:        http.MethodDelete,
		Path:          "/api/v1/manuals/{id}",
		Summary:       "Delete manual",
		Description:   "Deletes a manual and its files. Tags are kept unless auto-prune is enabled",
		Tags:          []string{"Manuals"},
		DefaultStatus: http.StatusNoContent,
		Security:      []map[string][]string{{"bearer": {}}},
	}, s.handleDeleteManual)
}

// === DTOs ===

// ListManualsInput contains parameters for listing manuals.
type ListManualsInput struct {
	Sort   string `query:"sort" enum:"title_asc,title_desc,date_desc,date_asc" doc:"Sort order (default date_desc)"`
	Query  string `query:"q" maxLength:"200" doc:"Case- and diacritic-insensitive match on title or file names"`
	TagID  string `query:"tag" doc:"Only manuals with a file carrying this tag"`
	Limit  int    `query:"limit" minimum:"0" maximum:"500" doc:"Page size; 0 returns every match"`
	Offset int    `query:"offset" minimum:"0" doc:"Rows to skip"`
}

// ListManualsResponse is one page of manuals.
type ListManualsResponse struct {
	Manuals []ManualRow `json:"manuals" doc:"Manuals in the requested order"`
	Total   int         `json:"total" doc:"Matches before paging"`
}

// ListManualsOutput wraps the list response for Huma.
type ListManualsOutput struct {
	Body ListManualsResponse
}

// ManualIDInput identifies a manual.
type ManualIDInput struct {
	ID string `path:"id" doc:"Manual ID"`
}

// ManualOutput wraps a manual for Huma.
type ManualOutput struct {
	Body ManualResponse
}

// RenameManualRequest is the request body for renaming a manual.
type RenameManualRequest struct {
	Title string `json:"title" validate:"required,notblank,max=300" doc:"New title"`
}

// RenameManualInput wraps the rename request for Huma.
type RenameManualInput struct {
	ID   string `path:"id" doc:"Manual ID"`
	Body RenameManualRequest
}

// === Handlers ===

func (s *Server) handleListManuals(ctx context.Context, input *ListManualsInput) (*ListManualsOutput, error) {
	manuals, total, err := s.services.Manual.List(ctx, domain.ListQuery{
		Sort:   domain.SortOption(input.Sort),
		Query:  input.Query,
		TagID:  input.TagID,
		Limit:  input.Limit,
		Offset: input.Offset,
	})
	if err != nil {
		return nil, err
	}

	rows := make([]ManualRow, len(manuals))
	for i, m := range manuals {
		rows[i] = toManualRow(m)
	}
	return &ListManualsOutput{Body: ListManualsResponse{Manuals: rows, Total: total}}, nil
}

func (s *Server) handleGetManual(ctx context.Context, input *ManualIDInput) (*ManualOutput, error) {
	m, err := s.services.Manual.Get(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &ManualOutput{Body: toManualResponse(m)}, nil
}

func (s *Server) handleRenameManual(ctx context.Context, input *RenameManualInput) (*ManualOutput, error) {
	if err := s.validator.Validate(input.Body); err != nil {
		return nil, err
	}
	m, err := s.services.Manual.Rename(ctx, input.ID, input.Body.Title)
	if err != nil {
		return nil, err
	}
	return &ManualOutput{Body: toManualResponse(m)}, nil
}

func (s *Server) handleDeleteManual(ctx context.Context, input *ManualIDInput) (*struct{}, error) {
	if err := s.services.Manual.Delete(ctx, input.ID); err != nil {
		return nil, err
	}
	return nil, nil
}

// handleCreateManual creates a manual from a multipart form.
// Fields: "title", one or more "file" parts and optional repeated "tags".
func (s *Server) handleCreateManual(w http.ResponseWriter, r *http.Request) {
	form, ok := s.parseUpload(w, r, maxFilesPerUpload)
	if !ok {
		return
	}
	defer func() { _ = form.RemoveAll() }()

	headers := form.File["file"]
	if len(headers) == 0 {
		response.BadRequest(w, "No file uploaded. Use 'file' field in multipart form", s.logger)
		return
	}
	if len(headers) > maxFilesPerUpload {
		response.BadRequest(w, "Too many files in one upload", s.logger)
		return
	}

	uploads := make([]service.Upload, 0, len(headers))
	for _, h := range headers {
		u, err := readUpload(h)
		if err != nil {
			response.HandleError(w, err, s.logger)
			return
		}
		uploads = append(uploads, u)
	}

	m, err := s.services.Manual.Create(r.Context(), service.CreateManualInput{
		Title: formValue(form, "title"),
		Files: uploads,
		Tags:  form.Value["tags"],
	})
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Created(w, toManualResponse(m), s.logger)
}

// handleAddFile adds one "file" part with optional repeated "tags" to a
// manual.
func (s *Server) handleAddFile(w http.ResponseWriter, r *http.Request) {
	manualID := chi.URLParam(r, "id")

	form, ok := s.parseUpload(w, r, 1)
	if !ok {
		return
	}
	defer func() { _ = form.RemoveAll() }()

	headers := form.File["file"]
	if len(headers) != 1 {
		response.BadRequest(w, "Exactly one 'file' field is required", s.logger)
		return
	}

	u, err := readUpload(headers[0])
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	f, err := s.services.Manual.AddFile(r.Context(), manualID, u, form.Value["tags"])
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Created(w, toFileResponse(f), s.logger)
}

// parseUpload caps the body at files payloads plus form overhead and
// parses it.
func (s *Server) parseUpload(w http.ResponseWriter, r *http.Request, files int64) (*multipart.Form, bool) {
	if s.opts.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes*files+1<<20)
	}

	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(w, domainerrors.FileReadf("upload exceeds %d bytes", tooLarge.Limit), s.logger)
			return nil, false
		}
		response.BadRequest(w, "Failed to parse form data", s.logger)
		return nil, false
	}
	return r.MultipartForm, true
}

func readUpload(h *multipart.FileHeader) (service.Upload, error) {
	f, err := h.Open()
	if err != nil {
		return service.Upload{}, domainerrors.FileReadf("%s could not be opened", h.Filename)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return service.Upload{}, domainerrors.FileReadf("%s could not be read", h.Filename)
	}
	return service.Upload{Name: h.Filename, Data: data}, nil
}

func formValue(form *multipart.Form, key string) string {
	if values := form.Value[key]; len(values) > 0 {
		return strings.TrimSpace(values[0])
	}
	return ""
}
