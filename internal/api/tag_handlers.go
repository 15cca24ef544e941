package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/manualshelf/manualshelf-server/internal/color"
	"github.com/manualshelf/manualshelf-server/internal/service"
)

func (s *Server) registerTagRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listTags",
		Method:      http.MethodGet,
		Path:        "/api/v1/tags",
		Summary:     "List tags",
		Description: "Returns every tag ordered by name, with file counts",
		Tags:        []string{"Tags"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListTags)

	huma.Register(s.api, huma.Operation{
		OperationID:   "createTag",
		Method:        http.MethodPost,
		Path:          "/api/v1/tags",
		Summary:       "Create tag",
		Description:   "Creates a tag. Names are unique ignoring case and diacritics",
		Tags:          []string{"Tags"},
		DefaultStatus: http.StatusCreated,
		Security:      []map[string][]string{{"bearer": {}}},
	}, s.handleCreateTag)

	huma.Register(s.api, huma.Operation{
		OperationID: "suggestTags",
		Method:      http.MethodGet,
		Path:        "/api/v1/tags/suggest",
		Summary:     "Suggest tags",
		Description: "Returns tags whose name contains the input, leaving out the selection",
		Tags:        []string{"Tags"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleSuggestTags)

	huma.Register(s.api, huma.Operation{
		OperationID: "getTagPalette",
		Method:      http.MethodGet,
		Path:        "/api/v1/tags/palette",
		Summary:     "Get palette",
		Description: "Returns the tag colour palette in slot order",
		Tags:        []string{"Tags"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetPalette)

	huma.Register(s.api, huma.Operation{
		OperationID: "assignTagColors",
		Method:      http.MethodPost,
		Path:        "/api/v1/tags/colors",
		Summary:     "Assign row colours",
		Description: "Assigns colours to one row of tag names; names in a row get distinct colours while the palette lasts",
		Tags:        []string{"Tags"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleAssignColors)

	huma.Register(s.api, huma.Operation{
		OperationID: "pruneTags",
		Method:      http.MethodPost,
		Path:        "/api/v1/tags/prune",
		Summary:     "Prune orphan tags",
		Description: "Deletes every tag no file carries",
		Tags:        []string{"Tags"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handlePruneTags)

	huma.Register(s.api, huma.Operation{
		OperationID: "getTag",
		Method:      http.MethodGet,
		Path:        "/api/v1/tags/{id}",
		Summary:     "Get tag",
		Description: "Returns a tag by ID",
		Tags:        []string{"Tags"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetTag)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateTag",
		Method:      http.MethodPatch,
		Path:        "/api/v1/tags/{id}",
		Summary:     "Update tag",
		Description: "Renames a tag or changes its preferred colour",
		Tags:        []string{"Tags"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleUpdateTag)

	huma.Register(s.api, huma.Operation{
		OperationID:   "deleteTag",
		Method:        http.MethodDelete,
		Path:          "/api/v1/tags/{id}",
		Summary:       "Delete tag",
		Description:   "Removes a tag from every file and deletes it",
		Tags:          []string{"Tags"},
		DefaultStatus: http.StatusNoContent,
		Security:      []map[string][]string{{"bearer": {}}},
	}, s.handleDeleteTag)
}

// === DTOs ===

// ListTagsResponse contains a list of tags.
type ListTagsResponse struct {
	Tags []TagResponse `json:"tags" doc:"List of tags"`
}

// ListTagsOutput wraps the list tags response for Huma.
type ListTagsOutput struct {
	Body ListTagsResponse
}

// CreateTagRequest is the request body for creating a tag.
type CreateTagRequest struct {
	Name  string `json:"name" validate:"required,notblank,max=60" doc:"Tag name"`
	Color string `json:"color,omitempty" validate:"palette" doc:"Preferred palette key"`
}

// CreateTagInput wraps the create tag request for Huma.
type CreateTagInput struct {
	Body CreateTagRequest
}

// TagOutput wraps the tag response for Huma.
type TagOutput struct {
	Body TagResponse
}

// TagIDInput identifies a tag.
type TagIDInput struct {
	ID string `path:"id" doc:"Tag ID"`
}

// UpdateTagRequest is the request body for updating a tag. Omitted fields
// are unchanged; an empty color clears the preference.
type UpdateTagRequest struct {
	Name  *string `json:"name,omitempty" validate:"omitempty,notblank,max=60" doc:"New name"`
	Color *string `json:"color,omitempty" validate:"omitempty,palette" doc:"Preferred palette key, or empty to clear"`
}

// UpdateTagInput wraps the update tag request for Huma.
type UpdateTagInput struct {
	ID   string `path:"id" doc:"Tag ID"`
	Body UpdateTagRequest
}

// SuggestTagsInput contains parameters for tag suggestions.
type SuggestTagsInput struct {
	Query    string   `query:"q" doc:"Text the tag name must contain"`
	Selected []string `query:"selected" doc:"Names or IDs already chosen"`
	Limit    int      `query:"limit" minimum:"0" maximum:"100" default:"10" doc:"Maximum suggestions; 0 for all"`
}

// PaletteOutput wraps the palette for Huma.
type PaletteOutput struct {
	Body struct {
		Colors []color.Pair `json:"colors" doc:"Palette in slot order"`
	}
}

// AssignColorsRequest is one row of tag names.
type AssignColorsRequest struct {
	Names []string `json:"names" validate:"max=100" doc:"Tag names in display order"`
}

// AssignColorsInput wraps the colour request for Huma.
type AssignColorsInput struct {
	Body AssignColorsRequest
}

// AssignColorsOutput returns one colour per name, in order.
type AssignColorsOutput struct {
	Body struct {
		Colors []color.Pair `json:"colors" doc:"Colour per name, in input order"`
	}
}

// PruneTagsOutput lists the deleted tags.
type PruneTagsOutput struct {
	Body struct {
		Deleted []string `json:"deleted" doc:"IDs of the deleted tags"`
	}
}

// === Handlers ===

func (s *Server) handleListTags(ctx context.Context, _ *struct{}) (*ListTagsOutput, error) {
	tags, err := s.services.Tag.List(ctx)
	if err != nil {
		return nil, err
	}
	return &ListTagsOutput{Body: ListTagsResponse{Tags: toTagResponses(tags)}}, nil
}

func (s *Server) handleCreateTag(ctx context.Context, input *CreateTagInput) (*TagOutput, error) {
	if err := s.validator.Validate(input.Body); err != nil {
		return nil, err
	}
	t, err := s.services.Tag.Create(ctx, input.Body.Name, input.Body.Color)
	if err != nil {
		return nil, err
	}
	return &TagOutput{Body: toTagResponse(t)}, nil
}

func (s *Server) handleGetTag(ctx context.Context, input *TagIDInput) (*TagOutput, error) {
	t, err := s.services.Tag.Get(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &TagOutput{Body: toTagResponse(t)}, nil
}

func (s *Server) handleUpdateTag(ctx context.Context, input *UpdateTagInput) (*TagOutput, error) {
	if err := s.validator.Validate(input.Body); err != nil {
		return nil, err
	}
	t, err := s.services.Tag.Update(ctx, input.ID, service.UpdateTagInput{
		Name:  input.Body.Name,
		Color: input.Body.Color,
	})
	if err != nil {
		return nil, err
	}
	return &TagOutput{Body: toTagResponse(t)}, nil
}

func (s *Server) handleDeleteTag(ctx context.Context, input *TagIDInput) (*struct{}, error) {
	if err := s.services.Tag.Delete(ctx, input.ID); err != nil {
		return nil, err
	}
	return nil, nil
}

func (s *Server) handleSuggestTags(ctx context.Context, input *SuggestTagsInput) (*ListTagsOutput, error) {
	tags, err := s.services.Tag.Suggest(ctx, input.Query, input.Selected, input.Limit)
	if err != nil {
		return nil, err
	}
	return &ListTagsOutput{Body: ListTagsResponse{Tags: toTagResponses(tags)}}, nil
}

func (s *Server) handleGetPalette(_ context.Context, _ *struct{}) (*PaletteOutput, error) {
	out := &PaletteOutput{}
	out.Body.Colors = append([]color.Pair(nil), color.Default...)
	return out, nil
}

func (s *Server) handleAssignColors(_ context.Context, input *AssignColorsInput) (*AssignColorsOutput, error) {
	if err := s.validator.Validate(input.Body); err != nil {
		return nil, err
	}
	out := &AssignColorsOutput{}
	out.Body.Colors = color.AssignNames(input.Body.Names...)
	return out, nil
}

func (s *Server) handlePruneTags(ctx context.Context, _ *struct{}) (*PruneTagsOutput, error) {
	ids, err := s.services.Tag.PruneOrphans(ctx)
	if err != nil {
		return nil, err
	}
	out := &PruneTagsOutput{}
	out.Body.Deleted = ids
	if out.Body.Deleted == nil {
		out.Body.Deleted = []string{}
	}
	return out, nil
}
