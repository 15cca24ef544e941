package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/manualshelf/manualshelf-server/internal/search"
)

func (s *Server) registerSearchRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "searchManuals",
		Method:      http.MethodGet,
		Path:        "/api/v1/search",
		Summary:     "Search manuals",
		Description: "Ranked full-text search over titles, file names and tag names, with facets",
		Tags:        []string{"Search"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleSearch)
}

// SearchInput contains search parameters.
type SearchInput struct {
	Query     string   `query:"q" maxLength:"200" doc:"Search text"`
	TagIDs    []string `query:"tag" doc:"Keep manuals carrying any of these tags"`
	FileTypes []string `query:"type" doc:"Keep manuals with a file of any of these types"`
	Sort      string   `query:"sort" enum:"relevance,title,recent" default:"relevance" doc:"Result order"`
	Limit     int      `query:"limit" minimum:"1" maximum:"100" default:"20" doc:"Page size"`
	Offset    int      `query:"offset" minimum:"0" doc:"Hits to skip"`
	Facets    bool     `query:"facets" default:"true" doc:"Include tag and file type counts"`
}

// SearchOutput wraps the search result for Huma.
type SearchOutput struct {
	Body *search.SearchResult
}

func (s *Server) handleSearch(ctx context.Context, input *SearchInput) (*SearchOutput, error) {
	res, err := s.services.Search.Search(ctx, search.SearchParams{
		Query:         input.Query,
		TagIDs:        input.TagIDs,
		FileTypes:     input.FileTypes,
		Limit:         input.Limit,
		Offset:        input.Offset,
		SortBy:        input.Sort,
		IncludeFacets: input.Facets,
	})
	if err != nil {
		return nil, err
	}
	return &SearchOutput{Body: res}, nil
}
