package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/manualshelf/manualshelf-server/internal/textfold"
)

// Sort orders for search results.
const (
	SortRelevance = "relevance"
	SortTitle     = "title"
	SortRecent    = "recent"
)

// SearchParams configures a search query.
type SearchParams struct {
	Query     string
	TagIDs    []string // Keep manuals carrying any of these tags
	FileTypes []string // Keep manuals with a file of any of these types

	Limit  int
	Offset int

	SortBy        string // relevance (default), title, recent
	IncludeFacets bool
}

// DefaultSearchParams returns the defaults used by the API.
func DefaultSearchParams() SearchParams {
	return SearchParams{
		Limit:         20,
		SortBy:        SortRelevance,
		IncludeFacets: true,
	}
}

// SearchResult is one page of ranked hits.
type SearchResult struct {
	Query  string       `json:"query"`
	Total  uint64       `json:"total"`
	TookMs int64        `json:"took_ms"`
	Hits   []SearchHit  `json:"hits"`
	Facets SearchFacets `json:"facets"`
}

// SearchHit is a matching manual.
type SearchHit struct {
	ID        string  `json:"id"`
	Score     float64 `json:"score"`
	Title     string  `json:"title"`
	FileCount int     `json:"file_count"`
}

// SearchFacets counts hits per tag and file type.
type SearchFacets struct {
	Tags      []FacetCount `json:"tags,omitempty"`
	FileTypes []FacetCount `json:"file_types,omitempty"`
}

// FacetCount is a facet value and its count.
type FacetCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// Search executes a ranked query.
func (s *SearchIndex) Search(ctx context.Context, params SearchParams) (*SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if params.Limit <= 0 {
		params.Limit = DefaultSearchParams().Limit
	}

	req := bleve.NewSearchRequestOptions(buildSearchQuery(params), params.Limit, params.Offset, false)
	addSorting(req, params.SortBy)
	if params.IncludeFacets {
		req.AddFacet("tag_ids", bleve.NewFacetRequest("tag_ids", 20))
		req.AddFacet("file_types", bleve.NewFacetRequest("file_types", 5))
	}
	req.Fields = []string{"display_title", "file_count"}

	res, err := s.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("execute search: %w", err)
	}

	result := &SearchResult{
		Query:  params.Query,
		Total:  res.Total,
		TookMs: res.Took.Milliseconds(),
		Hits:   make([]SearchHit, 0, len(res.Hits)),
	}
	for _, hit := range res.Hits {
		h := SearchHit{ID: hit.ID, Score: hit.Score}
		if t, ok := hit.Fields["display_title"].(string); ok {
			h.Title = t
		}
		if n, ok := hit.Fields["file_count"].(float64); ok {
			h.FileCount = int(n)
		}
		result.Hits = append(result.Hits, h)
	}

	if params.IncludeFacets {
		result.Facets.Tags = facetCounts(res, "tag_ids")
		result.Facets.FileTypes = facetCounts(res, "file_types")
	}
	return result, nil
}

// buildSearchQuery matches the folded query against title, file names and
// tags, and ANDs in the filters.
func buildSearchQuery(params SearchParams) query.Query {
	var queries []query.Query

	if q := textfold.Fold(strings.TrimSpace(params.Query)); q != "" {
		title := bleve.NewMatchQuery(q)
		title.SetField("title")
		title.SetBoost(3.0)

		files := bleve.NewMatchQuery(q)
		files.SetField("file_names")
		files.SetBoost(1.5)

		tags := bleve.NewMatchQuery(q)
		tags.SetField("tags")

		// Typo tolerance on the title.
		fuzzy := bleve.NewFuzzyQuery(q)
		fuzzy.SetFuzziness(1)
		fuzzy.SetField("title")
		fuzzy.SetBoost(0.8)

		text := []query.Query{title, files, tags, fuzzy}

		// Prefix on the last word for type-ahead.
		words := strings.Fields(q)
		if last := words[len(words)-1]; len([]rune(last)) >= 2 {
			prefix := bleve.NewPrefixQuery(last)
			prefix.SetField("title")
			prefix.SetBoost(0.5)
			text = append(text, prefix)
		}

		queries = append(queries, bleve.NewDisjunctionQuery(text...))
	}

	if f := anyTerm("tag_ids", params.TagIDs); f != nil {
		queries = append(queries, f)
	}
	if f := anyTerm("file_types", params.FileTypes); f != nil {
		queries = append(queries, f)
	}

	switch len(queries) {
	case 0:
		return bleve.NewMatchAllQuery()
	case 1:
		return queries[0]
	default:
		return bleve.NewConjunctionQuery(queries...)
	}
}

func anyTerm(field string, values []string) query.Query {
	if len(values) == 0 {
		return nil
	}
	terms := make([]query.Query, len(values))
	for i, v := range values {
		tq := bleve.NewTermQuery(v)
		tq.SetField(field)
		terms[i] = tq
	}
	return bleve.NewDisjunctionQuery(terms...)
}

func addSorting(req *bleve.SearchRequest, sortBy string) {
	switch sortBy {
	case SortTitle:
		req.SortBy([]string{"title_sort", "-date_added"})
	case SortRecent:
		req.SortBy([]string{"-date_added", "title_sort"})
	default:
		req.SortBy([]string{"-_score", "title_sort"})
	}
}

func facetCounts(res *bleve.SearchResult, field string) []FacetCount {
	facet, ok := res.Facets[field]
	if !ok || facet.Terms == nil {
		return nil
	}
	var out []FacetCount
	for _, term := range facet.Terms.Terms() {
		out = append(out, FacetCount{Value: term.Term, Count: term.Count})
	}
	return out
}
