package search

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"
	"github.com/blevesearch/bleve/v2/mapping"
)

// foldedAnalyzer tokenizes text that textfold has already folded. Manual
// titles mix languages, so no stemming is applied.
const foldedAnalyzer = "folded"

// buildIndexMapping creates the Bleve mapping for manual documents:
//   - title, file_names and tags are full-text over folded text
//   - tag_ids and file_types are keywords for filters and facets
//   - title_sort and the timestamps support sorting
func buildIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()

	err := indexMapping.AddCustomAnalyzer(foldedAnalyzer, map[string]any{
		"type":          custom.Name,
		"tokenizer":     unicode.Name,
		"token_filters": []string{lowercase.Name},
	})
	if err != nil {
		// Only reachable if the registry names above are wrong.
		panic(err)
	}
	indexMapping.DefaultAnalyzer = foldedAnalyzer

	docMapping := bleve.NewDocumentMapping()

	text := func(field string, store, vectors bool) {
		fm := bleve.NewTextFieldMapping()
		fm.Analyzer = foldedAnalyzer
		fm.Store = store
		fm.IncludeTermVectors = vectors
		docMapping.AddFieldMappingsAt(field, fm)
	}
	text("title", false, true)
	text("file_names", false, true)
	text("tags", false, false)

	kw := func(field string, store bool) {
		fm := bleve.NewTextFieldMapping()
		fm.Analyzer = keyword.Name
		fm.Store = store
		docMapping.AddFieldMappingsAt(field, fm)
	}
	kw("id", false)
	kw("type", false)
	kw("tag_ids", true)
	kw("file_types", true)
	kw("title_sort", false)

	// Display title, returned with hits but never searched.
	display := bleve.NewTextFieldMapping()
	display.Index = false
	display.Store = true
	docMapping.AddFieldMappingsAt("display_title", display)

	for _, field := range []string{"file_count", "date_added", "updated_at"} {
		fm := bleve.NewNumericFieldMapping()
		fm.Store = true
		docMapping.AddFieldMappingsAt(field, fm)
	}

	indexMapping.AddDocumentMapping("_default", docMapping)
	return indexMapping
}
