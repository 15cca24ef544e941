// Package search provides ranked full-text search over manuals using Bleve.
// Text is folded with textfold before indexing and querying, so matches are
// case- and diacritic-insensitive like the manual list filter.
package search

import (
	"github.com/manualshelf/manualshelf-server/internal/domain"
	"github.com/manualshelf/manualshelf-server/internal/textfold"
)

// DocType discriminates documents in the index.
type DocType string

// DocTypeManual is the only document type indexed today.
const DocTypeManual DocType = "manual"

// SearchDocument is the indexed form of a manual. File names and tag names
// are denormalized so one query covers them.
type SearchDocument struct {
	ID           string
	Type         DocType
	DisplayTitle string
	Title        string   // Folded
	FileNames    []string // Folded
	FileTypes    []string
	Tags         []string // Folded tag names
	TagIDs       []string
	FileCount    int
	DateAdded    int64 // Unix millis
	UpdatedAt    int64 // Unix millis
}

// ToMap converts the document to the lowercase field names of the mapping.
func (d *SearchDocument) ToMap() map[string]any {
	m := map[string]any{
		"id":            d.ID,
		"type":          string(d.Type),
		"display_title": d.DisplayTitle,
		"title":         d.Title,
		"title_sort":    d.Title,
		"file_count":    d.FileCount,
		"date_added":    d.DateAdded,
		"updated_at":    d.UpdatedAt,
	}
	if len(d.FileNames) > 0 {
		m["file_names"] = d.FileNames
	}
	if len(d.FileTypes) > 0 {
		m["file_types"] = d.FileTypes
	}
	if len(d.Tags) > 0 {
		m["tags"] = d.Tags
	}
	if len(d.TagIDs) > 0 {
		m["tag_ids"] = d.TagIDs
	}
	return m
}

// ManualToSearchDocument converts a manual with its files and tags loaded.
func ManualToSearchDocument(man *domain.Manual) *SearchDocument {
	doc := &SearchDocument{
		ID:           man.ID,
		Type:         DocTypeManual,
		DisplayTitle: man.Title,
		Title:        textfold.Fold(man.Title),
		FileCount:    len(man.Files),
		DateAdded:    man.DateAdded.UnixMilli(),
		UpdatedAt:    man.UpdatedAt.UnixMilli(),
	}

	types := make(map[domain.FileType]bool)
	for _, f := range man.Files {
		doc.FileNames = append(doc.FileNames, textfold.Fold(f.FileName))
		if !types[f.FileType] {
			types[f.FileType] = true
			doc.FileTypes = append(doc.FileTypes, string(f.FileType))
		}
	}
	for _, t := range man.Tags() {
		doc.Tags = append(doc.Tags, textfold.Fold(t.Name))
		doc.TagIDs = append(doc.TagIDs, t.ID)
	}
	return doc
}
