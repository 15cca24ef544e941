package api

import (
	"time"

	"github.com/manualshelf/manualshelf-server/internal/color"
	"github.com/manualshelf/manualshelf-server/internal/domain"
	"github.com/manualshelf/manualshelf-server/internal/service"
)

// TagChip is a tag as drawn in one row, with the colour it was assigned
// there.
type TagChip struct {
	ID    string     `json:"id" doc:"Tag ID"`
	Name  string     `json:"name" doc:"Tag name"`
	Color color.Pair `json:"color" doc:"Assigned palette colour"`
}

// TagResponse contains tag data in API responses.
type TagResponse struct {
	ID        string     `json:"id" doc:"Tag ID"`
	Name      string     `json:"name" doc:"Tag name"`
	ColorKey  string     `json:"color_key,omitempty" doc:"Preferred palette key, if set"`
	Color     color.Pair `json:"color" doc:"Colour of the tag shown on its own"`
	FileCount int        `json:"file_count" doc:"Files carrying the tag"`
	CreatedAt time.Time  `json:"created_at" doc:"Creation time"`
	UpdatedAt time.Time  `json:"updated_at" doc:"Last update time"`
}

// FileResponse contains file metadata in API responses.
type FileResponse struct {
	ID          string    `json:"id" doc:"File ID"`
	ManualID    string    `json:"manual_id" doc:"Owning manual"`
	FileName    string    `json:"file_name" doc:"Original file name"`
	FileType    string    `json:"file_type" doc:"pdf, jpeg or png"`
	Size        int64     `json:"size" doc:"Payload size in bytes"`
	ContentHash string    `json:"content_hash" doc:"SHA-256 of the payload"`
	Rotation    int       `json:"rotation" doc:"Display rotation: 0, 90, 180 or 270"`
	PageCount   int       `json:"page_count,omitempty" doc:"Pages, for PDFs"`
	BlurHash    string    `json:"blur_hash,omitempty" doc:"Placeholder, for images"`
	Tags        []TagChip `json:"tags" doc:"Tags in display order"`
	DateAdded   time.Time `json:"date_added" doc:"Upload time"`
}

// ManualResponse is a manual with its files.
type ManualResponse struct {
	ID        string         `json:"id" doc:"Manual ID"`
	Title     string         `json:"title" doc:"Title"`
	DateAdded time.Time      `json:"date_added" doc:"Creation time"`
	UpdatedAt time.Time      `json:"updated_at" doc:"Last update time"`
	Tags      []TagChip      `json:"tags" doc:"Distinct tags across the files"`
	Files     []FileResponse `json:"files" doc:"Files in upload order"`
}

// ManualRow is a manual as listed.
type ManualRow struct {
	ID        string    `json:"id" doc:"Manual ID"`
	Title     string    `json:"title" doc:"Title"`
	DateAdded time.Time `json:"date_added" doc:"Creation time"`
	FileCount int       `json:"file_count" doc:"Number of files"`
	FileNames []string  `json:"file_names" doc:"File names"`
	Tags      []TagChip `json:"tags" doc:"Distinct tags across the files"`
}

func tagChips(tags []*domain.ManualTag) []TagChip {
	colors := service.RowColors(tags)
	chips := make([]TagChip, len(tags))
	for i, t := range tags {
		chips[i] = TagChip{ID: t.ID, Name: t.Name, Color: colors[i]}
	}
	return chips
}

func toTagResponse(t *domain.ManualTag) TagResponse {
	return TagResponse{
		ID:        t.ID,
		Name:      t.Name,
		ColorKey:  t.Color,
		Color:     service.RowColors([]*domain.ManualTag{t})[0],
		FileCount: t.FileCount,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}

func toTagResponses(tags []*domain.ManualTag) []TagResponse {
	out := make([]TagResponse, len(tags))
	for i, t := range tags {
		out[i] = toTagResponse(t)
	}
	return out
}

func toFileResponse(f *domain.ManualFile) FileResponse {
	return FileResponse{
		ID:          f.ID,
		ManualID:    f.ManualID,
		FileName:    f.FileName,
		FileType:    string(f.FileType),
		Size:        f.Size,
		ContentHash: f.ContentHash,
		Rotation:    int(f.Rotation()),
		PageCount:   f.PageCount,
		BlurHash:    f.BlurHash,
		Tags:        tagChips(f.Tags),
		DateAdded:   f.DateAdded,
	}
}

func toManualResponse(m *domain.Manual) ManualResponse {
	files := make([]FileResponse, len(m.Files))
	for i, f := range m.Files {
		files[i] = toFileResponse(f)
	}
	return ManualResponse{
		ID:        m.ID,
		Title:     m.Title,
		DateAdded: m.DateAdded,
		UpdatedAt: m.UpdatedAt,
		Tags:      tagChips(m.Tags()),
		Files:     files,
	}
}

func toManualRow(m *domain.Manual) ManualRow {
	return ManualRow{
		ID:        m.ID,
		Title:     m.Title,
		DateAdded: m.DateAdded,
		FileCount: len(m.Files),
		FileNames: m.FileNames(),
		Tags:      tagChips(m.Tags()),
	}
}
