package domain

import (
	"path/filepath"
	"strings"
)

// Manual is a titled document record grouping one or more files.
type Manual struct {
	Syncable
	Title string        `json:"title"`
	Files []*ManualFile `json:"files"`
}

// FileNames returns the names of the manual's files in stored order.
func (m *Manual) FileNames() []string {
	names := make([]string, len(m.Files))
	for i, f := range m.Files {
		names[i] = f.FileName
	}
	return names
}

// Tags returns the distinct tags across all files, in first-seen order.
func (m *Manual) Tags() []*ManualTag {
	seen := make(map[string]bool)
	var tags []*ManualTag
	for _, f := range m.Files {
		for _, t := range f.Tags {
			if seen[t.ID] {
				continue
			}
			seen[t.ID] = true
			tags = append(tags, t)
		}
	}
	return tags
}

// FileType is the declared kind of a stored file.
type FileType string

// Supported file types.
const (
	FileTypePDF  FileType = "pdf"
	FileTypeJPEG FileType = "jpeg"
	FileTypePNG  FileType = "png"
)

// ParseFileType maps an extension or type name ("PDF", ".jpg", "jpeg") to a
// FileType. Unknown values come back as-is, lowercased, and are not
// displayable.
func ParseFileType(s string) FileType {
	s = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), ".")
	switch s {
	case "pdf":
		return FileTypePDF
	case "jpg", "jpeg":
		return FileTypeJPEG
	case "png":
		return FileTypePNG
	default:
		return FileType(s)
	}
}

// FileTypeFromName derives the type from a file name's extension.
func FileTypeFromName(name string) FileType {
	return ParseFileType(filepath.Ext(name))
}

// IsDisplayable reports whether the type is in the supported set.
func (t FileType) IsDisplayable() bool {
	switch t {
	case FileTypePDF, FileTypeJPEG, FileTypePNG:
		return true
	default:
		return false
	}
}

// IsImage reports whether the type is a bitmap.
func (t FileType) IsImage() bool {
	return t == FileTypeJPEG || t == FileTypePNG
}

// MIMEType returns the content type served for the file type.
func (t FileType) MIMEType() string {
	switch t {
	case FileTypePDF:
		return "application/pdf"
	case FileTypeJPEG:
		return "image/jpeg"
	case FileTypePNG:
		return "image/png"
	default:
		return "application/octet-stream"
	}
}

// ManualFile is a single stored PDF or image belonging to a Manual.
// The payload lives in the blob store under the file's ID.
type ManualFile struct {
	Syncable
	ManualID             string       `json:"manual_id"`
	FileName             string       `json:"file_name"`
	FileType             FileType     `json:"file_type"`
	Size                 int64        `json:"size"`
	ContentHash          string       `json:"content_hash"`
	PDFRotationDegrees   Rotation     `json:"pdf_rotation_degrees"`
	ImageRotationDegrees Rotation     `json:"image_rotation_degrees"`
	PageCount            int          `json:"page_count,omitempty"`
	BlurHash             string       `json:"blur_hash,omitempty"`
	Tags                 []*ManualTag `json:"tags"`
}

// Rotation returns the angle that applies to this file's kind.
func (f *ManualFile) Rotation() Rotation {
	if f.FileType == FileTypePDF {
		return f.PDFRotationDegrees
	}
	return f.ImageRotationDegrees
}

// SetRotation stores the angle on the field matching the file's kind.
func (f *ManualFile) SetRotation(r Rotation) {
	if f.FileType == FileTypePDF {
		f.PDFRotationDegrees = r
		return
	}
	f.ImageRotationDegrees = r
}

// TagIDs returns the IDs of the file's tags.
func (f *ManualFile) TagIDs() []string {
	ids := make([]string, len(f.Tags))
	for i, t := range f.Tags {
		ids[i] = t.ID
	}
	return ids
}
