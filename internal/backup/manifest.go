package backup

import "time"

// FormatVersion is the archive format version. Increment major on breaking changes.
const FormatVersion = "1.0"

// ManifestName is the archive entry holding the manifest.
const ManifestName = "manifest.yaml"

// Manifest describes an export archive: every manual with its files, their
// rotations and tags, plus the tag list with preferred colours.
type Manifest struct {
	Version     string           `yaml:"version"`
	CreatedAt   time.Time        `yaml:"created_at"`
	ChangeToken string           `yaml:"change_token"`
	Counts      Counts           `yaml:"counts"`
	Tags        []ManifestTag    `yaml:"tags"`
	Manuals     []ManifestManual `yaml:"manuals"`
}

// Counts summarises the archive for validation.
type Counts struct {
	Manuals int   `yaml:"manuals"`
	Files   int   `yaml:"files"`
	Tags    int   `yaml:"tags"`
	Bytes   int64 `yaml:"bytes"`
}

// ManifestTag is a tag entry.
type ManifestTag struct {
	ID    string `yaml:"id"`
	Name  string `yaml:"name"`
	Color string `yaml:"color,omitempty"`
}

// ManifestManual is a manual entry.
type ManifestManual struct {
	ID        string         `yaml:"id"`
	Title     string         `yaml:"title"`
	DateAdded time.Time      `yaml:"date_added"`
	Files     []ManifestFile `yaml:"files"`
}

// ManifestFile is a file entry. Path locates the payload in the archive.
type ManifestFile struct {
	ID        string   `yaml:"id"`
	Name      string   `yaml:"name"`
	Type      string   `yaml:"type"`
	Path      string   `yaml:"path"`
	Size      int64    `yaml:"size"`
	SHA256    string   `yaml:"sha256"`
	Rotation  int      `yaml:"rotation"`
	PageCount int      `yaml:"page_count,omitempty"`
	Tags      []string `yaml:"tags,omitempty"`
}
