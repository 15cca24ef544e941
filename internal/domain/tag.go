package domain

import "time"

// ManualTag is a user-defined label applied to files.
// Names are unique case- and diacritic-insensitively; NameKey holds the folded form.
type ManualTag struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	NameKey   string    `json:"-"`
	Color     string    `json:"color,omitempty"` // Optional preferred palette key
	FileCount int       `json:"file_count"`      // Files currently carrying the tag
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsOrphan reports whether no file references the tag. Orphans may be deleted.
func (t *ManualTag) IsOrphan() bool {
	return t.FileCount == 0
}
