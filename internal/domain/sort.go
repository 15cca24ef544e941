package domain

import "fmt"

// SortOption orders the manual list.
type SortOption string

// Sort options. Title sorts break ties by newest first; date sorts by title.
const (
	SortTitleAsc  SortOption = "title_asc"
	SortTitleDesc SortOption = "title_desc"
	SortDateDesc  SortOption = "date_desc"
	SortDateAsc   SortOption = "date_asc"
)

// DefaultSort lists the most recently added manuals first.
const DefaultSort = SortDateDesc

// SortOptions lists every option in menu order.
var SortOptions = []SortOption{SortTitleAsc, SortTitleDesc, SortDateDesc, SortDateAsc}

// ParseSortOption validates s. The empty string yields DefaultSort.
func ParseSortOption(s string) (SortOption, error) {
	if s == "" {
		return DefaultSort, nil
	}
	for _, o := range SortOptions {
		if string(o) == s {
			return o, nil
		}
	}
	return "", fmt.Errorf("unknown sort option %q", s)
}

// ListQuery selects and orders manuals.
type ListQuery struct {
	Sort   SortOption
	Query  string // Matched against title or any file name
	TagID  string // Keep manuals with at least one file carrying this tag
	Limit  int
	Offset int
}
