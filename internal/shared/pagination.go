package shared

import "strings"

// ListFilters represents standard list filters.
type ListFilters struct {
	Page    int
	Limit   int
	Search  string
	SortBy  string
	SortDir string
	Status  string
}

// Normalize applies defaults and clamps paging values.
func (f ListFilters) Normalize() ListFilters {
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.Limit <= 0 || f.Limit > 500 {
		f.Limit = 100
	}
	f.Search = strings.TrimSpace(f.Search)
	if !strings.EqualFold(f.SortDir, "desc") {
		f.SortDir = "asc"
	} else {
		f.SortDir = "desc"
	}
	return f
}

// Offset returns the row offset for the current page.
func (f ListFilters) Offset() int {
	if f.Page <= 1 {
		return 0
	}
	return (f.Page - 1) * f.Limit
}
