package pagination

import "errors"

// ErrMissingMetadata indicates that a page response omitted a required
// pagination field.
var ErrMissingMetadata = errors.New("pagination metadata missing")

// Metadata is the pagination metadata attached to every page response.
// Fields are pointers so that an omitted field is distinguishable from zero.
type Metadata struct {
	ResultCount    *int `json:"result_count,omitempty"`     // Items on this page
	CurrentPage    *int `json:"current_page,omitempty"`     // 1-based page number
	TotalPageCount *int `json:"total_page_count,omitempty"` // Pages in the whole result set
}

// NewMetadata builds fully populated metadata.
func NewMetadata(resultCount, currentPage, totalPageCount int) Metadata {
	return Metadata{
		ResultCount:    &resultCount,
		CurrentPage:    &currentPage,
		TotalPageCount: &totalPageCount,
	}
}

// Validate reports ErrMissingMetadata when a required field is absent.
// An empty page (result count 0) is valid.
func (m Metadata) Validate() error {
	if m.ResultCount == nil || m.TotalPageCount == nil {
		return ErrMissingMetadata
	}
	return nil
}
