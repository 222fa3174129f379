package pagination

// PageInfo is the cursor of a paged fetch.
//
// HasNextPage is false only once no further page request should be issued;
// a fetch whose PageInfo reports no next page is terminal.
type PageInfo struct {
	CurrentOffset  int  `json:"current_offset"`   // Items merged so far
	ResultCount    int  `json:"result_count"`     // Items on the most recent page
	CurrentPage    int  `json:"current_page"`     // Last page received (0 before the first)
	TotalPageCount int  `json:"total_page_count"` // Pages reported by the server
	HasNextPage    bool `json:"has_next_page"`
}

// InitialPageInfo returns the cursor of a fetch that has not requested anything yet.
func InitialPageInfo() PageInfo {
	return PageInfo{HasNextPage: true}
}

// Advance returns the cursor after a page described by meta was merged.
// Callers must Validate meta first.
func (p PageInfo) Advance(requested Params, meta Metadata) PageInfo {
	page := requested.Page
	if meta.CurrentPage != nil {
		page = *meta.CurrentPage
	}
	next := PageInfo{
		CurrentOffset:  p.CurrentOffset + *meta.ResultCount,
		ResultCount:    *meta.ResultCount,
		CurrentPage:    page,
		TotalPageCount: *meta.TotalPageCount,
	}
	next.HasNextPage = next.CurrentPage < next.TotalPageCount
	return next
}
