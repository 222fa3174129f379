package pagination

import (
	"net/url"
	"strconv"
)

// Params represents the pagination parameters of one upstream page request.
type Params struct {
	Page  int // 1-based page number
	Limit int // Items per page
}

// Query encodes the parameters for the content API.
//
// Query parameters:
//   - limit: Items per page
//   - page: 1-based page number
//   - meta: always "filter_count", so the response carries the total used to
//     derive the page count
func (p Params) Query() url.Values {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(p.Limit))
	q.Set("page", strconv.Itoa(p.Page))
	q.Set("meta", "filter_count")
	return q
}

// NextParams returns the parameters for the page after info.
func NextParams(info PageInfo, limit int) Params {
	return Params{
		Page:  info.CurrentPage + 1,
		Limit: limit,
	}
}
