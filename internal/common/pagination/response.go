package pagination

// Response is one page returned by the content API.
// T is the type of data items (e.g., a raw record or a schema declaration).
//
// Err carries an error payload reported by the API itself; a response with a
// non-nil Err must not be merged.
type Response[T any] struct {
	Data []T      `json:"data"` // Items on the current page
	Meta Metadata `json:"meta"` // Pagination metadata
	Err  error    `json:"-"`    // Error payload reported by the API
}

// NewResponse creates a successful page response with data and metadata.
func NewResponse[T any](data []T, metadata Metadata) Response[T] {
	return Response[T]{
		Data: data,
		Meta: metadata,
	}
}

// ErrorResponse creates a page response that carries an API error payload.
func ErrorResponse[T any](err error) Response[T] {
	return Response[T]{Err: err}
}
