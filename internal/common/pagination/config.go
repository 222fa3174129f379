// Package pagination provides the page bookkeeping shared by the fetch engine
// and the content API client: request parameters, upstream page metadata,
// per-collection limits, and the PageInfo cursor a paged fetch advances.
package pagination

// NoLimit disables the MaxResults cap.
const NoLimit = 0

// Limits controls how a single collection is paged.
type Limits struct {
	PageSize   int `yaml:"page_size"`   // Items requested per page
	MaxResults int `yaml:"max_results"` // Stop after this many items (0 = unlimited)
}

// Config holds pagination configuration settings.
// Global values apply to every collection unless Overrides holds an entry for it.
type Config struct {
	DefaultLimit int               // Default items per page (typically 100)
	MaxLimit     int               // Maximum allowed items per page (typically 1000)
	MaxResults   int               // Global result cap per collection (0 = unlimited)
	Overrides    map[string]Limits // Collection-specific limits
}

// DefaultConfig returns the default pagination configuration.
// Default values: limit=100, max=1000, no result cap.
func DefaultConfig() Config {
	return Config{
		DefaultLimit: 100,
		MaxLimit:     1000,
		MaxResults:   NoLimit,
	}
}

// For resolves the effective limits for a collection.
//
// Precedence: a collection-specific override wins over the global value, field
// by field. A zero override field inherits the global value, so an override can
// raise the page size without touching the result cap. The page size is always
// clamped into [1, MaxLimit].
func (c Config) For(collection string) Limits {
	limits := Limits{
		PageSize:   c.DefaultLimit,
		MaxResults: c.MaxResults,
	}
	if o, ok := c.Overrides[collection]; ok {
		if o.PageSize > 0 {
			limits.PageSize = o.PageSize
		}
		if o.MaxResults > 0 {
			limits.MaxResults = o.MaxResults
		}
	}
	if limits.PageSize < 1 {
		limits.PageSize = 1
	}
	if c.MaxLimit > 0 && limits.PageSize > c.MaxLimit {
		limits.PageSize = c.MaxLimit
	}
	return limits
}
