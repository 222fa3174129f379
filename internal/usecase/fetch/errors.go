// Package fetch implements the paginated fetch engine: a PagedFetch state
// machine that retrieves one page per Advance call, and a Scheduler that drives
// many fetches under a concurrency bound and an inter-wave throttle.
package fetch

import (
	"errors"
	"fmt"
)

// Sentinel errors for fetch operations.
var (
	// ErrMalformedResponse indicates that a page response omitted the result
	// count or total page count. The fetch fails; it is never treated as done.
	ErrMalformedResponse = errors.New("malformed page response")

	// ErrRequestTimeout indicates that a page request exceeded its deadline.
	// Results merged before the timed-out page are preserved.
	ErrRequestTimeout = errors.New("page request timed out")

	// ErrUpstream indicates that the content API reported an error payload.
	ErrUpstream = errors.New("upstream reported an error")

	// ErrTaskTerminal indicates that a task was enqueued after it completed.
	ErrTaskTerminal = errors.New("task already completed")

	// ErrTaskQueued indicates that a task was enqueued while the scheduler
	// already holds it.
	ErrTaskQueued = errors.New("task already queued")
)

// Error kinds reported to metrics and logs.
const (
	kindTimeout   = "timeout"
	kindMalformed = "malformed"
	kindUpstream  = "upstream"
	kindTransport = "transport"
)

// UpstreamError carries the error payload the content API returned for a page.
type UpstreamError struct {
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: %v", ErrUpstream, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Is reports ErrUpstream as matching so callers can use errors.Is.
func (e *UpstreamError) Is(target error) bool {
	return target == ErrUpstream
}

// FetchError names the fetch that failed.
type FetchError struct {
	Name string
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %q: %v", e.Name, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// errorKind classifies err for metrics.
func errorKind(err error) string {
	switch {
	case errors.Is(err, ErrRequestTimeout):
		return kindTimeout
	case errors.Is(err, ErrMalformedResponse):
		return kindMalformed
	case errors.Is(err, ErrUpstream):
		return kindUpstream
	default:
		return kindTransport
	}
}
