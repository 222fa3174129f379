// Package ingest runs one ingestion: it discovers the schema of the content
// API, pages through the records of every selected collection and builds the
// content mesh from them.
package ingest

import (
	"errors"
	"fmt"
)

var (
	// ErrRequiredFetchFailed marks a run aborted because schema or file data
	// could not be fetched. Without it no mesh can be built.
	ErrRequiredFetchFailed = errors.New("required fetch failed")

	// ErrRecordFetchFailed marks a run aborted by a record fetch failure while
	// FailOnRecordError is set.
	ErrRecordFetchFailed = errors.New("record fetch failed")
)

// RequiredFetchError names the required fetch that failed.
type RequiredFetchError struct {
	Fetch string
	Err   error
}

func (e *RequiredFetchError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrRequiredFetchFailed, e.Fetch, e.Err)
}

func (e *RequiredFetchError) Unwrap() error { return e.Err }

// Is matches ErrRequiredFetchFailed.
func (e *RequiredFetchError) Is(target error) bool {
	return target == ErrRequiredFetchFailed
}
