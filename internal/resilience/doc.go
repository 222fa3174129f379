// Package resilience provides fault tolerance for calls to the content API.
//
// The package supports:
//   - Circuit breakers around upstream HTTP calls (circuitbreaker)
//   - Retry logic with exponential backoff, jitter and Retry-After support (retry)
//
// Usage Example:
//
//	cb := circuitbreaker.New(circuitbreaker.UpstreamAPIConfig())
//	body, err := circuitbreaker.Do(cb, func() ([]byte, error) {
//	    return callContentAPI()
//	})
//
//	err := retry.WithBackoff(ctx, retry.UpstreamAPIConfig(), func() error {
//	    return performRequest()
//	})
package resilience
