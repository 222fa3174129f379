// Package metrics provides Prometheus metrics registry and recording utilities.
//
// This package centralizes the ingestion metrics:
//   - Page request metrics (count, duration, items)
//   - Fetch outcome metrics (successes and failures by kind)
//   - Scheduler metrics (active fetches)
//   - Content mesh metrics (collections, nodes, edges)
//   - Ingestion run metrics (runs by status, duration)
//
// All metrics are automatically registered with the Prometheus default registry
// and exposed via the /metrics endpoint of the admin server.
//
// Example usage:
//
//	import "content-mesh/internal/observability/metrics"
//
//	func fetchPage(name string) {
//	    start := time.Now()
//	    // ... request one page ...
//	    metrics.RecordPageFetched(name, time.Since(start), 100)
//	}
package metrics
