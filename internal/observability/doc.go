// Package observability groups the logging, metrics, and tracing helpers used
// by the ingestion pipeline.
//
// Subpackages:
//   - logging: Structured logging utilities with slog
//   - metrics: Prometheus metrics registry and recorders
//   - tracing: OpenTelemetry tracer and span helpers
//
// Example usage:
//
//	import (
//	    "content-mesh/internal/observability/logging"
//	    "content-mesh/internal/observability/metrics"
//	)
//
//	func main() {
//	    logger := logging.NewLogger()
//	    logger.Info("ingester started")
//
//	    metrics.RecordPageFetched("items/posts", 120*time.Millisecond, 100)
//	}
package observability
