// Package logging provides structured logging utilities with context propagation.
//
// This package wraps the standard library's log/slog package with helper functions
// for common logging patterns used throughout the ingester.
//
// Key features:
//   - JSON and text output formats
//   - Per-run id propagation
//   - Context-aware logging
//   - Configurable log levels
//
// Example usage:
//
//	import "content-mesh/internal/observability/logging"
//
//	func main() {
//	    logger := logging.NewLogger()
//	    logger.Info("ingester started", slog.String("version", "1.0"))
//	}
//
//	func ingest(ctx context.Context) {
//	    ctx = logging.WithRunID(ctx, logging.NewRunID())
//	    logging.FromContext(ctx).Info("ingestion started")
//	}
package logging
