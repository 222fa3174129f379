// Package tracing provides OpenTelemetry tracing integration.
//
// Spans are opened around page requests, scheduler flushes, mesh construction,
// and admin HTTP requests. The global tracer provider is looked up on every
// call, so installing a provider after start-up (or in tests) takes effect
// immediately.
//
// Example usage:
//
//	import "content-mesh/internal/observability/tracing"
//
//	func buildMesh(ctx context.Context) {
//	    ctx, span := tracing.StartSpan(ctx, "mesh.build")
//	    defer span.End()
//	    // ... build ...
//	}
package tracing
