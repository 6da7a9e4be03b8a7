// Package instrumentation provides OpenTelemetry instrumentation for the
// calbridge MCP server.
//
// This package enables observability through:
//   - OpenTelemetry metrics for sync passes, Google Calendar API calls and
//     osascript invocations
//   - Distributed tracing for tool invocations and sync passes
//   - Prometheus metrics export via /metrics endpoint on a dedicated port
//   - OTLP export support for modern observability platforms
//
// # Metrics
//
// The package exposes the following metric categories:
//
// Server/HTTP Metrics:
//   - http_requests_total: Counter of HTTP requests by method, path, and status
//   - http_request_duration_seconds: Histogram of HTTP request durations
//
// Google API Metrics:
//   - google_api_operations_total: Counter of Google Calendar API operations by operation and status
//   - google_api_operation_duration_seconds: Histogram of Google Calendar API operation durations
//
// AppleScript Bridge Metrics:
//   - applescript_operations_total: Counter of osascript invocations by operation and status
//   - applescript_operation_duration_seconds: Histogram of osascript invocation durations
//
// Sync Engine Metrics:
//   - sync_passes_total: Counter of sync passes by status and dry-run flag
//   - sync_pass_duration_seconds: Histogram of sync pass durations
//   - sync_events_total: Counter of events processed by outcome (created, skipped, failed)
//
// MCP Tool Metrics:
//   - mcp_tool_invocations_total: Counter of MCP tool invocations by tool name and status
//   - mcp_tool_duration_seconds: Histogram of MCP tool execution durations
//
// # Tracing
//
// Distributed tracing spans are created for:
//   - MCP tool invocations (tool.<name>)
//   - Sync passes (sync.pass)
//   - Google Calendar API calls (google_calendar.<operation>)
//   - osascript invocations (icloud.<operation>)
//
// # Configuration
//
// Instrumentation can be configured via environment variables:
//   - INSTRUMENTATION_ENABLED: Enable/disable instrumentation (default: true)
//   - METRICS_EXPORTER: Metrics exporter type (prometheus, otlp, stdout, default: prometheus)
//   - TRACING_EXPORTER: Tracing exporter type (otlp, stdout, none, default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP endpoint for traces/metrics
//   - OTEL_TRACES_SAMPLER_ARG: Sampling rate (0.0 to 1.0, default: 0.1)
//   - OTEL_SERVICE_NAME: Service name (default: calbridge)
//
// # Example Usage
//
//	provider, err := instrumentation.NewProvider(ctx, instrumentation.Config{
//		ServiceName:    "calbridge",
//		ServiceVersion: "0.1.0",
//		Enabled:        true,
//	})
//	if err != nil {
//		return err
//	}
//	defer provider.Shutdown(ctx)
//
//	recorder := provider.Metrics()
//
//	// Record a sync pass
//	recorder.RecordSyncPass(ctx, "success", false, time.Since(start))
//
//	// Record a Google Calendar API operation
//	recorder.RecordGoogleAPIOperation(ctx, "create", "success", time.Since(start))
//
//	// Record an MCP tool invocation
//	recorder.RecordToolInvocation(ctx, "sync_run", "success", time.Since(start))
package instrumentation
