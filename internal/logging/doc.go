// Package logging provides structured logging helpers built on log/slog.
//
// It defines the attribute keys used consistently across the codebase so
// that log output from the sync engine, the AppleScript bridge, and the
// MCP tool handlers can be correlated and filtered with the same queries.
package logging
