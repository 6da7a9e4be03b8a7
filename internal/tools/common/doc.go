// Package common provides shared helpers for MCP tool handlers:
// instrumentation wrappers that record metrics and audit logs around
// each invocation, and small argument extraction utilities.
package common
