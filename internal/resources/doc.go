// Package resources provides MCP resources for exposing sync bridge
// data. Resources are read-only data sources that MCP clients can
// fetch, such as the active configuration and the sync state summary.
package resources
