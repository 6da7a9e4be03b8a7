// Package sync_tools provides MCP tools for controlling the one-way
// iCloud to Google Calendar sync: configuration, manual and scheduled
// runs, status reporting and state reset.
package sync_tools
