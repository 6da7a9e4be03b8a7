// Package gcal_tools provides MCP tools for the Google Calendar side of
// the bridge: listing calendars and completing the OAuth setup flow.
package gcal_tools
