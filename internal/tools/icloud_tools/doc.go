// Package icloud_tools provides MCP tools for reading calendars and
// events from the macOS Calendar app (iCloud) via AppleScript.
package icloud_tools
