// Package icloud reads events and calendars from the local macOS
// Calendar app through the osascript bridge.
//
// The package shells out to osascript rather than speaking CalDAV to
// iCloud directly, which means it needs no Apple credentials and sees
// exactly what the Calendar app shows, including calendars from other
// accounts the app is signed into.
//
// Script output is a line per record with fields joined by the ASCII
// unit separator, and dates coerced to ISO form so parsing does not
// depend on the machine's locale. Records that fail to parse are
// skipped with a warning instead of failing the whole read, since a
// single odd event should not block a sync pass.
//
// All access is read-only. Nothing in this package mutates the
// Calendar app's data.
package icloud
