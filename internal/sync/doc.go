// Package sync implements the deduplicated one-way synchronization of
// events from the local Calendar app into Google Calendar.
//
// The idempotence key is a deterministic fingerprint of an event's
// title, start time and calendar name. The state store maps fingerprints
// to sync records and is the single source of truth for what has been
// pushed; it is persisted once per pass. The engine pulls source events
// for the configured window, filters by the store, normalizes into the
// Google event schema with provenance properties, and pushes each new
// event independently so one failure never aborts a pass. A scheduler
// re-runs passes on a configurable interval.
//
// The bridge is at-least-once: a crash between a successful push and
// the state persist re-pushes that event next pass. There is no update
// detection; an event whose title or start time changes fingerprints as
// a new event.
package sync
