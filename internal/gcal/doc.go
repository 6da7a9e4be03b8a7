// Package gcal wraps the Google Calendar API for the sync bridge.
//
// The client covers the operations the bridge needs: listing calendars,
// creating synced events with provenance markers, and the lookup and
// cleanup calls behind the gcal_* tools. Events created by the sync
// engine carry extended private properties so they can be recognized
// and cleaned up later without touching events the user created by hand.
package gcal
