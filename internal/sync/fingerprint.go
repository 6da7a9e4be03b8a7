package sync

import (
	"strings"

	"github.com/calbridge/calbridge/internal/icloud"
)

// fingerprintTimeLayout renders start times without a zone, so the same
// event read in different sessions keys identically.
const fingerprintTimeLayout = "2006-01-02T15:04:05"

// Fingerprint derives the idempotence key for an event from its title,
// start time and calendar. Spaces become underscores and colons are
// stripped. Identical (title, start, calendar) triples always produce
// the same fingerprint; nothing else about the event participates.
//
// A changed title or start time therefore yields a new fingerprint and
// the event syncs again as a brand-new event. The bridge never updates
// a previously pushed event in place.
func Fingerprint(event icloud.Event) string {
	var start string
	if !event.Start.IsZero() {
		start = event.Start.Format(fingerprintTimeLayout)
	}

	key := event.Title + "_" + start + "_" + event.Calendar
	key = strings.ReplaceAll(key, " ", "_")
	return strings.ReplaceAll(key, ":", "")
}
