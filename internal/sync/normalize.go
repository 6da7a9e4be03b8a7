package sync

import (
	"fmt"
	"time"

	"github.com/calbridge/calbridge/internal/gcal"
	"github.com/calbridge/calbridge/internal/icloud"
)

// Provenance property keys attached to every pushed event. Stored as
// private extended properties, so only this application sees them.
const (
	PropSyncMarker = "icloud_sync"
	PropCalendar   = "icloud_calendar"
	PropUID        = "icloud_uid"
	PropTimestamp  = "sync_timestamp"
)

// defaultTitle stands in for events without a summary.
const defaultTitle = "Untitled Event"

// Normalize maps a source event to a Google Calendar event body.
//
// All-day events carry date-only start and end; timed events carry full
// timestamps tagged with the configured timezone, not one derived from
// the source event. Provenance metadata (origin marker, source calendar,
// fingerprint, push timestamp) rides along as private properties so a
// later pass could locate pushed events by origin.
//
// Pure apart from the embedded push timestamp, which the caller supplies.
func Normalize(event icloud.Event, timezone string, now time.Time) gcal.EventBody {
	title := event.Title
	if title == "" {
		title = defaultTitle
	}

	return gcal.EventBody{
		Summary:     title,
		Description: event.Description,
		Location:    event.Location,
		Start:       event.Start,
		End:         event.End,
		TimeZone:    timezone,
		AllDay:      event.AllDay,
		SourceTitle: fmt.Sprintf("Synced from iCloud (%s)", event.Calendar),
		PrivateProperties: map[string]string{
			PropSyncMarker: "true",
			PropCalendar:   event.Calendar,
			PropUID:        Fingerprint(event),
			PropTimestamp:  now.Format(time.RFC3339),
		},
	}
}
