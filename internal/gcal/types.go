package gcal

import (
	"time"

	calendar "google.golang.org/api/calendar/v3"
)

// EventBody is the input for creating or updating a Google Calendar event.
type EventBody struct {
	Summary     string
	Description string
	Location    string
	Start       time.Time
	End         time.Time
	TimeZone    string
	AllDay      bool

	// SourceTitle labels where the event came from, shown by Google
	// Calendar as the event source.
	SourceTitle string

	// PrivateProperties are stored as extended properties visible only
	// to this application. The sync engine uses them for provenance.
	PrivateProperties map[string]string
}

// CreatedEvent identifies an event after creation.
type CreatedEvent struct {
	ID       string `json:"id"`
	HTMLLink string `json:"html_link,omitempty"`
}

// EventDetails represents a Google Calendar event for listing and lookup.
type EventDetails struct {
	ID                string            `json:"id"`
	Summary           string            `json:"summary"`
	Description       string            `json:"description,omitempty"`
	Location          string            `json:"location,omitempty"`
	Start             time.Time         `json:"start"`
	End               time.Time         `json:"end"`
	AllDay            bool              `json:"all_day"`
	Status            string            `json:"status,omitempty"`
	HTMLLink          string            `json:"html_link,omitempty"`
	PrivateProperties map[string]string `json:"private_properties,omitempty"`
}

// CalendarInfo represents information about a calendar.
type CalendarInfo struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Primary         bool   `json:"primary"`
	AccessRole      string `json:"access_role"` // "owner", "writer", "reader", "freeBusyReader"
	BackgroundColor string `json:"background_color,omitempty"`
	ForegroundColor string `json:"foreground_color,omitempty"`
}

const (
	dateLayout = "2006-01-02"

	// dateTimeLayout is deliberately offset-free. With an offset in the
	// dateTime the Calendar API ignores the TimeZone field; without one
	// the wall-clock time is interpreted in the configured zone.
	dateTimeLayout = "2006-01-02T15:04:05"
)

// ToAPIEvent converts an EventBody to the Google Calendar API representation.
func ToAPIEvent(body EventBody) *calendar.Event {
	event := &calendar.Event{
		Summary:     body.Summary,
		Description: body.Description,
		Location:    body.Location,
	}

	// All-day events use Date instead of DateTime. The end date is
	// exclusive on both sides of the bridge, so no adjustment is needed.
	if body.AllDay {
		event.Start = &calendar.EventDateTime{
			Date: body.Start.Format(dateLayout),
		}
		event.End = &calendar.EventDateTime{
			Date: body.End.Format(dateLayout),
		}
	} else {
		tz := body.TimeZone
		if tz == "" {
			tz = "UTC"
		}
		event.Start = &calendar.EventDateTime{
			DateTime: body.Start.Format(dateTimeLayout),
			TimeZone: tz,
		}
		event.End = &calendar.EventDateTime{
			DateTime: body.End.Format(dateTimeLayout),
			TimeZone: tz,
		}
	}

	if body.SourceTitle != "" {
		event.Source = &calendar.EventSource{
			Title: body.SourceTitle,
		}
	}

	if len(body.PrivateProperties) > 0 {
		event.ExtendedProperties = &calendar.EventExtendedProperties{
			Private: body.PrivateProperties,
		}
	}

	return event
}

// toEventDetails converts a Google Calendar event to EventDetails.
func toEventDetails(event *calendar.Event) EventDetails {
	details := EventDetails{
		ID:          event.Id,
		Summary:     event.Summary,
		Description: event.Description,
		Location:    event.Location,
		Status:      event.Status,
		HTMLLink:    event.HtmlLink,
	}

	if event.Start != nil {
		if event.Start.DateTime != "" {
			if t, err := time.Parse(time.RFC3339, event.Start.DateTime); err == nil {
				details.Start = t
			}
		} else if event.Start.Date != "" {
			details.AllDay = true
			if t, err := time.Parse(dateLayout, event.Start.Date); err == nil {
				details.Start = t
			}
		}
	}

	if event.End != nil {
		if event.End.DateTime != "" {
			if t, err := time.Parse(time.RFC3339, event.End.DateTime); err == nil {
				details.End = t
			}
		} else if event.End.Date != "" {
			if t, err := time.Parse(dateLayout, event.End.Date); err == nil {
				details.End = t
			}
		}
	}

	if event.ExtendedProperties != nil && len(event.ExtendedProperties.Private) > 0 {
		details.PrivateProperties = event.ExtendedProperties.Private
	}

	return details
}

// toCalendarInfo converts a Google Calendar list entry to CalendarInfo.
func toCalendarInfo(entry *calendar.CalendarListEntry) CalendarInfo {
	return CalendarInfo{
		ID:              entry.Id,
		Name:            entry.Summary,
		Primary:         entry.Primary,
		AccessRole:      entry.AccessRole,
		BackgroundColor: entry.BackgroundColor,
		ForegroundColor: entry.ForegroundColor,
	}
}
