package icloud

import (
	"fmt"
	"time"
)

// Event represents a single calendar event read from the local Calendar app.
type Event struct {
	Title       string    `json:"title"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Location    string    `json:"location,omitempty"`
	Description string    `json:"description,omitempty"`
	AllDay      bool      `json:"all_day"`
	Calendar    string    `json:"calendar"`
}

// Calendar represents a calendar visible in the local Calendar app.
// Color is the calendar's RGB triple as the Calendar app reports it,
// e.g. "65535,0,0".
type Calendar struct {
	Name    string `json:"name"`
	Account string `json:"account"`
	Color   string `json:"color,omitempty"`
}

// ScriptError represents an error from an osascript invocation
type ScriptError struct {
	Op       string // Operation that failed (e.g., "listCalendars", "events")
	Calendar string // Calendar involved, if any
	Err      error  // Underlying error
}

func (e *ScriptError) Error() string {
	if e.Calendar != "" {
		return fmt.Sprintf("icloud %s (calendar %q): %v", e.Op, e.Calendar, e.Err)
	}
	return fmt.Sprintf("icloud %s: %v", e.Op, e.Err)
}

func (e *ScriptError) Unwrap() error {
	return e.Err
}
