package icloud

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/calbridge/calbridge/internal/logging"
)

// osascriptBinary is the macOS scripting bridge used to talk to the
// Calendar app. Events never leave the machine through this path.
const osascriptBinary = "osascript"

// fieldSep separates record fields in script output. The unit separator
// cannot appear in user-entered calendar text, unlike commas or tabs.
const fieldSep = "\x1f"

// eventFieldCount is the number of fields the events script emits per line.
const eventFieldCount = 7

// isoTimeLayout matches the «class isot» coercion AppleScript uses for
// dates, e.g. "2026-08-28T14:00:00". The value carries no zone; events
// are interpreted in the machine's local time.
const isoTimeLayout = "2006-01-02T15:04:05"

// listCalendarsScript emits one calendar per line: name, account name
// and color separated by the unit separator. Only calendars under an
// iCloud account are listed; local and subscription calendars cannot
// be synced. Calendars whose account or color cannot be read are
// skipped by the try block.
const listCalendarsScript = `
set fieldSep to (ASCII character 31)
set output to ""
tell application "Calendar"
	repeat with cal in calendars
		try
			set calName to name of cal
			set calAccount to name of account of cal
			set AppleScript's text item delimiters to ","
			set calColor to (color of cal) as string
			set AppleScript's text item delimiters to ""
			if calAccount contains "iCloud" then
				set output to output & calName & fieldSep & calAccount & fieldSep & calColor & linefeed
			end if
		end try
	end repeat
end tell
return output
`

// eventsScript emits one event per line for the named calendar within
// [now - daysBack, now + daysForward]. Fields: title, start, end,
// location, description, all-day flag, calendar name. Dates are coerced
// to ISO via «class isot» so Go can parse them without locale guessing.
// Multi-line descriptions are flattened to keep the line-per-record
// contract.
const eventsScript = `
on flatten(t)
	set AppleScript's text item delimiters to {return, linefeed}
	set parts to text items of t
	set AppleScript's text item delimiters to " "
	set t to parts as string
	set AppleScript's text item delimiters to ""
	return t
end flatten

on run argv
	set calName to item 1 of argv
	set daysBack to (item 2 of argv) as integer
	set daysForward to (item 3 of argv) as integer
	set rangeStart to (current date) - daysBack * days
	set rangeEnd to (current date) + daysForward * days
	set fieldSep to (ASCII character 31)
	set output to ""
	tell application "Calendar"
		set cal to first calendar whose name is calName
		set evts to (every event of cal whose start date is greater than or equal to rangeStart and start date is less than or equal to rangeEnd)
		repeat with evt in evts
			set evtTitle to summary of evt
			if evtTitle is missing value then set evtTitle to ""
			set evtStart to ((start date of evt) as «class isot») as string
			set evtEnd to ((end date of evt) as «class isot») as string
			set evtLoc to location of evt
			if evtLoc is missing value then set evtLoc to ""
			set evtDesc to description of evt
			if evtDesc is missing value then set evtDesc to ""
			set evtAllDay to (allday event of evt) as string
			set output to output & my flatten(evtTitle) & fieldSep & evtStart & fieldSep & evtEnd & fieldSep & my flatten(evtLoc) & fieldSep & my flatten(evtDesc) & fieldSep & evtAllDay & fieldSep & calName & linefeed
		end repeat
	end tell
	return output
end run
`

// Reader provides read-only access to the local Calendar app via osascript
type Reader struct {
	ctx    context.Context
	logger *slog.Logger
}

// NewReader creates a Reader and verifies that osascript is available.
// On anything other than macOS this fails immediately rather than on
// the first sync pass.
func NewReader(ctx context.Context, logger *slog.Logger) (*Reader, error) {
	if logger == nil {
		logger = slog.Default()
	}

	_, err := exec.LookPath(osascriptBinary)
	if err != nil {
		return nil, &ScriptError{
			Op:  "initialize",
			Err: fmt.Errorf("osascript not found in PATH; reading the Calendar app requires macOS"),
		}
	}

	return &Reader{
		ctx:    ctx,
		logger: logger,
	}, nil
}

// runScript executes an AppleScript with the given arguments and returns
// stdout, stderr, and any error
func (r *Reader) runScript(script string, args ...string) (string, string, error) {
	cmdArgs := append([]string{"-e", script}, args...)
	cmd := exec.CommandContext(r.ctx, osascriptBinary, cmdArgs...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	return stdout.String(), stderr.String(), err
}

// ListCalendars returns all calendars visible in the Calendar app
func (r *Reader) ListCalendars() ([]Calendar, error) {
	stdout, stderr, err := r.runScript(listCalendarsScript)
	if err != nil {
		return nil, &ScriptError{
			Op:  "listCalendars",
			Err: fmt.Errorf("failed to list calendars: %w (stderr: %s)", err, stderr),
		}
	}

	return parseCalendars(stdout), nil
}

// Events returns events from the named calendar whose start time falls
// within [now - daysBack, now + daysForward] days. Malformed records in
// the script output are logged and skipped rather than failing the read.
func (r *Reader) Events(calendar string, daysBack, daysForward int) ([]Event, error) {
	if calendar == "" {
		return nil, &ScriptError{
			Op:  "events",
			Err: fmt.Errorf("calendar name cannot be empty"),
		}
	}
	if daysBack < 0 || daysForward < 0 {
		return nil, &ScriptError{
			Op:       "events",
			Calendar: calendar,
			Err:      fmt.Errorf("day range must be non-negative (got back=%d forward=%d)", daysBack, daysForward),
		}
	}

	stdout, stderr, err := r.runScript(eventsScript,
		calendar, strconv.Itoa(daysBack), strconv.Itoa(daysForward))
	if err != nil {
		return nil, &ScriptError{
			Op:       "events",
			Calendar: calendar,
			Err:      fmt.Errorf("failed to read events: %w (stderr: %s)", err, stderr),
		}
	}

	events, skipped := parseEvents(stdout)
	if skipped > 0 {
		r.logger.Warn("Skipped malformed event records from Calendar app",
			logging.Service("icloud"),
			logging.Calendar(calendar),
			logging.Count(skipped))
	}

	return events, nil
}

// parseCalendars parses the listCalendarsScript output. Lines with missing
// fields are ignored.
func parseCalendars(output string) []Calendar {
	calendars := []Calendar{}

	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}

		fields := strings.Split(line, fieldSep)
		if len(fields) != 3 {
			continue
		}

		calendars = append(calendars, Calendar{
			Name:    fields[0],
			Account: fields[1],
			Color:   fields[2],
		})
	}

	return calendars
}

// parseEvents parses the eventsScript output. It returns the parsed events
// and the number of malformed records that were skipped.
func parseEvents(output string) ([]Event, int) {
	events := []Event{}
	skipped := 0

	scanner := bufio.NewScanner(strings.NewReader(output))
	// Descriptions can push a record past the default 64K token limit
	scanner.Buffer(make([]byte, 0, 256*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}

		fields := strings.Split(line, fieldSep)
		if len(fields) != eventFieldCount {
			skipped++
			continue
		}

		start, err := time.ParseInLocation(isoTimeLayout, fields[1], time.Local)
		if err != nil {
			skipped++
			continue
		}

		end, err := time.ParseInLocation(isoTimeLayout, fields[2], time.Local)
		if err != nil {
			skipped++
			continue
		}

		events = append(events, Event{
			Title:       fields[0],
			Start:       start,
			End:         end,
			Location:    fields[3],
			Description: fields[4],
			AllDay:      fields[5] == "true",
			Calendar:    fields[6],
		})
	}

	return events, skipped
}
