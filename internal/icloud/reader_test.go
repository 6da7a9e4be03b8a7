package icloud

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func record(fields ...string) string {
	return strings.Join(fields, fieldSep)
}

func TestParseCalendars(t *testing.T) {
	output := record("Work", "iCloud", "65535,0,0") + "\n" +
		record("US Holidays", "iCloud", "") + "\n"

	calendars := parseCalendars(output)

	if len(calendars) != 2 {
		t.Fatalf("Expected 2 calendars, got %d", len(calendars))
	}

	if calendars[0].Name != "Work" {
		t.Errorf("Expected name 'Work', got %q", calendars[0].Name)
	}
	if calendars[0].Account != "iCloud" {
		t.Errorf("Expected account 'iCloud', got %q", calendars[0].Account)
	}
	if calendars[0].Color != "65535,0,0" {
		t.Errorf("Expected color '65535,0,0', got %q", calendars[0].Color)
	}

	if calendars[1].Name != "US Holidays" {
		t.Errorf("Expected name 'US Holidays', got %q", calendars[1].Name)
	}
	if calendars[1].Color != "" {
		t.Errorf("Expected empty color, got %q", calendars[1].Color)
	}
}

func TestCalendarJSONShape(t *testing.T) {
	payload, err := json.Marshal(Calendar{Name: "Work", Account: "iCloud", Color: "65535,0,0"})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var got map[string]interface{}
	if err := json.Unmarshal(payload, &got); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	for _, key := range []string{"name", "account", "color"} {
		if _, ok := got[key]; !ok {
			t.Errorf("Expected key %q in calendar JSON, got %s", key, payload)
		}
	}
}

func TestListCalendarsScriptReadsAccountAndColor(t *testing.T) {
	for _, fragment := range []string{
		"name of account of cal",
		"color of cal",
		`contains "iCloud"`,
	} {
		if !strings.Contains(listCalendarsScript, fragment) {
			t.Errorf("Calendar listing script missing %q", fragment)
		}
	}
}

func TestParseCalendars_SkipsMalformedLines(t *testing.T) {
	output := "just a stray line\n" +
		record("Work", "iCloud", "65535,0,0") + "\n" +
		"\n"

	calendars := parseCalendars(output)

	if len(calendars) != 1 {
		t.Fatalf("Expected 1 calendar, got %d", len(calendars))
	}
	if calendars[0].Name != "Work" {
		t.Errorf("Expected 'Work', got %q", calendars[0].Name)
	}
}

func TestParseEvents(t *testing.T) {
	output := record("Team Standup", "2026-08-28T09:00:00", "2026-08-28T09:30:00",
		"Zoom", "Daily standup", "false", "Work") + "\n"

	events, skipped := parseEvents(output)

	if skipped != 0 {
		t.Errorf("Expected no skipped records, got %d", skipped)
	}
	if len(events) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(events))
	}

	ev := events[0]
	if ev.Title != "Team Standup" {
		t.Errorf("Expected title 'Team Standup', got %q", ev.Title)
	}
	wantStart := time.Date(2026, 8, 28, 9, 0, 0, 0, time.Local)
	if !ev.Start.Equal(wantStart) {
		t.Errorf("Expected start %v, got %v", wantStart, ev.Start)
	}
	wantEnd := time.Date(2026, 8, 28, 9, 30, 0, 0, time.Local)
	if !ev.End.Equal(wantEnd) {
		t.Errorf("Expected end %v, got %v", wantEnd, ev.End)
	}
	if ev.Location != "Zoom" {
		t.Errorf("Expected location 'Zoom', got %q", ev.Location)
	}
	if ev.Description != "Daily standup" {
		t.Errorf("Expected description 'Daily standup', got %q", ev.Description)
	}
	if ev.AllDay {
		t.Error("Expected timed event, got all-day")
	}
	if ev.Calendar != "Work" {
		t.Errorf("Expected calendar 'Work', got %q", ev.Calendar)
	}
}

func TestParseEvents_AllDay(t *testing.T) {
	output := record("Company Holiday", "2026-12-25T00:00:00", "2026-12-26T00:00:00",
		"", "", "true", "Work") + "\n"

	events, skipped := parseEvents(output)

	if skipped != 0 {
		t.Errorf("Expected no skipped records, got %d", skipped)
	}
	if len(events) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(events))
	}
	if !events[0].AllDay {
		t.Error("Expected all-day event")
	}
}

func TestParseEvents_SkipsMalformedRecords(t *testing.T) {
	output := record("Only", "three", "fields") + "\n" +
		record("Bad Date", "not-a-date", "2026-08-28T10:00:00", "", "", "false", "Work") + "\n" +
		record("Good", "2026-08-28T09:00:00", "2026-08-28T10:00:00", "", "", "false", "Work") + "\n" +
		record("Bad End", "2026-08-28T09:00:00", "garbage", "", "", "false", "Work") + "\n"

	events, skipped := parseEvents(output)

	if skipped != 3 {
		t.Errorf("Expected 3 skipped records, got %d", skipped)
	}
	if len(events) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(events))
	}
	if events[0].Title != "Good" {
		t.Errorf("Expected surviving event 'Good', got %q", events[0].Title)
	}
}

func TestParseEvents_EmptyOutput(t *testing.T) {
	events, skipped := parseEvents("")

	if skipped != 0 {
		t.Errorf("Expected no skipped records, got %d", skipped)
	}
	if len(events) != 0 {
		t.Errorf("Expected no events, got %d", len(events))
	}
}

func TestParseEvents_FieldsMayContainCommasAndColons(t *testing.T) {
	output := record("Review: Q3, part 1", "2026-08-28T14:00:00", "2026-08-28T15:00:00",
		"Room 2, Floor 3", "Agenda: budget, hiring", "false", "Work") + "\n"

	events, skipped := parseEvents(output)

	if skipped != 0 || len(events) != 1 {
		t.Fatalf("Expected 1 event and no skips, got %d events, %d skipped", len(events), skipped)
	}
	if events[0].Title != "Review: Q3, part 1" {
		t.Errorf("Title mangled: %q", events[0].Title)
	}
	if events[0].Location != "Room 2, Floor 3" {
		t.Errorf("Location mangled: %q", events[0].Location)
	}
}

func TestScriptError(t *testing.T) {
	underlying := errors.New("exit status 1")

	withCal := &ScriptError{Op: "events", Calendar: "Work", Err: underlying}
	if !strings.Contains(withCal.Error(), "events") || !strings.Contains(withCal.Error(), "Work") {
		t.Errorf("Error message missing op or calendar: %q", withCal.Error())
	}
	if !errors.Is(withCal, underlying) {
		t.Error("Expected errors.Is to unwrap to the underlying error")
	}

	withoutCal := &ScriptError{Op: "listCalendars", Err: underlying}
	if strings.Contains(withoutCal.Error(), "calendar \"") {
		t.Errorf("Unexpected calendar in message: %q", withoutCal.Error())
	}
}

func TestEventsValidation(t *testing.T) {
	// Validation fires before any script execution, so this is safe to
	// exercise without osascript present.
	r := &Reader{ctx: t.Context()}

	if _, err := r.Events("", 7, 30); err == nil {
		t.Error("Expected error for empty calendar name")
	}
	if _, err := r.Events("Work", -1, 30); err == nil {
		t.Error("Expected error for negative daysBack")
	}
	if _, err := r.Events("Work", 7, -1); err == nil {
		t.Error("Expected error for negative daysForward")
	}

	var scriptErr *ScriptError
	_, err := r.Events("", 7, 30)
	if !errors.As(err, &scriptErr) {
		t.Fatalf("Expected ScriptError, got %T", err)
	}
	if scriptErr.Op != "events" {
		t.Errorf("Expected op 'events', got %q", scriptErr.Op)
	}
}
