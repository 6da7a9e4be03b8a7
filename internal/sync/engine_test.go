package sync

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calbridge/calbridge/internal/config"
	"github.com/calbridge/calbridge/internal/gcal"
	"github.com/calbridge/calbridge/internal/icloud"
)

// fakeReader serves canned events per calendar.
type fakeReader struct {
	events map[string][]icloud.Event
	errs   map[string]error
	calls  int
}

func (r *fakeReader) Events(calendar string, daysBack, daysForward int) ([]icloud.Event, error) {
	r.calls++
	if err := r.errs[calendar]; err != nil {
		return nil, err
	}
	return r.events[calendar], nil
}

// fakePusher records created events and can fail selected titles.
type fakePusher struct {
	created  []gcal.EventBody
	failWith map[string]error
	nextID   int
}

func (p *fakePusher) CreateEvent(ctx context.Context, calendarID string, body gcal.EventBody) (*gcal.CreatedEvent, error) {
	if err := p.failWith[body.Summary]; err != nil {
		return nil, err
	}
	p.nextID++
	p.created = append(p.created, body)
	return &gcal.CreatedEvent{ID: fmt.Sprintf("google-evt-%d", p.nextID)}, nil
}

type engineFixture struct {
	engine *Engine
	cfg    *config.Store
	state  *StateStore
	reader *fakeReader
	pusher *fakePusher
}

func newEngineFixture(t *testing.T, calendars []string) *engineFixture {
	t.Helper()
	dir := t.TempDir()

	cfg := config.NewStore(dir, nil)
	require.NoError(t, cfg.Load())
	updates := map[string]any{"sync_enabled": true}
	if len(calendars) > 0 {
		updates["calendars_to_sync"] = calendars
	}
	_, _, err := cfg.Update(updates)
	require.NoError(t, err)

	state := NewStateStore(dir, nil)
	require.NoError(t, state.Load())

	reader := &fakeReader{events: map[string][]icloud.Event{}, errs: map[string]error{}}
	pusher := &fakePusher{failWith: map[string]error{}}

	engine := NewEngine(cfg, state, reader, func(ctx context.Context) (Pusher, error) {
		return pusher, nil
	}, nil)

	return &engineFixture{engine: engine, cfg: cfg, state: state, reader: reader, pusher: pusher}
}

func workEvent(title string, hour int) icloud.Event {
	return icloud.Event{
		Title:    title,
		Start:    time.Date(2024, 1, 8, hour, 0, 0, 0, time.Local),
		End:      time.Date(2024, 1, 8, hour+1, 0, 0, 0, time.Local),
		Calendar: "Work",
	}
}

func TestRunSync_DisabledIsNormalOutcome(t *testing.T) {
	f := newEngineFixture(t, []string{"Work"})
	_, _, err := f.cfg.Update(map[string]any{"sync_enabled": false})
	require.NoError(t, err)

	result, runErr := f.engine.RunSync(t.Context(), false)

	require.NoError(t, runErr)
	assert.False(t, result.Success)
	assert.Equal(t, "Sync is disabled in configuration", result.Message)
	assert.Equal(t, 0, f.reader.calls, "disabled sync must not touch the reader")
}

func TestRunSync_NoCalendarsConfigured(t *testing.T) {
	f := newEngineFixture(t, nil)

	result, err := f.engine.RunSync(t.Context(), false)

	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "No calendars configured for sync", result.Message)
	assert.Equal(t, 0, f.reader.calls)
}

func TestRunSync_SyncsNewEvents(t *testing.T) {
	f := newEngineFixture(t, []string{"Work"})
	f.reader.events["Work"] = []icloud.Event{
		workEvent("Team Meeting", 9),
		workEvent("Review", 14),
	}

	result, err := f.engine.RunSync(t.Context(), false)

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 2, result.TotalEventsFound)
	assert.Equal(t, 2, result.NewEventsToSync)
	assert.Equal(t, 2, result.EventsProcessed)
	assert.Equal(t, "Successfully synced 2 events", result.Message)
	assert.Len(t, f.pusher.created, 2)

	// Provenance reaches the destination
	assert.Equal(t, "true", f.pusher.created[0].PrivateProperties[PropSyncMarker])

	// State was committed once at the end of the pass
	assert.True(t, f.state.IsSynced(Fingerprint(workEvent("Team Meeting", 9))))
	assert.NotNil(t, f.state.LastSyncTime())
	_, statErr := os.Stat(f.state.Path())
	assert.NoError(t, statErr)
}

func TestRunSync_Idempotence(t *testing.T) {
	f := newEngineFixture(t, []string{"Work"})
	f.reader.events["Work"] = []icloud.Event{workEvent("Team Meeting", 9)}

	first, err := f.engine.RunSync(t.Context(), false)
	require.NoError(t, err)
	assert.Equal(t, 1, first.EventsProcessed)

	// Same source events on the second pass
	second, err := f.engine.RunSync(t.Context(), false)
	require.NoError(t, err)
	assert.True(t, second.Success)
	assert.Equal(t, 1, second.TotalEventsFound)
	assert.Equal(t, 0, second.NewEventsToSync)
	assert.Equal(t, 0, second.EventsProcessed)
	assert.Len(t, f.pusher.created, 1, "second pass must not push again")
}

func TestRunSync_DryRunPurity(t *testing.T) {
	f := newEngineFixture(t, []string{"Work"})
	f.reader.events["Work"] = []icloud.Event{
		workEvent("Team Meeting", 9),
		workEvent("Review", 14),
	}

	result, err := f.engine.RunSync(t.Context(), true)

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.True(t, result.DryRun)
	assert.Equal(t, 2, result.NewEventsToSync)
	assert.Equal(t, 0, result.EventsProcessed)
	assert.Len(t, result.NewEvents, 2)
	assert.Equal(t, "Dry run complete. Would sync 2 new events.", result.Message)

	// No destination calls, no state mutation, nothing on disk
	assert.Empty(t, f.pusher.created)
	assert.False(t, f.state.IsSynced(Fingerprint(workEvent("Team Meeting", 9))))
	assert.Nil(t, f.state.LastSyncTime())
	_, statErr := os.Stat(f.state.Path())
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunSync_DryRunWorksWithoutPusher(t *testing.T) {
	f := newEngineFixture(t, []string{"Work"})
	f.reader.events["Work"] = []icloud.Event{workEvent("Team Meeting", 9)}

	// Dry runs must not need the Google integration at all
	engine := NewEngine(f.cfg, f.state, f.reader, func(ctx context.Context) (Pusher, error) {
		return nil, errors.New("integration not configured")
	}, nil)

	result, err := engine.RunSync(t.Context(), true)

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 1, result.NewEventsToSync)
}

func TestRunSync_PartialFailureIsolation(t *testing.T) {
	f := newEngineFixture(t, []string{"Work"})
	f.reader.events["Work"] = []icloud.Event{
		workEvent("First", 9),
		workEvent("Second", 11),
		workEvent("Third", 14),
	}
	f.pusher.failWith["Second"] = errors.New("quota exceeded")

	result, err := f.engine.RunSync(t.Context(), false)

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 3, result.NewEventsToSync)
	assert.Equal(t, 2, result.EventsProcessed)

	assert.True(t, f.state.IsSynced(Fingerprint(workEvent("First", 9))))
	assert.False(t, f.state.IsSynced(Fingerprint(workEvent("Second", 11))))
	assert.True(t, f.state.IsSynced(Fingerprint(workEvent("Third", 14))))

	// The failed event reappears as new on the next pass and succeeds
	delete(f.pusher.failWith, "Second")
	retry, err := f.engine.RunSync(t.Context(), false)
	require.NoError(t, err)
	assert.Equal(t, 1, retry.NewEventsToSync)
	assert.Equal(t, 1, retry.EventsProcessed)
	assert.True(t, f.state.IsSynced(Fingerprint(workEvent("Second", 11))))
}

func TestRunSync_ReaderFailureSkipsCalendar(t *testing.T) {
	f := newEngineFixture(t, []string{"Broken", "Work"})
	f.reader.errs["Broken"] = errors.New("calendar not found")
	f.reader.events["Work"] = []icloud.Event{workEvent("Team Meeting", 9)}

	result, err := f.engine.RunSync(t.Context(), false)

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 1, result.TotalEventsFound)
	assert.Equal(t, 1, result.EventsProcessed)
}

func TestRunSync_PusherUnavailable(t *testing.T) {
	f := newEngineFixture(t, []string{"Work"})
	f.reader.events["Work"] = []icloud.Event{workEvent("Team Meeting", 9)}

	engine := NewEngine(f.cfg, f.state, f.reader, func(ctx context.Context) (Pusher, error) {
		return nil, errors.New("no Google OAuth token found")
	}, nil)

	result, err := engine.RunSync(t.Context(), false)

	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Message, "Sync failed")
	assert.False(t, f.state.IsSynced(Fingerprint(workEvent("Team Meeting", 9))))
}

func TestRunSync_PersistFailureIsFatal(t *testing.T) {
	f := newEngineFixture(t, []string{"Work"})
	f.reader.events["Work"] = []icloud.Event{workEvent("Team Meeting", 9)}

	// A directory where the state file should be makes Persist fail
	require.NoError(t, os.MkdirAll(f.state.Path(), 0700))

	result, err := f.engine.RunSync(t.Context(), false)

	assert.Error(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Message, "Sync failed")
}

func TestRunSync_WorkedExample(t *testing.T) {
	// Event synced once, then re-fetched identically in a later pass
	f := newEngineFixture(t, []string{"Work"})
	event := icloud.Event{
		Title:    "Team Meeting",
		Start:    time.Date(2024, 1, 8, 9, 0, 0, 0, time.Local),
		End:      time.Date(2024, 1, 8, 10, 0, 0, 0, time.Local),
		Calendar: "Work",
	}
	f.reader.events["Work"] = []icloud.Event{event}

	first, err := f.engine.RunSync(t.Context(), false)
	require.NoError(t, err)
	assert.Equal(t, 1, first.EventsProcessed)

	second, err := f.engine.RunSync(t.Context(), false)
	require.NoError(t, err)
	assert.Equal(t, 0, second.NewEventsToSync)
}

func TestRunSync_StateSurvivesRestart(t *testing.T) {
	dir := t.TempDir()

	cfg := config.NewStore(dir, nil)
	require.NoError(t, cfg.Load())
	_, _, err := cfg.Update(map[string]any{
		"sync_enabled":      true,
		"calendars_to_sync": []any{"Work"},
	})
	require.NoError(t, err)

	reader := &fakeReader{events: map[string][]icloud.Event{
		"Work": {workEvent("Team Meeting", 9)},
	}}
	pusher := &fakePusher{}
	provider := func(ctx context.Context) (Pusher, error) { return pusher, nil }

	state := NewStateStore(dir, nil)
	require.NoError(t, state.Load())
	engine := NewEngine(cfg, state, reader, provider, nil)
	_, err = engine.RunSync(t.Context(), false)
	require.NoError(t, err)

	// New process: fresh store over the same files
	state2 := NewStateStore(dir, nil)
	require.NoError(t, state2.Load())
	engine2 := NewEngine(cfg, state2, reader, provider, nil)

	result, err := engine2.RunSync(t.Context(), false)
	require.NoError(t, err)
	assert.Equal(t, 0, result.NewEventsToSync)
	assert.Len(t, pusher.created, 1)
}

func TestRunSync_PassesConfiguredWindowToReader(t *testing.T) {
	f := newEngineFixture(t, []string{"Work"})
	_, _, err := f.cfg.Update(map[string]any{"days_back": float64(2), "days_forward": float64(10)})
	require.NoError(t, err)

	var gotBack, gotForward int
	reader := readerFunc(func(calendar string, daysBack, daysForward int) ([]icloud.Event, error) {
		gotBack, gotForward = daysBack, daysForward
		return nil, nil
	})
	engine := NewEngine(f.cfg, f.state, reader, func(ctx context.Context) (Pusher, error) { return f.pusher, nil }, nil)

	_, err = engine.RunSync(t.Context(), false)
	require.NoError(t, err)

	assert.Equal(t, 2, gotBack)
	assert.Equal(t, 10, gotForward)
}

type readerFunc func(calendar string, daysBack, daysForward int) ([]icloud.Event, error)

func (f readerFunc) Events(calendar string, daysBack, daysForward int) ([]icloud.Event, error) {
	return f(calendar, daysBack, daysForward)
}

func TestRunSync_TimedEventsUseConfiguredTimezone(t *testing.T) {
	f := newEngineFixture(t, []string{"Work"})
	_, _, err := f.cfg.Update(map[string]any{"timezone": "Europe/Berlin"})
	require.NoError(t, err)
	f.reader.events["Work"] = []icloud.Event{workEvent("Team Meeting", 9)}

	_, err = f.engine.RunSync(t.Context(), false)
	require.NoError(t, err)

	require.Len(t, f.pusher.created, 1)
	assert.Equal(t, "Europe/Berlin", f.pusher.created[0].TimeZone)

	// The rendered dateTime must stay offset-free or the Calendar API
	// ignores the configured zone.
	rendered := gcal.ToAPIEvent(f.pusher.created[0])
	assert.Equal(t, "Europe/Berlin", rendered.Start.TimeZone)
	assert.Regexp(t, `^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}$`, rendered.Start.DateTime)
	assert.Regexp(t, `^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}$`, rendered.End.DateTime)
}
