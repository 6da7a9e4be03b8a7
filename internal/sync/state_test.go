package sync

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calbridge/calbridge/internal/icloud"
)

func testEvent(title string) icloud.Event {
	return icloud.Event{
		Title:    title,
		Start:    time.Date(2024, 1, 8, 9, 0, 0, 0, time.Local),
		End:      time.Date(2024, 1, 8, 10, 0, 0, 0, time.Local),
		Calendar: "Work",
	}
}

func TestStateStore_LoadMissingFileStartsFresh(t *testing.T) {
	store := NewStateStore(t.TempDir(), nil)

	require.NoError(t, store.Load())

	assert.Equal(t, 0, store.Count())
	assert.Nil(t, store.LastSyncTime())
}

func TestStateStore_MarkAndPersistRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store := NewStateStore(dir, nil)
	require.NoError(t, store.Load())

	event := testEvent("Team Meeting")
	fp := Fingerprint(event)
	syncedAt := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

	store.MarkSynced(fp, "google-evt-1", event, syncedAt)
	store.SetLastSyncTime(syncedAt)
	require.NoError(t, store.Persist())

	// A fresh store over the same file sees the committed state
	reloaded := NewStateStore(dir, nil)
	require.NoError(t, reloaded.Load())

	assert.True(t, reloaded.IsSynced(fp))
	assert.Equal(t, 1, reloaded.Count())
	require.NotNil(t, reloaded.LastSyncTime())
	assert.True(t, reloaded.LastSyncTime().Equal(syncedAt))
}

func TestStateStore_PersistedShape(t *testing.T) {
	dir := t.TempDir()
	store := NewStateStore(dir, nil)
	require.NoError(t, store.Load())

	event := testEvent("Team Meeting")
	store.MarkSynced(Fingerprint(event), "google-evt-1", event, time.Now())
	require.NoError(t, store.Persist())

	data, err := os.ReadFile(filepath.Join(dir, stateFileName))
	require.NoError(t, err)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Contains(t, raw, "events")
	assert.Contains(t, raw, "last_sync_time")

	var events map[string]Record
	require.NoError(t, json.Unmarshal(raw["events"], &events))
	rec, ok := events[Fingerprint(event)]
	require.True(t, ok)
	assert.Equal(t, "google-evt-1", rec.GoogleEventID)
	assert.Equal(t, "Team Meeting", rec.OriginalEvent.Title)
	assert.NotEmpty(t, rec.SyncedAt)
}

func TestStateStore_MarkIsInMemoryUntilPersist(t *testing.T) {
	dir := t.TempDir()
	store := NewStateStore(dir, nil)
	require.NoError(t, store.Load())

	event := testEvent("Team Meeting")
	store.MarkSynced(Fingerprint(event), "google-evt-1", event, time.Now())

	// Nothing on disk yet
	_, err := os.Stat(filepath.Join(dir, stateFileName))
	assert.True(t, os.IsNotExist(err))
}

func TestStateStore_Clear(t *testing.T) {
	store := NewStateStore(t.TempDir(), nil)
	require.NoError(t, store.Load())

	event := testEvent("Team Meeting")
	store.MarkSynced(Fingerprint(event), "google-evt-1", event, time.Now())
	store.SetLastSyncTime(time.Now())

	store.Clear()

	assert.Equal(t, 0, store.Count())
	assert.False(t, store.IsSynced(Fingerprint(event)))
	assert.Nil(t, store.LastSyncTime())
}

func TestStateStore_LoadRejectsCorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, stateFileName), []byte("{not json"), 0600))

	store := NewStateStore(dir, nil)
	assert.Error(t, store.Load())
}

func TestStateStore_PersistReplacesAtomically(t *testing.T) {
	dir := t.TempDir()
	store := NewStateStore(dir, nil)
	require.NoError(t, store.Load())

	store.MarkSynced("fp-1", "g-1", testEvent("First"), time.Now())
	require.NoError(t, store.Persist())
	store.MarkSynced("fp-2", "g-2", testEvent("Second"), time.Now())
	require.NoError(t, store.Persist())

	// No temp files may survive a successful persist
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, stateFileName, entries[0].Name())

	reloaded := NewStateStore(dir, nil)
	require.NoError(t, reloaded.Load())
	assert.Equal(t, 2, reloaded.Count())
	assert.True(t, reloaded.IsSynced("fp-2"))
}

func TestStateStore_FilePermissions(t *testing.T) {
	dir := t.TempDir()
	store := NewStateStore(dir, nil)
	require.NoError(t, store.Load())
	require.NoError(t, store.Persist())

	info, err := os.Stat(filepath.Join(dir, stateFileName))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}
