package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.False(t, cfg.SyncEnabled)
	assert.Equal(t, 4, cfg.SyncIntervalHours)
	assert.Empty(t, cfg.CalendarsToSync)
	assert.Equal(t, "primary", cfg.GoogleCalendarID)
	assert.Equal(t, 7, cfg.DaysBack)
	assert.Equal(t, 30, cfg.DaysForward)
	assert.False(t, cfg.AutoStartSync)
	assert.Equal(t, "America/Chicago", cfg.Timezone)
}

func TestStore_LoadMissingFileUsesDefaults(t *testing.T) {
	store := NewStore(t.TempDir(), nil)

	require.NoError(t, store.Load())

	cfg := store.Get()
	assert.Equal(t, Default().SyncIntervalHours, cfg.SyncIntervalHours)
	assert.Equal(t, Default().GoogleCalendarID, cfg.GoogleCalendarID)
}

func TestStore_LoadFromFile(t *testing.T) {
	dir := t.TempDir()
	content := `{
  "sync_enabled": true,
  "sync_interval_hours": 2,
  "calendars_to_sync": ["Work", "Personal"],
  "google_calendar_id": "work@example.com",
  "days_back": 1,
  "days_forward": 14,
  "timezone": "Europe/Berlin"
}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte(content), 0600))

	store := NewStore(dir, nil)
	require.NoError(t, store.Load())

	cfg := store.Get()
	assert.True(t, cfg.SyncEnabled)
	assert.Equal(t, 2, cfg.SyncIntervalHours)
	assert.Equal(t, []string{"Work", "Personal"}, cfg.CalendarsToSync)
	assert.Equal(t, "work@example.com", cfg.GoogleCalendarID)
	assert.Equal(t, 1, cfg.DaysBack)
	assert.Equal(t, 14, cfg.DaysForward)
	assert.Equal(t, "Europe/Berlin", cfg.Timezone)
}

func TestStore_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	content := `{"google_calendar_id": "from-file@example.com"}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte(content), 0600))

	t.Setenv("CALBRIDGE_GOOGLE_CALENDAR_ID", "from-env@example.com")
	t.Setenv("CALBRIDGE_CALENDARS_TO_SYNC", "Work, Family")

	store := NewStore(dir, nil)
	require.NoError(t, store.Load())

	cfg := store.Get()
	assert.Equal(t, "from-env@example.com", cfg.GoogleCalendarID)
	assert.Equal(t, []string{"Work", "Family"}, cfg.CalendarsToSync)
}

func TestStore_LoadRejectsInvalidValues(t *testing.T) {
	dir := t.TempDir()
	content := `{"sync_interval_hours": 0}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte(content), 0600))

	store := NewStore(dir, nil)
	assert.Error(t, store.Load())
}

func TestStore_Update(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir, nil)
	require.NoError(t, store.Load())

	// Values arrive the way encoding/json decodes tool arguments
	cfg, applied, err := store.Update(map[string]any{
		"sync_enabled":        true,
		"sync_interval_hours": float64(6),
		"calendars_to_sync":   []any{"Work"},
	})
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"sync_enabled", "sync_interval_hours", "calendars_to_sync"}, applied)
	assert.True(t, cfg.SyncEnabled)
	assert.Equal(t, 6, cfg.SyncIntervalHours)
	assert.Equal(t, []string{"Work"}, cfg.CalendarsToSync)

	// Update persists to disk
	data, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	var onDisk Config
	require.NoError(t, json.Unmarshal(data, &onDisk))
	assert.True(t, onDisk.SyncEnabled)
	assert.Equal(t, 6, onDisk.SyncIntervalHours)
}

func TestStore_UpdateRejectsUnknownKey(t *testing.T) {
	store := NewStore(t.TempDir(), nil)
	require.NoError(t, store.Load())

	_, _, err := store.Update(map[string]any{"sync_intervall_hours": float64(6)})
	assert.ErrorContains(t, err, "unknown configuration key")

	// Nothing was applied
	assert.Equal(t, 4, store.Get().SyncIntervalHours)
}

func TestStore_UpdateTypeErrors(t *testing.T) {
	store := NewStore(t.TempDir(), nil)
	require.NoError(t, store.Load())

	_, _, err := store.Update(map[string]any{"sync_enabled": "yes"})
	assert.ErrorContains(t, err, "must be a boolean")

	_, _, err = store.Update(map[string]any{"days_back": 1.5})
	assert.ErrorContains(t, err, "whole number")

	_, _, err = store.Update(map[string]any{"calendars_to_sync": []any{"Work", 3}})
	assert.ErrorContains(t, err, "only strings")
}

func TestStore_UpdateRejectsInvalidResult(t *testing.T) {
	store := NewStore(t.TempDir(), nil)
	require.NoError(t, store.Load())

	_, _, err := store.Update(map[string]any{"sync_interval_hours": float64(0)})
	assert.ErrorContains(t, err, "sync_interval_hours")
}

func TestStore_GetReturnsCopy(t *testing.T) {
	store := NewStore(t.TempDir(), nil)
	require.NoError(t, store.Load())

	_, _, err := store.Update(map[string]any{"calendars_to_sync": []any{"Work"}})
	require.NoError(t, err)

	cfg := store.Get()
	cfg.CalendarsToSync[0] = "Mutated"

	assert.Equal(t, []string{"Work"}, store.Get().CalendarsToSync)
}

func TestStore_PersistWritesFile(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir, nil)
	require.NoError(t, store.Load())

	require.NoError(t, store.Persist())

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}
