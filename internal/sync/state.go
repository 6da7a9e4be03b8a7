package sync

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	stdsync "sync"
	"time"

	"github.com/calbridge/calbridge/internal/icloud"
)

// stateFileName is the sync state file inside the data directory.
const stateFileName = "sync_state.json"

// Record stores what is known about one pushed event.
type Record struct {
	SyncedAt      string       `json:"synced_at"`
	GoogleEventID string       `json:"google_event_id"`
	OriginalEvent icloud.Event `json:"original_event"`
}

// stateFile is the on-disk shape of the whole store.
type stateFile struct {
	Events       map[string]Record `json:"events"`
	LastSyncTime *time.Time        `json:"last_sync_time"`
}

// StateStore is the durable fingerprint-to-record mapping that makes
// repeated sync passes idempotent. It is held in memory and rewritten
// wholesale on Persist; there is no incremental write. A crash between
// a successful push and Persist loses the marker and the event is
// pushed again next pass, which makes the bridge at-least-once rather
// than exactly-once.
type StateStore struct {
	mu           stdsync.RWMutex
	path         string
	events       map[string]Record
	lastSyncTime *time.Time
	logger       *slog.Logger
}

// NewStateStore creates a StateStore rooted at the given data directory.
// Call Load before first use.
func NewStateStore(dataDir string, logger *slog.Logger) *StateStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &StateStore{
		path:   filepath.Join(dataDir, stateFileName),
		events: make(map[string]Record),
		logger: logger,
	}
}

// Path returns the location of the state file.
func (s *StateStore) Path() string {
	return s.path
}

// Load reads the state file. A missing file means a fresh store, not an
// error.
func (s *StateStore) Load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.logger.Info("Sync state file not found, starting fresh", "path", s.path)
			return nil
		}
		return fmt.Errorf("failed to read sync state file %s: %w", s.path, err)
	}

	var file stateFile
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse sync state file %s: %w", s.path, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if file.Events != nil {
		s.events = file.Events
	} else {
		s.events = make(map[string]Record)
	}
	s.lastSyncTime = file.LastSyncTime

	s.logger.Info("Loaded sync state", "path", s.path, "synced_events", len(s.events))
	return nil
}

// Persist rewrites the state file. Called once per sync pass, not once
// per event.
func (s *StateStore) Persist() error {
	s.mu.RLock()
	file := stateFile{
		Events:       s.events,
		LastSyncTime: s.lastSyncTime,
	}
	data, err := json.MarshalIndent(file, "", "  ")
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to marshal sync state: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	// Write to a temp file in the same directory and rename over the
	// state file, so a crash mid-write cannot leave a truncated file.
	tmp, err := os.CreateTemp(dir, stateFileName+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp state file: %w", err)
	}
	tmpPath := tmp.Name()

	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to set state file permissions: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write sync state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close sync state file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace sync state file: %w", err)
	}

	return nil
}

// IsSynced reports whether the fingerprint has a sync record.
func (s *StateStore) IsSynced(fingerprint string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.events[fingerprint]
	return ok
}

// MarkSynced records a successful push. In-memory only; call Persist to
// commit.
func (s *StateStore) MarkSynced(fingerprint, googleEventID string, original icloud.Event, syncedAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[fingerprint] = Record{
		SyncedAt:      syncedAt.Format(time.RFC3339),
		GoogleEventID: googleEventID,
		OriginalEvent: original,
	}
}

// Clear drops all sync records and the last sync time. In-memory only;
// call Persist to commit. The confirmation gate lives at the tool
// boundary, not here.
func (s *StateStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = make(map[string]Record)
	s.lastSyncTime = nil
}

// Count returns the number of sync records.
func (s *StateStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

// LastSyncTime returns the time of the last completed pass, or nil if
// none has completed since the last reset.
func (s *StateStore) LastSyncTime() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lastSyncTime == nil {
		return nil
	}
	t := *s.lastSyncTime
	return &t
}

// SetLastSyncTime records the completion time of a pass. In-memory only;
// call Persist to commit.
func (s *StateStore) SetLastSyncTime(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSyncTime = &t
}
