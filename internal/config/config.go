package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	koanfjson "github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// envPrefix namespaces environment overrides, e.g. CALBRIDGE_SYNC_ENABLED.
const envPrefix = "CALBRIDGE_"

// configFileName is the settings file inside the data directory.
const configFileName = "config.json"

// Config holds the sync bridge settings. JSON keys double as koanf keys
// so the same names work in the config file, environment overrides and
// the sync_configure tool.
type Config struct {
	SyncEnabled              bool     `json:"sync_enabled" koanf:"sync_enabled"`
	SyncIntervalHours        int      `json:"sync_interval_hours" koanf:"sync_interval_hours"`
	CalendarsToSync          []string `json:"calendars_to_sync" koanf:"calendars_to_sync"`
	GoogleCalendarID         string   `json:"google_calendar_id" koanf:"google_calendar_id"`
	DaysBack                 int      `json:"days_back" koanf:"days_back"`
	DaysForward              int      `json:"days_forward" koanf:"days_forward"`
	AutoStartSync            bool     `json:"auto_start_sync" koanf:"auto_start_sync"`
	GoogleIntegrationEnabled bool     `json:"google_integration_enabled" koanf:"google_integration_enabled"`
	Timezone                 string   `json:"timezone" koanf:"timezone"`
}

// Default returns the out-of-the-box configuration. Sync stays off until
// the user configures and starts it explicitly.
func Default() Config {
	return Config{
		SyncEnabled:              false,
		SyncIntervalHours:        4,
		CalendarsToSync:          []string{},
		GoogleCalendarID:         "primary",
		DaysBack:                 7,
		DaysForward:              30,
		AutoStartSync:            false,
		GoogleIntegrationEnabled: false,
		Timezone:                 "America/Chicago",
	}
}

// Validate checks the configuration for values the sync engine cannot
// work with.
func (c *Config) Validate() error {
	if c.SyncIntervalHours < 1 {
		return fmt.Errorf("sync_interval_hours must be at least 1, got %d", c.SyncIntervalHours)
	}
	if c.DaysBack < 0 {
		return fmt.Errorf("days_back must be non-negative, got %d", c.DaysBack)
	}
	if c.DaysForward < 0 {
		return fmt.Errorf("days_forward must be non-negative, got %d", c.DaysForward)
	}
	if c.GoogleCalendarID == "" {
		return fmt.Errorf("google_calendar_id cannot be empty")
	}
	if c.Timezone == "" {
		return fmt.Errorf("timezone cannot be empty")
	}
	return nil
}

// Store persists configuration as a JSON file in the data directory and
// serves it to concurrent readers.
type Store struct {
	mu     sync.RWMutex
	path   string
	cfg    Config
	logger *slog.Logger
}

// NewStore creates a Store rooted at the given data directory. Call Load
// before first use.
func NewStore(dataDir string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		path:   filepath.Join(dataDir, configFileName),
		cfg:    Default(),
		logger: logger,
	}
}

// Path returns the location of the config file.
func (s *Store) Path() string {
	return s.path
}

// Load reads configuration in three layers: compiled-in defaults, the
// JSON config file, then CALBRIDGE_* environment variables. A missing
// config file is not an error; the defaults simply stand.
func (s *Store) Load() error {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return fmt.Errorf("failed to load default config: %w", err)
	}

	if err := k.Load(file.Provider(s.path), koanfjson.Parser()); err != nil {
		if os.IsNotExist(err) {
			s.logger.Info("Config file not found, using defaults and environment variables",
				"path", s.path)
		} else {
			return fmt.Errorf("failed to load config file %s: %w", s.path, err)
		}
	} else {
		s.logger.Info("Loaded configuration from file", "path", s.path)
	}

	err := k.Load(env.Provider(".", env.Opt{
		Prefix: envPrefix,
		TransformFunc: func(key, value string) (string, any) {
			// Keys are flat with underscores, so only strip the prefix
			// and lowercase. CALBRIDGE_SYNC_ENABLED -> sync_enabled.
			key = strings.ToLower(strings.TrimPrefix(key, envPrefix))
			if key == "calendars_to_sync" {
				// Comma-separated list in the environment
				return key, splitList(value)
			}
			return key, value
		},
	}), nil)
	if err != nil {
		return fmt.Errorf("failed to load config from environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if cfg.CalendarsToSync == nil {
		cfg.CalendarsToSync = []string{}
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()

	return nil
}

// Get returns a copy of the current configuration.
func (s *Store) Get() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cfg := s.cfg
	cfg.CalendarsToSync = append([]string(nil), s.cfg.CalendarsToSync...)
	return cfg
}

// Update applies a partial update, persists the result, and returns the
// new configuration plus the keys that were applied. Unknown keys are
// rejected so a typo in a tool call cannot silently do nothing.
func (s *Store) Update(updates map[string]any) (Config, []string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg := s.cfg
	cfg.CalendarsToSync = append([]string(nil), s.cfg.CalendarsToSync...)

	applied := make([]string, 0, len(updates))
	for key, value := range updates {
		if err := applyField(&cfg, key, value); err != nil {
			return Config{}, nil, err
		}
		applied = append(applied, key)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if err := persist(s.path, cfg); err != nil {
		return Config{}, nil, err
	}

	s.cfg = cfg
	return cfg, applied, nil
}

// Persist writes the current configuration to disk. Used on first run to
// materialize the defaults so users have a file to edit.
func (s *Store) Persist() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return persist(s.path, s.cfg)
}

// applyField sets a single named field, coercing JSON-decoded values.
// Numbers arrive as float64 from encoding/json and MCP arguments.
func applyField(cfg *Config, key string, value any) error {
	switch key {
	case "sync_enabled":
		return setBool(&cfg.SyncEnabled, key, value)
	case "sync_interval_hours":
		return setInt(&cfg.SyncIntervalHours, key, value)
	case "calendars_to_sync":
		return setStringList(&cfg.CalendarsToSync, key, value)
	case "google_calendar_id":
		return setString(&cfg.GoogleCalendarID, key, value)
	case "days_back":
		return setInt(&cfg.DaysBack, key, value)
	case "days_forward":
		return setInt(&cfg.DaysForward, key, value)
	case "auto_start_sync":
		return setBool(&cfg.AutoStartSync, key, value)
	case "google_integration_enabled":
		return setBool(&cfg.GoogleIntegrationEnabled, key, value)
	case "timezone":
		return setString(&cfg.Timezone, key, value)
	default:
		return fmt.Errorf("unknown configuration key %q", key)
	}
}

func setBool(dst *bool, key string, value any) error {
	v, ok := value.(bool)
	if !ok {
		return fmt.Errorf("%s must be a boolean, got %T", key, value)
	}
	*dst = v
	return nil
}

func setString(dst *string, key string, value any) error {
	v, ok := value.(string)
	if !ok {
		return fmt.Errorf("%s must be a string, got %T", key, value)
	}
	*dst = v
	return nil
}

func setInt(dst *int, key string, value any) error {
	switch v := value.(type) {
	case int:
		*dst = v
	case float64:
		if v != float64(int(v)) {
			return fmt.Errorf("%s must be a whole number, got %v", key, v)
		}
		*dst = int(v)
	default:
		return fmt.Errorf("%s must be a number, got %T", key, value)
	}
	return nil
}

func setStringList(dst *[]string, key string, value any) error {
	switch v := value.(type) {
	case []string:
		*dst = append([]string(nil), v...)
	case []any:
		list := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return fmt.Errorf("%s must contain only strings, got %T", key, item)
			}
			list = append(list, s)
		}
		*dst = list
	case string:
		*dst = splitList(v)
	default:
		return fmt.Errorf("%s must be a list of strings, got %T", key, value)
	}
	return nil
}

// persist writes the configuration as indented JSON with owner-only
// permissions. Calendar names are not secrets but the file lives next to
// OAuth tokens, so the whole directory gets the same treatment.
func persist(path string, cfg Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	list := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			list = append(list, trimmed)
		}
	}
	return list
}

// DefaultDataDir returns the per-user data directory for config, sync
// state and Google credentials.
func DefaultDataDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to determine user config directory: %w", err)
	}
	return filepath.Join(base, "calbridge"), nil
}
