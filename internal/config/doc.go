// Package config manages the persisted settings of the sync bridge.
//
// Configuration is layered: compiled-in defaults, then the JSON config
// file in the data directory, then CALBRIDGE_* environment variables.
// Runtime updates through the sync_configure tool are applied to known
// keys only and written back to the file, so they survive restarts.
package config
