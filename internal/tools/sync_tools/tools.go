package sync_tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/calbridge/calbridge/internal/config"
	"github.com/calbridge/calbridge/internal/server"
	"github.com/calbridge/calbridge/internal/tools/common"
)

// RegisterSyncTools registers the sync control tools with the MCP server
func RegisterSyncTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	// Configure tool
	configureTool := mcp.NewTool("sync_configure",
		mcp.WithDescription("Configure sync settings including enabled calendars and intervals"),
		mcp.WithBoolean("sync_enabled",
			mcp.Description("Enable or disable automatic sync"),
		),
		mcp.WithNumber("sync_interval_hours",
			mcp.Description("Hours between automatic syncs"),
		),
		mcp.WithString("calendars_to_sync",
			mcp.Description("Comma-separated list of iCloud calendar names to sync"),
		),
		mcp.WithString("google_calendar_id",
			mcp.Description("Target Google Calendar ID (use 'primary' for the primary calendar)"),
		),
		mcp.WithNumber("days_back",
			mcp.Description("Days back to sync"),
		),
		mcp.WithNumber("days_forward",
			mcp.Description("Days forward to sync"),
		),
		mcp.WithBoolean("auto_start_sync",
			mcp.Description("Auto-start the sync scheduler on server startup"),
		),
		mcp.WithBoolean("google_integration_enabled",
			mcp.Description("Mark the Google Calendar integration as enabled"),
		),
		mcp.WithString("timezone",
			mcp.Description("IANA timezone for timed events, e.g. America/Chicago"),
		),
	)

	s.AddTool(configureTool, common.InstrumentedToolHandler(
		"sync_configure", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleConfigure(ctx, request, sc)
		}))

	// Start scheduler tool
	startTool := mcp.NewTool("sync_start",
		mcp.WithDescription("Start the automatic sync scheduler"),
	)

	s.AddTool(startTool, common.InstrumentedToolHandler(
		"sync_start", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleStart(ctx, request, sc)
		}))

	// Stop scheduler tool
	stopTool := mcp.NewTool("sync_stop",
		mcp.WithDescription("Stop the automatic sync scheduler"),
	)

	s.AddTool(stopTool, common.InstrumentedToolHandler(
		"sync_stop", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleStop(ctx, request, sc)
		}))

	// Manual sync tool
	runTool := mcp.NewTool("sync_run",
		mcp.WithDescription("Run sync immediately with optional dry-run mode"),
		mcp.WithBoolean("dry_run",
			mcp.Description("If true, show what would be synced without actually syncing (default: false)"),
		),
	)

	s.AddTool(runTool, common.InstrumentedToolHandler(
		"sync_run", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleRun(ctx, request, sc)
		}))

	// Status tool
	statusTool := mcp.NewTool("sync_status",
		mcp.WithDescription("Get current sync status and statistics"),
	)

	s.AddTool(statusTool, common.InstrumentedToolHandler(
		"sync_status", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleStatus(ctx, request, sc)
		}))

	// Reset state tool
	resetTool := mcp.NewTool("sync_reset_state",
		mcp.WithDescription("Reset sync state - all events will be treated as new on next sync"),
		mcp.WithBoolean("confirm",
			mcp.Required(),
			mcp.Description("Must be true to confirm the reset"),
		),
	)

	s.AddTool(resetTool, common.InstrumentedToolHandler(
		"sync_reset_state", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleResetState(ctx, request, sc)
		}))

	return nil
}

func handleConfigure(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	if len(args) == 0 {
		return mcp.NewToolResultError("No configuration keys provided"), nil
	}

	cfg, applied, err := sc.ConfigStore().Update(args)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to update configuration: %v", err)), nil
	}

	sc.Logger().Info("sync configuration updated", "keys", applied)

	payload, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to encode configuration: %v", err)), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Sync configuration updated:\n\n%s", payload)), nil
}

func handleStart(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	cfg := sc.ConfigStore().Get()

	if sc.Scheduler().Running() {
		return mcp.NewToolResultText("Sync scheduler is already running."), nil
	}

	if err := sc.Scheduler().Start(cfg.SyncIntervalHours); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to start sync scheduler: %v", err)), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf(
		"Automatic sync scheduler started. Sync will run every %d hours.", cfg.SyncIntervalHours)), nil
}

func handleStop(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	sc.Scheduler().Stop()
	return mcp.NewToolResultText("Automatic sync scheduler stopped."), nil
}

func handleRun(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	dryRun := common.GetBoolArg(args, "dry_run", false)

	result, err := sc.Engine().RunSync(ctx, dryRun)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Sync failed: %v", err)), nil
	}

	payload, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to encode sync result: %v", err)), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Manual sync result:\n\n%s", payload)), nil
}

// syncStatus is the sync_status response payload. Field order matches
// the rendered JSON so the output reads top-down from settings to
// derived schedule times.
type syncStatus struct {
	SyncEnabled                 bool          `json:"sync_enabled"`
	SyncRunning                 bool          `json:"sync_running"`
	LastSyncTime                *string       `json:"last_sync_time"`
	SyncedEventsCount           int           `json:"synced_events_count"`
	SyncIntervalHours           int           `json:"sync_interval_hours"`
	CalendarsToSync             []string      `json:"calendars_to_sync"`
	GoogleCalendarID            string        `json:"google_calendar_id"`
	GoogleIntegrationAvailable  bool          `json:"google_integration_available"`
	GoogleIntegrationConfigured bool          `json:"google_integration_configured"`
	DataDirectory               string        `json:"data_directory"`
	Config                      config.Config `json:"config"`
	NextSyncTime                string        `json:"next_sync_time,omitempty"`
	TimeUntilNextSyncHours      *float64      `json:"time_until_next_sync_hours,omitempty"`
}

func handleStatus(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	cfg := sc.ConfigStore().Get()
	state := sc.StateStore()

	status := syncStatus{
		SyncEnabled:                 cfg.SyncEnabled,
		SyncRunning:                 sc.Scheduler().Running(),
		SyncedEventsCount:           state.Count(),
		SyncIntervalHours:           cfg.SyncIntervalHours,
		CalendarsToSync:             cfg.CalendarsToSync,
		GoogleCalendarID:            cfg.GoogleCalendarID,
		GoogleIntegrationAvailable:  sc.Credentials().HasCredentials(),
		GoogleIntegrationConfigured: sc.Credentials().HasToken(),
		DataDirectory:               sc.DataDir(),
		Config:                      cfg,
	}

	if last := state.LastSyncTime(); last != nil {
		formatted := last.Format(time.RFC3339)
		status.LastSyncTime = &formatted

		nextSync := last.Add(time.Duration(cfg.SyncIntervalHours) * time.Hour)
		status.NextSyncTime = nextSync.Format(time.RFC3339)
		hours := time.Until(nextSync).Hours()
		status.TimeUntilNextSyncHours = &hours
	}

	payload, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to encode sync status: %v", err)), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Current sync status:\n\n%s", payload)), nil
}

func handleResetState(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	if !common.GetBoolArg(args, "confirm", false) {
		return mcp.NewToolResultText("Reset not confirmed. Set 'confirm' to true to reset sync state."), nil
	}

	state := sc.StateStore()
	state.Clear()
	if err := state.Persist(); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to persist reset state: %v", err)), nil
	}

	return mcp.NewToolResultText("Sync state reset. All events will be considered new on next sync."), nil
}
