package resources

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/calbridge/calbridge/internal/server"
)

// RegisterSyncResources registers read-only resources describing the
// sync bridge: its configuration and the current sync state.
func RegisterSyncResources(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	// Register sync configuration resource
	configResource := mcp.NewResource(
		"sync://config",
		"Sync Configuration",
		mcp.WithResourceDescription("Current iCloud to Google Calendar sync configuration"),
		mcp.WithMIMEType("application/json"),
	)

	s.AddResource(configResource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return handleSyncConfig(ctx, request, sc)
	})

	// Register sync state resource
	stateResource := mcp.NewResource(
		"sync://state",
		"Sync State",
		mcp.WithResourceDescription("Summary of the sync state: synced event count, last sync time and scheduler status"),
		mcp.WithMIMEType("application/json"),
	)

	s.AddResource(stateResource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return handleSyncState(ctx, request, sc)
	})

	return nil
}

// handleSyncConfig returns the active configuration as a JSON document
func handleSyncConfig(ctx context.Context, request mcp.ReadResourceRequest, sc *server.ServerContext) ([]mcp.ResourceContents, error) {
	cfg := sc.ConfigStore().Get()

	jsonData, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal configuration: %w", err)
	}

	return []mcp.ResourceContents{
		&mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: "application/json",
			Text:     string(jsonData),
		},
	}, nil
}

// handleSyncState returns a summary of the sync state
func handleSyncState(ctx context.Context, request mcp.ReadResourceRequest, sc *server.ServerContext) ([]mcp.ResourceContents, error) {
	state := sc.StateStore()

	stateData := map[string]interface{}{
		"synced_events_count": state.Count(),
		"scheduler_running":   sc.Scheduler().Running(),
		"data_directory":      sc.DataDir(),
		"state_file":          state.Path(),
		"last_sync_time":      nil,
	}
	if last := state.LastSyncTime(); last != nil {
		stateData["last_sync_time"] = last.Format(time.RFC3339)
	}

	jsonData, err := json.MarshalIndent(stateData, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal sync state: %w", err)
	}

	return []mcp.ResourceContents{
		&mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: "application/json",
			Text:     string(jsonData),
		},
	}, nil
}
