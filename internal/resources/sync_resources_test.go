package resources

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/calbridge/calbridge/internal/server"
)

func newTestServerContext(t *testing.T) *server.ServerContext {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sc, err := server.NewServerContext(context.Background(), t.TempDir(), logger)
	if err != nil {
		t.Fatalf("Failed to create server context: %v", err)
	}
	t.Cleanup(func() { _ = sc.Shutdown() })
	return sc
}

func readResourceJSON(t *testing.T, contents []mcp.ResourceContents) map[string]interface{} {
	t.Helper()
	if len(contents) != 1 {
		t.Fatalf("expected one resource content, got %d", len(contents))
	}
	tc, ok := contents[0].(*mcp.TextResourceContents)
	if !ok {
		t.Fatalf("expected text resource contents, got %T", contents[0])
	}
	var payload map[string]interface{}
	if err := json.Unmarshal([]byte(tc.Text), &payload); err != nil {
		t.Fatalf("failed to decode resource JSON: %v", err)
	}
	return payload
}

func TestRegisterSyncResources(t *testing.T) {
	sc := newTestServerContext(t)

	mcpSrv := mcpserver.NewMCPServer("test-server", "1.0.0",
		mcpserver.WithResourceCapabilities(true, true),
	)

	if err := RegisterSyncResources(mcpSrv, sc); err != nil {
		t.Errorf("RegisterSyncResources() error = %v", err)
	}
}

func TestHandleSyncConfig(t *testing.T) {
	sc := newTestServerContext(t)

	request := mcp.ReadResourceRequest{}
	request.Params.URI = "sync://config"

	contents, err := handleSyncConfig(context.Background(), request, sc)
	if err != nil {
		t.Fatalf("handleSyncConfig() error = %v", err)
	}

	payload := readResourceJSON(t, contents)
	if payload["google_calendar_id"] != "primary" {
		t.Errorf("google_calendar_id = %v, want primary", payload["google_calendar_id"])
	}
	if payload["sync_interval_hours"] != float64(4) {
		t.Errorf("sync_interval_hours = %v, want 4", payload["sync_interval_hours"])
	}
}

func TestHandleSyncState(t *testing.T) {
	sc := newTestServerContext(t)

	request := mcp.ReadResourceRequest{}
	request.Params.URI = "sync://state"

	contents, err := handleSyncState(context.Background(), request, sc)
	if err != nil {
		t.Fatalf("handleSyncState() error = %v", err)
	}

	payload := readResourceJSON(t, contents)
	if payload["synced_events_count"] != float64(0) {
		t.Errorf("synced_events_count = %v, want 0", payload["synced_events_count"])
	}
	if payload["scheduler_running"] != false {
		t.Error("expected scheduler_running false")
	}
	if payload["last_sync_time"] != nil {
		t.Error("expected null last_sync_time before any sync")
	}
}
