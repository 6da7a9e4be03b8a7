package icloud_tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/calbridge/calbridge/internal/icloud"
	"github.com/calbridge/calbridge/internal/instrumentation"
	"github.com/calbridge/calbridge/internal/server"
	"github.com/calbridge/calbridge/internal/tools/common"
)

const (
	defaultDaysBack    = 7
	defaultDaysForward = 30
)

// RegisterICloudTools registers the Calendar app read tools with the MCP server
func RegisterICloudTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	// List calendars tool
	listCalendarsTool := mcp.NewTool("icloud_list_calendars",
		mcp.WithDescription("List all calendars available in the macOS Calendar app (iCloud)"),
	)

	s.AddTool(listCalendarsTool, common.InstrumentedToolHandlerWithService(
		"icloud_list_calendars", instrumentation.ServiceICloud, "list_calendars", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleListCalendars(ctx, request, sc)
		}))

	// Get events tool
	getEventsTool := mcp.NewTool("icloud_get_events",
		mcp.WithDescription("Get events from specified iCloud calendars within a date range"),
		mcp.WithString("calendar_names",
			mcp.Required(),
			mcp.Description("Comma-separated list of calendar names to read events from"),
		),
		mcp.WithNumber("days_back",
			mcp.Description("Number of days back from today to include (default: 7)"),
		),
		mcp.WithNumber("days_forward",
			mcp.Description("Number of days forward from today to include (default: 30)"),
		),
	)

	s.AddTool(getEventsTool, common.InstrumentedToolHandlerWithService(
		"icloud_get_events", instrumentation.ServiceICloud, "events", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleGetEvents(ctx, request, sc)
		}))

	return nil
}

func handleListCalendars(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	reader, err := sc.Reader()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Calendar app is not available: %v", err)), nil
	}

	calendars, err := reader.ListCalendars()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list calendars: %v", err)), nil
	}

	payload, err := json.MarshalIndent(calendars, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to encode calendars: %v", err)), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Available iCloud calendars:\n\n%s", payload)), nil
}

func handleGetEvents(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	calendarNames := getStringList(args, "calendar_names")
	if len(calendarNames) == 0 {
		return mcp.NewToolResultError("calendar_names is required"), nil
	}

	daysBack := common.GetIntArg(args, "days_back", defaultDaysBack)
	daysForward := common.GetIntArg(args, "days_forward", defaultDaysForward)

	reader, err := sc.Reader()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Calendar app is not available: %v", err)), nil
	}

	events := make([]icloud.Event, 0)
	for _, name := range calendarNames {
		calEvents, err := reader.Events(name, daysBack, daysForward)
		if err != nil {
			// Unreadable calendars are skipped so one bad name does
			// not hide the rest
			sc.Logger().Warn("failed to read calendar", "calendar", name, "error", err)
			continue
		}
		events = append(events, calEvents...)
	}

	payload, err := json.MarshalIndent(events, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to encode events: %v", err)), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Events from calendars %v:\n\n%s", calendarNames, payload)), nil
}

// getStringList extracts a list argument provided either as a
// comma-separated string or as a JSON array of strings.
func getStringList(args map[string]interface{}, key string) []string {
	switch raw := args[key].(type) {
	case string:
		var out []string
		for _, part := range strings.Split(raw, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		return out
	case []interface{}:
		out := make([]string, 0, len(raw))
		for _, v := range raw {
			if s, ok := v.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
