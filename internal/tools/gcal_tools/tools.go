package gcal_tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/calbridge/calbridge/internal/instrumentation"
	"github.com/calbridge/calbridge/internal/server"
	"github.com/calbridge/calbridge/internal/tools/common"
)

// RegisterGcalTools registers the Google Calendar tools with the MCP server
func RegisterGcalTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	// List calendars tool
	listCalendarsTool := mcp.NewTool("gcal_list_calendars",
		mcp.WithDescription("List all Google Calendar calendars accessible to the authorized account"),
	)

	s.AddTool(listCalendarsTool, common.InstrumentedToolHandlerWithService(
		"gcal_list_calendars", instrumentation.ServiceGoogle, "list_calendars", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleListCalendars(ctx, request, sc)
		}))

	// Setup integration tool
	setupTool := mcp.NewTool("gcal_setup_integration",
		mcp.WithDescription("Store Google OAuth client credentials (the credentials.json content from Google Cloud Console) to enable Google Calendar integration"),
		mcp.WithString("credentials_json",
			mcp.Required(),
			mcp.Description("The OAuth client credentials JSON downloaded from Google Cloud Console"),
		),
	)

	s.AddTool(setupTool, common.InstrumentedToolHandler(
		"gcal_setup_integration", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleSetupIntegration(ctx, request, sc)
		}))

	// Save authorization code tool
	saveAuthCodeTool := mcp.NewTool("gcal_save_auth_code",
		mcp.WithDescription("Save the OAuth authorization code to complete Google Calendar authentication"),
		mcp.WithString("code",
			mcp.Required(),
			mcp.Description("The authorization code from Google OAuth"),
		),
	)

	s.AddTool(saveAuthCodeTool, common.InstrumentedToolHandler(
		"gcal_save_auth_code", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleSaveAuthCode(ctx, request, sc)
		}))

	return nil
}

func handleListCalendars(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	client, err := sc.GcalClient(ctx)
	if err != nil {
		return mcp.NewToolResultError(authHelp(sc, err)), nil
	}

	calendars, err := client.ListCalendars(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list Google calendars: %v", err)), nil
	}

	payload, err := json.MarshalIndent(calendars, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to encode calendars: %v", err)), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Available Google calendars:\n\n%s", payload)), nil
}

func handleSetupIntegration(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	credentialsJSON, ok := args["credentials_json"].(string)
	if !ok || credentialsJSON == "" {
		return mcp.NewToolResultError("credentials_json is required"), nil
	}

	if err := sc.Credentials().SaveCredentials(credentialsJSON); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to save credentials: %v", err)), nil
	}

	authURL, err := sc.Credentials().GetAuthURL()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Credentials saved but building the authorization URL failed: %v", err)), nil
	}

	result := fmt.Sprintf(`Google Calendar credentials saved. To complete authorization:

1. Visit this URL in your browser:
   %s

2. Sign in with your Google account
3. Grant access to Google Calendar
4. Copy the authorization code

5. Call the gcal_save_auth_code tool with the code to complete authentication`, authURL)

	return mcp.NewToolResultText(result), nil
}

func handleSaveAuthCode(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	code, ok := args["code"].(string)
	if !ok || code == "" {
		return mcp.NewToolResultError("code is required"), nil
	}

	if err := sc.Credentials().SaveToken(ctx, code); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to save authorization code: %v", err)), nil
	}

	// Drop any stale cached client so the fresh token takes effect
	sc.ResetGcalClient()

	return mcp.NewToolResultText("Authorization successful. Google Calendar token saved; sync can now push events."), nil
}

// authHelp turns a client construction error into guidance for the
// gcal_setup_integration / gcal_save_auth_code flow.
func authHelp(sc *server.ServerContext, err error) string {
	if !sc.Credentials().HasCredentials() {
		return "Google Calendar integration is not configured. Call gcal_setup_integration with your OAuth client credentials JSON first."
	}
	if !sc.Credentials().HasToken() {
		return "Google Calendar is not authorized yet. Call gcal_setup_integration to get the authorization URL, then gcal_save_auth_code with the code."
	}
	return fmt.Sprintf("Failed to create Google Calendar client: %v", err)
}
