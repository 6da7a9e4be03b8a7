package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/calbridge/calbridge/internal/server"
)

func newSyncCmd() *cobra.Command {
	var (
		dryRun    bool
		debugMode bool
		dataDir   string
	)

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run a single sync pass from iCloud to Google Calendar",
		Long: `Read events from the configured iCloud calendars and push new ones to
Google Calendar, then exit. Uses the same configuration and sync state
as the MCP server, so manual runs and scheduled runs never duplicate
events.

With --dry-run the pass reports what would be synced without creating
any Google Calendar events or touching the sync state.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSyncOnce(dryRun, debugMode, dataDir)
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show what would be synced without actually syncing")
	cmd.Flags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
	cmd.Flags().StringVar(&dataDir, "data-dir", "", "Data directory for config, sync state and credentials. Can also use CALBRIDGE_DATA_DIR env var.")

	return cmd
}

func runSyncOnce(dryRun, debugMode bool, dataDir string) error {
	ctx := context.Background()

	logger := newLogger(debugMode)

	resolvedDataDir, err := resolveDataDir(dataDir)
	if err != nil {
		return err
	}

	serverContext, err := server.NewServerContext(ctx, resolvedDataDir, logger)
	if err != nil {
		return fmt.Errorf("failed to create server context: %w", err)
	}
	defer func() {
		_ = serverContext.Shutdown()
	}()

	result, err := serverContext.Engine().RunSync(ctx, dryRun)
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	payload, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode sync result: %w", err)
	}
	fmt.Println(string(payload))

	if !result.Success {
		os.Exit(1)
	}
	return nil
}
