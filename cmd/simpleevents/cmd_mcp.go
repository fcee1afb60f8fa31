package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/ajitpratap0/simpleevents/internal/mcp"
	"github.com/ajitpratap0/simpleevents/internal/timeline"
)

func mcpCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start the MCP (Model Context Protocol) server over stdio",
		Long: `Starts an MCP JSON-RPC 2.0 server that reads from stdin and writes to stdout.
All diagnostic logs go to stderr so that stdout remains exclusively MCP protocol traffic.

Tools exposed:
  list_timelines, get_timeline, create_timeline, delete_timeline
  create_event, update_event, delete_event
  create_event_type, update_event_type, delete_event_type
  stats

If the store cannot be opened at startup the server still starts;
individual tool calls will return MCP error responses.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := newLogger()

			var svc *timeline.Service
			st, storeErr := newStore(cmd.Context(), logger)
			if storeErr != nil {
				logger.Error("mcp: failed to open store; tool calls will fail", "error", storeErr)
			} else {
				defer func() { _ = st.Close() }()
				svc = newService(st, logger)
			}

			srv := mcp.NewServer(svc, logger)

			// Use a standard log.Logger pointing at stderr for the mcp-go error logger.
			errLogger := log.New(os.Stderr, "mcp: ", log.LstdFlags)

			logger.Info("mcp: simpleevents MCP server starting", "transport", "stdio")

			return mcpserver.ServeStdio(
				srv.MCPServer(),
				mcpserver.WithErrorLogger(errLogger),
			)
		},
	}

	return cmd
}
