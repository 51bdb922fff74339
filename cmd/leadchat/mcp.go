package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/greenoffice/leadchat"
	"github.com/greenoffice/leadchat/pkg/adapters/mcp"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Exposes the knowledge base, the questionnaire and scoring to AI agents as MCP tools.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		transport, _ := cmd.Flags().GetString("transport")
		port, _ := cmd.Flags().GetInt("port")
		if transport != "stdio" && transport != "sse" {
			return fmt.Errorf("unknown transport: %s. Supported: stdio, sse", transport)
		}

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		// Logs already go to stderr; on stdio keep them to warnings so agents see clean output.
		var opts []leadchat.Option
		if transport == "stdio" {
			opts = append(opts, leadchat.WithLogger(quietLogger(cmd, cfg)))
		}
		app, err := leadchat.New(cmd.Context(), cfg, opts...)
		if err != nil {
			return err
		}
		defer app.Close()

		srv := mcp.NewServer(app.Service, mcp.WithLogger(app.Logger), mcp.WithVersion(leadchat.Version))

		if transport == "stdio" {
			app.Logger.Info("Starting leadchat MCP server (stdio)")
			return srv.ServeStdio()
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		app.Logger.Info("Starting leadchat MCP server (SSE)", "port", port)
		if err := srv.ServeSSE(ctx, port); err != nil {
			return err
		}
		app.Logger.Info("MCP server stopped gracefully")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().String("transport", "stdio", "Transport protocol to use: 'stdio' or 'sse'")
	mcpCmd.Flags().Int("port", 8080, "Port to listen on (only for SSE)")
}
