package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/exmap/exmap-mcp/internal/mcp"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server on stdio",
	Long: `Start the exmap MCP server. It listens on stdin for MCP protocol
messages and writes responses to stdout; all logging goes to stderr.

Configure it in an MCP client as:

  {"mcpServers": {"exmap": {"command": "exmap", "args": ["serve"]}}}`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	env, err := newEnvironment()
	if err != nil {
		return err
	}
	defer env.cleanup()

	server := mcp.NewServer(env.svc, env.log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		env.log.Info("mcp server ready, listening on stdio", "version", version)
		errChan <- server.Serve(ctx)
	}()

	select {
	case sig := <-sigChan:
		env.log.Info("shutting down", "signal", sig.String())
		cancel()
	case err := <-errChan:
		if err != nil {
			return err
		}
	}

	env.log.Info("server stopped")
	return nil
}
