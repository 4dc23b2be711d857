package main

import (
	"fmt"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	sserver "github.com/HendryAvila/specsync/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the MCP server on stdio",
	Long: `Run the MCP server on stdio, exposing spec_check, spec_snapshot and
spec_attempts to an AI agent. Logs go to stderr; stdout carries the protocol.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	root, cfg, err := loadProject()
	if err != nil {
		return err
	}
	deps, cleanup := buildDeps(cmd.Context(), root, cfg)
	defer cleanup()

	s := sserver.New(root, cfg, deps)
	if err := server.ServeStdio(s); err != nil {
		return fmt.Errorf("serving MCP: %w", err)
	}
	return nil
}
