// Package server wires the MCP components and creates the server
// instance.
//
// This is the composition root: it creates concrete implementations and
// injects them into the tools, prompts and resources that depend on
// them. No business logic lives here, only wiring.
package server

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/HendryAvila/specsync/internal/config"
	"github.com/HendryAvila/specsync/internal/prompts"
	"github.com/HendryAvila/specsync/internal/reconcile"
	"github.com/HendryAvila/specsync/internal/resources"
	"github.com/HendryAvila/specsync/internal/tools"
)

// Version is set at build time via ldflags.
var Version = "dev"

// New creates the MCP server for the project at root with every tool,
// prompt and resource registered. Closing deps.Cache stays with the
// caller.
func New(root string, cfg *config.Config, deps reconcile.Deps) *server.MCPServer {
	r := reconcile.New(root, cfg, deps)

	s := server.NewMCPServer(
		"specsync",
		Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithPromptCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)

	// --- Tools ---

	checkTool := tools.NewCheckTool(r, cfg.Integrity.Strict)
	s.AddTool(checkTool.Definition(), checkTool.Handle)

	snapshotTool := tools.NewSnapshotTool(r.Guard())
	s.AddTool(snapshotTool.Definition(), snapshotTool.Handle)

	attemptsTool := tools.NewAttemptsTool(r, cfg.AutoFix.MaxAttempts)
	s.AddTool(attemptsTool.Definition(), attemptsTool.Handle)

	// --- Prompts ---

	fixPrompt := prompts.NewFixPrompt(cfg.AutoFix.MaxAttempts)
	s.AddPrompt(fixPrompt.Definition(), fixPrompt.Handle)

	statusPrompt := prompts.NewStatusPrompt()
	s.AddPrompt(statusPrompt.Definition(), statusPrompt.Handle)

	// --- Resources ---

	resourceHandler := resources.NewHandler(cfg, r.Guard(), r.Attempts())
	s.AddResource(resourceHandler.StatusResource(), resourceHandler.HandleStatus)

	return s
}

// serverInstructions tells the AI how to use specsync.
func serverInstructions() string {
	return `You have access to specsync, which keeps Markdown specs and the code that implements them in agreement.

## Specs
Each spec in the specs directory has a "# Title", an optional "## Files" list
and a "## Checks" list of "- [ ] item" lines. specsync marks items [✓] when
the referenced code implements them and [✗] when it does not. After a fully
passing run every item is reset to [ ].

## Workflow
1. Call spec_check with the spec name.
2. PASS: done.
3. FAIL: implement what is listed under "Missing in code", then call
   spec_check again. Every failing call uses one attempt.
4. EXHAUSTED: stop. Explain the remaining gaps to the user. Only reset the
   counter with spec_attempts after the user asks you to.

## Integrity
specsync fingerprints every spec. If a result contains SPEC_TAMPERED, spec
files were edited outside specsync. Do NOT accept the edits yourself with
spec_snapshot action='create'; show the changed files to the user first.
Never edit a spec's Checks section to make a failing item disappear.`
}
