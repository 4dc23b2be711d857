package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/specsync/internal/report"
	"github.com/HendryAvila/specsync/internal/snapshot"
)

// SnapshotTool handles the spec_snapshot MCP tool.
type SnapshotTool struct {
	guard *snapshot.Guard
}

// NewSnapshotTool creates a SnapshotTool.
func NewSnapshotTool(g *snapshot.Guard) *SnapshotTool {
	return &SnapshotTool{guard: g}
}

// Definition returns the MCP tool definition for registration.
func (t *SnapshotTool) Definition() mcp.Tool {
	return mcp.NewTool("spec_snapshot",
		mcp.WithDescription(
			"Manage the spec integrity snapshot. 'verify' reports spec files changed, added "+
				"or deleted since the snapshot (SPEC_TAMPERED when any differ); 'diff' reports "+
				"only changed files; 'create' accepts the current specs as the new baseline. "+
				"Only call 'create' after the user approved the spec edits.",
		),
		mcp.WithString("action",
			mcp.Required(),
			mcp.Description("One of: verify, diff, create."),
			mcp.Enum("verify", "diff", "create"),
		),
	)
}

// Handle processes the spec_snapshot tool call.
func (t *SnapshotTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	action := req.GetString("action", "")

	switch action {
	case "create":
		snap, err := t.guard.Create(ctx)
		if err != nil {
			return nil, fmt.Errorf("creating snapshot: %w", err)
		}
		return mcp.NewToolResultText(render(func(p *report.Printer) {
			p.Snapshot(snap, t.guard.SnapshotPath())
		})), nil

	case "verify", "diff":
		verify := t.guard.Verify
		if action == "diff" {
			verify = t.guard.Diff
		}
		res, err := verify(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("cannot verify snapshot: %v", err)), nil
		}
		text := render(func(p *report.Printer) { p.Integrity(res) })
		if !res.OK() {
			return mcp.NewToolResultError(text), nil
		}
		return mcp.NewToolResultText(text), nil

	default:
		return mcp.NewToolResultError(fmt.Sprintf("invalid action %q: must be one of verify, diff, create", action)), nil
	}
}
