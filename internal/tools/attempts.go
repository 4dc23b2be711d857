package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/specsync/internal/autofix"
	"github.com/HendryAvila/specsync/internal/config"
	"github.com/HendryAvila/specsync/internal/reconcile"
	"github.com/HendryAvila/specsync/internal/report"
)

// AttemptsTool handles the spec_attempts MCP tool.
type AttemptsTool struct {
	reconciler  *reconcile.Reconciler
	store       autofix.StateStore
	maxAttempts int
}

// NewAttemptsTool creates an AttemptsTool over the reconciler's counters.
func NewAttemptsTool(r *reconcile.Reconciler, maxAttempts int) *AttemptsTool {
	if maxAttempts <= 0 {
		maxAttempts = config.DefaultMaxAttempts
	}
	return &AttemptsTool{reconciler: r, store: r.Attempts(), maxAttempts: maxAttempts}
}

// Definition returns the MCP tool definition for registration.
func (t *AttemptsTool) Definition() mcp.Tool {
	return mcp.NewTool("spec_attempts",
		mcp.WithDescription(
			"Show or reset the fix attempt counter of a spec. Reset only after the user "+
				"reviewed an EXHAUSTED spec and asked to try again.",
		),
		mcp.WithString("spec",
			mcp.Required(),
			mcp.Description("Spec name, e.g. 'auth' or 'billing/auth' for specs/billing/auth.md."),
		),
		mcp.WithString("action",
			mcp.Description("'show' (default) or 'reset'."),
			mcp.Enum("show", "reset"),
		),
	)
}

// Handle processes the spec_attempts tool call.
func (t *AttemptsTool) Handle(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ref := strings.TrimSpace(req.GetString("spec", ""))
	if ref == "" {
		return mcp.NewToolResultError("'spec' is required"), nil
	}
	spec, err := t.reconciler.SpecName(ref)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	switch action := req.GetString("action", "show"); action {
	case "reset":
		if err := t.store.Reset(spec); err != nil {
			return nil, fmt.Errorf("resetting attempts for %s: %w", spec, err)
		}
		return mcp.NewToolResultText(fmt.Sprintf("%s: attempt counter reset (0/%d)\n", spec, t.maxAttempts)), nil
	case "show":
		st, err := t.store.Load(spec)
		if err != nil {
			return nil, fmt.Errorf("loading attempts for %s: %w", spec, err)
		}
		return mcp.NewToolResultText(render(func(p *report.Printer) { p.Attempts(st, t.maxAttempts) })), nil
	default:
		return mcp.NewToolResultError(fmt.Sprintf("invalid action %q: must be 'show' or 'reset'", action)), nil
	}
}
