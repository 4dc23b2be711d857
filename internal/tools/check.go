package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/specsync/internal/config"
	"github.com/HendryAvila/specsync/internal/reconcile"
	"github.com/HendryAvila/specsync/internal/report"
	"github.com/HendryAvila/specsync/internal/snapshot"
	"github.com/HendryAvila/specsync/internal/specdoc"
)

// CheckTool handles the spec_check MCP tool. Each call is one attempt
// against the spec's fix budget: the calling agent acts as the fixer.
type CheckTool struct {
	reconciler *reconcile.Reconciler
	strict     bool
}

// NewCheckTool creates a CheckTool. strict is the project default and
// can be overridden per call.
func NewCheckTool(r *reconcile.Reconciler, strict bool) *CheckTool {
	return &CheckTool{reconciler: r, strict: strict}
}

// Definition returns the MCP tool definition for registration.
func (t *CheckTool) Definition() mcp.Tool {
	return mcp.NewTool("spec_check",
		mcp.WithDescription(
			"Reconcile one spec against the code it references. Marks each check item "+
				"✓ or ✗ in the spec file, lists behaviour missing in code and behaviour "+
				"missing in the spec. Every failing call counts as one fix attempt; when the "+
				"budget is spent the status is EXHAUSTED and you must stop and ask the user.",
		),
		mcp.WithString("spec",
			mcp.Required(),
			mcp.Description("Spec name (e.g. 'auth' for specs/auth.md, 'billing/auth' for specs/billing/auth.md) or a path relative to the project root. The spec must live in the specs directory."),
		),
		mcp.WithBoolean("strict",
			mcp.Description("Refuse to run when spec files changed since the last snapshot. Defaults to the project setting."),
		),
		mcp.WithString("append",
			mcp.Description("What to do with behaviour found only in code: 'batch' appends it as unchecked items, 'none' (default) only reports it."),
			mcp.Enum(string(reconcile.AppendBatch), string(reconcile.AppendNone)),
		),
		mcp.WithBoolean("force",
			mcp.Description("Bypass the summary cache."),
		),
	)
}

// Handle processes the spec_check tool call.
func (t *CheckTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := strings.TrimSpace(req.GetString("spec", ""))
	if name == "" {
		return mcp.NewToolResultError("'spec' is required: pass a spec name such as 'auth'"), nil
	}
	appendMode := reconcile.AppendMode(req.GetString("append", string(reconcile.AppendNone)))
	if appendMode != reconcile.AppendBatch && appendMode != reconcile.AppendNone {
		return mcp.NewToolResultError(fmt.Sprintf("invalid append mode %q: must be 'batch' or 'none'", appendMode)), nil
	}
	opts := reconcile.Options{
		Strict: boolArg(req, "strict", t.strict),
		Append: appendMode,
		Force:  boolArg(req, "force", false),
	}

	rep, err := t.reconciler.Run(ctx, name, opts, nil)
	switch {
	case errors.Is(err, reconcile.ErrSpecNotFound), errors.Is(err, config.ErrOutsideSpecsDir):
		return mcp.NewToolResultError(err.Error()), nil
	case errors.Is(err, snapshot.ErrTampered):
		text := err.Error()
		if rep != nil && rep.Integrity != nil {
			text += "\n\n" + render(func(p *report.Printer) { p.Integrity(rep.Integrity) })
		}
		text += "\nReview the spec edits, then run spec_snapshot with action 'create' to accept them."
		return mcp.NewToolResultError(text), nil
	case errors.Is(err, specdoc.ErrNoChecks), errors.Is(err, specdoc.ErrDuplicateChecks), errors.Is(err, specdoc.ErrNoTitle):
		return mcp.NewToolResultError(err.Error()), nil
	case err != nil:
		return nil, fmt.Errorf("checking %s: %w", name, err)
	}

	var sb strings.Builder
	sb.WriteString(render(func(p *report.Printer) { p.Report(rep) }))
	fmt.Fprintf(&sb, "\nexit code: %d\n", rep.ExitCode())
	switch rep.Status {
	case reconcile.StatusFail:
		sb.WriteString("\nNext: implement the missing behaviour (or update the spec), then call spec_check again.\n")
	case reconcile.StatusExhausted:
		sb.WriteString("\nStop: the fix budget is spent. Ask the user to review, then reset it with spec_attempts.\n")
	}
	return mcp.NewToolResultText(sb.String()), nil
}
