// Package tools implements the MCP tool handlers that expose spec
// reconciliation to an AI agent.
//
// Each tool receives its dependencies via its struct and returns a
// handler compatible with mcp-go's CallToolRequest signature. User
// mistakes (unknown spec, tampered snapshot) become tool errors; only
// infrastructure failures are returned as Go errors.
package tools

import (
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/specsync/internal/report"
)

// boolArg extracts a boolean argument from a tool request.
func boolArg(req mcp.CallToolRequest, key string, defaultVal bool) bool {
	v, ok := req.GetArguments()[key].(bool)
	if !ok {
		return defaultVal
	}
	return v
}

// render captures Printer output as plain text.
func render(fn func(p *report.Printer)) string {
	var sb strings.Builder
	fn(report.New(&sb))
	return sb.String()
}
