// Package prompts implements MCP prompt handlers.
//
// MCP prompts are user-triggered workflows (like slash commands) that
// instruct the AI to execute a specific sequence. Unlike tools (which
// the AI calls), prompts are initiated by the user.
package prompts

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// FixPrompt handles the spec-fix MCP prompt: it drives the agent through
// the check → fix loop for one spec.
type FixPrompt struct {
	maxAttempts int
}

// NewFixPrompt creates a FixPrompt.
func NewFixPrompt(maxAttempts int) *FixPrompt {
	return &FixPrompt{maxAttempts: maxAttempts}
}

// Definition returns the MCP prompt definition for registration.
func (p *FixPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("spec-fix",
		mcp.WithPromptDescription(
			"Bring the code in line with a spec. Runs spec_check, implements what is "+
				"missing and repeats until the spec passes or the attempt budget is spent.",
		),
		mcp.WithArgument("spec",
			mcp.RequiredArgument(),
			mcp.ArgumentDescription("Spec name, e.g. 'auth'"),
		),
	)
}

// Handle processes the spec-fix prompt request.
func (p *FixPrompt) Handle(_ context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	spec := req.Params.Arguments["spec"]
	if spec == "" {
		return nil, fmt.Errorf("argument 'spec' is required")
	}

	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Fix loop for spec %s", spec),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(fmt.Sprintf(
					"Make the implementation satisfy the spec '%[1]s'.\n\n"+
						"1. Call `spec_check` with spec='%[1]s'.\n"+
						"2. If the status is PASS, stop and summarize what changed.\n"+
						"3. If it is FAIL, implement every item listed under \"Missing in code\" in the "+
						"files the report names. Do not edit the spec to make items disappear.\n"+
						"4. Call `spec_check` again. You have at most %[2]d attempts.\n"+
						"5. If the status is EXHAUSTED or the result mentions SPEC_TAMPERED, stop and "+
						"explain the situation to me instead of continuing.\n\n"+
						"Behaviour listed under \"Missing in spec\" is informational; ask me before "+
						"calling `spec_check` with append='batch'.",
					spec, p.maxAttempts,
				)),
			},
		},
	}, nil
}

// StatusPrompt handles the spec-status MCP prompt.
type StatusPrompt struct{}

// NewStatusPrompt creates a StatusPrompt.
func NewStatusPrompt() *StatusPrompt {
	return &StatusPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *StatusPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("spec-status",
		mcp.WithPromptDescription(
			"Summarize spec integrity and fix attempt counters for this project.",
		),
	)
}

// Handle processes the spec-status prompt request.
func (p *StatusPrompt) Handle(_ context.Context, _ mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	return &mcp.GetPromptResult{
		Description: "Spec status",
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(
					"Read the `specsync://project/status` resource and call `spec_snapshot` with " +
						"action='verify'.\n\nThen:\n" +
						"1. List every spec with its attempt counter\n" +
						"2. Flag specs that are close to or at their attempt budget\n" +
						"3. If SPEC_TAMPERED is reported, list the changed files and ask me whether to accept them\n",
				),
			},
		},
	}, nil
}
