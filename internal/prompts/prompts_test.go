package prompts

import (
	"context"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
)

func promptText(t *testing.T, res *mcp.GetPromptResult) string {
	t.Helper()
	if len(res.Messages) != 1 {
		t.Fatalf("messages = %d, want 1", len(res.Messages))
	}
	tc, ok := res.Messages[0].Content.(mcp.TextContent)
	if !ok {
		t.Fatalf("unexpected content type %T", res.Messages[0].Content)
	}
	return tc.Text
}

func TestFixPrompt_Handle(t *testing.T) {
	p := NewFixPrompt(3)
	req := mcp.GetPromptRequest{}
	req.Params.Arguments = map[string]string{"spec": "auth"}

	res, err := p.Handle(context.Background(), req)
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	text := promptText(t, res)
	for _, want := range []string{"spec='auth'", "at most 3 attempts", "SPEC_TAMPERED", "EXHAUSTED"} {
		if !strings.Contains(text, want) {
			t.Errorf("prompt should contain %q:\n%s", want, text)
		}
	}
	if p.Definition().Name != "spec-fix" {
		t.Errorf("name = %q", p.Definition().Name)
	}
}

func TestFixPrompt_RequiresSpec(t *testing.T) {
	if _, err := NewFixPrompt(5).Handle(context.Background(), mcp.GetPromptRequest{}); err == nil {
		t.Fatal("expected error without spec argument")
	}
}

func TestStatusPrompt_Handle(t *testing.T) {
	res, err := NewStatusPrompt().Handle(context.Background(), mcp.GetPromptRequest{})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if !strings.Contains(promptText(t, res), "specsync://project/status") {
		t.Error("status prompt should point at the status resource")
	}
}
