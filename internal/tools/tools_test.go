package tools

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/specsync/internal/autofix"
	"github.com/HendryAvila/specsync/internal/config"
	"github.com/HendryAvila/specsync/internal/reconcile"
	"github.com/HendryAvila/specsync/internal/snapshot"
)

// --- Test helpers ---

// setupTestProject creates a temp project with the given files and
// returns its root, config and reconciler.
func setupTestProject(t *testing.T, files map[string]string) (string, *config.Config, *reconcile.Reconciler) {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("setup: mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("setup: write %s: %v", rel, err)
		}
	}
	cfg := config.Default()
	cfg.AutoFix.MaxAttempts = 2
	return root, cfg, reconcile.New(root, cfg, reconcile.Deps{})
}

func callRequest(args map[string]interface{}) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

// isErrorResult checks if the result is a tool error.
func isErrorResult(result *mcp.CallToolResult) bool {
	return result != nil && result.IsError
}

// getResultText extracts the text content from a CallToolResult.
func getResultText(result *mcp.CallToolResult) string {
	if result == nil || len(result.Content) == 0 {
		return ""
	}
	for _, c := range result.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

const passingSpec = "# Runner\n## Files\n- run.go\n## Checks\n- [ ] Run function should handle its responsibilities correctly\n"
const failingSpec = "# Runner\n## Files\n- run.go\n## Checks\n- [ ] log validation errors\n"

// --- CheckTool ---

func TestCheckTool_Handle_Pass(t *testing.T) {
	_, _, r := setupTestProject(t, map[string]string{
		"specs/runner.md": passingSpec,
		"run.go":          "package x\n\nfunc Run() {}\n",
	})
	tool := NewCheckTool(r, false)

	result, err := tool.Handle(context.Background(), callRequest(map[string]interface{}{"spec": "runner"}))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if isErrorResult(result) {
		t.Fatalf("expected success, got error: %s", getResultText(result))
	}
	text := getResultText(result)
	for _, want := range []string{"PASS", "exit code: 0", "Runner"} {
		if !strings.Contains(text, want) {
			t.Errorf("result should contain %q, got:\n%s", want, text)
		}
	}
}

func TestCheckTool_Handle_FailThenExhausted(t *testing.T) {
	_, _, r := setupTestProject(t, map[string]string{
		"specs/runner.md": failingSpec,
		"run.go":          "package x\n",
	})
	tool := NewCheckTool(r, false)
	req := callRequest(map[string]interface{}{"spec": "runner"})

	for i := 0; i < 2; i++ {
		result, err := tool.Handle(context.Background(), req)
		if err != nil {
			t.Fatalf("Handle failed: %v", err)
		}
		text := getResultText(result)
		if !strings.Contains(text, "FAIL") || !strings.Contains(text, "exit code: 1") {
			t.Fatalf("attempt %d: expected FAIL, got:\n%s", i+1, text)
		}
		if !strings.Contains(text, "log validation errors") {
			t.Errorf("missing-in-code item not listed:\n%s", text)
		}
	}

	result, err := tool.Handle(context.Background(), req)
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	text := getResultText(result)
	if !strings.Contains(text, "EXHAUSTED") || !strings.Contains(text, "exit code: 2") {
		t.Errorf("expected EXHAUSTED, got:\n%s", text)
	}
}

func TestCheckTool_Handle_UserErrors(t *testing.T) {
	_, _, r := setupTestProject(t, map[string]string{
		"specs/empty.md": "# Empty\n",
		"docs/login.md":  failingSpec,
	})
	tool := NewCheckTool(r, false)

	tests := []struct {
		name string
		args map[string]interface{}
		want string
	}{
		{"missing spec arg", map[string]interface{}{}, "'spec' is required"},
		{"unknown spec", map[string]interface{}{"spec": "ghost"}, "spec not found"},
		{"no checks", map[string]interface{}{"spec": "empty"}, "no Checks section"},
		{"outside specs dir", map[string]interface{}{"spec": "docs/login.md"}, "outside the specs directory"},
		{"bad append", map[string]interface{}{"spec": "empty", "append": "interactive"}, "invalid append mode"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := tool.Handle(context.Background(), callRequest(tt.args))
			if err != nil {
				t.Fatalf("user errors must not be Go errors: %v", err)
			}
			if !isErrorResult(result) {
				t.Fatalf("expected tool error, got: %s", getResultText(result))
			}
			if !strings.Contains(getResultText(result), tt.want) {
				t.Errorf("error should contain %q, got: %s", tt.want, getResultText(result))
			}
		})
	}
}

func TestCheckTool_Handle_StrictTampered(t *testing.T) {
	root, _, r := setupTestProject(t, map[string]string{
		"specs/runner.md": passingSpec,
		"run.go":          "package x\n\nfunc Run() {}\n",
	})
	if _, err := r.Guard().Create(context.Background()); err != nil {
		t.Fatalf("create snapshot: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "specs", "runner.md"), []byte(passingSpec+"- [ ] new item\n"), 0o644); err != nil {
		t.Fatalf("edit spec: %v", err)
	}

	tool := NewCheckTool(r, true)
	result, err := tool.Handle(context.Background(), callRequest(map[string]interface{}{"spec": "runner"}))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if !isErrorResult(result) {
		t.Fatal("expected tool error for tampered specs in strict mode")
	}
	text := getResultText(result)
	if !strings.Contains(text, snapshot.TamperMarker) || !strings.Contains(text, "specs/runner.md") {
		t.Errorf("expected tamper marker and file, got:\n%s", text)
	}

	// strict=false per call overrides the project default.
	result, err = tool.Handle(context.Background(), callRequest(map[string]interface{}{"spec": "runner", "strict": false}))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if isErrorResult(result) {
		t.Fatalf("non-strict call should run, got: %s", getResultText(result))
	}
}

func TestCheckTool_Handle_BatchAppend(t *testing.T) {
	root, _, r := setupTestProject(t, map[string]string{
		"specs/runner.md": passingSpec,
		"run.go":          "package x\n\nfunc Run() {}\n\nfunc Stop() {}\n",
	})
	tool := NewCheckTool(r, false)

	result, err := tool.Handle(context.Background(), callRequest(map[string]interface{}{"spec": "runner", "append": "batch"}))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if !strings.Contains(getResultText(result), "(appended)") {
		t.Errorf("expected appended marker, got:\n%s", getResultText(result))
	}
	data, err := os.ReadFile(filepath.Join(root, "specs", "runner.md"))
	if err != nil {
		t.Fatalf("read spec: %v", err)
	}
	if !strings.Contains(string(data), "- [ ] Stop function should handle its responsibilities correctly") {
		t.Errorf("spec should contain appended item, got:\n%s", data)
	}
}

// --- SnapshotTool ---

func TestSnapshotTool_Handle(t *testing.T) {
	root, _, r := setupTestProject(t, map[string]string{
		"specs/a.md": "# A\n## Checks\n- [ ] x\n",
	})
	tool := NewSnapshotTool(r.Guard())
	ctx := context.Background()

	result, err := tool.Handle(ctx, callRequest(map[string]interface{}{"action": "create"}))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !strings.Contains(getResultText(result), "1 spec files") {
		t.Errorf("create result: %s", getResultText(result))
	}

	result, _ = tool.Handle(ctx, callRequest(map[string]interface{}{"action": "verify"}))
	if isErrorResult(result) {
		t.Fatalf("verify after create should pass: %s", getResultText(result))
	}

	if err := os.WriteFile(filepath.Join(root, "specs", "a.md"), []byte("# A\n## Checks\n- [ ] y\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "specs", "b.md"), []byte("# B\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	result, _ = tool.Handle(ctx, callRequest(map[string]interface{}{"action": "verify"}))
	if !isErrorResult(result) {
		t.Fatal("verify should fail after edits")
	}
	text := getResultText(result)
	if !strings.Contains(text, snapshot.TamperMarker) || !strings.Contains(text, "added   specs/b.md") {
		t.Errorf("verify result:\n%s", text)
	}

	result, _ = tool.Handle(ctx, callRequest(map[string]interface{}{"action": "diff"}))
	text = getResultText(result)
	if !strings.Contains(text, "changed specs/a.md") || strings.Contains(text, "specs/b.md") {
		t.Errorf("diff should only list changed files:\n%s", text)
	}

	result, _ = tool.Handle(ctx, callRequest(map[string]interface{}{"action": "explode"}))
	if !isErrorResult(result) {
		t.Error("unknown action should be a tool error")
	}
}

// --- AttemptsTool ---

func TestAttemptsTool_Handle(t *testing.T) {
	_, _, r := setupTestProject(t, nil)
	store := r.Attempts()
	if err := store.Save(autofix.AttemptState{Spec: "auth", Count: 3}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	tool := NewAttemptsTool(r, 5)
	ctx := context.Background()

	result, err := tool.Handle(ctx, callRequest(map[string]interface{}{"spec": "auth"}))
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	if !strings.Contains(getResultText(result), "auth: attempt 3/5") {
		t.Errorf("show result: %s", getResultText(result))
	}

	result, err = tool.Handle(ctx, callRequest(map[string]interface{}{"spec": "auth.md", "action": "reset"}))
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if !strings.Contains(getResultText(result), "reset (0/5)") {
		t.Errorf("reset result: %s", getResultText(result))
	}
	st, err := store.Load("auth")
	if err != nil {
		t.Fatal(err)
	}
	if st.Count != 0 {
		t.Errorf("count after reset = %d, want 0", st.Count)
	}

	result, _ = tool.Handle(ctx, callRequest(map[string]interface{}{}))
	if !isErrorResult(result) {
		t.Error("missing spec should be a tool error")
	}
	result, _ = tool.Handle(ctx, callRequest(map[string]interface{}{"spec": "auth", "action": "bump"}))
	if !isErrorResult(result) {
		t.Error("unknown action should be a tool error")
	}
	result, _ = tool.Handle(ctx, callRequest(map[string]interface{}{"spec": "../outside", "action": "reset"}))
	if !isErrorResult(result) {
		t.Error("a spec outside the specs directory should be a tool error")
	}
}

func TestAttemptsTool_NestedSpecsAreDistinct(t *testing.T) {
	_, _, r := setupTestProject(t, nil)
	if err := r.Attempts().Save(autofix.AttemptState{Spec: "billing/auth", Count: 2}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	tool := NewAttemptsTool(r, 5)
	ctx := context.Background()

	result, _ := tool.Handle(ctx, callRequest(map[string]interface{}{"spec": "billing/auth"}))
	if !strings.Contains(getResultText(result), "billing/auth: attempt 2/5") {
		t.Errorf("billing/auth: %s", getResultText(result))
	}
	result, _ = tool.Handle(ctx, callRequest(map[string]interface{}{"spec": "users/auth.md"}))
	if !strings.Contains(getResultText(result), "users/auth: attempt 0/5") {
		t.Errorf("users/auth: %s", getResultText(result))
	}
}

func TestNewAttemptsTool_DefaultBudget(t *testing.T) {
	_, _, r := setupTestProject(t, nil)
	tool := NewAttemptsTool(r, 0)
	if tool.maxAttempts != config.DefaultMaxAttempts {
		t.Errorf("maxAttempts = %d, want %d", tool.maxAttempts, config.DefaultMaxAttempts)
	}
}

func TestBoolArg(t *testing.T) {
	req := callRequest(map[string]interface{}{"yes": true, "str": "true"})
	if !boolArg(req, "yes", false) {
		t.Error("bool true not read")
	}
	if boolArg(req, "str", false) {
		t.Error("string values must fall back to the default")
	}
	if !boolArg(req, "absent", true) {
		t.Error("absent key must return the default")
	}
}
