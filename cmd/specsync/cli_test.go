package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/HendryAvila/specsync/internal/autofix"
	"github.com/HendryAvila/specsync/internal/bullets"
	"github.com/HendryAvila/specsync/internal/config"
	"github.com/HendryAvila/specsync/internal/snapshot"
)

const runnerSpec = "# Runner\n## Files\n- run.go\n## Checks\n- [ ] Run function should handle its responsibilities correctly\n"

// setupWorkspace creates a project, points the global flags at it and
// returns its root.
func setupWorkspace(t *testing.T, files map[string]string) string {
	t.Helper()
	logger = zap.NewNop()
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "")
	t.Setenv("SPECSYNC_MAX_ATTEMPTS", "")

	ws := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(ws, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}

	rootDir, configPath = ws, ""
	jsonOut = false
	checkStrict, checkYes, checkNoAppend, checkForce = false, false, false, false
	fixMaxAttempts = 0
	t.Cleanup(func() { rootDir = "" })
	return ws
}

func newTestCmd(stdin string) (*cobra.Command, *bytes.Buffer) {
	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	return cmd, &out
}

func attemptState(spec string, count int) autofix.AttemptState {
	return autofix.AttemptState{Spec: spec, Count: count}
}

func exitCode(err error) int {
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	if err != nil {
		return -1
	}
	return 0
}

func TestInitCmd(t *testing.T) {
	ws := setupWorkspace(t, nil)
	cmd, out := newTestCmd("")

	require.NoError(t, runInit(cmd, nil))
	assert.FileExists(t, config.ConfigPath(ws))
	assert.FileExists(t, config.SnapshotPath(ws))
	assert.DirExists(t, filepath.Join(ws, config.DefaultSpecsDir))
	assert.Contains(t, out.String(), "wrote ")

	// Running it again keeps the existing settings.
	cmd, out = newTestCmd("")
	require.NoError(t, runInit(cmd, nil))
	assert.Contains(t, out.String(), "already exists")
}

func TestCheckCmd_Pass(t *testing.T) {
	setupWorkspace(t, map[string]string{
		"specs/runner.md": runnerSpec,
		"run.go":          "package x\n\nfunc Run() {}\n",
	})
	checkNoAppend = true
	cmd, out := newTestCmd("")

	err := runCheck(cmd, []string{"runner"})
	assert.Equal(t, 0, exitCode(err))
	assert.Contains(t, out.String(), "PASS")
}

func TestCheckCmd_FailThenExhausted(t *testing.T) {
	ws := setupWorkspace(t, map[string]string{
		"specs/runner.md":       "# Runner\n## Files\n- run.go\n## Checks\n- [ ] log validation errors\n",
		"run.go":                "package x\n",
		".specsync/config.yaml": "autofix:\n  max_attempts: 1\n",
	})
	checkNoAppend = true

	cmd, out := newTestCmd("")
	err := runCheck(cmd, []string{"runner"})
	assert.Equal(t, 1, exitCode(err))
	assert.Contains(t, out.String(), "FAIL")
	assert.Contains(t, out.String(), "attempt 1/1")

	spec, readErr := os.ReadFile(filepath.Join(ws, "specs", "runner.md"))
	require.NoError(t, readErr)
	assert.Contains(t, string(spec), "- [✗] log validation errors")

	cmd, out = newTestCmd("")
	err = runCheck(cmd, []string{"runner"})
	assert.Equal(t, 2, exitCode(err))
	assert.Contains(t, out.String(), "EXHAUSTED")
}

func TestCheckCmd_InteractiveAppend(t *testing.T) {
	ws := setupWorkspace(t, map[string]string{
		"specs/runner.md": runnerSpec,
		"run.go":          "package x\n\nfunc Run() {}\n\nfunc Stop() {}\n\nfunc Pause() {}\n",
	})
	cmd, out := newTestCmd("y\nn\n")

	err := runCheck(cmd, []string{"runner"})
	assert.Equal(t, 1, exitCode(err))
	assert.Contains(t, out.String(), `Add "Stop function should handle its responsibilities correctly" to runner.md? [y/N]`)

	spec, readErr := os.ReadFile(filepath.Join(ws, "specs", "runner.md"))
	require.NoError(t, readErr)
	assert.Contains(t, string(spec), "- [ ] Stop function should handle its responsibilities correctly")
	assert.NotContains(t, string(spec), "Pause")
}

func TestCheckCmd_StrictTampered(t *testing.T) {
	ws := setupWorkspace(t, map[string]string{
		"specs/runner.md": runnerSpec,
		"run.go":          "package x\n\nfunc Run() {}\n",
	})
	cmd, _ := newTestCmd("")
	require.NoError(t, runSnapshotCreate(cmd, nil))
	require.NoError(t, os.WriteFile(filepath.Join(ws, "specs", "runner.md"), []byte(runnerSpec+"- [ ] sneaky\n"), 0o644))

	checkStrict = true
	cmd, out := newTestCmd("")
	err := runCheck(cmd, []string{"runner"})
	require.ErrorIs(t, err, snapshot.ErrTampered)
	assert.Contains(t, out.String(), snapshot.TamperMarker)
	assert.Contains(t, out.String(), "changed specs/runner.md")
}

func TestCheckCmd_JSON(t *testing.T) {
	setupWorkspace(t, map[string]string{
		"specs/runner.md": runnerSpec,
		"run.go":          "package x\n\nfunc Run() {}\n",
	})
	jsonOut = true
	checkNoAppend = true
	cmd, out := newTestCmd("")

	require.NoError(t, runCheck(cmd, []string{"runner"}))
	assert.Contains(t, out.String(), `"status": "PASS"`)
}

func TestFixCmd_RequiresCommand(t *testing.T) {
	setupWorkspace(t, map[string]string{
		"specs/runner.md": runnerSpec,
		"run.go":          "package x\n",
	})
	cmd, _ := newTestCmd("")
	err := runFix(cmd, []string{"runner"})
	assert.ErrorContains(t, err, "autofix.command")
}

func TestFixCmd_LoopsUntilPass(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses sh")
	}
	setupWorkspace(t, map[string]string{
		"specs/runner.md":       runnerSpec,
		"run.go":                "package x\n",
		".specsync/config.yaml": "autofix:\n  max_attempts: 3\n  command: [\"sh\", \"-c\", \"printf 'package x\\\\n\\\\nfunc Run() {}\\\\n' > run.go\"]\n",
	})
	cmd, out := newTestCmd("")

	err := runFix(cmd, []string{"runner"})
	assert.Equal(t, 0, exitCode(err), out.String())
	assert.Contains(t, out.String(), "PASS")
}

func TestSnapshotCmds(t *testing.T) {
	ws := setupWorkspace(t, map[string]string{
		"specs/a.md": "# A\n## Checks\n- [ ] x\n",
		"specs/b.md": "# B\n## Checks\n- [ ] x\n",
	})

	cmd, out := newTestCmd("")
	require.NoError(t, runSnapshotCreate(cmd, nil))
	assert.Contains(t, out.String(), "2 spec files")

	cmd, out = newTestCmd("")
	require.NoError(t, runSnapshotCompare(cmd, false))
	assert.Contains(t, out.String(), "unchanged")

	require.NoError(t, os.WriteFile(filepath.Join(ws, "specs", "a.md"), []byte("# A\n## Checks\n- [ ] y\n"), 0o644))
	require.NoError(t, os.Remove(filepath.Join(ws, "specs", "b.md")))

	cmd, out = newTestCmd("")
	assert.Equal(t, 1, exitCode(runSnapshotCompare(cmd, false)))
	assert.Contains(t, out.String(), snapshot.TamperMarker)
	assert.Contains(t, out.String(), "deleted specs/b.md")

	cmd, out = newTestCmd("")
	assert.Equal(t, 1, exitCode(runSnapshotCompare(cmd, true)))
	assert.Contains(t, out.String(), "changed specs/a.md")
	assert.NotContains(t, out.String(), "specs/b.md")
}

func TestAttemptsCmds(t *testing.T) {
	ws := setupWorkspace(t, map[string]string{
		"specs/a.md": "# A\n## Checks\n- [ ] x\n",
		"specs/b.md": "# B\n## Checks\n- [ ] x\n",
	})
	require.NoError(t, attemptsStore(ws).Save(attemptState("a", 4)))

	cmd, out := newTestCmd("")
	require.NoError(t, runAttemptsShow(cmd, nil))
	assert.Contains(t, out.String(), "a: attempt 4/5")
	assert.Contains(t, out.String(), "b: attempt 0/5")

	cmd, out = newTestCmd("")
	require.NoError(t, runAttemptsReset(cmd, []string{"a.md"}))
	assert.Equal(t, "a: attempt counter reset (0/5)\n", out.String())

	cmd, out = newTestCmd("")
	require.NoError(t, runAttemptsShow(cmd, []string{"a"}))
	assert.Contains(t, out.String(), "a: attempt 0/5")
}

func TestAttemptsCmds_NestedSpecs(t *testing.T) {
	ws := setupWorkspace(t, map[string]string{
		"specs/billing/auth.md": "# A\n## Checks\n- [ ] x\n",
		"specs/users/auth.md":   "# A\n## Checks\n- [ ] x\n",
		"docs/login.md":         "# L\n## Checks\n- [ ] x\n",
	})
	require.NoError(t, attemptsStore(ws).Save(attemptState("billing/auth", 3)))

	cmd, out := newTestCmd("")
	require.NoError(t, runAttemptsShow(cmd, nil))
	assert.Contains(t, out.String(), "billing/auth: attempt 3/5")
	assert.Contains(t, out.String(), "users/auth: attempt 0/5")

	cmd, _ = newTestCmd("")
	assert.ErrorIs(t, runAttemptsReset(cmd, []string{"docs/login.md"}), config.ErrOutsideSpecsDir)
	cmd, _ = newTestCmd("")
	assert.ErrorIs(t, runCheck(cmd, []string{"docs/login.md"}), config.ErrOutsideSpecsDir)
}

func TestCacheCmds(t *testing.T) {
	setupWorkspace(t, nil)

	cmd, out := newTestCmd("")
	require.NoError(t, runCacheStats(cmd, nil))
	assert.Equal(t, "0 cached summaries\n", out.String())

	cmd, out = newTestCmd("")
	require.NoError(t, runCachePrune(cmd, nil))
	assert.Equal(t, "pruned 0 cached summaries\n", out.String())
}

func TestVersionCmd(t *testing.T) {
	versionCheck = false
	cmd, out := newTestCmd("")
	require.NoError(t, runVersion(cmd, nil))
	assert.Equal(t, "specsync dev\n", out.String())
}

func TestLinePrompter(t *testing.T) {
	var out bytes.Buffer
	p := newLinePrompter(strings.NewReader("yes\n\nY"), &out)
	ctx := context.Background()
	b := bullets.Bullet{Text: "log errors"}

	answers := []bool{}
	for i := 0; i < 4; i++ {
		ok, err := p.Confirm(ctx, "/x/specs/auth.md", b)
		require.NoError(t, err)
		answers = append(answers, ok)
	}
	// "yes", empty line, "Y" without newline, then EOF.
	assert.Equal(t, []bool{true, false, true, false}, answers)
	assert.Contains(t, out.String(), `Add "log errors" to auth.md? [y/N]`)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err := newLinePrompter(strings.NewReader("y\n"), &out).Confirm(cancelled, "a.md", b)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExitWith(t *testing.T) {
	assert.NoError(t, exitWith(0))
	assert.Equal(t, 2, exitCode(exitWith(2)))
	assert.EqualError(t, exitWith(1), "exit status 1")
}
