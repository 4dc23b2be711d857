package resources

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/specsync/internal/autofix"
	"github.com/HendryAvila/specsync/internal/config"
	"github.com/HendryAvila/specsync/internal/snapshot"
)

func setup(t *testing.T) (string, *Handler, *snapshot.Guard, autofix.StateStore) {
	t.Helper()
	root := t.TempDir()
	cfg := config.Default()
	specs := cfg.SpecsPath(root)
	if err := os.MkdirAll(specs, 0o755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"auth.md", "api.md"} {
		if err := os.WriteFile(filepath.Join(specs, name), []byte("# X\n## Checks\n- [ ] x\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	guard := snapshot.NewProjectGuard(root, cfg, nil)
	store := autofix.NewFileStateStore(filepath.Join(config.StatePath(root), config.AttemptsDir))
	return root, NewHandler(cfg, guard, store), guard, store
}

func TestCollect_NestedSpecsKeepOwnCounters(t *testing.T) {
	root, h, _, store := setup(t)
	for _, rel := range []string{"billing/auth.md", "users/auth.md"} {
		path := filepath.Join(root, "specs", rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte("# X\n## Checks\n- [ ] x\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := store.Save(autofix.AttemptState{Spec: "billing/auth", Count: 3}); err != nil {
		t.Fatal(err)
	}

	st, err := h.Collect()
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	got := map[string]int{}
	for _, s := range st.Specs {
		got[s.Name] = s.Attempts
	}
	want := map[string]int{"api": 0, "auth": 0, "billing/auth": 3, "users/auth": 0}
	if len(got) != len(want) {
		t.Fatalf("specs = %v, want %v", got, want)
	}
	for name, n := range want {
		if got[name] != n {
			t.Errorf("%s attempts = %d, want %d", name, got[name], n)
		}
	}
}

func TestCollect(t *testing.T) {
	root, h, guard, store := setup(t)
	if err := store.Save(autofix.AttemptState{Spec: "auth", Count: 2}); err != nil {
		t.Fatal(err)
	}

	st, err := h.Collect()
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if st.Snapshot {
		t.Error("no snapshot exists yet")
	}
	if len(st.Specs) != 2 {
		t.Fatalf("specs = %d, want 2", len(st.Specs))
	}
	// SpecFiles is sorted: api before auth.
	if st.Specs[0].Name != "api" || st.Specs[0].Attempts != 0 || st.Specs[0].LastAttempt != nil {
		t.Errorf("api entry = %+v", st.Specs[0])
	}
	if st.Specs[1].Name != "auth" || st.Specs[1].Attempts != 2 || st.Specs[1].LastAttempt == nil {
		t.Errorf("auth entry = %+v", st.Specs[1])
	}
	if _, err := os.Stat(config.SnapshotPath(root)); !os.IsNotExist(err) {
		t.Error("Collect must not create a snapshot")
	}

	if _, err := guard.Create(context.Background()); err != nil {
		t.Fatal(err)
	}
	st, err = h.Collect()
	if err != nil {
		t.Fatal(err)
	}
	if !st.Snapshot || st.SnapshotTime == nil {
		t.Errorf("snapshot state = %v/%v", st.Snapshot, st.SnapshotTime)
	}
}

func TestHandleStatus(t *testing.T) {
	_, h, _, _ := setup(t)
	req := mcp.ReadResourceRequest{}
	req.Params.URI = StatusURI

	contents, err := h.HandleStatus(context.Background(), req)
	if err != nil {
		t.Fatalf("HandleStatus: %v", err)
	}
	if len(contents) != 1 {
		t.Fatalf("contents = %d, want 1", len(contents))
	}
	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok {
		t.Fatalf("unexpected content type %T", contents[0])
	}
	if tc.MIMEType != "application/json" || tc.URI != StatusURI {
		t.Errorf("content = %s %s", tc.URI, tc.MIMEType)
	}
	var st Status
	if err := json.Unmarshal([]byte(tc.Text), &st); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if st.MaxAttempts != config.DefaultMaxAttempts || len(st.Specs) != 2 {
		t.Errorf("payload = %+v", st)
	}
}

func TestHandleStatus_CorruptSnapshot(t *testing.T) {
	root, h, _, _ := setup(t)
	if err := os.MkdirAll(config.StatePath(root), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(config.SnapshotPath(root), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	req := mcp.ReadResourceRequest{}
	req.Params.URI = StatusURI

	contents, err := h.HandleStatus(context.Background(), req)
	if err != nil {
		t.Fatalf("corrupt snapshot should be reported in the resource, got: %v", err)
	}
	tc := contents[0].(mcp.TextResourceContents)
	if tc.MIMEType != "text/plain" {
		t.Errorf("expected error resource, got %s: %s", tc.MIMEType, tc.Text)
	}
}
