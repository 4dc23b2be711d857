package cache

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/HendryAvila/specsync/internal/bullets"
)

// compile-time check that Cache satisfies the extractor's interface.
var _ bullets.Cache = (*Cache)(nil)

func newTestCache(t *testing.T, model string) *Cache {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), "state", "cache.db"), model)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestLookup_Miss(t *testing.T) {
	c := newTestCache(t, "m")
	got, ok, err := c.Lookup("source")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if ok || got != nil {
		t.Errorf("Lookup on empty cache = %v, %v; want miss", got, ok)
	}
}

func TestStoreLookup(t *testing.T) {
	c := newTestCache(t, "m")
	want := []string{"validate user credentials", "generate secure token"}

	if err := c.Store("source v1", want); err != nil {
		t.Fatalf("Store: %v", err)
	}
	got, ok, err := c.Lookup("source v1")
	if err != nil || !ok {
		t.Fatalf("Lookup = %v, %v, %v", got, ok, err)
	}
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("Lookup = %v, want %v", got, want)
	}

	// Any content change misses.
	if _, ok, _ := c.Lookup("source v2"); ok {
		t.Error("edited content should miss the cache")
	}
}

func TestStore_ReplacesEntry(t *testing.T) {
	c := newTestCache(t, "m")
	if err := c.Store("src", []string{"a"}); err != nil {
		t.Fatal(err)
	}
	if err := c.Store("src", []string{"b"}); err != nil {
		t.Fatal(err)
	}
	got, _, _ := c.Lookup("src")
	if len(got) != 1 || got[0] != "b" {
		t.Errorf("Lookup = %v, want [b]", got)
	}
	if n, _ := c.Len(); n != 1 {
		t.Errorf("Len = %d, want 1", n)
	}
}

func TestStore_EmptyResultIsCached(t *testing.T) {
	c := newTestCache(t, "m")
	if err := c.Store("src", nil); err != nil {
		t.Fatal(err)
	}
	got, ok, err := c.Lookup("src")
	if err != nil || !ok {
		t.Fatalf("Lookup = %v, %v, %v", got, ok, err)
	}
	if len(got) != 0 {
		t.Errorf("Lookup = %v, want empty", got)
	}
}

func TestKey_NamespacedByModel(t *testing.T) {
	a := newTestCache(t, "model-a")
	b := &Cache{model: "model-b"}
	if a.Key("x") == b.Key("x") {
		t.Error("keys for different models should differ")
	}
	if a.Key("x") != a.Key("x") {
		t.Error("Key should be deterministic")
	}
	if len(a.Key("x")) != 64 {
		t.Errorf("Key length = %d, want 64 hex chars", len(a.Key("x")))
	}
}

func TestPersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	c, err := Open(path, "m")
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Store("src", []string{"a"}); err != nil {
		t.Fatal(err)
	}
	_ = c.Close()

	c, err = Open(path, "m")
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	if _, ok, _ := c.Lookup("src"); !ok {
		t.Error("entry lost after reopen")
	}
}

func TestPrune(t *testing.T) {
	c := newTestCache(t, "m")
	orig := timeNow
	t.Cleanup(func() { timeNow = orig })

	timeNow = func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }
	_ = c.Store("old", []string{"a"})
	timeNow = func() time.Time { return time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC) }
	_ = c.Store("new", []string{"b"})

	n, err := c.Prune(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("Prune removed %d, want 1", n)
	}
	if _, ok, _ := c.Lookup("old"); ok {
		t.Error("old entry should be pruned")
	}
	if _, ok, _ := c.Lookup("new"); !ok {
		t.Error("new entry should survive")
	}
}

func TestOpen_DriverError(t *testing.T) {
	orig := openDB
	t.Cleanup(func() { openDB = orig })
	openDB = func(string, string) (*sql.DB, error) { return nil, errors.New("no driver") }

	if _, err := Open(filepath.Join(t.TempDir(), "c.db"), "m"); err == nil {
		t.Fatal("expected error from failing driver")
	}
}
