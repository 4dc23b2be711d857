// Package snapshot records SHA-256 fingerprints of every spec document
// and detects edits made since the fingerprints were taken.
package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// timeNow is replaced in tests.
var timeNow = time.Now

// Snapshot is the persisted fingerprint set.
type Snapshot struct {
	// Specs maps slash-separated paths, relative to the project root,
	// to hex SHA-256 digests.
	Specs       map[string]string `json:"specs"`
	LastUpdated time.Time         `json:"lastUpdated"`
	TotalFiles  int               `json:"totalFiles"`
}

// Store reads and writes the snapshot document.
type Store struct {
	path string
}

// NewStore returns a Store backed by the file at path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the snapshot file location.
func (s *Store) Path() string { return s.path }

// Load reads the snapshot. A missing file yields an error wrapping
// os.ErrNotExist.
func (s *Store) Load() (*Snapshot, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parsing snapshot %s: %w", s.path, err)
	}
	if snap.Specs == nil {
		snap.Specs = map[string]string{}
	}
	return &snap, nil
}

// Save overwrites the snapshot file.
func (s *Store) Save(snap *Snapshot) error {
	snap.TotalFiles = len(snap.Specs)
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling snapshot: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("creating snapshot directory: %w", err)
	}
	if err := os.WriteFile(s.path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	return nil
}
